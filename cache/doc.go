// Package cache provides the bounded response store used for GraphQL query
// results, with interchangeable in-memory, Redis and SQLite backends.
//
// # Eviction
//
// Every backend holds at most a fixed number of entries ([WithMaxEntries],
// [DefaultMaxEntries] by default). Inserting a new key into a full cache
// evicts exactly one entry first: the one inserted earliest. Reads do not
// refresh an entry and overwriting an existing key keeps its position, so
// eviction follows insertion order only (FIFO, not LRU). Entries have no TTL.
//
// # Implementations
//
//   - [NewInMemory] keeps values in a map plus a container/list recording
//     insertion order, guarded by a mutex. Values are stored as-is.
//
//   - [NewRedis] stores msgpack values in a Redis hash and insertion order in
//     a Redis list. The check-size, evict, insert sequence runs as one Lua
//     script so several processes can share a cache. The caller owns the
//     client.
//
//   - [NewSQLite] stores msgpack values in a table whose AUTOINCREMENT rowid
//     records insertion order; eviction and insertion share a transaction.
//     Works with a file path or ":memory:".
//
//   - [NewComposite] chains caches: reads return the first hit, writes go to
//     every tier.
//
// I/O-backed caches return [Encoded] values; the generic [GetContext] helper
// decodes them (or type-asserts in-memory values) into the requested type:
//
//	found, body, err := cache.GetContext[[]byte](ctx, c, key)
//
// # Keys and read-through
//
// [Key] derives a stable key from an operation name and its serialized
// variables using xxhash. [Exec] combines lookup and population and reports
// whether the value was served from the cache.
package cache
