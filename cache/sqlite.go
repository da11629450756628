package cache

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/vmihailenco/msgpack/v5"
	_ "modernc.org/sqlite"
)

type sqliteCache struct {
	db   *sql.DB
	cfg  config
	once sync.Once
}

var _ Cache = (*sqliteCache)(nil)

// NewSQLite returns a FIFO Cache backed by SQLite. If dbPath is empty or
// ":memory:", an in-memory database is used. Insertion order is the rowid
// sequence, so eviction survives restarts of a file-backed cache.
func NewSQLite(ctx context.Context, dbPath string, opts ...Option) (Cache, error) {
	cfg := applyOptions(opts)
	if dbPath == "" {
		dbPath = ":memory:"
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.Wrap(err, "cache: open sqlite")
	}
	// A single connection serializes writers and keeps ":memory:" databases
	// from being private to each pooled connection.
	db.SetMaxOpenConns(1)

	stmts := []string{
		`PRAGMA journal_mode=WAL`,
		`CREATE TABLE IF NOT EXISTS query_cache (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			key TEXT NOT NULL UNIQUE,
			value BLOB NOT NULL,
			created_at INTEGER NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, errors.Wrap(err, "cache: initialize sqlite")
		}
	}

	return &sqliteCache{db: db, cfg: cfg}, nil
}

func (c *sqliteCache) queryCtx(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, c.cfg.queryTimeout)
}

func (c *sqliteCache) GetContext(ctx context.Context, key string) (bool, any, error) {
	qctx, cancel := c.queryCtx(ctx)
	defer cancel()
	var data []byte
	err := c.db.QueryRowContext(qctx, `SELECT value FROM query_cache WHERE key = ?`, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil, nil
	}
	if err != nil {
		return false, nil, errors.Wrapf(err, "cache: sqlite get %s", key)
	}
	return true, Encoded(data), nil
}

func (c *sqliteCache) SetContext(ctx context.Context, key string, val any) error {
	data, err := msgpack.Marshal(val)
	if err != nil {
		return errors.Wrap(err, "cache: failed to marshal value")
	}
	qctx, cancel := c.queryCtx(ctx)
	defer cancel()

	tx, err := c.db.BeginTx(qctx, nil)
	if err != nil {
		return errors.Wrap(err, "cache: sqlite begin")
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(qctx, `UPDATE query_cache SET value = ? WHERE key = ?`, data, key)
	if err != nil {
		return errors.Wrapf(err, "cache: sqlite update %s", key)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return tx.Commit()
	}

	var count int
	if err := tx.QueryRowContext(qctx, `SELECT COUNT(*) FROM query_cache`).Scan(&count); err != nil {
		return errors.Wrap(err, "cache: sqlite count")
	}
	if excess := count - c.cfg.maxEntries + 1; excess > 0 {
		rows, err := tx.QueryContext(qctx, `SELECT key FROM query_cache ORDER BY seq LIMIT ?`, excess)
		if err != nil {
			return errors.Wrap(err, "cache: sqlite select oldest")
		}
		var evicted []string
		for rows.Next() {
			var k string
			if err := rows.Scan(&k); err != nil {
				rows.Close()
				return errors.Wrap(err, "cache: sqlite scan oldest")
			}
			evicted = append(evicted, k)
		}
		rows.Close()
		for _, k := range evicted {
			if _, err := tx.ExecContext(qctx, `DELETE FROM query_cache WHERE key = ?`, k); err != nil {
				return errors.Wrapf(err, "cache: sqlite evict %s", k)
			}
			c.cfg.traceEvicted(k)
		}
	}

	if _, err := tx.ExecContext(qctx,
		`INSERT INTO query_cache (key, value, created_at) VALUES (?, ?, ?)`,
		key, data, time.Now().UnixNano(),
	); err != nil {
		return errors.Wrapf(err, "cache: sqlite insert %s", key)
	}
	return tx.Commit()
}

func (c *sqliteCache) ExpireContext(ctx context.Context, key string) (bool, error) {
	qctx, cancel := c.queryCtx(ctx)
	defer cancel()
	result, err := c.db.ExecContext(qctx, `DELETE FROM query_cache WHERE key = ?`, key)
	if err != nil {
		return false, errors.Wrapf(err, "cache: sqlite expire %s", key)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func (c *sqliteCache) LenContext(ctx context.Context) (int, error) {
	qctx, cancel := c.queryCtx(ctx)
	defer cancel()
	var count int
	if err := c.db.QueryRowContext(qctx, `SELECT COUNT(*) FROM query_cache`).Scan(&count); err != nil {
		return 0, errors.Wrap(err, "cache: sqlite len")
	}
	return count, nil
}

func (c *sqliteCache) CloseContext(_ context.Context) error {
	var dbErr error
	c.once.Do(func() {
		dbErr = c.db.Close()
	})
	return dbErr
}

func (c *sqliteCache) logWriteFailed(key string, err error) {
	c.cfg.debugWriteFailed(key, err)
}
