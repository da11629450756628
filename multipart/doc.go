// Package multipart encodes GraphQL variables that carry file handles into
// the multipart request convention: an operations part, the variables with
// every file replaced by null, a map from part index to the dotted path the
// file was taken from, and one part per file.
package multipart
