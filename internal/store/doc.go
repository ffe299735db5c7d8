// Package store records equivalences and submitted migrations.
//
// A store is an append-only log of facts. Adding a fact that is already
// present is a no-op, so the bookkeeper never has to check before noting
// something, and no fact is ever removed or rewritten.
//
// # Backends
//
// Open selects one backend from the database location:
//
//   - "dummy", "dummy:<anything>": MemoryStore, never touches disk
//   - "sqlite:<path>": SQLiteStore, one row per fact
//   - "file:<uri>" or a bare path: FileStore, one JSON document
//   - "" with Options.NoDatabase: NoopStore
//
// CannedStore is a deterministic fake for tests of other packages.
//
// # File format
//
//	{"equivalences":[{"rev1":{"repository_name":"internal","rev_id":"3"},
//	                  "rev2":{"repository_name":"public","rev_id":"7"}}],
//	 "migrations":[{"from_revision":{...},"to_revision":{...}}]}
//
// Documents are written as canonical JSON (sorted keys, NFC strings).
// The legacy camelCase names (repositoryName, revId, fromRevision,
// toRevision) are accepted on read.
//
// # Errors
//
// A document that cannot be parsed is a *ConfigError (errors.Is
// ErrInvalidDatabase); fixing the file fixes the problem. Failing to read or
// write the file is an *IOError. The store assumes a single writer and does
// no locking.
package store
