// Package sqlite provides the SQLite-backed record store.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that
// requires no CGO. One database holds users, their retained file records and
// their chat history.
//
// # Schema
//
// The schema is managed through versioned migrations in the migrations/
// directory. Each migration is a pair of .up.sql and .down.sql files; applied
// versions are recorded in schema_migrations.
//
// Chat messages carry an explicit role so history pairing never depends on
// row parity.
//
// # Data Location
//
// By default, the database is stored at ~/.ragify/data/ragify.db and user
// indexes under ~/.ragify/data/indexes/user_<id>.
package sqlite
