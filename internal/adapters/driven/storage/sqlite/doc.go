// Package sqlite provides a unified SQLite-based implementation of the record
// store ports.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that
// requires no CGO. One database connection pool backs:
//
//   - JobStore: job records and their live subscriptions
//   - NewsletterStore: newsletters and chunk tracking records
//   - ContextStore: trends, ideas and sessions
//   - CostLedger: the append-only cost ledger
//
// # Schema
//
// The schema is managed through versioned migrations in the migrations/
// directory. Applied versions are recorded in schema_migrations.
//
// # Data Location
//
// By default, the database is stored at ~/.postsmith/data/postsmith.db
//
// # Subscriptions
//
// Job subscriptions are served from an in-process broker, so they only see
// updates written through the same Store.
package sqlite
