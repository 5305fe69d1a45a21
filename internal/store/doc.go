// Package store provides the SQLite database behind a ProgSnap2 dataset.
//
// The database holds three tables:
//   - MainTable: one row per event, with columns generated from the schema
//   - Metadata: Property/Value pairs describing the dataset
//   - CodeStates: one row per CodeState section (Table representation)
//
// CodeStates is created when the database is opened. MainTable and Metadata
// depend on the schema and are created by Initialize.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON
//   - one open connection: SQLite has a single writer, so the pool is capped
//     at one connection and a caller holding a *sql.Conn owns the database
//     until it releases it
//
// Writes that must be atomic take a Querier so callers can pass a *sql.Tx
// they manage themselves.
package store
