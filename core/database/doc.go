// Package database provides the GORM database connection used by the
// license stores and the sync operation history.
//
// MySQL is the production driver. A sqlite driver is included so tests can
// run against an in-memory database through the exact same Connect path,
// and so the CLI commands can operate on a local file without a server.
//
// Connection pool limits and DSN timeouts are applied up front; repository
// code should not need to tune them per query.
package database
