// Package database opens the connections behind the history store.
//
// Two backends are supported:
//   - SQLite (default): a single local file, pure Go driver, no server needed
//   - PostgreSQL: a pgx pool for shared or larger deployments
package database
