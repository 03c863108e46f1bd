// Package auditstore persists the provenance trail of baked recipes.
//
// Each successful bake becomes one row in "bakes" and one row per step in
// "bake_steps", written in a single transaction. SQLite (through the pure
// Go modernc driver) is the default backend; postgres:// DSNs use pgx
// through database/sql.
package auditstore
