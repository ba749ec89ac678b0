// Package stores persists snapshots of resolved command references in
// SQLite, so a later resolution can be diffed against a known baseline.
// The schema is applied with embedded golang-migrate migrations.
package stores
