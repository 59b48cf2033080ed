// Package history records generation and download runs in SQLite.
//
// Every task submitted by a session gets a row when it starts and is closed
// out when it settles, so failures stay diagnosable after the notice is gone.
// The ledger is advisory: the filesystem remains the source of truth for
// which subtitles exist. Schema changes bump schemaVersion; users delete the
// database to adopt a new schema.
package history
