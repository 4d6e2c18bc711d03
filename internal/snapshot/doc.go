// Package snapshot persists conversations so a restart can resume them.
//
// A Store writes and reads one Snapshot holding every scoped conversation.
// Backends exist for a JSON file, SQLite, PostgreSQL and Redis; all of them
// keep only the latest snapshot. The Persister decides when to save: it skips
// empty state, debounces rapid triggers, saves periodically, and flushes once
// more on shutdown. Load failures are logged and the service starts empty.
package snapshot
