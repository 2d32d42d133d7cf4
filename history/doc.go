// Package history manages bounded conversation history.
//
// A History is an ordered message log with a trimming policy: once the
// number of retained messages exceeds the configured cap, the oldest
// non-system messages are evicted. The original system message can be
// pinned so it survives every trim.
//
// Persistence is delegated to a caller-owned Adapter; the in-memory adapter
// is the default and a SQLite adapter is provided for durability between
// runs.
package history
