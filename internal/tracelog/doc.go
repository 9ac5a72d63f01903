// Package tracelog records dispatch records in SQLite.
//
// The log is an audit trail: it stores which actions ran, with what payload,
// and how each notification pass ended. It never stores or restores state.
//
// Rows are written with ON CONFLICT(id) DO NOTHING, so recording the same
// dispatch twice is harmless. Reads are ordered by seq, then id, which makes
// listings deterministic for a given run.
package tracelog
