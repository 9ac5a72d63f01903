package tracelog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/statebox"
)

// ErrNotFound is returned by Get for unknown dispatch IDs.
var ErrNotFound = errors.New("dispatch not found")

// Filter narrows List. Zero fields match everything.
type Filter struct {
	Action  string
	Outcome statebox.Outcome
	// ParentID "-" selects top-level dispatches only.
	ParentID string
	Limit    int
}

const selectColumns = `id, seq, parent_id, depth, action, payload, committed, outcome, notified, error`

// List returns matching entries ordered by seq, then id.
//
// Returns an empty slice (not nil) if nothing matches.
func (l *Log) List(ctx context.Context, f Filter) ([]Entry, error) {
	var (
		where []string
		args  []any
	)
	if f.Action != "" {
		where = append(where, "action = ?")
		args = append(args, f.Action)
	}
	if f.Outcome != "" {
		where = append(where, "outcome = ?")
		args = append(args, string(f.Outcome))
	}
	switch f.ParentID {
	case "":
	case "-":
		where = append(where, "parent_id = ''")
	default:
		where = append(where, "parent_id = ?")
		args = append(args, f.ParentID)
	}

	query := "SELECT " + selectColumns + " FROM dispatches"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY seq ASC, id COLLATE BINARY ASC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query dispatches: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dispatches: %w", err)
	}
	return entries, nil
}

// Get returns the entry with the given ID.
func (l *Log) Get(ctx context.Context, id string) (Entry, error) {
	row := l.db.QueryRowContext(ctx, "SELECT "+selectColumns+" FROM dispatches WHERE id = ?", id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return e, err
}

// Count returns the number of entries.
func (l *Log) Count(ctx context.Context) (int, error) {
	var n int
	if err := l.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM dispatches").Scan(&n); err != nil {
		return 0, fmt.Errorf("count dispatches: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (Entry, error) {
	var (
		e       Entry
		outcome string
	)
	err := s.Scan(&e.ID, &e.Seq, &e.ParentID, &e.Depth, &e.Action, &e.Payload, &e.Committed, &outcome, &e.Notified, &e.Error)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, err
	}
	if err != nil {
		return Entry{}, fmt.Errorf("scan dispatch: %w", err)
	}
	e.Outcome = statebox.Outcome(outcome)
	return e, nil
}
