package tracelog

import (
	"context"
	"fmt"
)

// Write inserts an entry. Duplicate IDs are silently ignored.
func (l *Log) Write(ctx context.Context, e Entry) error {
	if e.ID == "" {
		return fmt.Errorf("write dispatch: empty id")
	}
	if e.Payload == "" {
		e.Payload = "null"
	}

	_, err := l.db.ExecContext(ctx, `
		INSERT INTO dispatches
		(id, seq, parent_id, depth, action, payload, committed, outcome, notified, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		e.ID,
		e.Seq,
		e.ParentID,
		e.Depth,
		e.Action,
		e.Payload,
		e.Committed,
		string(e.Outcome),
		e.Notified,
		e.Error,
	)
	if err != nil {
		return fmt.Errorf("write dispatch %s: %w", e.ID, err)
	}
	return nil
}
