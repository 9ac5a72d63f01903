package tracelog

import (
	"fmt"

	"github.com/roach88/statebox"
	"github.com/roach88/statebox/internal/canonical"
)

// Entry is one row of the log.
type Entry struct {
	ID       string `json:"id"`
	Seq      int64  `json:"seq"`
	ParentID string `json:"parent_id,omitempty"`
	Depth    int    `json:"depth"`
	Action   string `json:"action"`
	// Payload is canonical JSON.
	Payload   string           `json:"payload"`
	Committed bool             `json:"committed"`
	Outcome   statebox.Outcome `json:"outcome"`
	Notified  int              `json:"notified"`
	Error     string           `json:"error,omitempty"`
}

// EntryFromRecord converts a dispatch record. It fails if the payload has no
// canonical JSON form.
func EntryFromRecord(rec statebox.Record) (Entry, error) {
	payload, err := canonical.Marshal(rec.Payload)
	if err != nil {
		return Entry{}, fmt.Errorf("dispatch %s payload: %w", rec.ID, err)
	}

	e := Entry{
		ID:        rec.ID,
		Seq:       rec.Seq,
		ParentID:  rec.ParentID,
		Depth:     rec.Depth,
		Action:    rec.Action,
		Payload:   string(payload),
		Committed: rec.Committed,
		Outcome:   rec.Outcome,
		Notified:  rec.Notified,
	}
	if rec.Err != nil {
		e.Error = rec.Err.Error()
	}
	return e, nil
}
