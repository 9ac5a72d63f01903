package tracelog

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/roach88/statebox"
)

// Recorder is a statebox.Observer that writes every record to a Log.
//
// Failures are logged and counted; they never affect the dispatch being
// recorded.
type Recorder struct {
	log    *Log
	logger *slog.Logger
	errs   atomic.Int64
}

// NewRecorder creates a recorder. A nil logger discards output.
func NewRecorder(log *Log, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Recorder{log: log, logger: logger}
}

// OnDispatch implements statebox.Observer.
func (r *Recorder) OnDispatch(rec statebox.Record) {
	e, err := EntryFromRecord(rec)
	if err != nil {
		r.fail(rec, err)
		return
	}
	if err := r.log.Write(context.Background(), e); err != nil {
		r.fail(rec, err)
	}
}

// Errors returns the number of records that could not be written.
func (r *Recorder) Errors() int {
	return int(r.errs.Load())
}

func (r *Recorder) fail(rec statebox.Record, err error) {
	r.errs.Add(1)
	r.logger.Warn("trace write failed",
		"dispatch_id", rec.ID,
		"action", rec.Action,
		"error", err)
}
