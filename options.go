package statebox

import (
	"io"
	"log/slog"
)

type settings struct {
	logger   *slog.Logger
	observer Observer
	ids      IDGenerator
	clock    Clock
}

// Option configures a Store.
type Option func(*settings)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithObserver sets the dispatch observer. Use NewMultiObserver to install
// several.
func WithObserver(obs Observer) Option {
	return func(s *settings) {
		if obs != nil {
			s.observer = obs
		}
	}
}

// WithIDGenerator sets the dispatch ID generator.
//
// Default: UUIDv7Generator.
func WithIDGenerator(gen IDGenerator) Option {
	return func(s *settings) {
		if gen != nil {
			s.ids = gen
		}
	}
}

// WithClock sets the clock that numbers dispatches. Each store needs its own
// clock unless seqs are meant to be shared.
func WithClock(c Clock) Option {
	return func(s *settings) {
		if c != nil {
			s.clock = c
		}
	}
}

func defaultSettings() settings {
	return settings{
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		observer: NoOpObserver{},
		ids:      UUIDv7Generator{},
		clock:    &LogicalClock{},
	}
}
