// internal/watch/watch.go
package watch

import (
	"errors"
	"time"

	"github.com/tamzrod/iap-bootstate/internal/iap"
)

// Source abstracts the store operations the watcher needs.
type Source interface {
	Snapshot() (iap.Snapshot, error)
}

// Config is the minimal runtime config the watcher needs.
type Config struct {
	Name     string
	Interval time.Duration
}

// Result is a snapshot produced by one poll cycle.
type Result struct {
	Name     string
	At       time.Time
	Snapshot iap.Snapshot
	Err      error // non-nil means the poll cycle failed
}

// Watcher is a dumb, clock-driven reader of boot state.
type Watcher struct {
	cfg Config
	src Source
}

// New creates a watcher with immutable config.
func New(cfg Config, src Source) (*Watcher, error) {
	if cfg.Name == "" {
		return nil, errors.New("watch: name required")
	}
	if cfg.Interval <= 0 {
		return nil, errors.New("watch: interval must be > 0")
	}
	if src == nil {
		return nil, errors.New("watch: source required")
	}
	return &Watcher{cfg: cfg, src: src}, nil
}

// PollOnce performs exactly one poll cycle.
func (w *Watcher) PollOnce() Result {
	res := Result{
		Name: w.cfg.Name,
		At:   time.Now(),
	}

	snap, err := w.src.Snapshot()
	if err != nil {
		res.Err = err
		return res
	}

	res.Snapshot = snap
	return res
}
