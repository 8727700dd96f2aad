package sheets

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/lineplan/internal/store"
)

// Syncer writes committed store states back to the tables in the background.
// Bursts of commits collapse into one write of the newest revision.
type Syncer struct {
	tables  *Tables
	timeout time.Duration
	logger  *zap.Logger

	mu      sync.Mutex
	pending *store.State
	saved   uint64
	wake    chan struct{}
	done    chan struct{}
}

// NewSyncer creates a syncer. Call Run to start writing.
func NewSyncer(tables *Tables, timeout time.Duration, logger *zap.Logger) *Syncer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Syncer{
		tables:  tables,
		timeout: timeout,
		logger:  logger,
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
}

// Enqueue records state for writing. It is shaped as a store.CommitHook and
// never blocks. Revisions not newer than the queued or saved one are ignored.
func (s *Syncer) Enqueue(state store.State) {
	s.mu.Lock()
	if state.Revision <= s.saved {
		s.mu.Unlock()
		return
	}
	if s.pending == nil || state.Revision > s.pending.Revision {
		s.pending = &state
	}
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Run writes queued states until ctx is cancelled, then flushes once more.
func (s *Syncer) Run(ctx context.Context) {
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			s.flush()
			return
		case <-s.wake:
			s.flush()
		}
	}
}

// Done is closed once Run has returned.
func (s *Syncer) Done() <-chan struct{} {
	return s.done
}

// Saved returns the newest revision written successfully.
func (s *Syncer) Saved() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saved
}

func (s *Syncer) flush() {
	s.mu.Lock()
	state := s.pending
	s.pending = nil
	stale := state != nil && state.Revision <= s.saved
	s.mu.Unlock()
	if state == nil || stale {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if err := s.tables.Save(ctx, *state); err != nil {
		s.logger.Error("failed to sync planning tables", zap.Uint64("revision", state.Revision), zap.Error(err))
		return
	}

	s.mu.Lock()
	if state.Revision > s.saved {
		s.saved = state.Revision
	}
	s.mu.Unlock()
}
