package store

import (
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/mamadbah2/lineplan/internal/domain/models"
)

// CommitHook is invoked after every successful write with a copy of the new state.
type CommitHook func(State)

// Store owns the shared planning tables. Readers take snapshots concurrently;
// writers run one at a time inside Update and see either all or none of a
// transaction's changes.
type Store struct {
	mu     sync.RWMutex
	state  State
	hooks  []CommitHook
	hookMu sync.Mutex
	logger *zap.Logger
}

// New creates a store seeded with the given state. Records failing validation
// are dropped and logged.
func New(initial State, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{logger: logger}
	s.state = sanitize(initial.Clone(), logger)
	return s
}

func sanitize(st State, logger *zap.Logger) State {
	lines := st.Lines[:0]
	seenLines := make(map[models.LineID]struct{}, len(st.Lines))
	for _, l := range st.Lines {
		if err := l.Validate(); err != nil {
			logger.Warn("dropping invalid line", zap.String("line_id", string(l.ID)), zap.Error(err))
			continue
		}
		if _, dup := seenLines[l.ID]; dup {
			logger.Warn("dropping duplicate line", zap.String("line_id", string(l.ID)))
			continue
		}
		seenLines[l.ID] = struct{}{}
		lines = append(lines, l)
	}
	st.Lines = lines

	orders := st.Orders[:0]
	seenOrders := make(map[models.OrderID]struct{}, len(st.Orders))
	for _, o := range st.Orders {
		if err := o.Validate(); err != nil {
			logger.Warn("dropping invalid order", zap.String("order_id", string(o.ID)), zap.Error(err))
			continue
		}
		if _, dup := seenOrders[o.ID]; dup {
			logger.Warn("dropping duplicate order", zap.String("order_id", string(o.ID)))
			continue
		}
		seenOrders[o.ID] = struct{}{}
		orders = append(orders, o)
	}
	st.Orders = orders
	return st
}

// Snapshot returns an immutable copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// Revision returns the number of committed writes.
func (s *Store) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Revision
}

// OnCommit registers a hook called after each successful Update.
func (s *Store) OnCommit(hook CommitHook) {
	if hook == nil {
		return
	}
	s.hookMu.Lock()
	defer s.hookMu.Unlock()
	s.hooks = append(s.hooks, hook)
}

// Update runs fn as an exclusive write transaction. fn works on a private copy;
// the copy replaces the live state only when fn returns nil, so a failed
// transaction leaves no trace. A panic inside fn is converted into an error.
func (s *Store) Update(fn func(tx *Tx) error) (err error) {
	if fn == nil {
		return errors.New("store: nil transaction")
	}

	s.mu.Lock()
	working := s.state.Clone()
	tx := &Tx{state: &working}

	func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("transaction panicked", zap.Any("panic", r))
				err = errors.New("store: transaction panicked")
			}
		}()
		err = fn(tx)
	}()

	if err != nil {
		s.mu.Unlock()
		return err
	}

	working.Revision = s.state.Revision + 1
	s.state = working
	committed := working.Clone()
	s.mu.Unlock()

	s.hookMu.Lock()
	hooks := append([]CommitHook(nil), s.hooks...)
	s.hookMu.Unlock()
	for _, h := range hooks {
		h(committed)
	}
	return nil
}
