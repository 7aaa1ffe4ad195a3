package pipeline

import (
	"context"
	"fmt"

	"mwrunner/internal/backend"
	"mwrunner/pkg/logging"
)

// scope owns the backends acquired for one part of the run. Acquisition
// starts the backend and records it; release stops every owned backend in
// reverse acquisition order. Release is unconditional and best-effort: a
// backend whose Stop fails is logged and never masks the error that ended
// the scope.
type scope struct {
	label    string
	acquired []backend.Backend
}

func newScope(label string) *scope {
	return &scope{label: label}
}

// acquire starts b and takes ownership. On start failure the backend has
// already released its own resources (per the Backend contract), so the
// scope does not track it; sibling backends acquired earlier remain owned
// and are stopped when the scope is released.
func (s *scope) acquire(ctx context.Context, b backend.Backend) error {
	logging.Debug("pipeline", "[%s] starting %s", s.label, b.Label())
	if err := b.Start(ctx); err != nil {
		return fmt.Errorf("failed to start %s backend: %w", b.Label(), err)
	}
	s.acquired = append(s.acquired, b)
	return nil
}

// release stops every owned backend, last acquired first. It always
// processes the full list; stop failures are downgraded to warnings.
func (s *scope) release() {
	for i := len(s.acquired) - 1; i >= 0; i-- {
		b := s.acquired[i]
		logging.Debug("pipeline", "[%s] stopping %s", s.label, b.Label())
		if err := b.Stop(); err != nil {
			logging.Warn("pipeline", "[%s] failed to stop %s: %v", s.label, b.Label(), err)
		}
	}
	s.acquired = nil
}
