package backend

import (
	"context"
	"fmt"
	"sync"
)

// Kind identifies the class of external service a backend supervises.
type Kind string

const (
	KindDatabase      Kind = "Database"
	KindHTTPServer    Kind = "HTTPServer"
	KindDisplay       Kind = "Display"
	KindBrowserDriver Kind = "BrowserDriver"
)

// State represents the lifecycle state of a backend.
type State string

const (
	StateNotStarted State = "NotStarted"
	StateRunning    State = "Running"
	StateStopped    State = "Stopped"
)

// Backend is a supervised external service with an explicit lifecycle.
//
// Start may be called exactly once, from StateNotStarted. It brings the
// service to a ready state and blocks until the service is verified ready or
// a bounded timeout elapses; a failed Start leaves the backend in
// StateStopped with all resources released. Stop is idempotent and safe to
// call from any state, including after a failed Start.
type Backend interface {
	Kind() Kind
	Label() string
	Start(ctx context.Context) error
	Stop() error
	State() State
}

// lifecycle implements the shared state machine. Backends embed it and drive
// transitions through begin/end helpers so the single-start and
// idempotent-stop invariants hold in one place.
type lifecycle struct {
	mu    sync.Mutex
	state State
}

func newLifecycle() lifecycle {
	return lifecycle{state: StateNotStarted}
}

func (l *lifecycle) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// beginStart transitions NotStarted -> Running optimistically. The caller
// must call failStart if the actual startup does not complete.
func (l *lifecycle) beginStart(label string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != StateNotStarted {
		return fmt.Errorf("%s: start called in state %s", label, l.state)
	}
	l.state = StateRunning
	return nil
}

// failStart records that a start attempt did not succeed. The backend is
// left stopped so a later Stop is a no-op.
func (l *lifecycle) failStart() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state = StateStopped
}

// beginStop reports whether the caller must actually release anything.
func (l *lifecycle) beginStop() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != StateRunning {
		return false
	}
	l.state = StateStopped
	return true
}
