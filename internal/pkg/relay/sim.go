package relay

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

// errSimulatedFault is what a faulty simulated relay fails writes with
var errSimulatedFault = errors.New("simulated write failure")

// Simulated is the in-memory backend behind test relays
type Simulated struct {
	mu     sync.Mutex
	fault  bool
	writes []State
	closed bool
}

func NewSimulated() *Simulated {
	return &Simulated{}
}

// WithFault makes every write fail
func (s *Simulated) WithFault(fault bool) *Simulated {
	s.fault = fault
	return s
}

func (s *Simulated) Write(ctx context.Context, st State) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.New("write to released simulated relay")
	}
	if s.fault {
		return errSimulatedFault
	}

	s.writes = append(s.writes, st)
	return nil
}

func (s *Simulated) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}

// Writes returns every state written so far
func (s *Simulated) Writes() []State {
	s.mu.Lock()
	defer s.mu.Unlock()

	w := make([]State, len(s.writes))
	copy(w, s.writes)
	return w
}

// Closed reports whether the backend has been released
func (s *Simulated) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.closed
}
