// Package relay models a single switchable device and the backends that
// drive it.
//
// A Relay is one of a closed set of kinds (GPIO or Test).  The kind decides
// which commands the relay accepts and which states it may start in; the
// Backend performs the write.  State changes only through Apply, and only
// after the backend write succeeded.
package relay

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/jake-scott/raki/internal/pkg/command"
)

type Relay struct {
	id      string
	kind    Kind
	initial State
	backend Backend

	// serialises Apply so concurrent commands are neither lost nor merged
	applyMu sync.Mutex
	state   atomic.Int32
	// set after a failed write, when the line may not match state
	dirty bool
}

// Transition describes the outcome of one applied command
type Transition struct {
	Previous State
	Current  State
}

func (t Transition) Changed() bool {
	return t.Previous != t.Current
}

// New returns a relay that is already in state initial.  Writing the initial
// state to the hardware is the caller's job.
func New(id string, kind Kind, initial State, backend Backend) *Relay {
	r := &Relay{
		id:      id,
		kind:    kind,
		initial: initial,
		backend: backend,
	}
	r.state.Store(int32(initial))

	return r
}

func (r *Relay) ID() string {
	return r.id
}

func (r *Relay) Kind() Kind {
	return r.kind
}

// State returns the current state without touching the backend
func (r *Relay) State() State {
	return State(r.state.Load())
}

// Apply executes cmd and returns the resulting state
func (r *Relay) Apply(ctx context.Context, cmd command.Command) (State, error) {
	t, err := r.Transition(ctx, cmd)
	return t.Current, err
}

// Transition executes cmd and reports both the previous and resulting state.
// On error the relay keeps its previous state.
func (r *Relay) Transition(ctx context.Context, cmd command.Command) (Transition, error) {
	if !r.kind.Supports(cmd.Type) {
		cur := r.State()
		return Transition{Previous: cur, Current: cur},
			errors.Wrapf(ErrUnsupportedCommand, "%s on %s relay %s", cmd.Type.Name(), r.kind.Name(), r.id)
	}

	r.applyMu.Lock()
	defer r.applyMu.Unlock()

	cur := r.State()
	t := Transition{Previous: cur, Current: cur}

	var next State
	switch cmd.Type {
	case command.Query:
		return t, nil
	case command.TurnOn:
		next = On
	case command.TurnOff:
		next = Off
	case command.Toggle:
		next = cur.Complement()
	case command.Set:
		next = Off
		if cmd.SetOn() {
			next = On
		}
	case command.Reset:
		next = r.initial
	default:
		return t, errors.Wrapf(ErrUnsupportedCommand, "%s on %s relay %s", cmd.Type.Name(), r.kind.Name(), r.id)
	}

	if next == cur && !r.dirty {
		return t, nil
	}

	if err := r.backend.Write(ctx, next); err != nil {
		r.dirty = true
		return t, &HardwareFault{RelayID: r.id, Op: cmd.Type.Name(), Cause: err}
	}

	r.dirty = false
	r.state.Store(int32(next))
	t.Current = next

	return t, nil
}

// Close releases the backend.  The relay must not be used afterwards.
func (r *Relay) Close() error {
	r.applyMu.Lock()
	defer r.applyMu.Unlock()

	return r.backend.Close()
}
