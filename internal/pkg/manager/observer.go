package manager

import (
	"context"
	"time"

	"github.com/jake-scott/raki/internal/pkg/command"
	"github.com/jake-scott/raki/internal/pkg/relay"
)

type EventType int

const (
	EventCreated EventType = iota
	EventCommand
	EventDeleted
)

var eventTypeNames = []string{
	"create",
	"command",
	"delete",
}

func (t EventType) String() string {
	if int(t) < 0 || int(t) >= len(eventTypeNames) {
		return "unknown"
	}

	return eventTypeNames[t]
}

// Event describes something that happened to a relay.  Command is only set
// for EventCommand; Err is set when the command failed.
type Event struct {
	Type     EventType
	RelayID  string
	Kind     relay.Kind
	Command  *command.Command
	Previous relay.State
	Current  relay.State
	Err      error
	Time     time.Time
}

// Changed reports whether the event moved the relay to a new state
func (e Event) Changed() bool {
	return e.Err == nil && e.Previous != e.Current
}

// Observer is told about every event, in order per relay.  Observe runs on
// the caller's goroutine with the relay's command lock held, so it must be
// quick.  Errors are logged and otherwise ignored.
type Observer interface {
	Observe(ctx context.Context, ev Event) error
}

type ObserverFunc func(ctx context.Context, ev Event) error

func (f ObserverFunc) Observe(ctx context.Context, ev Event) error {
	return f(ctx, ev)
}
