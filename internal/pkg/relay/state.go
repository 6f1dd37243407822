package relay

import (
	"fmt"
	"strings"
)

/*
 *   Relay states and their wire names
 */

type State int32

const (
	Off State = iota
	On
	Unknown
)

var stateNames = []string{
	"OFF",
	"ON",
	"UNKNOWN",
}

// ParseState converts a state name to its value, ignoring case
func ParseState(name string) (bool, State) {
	name = strings.ToUpper(strings.TrimSpace(name))
	for i, val := range stateNames {
		if val == name {
			return true, State(i)
		}
	}

	return false, 0
}

// Name returns the wire name of a state
func (s State) Name() string {
	if int(s) < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("unknown (id: %d)", s)
	}

	return stateNames[s]
}

func (s State) String() string {
	return s.Name()
}

// Complement is the state a TOGGLE moves to.  An uninitialised relay
// toggles on.
func (s State) Complement() State {
	if s == On {
		return Off
	}

	return On
}
