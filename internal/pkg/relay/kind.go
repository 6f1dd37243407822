package relay

import (
	"fmt"
	"strings"

	"github.com/jake-scott/raki/internal/pkg/command"
)

/*
 *   Relay backend kinds and the commands each of them supports
 */

type Kind int

const (
	KindGPIO Kind = iota
	KindTest
)

var kindNames = []string{
	"gpio",
	"test",
}

// Commands accepted by each kind, indexed by Kind
var kindCommands = [][]command.Type{
	{command.TurnOn, command.TurnOff, command.Toggle, command.Query, command.Set},
	{command.TurnOn, command.TurnOff, command.Toggle, command.Query, command.Set, command.Reset},
}

// States a relay of each kind may start in, indexed by Kind
var kindInitialStates = [][]State{
	{Off, On},
	{Off, On, Unknown},
}

// ParseKind converts a kind name to its value, ignoring case
func ParseKind(name string) (bool, Kind) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, val := range kindNames {
		if val == name {
			return true, Kind(i)
		}
	}

	return false, 0
}

// KindNames returns the wire names of every kind
func KindNames() []string {
	names := make([]string, len(kindNames))
	copy(names, kindNames)
	return names
}

// Name returns the wire name of a kind
func (k Kind) Name() string {
	if int(k) < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("unknown (id: %d)", k)
	}

	return kindNames[k]
}

func (k Kind) String() string {
	return k.Name()
}

// Supports reports whether relays of this kind accept the command type
func (k Kind) Supports(t command.Type) bool {
	if int(k) < 0 || int(k) >= len(kindCommands) {
		return false
	}

	for _, c := range kindCommands[k] {
		if c == t {
			return true
		}
	}

	return false
}

// CanStartIn reports whether relays of this kind may be created in state s
func (k Kind) CanStartIn(s State) bool {
	if int(k) < 0 || int(k) >= len(kindInitialStates) {
		return false
	}

	for _, v := range kindInitialStates[k] {
		if v == s {
			return true
		}
	}

	return false
}
