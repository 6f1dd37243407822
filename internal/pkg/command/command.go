package command

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

/*
 *   Relay command types and their wire names
 */

type Type int

const (
	TurnOn Type = iota
	TurnOff
	Toggle
	Query
	Set
	Reset
)

var typeNames = []string{
	"TURN_ON",
	"TURN_OFF",
	"TOGGLE",
	"QUERY",
	"SET",
	"RESET",
}

// number of arguments each command type takes
var typeArity = []int{
	0,
	0,
	0,
	0,
	1,
	0,
}

// ErrMalformedCommand is returned when a raw request does not describe a
// known command type with the right arguments
var ErrMalformedCommand = errors.New("malformed command")

// ParseType converts a command name to its type, ignoring case
func ParseType(name string) (bool, Type) {
	name = strings.ToUpper(strings.TrimSpace(name))
	for i, val := range typeNames {
		if val == name {
			return true, Type(i)
		}
	}

	return false, 0
}

// Name returns the wire name of a command type
func (t Type) Name() string {
	if int(t) < 0 || int(t) >= len(typeNames) {
		return fmt.Sprintf("unknown (id: %d)", t)
	}

	return typeNames[t]
}

func (t Type) String() string {
	return t.Name()
}

// Types returns every known command type
func Types() []Type {
	types := make([]Type, len(typeNames))
	for i := range typeNames {
		types[i] = Type(i)
	}

	return types
}

// Command is a validated request to act on a relay
type Command struct {
	Type Type
	Args []string
}

// New builds an argument-less command of the given type
func New(t Type) Command {
	return Command{Type: t}
}

func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Type.Name()
	}

	return c.Type.Name() + " " + strings.Join(c.Args, " ")
}

// SetOn reports the target of a SET command
func (c Command) SetOn() bool {
	return c.Type == Set && len(c.Args) == 1 && c.Args[0] == "on"
}

// Parse validates a transport supplied command type and argument list
func Parse(typeName string, args []string) (Command, error) {
	ok, t := ParseType(typeName)
	if !ok {
		return Command{}, errors.Wrapf(ErrMalformedCommand, "unknown command type [%s]", typeName)
	}

	if want := typeArity[t]; len(args) != want {
		return Command{}, errors.Wrapf(ErrMalformedCommand, "expected %d arguments for %s, got %d", want, t.Name(), len(args))
	}

	cmd := Command{Type: t}

	switch t {
	case Set:
		level, err := parseLevel(args[0])
		if err != nil {
			return Command{}, err
		}
		cmd.Args = []string{level}
	}

	return cmd, nil
}

func parseLevel(arg string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(arg)) {
	case "on", "1", "true":
		return "on", nil
	case "off", "0", "false":
		return "off", nil
	}

	return "", errors.Wrapf(ErrMalformedCommand, "unsupported SET level [%s]", arg)
}
