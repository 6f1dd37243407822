package command

import (
	"errors"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		typeName string
		args     []string
		want     Command
		wantErr  bool
	}{
		{"turn on", "TURN_ON", nil, Command{Type: TurnOn}, false},
		{"lower case", "turn_off", nil, Command{Type: TurnOff}, false},
		{"padded", "  toggle ", []string{}, Command{Type: Toggle}, false},
		{"query", "QUERY", nil, Command{Type: Query}, false},
		{"reset", "RESET", nil, Command{Type: Reset}, false},
		{"set on", "SET", []string{"on"}, Command{Type: Set, Args: []string{"on"}}, false},
		{"set numeric", "SET", []string{"0"}, Command{Type: Set, Args: []string{"off"}}, false},
		{"set bool", "set", []string{"TRUE"}, Command{Type: Set, Args: []string{"on"}}, false},
		{"unknown type", "EXPLODE", nil, Command{}, true},
		{"empty type", "", nil, Command{}, true},
		{"query with args", "QUERY", []string{"now"}, Command{}, true},
		{"set without level", "SET", nil, Command{}, true},
		{"set too many", "SET", []string{"on", "off"}, Command{}, true},
		{"set bad level", "SET", []string{"half"}, Command{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.typeName, tt.args)
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedCommand) {
					t.Fatalf("Parse() error = %v, want ErrMalformedCommand", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse() unexpected error: %v", err)
			}
			if got.Type != tt.want.Type {
				t.Errorf("Type = %s, want %s", got.Type, tt.want.Type)
			}
			if len(got.Args) != len(tt.want.Args) {
				t.Fatalf("Args = %v, want %v", got.Args, tt.want.Args)
			}
			for i := range got.Args {
				if got.Args[i] != tt.want.Args[i] {
					t.Errorf("Args[%d] = %q, want %q", i, got.Args[i], tt.want.Args[i])
				}
			}
		})
	}
}

func TestTypeNames(t *testing.T) {
	for _, typ := range Types() {
		ok, back := ParseType(typ.Name())
		if !ok || back != typ {
			t.Errorf("ParseType(%q) = %v, %v", typ.Name(), ok, back)
		}
	}

	if got := Type(42).Name(); got != "unknown (id: 42)" {
		t.Errorf("Name() of out of range type = %q", got)
	}
}

func TestCommandString(t *testing.T) {
	if got := New(Toggle).String(); got != "TOGGLE" {
		t.Errorf("String() = %q, want TOGGLE", got)
	}

	cmd, err := Parse("set", []string{"1"})
	if err != nil {
		t.Fatal(err)
	}
	if got := cmd.String(); got != "SET on" {
		t.Errorf("String() = %q, want %q", got, "SET on")
	}
	if !cmd.SetOn() {
		t.Error("SetOn() = false, want true")
	}
}
