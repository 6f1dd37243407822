package models

import (
	"testing"

	"github.com/go-openapi/strfmt"
	"github.com/go-openapi/swag"
)

func TestRelayCreateValidate(t *testing.T) {
	tests := []struct {
		name    string
		in      RelayCreate
		wantErr bool
	}{
		{"gpio", RelayCreate{ID: swag.String("porch"), Kind: swag.String("gpio"), Pin: swag.Int64(17)}, false},
		{"test unknown start", RelayCreate{ID: swag.String("r1"), Kind: swag.String("test"), InitialState: "unknown"}, false},
		{"pin zero", RelayCreate{ID: swag.String("r1"), Kind: swag.String("gpio"), Pin: swag.Int64(0)}, false},
		{"missing id", RelayCreate{Kind: swag.String("test")}, true},
		{"missing kind", RelayCreate{ID: swag.String("r1")}, true},
		{"bad kind", RelayCreate{ID: swag.String("r1"), Kind: swag.String("zigbee")}, true},
		{"id with slash", RelayCreate{ID: swag.String("a/b"), Kind: swag.String("test")}, true},
		{"empty id", RelayCreate{ID: swag.String(""), Kind: swag.String("test")}, true},
		{"negative pin", RelayCreate{ID: swag.String("r1"), Kind: swag.String("gpio"), Pin: swag.Int64(-3)}, true},
		{"bad initial state", RelayCreate{ID: swag.String("r1"), Kind: swag.String("test"), InitialState: "dim"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.in.Validate(strfmt.Default)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCommandValidate(t *testing.T) {
	ok := Command{Type: swag.String("SET"), Args: []string{"on"}}
	if err := ok.Validate(strfmt.Default); err != nil {
		t.Errorf("Validate() error: %v", err)
	}

	missing := Command{Args: []string{"on"}}
	if err := missing.Validate(strfmt.Default); err == nil {
		t.Error("Validate() accepted a command without type")
	}

	empty := Command{Type: swag.String("")}
	if err := empty.Validate(strfmt.Default); err == nil {
		t.Error("Validate() accepted an empty type")
	}

	long := Command{Type: swag.String("SET"), Args: make([]string, 9)}
	if err := long.Validate(strfmt.Default); err == nil {
		t.Error("Validate() accepted 9 arguments")
	}
}

func TestRelayValidate(t *testing.T) {
	r := Relay{ID: swag.String("r1"), State: swag.String("ON"), Kind: "test"}
	if err := r.Validate(strfmt.Default); err != nil {
		t.Errorf("Validate() error: %v", err)
	}

	r.State = swag.String("DIM")
	if err := r.Validate(strfmt.Default); err == nil {
		t.Error("Validate() accepted state DIM")
	}
}
