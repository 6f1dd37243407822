package manager

import (
	"github.com/pkg/errors"

	"github.com/jake-scott/raki/internal/pkg/relay"
)

// Config carries the kind specific parameters for creating a relay
type Config struct {
	// GPIO line number, required for gpio relays
	Pin *int `mapstructure:"pin" json:"pin,omitempty" yaml:"pin,omitempty"`

	// Drive the line low for ON (gpio only)
	ActiveLow bool `mapstructure:"active-low" json:"activeLow,omitempty" yaml:"active-low,omitempty"`

	// OFF when empty
	InitialState string `mapstructure:"initial-state" json:"initialState,omitempty" yaml:"initial-state,omitempty"`

	// Fail every write (test only)
	Fault bool `mapstructure:"fault" json:"fault,omitempty" yaml:"fault,omitempty"`
}

// PinConfig is a shorthand for a gpio relay config on the given line
func PinConfig(pin int) Config {
	return Config{Pin: &pin}
}

func (c Config) initialState(kind relay.Kind) (relay.State, error) {
	if c.InitialState == "" {
		return relay.Off, nil
	}

	ok, s := relay.ParseState(c.InitialState)
	if !ok {
		return 0, errors.Wrapf(ErrInvalidConfig, "unknown initial state [%s]", c.InitialState)
	}
	if !kind.CanStartIn(s) {
		return 0, errors.Wrapf(ErrInvalidConfig, "%s relays cannot start %s", kind.Name(), s.Name())
	}

	return s, nil
}

func (c Config) validate(kind relay.Kind) error {
	switch kind {
	case relay.KindGPIO:
		if c.Pin == nil {
			return errors.Wrap(ErrInvalidConfig, "gpio relays need a pin")
		}
		if *c.Pin < 0 {
			return errors.Wrapf(ErrInvalidConfig, "bad pin number %d", *c.Pin)
		}
		if c.Fault {
			return errors.Wrap(ErrInvalidConfig, "fault only applies to test relays")
		}
	case relay.KindTest:
		if c.Pin != nil {
			return errors.Wrap(ErrInvalidConfig, "pin only applies to gpio relays")
		}
		if c.ActiveLow {
			return errors.Wrap(ErrInvalidConfig, "active-low only applies to gpio relays")
		}
	default:
		return errors.Wrapf(ErrInvalidConfig, "unknown relay kind %s", kind)
	}

	return nil
}
