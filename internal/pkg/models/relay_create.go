package models

import (
	"encoding/json"

	"github.com/go-openapi/errors"
	"github.com/go-openapi/strfmt"
	"github.com/go-openapi/swag"
	"github.com/go-openapi/validate"
)

// RelayCreate relay create
//
// swagger:model RelayCreate
type RelayCreate struct {

	// Drive the GPIO line low for ON
	ActiveLow bool `json:"activeLow,omitempty"`

	// Make every write of a test relay fail
	Fault bool `json:"fault,omitempty"`

	// The relay unique identifier
	// Required: true
	// Pattern: ^[A-Za-z0-9][A-Za-z0-9_.-]{0,63}$
	ID *string `json:"id"`

	// State the relay starts in
	// Enum: [OFF ON UNKNOWN off on unknown]
	InitialState string `json:"initialState,omitempty"`

	// Backend kind of the relay
	// Required: true
	// Enum: [gpio test]
	Kind *string `json:"kind"`

	// GPIO line number
	// Minimum: 0
	Pin *int64 `json:"pin,omitempty"`
}

var relayCreateInitialStatePropEnum []interface{}

func init() {
	var res []string
	if err := json.Unmarshal([]byte(`["OFF","ON","UNKNOWN","off","on","unknown"]`), &res); err != nil {
		panic(err)
	}
	for _, v := range res {
		relayCreateInitialStatePropEnum = append(relayCreateInitialStatePropEnum, v)
	}
}

// Validate validates this relay create
func (m *RelayCreate) Validate(formats strfmt.Registry) error {
	var res []error

	if err := m.validateID(formats); err != nil {
		res = append(res, err)
	}

	if err := m.validateInitialState(formats); err != nil {
		res = append(res, err)
	}

	if err := m.validateKind(formats); err != nil {
		res = append(res, err)
	}

	if err := m.validatePin(formats); err != nil {
		res = append(res, err)
	}

	if len(res) > 0 {
		return errors.CompositeValidationError(res...)
	}
	return nil
}

func (m *RelayCreate) validateID(formats strfmt.Registry) error {

	if err := validate.Required("id", "body", m.ID); err != nil {
		return err
	}

	if err := validate.Pattern("id", "body", *m.ID, `^[A-Za-z0-9][A-Za-z0-9_.-]{0,63}$`); err != nil {
		return err
	}

	return nil
}

func (m *RelayCreate) validateInitialState(formats strfmt.Registry) error {

	if swag.IsZero(m.InitialState) { // not required
		return nil
	}

	if err := validate.Enum("initialState", "body", m.InitialState, relayCreateInitialStatePropEnum); err != nil {
		return err
	}

	return nil
}

func (m *RelayCreate) validateKind(formats strfmt.Registry) error {

	if err := validate.Required("kind", "body", m.Kind); err != nil {
		return err
	}

	if err := validate.Enum("kind", "body", *m.Kind, relayKindPropEnum); err != nil {
		return err
	}

	return nil
}

func (m *RelayCreate) validatePin(formats strfmt.Registry) error {

	if swag.IsZero(m.Pin) { // not required
		return nil
	}

	if err := validate.MinimumInt("pin", "body", *m.Pin, 0, false); err != nil {
		return err
	}

	return nil
}

// MarshalBinary interface implementation
func (m *RelayCreate) MarshalBinary() ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	return swag.WriteJSON(m)
}

// UnmarshalBinary interface implementation
func (m *RelayCreate) UnmarshalBinary(b []byte) error {
	var res RelayCreate
	if err := swag.ReadJSON(b, &res); err != nil {
		return err
	}
	*m = res
	return nil
}
