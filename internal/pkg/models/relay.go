package models

import (
	"encoding/json"

	"github.com/go-openapi/errors"
	"github.com/go-openapi/strfmt"
	"github.com/go-openapi/swag"
	"github.com/go-openapi/validate"
)

// Relay relay
//
// swagger:model Relay
type Relay struct {

	// The relay unique identifier
	// Required: true
	ID *string `json:"id"`

	// Backend kind of the relay
	// Enum: [gpio test]
	Kind string `json:"kind,omitempty"`

	// State of the relay
	// Required: true
	// Enum: [OFF ON UNKNOWN]
	State *string `json:"state"`
}

var relayKindPropEnum []interface{}
var relayStatePropEnum []interface{}

func init() {
	var kinds []string
	if err := json.Unmarshal([]byte(`["gpio","test"]`), &kinds); err != nil {
		panic(err)
	}
	for _, v := range kinds {
		relayKindPropEnum = append(relayKindPropEnum, v)
	}

	var states []string
	if err := json.Unmarshal([]byte(`["OFF","ON","UNKNOWN"]`), &states); err != nil {
		panic(err)
	}
	for _, v := range states {
		relayStatePropEnum = append(relayStatePropEnum, v)
	}
}

// Validate validates this relay
func (m *Relay) Validate(formats strfmt.Registry) error {
	var res []error

	if err := m.validateID(formats); err != nil {
		res = append(res, err)
	}

	if err := m.validateKind(formats); err != nil {
		res = append(res, err)
	}

	if err := m.validateState(formats); err != nil {
		res = append(res, err)
	}

	if len(res) > 0 {
		return errors.CompositeValidationError(res...)
	}
	return nil
}

func (m *Relay) validateID(formats strfmt.Registry) error {

	if err := validate.Required("id", "body", m.ID); err != nil {
		return err
	}

	return nil
}

func (m *Relay) validateKind(formats strfmt.Registry) error {

	if swag.IsZero(m.Kind) { // not required
		return nil
	}

	if err := validate.Enum("kind", "body", m.Kind, relayKindPropEnum); err != nil {
		return err
	}

	return nil
}

func (m *Relay) validateState(formats strfmt.Registry) error {

	if err := validate.Required("state", "body", m.State); err != nil {
		return err
	}

	if err := validate.Enum("state", "body", *m.State, relayStatePropEnum); err != nil {
		return err
	}

	return nil
}

// MarshalBinary interface implementation
func (m *Relay) MarshalBinary() ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	return swag.WriteJSON(m)
}

// UnmarshalBinary interface implementation
func (m *Relay) UnmarshalBinary(b []byte) error {
	var res Relay
	if err := swag.ReadJSON(b, &res); err != nil {
		return err
	}
	*m = res
	return nil
}
