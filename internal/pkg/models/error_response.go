package models

import (
	"github.com/go-openapi/strfmt"
	"github.com/go-openapi/swag"
)

// Error codes carried in ErrorResponse.Code
const (
	ErrorCodeBadRequest         string = "bad_request"
	ErrorCodeDuplicateID        string = "duplicate_id"
	ErrorCodeNotFound           string = "not_found"
	ErrorCodeInvalidConfig      string = "invalid_config"
	ErrorCodeMalformedCommand   string = "malformed_command"
	ErrorCodeUnsupportedCommand string = "unsupported_command"
	ErrorCodeHardwareFault      string = "hardware_fault"
	ErrorCodeInternal           string = "internal_error"
)

// ErrorResponse error response
//
// swagger:model ErrorResponse
type ErrorResponse struct {

	// Machine readable error code
	Code string `json:"code"`

	// Human readable detail
	Message string `json:"message"`

	// HTTP status code
	Status int64 `json:"status"`
}

// Validate validates this error response
func (m *ErrorResponse) Validate(formats strfmt.Registry) error {
	return nil
}

// MarshalBinary interface implementation
func (m *ErrorResponse) MarshalBinary() ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	return swag.WriteJSON(m)
}

// UnmarshalBinary interface implementation
func (m *ErrorResponse) UnmarshalBinary(b []byte) error {
	var res ErrorResponse
	if err := swag.ReadJSON(b, &res); err != nil {
		return err
	}
	*m = res
	return nil
}
