package manager

import "github.com/pkg/errors"

var (
	// ErrDuplicateID is returned when creating a relay whose id is already live
	ErrDuplicateID = errors.New("duplicate relay id")

	// ErrNotFound is returned when no live relay has the requested id
	ErrNotFound = errors.New("relay not found")

	// ErrInvalidConfig is returned when creation parameters do not fit the kind
	ErrInvalidConfig = errors.New("invalid relay config")
)
