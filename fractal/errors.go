package fractal

import "github.com/pkg/errors"

var (
	// ErrInvalidConfiguration is returned by Activate for depth out of range
	// or missing mesh/material handles. Nothing stays allocated.
	ErrInvalidConfiguration = errors.New("invalid configuration")
	// ErrAllocationFailure is returned when a level does not fit into the node budget
	ErrAllocationFailure = errors.New("allocation failure")
	ErrNotActivated      = errors.New("fractal is not activated")
	ErrAlreadyActivated  = errors.New("fractal is already activated")
)
