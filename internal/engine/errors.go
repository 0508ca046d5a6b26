package engine

import (
	"errors"
	"fmt"
)

// Error kinds. Use errors.Is to classify a failure.
var (
	ErrConfiguration      = errors.New("configuration error")
	ErrConnectivity       = errors.New("connectivity error")
	ErrAmbiguous          = errors.New("ambiguous accessor")
	ErrMaskingUnsupported = errors.New("masking not supported")
	ErrSerialization      = errors.New("serialization error")
	ErrIndexOutOfRange    = errors.New("node index out of range")
	ErrUnknownClass       = fmt.Errorf("%w: unknown layer class", ErrSerialization)
	ErrIncompatibleInput  = errors.New("incompatible input")
)

// GraphError provides detailed information about a graph construction,
// resolution or serialization failure.
type GraphError struct {
	Kind    error  // One of the Err* kinds above
	Layer   string // Layer involved, if any
	Details string // Additional details
}

// Error implements the error interface.
func (e *GraphError) Error() string {
	if e.Layer != "" {
		return fmt.Sprintf("%v: layer %q: %s", e.Kind, e.Layer, e.Details)
	}
	return fmt.Sprintf("%v: %s", e.Kind, e.Details)
}

// Unwrap returns the error kind.
func (e *GraphError) Unwrap() error {
	return e.Kind
}

func newError(kind error, layer string, format string, args ...any) error {
	return &GraphError{
		Kind:    kind,
		Layer:   layer,
		Details: fmt.Sprintf(format, args...),
	}
}
