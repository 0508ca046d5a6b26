// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package symbolic provides the backend that tracks shapes, dtypes and
// operation provenance without computing values.
package symbolic

import (
	internalsymbolic "github.com/Tusespifump1o/keras/internal/backend/symbolic"
	"github.com/Tusespifump1o/keras/tensor"
)

// Backend is the symbolic backend implementation.
type Backend = internalsymbolic.Backend

// Option configures a Backend.
type Option = internalsymbolic.Option

// Compile-time check that Backend implements tensor.Backend.
var _ tensor.Backend = (*Backend)(nil)

// Name is the backend identifier written into serialized models.
const Name = internalsymbolic.Name

// New creates a new symbolic backend.
//
// Example:
//
//	backend := symbolic.New(symbolic.WithFloatx(tensor.Float64))
func New(opts ...Option) *Backend {
	return internalsymbolic.New(opts...)
}

// WithFloatx sets the default floating point type.
func WithFloatx(dt tensor.DataType) Option {
	return internalsymbolic.WithFloatx(dt)
}

// WithEpsilon sets the fuzz factor.
func WithEpsilon(eps float64) Option {
	return internalsymbolic.WithEpsilon(eps)
}

// WithImageDataFormat sets the default image layout.
func WithImageDataFormat(format string) Option {
	return internalsymbolic.WithImageDataFormat(format)
}
