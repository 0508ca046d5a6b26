// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the public tensor types of the layer-graph engine:
// the opaque backend tensor handle, static shapes, data types and the
// backend contract.
//
// Example:
//
//	backend := symbolic.New()
//	x := backend.Placeholder(tensor.Shape{tensor.Unknown, 784}, tensor.Float32, "x")
//	fmt.Println(x.Shape()) // (None, 784)
package tensor

import (
	"github.com/Tusespifump1o/keras/internal/tensor"
)

// Tensor is an opaque backend tensor with identity, static shape and dtype.
type Tensor = tensor.Tensor

// Backend is the set of tensor operations layers consume.
type Backend = tensor.Backend

// Shape represents the static dimensions of a tensor.
// Unknown dimensions are rendered as None and serialized as null.
type Shape = tensor.Shape

// Unknown marks a dimension not known until run time.
const Unknown = tensor.Unknown

// DataType represents the data type of a tensor.
type DataType = tensor.DataType

// Data type constants.
const (
	Float32 DataType = tensor.Float32
	Float64 DataType = tensor.Float64
	Float16 DataType = tensor.Float16
	Int32   DataType = tensor.Int32
	Int64   DataType = tensor.Int64
	Uint8   DataType = tensor.Uint8
	Bool    DataType = tensor.Bool
)

// NewShape creates a shape from the given dimensions.
func NewShape(dims ...int) Shape {
	return tensor.NewShape(dims...)
}

// ParseDataType parses a data type name such as "float32".
func ParseDataType(name string) (DataType, error) {
	return tensor.ParseDataType(name)
}

// BroadcastShapes returns the shape two shapes broadcast to.
func BroadcastShapes(a, b Shape) (Shape, error) {
	return tensor.BroadcastShapes(a, b)
}
