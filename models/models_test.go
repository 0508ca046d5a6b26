// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package models_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tusespifump1o/keras/backend/symbolic"
	"github.com/Tusespifump1o/keras/layers"
	"github.com/Tusespifump1o/keras/models"
	"github.com/Tusespifump1o/keras/tensor"
)

func TestPublicAPI(t *testing.T) {
	backend := symbolic.New(symbolic.WithFloatx(tensor.Float64))

	x, err := models.Input(backend, models.WithInputShape(8), models.WithName("x"))
	require.NoError(t, err)
	dense, err := layers.NewDense(backend, layers.DenseConfig{Units: 4, Activation: "relu"})
	require.NoError(t, err)
	h, err := models.ApplyOne(dense, x)
	require.NoError(t, err)
	drop, err := layers.NewDropout(backend, 0.2)
	require.NoError(t, err)
	y, err := models.ApplyOne(drop, h)
	require.NoError(t, err)

	assert.Equal(t, tensor.Shape{tensor.Unknown, 4}, y.Shape())
	assert.Equal(t, tensor.Float64, y.DType())

	m, err := models.NewModel([]*models.KerasTensor{x}, []*models.KerasTensor{y}, models.WithName("api"))
	require.NoError(t, err)
	assert.Equal(t, 36, models.CountParams(m))
	assert.Equal(t, []*models.KerasTensor{x}, models.SourceInputs(y))

	data, err := m.ToJSON()
	require.NoError(t, err)
	clone, err := models.FromJSON(data, models.NewDeserializeContext(backend))
	require.NoError(t, err)
	assert.Len(t, clone.Layers(), 3)

	_, err = models.NewModel([]*models.KerasTensor{y}, []*models.KerasTensor{y})
	var gerr *models.GraphError
	require.True(t, errors.As(err, &gerr))
	assert.ErrorIs(t, err, models.ErrConnectivity)
}
