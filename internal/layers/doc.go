// Package layers provides the concrete layers of the engine.
//
// Every layer embeds *engine.BaseLayer, infers static output shapes and
// produces its outputs through the backend, so graphs built from these
// layers can be resolved, summarized and serialized without any numeric
// computation. All layers are registered in the engine's class registry and
// round-trip through their configs.
//
// Available layers:
//   - Core: Dense, Activation, Dropout, ActivityRegularization, Masking
//   - Embedding: Embedding (with mask_zero)
//   - Shape: Flatten, Reshape, RepeatVector
//   - Merge: Concatenate, Add, Subtract, Multiply, Average, Maximum, Minimum
//   - Convolution: Conv2D, MaxPooling2D
//   - Normalization: LayerNormalization
//
// Example:
//
//	backend := symbolic.New()
//	x, _ := engine.Input(backend, engine.WithInputShape(784))
//	dense, _ := layers.NewDense(backend, layers.DenseConfig{Units: 10, Activation: "softmax"})
//	y, _ := engine.ApplyOne(dense, x)
package layers
