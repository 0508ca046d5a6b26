package layers

import "github.com/Tusespifump1o/keras/internal/engine"

func init() {
	for name, fn := range map[string]engine.FromConfigFunc{
		"Dense":                  decodeDense,
		"Activation":             decodeActivation,
		"Dropout":                decodeDropout,
		"ActivityRegularization": decodeActivityRegularization,
		"Masking":                decodeMasking,
		"Embedding":              decodeEmbedding,
		"Flatten":                decodeFlatten,
		"Reshape":                decodeReshape,
		"RepeatVector":           decodeRepeatVector,
		"Concatenate":            decodeConcatenate,
		"Add":                    decodeMerge(NewAdd),
		"Subtract":               decodeMerge(NewSubtract),
		"Multiply":               decodeMerge(NewMultiply),
		"Average":                decodeMerge(NewAverage),
		"Maximum":                decodeMerge(NewMaximum),
		"Minimum":                decodeMerge(NewMinimum),
		"Conv2D":                 decodeConv2D,
		"MaxPooling2D":           decodeMaxPooling2D,
		"LayerNormalization":     decodeLayerNormalization,
	} {
		engine.Register(name, fn)
	}
}
