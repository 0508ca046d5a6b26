package engine

import (
	"fmt"

	"k8s.io/klog/v2"

	"github.com/Tusespifump1o/keras/internal/tensor"
)

// TrainingKwarg is the call argument that fixes the learning phase for one
// call. Outputs of a call given an explicit training value do not depend on
// the global learning phase.
const TrainingKwarg = "training"

// Apply calls layer on inputs and returns the output tensors.
//
// This is the only way a Node is created. Apply checks the layer's InputSpec,
// builds the layer on first use, propagates masks through ComputeMask,
// delegates to Call, infers static shapes with ComputeOutputShape and stamps
// output i with provenance (layer, new node index, i). Losses and updates the
// layer registered during Call are recorded against inputs.
//
// Inputs without provenance are accepted and record no inbound layer.
// On error no node is created.
func Apply(layer Layer, inputs []*KerasTensor, kwargs Kwargs) ([]*KerasTensor, error) {
	b := layer.Base()
	if len(inputs) == 0 {
		return nil, newError(ErrConfiguration, b.name, "layer called with no input tensors")
	}
	for i, x := range inputs {
		if x == nil {
			return nil, newError(ErrConnectivity, b.name, "input %d is not a tensor", i)
		}
	}

	if err := checkInputSpec(layer, inputs); err != nil {
		return nil, err
	}

	var err error
	inputShapes := tensorShapes(inputs)
	if !b.built {
		if err = layer.Build(inputShapes); err != nil {
			return nil, fmt.Errorf("build %s: %w", b.name, err)
		}
		b.built = true
	}

	var values, outMasks []*tensor.Tensor
	if mc, ok := layer.(maskedCaller); ok {
		values, outMasks, err = mc.callWithMasks(inputs, kwargs)
		if err != nil {
			b.dropCallRecords()
			return nil, err
		}
	} else {
		outMasks, err = layer.ComputeMask(inputs, tensorMasks(inputs))
		if err != nil {
			return nil, err
		}
		values, err = layer.Call(inputs, kwargs)
		if err != nil {
			b.dropCallRecords()
			return nil, err
		}
	}

	outShapes, err := layer.ComputeOutputShape(inputShapes)
	if err != nil {
		b.dropCallRecords()
		return nil, err
	}
	if len(outShapes) != len(values) {
		b.dropCallRecords()
		return nil, newError(ErrConfiguration, b.name,
			"call returned %d tensors but compute_output_shape returned %d shapes", len(values), len(outShapes))
	}
	if outMasks == nil {
		outMasks = make([]*tensor.Tensor, len(values))
	}
	if len(outMasks) != len(values) {
		b.dropCallRecords()
		return nil, newError(ErrConfiguration, b.name,
			"call returned %d tensors but compute_mask returned %d masks", len(values), len(outMasks))
	}

	ulp := b.usesLearningPhase
	for _, x := range inputs {
		ulp = ulp || x.usesLearningPhase
	}
	if kwargs.Has(TrainingKwarg) {
		ulp = false
	}

	nodeIndex := len(b.inboundNodes)
	outputs := make([]*KerasTensor, len(values))
	for i, v := range values {
		h := Provenance{layer: layer, nodeIndex: nodeIndex, tensorIndex: i}
		outputs[i] = producedTensor(v, h, outShapes[i], outMasks[i], ulp)
	}

	n := newNode(layer, inputs, outputs, kwargs, false)
	b.flushCallRecords(inputs)

	klog.V(4).InfoS("Created node", "layer", b.name, "node", n.index, "inbound", len(n.inbound), "outputs", len(outputs))
	return outputs, nil
}

// maskedCaller is implemented by layers whose output masks are a by-product
// of Call, such as models replaying their graph.
type maskedCaller interface {
	callWithMasks(inputs []*KerasTensor, kwargs Kwargs) (values, masks []*tensor.Tensor, err error)
}

// ApplyOne calls a single-input, single-output layer.
func ApplyOne(layer Layer, x *KerasTensor) (*KerasTensor, error) {
	out, err := Apply(layer, []*KerasTensor{x}, nil)
	if err != nil {
		return nil, err
	}
	if len(out) != 1 {
		return nil, newError(ErrAmbiguous, layer.Base().name, "layer returned %d outputs, expected 1", len(out))
	}
	return out[0], nil
}
