package engine

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/Tusespifump1o/keras/internal/tensor"
)

// Provenance identifies where a tensor came from.
//
// It is a tagged variant: the zero value is Origin (a raw backend tensor with
// no producing layer); otherwise it names the producing layer, the index of
// the node that produced the tensor and the output slot within that node.
type Provenance struct {
	layer       Layer
	nodeIndex   int
	tensorIndex int
}

// Origin is the provenance of tensors that were not produced by a layer.
var Origin = Provenance{}

// IsOrigin reports whether the tensor has no producing layer.
func (p Provenance) IsOrigin() bool {
	return p.layer == nil
}

// Layer returns the producing layer, or nil for Origin.
func (p Provenance) Layer() Layer {
	return p.layer
}

// NodeIndex returns the index of the producing node in the layer's
// inbound nodes.
func (p Provenance) NodeIndex() int {
	return p.nodeIndex
}

// TensorIndex returns the output slot within the producing node.
func (p Provenance) TensorIndex() int {
	return p.tensorIndex
}

// node returns the producing node, or nil for Origin.
func (p Provenance) node() *Node {
	if p.layer == nil {
		return nil
	}
	return p.layer.Base().inboundNodes[p.nodeIndex]
}

func (p Provenance) key() nodeKey {
	return nodeKey{layer: p.layer, index: p.nodeIndex}
}

// String implements fmt.Stringer.
func (p Provenance) String() string {
	if p.layer == nil {
		return "origin"
	}
	return fmt.Sprintf("%s[%d][%d]", p.layer.Base().Name(), p.nodeIndex, p.tensorIndex)
}

// KerasTensor is a backend tensor extended with graph provenance, a static
// shape and an optional mask.
//
// Provenance is assigned once, when the tensor is created, and never changes.
// Layers that return one of their inputs (or a tensor already produced by
// another layer) get a new KerasTensor sharing the same backend value.
type KerasTensor struct {
	id                uuid.UUID
	value             *tensor.Tensor
	history           Provenance
	shape             tensor.Shape
	mask              *tensor.Tensor
	usesLearningPhase bool
}

// NewKerasTensor wraps a backend tensor with Origin provenance.
func NewKerasTensor(value *tensor.Tensor) *KerasTensor {
	return &KerasTensor{
		id:    uuid.New(),
		value: value,
		shape: value.Shape(),
	}
}

func producedTensor(value *tensor.Tensor, history Provenance, shape tensor.Shape, mask *tensor.Tensor, ulp bool) *KerasTensor {
	return &KerasTensor{
		id:                uuid.New(),
		value:             value,
		history:           history,
		shape:             shape.Clone(),
		mask:              mask,
		usesLearningPhase: ulp,
	}
}

// ID returns the identity of this tensor handle.
func (t *KerasTensor) ID() uuid.UUID {
	return t.id
}

// Value returns the underlying backend tensor.
func (t *KerasTensor) Value() *tensor.Tensor {
	return t.value
}

// History returns the provenance of the tensor.
func (t *KerasTensor) History() Provenance {
	return t.history
}

// Shape returns the static shape inferred during graph construction.
func (t *KerasTensor) Shape() tensor.Shape {
	return t.shape.Clone()
}

// DType returns the data type of the backend value.
func (t *KerasTensor) DType() tensor.DataType {
	return t.value.DType()
}

// Mask returns the mask attached by the producing layer, or nil.
func (t *KerasTensor) Mask() *tensor.Tensor {
	return t.mask
}

// UsesLearningPhase reports whether the value depends on the training flag.
func (t *KerasTensor) UsesLearningPhase() bool {
	return t.usesLearningPhase
}

// String implements fmt.Stringer.
func (t *KerasTensor) String() string {
	return fmt.Sprintf("KerasTensor(shape=%s, dtype=%s, history=%s)", t.shape, t.DType(), t.history)
}

// inputsKey builds the record key for a set of input tensors. The empty key
// stands for records that do not depend on any input.
func inputsKey(inputs []*KerasTensor) string {
	if len(inputs) == 0 {
		return ""
	}
	ids := make([]string, len(inputs))
	for i, t := range inputs {
		ids[i] = t.id.String()
	}
	return strings.Join(ids, ",")
}

func tensorShapes(ts []*KerasTensor) []tensor.Shape {
	shapes := make([]tensor.Shape, len(ts))
	for i, t := range ts {
		shapes[i] = t.Shape()
	}
	return shapes
}

func tensorMasks(ts []*KerasTensor) []*tensor.Tensor {
	masks := make([]*tensor.Tensor, len(ts))
	for i, t := range ts {
		masks[i] = t.mask
	}
	return masks
}

func tensorValues(ts []*KerasTensor) []*tensor.Tensor {
	values := make([]*tensor.Tensor, len(ts))
	for i, t := range ts {
		values[i] = t.value
	}
	return values
}
