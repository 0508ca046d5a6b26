package engine

import (
	"fmt"

	"github.com/Tusespifump1o/keras/internal/tensor"
)

// Layer is the capability interface every unit of the graph implements.
//
// Concrete layers embed *BaseLayer, which provides the node bookkeeping and
// default implementations of Build, ComputeOutputShape, ComputeMask,
// GetConfig and the weight accessors. They must implement ClassName and Call.
//
// Layers are never invoked directly: use Apply, which runs the call
// protocol and records a Node.
type Layer interface {
	// Base returns the shared bookkeeping state.
	Base() *BaseLayer

	// ClassName identifies the layer type in serialized configs.
	ClassName() string

	// Build creates weights for the given input shapes. Called once, lazily,
	// before the first Call.
	Build(inputShapes []tensor.Shape) error

	// Call computes the output values.
	Call(inputs []*KerasTensor, kwargs Kwargs) ([]*tensor.Tensor, error)

	// ComputeOutputShape infers the output shapes from the input shapes.
	ComputeOutputShape(inputShapes []tensor.Shape) ([]tensor.Shape, error)

	// ComputeMask propagates the input masks. A nil result means no masks.
	ComputeMask(inputs []*KerasTensor, masks []*tensor.Tensor) ([]*tensor.Tensor, error)

	// GetConfig returns the constructor arguments of the layer.
	GetConfig() Config

	// TrainableWeights returns the weights updated by training.
	TrainableWeights() []*Weight

	// NonTrainableWeights returns the weights not updated by training.
	NonTrainableWeights() []*Weight
}

// Weights returns the trainable followed by the non-trainable weights.
func Weights(l Layer) []*Weight {
	return append(l.TrainableWeights(), l.NonTrainableWeights()...)
}

// CountParams returns the total number of scalars in the layer's weights.
func CountParams(l Layer) int {
	total := 0
	for _, w := range Weights(l) {
		total += w.Tensor().Shape().NumElements()
	}
	return total
}

// Option configures the common state of a layer.
type Option func(*settings)

type settings struct {
	name            string
	trainable       bool
	dtype           *tensor.DataType
	inputShape      tensor.Shape
	batchInputShape tensor.Shape
	batchSize       int

	// InputLayer only.
	inputTensor *KerasTensor
	sparse      bool
}

func newSettings(opts []Option) (settings, error) {
	s := settings{trainable: true}
	for _, opt := range opts {
		opt(&s)
	}
	if s.inputShape != nil && s.batchInputShape != nil {
		return s, newError(ErrConfiguration, s.name, "only provide the input_shape OR batch_input_shape argument, not both")
	}
	if s.batchSize != 0 && s.batchInputShape != nil {
		return s, newError(ErrConfiguration, s.name, "only provide the batch_size OR batch_input_shape argument, not both")
	}
	return s, nil
}

// WithName sets the layer name. Names must be unique within a model.
func WithName(name string) Option {
	return func(s *settings) {
		s.name = name
	}
}

// WithTrainable sets whether the layer's weights are trainable.
func WithTrainable(trainable bool) Option {
	return func(s *settings) {
		s.trainable = trainable
	}
}

// WithDType sets the layer dtype (defaults to the backend floatx).
func WithDType(dt tensor.DataType) Option {
	return func(s *settings) {
		s.dtype = &dt
	}
}

// WithInputShape declares the per-sample input shape for a first layer.
func WithInputShape(dims ...int) Option {
	return func(s *settings) {
		s.inputShape = tensor.NewShape(dims...)
	}
}

// WithBatchInputShape declares the full input shape, batch included.
func WithBatchInputShape(shape tensor.Shape) Option {
	return func(s *settings) {
		s.batchInputShape = shape.Clone()
	}
}

// WithBatchSize fixes the batch dimension used with WithInputShape.
func WithBatchSize(n int) Option {
	return func(s *settings) {
		s.batchSize = n
	}
}

// BaseLayer holds the state shared by all layers: identity, nodes, weights and
// loss/update records.
type BaseLayer struct {
	className string
	name      string
	trainable bool
	built     bool
	dtype     tensor.DataType
	backend   tensor.Backend

	batchInputShape tensor.Shape

	supportsMasking   bool
	usesLearningPhase bool
	inputSpec         []InputSpec

	// reservedNodes is the number of nodes a freshly deserialized instance
	// already owns (a Model owns node 0).
	reservedNodes int

	inboundNodes  []*Node
	outboundNodes []*Node

	trainableWeights    []*Weight
	nonTrainableWeights []*Weight

	losses        []record
	updates       []record
	pendingLosses []*tensor.Tensor
	pendingUpdate []*tensor.Tensor
}

// NewBaseLayer creates the shared layer state.
//
// className is used to derive the default name (e.g. "Dense" -> "dense_1").
// Combining WithInputShape with WithBatchInputShape, or a batch size with a
// batch input shape, is a configuration error.
func NewBaseLayer(className string, backend tensor.Backend, opts ...Option) (*BaseLayer, error) {
	s, err := newSettings(opts)
	if err != nil {
		return nil, err
	}
	return newBase(className, backend, s), nil
}

func newBase(className string, backend tensor.Backend, s settings) *BaseLayer {
	b := &BaseLayer{
		className: className,
		name:      s.name,
		trainable: s.trainable,
		backend:   backend,
	}
	if b.name == "" {
		prefix := snakeCase(className)
		b.name = fmt.Sprintf("%s_%d", prefix, GetUID(prefix))
	}

	switch {
	case s.dtype != nil:
		b.dtype = *s.dtype
	case backend != nil:
		b.dtype = backend.Floatx()
	default:
		b.dtype = tensor.Float32
	}

	switch {
	case s.batchInputShape != nil:
		b.batchInputShape = s.batchInputShape
	case s.inputShape != nil:
		batch := tensor.Unknown
		if s.batchSize != 0 {
			batch = s.batchSize
		}
		b.batchInputShape = s.inputShape.WithBatch(batch)
	}
	return b
}

// Base returns the receiver so that embedding types satisfy Layer.
func (b *BaseLayer) Base() *BaseLayer {
	return b
}

// Name returns the layer name.
func (b *BaseLayer) Name() string {
	return b.name
}

// Trainable reports whether the weights are trainable.
func (b *BaseLayer) Trainable() bool {
	return b.trainable
}

// SetTrainable toggles trainability.
func (b *BaseLayer) SetTrainable(trainable bool) {
	b.trainable = trainable
}

// Built reports whether Build has run.
func (b *BaseLayer) Built() bool {
	return b.built
}

// SetBuilt marks the layer as built. Layers with no weights may call this
// from their constructor.
func (b *BaseLayer) SetBuilt(built bool) {
	b.built = built
}

// DType returns the layer dtype.
func (b *BaseLayer) DType() tensor.DataType {
	return b.dtype
}

// Backend returns the backend used to create weights and outputs.
func (b *BaseLayer) Backend() tensor.Backend {
	return b.backend
}

// BatchInputShape returns the declared input shape (nil if none).
func (b *BaseLayer) BatchInputShape() tensor.Shape {
	return b.batchInputShape.Clone()
}

// SupportsMasking reports whether the default ComputeMask accepts masks.
func (b *BaseLayer) SupportsMasking() bool {
	return b.supportsMasking
}

// SetSupportsMasking declares mask support.
func (b *BaseLayer) SetSupportsMasking(ok bool) {
	b.supportsMasking = ok
}

// UsesLearningPhase reports whether outputs depend on the training flag.
func (b *BaseLayer) UsesLearningPhase() bool {
	return b.usesLearningPhase
}

// SetUsesLearningPhase declares dependence on the training flag.
func (b *BaseLayer) SetUsesLearningPhase(ok bool) {
	b.usesLearningPhase = ok
}

// InputSpec returns the declared input constraints.
func (b *BaseLayer) InputSpec() []InputSpec {
	return append([]InputSpec(nil), b.inputSpec...)
}

// SetInputSpec declares one constraint per input.
func (b *BaseLayer) SetInputSpec(specs ...InputSpec) {
	b.inputSpec = specs
}

// InboundNodes returns the nodes created by calling this layer.
func (b *BaseLayer) InboundNodes() []*Node {
	return append([]*Node(nil), b.inboundNodes...)
}

// OutboundNodes returns the nodes of other layers that consumed this
// layer's outputs.
func (b *BaseLayer) OutboundNodes() []*Node {
	return append([]*Node(nil), b.outboundNodes...)
}

// Build is the default no-op build.
func (b *BaseLayer) Build(_ []tensor.Shape) error {
	return nil
}

// ComputeOutputShape returns the input shapes unchanged.
func (b *BaseLayer) ComputeOutputShape(inputShapes []tensor.Shape) ([]tensor.Shape, error) {
	return cloneShapes(inputShapes), nil
}

// ComputeMask passes masks through for layers that support masking and
// rejects non-nil masks otherwise.
func (b *BaseLayer) ComputeMask(_ []*KerasTensor, masks []*tensor.Tensor) ([]*tensor.Tensor, error) {
	if !b.supportsMasking {
		for _, m := range masks {
			if m != nil {
				return nil, newError(ErrMaskingUnsupported, b.name,
					"layer does not support masking, but was passed an input mask")
			}
		}
		return nil, nil
	}
	if allNil(masks) {
		return nil, nil
	}
	return masks, nil
}

// GetConfig returns the common config fields.
func (b *BaseLayer) GetConfig() Config {
	cfg := Config{
		"name":      b.name,
		"trainable": b.trainable,
	}
	if b.batchInputShape != nil {
		cfg["batch_input_shape"] = b.batchInputShape.Clone()
		cfg["dtype"] = b.dtype.String()
	}
	return cfg
}

// TrainableWeights returns the trainable weights, or none if the layer is
// frozen.
func (b *BaseLayer) TrainableWeights() []*Weight {
	if !b.trainable {
		return nil
	}
	return append([]*Weight(nil), b.trainableWeights...)
}

// NonTrainableWeights returns the non-trainable weights, or all weights if
// the layer is frozen.
func (b *BaseLayer) NonTrainableWeights() []*Weight {
	if !b.trainable {
		out := append([]*Weight(nil), b.trainableWeights...)
		return append(out, b.nonTrainableWeights...)
	}
	return append([]*Weight(nil), b.nonTrainableWeights...)
}

// AddWeight creates a weight variable owned by the layer.
func (b *BaseLayer) AddWeight(name string, shape tensor.Shape, trainable bool) *Weight {
	if b.backend == nil {
		panic(fmt.Sprintf("layer %q: AddWeight needs a backend", b.name))
	}
	v := b.backend.Variable(shape, b.dtype, b.name+"/"+name)
	w := NewWeight(name, v, trainable)
	if trainable {
		b.trainableWeights = append(b.trainableWeights, w)
	} else {
		b.nonTrainableWeights = append(b.nonTrainableWeights, w)
	}
	return w
}

// nodeAt returns inbound node i or an index error.
func (b *BaseLayer) nodeAt(i int, attr string) (*Node, error) {
	if i < 0 || i >= len(b.inboundNodes) {
		return nil, newError(ErrIndexOutOfRange, b.name,
			"asked to get %s at node %d, but the layer has only %d inbound nodes", attr, i, len(b.inboundNodes))
	}
	return b.inboundNodes[i], nil
}

// singleNode returns the only inbound node or an ambiguity error.
func (b *BaseLayer) singleNode(attr string) (*Node, error) {
	switch len(b.inboundNodes) {
	case 0:
		return nil, newError(ErrIndexOutOfRange, b.name, "layer is not connected, no %s to return", attr)
	case 1:
		return b.inboundNodes[0], nil
	default:
		return nil, newError(ErrAmbiguous, b.name,
			"layer has multiple inbound nodes, hence the notion of \"layer %s\" is ill-defined; use Get%sAt(nodeIndex) instead",
			attr, exportedAttr(attr))
	}
}

func exportedAttr(attr string) string {
	switch attr {
	case "input":
		return "Input"
	case "output":
		return "Output"
	case "input shape":
		return "InputShape"
	case "output shape":
		return "OutputShape"
	case "input mask":
		return "InputMask"
	case "output mask":
		return "OutputMask"
	default:
		return attr
	}
}

func allNil(masks []*tensor.Tensor) bool {
	for _, m := range masks {
		if m != nil {
			return false
		}
	}
	return true
}
