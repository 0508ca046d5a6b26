package engine

import "github.com/Tusespifump1o/keras/internal/tensor"

// GetInputAt returns the input tensors of node nodeIndex.
func (b *BaseLayer) GetInputAt(nodeIndex int) ([]*KerasTensor, error) {
	n, err := b.nodeAt(nodeIndex, "input")
	if err != nil {
		return nil, err
	}
	return n.InputTensors(), nil
}

// GetOutputAt returns the output tensors of node nodeIndex.
func (b *BaseLayer) GetOutputAt(nodeIndex int) ([]*KerasTensor, error) {
	n, err := b.nodeAt(nodeIndex, "output")
	if err != nil {
		return nil, err
	}
	return n.OutputTensors(), nil
}

// GetInputShapeAt returns the input shapes of node nodeIndex.
func (b *BaseLayer) GetInputShapeAt(nodeIndex int) ([]tensor.Shape, error) {
	n, err := b.nodeAt(nodeIndex, "input shape")
	if err != nil {
		return nil, err
	}
	return n.InputShapes(), nil
}

// GetOutputShapeAt returns the output shapes of node nodeIndex.
func (b *BaseLayer) GetOutputShapeAt(nodeIndex int) ([]tensor.Shape, error) {
	n, err := b.nodeAt(nodeIndex, "output shape")
	if err != nil {
		return nil, err
	}
	return n.OutputShapes(), nil
}

// GetInputMaskAt returns the input masks of node nodeIndex.
func (b *BaseLayer) GetInputMaskAt(nodeIndex int) ([]*tensor.Tensor, error) {
	n, err := b.nodeAt(nodeIndex, "input mask")
	if err != nil {
		return nil, err
	}
	return n.InputMasks(), nil
}

// GetOutputMaskAt returns the output masks of node nodeIndex.
func (b *BaseLayer) GetOutputMaskAt(nodeIndex int) ([]*tensor.Tensor, error) {
	n, err := b.nodeAt(nodeIndex, "output mask")
	if err != nil {
		return nil, err
	}
	return n.OutputMasks(), nil
}

// Input returns the input tensors of the only inbound node.
// It fails with ErrAmbiguous when the layer has been called more than once.
func (b *BaseLayer) Input() ([]*KerasTensor, error) {
	n, err := b.singleNode("input")
	if err != nil {
		return nil, err
	}
	return n.InputTensors(), nil
}

// Output returns the output tensors of the only inbound node.
func (b *BaseLayer) Output() ([]*KerasTensor, error) {
	n, err := b.singleNode("output")
	if err != nil {
		return nil, err
	}
	return n.OutputTensors(), nil
}

// InputShape returns the input shapes of the only inbound node.
func (b *BaseLayer) InputShape() ([]tensor.Shape, error) {
	n, err := b.singleNode("input shape")
	if err != nil {
		return nil, err
	}
	return n.InputShapes(), nil
}

// OutputShape returns the output shapes of the only inbound node.
func (b *BaseLayer) OutputShape() ([]tensor.Shape, error) {
	n, err := b.singleNode("output shape")
	if err != nil {
		return nil, err
	}
	return n.OutputShapes(), nil
}

// InputMask returns the input masks of the only inbound node.
func (b *BaseLayer) InputMask() ([]*tensor.Tensor, error) {
	n, err := b.singleNode("input mask")
	if err != nil {
		return nil, err
	}
	return n.InputMasks(), nil
}

// OutputMask returns the output masks of the only inbound node.
func (b *BaseLayer) OutputMask() ([]*tensor.Tensor, error) {
	n, err := b.singleNode("output mask")
	if err != nil {
		return nil, err
	}
	return n.OutputMasks(), nil
}
