package engine

import "github.com/Tusespifump1o/keras/internal/tensor"

// record is a loss or update tensor keyed by the inputs it depends on.
type record struct {
	key   string
	value *tensor.Tensor
}

// AddLoss registers a loss tensor. With no inputs the loss is unconditional.
func (b *BaseLayer) AddLoss(loss *tensor.Tensor, inputs ...*KerasTensor) {
	b.losses = append(b.losses, record{key: inputsKey(inputs), value: loss})
}

// AddUpdate registers an update op. With no inputs the update is
// unconditional.
func (b *BaseLayer) AddUpdate(update *tensor.Tensor, inputs ...*KerasTensor) {
	b.updates = append(b.updates, record{key: inputsKey(inputs), value: update})
}

// RegisterCallLoss adds a loss from within Call. It is recorded against the
// inputs of the call once the call completes.
func (b *BaseLayer) RegisterCallLoss(loss *tensor.Tensor) {
	b.pendingLosses = append(b.pendingLosses, loss)
}

// RegisterCallUpdate adds an update from within Call, keyed like
// RegisterCallLoss.
func (b *BaseLayer) RegisterCallUpdate(update *tensor.Tensor) {
	b.pendingUpdate = append(b.pendingUpdate, update)
}

// GetLossesFor returns the losses registered for exactly these inputs.
// With no inputs it returns the unconditional losses.
func (b *BaseLayer) GetLossesFor(inputs ...*KerasTensor) []*tensor.Tensor {
	return filterRecords(b.losses, inputsKey(inputs))
}

// GetUpdatesFor returns the updates registered for exactly these inputs.
func (b *BaseLayer) GetUpdatesFor(inputs ...*KerasTensor) []*tensor.Tensor {
	return filterRecords(b.updates, inputsKey(inputs))
}

// Losses returns every loss registered on the layer.
func (b *BaseLayer) Losses() []*tensor.Tensor {
	return recordValues(b.losses)
}

// Updates returns every update registered on the layer.
func (b *BaseLayer) Updates() []*tensor.Tensor {
	return recordValues(b.updates)
}

// flushCallRecords keys the losses and updates registered during a call.
func (b *BaseLayer) flushCallRecords(inputs []*KerasTensor) {
	key := inputsKey(inputs)
	for _, l := range b.pendingLosses {
		b.losses = append(b.losses, record{key: key, value: l})
	}
	for _, u := range b.pendingUpdate {
		b.updates = append(b.updates, record{key: key, value: u})
	}
	b.pendingLosses = nil
	b.pendingUpdate = nil
}

func (b *BaseLayer) dropCallRecords() {
	b.pendingLosses = nil
	b.pendingUpdate = nil
}

func filterRecords(records []record, key string) []*tensor.Tensor {
	var out []*tensor.Tensor
	for _, r := range records {
		if r.key == key {
			out = append(out, r.value)
		}
	}
	return out
}

func recordValues(records []record) []*tensor.Tensor {
	out := make([]*tensor.Tensor, len(records))
	for i, r := range records {
		out[i] = r.value
	}
	return out
}
