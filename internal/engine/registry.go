package engine

import (
	"sort"

	sync "github.com/sasha-s/go-deadlock"

	"github.com/Tusespifump1o/keras/internal/tensor"
)

// FromConfigFunc reconstructs a layer from its config.
type FromConfigFunc func(cfg Config, ctx *DeserializeContext) (Layer, error)

// DeserializeContext provides the backend and any custom classes used while
// reconstructing layers.
type DeserializeContext struct {
	Backend tensor.Backend
	// CustomObjects take precedence over registered classes.
	CustomObjects map[string]FromConfigFunc
}

// NewDeserializeContext returns a context with no custom objects.
func NewDeserializeContext(backend tensor.Backend) *DeserializeContext {
	return &DeserializeContext{Backend: backend}
}

// WithCustomObject returns a copy of the context that also resolves
// className to fn.
func (c *DeserializeContext) WithCustomObject(className string, fn FromConfigFunc) *DeserializeContext {
	custom := make(map[string]FromConfigFunc, len(c.CustomObjects)+1)
	for k, v := range c.CustomObjects {
		custom[k] = v
	}
	custom[className] = fn
	return &DeserializeContext{Backend: c.Backend, CustomObjects: custom}
}

func (c *DeserializeContext) lookup(className string) (FromConfigFunc, bool) {
	if fn, ok := c.CustomObjects[className]; ok {
		return fn, true
	}
	return lookupClass(className)
}

var (
	registryMu sync.RWMutex
	registry   = map[string]FromConfigFunc{}
)

// Register makes a layer class available to deserialization. Registering a
// name twice replaces the previous entry.
func Register(className string, fn FromConfigFunc) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[className] = fn
}

// RegisteredClasses returns the registered class names, sorted.
func RegisteredClasses() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func lookupClass(className string) (FromConfigFunc, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	fn, ok := registry[className]
	return fn, ok
}

func init() {
	Register(inputLayerClass, inputLayerFromConfig)
	Register(modelClass, func(cfg Config, ctx *DeserializeContext) (Layer, error) {
		return ModelFromConfig(cfg, ctx)
	})
	Register(sequentialClass, func(cfg Config, ctx *DeserializeContext) (Layer, error) {
		return SequentialFromConfig(cfg, ctx)
	})
}
