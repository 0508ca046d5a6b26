package engine

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/Tusespifump1o/keras/internal/tensor"
)

// Version is written to serialized models as keras_version.
const Version = "2.0.8"

// Envelope is the top-level serialized form of a layer:
// {"class_name": ..., "config": {...}}. Models written with ToJSON or ToYAML
// also carry the format version and backend name.
type Envelope struct {
	ClassName    string `json:"class_name" yaml:"class_name"`
	Config       Config `json:"config" yaml:"config"`
	KerasVersion string `json:"keras_version,omitempty" yaml:"keras_version,omitempty"`
	Backend      string `json:"backend,omitempty" yaml:"backend,omitempty"`
}

// Network is a layer built out of other layers: a functional Model or a
// Sequential stack.
type Network interface {
	Layer
	Layers() []Layer
	Layer(name string) (Layer, error)
	Losses() []*tensor.Tensor
	Updates() []*tensor.Tensor
	ToJSON() ([]byte, error)
	ToYAML() ([]byte, error)
}

// Serialize returns the class name and config of a layer.
func Serialize(l Layer) Envelope {
	return Envelope{ClassName: l.ClassName(), Config: l.GetConfig()}
}

// Deserialize reconstructs a layer from its envelope using the registered
// classes and the custom objects of ctx.
func Deserialize(env Envelope, ctx *DeserializeContext) (Layer, error) {
	return deserializeLayer(env.ClassName, env.Config, ctx)
}

func envelope(n Network) Envelope {
	env := Serialize(n)
	env.KerasVersion = Version
	if b := n.Base().backend; b != nil {
		env.Backend = b.Name()
	}
	return env
}

// MarshalJSON serializes a network with its envelope, indented.
func MarshalJSON(n Network) ([]byte, error) {
	data, err := json.MarshalIndent(envelope(n), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerialization, err)
	}
	return data, nil
}

// MarshalYAML serializes a network with its envelope.
func MarshalYAML(n Network) ([]byte, error) {
	data, err := yaml.Marshal(envelope(n))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerialization, err)
	}
	return data, nil
}

// ToJSON returns the model as indented JSON.
func (m *Model) ToJSON() ([]byte, error) {
	return MarshalJSON(m)
}

// ToYAML returns the model as YAML.
func (m *Model) ToYAML() ([]byte, error) {
	return MarshalYAML(m)
}

// ModelFromJSON reconstructs a Model or Sequential from JSON.
func ModelFromJSON(data []byte, ctx *DeserializeContext) (Network, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerialization, err)
	}
	return networkFromEnvelope(env, ctx)
}

// ModelFromYAML reconstructs a Model or Sequential from YAML.
func ModelFromYAML(data []byte, ctx *DeserializeContext) (Network, error) {
	var env Envelope
	if err := yaml.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerialization, err)
	}
	return networkFromEnvelope(env, ctx)
}

// ReadModel decodes a model from r, in JSON or YAML depending on format
// ("json" or "yaml").
func ReadModel(r io.Reader, format string, ctx *DeserializeContext) (Network, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	switch format {
	case "json":
		return ModelFromJSON(data, ctx)
	case "yaml", "yml":
		return ModelFromYAML(data, ctx)
	default:
		return nil, fmt.Errorf("%w: unknown model format %q", ErrSerialization, format)
	}
}

func networkFromEnvelope(env Envelope, ctx *DeserializeContext) (Network, error) {
	if env.ClassName == "" {
		return nil, fmt.Errorf("%w: missing class_name", ErrSerialization)
	}
	l, err := Deserialize(env, ctx)
	if err != nil {
		return nil, err
	}
	n, ok := l.(Network)
	if !ok {
		return nil, fmt.Errorf("%w: %s is a layer, not a model", ErrSerialization, env.ClassName)
	}
	return n, nil
}
