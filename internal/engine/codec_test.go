package engine

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tusespifump1o/keras/internal/tensor"
)

// buildBranchyModel builds a two-input model with a shared layer, a
// multi-output layer and call kwargs.
func buildBranchyModel(t *testing.T, backend tensor.Backend) *Model {
	t.Helper()
	a := mustInput(t, backend, WithInputShape(8), WithName("a"))
	b := mustInput(t, backend, WithInputShape(8), WithName("b"))

	shared := newToyDense(t, backend, 8, WithName("shared"))
	split := newToySplit(t, backend, WithName("split"))
	add := newToyAdd(t, backend, WithName("add"))
	drop := newToyDropout(t, backend, WithName("drop"))

	ha := mustApply(t, shared, a)
	hb := mustApply(t, shared, b)
	parts, err := Apply(split, []*KerasTensor{hb}, nil)
	require.NoError(t, err)
	sum := mustApply(t, add, ha, parts[1])
	dropped, err := Apply(drop, []*KerasTensor{sum}, Kwargs{TrainingKwarg: false})
	require.NoError(t, err)

	m, err := NewModel([]*KerasTensor{a, b}, []*KerasTensor{dropped[0], parts[0]}, WithName("branchy"))
	require.NoError(t, err)
	return m
}

func TestModelConfigFormat(t *testing.T) {
	m := buildBranchyModel(t, newBackend())
	mc := m.modelConfig()

	assert.Equal(t, "branchy", mc.Name)
	names := make([]string, len(mc.Layers))
	for i, l := range mc.Layers {
		names[i] = l.Name
	}
	assert.Equal(t, []string{"a", "b", "shared", "split", "add", "drop"}, names)

	assert.Empty(t, mc.Layers[0].InboundNodes)
	assert.Equal(t, [][]NodeEdge{
		{{Layer: "a", NodeIndex: 0, TensorIndex: 0, Kwargs: Kwargs{}}},
		{{Layer: "b", NodeIndex: 0, TensorIndex: 0, Kwargs: Kwargs{}}},
	}, mc.Layers[2].InboundNodes)
	assert.Equal(t, [][]NodeEdge{{
		{Layer: "shared", NodeIndex: 0, TensorIndex: 0, Kwargs: Kwargs{}},
		{Layer: "split", NodeIndex: 0, TensorIndex: 1, Kwargs: Kwargs{}},
	}}, mc.Layers[4].InboundNodes)
	assert.Equal(t, Kwargs{TrainingKwarg: false}, mc.Layers[5].InboundNodes[0][0].Kwargs)

	assert.Equal(t, []TensorRefSpec{{"a", 0, 0}, {"b", 0, 0}}, mc.InputLayers)
	assert.Equal(t, []TensorRefSpec{{"drop", 0, 0}, {"split", 0, 0}}, mc.OutputLayers)

	data, err := json.Marshal(mc.Layers[4].InboundNodes)
	require.NoError(t, err)
	assert.JSONEq(t, `[[["shared", 0, 0, {}], ["split", 0, 1, {}]]]`, string(data))
}

func TestModelConfigRoundTrip(t *testing.T) {
	backend := newBackend()
	m := buildBranchyModel(t, backend)
	cfg := m.GetConfig()

	clone, err := ModelFromConfig(cfg, NewDeserializeContext(backend))
	require.NoError(t, err)

	if diff := cmp.Diff(cfg, clone.GetConfig()); diff != "" {
		t.Errorf("config mismatch after round trip (-want +got):\n%s", diff)
	}
	assert.Equal(t, layerNamesOf(m.Layers()), layerNamesOf(clone.Layers()))

	shared, err := clone.Layer("shared")
	require.NoError(t, err)
	assert.Len(t, shared.Base().InboundNodes(), 2)

	drop, err := clone.Layer("drop")
	require.NoError(t, err)
	assert.Equal(t, Kwargs{TrainingKwarg: false}, drop.Base().InboundNodes()[0].CallKwargs())

	// Re-serializing the clone is stable.
	again, err := ModelFromConfig(clone.GetConfig(), NewDeserializeContext(backend))
	require.NoError(t, err)
	if diff := cmp.Diff(cfg, again.GetConfig()); diff != "" {
		t.Errorf("config mismatch after second round trip (-want +got):\n%s", diff)
	}
}

func TestModelJSONAndYAMLRoundTrip(t *testing.T) {
	backend := newBackend()
	m := buildBranchyModel(t, backend)
	ctx := NewDeserializeContext(backend)

	data, err := m.ToJSON()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"class_name": "Model"`)
	assert.Contains(t, string(data), `"backend": "symbolic"`)
	assert.Contains(t, string(data), `null`)

	fromJSON, err := ModelFromJSON(data, ctx)
	require.NoError(t, err)
	if diff := cmp.Diff(m.GetConfig(), fromJSON.GetConfig()); diff != "" {
		t.Errorf("JSON round trip mismatch (-want +got):\n%s", diff)
	}

	yml, err := m.ToYAML()
	require.NoError(t, err)
	assert.Contains(t, string(yml), "class_name: Model")
	assert.Contains(t, string(yml), "[shared, 0, 0, {}]")

	fromYAML, err := ModelFromYAML(yml, ctx)
	require.NoError(t, err)
	if diff := cmp.Diff(m.GetConfig(), fromYAML.GetConfig()); diff != "" {
		t.Errorf("YAML round trip mismatch (-want +got):\n%s", diff)
	}

	read, err := ReadModel(strings.NewReader(string(yml)), "yaml", ctx)
	require.NoError(t, err)
	assert.Equal(t, "branchy", read.Base().Name())

	_, err = ReadModel(strings.NewReader(""), "toml", ctx)
	require.ErrorIs(t, err, ErrSerialization)
}

func TestSharedLayerReplayIsDeferred(t *testing.T) {
	backend := newBackend()
	a := mustInput(t, backend, WithInputShape(4), WithName("a"))
	d := newToyDense(t, backend, 4, WithName("d"))
	e := newToyDense(t, backend, 4, WithName("e"))

	h := mustApply(t, d, a)
	h2 := mustApply(t, e, h)
	h3 := mustApply(t, d, h2)

	m, err := NewModel([]*KerasTensor{a}, []*KerasTensor{h3}, WithName("loop"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "d", "e"}, layerNamesOf(m.Layers()))

	clone, err := ModelFromConfig(m.GetConfig(), NewDeserializeContext(backend))
	require.NoError(t, err)
	if diff := cmp.Diff(m.GetConfig(), clone.GetConfig()); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
	out := clone.OutputLayers()[0]
	assert.Equal(t, "d", out.Layer.Base().Name())
	assert.Equal(t, 1, out.NodeIndex)
}

func TestNodeIndicesRenumberedToModel(t *testing.T) {
	backend := newBackend()
	d := newToyDense(t, backend, 4, WithName("reused"))

	// Node 0 of d is created outside the model.
	mustApply(t, d, mustInput(t, backend, WithInputShape(4)))

	a := mustInput(t, backend, WithInputShape(4), WithName("a"))
	h := mustApply(t, d, a)
	require.Equal(t, 1, h.History().NodeIndex())
	y := mustApply(t, newToyDense(t, backend, 2, WithName("head")), h)

	m, err := NewModel([]*KerasTensor{a}, []*KerasTensor{y})
	require.NoError(t, err)
	mc := m.modelConfig()
	assert.Len(t, mc.Layers[1].InboundNodes, 1)
	assert.Equal(t, 0, mc.Layers[2].InboundNodes[0][0].NodeIndex)

	clone, err := ModelFromConfig(m.GetConfig(), NewDeserializeContext(backend))
	require.NoError(t, err)
	reused, err := clone.Layer("reused")
	require.NoError(t, err)
	assert.Len(t, reused.Base().InboundNodes(), 1)
}

func TestNestedModelRoundTrip(t *testing.T) {
	backend := newBackend()
	x := mustInput(t, backend, WithInputShape(8), WithName("x"))
	inner, err := NewModel([]*KerasTensor{x},
		[]*KerasTensor{mustApply(t, newToyDense(t, backend, 4, WithName("inner_dense")), x)},
		WithName("inner"))
	require.NoError(t, err)

	a := mustInput(t, backend, WithInputShape(8), WithName("outer_in"))
	y := mustApply(t, newToyDense(t, backend, 2, WithName("outer_dense")), mustApply(t, inner, a))
	outer, err := NewModel([]*KerasTensor{a}, []*KerasTensor{y}, WithName("outer"))
	require.NoError(t, err)

	mc := outer.modelConfig()
	assert.Equal(t, modelClass, mc.Layers[1].ClassName)
	assert.Equal(t, 1, mc.Layers[2].InboundNodes[0][0].NodeIndex, "a model's first call is node 1")

	data, err := outer.ToJSON()
	require.NoError(t, err)
	clone, err := ModelFromJSON(data, NewDeserializeContext(backend))
	require.NoError(t, err)
	if diff := cmp.Diff(outer.GetConfig(), clone.GetConfig()); diff != "" {
		t.Errorf("nested config mismatch (-want +got):\n%s", diff)
	}

	shapes, err := clone.ComputeOutputShape([]tensor.Shape{{3, 8}})
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{3, 2}, shapes[0])
}

func TestModelFromConfigErrors(t *testing.T) {
	backend := newBackend()
	ctx := NewDeserializeContext(backend)

	base := func() *ModelConfig {
		m := buildBranchyModel(t, backend)
		mc := m.modelConfig()
		return &mc
	}
	toConfig := func(mc *ModelConfig) Config {
		return Config{
			"name":          mc.Name,
			"layers":        mc.Layers,
			"input_layers":  mc.InputLayers,
			"output_layers": mc.OutputLayers,
		}
	}

	t.Run("unknown producer", func(t *testing.T) {
		mc := base()
		mc.Layers[4].InboundNodes[0][0].Layer = "ghost"
		_, err := ModelFromConfig(toConfig(mc), ctx)
		require.ErrorIs(t, err, ErrSerialization)
	})

	t.Run("node index never created", func(t *testing.T) {
		mc := base()
		mc.Layers[4].InboundNodes[0][0].NodeIndex = 5
		_, err := ModelFromConfig(toConfig(mc), ctx)
		require.ErrorIs(t, err, ErrSerialization)
	})

	t.Run("tensor index out of range", func(t *testing.T) {
		mc := base()
		mc.Layers[4].InboundNodes[0][1].TensorIndex = 7
		_, err := ModelFromConfig(toConfig(mc), ctx)
		require.ErrorIs(t, err, ErrSerialization)
	})

	t.Run("unknown class", func(t *testing.T) {
		mc := base()
		mc.Layers[3].ClassName = "Mystery"
		_, err := ModelFromConfig(toConfig(mc), ctx)
		require.ErrorIs(t, err, ErrUnknownClass)
		require.ErrorIs(t, err, ErrSerialization)
	})

	t.Run("unknown output layer", func(t *testing.T) {
		mc := base()
		mc.OutputLayers[0].Layer = "ghost"
		_, err := ModelFromConfig(toConfig(mc), ctx)
		require.ErrorIs(t, err, ErrSerialization)
	})

	t.Run("duplicate layer", func(t *testing.T) {
		mc := base()
		mc.Layers = append(mc.Layers, mc.Layers[2])
		_, err := ModelFromConfig(toConfig(mc), ctx)
		require.ErrorIs(t, err, ErrSerialization)
	})

	t.Run("malformed edge", func(t *testing.T) {
		_, err := ModelFromJSON([]byte(`{"class_name":"Model","config":{"name":"m","layers":[
			{"name":"a","class_name":"InputLayer","config":{"name":"a","batch_input_shape":[null,2],"dtype":"float32"},"inbound_nodes":[]},
			{"name":"d","class_name":"ToyDense","config":{"name":"d","units":2},"inbound_nodes":[[["a",0]]]}],
			"input_layers":[["a",0,0]],"output_layers":[["d",0,0]]}}`), ctx)
		require.ErrorIs(t, err, ErrSerialization)
	})

	t.Run("custom objects take precedence", func(t *testing.T) {
		called := false
		custom := ctx.WithCustomObject("ToyAdd", func(cfg Config, ctx *DeserializeContext) (Layer, error) {
			called = true
			fn, _ := lookupClass("ToyAdd")
			return fn(cfg, ctx)
		})
		_, err := ModelFromConfig(toConfig(base()), custom)
		require.NoError(t, err)
		assert.True(t, called)
	})
}

func TestSerializeEnvelope(t *testing.T) {
	backend := newBackend()
	d := newToyDense(t, backend, 3, WithName("env_dense"))
	env := Serialize(d)
	assert.Equal(t, "ToyDense", env.ClassName)
	assert.Equal(t, 3, env.Config["units"])

	l, err := Deserialize(env, NewDeserializeContext(backend))
	require.NoError(t, err)
	assert.Equal(t, "env_dense", l.Base().Name())

	_, err = ModelFromJSON([]byte(`{"class_name":"ToyDense","config":{"name":"x","units":1}}`), NewDeserializeContext(backend))
	require.ErrorIs(t, err, ErrSerialization)
}
