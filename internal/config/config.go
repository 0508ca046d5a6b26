// Package config loads the backend settings: default float type, fuzz
// factor, backend name and image data format.
//
// Settings are written in HCL. Expressions may read the process environment
// through the env variable:
//
//	floatx            = "float32"
//	epsilon           = 1e-7
//	backend           = "symbolic"
//	image_data_format = env.KERAS_IMAGE_FORMAT
//
// The KERAS_BACKEND environment variable overrides the backend attribute.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"k8s.io/klog/v2"

	"github.com/Tusespifump1o/keras/internal/backend/symbolic"
	"github.com/Tusespifump1o/keras/internal/tensor"
)

// BackendEnv overrides the configured backend name.
const BackendEnv = "KERAS_BACKEND"

// Settings are the backend settings.
type Settings struct {
	Floatx          string  `hcl:"floatx,optional"`
	Epsilon         float64 `hcl:"epsilon,optional"`
	Backend         string  `hcl:"backend,optional"`
	ImageDataFormat string  `hcl:"image_data_format,optional"`
}

// Default returns the settings used when no file is given.
func Default() *Settings {
	return &Settings{
		Floatx:          "float32",
		Epsilon:         symbolic.DefaultEpsilon,
		Backend:         symbolic.Name,
		ImageDataFormat: "channels_last",
	}
}

// Load reads settings from an HCL file. An empty path yields the defaults.
// The result is validated.
func Load(path string) (*Settings, error) {
	if path == "" {
		s := Default()
		s.applyEnv()
		return s, s.Validate()
	}
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse settings file %s: %s", path, diags.Error())
	}
	return decode(file, path)
}

// Parse reads settings from HCL source. filename is used in diagnostics.
func Parse(src []byte, filename string) (*Settings, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse settings %s: %s", filename, diags.Error())
	}
	return decode(file, filename)
}

func decode(file *hcl.File, filename string) (*Settings, error) {
	s := Default()
	diags := gohcl.DecodeBody(file.Body, evalContext(), s)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode settings %s: %s", filename, diags.Error())
	}
	s.fillDefaults()
	s.applyEnv()
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	klog.V(2).InfoS("Loaded settings", "path", filename, "floatx", s.Floatx, "epsilon", s.Epsilon,
		"backend", s.Backend, "image_data_format", s.ImageDataFormat)
	return s, nil
}

// evalContext exposes the environment as the env object.
func evalContext() *hcl.EvalContext {
	env := make(map[string]cty.Value)
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || !hclsyntax.ValidIdentifier(k) {
			continue
		}
		env[k] = cty.StringVal(v)
	}
	vars := map[string]cty.Value{
		"env": cty.EmptyObjectVal,
	}
	if len(env) > 0 {
		vars["env"] = cty.ObjectVal(env)
	}
	return &hcl.EvalContext{Variables: vars}
}

func (s *Settings) fillDefaults() {
	d := Default()
	if s.Floatx == "" {
		s.Floatx = d.Floatx
	}
	if s.Epsilon == 0 {
		s.Epsilon = d.Epsilon
	}
	if s.Backend == "" {
		s.Backend = d.Backend
	}
	if s.ImageDataFormat == "" {
		s.ImageDataFormat = d.ImageDataFormat
	}
}

func (s *Settings) applyEnv() {
	if b := os.Getenv(BackendEnv); b != "" {
		s.Backend = b
	}
}

// Validate checks every field.
func (s *Settings) Validate() error {
	switch s.Floatx {
	case "float16", "float32", "float64":
	default:
		return fmt.Errorf("unknown floatx %q, expected float16, float32 or float64", s.Floatx)
	}
	if s.Epsilon <= 0 {
		return fmt.Errorf("epsilon must be positive, got %v", s.Epsilon)
	}
	if s.Backend != symbolic.Name {
		return fmt.Errorf("unknown backend %q, only %q is available", s.Backend, symbolic.Name)
	}
	switch s.ImageDataFormat {
	case "channels_last", "channels_first":
	default:
		return fmt.Errorf("unknown image_data_format %q, expected channels_last or channels_first", s.ImageDataFormat)
	}
	return nil
}

// NewBackend creates the configured backend.
func (s *Settings) NewBackend() (tensor.Backend, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	floatx, err := tensor.ParseDataType(s.Floatx)
	if err != nil {
		return nil, err
	}
	return symbolic.New(
		symbolic.WithFloatx(floatx),
		symbolic.WithEpsilon(s.Epsilon),
		symbolic.WithImageDataFormat(s.ImageDataFormat),
	), nil
}
