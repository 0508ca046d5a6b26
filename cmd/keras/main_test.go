package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tusespifump1o/keras/internal/backend/symbolic"
	"github.com/Tusespifump1o/keras/internal/config"
	"github.com/Tusespifump1o/keras/internal/engine"
	"github.com/Tusespifump1o/keras/internal/layers"
)

func writeModel(t *testing.T) string {
	t.Helper()
	backend := symbolic.New()

	hidden, err := layers.NewDense(backend, layers.DenseConfig{Units: 8, Activation: "relu"},
		engine.WithInputShape(4), engine.WithName("hidden"))
	require.NoError(t, err)
	out, err := layers.NewDense(backend, layers.DenseConfig{Units: 2}, engine.WithName("out"))
	require.NoError(t, err)
	seq, err := engine.NewSequential([]engine.Layer{hidden, out}, engine.WithName("mlp"))
	require.NoError(t, err)

	data, err := seq.ToJSON()
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "mlp.json")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := run(context.Background(), args, &out)
	return out.String(), err
}

func TestRun_Version(t *testing.T) {
	out, err := runCmd(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, version)
	assert.Contains(t, out, engine.Version)
}

func TestRun_Classes(t *testing.T) {
	out, err := runCmd(t, "classes")
	require.NoError(t, err)
	assert.Contains(t, out, "Conv2D\n")
	assert.Contains(t, out, "Sequential\n")
}

func TestRun_Summary(t *testing.T) {
	t.Setenv(config.BackendEnv, "")
	out, err := runCmd(t, "summary", writeModel(t))
	require.NoError(t, err)
	assert.Contains(t, out, "hidden (Dense)")
	assert.Contains(t, out, "Total params: 58")
}

func TestRun_ConvertAndCheck(t *testing.T) {
	t.Setenv(config.BackendEnv, "")
	src := writeModel(t)
	dst := filepath.Join(t.TempDir(), "mlp.yaml")

	_, err := runCmd(t, "convert", "-to", "yaml", "-o", dst, src)
	require.NoError(t, err)
	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Contains(t, string(data), "class_name: Sequential")

	out, err := runCmd(t, "check", dst)
	require.NoError(t, err)
	assert.Equal(t, "ok: mlp has 2 layers and 58 params\n", out)

	out, err = runCmd(t, "convert", "-to", "json", dst)
	require.NoError(t, err)
	assert.Contains(t, out, `"class_name": "Sequential"`)
}

func TestRun_Errors(t *testing.T) {
	t.Setenv(config.BackendEnv, "")
	tests := map[string][]string{
		"no command":      nil,
		"unknown command": {"train"},
		"summary no file": {"summary"},
		"bad format":      {"convert", "-to", "xml", writeModel(t)},
		"bad flag":        {"check", "-nope", writeModel(t)},
	}
	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := runCmd(t, args...)
			assert.ErrorIs(t, err, errUsage)
		})
	}

	_, err := runCmd(t, "summary", filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, errUsage)
}
