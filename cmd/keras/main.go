// Package main provides the keras CLI for inspecting and converting
// serialized layer graphs.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"k8s.io/klog/v2"

	"github.com/Tusespifump1o/keras/internal/config"
	"github.com/Tusespifump1o/keras/internal/engine"
	_ "github.com/Tusespifump1o/keras/internal/layers"
)

const version = "v0.1.0-dev"

const usage = `Usage: keras <command> [flags] [args]

Commands:
  version                          Show version
  classes                          List the registered layer classes
  summary [-config F] MODEL        Print a summary of a model file
  convert -to json|yaml [-o OUT] MODEL
                                   Convert a model file between JSON and YAML
  check [-config F] MODEL          Reload a model file and verify its config round-trips
`

var errUsage = errors.New("invalid usage")

func main() {
	ctx := context.Background()

	klog.InitFlags(nil)
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if err := run(ctx, flag.Args(), os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
		}
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: no command given", errUsage)
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "version":
		_, err := fmt.Fprintf(stdout, "keras %s (format %s)\n", version, engine.Version)
		return err
	case "classes":
		for _, name := range engine.RegisteredClasses() {
			if _, err := fmt.Fprintln(stdout, name); err != nil {
				return err
			}
		}
		return nil
	case "summary":
		return runSummary(ctx, rest, stdout)
	case "convert":
		return runConvert(ctx, rest, stdout)
	case "check":
		return runCheck(ctx, rest, stdout)
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
}

func runSummary(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("summary", flag.ContinueOnError)
	settingsPath := fs.String("config", "", "backend settings file (HCL)")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: summary takes one model file", errUsage)
	}
	n, err := loadModel(ctx, *settingsPath, fs.Arg(0))
	if err != nil {
		return err
	}
	return engine.Summary(stdout, n)
}

func runConvert(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("convert", flag.ContinueOnError)
	to := fs.String("to", "", "output format: json or yaml")
	out := fs.String("o", "", "output file (default stdout)")
	settingsPath := fs.String("config", "", "backend settings file (HCL)")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: convert takes one model file", errUsage)
	}

	n, err := loadModel(ctx, *settingsPath, fs.Arg(0))
	if err != nil {
		return err
	}

	var data []byte
	switch *to {
	case "json":
		data, err = n.ToJSON()
		data = append(data, '\n')
	case "yaml", "yml":
		data, err = n.ToYAML()
	default:
		return fmt.Errorf("%w: -to must be json or yaml, got %q", errUsage, *to)
	}
	if err != nil {
		return err
	}

	if *out == "" {
		_, err = stdout.Write(data)
		return err
	}
	if err := os.WriteFile(*out, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", *out, err)
	}
	klog.FromContext(ctx).Info("Converted model", "from", fs.Arg(0), "to", *out, "format", *to)
	return nil
}

func runCheck(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	settingsPath := fs.String("config", "", "backend settings file (HCL)")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: check takes one model file", errUsage)
	}

	settings, err := config.Load(*settingsPath)
	if err != nil {
		return err
	}
	backend, err := settings.NewBackend()
	if err != nil {
		return err
	}
	n, err := loadModelWith(ctx, engine.NewDeserializeContext(backend), fs.Arg(0))
	if err != nil {
		return err
	}

	first, err := n.ToJSON()
	if err != nil {
		return err
	}
	clone, err := engine.ModelFromJSON(first, engine.NewDeserializeContext(backend))
	if err != nil {
		return fmt.Errorf("failed to reload %s: %w", fs.Arg(0), err)
	}
	second, err := clone.ToJSON()
	if err != nil {
		return err
	}
	if !bytes.Equal(first, second) {
		return fmt.Errorf("%s: config changed after a round trip", fs.Arg(0))
	}

	_, err = fmt.Fprintf(stdout, "ok: %s has %d layers and %d params\n",
		n.Base().Name(), len(n.Layers()), engine.CountParams(n))
	return err
}

func loadModel(ctx context.Context, settingsPath, path string) (engine.Network, error) {
	settings, err := config.Load(settingsPath)
	if err != nil {
		return nil, err
	}
	backend, err := settings.NewBackend()
	if err != nil {
		return nil, err
	}
	return loadModelWith(ctx, engine.NewDeserializeContext(backend), path)
}

func loadModelWith(ctx context.Context, dctx *engine.DeserializeContext, path string) (engine.Network, error) {
	log := klog.FromContext(ctx)

	format, err := formatOf(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	n, err := engine.ReadModel(f, format, dctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	log.V(2).Info("Loaded model", "path", path, "name", n.Base().Name(), "layers", len(n.Layers()))
	return n, nil
}

// formatOf picks the model format from the file extension, falling back to
// sniffing the first byte for JSON.
func formatOf(path string) (string, error) {
	switch ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")); ext {
	case "json", "yaml", "yml":
		return ext, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if json.Valid(data) {
		return "json", nil
	}
	return "yaml", nil
}
