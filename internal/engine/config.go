package engine

import (
	"encoding/json"
	"fmt"
	"maps"
	"math"

	"github.com/Tusespifump1o/keras/internal/tensor"
)

// Config holds the constructor arguments of a layer, as produced by
// GetConfig and consumed by the registered FromConfigFunc.
//
// Values are JSON-compatible. Numbers may arrive as int, float64 or
// json.Number depending on the decoder, so use the typed getters.
type Config map[string]any

// Clone returns a shallow copy.
func (c Config) Clone() Config {
	return maps.Clone(c)
}

// Has reports whether key is set to a non-nil value.
func (c Config) Has(key string) bool {
	v, ok := c[key]
	return ok && v != nil
}

// GetString returns the string at key, or def if absent.
func (c Config) GetString(key, def string) (string, error) {
	v, ok := c[key]
	if !ok || v == nil {
		return def, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %q must be a string, got %T", ErrSerialization, key, v)
	}
	return s, nil
}

// GetBool returns the bool at key, or def if absent.
func (c Config) GetBool(key string, def bool) (bool, error) {
	v, ok := c[key]
	if !ok || v == nil {
		return def, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("%w: %q must be a bool, got %T", ErrSerialization, key, v)
	}
	return b, nil
}

// GetInt returns the integer at key, or def if absent.
func (c Config) GetInt(key string, def int) (int, error) {
	v, ok := c[key]
	if !ok || v == nil {
		return def, nil
	}
	n, err := toInt(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %w", ErrSerialization, key, err)
	}
	return n, nil
}

// GetFloat returns the number at key, or def if absent.
func (c Config) GetFloat(key string, def float64) (float64, error) {
	v, ok := c[key]
	if !ok || v == nil {
		return def, nil
	}
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: %q: %w", ErrSerialization, key, err)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("%w: %q must be a number, got %T", ErrSerialization, key, v)
	}
}

// GetInts returns the integer list at key, or nil if absent. A bare integer is
// accepted as a one-element list.
func (c Config) GetInts(key string) ([]int, error) {
	v, ok := c[key]
	if !ok || v == nil {
		return nil, nil
	}
	switch x := v.(type) {
	case []int:
		return append([]int(nil), x...), nil
	case tensor.Shape:
		return append([]int(nil), x...), nil
	case []any:
		out := make([]int, len(x))
		for i, e := range x {
			n, err := toInt(e)
			if err != nil {
				return nil, fmt.Errorf("%w: %q[%d]: %w", ErrSerialization, key, i, err)
			}
			out[i] = n
		}
		return out, nil
	default:
		n, err := toInt(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %q must be a list of integers, got %T", ErrSerialization, key, v)
		}
		return []int{n}, nil
	}
}

// GetShape returns the shape at key (nil entries are unknown dims), or nil if
// absent.
func (c Config) GetShape(key string) (tensor.Shape, error) {
	v, ok := c[key]
	if !ok || v == nil {
		return nil, nil
	}
	s, err := tensor.ShapeFromAny(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrSerialization, key, err)
	}
	return s, nil
}

// GetMap returns the nested config at key, or nil if absent.
func (c Config) GetMap(key string) (Config, error) {
	v, ok := c[key]
	if !ok || v == nil {
		return nil, nil
	}
	switch x := v.(type) {
	case Config:
		return x, nil
	case map[string]any:
		return Config(x), nil
	default:
		return nil, fmt.Errorf("%w: %q must be a mapping, got %T", ErrSerialization, key, v)
	}
}

func toInt(v any) (int, error) {
	switch x := v.(type) {
	case int:
		return x, nil
	case int64:
		return int(x), nil
	case int32:
		return int(x), nil
	case float64:
		if x != math.Trunc(x) {
			return 0, fmt.Errorf("expected an integer, got %v", x)
		}
		return int(x), nil
	case json.Number:
		n, err := x.Int64()
		if err != nil {
			return 0, err
		}
		return int(n), nil
	default:
		return 0, fmt.Errorf("expected an integer, got %T", v)
	}
}

// BaseOptions extracts the options shared by all layers (name, trainable,
// batch_input_shape, dtype) from a config.
func BaseOptions(cfg Config) ([]Option, error) {
	var opts []Option

	name, err := cfg.GetString("name", "")
	if err != nil {
		return nil, err
	}
	if name != "" {
		opts = append(opts, WithName(name))
	}

	trainable, err := cfg.GetBool("trainable", true)
	if err != nil {
		return nil, err
	}
	opts = append(opts, WithTrainable(trainable))

	shape, err := cfg.GetShape("batch_input_shape")
	if err != nil {
		return nil, err
	}
	if shape != nil {
		opts = append(opts, WithBatchInputShape(shape))
	}

	dtypeName, err := cfg.GetString("dtype", "")
	if err != nil {
		return nil, err
	}
	if dtypeName != "" {
		dt, err := tensor.ParseDataType(dtypeName)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrSerialization, err)
		}
		opts = append(opts, WithDType(dt))
	}
	return opts, nil
}
