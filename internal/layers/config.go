package layers

import (
	"github.com/Tusespifump1o/keras/internal/engine"
	"github.com/Tusespifump1o/keras/internal/tensor"
)

// reader reads typed fields from a layer config and keeps the first error.
type reader struct {
	cfg engine.Config
	err error
}

func (r *reader) int(key string, def int) int {
	if r.err != nil {
		return def
	}
	v, err := r.cfg.GetInt(key, def)
	r.err = err
	return v
}

func (r *reader) float(key string, def float64) float64 {
	if r.err != nil {
		return def
	}
	v, err := r.cfg.GetFloat(key, def)
	r.err = err
	return v
}

func (r *reader) bool(key string, def bool) bool {
	if r.err != nil {
		return def
	}
	v, err := r.cfg.GetBool(key, def)
	r.err = err
	return v
}

func (r *reader) string(key, def string) string {
	if r.err != nil {
		return def
	}
	v, err := r.cfg.GetString(key, def)
	r.err = err
	return v
}

func (r *reader) ints(key string) []int {
	if r.err != nil {
		return nil
	}
	v, err := r.cfg.GetInts(key)
	r.err = err
	return v
}

func (r *reader) shape(key string) tensor.Shape {
	if r.err != nil {
		return nil
	}
	v, err := r.cfg.GetShape(key)
	r.err = err
	return v
}

// decoder adapts a typed constructor to the class registry.
func decoder[L engine.Layer](decode func(r *reader, backend tensor.Backend, opts []engine.Option) (L, error)) engine.FromConfigFunc {
	return func(cfg engine.Config, ctx *engine.DeserializeContext) (engine.Layer, error) {
		opts, err := engine.BaseOptions(cfg)
		if err != nil {
			return nil, err
		}
		r := &reader{cfg: cfg}
		l, err := decode(r, ctx.Backend, opts)
		if err != nil {
			return nil, err
		}
		return l, nil
	}
}
