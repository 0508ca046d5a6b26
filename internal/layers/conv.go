package layers

import (
	"fmt"

	"github.com/Tusespifump1o/keras/internal/engine"
	"github.com/Tusespifump1o/keras/internal/tensor"
)

// Image data formats.
const (
	ChannelsLast  = "channels_last"
	ChannelsFirst = "channels_first"
)

// Padding modes.
const (
	PaddingValid = "valid"
	PaddingSame  = "same"
)

// imageFormatter is implemented by backends with a default image layout.
type imageFormatter interface {
	ImageDataFormat() string
}

func resolveDataFormat(backend tensor.Backend, format string) (string, error) {
	if format == "" {
		format = ChannelsLast
		if f, ok := backend.(imageFormatter); ok && f.ImageDataFormat() != "" {
			format = f.ImageDataFormat()
		}
	}
	if format != ChannelsLast && format != ChannelsFirst {
		return "", fmt.Errorf("%w: data_format must be %q or %q, got %q",
			engine.ErrConfiguration, ChannelsLast, ChannelsFirst, format)
	}
	return format, nil
}

func checkPadding(padding string) (string, error) {
	switch padding {
	case "":
		return PaddingValid, nil
	case PaddingValid, PaddingSame:
		return padding, nil
	default:
		return "", fmt.Errorf("%w: padding must be %q or %q, got %q", engine.ErrConfiguration, PaddingValid, PaddingSame, padding)
	}
}

// pairOr replaces zero entries with def and rejects negative ones.
func pairOr(name string, p [2]int, def int) ([2]int, error) {
	for i := range p {
		if p[i] == 0 {
			p[i] = def
		}
		if p[i] < 0 {
			return p, fmt.Errorf("%w: %s must be positive, got %v", engine.ErrConfiguration, name, p)
		}
	}
	return p, nil
}

// convOutputLength computes the output length of a convolution or pooling
// window over one spatial axis. A window larger than a known input yields 0,
// never a negative length that could read as Unknown.
func convOutputLength(length, filter int, padding string, stride, dilation int) int {
	if length == tensor.Unknown {
		return tensor.Unknown
	}
	dilated := filter + (filter-1)*(dilation-1)
	out := length
	if padding == PaddingValid {
		out = length - dilated + 1
	}
	if out <= 0 {
		return 0
	}
	return (out + stride - 1) / stride
}

func checkSpatial(name string, in, out tensor.Shape) error {
	for _, dim := range out[1:] {
		if dim != tensor.Unknown && dim <= 0 {
			return fmt.Errorf("%w: layer %q: negative dimension size from input %s", engine.ErrConfiguration, name, in)
		}
	}
	return nil
}

// spatialShape maps the two spatial axes of a 4D shape through fn.
func spatialShape(shape tensor.Shape, format string, channels int, fn func(axis, length int) int) tensor.Shape {
	if format == ChannelsFirst {
		return tensor.Shape{shape[0], channels, fn(0, shape[2]), fn(1, shape[3])}
	}
	return tensor.Shape{shape[0], fn(0, shape[1]), fn(1, shape[2]), channels}
}

func channelAxis(format string) int {
	if format == ChannelsFirst {
		return 1
	}
	return -1
}

// Conv2DConfig holds the arguments of a Conv2D layer. Zero strides and
// dilation rates mean 1; an empty DataFormat uses the backend default.
type Conv2DConfig struct {
	Filters      int
	KernelSize   [2]int
	Strides      [2]int
	Padding      string
	DataFormat   string
	DilationRate [2]int
	Activation   string
	NoBias       bool
}

// Conv2D implements a 2D convolution over images.
//
// The kernel has shape [kernel_h, kernel_w, in_channels, filters].
//
// Output spatial size per axis:
//
//	valid: ceil((in - dilated_kernel + 1) / stride)
//	same:  ceil(in / stride)
type Conv2D struct {
	*engine.BaseLayer
	cfg Conv2DConfig

	kernel *engine.Weight
	bias   *engine.Weight
}

// NewConv2D creates a Conv2D layer.
func NewConv2D(backend tensor.Backend, cfg Conv2DConfig, opts ...engine.Option) (*Conv2D, error) {
	if cfg.Filters <= 0 {
		return nil, fmt.Errorf("%w: conv2d filters must be positive, got %d", engine.ErrConfiguration, cfg.Filters)
	}
	if cfg.KernelSize[0] <= 0 || cfg.KernelSize[1] <= 0 {
		return nil, fmt.Errorf("%w: conv2d kernel_size must be positive, got %v", engine.ErrConfiguration, cfg.KernelSize)
	}
	var err error
	if cfg.Strides, err = pairOr("strides", cfg.Strides, 1); err != nil {
		return nil, err
	}
	if cfg.DilationRate, err = pairOr("dilation_rate", cfg.DilationRate, 1); err != nil {
		return nil, err
	}
	if cfg.Padding, err = checkPadding(cfg.Padding); err != nil {
		return nil, err
	}
	if cfg.DataFormat, err = resolveDataFormat(backend, cfg.DataFormat); err != nil {
		return nil, err
	}
	if err = checkActivation(orLinear(cfg.Activation)); err != nil {
		return nil, err
	}

	b, err := engine.NewBaseLayer("Conv2D", backend, opts...)
	if err != nil {
		return nil, err
	}
	b.SetInputSpec(engine.InputSpec{NDim: 4})
	return &Conv2D{BaseLayer: b, cfg: cfg}, nil
}

// ClassName implements engine.Layer.
func (c *Conv2D) ClassName() string { return "Conv2D" }

// Kernel returns the convolution kernel (nil before build).
func (c *Conv2D) Kernel() *engine.Weight { return c.kernel }

// Build creates the kernel and bias.
func (c *Conv2D) Build(inputShapes []tensor.Shape) error {
	shape, err := single(c.Name(), inputShapes)
	if err != nil {
		return err
	}
	axis := channelAxis(c.cfg.DataFormat)
	in := shape[(axis+shape.Rank())%shape.Rank()]
	if in == tensor.Unknown {
		return fmt.Errorf("%w: layer %q: the channel dimension of the inputs should be defined, got %s",
			engine.ErrConfiguration, c.Name(), shape)
	}
	k := c.cfg.KernelSize
	c.kernel = c.AddWeight("kernel", tensor.NewShape(k[0], k[1], in, c.cfg.Filters), true)
	if !c.cfg.NoBias {
		c.bias = c.AddWeight("bias", tensor.NewShape(c.cfg.Filters), true)
	}
	c.SetInputSpec(engine.InputSpec{NDim: 4, Axes: map[int]int{axis: in}})
	return nil
}

// ComputeOutputShape implements engine.Layer.
func (c *Conv2D) ComputeOutputShape(inputShapes []tensor.Shape) ([]tensor.Shape, error) {
	shape, err := single(c.Name(), inputShapes)
	if err != nil {
		return nil, err
	}
	if shape.Rank() != 4 {
		return nil, fmt.Errorf("%w: layer %q expects rank 4 inputs, got %s", engine.ErrConfiguration, c.Name(), shape)
	}
	out := spatialShape(shape, c.cfg.DataFormat, c.cfg.Filters, func(axis, length int) int {
		return convOutputLength(length, c.cfg.KernelSize[axis], c.cfg.Padding, c.cfg.Strides[axis], c.cfg.DilationRate[axis])
	})
	if err := checkSpatial(c.Name(), shape, out); err != nil {
		return nil, err
	}
	return []tensor.Shape{out}, nil
}

// Call implements engine.Layer.
func (c *Conv2D) Call(inputs []*engine.KerasTensor, _ engine.Kwargs) ([]*tensor.Tensor, error) {
	out, err := output(c, "conv2d", inputs, inputs[0].Value(), c.kernel.Tensor())
	if err != nil {
		return nil, err
	}
	y := out[0]
	if c.bias != nil {
		y = c.Backend().Apply("bias_add", y.Shape(), y.DType(), y, c.bias.Tensor())
	}
	return []*tensor.Tensor{activate(c.Backend(), c.cfg.Activation, y)}, nil
}

// GetConfig implements engine.Layer.
func (c *Conv2D) GetConfig() engine.Config {
	cfg := c.BaseLayer.GetConfig()
	cfg["filters"] = c.cfg.Filters
	cfg["kernel_size"] = []int{c.cfg.KernelSize[0], c.cfg.KernelSize[1]}
	cfg["strides"] = []int{c.cfg.Strides[0], c.cfg.Strides[1]}
	cfg["padding"] = c.cfg.Padding
	cfg["data_format"] = c.cfg.DataFormat
	cfg["dilation_rate"] = []int{c.cfg.DilationRate[0], c.cfg.DilationRate[1]}
	cfg["activation"] = orLinear(c.cfg.Activation)
	cfg["use_bias"] = !c.cfg.NoBias
	return cfg
}

// MaxPooling2DConfig holds the arguments of a MaxPooling2D layer. A zero
// PoolSize means 2x2 and zero Strides default to the pool size.
type MaxPooling2DConfig struct {
	PoolSize   [2]int
	Strides    [2]int
	Padding    string
	DataFormat string
}

// MaxPooling2D downsamples images by taking the maximum over windows.
type MaxPooling2D struct {
	*engine.BaseLayer
	cfg MaxPooling2DConfig
}

// NewMaxPooling2D creates a MaxPooling2D layer.
func NewMaxPooling2D(backend tensor.Backend, cfg MaxPooling2DConfig, opts ...engine.Option) (*MaxPooling2D, error) {
	var err error
	if cfg.PoolSize, err = pairOr("pool_size", cfg.PoolSize, 2); err != nil {
		return nil, err
	}
	if cfg.Strides == [2]int{} {
		cfg.Strides = cfg.PoolSize
	}
	if cfg.Strides, err = pairOr("strides", cfg.Strides, 1); err != nil {
		return nil, err
	}
	if cfg.Padding, err = checkPadding(cfg.Padding); err != nil {
		return nil, err
	}
	if cfg.DataFormat, err = resolveDataFormat(backend, cfg.DataFormat); err != nil {
		return nil, err
	}
	b, err := engine.NewBaseLayer("MaxPooling2D", backend, opts...)
	if err != nil {
		return nil, err
	}
	b.SetInputSpec(engine.InputSpec{NDim: 4})
	return &MaxPooling2D{BaseLayer: b, cfg: cfg}, nil
}

// ClassName implements engine.Layer.
func (p *MaxPooling2D) ClassName() string { return "MaxPooling2D" }

// ComputeOutputShape implements engine.Layer.
func (p *MaxPooling2D) ComputeOutputShape(inputShapes []tensor.Shape) ([]tensor.Shape, error) {
	shape, err := single(p.Name(), inputShapes)
	if err != nil {
		return nil, err
	}
	if shape.Rank() != 4 {
		return nil, fmt.Errorf("%w: layer %q expects rank 4 inputs, got %s", engine.ErrConfiguration, p.Name(), shape)
	}
	channels := shape[3]
	if p.cfg.DataFormat == ChannelsFirst {
		channels = shape[1]
	}
	out := spatialShape(shape, p.cfg.DataFormat, channels, func(axis, length int) int {
		return convOutputLength(length, p.cfg.PoolSize[axis], p.cfg.Padding, p.cfg.Strides[axis], 1)
	})
	if err := checkSpatial(p.Name(), shape, out); err != nil {
		return nil, err
	}
	return []tensor.Shape{out}, nil
}

// Call implements engine.Layer.
func (p *MaxPooling2D) Call(inputs []*engine.KerasTensor, _ engine.Kwargs) ([]*tensor.Tensor, error) {
	return output(p, "max_pool2d", inputs, inputs[0].Value())
}

// GetConfig implements engine.Layer.
func (p *MaxPooling2D) GetConfig() engine.Config {
	cfg := p.BaseLayer.GetConfig()
	cfg["pool_size"] = []int{p.cfg.PoolSize[0], p.cfg.PoolSize[1]}
	cfg["strides"] = []int{p.cfg.Strides[0], p.cfg.Strides[1]}
	cfg["padding"] = p.cfg.Padding
	cfg["data_format"] = p.cfg.DataFormat
	return cfg
}

// pair reads an integer or a list of two integers.
func (r *reader) pair(key string) [2]int {
	v := r.ints(key)
	switch {
	case r.err != nil || len(v) == 0:
		return [2]int{}
	case len(v) == 1:
		return [2]int{v[0], v[0]}
	case len(v) == 2:
		return [2]int{v[0], v[1]}
	default:
		r.err = fmt.Errorf("%w: %q must have 2 entries, got %v", engine.ErrSerialization, key, v)
		return [2]int{}
	}
}

var (
	decodeConv2D = decoder(func(r *reader, backend tensor.Backend, opts []engine.Option) (*Conv2D, error) {
		cfg := Conv2DConfig{
			Filters:      r.int("filters", 0),
			KernelSize:   r.pair("kernel_size"),
			Strides:      r.pair("strides"),
			Padding:      r.string("padding", PaddingValid),
			DataFormat:   r.string("data_format", ""),
			DilationRate: r.pair("dilation_rate"),
			Activation:   r.string("activation", Linear),
			NoBias:       !r.bool("use_bias", true),
		}
		if r.err != nil {
			return nil, r.err
		}
		return NewConv2D(backend, cfg, opts...)
	})

	decodeMaxPooling2D = decoder(func(r *reader, backend tensor.Backend, opts []engine.Option) (*MaxPooling2D, error) {
		cfg := MaxPooling2DConfig{
			PoolSize:   r.pair("pool_size"),
			Strides:    r.pair("strides"),
			Padding:    r.string("padding", PaddingValid),
			DataFormat: r.string("data_format", ""),
		}
		if r.err != nil {
			return nil, r.err
		}
		return NewMaxPooling2D(backend, cfg, opts...)
	})
)
