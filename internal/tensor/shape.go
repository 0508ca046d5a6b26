package tensor

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Unknown marks a dimension whose size is not known until run time
// (typically the batch dimension).
const Unknown = -1

// Shape represents the static dimensions of a symbolic tensor.
//
// A dimension equal to Unknown is rendered as "None" and serialized as null.
type Shape []int

// NewShape creates a shape from the given dimensions.
func NewShape(dims ...int) Shape {
	s := make(Shape, len(dims))
	copy(s, dims)
	return s
}

// Rank returns the number of dimensions.
func (s Shape) Rank() int {
	return len(s)
}

// IsFullyDefined reports whether no dimension is Unknown.
func (s Shape) IsFullyDefined() bool {
	for _, dim := range s {
		if dim == Unknown {
			return false
		}
	}
	return true
}

// NumElements returns the total number of elements in the tensor.
//
// Returns Unknown if any dimension is unknown.
func (s Shape) NumElements() int {
	if len(s) == 0 {
		return 1 // Scalar has 1 element
	}
	n := 1
	for _, dim := range s {
		if dim == Unknown {
			return Unknown
		}
		n *= dim
	}
	return n
}

// Validate checks that every dimension is either positive or Unknown.
func (s Shape) Validate() error {
	for i, dim := range s {
		if dim <= 0 && dim != Unknown {
			return fmt.Errorf("invalid dimension at index %d: %d (must be > 0 or unknown)", i, dim)
		}
	}
	return nil
}

// Equal checks if two shapes are equal. Unknown only equals Unknown.
func (s Shape) Equal(other Shape) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Compatible reports whether two shapes could describe the same tensor,
// treating Unknown as a wildcard.
func (s Shape) Compatible(other Shape) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] && s[i] != Unknown && other[i] != Unknown {
			return false
		}
	}
	return true
}

// Clone returns a copy of the shape.
func (s Shape) Clone() Shape {
	if s == nil {
		return nil
	}
	clone := make(Shape, len(s))
	copy(clone, s)
	return clone
}

// WithBatch prepends a batch dimension.
func (s Shape) WithBatch(batch int) Shape {
	out := make(Shape, 0, len(s)+1)
	out = append(out, batch)
	return append(out, s...)
}

// String renders the shape the way model summaries print it, e.g. (None, 32).
func (s Shape) String() string {
	parts := make([]string, len(s))
	for i, dim := range s {
		if dim == Unknown {
			parts[i] = "None"
		} else {
			parts[i] = strconv.Itoa(dim)
		}
	}
	if len(parts) == 1 {
		return "(" + parts[0] + ",)"
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// Dims returns the shape as a slice where unknown dimensions are nil.
// This is the representation used in serialized configs.
func (s Shape) Dims() []any {
	out := make([]any, len(s))
	for i, dim := range s {
		if dim == Unknown {
			out[i] = nil
		} else {
			out[i] = dim
		}
	}
	return out
}

// MarshalJSON encodes unknown dimensions as null.
func (s Shape) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("null"), nil
	}
	return json.Marshal(s.Dims())
}

// UnmarshalJSON decodes a list of integers or nulls.
func (s *Shape) UnmarshalJSON(data []byte) error {
	var dims []*int
	if err := json.Unmarshal(data, &dims); err != nil {
		return fmt.Errorf("decoding shape: %w", err)
	}
	if dims == nil {
		*s = nil
		return nil
	}
	out := make(Shape, len(dims))
	for i, d := range dims {
		if d == nil {
			out[i] = Unknown
		} else {
			out[i] = *d
		}
	}
	*s = out
	return nil
}

// MarshalYAML encodes unknown dimensions as null.
func (s Shape) MarshalYAML() (any, error) {
	if s == nil {
		return nil, nil
	}
	return s.Dims(), nil
}

// UnmarshalYAML decodes a sequence of integers or nulls.
func (s *Shape) UnmarshalYAML(node *yaml.Node) error {
	var dims []*int
	if err := node.Decode(&dims); err != nil {
		return fmt.Errorf("decoding shape: %w", err)
	}
	out := make(Shape, len(dims))
	for i, d := range dims {
		if d == nil {
			out[i] = Unknown
		} else {
			out[i] = *d
		}
	}
	*s = out
	return nil
}

// ShapeFromAny converts a decoded config value into a Shape.
//
// Accepts Shape, []int, and []any holding numbers or nil (the form produced
// by encoding/json and yaml.v3 when decoding into interface values).
func ShapeFromAny(v any) (Shape, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case Shape:
		return val.Clone(), nil
	case []int:
		return NewShape(val...), nil
	case []any:
		out := make(Shape, len(val))
		for i, d := range val {
			if d == nil {
				out[i] = Unknown
				continue
			}
			n, err := intFromAny(d)
			if err != nil {
				return nil, fmt.Errorf("dimension %d: %w", i, err)
			}
			out[i] = n
		}
		return out, nil
	default:
		return nil, fmt.Errorf("cannot convert %T to shape", v)
	}
}

func intFromAny(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int32:
		return int(n), nil
	case int64:
		return int(n), nil
	case uint64:
		return int(n), nil
	case float64:
		if n != float64(int(n)) {
			return 0, fmt.Errorf("non-integer dimension %v", n)
		}
		return int(n), nil
	case json.Number:
		i, err := n.Int64()
		return int(i), err
	default:
		return 0, fmt.Errorf("unexpected dimension type %T", v)
	}
}

// BroadcastShapes implements NumPy-style broadcasting rules over static
// shapes. Unknown dimensions broadcast against anything and stay Unknown
// unless the other side is a concrete size other than 1.
func BroadcastShapes(a, b Shape) (Shape, error) {
	maxLen := max(len(a), len(b))
	result := make(Shape, maxLen)

	for i := 0; i < maxLen; i++ {
		aIdx := len(a) - 1 - i
		bIdx := len(b) - 1 - i

		aDim := 1
		if aIdx >= 0 {
			aDim = a[aIdx]
		}

		bDim := 1
		if bIdx >= 0 {
			bDim = b[bIdx]
		}

		switch {
		case aDim == bDim:
			result[maxLen-1-i] = aDim
		case aDim == 1:
			result[maxLen-1-i] = bDim
		case bDim == 1:
			result[maxLen-1-i] = aDim
		case aDim == Unknown:
			result[maxLen-1-i] = bDim
		case bDim == Unknown:
			result[maxLen-1-i] = aDim
		default:
			return nil, fmt.Errorf("shapes not compatible for broadcasting: %v vs %v (dimension %d: %d vs %d)",
				a, b, maxLen-1-i, aDim, bDim)
		}
	}

	return result, nil
}
