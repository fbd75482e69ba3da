package engine

import (
	"fmt"
	"os"
	"sort"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/roach88/ergo/internal/ir"
)

// Context is what adapters hand a run: external values that keyed sources
// read, plus run metadata for logs. It never carries results of earlier
// runs.
type Context struct {
	Values   ir.Values
	Metadata map[string]string
}

// NewContext returns an empty context.
func NewContext() *Context {
	return &Context{Values: ir.Values{}, Metadata: map[string]string{}}
}

// Lookup implements primitive.Env.
func (c *Context) Lookup(key string) (ir.Value, bool) {
	if c == nil {
		return nil, false
	}
	v, ok := c.Values[key]
	return v, ok
}

// contextDoc is the YAML form of a Context:
//
//	metadata:
//	  episode: e-42
//	values:
//	  price: 5.5         # Number
//	  open: true         # Bool
//	  venue: "XNYS"      # String
//	  closes: [1, 2, 3]  # Series
type contextDoc struct {
	Metadata map[string]string `mapstructure:"metadata"`
	Values   map[string]any    `mapstructure:"values"`
}

// LoadContext reads a Context from a YAML file.
func LoadContext(path string) (*Context, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read context: %w", err)
	}
	c, err := ParseContext(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// ParseContext decodes a Context from YAML.
func ParseContext(data []byte) (*Context, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse context: %w", err)
	}
	return DecodeContext(raw)
}

// DecodeContext builds a Context from an already decoded document.
func DecodeContext(raw map[string]any) (*Context, error) {
	var doc contextDoc
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		Result:           &doc,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("decode context: %w", err)
	}

	c := NewContext()
	for k, v := range doc.Metadata {
		c.Metadata[k] = v
	}
	keys := make([]string, 0, len(doc.Values))
	for k := range doc.Values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v, err := contextValue(doc.Values[k])
		if err != nil {
			return nil, fmt.Errorf("value %q: %w", k, err)
		}
		c.Values[k] = v
	}
	return c, nil
}

func contextValue(raw any) (ir.Value, error) {
	switch v := raw.(type) {
	case int:
		return ir.Number(float64(v)), nil
	case int64:
		return ir.Number(float64(v)), nil
	case float64:
		return ir.Number(v), nil
	case bool:
		return ir.Bool(v), nil
	case string:
		return ir.String(v), nil
	case []any:
		series := make(ir.Series, 0, len(v))
		for i, item := range v {
			n, err := contextValue(item)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			f, ok := n.(ir.Number)
			if !ok {
				return nil, fmt.Errorf("[%d]: series items must be numbers, got %s", i, n.Type())
			}
			series = append(series, float64(f))
		}
		return series, nil
	}
	return nil, fmt.Errorf("unsupported value %v (%T)", raw, raw)
}
