package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ergo/internal/ir"
)

func TestParseContext(t *testing.T) {
	c, err := ParseContext([]byte(`
metadata:
  episode: e-42
values:
  price: 5.5
  qty: 3
  open: true
  venue: XNYS
  closes: [1, 2.5, 3]
`))
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"episode": "e-42"}, c.Metadata)
	assert.Equal(t, ir.Values{
		"price":  ir.Number(5.5),
		"qty":    ir.Number(3),
		"open":   ir.Bool(true),
		"venue":  ir.String("XNYS"),
		"closes": ir.Series{1, 2.5, 3},
	}, c.Values)

	v, ok := c.Lookup("price")
	assert.True(t, ok)
	assert.Equal(t, ir.Number(5.5), v)
}

func TestParseContextErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"unknown key", "valuez: {a: 1}", "decode context"},
		{"mixed series", "values: {s: [1, x]}", `value "s": [1]`},
		{"nested map", "values: {m: {a: 1}}", "unsupported value"},
		{"not yaml", "values: [", "parse context"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseContext([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ctx.yaml")
	require.NoError(t, os.WriteFile(path, []byte("values:\n  price: 7\n"), 0o644))

	c, err := LoadContext(path)
	require.NoError(t, err)
	assert.Equal(t, ir.Number(7), c.Values["price"])

	_, err = LoadContext(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestNilContextLookup(t *testing.T) {
	var c *Context
	_, ok := c.Lookup("anything")
	assert.False(t, ok)
}
