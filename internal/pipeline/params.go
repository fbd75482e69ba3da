package pipeline

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/ergo/internal/ir"
)

// ParseParameterValue reads a parameter literal typed on the command line
// or in a query string: true/false is Bool, an integer is Int, any other
// number is Number, and everything else is a String.
func ParseParameterValue(raw string) ir.ParameterValue {
	switch raw {
	case "true":
		return ir.BoolValue(true)
	case "false":
		return ir.BoolValue(false)
	}
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return ir.IntValue(i)
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return ir.NumberValue(f)
	}
	return ir.StringParam(raw)
}

// ParseParameters reads name=value pairs.
func ParseParameters(pairs []string) (ir.Parameters, error) {
	params := ir.Parameters{}
	for _, pair := range pairs {
		name, raw, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("parameter %q: want name=value", pair)
		}
		if _, dup := params[name]; dup {
			return nil, fmt.Errorf("parameter %q given twice", name)
		}
		params[name] = ParseParameterValue(raw)
	}
	return params, nil
}
