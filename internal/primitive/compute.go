package primitive

import "github.com/roach88/ergo/internal/ir"

type computeFunc func(inputs ir.Values, params ir.Parameters) (ir.Values, error)

// Func is a Compute backed by a plain function.
type Func struct {
	manifest *ir.Manifest
	fn       computeFunc
}

func (f *Func) Manifest() *ir.Manifest { return f.manifest }

func (f *Func) Compute(inputs ir.Values, params ir.Parameters) (ir.Values, error) {
	return f.fn(inputs, params)
}

func binaryNumber(id string, result ir.ValueType, op func(a, b float64) ir.Value) *Func {
	return &Func{
		manifest: computeManifest(id,
			[]ir.InputSpec{input("a", ir.TypeNumber, true), input("b", ir.TypeNumber, true)},
			output("result", result),
		),
		fn: func(inputs ir.Values, _ ir.Parameters) (ir.Values, error) {
			a, err := Number(inputs, "a")
			if err != nil {
				return nil, err
			}
			b, err := Number(inputs, "b")
			if err != nil {
				return nil, err
			}
			return ir.Values{"result": op(a, b)}, nil
		},
	}
}

func binaryBool(id string, op func(a, b bool) bool) *Func {
	return &Func{
		manifest: computeManifest(id,
			[]ir.InputSpec{input("a", ir.TypeBool, true), input("b", ir.TypeBool, true)},
			output("result", ir.TypeBool),
		),
		fn: func(inputs ir.Values, _ ir.Parameters) (ir.Values, error) {
			a, err := Bool(inputs, "a")
			if err != nil {
				return nil, err
			}
			b, err := Bool(inputs, "b")
			if err != nil {
				return nil, err
			}
			return ir.Values{"result": ir.Bool(op(a, b))}, nil
		},
	}
}

func arith(op func(a, b float64) float64) func(a, b float64) ir.Value {
	return func(a, b float64) ir.Value { return ir.Number(op(a, b)) }
}

func compare(op func(a, b float64) bool) func(a, b float64) ir.Value {
	return func(a, b float64) ir.Value { return ir.Bool(op(a, b)) }
}

// NewAdd returns add.
func NewAdd() *Func {
	return binaryNumber("add", ir.TypeNumber, arith(func(a, b float64) float64 { return a + b }))
}

// NewSubtract returns subtract.
func NewSubtract() *Func {
	return binaryNumber("subtract", ir.TypeNumber, arith(func(a, b float64) float64 { return a - b }))
}

// NewMultiply returns multiply.
func NewMultiply() *Func {
	return binaryNumber("multiply", ir.TypeNumber, arith(func(a, b float64) float64 { return a * b }))
}

// NewDivide returns divide. Division by zero follows IEEE 754; the
// resulting infinity or NaN fails the run at this node.
func NewDivide() *Func {
	return binaryNumber("divide", ir.TypeNumber, arith(func(a, b float64) float64 { return a / b }))
}

// NewGt returns gt.
func NewGt() *Func {
	return binaryNumber("gt", ir.TypeBool, compare(func(a, b float64) bool { return a > b }))
}

// NewLt returns lt.
func NewLt() *Func {
	return binaryNumber("lt", ir.TypeBool, compare(func(a, b float64) bool { return a < b }))
}

// NewEq returns eq.
func NewEq() *Func {
	return binaryNumber("eq", ir.TypeBool, compare(func(a, b float64) bool { return a == b }))
}

// NewNeq returns neq.
func NewNeq() *Func {
	return binaryNumber("neq", ir.TypeBool, compare(func(a, b float64) bool { return a != b }))
}

// NewAnd returns and.
func NewAnd() *Func { return binaryBool("and", func(a, b bool) bool { return a && b }) }

// NewOr returns or.
func NewOr() *Func { return binaryBool("or", func(a, b bool) bool { return a || b }) }

// NewNegate returns negate.
func NewNegate() *Func {
	return &Func{
		manifest: computeManifest("negate",
			[]ir.InputSpec{input("value", ir.TypeNumber, true)},
			output("result", ir.TypeNumber),
		),
		fn: func(inputs ir.Values, _ ir.Parameters) (ir.Values, error) {
			v, err := Number(inputs, "value")
			if err != nil {
				return nil, err
			}
			return ir.Values{"result": ir.Number(-v)}, nil
		},
	}
}

// NewNot returns not.
func NewNot() *Func {
	return &Func{
		manifest: computeManifest("not",
			[]ir.InputSpec{input("value", ir.TypeBool, true)},
			output("result", ir.TypeBool),
		),
		fn: func(inputs ir.Values, _ ir.Parameters) (ir.Values, error) {
			v, err := Bool(inputs, "value")
			if err != nil {
				return nil, err
			}
			return ir.Values{"result": ir.Bool(!v)}, nil
		},
	}
}

// NewSelect returns select: when_true if cond holds, otherwise when_false.
func NewSelect() *Func {
	return &Func{
		manifest: computeManifest("select",
			[]ir.InputSpec{
				input("cond", ir.TypeBool, true),
				input("when_true", ir.TypeNumber, true),
				input("when_false", ir.TypeNumber, true),
			},
			output("result", ir.TypeNumber),
		),
		fn: func(inputs ir.Values, _ ir.Parameters) (ir.Values, error) {
			cond, err := Bool(inputs, "cond")
			if err != nil {
				return nil, err
			}
			t, err := Number(inputs, "when_true")
			if err != nil {
				return nil, err
			}
			f, err := Number(inputs, "when_false")
			if err != nil {
				return nil, err
			}
			if cond {
				return ir.Values{"result": ir.Number(t)}, nil
			}
			return ir.Values{"result": ir.Number(f)}, nil
		},
	}
}

// NewConstNumber returns const_number. The optional unit input only
// anchors the node in the graph; its value is ignored.
func NewConstNumber() *Func {
	return &Func{
		manifest: computeManifest("const_number",
			[]ir.InputSpec{input("unit", ir.TypeNumber, false)},
			output("value", ir.TypeNumber),
			param("value", ir.ParamNumber, nil),
		),
		fn: func(_ ir.Values, params ir.Parameters) (ir.Values, error) {
			v, err := NumberParam(params, "value")
			if err != nil {
				return nil, err
			}
			return ir.Values{"value": ir.Number(v)}, nil
		},
	}
}

// NewConstBool returns const_bool.
func NewConstBool() *Func {
	return &Func{
		manifest: computeManifest("const_bool",
			[]ir.InputSpec{input("unit", ir.TypeBool, false)},
			output("value", ir.TypeBool),
			param("value", ir.ParamBool, nil),
		),
		fn: func(_ ir.Values, params ir.Parameters) (ir.Values, error) {
			v, err := BoolParam(params, "value")
			if err != nil {
				return nil, err
			}
			return ir.Values{"value": ir.Bool(v)}, nil
		},
	}
}
