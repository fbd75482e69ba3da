package ir

// InputSpec declares a primitive input port.
type InputSpec struct {
	Name        string      `json:"name"`
	Type        ValueType   `json:"type"`
	Required    bool        `json:"required"`
	Cardinality Cardinality `json:"cardinality"`
}

// OutputSpec declares a primitive output port.
type OutputSpec struct {
	Name        string      `json:"name"`
	Type        ValueType   `json:"type"`
	Cardinality Cardinality `json:"cardinality"`
}

// Cadence says how often a source produces a value.
type Cadence string

const (
	CadenceContinuous Cadence = "Continuous"
	CadenceEvent      Cadence = "Event"
)

// Manifest describes a primitive implementation: its kind, ports,
// parameters and behavioural flags.
type Manifest struct {
	ID            string          `json:"id"`
	Version       string          `json:"version"`
	Kind          PrimitiveKind   `json:"kind"`
	Inputs        []InputSpec     `json:"inputs"`
	Outputs       []OutputSpec    `json:"outputs"`
	Parameters    []ParameterSpec `json:"parameters"`
	Deterministic bool            `json:"deterministic"`
	SideEffects   bool            `json:"side_effects"`
	Retryable     bool            `json:"retryable"`
	Stateful      bool            `json:"stateful"`
	Cadence       Cadence         `json:"cadence,omitempty"`
}

// Implementation returns the catalog reference of m.
func (m *Manifest) Implementation() ImplementationInstance {
	return ImplementationInstance{ImplID: m.ID, Version: m.Version}
}

// Input returns the input named name.
func (m *Manifest) Input(name string) (InputSpec, bool) {
	for _, in := range m.Inputs {
		if in.Name == name {
			return in, true
		}
	}
	return InputSpec{}, false
}

// Output returns the output named name.
func (m *Manifest) Output(name string) (OutputSpec, bool) {
	for _, out := range m.Outputs {
		if out.Name == name {
			return out, true
		}
	}
	return OutputSpec{}, false
}

// Parameter returns the parameter named name.
func (m *Manifest) Parameter(name string) (ParameterSpec, bool) {
	for _, p := range m.Parameters {
		if p.Name == name {
			return p, true
		}
	}
	return ParameterSpec{}, false
}

// Canonical returns the IR form of the manifest for hashing.
func (m *Manifest) Canonical() IRObject {
	inputs := IRArray{}
	for _, in := range m.Inputs {
		inputs = append(inputs, IRObject{
			"name":        IRString(in.Name),
			"type":        IRString(in.Type),
			"required":    IRBool(in.Required),
			"cardinality": IRString(in.Cardinality),
		})
	}
	outputs := IRArray{}
	for _, out := range m.Outputs {
		outputs = append(outputs, IRObject{
			"name":        IRString(out.Name),
			"type":        IRString(out.Type),
			"cardinality": IRString(out.Cardinality),
		})
	}
	params := IRArray{}
	for _, p := range m.Parameters {
		def := IRValue(IRString(""))
		if p.Default != nil {
			def = CanonicalParameter(p.Default)
		}
		params = append(params, IRObject{
			"name":        IRString(p.Name),
			"type":        IRString(p.Type),
			"required":    IRBool(p.Required),
			"has_default": IRBool(p.Default != nil),
			"default":     def,
		})
	}
	return IRObject{
		"id":            IRString(m.ID),
		"version":       IRString(m.Version),
		"kind":          IRString(m.Kind),
		"inputs":        inputs,
		"outputs":       outputs,
		"parameters":    params,
		"deterministic": IRBool(m.Deterministic),
		"side_effects":  IRBool(m.SideEffects),
		"retryable":     IRBool(m.Retryable),
		"stateful":      IRBool(m.Stateful),
		"cadence":       IRString(m.Cadence),
	}
}

// Hash returns the content hash of the manifest.
func (m *Manifest) Hash() string {
	return MustHashCanonical(DomainManifest, m.Canonical())
}
