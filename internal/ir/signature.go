package ir

// PortSpec describes one boundary port of a cluster.
// Input ports are never wireable.
type PortSpec struct {
	Name        string      `json:"name"`
	Type        ValueType   `json:"type"`
	Cardinality Cardinality `json:"cardinality"`
	Wireable    bool        `json:"wireable"`
}

// Signature is the externally visible contract of a cluster.
type Signature struct {
	Kind           BoundaryKind `json:"kind"`
	Inputs         []PortSpec   `json:"inputs"`
	Outputs        []PortSpec   `json:"outputs"`
	HasSideEffects bool         `json:"has_side_effects"`
	IsOrigin       bool         `json:"is_origin"`
}

// Input returns the input port named name.
func (s *Signature) Input(name string) (PortSpec, bool) {
	return findPort(s.Inputs, name)
}

// Output returns the output port named name.
func (s *Signature) Output(name string) (PortSpec, bool) {
	return findPort(s.Outputs, name)
}

func findPort(ports []PortSpec, name string) (PortSpec, bool) {
	for _, p := range ports {
		if p.Name == name {
			return p, true
		}
	}
	return PortSpec{}, false
}
