package library

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/roach88/ergo/internal/compiler"
	"github.com/roach88/ergo/internal/ir"
)

// LoadCUEDir compiles every cluster under the top-level "cluster" struct
// of the CUE package in dir.
func LoadCUEDir(dir string) ([]*ir.ClusterDefinition, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("clusters directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", dir)
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, fmt.Errorf("no CUE instances loaded from %s", dir)
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, fmt.Errorf("loading CUE files: %w", inst.Err)
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, fmt.Errorf("building CUE value: %w", err)
	}
	return CompileCUE(value)
}

// LoadCUEString compiles clusters from CUE source text.
func LoadCUEString(src string) ([]*ir.ClusterDefinition, error) {
	value := cuecontext.New().CompileString(src)
	if err := value.Err(); err != nil {
		return nil, fmt.Errorf("building CUE value: %w", err)
	}
	return CompileCUE(value)
}

// CompileCUE compiles each field of value's "cluster" struct.
func CompileCUE(value cue.Value) ([]*ir.ClusterDefinition, error) {
	clustersVal := value.LookupPath(cue.ParsePath("cluster"))
	if !clustersVal.Exists() {
		return nil, fmt.Errorf("no cluster definitions found")
	}

	iter, err := clustersVal.Fields()
	if err != nil {
		return nil, fmt.Errorf("iterating clusters: %w", err)
	}
	var defs []*ir.ClusterDefinition
	for iter.Next() {
		def, err := compiler.CompileCluster(iter.Value())
		if err != nil {
			return nil, fmt.Errorf("cluster.%s: %w", iter.Selector(), err)
		}
		defs = append(defs, def)
	}
	return defs, nil
}
