package library

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// LoadDir builds a library from dir: the CUE package in dir, if any .cue
// files exist, plus every .yaml and .yml file.
func LoadDir(dir string) (*Library, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("clusters directory: %w", err)
	}

	var hasCUE bool
	var yamlFiles []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch filepath.Ext(e.Name()) {
		case ".cue":
			hasCUE = true
		case ".yaml", ".yml":
			yamlFiles = append(yamlFiles, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(yamlFiles)
	if !hasCUE && len(yamlFiles) == 0 {
		return nil, fmt.Errorf("no cluster files found in %s", dir)
	}

	lib, _ := New()
	if hasCUE {
		defs, err := LoadCUEDir(dir)
		if err != nil {
			return nil, err
		}
		for _, d := range defs {
			if err := lib.Add(d); err != nil {
				return nil, err
			}
		}
	}
	for _, path := range yamlFiles {
		defs, err := LoadYAMLFile(path)
		if err != nil {
			return nil, err
		}
		for _, d := range defs {
			if err := lib.Add(d); err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
		}
	}
	return lib, nil
}
