package testutil

import (
	"github.com/roach88/ergo/internal/catalog"
	"github.com/roach88/ergo/internal/primitive"
)

// CoreCatalog returns a catalog of the built-in primitives.
func CoreCatalog() *catalog.Static {
	return catalog.MustNew(primitive.Core().Manifests()...)
}
