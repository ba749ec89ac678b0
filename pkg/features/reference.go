package features

import (
	"embed"

	"github.com/openfroyo/nodeutils/pkg/cmdref"
)

//go:embed reference/*.yaml
var referenceFS embed.FS

// Sources returns the built-in command reference documents.
func Sources() ([]cmdref.Source, error) {
	return cmdref.SourcesFromFS(referenceFS, "reference/*.yaml")
}

// DefaultReference loads the built-in documents for api and product.
func DefaultReference(api, product string, opts ...cmdref.Option) (*cmdref.Reference, error) {
	sources, err := Sources()
	if err != nil {
		return nil, err
	}
	return cmdref.NewFromSources(api, product, sources, opts...)
}
