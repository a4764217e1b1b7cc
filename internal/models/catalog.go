package models

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

var defaultCatalog = sync.OnceValues(func() ([]Product, error) {
	return ParseCatalog(catalogYAML)
})

// ParseCatalog decodes and validates a YAML product list.
func ParseCatalog(data []byte) ([]Product, error) {
	var products []Product
	if err := yaml.Unmarshal(data, &products); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	seen := make(map[string]bool, len(products))
	for i := range products {
		if err := products[i].Validate(); err != nil {
			return nil, fmt.Errorf("catalog product %d: %w", i, err)
		}
		if seen[products[i].ID] {
			return nil, fmt.Errorf("catalog product %d: duplicate id %q", i, products[i].ID)
		}
		seen[products[i].ID] = true
	}
	return products, nil
}

// DefaultCatalog returns a fresh copy of the built-in catalog.
func DefaultCatalog() []Product {
	products, err := defaultCatalog()
	if err != nil {
		// The embedded file is covered by tests.
		panic(err)
	}
	out := make([]Product, len(products))
	for i := range products {
		out[i] = products[i].Clone()
	}
	return out
}

// CategoryProductIDs maps storefront categories to the product they open.
var CategoryProductIDs = map[string]string{
	"Plastisol":       "4",
	"Water-Based":     "1",
	"Dyes":            "2",
	"Special Effects": "3",
}
