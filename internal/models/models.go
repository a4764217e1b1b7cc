// Package models defines the records shared by the storefront and the admin
// console: catalog products, submitted quotes and contact messages.
//
// JSON field names match the persisted layout, which is shared with every
// other context reading the same store.
package models

import (
	"errors"
	"fmt"
	"slices"
)

// Variant is one colour of a product.
type Variant struct {
	Name string `json:"name" yaml:"name"`
	Hex  string `json:"hex" yaml:"hex"`
}

// Specs are the optional technical ratings shown on a product page.
type Specs struct {
	Viscosity  float64 `json:"viscosity" yaml:"viscosity"`   // 0-100
	Saturation float64 `json:"saturation" yaml:"saturation"` // 0-100
	Sheen      string  `json:"sheen" yaml:"sheen"`
}

// Validate checks the rating ranges.
func (s *Specs) Validate() error {
	if s.Viscosity < 0 || s.Viscosity > 100 {
		return fmt.Errorf("viscosity %g out of range 0-100", s.Viscosity)
	}
	if s.Saturation < 0 || s.Saturation > 100 {
		return fmt.Errorf("saturation %g out of range 0-100", s.Saturation)
	}
	return nil
}

// Product is a catalog entry.
type Product struct {
	ID          string  `json:"id" yaml:"id"`
	Name        string  `json:"name" yaml:"name"`
	Description string  `json:"description" yaml:"description"`
	Price       float64 `json:"price" yaml:"price"`
	// ShowPrice is nil when unset, which means the price is shown.
	ShowPrice     *bool     `json:"showPrice,omitempty" yaml:"showPrice,omitempty"`
	Tags          []string  `json:"tags" yaml:"tags"`
	Variants      []Variant `json:"variants" yaml:"variants"`
	Compatibility []string  `json:"compatibility" yaml:"compatibility"`
	Specs         *Specs    `json:"specs,omitempty" yaml:"specs,omitempty"`
}

// PriceVisible reports whether the storefront displays the price.
func (p *Product) PriceVisible() bool {
	return p.ShowPrice == nil || *p.ShowPrice
}

// Clone returns a deep copy.
func (p Product) Clone() Product {
	c := p
	if p.ShowPrice != nil {
		v := *p.ShowPrice
		c.ShowPrice = &v
	}
	c.Tags = slices.Clone(p.Tags)
	c.Variants = slices.Clone(p.Variants)
	c.Compatibility = slices.Clone(p.Compatibility)
	if p.Specs != nil {
		s := *p.Specs
		c.Specs = &s
	}
	return c
}

// ApplyDefaults fills the fields the admin console may leave out: one black
// variant, mid-range specs, a visible price and empty tag lists.
func (p *Product) ApplyDefaults() {
	if p.Tags == nil {
		p.Tags = []string{}
	}
	if p.Compatibility == nil {
		p.Compatibility = []string{}
	}
	if len(p.Variants) == 0 {
		p.Variants = []Variant{{Name: "Black", Hex: "#000000"}}
	}
	if p.ShowPrice == nil {
		show := true
		p.ShowPrice = &show
	}
	if p.Specs == nil {
		p.Specs = &Specs{Viscosity: 50, Saturation: 50, Sheen: "Standard"}
	}
}

// GetID returns the product id.
func (p Product) GetID() string {
	return p.ID
}

// Validate checks the product invariants. Display and selection logic
// require at least one variant.
func (p *Product) Validate() error {
	if p.ID == "" {
		return errors.New("id is required")
	}
	if p.Name == "" {
		return errors.New("name is required")
	}
	if p.Price < 0 {
		return errors.New("price must be non-negative")
	}
	if len(p.Variants) == 0 {
		return errors.New("at least one variant is required")
	}
	for i, v := range p.Variants {
		if v.Name == "" {
			return fmt.Errorf("variant %d: name is required", i)
		}
	}
	if p.Specs != nil {
		if err := p.Specs.Validate(); err != nil {
			return fmt.Errorf("specs: %w", err)
		}
	}
	return nil
}
