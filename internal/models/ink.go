package models

import "fmt"

// Composition describes how a generated ink behaves on fabric.
type Composition struct {
	Viscosity  float64 `json:"viscosity" jsonschema:"minimum=0,maximum=100,description=Viscosity rating from 0 (Water) to 100 (Thick Plastisol)."`
	Saturation float64 `json:"saturation" jsonschema:"minimum=0,maximum=100,description=Pigment load rating from 0 to 100."`
	Sheen      string  `json:"sheen" jsonschema:"description=Finish on fabric (e.g. Matte or Soft Hand or Gloss or Puff or Metallic)."`
}

// Validate checks the rating ranges.
func (c *Composition) Validate() error {
	if c.Viscosity < 0 || c.Viscosity > 100 {
		return fmt.Errorf("viscosity %g out of range 0-100", c.Viscosity)
	}
	if c.Saturation < 0 || c.Saturation > 100 {
		return fmt.Errorf("saturation %g out of range 0-100", c.Saturation)
	}
	return nil
}

// GeneratedInk is a custom formulation returned by the formulation service.
type GeneratedInk struct {
	Name        string      `json:"name" jsonschema:"description=A premium name for the textile ink color."`
	Hex         string      `json:"hex" jsonschema:"description=The CSS hex color code for the ink."`
	Description string      `json:"description" jsonschema:"description=A technical yet marketing-savvy description suitable for fashion designers (max 30 words)."`
	Composition Composition `json:"composition"`
}
