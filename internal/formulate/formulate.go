// Package formulate turns a free-text mood into a custom ink formulation.
//
// The storefront never sees a failure: any error from the underlying
// generator is replaced by a fixed fallback ink.
package formulate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/maruel/inkzone/internal/metrics"
	"github.com/maruel/inkzone/internal/models"
)

// Formulator produces a formulation for a mood. It never fails.
type Formulator interface {
	Formulate(ctx context.Context, mood string) models.GeneratedInk
}

// Generator produces a formulation for a mood and may fail.
type Generator interface {
	Generate(ctx context.Context, mood string) (*models.GeneratedInk, error)
}

// ErrNoAPIKey is returned when creating a generator without credentials.
var ErrNoAPIKey = errors.New("no API key configured")

// Fallback returns the ink used whenever generation fails.
func Fallback() models.GeneratedInk {
	return models.GeneratedInk{
		Name:        "Carbon Black Plastisol",
		Hex:         "#101010",
		Description: "The industry standard for high-opacity black. Creamy consistency for high-speed automatic presses.",
		Composition: models.Composition{Viscosity: 85, Saturation: 100, Sheen: "Satin"},
	}
}

// WithFallback returns a Formulator that substitutes Fallback() for any
// error returned by g.
func WithFallback(g Generator) Formulator {
	return &fallback{g: g}
}

type fallback struct {
	g Generator
}

func (f *fallback) Formulate(ctx context.Context, mood string) models.GeneratedInk {
	ink, err := f.g.Generate(ctx, mood)
	if err == nil {
		err = validate(ink)
	}
	if err != nil {
		metrics.FormulationFallbacksTotal.Inc()
		slog.WarnContext(ctx, "Formulation failed; using fallback ink", "err", err)
		return Fallback()
	}
	return *ink
}

// Static always returns Fallback(). It is used when no generator is
// configured.
type Static struct{}

// Formulate implements Formulator.
func (Static) Formulate(context.Context, string) models.GeneratedInk {
	return Fallback()
}

func validate(ink *models.GeneratedInk) error {
	switch {
	case ink == nil:
		return errors.New("empty formulation")
	case ink.Name == "":
		return errors.New("formulation has no name")
	case ink.Hex == "":
		return errors.New("formulation has no color")
	}
	if err := ink.Composition.Validate(); err != nil {
		return fmt.Errorf("formulation composition: %w", err)
	}
	return nil
}
