package state

import (
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/maruel/inkzone/internal/models"
)

// Cart is the pending quote of a visitor. It belongs to one context and is
// never persisted.
type Cart struct {
	mu    sync.Mutex
	items []models.QuoteItem
}

// Add appends the product's variant at variantIndex. The product name and
// variant are copied so later catalog edits do not alter the item.
func (c *Cart) Add(p *models.Product, variantIndex int) (models.QuoteItem, error) {
	if variantIndex < 0 || variantIndex >= len(p.Variants) {
		return models.QuoteItem{}, fmt.Errorf("%w: product %s has %d variants, got index %d", ErrInvalidVariant, p.ID, len(p.Variants), variantIndex)
	}
	item := models.QuoteItem{
		ProductID:   p.ID,
		ProductName: p.Name,
		Variant:     p.Variants[variantIndex],
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append(c.items, item)
	return item, nil
}

// AddCustom appends a generated formulation as a custom item.
func (c *Cart) AddCustom(ink *models.GeneratedInk) models.QuoteItem {
	item := models.QuoteItem{
		ProductID:   "custom-ai-" + uuid.NewString(),
		ProductName: "Custom: " + ink.Name,
		Variant:     models.Variant{Name: "AI Formulation", Hex: ink.Hex},
		Details: fmt.Sprintf("Specs: Viscosity %g | Pigment %g%% | Finish: %s | Notes: %s",
			ink.Composition.Viscosity, ink.Composition.Saturation, ink.Composition.Sheen, ink.Description),
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append(c.items, item)
	return item
}

// Items returns a copy of the items in insertion order.
func (c *Cart) Items() []models.QuoteItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.items)
}

// Len returns the number of items.
func (c *Cart) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// take returns the items and empties the cart in one step.
func (c *Cart) take() []models.QuoteItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	items := c.items
	c.items = nil
	return items
}
