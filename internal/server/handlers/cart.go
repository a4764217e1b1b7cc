package handlers

import (
	"context"
	"strings"

	apierrors "github.com/maruel/inkzone/internal/errors"
	"github.com/maruel/inkzone/internal/formulate"
	"github.com/maruel/inkzone/internal/models"
	"github.com/maruel/inkzone/internal/state"
)

// CartHandler manages the pending quote and the formulation lab.
type CartHandler struct {
	st *state.State
	f  formulate.Formulator
}

// NewCartHandler creates a new cart handler.
func NewCartHandler(st *state.State, f formulate.Formulator) *CartHandler {
	return &CartHandler{st: st, f: f}
}

// GetCartRequest is the request for the cart (empty).
type GetCartRequest struct{}

// CartResponse lists the cart items in insertion order.
type CartResponse struct {
	Items []models.QuoteItem `json:"items"`
}

// AddToCartRequest adds a catalog product's variant.
type AddToCartRequest struct {
	ProductID    string `json:"productId"`
	VariantIndex int    `json:"variantIndex"`
}

// AddCustomRequest adds a generated formulation.
type AddCustomRequest struct {
	Ink models.GeneratedInk `json:"ink"`
}

// FormulateRequest asks for a formulation matching a mood.
type FormulateRequest struct {
	Mood string `json:"mood"`
}

func (h *CartHandler) response() *CartResponse {
	items := h.st.Cart().Items()
	if items == nil {
		items = []models.QuoteItem{}
	}
	return &CartResponse{Items: items}
}

// GetCart returns the cart.
func (h *CartHandler) GetCart(ctx context.Context, req GetCartRequest) (*CartResponse, error) {
	return h.response(), nil
}

// AddToCart adds a product variant to the cart.
func (h *CartHandler) AddToCart(ctx context.Context, req AddToCartRequest) (*CartResponse, error) {
	if req.ProductID == "" {
		return nil, apierrors.MissingField("productId")
	}
	p, ok := h.st.Product(req.ProductID)
	if !ok {
		return nil, apierrors.ProductNotFound(req.ProductID)
	}
	if _, err := h.st.Cart().Add(&p, req.VariantIndex); err != nil {
		return nil, toAPIError(err)
	}
	return h.response(), nil
}

// AddCustom adds a generated formulation to the cart.
func (h *CartHandler) AddCustom(ctx context.Context, req AddCustomRequest) (*CartResponse, error) {
	if req.Ink.Name == "" || req.Ink.Hex == "" {
		return nil, apierrors.MissingField("ink.name and ink.hex")
	}
	h.st.Cart().AddCustom(&req.Ink)
	return h.response(), nil
}

// Formulate returns a formulation for the mood. It never fails on upstream
// errors; the fallback ink is returned instead.
func (h *CartHandler) Formulate(ctx context.Context, req FormulateRequest) (*models.GeneratedInk, error) {
	mood := strings.TrimSpace(req.Mood)
	if mood == "" {
		return nil, apierrors.MissingField("mood")
	}
	ink := h.f.Formulate(ctx, mood)
	return &ink, nil
}
