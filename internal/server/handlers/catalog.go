package handlers

import (
	"context"

	apierrors "github.com/maruel/inkzone/internal/errors"
	"github.com/maruel/inkzone/internal/models"
	"github.com/maruel/inkzone/internal/state"
)

// CatalogHandler serves the storefront catalog.
type CatalogHandler struct {
	st *state.State
}

// NewCatalogHandler creates a new catalog handler.
func NewCatalogHandler(st *state.State) *CatalogHandler {
	return &CatalogHandler{st: st}
}

// ListProductsRequest is the request for listing products (empty).
type ListProductsRequest struct{}

// ProductView is a product as the storefront shows it: the price is omitted
// when the product hides it ("price on request").
type ProductView struct {
	models.Product
	Price *float64 `json:"price,omitempty"`
}

func newProductView(p models.Product) *ProductView {
	v := &ProductView{Product: p}
	if p.PriceVisible() {
		v.Price = &p.Price
	}
	return v
}

// ListProductsResponse lists the catalog in insertion order.
type ListProductsResponse struct {
	Products []*ProductView `json:"products"`
}

// GetProductRequest selects a product by id.
type GetProductRequest struct {
	ID string `path:"id"`
}

// GetCategoryRequest selects the product a storefront category opens.
type GetCategoryRequest struct {
	Category string `path:"category"`
}

// ListProducts returns every product.
func (h *CatalogHandler) ListProducts(ctx context.Context, req ListProductsRequest) (*ListProductsResponse, error) {
	products := h.st.Products()
	out := make([]*ProductView, len(products))
	for i := range products {
		out[i] = newProductView(products[i])
	}
	return &ListProductsResponse{Products: out}, nil
}

// GetProduct returns one product.
func (h *CatalogHandler) GetProduct(ctx context.Context, req GetProductRequest) (*ProductView, error) {
	p, ok := h.st.Product(req.ID)
	if !ok {
		return nil, apierrors.ProductNotFound(req.ID)
	}
	return newProductView(p), nil
}

// GetCategory returns the product associated with a category tile.
func (h *CatalogHandler) GetCategory(ctx context.Context, req GetCategoryRequest) (*ProductView, error) {
	p, ok := h.st.ProductForCategory(req.Category)
	if !ok {
		return nil, apierrors.NotFound("category " + req.Category)
	}
	return newProductView(p), nil
}
