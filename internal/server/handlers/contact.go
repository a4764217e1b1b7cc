package handlers

import (
	"context"

	"github.com/maruel/inkzone/internal/models"
	"github.com/maruel/inkzone/internal/state"
)

// ContactHandler handles the storefront contact form.
type ContactHandler struct {
	st *state.State
}

// NewContactHandler creates a new contact handler.
func NewContactHandler(st *state.State) *ContactHandler {
	return &ContactHandler{st: st}
}

// Submit files a quote when the cart has items, a contact message otherwise.
func (h *ContactHandler) Submit(ctx context.Context, req models.ContactFields) (*state.Submission, error) {
	sub, err := h.st.Submit(ctx, &req)
	if err != nil {
		return nil, toAPIError(err)
	}
	return sub, nil
}
