package handlers

import (
	"context"
	"slices"

	apierrors "github.com/maruel/inkzone/internal/errors"
	"github.com/maruel/inkzone/internal/models"
	"github.com/maruel/inkzone/internal/state"
)

// AdminHandler serves the admin console. Routes other than Login are
// expected behind the passphrase gate.
type AdminHandler struct {
	st         *state.State
	passphrase string
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(st *state.State, passphrase string) *AdminHandler {
	return &AdminHandler{st: st, passphrase: passphrase}
}

// LoginRequest carries the admin passphrase.
type LoginRequest struct {
	Passphrase string `json:"passphrase"`
}

// OKResponse acknowledges a request without a payload.
type OKResponse struct {
	OK bool `json:"ok"`
}

// DashboardRequest is the request for the dashboard (empty).
type DashboardRequest struct{}

// AdminProductsRequest is the request for the full catalog (empty).
type AdminProductsRequest struct{}

// AdminProductsResponse lists every product with its price, hidden or not.
type AdminProductsResponse struct {
	Products []models.Product `json:"products"`
}

// SimulateMessageRequest is the request for a connectivity test (empty).
type SimulateMessageRequest struct{}

// UpdateProductRequest replaces the product at id.
type UpdateProductRequest struct {
	ID      string         `path:"id" json:"-"`
	Product models.Product `json:"product"`
}

// DeleteProductRequest removes the product at id.
type DeleteProductRequest struct {
	ID string `path:"id"`
}

// ListQuotesRequest optionally filters quotes by status.
type ListQuotesRequest struct {
	Status string `query:"status"`
}

// ListQuotesResponse lists quotes newest first.
type ListQuotesResponse struct {
	Quotes []models.SubmittedQuote `json:"quotes"`
}

// SetQuoteStatusRequest changes a quote status.
type SetQuoteStatusRequest struct {
	ID     string             `path:"id" json:"-"`
	Status models.QuoteStatus `json:"status"`
}

// ListMessagesRequest optionally restricts the list to unread messages.
type ListMessagesRequest struct {
	Unread bool `query:"unread"`
}

// ListMessagesResponse lists messages newest first.
type ListMessagesResponse struct {
	Messages []models.ContactMessage `json:"messages"`
}

// MarkMessageReadRequest marks the message at id as read.
type MarkMessageReadRequest struct {
	ID string `path:"id"`
}

// Login checks the passphrase. It grants nothing by itself: every admin
// request carries the passphrase again.
func (h *AdminHandler) Login(ctx context.Context, req LoginRequest) (*OKResponse, error) {
	if req.Passphrase != h.passphrase {
		return nil, apierrors.Unauthorized()
	}
	return &OKResponse{OK: true}, nil
}

// Dashboard returns the collection counts.
func (h *AdminHandler) Dashboard(ctx context.Context, req DashboardRequest) (*state.Dashboard, error) {
	d := h.st.Dashboard()
	return &d, nil
}

// ListProducts returns the catalog as stored.
func (h *AdminHandler) ListProducts(ctx context.Context, req AdminProductsRequest) (*AdminProductsResponse, error) {
	return &AdminProductsResponse{Products: h.st.Products()}, nil
}

// CreateProduct appends a product to the catalog. The id is generated when
// empty.
func (h *AdminHandler) CreateProduct(ctx context.Context, req models.Product) (*models.Product, error) {
	p, err := h.st.AddProduct(ctx, &req)
	if err != nil {
		return nil, toAPIError(err)
	}
	return &p, nil
}

// UpdateProduct replaces an existing product.
func (h *AdminHandler) UpdateProduct(ctx context.Context, req UpdateProductRequest) (*models.Product, error) {
	if _, ok := h.st.Product(req.ID); !ok {
		return nil, apierrors.ProductNotFound(req.ID)
	}
	p := req.Product
	p.ID = req.ID
	if err := h.st.UpdateProduct(ctx, &p); err != nil {
		return nil, toAPIError(err)
	}
	return &p, nil
}

// DeleteProduct removes a product. Unknown ids succeed.
func (h *AdminHandler) DeleteProduct(ctx context.Context, req DeleteProductRequest) (*OKResponse, error) {
	if err := h.st.RemoveProduct(ctx, req.ID); err != nil {
		return nil, toAPIError(err)
	}
	return &OKResponse{OK: true}, nil
}

// ListQuotes returns the quotes, newest first.
func (h *AdminHandler) ListQuotes(ctx context.Context, req ListQuotesRequest) (*ListQuotesResponse, error) {
	quotes := h.st.Quotes()
	if req.Status != "" {
		if !models.QuoteStatus(req.Status).Valid() {
			return nil, apierrors.BadRequest("unknown status " + req.Status)
		}
		quotes = slices.DeleteFunc(quotes, func(q models.SubmittedQuote) bool { return string(q.Status) != req.Status })
	}
	return &ListQuotesResponse{Quotes: quotes}, nil
}

// SetQuoteStatus changes the status of a quote and returns it.
func (h *AdminHandler) SetQuoteStatus(ctx context.Context, req SetQuoteStatusRequest) (*models.SubmittedQuote, error) {
	if req.Status == "" {
		return nil, apierrors.MissingField("status")
	}
	if err := h.st.SetQuoteStatus(ctx, req.ID, req.Status); err != nil {
		return nil, toAPIError(err)
	}
	q, ok := h.st.Quote(req.ID)
	if !ok {
		return nil, apierrors.NotFound("quote " + req.ID)
	}
	return &q, nil
}

// ListMessages returns the contact messages, newest first.
func (h *AdminHandler) ListMessages(ctx context.Context, req ListMessagesRequest) (*ListMessagesResponse, error) {
	msgs := h.st.Messages()
	if req.Unread {
		msgs = slices.DeleteFunc(msgs, func(m models.ContactMessage) bool { return m.Read })
	}
	return &ListMessagesResponse{Messages: msgs}, nil
}

// SimulateMessage writes a test message straight to the store. It shows up in
// the console only once the sync loop reads it back, which makes it a check of
// the store round trip.
func (h *AdminHandler) SimulateMessage(ctx context.Context, req SimulateMessageRequest) (*models.ContactMessage, error) {
	m, err := h.st.InjectTestMessage(ctx)
	if err != nil {
		return nil, apierrors.InternalWithError("failed to write test message", err)
	}
	return &m, nil
}

// MarkMessageRead flags a message as read and returns it.
func (h *AdminHandler) MarkMessageRead(ctx context.Context, req MarkMessageReadRequest) (*models.ContactMessage, error) {
	if err := h.st.MarkMessageRead(ctx, req.ID); err != nil {
		return nil, toAPIError(err)
	}
	m, ok := h.st.Message(req.ID)
	if !ok {
		return nil, apierrors.NotFound("message " + req.ID)
	}
	return &m, nil
}
