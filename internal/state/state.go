package state

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/maruel/inkzone/internal/kv"
	"github.com/maruel/inkzone/internal/models"
	"github.com/maruel/inkzone/internal/storage"
	"github.com/maruel/ksid"
)

var (
	// ErrInvalidInput wraps validation failures of mutation arguments.
	ErrInvalidInput = errors.New("invalid input")
	// ErrDuplicateProduct is returned when adding a product whose id exists.
	ErrDuplicateProduct = errors.New("product already exists")
	// ErrEmptyCart is returned when submitting a quote without items.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrInvalidVariant is returned when a variant index is out of range.
	ErrInvalidVariant = errors.New("invalid variant")
)

// DefaultPollInterval is the period of the poll fallback.
const DefaultPollInterval = time.Second

// Options configures a State.
type Options struct {
	// PollInterval defaults to DefaultPollInterval.
	PollInterval time.Duration
	// DisableWatch turns off change notifications; only polling remains.
	DisableWatch bool
	// Now defaults to time.Now.
	Now func() time.Time
	// NewID defaults to time-sortable ksid identifiers.
	NewID func() string
}

// State is the state container of one context. It is safe for concurrent use.
type State struct {
	backend kv.Backend
	opts    Options

	products *Synced[models.Product]
	quotes   *Synced[models.SubmittedQuote]
	messages *Synced[models.ContactMessage]
	cart     Cart
}

// New loads the three collections from b. Missing or corrupt products fall
// back to the default catalog; quotes and messages fall back to empty.
func New(ctx context.Context, b kv.Backend, opts *Options) *State {
	s := &State{backend: b}
	if opts != nil {
		s.opts = *opts
	}
	if s.opts.PollInterval <= 0 {
		s.opts.PollInterval = DefaultPollInterval
	}
	if s.opts.Now == nil {
		s.opts.Now = time.Now
	}
	if s.opts.NewID == nil {
		s.opts.NewID = func() string { return ksid.NewID().String() }
	}
	s.products = loadSynced(ctx, storage.NewCollection[models.Product](b, storage.KeyProducts), models.DefaultCatalog)
	s.quotes = loadSynced(ctx, storage.NewCollection[models.SubmittedQuote](b, storage.KeyQuotes), storage.Empty[models.SubmittedQuote])
	s.messages = loadSynced(ctx, storage.NewCollection[models.ContactMessage](b, storage.KeyMessages), storage.Empty[models.ContactMessage])
	return s
}

func (s *State) timestamp() string {
	return s.opts.Now().Format(time.DateTime)
}

// Cart returns the pending cart of this context.
func (s *State) Cart() *Cart {
	return &s.cart
}

// Products returns the catalog in insertion order.
func (s *State) Products() []models.Product {
	return s.products.Snapshot()
}

// Product returns the product with id.
func (s *State) Product(id string) (models.Product, bool) {
	return findByID(s.products.Snapshot(), id)
}

// ProductForCategory returns the product a storefront category opens.
func (s *State) ProductForCategory(category string) (models.Product, bool) {
	id, ok := models.CategoryProductIDs[category]
	if !ok {
		return models.Product{}, false
	}
	return s.Product(id)
}

// AddProduct appends p to the catalog and returns the stored product. An
// empty id is generated and missing fields get the console defaults (see
// models.Product.ApplyDefaults).
func (s *State) AddProduct(ctx context.Context, p *models.Product) (models.Product, error) {
	added := p.Clone()
	if added.ID == "" {
		added.ID = s.opts.NewID()
	}
	added.ApplyDefaults()
	if err := added.Validate(); err != nil {
		return models.Product{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	err := s.products.mutate(ctx, "add_product", func(rows []models.Product) ([]models.Product, error) {
		if _, ok := findByID(rows, added.ID); ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateProduct, added.ID)
		}
		return append(rows, added.Clone()), nil
	})
	if err != nil {
		return models.Product{}, err
	}
	return added, nil
}

// UpdateProduct replaces the product with the same id, keeping its position.
// Missing fields get the same defaults as in AddProduct. It is a no-op if the
// id is unknown.
func (s *State) UpdateProduct(ctx context.Context, p *models.Product) error {
	updated := p.Clone()
	updated.ApplyDefaults()
	if err := updated.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return s.products.mutate(ctx, "update_product", func(rows []models.Product) ([]models.Product, error) {
		for i := range rows {
			if rows[i].ID == updated.ID {
				rows[i] = updated
			}
		}
		return rows, nil
	})
}

// RemoveProduct removes the product with id. It is a no-op if the id is
// unknown. Quote items referencing the product are left as they are.
func (s *State) RemoveProduct(ctx context.Context, id string) error {
	return s.products.mutate(ctx, "remove_product", func(rows []models.Product) ([]models.Product, error) {
		return slices.DeleteFunc(rows, func(r models.Product) bool { return r.ID == id }), nil
	})
}

// Quotes returns the submitted quotes, newest first.
func (s *State) Quotes() []models.SubmittedQuote {
	return s.quotes.Snapshot()
}

// Quote returns the quote with id.
func (s *State) Quote(id string) (models.SubmittedQuote, bool) {
	return findByID(s.quotes.Snapshot(), id)
}

// SubmitQuote creates a pending quote from the cart's items and empties the
// cart. The quote is prepended to the collection.
func (s *State) SubmitQuote(ctx context.Context, cart *Cart, f *models.ContactFields) (models.SubmittedQuote, error) {
	if err := f.Validate(); err != nil {
		return models.SubmittedQuote{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	items := cart.take()
	if len(items) == 0 {
		return models.SubmittedQuote{}, ErrEmptyCart
	}
	return s.fileQuote(ctx, items, f)
}

func (s *State) fileQuote(ctx context.Context, items []models.QuoteItem, f *models.ContactFields) (models.SubmittedQuote, error) {
	q := models.SubmittedQuote{
		ID:      s.opts.NewID(),
		Name:    f.Name,
		Email:   f.Email,
		Phone:   f.Phone,
		Items:   items,
		Message: f.Message,
		Date:    s.timestamp(),
		Status:  models.QuoteStatusPending,
	}
	slog.InfoContext(ctx, "Quote submitted", "id", q.ID, "from", f, "items", len(items))
	err := s.quotes.mutate(ctx, "submit_quote", func(rows []models.SubmittedQuote) ([]models.SubmittedQuote, error) {
		return append([]models.SubmittedQuote{q.Clone()}, rows...), nil
	})
	return q, err
}

// SetQuoteStatus changes the status of the quote with id. Unknown ids and
// unchanged statuses are no-ops; any transition other than Pending to
// Processed returns models.ErrInvalidTransition.
func (s *State) SetQuoteStatus(ctx context.Context, id string, status models.QuoteStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}
	return s.quotes.mutate(ctx, "set_quote_status", func(rows []models.SubmittedQuote) ([]models.SubmittedQuote, error) {
		for i := range rows {
			if rows[i].ID != id || rows[i].Status == status {
				continue
			}
			if !rows[i].Status.CanTransition(status) {
				return nil, fmt.Errorf("%w: %s -> %s", models.ErrInvalidTransition, rows[i].Status, status)
			}
			rows[i].Status = status
		}
		return rows, nil
	})
}

// Messages returns the contact messages, newest first.
func (s *State) Messages() []models.ContactMessage {
	return s.messages.Snapshot()
}

// Message returns the contact message with id.
func (s *State) Message(id string) (models.ContactMessage, bool) {
	return findByID(s.messages.Snapshot(), id)
}

// SubmitMessage creates an unread contact message, prepended to the
// collection.
func (s *State) SubmitMessage(ctx context.Context, f *models.ContactFields) (models.ContactMessage, error) {
	if err := f.Validate(); err != nil {
		return models.ContactMessage{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return s.fileMessage(ctx, f)
}

func (s *State) fileMessage(ctx context.Context, f *models.ContactFields) (models.ContactMessage, error) {
	m := models.ContactMessage{
		ID:      s.opts.NewID(),
		Name:    f.Name,
		Email:   f.Email,
		Phone:   f.Phone,
		Type:    f.InquiryType,
		Message: f.Message,
		Date:    s.timestamp(),
	}
	slog.InfoContext(ctx, "Message submitted", "id", m.ID, "from", f)
	err := s.messages.mutate(ctx, "submit_message", func(rows []models.ContactMessage) ([]models.ContactMessage, error) {
		return append([]models.ContactMessage{m}, rows...), nil
	})
	return m, err
}

// MarkMessageRead flags the message with id as read. The flag never goes
// back to unread.
func (s *State) MarkMessageRead(ctx context.Context, id string) error {
	return s.messages.mutate(ctx, "mark_message_read", func(rows []models.ContactMessage) ([]models.ContactMessage, error) {
		for i := range rows {
			if rows[i].ID == id {
				rows[i].Read = true
			}
		}
		return rows, nil
	})
}

// Submission is the result of Submit: exactly one field is set.
type Submission struct {
	Quote   *models.SubmittedQuote `json:"quote,omitempty"`
	Message *models.ContactMessage `json:"message,omitempty"`
}

// Submit handles the storefront contact form: with items in this context's
// cart it submits a quote, otherwise a contact message. The cart is emptied
// in the same step that decides between the two.
func (s *State) Submit(ctx context.Context, f *models.ContactFields) (*Submission, error) {
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if items := s.cart.take(); len(items) > 0 {
		q, err := s.fileQuote(ctx, items, f)
		if err != nil {
			return nil, err
		}
		return &Submission{Quote: &q}, nil
	}
	m, err := s.fileMessage(ctx, f)
	if err != nil {
		return nil, err
	}
	return &Submission{Message: &m}, nil
}

// Dashboard summarizes the collections for the admin console.
type Dashboard struct {
	Products       int `json:"products"`
	Quotes         int `json:"quotes"`
	PendingQuotes  int `json:"pendingQuotes"`
	Messages       int `json:"messages"`
	UnreadMessages int `json:"unreadMessages"`
}

// Dashboard returns the current counts.
func (s *State) Dashboard() Dashboard {
	d := Dashboard{Products: s.products.Len()}
	for _, q := range s.quotes.Snapshot() {
		d.Quotes++
		if q.Status == models.QuoteStatusPending {
			d.PendingQuotes++
		}
	}
	for _, m := range s.messages.Snapshot() {
		d.Messages++
		if !m.Read {
			d.UnreadMessages++
		}
	}
	return d
}

type identified interface {
	GetID() string
}

func findByID[T identified](rows []T, id string) (T, bool) {
	i := slices.IndexFunc(rows, func(r T) bool { return r.GetID() == id })
	if i < 0 {
		var zero T
		return zero, false
	}
	return rows[i], true
}
