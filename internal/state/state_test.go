package state

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/maruel/inkzone/internal/kv"
	"github.com/maruel/inkzone/internal/models"
	"github.com/maruel/inkzone/internal/storage"
)

func fixedNow() time.Time {
	return time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
}

func newTestState(t *testing.T, b kv.Backend, opts *Options) *State {
	t.Helper()
	if opts == nil {
		opts = &Options{}
	}
	if opts.Now == nil {
		opts.Now = fixedNow
	}
	return New(context.Background(), b, opts)
}

// run starts s.Run and stops it when the test ends.
func run(t *testing.T, s *State) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("Run() = %v", err)
		}
	})
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func ids(products []models.Product) []string {
	out := make([]string, len(products))
	for i := range products {
		out[i] = products[i].ID
	}
	return out
}

func testProduct(id string) *models.Product {
	return &models.Product{
		ID:            id,
		Name:          "Test Ink",
		Price:         10,
		Tags:          []string{},
		Variants:      []models.Variant{{Name: "Black", Hex: "#000"}},
		Compatibility: []string{},
	}
}

var contact = models.ContactFields{Name: "A", Email: "a@b.com", Message: "hi"}

func TestNew(t *testing.T) {
	ctx := context.Background()
	t.Run("seeds empty store", func(t *testing.T) {
		b := kv.NewHub().Open()
		s := newTestState(t, b, nil)
		if got := ids(s.Products()); !reflect.DeepEqual(got, []string{"1", "2", "3", "4"}) {
			t.Errorf("Products() = %v", got)
		}
		if len(s.Quotes()) != 0 || len(s.Messages()) != 0 {
			t.Error("quotes and messages should start empty")
		}
		for _, key := range []string{storage.KeyProducts, storage.KeyQuotes, storage.KeyMessages} {
			if _, err := b.Get(ctx, key); err != nil {
				t.Errorf("%s not persisted: %v", key, err)
			}
		}
	})
	t.Run("corrupt falls back", func(t *testing.T) {
		b := kv.NewHub().Open()
		if err := b.Set(ctx, storage.KeyProducts, []byte("{bad")); err != nil {
			t.Fatal(err)
		}
		if err := b.Set(ctx, storage.KeyQuotes, []byte("null")); err != nil {
			t.Fatal(err)
		}
		s := newTestState(t, b, nil)
		if len(s.Products()) != 4 {
			t.Errorf("Products() len = %d, want 4", len(s.Products()))
		}
		if got := s.Quotes(); got == nil || len(got) != 0 {
			t.Errorf("Quotes() = %#v", got)
		}
		data, _ := b.Get(ctx, storage.KeyQuotes)
		if string(data) != "[]" {
			t.Errorf("stored quotes = %s, want []", data)
		}
	})
	t.Run("loads stored", func(t *testing.T) {
		b := kv.NewHub().Open()
		if err := b.Set(ctx, storage.KeyProducts, []byte("[]")); err != nil {
			t.Fatal(err)
		}
		s := newTestState(t, b, nil)
		if n := len(s.Products()); n != 0 {
			t.Errorf("Products() len = %d, want 0", n)
		}
	})
}

func TestProducts(t *testing.T) {
	ctx := context.Background()
	s := newTestState(t, kv.NewHub().Open(), nil)

	if _, err := s.AddProduct(ctx, testProduct("5")); err != nil {
		t.Fatal(err)
	}
	got := s.Products()
	if len(got) != 5 || got[4].ID != "5" {
		t.Fatalf("after add: %v", ids(got))
	}
	if err := s.RemoveProduct(ctx, "2"); err != nil {
		t.Fatal(err)
	}
	got = s.Products()
	if len(got) != 4 {
		t.Fatalf("after remove: %v", ids(got))
	}
	if _, ok := s.Product("2"); ok {
		t.Error("product 2 still present")
	}

	if _, err := s.AddProduct(ctx, testProduct("5")); !errors.Is(err, ErrDuplicateProduct) {
		t.Errorf("duplicate AddProduct() = %v", err)
	}
	bad := testProduct("6")
	bad.Variants = nil
	if _, err := s.AddProduct(ctx, bad); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("invalid AddProduct() = %v", err)
	}

	upd := testProduct("5")
	upd.Name = "Renamed"
	if err := s.UpdateProduct(ctx, upd); err != nil {
		t.Fatal(err)
	}
	if p, _ := s.Product("5"); p.Name != "Renamed" {
		t.Errorf("UpdateProduct() name = %q", p.Name)
	}
	if got := ids(s.Products()); got[len(got)-1] != "5" {
		t.Errorf("UpdateProduct() moved the product: %v", got)
	}

	before := s.Products()
	if err := s.UpdateProduct(ctx, testProduct("missing")); err != nil {
		t.Fatal(err)
	}
	if err := s.RemoveProduct(ctx, "missing"); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(before, s.Products()) {
		t.Error("unknown id changed the catalog")
	}

	// Snapshots are copies.
	snap := s.Products()
	snap[0].Variants[0].Name = "mutated"
	if p := s.Products()[0]; p.Variants[0].Name == "mutated" {
		t.Error("Products() returned shared data")
	}
}

func TestProductForCategory(t *testing.T) {
	s := newTestState(t, kv.NewHub().Open(), nil)
	p, ok := s.ProductForCategory("Dyes")
	if !ok || p.ID != "2" {
		t.Errorf("ProductForCategory(Dyes) = %q, %v", p.ID, ok)
	}
	if _, ok := s.ProductForCategory("Nope"); ok {
		t.Error("unknown category resolved")
	}
}

func TestCart(t *testing.T) {
	var c Cart
	p := testProduct("1")
	if _, err := c.Add(p, 1); !errors.Is(err, ErrInvalidVariant) {
		t.Errorf("Add(out of range) = %v", err)
	}
	if _, err := c.Add(p, -1); !errors.Is(err, ErrInvalidVariant) {
		t.Errorf("Add(-1) = %v", err)
	}
	item, err := c.Add(p, 0)
	if err != nil {
		t.Fatal(err)
	}
	want := models.QuoteItem{ProductID: "1", ProductName: "Test Ink", Variant: models.Variant{Name: "Black", Hex: "#000"}}
	if item != want {
		t.Errorf("Add() = %+v", item)
	}
	p.Name = "Changed"
	if got := c.Items()[0].ProductName; got != "Test Ink" {
		t.Errorf("cart item follows catalog edits: %q", got)
	}

	custom := c.AddCustom(&models.GeneratedInk{
		Name:        "Neon Lime",
		Hex:         "#aaff00",
		Description: "Bright.",
		Composition: models.Composition{Viscosity: 70, Saturation: 95, Sheen: "Gloss"},
	})
	if !strings.HasPrefix(custom.ProductID, "custom-ai-") {
		t.Errorf("custom id = %q", custom.ProductID)
	}
	if custom.ProductName != "Custom: Neon Lime" || custom.Variant != (models.Variant{Name: "AI Formulation", Hex: "#aaff00"}) {
		t.Errorf("AddCustom() = %+v", custom)
	}
	if want := "Specs: Viscosity 70 | Pigment 95% | Finish: Gloss | Notes: Bright."; custom.Details != want {
		t.Errorf("Details = %q, want %q", custom.Details, want)
	}
	if c.Len() != 2 {
		t.Errorf("Len() = %d", c.Len())
	}
}

func TestSubmitQuote(t *testing.T) {
	ctx := context.Background()
	s := newTestState(t, kv.NewHub().Open(), &Options{NewID: func() string { return "q1" }})
	cart := s.Cart()
	p := &models.Product{ID: "1", Name: "X", Variants: []models.Variant{{Name: "Cyan", Hex: "#00b4d8"}}}
	if _, err := cart.Add(p, 0); err != nil {
		t.Fatal(err)
	}
	items := cart.Items()

	q, err := s.SubmitQuote(ctx, cart, &contact)
	if err != nil {
		t.Fatal(err)
	}
	quotes := s.Quotes()
	if len(quotes) != 1 {
		t.Fatalf("Quotes() len = %d", len(quotes))
	}
	if quotes[0].Status != models.QuoteStatusPending {
		t.Errorf("status = %q", quotes[0].Status)
	}
	if !reflect.DeepEqual(quotes[0].Items, items) {
		t.Errorf("items = %+v, want %+v", quotes[0].Items, items)
	}
	if !reflect.DeepEqual(q, quotes[0]) {
		t.Errorf("returned quote %+v differs from stored %+v", q, quotes[0])
	}
	if q.Date != "2026-03-04 05:06:07" {
		t.Errorf("date = %q", q.Date)
	}
	if cart.Len() != 0 {
		t.Error("cart not emptied")
	}

	if _, err := s.SubmitQuote(ctx, cart, &contact); !errors.Is(err, ErrEmptyCart) {
		t.Errorf("SubmitQuote(empty) = %v", err)
	}
	if _, err := cart.Add(p, 0); err != nil {
		t.Fatal(err)
	}
	if _, err := s.SubmitQuote(ctx, cart, &models.ContactFields{Name: "A"}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("SubmitQuote(no email) = %v", err)
	}
	if cart.Len() != 1 {
		t.Error("invalid submission consumed the cart")
	}
}

func TestSubmitQuoteNewestFirst(t *testing.T) {
	ctx := context.Background()
	n := 0
	s := newTestState(t, kv.NewHub().Open(), &Options{NewID: func() string {
		n++
		return string(rune('a' + n))
	}})
	p := testProduct("1")
	for range 3 {
		if _, err := s.Cart().Add(p, 0); err != nil {
			t.Fatal(err)
		}
		if _, err := s.SubmitQuote(ctx, s.Cart(), &contact); err != nil {
			t.Fatal(err)
		}
	}
	var got []string
	for _, q := range s.Quotes() {
		got = append(got, q.ID)
	}
	if want := []string{"d", "c", "b"}; !reflect.DeepEqual(got, want) {
		t.Errorf("quote order = %v, want %v", got, want)
	}
}

func TestCartTakeIsAtomic(t *testing.T) {
	ctx := context.Background()
	s := newTestState(t, kv.NewHub().Open(), nil)
	if _, err := s.Cart().Add(testProduct("1"), 0); err != nil {
		t.Fatal(err)
	}
	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.SubmitQuote(ctx, s.Cart(), &contact)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	ok := 0
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case !errors.Is(err, ErrEmptyCart):
			t.Errorf("unexpected error: %v", err)
		}
	}
	if ok != 1 {
		t.Errorf("%d submissions succeeded, want 1", ok)
	}
	if n := len(s.Quotes()); n != 1 {
		t.Errorf("Quotes() len = %d, want 1", n)
	}
}

func TestSetQuoteStatus(t *testing.T) {
	ctx := context.Background()
	s := newTestState(t, kv.NewHub().Open(), nil)
	if _, err := s.Cart().Add(testProduct("1"), 0); err != nil {
		t.Fatal(err)
	}
	q, err := s.SubmitQuote(ctx, s.Cart(), &contact)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.SetQuoteStatus(ctx, q.ID, models.QuoteStatusProcessed); err != nil {
		t.Fatal(err)
	}
	if got := s.Quotes()[0].Status; got != models.QuoteStatusProcessed {
		t.Fatalf("status = %q", got)
	}
	// Same status is a no-op.
	if err := s.SetQuoteStatus(ctx, q.ID, models.QuoteStatusProcessed); err != nil {
		t.Errorf("repeat = %v", err)
	}
	for _, to := range []models.QuoteStatus{models.QuoteStatusPending, models.QuoteStatusArchived} {
		if err := s.SetQuoteStatus(ctx, q.ID, to); !errors.Is(err, models.ErrInvalidTransition) {
			t.Errorf("Processed -> %s = %v", to, err)
		}
	}
	if got := s.Quotes()[0].Status; got != models.QuoteStatusProcessed {
		t.Errorf("status regressed to %q", got)
	}
	if err := s.SetQuoteStatus(ctx, q.ID, "Bogus"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("unknown status = %v", err)
	}
	if err := s.SetQuoteStatus(ctx, "missing", models.QuoteStatusProcessed); err != nil {
		t.Errorf("missing id = %v", err)
	}
}

func TestMessages(t *testing.T) {
	ctx := context.Background()
	s := newTestState(t, kv.NewHub().Open(), nil)
	f := models.ContactFields{Name: "B", Email: "b@c.com", Phone: "1", InquiryType: "Wholesale", Message: "hello"}
	m, err := s.SubmitMessage(ctx, &f)
	if err != nil {
		t.Fatal(err)
	}
	if m.Read || m.Type != "Wholesale" || m.Phone != "1" || m.Date != "2026-03-04 05:06:07" {
		t.Errorf("SubmitMessage() = %+v", m)
	}
	if err := s.MarkMessageRead(ctx, m.ID); err != nil {
		t.Fatal(err)
	}
	if !s.Messages()[0].Read {
		t.Error("message not read")
	}
	if err := s.MarkMessageRead(ctx, "missing"); err != nil {
		t.Errorf("missing id = %v", err)
	}
	if _, err := s.SubmitMessage(ctx, &models.ContactFields{Email: "x@y.z"}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("SubmitMessage(no name) = %v", err)
	}
}

func TestSubmit(t *testing.T) {
	ctx := context.Background()
	s := newTestState(t, kv.NewHub().Open(), nil)
	sub, err := s.Submit(ctx, &contact)
	if err != nil {
		t.Fatal(err)
	}
	if sub.Message == nil || sub.Quote != nil {
		t.Errorf("empty cart Submit() = %+v, want message", sub)
	}
	if _, err := s.Cart().Add(testProduct("1"), 0); err != nil {
		t.Fatal(err)
	}
	sub, err = s.Submit(ctx, &contact)
	if err != nil {
		t.Fatal(err)
	}
	if sub.Quote == nil || sub.Message != nil {
		t.Errorf("filled cart Submit() = %+v, want quote", sub)
	}
	want := Dashboard{Products: 4, Quotes: 1, PendingQuotes: 1, Messages: 1, UnreadMessages: 1}
	if got := s.Dashboard(); got != want {
		t.Errorf("Dashboard() = %+v, want %+v", got, want)
	}
}

func TestDefaultIDsAreUnique(t *testing.T) {
	s := newTestState(t, kv.NewHub().Open(), nil)
	seen := make(map[string]struct{}, 10000)
	for range 10000 {
		id := s.opts.NewID()
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = struct{}{}
	}

	ctx := context.Background()
	p := testProduct("1")
	quoteIDs := map[string]struct{}{}
	for range 1000 {
		if _, err := s.Cart().Add(p, 0); err != nil {
			t.Fatal(err)
		}
		q, err := s.SubmitQuote(ctx, s.Cart(), &contact)
		if err != nil {
			t.Fatal(err)
		}
		quoteIDs[q.ID] = struct{}{}
	}
	if len(quoteIDs) != 1000 {
		t.Errorf("%d distinct quote ids, want 1000", len(quoteIDs))
	}
}

func TestConvergence(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		opts Options
	}{
		{"notify", Options{PollInterval: time.Hour}},
		{"poll", Options{PollInterval: 10 * time.Millisecond, DisableWatch: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hub := kv.NewHub()
			aOpts, bOpts := tt.opts, tt.opts
			a := newTestState(t, hub.Open(), &aOpts)
			b := newTestState(t, hub.Open(), &bOpts)
			run(t, b)

			if _, err := a.AddProduct(ctx, testProduct("5")); err != nil {
				t.Fatal(err)
			}
			eventually(t, "product in other context", func() bool {
				_, ok := b.Product("5")
				return ok
			})
			if _, err := a.SubmitMessage(ctx, &contact); err != nil {
				t.Fatal(err)
			}
			eventually(t, "message in other context", func() bool {
				return reflect.DeepEqual(a.Messages(), b.Messages())
			})
			if !reflect.DeepEqual(a.Products(), b.Products()) {
				t.Error("products diverged")
			}
		})
	}
}

func TestConvergenceFile(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	open := func() kv.Backend {
		f, err := kv.OpenFile(dir)
		if err != nil {
			t.Fatal(err)
		}
		t.Cleanup(func() { _ = f.Close() })
		return f
	}
	a := newTestState(t, open(), &Options{PollInterval: 20 * time.Millisecond})
	b := newTestState(t, open(), &Options{PollInterval: 20 * time.Millisecond})
	run(t, b)
	if err := a.RemoveProduct(ctx, "3"); err != nil {
		t.Fatal(err)
	}
	eventually(t, "removal in other context", func() bool {
		_, ok := b.Product("3")
		return !ok
	})
}

func TestRefreshIgnoresInvalid(t *testing.T) {
	ctx := context.Background()
	hub := kv.NewHub()
	s := newTestState(t, hub.Open(), nil)
	other := hub.Open()
	for _, v := range []string{"{bad", "null", ""} {
		if err := other.Set(ctx, storage.KeyProducts, []byte(v)); err != nil {
			t.Fatal(err)
		}
		s.Refresh(ctx)
		if n := len(s.Products()); n != 4 {
			t.Errorf("after %q: Products() len = %d", v, n)
		}
	}
	if err := other.Set(ctx, storage.KeyProducts, []byte("[]")); err != nil {
		t.Fatal(err)
	}
	s.Refresh(ctx)
	if n := len(s.Products()); n != 0 {
		t.Errorf("valid empty collection not applied: len = %d", n)
	}
}

// failingBackend accepts reads but rejects every write.
type failingBackend struct {
	kv.Backend
}

var errWrite = errors.New("quota exceeded")

func (failingBackend) Set(context.Context, string, []byte) error {
	return errWrite
}

func TestWriteFailureKeepsMemory(t *testing.T) {
	ctx := context.Background()
	s := newTestState(t, failingBackend{kv.NewHub().Open()}, nil)
	if _, err := s.AddProduct(ctx, testProduct("5")); err != nil {
		t.Fatalf("AddProduct() = %v", err)
	}
	if _, ok := s.Product("5"); !ok {
		t.Error("in-memory change lost after failed write")
	}
	if _, err := s.SubmitMessage(ctx, &contact); err != nil {
		t.Fatal(err)
	}
	if len(s.Messages()) != 1 {
		t.Error("message lost after failed write")
	}
}

func TestAddProductDefaults(t *testing.T) {
	ctx := context.Background()
	s := newTestState(t, kv.NewHub().Open(), &Options{NewID: func() string { return "gen1" }})
	p, err := s.AddProduct(ctx, &models.Product{Name: "Bare Ink", Price: 12})
	if err != nil {
		t.Fatal(err)
	}
	if p.ID != "gen1" {
		t.Errorf("ID = %q, want generated", p.ID)
	}
	stored, ok := s.Product("gen1")
	if !ok {
		t.Fatal("product not stored under the generated id")
	}
	if !reflect.DeepEqual(stored, p) {
		t.Errorf("stored %+v differs from returned %+v", stored, p)
	}
	if len(p.Variants) != 1 || p.Variants[0].Hex != "#000000" || p.Specs == nil || p.Specs.Sheen != "Standard" || !p.PriceVisible() {
		t.Errorf("defaults not applied: %+v", p)
	}
}

func TestLookups(t *testing.T) {
	ctx := context.Background()
	s := newTestState(t, kv.NewHub().Open(), nil)
	if _, err := s.Cart().Add(testProduct("1"), 0); err != nil {
		t.Fatal(err)
	}
	q, err := s.SubmitQuote(ctx, s.Cart(), &contact)
	if err != nil {
		t.Fatal(err)
	}
	m, err := s.SubmitMessage(ctx, &contact)
	if err != nil {
		t.Fatal(err)
	}
	if got, ok := s.Quote(q.ID); !ok || got.ID != q.ID {
		t.Errorf("Quote(%q) = %+v, %v", q.ID, got, ok)
	}
	if got, ok := s.Message(m.ID); !ok || got.ID != m.ID {
		t.Errorf("Message(%q) = %+v, %v", m.ID, got, ok)
	}
	if _, ok := s.Quote(m.ID); ok {
		t.Error("message id resolved as a quote")
	}
	if _, ok := s.Message("missing"); ok {
		t.Error("unknown message resolved")
	}
}

func TestSubmitConcurrent(t *testing.T) {
	ctx := context.Background()
	s := newTestState(t, kv.NewHub().Open(), nil)
	if _, err := s.Cart().Add(testProduct("1"), 0); err != nil {
		t.Fatal(err)
	}
	const workers = 8
	var wg sync.WaitGroup
	subs := make(chan *Submission, workers)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sub, err := s.Submit(ctx, &contact)
			if err != nil {
				t.Errorf("Submit() = %v", err)
				return
			}
			subs <- sub
		}()
	}
	wg.Wait()
	close(subs)
	quotes, messages := 0, 0
	for sub := range subs {
		if sub.Quote != nil {
			quotes++
		}
		if sub.Message != nil {
			messages++
		}
	}
	if quotes != 1 || messages != workers-1 {
		t.Errorf("%d quotes and %d messages, want 1 and %d", quotes, messages, workers-1)
	}
}

// pausingBackend blocks the first Get of key once armed, after the value was
// read, until resume is closed.
type pausingBackend struct {
	kv.Backend
	key    string
	armed  atomic.Bool
	paused chan struct{}
	resume chan struct{}
}

func (p *pausingBackend) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := p.Backend.Get(ctx, key)
	if key == p.key && p.armed.CompareAndSwap(true, false) {
		close(p.paused)
		<-p.resume
	}
	return data, err
}

func TestRefreshDoesNotRevertOwnWrite(t *testing.T) {
	ctx := context.Background()
	b := &pausingBackend{
		Backend: kv.NewHub().Open(),
		key:     storage.KeyQuotes,
		paused:  make(chan struct{}),
		resume:  make(chan struct{}),
	}
	s := newTestState(t, b, nil)
	p := testProduct("1")

	b.armed.Store(true)
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Refresh(ctx)
	}()
	<-b.paused
	// The poll holds the empty collection it read before this submission.
	if _, err := s.Cart().Add(p, 0); err != nil {
		t.Fatal(err)
	}
	first, err := s.SubmitQuote(ctx, s.Cart(), &contact)
	if err != nil {
		t.Fatal(err)
	}
	close(b.resume)
	<-done

	if _, ok := s.Quote(first.ID); !ok {
		t.Fatal("stale poll read reverted the submitted quote")
	}
	if _, err := s.Cart().Add(p, 0); err != nil {
		t.Fatal(err)
	}
	if _, err := s.SubmitQuote(ctx, s.Cart(), &contact); err != nil {
		t.Fatal(err)
	}
	if n := len(s.Quotes()); n != 2 {
		t.Errorf("Quotes() len = %d, want 2", n)
	}
	stored, err := storage.NewCollection[models.SubmittedQuote](b, storage.KeyQuotes).Read(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(stored) != 2 || stored[1].ID != first.ID {
		t.Errorf("stored quotes = %+v", stored)
	}

	// The next poll reads the current value and is applied normally.
	s.Refresh(ctx)
	if n := len(s.Quotes()); n != 2 {
		t.Errorf("after refresh: Quotes() len = %d, want 2", n)
	}
}

func TestInjectTestMessage(t *testing.T) {
	ctx := context.Background()
	s := newTestState(t, kv.NewHub().Open(), nil)
	if _, err := s.SubmitMessage(ctx, &contact); err != nil {
		t.Fatal(err)
	}
	m, err := s.InjectTestMessage(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(m.ID, "test-") || m.Type != TestMessageType || m.Read {
		t.Errorf("InjectTestMessage() = %+v", m)
	}
	if _, ok := s.Message(m.ID); ok {
		t.Error("test message visible before the store was read back")
	}
	s.Refresh(ctx)
	msgs := s.Messages()
	if len(msgs) != 2 || msgs[0].ID != m.ID {
		t.Errorf("after refresh: %+v", msgs)
	}
	if d := s.Dashboard(); d.UnreadMessages != 2 {
		t.Errorf("UnreadMessages = %d, want 2", d.UnreadMessages)
	}
}
