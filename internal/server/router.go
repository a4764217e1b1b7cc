// Package server exposes the inkzone state over a JSON HTTP API for the
// storefront and the admin console.
package server

import (
	"net/http"

	"github.com/maruel/inkzone/internal/formulate"
	"github.com/maruel/inkzone/internal/server/handlers"
	"github.com/maruel/inkzone/internal/server/ratelimit"
	"github.com/maruel/inkzone/internal/state"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config holds the router settings.
type Config struct {
	Version         string
	AdminPassphrase string
	// MaxRequestBodyBytes limits request bodies; 0 means unlimited.
	MaxRequestBodyBytes int64
	// FormulateRatePerMin and WriteRatePerMin limit requests per client
	// IP; 0 means unlimited.
	FormulateRatePerMin int
	WriteRatePerMin     int
}

// Server is the HTTP front of one State.
type Server struct {
	handler  http.Handler
	limiters []*ratelimit.Limiter
}

// New creates and configures the HTTP router.
func New(st *state.State, f formulate.Formulator, cfg *Config) *Server {
	mux := http.NewServeMux()
	s := &Server{}

	formulateLimit := ratelimit.PerMinute(cfg.FormulateRatePerMin)
	writeLimit := ratelimit.PerMinute(cfg.WriteRatePerMin)
	for _, l := range []*ratelimit.Limiter{formulateLimit, writeLimit} {
		if l != nil {
			s.limiters = append(s.limiters, l)
		}
	}
	limitFormulate := RateLimit(formulateLimit, "formulate")
	limitWrites := RateLimit(writeLimit, "write")
	admin := AdminGate(cfg.AdminPassphrase)

	health := handlers.NewHealthHandler(cfg.Version)
	catalog := handlers.NewCatalogHandler(st)
	cart := handlers.NewCartHandler(st, f)
	contact := handlers.NewContactHandler(st)
	console := handlers.NewAdminHandler(st, cfg.AdminPassphrase)

	mux.Handle("GET /api/health", Wrap(health.Health))

	// Storefront
	mux.Handle("GET /api/products", Wrap(catalog.ListProducts))
	mux.Handle("GET /api/products/{id}", Wrap(catalog.GetProduct))
	mux.Handle("GET /api/categories/{category}", Wrap(catalog.GetCategory))
	mux.Handle("GET /api/cart", Wrap(cart.GetCart))
	mux.Handle("POST /api/cart/items", limitWrites(Wrap(cart.AddToCart)))
	mux.Handle("POST /api/cart/custom", limitWrites(Wrap(cart.AddCustom)))
	mux.Handle("POST /api/formulate", limitFormulate(Wrap(cart.Formulate)))
	mux.Handle("POST /api/contact", limitWrites(Wrap(contact.Submit)))

	// Admin console
	mux.Handle("POST /api/admin/login", limitWrites(Wrap(console.Login)))
	mux.Handle("GET /api/admin/dashboard", admin(Wrap(console.Dashboard)))
	mux.Handle("GET /api/admin/products", admin(Wrap(console.ListProducts)))
	mux.Handle("POST /api/admin/products", admin(Wrap(console.CreateProduct)))
	mux.Handle("PUT /api/admin/products/{id}", admin(Wrap(console.UpdateProduct)))
	mux.Handle("DELETE /api/admin/products/{id}", admin(Wrap(console.DeleteProduct)))
	mux.Handle("GET /api/admin/quotes", admin(Wrap(console.ListQuotes)))
	mux.Handle("PUT /api/admin/quotes/{id}/status", admin(Wrap(console.SetQuoteStatus)))
	mux.Handle("GET /api/admin/messages", admin(Wrap(console.ListMessages)))
	mux.Handle("POST /api/admin/messages/simulate", admin(Wrap(console.SimulateMessage)))
	mux.Handle("PUT /api/admin/messages/{id}/read", admin(Wrap(console.MarkMessageRead)))

	mux.Handle("GET /metrics", promhttp.Handler())

	s.handler = Instrument(MaxBody(cfg.MaxRequestBodyBytes)(mux))
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Close stops the rate limiter goroutines.
func (s *Server) Close() {
	for _, l := range s.limiters {
		l.Close()
	}
}
