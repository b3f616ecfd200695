// Package server exposes the receipt API over HTTP.
//
// Authorization happens at this boundary, not inside the cloud store: every
// call below /receipts/{id} must present either X-Device-ID matching the
// receipt's owner or X-Share-Key matching its stored share key.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mmynk/splitcheck/internal/httpx"
	"github.com/mmynk/splitcheck/internal/storage"
)

// Server wires the receipt handlers to a cloud store.
type Server struct {
	store storage.CloudStore
}

// New creates a Server backed by the given store.
func New(store storage.CloudStore) *Server {
	return &Server{store: store}
}

// Options tunes the ambient middleware; zero values disable rate limiting.
type Options struct {
	RateLimit       int
	RateLimitWindow time.Duration
}

// Routes builds the router for the receipt API.
func (s *Server) Routes(opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(Metrics)
	if opts.RateLimit > 0 && opts.RateLimitWindow > 0 {
		r.Use(httprate.LimitByIP(opts.RateLimit, opts.RateLimitWindow))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, httpx.Envelope{Success: true})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/receipts", func(r chi.Router) {
		r.Get("/", s.listReceipts)
		r.Post("/create", s.createReceipt)

		r.Route("/{id}", func(r chi.Router) {
			r.Use(s.authorize)
			r.Get("/", s.getReceipt)
			r.Put("/", s.updateReceipt)
			r.Put("/line-items", s.setLineItems)
			r.Put("/adjustments", s.setAdjustments)
			r.Post("/people", s.addPerson)
			r.Delete("/people/{personId}", s.removePerson)
		})
	})

	return r
}
