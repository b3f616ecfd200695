package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mmynk/splitcheck/internal/httpx"
	"github.com/mmynk/splitcheck/internal/models"
)

// Credential header names of the receipt API. Exactly one accompanies every
// authenticated call: the device id carries owner authority, the share key is
// a collaborator capability.
const (
	HeaderDeviceID = "X-Device-ID"
	HeaderShareKey = "X-Share-Key"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const receiptKey contextKey = "receipt"

// receiptFromContext returns the receipt the authorize middleware loaded.
func receiptFromContext(ctx context.Context) *models.Receipt {
	r, _ := ctx.Value(receiptKey).(*models.Receipt)
	return r
}

// authorize guards /receipts/{id}. Missing credentials are rejected before
// any repository access; an unknown id is not-found; mismatched credentials
// are an authorization failure. The loaded receipt is handed to the handler
// through the context so it is fetched exactly once per request.
func (s *Server) authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		deviceID := r.Header.Get(HeaderDeviceID)
		shareKey := r.Header.Get(HeaderShareKey)

		if deviceID == "" && shareKey == "" {
			httpx.Error(w, http.StatusUnauthorized, "no authentication key provided")
			return
		}

		receipt, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			httpx.RespondError(w, err)
			return
		}

		if shareKey != "" {
			if receipt.ShareKey != shareKey {
				httpx.Error(w, http.StatusUnauthorized, "invalid share key")
				return
			}
		} else if receipt.OwnerID != deviceID && receipt.DeviceID != deviceID {
			httpx.Error(w, http.StatusUnauthorized, "invalid device id")
			return
		}

		ctx := context.WithValue(r.Context(), receiptKey, receipt)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "splitcheck_http_requests_total",
		Help: "HTTP requests served, by method, route and status.",
	}, []string{"method", "route", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "splitcheck_http_request_duration_seconds",
		Help:    "HTTP request latency, by method and route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
)

// statusRecorder captures the response code for metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Metrics records a counter and latency histogram per chi route pattern.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		requestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		requestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
