package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/splitcheck/internal/config"
	"github.com/mmynk/splitcheck/internal/server"
	"github.com/mmynk/splitcheck/internal/storage/cloud"
	"github.com/mmynk/splitcheck/pkg/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	logging.Setup(cfg.LogFormat, cfg.LogLevel)

	rdb, err := cloud.NewClient(context.Background(), cfg.RedisAddr)
	if err != nil {
		slog.Error("Failed to connect to redis", "error", err, "addr", cfg.RedisAddr)
		os.Exit(1)
	}
	defer rdb.Close()
	slog.Info("Storage initialized", "redis", cfg.RedisAddr, "ttl", cfg.ReceiptTTL)

	store := cloud.New(rdb, cfg.ReceiptTTL)

	handler := server.New(store).Routes(server.Options{
		RateLimit:       cfg.RateLimit,
		RateLimitWindow: cfg.RateLimitWindow,
	})
	handler = loggingMiddleware(corsMiddleware(handler))

	// h2c allows HTTP/2 without TLS for clients behind a local proxy.
	h2cHandler := h2c.NewHandler(handler, &http2.Server{})

	srv := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      h2cHandler,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	slog.Info("Receipt server starting", "address", cfg.AppAddr)
	if err := srv.ListenAndServe(); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

// loggingMiddleware logs all incoming requests
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		next.ServeHTTP(w, r)

		slog.Info("Request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// corsMiddleware adds CORS headers for browser access
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Device-ID, X-Share-Key")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
