package main

import (
	"log/slog"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/mmynk/splitcheck/internal/config"
	"github.com/mmynk/splitcheck/internal/server"
	"github.com/mmynk/splitcheck/internal/storage/cloud"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the receipt sync server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		rdb, err := cloud.NewClient(cmd.Context(), cfg.RedisAddr)
		if err != nil {
			return err
		}
		defer rdb.Close()

		handler := server.New(cloud.New(rdb, cfg.ReceiptTTL)).Routes(server.Options{
			RateLimit:       cfg.RateLimit,
			RateLimitWindow: cfg.RateLimitWindow,
		})

		srv := &http.Server{
			Addr:         cfg.AppAddr,
			Handler:      handler,
			ReadTimeout:  cfg.AppReadTimeout,
			WriteTimeout: cfg.AppWriteTimeout,
		}
		slog.Info("Receipt server starting", "address", cfg.AppAddr)
		return srv.ListenAndServe()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
