// Command splitcheck inspects and shares receipts from the local database.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mmynk/splitcheck/internal/client"
	"github.com/mmynk/splitcheck/internal/config"
	"github.com/mmynk/splitcheck/internal/storage/local"
	"github.com/mmynk/splitcheck/pkg/logging"
)

var (
	store     *local.Store
	apiClient *client.Client
	deviceID  string

	shareKey string
)

var rootCmd = &cobra.Command{
	Use:   "splitcheck",
	Short: "Split shared bills from the command line",
	Long: `splitcheck works against the local receipt database and, for shared
receipts, the sync server. Receipts stay on this device until shared.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		logging.Setup(cfg.LogFormat, "warn")

		store, err = local.New(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", cfg.DBPath, err)
		}
		deviceID, err = store.DeviceID(cmd.Context())
		if err != nil {
			return err
		}
		apiClient = client.New(cfg.ServerURL)
		return nil
	},
	PersistentPostRun: func(*cobra.Command, []string) {
		if store != nil {
			store.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&shareKey, "share-key", "",
		"share key for a receipt owned by another device")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
