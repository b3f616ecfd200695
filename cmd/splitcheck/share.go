package main

import (
	"github.com/spf13/cobra"
)

var shareCmd = &cobra.Command{
	Use:   "share [receipt-id]",
	Short: "Move a receipt to the cloud and print its share key",
	Long: `Moves a local receipt to the sync server so other devices can open
it. Sharing is one-way; running share again prints the existing key.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s := newSession(args[0])
		if err := s.Fetch(cmd.Context()); err != nil {
			return err
		}
		key, err := s.MoveToCloud(cmd.Context())
		if err != nil {
			return err
		}
		cmd.Printf("Receipt shared.\n\n  receipt id: %s\n  share key:  %s\n", args[0], key)
		return nil
	},
}

var refreshCmd = &cobra.Command{
	Use:   "refresh [receipt-id]",
	Short: "Pull the latest copy of a shared receipt",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s := newSession(args[0])
		if err := s.Refresh(cmd.Context()); err != nil {
			return err
		}
		if msg := s.Err(); msg != "" {
			cmd.Printf("Refreshed from local cache only: %s\n", msg)
			return nil
		}
		cmd.Printf("Up to date (%s).\n", s.Source())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(shareCmd)
	rootCmd.AddCommand(refreshCmd)
}
