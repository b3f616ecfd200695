package main

import (
	"github.com/spf13/cobra"

	"github.com/mmynk/splitcheck/internal/calculator"
	"github.com/mmynk/splitcheck/internal/reconcile"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List receipts stored on this device",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		receipts, err := store.List(cmd.Context())
		if err != nil {
			return err
		}
		if len(receipts) == 0 {
			cmd.Println("No receipts.")
			return nil
		}
		for _, r := range receipts {
			marker := " "
			if r.IsShared {
				marker = "*"
			}
			cmd.Printf("%s %s  %-24s %s\n", marker, r.ID, r.BillName,
				calculator.FormatCents(calculator.ReceiptTotal(r)))
		}
		cmd.Println("\n* shared")
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show [receipt-id]",
	Short: "Show a receipt's items and allocation status",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s := newSession(args[0])
		if err := s.Fetch(cmd.Context()); err != nil {
			return err
		}
		r := s.Receipt()

		cmd.Printf("%s  (%s)\n\n", r.BillName, s.Source())
		for i := range r.LineItems {
			li := &r.LineItems[i]
			cmd.Printf("  %-28s %10s  [%s]\n", li.Name,
				calculator.FormatCents(li.TotalPriceInCents), calculator.ItemStatus(li))
		}
		for i := range r.Adjustments {
			adj := &r.Adjustments[i]
			cmd.Printf("  %-28s %10s\n", adj.Name, calculator.FormatCents(adj.AmountInCents))
		}
		cmd.Printf("\n  Total: %s\n", calculator.FormatCents(calculator.ReceiptTotal(r)))

		if ok, incomplete := calculator.ValidateAllocations(r); !ok {
			cmd.Printf("  %d item(s) not fully split\n", len(incomplete))
		}
		if msg := s.Err(); msg != "" {
			cmd.Printf("\n  warning: %s\n", msg)
		}
		return nil
	},
}

var summaryCmd = &cobra.Command{
	Use:   "summary [receipt-id]",
	Short: "Show what each person owes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s := newSession(args[0])
		if err := s.Fetch(cmd.Context()); err != nil {
			return err
		}
		r := s.Receipt()

		cmd.Printf("%s\n\n", r.BillName)
		for _, p := range r.People {
			cmd.Printf("  %-20s %10s\n", p.Name,
				calculator.FormatCents(calculator.PersonTotal(r, p.ID)))
		}
		if unallocated := calculator.UnallocatedAmount(r); unallocated != 0 {
			cmd.Printf("  %-20s %10s\n", "(unallocated)",
				calculator.FormatCents(unallocated))
		}
		cmd.Printf("\n  Total: %s\n", calculator.FormatCents(calculator.ReceiptTotal(r)))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(summaryCmd)
}

func newSession(receiptID string) *reconcile.Session {
	if shareKey != "" {
		return reconcile.NewCollaboratorSession(receiptID, deviceID, shareKey, store, apiClient)
	}
	return reconcile.NewSession(receiptID, deviceID, store, apiClient)
}
