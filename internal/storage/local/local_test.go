package local

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/mmynk/splitcheck/internal/httpx"
	"github.com/mmynk/splitcheck/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	tempDir, err := os.MkdirTemp("", "splitcheck-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	store, err := New(filepath.Join(tempDir, "receipts.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleReceipt() *models.Receipt {
	return models.NewReceipt(models.CreateReceiptParams{
		BillName: "Dinner",
		ImageURL: "https://example.com/receipt.jpg",
		Metadata: models.ReceiptMetadata{BusinessName: "Luigi's", TotalInCents: 4500},
		LineItems: []models.LineItem{
			{Name: "Pizza", Quantity: 1, TotalPriceInCents: 2000},
			{Name: "Wine", Quantity: 2, TotalPriceInCents: 2500},
		},
		Adjustments: []models.Adjustment{
			{Name: "Tip", AmountInCents: 500,
				Splitting: models.AdjustmentSplitting{Method: models.SplitEqual}},
		},
	})
}

func TestStore(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("Add and Get roundtrip", func(t *testing.T) {
		r := sampleReceipt()
		if err := store.Add(ctx, r); err != nil {
			t.Fatalf("Add failed: %v", err)
		}

		got, err := store.Get(ctx, r.ID)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if got.BillName != "Dinner" || got.Metadata.BusinessName != "Luigi's" {
			t.Errorf("unexpected receipt: %+v", got)
		}
		if len(got.LineItems) != 2 || len(got.Adjustments) != 1 {
			t.Errorf("items not preserved: %d items, %d adjustments",
				len(got.LineItems), len(got.Adjustments))
		}
	})

	t.Run("Get unknown id", func(t *testing.T) {
		_, err := store.Get(ctx, "missing")
		if !errors.Is(err, httpx.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("AddPerson de-duplicates by id", func(t *testing.T) {
		r := sampleReceipt()
		if err := store.Add(ctx, r); err != nil {
			t.Fatalf("Add failed: %v", err)
		}

		alice := models.Person{ID: "alice", Name: "Alice"}
		if err := store.AddPerson(ctx, r.ID, alice); err != nil {
			t.Fatalf("AddPerson failed: %v", err)
		}
		if err := store.AddPerson(ctx, r.ID, alice); err != nil {
			t.Fatalf("second AddPerson failed: %v", err)
		}

		got, err := store.Get(ctx, r.ID)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if len(got.People) != 1 {
			t.Errorf("expected 1 person, got %d", len(got.People))
		}
	})

	t.Run("RemovePerson cascades through portions", func(t *testing.T) {
		r := sampleReceipt()
		r.People = []models.Person{{ID: "alice", Name: "Alice"}, {ID: "bob", Name: "Bob"}}
		r.LineItems[0].Splitting = &models.Splitting{Portions: []models.PersonPortion{
			{PersonID: "alice", Portions: 1},
			{PersonID: "bob", Portions: 1},
		}}
		r.Adjustments[0].Splitting.Method = models.SplitManual
		r.Adjustments[0].Splitting.Portions = []models.PersonPortion{
			{PersonID: "alice", Portions: 2},
		}
		if err := store.Add(ctx, r); err != nil {
			t.Fatalf("Add failed: %v", err)
		}

		if err := store.RemovePerson(ctx, r.ID, "alice"); err != nil {
			t.Fatalf("RemovePerson failed: %v", err)
		}

		got, err := store.Get(ctx, r.ID)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if got.Person("alice") != nil {
			t.Error("alice still in people list")
		}
		for _, li := range got.LineItems {
			if models.FindPortion(li.Portions(), "alice") != nil {
				t.Errorf("alice still in line item %s portions", li.ID)
			}
		}
		for _, adj := range got.Adjustments {
			if models.FindPortion(adj.Splitting.Portions, "alice") != nil {
				t.Errorf("alice still in adjustment %s portions", adj.ID)
			}
		}
		if models.FindPortion(got.LineItems[0].Portions(), "bob") == nil {
			t.Error("bob's portion should survive the cascade")
		}
	})

	t.Run("SetLineItems drops zero-weight portions", func(t *testing.T) {
		r := sampleReceipt()
		if err := store.Add(ctx, r); err != nil {
			t.Fatalf("Add failed: %v", err)
		}

		items := []models.LineItem{
			{ID: "i1", Name: "Pasta", Quantity: 1, TotalPriceInCents: 1200,
				Splitting: &models.Splitting{Portions: []models.PersonPortion{
					{PersonID: "alice", Portions: 2},
					{PersonID: "bob", Portions: 0},
				}}},
		}
		if err := store.SetLineItems(ctx, r.ID, items); err != nil {
			t.Fatalf("SetLineItems failed: %v", err)
		}

		got, err := store.Get(ctx, r.ID)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		p := got.LineItems[0].Portions()
		if len(p) != 1 || p[0].PersonID != "alice" {
			t.Errorf("expected only alice's portion, got %v", p)
		}
	})

	t.Run("Replace then Remove", func(t *testing.T) {
		r := sampleReceipt()
		if err := store.Add(ctx, r); err != nil {
			t.Fatalf("Add failed: %v", err)
		}

		r.BillName = "Renamed"
		if err := store.Replace(ctx, r.ID, r); err != nil {
			t.Fatalf("Replace failed: %v", err)
		}
		got, err := store.Get(ctx, r.ID)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if got.BillName != "Renamed" {
			t.Errorf("BillName = %q, want Renamed", got.BillName)
		}

		if err := store.Remove(ctx, r.ID); err != nil {
			t.Fatalf("Remove failed: %v", err)
		}
		if _, err := store.Get(ctx, r.ID); !errors.Is(err, httpx.ErrNotFound) {
			t.Errorf("expected ErrNotFound after Remove, got %v", err)
		}
		// Removing again is a no-op.
		if err := store.Remove(ctx, r.ID); err != nil {
			t.Errorf("second Remove failed: %v", err)
		}
	})

	t.Run("Replace unknown id", func(t *testing.T) {
		if err := store.Replace(ctx, "missing", sampleReceipt()); !errors.Is(err, httpx.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("DeviceID is stable", func(t *testing.T) {
		first, err := store.DeviceID(ctx)
		if err != nil {
			t.Fatalf("DeviceID failed: %v", err)
		}
		if first == "" {
			t.Fatal("expected a minted device id")
		}
		second, err := store.DeviceID(ctx)
		if err != nil {
			t.Fatalf("DeviceID failed: %v", err)
		}
		if first != second {
			t.Errorf("device id changed: %s != %s", first, second)
		}
	})
}
