// Package storage provides abstractions for persistent receipt storage.
package storage

import (
	"context"

	"github.com/mmynk/splitcheck/internal/models"
)

// LocalStore is the durable single-device repository of receipt documents.
// This abstraction lets the reconciler and CLI run against any on-device
// backend without changing callers.
//
// All mutations are atomic: each call reads the latest committed state and
// writes a new committed state, and implementations serialize writers.
type LocalStore interface {
	// Add inserts a new receipt document.
	Add(ctx context.Context, r *models.Receipt) error

	// Get retrieves a receipt by id; httpx.ErrNotFound when absent.
	Get(ctx context.Context, id string) (*models.Receipt, error)

	// List returns every stored receipt.
	List(ctx context.Context) ([]*models.Receipt, error)

	// Remove deletes a receipt; removing an absent id is a no-op.
	Remove(ctx context.Context, id string) error

	// Replace overwrites the stored document for id.
	Replace(ctx context.Context, id string, r *models.Receipt) error

	// AddPerson appends a person, de-duplicated by person id.
	AddPerson(ctx context.Context, id string, person models.Person) error

	// RemovePerson removes the person and strips their portions from every
	// line item and adjustment in the same transaction.
	RemovePerson(ctx context.Context, id, personID string) error

	// SetLineItems replaces the receipt's line items.
	SetLineItems(ctx context.Context, id string, items []models.LineItem) error

	// SetAdjustments replaces the receipt's adjustments.
	SetAdjustments(ctx context.Context, id string, adjustments []models.Adjustment) error

	// DeviceID returns this device's persisted identifier, minting one on
	// first use.
	DeviceID(ctx context.Context) (string, error)

	// Close releases any resources held by the store.
	Close() error
}

// CloudStore is the shared, TTL-bounded repository behind the receipt API.
// Authorization is enforced by the boundary that calls it, not in here.
type CloudStore interface {
	// Save upserts the full document, stamping isShared and lastSyncedAt and
	// refreshing the TTL.
	Save(ctx context.Context, r *models.Receipt) (*models.Receipt, error)

	// Get retrieves a receipt; httpx.ErrNotFound when absent or expired.
	Get(ctx context.Context, id string) (*models.Receipt, error)

	// Update fetches the document, shallow-merges the patch onto its
	// top-level fields and saves the result.
	Update(ctx context.Context, id string, patch models.ReceiptPatch) (*models.Receipt, error)

	// AddPerson appends a person; adding an existing id is a no-op.
	AddPerson(ctx context.Context, id string, person models.Person) (*models.Receipt, error)

	// RemovePerson removes the person from the people list.
	RemovePerson(ctx context.Context, id, personID string) (*models.Receipt, error)

	// ListByDevice returns every receipt owned by or created on the device.
	ListByDevice(ctx context.Context, deviceID string) (map[string]*models.Receipt, error)
}
