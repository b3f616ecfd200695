// Package local provides a SQLite-backed implementation of storage.LocalStore.
//
// Receipts are stored as full JSON documents in a single versioned container
// keyed by receipt id, mirroring the wire shape exactly. The device id lives
// in a small side table so it survives restarts.
package local

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/mmynk/splitcheck/internal/httpx"
	"github.com/mmynk/splitcheck/internal/models"
	"github.com/mmynk/splitcheck/internal/storage"
)

// Ensure Store implements storage.LocalStore
var _ storage.LocalStore = (*Store)(nil)

// containerVersion is recorded in PRAGMA user_version so future schema
// changes can migrate existing containers.
const containerVersion = 1

const schema = `
CREATE TABLE IF NOT EXISTS receipts (
    id TEXT PRIMARY KEY,
    document TEXT NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS device (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

// Store implements storage.LocalStore using SQLite.
//
// A single mutex serializes mutations, giving the same ordering guarantee the
// app relies on: two mutations issued back to back are applied in invocation
// order, so there are no lost updates on the local device.
type Store struct {
	mu sync.Mutex
	db *sql.DB
}

// New opens (or creates) the container at dbPath and runs migrations.
func New(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", containerVersion)); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to stamp container version: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Add inserts a new receipt document.
func (s *Store) Add(ctx context.Context, r *models.Receipt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to encode receipt: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO receipts (id, document, updated_at) VALUES (?, ?, ?)",
		r.ID, string(doc), time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert receipt: %w", err)
	}
	return nil
}

// Get retrieves a receipt by id.
func (s *Store) Get(ctx context.Context, id string) (*models.Receipt, error) {
	var doc string
	err := s.db.QueryRowContext(ctx,
		"SELECT document FROM receipts WHERE id = ?", id,
	).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", httpx.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get receipt: %w", err)
	}

	var r models.Receipt
	if err := json.Unmarshal([]byte(doc), &r); err != nil {
		return nil, fmt.Errorf("failed to decode receipt %s: %w", id, err)
	}
	return &r, nil
}

// List returns every stored receipt, most recently updated first.
func (s *Store) List(ctx context.Context) ([]*models.Receipt, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT document FROM receipts ORDER BY updated_at DESC",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list receipts: %w", err)
	}
	defer rows.Close()

	var receipts []*models.Receipt
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("failed to scan receipt: %w", err)
		}
		var r models.Receipt
		if err := json.Unmarshal([]byte(doc), &r); err != nil {
			return nil, fmt.Errorf("failed to decode receipt: %w", err)
		}
		receipts = append(receipts, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate receipts: %w", err)
	}
	return receipts, nil
}

// Remove deletes a receipt. Removing an absent id is a no-op.
func (s *Store) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, "DELETE FROM receipts WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to remove receipt: %w", err)
	}
	return nil
}

// Replace overwrites the stored document for id.
func (s *Store) Replace(ctx context.Context, id string, r *models.Receipt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to encode receipt: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		"UPDATE receipts SET document = ?, updated_at = ? WHERE id = ?",
		string(doc), time.Now().Unix(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to replace receipt: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to replace receipt: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", httpx.ErrNotFound, id)
	}
	return nil
}

// AddPerson appends a person to the receipt, de-duplicated by person id.
func (s *Store) AddPerson(ctx context.Context, id string, person models.Person) error {
	return s.mutate(ctx, id, func(r *models.Receipt) {
		if r.Person(person.ID) != nil {
			return
		}
		r.People = append(r.People, person)
	})
}

// RemovePerson removes the person and cascades: their portion entries are
// stripped from every line item and adjustment in the same transaction, so a
// removed person can never linger in a split.
func (s *Store) RemovePerson(ctx context.Context, id, personID string) error {
	return s.mutate(ctx, id, func(r *models.Receipt) {
		people := make([]models.Person, 0, len(r.People))
		for _, p := range r.People {
			if p.ID != personID {
				people = append(people, p)
			}
		}
		r.People = people

		for i := range r.LineItems {
			if r.LineItems[i].Splitting == nil {
				continue
			}
			r.LineItems[i].Splitting.Portions = models.StripPerson(r.LineItems[i].Splitting.Portions, personID)
		}
		for i := range r.Adjustments {
			r.Adjustments[i].Splitting.Portions = models.StripPerson(r.Adjustments[i].Splitting.Portions, personID)
		}
	})
}

// SetLineItems replaces the receipt's line items, normalizing portions so
// zero weights and duplicate person ids never persist.
func (s *Store) SetLineItems(ctx context.Context, id string, items []models.LineItem) error {
	return s.mutate(ctx, id, func(r *models.Receipt) {
		for i := range items {
			if items[i].Splitting != nil {
				items[i].Splitting.Portions = models.NormalizePortions(items[i].Splitting.Portions)
			}
		}
		r.LineItems = items
	})
}

// SetAdjustments replaces the receipt's adjustments, normalizing portions.
func (s *Store) SetAdjustments(ctx context.Context, id string, adjustments []models.Adjustment) error {
	return s.mutate(ctx, id, func(r *models.Receipt) {
		for i := range adjustments {
			adjustments[i].Splitting.Portions = models.NormalizePortions(adjustments[i].Splitting.Portions)
		}
		r.Adjustments = adjustments
	})
}

// DeviceID returns this device's persisted identifier, minting and storing
// one on first use.
func (s *Store) DeviceID(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var id string
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM device WHERE key = 'device_id'",
	).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return "", fmt.Errorf("failed to load device id: %w", err)
	}

	id = models.NewID()
	if _, err := s.db.ExecContext(ctx,
		"INSERT INTO device (key, value) VALUES ('device_id', ?)", id,
	); err != nil {
		return "", fmt.Errorf("failed to persist device id: %w", err)
	}
	return id, nil
}

// mutate runs a read-modify-write of one document inside a transaction.
func (s *Store) mutate(ctx context.Context, id string, fn func(*models.Receipt)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var doc string
	err = tx.QueryRowContext(ctx,
		"SELECT document FROM receipts WHERE id = ?", id,
	).Scan(&doc)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%w: %s", httpx.ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("failed to get receipt: %w", err)
	}

	var r models.Receipt
	if err := json.Unmarshal([]byte(doc), &r); err != nil {
		return fmt.Errorf("failed to decode receipt %s: %w", id, err)
	}

	fn(&r)

	updated, err := json.Marshal(&r)
	if err != nil {
		return fmt.Errorf("failed to encode receipt: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE receipts SET document = ?, updated_at = ? WHERE id = ?",
		string(updated), time.Now().Unix(), id,
	); err != nil {
		return fmt.Errorf("failed to update receipt: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
