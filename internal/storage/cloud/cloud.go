// Package cloud provides a Redis-backed implementation of storage.CloudStore.
//
// Receipts are stored as full JSON documents under "receipt:{id}" with a
// 30-day TTL that is refreshed on every successful write, so actively shared
// receipts stay alive and abandoned ones expire on their own.
package cloud

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mmynk/splitcheck/internal/httpx"
	"github.com/mmynk/splitcheck/internal/models"
	"github.com/mmynk/splitcheck/internal/storage"
)

// Ensure Store implements storage.CloudStore
var _ storage.CloudStore = (*Store)(nil)

const keyPrefix = "receipt:"

// DefaultTTL is how long a receipt survives without a write.
const DefaultTTL = 30 * 24 * time.Hour

// Store implements storage.CloudStore on Redis.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewClient creates and pings a Redis client.
func NewClient(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("storage/cloud: ping: %w", err)
	}
	return client, nil
}

// New creates a Store. A non-positive ttl falls back to DefaultTTL.
func New(rdb *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{rdb: rdb, ttl: ttl}
}

func receiptKey(id string) string {
	return keyPrefix + id
}

// Save upserts the full document, stamping the cloud metadata and refreshing
// the TTL. The returned receipt carries the stamps.
func (s *Store) Save(ctx context.Context, r *models.Receipt) (*models.Receipt, error) {
	saved := r.Clone()
	saved.IsShared = true
	saved.LastSyncedAt = time.Now().UTC().Format(time.RFC3339)

	doc, err := json.Marshal(saved)
	if err != nil {
		return nil, fmt.Errorf("failed to encode receipt: %w", err)
	}
	if err := s.rdb.Set(ctx, receiptKey(saved.ID), doc, s.ttl).Err(); err != nil {
		return nil, fmt.Errorf("failed to save receipt: %w", err)
	}
	return saved, nil
}

// Get retrieves a receipt, or httpx.ErrNotFound once the key is absent or
// has expired.
func (s *Store) Get(ctx context.Context, id string) (*models.Receipt, error) {
	doc, err := s.rdb.Get(ctx, receiptKey(id)).Bytes()
	if err == redis.Nil {
		return nil, fmt.Errorf("%w: %s", httpx.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch receipt: %w", err)
	}

	var r models.Receipt
	if err := json.Unmarshal(doc, &r); err != nil {
		return nil, fmt.Errorf("failed to decode receipt %s: %w", id, err)
	}
	return &r, nil
}

// Update fetches the document, shallow-merges the patch onto its top-level
// fields and saves the result. Racing updates to the same field resolve
// last-write-wins; there is no version counter.
func (s *Store) Update(ctx context.Context, id string, patch models.ReceiptPatch) (*models.Receipt, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	patch.Apply(current)
	return s.Save(ctx, current)
}

// AddPerson appends a person to the receipt. Adding an id that is already
// present returns the stored receipt unchanged.
func (s *Store) AddPerson(ctx context.Context, id string, person models.Person) (*models.Receipt, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Person(person.ID) != nil {
		return current, nil
	}
	people := append(append([]models.Person(nil), current.People...), person)
	return s.Update(ctx, id, models.ReceiptPatch{People: &people})
}

// RemovePerson removes the person from the people list.
func (s *Store) RemovePerson(ctx context.Context, id, personID string) (*models.Receipt, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	people := make([]models.Person, 0, len(current.People))
	for _, p := range current.People {
		if p.ID != personID {
			people = append(people, p)
		}
	}
	return s.Update(ctx, id, models.ReceiptPatch{People: &people})
}

// ListByDevice returns every receipt owned by or created on the device,
// keyed by receipt id.
func (s *Store) ListByDevice(ctx context.Context, deviceID string) (map[string]*models.Receipt, error) {
	receipts := make(map[string]*models.Receipt)

	iter := s.rdb.Scan(ctx, 0, keyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		id := iter.Val()[len(keyPrefix):]
		r, err := s.Get(ctx, id)
		if err != nil {
			// Expired between SCAN and GET.
			continue
		}
		if r.DeviceID == deviceID || r.OwnerID == deviceID {
			receipts[r.ID] = r
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan receipts: %w", err)
	}
	return receipts, nil
}
