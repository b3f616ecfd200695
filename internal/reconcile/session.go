// Package reconcile presents one receipt view and one mutation API regardless
// of whether the receipt is local-only or cloud-backed, and keeps the
// on-device cache convergent with the cloud copy.
//
// Mutations are two-phase: the tentative state is applied to the in-memory
// cache immediately, then the matching store or network call runs. For
// local-only receipts the tentative state is also final. For cloud receipts
// the authoritative response replaces the tentative state on success; on
// failure the tentative state stays, flagged unconfirmed, and the error is
// recorded for the caller to surface. Nothing is rolled back automatically.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/mmynk/splitcheck/internal/client"
	"github.com/mmynk/splitcheck/internal/httpx"
	"github.com/mmynk/splitcheck/internal/models"
	"github.com/mmynk/splitcheck/internal/storage"
)

// Source says where a receipt's canonical copy lives.
type Source string

const (
	SourceLocal Source = "local"
	SourceCloud Source = "cloud"
)

// Session manages one receipt across the local repository and the cloud API.
type Session struct {
	receiptID string
	deviceID  string
	shareKey  string // collaborator capability; empty for the owning device
	local     storage.LocalStore
	cloud     *client.Client

	// fetches collapses overlapping fetch triggers into the in-progress
	// call instead of issuing duplicates. It does not cancel anything.
	fetches singleflight.Group

	mu          sync.Mutex
	receipt     *models.Receipt
	digest      string
	errMsg      string
	loading     bool
	unconfirmed bool
}

// NewSession creates a session for the device that owns the local copy.
func NewSession(receiptID, deviceID string, local storage.LocalStore, cloud *client.Client) *Session {
	return &Session{
		receiptID: receiptID,
		deviceID:  deviceID,
		local:     local,
		cloud:     cloud,
	}
}

// NewCollaboratorSession creates a session that authenticates with a share
// key instead of device ownership, for opening someone else's shared receipt.
func NewCollaboratorSession(receiptID, deviceID, shareKey string, local storage.LocalStore, cloud *client.Client) *Session {
	s := NewSession(receiptID, deviceID, local, cloud)
	s.shareKey = shareKey
	return s
}

// Receipt returns the current cached view, which may be tentative after a
// failed cloud mutation (see Unconfirmed).
func (s *Session) Receipt() *models.Receipt {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.receipt
}

// Source classifies the receipt: cloud iff the cached record says isShared.
// Re-evaluated on every cache change, so it flips right after a promotion.
func (s *Session) Source() Source {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sourceLocked()
}

func (s *Session) sourceLocked() Source {
	if s.receipt != nil && s.receipt.IsShared {
		return SourceCloud
	}
	return SourceLocal
}

// Err returns the message of the last failed fetch or mutation, empty after
// a success.
func (s *Session) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errMsg
}

// Loading reports whether a manual refresh is in flight.
func (s *Session) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Unconfirmed reports whether the cached view holds a tentative mutation the
// cloud has not acknowledged.
func (s *Session) Unconfirmed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unconfirmed
}

func (s *Session) creds() client.Credentials {
	return client.Credentials{DeviceID: s.deviceID, ShareKey: s.shareKey}
}

// Fetch loads the canonical copy: straight from the local repository for
// local receipts, an authenticated GET for cloud ones. Overlapping calls
// collapse into the one in-progress fetch.
func (s *Session) Fetch(ctx context.Context) error {
	_, err, _ := s.fetches.Do("fetch", func() (any, error) {
		return nil, s.fetch(ctx)
	})
	return err
}

func (s *Session) fetch(ctx context.Context) error {
	cached, err := s.local.Get(ctx, s.receiptID)
	if err != nil && !errors.Is(err, httpx.ErrNotFound) {
		s.setErr(err)
		return err
	}

	// The local record decides the source. No record at all with a share key
	// in hand means a collaborator opening a shared link: go to the cloud.
	isCloud := (cached != nil && cached.IsShared) || (cached == nil && s.shareKey != "")
	if !isCloud {
		if cached == nil {
			err := fmt.Errorf("%w: %s", httpx.ErrNotFound, s.receiptID)
			s.setErr(err)
			return err
		}
		s.mu.Lock()
		s.receipt = cached
		s.digest = digest(cached)
		s.errMsg = ""
		s.mu.Unlock()
		return nil
	}

	remote, err := s.cloud.GetReceipt(ctx, s.receiptID, s.creds())
	if err != nil {
		s.setErr(err)
		// Fall back to the last-known local cache when we have one.
		if cached != nil {
			s.mu.Lock()
			if s.receipt == nil {
				s.receipt = cached
				s.digest = digest(cached)
			}
			s.mu.Unlock()
			return nil
		}
		return err
	}

	s.merge(ctx, remote)
	return nil
}

// Refresh always performs a full fetch and raises the loading flag for the
// duration, for a user-visible spinner.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.Lock()
	s.loading = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
	}()
	return s.Fetch(ctx)
}

// merge runs an incoming cloud payload through change detection. The cache
// and its flushed local copy are touched only when the digest differs, so an
// echoed unchanged state costs nothing and repeated merges are idempotent.
// Returns whether a write happened.
func (s *Session) merge(ctx context.Context, incoming *models.Receipt) bool {
	d := digest(incoming)

	s.mu.Lock()
	if d == s.digest && s.receipt != nil {
		s.unconfirmed = false
		s.errMsg = ""
		s.mu.Unlock()
		return false
	}
	s.receipt = incoming
	s.digest = d
	s.unconfirmed = false
	s.errMsg = ""
	s.mu.Unlock()

	if err := s.local.Replace(ctx, s.receiptID, incoming); err != nil {
		if errors.Is(err, httpx.ErrNotFound) {
			err = s.local.Add(ctx, incoming)
		}
		if err != nil {
			slog.Warn("failed to flush cloud receipt to local cache",
				"receipt_id", s.receiptID, "error", err)
		}
	}
	return true
}

// SetLineItems replaces the receipt's line items through whichever source is
// active.
func (s *Session) SetLineItems(ctx context.Context, items []models.LineItem) error {
	return s.mutate(ctx,
		func(r *models.Receipt) {
			r.LineItems = items
		},
		func() error {
			return s.local.SetLineItems(ctx, s.receiptID, items)
		},
		func() (*models.Receipt, error) {
			return s.cloud.SetLineItems(ctx, s.receiptID, items, s.creds())
		},
	)
}

// SetAdjustments replaces the receipt's adjustments.
func (s *Session) SetAdjustments(ctx context.Context, adjustments []models.Adjustment) error {
	return s.mutate(ctx,
		func(r *models.Receipt) {
			r.Adjustments = adjustments
		},
		func() error {
			return s.local.SetAdjustments(ctx, s.receiptID, adjustments)
		},
		func() (*models.Receipt, error) {
			return s.cloud.SetAdjustments(ctx, s.receiptID, adjustments, s.creds())
		},
	)
}

// AddPerson adds a person, de-duplicated by id on both sources.
func (s *Session) AddPerson(ctx context.Context, person models.Person) error {
	return s.mutate(ctx,
		func(r *models.Receipt) {
			if r.Person(person.ID) == nil {
				r.People = append(r.People, person)
			}
		},
		func() error {
			return s.local.AddPerson(ctx, s.receiptID, person)
		},
		func() (*models.Receipt, error) {
			updated, _, err := s.cloud.AddPerson(ctx, s.receiptID, person, s.creds())
			return updated, err
		},
	)
}

// RemovePerson removes a person; the local repository also cascades their
// portion entries out of every item.
func (s *Session) RemovePerson(ctx context.Context, personID string) error {
	return s.mutate(ctx,
		func(r *models.Receipt) {
			people := make([]models.Person, 0, len(r.People))
			for _, p := range r.People {
				if p.ID != personID {
					people = append(people, p)
				}
			}
			r.People = people
		},
		func() error {
			return s.local.RemovePerson(ctx, s.receiptID, personID)
		},
		func() (*models.Receipt, error) {
			return s.cloud.RemovePerson(ctx, s.receiptID, personID, s.creds())
		},
	)
}

// mutate is the uniform two-phase mutation protocol.
func (s *Session) mutate(
	ctx context.Context,
	optimistic func(*models.Receipt),
	localOp func() error,
	cloudOp func() (*models.Receipt, error),
) error {
	s.mu.Lock()
	if s.receipt == nil {
		s.mu.Unlock()
		err := fmt.Errorf("%w: receipt not loaded", httpx.ErrValidation)
		s.setErr(err)
		return err
	}
	source := s.sourceLocked()

	// Phase one: tentative state, visible immediately.
	tentative := s.receipt.Clone()
	optimistic(tentative)
	s.receipt = tentative
	if source == SourceCloud {
		s.unconfirmed = true
	}
	s.mu.Unlock()

	if source == SourceLocal {
		// Local is also final; the store is the single writer and applies
		// calls in invocation order.
		if err := localOp(); err != nil {
			s.setErr(err)
			return err
		}
		committed, err := s.local.Get(ctx, s.receiptID)
		if err != nil {
			s.setErr(err)
			return err
		}
		s.mu.Lock()
		s.receipt = committed
		s.digest = digest(committed)
		s.errMsg = ""
		s.mu.Unlock()
		return nil
	}

	// Phase two: the cloud answers with the canonical document.
	canonical, err := cloudOp()
	if err != nil {
		// No rollback: the tentative state stays, flagged unconfirmed, and
		// the caller is expected to trigger a manual refresh.
		s.setErr(err)
		return err
	}
	s.merge(ctx, canonical)
	return nil
}

// MoveToCloud promotes the receipt to a shared cloud record and returns its
// share key. The transition is one-way and idempotent: an already promoted
// receipt returns its existing key, a promoted receipt that somehow lost its
// key gets one attached with a single PUT, and a local receipt is submitted
// in full.
func (s *Session) MoveToCloud(ctx context.Context) (string, error) {
	s.mu.Lock()
	current := s.receipt
	s.mu.Unlock()
	if current == nil {
		err := fmt.Errorf("%w: receipt not loaded", httpx.ErrValidation)
		s.setErr(err)
		return "", err
	}

	if current.IsShared && current.ShareKey != "" {
		return current.ShareKey, nil
	}

	key := models.NewID()

	if current.IsShared {
		updated, err := s.cloud.UpdateReceipt(ctx, s.receiptID,
			models.ReceiptPatch{ShareKey: &key}, s.creds())
		if err != nil {
			s.setErr(err)
			return "", err
		}
		s.adopt(ctx, updated)
		return key, nil
	}

	submission := current.Clone()
	submission.DeviceID = s.deviceID
	submission.OwnerID = s.deviceID
	submission.ShareKey = key

	saved, err := s.cloud.CreateReceipt(ctx, submission, s.deviceID)
	if err != nil {
		s.setErr(err)
		return "", err
	}

	s.adopt(ctx, saved)
	slog.Info("Receipt moved to cloud", "receipt_id", s.receiptID)
	return key, nil
}

// adopt replaces the cache and the local copy with a canonical document that
// changed fields outside the mutable digest (the cloud stamps).
func (s *Session) adopt(ctx context.Context, canonical *models.Receipt) {
	s.mu.Lock()
	s.receipt = canonical
	s.digest = digest(canonical)
	s.errMsg = ""
	s.unconfirmed = false
	s.mu.Unlock()

	if err := s.local.Replace(ctx, s.receiptID, canonical); err != nil {
		if errors.Is(err, httpx.ErrNotFound) {
			err = s.local.Add(ctx, canonical)
		}
		if err != nil {
			slog.Warn("failed to flush promoted receipt to local cache",
				"receipt_id", s.receiptID, "error", err)
		}
	}
}

func (s *Session) setErr(err error) {
	s.mu.Lock()
	s.errMsg = err.Error()
	s.mu.Unlock()
}
