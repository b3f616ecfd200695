package models

import (
	"time"

	"github.com/google/uuid"
)

// UnallocatedID is the reserved pseudo-person id marking a slice of an item as
// deliberately unassigned. It may appear in portions lists but never resolves
// to a real person's total.
const UnallocatedID = "unallocated"

// SplitMethod determines how an adjustment's amount is apportioned.
type SplitMethod string

const (
	// SplitEqual divides the amount evenly among participating people.
	SplitEqual SplitMethod = "equal"
	// SplitProportional divides the amount in proportion to each person's
	// line-item total.
	SplitProportional SplitMethod = "proportional"
	// SplitManual divides the amount by explicit integer portions, the same
	// way line items are split.
	SplitManual SplitMethod = "manual"
)

// Person is a participant on a receipt. Ids are unique within one receipt.
type Person struct {
	ID   string `json:"id" validate:"required"`
	Name string `json:"name" validate:"required"`
}

// PersonPortion assigns an integer weight to a person on a specific item.
// A weight reduced to zero must remove the entry rather than persist a zero.
type PersonPortion struct {
	PersonID string `json:"personId" validate:"required"`
	Portions int64  `json:"portions" validate:"gt=0"`
}

// Splitting holds the weighted portions of a line item. Line items always use
// manual weighted-portion splitting; there is no method field.
type Splitting struct {
	Portions []PersonPortion `json:"portions" validate:"dive"`
}

// AdjustmentSplitting picks the split method for an adjustment, with optional
// explicit portions for the equal and manual methods.
type AdjustmentSplitting struct {
	Method   SplitMethod     `json:"method" validate:"required,oneof=equal proportional manual"`
	Portions []PersonPortion `json:"portions,omitempty" validate:"omitempty,dive"`
}

// LineItem is an individual purchase on the receipt.
type LineItem struct {
	ID                string     `json:"id" validate:"required"`
	Name              string     `json:"name" validate:"required"`
	Quantity          int64      `json:"quantity"`
	TotalPriceInCents int64      `json:"totalPriceInCents"`
	Splitting         *Splitting `json:"splitting,omitempty"`
}

// Portions returns the item's portions list, empty when the item is unsplit.
func (li *LineItem) Portions() []PersonPortion {
	if li.Splitting == nil {
		return nil
	}
	return li.Splitting.Portions
}

// Adjustment is a surcharge, tip or discount on the receipt. Discounts carry
// negative amounts.
type Adjustment struct {
	ID            string              `json:"id" validate:"required"`
	Name          string              `json:"name" validate:"required"`
	AmountInCents int64               `json:"amountInCents"`
	Splitting     AdjustmentSplitting `json:"splitting"`
}

// ReceiptMetadata carries what the scanner extracted about the bill itself.
type ReceiptMetadata struct {
	BusinessName    string `json:"businessName,omitempty"`
	TotalInCents    int64  `json:"totalInCents"`
	DateAsISOString string `json:"dateAsISOString,omitempty"`
}

// Receipt is the full bill document. The cloud-only fields are zero until the
// receipt is promoted; a cloud receipt always has IsShared set and a local-only
// receipt never carries a ShareKey.
type Receipt struct {
	ID          string          `json:"id" validate:"required"`
	CreatedAt   string          `json:"createdAt"`
	BillName    string          `json:"billName,omitempty"`
	ImageURL    string          `json:"imageUrl"`
	Metadata    ReceiptMetadata `json:"metadata"`
	People      []Person        `json:"people" validate:"dive"`
	LineItems   []LineItem      `json:"lineItems" validate:"dive"`
	Adjustments []Adjustment    `json:"adjustments" validate:"dive"`

	// Cloud-only fields, stamped on promotion.
	DeviceID     string `json:"deviceId,omitempty"`
	OwnerID      string `json:"ownerId,omitempty"`
	IsShared     bool   `json:"isShared,omitempty"`
	ShareKey     string `json:"shareKey,omitempty"`
	LastSyncedAt string `json:"lastSyncedAt,omitempty"`
}

// CreateReceiptParams is the input for NewReceipt; ids are assigned here.
type CreateReceiptParams struct {
	BillName    string
	ImageURL    string
	Metadata    ReceiptMetadata
	LineItems   []LineItem
	Adjustments []Adjustment
}

// NewReceipt builds a local-only receipt from scan output or a manual
// template, assigning fresh ids to the receipt and every item.
func NewReceipt(params CreateReceiptParams) *Receipt {
	r := &Receipt{
		ID:          NewID(),
		CreatedAt:   time.Now().UTC().Format(time.RFC3339),
		BillName:    params.BillName,
		ImageURL:    params.ImageURL,
		Metadata:    params.Metadata,
		People:      []Person{},
		LineItems:   append([]LineItem(nil), params.LineItems...),
		Adjustments: append([]Adjustment(nil), params.Adjustments...),
	}
	for i := range r.LineItems {
		r.LineItems[i].ID = NewID()
	}
	for i := range r.Adjustments {
		r.Adjustments[i].ID = NewID()
	}
	return r
}

// NewID returns a fresh identifier for receipts, people, items and share keys.
func NewID() string {
	return uuid.New().String()
}

// Person returns the person with the given id, or nil.
func (r *Receipt) Person(id string) *Person {
	for i := range r.People {
		if r.People[i].ID == id {
			return &r.People[i]
		}
	}
	return nil
}

// Clone deep-copies the receipt so callers can mutate the copy without
// aliasing store or cache state.
func (r *Receipt) Clone() *Receipt {
	if r == nil {
		return nil
	}
	out := *r
	out.People = append([]Person(nil), r.People...)
	out.LineItems = make([]LineItem, len(r.LineItems))
	for i, li := range r.LineItems {
		out.LineItems[i] = li
		if li.Splitting != nil {
			out.LineItems[i].Splitting = &Splitting{
				Portions: append([]PersonPortion(nil), li.Splitting.Portions...),
			}
		}
	}
	out.Adjustments = make([]Adjustment, len(r.Adjustments))
	for i, adj := range r.Adjustments {
		out.Adjustments[i] = adj
		out.Adjustments[i].Splitting.Portions = append([]PersonPortion(nil), adj.Splitting.Portions...)
	}
	return &out
}

// ChargeKind discriminates the two kinds of monetary charges on a receipt.
type ChargeKind string

const (
	ChargeLineItem   ChargeKind = "lineItem"
	ChargeAdjustment ChargeKind = "adjustment"
)

// Charge is a uniform view over line items and adjustments for code that
// walks every charge on a receipt (totals, unallocated scans).
type Charge struct {
	Kind          ChargeKind
	ID            string
	Name          string
	AmountInCents int64
	Portions      []PersonPortion
}

// Charges flattens the receipt's line items and adjustments into tagged
// charges, in receipt order with line items first.
func (r *Receipt) Charges() []Charge {
	charges := make([]Charge, 0, len(r.LineItems)+len(r.Adjustments))
	for i := range r.LineItems {
		li := &r.LineItems[i]
		charges = append(charges, Charge{
			Kind:          ChargeLineItem,
			ID:            li.ID,
			Name:          li.Name,
			AmountInCents: li.TotalPriceInCents,
			Portions:      li.Portions(),
		})
	}
	for i := range r.Adjustments {
		adj := &r.Adjustments[i]
		charges = append(charges, Charge{
			Kind:          ChargeAdjustment,
			ID:            adj.ID,
			Name:          adj.Name,
			AmountInCents: adj.AmountInCents,
			Portions:      adj.Splitting.Portions,
		})
	}
	return charges
}
