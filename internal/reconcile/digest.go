package reconcile

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/mmynk/splitcheck/internal/models"
)

// mutableFields is the slice of the document that collaborators can change.
// Struct field order fixes the serialization, so equal states always produce
// equal digests.
type mutableFields struct {
	LineItems   []models.LineItem    `json:"lineItems"`
	People      []models.Person      `json:"people"`
	Adjustments []models.Adjustment  `json:"adjustments"`
	DeviceID    string               `json:"deviceId"`
	BillName    string               `json:"billName"`
}

// digest computes a content hash over the mutable fields of a receipt.
// Incoming cloud payloads are merged only when their digest differs from the
// cached one, which makes repeated reconciliation of an echoed state a no-op.
func digest(r *models.Receipt) string {
	if r == nil {
		return ""
	}
	doc, err := json.Marshal(mutableFields{
		LineItems:   r.LineItems,
		People:      r.People,
		Adjustments: r.Adjustments,
		DeviceID:    r.DeviceID,
		BillName:    r.BillName,
	})
	if err != nil {
		// Marshal of these types cannot fail; treat as always-different.
		return ""
	}
	sum := sha256.Sum256(doc)
	return hex.EncodeToString(sum[:])
}
