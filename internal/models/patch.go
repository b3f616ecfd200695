package models

// ReceiptPatch is a partial receipt for top-level field updates. Nil fields
// are left untouched; set fields replace the stored value wholesale. This is
// deliberately a shallow merge: two collaborators racing updates to the same
// field are resolved last-write-wins at field granularity, with no version
// counter.
type ReceiptPatch struct {
	BillName    *string          `json:"billName,omitempty"`
	ImageURL    *string          `json:"imageUrl,omitempty"`
	Metadata    *ReceiptMetadata `json:"metadata,omitempty"`
	People      *[]Person        `json:"people,omitempty"`
	LineItems   *[]LineItem      `json:"lineItems,omitempty"`
	Adjustments *[]Adjustment    `json:"adjustments,omitempty"`
	DeviceID    *string          `json:"deviceId,omitempty"`
	OwnerID     *string          `json:"ownerId,omitempty"`
	ShareKey    *string          `json:"shareKey,omitempty"`
}

// Apply merges the patch onto the receipt in place.
func (p *ReceiptPatch) Apply(r *Receipt) {
	if p.BillName != nil {
		r.BillName = *p.BillName
	}
	if p.ImageURL != nil {
		r.ImageURL = *p.ImageURL
	}
	if p.Metadata != nil {
		r.Metadata = *p.Metadata
	}
	if p.People != nil {
		r.People = *p.People
	}
	if p.LineItems != nil {
		r.LineItems = *p.LineItems
	}
	if p.Adjustments != nil {
		r.Adjustments = *p.Adjustments
	}
	if p.DeviceID != nil {
		r.DeviceID = *p.DeviceID
	}
	if p.OwnerID != nil {
		r.OwnerID = *p.OwnerID
	}
	if p.ShareKey != nil {
		r.ShareKey = *p.ShareKey
	}
}
