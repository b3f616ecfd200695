package calculator

import "github.com/mmynk/splitcheck/internal/models"

// Status classifies how completely a line item has been split. It is derived
// on every render, never stored.
type Status int

const (
	// StatusUnsplit means the item has no portions at all.
	StatusUnsplit Status = iota
	// StatusPartiallySplit means some portions exist but part of the item is
	// still marked unallocated.
	StatusPartiallySplit
	// StatusFullySplit means every unit of the item is attributed to a real
	// person.
	StatusFullySplit
)

func (s Status) String() string {
	switch s {
	case StatusUnsplit:
		return "unsplit"
	case StatusPartiallySplit:
		return "partially-split"
	case StatusFullySplit:
		return "fully-split"
	}
	return "unknown"
}

// ItemStatus classifies a single line item.
func ItemStatus(li *models.LineItem) Status {
	portions := li.Portions()
	if len(portions) == 0 {
		return StatusUnsplit
	}
	if models.FindPortion(portions, models.UnallocatedID) != nil {
		return StatusPartiallySplit
	}
	return StatusFullySplit
}

// ValidateAllocations reports whether every line item is fully split, and the
// ids of the items that are not, so callers gating a summary view can point at
// the offending items rather than a single flag.
func ValidateAllocations(r *models.Receipt) (bool, []string) {
	var incomplete []string
	for i := range r.LineItems {
		if ItemStatus(&r.LineItems[i]) != StatusFullySplit {
			incomplete = append(incomplete, r.LineItems[i].ID)
		}
	}
	return len(incomplete) == 0, incomplete
}
