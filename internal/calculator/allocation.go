// Package calculator computes per-person and per-item monetary amounts from a
// receipt snapshot. Every function is pure and side-effect free: totals are
// derived on demand, nothing here is persisted.
//
// The calculator never fails. Unknown person ids, missing portions and zero
// totals all degrade to a zero amount rather than returning an error.
package calculator

import (
	"math"

	"github.com/mmynk/splitcheck/internal/models"
)

// roundHalfUp rounds to the nearest cent with halves rounding toward positive
// infinity, for negative amounts too (discounts are negative adjustments), so
// round(-0.5) == 0 and round(0.5) == 1.
func roundHalfUp(x float64) int64 {
	return int64(math.Floor(x + 0.5))
}

// PortionAmount is one person's share of total given their weight and the sum
// of all weights on the item. Each portion rounds independently, so the shares
// of an item are not guaranteed to sum exactly to total; the drift is bounded
// by numPortions-1 cents.
func PortionAmount(total, portion, totalPortions int64) int64 {
	if totalPortions == 0 {
		return 0
	}
	return roundHalfUp(float64(total) * float64(portion) / float64(totalPortions))
}

// PersonLineItemsTotal sums the person's weighted share across every line item
// they appear on.
func PersonLineItemsTotal(r *models.Receipt, personID string) int64 {
	var total int64
	for i := range r.LineItems {
		portions := r.LineItems[i].Portions()
		p := models.FindPortion(portions, personID)
		if p == nil {
			continue
		}
		total += PortionAmount(r.LineItems[i].TotalPriceInCents, p.Portions, models.TotalPortions(portions))
	}
	return total
}

// AdjustmentAmount is the person's share of one adjustment under its split
// method.
func AdjustmentAmount(r *models.Receipt, adj *models.Adjustment, personID string) int64 {
	switch adj.Splitting.Method {
	case models.SplitEqual:
		return equalShare(r, adj, personID)
	case models.SplitProportional:
		itemsTotal := LineItemsTotal(r)
		if itemsTotal == 0 {
			return 0
		}
		personTotal := PersonLineItemsTotal(r, personID)
		return roundHalfUp(float64(adj.AmountInCents) * float64(personTotal) / float64(itemsTotal))
	case models.SplitManual:
		p := models.FindPortion(adj.Splitting.Portions, personID)
		if p == nil {
			return 0
		}
		return PortionAmount(adj.AmountInCents, p.Portions, models.TotalPortions(adj.Splitting.Portions))
	}
	return 0
}

// equalShare divides the adjustment evenly among participating people: the
// explicit non-sentinel portion holders when portions are present, otherwise
// the full people list. Anyone outside that set gets nothing.
func equalShare(r *models.Receipt, adj *models.Adjustment, personID string) int64 {
	if personID == models.UnallocatedID {
		return 0
	}
	if len(adj.Splitting.Portions) > 0 {
		var participants int64
		holder := false
		for _, p := range adj.Splitting.Portions {
			if p.PersonID == models.UnallocatedID {
				continue
			}
			participants++
			if p.PersonID == personID {
				holder = true
			}
		}
		if !holder || participants == 0 {
			return 0
		}
		return roundHalfUp(float64(adj.AmountInCents) / float64(participants))
	}
	if len(r.People) == 0 || r.Person(personID) == nil {
		return 0
	}
	return roundHalfUp(float64(adj.AmountInCents) / float64(len(r.People)))
}

// PersonTotal is the person's line-item shares plus their share of every
// adjustment. The unallocated sentinel always totals zero.
func PersonTotal(r *models.Receipt, personID string) int64 {
	if personID == models.UnallocatedID {
		return 0
	}
	total := PersonLineItemsTotal(r, personID)
	for i := range r.Adjustments {
		total += AdjustmentAmount(r, &r.Adjustments[i], personID)
	}
	return total
}

// LineItemsTotal sums the raw line item prices.
func LineItemsTotal(r *models.Receipt) int64 {
	var sum int64
	for i := range r.LineItems {
		sum += r.LineItems[i].TotalPriceInCents
	}
	return sum
}

// AdjustmentsTotal sums the raw adjustment amounts.
func AdjustmentsTotal(r *models.Receipt) int64 {
	var sum int64
	for i := range r.Adjustments {
		sum += r.Adjustments[i].AmountInCents
	}
	return sum
}

// ReceiptTotal is the ground-truth total: the raw sum of every charge on the
// receipt, independent of how anything is split.
func ReceiptTotal(r *models.Receipt) int64 {
	var sum int64
	for _, c := range r.Charges() {
		sum += c.AmountInCents
	}
	return sum
}

// UnallocatedAmount sums the money not attributed to any real person: the full
// amount of line items with no portions at all, plus the sentinel's weighted
// share on line items that carry it.
func UnallocatedAmount(r *models.Receipt) int64 {
	var sum int64
	for i := range r.LineItems {
		li := &r.LineItems[i]
		portions := li.Portions()
		if len(portions) == 0 {
			sum += li.TotalPriceInCents
			continue
		}
		if p := models.FindPortion(portions, models.UnallocatedID); p != nil {
			sum += PortionAmount(li.TotalPriceInCents, p.Portions, models.TotalPortions(portions))
		}
	}
	return sum
}
