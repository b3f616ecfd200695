package models

// FindPortion returns the portion entry for personID, or nil if the person has
// no weight on this portions list.
func FindPortion(portions []PersonPortion, personID string) *PersonPortion {
	for i := range portions {
		if portions[i].PersonID == personID {
			return &portions[i]
		}
	}
	return nil
}

// TotalPortions sums all weights in a portions list, including the unallocated
// sentinel's weight.
func TotalPortions(portions []PersonPortion) int64 {
	var sum int64
	for _, p := range portions {
		sum += p.Portions
	}
	return sum
}

// NormalizePortions enforces the portions invariants: entries with a weight of
// zero or less are removed instead of persisted, and duplicate person ids keep
// only their first entry.
func NormalizePortions(portions []PersonPortion) []PersonPortion {
	if len(portions) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(portions))
	out := make([]PersonPortion, 0, len(portions))
	for _, p := range portions {
		if p.Portions <= 0 || seen[p.PersonID] {
			continue
		}
		seen[p.PersonID] = true
		out = append(out, p)
	}
	return out
}

// StripPerson removes personID's entry from a portions list, leaving the rest
// untouched. Used when a person is removed from a receipt.
func StripPerson(portions []PersonPortion, personID string) []PersonPortion {
	out := make([]PersonPortion, 0, len(portions))
	for _, p := range portions {
		if p.PersonID != personID {
			out = append(out, p)
		}
	}
	return out
}
