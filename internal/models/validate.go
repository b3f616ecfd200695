package models

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate is shared; validator instances cache struct metadata.
var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateReceipt checks the full document against the schema plus the
// portions invariants that tags cannot express.
func ValidateReceipt(r *Receipt) error {
	if r == nil {
		return fmt.Errorf("receipt is required")
	}
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("invalid receipt: %w", err)
	}
	seen := make(map[string]bool, len(r.People))
	for _, p := range r.People {
		if seen[p.ID] {
			return fmt.Errorf("duplicate person id %q", p.ID)
		}
		seen[p.ID] = true
	}
	if err := ValidateLineItems(r.LineItems); err != nil {
		return err
	}
	return ValidateAdjustments(r.Adjustments)
}

// ValidateLineItems checks each item's shape and portion uniqueness.
func ValidateLineItems(items []LineItem) error {
	for i := range items {
		if err := validate.Struct(&items[i]); err != nil {
			return fmt.Errorf("invalid line item %q: %w", items[i].ID, err)
		}
		if err := validatePortionList(items[i].Portions()); err != nil {
			return fmt.Errorf("line item %q: %w", items[i].ID, err)
		}
	}
	return nil
}

// ValidateAdjustments checks each adjustment's shape, method and portion
// uniqueness.
func ValidateAdjustments(adjustments []Adjustment) error {
	for i := range adjustments {
		if err := validate.Struct(&adjustments[i]); err != nil {
			return fmt.Errorf("invalid adjustment %q: %w", adjustments[i].ID, err)
		}
		if err := validatePortionList(adjustments[i].Splitting.Portions); err != nil {
			return fmt.Errorf("adjustment %q: %w", adjustments[i].ID, err)
		}
	}
	return nil
}

// ValidatePerson checks a single person payload.
func ValidatePerson(p *Person) error {
	if p == nil {
		return fmt.Errorf("person is required")
	}
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("invalid person: %w", err)
	}
	return nil
}

// validatePortionList enforces that person ids are unique within one portions
// list. Positive weights are covered by the struct tags.
func validatePortionList(portions []PersonPortion) error {
	seen := make(map[string]bool, len(portions))
	for _, p := range portions {
		if seen[p.PersonID] {
			return fmt.Errorf("duplicate portion for person %q", p.PersonID)
		}
		seen[p.PersonID] = true
	}
	return nil
}
