package domain

import (
	"fmt"

	"gomarketplace/pkg/validation"
)

func (c *Candidate) Validate() error {
	if err := validation.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidProduct, err)
	}
	return nil
}

func (i *LineItem) Validate() error {
	if err := validation.Struct(i); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidProduct, err)
	}
	return nil
}

// ValidateCart checks every item and that ids are unique within the sequence.
func ValidateCart(items []LineItem) error {
	seen := make(map[string]struct{}, len(items))
	for idx := range items {
		if err := items[idx].Validate(); err != nil {
			return fmt.Errorf("item %d: %w", idx, err)
		}
		if _, dup := seen[items[idx].ID]; dup {
			return fmt.Errorf("item %d: %w: duplicate id %q", idx, ErrInvalidProduct, items[idx].ID)
		}
		seen[items[idx].ID] = struct{}{}
	}
	return nil
}
