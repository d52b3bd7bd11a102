// internal/catalog/domain.go
package catalog

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicateItem = errors.New("duplicate item identity")
	ErrMissingID     = errors.New("item has no identity")
)

// Item represents a book or other lendable item. ID is the human-assigned
// identity, usually the title.
type Item struct {
	ID          string `json:"bookName" yaml:"bookName"`
	Description string `json:"description" yaml:"description"`
	Author      string `json:"author" yaml:"author"`
	Image       string `json:"image" yaml:"image"`
}

// Validate checks that every item has an identity and that no identity
// appears twice.
func Validate(items []Item) error {
	seen := make(map[string]struct{}, len(items))
	for i, item := range items {
		if item.ID == "" {
			return fmt.Errorf("item %d: %w", i, ErrMissingID)
		}
		if _, ok := seen[item.ID]; ok {
			return fmt.Errorf("%w: %q", ErrDuplicateItem, item.ID)
		}
		seen[item.ID] = struct{}{}
	}
	return nil
}
