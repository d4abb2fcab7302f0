// internal/checklist/derive.go
package checklist

import (
	"fmt"
	"math"
)

// DerivedItem is one line of a derived checklist: how many packs of an
// item an order needs, plus the item's live completion state.
type DerivedItem struct {
	Name     string    `json:"name"`
	Count    int       `json:"count"`
	Subtasks []Subtask `json:"subtasks"`
	Done     bool      `json:"done"`
}

// DeriveItems computes the packs needed of each of the product's items for
// an ordered quantity: count = ceil(quantity / capacity). Catalog item
// order is preserved. Quantity must be positive and every capacity must be
// positive.
func DeriveItems(product Product, quantity float64) ([]DerivedItem, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("%w: %g for product %q", ErrInvalidQuantity, quantity, product.Name)
	}

	derived := make([]DerivedItem, 0, len(product.Items))
	for _, item := range product.Items {
		if item.Capacity <= 0 {
			return nil, fmt.Errorf("%w: item %q of product %q has capacity %g",
				ErrInvalidCapacity, item.Name, product.Name, item.Capacity)
		}
		derived = append(derived, DerivedItem{
			Name:     item.Name,
			Count:    int(math.Ceil(quantity / item.Capacity)),
			Subtasks: cloneSubtasks(item.Subtasks),
			Done:     item.Done,
		})
	}
	return derived, nil
}
