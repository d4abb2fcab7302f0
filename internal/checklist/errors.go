// internal/checklist/errors.go
package checklist

import "errors"

var (
	// ErrInvalidQuantity reports an ordered quantity that is zero or negative.
	ErrInvalidQuantity = errors.New("invalid quantity")

	// ErrInvalidCapacity reports an item capacity that is zero or negative,
	// which would otherwise be a silent division by zero.
	ErrInvalidCapacity = errors.New("invalid capacity")

	// ErrDuplicateName reports a product rename or duplicate that collides
	// with an existing catalog key.
	ErrDuplicateName = errors.New("duplicate product name")

	// ErrNotFound reports a reference to a product no longer in the catalog.
	// Row-level readers tolerate it by skipping; direct product operations
	// surface it.
	ErrNotFound = errors.New("product not found")
)
