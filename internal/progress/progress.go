// internal/progress/progress.go
package progress

import (
	"errors"

	"mepbackend/internal/checklist"
)

// ProductGetter is the read side of the catalog the aggregator walks.
// catalog.Service satisfies it.
type ProductGetter interface {
	Get(name string) (checklist.Product, error)
}

// Aggregate walks every checkable node of a session exactly once: active
// general todos, then each ordered product's derived items and their
// subtasks, then product-level tasks and their subtasks. Rows referencing
// products gone from the catalog are skipped. A product ordered in
// several rows contributes its nodes once; the done flags live on the
// catalog product, so every row renders the same checkboxes.
func Aggregate(session checklist.Session, products ProductGetter) (completed, total int) {
	for _, todo := range session.Todos {
		if !todo.Active {
			continue
		}
		total++
		if todo.Done {
			completed++
		}
	}

	seen := make(map[string]bool, len(session.Rows))
	for _, row := range session.Rows {
		if seen[row.Product] {
			continue
		}
		seen[row.Product] = true

		// Defensive lookup: the product may have been deleted since the
		// session was saved.
		product, err := products.Get(row.Product)
		if errors.Is(err, checklist.ErrNotFound) {
			continue
		}
		if err != nil {
			continue
		}

		for _, item := range product.Items {
			total++
			if item.Done {
				completed++
			}
			for _, sub := range item.Subtasks {
				total++
				if sub.Done {
					completed++
				}
			}
		}

		for _, task := range product.Tasks {
			total++
			if task.Done {
				completed++
			}
			for _, sub := range task.Subtasks {
				total++
				if sub.Done {
					completed++
				}
			}
		}
	}

	return completed, total
}

// Percentage reports completion as 0-100. Zero total is 0, not an error.
func Percentage(completed, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(completed) / float64(total) * 100
}
