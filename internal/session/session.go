// internal/session/session.go
package session

import (
	"errors"

	"mepbackend/internal/checklist"
	"mepbackend/internal/logger"
	"mepbackend/internal/progress"
)

// RowView is one order row as the front end renders it: the rounded
// quantity heading plus the derived items and the product-level tasks.
type RowView struct {
	Product  string                  `json:"product"`
	Quantity int                     `json:"quantity"`
	Items    []checklist.DerivedItem `json:"items"`
	Tasks    []checklist.Task        `json:"tasks,omitempty"`
}

// View is the full session view model returned after every command, so
// the front end never recomputes anything itself.
type View struct {
	Key        string                  `json:"key"`
	Theme      string                  `json:"theme"`
	Todos      []checklist.GeneralTodo `json:"todos"`
	Rows       []RowView               `json:"rows"`
	Completed  int                     `json:"completed"`
	Total      int                     `json:"total"`
	Percentage float64                 `json:"percentage"`
}

// BuildView derives the renderable rows for a session. Rows referencing
// products gone from the catalog are skipped, as are rows whose derivation
// fails (bad persisted quantity or capacity); both degrade, never crash.
func BuildView(sess checklist.Session, products progress.ProductGetter) View {
	view := View{
		Key:   sess.Key,
		Theme: checklist.DayTheme(sess.Key),
		Todos: sess.Todos,
		Rows:  []RowView{},
	}

	for _, row := range sess.Rows {
		product, err := products.Get(row.Product)
		if errors.Is(err, checklist.ErrNotFound) {
			continue
		}
		if err != nil {
			logger.LogWarn("Skipping row for %q: %v", row.Product, err)
			continue
		}

		derived, err := checklist.DeriveItems(product, row.Quantity)
		if err != nil {
			logger.LogWarn("Skipping row for %q: %v", row.Product, err)
			continue
		}

		view.Rows = append(view.Rows, RowView{
			Product:  product.Name,
			Quantity: checklist.RoundQuantity(row.Quantity),
			Items:    derived,
			Tasks:    product.Tasks,
		})
	}

	view.Completed, view.Total = progress.Aggregate(sess, products)
	view.Percentage = progress.Percentage(view.Completed, view.Total)

	return view
}
