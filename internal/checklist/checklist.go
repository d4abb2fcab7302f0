// internal/checklist/checklist.go
package checklist

import "math"

// Subtask is the finest-grained checkable unit under an item or task.
type Subtask struct {
	Name string `json:"name"`
	Done bool   `json:"done"`
}

// Item is a packaged sub-unit of a product with a fixed capacity per pack.
// Capacity is the number of units one pack holds and must be positive; it
// is used as a divisor when deriving needed pack counts.
type Item struct {
	Name     string    `json:"name"`
	Capacity float64   `json:"capacity"`
	Subtasks []Subtask `json:"subtasks"`
	Done     bool      `json:"done"`
}

// Task is a product-level task independent of any packaged item.
type Task struct {
	Name     string    `json:"name"`
	Done     bool      `json:"done"`
	Subtasks []Subtask `json:"subtasks,omitempty"`
}

// Product groups items and tasks under a unique name. The name is the
// catalog key, so renames must re-key the catalog.
type Product struct {
	Name  string `json:"name"`
	Items []Item `json:"items"`
	Tasks []Task `json:"tasks,omitempty"`
}

// OrderRow pairs a product name with an ordered quantity. The product may
// have been deleted from the catalog since the row was saved; readers must
// skip such rows rather than fail.
type OrderRow struct {
	Product  string  `json:"product"`
	Quantity float64 `json:"quantity"`
}

// GeneralTodo is a checklist entry independent of any product. Inactive
// todos stay in the session but are excluded from rendering and progress.
type GeneralTodo struct {
	ID     string `json:"id"`
	Task   string `json:"task"`
	Active bool   `json:"active"`
	Done   bool   `json:"done"`
}

// Session holds the per-day checklist state: ordered rows plus general
// todos, keyed by a session key (commonly a weekday name).
type Session struct {
	Key   string        `json:"key"`
	Rows  []OrderRow    `json:"rows"`
	Todos []GeneralTodo `json:"todos"`
}

// NewSession returns an empty session for the given key. Missing persisted
// state is represented this way rather than as an error.
func NewSession(key string) Session {
	return Session{Key: key, Rows: []OrderRow{}, Todos: []GeneralTodo{}}
}

// Clone returns a deep copy of the product. Mutating the copy's items,
// tasks, or subtasks must never reach the original.
func (p Product) Clone() Product {
	cp := Product{Name: p.Name}
	if p.Items != nil {
		cp.Items = make([]Item, len(p.Items))
		for i, it := range p.Items {
			cp.Items[i] = it
			cp.Items[i].Subtasks = cloneSubtasks(it.Subtasks)
		}
	}
	if p.Tasks != nil {
		cp.Tasks = make([]Task, len(p.Tasks))
		for i, t := range p.Tasks {
			cp.Tasks[i] = t
			cp.Tasks[i].Subtasks = cloneSubtasks(t.Subtasks)
		}
	}
	return cp
}

func cloneSubtasks(subs []Subtask) []Subtask {
	if subs == nil {
		return nil
	}
	out := make([]Subtask, len(subs))
	copy(out, subs)
	return out
}

// RoundQuantity rounds an ordered quantity up to a whole number for
// display and for headings.
func RoundQuantity(quantity float64) int {
	return int(math.Ceil(quantity))
}
