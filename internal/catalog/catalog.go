package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"mepbackend/internal/checklist"
	"mepbackend/internal/logger"
)

// Service holds the live, mutable product catalog for the process
// lifetime. All reads go through defensive lookups since order rows may
// reference products deleted after the session was saved.
type Service struct {
	products map[string]checklist.Product

	lastLoaded time.Time
	mutex      sync.RWMutex
}

func NewService() *Service {
	return &Service{
		products: make(map[string]checklist.Product),
	}
}

// =============================================================================
// LOADING
// =============================================================================

// Replace swaps in a full catalog snapshot. Products are cloned on the
// way in so the caller's slices never alias live catalog state.
func (s *Service) Replace(products []checklist.Product) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.products = make(map[string]checklist.Product, len(products))
	for _, p := range products {
		s.products[p.Name] = p.Clone()
	}
	s.lastLoaded = time.Now()
}

// MergeSeed folds seed products into the live catalog. New products are
// inserted; existing ones take the seed's structure with done flags
// carried over from the live product, matched by name. Products absent
// from the seed are left alone, so products created through the API
// survive a reload and user-toggled flags are never reset by a seed edit.
func (s *Service) MergeSeed(products []checklist.Product) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for _, p := range products {
		incoming := p.Clone()
		if existing, ok := s.products[p.Name]; ok {
			carryDoneFlags(&incoming, existing)
		}
		s.products[p.Name] = incoming
	}
	s.lastLoaded = time.Now()
}

func carryDoneFlags(incoming *checklist.Product, existing checklist.Product) {
	items := make(map[string]checklist.Item, len(existing.Items))
	for _, it := range existing.Items {
		items[it.Name] = it
	}
	for i := range incoming.Items {
		old, ok := items[incoming.Items[i].Name]
		if !ok {
			continue
		}
		incoming.Items[i].Done = old.Done
		carrySubtaskFlags(incoming.Items[i].Subtasks, old.Subtasks)
	}

	tasks := make(map[string]checklist.Task, len(existing.Tasks))
	for _, t := range existing.Tasks {
		tasks[t.Name] = t
	}
	for i := range incoming.Tasks {
		old, ok := tasks[incoming.Tasks[i].Name]
		if !ok {
			continue
		}
		incoming.Tasks[i].Done = old.Done
		carrySubtaskFlags(incoming.Tasks[i].Subtasks, old.Subtasks)
	}
}

func carrySubtaskFlags(incoming, existing []checklist.Subtask) {
	done := make(map[string]bool, len(existing))
	for _, sub := range existing {
		if sub.Done {
			done[sub.Name] = true
		}
	}
	for i := range incoming {
		if done[incoming[i].Name] {
			incoming[i].Done = true
		}
	}
}

// LoadFromSeedFile reads a JSON file of products and merges it into the
// catalog, used to populate an empty store on first start and on hot
// reload. Merging, not replacing: live state outside the seed survives.
func (s *Service) LoadFromSeedFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read seed file: %w", err)
	}

	var products []checklist.Product
	if err := json.Unmarshal(data, &products); err != nil {
		return fmt.Errorf("failed to parse seed file: %w", err)
	}

	s.MergeSeed(products)
	logger.LogInfo("Merged %d products from seed file %s", len(products), path)
	return nil
}

// =============================================================================
// LOOKUPS
// =============================================================================

// Get returns a deep copy of a product, or checklist.ErrNotFound.
func (s *Service) Get(name string) (checklist.Product, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	p, exists := s.products[name]
	if !exists {
		return checklist.Product{}, fmt.Errorf("%w: %q", checklist.ErrNotFound, name)
	}
	return p.Clone(), nil
}

// Has reports whether a product exists.
func (s *Service) Has(name string) bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	_, exists := s.products[name]
	return exists
}

// Products returns deep copies of every product, ordered by name.
func (s *Service) Products() []checklist.Product {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	names := make([]string, 0, len(s.products))
	for name := range s.products {
		names = append(names, name)
	}
	sort.Strings(names)

	products := make([]checklist.Product, 0, len(names))
	for _, name := range names {
		products = append(products, s.products[name].Clone())
	}
	return products
}

// Count returns the number of products in the catalog.
func (s *Service) Count() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.products)
}

// =============================================================================
// STRUCTURAL MUTATIONS
// =============================================================================

// Put inserts or replaces a product under its name.
func (s *Service) Put(p checklist.Product) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.products[p.Name] = p.Clone()
}

// Delete removes a product from the in-memory catalog. Removing a missing
// product is a no-op.
func (s *Service) Delete(name string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	delete(s.products, name)
}

// Rename re-keys a product, preserving its items, tasks, and done flags.
// The old key stops resolving. Fails with checklist.ErrDuplicateName if
// the new key is taken.
func (s *Service) Rename(oldName, newName string) (checklist.Product, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	p, exists := s.products[oldName]
	if !exists {
		return checklist.Product{}, fmt.Errorf("%w: %q", checklist.ErrNotFound, oldName)
	}
	if oldName == newName {
		return p.Clone(), nil
	}
	if _, taken := s.products[newName]; taken {
		return checklist.Product{}, fmt.Errorf("%w: %q", checklist.ErrDuplicateName, newName)
	}

	p.Name = newName
	delete(s.products, oldName)
	s.products[newName] = p
	return p.Clone(), nil
}

// Duplicate deep-copies a product under a new unique name. Mutating the
// duplicate must never reach the original.
func (s *Service) Duplicate(srcName, dstName string) (checklist.Product, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	src, exists := s.products[srcName]
	if !exists {
		return checklist.Product{}, fmt.Errorf("%w: %q", checklist.ErrNotFound, srcName)
	}
	if _, taken := s.products[dstName]; taken {
		return checklist.Product{}, fmt.Errorf("%w: %q", checklist.ErrDuplicateName, dstName)
	}

	dup := src.Clone()
	dup.Name = dstName
	s.products[dstName] = dup
	return dup.Clone(), nil
}

// AddItem appends an item to a product, preserving insertion order.
func (s *Service) AddItem(product string, item checklist.Item) (checklist.Product, error) {
	return s.mutate(product, func(p *checklist.Product) error {
		p.Items = append(p.Items, item)
		return nil
	})
}

// RemoveItem removes an item by name. Removing a missing item is a no-op.
func (s *Service) RemoveItem(product, itemName string) (checklist.Product, error) {
	return s.mutate(product, func(p *checklist.Product) error {
		for i, it := range p.Items {
			if it.Name == itemName {
				p.Items = append(p.Items[:i], p.Items[i+1:]...)
				break
			}
		}
		return nil
	})
}

// AddSubtask appends a subtask to an item.
func (s *Service) AddSubtask(product, itemName string, subtask checklist.Subtask) (checklist.Product, error) {
	return s.mutate(product, func(p *checklist.Product) error {
		for i := range p.Items {
			if p.Items[i].Name == itemName {
				p.Items[i].Subtasks = append(p.Items[i].Subtasks, subtask)
				return nil
			}
		}
		return fmt.Errorf("%w: item %q of product %q", checklist.ErrNotFound, itemName, product)
	})
}

// RemoveSubtask removes an item subtask by index.
func (s *Service) RemoveSubtask(product, itemName string, index int) (checklist.Product, error) {
	return s.mutate(product, func(p *checklist.Product) error {
		for i := range p.Items {
			if p.Items[i].Name == itemName {
				subs := p.Items[i].Subtasks
				if index < 0 || index >= len(subs) {
					return nil
				}
				p.Items[i].Subtasks = append(subs[:index], subs[index+1:]...)
				return nil
			}
		}
		return fmt.Errorf("%w: item %q of product %q", checklist.ErrNotFound, itemName, product)
	})
}

// AddTask appends a product-level task.
func (s *Service) AddTask(product string, task checklist.Task) (checklist.Product, error) {
	return s.mutate(product, func(p *checklist.Product) error {
		p.Tasks = append(p.Tasks, task)
		return nil
	})
}

// RemoveTask removes a product-level task by name.
func (s *Service) RemoveTask(product, taskName string) (checklist.Product, error) {
	return s.mutate(product, func(p *checklist.Product) error {
		for i, t := range p.Tasks {
			if t.Name == taskName {
				p.Tasks = append(p.Tasks[:i], p.Tasks[i+1:]...)
				break
			}
		}
		return nil
	})
}

// =============================================================================
// COMPLETION FLAGS
// =============================================================================

// SetItemDone flips an item's done flag.
func (s *Service) SetItemDone(product, itemName string, done bool) (checklist.Product, error) {
	return s.mutate(product, func(p *checklist.Product) error {
		for i := range p.Items {
			if p.Items[i].Name == itemName {
				p.Items[i].Done = done
				return nil
			}
		}
		return fmt.Errorf("%w: item %q of product %q", checklist.ErrNotFound, itemName, product)
	})
}

// SetSubtaskDone flips an item subtask's done flag by index.
func (s *Service) SetSubtaskDone(product, itemName string, index int, done bool) (checklist.Product, error) {
	return s.mutate(product, func(p *checklist.Product) error {
		for i := range p.Items {
			if p.Items[i].Name == itemName {
				if index < 0 || index >= len(p.Items[i].Subtasks) {
					return fmt.Errorf("%w: subtask %d of item %q", checklist.ErrNotFound, index, itemName)
				}
				p.Items[i].Subtasks[index].Done = done
				return nil
			}
		}
		return fmt.Errorf("%w: item %q of product %q", checklist.ErrNotFound, itemName, product)
	})
}

// SetTaskDone flips a product-level task's done flag.
func (s *Service) SetTaskDone(product, taskName string, done bool) (checklist.Product, error) {
	return s.mutate(product, func(p *checklist.Product) error {
		for i := range p.Tasks {
			if p.Tasks[i].Name == taskName {
				p.Tasks[i].Done = done
				return nil
			}
		}
		return fmt.Errorf("%w: task %q of product %q", checklist.ErrNotFound, taskName, product)
	})
}

// SetTaskSubtaskDone flips a task subtask's done flag by index.
func (s *Service) SetTaskSubtaskDone(product, taskName string, index int, done bool) (checklist.Product, error) {
	return s.mutate(product, func(p *checklist.Product) error {
		for i := range p.Tasks {
			if p.Tasks[i].Name == taskName {
				if index < 0 || index >= len(p.Tasks[i].Subtasks) {
					return fmt.Errorf("%w: subtask %d of task %q", checklist.ErrNotFound, index, taskName)
				}
				p.Tasks[i].Subtasks[index].Done = done
				return nil
			}
		}
		return fmt.Errorf("%w: task %q of product %q", checklist.ErrNotFound, taskName, product)
	})
}

// mutate applies fn to a product under the write lock and returns a deep
// copy of the result for persistence.
func (s *Service) mutate(name string, fn func(*checklist.Product) error) (checklist.Product, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	p, exists := s.products[name]
	if !exists {
		return checklist.Product{}, fmt.Errorf("%w: %q", checklist.ErrNotFound, name)
	}

	if err := fn(&p); err != nil {
		return checklist.Product{}, err
	}

	s.products[name] = p
	return p.Clone(), nil
}

// =============================================================================
// STATS
// =============================================================================

// Stats returns catalog statistics for debugging.
func (s *Service) Stats() map[string]interface{} {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	items := 0
	for _, p := range s.products {
		items += len(p.Items)
	}

	return map[string]interface{}{
		"products_count": len(s.products),
		"items_count":    items,
		"last_loaded":    s.lastLoaded,
		"cache_age":      time.Since(s.lastLoaded).String(),
	}
}
