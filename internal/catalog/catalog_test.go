package catalog

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"mepbackend/internal/checklist"
)

func testService() *Service {
	s := NewService()
	s.Put(checklist.Product{
		Name: "Sauce tomate",
		Items: []checklist.Item{
			{Name: "Boite 5L", Capacity: 5, Subtasks: []checklist.Subtask{{Name: "Ouvrir"}, {Name: "Mixer"}}},
			{Name: "Bocal 1L", Capacity: 1},
		},
		Tasks: []checklist.Task{{Name: "Gouter"}},
	})
	s.Put(checklist.Product{
		Name:  "Pain",
		Items: []checklist.Item{{Name: "Baguette", Capacity: 10}},
	})
	return s
}

func TestRenamePreservesStructure(t *testing.T) {
	s := testService()

	if _, err := s.SetItemDone("Sauce tomate", "Boite 5L", true); err != nil {
		t.Fatalf("SetItemDone failed: %v", err)
	}

	renamed, err := s.Rename("Sauce tomate", "Sauce maison")
	if err != nil {
		t.Fatalf("Rename failed: %v", err)
	}

	if renamed.Name != "Sauce maison" {
		t.Errorf("Expected renamed product, got %s", renamed.Name)
	}
	if len(renamed.Items) != 2 || len(renamed.Items[0].Subtasks) != 2 {
		t.Error("Rename did not preserve items/subtasks")
	}
	if !renamed.Items[0].Done {
		t.Error("Rename did not preserve done flags")
	}

	if _, err := s.Get("Sauce tomate"); !errors.Is(err, checklist.ErrNotFound) {
		t.Errorf("Old key still resolves after rename: %v", err)
	}
	if _, err := s.Get("Sauce maison"); err != nil {
		t.Errorf("New key does not resolve after rename: %v", err)
	}
}

func TestRenameCollision(t *testing.T) {
	s := testService()

	if _, err := s.Rename("Sauce tomate", "Pain"); !errors.Is(err, checklist.ErrDuplicateName) {
		t.Errorf("Expected ErrDuplicateName, got %v", err)
	}
	// Collision must leave both products untouched
	if _, err := s.Get("Sauce tomate"); err != nil {
		t.Errorf("Source lost after failed rename: %v", err)
	}
}

func TestDuplicateIsDeepCopy(t *testing.T) {
	s := testService()

	dup, err := s.Duplicate("Sauce tomate", "Sauce piquante")
	if err != nil {
		t.Fatalf("Duplicate failed: %v", err)
	}
	if len(dup.Items) != 2 {
		t.Fatalf("Duplicate missing items: got %d", len(dup.Items))
	}

	// Mutating the duplicate's subtask must not affect the original
	if _, err := s.SetSubtaskDone("Sauce piquante", "Boite 5L", 0, true); err != nil {
		t.Fatalf("SetSubtaskDone on duplicate failed: %v", err)
	}

	original, err := s.Get("Sauce tomate")
	if err != nil {
		t.Fatalf("Get original failed: %v", err)
	}
	if original.Items[0].Subtasks[0].Done {
		t.Error("Mutating duplicate's subtask reached the original")
	}
}

func TestDuplicateCollision(t *testing.T) {
	s := testService()

	if _, err := s.Duplicate("Sauce tomate", "Pain"); !errors.Is(err, checklist.ErrDuplicateName) {
		t.Errorf("Expected ErrDuplicateName, got %v", err)
	}
	if _, err := s.Duplicate("Inconnu", "Nouveau"); !errors.Is(err, checklist.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for missing source, got %v", err)
	}
}

func TestStructuralMutationsPreserveOrder(t *testing.T) {
	s := testService()

	if _, err := s.AddItem("Pain", checklist.Item{Name: "Croissant", Capacity: 6}); err != nil {
		t.Fatalf("AddItem failed: %v", err)
	}
	if _, err := s.AddItem("Pain", checklist.Item{Name: "Brioche", Capacity: 4}); err != nil {
		t.Fatalf("AddItem failed: %v", err)
	}

	p, err := s.Get("Pain")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	want := []string{"Baguette", "Croissant", "Brioche"}
	for i, name := range want {
		if p.Items[i].Name != name {
			t.Fatalf("Insertion order lost: expected %v, got item %d = %s", want, i, p.Items[i].Name)
		}
	}

	if _, err := s.RemoveItem("Pain", "Croissant"); err != nil {
		t.Fatalf("RemoveItem failed: %v", err)
	}
	p, _ = s.Get("Pain")
	if len(p.Items) != 2 || p.Items[1].Name != "Brioche" {
		t.Error("RemoveItem did not preserve order of remaining items")
	}
}

func TestSubtaskAndTaskFlags(t *testing.T) {
	s := testService()

	if _, err := s.AddSubtask("Pain", "Baguette", checklist.Subtask{Name: "Decongeler"}); err != nil {
		t.Fatalf("AddSubtask failed: %v", err)
	}
	if _, err := s.SetSubtaskDone("Pain", "Baguette", 0, true); err != nil {
		t.Fatalf("SetSubtaskDone failed: %v", err)
	}
	if _, err := s.SetTaskDone("Sauce tomate", "Gouter", true); err != nil {
		t.Fatalf("SetTaskDone failed: %v", err)
	}

	p, _ := s.Get("Pain")
	if !p.Items[0].Subtasks[0].Done {
		t.Error("Subtask done flag not set")
	}
	sauce, _ := s.Get("Sauce tomate")
	if !sauce.Tasks[0].Done {
		t.Error("Task done flag not set")
	}

	// Out-of-range subtask index is an error, not a panic
	if _, err := s.SetSubtaskDone("Pain", "Baguette", 9, true); !errors.Is(err, checklist.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for bad index, got %v", err)
	}
}

func TestGetReturnsCopy(t *testing.T) {
	s := testService()

	p, err := s.Get("Sauce tomate")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	p.Items[0].Done = true

	again, _ := s.Get("Sauce tomate")
	if again.Items[0].Done {
		t.Error("Get returned a shared reference, not a copy")
	}
}

func writeSeedFile(t *testing.T, products []checklist.Product) string {
	t.Helper()
	payload, err := json.Marshal(products)
	if err != nil {
		t.Fatalf("Failed to marshal seed: %v", err)
	}
	path := filepath.Join(t.TempDir(), "seed.json")
	if err := os.WriteFile(path, payload, 0664); err != nil {
		t.Fatalf("Failed to write seed file: %v", err)
	}
	return path
}

func TestSeedReloadPreservesLiveState(t *testing.T) {
	s := testService()

	if _, err := s.SetItemDone("Pain", "Baguette", true); err != nil {
		t.Fatalf("SetItemDone failed: %v", err)
	}
	if _, err := s.SetSubtaskDone("Sauce tomate", "Boite 5L", 0, true); err != nil {
		t.Fatalf("SetSubtaskDone failed: %v", err)
	}

	// Seed covers Pain (with a new item) and a brand new product, but
	// not Sauce tomate.
	path := writeSeedFile(t, []checklist.Product{
		{Name: "Pain", Items: []checklist.Item{
			{Name: "Baguette", Capacity: 10},
			{Name: "Croissant", Capacity: 6},
		}},
		{Name: "Frites", Items: []checklist.Item{{Name: "Sachet", Capacity: 2.5}}},
	})

	if err := s.LoadFromSeedFile(path); err != nil {
		t.Fatalf("LoadFromSeedFile failed: %v", err)
	}

	if !s.Has("Sauce tomate") {
		t.Error("Product absent from the seed was dropped by the reload")
	}
	if !s.Has("Frites") {
		t.Error("New seed product was not inserted")
	}

	pain, err := s.Get("Pain")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(pain.Items) != 2 {
		t.Fatalf("Seed structure not applied: %+v", pain.Items)
	}
	if !pain.Items[0].Done {
		t.Error("Checked item was reset by the seed reload")
	}
	if pain.Items[1].Done {
		t.Error("New seed item should start unchecked")
	}

	sauce, err := s.Get("Sauce tomate")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !sauce.Items[0].Subtasks[0].Done {
		t.Error("Checked subtask was reset by the seed reload")
	}
}

func TestSeedReloadCarriesTaskFlags(t *testing.T) {
	s := testService()

	if _, err := s.SetTaskDone("Sauce tomate", "Gouter", true); err != nil {
		t.Fatalf("SetTaskDone failed: %v", err)
	}

	path := writeSeedFile(t, []checklist.Product{
		{Name: "Sauce tomate",
			Items: []checklist.Item{{Name: "Boite 5L", Capacity: 5}},
			Tasks: []checklist.Task{{Name: "Gouter"}, {Name: "Etiqueter"}},
		},
	})

	if err := s.LoadFromSeedFile(path); err != nil {
		t.Fatalf("LoadFromSeedFile failed: %v", err)
	}

	sauce, err := s.Get("Sauce tomate")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !sauce.Tasks[0].Done {
		t.Error("Checked task was reset by the seed reload")
	}
	if sauce.Tasks[1].Done {
		t.Error("New seed task should start unchecked")
	}
}

func TestReplaceCopiesInput(t *testing.T) {
	s := NewService()
	input := []checklist.Product{
		{Name: "Pain", Items: []checklist.Item{{Name: "Baguette", Capacity: 10}}},
	}
	s.Replace(input)

	input[0].Items[0].Done = true

	p, err := s.Get("Pain")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if p.Items[0].Done {
		t.Error("Replace shares the caller's slices with catalog state")
	}
}

func TestProductsOrderedByName(t *testing.T) {
	s := testService()

	products := s.Products()
	if len(products) != 2 {
		t.Fatalf("Expected 2 products, got %d", len(products))
	}
	if products[0].Name != "Pain" || products[1].Name != "Sauce tomate" {
		t.Errorf("Products not ordered by name: %s, %s", products[0].Name, products[1].Name)
	}
}
