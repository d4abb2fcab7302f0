package checklist

import (
	"errors"
	"math"
	"testing"
)

func sampleProduct() Product {
	return Product{
		Name: "Pain",
		Items: []Item{
			{Name: "Baguette", Capacity: 10, Subtasks: []Subtask{{Name: "Decongeler"}, {Name: "Cuire"}}},
			{Name: "Pain de mie", Capacity: 24},
		},
		Tasks: []Task{
			{Name: "Nettoyer le plan", Subtasks: []Subtask{{Name: "Desinfecter"}}},
		},
	}
}

func TestDeriveItems(t *testing.T) {
	derived, err := DeriveItems(sampleProduct(), 25)
	if err != nil {
		t.Fatalf("DeriveItems failed: %v", err)
	}

	if len(derived) != 2 {
		t.Fatalf("Expected 2 derived items, got %d", len(derived))
	}

	// Baguette: ceil(25/10) = 3
	if derived[0].Name != "Baguette" {
		t.Errorf("Item order not preserved: expected Baguette first, got %s", derived[0].Name)
	}
	if derived[0].Count != 3 {
		t.Errorf("Expected count 3 for Baguette, got %d", derived[0].Count)
	}
	if len(derived[0].Subtasks) != 2 {
		t.Errorf("Expected 2 subtasks on Baguette, got %d", len(derived[0].Subtasks))
	}

	// Pain de mie: ceil(25/24) = 2
	if derived[1].Count != 2 {
		t.Errorf("Expected count 2 for Pain de mie, got %d", derived[1].Count)
	}
}

func TestDeriveItemsCeilingProperty(t *testing.T) {
	cases := []struct {
		quantity float64
		capacity float64
	}{
		{1, 1}, {1, 10}, {10, 10}, {11, 10}, {25, 10}, {0.5, 2}, {100, 7}, {3.2, 1.5},
	}

	for _, tc := range cases {
		product := Product{Name: "p", Items: []Item{{Name: "i", Capacity: tc.capacity}}}
		derived, err := DeriveItems(product, tc.quantity)
		if err != nil {
			t.Fatalf("DeriveItems(%g/%g) failed: %v", tc.quantity, tc.capacity, err)
		}

		count := derived[0].Count
		if want := int(math.Ceil(tc.quantity / tc.capacity)); count != want {
			t.Errorf("count for %g/%g: expected %d, got %d", tc.quantity, tc.capacity, want, count)
		}
		if float64(count)*tc.capacity < tc.quantity {
			t.Errorf("count %d * capacity %g does not cover quantity %g", count, tc.capacity, tc.quantity)
		}
		if float64(count-1)*tc.capacity >= tc.quantity {
			t.Errorf("count %d for %g/%g is not minimal", count, tc.quantity, tc.capacity)
		}
	}
}

func TestDeriveItemsRejectsBadInput(t *testing.T) {
	product := sampleProduct()

	if _, err := DeriveItems(product, 0); !errors.Is(err, ErrInvalidQuantity) {
		t.Errorf("Expected ErrInvalidQuantity for zero quantity, got %v", err)
	}
	if _, err := DeriveItems(product, -3); !errors.Is(err, ErrInvalidQuantity) {
		t.Errorf("Expected ErrInvalidQuantity for negative quantity, got %v", err)
	}

	product.Items[0].Capacity = 0
	if _, err := DeriveItems(product, 5); !errors.Is(err, ErrInvalidCapacity) {
		t.Errorf("Expected ErrInvalidCapacity for zero capacity, got %v", err)
	}
}

func TestDeriveItemsCopiesSubtasks(t *testing.T) {
	product := sampleProduct()
	derived, err := DeriveItems(product, 10)
	if err != nil {
		t.Fatalf("DeriveItems failed: %v", err)
	}

	derived[0].Subtasks[0].Done = true
	if product.Items[0].Subtasks[0].Done {
		t.Error("Mutating derived subtasks reached the catalog product")
	}
}

func TestProductClone(t *testing.T) {
	original := sampleProduct()
	clone := original.Clone()

	clone.Items[0].Done = true
	clone.Items[0].Subtasks[0].Done = true
	clone.Tasks[0].Subtasks[0].Done = true

	if original.Items[0].Done {
		t.Error("Clone shares item done flag with original")
	}
	if original.Items[0].Subtasks[0].Done {
		t.Error("Clone shares item subtasks with original")
	}
	if original.Tasks[0].Subtasks[0].Done {
		t.Error("Clone shares task subtasks with original")
	}
}

func TestRoundQuantity(t *testing.T) {
	cases := []struct {
		quantity float64
		want     int
	}{
		{1, 1}, {1.01, 2}, {24.9, 25}, {25, 25},
	}
	for _, tc := range cases {
		if got := RoundQuantity(tc.quantity); got != tc.want {
			t.Errorf("RoundQuantity(%g): expected %d, got %d", tc.quantity, tc.want, got)
		}
	}
}

func TestDayTheme(t *testing.T) {
	if DayTheme("LUNDI") == DayTheme("MARDI") {
		t.Error("Expected distinct themes for distinct days")
	}
	if DayTheme("SOME-FREE-TEXT-KEY") != DayTheme("ANOTHER") {
		t.Error("Expected the same default theme for unknown keys")
	}
}
