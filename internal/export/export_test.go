package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mepbackend/internal/checklist"
)

type mapGetter map[string]checklist.Product

func (m mapGetter) Get(name string) (checklist.Product, error) {
	p, ok := m[name]
	if !ok {
		return checklist.Product{}, fmt.Errorf("%w: %q", checklist.ErrNotFound, name)
	}
	return p, nil
}

func testCatalog() mapGetter {
	return mapGetter{
		"Pain": {
			Name: "Pain",
			Items: []checklist.Item{
				{Name: "Baguette", Capacity: 10, Done: true, Subtasks: []checklist.Subtask{{Name: "Decongeler"}}},
			},
			Tasks: []checklist.Task{{Name: "Ranger"}},
		},
	}
}

func testSession() checklist.Session {
	sess := checklist.NewSession("LUNDI")
	sess.Rows = []checklist.OrderRow{{Product: "Pain", Quantity: 25}}
	sess.Todos = []checklist.GeneralTodo{
		{ID: "1", Task: "Allumer le four", Active: true, Done: true},
		{ID: "2", Task: "Inactive", Active: false},
	}
	return sess
}

func TestRender(t *testing.T) {
	text, err := Render(testSession(), testCatalog())
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	for _, want := range []string{
		"Mise en place - LUNDI",
		"[x] Allumer le four",
		"== Pain (25) ==",
		"[x] 3 x Baguette",
		"    [ ] Decongeler",
		"[ ] Ranger",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("Rendered text missing %q:\n%s", want, text)
		}
	}

	if strings.Contains(text, "Inactive") {
		t.Error("Inactive todo was rendered")
	}
}

func TestRenderSkipsDeletedProduct(t *testing.T) {
	sess := testSession()
	sess.Rows = append(sess.Rows, checklist.OrderRow{Product: "Sauce", Quantity: 2})

	text, err := Render(sess, testCatalog())
	if err != nil {
		t.Fatalf("Render failed on row referencing deleted product: %v", err)
	}
	if strings.Contains(text, "Sauce") {
		t.Error("Row referencing deleted product was rendered")
	}
}

func TestRenderEmptyChecklist(t *testing.T) {
	sess := checklist.NewSession("MARDI")

	if _, err := Render(sess, testCatalog()); !errors.Is(err, ErrEmptyChecklist) {
		t.Errorf("Expected ErrEmptyChecklist, got %v", err)
	}

	// Only an inactive todo is still empty
	sess.Todos = []checklist.GeneralTodo{{ID: "1", Task: "x", Active: false}}
	if _, err := Render(sess, testCatalog()); !errors.Is(err, ErrEmptyChecklist) {
		t.Errorf("Expected ErrEmptyChecklist with only inactive todos, got %v", err)
	}
}

func TestRenderDoesNotMutate(t *testing.T) {
	catalog := testCatalog()
	sess := testSession()

	if _, err := Render(sess, catalog); err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	if catalog["Pain"].Items[0].Subtasks[0].Done {
		t.Error("Render mutated catalog state")
	}
	if len(sess.Rows) != 1 || len(sess.Todos) != 2 {
		t.Error("Render mutated session state")
	}
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()

	path, err := WriteFile(dir, testSession(), testCatalog())
	if err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	if filepath.Base(path) != "checklist_LUNDI.txt" {
		t.Errorf("Unexpected artifact name: %s", path)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read artifact: %v", err)
	}
	if !strings.Contains(string(content), "== Pain (25) ==") {
		t.Error("Artifact content missing product section")
	}
}
