// internal/export/export.go
package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"mepbackend/internal/checklist"
	"mepbackend/internal/logger"
	"mepbackend/internal/progress"
)

// ErrEmptyChecklist reports that a session has nothing to export: no
// active general todos and no renderable order rows.
var ErrEmptyChecklist = errors.New("checklist is empty")

func marker(done bool) string {
	if done {
		return "[x]"
	}
	return "[ ]"
}

// Render produces the flat text document for a session: header, active
// general todos, then one section per order row with derived items and
// their subtasks. Rows referencing deleted products are skipped. Pure
// read; never mutates the session or the catalog.
func Render(session checklist.Session, products progress.ProductGetter) (string, error) {
	var b strings.Builder

	activeTodos := 0
	for _, todo := range session.Todos {
		if todo.Active {
			activeTodos++
		}
	}

	var sections []string
	for _, row := range session.Rows {
		product, err := products.Get(row.Product)
		if err != nil {
			// Tolerated: the row may reference a since-deleted product.
			continue
		}

		derived, err := checklist.DeriveItems(product, row.Quantity)
		if err != nil {
			logger.LogWarn("Skipping export row for %q: %v", row.Product, err)
			continue
		}

		var s strings.Builder
		fmt.Fprintf(&s, "== %s (%d) ==\n", product.Name, checklist.RoundQuantity(row.Quantity))
		for _, item := range derived {
			fmt.Fprintf(&s, "%s %d x %s\n", marker(item.Done), item.Count, item.Name)
			for _, sub := range item.Subtasks {
				fmt.Fprintf(&s, "    %s %s\n", marker(sub.Done), sub.Name)
			}
		}
		for _, task := range product.Tasks {
			fmt.Fprintf(&s, "%s %s\n", marker(task.Done), task.Name)
			for _, sub := range task.Subtasks {
				fmt.Fprintf(&s, "    %s %s\n", marker(sub.Done), sub.Name)
			}
		}
		sections = append(sections, s.String())
	}

	if activeTodos == 0 && len(sections) == 0 {
		return "", fmt.Errorf("%w: session %q", ErrEmptyChecklist, session.Key)
	}

	fmt.Fprintf(&b, "Mise en place - %s\n", session.Key)
	fmt.Fprintf(&b, "Generated %s\n\n", time.Now().Format("2006-01-02 15:04"))

	if activeTodos > 0 {
		b.WriteString("-- Taches generales --\n")
		for _, todo := range session.Todos {
			if !todo.Active {
				continue
			}
			fmt.Fprintf(&b, "%s %s\n", marker(todo.Done), todo.Task)
		}
		b.WriteString("\n")
	}

	for i, section := range sections {
		b.WriteString(section)
		if i < len(sections)-1 {
			b.WriteString("\n")
		}
	}

	return b.String(), nil
}

// ArtifactName is the deterministic export file name for a session key.
func ArtifactName(key string) string {
	return fmt.Sprintf("checklist_%s.txt", key)
}

// WriteFile renders the session and writes the artifact under dir,
// returning the written path.
func WriteFile(dir string, session checklist.Session, products progress.ProductGetter) (string, error) {
	text, err := Render(session, products)
	if err != nil {
		return "", err
	}
	return writeArtifact(dir, session.Key, text)
}

func writeArtifact(dir, key, text string) (string, error) {
	if err := os.MkdirAll(dir, 0775); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	path := filepath.Join(dir, ArtifactName(key))
	if err := os.WriteFile(path, []byte(text), 0664); err != nil {
		return "", fmt.Errorf("failed to write export artifact: %w", err)
	}

	logger.LogInfo("Exported checklist for %q to %s", key, path)
	return path, nil
}
