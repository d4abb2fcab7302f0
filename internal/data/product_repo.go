package data

import (
	"database/sql"
	"fmt"
	"time"

	"mepbackend/internal/checklist"
)

// =============================================================================
// PRODUCT REPOSITORY
// =============================================================================

// ProductRepository persists the product catalog, one document per
// product keyed by name.

type ProductRepository struct {
	db *sql.DB
}

func NewProductRepository() *ProductRepository {
	return &ProductRepository{db: db}
}

// Upsert writes a product document under its name.
func (r *ProductRepository) Upsert(p checklist.Product) error {
	docJSON, err := marshalJSON(p)
	if err != nil {
		return fmt.Errorf("failed to marshal product %q: %w", p.Name, err)
	}

	const stmt = `
		INSERT INTO products (name, doc_json, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET doc_json = excluded.doc_json, updated_at = excluded.updated_at`

	if _, err := ExecDB(stmt, p.Name, docJSON, formatTime(time.Now())); err != nil {
		return fmt.Errorf("failed to upsert product %q: %w", p.Name, err)
	}

	return nil
}

// Get returns a product by name, or checklist.ErrNotFound.
func (r *ProductRepository) Get(name string) (checklist.Product, error) {
	const stmt = `SELECT doc_json FROM products WHERE name = ?`

	rows, err := QueryDB(stmt, name)
	if err != nil {
		return checklist.Product{}, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return checklist.Product{}, fmt.Errorf("failed to read product %q: %w", name, err)
		}
		return checklist.Product{}, fmt.Errorf("%w: %q", checklist.ErrNotFound, name)
	}

	var docJSON string
	if err := rows.Scan(&docJSON); err != nil {
		return checklist.Product{}, fmt.Errorf("failed to scan product %q: %w", name, err)
	}

	var p checklist.Product
	if err := unmarshalJSON(docJSON, &p); err != nil {
		return checklist.Product{}, fmt.Errorf("failed to decode product %q: %w", name, err)
	}
	p.Name = name

	return p, nil
}

// All returns every product document, ordered by name.
func (r *ProductRepository) All() ([]checklist.Product, error) {
	const stmt = `SELECT name, doc_json FROM products ORDER BY name`

	rows, err := QueryDB(stmt)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []checklist.Product
	for rows.Next() {
		var name, docJSON string
		if err := rows.Scan(&name, &docJSON); err != nil {
			return nil, fmt.Errorf("failed to scan product row: %w", err)
		}

		var p checklist.Product
		if err := unmarshalJSON(docJSON, &p); err != nil {
			return nil, fmt.Errorf("failed to decode product %q: %w", name, err)
		}
		p.Name = name
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating product rows: %w", err)
	}

	return products, nil
}

// Delete removes a product document. Deleting a missing product is not an
// error; order rows referencing it are tolerated by readers.
func (r *ProductRepository) Delete(name string) error {
	const stmt = `DELETE FROM products WHERE name = ?`

	if _, err := ExecDB(stmt, name); err != nil {
		return fmt.Errorf("failed to delete product %q: %w", name, err)
	}

	return nil
}

// Rename re-keys a product document. This is the one transactional
// operation in the store: it is a single logical document changing key,
// so the delete and insert must land together.
func (r *ProductRepository) Rename(oldName string, p checklist.Product) error {
	dbConn, err := GetDB()
	if err != nil {
		return err
	}

	docJSON, err := marshalJSON(p)
	if err != nil {
		return fmt.Errorf("failed to marshal product %q: %w", p.Name, err)
	}

	tx, err := dbConn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin rename transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRow(`SELECT COUNT(*) FROM products WHERE name = ?`, p.Name).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check rename target %q: %w", p.Name, err)
	}
	if exists > 0 {
		return fmt.Errorf("%w: %q", checklist.ErrDuplicateName, p.Name)
	}

	if _, err := tx.Exec(`DELETE FROM products WHERE name = ?`, oldName); err != nil {
		return fmt.Errorf("failed to remove old key %q: %w", oldName, err)
	}

	if _, err := tx.Exec(`INSERT INTO products (name, doc_json, updated_at) VALUES (?, ?, ?)`,
		p.Name, docJSON, formatTime(time.Now())); err != nil {
		return fmt.Errorf("failed to insert new key %q: %w", p.Name, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit rename: %w", err)
	}

	return nil
}

// =============================================================================
// PACKAGE-LEVEL CONVENIENCE FUNCTIONS
// =============================================================================

func UpsertProduct(p checklist.Product) error {
	repo := NewProductRepository()
	return repo.Upsert(p)
}

func GetProduct(name string) (checklist.Product, error) {
	repo := NewProductRepository()
	return repo.Get(name)
}

func AllProducts() ([]checklist.Product, error) {
	repo := NewProductRepository()
	return repo.All()
}

func DeleteProduct(name string) error {
	repo := NewProductRepository()
	return repo.Delete(name)
}

func RenameProduct(oldName string, p checklist.Product) error {
	repo := NewProductRepository()
	return repo.Rename(oldName, p)
}
