package data

import (
	"database/sql"
	"fmt"
	"time"

	"mepbackend/internal/checklist"
)

// =============================================================================
// SESSION REPOSITORY
// =============================================================================

// SessionRepository persists per-day checklist state: one document of
// order rows and one document of general todos, both keyed by session key.

type SessionRepository struct {
	db *sql.DB
}

func NewSessionRepository() *SessionRepository {
	return &SessionRepository{db: db}
}

// Load returns the session for a key. A key with no persisted state loads
// as an empty session, never a not-found error.
func (r *SessionRepository) Load(key string) (checklist.Session, error) {
	session := checklist.NewSession(key)

	rowsJSON, found, err := r.loadDocument(`SELECT rows_json FROM sessions WHERE session_key = ?`, key)
	if err != nil {
		return session, err
	}
	if found {
		if err := unmarshalJSON(rowsJSON, &session.Rows); err != nil {
			return session, fmt.Errorf("failed to decode rows for session %q: %w", key, err)
		}
	}

	todosJSON, found, err := r.loadDocument(`SELECT todos_json FROM general_todos WHERE session_key = ?`, key)
	if err != nil {
		return session, err
	}
	if found {
		if err := unmarshalJSON(todosJSON, &session.Todos); err != nil {
			return session, fmt.Errorf("failed to decode todos for session %q: %w", key, err)
		}
	}

	if session.Rows == nil {
		session.Rows = []checklist.OrderRow{}
	}
	if session.Todos == nil {
		session.Todos = []checklist.GeneralTodo{}
	}

	return session, nil
}

// Save upserts the session's rows document and todos document. The two
// upserts are individually atomic but not wrapped in a transaction, so a
// crash between them can leave them inconsistent.
func (r *SessionRepository) Save(key string, session checklist.Session) error {
	rowsJSON, err := marshalJSON(session.Rows)
	if err != nil {
		return fmt.Errorf("failed to marshal rows for session %q: %w", key, err)
	}

	todosJSON, err := marshalJSON(session.Todos)
	if err != nil {
		return fmt.Errorf("failed to marshal todos for session %q: %w", key, err)
	}

	now := formatTime(time.Now())

	const rowsStmt = `
		INSERT INTO sessions (session_key, rows_json, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(session_key) DO UPDATE SET rows_json = excluded.rows_json, updated_at = excluded.updated_at`

	if _, err := ExecDB(rowsStmt, key, rowsJSON, now); err != nil {
		return fmt.Errorf("failed to save rows for session %q: %w", key, err)
	}

	const todosStmt = `
		INSERT INTO general_todos (session_key, todos_json, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(session_key) DO UPDATE SET todos_json = excluded.todos_json, updated_at = excluded.updated_at`

	if _, err := ExecDB(todosStmt, key, todosJSON, now); err != nil {
		return fmt.Errorf("failed to save todos for session %q: %w", key, err)
	}

	return nil
}

// Reset drops the persisted state for a key. Used for the whole-session
// reset when the day selector changes.
func (r *SessionRepository) Reset(key string) error {
	if _, err := ExecDB(`DELETE FROM sessions WHERE session_key = ?`, key); err != nil {
		return fmt.Errorf("failed to reset rows for session %q: %w", key, err)
	}
	if _, err := ExecDB(`DELETE FROM general_todos WHERE session_key = ?`, key); err != nil {
		return fmt.Errorf("failed to reset todos for session %q: %w", key, err)
	}
	return nil
}

func (r *SessionRepository) loadDocument(query, key string) (string, bool, error) {
	rows, err := QueryDB(query, key)
	if err != nil {
		return "", false, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return "", false, fmt.Errorf("failed to read session document %q: %w", key, err)
		}
		return "", false, nil
	}

	var doc string
	if err := rows.Scan(&doc); err != nil {
		return "", false, fmt.Errorf("failed to scan session document %q: %w", key, err)
	}

	return doc, true, nil
}

// =============================================================================
// PACKAGE-LEVEL CONVENIENCE FUNCTIONS
// =============================================================================

func LoadSession(key string) (checklist.Session, error) {
	repo := NewSessionRepository()
	return repo.Load(key)
}

func SaveSession(key string, session checklist.Session) error {
	repo := NewSessionRepository()
	return repo.Save(key, session)
}

func ResetSession(key string) error {
	repo := NewSessionRepository()
	return repo.Reset(key)
}
