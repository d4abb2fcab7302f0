package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"mepbackend/internal/logger"
)

// ErrStoreUnavailable reports that the backing store could not be reached
// or is unhealthy. Callers check it with errors.Is and surface it to the
// user; there is no retry policy beyond the initial connect.
var ErrStoreUnavailable = errors.New("store unavailable")

// Global database instance, acquired once per process lifetime and pooled.
var (
	db   *sql.DB
	dbMu sync.RWMutex
)

const (
	maxOpenConns    = 10
	maxIdleConns    = 5
	connMaxLifetime = time.Hour
	connMaxIdleTime = time.Minute * 15
	queryTimeout    = time.Second * 10
)

const TimeFormat = time.RFC3339

// =============================================================================
// DATABASE CONNECTION AND SETUP
// =============================================================================

// InitDB opens the store with connection pooling and retrying init.
func InitDB(dataSourceName string) error {
	dbMu.Lock()
	defer dbMu.Unlock()

	if db != nil {
		db.Close()
	}

	return initDBWithRetry(dataSourceName, 3)
}

func initDBWithRetry(dataSourceName string, maxRetries int) error {
	var err error

	for attempt := 1; attempt <= maxRetries; attempt++ {
		db, err = sql.Open("sqlite", dataSourceName)
		if err != nil {
			logger.LogWarn("Store connection attempt %d failed: %v", attempt, err)
			if attempt < maxRetries {
				time.Sleep(time.Duration(attempt) * time.Second)
				continue
			}
			return fmt.Errorf("%w: open failed after %d attempts: %v", ErrStoreUnavailable, maxRetries, err)
		}

		db.SetMaxOpenConns(maxOpenConns)
		db.SetMaxIdleConns(maxIdleConns)
		db.SetConnMaxLifetime(connMaxLifetime)
		db.SetConnMaxIdleTime(connMaxIdleTime)

		ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
		err = db.PingContext(ctx)
		cancel()

		if err != nil {
			logger.LogWarn("Store ping attempt %d failed: %v", attempt, err)
			db.Close()
			if attempt < maxRetries {
				time.Sleep(time.Duration(attempt) * time.Second)
				continue
			}
			return fmt.Errorf("%w: ping failed after %d attempts: %v", ErrStoreUnavailable, maxRetries, err)
		}

		if err := enablePragmas(db); err != nil {
			logger.LogWarn("Failed to enable some store optimizations: %v", err)
			// Pragma failures don't fail initialization
		}

		logger.LogInfo("Store connection established (attempt %d)", attempt)
		return nil
	}

	return fmt.Errorf("%w: failed to initialize after %d attempts", ErrStoreUnavailable, maxRetries)
}

func enablePragmas(conn *sql.DB) error {
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
	}

	var lastErr error
	for _, pragma := range pragmas {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
		_, err := conn.ExecContext(ctx, pragma)
		cancel()

		if err != nil {
			logger.LogWarn("Failed to execute %s: %v", pragma, err)
			lastErr = err
		}
	}
	return lastErr
}

// GetDB returns the pooled connection with a health check.
func GetDB() (*sql.DB, error) {
	dbMu.RLock()
	defer dbMu.RUnlock()

	if db == nil {
		return nil, fmt.Errorf("%w: not initialized", ErrStoreUnavailable)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*2)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		logger.LogError("Store health check failed: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return db, nil
}

// CloseDB closes the store connection gracefully.
func CloseDB() error {
	dbMu.Lock()
	defer dbMu.Unlock()

	if db != nil {
		err := db.Close()
		db = nil
		return err
	}
	return nil
}

// =============================================================================
// SCHEMA
// =============================================================================

// One row per document, nested structure as a JSON TEXT column. Each
// upsert is individually atomic; multi-document saves are not
// transactional, so a crash mid-save can leave the catalog and the
// session inconsistent. Accepted risk for this tool.

const productsTableSchema = `
    CREATE TABLE IF NOT EXISTS products (
        name TEXT PRIMARY KEY,
        doc_json TEXT NOT NULL DEFAULT '{}',
        updated_at TEXT
    );`

const sessionsTableSchema = `
    CREATE TABLE IF NOT EXISTS sessions (
        session_key TEXT PRIMARY KEY,
        rows_json TEXT NOT NULL DEFAULT '[]',
        updated_at TEXT
    );`

const generalTodosTableSchema = `
    CREATE TABLE IF NOT EXISTS general_todos (
        session_key TEXT PRIMARY KEY,
        todos_json TEXT NOT NULL DEFAULT '[]',
        updated_at TEXT
    );`

func CreateTables() error {
	tables := []struct {
		name   string
		schema string
	}{
		{"products", productsTableSchema},
		{"sessions", sessionsTableSchema},
		{"general_todos", generalTodosTableSchema},
	}

	for _, table := range tables {
		if _, err := ExecDB(table.schema); err != nil {
			return fmt.Errorf("failed to create %s table: %w", table.name, err)
		}
	}

	return nil
}

// =============================================================================
// UTILITY FUNCTIONS (JSON AND TIME HANDLING)
// =============================================================================

func marshalJSON(v interface{}) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(data), nil
}

func unmarshalJSON(data string, v interface{}) error {
	if err := json.Unmarshal([]byte(data), v); err != nil {
		return fmt.Errorf("failed to unmarshal JSON: %w", err)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.Format(TimeFormat)
}

// =============================================================================
// GENERIC DATABASE OPERATIONS
// =============================================================================

// ExecDB executes a statement with a query timeout.
func ExecDB(query string, args ...interface{}) (sql.Result, error) {
	dbConn, err := GetDB()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	result, err := dbConn.ExecContext(ctx, query, args...)
	if err != nil {
		logger.LogError("Store exec failed: query=%s, error=%v", query, err)
		return nil, fmt.Errorf("store execution failed: %w", err)
	}

	return result, nil
}

// QueryDB executes a query with a timeout and returns rows.
func QueryDB(query string, args ...interface{}) (*sql.Rows, error) {
	dbConn, err := GetDB()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	rows, err := dbConn.QueryContext(ctx, query, args...)
	if err != nil {
		logger.LogError("Store query failed: query=%s, error=%v", query, err)
		return nil, fmt.Errorf("store query failed: %w", err)
	}

	return rows, nil
}
