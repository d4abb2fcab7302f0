// test_helpers.go - Shared suite setup: temp sqlite store, seeded catalog,
// and an httptest server wired to the real handlers.
package testing

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"mepbackend/internal/catalog"
	"mepbackend/internal/checklist"
	configpkg "mepbackend/internal/config"
	"mepbackend/internal/data"
	"mepbackend/internal/export"
	"mepbackend/internal/session"
)

// TestConfig holds configuration for test runs
type TestConfig struct {
	DBPath      string
	ExportDir   string
	TestDataDir string
}

// TestSuite provides utilities for integration testing
type TestSuite struct {
	Config  TestConfig
	Server  *httptest.Server
	Client  *http.Client
	Catalog *catalog.Service
}

// NewTestSuite creates a suite with a fresh temporary database, a seeded
// catalog injected into every handler package, and a running test server.
func NewTestSuite(t *testing.T) *TestSuite {
	testDir := filepath.Join(os.TempDir(), fmt.Sprintf("meptest_%d_%d",
		time.Now().UnixNano(), os.Getpid()))
	if err := os.MkdirAll(testDir, 0755); err != nil {
		t.Fatalf("Failed to create test directory: %v", err)
	}

	config := TestConfig{
		DBPath:      filepath.Join(testDir, "test.db"),
		ExportDir:   filepath.Join(testDir, "exports"),
		TestDataDir: testDir,
	}

	suite := &TestSuite{
		Config: config,
		Client: &http.Client{Timeout: 30 * time.Second},
	}

	// The export handler resolves its target directory through config
	os.Setenv("DATA_DIRECTORY_DEV", testDir)
	os.Setenv("EXPORT_DIRECTORY_DEV", config.ExportDir)
	os.Setenv("LOGS_DIRECTORY_DEV", filepath.Join(testDir, "logs"))
	os.Setenv("DB_PATH_DEV", config.DBPath)
	configpkg.ConfigurePaths()

	if err := data.InitDB(config.DBPath); err != nil {
		t.Fatalf("Failed to initialize test database: %v", err)
	}
	if err := data.CreateTables(); err != nil {
		t.Fatalf("Failed to create test schema: %v", err)
	}

	suite.Catalog = catalog.NewService()
	suite.Catalog.Replace(testProducts())

	catalog.SetService(suite.Catalog)
	session.SetCatalogService(suite.Catalog)
	export.SetCatalogService(suite.Catalog)

	suite.Server = createTestServer()

	t.Cleanup(func() {
		suite.Cleanup()
	})

	return suite
}

// createTestServer registers the real handlers on a fresh mux.
func createTestServer() *httptest.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/session", session.GetSessionHandler)
	mux.HandleFunc("/api/session/rows", session.AddRowHandler)
	mux.HandleFunc("/api/session/rows/remove", session.RemoveRowHandler)
	mux.HandleFunc("/api/session/check", session.CheckHandler)
	mux.HandleFunc("/api/session/todos", session.TodosHandler)
	mux.HandleFunc("/api/session/reset", session.ResetHandler)
	mux.HandleFunc("/api/progress", session.ProgressHandler)
	mux.HandleFunc("/api/days", session.DaysHandler)
	mux.HandleFunc("/api/stats", catalog.StatsHandler)
	mux.HandleFunc("/api/export", export.ExportHandler)
	mux.HandleFunc("/api/products", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			catalog.ListProductsHandler(w, r)
			return
		}
		catalog.UpsertProductHandler(w, r)
	})
	mux.HandleFunc("/api/products/rename", catalog.RenameProductHandler)
	mux.HandleFunc("/api/products/duplicate", catalog.DuplicateProductHandler)
	mux.HandleFunc("/api/products/delete", catalog.DeleteProductHandler)
	mux.HandleFunc("/api/products/items", catalog.ItemsHandler)
	mux.HandleFunc("/api/products/subtasks", catalog.SubtasksHandler)
	mux.HandleFunc("/api/products/tasks", catalog.TasksHandler)

	return httptest.NewServer(mux)
}

// testProducts seeds a small catalog matching a realistic mise en place.
func testProducts() []checklist.Product {
	return []checklist.Product{
		{
			Name: "Pain",
			Items: []checklist.Item{
				{Name: "Baguette", Capacity: 10, Subtasks: []checklist.Subtask{{Name: "Decongeler"}}},
			},
			Tasks: []checklist.Task{{Name: "Ranger la reserve"}},
		},
		{
			Name: "Sauce tomate",
			Items: []checklist.Item{
				{Name: "Bac 5L", Capacity: 5},
			},
		},
		{
			Name: "Frites",
			Items: []checklist.Item{
				{Name: "Sachet 2.5kg", Capacity: 2.5},
			},
		},
	}
}

// Cleanup closes the store and removes temporary test files.
func (ts *TestSuite) Cleanup() {
	if ts.Server != nil {
		ts.Server.Close()
	}

	if err := data.CloseDB(); err != nil {
		fmt.Printf("Warning: failed to close test database: %v\n", err)
	}

	// Let sqlite release its file handles before removal
	time.Sleep(100 * time.Millisecond)

	if err := os.RemoveAll(ts.Config.TestDataDir); err != nil {
		fmt.Printf("Warning: failed to cleanup test directory %s: %v\n", ts.Config.TestDataDir, err)
	}
}

// MakeAPIRequest sends a JSON request to the test server.
func (ts *TestSuite) MakeAPIRequest(method, path string, body interface{}) (*http.Response, error) {
	var reqBody *bytes.Buffer

	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(bodyBytes)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, ts.Server.URL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	return ts.Client.Do(req)
}

// ParseJSONResponse parses a JSON response into the provided interface
func (ts *TestSuite) ParseJSONResponse(resp *http.Response, dest interface{}) error {
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(dest)
}

// ParseAPIData decodes the data field of a success envelope into dest.
func (ts *TestSuite) ParseAPIData(resp *http.Response, dest interface{}) error {
	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	if err := ts.ParseJSONResponse(resp, &envelope); err != nil {
		return err
	}
	if !envelope.Success {
		return fmt.Errorf("expected success envelope")
	}
	return json.Unmarshal(envelope.Data, dest)
}

// AssertStatusCode checks if response has expected status code
func (ts *TestSuite) AssertStatusCode(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("Expected status code %d, got %d", expected, resp.StatusCode)
	}
}

// AssertNoError fails the test if error is not nil
func (ts *TestSuite) AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
}
