// internal/session/handlers.go
package session

import (
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"

	"mepbackend/internal/catalog"
	"mepbackend/internal/checklist"
	"mepbackend/internal/data"
	"mepbackend/internal/logger"
	"mepbackend/internal/middleware"
)

// inject catalog service from main
var catalogService *catalog.Service

func SetCatalogService(service *catalog.Service) {
	catalogService = service
}

var (
	statsMu         sync.Mutex
	totalCommands   int
	failedCommands  int
	skippedProducts int
)

func logAndIncrement(stat *int, label string) {
	statsMu.Lock()
	*stat++
	count := *stat
	statsMu.Unlock()
	logger.LogInfo("Stat update: %s = %d", label, count)
}

// AddRowRequest adds an order row to a session.
type AddRowRequest struct {
	Key      string  `json:"key"`
	Product  string  `json:"product"`
	Quantity float64 `json:"quantity"`
}

// RemoveRowRequest removes an order row by position.
type RemoveRowRequest struct {
	Key   string `json:"key"`
	Index int    `json:"index"`
}

// CheckRequest toggles one checkable node. Kind selects which: "item",
// "subtask", "task", "tasksubtask" address the catalog product named by
// Product; "todo" addresses the session todo named by TodoID.
type CheckRequest struct {
	Key     string `json:"key"`
	Kind    string `json:"kind"`
	Product string `json:"product,omitempty"`
	Item    string `json:"item,omitempty"`
	Task    string `json:"task,omitempty"`
	Index   int    `json:"index,omitempty"`
	TodoID  string `json:"todo_id,omitempty"`
	Done    bool   `json:"done"`
}

// TodoRequest manages general todos. Action is one of add, remove,
// activate, deactivate.
type TodoRequest struct {
	Key    string `json:"key"`
	Action string `json:"action"`
	ID     string `json:"id,omitempty"`
	Task   string `json:"task,omitempty"`
}

// ResetRequest drops a session's persisted state (day selector change).
type ResetRequest struct {
	Key string `json:"key"`
}

// GetSessionHandler loads a session and returns its view model. A key
// never seen before loads as an empty session.
func GetSessionHandler(w http.ResponseWriter, r *http.Request) {
	logger.LogHTTPRequest(r)

	if r.Method != http.MethodGet {
		middleware.WriteAPIError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "Use GET", "")
		return
	}

	key := r.URL.Query().Get("key")
	if key == "" {
		middleware.WriteAPIError(w, r, http.StatusBadRequest, "missing_key", "Session key is required", "")
		return
	}

	sess, err := data.LoadSession(key)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	middleware.WriteAPISuccess(w, r, BuildView(sess, catalogService))
}

// AddRowHandler appends an order row and persists the session before
// responding, matching the save-on-every-interaction model.
func AddRowHandler(w http.ResponseWriter, r *http.Request) {
	logger.LogHTTPRequest(r)
	logAndIncrement(&totalCommands, "total_commands")

	var req AddRowRequest
	if !parseCommand(w, r, &req) {
		return
	}

	if req.Quantity <= 0 {
		logAndIncrement(&failedCommands, "failed_commands")
		middleware.WriteAPIError(w, r, http.StatusBadRequest, "invalid_quantity",
			fmt.Sprintf("Quantity must be positive, got %g", req.Quantity), "")
		return
	}

	if !catalogService.Has(req.Product) {
		logAndIncrement(&failedCommands, "failed_commands")
		middleware.WriteAPIError(w, r, http.StatusNotFound, "product_not_found",
			fmt.Sprintf("Product %q is not in the catalog", req.Product), "")
		return
	}

	sess, err := data.LoadSession(req.Key)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	sess.Rows = append(sess.Rows, checklist.OrderRow{Product: req.Product, Quantity: req.Quantity})

	if err := data.SaveSession(req.Key, sess); err != nil {
		writeStoreError(w, r, err)
		return
	}

	middleware.WriteAPISuccess(w, r, BuildView(sess, catalogService))
}

// RemoveRowHandler removes an order row by index.
func RemoveRowHandler(w http.ResponseWriter, r *http.Request) {
	logger.LogHTTPRequest(r)
	logAndIncrement(&totalCommands, "total_commands")

	var req RemoveRowRequest
	if !parseCommand(w, r, &req) {
		return
	}

	sess, err := data.LoadSession(req.Key)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	if req.Index < 0 || req.Index >= len(sess.Rows) {
		logAndIncrement(&failedCommands, "failed_commands")
		middleware.WriteAPIError(w, r, http.StatusBadRequest, "invalid_index",
			fmt.Sprintf("Row index %d out of range", req.Index), "")
		return
	}

	sess.Rows = append(sess.Rows[:req.Index], sess.Rows[req.Index+1:]...)

	if err := data.SaveSession(req.Key, sess); err != nil {
		writeStoreError(w, r, err)
		return
	}

	middleware.WriteAPISuccess(w, r, BuildView(sess, catalogService))
}

// CheckHandler toggles one checkable node and persists the owner of the
// flag: the catalog product for item/task kinds, the session for todos.
func CheckHandler(w http.ResponseWriter, r *http.Request) {
	logger.LogHTTPRequest(r)
	logAndIncrement(&totalCommands, "total_commands")

	var req CheckRequest
	if !parseCommand(w, r, &req) {
		return
	}

	sess, err := data.LoadSession(req.Key)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	switch req.Kind {
	case "item", "subtask", "task", "tasksubtask":
		var product checklist.Product
		var mutErr error
		switch req.Kind {
		case "item":
			product, mutErr = catalogService.SetItemDone(req.Product, req.Item, req.Done)
		case "subtask":
			product, mutErr = catalogService.SetSubtaskDone(req.Product, req.Item, req.Index, req.Done)
		case "task":
			product, mutErr = catalogService.SetTaskDone(req.Product, req.Task, req.Done)
		case "tasksubtask":
			product, mutErr = catalogService.SetTaskSubtaskDone(req.Product, req.Task, req.Index, req.Done)
		}
		if mutErr != nil {
			writeDomainError(w, r, mutErr)
			return
		}
		if err := data.UpsertProduct(product); err != nil {
			writeStoreError(w, r, err)
			return
		}

	case "todo":
		found := false
		for i := range sess.Todos {
			if sess.Todos[i].ID == req.TodoID {
				sess.Todos[i].Done = req.Done
				found = true
				break
			}
		}
		if !found {
			logAndIncrement(&failedCommands, "failed_commands")
			middleware.WriteAPIError(w, r, http.StatusNotFound, "todo_not_found",
				fmt.Sprintf("Todo %q is not in session %q", req.TodoID, req.Key), "")
			return
		}
		if err := data.SaveSession(req.Key, sess); err != nil {
			writeStoreError(w, r, err)
			return
		}

	default:
		logAndIncrement(&failedCommands, "failed_commands")
		middleware.WriteAPIError(w, r, http.StatusBadRequest, "invalid_kind",
			fmt.Sprintf("Unknown check kind %q", req.Kind), "")
		return
	}

	middleware.WriteAPISuccess(w, r, BuildView(sess, catalogService))
}

// TodosHandler adds, removes, activates, or deactivates a general todo.
func TodosHandler(w http.ResponseWriter, r *http.Request) {
	logger.LogHTTPRequest(r)
	logAndIncrement(&totalCommands, "total_commands")

	var req TodoRequest
	if !parseCommand(w, r, &req) {
		return
	}

	sess, err := data.LoadSession(req.Key)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	switch req.Action {
	case "add":
		if req.Task == "" {
			logAndIncrement(&failedCommands, "failed_commands")
			middleware.WriteAPIError(w, r, http.StatusBadRequest, "missing_task", "Todo text is required", "")
			return
		}
		sess.Todos = append(sess.Todos, checklist.GeneralTodo{
			ID:     uuid.NewString(),
			Task:   req.Task,
			Active: true,
		})

	case "remove", "activate", "deactivate":
		idx := -1
		for i := range sess.Todos {
			if sess.Todos[i].ID == req.ID {
				idx = i
				break
			}
		}
		if idx < 0 {
			logAndIncrement(&failedCommands, "failed_commands")
			middleware.WriteAPIError(w, r, http.StatusNotFound, "todo_not_found",
				fmt.Sprintf("Todo %q is not in session %q", req.ID, req.Key), "")
			return
		}
		switch req.Action {
		case "remove":
			sess.Todos = append(sess.Todos[:idx], sess.Todos[idx+1:]...)
		case "activate":
			sess.Todos[idx].Active = true
		case "deactivate":
			sess.Todos[idx].Active = false
		}

	default:
		logAndIncrement(&failedCommands, "failed_commands")
		middleware.WriteAPIError(w, r, http.StatusBadRequest, "invalid_action",
			fmt.Sprintf("Unknown todo action %q", req.Action), "")
		return
	}

	if err := data.SaveSession(req.Key, sess); err != nil {
		writeStoreError(w, r, err)
		return
	}

	middleware.WriteAPISuccess(w, r, BuildView(sess, catalogService))
}

// ResetHandler drops the persisted state for a session key. The front end
// calls it when the day selector changes.
func ResetHandler(w http.ResponseWriter, r *http.Request) {
	logger.LogHTTPRequest(r)
	logAndIncrement(&totalCommands, "total_commands")

	var req ResetRequest
	if !parseCommand(w, r, &req) {
		return
	}

	if err := data.ResetSession(req.Key); err != nil {
		writeStoreError(w, r, err)
		return
	}

	middleware.WriteAPISuccess(w, r, BuildView(checklist.NewSession(req.Key), catalogService))
}

// DayView pairs a selectable day key with its theme color.
type DayView struct {
	Key   string `json:"key"`
	Theme string `json:"theme"`
}

// DaysHandler returns the weekday keys the front end offers in its day
// selector, with their theme colors. Free-text keys remain accepted by
// every other endpoint.
func DaysHandler(w http.ResponseWriter, r *http.Request) {
	logger.LogHTTPRequest(r)

	if r.Method != http.MethodGet {
		middleware.WriteAPIError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "Use GET", "")
		return
	}

	days := make([]DayView, 0, len(checklist.DayKeys))
	for _, key := range checklist.DayKeys {
		days = append(days, DayView{Key: key, Theme: checklist.DayTheme(key)})
	}

	middleware.WriteAPISuccess(w, r, days)
}

// ProgressHandler returns the completed/total pair for a session.
func ProgressHandler(w http.ResponseWriter, r *http.Request) {
	logger.LogHTTPRequest(r)

	if r.Method != http.MethodGet {
		middleware.WriteAPIError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "Use GET", "")
		return
	}

	key := r.URL.Query().Get("key")
	if key == "" {
		middleware.WriteAPIError(w, r, http.StatusBadRequest, "missing_key", "Session key is required", "")
		return
	}

	sess, err := data.LoadSession(key)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	view := BuildView(sess, catalogService)
	middleware.WriteAPISuccess(w, r, map[string]interface{}{
		"completed":  view.Completed,
		"total":      view.Total,
		"percentage": view.Percentage,
	})
}

// =============================================================================
// SHARED HANDLER HELPERS
// =============================================================================

func parseCommand(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if r.Method != http.MethodPost {
		middleware.WriteAPIError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "Use POST", "")
		return false
	}

	if err := middleware.ParseJSONRequest(r, v); err != nil {
		logger.LogHTTPError(r, http.StatusBadRequest, err)
		logAndIncrement(&failedCommands, "failed_commands")
		middleware.WriteAPIError(w, r, http.StatusBadRequest, "invalid_request", "Invalid request body", err.Error())
		return false
	}

	return true
}

func writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	logAndIncrement(&failedCommands, "failed_commands")
	if errors.Is(err, data.ErrStoreUnavailable) {
		logger.LogHTTPError(r, http.StatusServiceUnavailable, err)
		middleware.WriteAPIError(w, r, http.StatusServiceUnavailable, "store_unavailable",
			"The backing store is unavailable", "")
		return
	}
	logger.LogHTTPError(r, http.StatusInternalServerError, err)
	middleware.WriteAPIError(w, r, http.StatusInternalServerError, "store_error",
		"Failed to access the backing store", "")
}

func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	logAndIncrement(&failedCommands, "failed_commands")
	switch {
	case errors.Is(err, checklist.ErrNotFound):
		logAndIncrement(&skippedProducts, "skipped_products")
		middleware.WriteAPIError(w, r, http.StatusNotFound, "not_found", err.Error(), "")
	case errors.Is(err, checklist.ErrDuplicateName):
		middleware.WriteAPIError(w, r, http.StatusConflict, "duplicate_name", err.Error(), "")
	case errors.Is(err, checklist.ErrInvalidQuantity), errors.Is(err, checklist.ErrInvalidCapacity):
		middleware.WriteAPIError(w, r, http.StatusBadRequest, "invalid_input", err.Error(), "")
	default:
		logger.LogHTTPError(r, http.StatusInternalServerError, err)
		middleware.WriteAPIError(w, r, http.StatusInternalServerError, "internal_error",
			"An internal error occurred", "")
	}
}
