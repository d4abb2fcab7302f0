// internal/catalog/handlers.go
package catalog

import (
	"errors"
	"fmt"
	"net/http"

	"mepbackend/internal/checklist"
	"mepbackend/internal/data"
	"mepbackend/internal/logger"
	"mepbackend/internal/middleware"
)

// inject the live catalog from main
var service *Service

func SetService(s *Service) {
	service = s
}

// UpsertProductRequest creates or replaces a whole product document.
type UpsertProductRequest struct {
	Product checklist.Product `json:"product"`
}

// RenameProductRequest re-keys a product.
type RenameProductRequest struct {
	Old string `json:"old"`
	New string `json:"new"`
}

// DuplicateProductRequest deep-copies a product under a new name.
type DuplicateProductRequest struct {
	Source string `json:"source"`
	Name   string `json:"name"`
}

// DeleteProductRequest removes a product from catalog and store.
type DeleteProductRequest struct {
	Name string `json:"name"`
}

// ItemRequest adds or removes an item on a product.
type ItemRequest struct {
	Product  string  `json:"product"`
	Action   string  `json:"action"`
	Name     string  `json:"name"`
	Capacity float64 `json:"capacity,omitempty"`
}

// SubtaskRequest adds or removes an item subtask.
type SubtaskRequest struct {
	Product string `json:"product"`
	Item    string `json:"item"`
	Action  string `json:"action"`
	Name    string `json:"name,omitempty"`
	Index   int    `json:"index,omitempty"`
}

// TaskRequest adds or removes a product-level task.
type TaskRequest struct {
	Product string `json:"product"`
	Action  string `json:"action"`
	Name    string `json:"name"`
}

// ListProductsHandler returns the whole catalog, ordered by name.
func ListProductsHandler(w http.ResponseWriter, r *http.Request) {
	logger.LogHTTPRequest(r)

	if r.Method != http.MethodGet {
		middleware.WriteAPIError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "Use GET", "")
		return
	}

	middleware.WriteAPISuccess(w, r, service.Products())
}

// UpsertProductHandler creates or replaces a product and persists it.
func UpsertProductHandler(w http.ResponseWriter, r *http.Request) {
	logger.LogHTTPRequest(r)

	var req UpsertProductRequest
	if !parseProductCommand(w, r, &req) {
		return
	}

	if req.Product.Name == "" {
		middleware.WriteAPIError(w, r, http.StatusBadRequest, "missing_name", "Product name is required", "")
		return
	}
	for _, item := range req.Product.Items {
		if item.Capacity <= 0 {
			middleware.WriteAPIError(w, r, http.StatusBadRequest, "invalid_capacity",
				fmt.Sprintf("Item %q has capacity %g, must be positive", item.Name, item.Capacity), "")
			return
		}
	}

	service.Put(req.Product)
	if err := data.UpsertProduct(req.Product); err != nil {
		writeCatalogStoreError(w, r, err)
		return
	}

	middleware.WriteAPISuccess(w, r, req.Product)
}

// RenameProductHandler re-keys a product in store and catalog. The old
// key stops resolving; items, tasks, and done flags ride along. The store
// commits first so a store failure leaves the live catalog on the old
// key instead of diverging from the persisted one.
func RenameProductHandler(w http.ResponseWriter, r *http.Request) {
	logger.LogHTTPRequest(r)

	var req RenameProductRequest
	if !parseProductCommand(w, r, &req) {
		return
	}

	current, err := service.Get(req.Old)
	if err != nil {
		writeCatalogDomainError(w, r, err)
		return
	}
	if req.Old == req.New {
		middleware.WriteAPISuccess(w, r, current)
		return
	}
	if service.Has(req.New) {
		writeCatalogDomainError(w, r, fmt.Errorf("%w: %q", checklist.ErrDuplicateName, req.New))
		return
	}

	current.Name = req.New
	if err := data.RenameProduct(req.Old, current); err != nil {
		if errors.Is(err, checklist.ErrDuplicateName) {
			writeCatalogDomainError(w, r, err)
			return
		}
		writeCatalogStoreError(w, r, err)
		return
	}

	renamed, err := service.Rename(req.Old, req.New)
	if err != nil {
		writeCatalogDomainError(w, r, err)
		return
	}

	middleware.WriteAPISuccess(w, r, renamed)
}

// DuplicateProductHandler deep-copies a product under a new unique name.
func DuplicateProductHandler(w http.ResponseWriter, r *http.Request) {
	logger.LogHTTPRequest(r)

	var req DuplicateProductRequest
	if !parseProductCommand(w, r, &req) {
		return
	}

	dup, err := service.Duplicate(req.Source, req.Name)
	if err != nil {
		writeCatalogDomainError(w, r, err)
		return
	}

	if err := data.UpsertProduct(dup); err != nil {
		writeCatalogStoreError(w, r, err)
		return
	}

	middleware.WriteAPISuccess(w, r, dup)
}

// DeleteProductHandler removes a product from the persistent catalog and
// the in-memory map. Sessions that still order it keep their rows; those
// rows are skipped at render time.
func DeleteProductHandler(w http.ResponseWriter, r *http.Request) {
	logger.LogHTTPRequest(r)

	var req DeleteProductRequest
	if !parseProductCommand(w, r, &req) {
		return
	}

	if err := data.DeleteProduct(req.Name); err != nil {
		writeCatalogStoreError(w, r, err)
		return
	}
	service.Delete(req.Name)

	middleware.WriteAPISuccess(w, r, map[string]string{"deleted": req.Name})
}

// ItemsHandler adds or removes a packaged item on a product.
func ItemsHandler(w http.ResponseWriter, r *http.Request) {
	logger.LogHTTPRequest(r)

	var req ItemRequest
	if !parseProductCommand(w, r, &req) {
		return
	}

	var product checklist.Product
	var err error
	switch req.Action {
	case "add":
		if req.Capacity <= 0 {
			middleware.WriteAPIError(w, r, http.StatusBadRequest, "invalid_capacity",
				fmt.Sprintf("Capacity must be positive, got %g", req.Capacity), "")
			return
		}
		product, err = service.AddItem(req.Product, checklist.Item{Name: req.Name, Capacity: req.Capacity})
	case "remove":
		product, err = service.RemoveItem(req.Product, req.Name)
	default:
		middleware.WriteAPIError(w, r, http.StatusBadRequest, "invalid_action",
			fmt.Sprintf("Unknown item action %q", req.Action), "")
		return
	}
	if err != nil {
		writeCatalogDomainError(w, r, err)
		return
	}

	if err := data.UpsertProduct(product); err != nil {
		writeCatalogStoreError(w, r, err)
		return
	}

	middleware.WriteAPISuccess(w, r, product)
}

// SubtasksHandler adds or removes a subtask on an item.
func SubtasksHandler(w http.ResponseWriter, r *http.Request) {
	logger.LogHTTPRequest(r)

	var req SubtaskRequest
	if !parseProductCommand(w, r, &req) {
		return
	}

	var product checklist.Product
	var err error
	switch req.Action {
	case "add":
		product, err = service.AddSubtask(req.Product, req.Item, checklist.Subtask{Name: req.Name})
	case "remove":
		product, err = service.RemoveSubtask(req.Product, req.Item, req.Index)
	default:
		middleware.WriteAPIError(w, r, http.StatusBadRequest, "invalid_action",
			fmt.Sprintf("Unknown subtask action %q", req.Action), "")
		return
	}
	if err != nil {
		writeCatalogDomainError(w, r, err)
		return
	}

	if err := data.UpsertProduct(product); err != nil {
		writeCatalogStoreError(w, r, err)
		return
	}

	middleware.WriteAPISuccess(w, r, product)
}

// TasksHandler adds or removes a product-level task.
func TasksHandler(w http.ResponseWriter, r *http.Request) {
	logger.LogHTTPRequest(r)

	var req TaskRequest
	if !parseProductCommand(w, r, &req) {
		return
	}

	var product checklist.Product
	var err error
	switch req.Action {
	case "add":
		product, err = service.AddTask(req.Product, checklist.Task{Name: req.Name})
	case "remove":
		product, err = service.RemoveTask(req.Product, req.Name)
	default:
		middleware.WriteAPIError(w, r, http.StatusBadRequest, "invalid_action",
			fmt.Sprintf("Unknown task action %q", req.Action), "")
		return
	}
	if err != nil {
		writeCatalogDomainError(w, r, err)
		return
	}

	if err := data.UpsertProduct(product); err != nil {
		writeCatalogStoreError(w, r, err)
		return
	}

	middleware.WriteAPISuccess(w, r, product)
}

// StatsHandler reports catalog counts and cache age for debugging.
func StatsHandler(w http.ResponseWriter, r *http.Request) {
	logger.LogHTTPRequest(r)

	if r.Method != http.MethodGet {
		middleware.WriteAPIError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "Use GET", "")
		return
	}

	middleware.WriteAPISuccess(w, r, service.Stats())
}

// =============================================================================
// SHARED HANDLER HELPERS
// =============================================================================

func parseProductCommand(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if r.Method != http.MethodPost {
		middleware.WriteAPIError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "Use POST", "")
		return false
	}

	if err := middleware.ParseJSONRequest(r, v); err != nil {
		logger.LogHTTPError(r, http.StatusBadRequest, err)
		middleware.WriteAPIError(w, r, http.StatusBadRequest, "invalid_request", "Invalid request body", err.Error())
		return false
	}

	return true
}

func writeCatalogDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, checklist.ErrDuplicateName):
		middleware.WriteAPIError(w, r, http.StatusConflict, "duplicate_name", err.Error(), "")
	case errors.Is(err, checklist.ErrNotFound):
		middleware.WriteAPIError(w, r, http.StatusNotFound, "not_found", err.Error(), "")
	default:
		logger.LogHTTPError(r, http.StatusInternalServerError, err)
		middleware.WriteAPIError(w, r, http.StatusInternalServerError, "internal_error",
			"An internal error occurred", "")
	}
}

func writeCatalogStoreError(w http.ResponseWriter, r *http.Request, err error) {
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
