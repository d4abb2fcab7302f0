// internal/export/handlers.go
package export

import (
	"errors"
	"net/http"

	"mepbackend/internal/catalog"
	"mepbackend/internal/config"
	"mepbackend/internal/data"
	"mepbackend/internal/logger"
	"mepbackend/internal/middleware"
)

// inject the live catalog from main
var catalogService *catalog.Service

func SetCatalogService(service *catalog.Service) {
	catalogService = service
}

// ExportRequest names the session to export.
type ExportRequest struct {
	Key string `json:"key"`
}

// ExportResponse carries the artifact path and the rendered text so the
// front end can preview it without a second request.
type ExportResponse struct {
	Path string `json:"path"`
	Text string `json:"text"`
}

// ExportHandler renders the session checklist and writes the artifact.
// An empty checklist is reported explicitly, not written as an empty file.
func ExportHandler(w http.ResponseWriter, r *http.Request) {
	logger.LogHTTPRequest(r)

	if r.Method != http.MethodPost {
		middleware.WriteAPIError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "Use POST", "")
		return
	}

	var req ExportRequest
	if err := middleware.ParseJSONRequest(r, &req); err != nil {
		logger.LogHTTPError(r, http.StatusBadRequest, err)
		middleware.WriteAPIError(w, r, http.StatusBadRequest, "invalid_request", "Invalid request body", err.Error())
		return
	}
	if req.Key == "" {
		middleware.WriteAPIError(w, r, http.StatusBadRequest, "missing_key", "Session key is required", "")
		return
	}

	sess, err := data.LoadSession(req.Key)
	if err != nil {
		if errors.Is(err, data.ErrStoreUnavailable) {
			logger.LogHTTPError(r, http.StatusServiceUnavailable, err)
			middleware.WriteAPIError(w, r, http.StatusServiceUnavailable, "store_unavailable",
				"The backing store is unavailable", "")
			return
		}
		logger.LogHTTPError(r, http.StatusInternalServerError, err)
		middleware.WriteAPIError(w, r, http.StatusInternalServerError, "store_error",
			"Failed to access the backing store", "")
		return
	}

	text, err := Render(sess, catalogService)
	if err != nil {
		if errors.Is(err, ErrEmptyChecklist) {
			middleware.WriteAPIError(w, r, http.StatusUnprocessableEntity, "empty_checklist",
				"Nothing to export for this session", "")
			return
		}
		logger.LogHTTPError(r, http.StatusInternalServerError, err)
		middleware.WriteAPIError(w, r, http.StatusInternalServerError, "export_failed",
			"Failed to render checklist", "")
		return
	}

	path, err := writeArtifact(config.ExportDirectory(), sess.Key, text)
	if err != nil {
		logger.LogHTTPError(r, http.StatusInternalServerError, err)
		middleware.WriteAPIError(w, r, http.StatusInternalServerError, "export_failed",
			"Failed to write export artifact", "")
		return
	}

	middleware.WriteAPISuccess(w, r, ExportResponse{Path: path, Text: text})
}
