package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scriba/internal/interfaces"
	"github.com/ternarybob/scriba/internal/models"
	"github.com/ternarybob/scriba/internal/workspace"
)

// DatabaseHandler proxies database schema and query operations
type DatabaseHandler struct {
	logger arbor.ILogger
	client interfaces.WorkspaceAPI
}

// NewDatabaseHandler creates a new DatabaseHandler
func NewDatabaseHandler(client interfaces.WorkspaceAPI, logger arbor.ILogger) *DatabaseHandler {
	return &DatabaseHandler{
		logger: logger,
		client: client,
	}
}

type queryDatabaseRequest struct {
	Filter   json.RawMessage `json:"filter"`
	Sorts    json.RawMessage `json:"sorts"`
	PageSize int             `json:"page_size" validate:"min=0,max=100"`
	Cursor   string          `json:"start_cursor"`
}

// GetDatabaseHandler handles GET /api/databases/{id}
func (h *DatabaseHandler) GetDatabaseHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	databaseID, err := models.NormalizePageID(PathSegment(r.URL.Path, "/api/databases/"))
	if err != nil {
		WriteFailure(w, models.ErrInvalidInput, "missing or malformed database id in path")
		return
	}

	db, err := h.client.RetrieveDatabase(r.Context(), databaseID)
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}

	WriteSuccess(w, db)
}

// QueryDatabaseHandler handles POST /api/databases/{id}/query
func (h *DatabaseHandler) QueryDatabaseHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	rest := PathSegment(r.URL.Path, "/api/databases/")
	databaseID, err := models.NormalizePageID(strings.TrimSuffix(rest, "/query"))
	if err != nil {
		WriteFailure(w, models.ErrInvalidInput, "missing or malformed database id in path")
		return
	}

	var req queryDatabaseRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	resp, err := h.client.QueryDatabase(r.Context(), databaseID, &workspace.QueryRequest{
		Filter:      req.Filter,
		Sorts:       req.Sorts,
		PageSize:    req.PageSize,
		StartCursor: req.Cursor,
	})
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}

	WriteSuccess(w, resp)
}
