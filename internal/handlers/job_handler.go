package handlers

import (
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scriba/internal/models"
	"github.com/ternarybob/scriba/internal/registry"
)

// JobHandler exposes progress and cancellation for in-flight upload jobs
type JobHandler struct {
	logger   arbor.ILogger
	registry *registry.Registry
}

// NewJobHandler creates a new JobHandler
func NewJobHandler(reg *registry.Registry, logger arbor.ILogger) *JobHandler {
	return &JobHandler{
		logger:   logger,
		registry: reg,
	}
}

// GetJobHandler handles GET /api/jobs/{requestId}
func (h *JobHandler) GetJobHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	requestID := PathSegment(r.URL.Path, "/api/jobs/")
	job := h.registry.Get(requestID)
	if job == nil {
		WriteFailure(w, models.ErrNotFound, "no job with request id "+requestID)
		return
	}

	WriteSuccess(w, map[string]interface{}{
		"request_id": job.RequestID,
		"page_id":    job.PageID,
		"phase":      string(job.Phase()),
		"progress":   job.Snapshot(),
		"last_error": job.LastError(),
	})
}

// CancelJobHandler handles POST /api/jobs/{requestId}/cancel. The job stops
// at its next suspension point; already-uploaded blocks are not rolled back.
func (h *JobHandler) CancelJobHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	requestID := PathSegment(strings.TrimSuffix(r.URL.Path, "/cancel"), "/api/jobs/")
	if !h.registry.Cancel(requestID) {
		WriteFailure(w, models.ErrNotFound, "no running job with request id "+requestID)
		return
	}

	if h.logger != nil {
		h.logger.Info().Str("request_id", requestID).Msg("Job cancellation requested")
	}
	WriteSuccess(w, map[string]interface{}{
		"request_id": requestID,
		"cancelled":  true,
	})
}
