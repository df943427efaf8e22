package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scriba/internal/models"
	"github.com/ternarybob/scriba/internal/services/transform"
)

// TransformHandler renders captured HTML to markdown for previews and
// exports
type TransformHandler struct {
	logger    arbor.ILogger
	transform *transform.Service
}

// NewTransformHandler creates a new TransformHandler
func NewTransformHandler(transformSvc *transform.Service, logger arbor.ILogger) *TransformHandler {
	return &TransformHandler{
		logger:    logger,
		transform: transformSvc,
	}
}

type markdownRequest struct {
	ContentHTML string `json:"contentHtml" validate:"required"`
}

// MarkdownHandler handles POST /api/transform/markdown
func (h *TransformHandler) MarkdownHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req markdownRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	markdown, err := h.transform.Markdown(req.ContentHTML)
	if err != nil {
		WriteFailure(w, models.ErrInvalidInput, err.Error())
		return
	}

	WriteSuccess(w, map[string]string{"markdown": markdown})
}
