package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scriba/internal/builder"
	"github.com/ternarybob/scriba/internal/common"
	"github.com/ternarybob/scriba/internal/interfaces"
	"github.com/ternarybob/scriba/internal/models"
	"github.com/ternarybob/scriba/internal/orchestrator"
	"github.com/ternarybob/scriba/internal/registry"
	validation "github.com/ternarybob/scriba/internal/validator"
	"github.com/ternarybob/scriba/internal/workspace"
)

// PageHandler handles page creation, content replacement, and block appends
type PageHandler struct {
	logger       arbor.ILogger
	jobs         common.JobsConfig
	builder      *builder.Service
	validator    *validation.Service
	orchestrator *orchestrator.Service
	registry     *registry.Registry
	client       interfaces.WorkspaceAPI
}

// NewPageHandler creates a new PageHandler
func NewPageHandler(jobs common.JobsConfig, builderSvc *builder.Service, validatorSvc *validation.Service, orchestratorSvc *orchestrator.Service, reg *registry.Registry, client interfaces.WorkspaceAPI, logger arbor.ILogger) *PageHandler {
	return &PageHandler{
		logger:       logger,
		jobs:         jobs,
		builder:      builderSvc,
		validator:    validatorSvc,
		orchestrator: orchestratorSvc,
		registry:     reg,
		client:       client,
	}
}

type createPageRequest struct {
	Title       string `json:"title" validate:"required"`
	DatabaseID  string `json:"databaseId" validate:"required"`
	ContentHTML string `json:"contentHtml" validate:"required"`
	URL         string `json:"url"`
	Icon        string `json:"icon"`
	Cover       string `json:"cover"`
	DryRun      bool   `json:"dryRun"`
	Strict      *bool  `json:"strict"`
}

type replaceContentRequest struct {
	Title       string `json:"title"`
	ContentHTML string `json:"contentHtml" validate:"required"`
	URL         string `json:"url"`
	DryRun      bool   `json:"dryRun"`
	Strict      *bool  `json:"strict"`
}

type appendChildrenRequest struct {
	Children []*models.Block `json:"children" validate:"required,min=1"`
}

type uploadStats struct {
	BlocksTotal int    `json:"blocks_total"`
	Appended    int    `json:"appended"`
	DurationMS  int64  `json:"duration_ms"`
	Phase       string `json:"phase"`
}

// CreatePageHandler handles POST /api/pages
func (h *PageHandler) CreatePageHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req createPageRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	doc := models.NewSourceDocument(req.ContentHTML, req.Title, req.URL)

	result, err := h.builder.Build(doc.HTML, builder.Options{
		Markers:   !req.DryRun,
		SourceURL: doc.SourceURL,
	})
	if err != nil {
		WriteFailure(w, models.ErrInvalidInput, err.Error())
		return
	}

	if req.DryRun {
		report := h.validator.Validate(req.ContentHTML, result.Blocks)
		report.Warnings = append(report.Warnings, result.Warnings...)
		h.writeReport(w, map[string]interface{}{
			"title":    result.Title,
			"blocks":   result.Blocks,
			"report":   report,
			"warnings": result.Warnings,
		}, report)
		return
	}

	databaseID, err := models.NormalizePageID(req.DatabaseID)
	if err != nil {
		WriteFailure(w, models.ErrInvalidInput, err.Error())
		return
	}

	page, err := h.client.CreatePage(r.Context(), &workspace.CreatePageRequest{
		Parent: workspace.Parent{
			Type:       "database_id",
			DatabaseID: databaseID,
		},
		Properties: titleProperty(pickTitle(doc.Title, result.Title)),
		Icon:       req.Icon,
		Cover:      req.Cover,
	})
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}

	job := h.newJob(page.ID, req.Strict)
	started := time.Now()

	if err := h.orchestrator.Run(r.Context(), job, result.Blocks); err != nil {
		h.writeJobFailure(w, job, err)
		return
	}

	report := h.validator.Validate(req.ContentHTML, result.Blocks)
	report.Warnings = append(report.Warnings, result.Warnings...)

	h.writeReport(w, map[string]interface{}{
		"page_id":    page.ID,
		"url":        page.URL,
		"request_id": job.RequestID,
		"report":     report,
		"warnings":   report.Warnings,
		"stats":      h.stats(job, started),
	}, report)
}

// ReplaceContentHandler handles PATCH /api/pages/{id}
func (h *PageHandler) ReplaceContentHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "PATCH") {
		return
	}

	var req replaceContentRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	doc := models.NewSourceDocument(req.ContentHTML, req.Title, req.URL)

	// The path names the target; a captured document may name its own in
	// the metadata comment when the path leaves it out.
	pageID := doc.TargetPageID
	if segment := PathSegment(r.URL.Path, "/api/pages/"); segment != "" {
		var err error
		pageID, err = models.NormalizePageID(segment)
		if err != nil {
			WriteFailure(w, models.ErrInvalidInput, "missing or malformed page id in path")
			return
		}
	}
	if pageID == "" {
		WriteFailure(w, models.ErrInvalidInput, "missing or malformed page id in path")
		return
	}
	doc.TargetPageID = pageID

	// The page must exist before any content is built or purged.
	if _, err := h.client.RetrievePage(r.Context(), pageID); err != nil {
		WriteErrorResponse(w, err)
		return
	}

	result, err := h.builder.Build(doc.HTML, builder.Options{
		Markers:   !req.DryRun,
		SourceURL: doc.SourceURL,
	})
	if err != nil {
		WriteFailure(w, models.ErrInvalidInput, err.Error())
		return
	}

	if req.DryRun {
		report := h.validator.Validate(req.ContentHTML, result.Blocks)
		report.Warnings = append(report.Warnings, result.Warnings...)
		h.writeReport(w, map[string]interface{}{
			"page_id":  pageID,
			"blocks":   result.Blocks,
			"report":   report,
			"warnings": result.Warnings,
		}, report)
		return
	}

	job := h.newJob(pageID, req.Strict)
	started := time.Now()

	if err := h.orchestrator.Run(r.Context(), job, result.Blocks); err != nil {
		h.writeJobFailure(w, job, err)
		return
	}

	if doc.Title != "" {
		if err := h.client.UpdatePageProperties(r.Context(), pageID, titleProperty(doc.Title)); err != nil {
			result.Warnings = append(result.Warnings, "title update failed: "+err.Error())
		}
	}

	report := h.validator.Validate(req.ContentHTML, result.Blocks)
	report.Warnings = append(report.Warnings, result.Warnings...)

	h.writeReport(w, map[string]interface{}{
		"page_id":    pageID,
		"request_id": job.RequestID,
		"report":     report,
		"warnings":   report.Warnings,
		"stats":      h.stats(job, started),
	}, report)
}

// AppendChildrenHandler handles POST /api/pages/{id}:appendChildren
func (h *PageHandler) AppendChildrenHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	rest := PathSegment(r.URL.Path, "/api/pages/")
	pageID, err := models.NormalizePageID(strings.TrimSuffix(rest, ":appendChildren"))
	if err != nil {
		WriteFailure(w, models.ErrInvalidInput, "missing or malformed page id in path")
		return
	}

	var req appendChildrenRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if err := checkWireBlocks(req.Children); err != nil {
		WriteFailure(w, models.ErrInvalidInput, err.Error())
		return
	}

	job := h.newJob(pageID, nil)
	ids, err := h.orchestrator.Append(r.Context(), job, req.Children)
	if err != nil {
		h.writeJobFailure(w, job, err)
		return
	}

	WriteSuccess(w, map[string]interface{}{
		"request_id": job.RequestID,
		"appended":   job.Appended,
		"ids":        ids,
	})
}

func (h *PageHandler) newJob(pageID string, strict *bool) *models.UploadJob {
	job := models.NewUploadJob(common.NewRequestID(), pageID)
	job.Strict = h.jobs.StrictSweep
	if strict != nil {
		job.Strict = *strict
	}
	h.registry.Add(job)
	return job
}

func (h *PageHandler) stats(job *models.UploadJob, started time.Time) uploadStats {
	return uploadStats{
		BlocksTotal: job.TotalUnits,
		Appended:    job.Appended,
		DurationMS:  time.Since(started).Milliseconds(),
		Phase:       string(job.Phase()),
	}
}

// writeReport writes the response for operations that carry a validation
// report. Reports with errors answer success=false under HTTP 200; they are
// outcomes, not transport failures.
func (h *PageHandler) writeReport(w http.ResponseWriter, data map[string]interface{}, report *models.ValidationReport) {
	if report.HasErrors {
		WriteJSON(w, models.ErrValidationFailed.HTTPStatus(), Envelope{
			Success: false,
			Data:    data,
			Error:   &WireError{Code: models.ErrValidationFailed, Message: "content fidelity below threshold"},
		})
		return
	}
	WriteSuccess(w, data)
}

// writeJobFailure renders a failed job, marking explicit cancellations
func (h *PageHandler) writeJobFailure(w http.ResponseWriter, job *models.UploadJob, err error) {
	code := CodeForError(err)
	if job.Cancelled() {
		code = models.ErrInternal
		if !job.Deadline.IsZero() && time.Now().After(job.Deadline) {
			code = models.ErrTimeout
		}
		WriteJSON(w, code.HTTPStatus(), Envelope{
			Success: false,
			Data:    map[string]interface{}{"cancelled": true, "request_id": job.RequestID},
			Error:   &WireError{Code: code, Message: err.Error()},
		})
		return
	}
	WriteJSON(w, code.HTTPStatus(), Envelope{
		Success: false,
		Data:    map[string]interface{}{"request_id": job.RequestID, "phase": string(job.Phase())},
		Error:   &WireError{Code: code, Message: err.Error()},
	})
}

var errMissingBlockType = fmt.Errorf("block with empty or missing type")

func errChildrenOnLeaf(t models.BlockType) error {
	return fmt.Errorf("block kind %s cannot carry children", t)
}

// checkWireBlocks validates caller-supplied blocks once at the boundary
func checkWireBlocks(blocks []*models.Block) error {
	var walk func([]*models.Block, int) error
	walk = func(list []*models.Block, depth int) error {
		for _, b := range list {
			if b == nil || b.Type == "" {
				return errMissingBlockType
			}
			if len(b.Children) > 0 && !models.AllowsChildren(b.Type) {
				return errChildrenOnLeaf(b.Type)
			}
			if err := walk(b.Children, depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(blocks, 0)
}

func pickTitle(requested, extracted string) string {
	if requested != "" {
		return requested
	}
	if extracted != "" {
		return extracted
	}
	return "Untitled"
}

// titleProperty builds the workspace's title property payload
func titleProperty(title string) map[string]interface{} {
	return map[string]interface{}{
		"title": map[string]interface{}{
			"title": []map[string]interface{}{
				{"text": map[string]interface{}{"content": title}},
			},
		},
	}
}
