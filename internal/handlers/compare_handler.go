package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scriba/internal/common"
	"github.com/ternarybob/scriba/internal/interfaces"
	"github.com/ternarybob/scriba/internal/models"
	validation "github.com/ternarybob/scriba/internal/validator"
)

// CompareHandler handles post-upload validation and text-coverage endpoints
type CompareHandler struct {
	logger    arbor.ILogger
	validator *validation.Service
	client    interfaces.WorkspaceAPI
}

// NewCompareHandler creates a new CompareHandler
func NewCompareHandler(validatorSvc *validation.Service, client interfaces.WorkspaceAPI, logger arbor.ILogger) *CompareHandler {
	return &CompareHandler{
		logger:    logger,
		validator: validatorSvc,
		client:    client,
	}
}

type validatePagesRequest struct {
	PageIDs []string `json:"pageIds" validate:"required,min=1"`
}

type comparePageRequest struct {
	PageID  string         `json:"pageId" validate:"required"`
	SrcText string         `json:"srcText" validate:"required"`
	Options compareOptions `json:"options"`
}

type compareOptions struct {
	MinMissingSpanTokens int `json:"minMissingSpanTokens"`
}

type pageSummary struct {
	PageID          string               `json:"page_id"`
	Blocks          int                  `json:"blocks"`
	Counts          models.ElementCounts `json:"counts"`
	ResidualMarkers int                  `json:"residual_markers"`
	Updated         bool                 `json:"updated"`
	Error           string               `json:"error,omitempty"`
}

// ValidatePagesHandler handles POST /api/validate. Each page is re-fetched,
// re-counted, checked for residual markers, and has its summary properties
// refreshed best-effort.
func (h *CompareHandler) ValidatePagesHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req validatePagesRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	summaries := make([]pageSummary, 0, len(req.PageIDs))
	for _, raw := range req.PageIDs {
		pageID, err := models.NormalizePageID(raw)
		if err != nil {
			summaries = append(summaries, pageSummary{PageID: raw, Error: err.Error()})
			continue
		}
		summaries = append(summaries, h.summarizePage(r.Context(), pageID))
	}

	WriteSuccess(w, map[string]interface{}{"pages": summaries})
}

func (h *CompareHandler) summarizePage(ctx context.Context, pageID string) pageSummary {
	blocks, err := h.fetchBlocks(ctx, pageID)
	if err != nil {
		return pageSummary{PageID: pageID, Error: err.Error()}
	}

	summary := pageSummary{
		PageID: pageID,
		Blocks: countTree(blocks),
		Counts: validation.CountElementsBlocks(blocks),
	}
	for _, b := range blocks {
		summary.ResidualMarkers += countMarkers(b)
	}

	props := map[string]interface{}{
		"Validation": selectProperty(validationStatus(summary.ResidualMarkers)),
	}
	if err := h.client.UpdatePageProperties(ctx, pageID, props); err != nil {
		if h.logger != nil {
			h.logger.Warn().Str("page_id", pageID).Err(err).Msg("Failed to refresh validation properties")
		}
	} else {
		summary.Updated = true
	}
	return summary
}

// ComparePageHandler handles POST /api/compare/notion-page
func (h *CompareHandler) ComparePageHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req comparePageRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	report, err := h.compare(r.Context(), req)
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}

	WriteSuccess(w, map[string]interface{}{
		"coverage":          report.Coverage,
		"adjusted_coverage": report.AdjustedCoverage,
		"missing_spans":     report.MissingSpans,
		"extra_spans":       report.ExtraSpans,
		"method":            report.Method,
		"inversions":        report.Inversions,
		"has_errors":        report.HasErrors,
	})
}

// CompareDBRowHandler handles POST /api/compare/notion-db-row. Same as the
// page compare, plus a write-back of the outcome to the page's properties.
func (h *CompareHandler) CompareDBRowHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req comparePageRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	report, err := h.compare(r.Context(), req)
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}

	pageID, _ := models.NormalizePageID(req.PageID)
	status := "Passed"
	if report.HasErrors {
		status = "Failed"
	}
	props := map[string]interface{}{
		"Coverage":   map[string]interface{}{"number": report.Coverage},
		"Validation": selectProperty(status),
	}

	updated := true
	if err := h.client.UpdatePageProperties(r.Context(), pageID, props); err != nil {
		updated = false
		if h.logger != nil {
			h.logger.Warn().Str("page_id", pageID).Err(err).Msg("Failed to write compare results to properties")
		}
	}

	WriteSuccess(w, map[string]interface{}{
		"updated":       updated,
		"coverage":      report.Coverage,
		"missing_spans": report.MissingSpans,
		"method":        report.Method,
		"has_errors":    report.HasErrors,
	})
}

// CompareHealthHandler handles GET /api/compare/health
func (h *CompareHandler) CompareHealthHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}
	WriteSuccess(w, map[string]string{
		"status":  "ok",
		"version": common.GetVersion(),
	})
}

func (h *CompareHandler) compare(ctx context.Context, req comparePageRequest) (*models.ValidationReport, error) {
	pageID, err := models.NormalizePageID(req.PageID)
	if err != nil {
		return nil, err
	}

	blocks, err := h.fetchBlocks(ctx, pageID)
	if err != nil {
		return nil, err
	}

	report := h.validator.CompareSegments(
		segmentsFromText(req.SrcText),
		validation.SegmentsFromBlocks(blocks),
	)

	if min := req.Options.MinMissingSpanTokens; min > 1 {
		report.MissingSpans = filterShortSpans(report.MissingSpans, min)
	}
	return report, nil
}

// fetchBlocks retrieves a page's full remote block tree, following both the
// children cursor and nested listings.
func (h *CompareHandler) fetchBlocks(ctx context.Context, parentID string) ([]*models.Block, error) {
	var blocks []*models.Block
	cursor := ""
	for {
		resp, err := h.client.ListChildren(ctx, parentID, cursor)
		if err != nil {
			return nil, err
		}
		for _, b := range resp.Results {
			if b.HasChildren && b.ID != "" && len(b.Children) == 0 {
				children, err := h.fetchBlocks(ctx, b.ID)
				if err != nil {
					return nil, err
				}
				b.Children = children
			}
			blocks = append(blocks, b)
		}
		if !resp.HasMore || resp.NextCursor == "" {
			return blocks, nil
		}
		cursor = resp.NextCursor
	}
}

// segmentsFromText splits operator-supplied source text into segments, one
// per non-empty line
func segmentsFromText(text string) []string {
	var segments []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			segments = append(segments, line)
		}
	}
	return segments
}

func filterShortSpans(spans []string, minTokens int) []string {
	out := make([]string, 0, len(spans))
	for _, span := range spans {
		if len(strings.Fields(span)) >= minTokens {
			out = append(out, span)
		}
	}
	return out
}

func countTree(blocks []*models.Block) int {
	count := 0
	for _, b := range blocks {
		count += 1 + b.DescendantCount()
	}
	return count
}

func countMarkers(b *models.Block) int {
	count := len(common.MarkerPattern.FindAllString(b.PlainText(), -1))
	for _, child := range b.Children {
		count += countMarkers(child)
	}
	return count
}

func validationStatus(residual int) string {
	if residual > 0 {
		return "Markers Remaining"
	}
	return "Validated"
}

// selectProperty builds the workspace's select property payload
func selectProperty(name string) map[string]interface{} {
	return map[string]interface{}{
		"select": map[string]interface{}{"name": name},
	}
}
