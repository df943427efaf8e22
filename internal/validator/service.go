// Package validator proves content fidelity between source HTML and a block
// tree: element-count comparison plus an LCS text-coverage score with fuzzy
// reconciliation of unmatched segments.
package validator

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scriba/internal/common"
	"github.com/ternarybob/scriba/internal/models"
)

// Service computes validation reports. It is stateless and safe for
// concurrent use.
type Service struct {
	logger arbor.ILogger
	config common.ValidatorConfig
}

// NewService creates a validator service
func NewService(config common.ValidatorConfig, logger arbor.ILogger) *Service {
	return &Service{
		logger: logger,
		config: config,
	}
}

// defaultElementTolerances are the allowed source/notion count deltas per
// element class when validator.element_tolerances leaves one unset. Tables,
// images, and code blocks tolerate no drift.
var defaultElementTolerances = map[string]int{
	"tables":      0,
	"images":      0,
	"lists":       1,
	"callouts":    1,
	"code_blocks": 0,
	"headings":    1,
}

func (s *Service) tolerance(name string) int {
	if t, ok := s.config.ElementTolerances[name]; ok {
		return t
	}
	return defaultElementTolerances[name]
}

// Validate compares source HTML against a block tree and produces the
// validation report: element counts, coverage, missing spans, inversions.
func (s *Service) Validate(sourceHTML string, blocks []*models.Block) *models.ValidationReport {
	report := &models.ValidationReport{
		SourceCounts: CountElementsHTML(sourceHTML),
		NotionCounts: CountElementsBlocks(blocks),
		Errors:       []string{},
		Warnings:     []string{},
		MissingSpans: []string{},
		Method:       "exact",
	}

	s.checkElementCounts(report)
	s.compareText(SegmentsFromHTML(sourceHTML), SegmentsFromBlocks(blocks), report)
	s.finalize(report)
	return report
}

// CompareSegments compares two raw text corpora segment-wise and produces a
// coverage-only report. Used by the compare endpoints where the caller
// supplies extracted source text.
func (s *Service) CompareSegments(sourceSegments, notionSegments []string) *models.ValidationReport {
	report := &models.ValidationReport{
		Errors:       []string{},
		Warnings:     []string{},
		MissingSpans: []string{},
		Method:       "exact",
	}
	s.compareText(sourceSegments, notionSegments, report)
	s.finalize(report)
	return report
}

func (s *Service) checkElementCounts(report *models.ValidationReport) {
	deltas := map[string][2]int{
		"tables":      {report.SourceCounts.Tables, report.NotionCounts.Tables},
		"images":      {report.SourceCounts.Images, report.NotionCounts.Images},
		"lists":       {report.SourceCounts.Lists, report.NotionCounts.Lists},
		"callouts":    {report.SourceCounts.Callouts, report.NotionCounts.Callouts},
		"code_blocks": {report.SourceCounts.CodeBlocks, report.NotionCounts.CodeBlocks},
		"headings":    {report.SourceCounts.Headings, report.NotionCounts.Headings},
	}
	for name, pair := range deltas {
		delta := pair[0] - pair[1]
		if delta < 0 {
			delta = -delta
		}
		if delta > s.tolerance(name) {
			report.AddError(fmt.Sprintf("%s count mismatch: source %d, notion %d", name, pair[0], pair[1]))
		}
	}
}

func (s *Service) compareText(sourceRaw, notionRaw []string, report *models.ValidationReport) {
	source := NormalizeSegments(sourceRaw)
	notion := NormalizeSegments(notionRaw)

	report.Coverage = Coverage(source, notion)
	report.Inversions = countInversions(source, notion)

	missing := setDifference(source, notion)
	extra := setDifference(notion, source)

	cfg := fuzzyConfig{
		GroupMax:       s.config.GroupMax,
		LevRatio:       s.config.LevRatio,
		TokenOverlap:   s.config.TokenOverlap,
		FuzzyThreshold: s.config.FuzzyThreshold,
	}
	matched := reconcile(missing, extra, cfg)

	report.MissingSpans = matched.Missing
	report.ExtraSpans = matched.Extra
	report.Method = matched.Method

	// Adjusted coverage credits confident fuzzy matches on top of the raw
	// LCS score. Raw coverage stays authoritative for pass/fail.
	report.AdjustedCoverage = report.Coverage
	if denom := maxInt(len(source), len(notion)); denom > 0 && matched.Confident > 0 {
		adjusted := report.Coverage + float64(matched.Confident)/float64(denom)
		if adjusted > 1.0 {
			adjusted = 1.0
		}
		report.AdjustedCoverage = adjusted
	}

	if report.Inversions > s.config.InversionWarn {
		report.AddWarning(fmt.Sprintf("%d segment order inversions detected", report.Inversions))
	}
}

func (s *Service) finalize(report *models.ValidationReport) {
	if report.Coverage < s.config.CoverageThreshold {
		report.AddError(fmt.Sprintf("coverage %.4f below threshold %.4f", report.Coverage, s.config.CoverageThreshold))
	}
	if len(report.MissingSpans) > s.config.MaxMissingSpans {
		report.AddError(fmt.Sprintf("%d missing spans exceed allowed %d", len(report.MissingSpans), s.config.MaxMissingSpans))
	}

	if s.logger != nil {
		s.logger.Debug().
			Float64("coverage", report.Coverage).
			Float64("adjusted_coverage", report.AdjustedCoverage).
			Int("missing", len(report.MissingSpans)).
			Bool("has_errors", report.HasErrors).
			Msg("Validation report computed")
	}
}

// CountElementsHTML tallies structural elements in source HTML
func CountElementsHTML(html string) models.ElementCounts {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return models.ElementCounts{}
	}
	doc.Find("script, style, noscript, nav, header, footer, aside").Remove()

	counts := models.ElementCounts{
		Tables:   doc.Find("table").Length(),
		Images:   doc.Find("img").Length(),
		Lists:    doc.Find("ul, ol").Length(),
		Headings: doc.Find("h1, h2, h3, h4, h5, h6").Length(),
	}

	counts.CodeBlocks = doc.Find("pre").Length() + doc.Find("div.codeblock, code.codeblock").Length()

	doc.Find("div, section").Each(func(_ int, sel *goquery.Selection) {
		class, _ := sel.Attr("class")
		for _, c := range strings.Fields(class) {
			switch strings.ToLower(c) {
			case "note", "info", "tip", "warning", "caution", "important":
				counts.Callouts++
				return
			}
		}
	})
	return counts
}

// CountElementsBlocks tallies structural elements in a block tree. A "list"
// is a maximal run of adjacent same-kind list items among siblings.
func CountElementsBlocks(blocks []*models.Block) models.ElementCounts {
	var counts models.ElementCounts
	var walk func([]*models.Block)
	walk = func(list []*models.Block) {
		var prevListKind models.BlockType
		for _, b := range list {
			switch b.Type {
			case models.BlockTable:
				counts.Tables++
			case models.BlockImage:
				counts.Images++
			case models.BlockCallout:
				counts.Callouts++
			case models.BlockCode:
				counts.CodeBlocks++
			case models.BlockHeading1, models.BlockHeading2, models.BlockHeading3:
				counts.Headings++
			}

			if b.Type == models.BlockBulletedItem || b.Type == models.BlockNumberedItem {
				if b.Type != prevListKind {
					counts.Lists++
				}
				prevListKind = b.Type
			} else {
				prevListKind = ""
			}

			walk(b.Children)
		}
	}
	walk(blocks)
	return counts
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
