// Package builder converts captured HTML into a workspace block tree. The
// pipeline locates the content root, normalizes the DOM, walks it emitting
// blocks per the element mapping, then enforces workspace tree limits.
package builder

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scriba/internal/common"
	"github.com/ternarybob/scriba/internal/interfaces"
	"github.com/ternarybob/scriba/internal/models"
	nethtml "golang.org/x/net/html"
)

// Service builds block trees from source documents. It is stateless and safe
// for concurrent use.
type Service struct {
	logger   arbor.ILogger
	config   common.BuilderConfig
	uploader interfaces.ImageUploader
}

// NewService creates a builder service. A nil uploader falls back to the
// pass-through uploader.
func NewService(config common.BuilderConfig, uploader interfaces.ImageUploader, logger arbor.ILogger) *Service {
	if uploader == nil {
		uploader = PassthroughUploader{}
	}
	return &Service{
		logger:   logger,
		config:   config,
		uploader: uploader,
	}
}

// Options controls a single build
type Options struct {
	Markers   bool   // Insert per-element correlation markers
	SourceURL string // Base URL for resolving relative references
}

// Result is the outcome of one conversion
type Result struct {
	Blocks   []*models.Block
	Title    string
	Warnings []string
}

// Build converts source HTML into a normalized block tree
func (s *Service) Build(html string, opts Options) (*Result, error) {
	if len(html) > s.config.MaxDocumentSize && s.config.MaxDocumentSize > 0 {
		return nil, fmt.Errorf("document size %d exceeds limit %d", len(html), s.config.MaxDocumentSize)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	title := extractTitle(doc)
	root := locateContentRoot(doc)
	stripChrome(root)

	w := &walker{
		service: s,
		opts:    opts,
		visited: make(map[*nethtml.Node]bool),
	}
	blocks := w.emitSelection(root)

	n := &normalizer{}
	blocks = n.normalize(blocks)

	warnings := append(w.warnings, n.warnings...)

	if s.logger != nil {
		s.logger.Debug().
			Int("html_length", len(html)).
			Int("blocks", len(blocks)).
			Int("warnings", len(warnings)).
			Str("title", title).
			Msg("Block tree built")
	}

	return &Result{
		Blocks:   blocks,
		Title:    title,
		Warnings: warnings,
	}, nil
}

// extractTitle extracts the page title from various sources
func extractTitle(doc *goquery.Document) string {
	if title := doc.Find("title").First().Text(); title != "" {
		return strings.TrimSpace(title)
	}
	if ogTitle, exists := doc.Find("meta[property='og:title']").Attr("content"); exists && ogTitle != "" {
		return strings.TrimSpace(ogTitle)
	}
	if h1 := doc.Find("h1").First().Text(); h1 != "" {
		return strings.TrimSpace(h1)
	}
	return ""
}
