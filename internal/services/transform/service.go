// Package transform renders captured HTML to markdown and derives short
// plain-text excerpts from block trees.
package transform

import (
	"strings"
	"unicode/utf8"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scriba/internal/common"
	"github.com/ternarybob/scriba/internal/models"
)

// Service converts HTML to markdown. It is stateless after construction and
// safe for concurrent use.
type Service struct {
	logger    arbor.ILogger
	converter *md.Converter
}

// NewService creates a transform service
func NewService(logger arbor.ILogger) *Service {
	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())
	return &Service{
		logger:    logger,
		converter: converter,
	}
}

// Markdown renders source HTML as GitHub-flavored markdown
func (s *Service) Markdown(html string) (string, error) {
	out, err := s.converter.ConvertString(html)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// Excerpt returns the leading text of a block tree, marker-stripped and
// clipped to limit runes at a word boundary. Headings are skipped so the
// excerpt does not repeat the title.
func (s *Service) Excerpt(blocks []*models.Block, limit int) string {
	var sb strings.Builder
	for _, b := range blocks {
		switch b.Type {
		case models.BlockHeading1, models.BlockHeading2, models.BlockHeading3,
			models.BlockDivider, models.BlockTable, models.BlockImage, models.BlockVideo:
			continue
		}
		text := strings.TrimSpace(common.StripMarkers(b.PlainText()))
		if text == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(text)
		if utf8.RuneCountInString(sb.String()) >= limit {
			break
		}
	}
	return clipAtWord(sb.String(), limit)
}

// clipAtWord truncates to limit runes, backing up to the last space
func clipAtWord(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	clipped := string(runes[:limit])
	if i := strings.LastIndex(clipped, " "); i > limit/2 {
		clipped = clipped[:i]
	}
	return clipped + "…"
}
