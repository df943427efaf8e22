package builder

import (
	"context"
	"errors"
	"strings"

	"github.com/ternarybob/scriba/internal/models"
	"golang.org/x/net/html"
)

// ErrImageUploadFailed is the sentinel an uploader returns when re-hosting
// fails; the image degrades to a link placeholder with a warning.
var ErrImageUploadFailed = errors.New("image upload failed")

// PassthroughUploader returns the original reference unchanged. It is the
// default when no re-hosting uploader is configured.
type PassthroughUploader struct{}

// Upload implements interfaces.ImageUploader
func (PassthroughUploader) Upload(_ context.Context, bytesOrURL string) (string, error) {
	return bytesOrURL, nil
}

// emitImage converts an <img> into an image block. Small data-URI images
// pass through inline; larger ones go to the uploader and degrade to a link
// placeholder when that fails. The alt text becomes the caption.
func (w *walker) emitImage(n *html.Node) []*models.Block {
	src := attrVal(n, "src")
	if src == "" {
		return nil
	}

	alt := strings.TrimSpace(attrVal(n, "alt"))
	var caption []models.RichText
	if alt != "" {
		caption = []models.RichText{models.NewRun(alt)}
	}

	if strings.HasPrefix(src, "data:") {
		limit := w.service.config.DataURILimit
		if limit > 0 && len(src) > limit {
			hosted, err := w.service.uploader.Upload(context.Background(), src)
			if err != nil {
				w.warn("image degraded to placeholder: data URI exceeds inline limit and upload failed")
				return w.imagePlaceholder(alt)
			}
			src = hosted
		}
		return []*models.Block{{
			Type:  models.BlockImage,
			Image: &models.FilePayload{URL: src, Caption: caption},
		}}
	}

	resolved := w.resolveURL(src)
	if resolved == "" {
		w.warn("image dropped: unresolvable source " + src)
		return w.imagePlaceholder(alt)
	}

	hosted, err := w.service.uploader.Upload(context.Background(), resolved)
	if err != nil {
		w.warn("image degraded to placeholder: upload failed for " + resolved)
		return w.imagePlaceholderWithHref(alt, resolved)
	}

	return []*models.Block{{
		Type:  models.BlockImage,
		Image: &models.FilePayload{URL: hosted, Caption: caption},
	}}
}

func (w *walker) imagePlaceholder(alt string) []*models.Block {
	if alt == "" {
		alt = "image unavailable"
	}
	return []*models.Block{w.textBlock(models.BlockParagraph,
		[]models.RichText{{Content: "[" + alt + "]", Annotations: models.Annotations{Italic: true}}})}
}

func (w *walker) imagePlaceholderWithHref(alt, href string) []*models.Block {
	if alt == "" {
		alt = "image"
	}
	return []*models.Block{w.textBlock(models.BlockParagraph,
		[]models.RichText{{Content: "[" + alt + "]", Annotations: models.Annotations{Italic: true}, Href: href}})}
}
