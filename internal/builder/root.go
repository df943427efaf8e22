package builder

import (
	"github.com/PuerkitoBio/goquery"
)

// contentRootSelectors lists candidate content containers in priority order.
// Vendor documentation wraps the document body in a dedicated container; the
// DITA schema classes come next, then generic main-content conventions.
var contentRootSelectors = []string{
	".zDocsTopicPageBody",
	".dita",
	".refbody",
	"main",
	"[role=main]",
	"body",
}

// chromeSelectors match navigation and decoration that never carries content
var chromeSelectors = []string{
	"script",
	"style",
	"noscript",
	"iframe:not([src*='youtube']):not([src*='youtu.be']):not([src*='vimeo']):not([src*='codepen']):not([src*='loom']):not([src*='figma'])",
	"svg",
	"nav",
	"header",
	"footer",
	"aside",
	".breadcrumb",
	".breadcrumbs",
	".zDocsBreadcrumb",
	".mini-toc",
	".miniToc",
	".toc",
	".related-content",
	".relatedContent",
	".related-links",
	".zDocsRelated",
	".sidebar",
	".feedback",
	"[aria-hidden='true']",
}

// locateContentRoot chooses the first matching content container, falling
// back to the document root when nothing matches.
func locateContentRoot(doc *goquery.Document) *goquery.Selection {
	for _, selector := range contentRootSelectors {
		if sel := doc.Find(selector).First(); sel.Length() > 0 {
			return sel
		}
	}
	return doc.Selection
}

// stripChrome removes navigation, breadcrumbs, mini-TOC, side panels, and
// non-content elements from the selected root.
func stripChrome(root *goquery.Selection) {
	for _, selector := range chromeSelectors {
		root.Find(selector).Remove()
	}
}
