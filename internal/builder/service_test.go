package builder

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/scriba/internal/common"
	"github.com/ternarybob/scriba/internal/models"
)

func newTestService() *Service {
	return NewService(common.BuilderConfig{
		MaxDocumentSize: 16 << 20,
		MaxTableRows:    100,
		DataURILimit:    8192,
	}, nil, nil)
}

func build(t *testing.T, html string, opts Options) *Result {
	t.Helper()
	result, err := newTestService().Build(html, opts)
	require.NoError(t, err)
	return result
}

func TestBuildHeadingAndParagraph(t *testing.T) {
	result := build(t, `<h1>Hello</h1><p>World.</p>`, Options{})

	require.Len(t, result.Blocks, 2)
	assert.Equal(t, models.BlockHeading1, result.Blocks[0].Type)
	assert.Equal(t, "Hello", result.Blocks[0].PlainText())
	assert.Equal(t, models.BlockParagraph, result.Blocks[1].Type)
	assert.Equal(t, "World.", result.Blocks[1].PlainText())
	assert.Empty(t, result.Warnings)
}

func TestBuildMarkersAppended(t *testing.T) {
	result := build(t, `<p>Hello there.</p>`, Options{Markers: true})

	require.Len(t, result.Blocks, 1)
	runs := result.Blocks[0].RichRuns()
	require.NotEmpty(t, runs)
	last := runs[len(runs)-1]
	assert.True(t, common.MarkerPattern.MatchString(last.Content), "last run carries the marker")
	assert.True(t, common.HasMarker(result.Blocks[0].PlainText()))
}

func TestBuildMarkersOffByDefault(t *testing.T) {
	result := build(t, `<p>Hello there.</p>`, Options{})
	assert.False(t, common.HasMarker(result.Blocks[0].PlainText()))
}

func TestBuildDeepHeadingClamped(t *testing.T) {
	result := build(t, `<h4>Four</h4><h5>Five</h5>`, Options{})

	require.Len(t, result.Blocks, 2)
	assert.Equal(t, models.BlockHeading3, result.Blocks[0].Type)
	assert.Equal(t, "▸ Four", result.Blocks[0].PlainText())
	assert.Equal(t, models.BlockHeading3, result.Blocks[1].Type)
	assert.Equal(t, "▸ ▸ Five", result.Blocks[1].PlainText())
}

func TestBuildTitleSources(t *testing.T) {
	result := build(t, `<html><head><title> My Title </title></head><body><h1>Other</h1></body></html>`, Options{})
	assert.Equal(t, "My Title", result.Title)

	result = build(t, `<html><head><meta property="og:title" content="OG Title"></head><body><p>x</p></body></html>`, Options{})
	assert.Equal(t, "OG Title", result.Title)

	result = build(t, `<h1>Heading Title</h1>`, Options{})
	assert.Equal(t, "Heading Title", result.Title)
}

func TestBuildCalloutFromAdmonitionClass(t *testing.T) {
	result := build(t, `<div class="note"><p>Mind the gap.</p></div>`, Options{})

	require.Len(t, result.Blocks, 1)
	b := result.Blocks[0]
	require.Equal(t, models.BlockCallout, b.Type)
	assert.Equal(t, "ⓘ", b.Callout.Icon)
	assert.Equal(t, "blue_background", b.Callout.Color)
	assert.Equal(t, "Mind the gap.", b.PlainText())
}

func TestBuildDuplicateCalloutsCollapsed(t *testing.T) {
	html := `<div class="warning"><p>Same note.</p></div><div class="warning"><p>Same note.</p></div>`
	result := build(t, html, Options{})

	require.Len(t, result.Blocks, 1)
	assert.Equal(t, models.BlockCallout, result.Blocks[0].Type)
	assert.Contains(t, result.Warnings, "duplicate_callouts_collapsed")
}

func TestBuildDistinctCalloutsKept(t *testing.T) {
	html := `<div class="tip"><p>First.</p></div><div class="tip"><p>Second.</p></div>`
	result := build(t, html, Options{})
	assert.Len(t, result.Blocks, 2)
}

func TestBuildTable(t *testing.T) {
	html := `<table>
		<thead><tr><th>Name</th><th>Value</th></tr></thead>
		<tbody>
			<tr><td>alpha</td><td>1</td></tr>
			<tr><td>ragged</td></tr>
		</tbody>
	</table>`
	result := build(t, html, Options{})

	require.Len(t, result.Blocks, 1)
	table := result.Blocks[0]
	require.Equal(t, models.BlockTable, table.Type)
	assert.Equal(t, 2, table.Table.TableWidth)
	assert.True(t, table.Table.HasColumnHeader)

	require.Len(t, table.Children, 3)
	for _, row := range table.Children {
		require.Equal(t, models.BlockTableRow, row.Type)
		assert.Len(t, row.TableRow.Cells, 2, "every row is padded to the table width")
	}
}

func TestBuildTableColspan(t *testing.T) {
	html := `<table><tr><td colspan="3">wide</td></tr><tr><td>a</td><td>b</td><td>c</td></tr></table>`
	result := build(t, html, Options{})

	require.Len(t, result.Blocks, 1)
	table := result.Blocks[0]
	assert.Equal(t, 3, table.Table.TableWidth)
	assert.False(t, table.Table.HasColumnHeader)
}

func TestBuildCodeLanguageDetection(t *testing.T) {
	result := build(t, `<pre><code class="language-go">func main() {
	run()
}
</code></pre>`, Options{})

	require.Len(t, result.Blocks, 1)
	code := result.Blocks[0]
	require.Equal(t, models.BlockCode, code.Type)
	assert.Equal(t, "go", code.Code.Language)
	assert.Equal(t, "func main() {\n\trun()\n}", code.PlainText(), "trailing newline trimmed, inner whitespace verbatim")
}

func TestBuildCodeUnknownLanguageDowngrades(t *testing.T) {
	result := build(t, `<pre><code class="language-klingon">nuqneH</code></pre>`, Options{})
	require.Len(t, result.Blocks, 1)
	assert.Equal(t, "plain text", result.Blocks[0].Code.Language)
}

func TestBuildCodeAliasLanguages(t *testing.T) {
	result := build(t, `<pre data-language="yml">key: value</pre>`, Options{})
	require.Len(t, result.Blocks, 1)
	assert.Equal(t, "yaml", result.Blocks[0].Code.Language)
}

func TestBuildLists(t *testing.T) {
	result := build(t, `<ul><li>one</li><li>two</li></ul><ol><li>first</li></ol>`, Options{})

	require.Len(t, result.Blocks, 3)
	assert.Equal(t, models.BlockBulletedItem, result.Blocks[0].Type)
	assert.Equal(t, models.BlockBulletedItem, result.Blocks[1].Type)
	assert.Equal(t, models.BlockNumberedItem, result.Blocks[2].Type)
	assert.Equal(t, "first", result.Blocks[2].PlainText())
}

func TestBuildNestedList(t *testing.T) {
	result := build(t, `<ul><li>Parent<ul><li>Child</li></ul></li></ul>`, Options{})

	require.Len(t, result.Blocks, 1)
	parent := result.Blocks[0]
	assert.Equal(t, "Parent", parent.PlainText())
	require.Len(t, parent.Children, 1)
	assert.Equal(t, "Child", parent.Children[0].PlainText())
}

func TestBuildToDoFromCheckbox(t *testing.T) {
	result := build(t, `<ul><li><input type="checkbox" checked>Do it</li><li><input type="checkbox">Later</li></ul>`, Options{})

	require.Len(t, result.Blocks, 2)
	require.Equal(t, models.BlockToDo, result.Blocks[0].Type)
	assert.True(t, result.Blocks[0].ToDo.Checked)
	assert.Equal(t, "Do it", result.Blocks[0].PlainText())
	assert.False(t, result.Blocks[1].ToDo.Checked)
}

func TestBuildDeepNestingFlattened(t *testing.T) {
	html := `<ul><li>L1<ul><li>L2<ul><li>L3<ul><li>L4</li></ul></li></ul></li></ul></li></ul>`
	result := build(t, html, Options{})

	assert.Contains(t, result.Warnings, "[nesting flattened]")

	var maxDepth func(blocks []*models.Block, depth int) int
	maxDepth = func(blocks []*models.Block, depth int) int {
		deepest := depth
		for _, b := range blocks {
			if d := maxDepth(b.Children, depth+1); d > deepest {
				deepest = d
			}
		}
		return deepest
	}
	assert.LessOrEqual(t, maxDepth(result.Blocks, 0), 3)
}

func TestBuildEmptyParagraphDropped(t *testing.T) {
	result := build(t, `<p>First</p><p>   </p><p>Second</p>`, Options{})

	require.Len(t, result.Blocks, 2)
	assert.Equal(t, "First", result.Blocks[0].PlainText())
	assert.Equal(t, "Second", result.Blocks[1].PlainText())
}

func TestBuildEmptyParagraphKeptBetweenLists(t *testing.T) {
	result := build(t, `<ul><li>a</li></ul><p> </p><ul><li>b</li></ul>`, Options{})

	require.Len(t, result.Blocks, 3)
	assert.Equal(t, models.BlockParagraph, result.Blocks[1].Type)
}

func TestBuildQuoteHoistsFirstParagraph(t *testing.T) {
	result := build(t, `<blockquote><p>Wise words.</p><p>More words.</p></blockquote>`, Options{})

	require.Len(t, result.Blocks, 1)
	quote := result.Blocks[0]
	require.Equal(t, models.BlockQuote, quote.Type)
	assert.Equal(t, "Wise words.", quote.PlainText())
	require.Len(t, quote.Children, 1)
	assert.Equal(t, "More words.", quote.Children[0].PlainText())
}

func TestBuildDividerAndToggle(t *testing.T) {
	result := build(t, `<hr><details><summary>More</summary><p>Hidden.</p></details>`, Options{})

	require.Len(t, result.Blocks, 2)
	assert.Equal(t, models.BlockDivider, result.Blocks[0].Type)
	toggle := result.Blocks[1]
	require.Equal(t, models.BlockToggle, toggle.Type)
	assert.Equal(t, "More", toggle.PlainText())
	require.Len(t, toggle.Children, 1)
	assert.Equal(t, "Hidden.", toggle.Children[0].PlainText())
}

func TestBuildInlineAnnotations(t *testing.T) {
	result := build(t, `<p>plain <strong>bold</strong> and <a href="https://example.com/doc">link</a></p>`, Options{})

	require.Len(t, result.Blocks, 1)
	runs := result.Blocks[0].RichRuns()
	require.Len(t, runs, 4)
	assert.False(t, runs[0].Annotations.Bold)
	assert.True(t, runs[1].Annotations.Bold)
	assert.Equal(t, "bold", runs[1].Content)
	assert.Equal(t, "https://example.com/doc", runs[3].Href)
}

func TestBuildInlineCodeAndColor(t *testing.T) {
	result := build(t, `<p>run <code>scriba -v</code> <span style="color: #d32f2f">now</span></p>`, Options{})

	runs := result.Blocks[0].RichRuns()
	var codeRun, colorRun *models.RichText
	for i := range runs {
		switch runs[i].Content {
		case "scriba -v":
			codeRun = &runs[i]
		case "now":
			colorRun = &runs[i]
		}
	}
	require.NotNil(t, codeRun)
	assert.True(t, codeRun.Annotations.Code)
	require.NotNil(t, colorRun)
	assert.Equal(t, "red", colorRun.Annotations.Color)
}

func TestBuildImageDataURIInline(t *testing.T) {
	src := "data:image/png;base64,iVBORw0KGgo="
	result := build(t, `<img src="`+src+`" alt="logo">`, Options{})

	require.Len(t, result.Blocks, 1)
	img := result.Blocks[0]
	require.Equal(t, models.BlockImage, img.Type)
	assert.Equal(t, src, img.Image.URL)
	require.Len(t, img.Image.Caption, 1)
	assert.Equal(t, "logo", img.Image.Caption[0].Content)
}

func TestBuildImageRelativeResolved(t *testing.T) {
	result := build(t, `<img src="images/arch.png" alt="diagram">`,
		Options{SourceURL: "https://docs.example.com/guide/page"})

	require.Len(t, result.Blocks, 1)
	assert.Equal(t, "https://docs.example.com/guide/images/arch.png", result.Blocks[0].Image.URL)
}

func TestBuildImageUnresolvableDegrades(t *testing.T) {
	result := build(t, `<img src="images/arch.png" alt="diagram">`, Options{})

	require.Len(t, result.Blocks, 1)
	b := result.Blocks[0]
	assert.Equal(t, models.BlockParagraph, b.Type)
	assert.Equal(t, "[diagram]", b.PlainText())
	assert.True(t, b.RichRuns()[0].Annotations.Italic)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "unresolvable")
}

type failingUploader struct{}

func (failingUploader) Upload(context.Context, string) (string, error) {
	return "", ErrImageUploadFailed
}

func TestBuildImageUploadFailureKeepsHref(t *testing.T) {
	svc := NewService(common.BuilderConfig{MaxDocumentSize: 16 << 20, DataURILimit: 8192}, failingUploader{}, nil)
	result, err := svc.Build(`<img src="https://cdn.example.com/a.png" alt="shot">`, Options{})
	require.NoError(t, err)

	require.Len(t, result.Blocks, 1)
	b := result.Blocks[0]
	assert.Equal(t, models.BlockParagraph, b.Type)
	assert.Equal(t, "https://cdn.example.com/a.png", b.RichRuns()[0].Href)
	assert.NotEmpty(t, result.Warnings)
}

func TestBuildChromeStripped(t *testing.T) {
	html := `<html><body>
		<nav>Site nav</nav>
		<div class="breadcrumb">Home / Docs</div>
		<main><p>Actual content.</p></main>
		<footer>Legal</footer>
	</body></html>`
	result := build(t, html, Options{})

	require.Len(t, result.Blocks, 1)
	assert.Equal(t, "Actual content.", result.Blocks[0].PlainText())
}

func TestBuildVideoAndBookmarkEmbeds(t *testing.T) {
	html := `<iframe src="https://www.youtube.com/embed/abc123"></iframe>
		<iframe src="https://codepen.io/pen/xyz"></iframe>
		<iframe src="https://ads.example.com/banner"></iframe>`
	result := build(t, html, Options{})

	require.Len(t, result.Blocks, 2)
	assert.Equal(t, models.BlockVideo, result.Blocks[0].Type)
	assert.Equal(t, models.BlockBookmark, result.Blocks[1].Type)
}

func TestBuildDocumentSizeLimit(t *testing.T) {
	svc := NewService(common.BuilderConfig{MaxDocumentSize: 64}, nil, nil)
	_, err := svc.Build("<p>"+strings.Repeat("x", 200)+"</p>", Options{})
	assert.Error(t, err)
}

func TestBuildLongRunSplit(t *testing.T) {
	long := strings.Repeat("a", models.MaxRunLength+500)
	result := build(t, "<p>"+long+"</p>", Options{})

	require.Len(t, result.Blocks, 1)
	runs := result.Blocks[0].RichRuns()
	require.Len(t, runs, 2)
	for _, r := range runs {
		assert.LessOrEqual(t, len([]rune(r.Content)), models.MaxRunLength)
	}
}
