package builder

import (
	"strings"

	"github.com/ternarybob/scriba/internal/models"
	"golang.org/x/net/html"
)

// codeLanguages is the workspace's accepted language list. Inferred languages
// outside the list downgrade to "plain text".
var codeLanguages = map[string]string{
	"abap": "abap", "bash": "bash", "sh": "bash", "shell": "bash",
	"c": "c", "c#": "c#", "csharp": "c#", "c++": "c++", "cpp": "c++",
	"css": "css", "diff": "diff", "docker": "docker", "dockerfile": "docker",
	"go": "go", "golang": "go", "graphql": "graphql", "groovy": "groovy",
	"html": "html", "java": "java", "javascript": "javascript", "js": "javascript",
	"json": "json", "kotlin": "kotlin", "less": "less", "lua": "lua",
	"makefile": "makefile", "markdown": "markdown", "md": "markdown",
	"objective-c": "objective-c", "perl": "perl", "php": "php",
	"powershell": "powershell", "ps1": "powershell", "python": "python",
	"py": "python", "r": "r", "ruby": "ruby", "rust": "rust",
	"scala": "scala", "scss": "scss", "sql": "sql", "swift": "swift",
	"toml": "toml", "typescript": "typescript", "ts": "typescript",
	"xml": "xml", "yaml": "yaml", "yml": "yaml",
}

const plainTextLanguage = "plain text"

// emitCode converts a <pre> or code container into a code block. Whitespace
// is preserved verbatim; entity decoding already happened in the parser.
func (w *walker) emitCode(n *html.Node) []*models.Block {
	text := strings.TrimRight(rawText(n), "\n")
	if strings.TrimSpace(text) == "" {
		return nil
	}

	language := detectLanguage(n)

	runs := models.SplitRuns([]models.RichText{models.NewRun(text)})
	return []*models.Block{{
		Type: models.BlockCode,
		Code: &models.CodePayload{
			RichText: runs,
			Language: language,
		},
	}}
}

// detectLanguage reads the language from a data-language attribute or a
// language-* class on the element or its inner <code>, falling back to
// plain text for anything off the allow-list.
func detectLanguage(n *html.Node) string {
	candidates := []string{attrVal(n, "data-language")}
	candidates = append(candidates, classLanguages(n)...)

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == "code" {
			candidates = append(candidates, attrVal(c, "data-language"))
			candidates = append(candidates, classLanguages(c)...)
		}
	}

	for _, candidate := range candidates {
		candidate = strings.ToLower(strings.TrimSpace(candidate))
		if candidate == "" {
			continue
		}
		if mapped, ok := codeLanguages[candidate]; ok {
			return mapped
		}
	}
	return plainTextLanguage
}

func classLanguages(n *html.Node) []string {
	var out []string
	for _, class := range strings.Fields(attrVal(n, "class")) {
		if lang, ok := strings.CutPrefix(class, "language-"); ok {
			out = append(out, lang)
		}
	}
	return out
}

// rawText concatenates all text beneath n without whitespace collapsing
func rawText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			sb.WriteString(node.Data)
			return
		}
		if node.Type == html.ElementNode && node.Data == "br" {
			sb.WriteString("\n")
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
