package summary

import (
	"bytes"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gmtext "github.com/yuin/goldmark/text"
)

var (
	blockArtifacts = regexp.MustCompile(`</?p[^>]*>|\n{2,}`)
	tagLike        = regexp.MustCompile(`<[^>]*>`)
)

var markdownParser = goldmark.New()

// Normalize strips markdown structure and HTML artifacts from raw item text
// before it is embedded in a summarization prompt. READMEs arrive as full
// markdown documents; abstracts occasionally carry stray paragraph tags.
func Normalize(text string) string {
	plain := markdownToPlain(text)
	plain = blockArtifacts.ReplaceAllString(plain, "\n")
	plain = tagLike.ReplaceAllString(plain, "")
	return strings.TrimSpace(plain)
}

// markdownToPlain parses the text as markdown and walks the AST collecting
// text content, dropping image/link targets and formatting markers. Raw HTML
// passes through verbatim for the tag regexp to strip.
func markdownToPlain(source string) string {
	src := []byte(source)
	doc := markdownParser.Parser().Parse(gmtext.NewReader(src))

	var b bytes.Buffer
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Text:
			b.Write(node.Segment.Value(src))
			if node.SoftLineBreak() || node.HardLineBreak() {
				b.WriteByte('\n')
			}
		case *ast.String:
			b.Write(node.Value)
		case *ast.Image:
			// Alt text is already emitted by child text nodes; skip nothing.
		case *ast.HTMLBlock:
			// Emit the raw block text; the tag regexp strips the markup and
			// keeps any prose the block wraps.
			for i := 0; i < node.Lines().Len(); i++ {
				seg := node.Lines().At(i)
				b.Write(seg.Value(src))
			}
			if node.HasClosure() {
				b.Write(node.ClosureLine.Value(src))
			}
			if b.Len() > 0 {
				b.WriteByte('\n')
			}
			return ast.WalkSkipChildren, nil
		case *ast.RawHTML:
			for i := 0; i < node.Segments.Len(); i++ {
				seg := node.Segments.At(i)
				b.Write(seg.Value(src))
			}
			return ast.WalkSkipChildren, nil
		default:
			if n.Type() == ast.TypeBlock && b.Len() > 0 {
				b.WriteByte('\n')
			}
		}
		return ast.WalkContinue, nil
	})
	return b.String()
}

// truncate bounds prompt text by a rough 4-characters-per-token estimate.
// The cut backs up to a rune boundary so the result is always valid UTF-8.
func truncate(text string, maxTokens int) string {
	maxChars := maxTokens * 4
	if len(text) <= maxChars {
		return text
	}
	cut := maxChars
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}
