package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paperpulse/paperpulse/internal/store"
)

var reportDate = time.Date(2025, 10, 14, 0, 0, 0, 0, time.UTC)

func renderableDoc() *store.Document {
	return &store.Document{
		Papers: []store.PaperItem{
			{Title: "A", Abstract: "abs A", PDFLink: "x"},
		},
		Repos:         []store.RepoItem{},
		ItemSummaries: []string{"sum A"},
		Rollup:        "rollup",
	}
}

func TestRenderMarkdown(t *testing.T) {
	r := New("", t.TempDir(), nil)

	md, err := r.RenderMarkdown(renderableDoc(), reportDate)
	require.NoError(t, err)

	assert.Contains(t, md, "### Paper: A")
	assert.Contains(t, md, "url: x")
	assert.Contains(t, md, "rollup")
	assert.Contains(t, md, "2025-10-14")
}

func TestRenderMarkdown_WithRepos(t *testing.T) {
	r := New("", t.TempDir(), nil)
	doc := renderableDoc()
	doc.Repos = []store.RepoItem{{URL: "https://github.com/x/y", Language: "Go", Description: "desc"}}
	doc.ItemSummaries = []string{"sum A", "sum repo"}

	md, err := r.RenderMarkdown(doc, reportDate)
	require.NoError(t, err)
	assert.Contains(t, md, "### Repo: https://github.com/x/y")
	assert.Contains(t, md, "language: Go")
}

func TestRenderHTML_SingleArticleBlock(t *testing.T) {
	r := New("", t.TempDir(), nil)

	html, err := r.RenderHTML(renderableDoc(), reportDate)
	require.NoError(t, err)

	assert.Equal(t, 1, strings.Count(html, "<!-- START: ARTICLE BLOCK -->"))
	assert.Contains(t, html, "A")
	assert.Contains(t, html, "abs A")
	assert.Contains(t, html, "sum A")
	assert.Contains(t, html, `href="x"`)
	assert.Contains(t, html, "rollup")
	assert.Contains(t, html, "2025-10-14")
	assert.NotContains(t, html, "[GLOBAL_TLDR_SUMMARY]")
	assert.NotContains(t, html, "XXXX-XX-XX")
}

func TestRenderHTML_FallbackPlaceholder(t *testing.T) {
	dir := t.TempDir()
	tplPath := filepath.Join(dir, "tpl.html")
	tpl := "<html><body>[GLOBAL_TLDR_SUMMARY]<!-- INSERT_ARTICLES_HERE --></body></html>"
	require.NoError(t, os.WriteFile(tplPath, []byte(tpl), 0o644))

	r := New(tplPath, dir, nil)
	html, err := r.RenderHTML(renderableDoc(), reportDate)
	require.NoError(t, err)

	assert.Contains(t, html, "abs A")
	assert.NotContains(t, html, "<!-- INSERT_ARTICLES_HERE -->")
}

func TestRender_MissingRollup(t *testing.T) {
	r := New("", t.TempDir(), nil)
	doc := renderableDoc()
	doc.Rollup = ""

	_, err := r.RenderMarkdown(doc, reportDate)
	assert.ErrorIs(t, err, ErrMissingSection)
	_, err = r.RenderHTML(doc, reportDate)
	assert.ErrorIs(t, err, ErrMissingSection)
}

func TestRender_MissingPapers(t *testing.T) {
	r := New("", t.TempDir(), nil)
	doc := renderableDoc()
	doc.Papers = nil

	_, err := r.RenderMarkdown(doc, reportDate)
	assert.ErrorIs(t, err, ErrMissingSection)
}

func TestRender_EmptyPapersSectionStillRenders(t *testing.T) {
	r := New("", t.TempDir(), nil)
	doc := &store.Document{
		Papers:        []store.PaperItem{},
		Repos:         []store.RepoItem{{URL: "https://github.com/x/y", Language: "Go", Description: "desc"}},
		ItemSummaries: []string{"sum repo"},
		Rollup:        "rollup",
	}

	md, err := r.RenderMarkdown(doc, reportDate)
	require.NoError(t, err)
	assert.Contains(t, md, "### Repo: https://github.com/x/y")

	html, err := r.RenderHTML(doc, reportDate)
	require.NoError(t, err)
	assert.Zero(t, strings.Count(html, "<!-- START: ARTICLE BLOCK -->"))
	assert.Contains(t, html, "rollup")
	assert.NotContains(t, html, "<!-- START: ARTICLE BLOCKS -->")
}

func TestRender_SummaryCountMismatch(t *testing.T) {
	r := New("", t.TempDir(), nil)
	doc := renderableDoc()
	doc.ItemSummaries = []string{"sum A", "stray"}

	_, err := r.RenderMarkdown(doc, reportDate)
	assert.ErrorIs(t, err, ErrSummaryMismatch)
}

func TestRenderFiles(t *testing.T) {
	dir := t.TempDir()
	r := New("", dir, nil)

	mdPath, htmlPath, err := r.RenderFiles(renderableDoc(), reportDate)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "20251014.md"), mdPath)
	assert.Equal(t, filepath.Join(dir, "20251014.html"), htmlPath)

	md, err := os.ReadFile(mdPath)
	require.NoError(t, err)
	assert.Contains(t, string(md), "### Paper: A")
}

func TestRenderFiles_NoPartialWriteOnFailure(t *testing.T) {
	dir := t.TempDir()
	r := New("", dir, nil)
	doc := renderableDoc()
	doc.Rollup = ""

	_, _, err := r.RenderFiles(doc, reportDate)
	require.Error(t, err)

	entries, readErr := os.ReadDir(dir)
	require.NoError(t, readErr)
	assert.Empty(t, entries)
}
