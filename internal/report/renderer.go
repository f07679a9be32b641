// Package report turns a finished daily document into the deliverable
// outputs: a Markdown report and an HTML email body. Unlike upstream stages,
// rendering fails fast when its required sections are absent.
package report

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/paperpulse/paperpulse/internal/store"
)

//go:embed template.html
var defaultTemplate string

// Marker comments delimiting the repeated-article insertion point in the
// HTML template, and the named-placeholder fallback when the pair is absent.
const (
	startMarker         = "<!-- START: ARTICLE BLOCKS -->"
	endMarker           = "<!-- END: ARTICLE BLOCKS -->"
	articlesPlaceholder = "<!-- INSERT_ARTICLES_HERE -->"

	dateToken  = "XXXX-XX-XX"
	tldrToken  = "[GLOBAL_TLDR_SUMMARY]"
	titleToken = "PaperPulse: Your Daily Latest Paper Acquisition Assistant"
)

// Renderer produces the Markdown and HTML reports for a day.
type Renderer struct {
	templatePath string
	outDir       string
	logger       *slog.Logger
}

// New creates a Renderer writing into outDir. An empty templatePath selects
// the embedded default template.
func New(templatePath, outDir string, logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{templatePath: templatePath, outDir: outDir, logger: logger}
}

// validate enforces the rendering preconditions: the papers section must have
// been written (a fetched-but-empty list is fine and yields a report with no
// article blocks), the rollup must be present, and the summary list must be
// positionally complete. Repos may be empty or absent.
func validate(doc *store.Document) error {
	if doc.Papers == nil {
		return fmt.Errorf("%w: %s", ErrMissingSection, store.SectionPapers)
	}
	if doc.Rollup == "" {
		return fmt.Errorf("%w: %s", ErrMissingSection, store.SectionL1)
	}
	if doc.ItemCount() > 0 && len(doc.ItemSummaries) == 0 {
		return fmt.Errorf("%w: %s", ErrMissingSection, store.SectionL2)
	}
	if len(doc.ItemSummaries) != doc.ItemCount() {
		return fmt.Errorf("%w: %d summaries for %d items", ErrSummaryMismatch, len(doc.ItemSummaries), doc.ItemCount())
	}
	return nil
}

// RenderMarkdown assembles the plain-text report.
func (r *Renderer) RenderMarkdown(doc *store.Document, date time.Time) (string, error) {
	if err := validate(doc); err != nil {
		return "", err
	}

	dateStr := date.Format("2006-01-02")
	var b strings.Builder

	fmt.Fprintf(&b, "# PaperPulse Daily Report\n\nDate: %s\n\n", dateStr)
	fmt.Fprintf(&b, "## TL;DR\n\n%s\n\n", doc.Rollup)

	b.WriteString("## Item Summaries\n\n")
	for _, entry := range doc.ItemSummaries {
		b.WriteString(entry)
		b.WriteString("\n\n---\n\n")
	}

	if len(doc.Repos) > 0 {
		b.WriteString("## GitHub Trendings\n\n")
		for _, repo := range doc.Repos {
			fmt.Fprintf(&b, "### Repo: %s\n\nlanguage: %s\n\n%s\n\n", repo.URL, repo.Language, repo.Description)
		}
	}

	b.WriteString("## Papers\n\n")
	for _, paper := range doc.Papers {
		fmt.Fprintf(&b, "### Paper: %s\n\nurl: %s\n\n%s\n\n", paper.Title, paper.PDFLink, paper.Abstract)
	}

	return b.String(), nil
}

// RenderHTML substitutes the document into the email template: the date and
// rollup tokens globally, then one article block per paper between the
// marker comments.
func (r *Renderer) RenderHTML(doc *store.Document, date time.Time) (string, error) {
	if err := validate(doc); err != nil {
		return "", err
	}

	tpl, err := r.template()
	if err != nil {
		return "", err
	}

	dateStr := date.Format("2006-01-02")
	html := strings.ReplaceAll(tpl, titleToken, fmt.Sprintf("PaperPulse for %s: Your Daily Latest Paper Acquisition Assistant", dateStr))
	html = strings.ReplaceAll(html, dateToken, dateStr)
	html = strings.ReplaceAll(html, tldrToken, doc.Rollup)

	var articles strings.Builder
	for i, paper := range doc.Papers {
		articles.WriteString(articleBlock(paper.Title, paper.Abstract, doc.ItemSummaries[i], paper.PDFLink))
	}

	start := strings.Index(html, startMarker)
	end := strings.Index(html, endMarker)
	if start != -1 && end != -1 {
		html = html[:start] + articles.String() + html[end+len(endMarker):]
	} else {
		html = strings.Replace(html, articlesPlaceholder, articles.String(), 1)
	}

	return html, nil
}

// RenderFiles renders both outputs and writes <date>.md and <date>.html into
// the output directory. Nothing is written unless both renders succeed.
func (r *Renderer) RenderFiles(doc *store.Document, date time.Time) (mdPath, htmlPath string, err error) {
	md, err := r.RenderMarkdown(doc, date)
	if err != nil {
		return "", "", err
	}
	html, err := r.RenderHTML(doc, date)
	if err != nil {
		return "", "", err
	}

	if err := os.MkdirAll(r.outDir, 0o755); err != nil {
		return "", "", fmt.Errorf("create output dir: %w", err)
	}

	stamp := date.Format(store.DateLayout)
	mdPath = filepath.Join(r.outDir, stamp+".md")
	htmlPath = filepath.Join(r.outDir, stamp+".html")

	if err := os.WriteFile(mdPath, []byte(md), 0o644); err != nil {
		return "", "", fmt.Errorf("write markdown report: %w", err)
	}
	if err := os.WriteFile(htmlPath, []byte(html), 0o644); err != nil {
		return "", "", fmt.Errorf("write html report: %w", err)
	}

	r.logger.Info("report rendered", "markdown", mdPath, "html", htmlPath)
	return mdPath, htmlPath, nil
}

func (r *Renderer) template() (string, error) {
	if r.templatePath == "" {
		return defaultTemplate, nil
	}
	data, err := os.ReadFile(r.templatePath)
	if err != nil {
		return "", fmt.Errorf("read template %s: %w", r.templatePath, err)
	}
	return string(data), nil
}

// articleBlock renders one paper card for the email body.
func articleBlock(title, abstract, localizedSummary, link string) string {
	return fmt.Sprintf(`
                            <!-- START: ARTICLE BLOCK -->
                            <table border="0" cellpadding="0" cellspacing="0" width="100%%" style="border-collapse: collapse; margin-bottom: 25px; border: 1px solid #93c5fd; border-radius: 6px;">
                                <tr>
                                    <td style="padding: 20px 20px; background-color: #eff6ff;">
                                        <h2 style="margin: 0 0 15px 0; font-family: 'Helvetica Neue', Helvetica, Arial, sans-serif; font-size: 22px; color: #1e3a8a; font-weight: 700; line-height: 30px;">
                                            %s
                                        </h2>
                                        <h3 style="margin: 0 0 5px 0; font-family: 'Helvetica Neue', Helvetica, Arial, sans-serif; font-size: 16px; color: #3b82f6; font-weight: 600;">
                                            English Abstract:
                                        </h3>
                                        <p style="margin: 0 0 15px 0; font-family: 'Helvetica Neue', Helvetica, Arial, sans-serif; font-size: 16px; color: #475569; line-height: 24px;">
                                            %s
                                        </p>
                                        <h3 style="margin: 0 0 5px 0; font-family: 'Helvetica Neue', Helvetica, Arial, sans-serif; font-size: 16px; color: #3b82f6; font-weight: 600;">
                                            Quick Take:
                                        </h3>
                                        <p style="margin: 0 0 20px 0; font-family: 'Helvetica Neue', Helvetica, Arial, sans-serif; font-size: 16px; color: #475569; line-height: 24px; white-space: pre-line;">
                                            %s
                                        </p>
                                        <table border="0" cellpadding="0" cellspacing="0" align="center" style="margin: auto;">
                                            <tr>
                                                <td align="center" style="border-radius: 4px;" bgcolor="#3b82f6">
                                                    <a href="%s" target="_blank" style="font-size: 15px; font-family: 'Helvetica Neue', Helvetica, Arial, sans-serif; color: #ffffff; text-decoration: none; border-radius: 4px; padding: 10px 20px; border: 1px solid #3b82f6; display: inline-block; font-weight: 600;">
                                                        Read the full paper &rarr;
                                                    </a>
                                                </td>
                                            </tr>
                                        </table>
                                    </td>
                                </tr>
                            </table>
                            <!-- END: ARTICLE BLOCK -->
`, title, abstract, localizedSummary, link)
}
