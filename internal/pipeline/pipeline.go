// Package pipeline orchestrates one daily run: crawl both trending sources
// into the day's document, produce both summary tiers, render the report and
// deliver it. Fetch stages fail independently; the report is always built
// from whatever sections succeeded.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/paperpulse/paperpulse/internal/mail"
	"github.com/paperpulse/paperpulse/internal/store"
)

// ErrRepoFetchTimeout marks a repository fetch abandoned at the wall-clock
// deadline. The in-flight network call is cancelled cooperatively; it may
// run on past the deadline, but its result is discarded.
var ErrRepoFetchTimeout = errors.New("repository fetch exceeded deadline")

// DefaultRepoFetchTimeout is the hard deadline for the repository stage.
const DefaultRepoFetchTimeout = 600 * time.Second

// PaperSource collects trending papers for a listing date.
type PaperSource interface {
	Collect(ctx context.Context, listingDate time.Time) ([]store.PaperItem, error)
}

// RepoSource collects trending repositories.
type RepoSource interface {
	Collect(ctx context.Context) ([]store.RepoItem, error)
}

// DocumentStore is the per-day document persistence the stages write into.
type DocumentStore interface {
	Read(date time.Time) (*store.Document, error)
	WriteSection(date time.Time, section store.Section, value any) error
}

// Summarizer produces both summary tiers.
type Summarizer interface {
	SummarizeAll(ctx context.Context, papers []store.PaperItem, repos []store.RepoItem) []string
	SummarizeRollup(ctx context.Context, itemSummaries []string) string
}

// Renderer writes the report files for a finished document.
type Renderer interface {
	RenderFiles(doc *store.Document, date time.Time) (mdPath, htmlPath string, err error)
}

// Stage records the outcome of one pipeline stage.
type Stage struct {
	Skipped bool
	Reason  string
	Items   int
}

// Result contains statistics about one pipeline run.
type Result struct {
	RunID     string
	Date      time.Time
	Papers    Stage
	Repos     Stage
	Summaries Stage
	Render    Stage
	Delivery  Stage
	HTMLPath  string
	MDPath    string
	Duration  time.Duration
}

// Pipeline wires the run's components together.
type Pipeline struct {
	papers      PaperSource
	repos       RepoSource
	summarizer  Summarizer
	docs        DocumentStore
	renderer    Renderer
	sender      mail.Sender
	recipients  []string
	subject     string
	repoTimeout time.Duration
	logger      *slog.Logger
}

// New creates a pipeline. A nil sender disables the delivery stage; a
// non-positive repoTimeout selects DefaultRepoFetchTimeout.
func New(
	papers PaperSource,
	repos RepoSource,
	summarizer Summarizer,
	docs DocumentStore,
	renderer Renderer,
	sender mail.Sender,
	recipients []string,
	subject string,
	repoTimeout time.Duration,
	logger *slog.Logger,
) *Pipeline {
	if repoTimeout <= 0 {
		repoTimeout = DefaultRepoFetchTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		papers:      papers,
		repos:       repos,
		summarizer:  summarizer,
		docs:        docs,
		renderer:    renderer,
		sender:      sender,
		recipients:  recipients,
		subject:     subject,
		repoTimeout: repoTimeout,
		logger:      logger,
	}
}

// Run executes the full staged pipeline for a date. Fetch and summarization
// failures are absorbed into the result; only store, render and delivery
// errors surface to the caller, and by then the document already holds
// every section that succeeded.
func (p *Pipeline) Run(ctx context.Context, date time.Time) (*Result, error) {
	start := time.Now()
	result := &Result{RunID: uuid.New().String(), Date: date}
	logger := p.logger.With("run_id", result.RunID, "date", date.Format(store.DateLayout))

	logger.Info("pipeline run starting")

	if err := p.crawl(ctx, date, result, logger); err != nil {
		return result, err
	}
	if err := p.summarize(ctx, date, result, logger); err != nil {
		return result, err
	}
	err := p.renderAndDeliver(ctx, date, result, logger)

	result.Duration = time.Since(start)
	logger.Info("pipeline run finished",
		"papers", result.Papers.Items,
		"repos", result.Repos.Items,
		"summaries", result.Summaries.Items,
		"delivered", !result.Delivery.Skipped,
		"duration", result.Duration,
	)
	return result, err
}

// Crawl runs only the fetch stages. Exposed for the crawl subcommand.
func (p *Pipeline) Crawl(ctx context.Context, date time.Time) (*Result, error) {
	result := &Result{RunID: uuid.New().String(), Date: date}
	logger := p.logger.With("run_id", result.RunID, "date", date.Format(store.DateLayout))
	err := p.crawl(ctx, date, result, logger)
	return result, err
}

// Summarize runs only the summarization stages over the stored document.
// Exposed for the summarize subcommand.
func (p *Pipeline) Summarize(ctx context.Context, date time.Time) (*Result, error) {
	result := &Result{RunID: uuid.New().String(), Date: date}
	logger := p.logger.With("run_id", result.RunID, "date", date.Format(store.DateLayout))
	err := p.summarize(ctx, date, result, logger)
	return result, err
}

// crawl fetches both sources with independent failure isolation and writes
// one document section per stage that produced data.
func (p *Pipeline) crawl(ctx context.Context, date time.Time, result *Result, logger *slog.Logger) error {
	// Papers run synchronously with no stage timeout. The listing shows
	// yesterday's trending papers.
	papers, err := p.papers.Collect(ctx, date.AddDate(0, 0, -1))
	if err != nil {
		logger.Warn("paper fetch failed, skipping section", "error", err)
		result.Papers = Stage{Skipped: true, Reason: err.Error()}
	} else {
		result.Papers.Items = len(papers)
		if err := p.docs.WriteSection(date, store.SectionPapers, papers); err != nil {
			return fmt.Errorf("store papers: %w", err)
		}
	}

	// Repositories run on a worker goroutine behind a hard wall-clock
	// deadline so one stalled source cannot block the whole run.
	repos, err := p.fetchReposWithDeadline(ctx)
	if err != nil {
		logger.Warn("repository fetch skipped", "error", err)
		result.Repos = Stage{Skipped: true, Reason: err.Error()}
	} else {
		result.Repos.Items = len(repos)
		if err := p.docs.WriteSection(date, store.SectionRepos, repos); err != nil {
			return fmt.Errorf("store repositories: %w", err)
		}
	}
	return nil
}

func (p *Pipeline) fetchReposWithDeadline(ctx context.Context) ([]store.RepoItem, error) {
	ctx, cancel := context.WithTimeout(ctx, p.repoTimeout)
	defer cancel()

	type outcome struct {
		repos []store.RepoItem
		err   error
	}
	// Buffered so the worker can finish after an abandoned wait.
	done := make(chan outcome, 1)
	go func() {
		repos, err := p.repos.Collect(ctx)
		done <- outcome{repos: repos, err: err}
	}()

	select {
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w (%s)", ErrRepoFetchTimeout, p.repoTimeout)
		}
		return nil, ctx.Err()
	case out := <-done:
		// The worker may observe the deadline itself and report it here.
		if out.err != nil && errors.Is(out.err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w (%s)", ErrRepoFetchTimeout, p.repoTimeout)
		}
		return out.repos, out.err
	}
}

// summarize reads the accumulated document and writes both summary tiers
// back. Individual completion failures already degraded to sentinel text
// inside the summarizer, so only store failures surface here.
func (p *Pipeline) summarize(ctx context.Context, date time.Time, result *Result, logger *slog.Logger) error {
	doc, err := p.docs.Read(date)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("read document: %w", err)
		}
		doc = &store.Document{}
	}

	if doc.ItemCount() == 0 {
		logger.Warn("nothing to summarize, skipping")
		result.Summaries = Stage{Skipped: true, Reason: "no items collected"}
		return nil
	}

	itemSummaries := p.summarizer.SummarizeAll(ctx, doc.Papers, doc.Repos)
	if err := p.docs.WriteSection(date, store.SectionL2, itemSummaries); err != nil {
		return fmt.Errorf("store item summaries: %w", err)
	}
	result.Summaries.Items = len(itemSummaries)

	rollup := p.summarizer.SummarizeRollup(ctx, itemSummaries)
	if err := p.docs.WriteSection(date, store.SectionL1, rollup); err != nil {
		return fmt.Errorf("store rollup summary: %w", err)
	}
	return nil
}

// renderAndDeliver renders the report files and, when a transport is
// configured, mails the HTML body. Delivery never runs after a failed
// render.
func (p *Pipeline) renderAndDeliver(ctx context.Context, date time.Time, result *Result, logger *slog.Logger) error {
	doc, err := p.docs.Read(date)
	if err != nil {
		result.Render = Stage{Skipped: true, Reason: err.Error()}
		result.Delivery = Stage{Skipped: true, Reason: "render did not run"}
		return fmt.Errorf("read document for rendering: %w", err)
	}

	mdPath, htmlPath, err := p.renderer.RenderFiles(doc, date)
	if err != nil {
		result.Render = Stage{Skipped: true, Reason: err.Error()}
		result.Delivery = Stage{Skipped: true, Reason: "render failed"}
		return fmt.Errorf("render report: %w", err)
	}
	result.MDPath = mdPath
	result.HTMLPath = htmlPath

	if p.sender == nil || len(p.recipients) == 0 {
		result.Delivery = Stage{Skipped: true, Reason: "no mail transport configured"}
		return nil
	}

	body, err := os.ReadFile(htmlPath)
	if err != nil {
		result.Delivery = Stage{Skipped: true, Reason: err.Error()}
		return fmt.Errorf("read rendered report: %w", err)
	}

	subject := fmt.Sprintf("%s (%s)", p.subject, date.Format("2006-01-02"))
	if err := p.sender.Send(ctx, p.recipients, subject, string(body)); err != nil {
		result.Delivery = Stage{Skipped: true, Reason: err.Error()}
		return fmt.Errorf("deliver report: %w", err)
	}
	result.Delivery.Items = len(p.recipients)
	logger.Info("report delivered", "recipients", len(p.recipients))
	return nil
}
