package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paperpulse/paperpulse/internal/mail"
	"github.com/paperpulse/paperpulse/internal/report"
	"github.com/paperpulse/paperpulse/internal/store"
)

var runDate = time.Date(2025, 10, 14, 0, 0, 0, 0, time.UTC)

type fakePapers struct {
	items []store.PaperItem
	err   error
	date  time.Time
}

func (f *fakePapers) Collect(_ context.Context, listingDate time.Time) ([]store.PaperItem, error) {
	f.date = listingDate
	return f.items, f.err
}

type fakeRepos struct {
	items []store.RepoItem
	err   error
	block bool
}

func (f *fakeRepos) Collect(ctx context.Context) ([]store.RepoItem, error) {
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.items, f.err
}

type fakeSummarizer struct{}

func (fakeSummarizer) SummarizeAll(_ context.Context, papers []store.PaperItem, repos []store.RepoItem) []string {
	out := make([]string, 0, len(papers)+len(repos))
	for _, p := range papers {
		out = append(out, "sum of "+p.Title)
	}
	for _, r := range repos {
		out = append(out, "sum of "+r.URL)
	}
	return out
}

func (fakeSummarizer) SummarizeRollup(_ context.Context, items []string) string {
	return fmt.Sprintf("rollup of %d items", len(items))
}

type fakeSender struct {
	sent    bool
	subject string
	body    string
	err     error
}

func (f *fakeSender) Send(_ context.Context, _ []string, subject, body string) error {
	f.sent = true
	f.subject = subject
	f.body = body
	return f.err
}

func newTestPipeline(t *testing.T, papers *fakePapers, repos *fakeRepos, sender *fakeSender, timeout time.Duration) (*Pipeline, *store.Store) {
	t.Helper()
	dir := t.TempDir()
	docs := store.New(dir, nil)
	renderer := report.New("", dir, nil)

	var s mail.Sender
	if sender != nil {
		s = sender
	}
	p := New(papers, repos, fakeSummarizer{}, docs, renderer, s,
		[]string{"someone@example.com"}, "PaperPulse", timeout, nil)
	return p, docs
}

func TestRun_FullSuccess(t *testing.T) {
	papers := &fakePapers{items: []store.PaperItem{{Title: "A", Abstract: "abs A", PDFLink: "x"}}}
	repos := &fakeRepos{items: []store.RepoItem{{URL: "https://github.com/x/y", Description: "d", Readme: "r"}}}
	sender := &fakeSender{}
	p, docs := newTestPipeline(t, papers, repos, sender, time.Second)

	result, err := p.Run(context.Background(), runDate)
	require.NoError(t, err)

	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, 1, result.Papers.Items)
	assert.Equal(t, 1, result.Repos.Items)
	assert.Equal(t, 2, result.Summaries.Items)
	assert.False(t, result.Delivery.Skipped)

	doc, err := docs.Read(runDate)
	require.NoError(t, err)
	assert.Len(t, doc.Papers, 1)
	assert.Len(t, doc.Repos, 1)
	assert.Equal(t, []string{"sum of A", "sum of https://github.com/x/y"}, doc.ItemSummaries)
	assert.Equal(t, "rollup of 2 items", doc.Rollup)

	assert.True(t, sender.sent)
	assert.Contains(t, sender.subject, "2025-10-14")
	assert.Contains(t, sender.body, "abs A")

	// Papers fetcher is pointed at yesterday's listing.
	assert.Equal(t, runDate.AddDate(0, 0, -1), papers.date)
}

func TestRun_PaperFailureDoesNotBlockRepos(t *testing.T) {
	papers := &fakePapers{err: errors.New("markup changed")}
	repos := &fakeRepos{items: []store.RepoItem{{URL: "u"}}}
	p, docs := newTestPipeline(t, papers, repos, nil, time.Second)

	result, err := p.Run(context.Background(), runDate)
	// Render fails without papers, but the crawl itself succeeded partially.
	require.Error(t, err)
	assert.ErrorIs(t, err, report.ErrMissingSection)

	assert.True(t, result.Papers.Skipped)
	assert.Equal(t, "markup changed", result.Papers.Reason)
	assert.Equal(t, 1, result.Repos.Items)
	assert.True(t, result.Delivery.Skipped)

	doc, readErr := docs.Read(runDate)
	require.NoError(t, readErr)
	assert.Empty(t, doc.Papers)
	assert.Len(t, doc.Repos, 1)
}

func TestRun_RepoTimeoutLeavesPapersIntact(t *testing.T) {
	papers := &fakePapers{items: []store.PaperItem{{Title: "A", Abstract: "abs", PDFLink: "x"}}}
	repos := &fakeRepos{block: true}
	sender := &fakeSender{}
	p, docs := newTestPipeline(t, papers, repos, sender, 50*time.Millisecond)

	result, err := p.Run(context.Background(), runDate)
	require.NoError(t, err)

	assert.True(t, result.Repos.Skipped)
	assert.Contains(t, result.Repos.Reason, ErrRepoFetchTimeout.Error())

	doc, readErr := docs.Read(runDate)
	require.NoError(t, readErr)
	assert.Len(t, doc.Papers, 1)
	assert.Empty(t, doc.Repos)

	// The run still summarizes, renders and delivers the paper section.
	assert.Equal(t, 1, result.Summaries.Items)
	assert.True(t, sender.sent)
}

func TestRun_EmptyPapersDayStillDelivers(t *testing.T) {
	papers := &fakePapers{items: []store.PaperItem{}}
	repos := &fakeRepos{items: []store.RepoItem{{URL: "https://github.com/x/y", Description: "d", Readme: "r"}}}
	sender := &fakeSender{}
	p, docs := newTestPipeline(t, papers, repos, sender, time.Second)

	result, err := p.Run(context.Background(), runDate)
	require.NoError(t, err)

	assert.False(t, result.Papers.Skipped)
	assert.Equal(t, 0, result.Papers.Items)
	assert.Equal(t, 1, result.Summaries.Items)
	assert.False(t, result.Delivery.Skipped)
	assert.True(t, sender.sent)

	doc, readErr := docs.Read(runDate)
	require.NoError(t, readErr)
	assert.NotNil(t, doc.Papers)
	assert.Len(t, doc.Papers, 0)
	assert.Equal(t, "rollup of 1 items", doc.Rollup)
}

func TestRun_RepoErrorSkipsSection(t *testing.T) {
	papers := &fakePapers{items: []store.PaperItem{{Title: "A", Abstract: "abs", PDFLink: "x"}}}
	repos := &fakeRepos{err: errors.New("trending page 429")}
	p, _ := newTestPipeline(t, papers, repos, nil, time.Second)

	result, err := p.Run(context.Background(), runDate)
	require.NoError(t, err)
	assert.True(t, result.Repos.Skipped)
	assert.False(t, result.Papers.Skipped)
}

func TestSummarize_NothingCollected(t *testing.T) {
	p, _ := newTestPipeline(t, &fakePapers{}, &fakeRepos{}, nil, time.Second)

	result, err := p.Summarize(context.Background(), runDate)
	require.NoError(t, err)
	assert.True(t, result.Summaries.Skipped)
}

func TestRun_DeliverySkippedWithoutSender(t *testing.T) {
	papers := &fakePapers{items: []store.PaperItem{{Title: "A", Abstract: "abs", PDFLink: "x"}}}
	p, _ := newTestPipeline(t, papers, &fakeRepos{}, nil, time.Second)

	result, err := p.Run(context.Background(), runDate)
	require.NoError(t, err)
	assert.True(t, result.Delivery.Skipped)
	assert.Equal(t, "no mail transport configured", result.Delivery.Reason)
	assert.NotEmpty(t, result.HTMLPath)
}

func TestRun_SenderFailureSurfaces(t *testing.T) {
	papers := &fakePapers{items: []store.PaperItem{{Title: "A", Abstract: "abs", PDFLink: "x"}}}
	sender := &fakeSender{err: errors.New("smtp down")}
	p, _ := newTestPipeline(t, papers, &fakeRepos{}, sender, time.Second)

	result, err := p.Run(context.Background(), runDate)
	require.Error(t, err)
	assert.True(t, result.Delivery.Skipped)
	// Render already completed; the report files exist despite the failed send.
	assert.NotEmpty(t, result.MDPath)
}

func TestCrawl_OnlyFetches(t *testing.T) {
	papers := &fakePapers{items: []store.PaperItem{{Title: "A"}}}
	repos := &fakeRepos{items: []store.RepoItem{{URL: "u"}}}
	p, docs := newTestPipeline(t, papers, repos, nil, time.Second)

	_, err := p.Crawl(context.Background(), runDate)
	require.NoError(t, err)

	doc, err := docs.Read(runDate)
	require.NoError(t, err)
	assert.Len(t, doc.Papers, 1)
	assert.Empty(t, doc.ItemSummaries)
	assert.Empty(t, doc.Rollup)
}
