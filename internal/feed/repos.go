package feed

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/paperpulse/paperpulse/internal/store"
)

const (
	// DefaultTrendingURL is the trending repositories page.
	DefaultTrendingURL = "https://github.com/trending"

	// DefaultTopN caps how many trending entries are kept.
	DefaultTopN = 10

	// DefaultDetailDelay spaces README detail requests to respect upstream
	// rate limits.
	DefaultDetailDelay = time.Second
)

// ReadmeSource resolves a repository full name to its README text.
type ReadmeSource interface {
	Readme(ctx context.Context, fullName string) (string, error)
}

// trendingEntry is a repository as parsed from the trending page, before the
// detail phase attaches its README.
type trendingEntry struct {
	FullName    string
	Language    string
	Description string
}

// RepoFetcher collects trending repositories in two phases: parse the
// trending page listing, then fetch each repository's README.
type RepoFetcher struct {
	client      *http.Client
	readmes     ReadmeSource
	trendingURL string
	topN        int
	detailDelay time.Duration
	logger      *slog.Logger
}

// NewRepoFetcher creates a repository fetcher. Zero values for trendingURL,
// topN and detailDelay select the defaults; a nil httpClient gets a 10
// second timeout.
func NewRepoFetcher(trendingURL string, topN int, detailDelay time.Duration, httpClient *http.Client, readmes ReadmeSource, logger *slog.Logger) *RepoFetcher {
	if trendingURL == "" {
		trendingURL = DefaultTrendingURL
	}
	if topN <= 0 {
		topN = DefaultTopN
	}
	if detailDelay <= 0 {
		detailDelay = DefaultDetailDelay
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RepoFetcher{
		client:      httpClient,
		readmes:     readmes,
		trendingURL: trendingURL,
		topN:        topN,
		detailDelay: detailDelay,
		logger:      logger,
	}
}

// Collect fetches the trending listing and runs the README detail phase.
// A README failure substitutes the sentinel and keeps the item.
func (f *RepoFetcher) Collect(ctx context.Context) ([]store.RepoItem, error) {
	entries, err := f.listTrending(ctx)
	if err != nil {
		return nil, err
	}
	return f.fetchDetails(ctx, entries)
}

// listTrending is phase one: parse the top N entries off the trending page.
func (f *RepoFetcher) listTrending(ctx context.Context) ([]trendingEntry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.trendingURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build trending request: %w", err)
	}
	req.Header.Set("User-Agent", browserUserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch trending page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: trending page returned status %d", ErrListingUnavailable, resp.StatusCode)
	}

	root, err := parseHTML(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse trending page: %w", err)
	}

	var entries []trendingEntry
	for _, article := range selectAll(root, `article.Box-row`) {
		if len(entries) >= f.topN {
			break
		}

		link := selectFirst(article, `h2 a`)
		repoPath := strings.Trim(attr(link, "href"), "/")
		if repoPath == "" {
			continue
		}

		description := textContent(selectFirst(article, `p`))
		if description == "" {
			description = "No description provided."
		}

		language := textContent(selectFirst(article, `span[itemprop="programmingLanguage"]`))
		if language == "" {
			language = "Unknown"
		}

		entries = append(entries, trendingEntry{
			FullName:    repoPath,
			Language:    language,
			Description: description,
		})
	}

	f.logger.Info("trending repositories listed", "count", len(entries))
	return entries, nil
}

// fetchDetails is phase two: resolve each entry's README with per-item error
// isolation and a fixed delay between requests.
func (f *RepoFetcher) fetchDetails(ctx context.Context, entries []trendingEntry) ([]store.RepoItem, error) {
	repos := make([]store.RepoItem, 0, len(entries))
	for i, entry := range entries {
		if i > 0 {
			if err := sleepCtx(ctx, f.detailDelay); err != nil {
				return repos, err
			}
		}

		readme, err := f.readmes.Readme(ctx, entry.FullName)
		if err != nil {
			f.logger.Warn("readme fetch failed, keeping item with sentinel",
				"repo", entry.FullName, "error", err)
			readme = store.ReadmeNotFound
		}

		repos = append(repos, store.RepoItem{
			URL:         "https://github.com/" + entry.FullName,
			Language:    entry.Language,
			Description: entry.Description,
			Readme:      readme,
		})
	}
	return repos, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
