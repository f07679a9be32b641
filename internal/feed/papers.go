// Package feed pulls raw items from the two trending sources: the Hugging
// Face daily papers listing and the GitHub trending page. Each fetcher fails
// independently; per-item detail lookups never abort a batch, they substitute
// sentinel values instead.
package feed

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/paperpulse/paperpulse/internal/store"
)

// DefaultMirrorURL is the papers listing host. The mirror serves the same
// markup as the primary site with better reachability.
const DefaultMirrorURL = "https://hf-mirror.com"

// PaperFetcher collects trending papers for a date: one listing-page fetch,
// then one arXiv metadata lookup per paper.
type PaperFetcher struct {
	client    *http.Client
	arxiv     *ArxivClient
	mirrorURL string
	logger    *slog.Logger
}

// NewPaperFetcher creates a paper fetcher. A nil httpClient gets a 10 second
// timeout default; an empty mirrorURL falls back to DefaultMirrorURL.
func NewPaperFetcher(mirrorURL string, httpClient *http.Client, arxiv *ArxivClient, logger *slog.Logger) *PaperFetcher {
	if mirrorURL == "" {
		mirrorURL = DefaultMirrorURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PaperFetcher{
		client:    httpClient,
		arxiv:     arxiv,
		mirrorURL: strings.TrimRight(mirrorURL, "/"),
		logger:    logger,
	}
}

// ListingURL returns the daily papers page for a listing date.
func (f *PaperFetcher) ListingURL(listingDate time.Time) string {
	return fmt.Sprintf("%s/papers/date/%s", f.mirrorURL, listingDate.Format("2006-01-02"))
}

// Collect fetches the listing for a date and resolves each paper's metadata.
// Zero papers on the page is a valid empty result, not an error. A failed
// metadata lookup leaves NotAvailable sentinels on that item only.
func (f *PaperFetcher) Collect(ctx context.Context, listingDate time.Time) ([]store.PaperItem, error) {
	listingURL := f.ListingURL(listingDate)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, listingURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build listing request: %w", err)
	}
	req.Header.Set("User-Agent", browserUserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch papers listing %s: %w", listingURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned status %d", ErrListingUnavailable, listingURL, resp.StatusCode)
	}

	root, err := parseHTML(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse papers listing: %w", err)
	}

	papers := f.parseListing(ctx, root)
	f.logger.Info("papers collected", "date", listingDate.Format("2006-01-02"), "count", len(papers))
	return papers, nil
}

// parseListing extracts paper entries and fuses in their arXiv metadata.
func (f *PaperFetcher) parseListing(ctx context.Context, root *html.Node) []store.PaperItem {
	papers := make([]store.PaperItem, 0)
	for _, link := range selectAll(root, `h3 a[href]`) {
		href := attr(link, "href")
		if !strings.HasPrefix(href, "/papers/") {
			continue
		}
		title := textContent(link)
		if title == "" {
			continue
		}

		hfLink := f.mirrorURL + href
		arxivID := ArxivID(hfLink)

		item := store.PaperItem{
			Title:     title,
			HFLink:    hfLink,
			ArxivLink: "https://arxiv.org/abs/" + arxivID,
			Abstract:  store.NotAvailable,
			PDFLink:   store.NotAvailable,
		}

		details, err := f.arxiv.PaperDetails(ctx, arxivID)
		if err != nil {
			f.logger.Warn("paper metadata lookup failed, keeping item with sentinels",
				"arxiv_id", arxivID, "error", err)
		} else {
			item.Abstract = details.Abstract
			item.PDFLink = details.PDFLink
		}

		papers = append(papers, item)
	}
	return papers
}

// ArxivID extracts the permanent-archive ID as the final path segment of a
// papers link.
func ArxivID(link string) string {
	trimmed := strings.TrimRight(link, "/")
	if i := strings.LastIndex(trimmed, "/"); i >= 0 {
		return trimmed[i+1:]
	}
	return trimmed
}
