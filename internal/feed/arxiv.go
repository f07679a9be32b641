package feed

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// DefaultArxivBaseURL is the arXiv export API endpoint.
const DefaultArxivBaseURL = "http://export.arxiv.org/api/query"

// PaperDetails holds the metadata fetched per paper from arXiv.
type PaperDetails struct {
	Abstract string
	PDFLink  string
}

// ArxivClient queries the arXiv export API for per-paper metadata.
type ArxivClient struct {
	client  *http.Client
	baseURL string
}

// NewArxivClient creates a client against the public export API.
// A nil httpClient gets a 10 second timeout default.
func NewArxivClient(baseURL string, httpClient *http.Client) *ArxivClient {
	if baseURL == "" {
		baseURL = DefaultArxivBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &ArxivClient{client: httpClient, baseURL: baseURL}
}

// Atom feed shapes for the export API response. Only the fields the
// pipeline consumes are decoded.
type atomFeed struct {
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	ID      string     `xml:"id"`
	Summary string     `xml:"summary"`
	Links   []atomLink `xml:"link"`
}

type atomLink struct {
	Href  string `xml:"href,attr"`
	Title string `xml:"title,attr"`
}

// PaperDetails fetches the abstract and PDF link for an arXiv ID.
// Returns ErrPaperNotAvailable when the feed carries no entry for the ID.
func (c *ArxivClient) PaperDetails(ctx context.Context, arxivID string) (*PaperDetails, error) {
	q := url.Values{}
	q.Set("id_list", arxivID)
	q.Set("max_results", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build arxiv request for %s: %w", arxivID, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query arxiv for %s: %w", arxivID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arxiv returned status %d for %s", resp.StatusCode, arxivID)
	}

	var feed atomFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("decode arxiv feed for %s: %w", arxivID, err)
	}

	if len(feed.Entries) == 0 || feed.Entries[0].Summary == "" {
		return nil, fmt.Errorf("%w: %s", ErrPaperNotAvailable, arxivID)
	}

	entry := feed.Entries[0]
	details := &PaperDetails{Abstract: collapseWhitespace(entry.Summary)}
	for _, link := range entry.Links {
		if link.Title == "pdf" {
			details.PDFLink = link.Href
			break
		}
	}
	if details.PDFLink == "" {
		details.PDFLink = fmt.Sprintf("https://arxiv.org/pdf/%s", arxivID)
	}
	return details, nil
}
