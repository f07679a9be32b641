package store

// Section names the top-level keys of a daily document file.
type Section string

const (
	SectionRepos  Section = "gh_trendings"
	SectionPapers Section = "huggingface_papers"
	SectionL2     Section = "L2 Summary"
	SectionL1     Section = "L1 Summary"
)

// Sentinel strings substituted when a per-item detail fetch fails.
// Items keep their place in the document instead of being dropped.
const (
	NotAvailable   = "N/A"
	ReadmeNotFound = "README not found."
)

// RepoItem is one trending repository with its fetched detail.
type RepoItem struct {
	URL         string `json:"url"`
	Language    string `json:"language"`
	Description string `json:"description"`
	Readme      string `json:"readme_summary"`
}

// PaperItem is one trending paper. Abstract and PDFLink come from a
// secondary metadata lookup and hold NotAvailable when that lookup failed.
type PaperItem struct {
	Title     string `json:"Title"`
	HFLink    string `json:"HF_Link"`
	ArxivLink string `json:"Arxiv_Link"`
	Abstract  string `json:"Summary"`
	PDFLink   string `json:"PDF_Link"`
}

// Document is the accumulating per-day record, populated one section at a
// time as pipeline stages complete. The item lists carry no omitempty: a
// fetched-but-empty section serializes as [] while a never-written one stays
// nil, and readers rely on that distinction.
type Document struct {
	Repos         []RepoItem  `json:"gh_trendings"`
	Papers        []PaperItem `json:"huggingface_papers"`
	ItemSummaries []string    `json:"L2 Summary,omitempty"`
	Rollup        string      `json:"L1 Summary,omitempty"`
}

// ItemCount returns the combined number of papers and repos, the length the
// L2 summary list must have for the document to be renderable.
func (d *Document) ItemCount() int {
	return len(d.Papers) + len(d.Repos)
}
