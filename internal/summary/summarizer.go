// Package summary condenses raw item text into two tiers: one bounded
// summary per item (L2) and a single rollup digest over all items (L1),
// both produced through a chat-completion API.
package summary

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/paperpulse/paperpulse/internal/store"
)

const (
	// FailedSummary is stored in place of a summary whose completion call
	// failed. The run carries on; a missing summary must not sink the report.
	FailedSummary = "Summary generation failed."

	// DefaultBudget is the per-item summary length budget in words.
	DefaultBudget = 400

	// DefaultLanguage is the summary target language.
	DefaultLanguage = "Chinese"

	// maxPromptTokens bounds the item text embedded in a prompt.
	maxPromptTokens = 16000
)

// Summarizer produces both summary tiers for a day's items.
type Summarizer struct {
	completions CompletionClient
	language    string
	budget      int
	logger      *slog.Logger
}

// New creates a Summarizer. Empty language and non-positive budget select
// the defaults.
func New(completions CompletionClient, language string, budget int, logger *slog.Logger) *Summarizer {
	if language == "" {
		language = DefaultLanguage
	}
	if budget <= 0 {
		budget = DefaultBudget
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Summarizer{
		completions: completions,
		language:    language,
		budget:      budget,
		logger:      logger,
	}
}

func (s *Summarizer) systemPrompt() string {
	return fmt.Sprintf("You are a professional content summarization robot. Please summarize the text provided by the user in %s.", s.language)
}

// SummarizeItem produces one L2 summary for raw item text. It never returns
// an error: any completion failure or empty response yields FailedSummary.
func (s *Summarizer) SummarizeItem(ctx context.Context, text string, budget int) string {
	clean := truncate(Normalize(text), maxPromptTokens)

	user := fmt.Sprintf(
		"Please summarize the following content in %s, with the number of words limited to %d words:\n\n---\n\n%s\n\nYou only need to output the final answer, as plain paragraphs without any markdown heading or bold markers.",
		s.language, budget, clean)

	answer, err := s.completions.Complete(ctx, s.systemPrompt(), user)
	if err != nil || strings.TrimSpace(answer) == "" {
		s.logger.Warn("item summarization failed, using sentinel", "error", err)
		return FailedSummary
	}
	return answer
}

// SummarizeAll produces one labelled L2 entry per item, papers first in fetch
// order, then repos in fetch order. The result always has length
// len(papers)+len(repos), even when every call fails.
func (s *Summarizer) SummarizeAll(ctx context.Context, papers []store.PaperItem, repos []store.RepoItem) []string {
	entries := make([]string, 0, len(papers)+len(repos))

	for _, paper := range papers {
		title := strings.TrimSpace(paper.Title)
		if title == "" {
			title = "Untitled"
		}
		summarized := s.SummarizeItem(ctx, paper.Abstract, s.budget)
		entries = append(entries, title+"\n\n"+summarized)
	}

	for _, repo := range repos {
		text := fmt.Sprintf("Project Description: %s\n\nREADME: %s", repo.Description, repo.Readme)
		summarized := s.SummarizeItem(ctx, text, s.budget)
		entries = append(entries, strings.TrimSpace(repo.URL)+"\n\n"+summarized)
	}

	s.logger.Info("item summaries generated", "papers", len(papers), "repos", len(repos))
	return entries
}

// SummarizeRollup compresses all L2 entries into the single L1 digest with
// one completion call. The whole corpus rides in one prompt; inputs beyond
// the model's context window are a known limit of this design.
func (s *Summarizer) SummarizeRollup(ctx context.Context, itemSummaries []string) string {
	joined := strings.Join(itemSummaries, "\n\n")

	user := fmt.Sprintf(
		"Below are summaries of papers and GitHub repositories:\n\n%s\n\nCompress each paper or repository to 1-2 sentences capturing its core idea, and return one single unordered list with exactly one entry per item. Do not add sub-headings or any markdown bold markers; only output the final result.",
		joined)

	answer, err := s.completions.Complete(ctx, s.systemPrompt(), user)
	if err != nil || strings.TrimSpace(answer) == "" {
		s.logger.Warn("rollup summarization failed, using sentinel", "error", err)
		return FailedSummary
	}
	return answer
}
