package summary

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paperpulse/paperpulse/internal/store"
)

type fakeCompletions struct {
	answer  string
	err     error
	prompts []string
}

func (f *fakeCompletions) Complete(_ context.Context, _, user string) (string, error) {
	f.prompts = append(f.prompts, user)
	return f.answer, f.err
}

func TestSummarizeItem(t *testing.T) {
	fake := &fakeCompletions{answer: "condensed"}
	s := New(fake, "English", 400, nil)

	got := s.SummarizeItem(context.Background(), "some abstract text", 400)
	assert.Equal(t, "condensed", got)
	require.Len(t, fake.prompts, 1)
	assert.Contains(t, fake.prompts[0], "some abstract text")
	assert.Contains(t, fake.prompts[0], "400 words")
}

func TestSummarizeItem_FailureYieldsSentinel(t *testing.T) {
	fake := &fakeCompletions{err: errors.New("api down")}
	s := New(fake, "", 0, nil)

	got := s.SummarizeItem(context.Background(), "text", 400)
	assert.Equal(t, FailedSummary, got)
}

func TestSummarizeItem_EmptyResponseYieldsSentinel(t *testing.T) {
	fake := &fakeCompletions{answer: "   \n"}
	s := New(fake, "", 0, nil)

	got := s.SummarizeItem(context.Background(), "text", 400)
	assert.Equal(t, FailedSummary, got)
}

func TestSummarizeAll_OrderAndLength(t *testing.T) {
	fake := &fakeCompletions{answer: "sum"}
	s := New(fake, "English", 400, nil)

	papers := []store.PaperItem{
		{Title: "Paper A", Abstract: "abs A"},
		{Title: " Paper B ", Abstract: "abs B"},
	}
	repos := []store.RepoItem{
		{URL: "https://github.com/x/y", Description: "desc", Readme: "readme"},
	}

	entries := s.SummarizeAll(context.Background(), papers, repos)
	require.Len(t, entries, 3)

	// Papers first, labelled by title; repos after, labelled by URL.
	assert.True(t, strings.HasPrefix(entries[0], "Paper A\n\n"))
	assert.True(t, strings.HasPrefix(entries[1], "Paper B\n\n"))
	assert.True(t, strings.HasPrefix(entries[2], "https://github.com/x/y\n\n"))
}

func TestSummarizeAll_AllCallsFailing(t *testing.T) {
	fake := &fakeCompletions{err: errors.New("down")}
	s := New(fake, "", 0, nil)

	papers := []store.PaperItem{{Title: "A"}, {Title: "B"}}
	repos := []store.RepoItem{{URL: "u1"}, {URL: "u2"}, {URL: "u3"}}

	entries := s.SummarizeAll(context.Background(), papers, repos)
	require.Len(t, entries, 5)
	for _, entry := range entries {
		assert.Contains(t, entry, FailedSummary)
	}
}

func TestSummarizeAll_Empty(t *testing.T) {
	s := New(&fakeCompletions{answer: "x"}, "", 0, nil)
	entries := s.SummarizeAll(context.Background(), nil, nil)
	assert.Empty(t, entries)
}

func TestSummarizeRollup(t *testing.T) {
	fake := &fakeCompletions{answer: "- a\n- b"}
	s := New(fake, "English", 400, nil)

	got := s.SummarizeRollup(context.Background(), []string{"sum a", "sum b"})
	assert.Equal(t, "- a\n- b", got)
	require.Len(t, fake.prompts, 1)
	assert.Contains(t, fake.prompts[0], "sum a\n\nsum b")
}

func TestSummarizeRollup_FailureYieldsSentinel(t *testing.T) {
	fake := &fakeCompletions{err: errors.New("down")}
	s := New(fake, "", 0, nil)

	got := s.SummarizeRollup(context.Background(), []string{"sum a"})
	assert.Equal(t, FailedSummary, got)
}
