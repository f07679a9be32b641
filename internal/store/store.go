// Package store persists the per-day aggregation document.
//
// One pretty-printed JSON file per calendar date holds everything a pipeline
// run accumulates: the fetched item lists and both summary tiers. Writers
// always read the whole file, set one named section and write the whole file
// back; there is no partial-field patching. The pipeline runs sections
// strictly in sequence, so no locking is provided.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// DateLayout is the file-naming key for daily documents.
const DateLayout = "20060102"

// Store reads and writes daily documents under a materials directory.
type Store struct {
	dir    string
	logger *slog.Logger
}

// New creates a Store rooted at dir. The directory is created on first write.
func New(dir string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{dir: dir, logger: logger}
}

// Path returns the document file path for a date.
func (s *Store) Path(date time.Time) string {
	return filepath.Join(s.dir, date.Format(DateLayout)+".json")
}

// Read loads the document for a date. A missing file yields ErrNotFound.
// A file that exists but does not parse is treated as absent content: the
// corruption is logged and an empty document is returned, so today's run is
// never blocked by yesterday's partial state.
func (s *Store) Read(date time.Time) (*Document, error) {
	path := s.Path(date)

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, date.Format(DateLayout))
		}
		return nil, fmt.Errorf("read document %s: %w", path, err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		s.logger.Warn("document file corrupt, starting empty", "path", path, "error", err)
		return &Document{}, nil
	}
	return &doc, nil
}

// WriteSection performs one read-merge-write cycle: load the current
// document (empty if the file is missing or corrupt), overwrite the named
// section with value, and rewrite the whole file.
func (s *Store) WriteSection(date time.Time, section Section, value any) error {
	doc, err := s.Read(date)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return err
		}
		doc = &Document{}
	}

	if err := doc.setSection(section, value); err != nil {
		return err
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create materials dir: %w", err)
	}

	data, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	path := s.Path(date)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write document %s: %w", path, err)
	}

	s.logger.Info("document section written", "path", path, "section", string(section))
	return nil
}

// setSection overwrites one named section. A nil item list is stored as an
// empty one, so a section that was written is always present in the file.
func (d *Document) setSection(section Section, value any) error {
	switch section {
	case SectionRepos:
		v, ok := value.([]RepoItem)
		if !ok {
			return fmt.Errorf("section %q wants []RepoItem, got %T", section, value)
		}
		if v == nil {
			v = []RepoItem{}
		}
		d.Repos = v
	case SectionPapers:
		v, ok := value.([]PaperItem)
		if !ok {
			return fmt.Errorf("section %q wants []PaperItem, got %T", section, value)
		}
		if v == nil {
			v = []PaperItem{}
		}
		d.Papers = v
	case SectionL2:
		v, ok := value.([]string)
		if !ok {
			return fmt.Errorf("section %q wants []string, got %T", section, value)
		}
		d.ItemSummaries = v
	case SectionL1:
		v, ok := value.(string)
		if !ok {
			return fmt.Errorf("section %q wants string, got %T", section, value)
		}
		d.Rollup = v
	default:
		return fmt.Errorf("%w: %q", ErrUnknownSection, section)
	}
	return nil
}
