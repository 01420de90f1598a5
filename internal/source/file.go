package source

import (
	"bufio"
	"context"
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"

	"github.com/tribunalwatch/ingest-cli/internal/model"
	"github.com/tribunalwatch/ingest-cli/internal/pipeline"
)

// FileRecord is one line of a JSONL document dump.
type FileRecord struct {
	SourceURL string         `json:"source_url"`
	Document  model.Document `json:"document"`
}

// FileSource serves documents from a JSONL dump. Useful for replaying an
// earlier crawl or wiring the pipeline without network access.
type FileSource struct {
	urls []string
	docs map[string]*model.Document
}

var (
	_ pipeline.Discoverer = (*FileSource)(nil)
	_ pipeline.Fetcher    = (*FileSource)(nil)
)

// NewFileSource loads a JSONL file of FileRecord lines. Blank lines are
// skipped; a malformed line is an error, since a silently dropped case is
// worse than a failed load.
func NewFileSource(path string) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "source: open %s", path)
	}
	defer f.Close()

	s := &FileSource{docs: make(map[string]*model.Document)}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var rec FileRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, eris.Wrapf(err, "source: parse %s line %d", path, line)
		}
		if rec.SourceURL == "" {
			return nil, eris.Errorf("source: %s line %d: missing source_url", path, line)
		}
		doc := rec.Document
		s.docs[rec.SourceURL] = &doc
		s.urls = append(s.urls, rec.SourceURL)
	}
	if err := scanner.Err(); err != nil {
		return nil, eris.Wrapf(err, "source: read %s", path)
	}
	return s, nil
}

// Discover returns the source URLs in file order.
func (s *FileSource) Discover(_ context.Context) ([]string, error) {
	return append([]string(nil), s.urls...), nil
}

// Fetch returns the document loaded for the given URL.
func (s *FileSource) Fetch(_ context.Context, url string) (*model.Document, error) {
	doc, ok := s.docs[url]
	if !ok {
		return nil, eris.Errorf("source: no document for url %s", url)
	}
	return doc, nil
}

// ReadCases loads pre-classified cases from a JSONL dump, one TribunalCase
// per line. Used by the backfill path.
func ReadCases(path string) ([]model.TribunalCase, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "source: open %s", path)
	}
	defer f.Close()

	var cases []model.TribunalCase
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var c model.TribunalCase
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, eris.Wrapf(err, "source: parse %s line %d", path, line)
		}
		if c.SourceURL == "" {
			return nil, eris.Errorf("source: %s line %d: missing source_url", path, line)
		}
		cases = append(cases, c)
	}
	if err := scanner.Err(); err != nil {
		return nil, eris.Wrapf(err, "source: read %s", path)
	}
	return cases, nil
}
