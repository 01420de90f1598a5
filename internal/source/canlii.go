package source

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/tribunalwatch/ingest-cli/internal/model"
	"github.com/tribunalwatch/ingest-cli/internal/pipeline"
	"github.com/tribunalwatch/ingest-cli/pkg/canlii"
)

// CanLIISource adapts the CanLII case browse API to the pipeline's
// Discoverer and Fetcher interfaces.
type CanLIISource struct {
	client     canlii.Client
	databaseID string

	// pageSize is the listing page size; discovery pages until a short page.
	pageSize     int
	decidedAfter string

	mu   sync.RWMutex
	refs map[string]canlii.CaseRef
}

var (
	_ pipeline.Discoverer = (*CanLIISource)(nil)
	_ pipeline.Fetcher    = (*CanLIISource)(nil)
)

// CanLIIOption configures a CanLIISource.
type CanLIIOption func(*CanLIISource)

// WithPageSize sets the listing page size.
func WithPageSize(n int) CanLIIOption {
	return func(s *CanLIISource) { s.pageSize = n }
}

// WithDecidedAfter restricts discovery to decisions after the given
// YYYY-MM-DD date.
func WithDecidedAfter(date string) CanLIIOption {
	return func(s *CanLIISource) { s.decidedAfter = date }
}

// NewCanLIISource creates a source over one tribunal database
// (e.g. "onhrt" for the HRTO).
func NewCanLIISource(client canlii.Client, databaseID string, opts ...CanLIIOption) *CanLIISource {
	s := &CanLIISource{
		client:     client,
		databaseID: databaseID,
		pageSize:   100,
		refs:       make(map[string]canlii.CaseRef),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Discover pages through the database listing and returns one URL per
// decision. Refs are cached so Fetch can resolve a URL back to its case id.
func (s *CanLIISource) Discover(ctx context.Context) ([]string, error) {
	var urls []string
	offset := 0
	for {
		listOpts := []canlii.ListOption{
			canlii.WithOffset(offset),
			canlii.WithResultCount(s.pageSize),
		}
		if s.decidedAfter != "" {
			listOpts = append(listOpts, canlii.WithDecisionDateAfter(s.decidedAfter))
		}

		refs, err := s.client.ListCases(ctx, s.databaseID, listOpts...)
		if err != nil {
			return nil, eris.Wrapf(err, "source: list %s page at offset %d", s.databaseID, offset)
		}

		s.mu.Lock()
		for _, ref := range refs {
			u := ref.URL
			if u == "" {
				u = fmt.Sprintf("https://www.canlii.org/en/%s/%s.html", s.databaseID, ref.CaseID)
			}
			s.refs[u] = ref
			urls = append(urls, u)
		}
		s.mu.Unlock()

		if len(refs) < s.pageSize {
			break
		}
		offset += s.pageSize
	}

	zap.L().Debug("source: canlii discovery complete",
		zap.String("database", s.databaseID),
		zap.Int("cases", len(urls)),
	)
	return urls, nil
}

// Fetch resolves a discovered URL to its full document: case metadata from
// the API plus the decision text from the page itself.
func (s *CanLIISource) Fetch(ctx context.Context, url string) (*model.Document, error) {
	s.mu.RLock()
	ref, ok := s.refs[url]
	s.mu.RUnlock()
	if !ok {
		return nil, eris.Errorf("source: unknown url %s; not produced by discovery", url)
	}

	meta, err := s.client.GetCase(ctx, s.databaseID, ref.CaseID)
	if err != nil {
		return nil, eris.Wrapf(err, "source: case metadata %s", ref.CaseID)
	}

	text, err := s.client.FetchText(ctx, url)
	if err != nil {
		return nil, eris.Wrapf(err, "source: decision text %s", url)
	}

	doc := &model.Document{
		SourceID:     ref.CaseID,
		Title:        meta.Title,
		CaseNumber:   meta.DocketNumber,
		Citation:     meta.Citation,
		Tribunal:     tribunalNameFor(s.databaseID),
		FullText:     text,
		DocumentType: "decision",
		Language:     languageFor(meta.Language),
		PDFURL:       meta.PDFURL,
	}
	if meta.DecisionDate != "" {
		if d, err := time.Parse("2006-01-02", meta.DecisionDate); err == nil {
			doc.DecisionDate = d
		}
	}
	doc.Applicant, doc.Respondent = splitParties(meta.Title)
	return doc, nil
}

// tribunalNames maps CanLII database ids to display names.
var tribunalNames = map[string]string{
	"onhrt": "Human Rights Tribunal of Ontario",
	"chrt":  "Canadian Human Rights Tribunal",
	"bchrt": "British Columbia Human Rights Tribunal",
	"qctdp": "Tribunal des droits de la personne du Québec",
}

func tribunalNameFor(databaseID string) string {
	if name, ok := tribunalNames[databaseID]; ok {
		return name
	}
	return databaseID
}

func languageFor(lang string) model.Language {
	switch strings.ToLower(lang) {
	case "en":
		return model.LanguageEnglish
	case "fr":
		return model.LanguageFrench
	case "":
		return model.LanguageEnglish
	default:
		return model.LanguageUnknown
	}
}

// splitParties pulls applicant and respondent out of a "A v. B" style title.
func splitParties(title string) (applicant, respondent string) {
	for _, sep := range []string{" v. ", " v ", " c. "} {
		if i := strings.Index(title, sep); i > 0 {
			return strings.TrimSpace(title[:i]), strings.TrimSpace(title[i+len(sep):])
		}
	}
	return "", ""
}
