// Package canlii provides a client for the CanLII case browse API.
package canlii

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Client defines the CanLII case browse operations.
type Client interface {
	// ListCases pages through the decisions of one tribunal database.
	ListCases(ctx context.Context, databaseID string, opts ...ListOption) ([]CaseRef, error)
	// GetCase fetches the metadata for a single decision.
	GetCase(ctx context.Context, databaseID, caseID string) (*Case, error)
	// FetchText retrieves a decision page and returns its plain text.
	FetchText(ctx context.Context, caseURL string) (string, error)
}

// CaseRef identifies one decision in a database listing.
type CaseRef struct {
	DatabaseID string `json:"databaseId"`
	CaseID     string `json:"caseId"`
	Title      string `json:"title"`
	Citation   string `json:"citation"`
	URL        string `json:"url,omitempty"`
}

// Case is the full metadata for one decision.
type Case struct {
	CaseRef
	DocketNumber string `json:"docketNumber,omitempty"`
	DecisionDate string `json:"decisionDate,omitempty"`
	Language     string `json:"language,omitempty"`
	Keywords     string `json:"keywords,omitempty"`
	PDFURL       string `json:"pdfUrl,omitempty"`
}

// caseBrowseResponse is the raw listing payload. Case ids are keyed by
// language.
type caseBrowseResponse struct {
	Cases []struct {
		DatabaseID string            `json:"databaseId"`
		CaseID     map[string]string `json:"caseId"`
		Title      string            `json:"title"`
		Citation   string            `json:"citation"`
		URL        string            `json:"url,omitempty"`
	} `json:"cases"`
}

// ListOption configures a listing request.
type ListOption func(*listOpts)

type listOpts struct {
	offset      int
	resultCount int
	decidedAfter string
}

// WithOffset sets the pagination offset.
func WithOffset(offset int) ListOption {
	return func(o *listOpts) { o.offset = offset }
}

// WithResultCount sets the page size (API max is 10000).
func WithResultCount(n int) ListOption {
	return func(o *listOpts) { o.resultCount = n }
}

// WithDecisionDateAfter restricts results to decisions after the given
// YYYY-MM-DD date.
func WithDecisionDateAfter(date string) ListOption {
	return func(o *listOpts) { o.decidedAfter = date }
}

// Option configures the CanLII client.
type Option func(*httpClient)

// WithBaseURL sets a custom API base URL (for testing).
func WithBaseURL(u string) Option {
	return func(c *httpClient) { c.baseURL = u }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) { c.http = hc }
}

// WithLanguage sets the API language ("en" or "fr").
func WithLanguage(lang string) Option {
	return func(c *httpClient) { c.language = lang }
}

type httpClient struct {
	apiKey   string
	baseURL  string
	language string
	http     *http.Client
}

// NewClient creates a new CanLII API client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:   apiKey,
		baseURL:  "https://api.canlii.org/v1",
		language: "en",
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// retryableStatusCode returns true if the HTTP status code should trigger a retry.
func retryableStatusCode(code int) bool {
	return code == http.StatusTooManyRequests ||
		code == http.StatusInternalServerError ||
		code == http.StatusBadGateway ||
		code == http.StatusServiceUnavailable
}

// retryDo executes a request with exponential backoff on transient failures.
func (c *httpClient) retryDo(ctx context.Context, req *http.Request) ([]byte, int, error) {
	const maxAttempts = 3
	backoff := 1 * time.Second

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		retryReq := req.Clone(ctx)

		resp, err := c.http.Do(retryReq)
		if err != nil {
			lastErr = err
			if attempt < maxAttempts {
				select {
				case <-ctx.Done():
					return nil, 0, ctx.Err()
				case <-time.After(backoff):
				}
				backoff *= 2
				continue
			}
			return nil, 0, lastErr
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			return nil, resp.StatusCode, eris.Wrap(readErr, "canlii: read response body")
		}

		if retryableStatusCode(resp.StatusCode) && attempt < maxAttempts {
			lastErr = eris.Errorf("canlii: status %d: %s", resp.StatusCode, string(body))
			select {
			case <-ctx.Done():
				return nil, 0, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
			continue
		}

		return body, resp.StatusCode, nil
	}

	return nil, 0, lastErr
}

func (c *httpClient) ListCases(ctx context.Context, databaseID string, opts ...ListOption) ([]CaseRef, error) {
	lo := &listOpts{resultCount: 100}
	for _, opt := range opts {
		opt(lo)
	}

	params := url.Values{}
	params.Set("api_key", c.apiKey)
	params.Set("offset", strconv.Itoa(lo.offset))
	params.Set("resultCount", strconv.Itoa(lo.resultCount))
	if lo.decidedAfter != "" {
		params.Set("decisionDateAfter", lo.decidedAfter)
	}

	reqURL := fmt.Sprintf("%s/caseBrowse/%s/%s/?%s", c.baseURL, c.language, databaseID, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "canlii: create list request")
	}

	body, status, err := c.retryDo(ctx, req)
	if err != nil {
		return nil, eris.Wrapf(err, "canlii: list cases for %s", databaseID)
	}
	if status != http.StatusOK {
		return nil, eris.Errorf("canlii: list cases for %s: status %d: %s", databaseID, status, string(body))
	}

	var parsed caseBrowseResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, eris.Wrap(err, "canlii: parse case browse response")
	}

	refs := make([]CaseRef, 0, len(parsed.Cases))
	for _, raw := range parsed.Cases {
		caseID := raw.CaseID["en"]
		if caseID == "" {
			caseID = raw.CaseID["fr"]
		}
		refs = append(refs, CaseRef{
			DatabaseID: raw.DatabaseID,
			CaseID:     caseID,
			Title:      raw.Title,
			Citation:   raw.Citation,
			URL:        raw.URL,
		})
	}
	return refs, nil
}

func (c *httpClient) GetCase(ctx context.Context, databaseID, caseID string) (*Case, error) {
	if databaseID == "" || caseID == "" {
		return nil, eris.New("canlii: databaseId and caseId are required")
	}

	reqURL := fmt.Sprintf("%s/caseBrowse/%s/%s/%s/?api_key=%s",
		c.baseURL, c.language, databaseID, caseID, url.QueryEscape(c.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "canlii: create case request")
	}

	body, status, err := c.retryDo(ctx, req)
	if err != nil {
		return nil, eris.Wrapf(err, "canlii: get case %s/%s", databaseID, caseID)
	}
	if status != http.StatusOK {
		return nil, eris.Errorf("canlii: get case %s/%s: status %d: %s", databaseID, caseID, status, string(body))
	}

	var parsed Case
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, eris.Wrap(err, "canlii: parse case metadata")
	}
	return &parsed, nil
}

var (
	scriptRe = regexp.MustCompile(`(?is)<(script|style)[^>]*>.*?</(script|style)>`)
	tagRe    = regexp.MustCompile(`<[^>]+>`)
)

func (c *httpClient) FetchText(ctx context.Context, caseURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, caseURL, nil)
	if err != nil {
		return "", eris.Wrap(err, "canlii: create fetch request")
	}
	req.Header.Set("Accept", "text/html")

	body, status, err := c.retryDo(ctx, req)
	if err != nil {
		return "", eris.Wrapf(err, "canlii: fetch %s", caseURL)
	}
	if status != http.StatusOK {
		return "", eris.Errorf("canlii: fetch %s: status %d", caseURL, status)
	}

	return StripHTML(string(body)), nil
}

// StripHTML reduces an HTML document to whitespace-normalized plain text.
// Good enough for keyword classification; not a general HTML parser.
func StripHTML(html string) string {
	text := scriptRe.ReplaceAllString(html, " ")
	text = tagRe.ReplaceAllString(text, " ")
	text = strings.NewReplacer(
		"&nbsp;", " ",
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
	).Replace(text)
	return strings.Join(strings.Fields(text), " ")
}
