// Package scholar is a client for the Semantic Scholar Graph API.
package scholar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://api.semanticscholar.org/graph/v1"
	defaultLimit   = 20
	maxRetries     = 3

	paperFields = "paperId,title,authors,year,venue,abstract,citationCount,fieldsOfStudy,url,openAccessPdf"
)

// Paper is a normalized search result: authors flattened to names, the
// open-access PDF URL lifted to a plain field, and a ready BibTeX entry
// when author and year data allow one.
type Paper struct {
	PaperID       string   `json:"paper_id"`
	Title         string   `json:"title"`
	Authors       []string `json:"authors"`
	Year          int      `json:"year"`
	Venue         string   `json:"venue"`
	Abstract      string   `json:"abstract"`
	CitationCount int      `json:"citation_count"`
	FieldsOfStudy []string `json:"fields_of_study,omitempty"`
	URL           string   `json:"url,omitempty"`
	PDFURL        string   `json:"pdf_url,omitempty"`
	BibtexKey     string   `json:"bibtex_key,omitempty"`
	BibtexEntry   string   `json:"bibtex_entry,omitempty"`
}

// wirePaper mirrors the API response shape before normalization.
type wirePaper struct {
	PaperID       string   `json:"paperId"`
	Title         string   `json:"title"`
	Authors       []author `json:"authors"`
	Year          int      `json:"year"`
	Venue         string   `json:"venue"`
	Abstract      string   `json:"abstract"`
	CitationCount int      `json:"citationCount"`
	FieldsOfStudy []string `json:"fieldsOfStudy"`
	URL           string   `json:"url"`
	OpenAccessPDF *struct {
		URL string `json:"url"`
	} `json:"openAccessPdf"`
}

type author struct {
	Name string `json:"name"`
}

type searchResponse struct {
	Total int         `json:"total"`
	Data  []wirePaper `json:"data"`
}

// SearchOptions filter a paper search. A zero Limit means the default of 20.
type SearchOptions struct {
	Limit         int
	YearStart     int
	YearEnd       int
	FieldsOfStudy []string
}

// Client talks to the Semantic Scholar API. Rate-limited requests are
// retried with exponential delays.
type Client struct {
	baseURL    string
	httpClient *http.Client
	retryDelay time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at a different API endpoint.
func WithBaseURL(base string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(base, "/") }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a Semantic Scholar client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		retryDelay: time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Search queries papers matching the given text.
func (c *Client) Search(ctx context.Context, query string, opts SearchOptions) ([]Paper, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}
	limit := opts.Limit
	if limit == 0 {
		limit = defaultLimit
	}
	if limit < 1 || limit > 100 {
		return nil, fmt.Errorf("limit must be between 1 and 100, got %d", limit)
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("limit", strconv.Itoa(limit))
	params.Set("fields", paperFields)
	if yearFilter := formatYearFilter(opts.YearStart, opts.YearEnd); yearFilter != "" {
		params.Set("year", yearFilter)
	}
	if len(opts.FieldsOfStudy) > 0 {
		params.Set("fieldsOfStudy", strings.Join(opts.FieldsOfStudy, ","))
	}

	var resp searchResponse
	if err := c.getJSON(ctx, c.baseURL+"/paper/search?"+params.Encode(), &resp); err != nil {
		return nil, err
	}

	papers := make([]Paper, 0, len(resp.Data))
	for _, wp := range resp.Data {
		papers = append(papers, normalize(wp))
	}
	return papers, nil
}

// GetPaper fetches one paper by its Semantic Scholar ID.
func (c *Client) GetPaper(ctx context.Context, paperID string) (*Paper, error) {
	if strings.TrimSpace(paperID) == "" {
		return nil, fmt.Errorf("paper ID cannot be empty")
	}

	params := url.Values{}
	params.Set("fields", paperFields)

	var wp wirePaper
	if err := c.getJSON(ctx, c.baseURL+"/paper/"+url.PathEscape(paperID)+"?"+params.Encode(), &wp); err != nil {
		return nil, err
	}
	paper := normalize(wp)
	return &paper, nil
}

// getJSON performs a GET with rate-limit retries and decodes the body.
func (c *Client) getJSON(ctx context.Context, rawURL string, out any) error {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.retryDelay * time.Duration(1<<(attempt-1))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return err
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("semantic scholar request failed: %w", err)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("semantic scholar response read failed: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("semantic scholar rate limited")
			continue
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("semantic scholar API error: %d - %s", resp.StatusCode, strings.TrimSpace(string(body)))
		}
		return json.Unmarshal(body, out)
	}
	return fmt.Errorf("failed after %d retries: %w", maxRetries, lastErr)
}

// formatYearFilter renders the API year parameter: "2020-2023", "2020" for
// a single start year, or "-2023" for an upper bound only.
func formatYearFilter(start, end int) string {
	switch {
	case start > 0 && end > 0:
		return fmt.Sprintf("%d-%d", start, end)
	case start > 0:
		return strconv.Itoa(start)
	case end > 0:
		return fmt.Sprintf("-%d", end)
	default:
		return ""
	}
}

// normalize flattens the wire representation and attaches BibTeX data
// when the paper has both authors and a year.
func normalize(wp wirePaper) Paper {
	p := Paper{
		PaperID:       wp.PaperID,
		Title:         wp.Title,
		Year:          wp.Year,
		Venue:         wp.Venue,
		Abstract:      wp.Abstract,
		CitationCount: wp.CitationCount,
		FieldsOfStudy: wp.FieldsOfStudy,
		URL:           wp.URL,
	}
	for _, a := range wp.Authors {
		p.Authors = append(p.Authors, a.Name)
	}
	if wp.OpenAccessPDF != nil {
		p.PDFURL = wp.OpenAccessPDF.URL
	}
	if len(p.Authors) > 0 && p.Year != 0 {
		p.BibtexKey, p.BibtexEntry = GenerateBibtex(p)
	}
	return p
}
