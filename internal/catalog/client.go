package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"bookshelf/internal/domain"
)

// isbnQuery matches a search whose whole input is a bare ISBN-10 or ISBN-13.
var isbnQuery = regexp.MustCompile(`^\d{10,13}$`)

// Client queries the Open Library search API. Lookups are best effort: any
// failure is logged and degrades to an empty result list, never an error page.
type Client struct {
	baseURL    string
	coversURL  string
	httpClient *http.Client
	logger     *logrus.Logger
}

func NewClient(baseURL, coversURL string, timeout time.Duration, logger *logrus.Logger) *Client {
	if logger == nil {
		logger = logrus.New()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		coversURL:  strings.TrimRight(coversURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type searchResponse struct {
	NumFound int         `json:"num_found"`
	Docs     []searchDoc `json:"docs"`
}

type searchDoc struct {
	Title      string   `json:"title"`
	AuthorName []string `json:"author_name"`
	CoverID    int64    `json:"cover_i"`
	ISBN       []string `json:"isbn"`
}

// Search looks up books by title and/or author. Anything that goes wrong on
// the wire yields an empty slice. A query that is nothing but an ISBN skips
// the search API entirely and links straight to the covers host.
func (c *Client) Search(ctx context.Context, title, author string) []domain.CatalogResult {
	title = strings.TrimSpace(title)
	author = strings.TrimSpace(author)
	if title == "" && author == "" {
		return nil
	}

	if digits := title + author; isbnQuery.MatchString(digits) {
		return []domain.CatalogResult{{
			Title:    "ISBN " + digits,
			Author:   "Unknown Author",
			CoverURL: fmt.Sprintf("%s/b/isbn/%s-M.jpg", c.coversURL, digits),
			ISBN:     digits,
		}}
	}

	results, err := c.search(ctx, title, author)
	if err != nil {
		c.logger.Warnf("catalog search: %v", err)
		return nil
	}
	return results
}

func (c *Client) search(ctx context.Context, title, author string) ([]domain.CatalogResult, error) {
	query := url.Values{}
	if title != "" {
		query.Set("title", title)
	}
	if author != "" {
		query.Set("author", author)
	}
	searchURL := fmt.Sprintf("%s/search.json?%s", c.baseURL, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create search request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search API status %d", resp.StatusCode)
	}

	var payload searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	var results []domain.CatalogResult
	for _, doc := range payload.Docs {
		// results without a cover render as broken tiles, drop them
		if doc.CoverID <= 0 {
			continue
		}
		author := strings.Join(doc.AuthorName, ", ")
		if author == "" {
			author = "Unknown Author"
		}
		result := domain.CatalogResult{
			Title:    doc.Title,
			Author:   author,
			CoverURL: fmt.Sprintf("%s/b/id/%d-M.jpg", c.coversURL, doc.CoverID),
		}
		if len(doc.ISBN) > 0 {
			result.ISBN = doc.ISBN[0]
		}
		results = append(results, result)
	}
	return results, nil
}
