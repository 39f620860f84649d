// Package bolls is a small client for the bolls.life Bible text API.
package bolls

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kiraleos/sermon-assistant/internal/bible"
)

const (
	DefaultBaseURL     = "https://bolls.life"
	DefaultSearchLimit = 50
	defaultTimeout     = 5 * time.Second
)

// ErrNotFound is returned when the API answers but the requested verse is absent.
var ErrNotFound = errors.New("verse not found in chapter")

// StatusError reports a non-2xx response.
type StatusError struct {
	URL    string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("bible api %s returned status %d", e.URL, e.Status)
}

type Verse struct {
	PK      int    `json:"pk"`
	Verse   int    `json:"verse"`
	Text    string `json:"text"`
	Comment string `json:"comment,omitempty"`
}

type SearchResult struct {
	PK          int          `json:"pk"`
	Translation string       `json:"translation"`
	Book        bible.BookID `json:"book"`
	Chapter     int          `json:"chapter"`
	Verse       int          `json:"verse"`
	Text        string       `json:"text"`
}

// Reference renders the result as "Book chapter:verse".
func (r SearchResult) Reference() string {
	return fmt.Sprintf("%s %d:%d", r.Book.Name(), r.Chapter, r.Verse)
}

type searchResponse struct {
	ExactMatches int            `json:"exact_matches"`
	Total        int            `json:"total"`
	Results      []SearchResult `json:"results"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient returns a client for baseURL (DefaultBaseURL when empty).
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// Chapter returns every verse of a chapter with markup flattened to plain text.
func (c *Client) Chapter(ctx context.Context, translation string, book bible.BookID, chapter int) ([]Verse, error) {
	endpoint := fmt.Sprintf("%s/get-text/%s/%d/%d/", c.baseURL, url.PathEscape(translation), book, chapter)
	var verses []Verse
	if err := c.getJSON(ctx, endpoint, &verses); err != nil {
		return nil, err
	}
	for i := range verses {
		verses[i].Text = PlainText(verses[i].Text)
	}
	return verses, nil
}

// Passage returns the text for ref: the single verse when ref has one, otherwise
// the whole chapter as "n. text" lines.
func (c *Client) Passage(ctx context.Context, translation string, ref bible.Reference) (string, error) {
	verses, err := c.Chapter(ctx, translation, ref.Book, ref.Chapter)
	if err != nil {
		return "", err
	}
	if len(verses) == 0 {
		return "", fmt.Errorf("%s: %w", ref, ErrNotFound)
	}
	if !ref.HasVerse() {
		lines := make([]string, 0, len(verses))
		for _, v := range verses {
			lines = append(lines, fmt.Sprintf("%d. %s", v.Verse, v.Text))
		}
		return strings.Join(lines, "\n"), nil
	}
	for _, v := range verses {
		if v.Verse == ref.Verse {
			return v.Text, nil
		}
	}
	return "", fmt.Errorf("%s: %w", ref, ErrNotFound)
}

// Search runs a case-insensitive keyword search. limit <= 0 uses DefaultSearchLimit.
func (c *Client) Search(ctx context.Context, translation, query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	params := url.Values{}
	params.Set("search", query)
	params.Set("match_case", "false")
	params.Set("match_whole", "false")
	params.Set("limit", fmt.Sprint(limit))
	endpoint := fmt.Sprintf("%s/v2/find/%s?%s", c.baseURL, url.PathEscape(translation), params.Encode())

	var resp searchResponse
	if err := c.getJSON(ctx, endpoint, &resp); err != nil {
		return nil, err
	}
	for i := range resp.Results {
		resp.Results[i].Text = PlainText(resp.Results[i].Text)
	}
	return resp.Results, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("bible api request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrNotFound, endpoint)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{URL: endpoint, Status: resp.StatusCode}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode bible api response: %w", err)
	}
	return nil
}
