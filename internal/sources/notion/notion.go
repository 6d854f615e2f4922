// Package notion queries Notion databases over the public REST API.
package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/yungbote/skillgraph-backend/internal/platform/logger"
)

const (
	DefaultBaseURL = "https://api.notion.com/v1"
	APIVersion     = "2022-06-28"
)

// ErrNotConfigured is returned when no integration token is set.
var ErrNotConfigured = errors.New("notion: api key not configured")

type Config struct {
	APIKey            string
	BaseURL           string
	RequestsPerSecond float64
	MaxPages          int
	Timeout           time.Duration
}

type Page struct {
	ID             string                     `json:"id"`
	URL            string                     `json:"url,omitempty"`
	CreatedTime    time.Time                  `json:"created_time"`
	LastEditedTime time.Time                  `json:"last_edited_time"`
	Archived       bool                       `json:"archived"`
	Properties     map[string]json.RawMessage `json:"properties"`
}

type richText struct {
	PlainText string `json:"plain_text"`
}

type titleProperty struct {
	Type  string     `json:"type"`
	Title []richText `json:"title"`
}

// Title concatenates the plain text of the page's title property.
func (p Page) Title() string {
	for _, raw := range p.Properties {
		var prop titleProperty
		if err := json.Unmarshal(raw, &prop); err != nil || prop.Type != "title" {
			continue
		}
		var b strings.Builder
		for _, t := range prop.Title {
			b.WriteString(t.PlainText)
		}
		return strings.TrimSpace(b.String())
	}
	return ""
}

type queryResponse struct {
	Results    []Page  `json:"results"`
	HasMore    bool    `json:"has_more"`
	NextCursor *string `json:"next_cursor"`
}

type apiError struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *apiError) Error() string {
	return fmt.Sprintf("notion: %d %s: %s", e.Status, e.Code, e.Message)
}

type Client struct {
	log      *logger.Logger
	http     *http.Client
	baseURL  string
	apiKey   string
	limiter  *rate.Limiter
	maxPages int
}

func New(log *logger.Logger, cfg Config) (*Client, error) {
	if log == nil {
		return nil, fmt.Errorf("notion: logger required")
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("notion: base url: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		// Notion's documented average limit.
		rps = 3
	}
	maxPages := cfg.MaxPages
	if maxPages <= 0 {
		maxPages = 10
	}
	return &Client{
		log:      log.With("client", "Notion"),
		http:     &http.Client{Timeout: timeout},
		baseURL:  base,
		apiKey:   strings.TrimSpace(cfg.APIKey),
		limiter:  rate.NewLimiter(rate.Limit(rps), 1),
		maxPages: maxPages,
	}, nil
}

func (c *Client) Configured() bool { return c != nil && c.apiKey != "" }

// QueryDatabase returns every page of the database, following cursors.
func (c *Client) QueryDatabase(ctx context.Context, databaseID string) ([]Page, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	databaseID = strings.TrimSpace(databaseID)
	if databaseID == "" {
		return nil, fmt.Errorf("notion: database id required")
	}
	endpoint := c.baseURL + "/databases/" + url.PathEscape(databaseID) + "/query"

	pages := []Page{}
	var cursor string
	for i := 0; i < c.maxPages; i++ {
		body := map[string]any{"page_size": 100}
		if cursor != "" {
			body["start_cursor"] = cursor
		}
		var resp queryResponse
		if err := c.post(ctx, endpoint, body, &resp); err != nil {
			return nil, err
		}
		pages = append(pages, resp.Results...)
		if !resp.HasMore || resp.NextCursor == nil || *resp.NextCursor == "" {
			break
		}
		cursor = *resp.NextCursor
	}
	c.log.Debug("Queried database", "database_id", databaseID, "count", len(pages))
	return pages, nil
}

func (c *Client) post(ctx context.Context, endpoint string, body any, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Notion-Version", APIVersion)

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("notion: request: %w", err)
	}
	defer res.Body.Close()
	payload, err := io.ReadAll(io.LimitReader(res.Body, 16<<20))
	if err != nil {
		return fmt.Errorf("notion: read body: %w", err)
	}
	if res.StatusCode != http.StatusOK {
		apiErr := &apiError{Status: res.StatusCode}
		if json.Unmarshal(payload, apiErr) != nil || apiErr.Message == "" {
			apiErr.Message = http.StatusText(res.StatusCode)
		}
		apiErr.Status = res.StatusCode
		return apiErr
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("notion: decode response: %w", err)
	}
	return nil
}
