package newsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"polyhawk/config"
	"time"

	"go.uber.org/zap"
)

// NewsApiClient searches articles on newsapi.org. Without an API key the
// client is disabled and Search returns nothing.
type NewsApiClient struct {
	logger     *zap.Logger
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

const defaultBaseURL = "https://newsapi.org"

func NewNewsApiClient(logger *zap.Logger, cfg *config.Config) *NewsApiClient {
	return NewNewsApiClientWithBaseURL(logger, cfg, defaultBaseURL)
}

// NewNewsApiClientWithBaseURL allows overriding the API host, used in tests.
func NewNewsApiClientWithBaseURL(logger *zap.Logger, cfg *config.Config, baseURL string) *NewsApiClient {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &NewsApiClient{
		logger: logger,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL: baseURL,
		apiKey:  cfg.News.APIKey,
	}
}

// Enabled reports whether an API key is configured.
func (c *NewsApiClient) Enabled() bool {
	return c.apiKey != ""
}

// Article is a single search result.
type Article struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	PublishedAt string `json:"publishedAt"`
	Source      struct {
		Name string `json:"name"`
	} `json:"source"`
}

// PublishedTime parses the article timestamp. A missing or malformed
// timestamp is treated as just-published so the article is not dropped.
func (a *Article) PublishedTime(now time.Time) time.Time {
	if a.PublishedAt == "" {
		return now
	}
	t, err := time.Parse(time.RFC3339, a.PublishedAt)
	if err != nil {
		return now
	}
	return t
}

type searchResponse struct {
	Status       string    `json:"status"`
	TotalResults int       `json:"totalResults"`
	Articles     []Article `json:"articles"`
}

// Search runs an everything-search for the given query, most recent first.
func (c *NewsApiClient) Search(ctx context.Context, query string, pageSize int) ([]Article, error) {
	if !c.Enabled() {
		return nil, nil
	}
	if query == "" {
		return nil, nil
	}
	if pageSize <= 0 {
		pageSize = 20
	}

	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid news baseURL: %w", err)
	}
	u.Path = "/v2/everything"

	q := u.Query()
	q.Set("q", query)
	q.Set("pageSize", fmt.Sprintf("%d", pageSize))
	q.Set("language", "en")
	q.Set("sortBy", "publishedAt")
	u.RawQuery = q.Encode()

	var resp searchResponse
	if err := c.doGet(ctx, u.String(), &resp); err != nil {
		return nil, fmt.Errorf("search news: %w", err)
	}

	return resp.Articles, nil
}

// doGet is a helper that performs a GET request and decodes JSON response.
func (c *NewsApiClient) doGet(ctx context.Context, url string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("status=%d body=%s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("decode json: %w", err)
	}

	return nil
}
