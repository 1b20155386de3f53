package kalshiapi

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

// KalshiApiClient reads public market data from the Kalshi trade API.
// No authentication is required for the endpoints used here.
type KalshiApiClient struct {
	logger     *zap.Logger
	httpClient *http.Client
	baseURL    string
}

func NewKalshiApiClient(logger *zap.Logger, cfg *config.Config) *KalshiApiClient {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &KalshiApiClient{
		logger: logger,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL: cfg.Kalshi.BaseURL,
	}
}

// Market is a single Kalshi market. Prices on the wire are integer cents;
// YesAsk and NoAsk convert them to the 0..1 scale used everywhere else.
type Market struct {
	Ticker    string `json:"ticker"`
	Title     string `json:"title"`
	Status    string `json:"status"`
	YesAskRaw int    `json:"yes_ask"` // cents
	NoAskRaw  int    `json:"no_ask"`  // cents
	Volume24h int64  `json:"volume_24h"`
}

// YesAsk returns the YES ask price as a 0..1 fraction.
func (m *Market) YesAsk() float64 {
	return float64(m.YesAskRaw) / 100
}

// NoAsk returns the NO ask price as a 0..1 fraction.
func (m *Market) NoAsk() float64 {
	return float64(m.NoAskRaw) / 100
}

type marketsResponse struct {
	Markets []Market `json:"markets"`
	Cursor  string   `json:"cursor"`
}

// GetMarkets fetches open markets, one page up to limit.
func (c *KalshiApiClient) GetMarkets(ctx context.Context, limit int) ([]Market, error) {
	if limit <= 0 {
		limit = 100
	}

	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid kalshi baseURL: %w", err)
	}
	u.Path += "/markets"

	q := u.Query()
	q.Set("limit", fmt.Sprintf("%d", limit))
	q.Set("status", "open")
	u.RawQuery = q.Encode()

	var resp marketsResponse
	if err := c.doGet(ctx, u.String(), &resp); err != nil {
		return nil, fmt.Errorf("get kalshi markets: %w", err)
	}

	return resp.Markets, nil
}

// doGet is a helper that performs a GET request and decodes JSON response.
func (c *KalshiApiClient) doGet(ctx context.Context, url string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

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
