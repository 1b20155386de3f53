package polymarketapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"polyhawk/config"
	"strings"
	"time"

	"go.uber.org/zap"
)

type PolymarketApiClient struct {
	logger       *zap.Logger
	httpClient   *http.Client
	gammaBaseURL string
	dataBaseURL  string
}

func NewPolymarketApiClient(logger *zap.Logger, cfg *config.Config) *PolymarketApiClient {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &PolymarketApiClient{
		logger: logger,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		gammaBaseURL: cfg.Polymarket.GammaAPIURL,
		dataBaseURL:  cfg.Polymarket.DataAPIURL,
	}
}

// ---- Gamma API types (minimal; add fields as you need) ----

type GammaMarket struct {
	ID          string `json:"id"`
	Slug        string `json:"slug"`
	Question    string `json:"question"`
	Description string `json:"description"`
	ConditionID string `json:"conditionId"`

	// These are commonly present and very useful for labeling YES/NO.
	Outcomes      json.RawMessage `json:"outcomes"`
	OutcomePrices json.RawMessage `json:"outcomePrices"`

	// Volume and liquidity metrics
	Volume24hr   float64 `json:"volume24hr"`
	VolumeNum    float64 `json:"volumeNum"`
	LiquidityNum float64 `json:"liquidityNum"`

	// Status
	Active bool `json:"active"`
	Closed bool `json:"closed"`

	// Listing time, ISO 8601. Format varies between endpoints.
	CreatedAt string `json:"createdAt"`

	// Market image
	Image string `json:"image"`
}

// GetOutcomes parses the Outcomes field and returns the outcome names.
func (m *GammaMarket) GetOutcomes() []string {
	if len(m.Outcomes) == 0 {
		return nil
	}

	// Try parsing as direct array
	var outcomes []string
	if err := json.Unmarshal(m.Outcomes, &outcomes); err == nil {
		return outcomes
	}

	// Try parsing as JSON string containing an array (e.g., "[\"Yes\", \"No\"]")
	var jsonStr string
	if err := json.Unmarshal(m.Outcomes, &jsonStr); err == nil {
		if err := json.Unmarshal([]byte(jsonStr), &outcomes); err == nil {
			return outcomes
		}
	}

	return nil
}

// GetOutcomePrices parses the OutcomePrices field and returns prices.
func (m *GammaMarket) GetOutcomePrices() []float64 {
	if len(m.OutcomePrices) == 0 {
		return nil
	}

	// Helper to parse string array to floats
	parseStrings := func(strs []string) []float64 {
		prices := make([]float64, len(strs))
		for i, s := range strs {
			fmt.Sscanf(s, "%f", &prices[i])
		}
		return prices
	}

	// Try parsing as array of floats
	var prices []float64
	if err := json.Unmarshal(m.OutcomePrices, &prices); err == nil {
		return prices
	}

	// Try parsing as array of strings (sometimes prices are strings)
	var priceStrs []string
	if err := json.Unmarshal(m.OutcomePrices, &priceStrs); err == nil {
		return parseStrings(priceStrs)
	}

	// Try parsing as JSON string containing an array (e.g., "[\"0\", \"1\"]")
	var jsonStr string
	if err := json.Unmarshal(m.OutcomePrices, &jsonStr); err == nil {
		// Try as float array inside string
		if err := json.Unmarshal([]byte(jsonStr), &prices); err == nil {
			return prices
		}
		// Try as string array inside string
		if err := json.Unmarshal([]byte(jsonStr), &priceStrs); err == nil {
			return parseStrings(priceStrs)
		}
	}

	return nil
}

// YesPrice returns the price of the first (YES) outcome, or 0.5 when the
// market carries no usable price data.
func (m *GammaMarket) YesPrice() float64 {
	prices := m.GetOutcomePrices()
	if len(prices) == 0 {
		return 0.5
	}
	return prices[0]
}

// NoPrice returns the price of the second (NO) outcome, or 0.5 when the
// market carries no usable price data. The pair is quoted independently and
// need not sum to 1.
func (m *GammaMarket) NoPrice() float64 {
	prices := m.GetOutcomePrices()
	if len(prices) < 2 {
		return 0.5
	}
	return prices[1]
}

// GetTopMarketsByVolume fetches the top active markets sorted by 24-hour
// trading volume.
func (c *PolymarketApiClient) GetTopMarketsByVolume(
	ctx context.Context,
	limit int,
) ([]GammaMarket, error) {
	if limit <= 0 {
		limit = 20
	}

	u, err := url.Parse(c.gammaBaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid gammaBaseURL: %w", err)
	}
	u.Path = "/markets"

	q := u.Query()
	q.Set("limit", fmt.Sprintf("%d", limit))
	q.Set("order", "volume24hr")
	q.Set("ascending", "false")
	q.Set("active", "true")
	q.Set("closed", "false")
	u.RawQuery = q.Encode()

	var markets []GammaMarket
	if err := c.doGet(ctx, u.String(), &markets); err != nil {
		return nil, fmt.Errorf("get top markets: %w", err)
	}
	return markets, nil
}

// GetNewestMarkets fetches active markets ordered by listing time, newest first.
func (c *PolymarketApiClient) GetNewestMarkets(
	ctx context.Context,
	limit int,
) ([]GammaMarket, error) {
	if limit <= 0 {
		limit = 100
	}

	u, err := url.Parse(c.gammaBaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid gammaBaseURL: %w", err)
	}
	u.Path = "/markets"

	q := u.Query()
	q.Set("limit", fmt.Sprintf("%d", limit))
	q.Set("order", "createdAt")
	q.Set("ascending", "false")
	q.Set("active", "true")
	q.Set("closed", "false")
	u.RawQuery = q.Encode()

	var markets []GammaMarket
	if err := c.doGet(ctx, u.String(), &markets); err != nil {
		return nil, fmt.Errorf("get newest markets: %w", err)
	}
	return markets, nil
}

// ---- Data API types ----

// Trade represents a trade from the data API.
type Trade struct {
	ID              string  `json:"id"`
	ProxyWallet     string  `json:"proxyWallet"`
	Side            string  `json:"side"` // BUY or SELL
	Size            float64 `json:"size"`
	Price           float64 `json:"price"`
	Timestamp       int64   `json:"timestamp"`
	ConditionID     string  `json:"conditionId"`
	Asset           string  `json:"asset"`
	TransactionHash string  `json:"transactionHash"`

	// Market metadata
	Title        string `json:"title"`
	Slug         string `json:"slug"`
	Icon         string `json:"icon"` // Market image URL
	Outcome      string `json:"outcome"`
	OutcomeIndex int    `json:"outcomeIndex"`

	// User profile
	Name         string `json:"name"`
	Pseudonym    string `json:"pseudonym"`
	ProfileImage string `json:"profileImage"`
}

// Notional returns the trade's USD size.
func (t *Trade) Notional() float64 {
	return t.Size * t.Price
}

// UserTrade represents a single trade in a wallet's history. OutcomePrice
// is the market's current price for the traded outcome, used to mark
// open trades to market.
type UserTrade struct {
	ProxyWallet     string  `json:"proxyWallet"`
	Side            string  `json:"side"` // BUY or SELL
	Size            float64 `json:"size"`
	Price           float64 `json:"price"`
	Timestamp       int64   `json:"timestamp"`
	ConditionID     string  `json:"conditionId"`
	TransactionHash string  `json:"transactionHash"`
	Title           string  `json:"title"`
	Outcome         string  `json:"outcome"`
	OutcomePrice    float64 `json:"outcomePrice"`
}

// Notional returns the trade's USD size.
func (t *UserTrade) Notional() float64 {
	return t.Size * t.Price
}

// WalletRole selects which side of a trade a wallet was on.
type WalletRole string

const (
	RoleMaker WalletRole = "maker"
	RoleTaker WalletRole = "taker"
)

// Activity represents user activity from the data API.
type Activity struct {
	ProxyWallet     string  `json:"proxyWallet"`
	Timestamp       int64   `json:"timestamp"`
	ConditionID     string  `json:"conditionId"`
	Type            string  `json:"type"` // TRADE, SPLIT, MERGE, REDEEM, REWARD, CONVERSION
	Size            float64 `json:"size"`
	UsdcSize        float64 `json:"usdcSize"`
	Price           float64 `json:"price"`
	Side            string  `json:"side"`
	TransactionHash string  `json:"transactionHash"`

	// Market metadata
	Title   string `json:"title"`
	Slug    string `json:"slug"`
	Outcome string `json:"outcome"`
}

// Position represents an open position from the data API.
type Position struct {
	ProxyWallet  string  `json:"proxyWallet"`
	Asset        string  `json:"asset"`
	ConditionID  string  `json:"conditionId"`
	Size         float64 `json:"size"`
	AvgPrice     float64 `json:"avgPrice"`
	InitialValue float64 `json:"initialValue"`
	CurrentValue float64 `json:"currentValue"`
	CashPnl      float64 `json:"cashPnl"`
	PercentPnl   float64 `json:"percentPnl"`
	CurPrice     float64 `json:"curPrice"`
	Title        string  `json:"title"`
	Slug         string  `json:"slug"`
	Outcome      string  `json:"outcome"`
	EndDate      string  `json:"endDate"`
}

// GetTrades fetches recent trades for the given market condition IDs,
// most recent first.
func (c *PolymarketApiClient) GetTrades(
	ctx context.Context,
	markets []string,
	limit int,
) ([]Trade, error) {
	u, err := url.Parse(c.dataBaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid dataBaseURL: %w", err)
	}
	u.Path = "/trades"

	q := u.Query()
	if len(markets) > 0 {
		q.Set("market", strings.Join(markets, ","))
	}
	if limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", limit))
	}
	u.RawQuery = q.Encode()

	var trades []Trade
	if err := c.doGet(ctx, u.String(), &trades); err != nil {
		return nil, fmt.Errorf("get trades: %w", err)
	}

	return trades, nil
}

// GetWalletTrades fetches trades where the wallet was the given role
// (maker or taker), most recent first. A wallet's full recent flow is the
// union of both roles.
func (c *PolymarketApiClient) GetWalletTrades(
	ctx context.Context,
	wallet string,
	role WalletRole,
	limit int,
) ([]UserTrade, error) {
	wallet = strings.TrimSpace(wallet)
	if wallet == "" {
		return nil, fmt.Errorf("wallet is empty")
	}

	u, err := url.Parse(c.dataBaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid dataBaseURL: %w", err)
	}
	u.Path = "/trades"

	q := u.Query()
	q.Set(fmt.Sprintf("%s_address", role), wallet)
	if limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", limit))
	}
	u.RawQuery = q.Encode()

	var trades []UserTrade
	if err := c.doGet(ctx, u.String(), &trades); err != nil {
		return nil, fmt.Errorf("get wallet trades: %w", err)
	}

	return trades, nil
}

// GetUserActivity fetches activity for a specific wallet address.
func (c *PolymarketApiClient) GetUserActivity(
	ctx context.Context,
	wallet string,
	limit int,
) ([]Activity, error) {
	wallet = strings.TrimSpace(wallet)
	if wallet == "" {
		return nil, fmt.Errorf("wallet is empty")
	}

	u, err := url.Parse(c.dataBaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid dataBaseURL: %w", err)
	}
	u.Path = "/activity"

	q := u.Query()
	q.Set("user", wallet)
	if limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", limit))
	}
	u.RawQuery = q.Encode()

	var activity []Activity
	if err := c.doGet(ctx, u.String(), &activity); err != nil {
		return nil, fmt.Errorf("get user activity: %w", err)
	}

	return activity, nil
}

// GetPositions fetches open positions for a specific wallet address.
// Optionally filter by market condition ID.
func (c *PolymarketApiClient) GetPositions(
	ctx context.Context,
	wallet string,
	market string,
	limit int,
) ([]Position, error) {
	wallet = strings.TrimSpace(wallet)
	if wallet == "" {
		return nil, fmt.Errorf("wallet is empty")
	}

	u, err := url.Parse(c.dataBaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid dataBaseURL: %w", err)
	}
	u.Path = "/positions"

	q := u.Query()
	q.Set("user", wallet)
	if market != "" {
		q.Set("market", market)
	}
	if limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", limit))
	}
	// Set sizeThreshold to 0 to include positions of any size
	q.Set("sizeThreshold", "0")
	u.RawQuery = q.Encode()

	var positions []Position
	if err := c.doGet(ctx, u.String(), &positions); err != nil {
		return nil, fmt.Errorf("get positions: %w", err)
	}

	return positions, nil
}

// doGet is a helper that performs a GET request and decodes JSON response.
func (c *PolymarketApiClient) doGet(ctx context.Context, url string, dest any) error {
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
