package notifier

import (
	"time"
)

// Category indicates which detector produced an alert. Subscribers can
// toggle delivery per category.
type Category string

const (
	CategoryVolumeSpike Category = "volume_spike"
	CategoryLargeTrade  Category = "large_trade"
	CategoryPriceMove   Category = "price_move"
	CategoryArbitrage   Category = "arbitrage"
	CategoryWalletTrade Category = "wallet_trade" // Trade by an explicitly tracked wallet
	CategoryNews        Category = "news"
	CategoryNewMarket   Category = "new_market"
)

// Categories lists every alert category in display order.
func Categories() []Category {
	return []Category{
		CategoryVolumeSpike,
		CategoryLargeTrade,
		CategoryPriceMove,
		CategoryArbitrage,
		CategoryWalletTrade,
		CategoryNews,
		CategoryNewMarket,
	}
}

// MarketRef identifies the market an alert is about.
type MarketRef struct {
	ID       string
	Question string
	Slug     string
}

// ContextTrade is a large trade attached to a volume spike alert for context.
type ContextTrade struct {
	Wallet   string
	Side     string // BUY or SELL
	Notional float64
	Price    float64
	Outcome  string
}

// SpikeDetails describes a volume spike.
type SpikeDetails struct {
	PastVolume    float64
	CurrentVolume float64
	ChangePct     float64 // Signed percent change vs the window-ago value
	ContextTrades []ContextTrade
}

// PerformanceSummary is a condensed wallet track record attached to trade alerts.
type PerformanceSummary struct {
	HitRate    float64 // Percent of analyzed trades that were wins
	TotalPnL   float64
	ROI        float64 // Percent return on total invested
	TradeCount int
}

// TradeDetails describes a single large or tracked-wallet trade.
type TradeDetails struct {
	Wallet   string
	Side     string // BUY or SELL
	Notional float64
	Price    float64
	Outcome  string
	Tier     int // 1..3, escalating with notional size
	Category string

	// Performance is the trader's track record when available, nil otherwise.
	Performance *PerformanceSummary
}

// PriceMoveDetails describes a significant price change.
type PriceMoveDetails struct {
	OldPrice  float64
	NewPrice  float64
	ChangePct float64 // Signed percent change
	Direction string  // UP or DOWN
	Volume24h float64
}

// ArbitrageDetails describes a cross-venue hedge opportunity.
type ArbitrageDetails struct {
	PolymarketQuestion string
	KalshiTitle        string
	BuyYesVenue        string // Venue to buy YES on
	BuyNoVenue         string // Venue to buy NO on
	YesPrice           float64
	NoPrice            float64
	TotalCost          float64
	SpreadPct          float64 // Guaranteed margin in percent
}

// NewsDetails describes a news article matched to a market.
type NewsDetails struct {
	ArticleTitle string
	ArticleURL   string
	SourceName   string
	PublishedAt  time.Time
	Score        int
	Keywords     []string // Market keywords that matched the article
	Decisive     bool     // Article language suggests the event may be resolved
	Degen        []string // Hype terms found in the article, if any
}

// NewMarketDetails describes a newly listed market worth watching.
type NewMarketDetails struct {
	Volume24h float64
	Liquidity float64
	CreatedAt time.Time
	Trending  bool
}

// Alert is a single notification. Exactly one details field is set,
// matching Category.
type Alert struct {
	Category Category
	Market   MarketRef

	Spike     *SpikeDetails
	Trade     *TradeDetails
	PriceMove *PriceMoveDetails
	Arbitrage *ArbitrageDetails
	News      *NewsDetails
	NewMarket *NewMarketDetails

	Timestamp time.Time
}

// Notifier is the interface for sending alerts to various channels.
type Notifier interface {
	// SendAlert sends an alert notification. Delivery failures are logged
	// by the implementation, never surfaced to the detector.
	SendAlert(alert Alert)

	// Close cleans up any resources.
	Close() error
}

// MultiNotifier broadcasts alerts to multiple notifiers.
type MultiNotifier struct {
	notifiers []Notifier
}

// NewMultiNotifier creates a new MultiNotifier with the given notifiers.
func NewMultiNotifier(notifiers ...Notifier) *MultiNotifier {
	// Filter out nil notifiers
	var active []Notifier
	for _, n := range notifiers {
		if n != nil {
			active = append(active, n)
		}
	}
	return &MultiNotifier{notifiers: active}
}

// SendAlert sends the alert to all registered notifiers.
func (m *MultiNotifier) SendAlert(alert Alert) {
	for _, n := range m.notifiers {
		n.SendAlert(alert)
	}
}

// Close closes all registered notifiers.
func (m *MultiNotifier) Close() error {
	var lastErr error
	for _, n := range m.notifiers {
		if err := n.Close(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// Count returns the number of active notifiers.
func (m *MultiNotifier) Count() int {
	return len(m.notifiers)
}
