package app

import (
	"context"
	"math"
	"polyhawk/clients/polymarketapi"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// categoryRule maps question keywords to a market category. Rules are
// checked in order and the first match wins.
type categoryRule struct {
	category string
	keywords []string
}

var categoryRules = []categoryRule{
	{"Politics", []string{"trump", "biden", "harris", "election", "president", "senate", "congress", "governor", "vote", "impeach", "nominee", "primary"}},
	{"Crypto", []string{"bitcoin", "btc", "ethereum", "eth", "solana", "crypto", "token", "blockchain", "defi", "nft"}},
	{"Sports", []string{"nba", "nfl", "mlb", "nhl", "super bowl", "world cup", "championship", "playoffs", "win the", "game", "match", "ufc", "olympics"}},
	{"Entertainment", []string{"oscar", "grammy", "emmy", "movie", "album", "box office", "netflix", "taylor swift", "celebrity"}},
	{"Finance", []string{"fed", "interest rate", "inflation", "gdp", "recession", "stock", "s&p", "nasdaq", "earnings", "ipo"}},
}

const categoryDefault = "All Markets"

// CategorizeMarket assigns a market question to a category by keyword
// substring match on the lowercased question.
func CategorizeMarket(question string) string {
	q := strings.ToLower(question)
	for _, rule := range categoryRules {
		for _, kw := range rule.keywords {
			if strings.Contains(q, kw) {
				return rule.category
			}
		}
	}
	return categoryDefault
}

// CategoryPerformance holds per-category results within a wallet's history.
type CategoryPerformance struct {
	Category   string  `json:"category"`
	TradeCount int     `json:"trade_count"`
	Wins       int     `json:"wins"`
	Losses     int     `json:"losses"`
	HitRate    float64 `json:"hit_rate"` // percent
	PnL        float64 `json:"pnl"`
	Volume     float64 `json:"volume"`
	ROI        float64 `json:"roi"` // percent
	Markets    int     `json:"markets"`
}

// WalletPerformance summarizes a wallet's trade history marked to current
// market prices.
type WalletPerformance struct {
	Wallet      string                         `json:"wallet"`
	TradeCount  int                            `json:"trade_count"`
	Wins        int                            `json:"wins"`
	Losses      int                            `json:"losses"`
	HitRate     float64                        `json:"hit_rate"` // percent
	TotalPnL    float64                        `json:"total_pnl"`
	TotalVolume float64                        `json:"total_volume"`
	ROI         float64                        `json:"roi"` // percent
	Consistency float64                        `json:"consistency"`
	Categories  map[string]CategoryPerformance `json:"categories"`
}

// tradeIsWin marks a trade as winning when its direction agrees with the
// outcome's current price: buys want the price above 0.5, sells below.
func tradeIsWin(t polymarketapi.UserTrade) bool {
	isBuy := strings.EqualFold(t.Side, "BUY")
	if isBuy {
		return t.OutcomePrice > 0.5
	}
	return t.OutcomePrice < 0.5
}

// analyzeTrades computes performance over a wallet's trade history. Size is
// the trade's stake: winning trades earn it times the distance between entry
// and current price, losing trades forfeit their cost basis, and it is the
// volume that ROI divides by.
func analyzeTrades(wallet string, trades []polymarketapi.UserTrade) *WalletPerformance {
	perf := &WalletPerformance{
		Wallet:     wallet,
		Categories: make(map[string]CategoryPerformance),
	}
	catMarkets := make(map[string]map[string]struct{})

	for _, t := range trades {
		win := tradeIsWin(t)
		var pnl float64
		if win {
			pnl = t.Size * math.Abs(t.OutcomePrice-t.Price)
		} else {
			pnl = -t.Size * t.Price
		}

		perf.TradeCount++
		perf.TotalPnL += pnl
		perf.TotalVolume += t.Size
		if win {
			perf.Wins++
		} else {
			perf.Losses++
		}

		cat := CategorizeMarket(t.Title)
		cp := perf.Categories[cat]
		cp.Category = cat
		cp.TradeCount++
		cp.PnL += pnl
		cp.Volume += t.Size
		if win {
			cp.Wins++
		} else {
			cp.Losses++
		}
		perf.Categories[cat] = cp

		if catMarkets[cat] == nil {
			catMarkets[cat] = make(map[string]struct{})
		}
		catMarkets[cat][t.ConditionID] = struct{}{}
	}

	if perf.TradeCount > 0 {
		perf.HitRate = float64(perf.Wins) / float64(perf.TradeCount) * 100
	}
	if perf.TotalVolume > 0 {
		perf.ROI = perf.TotalPnL / perf.TotalVolume * 100
	}
	for cat, cp := range perf.Categories {
		if cp.TradeCount > 0 {
			cp.HitRate = float64(cp.Wins) / float64(cp.TradeCount) * 100
		}
		if cp.Volume > 0 {
			cp.ROI = cp.PnL / cp.Volume * 100
		}
		cp.Markets = len(catMarkets[cat])
		perf.Categories[cat] = cp
	}

	perf.Consistency = consistencyScore(perf.Categories)

	return perf
}

// consistencyMinTrades is the minimum trades a category needs before it
// counts toward the consistency score.
const consistencyMinTrades = 5

// consistencyScore averages hit rates across qualifying categories and
// penalizes spread between them. Never negative.
func consistencyScore(categories map[string]CategoryPerformance) float64 {
	var rates []float64
	for _, cp := range categories {
		if cp.TradeCount >= consistencyMinTrades {
			rates = append(rates, cp.HitRate)
		}
	}
	if len(rates) == 0 {
		return 0
	}

	var sum float64
	for _, r := range rates {
		sum += r
	}
	mean := sum / float64(len(rates))

	var variance float64
	for _, r := range rates {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(rates))

	score := mean - variance/100
	if score < 0 {
		return 0
	}
	return score
}

// performanceCacheTTL bounds how stale a cached wallet analysis may be.
const performanceCacheTTL = 10 * time.Minute

type cachedPerformance struct {
	perf *WalletPerformance
	at   time.Time
}

// PerformanceAnalyzer fetches wallet trade history and computes hit rate,
// PnL, ROI and consistency. Results are cached briefly since large-trade
// alerts can hit the same whale repeatedly within a cycle.
type PerformanceAnalyzer struct {
	logger       *zap.Logger
	apiClient    *polymarketapi.PolymarketApiClient
	historyLimit int

	mu    sync.Mutex
	cache map[string]cachedPerformance
}

func NewPerformanceAnalyzer(logger *zap.Logger, apiClient *polymarketapi.PolymarketApiClient, historyLimit int) *PerformanceAnalyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if historyLimit <= 0 {
		historyLimit = 500
	}

	return &PerformanceAnalyzer{
		logger:       logger,
		apiClient:    apiClient,
		historyLimit: historyLimit,
		cache:        make(map[string]cachedPerformance),
	}
}

// Analyze returns performance for the wallet, fetching trade history from
// the data API unless a fresh cached result exists.
func (pa *PerformanceAnalyzer) Analyze(ctx context.Context, wallet string) (*WalletPerformance, error) {
	wallet = strings.ToLower(wallet)

	pa.mu.Lock()
	if cached, ok := pa.cache[wallet]; ok && time.Since(cached.at) < performanceCacheTTL {
		pa.mu.Unlock()
		return cached.perf, nil
	}
	pa.mu.Unlock()

	trades, err := pa.apiClient.GetWalletTrades(ctx, wallet, polymarketapi.RoleTaker, pa.historyLimit)
	if err != nil {
		return nil, err
	}

	perf := analyzeTrades(wallet, trades)

	pa.mu.Lock()
	pa.cache[wallet] = cachedPerformance{perf: perf, at: time.Now()}
	pa.mu.Unlock()

	return perf, nil
}

// Sweep drops expired cache entries.
func (pa *PerformanceAnalyzer) Sweep(now time.Time) {
	pa.mu.Lock()
	defer pa.mu.Unlock()
	for wallet, cached := range pa.cache {
		if now.Sub(cached.at) >= performanceCacheTTL {
			delete(pa.cache, wallet)
		}
	}
}
