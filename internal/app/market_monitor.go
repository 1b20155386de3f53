package app

import (
	"context"
	"polyhawk/clients/notifier"
	"polyhawk/clients/polymarketapi"
	"polyhawk/config"
	"sync"
	"time"

	"go.uber.org/zap"
)

// MarketScanner watches for freshly listed markets that already clear the
// volume and liquidity floors. Each market alerts once; the seen set is
// swept after a day since a market cannot become new again.
type MarketScanner struct {
	logger    *zap.Logger
	cfg       config.MarketsConfig
	apiClient *polymarketapi.PolymarketApiClient
	notifier  notifier.Notifier

	mu   sync.Mutex
	seen map[string]time.Time
}

func NewMarketScanner(
	logger *zap.Logger,
	cfg config.MarketsConfig,
	apiClient *polymarketapi.PolymarketApiClient,
	notif notifier.Notifier,
) *MarketScanner {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &MarketScanner{
		logger:    logger,
		cfg:       cfg,
		apiClient: apiClient,
		notifier:  notif,
		seen:      make(map[string]time.Time),
	}
}

// RunOnce fetches the newest listings and alerts on qualifying ones.
func (ms *MarketScanner) RunOnce(ctx context.Context) error {
	now := time.Now()

	markets, err := ms.apiClient.GetNewestMarkets(ctx, ms.cfg.ScanLimit)
	if err != nil {
		return err
	}

	alerts := 0
	for _, m := range markets {
		if ms.processMarket(now, m) {
			alerts++
		}
	}

	ms.logger.Info("new-market scan complete",
		zap.Int("markets", len(markets)),
		zap.Int("alerts", alerts),
	)
	return nil
}

func (ms *MarketScanner) processMarket(now time.Time, m polymarketapi.GammaMarket) bool {
	if m.ID == "" {
		return false
	}

	ms.mu.Lock()
	_, already := ms.seen[m.ID]
	if !already {
		ms.seen[m.ID] = now
	}
	ms.mu.Unlock()
	if already {
		return false
	}

	if m.Volume24hr < ms.cfg.MinVolume || m.LiquidityNum < ms.cfg.MinLiquidity {
		return false
	}

	// An unparseable listing time is treated as brand new rather than
	// silently dropping the market.
	age := time.Duration(0)
	created, ok := parseMarketTime(m.CreatedAt)
	if ok {
		age = now.Sub(created)
	} else {
		ms.logger.Warn("unparseable market creation time",
			zap.String("market", shortID(m.ID)),
			zap.String("createdAt", m.CreatedAt),
		)
	}
	if age >= ms.cfg.NewListingWindow {
		return false
	}

	trending := m.Volume24hr > ms.cfg.TrendingVolume && age < ms.cfg.TrendingAge

	ms.logger.Info("new market listed",
		zap.String("market", shortID(m.ID)),
		zap.String("question", m.Question),
		zap.Float64("volume24h", m.Volume24hr),
		zap.Float64("liquidity", m.LiquidityNum),
		zap.Bool("trending", trending),
	)

	ms.notifier.SendAlert(notifier.Alert{
		Category: notifier.CategoryNewMarket,
		Market: notifier.MarketRef{
			ID:       m.ID,
			Question: m.Question,
			Slug:     m.Slug,
		},
		NewMarket: &notifier.NewMarketDetails{
			Volume24h: m.Volume24hr,
			Liquidity: m.LiquidityNum,
			CreatedAt: created,
			Trending:  trending,
		},
		Timestamp: now,
	})
	return true
}

// Sweep drops seen entries older than a day.
func (ms *MarketScanner) Sweep(now time.Time) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	cutoff := now.Add(-24 * time.Hour)
	for id, at := range ms.seen {
		if at.Before(cutoff) {
			delete(ms.seen, id)
		}
	}
}

// SeenCount returns the number of markets in the seen set.
func (ms *MarketScanner) SeenCount() int {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return len(ms.seen)
}
