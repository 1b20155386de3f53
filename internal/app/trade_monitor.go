package app

import (
	"context"
	"fmt"
	"polyhawk/clients/notifier"
	"polyhawk/clients/polymarketapi"
	"polyhawk/config"
	"time"

	"go.uber.org/zap"
)

// TradeMonitor alerts on individual trades above the notional floor that
// landed within the freshness window. Bigger trades get a higher tier so
// the notifiers can escalate presentation.
type TradeMonitor struct {
	logger   *zap.Logger
	cfg      config.DetectionConfig
	dedup    *DedupRegistry
	analyzer *PerformanceAnalyzer
	notifier notifier.Notifier
}

func NewTradeMonitor(
	logger *zap.Logger,
	cfg config.DetectionConfig,
	dedup *DedupRegistry,
	analyzer *PerformanceAnalyzer,
	notif notifier.Notifier,
) *TradeMonitor {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &TradeMonitor{
		logger:   logger,
		cfg:      cfg,
		dedup:    dedup,
		analyzer: analyzer,
		notifier: notif,
	}
}

// Process scans the market's recent trades and alerts on fresh large ones.
func (tm *TradeMonitor) Process(ctx context.Context, now time.Time, market polymarketapi.GammaMarket, trades []polymarketapi.Trade) {
	for _, t := range trades {
		notional := t.Notional()
		if notional < tm.cfg.LargeTradeMinNotional {
			continue
		}
		if now.Sub(time.Unix(t.Timestamp, 0)) >= tm.cfg.LargeTradeMaxAge {
			continue
		}

		key := fmt.Sprintf("trade:%s:%s:%d", market.ID, t.ProxyWallet, t.Timestamp)
		if tm.dedup.SeenBefore(key, now) {
			continue
		}

		tier := tm.tier(notional)

		// Performance lookup is best effort. The alert goes out either way.
		var perf *notifier.PerformanceSummary
		if tm.analyzer != nil && t.ProxyWallet != "" {
			if wp, err := tm.analyzer.Analyze(ctx, t.ProxyWallet); err != nil {
				tm.logger.Warn("performance lookup failed",
					zap.String("wallet", shortID(t.ProxyWallet)),
					zap.Error(err),
				)
			} else if wp.TradeCount > 0 {
				perf = &notifier.PerformanceSummary{
					HitRate:    wp.HitRate,
					TotalPnL:   wp.TotalPnL,
					ROI:        wp.ROI,
					TradeCount: wp.TradeCount,
				}
			}
		}

		tm.logger.Info("large trade detected",
			zap.String("market", shortID(market.ID)),
			zap.String("wallet", shortID(t.ProxyWallet)),
			zap.String("side", t.Side),
			zap.Float64("notional", notional),
			zap.Int("tier", tier),
		)

		tm.notifier.SendAlert(notifier.Alert{
			Category: notifier.CategoryLargeTrade,
			Market: notifier.MarketRef{
				ID:       market.ID,
				Question: nz(market.Question, t.Title),
				Slug:     nz(market.Slug, t.Slug),
			},
			Trade: &notifier.TradeDetails{
				Wallet:      t.ProxyWallet,
				Side:        t.Side,
				Notional:    notional,
				Price:       t.Price,
				Outcome:     t.Outcome,
				Tier:        tier,
				Category:    CategorizeMarket(nz(market.Question, t.Title)),
				Performance: perf,
			},
			Timestamp: now,
		})
	}
}

func (tm *TradeMonitor) tier(notional float64) int {
	switch {
	case notional >= tm.cfg.Tier3Notional:
		return 3
	case notional >= tm.cfg.Tier2Notional:
		return 2
	default:
		return 1
	}
}
