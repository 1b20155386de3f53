package app

import (
	"fmt"
	"polyhawk/clients/notifier"
	"polyhawk/clients/polymarketapi"
	"polyhawk/config"
	"time"

	"go.uber.org/zap"
)

// SpikeMonitor alerts when a market's 24h volume jumps against its own
// value from one window ago.
type SpikeMonitor struct {
	logger   *zap.Logger
	cfg      config.DetectionConfig
	history  *RollingHistory
	dedup    *DedupRegistry
	notifier notifier.Notifier
}

func NewSpikeMonitor(
	logger *zap.Logger,
	cfg config.DetectionConfig,
	history *RollingHistory,
	dedup *DedupRegistry,
	notif notifier.Notifier,
) *SpikeMonitor {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &SpikeMonitor{
		logger:   logger,
		cfg:      cfg,
		history:  history,
		dedup:    dedup,
		notifier: notif,
	}
}

// Process records the market's current volume and alerts if it has grown
// at least the threshold fraction since one window ago. The first sighting
// of a market never alerts since there is no baseline yet.
func (sm *SpikeMonitor) Process(now time.Time, market polymarketapi.GammaMarket, trades []polymarketapi.Trade) {
	current := market.Volume24hr
	sm.history.Record(market.ID, now, current)

	past, ok := sm.history.ValueAsOf(market.ID, now.Add(-sm.cfg.SpikeWindow))
	if !ok || past == 0 {
		return
	}

	change := (current - past) / past
	if change < sm.cfg.SpikeThreshold {
		return
	}

	// One alert per market per window bucket.
	bucket := now.Unix() / int64(sm.cfg.SpikeWindow.Seconds())
	key := fmt.Sprintf("spike:%s:%d", market.ID, bucket)
	if sm.dedup.SeenBefore(key, now) {
		return
	}

	sm.logger.Info("volume spike detected",
		zap.String("market", shortID(market.ID)),
		zap.String("question", market.Question),
		zap.Float64("pastVolume", past),
		zap.Float64("currentVolume", current),
		zap.Float64("changePct", change*100),
	)

	sm.notifier.SendAlert(notifier.Alert{
		Category: notifier.CategoryVolumeSpike,
		Market: notifier.MarketRef{
			ID:       market.ID,
			Question: market.Question,
			Slug:     market.Slug,
		},
		Spike: &notifier.SpikeDetails{
			PastVolume:    past,
			CurrentVolume: current,
			ChangePct:     change * 100,
			ContextTrades: sm.contextTrades(now, trades),
		},
		Timestamp: now,
	})
}

// contextTrades attaches the most recent in-window large trades to a spike
// alert. Trades arrive most recent first, so the first qualifying ones win.
func (sm *SpikeMonitor) contextTrades(now time.Time, trades []polymarketapi.Trade) []notifier.ContextTrade {
	limit := sm.cfg.ContextTradeLimit
	if limit <= 0 {
		return nil
	}

	cutoff := now.Add(-sm.cfg.SpikeWindow)
	var out []notifier.ContextTrade
	for _, t := range trades {
		if t.Notional() < sm.cfg.LargeTradeMinNotional {
			continue
		}
		if time.Unix(t.Timestamp, 0).Before(cutoff) {
			continue
		}
		out = append(out, notifier.ContextTrade{
			Wallet:   t.ProxyWallet,
			Side:     t.Side,
			Notional: t.Notional(),
			Price:    t.Price,
			Outcome:  t.Outcome,
		})
		if len(out) >= limit {
			break
		}
	}
	return out
}
