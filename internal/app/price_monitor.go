package app

import (
	"polyhawk/clients/notifier"
	"polyhawk/clients/polymarketapi"
	"polyhawk/config"
	"sync"
	"time"

	"go.uber.org/zap"
)

// minPriceDenominator keeps relative change finite when the reference
// price is at or near zero.
const minPriceDenominator = 0.001

// PriceMonitor alerts when a market's YES price moves sharply between two
// consecutive snapshots.
type PriceMonitor struct {
	logger   *zap.Logger
	cfg      config.DetectionConfig
	notifier notifier.Notifier

	mu        sync.Mutex
	lastPrice map[string]float64
	lastAlert map[string]time.Time
}

func NewPriceMonitor(logger *zap.Logger, cfg config.DetectionConfig, notif notifier.Notifier) *PriceMonitor {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &PriceMonitor{
		logger:    logger,
		cfg:       cfg,
		notifier:  notif,
		lastPrice: make(map[string]float64),
		lastAlert: make(map[string]time.Time),
	}
}

// Process compares the market's price against the previous snapshot. The
// previous price is always replaced, including when the move alerts or the
// market is in cooldown, so the next comparison uses a fresh baseline.
func (pm *PriceMonitor) Process(now time.Time, market polymarketapi.GammaMarket) {
	price := market.YesPrice()

	pm.mu.Lock()
	last, seen := pm.lastPrice[market.ID]
	pm.lastPrice[market.ID] = price
	lastAlert, alerted := pm.lastAlert[market.ID]
	pm.mu.Unlock()

	if !seen {
		return
	}

	denom := last
	if denom < minPriceDenominator {
		denom = minPriceDenominator
	}
	change := (price - last) / denom

	if change < pm.cfg.PriceMoveThreshold && change > -pm.cfg.PriceMoveThreshold {
		return
	}

	if pm.cfg.PriceAlertCooldown > 0 && alerted && now.Sub(lastAlert) < pm.cfg.PriceAlertCooldown {
		return
	}

	pm.mu.Lock()
	pm.lastAlert[market.ID] = now
	pm.mu.Unlock()

	direction := "UP"
	if change < 0 {
		direction = "DOWN"
	}

	pm.logger.Info("price move detected",
		zap.String("market", shortID(market.ID)),
		zap.String("question", market.Question),
		zap.Float64("oldPrice", last),
		zap.Float64("newPrice", price),
		zap.Float64("changePct", change*100),
		zap.String("direction", direction),
	)

	pm.notifier.SendAlert(notifier.Alert{
		Category: notifier.CategoryPriceMove,
		Market: notifier.MarketRef{
			ID:       market.ID,
			Question: market.Question,
			Slug:     market.Slug,
		},
		PriceMove: &notifier.PriceMoveDetails{
			OldPrice:  last,
			NewPrice:  price,
			ChangePct: change * 100,
			Direction: direction,
			Volume24h: market.Volume24hr,
		},
		Timestamp: now,
	})
}

// TrackedMarkets returns the number of markets with a stored baseline.
func (pm *PriceMonitor) TrackedMarkets() int {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	return len(pm.lastPrice)
}
