package app

import (
	"context"
	"fmt"
	"polyhawk/clients/kalshiapi"
	"polyhawk/clients/notifier"
	"polyhawk/clients/polymarketapi"
	"polyhawk/config"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ArbMonitor looks for the same event priced on both Polymarket and Kalshi
// where buying YES on one venue and NO on the other costs less than a
// dollar of guaranteed payout.
type ArbMonitor struct {
	logger   *zap.Logger
	cfg      config.ArbitrageConfig
	poly     *polymarketapi.PolymarketApiClient
	kalshi   *kalshiapi.KalshiApiClient
	notifier notifier.Notifier

	mu        sync.Mutex
	lastAlert map[string]time.Time
}

func NewArbMonitor(
	logger *zap.Logger,
	cfg config.ArbitrageConfig,
	poly *polymarketapi.PolymarketApiClient,
	kalshi *kalshiapi.KalshiApiClient,
	notif notifier.Notifier,
) *ArbMonitor {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ArbMonitor{
		logger:    logger,
		cfg:       cfg,
		poly:      poly,
		kalshi:    kalshi,
		notifier:  notif,
		lastAlert: make(map[string]time.Time),
	}
}

// RunOnce fetches both venues and alerts on every matched pair whose
// cheaper hedge costs less than the threshold.
func (am *ArbMonitor) RunOnce(ctx context.Context) error {
	now := time.Now()

	polyMarkets, err := am.poly.GetTopMarketsByVolume(ctx, am.cfg.FetchLimit)
	if err != nil {
		return fmt.Errorf("fetch polymarket markets: %w", err)
	}

	kalshiMarkets, err := am.kalshi.GetMarkets(ctx, am.cfg.FetchLimit)
	if err != nil {
		return fmt.Errorf("fetch kalshi markets: %w", err)
	}

	checked, alerts := 0, 0
	for _, pm := range polyMarkets {
		polyWords := titleWords(pm.Question)
		if len(polyWords) == 0 {
			continue
		}

		for _, km := range kalshiMarkets {
			if sharedWords(polyWords, titleWords(km.Title)) < am.cfg.MinSharedWords {
				continue
			}
			checked++
			if am.checkPair(now, pm, km) {
				alerts++
			}
		}
	}

	am.logger.Info("arbitrage cycle complete",
		zap.Int("polymarketMarkets", len(polyMarkets)),
		zap.Int("kalshiMarkets", len(kalshiMarkets)),
		zap.Int("pairsChecked", checked),
		zap.Int("alerts", alerts),
	)
	return nil
}

// checkPair prices both hedge directions for a matched pair and alerts on
// the cheaper one if it clears the threshold. Reports whether it alerted.
func (am *ArbMonitor) checkPair(now time.Time, pm polymarketapi.GammaMarket, km kalshiapi.Market) bool {
	polyYes := pm.YesPrice()
	polyNo := pm.NoPrice()
	kalshiYes := km.YesAsk()
	kalshiNo := km.NoAsk()

	// A zero quote means an empty book, not a free option.
	if polyYes <= 0 || polyNo <= 0 || kalshiYes <= 0 || kalshiNo <= 0 {
		return false
	}

	// Direction 1: YES on Polymarket, NO on Kalshi.
	// Direction 2: NO on Polymarket, YES on Kalshi.
	cost1 := polyYes + kalshiNo
	cost2 := polyNo + kalshiYes

	cost := cost1
	yesVenue, noVenue := "Polymarket", "Kalshi"
	yesPrice, noPrice := polyYes, kalshiNo
	if cost2 < cost1 {
		cost = cost2
		yesVenue, noVenue = "Kalshi", "Polymarket"
		yesPrice, noPrice = kalshiYes, polyNo
	}

	if cost >= am.cfg.CostThreshold {
		return false
	}

	pairKey := fmt.Sprintf("arb:%s:%s", pm.ID, km.Ticker)
	am.mu.Lock()
	last, seen := am.lastAlert[pairKey]
	if am.cfg.AlertCooldown > 0 && seen && now.Sub(last) < am.cfg.AlertCooldown {
		am.mu.Unlock()
		return false
	}
	am.lastAlert[pairKey] = now
	am.mu.Unlock()

	spread := (1 - cost) * 100

	am.logger.Info("arbitrage opportunity",
		zap.String("polymarket", pm.Question),
		zap.String("kalshi", km.Title),
		zap.Float64("cost", cost),
		zap.Float64("spreadPct", spread),
	)

	am.notifier.SendAlert(notifier.Alert{
		Category: notifier.CategoryArbitrage,
		Market: notifier.MarketRef{
			ID:       pm.ID,
			Question: pm.Question,
			Slug:     pm.Slug,
		},
		Arbitrage: &notifier.ArbitrageDetails{
			PolymarketQuestion: pm.Question,
			KalshiTitle:        km.Title,
			BuyYesVenue:        yesVenue,
			BuyNoVenue:         noVenue,
			YesPrice:           yesPrice,
			NoPrice:            noPrice,
			TotalCost:          cost,
			SpreadPct:          spread,
		},
		Timestamp: now,
	})
	return true
}

// titleWords returns the set of lowercased words in a market title.
func titleWords(title string) map[string]struct{} {
	words := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(title)) {
		w = strings.Trim(w, ".,?!:;\"'()")
		if w != "" {
			words[w] = struct{}{}
		}
	}
	return words
}

func sharedWords(a, b map[string]struct{}) int {
	count := 0
	for w := range a {
		if _, ok := b[w]; ok {
			count++
		}
	}
	return count
}
