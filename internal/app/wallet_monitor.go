package app

import (
	"context"
	"polyhawk/clients/notifier"
	"polyhawk/clients/polymarketapi"
	"polyhawk/config"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// WalletMonitor follows a set of wallets and alerts on every trade they
// make above the dust floor. Each wallet carries a timestamp cursor so
// only trades newer than the last cycle alert.
type WalletMonitor struct {
	logger    *zap.Logger
	cfg       config.WalletsConfig
	apiClient *polymarketapi.PolymarketApiClient
	analyzer  *PerformanceAnalyzer
	notifier  notifier.Notifier

	mu      sync.Mutex
	cursors map[string]int64
}

func NewWalletMonitor(
	logger *zap.Logger,
	cfg config.WalletsConfig,
	apiClient *polymarketapi.PolymarketApiClient,
	analyzer *PerformanceAnalyzer,
	notif notifier.Notifier,
) *WalletMonitor {
	if logger == nil {
		logger = zap.NewNop()
	}

	wm := &WalletMonitor{
		logger:    logger,
		cfg:       cfg,
		apiClient: apiClient,
		analyzer:  analyzer,
		notifier:  notif,
		cursors:   make(map[string]int64),
	}

	for _, w := range cfg.Tracked {
		wm.Add(w)
	}
	return wm
}

// Add starts tracking a wallet. The cursor starts at now so only trades
// made after tracking began alert. Returns false if already tracked.
func (wm *WalletMonitor) Add(wallet string) bool {
	wallet = strings.ToLower(strings.TrimSpace(wallet))
	if wallet == "" {
		return false
	}

	wm.mu.Lock()
	defer wm.mu.Unlock()
	if _, ok := wm.cursors[wallet]; ok {
		return false
	}
	wm.cursors[wallet] = time.Now().Unix()
	wm.logger.Info("tracking wallet", zap.String("wallet", shortID(wallet)))
	return true
}

// Remove stops tracking a wallet. Returns false if it was not tracked.
func (wm *WalletMonitor) Remove(wallet string) bool {
	wallet = strings.ToLower(strings.TrimSpace(wallet))

	wm.mu.Lock()
	defer wm.mu.Unlock()
	if _, ok := wm.cursors[wallet]; !ok {
		return false
	}
	delete(wm.cursors, wallet)
	wm.logger.Info("untracked wallet", zap.String("wallet", shortID(wallet)))
	return true
}

// List returns the tracked wallets, sorted.
func (wm *WalletMonitor) List() []string {
	wm.mu.Lock()
	defer wm.mu.Unlock()

	wallets := make([]string, 0, len(wm.cursors))
	for w := range wm.cursors {
		wallets = append(wallets, w)
	}
	sort.Strings(wallets)
	return wallets
}

// Count returns the number of tracked wallets.
func (wm *WalletMonitor) Count() int {
	wm.mu.Lock()
	defer wm.mu.Unlock()
	return len(wm.cursors)
}

// RunOnce polls every tracked wallet for fresh trades. Fetch failures for
// one wallet never block the others.
func (wm *WalletMonitor) RunOnce(ctx context.Context) error {
	for _, wallet := range wm.List() {
		wm.pollWallet(ctx, wallet)
	}
	return nil
}

func (wm *WalletMonitor) pollWallet(ctx context.Context, wallet string) {
	wm.mu.Lock()
	cursor, tracked := wm.cursors[wallet]
	wm.mu.Unlock()
	if !tracked {
		return
	}

	// A wallet appears as maker on some fills and taker on others, so the
	// full flow is the union of both roles.
	var trades []polymarketapi.UserTrade
	for _, role := range []polymarketapi.WalletRole{polymarketapi.RoleMaker, polymarketapi.RoleTaker} {
		roleTrades, err := wm.apiClient.GetWalletTrades(ctx, wallet, role, wm.cfg.FetchLimit)
		if err != nil {
			wm.logger.Warn("wallet trade fetch failed",
				zap.String("wallet", shortID(wallet)),
				zap.String("role", string(role)),
				zap.Error(err),
			)
			continue
		}
		trades = append(trades, roleTrades...)
	}

	seen := make(map[string]struct{})
	maxTs := cursor
	alerts := 0
	for _, t := range trades {
		if t.Timestamp <= cursor {
			continue
		}
		if t.Timestamp > maxTs {
			maxTs = t.Timestamp
		}
		if t.Notional() < wm.cfg.DustFloor {
			continue
		}

		// The same fill can show up under both roles.
		key := t.TransactionHash + ":" + t.Outcome
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		wm.sendAlert(ctx, wallet, t)
		alerts++
	}

	wm.mu.Lock()
	if _, still := wm.cursors[wallet]; still {
		wm.cursors[wallet] = maxTs
	}
	wm.mu.Unlock()

	if alerts > 0 {
		wm.logger.Info("tracked wallet activity",
			zap.String("wallet", shortID(wallet)),
			zap.Int("alerts", alerts),
		)
	}
}

func (wm *WalletMonitor) sendAlert(ctx context.Context, wallet string, t polymarketapi.UserTrade) {
	var perf *notifier.PerformanceSummary
	if wm.analyzer != nil {
		if wp, err := wm.analyzer.Analyze(ctx, wallet); err != nil {
			wm.logger.Warn("performance lookup failed",
				zap.String("wallet", shortID(wallet)),
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

	wm.notifier.SendAlert(notifier.Alert{
		Category: notifier.CategoryWalletTrade,
		Market: notifier.MarketRef{
			ID:       t.ConditionID,
			Question: nz(t.Title, t.ConditionID),
		},
		Trade: &notifier.TradeDetails{
			Wallet:      wallet,
			Side:        t.Side,
			Notional:    t.Notional(),
			Price:       t.Price,
			Outcome:     t.Outcome,
			Tier:        1,
			Category:    CategorizeMarket(t.Title),
			Performance: perf,
		},
		Timestamp: time.Unix(t.Timestamp, 0),
	})
}

// PortfolioSummary describes a wallet's open positions plus its analyzed
// trading record.
type PortfolioSummary struct {
	Wallet        string                   `json:"wallet"`
	PositionCount int                      `json:"position_count"`
	TotalValue    float64                  `json:"total_value"`
	TotalPnL      float64                  `json:"total_pnl"`
	Positions     []polymarketapi.Position `json:"positions"`
	Performance   *WalletPerformance       `json:"performance,omitempty"`
}

// Portfolio fetches open positions and performance for any wallet, tracked
// or not. A performance fetch failure degrades to positions only.
func (wm *WalletMonitor) Portfolio(ctx context.Context, wallet string) (*PortfolioSummary, error) {
	wallet = strings.ToLower(strings.TrimSpace(wallet))

	positions, err := wm.apiClient.GetPositions(ctx, wallet, "", 0)
	if err != nil {
		return nil, err
	}

	summary := &PortfolioSummary{
		Wallet:        wallet,
		PositionCount: len(positions),
		Positions:     positions,
	}
	for _, p := range positions {
		summary.TotalValue += p.CurrentValue
		summary.TotalPnL += p.CashPnl
	}

	if wm.analyzer != nil {
		if perf, err := wm.analyzer.Analyze(ctx, wallet); err != nil {
			wm.logger.Warn("portfolio performance lookup failed",
				zap.String("wallet", shortID(wallet)),
				zap.Error(err),
			)
		} else {
			summary.Performance = perf
		}
	}

	return summary, nil
}
