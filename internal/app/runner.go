package app

import (
	"context"
	"fmt"
	clts "polyhawk/clients"
	"polyhawk/clients/notifier"
	"polyhawk/clients/polymarketapi"
	"polyhawk/config"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Build info - populated from embedded VCS info at init time
var (
	BuildCommit = "dev"
	BuildTime   = "unknown"
)

func init() {
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			switch setting.Key {
			case "vcs.revision":
				if setting.Value != "" {
					BuildCommit = setting.Value
				}
			case "vcs.time":
				BuildTime = setting.Value
			}
		}
	}
}

// countingNotifier wraps the delivery notifier and counts alerts per
// category for the stats endpoints.
type countingNotifier struct {
	inner notifier.Notifier

	mu        sync.Mutex
	counts    map[notifier.Category]int
	total     int
	lastAlert time.Time
}

func newCountingNotifier(inner notifier.Notifier) *countingNotifier {
	return &countingNotifier{
		inner:  inner,
		counts: make(map[notifier.Category]int),
	}
}

func (cn *countingNotifier) SendAlert(alert notifier.Alert) {
	cn.mu.Lock()
	cn.counts[alert.Category]++
	cn.total++
	cn.lastAlert = time.Now()
	cn.mu.Unlock()

	cn.inner.SendAlert(alert)
}

func (cn *countingNotifier) Close() error {
	return cn.inner.Close()
}

func (cn *countingNotifier) snapshot() (map[notifier.Category]int, int, time.Time) {
	cn.mu.Lock()
	defer cn.mu.Unlock()

	counts := make(map[notifier.Category]int, len(cn.counts))
	for k, v := range cn.counts {
		counts[k] = v
	}
	return counts, cn.total, cn.lastAlert
}

// Runner owns every monitor and drives them on their own cadences.
type Runner struct {
	clients *clts.Clients
	cfg     *config.Config

	notifier   *countingNotifier
	history    *RollingHistory
	tradeDedup *DedupRegistry
	newsDedup  *DedupRegistry
	analyzer   *PerformanceAnalyzer

	spikeMonitor  *SpikeMonitor
	tradeMonitor  *TradeMonitor
	priceMonitor  *PriceMonitor
	arbMonitor    *ArbMonitor
	newsMonitor   *NewsMonitor
	walletMonitor *WalletMonitor
	marketScanner *MarketScanner
	statsServer   *StatsServer

	startTime time.Time

	// Latest top-markets snapshot, reused by the news cycle.
	marketsMu   sync.RWMutex
	lastMarkets []polymarketapi.GammaMarket

	cycleMu     sync.Mutex
	cycleErrors map[string]int
}

func NewRunner(clients *clts.Clients, cfg *config.Config) *Runner {
	r := &Runner{
		clients:     clients,
		cfg:         cfg,
		notifier:    newCountingNotifier(clients.Notifier),
		history:     NewRollingHistory(),
		tradeDedup:  NewDedupRegistry(cfg.Dedup.TradeHorizon),
		newsDedup:   NewDedupRegistry(cfg.Dedup.NewsHorizon),
		cycleErrors: make(map[string]int),
	}

	logger := clients.Logger
	r.analyzer = NewPerformanceAnalyzer(logger, clients.Polymarket, cfg.Wallets.HistoryLimit)
	r.spikeMonitor = NewSpikeMonitor(logger, cfg.Detection, r.history, r.tradeDedup, r.notifier)
	r.tradeMonitor = NewTradeMonitor(logger, cfg.Detection, r.tradeDedup, r.analyzer, r.notifier)
	r.priceMonitor = NewPriceMonitor(logger, cfg.Detection, r.notifier)
	r.arbMonitor = NewArbMonitor(logger, cfg.Arbitrage, clients.Polymarket, clients.Kalshi, r.notifier)
	r.newsMonitor = NewNewsMonitor(logger, cfg.News, clients.News, r.newsDedup, r.notifier)
	r.walletMonitor = NewWalletMonitor(logger, cfg.Wallets, clients.Polymarket, r.analyzer, r.notifier)
	r.marketScanner = NewMarketScanner(logger, cfg.Markets, clients.Polymarket, r.notifier)
	r.statsServer = NewStatsServer(logger, cfg.HealthServer, r)

	return r
}

// WalletMonitor exposes the tracked-wallet monitor, mostly for command
// handling.
func (r *Runner) WalletMonitor() *WalletMonitor {
	return r.walletMonitor
}

// Run starts all monitor loops and blocks until the context is canceled.
func (r *Runner) Run(ctx context.Context) error {
	r.startTime = time.Now()
	logger := r.clients.Logger

	logger.Info("starting monitors",
		zap.Int("topMarketsCount", r.cfg.Markets.TopMarketsCount),
		zap.Duration("marketPollInterval", r.cfg.Markets.PollInterval),
		zap.Duration("arbPollInterval", r.cfg.Arbitrage.PollInterval),
		zap.Duration("newsPollInterval", r.cfg.News.PollInterval),
		zap.Duration("walletPollInterval", r.cfg.Wallets.PollInterval),
		zap.Int("trackedWallets", r.walletMonitor.Count()),
		zap.Bool("newsEnabled", r.clients.News.Enabled()),
	)

	if r.cfg.HealthServer.Enabled {
		r.statsServer.Start(ctx)
	}

	go r.loop(ctx, "markets", r.cfg.Markets.PollInterval, r.marketCycle)
	go r.loop(ctx, "market-scan", r.cfg.Markets.ScanInterval, r.marketScanner.RunOnce)
	go r.loop(ctx, "news", r.cfg.News.PollInterval, r.newsCycle)
	go r.loop(ctx, "wallets", r.cfg.Wallets.PollInterval, r.walletMonitor.RunOnce)
	go r.loop(ctx, "arbitrage", r.cfg.Arbitrage.PollInterval, r.arbMonitor.RunOnce)
	go r.loop(ctx, "sweep", r.cfg.Dedup.SweepInterval, r.sweepCycle)

	<-ctx.Done()
	logger.Info("runner shutting down")

	if r.cfg.HealthServer.Enabled {
		r.statsServer.Stop()
	}
	return nil
}

// loop runs fn immediately and then on every tick. A failing cycle is
// logged and counted, never fatal.
func (r *Runner) loop(ctx context.Context, name string, interval time.Duration, fn func(context.Context) error) {
	run := func() {
		if err := fn(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			r.cycleMu.Lock()
			r.cycleErrors[name]++
			r.cycleMu.Unlock()
			r.clients.Logger.Warn("cycle failed",
				zap.String("task", name),
				zap.Error(err),
			)
		}
	}

	run()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			run()
		}
	}
}

// marketCycle fetches the top markets and their recent trades once, then
// feeds the snapshot through the spike, large-trade and price detectors.
func (r *Runner) marketCycle(ctx context.Context) error {
	now := time.Now()

	markets, err := r.clients.Polymarket.GetTopMarketsByVolume(ctx, r.cfg.Markets.TopMarketsCount)
	if err != nil {
		return fmt.Errorf("fetch top markets: %w", err)
	}
	if len(markets) == 0 {
		return fmt.Errorf("no active markets returned")
	}

	conditionIDs := make([]string, 0, len(markets))
	for _, m := range markets {
		if m.ConditionID != "" {
			conditionIDs = append(conditionIDs, m.ConditionID)
		}
	}

	// One trades call covers every monitored market. A failure here
	// degrades the cycle to price and volume detection only.
	tradesByMarket := make(map[string][]polymarketapi.Trade)
	trades, err := r.clients.Polymarket.GetTrades(ctx, conditionIDs, r.cfg.Markets.TradeFetchLimit)
	if err != nil {
		r.clients.Logger.Warn("trade fetch failed, running cycle without trades", zap.Error(err))
	} else {
		for _, t := range trades {
			tradesByMarket[t.ConditionID] = append(tradesByMarket[t.ConditionID], t)
		}
	}

	for _, m := range markets {
		marketTrades := tradesByMarket[m.ConditionID]
		r.spikeMonitor.Process(now, m, marketTrades)
		r.tradeMonitor.Process(ctx, now, m, marketTrades)
		r.priceMonitor.Process(now, m)
	}

	r.marketsMu.Lock()
	r.lastMarkets = markets
	r.marketsMu.Unlock()

	return nil
}

// newsCycle evaluates news against the latest market snapshot. The first
// news cycle can run before the first market cycle finishes; it simply
// sees no markets.
func (r *Runner) newsCycle(ctx context.Context) error {
	r.marketsMu.RLock()
	markets := r.lastMarkets
	r.marketsMu.RUnlock()

	if len(markets) == 0 {
		return nil
	}
	return r.newsMonitor.RunOnce(ctx, markets)
}

// sweepCycle prunes every time-bounded structure.
func (r *Runner) sweepCycle(context.Context) error {
	now := time.Now()

	tradeRemoved := r.tradeDedup.Sweep(now)
	newsRemoved := r.newsDedup.Sweep(now)
	r.history.Sweep(now)
	r.marketScanner.Sweep(now)
	r.analyzer.Sweep(now)

	r.clients.Logger.Debug("sweep complete",
		zap.Int("tradeKeysRemoved", tradeRemoved),
		zap.Int("newsKeysRemoved", newsRemoved),
		zap.Int("historyEntities", r.history.EntityCount()),
		zap.Int("scannerSeen", r.marketScanner.SeenCount()),
	)
	return nil
}

// ServiceStats holds service counters for the stats endpoints.
type ServiceStats struct {
	Build struct {
		Commit string `json:"commit"`
		Time   string `json:"time,omitempty"`
	} `json:"build"`

	StartTime string `json:"start_time"`
	Uptime    string `json:"uptime"`
	UptimeSec int64  `json:"uptime_seconds"`

	Alerts struct {
		Total       int            `json:"total"`
		ByCategory  map[string]int `json:"by_category"`
		LastAlertAt string         `json:"last_alert_at,omitempty"`
	} `json:"alerts"`

	Monitors struct {
		MonitoredMarkets int `json:"monitored_markets"`
		PriceBaselines   int `json:"price_baselines"`
		HistoryEntities  int `json:"history_entities"`
		TradeDedupKeys   int `json:"trade_dedup_keys"`
		NewsDedupKeys    int `json:"news_dedup_keys"`
		ScannerSeen      int `json:"scanner_seen"`
		TrackedWallets   int `json:"tracked_wallets"`
	} `json:"monitors"`

	CycleErrors map[string]int `json:"cycle_errors,omitempty"`

	Notifications struct {
		TelegramEnabled bool `json:"telegram_enabled"`
		NewsEnabled     bool `json:"news_enabled"`
	} `json:"notifications"`
}

// Stats returns current service counters.
func (r *Runner) Stats() ServiceStats {
	var stats ServiceStats

	stats.Build.Commit = BuildCommit
	stats.Build.Time = BuildTime

	stats.StartTime = r.startTime.UTC().Format(time.RFC3339)
	uptime := time.Since(r.startTime)
	stats.Uptime = uptime.Round(time.Second).String()
	stats.UptimeSec = int64(uptime.Seconds())

	counts, total, lastAlert := r.notifier.snapshot()
	stats.Alerts.Total = total
	stats.Alerts.ByCategory = make(map[string]int, len(counts))
	for cat, n := range counts {
		stats.Alerts.ByCategory[string(cat)] = n
	}
	if !lastAlert.IsZero() {
		stats.Alerts.LastAlertAt = lastAlert.UTC().Format(time.RFC3339)
	}

	r.marketsMu.RLock()
	stats.Monitors.MonitoredMarkets = len(r.lastMarkets)
	r.marketsMu.RUnlock()
	stats.Monitors.PriceBaselines = r.priceMonitor.TrackedMarkets()
	stats.Monitors.HistoryEntities = r.history.EntityCount()
	stats.Monitors.TradeDedupKeys = r.tradeDedup.Size()
	stats.Monitors.NewsDedupKeys = r.newsDedup.Size()
	stats.Monitors.ScannerSeen = r.marketScanner.SeenCount()
	stats.Monitors.TrackedWallets = r.walletMonitor.Count()

	r.cycleMu.Lock()
	if len(r.cycleErrors) > 0 {
		stats.CycleErrors = make(map[string]int, len(r.cycleErrors))
		for k, v := range r.cycleErrors {
			stats.CycleErrors[k] = v
		}
	}
	r.cycleMu.Unlock()

	stats.Notifications.TelegramEnabled = r.clients.Telegram.Enabled()
	stats.Notifications.NewsEnabled = r.clients.News.Enabled()

	return stats
}

// ---- telegram.CommandHandler ----

// TrackWallet starts tracking a wallet.
func (r *Runner) TrackWallet(wallet string) bool {
	return r.walletMonitor.Add(wallet)
}

// UntrackWallet stops tracking a wallet.
func (r *Runner) UntrackWallet(wallet string) bool {
	return r.walletMonitor.Remove(wallet)
}

// TrackedWallets lists tracked wallets.
func (r *Runner) TrackedWallets() []string {
	return r.walletMonitor.List()
}

// PortfolioText renders a wallet's positions and record for the bot.
func (r *Runner) PortfolioText(ctx context.Context, wallet string) (string, error) {
	summary, err := r.walletMonitor.Portfolio(ctx, wallet)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "*Portfolio %s*\n", shortID(summary.Wallet))
	fmt.Fprintf(&sb, "Open positions: %d\n", summary.PositionCount)
	fmt.Fprintf(&sb, "Value: $%.2f (PnL %+.2f)\n", summary.TotalValue, summary.TotalPnL)

	shown := summary.Positions
	if len(shown) > 5 {
		shown = shown[:5]
	}
	for _, p := range shown {
		fmt.Fprintf(&sb, "• %s [%s]: %.0f @ $%.3f, now $%.2f\n",
			nz(p.Title, shortID(p.ConditionID)), p.Outcome, p.Size, p.AvgPrice, p.CurrentValue)
	}
	if len(summary.Positions) > len(shown) {
		fmt.Fprintf(&sb, "… and %d more\n", len(summary.Positions)-len(shown))
	}

	if perf := summary.Performance; perf != nil && perf.TradeCount > 0 {
		fmt.Fprintf(&sb, "\n*Track record* (%d trades)\n", perf.TradeCount)
		fmt.Fprintf(&sb, "Hit rate %.1f%%, PnL %+.0f, ROI %.1f%%, consistency %.1f\n",
			perf.HitRate, perf.TotalPnL, perf.ROI, perf.Consistency)
	}
	return sb.String(), nil
}

// StatsText renders service counters for the bot.
func (r *Runner) StatsText() string {
	stats := r.Stats()

	var sb strings.Builder
	fmt.Fprintf(&sb, "*polyhawk stats*\n")
	fmt.Fprintf(&sb, "Uptime: %s\n", stats.Uptime)
	fmt.Fprintf(&sb, "Alerts sent: %d\n", stats.Alerts.Total)
	for _, cat := range notifier.Categories() {
		if n := stats.Alerts.ByCategory[string(cat)]; n > 0 {
			fmt.Fprintf(&sb, "  %s: %d\n", cat, n)
		}
	}
	fmt.Fprintf(&sb, "Monitored markets: %d\n", stats.Monitors.MonitoredMarkets)
	fmt.Fprintf(&sb, "Tracked wallets: %d\n", stats.Monitors.TrackedWallets)
	return sb.String()
}
