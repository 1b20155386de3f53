package config

import (
	"fmt"
	"time"
)

// ValidationError represents a validation error for a specific field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationResult holds the result of config validation.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// Validate checks the config for invalid values.
func (c *Config) Validate() ValidationResult {
	var errors []ValidationError

	// Markets validation
	errors = append(errors, validateMarkets(&c.Markets)...)

	// Detection validation
	errors = append(errors, validateDetection(&c.Detection)...)

	// Arbitrage validation
	errors = append(errors, validateArbitrage(&c.Arbitrage)...)

	// News validation
	errors = append(errors, validateNews(&c.News)...)

	// Wallets validation
	errors = append(errors, validateWallets(&c.Wallets)...)

	// Dedup validation
	errors = append(errors, validateDedup(&c.Dedup)...)

	// HealthServer validation
	errors = append(errors, validateHealthServer(&c.HealthServer)...)

	return ValidationResult{
		Valid:  len(errors) == 0,
		Errors: errors,
	}
}

func validateMarkets(m *MarketsConfig) []ValidationError {
	var errors []ValidationError

	if m.PollInterval < 10*time.Second {
		errors = append(errors, ValidationError{
			Field:   "markets.poll_interval",
			Message: "must be at least 10 seconds",
		})
	}

	if m.TopMarketsCount < 1 {
		errors = append(errors, ValidationError{
			Field:   "markets.top_markets_count",
			Message: "must be at least 1",
		})
	}

	if m.TradeFetchLimit < 1 {
		errors = append(errors, ValidationError{
			Field:   "markets.trade_fetch_limit",
			Message: "must be at least 1",
		})
	}

	if m.ScanInterval < 10*time.Second {
		errors = append(errors, ValidationError{
			Field:   "markets.scan_interval",
			Message: "must be at least 10 seconds",
		})
	}

	if m.ScanLimit < 1 {
		errors = append(errors, ValidationError{
			Field:   "markets.scan_limit",
			Message: "must be at least 1",
		})
	}

	if m.MinVolume < 0 {
		errors = append(errors, ValidationError{
			Field:   "markets.min_volume",
			Message: "must be non-negative",
		})
	}

	if m.MinLiquidity < 0 {
		errors = append(errors, ValidationError{
			Field:   "markets.min_liquidity",
			Message: "must be non-negative",
		})
	}

	if m.NewListingWindow < 1*time.Minute {
		errors = append(errors, ValidationError{
			Field:   "markets.new_listing_window",
			Message: "must be at least 1 minute",
		})
	}

	if m.TrendingVolume < 0 {
		errors = append(errors, ValidationError{
			Field:   "markets.trending_volume",
			Message: "must be non-negative",
		})
	}

	if m.TrendingAge < 1*time.Minute {
		errors = append(errors, ValidationError{
			Field:   "markets.trending_age",
			Message: "must be at least 1 minute",
		})
	}

	return errors
}

func validateDetection(d *DetectionConfig) []ValidationError {
	var errors []ValidationError

	if d.SpikeThreshold <= 0 || d.SpikeThreshold > 1 {
		errors = append(errors, ValidationError{
			Field:   "detection.spike_threshold",
			Message: "must be between 0 (exclusive) and 1",
		})
	}

	if d.SpikeWindow < 1*time.Minute {
		errors = append(errors, ValidationError{
			Field:   "detection.spike_window",
			Message: "must be at least 1 minute",
		})
	}

	if d.LargeTradeMinNotional < 0 {
		errors = append(errors, ValidationError{
			Field:   "detection.large_trade_min_notional",
			Message: "must be non-negative",
		})
	}

	if d.LargeTradeMaxAge < 1*time.Second {
		errors = append(errors, ValidationError{
			Field:   "detection.large_trade_max_age",
			Message: "must be at least 1 second",
		})
	}

	if d.Tier2Notional < d.LargeTradeMinNotional {
		errors = append(errors, ValidationError{
			Field:   "detection.tier2_notional",
			Message: "must be at least large_trade_min_notional",
		})
	}

	if d.Tier3Notional < d.Tier2Notional {
		errors = append(errors, ValidationError{
			Field:   "detection.tier3_notional",
			Message: "must be at least tier2_notional",
		})
	}

	if d.ContextTradeLimit < 0 {
		errors = append(errors, ValidationError{
			Field:   "detection.context_trade_limit",
			Message: "must be non-negative",
		})
	}

	if d.PriceMoveThreshold <= 0 || d.PriceMoveThreshold > 1 {
		errors = append(errors, ValidationError{
			Field:   "detection.price_move_threshold",
			Message: "must be between 0 (exclusive) and 1",
		})
	}

	if d.PriceAlertCooldown < 0 {
		errors = append(errors, ValidationError{
			Field:   "detection.price_alert_cooldown",
			Message: "must be non-negative",
		})
	}

	return errors
}

func validateArbitrage(a *ArbitrageConfig) []ValidationError {
	var errors []ValidationError

	if a.PollInterval < 10*time.Second {
		errors = append(errors, ValidationError{
			Field:   "arbitrage.poll_interval",
			Message: "must be at least 10 seconds",
		})
	}

	if a.CostThreshold <= 0 || a.CostThreshold > 2 {
		errors = append(errors, ValidationError{
			Field:   "arbitrage.cost_threshold",
			Message: "must be between 0 (exclusive) and 2",
		})
	}

	if a.MinSharedWords < 1 {
		errors = append(errors, ValidationError{
			Field:   "arbitrage.min_shared_words",
			Message: "must be at least 1",
		})
	}

	if a.AlertCooldown < 0 {
		errors = append(errors, ValidationError{
			Field:   "arbitrage.alert_cooldown",
			Message: "must be non-negative",
		})
	}

	if a.FetchLimit < 1 {
		errors = append(errors, ValidationError{
			Field:   "arbitrage.fetch_limit",
			Message: "must be at least 1",
		})
	}

	return errors
}

func validateNews(n *NewsConfig) []ValidationError {
	var errors []ValidationError

	if n.PollInterval < 10*time.Second {
		errors = append(errors, ValidationError{
			Field:   "news.poll_interval",
			Message: "must be at least 10 seconds",
		})
	}

	if n.MinScore < 0 || n.MinScore > 100 {
		errors = append(errors, ValidationError{
			Field:   "news.min_score",
			Message: "must be between 0 and 100",
		})
	}

	if n.MaxPerMarket < 1 {
		errors = append(errors, ValidationError{
			Field:   "news.max_per_market",
			Message: "must be at least 1",
		})
	}

	if n.PageSize < 1 || n.PageSize > 100 {
		errors = append(errors, ValidationError{
			Field:   "news.page_size",
			Message: "must be between 1 and 100",
		})
	}

	if n.QueryKeywords < 1 {
		errors = append(errors, ValidationError{
			Field:   "news.query_keywords",
			Message: "must be at least 1",
		})
	}

	if n.MarketsLimit < 1 {
		errors = append(errors, ValidationError{
			Field:   "news.markets_limit",
			Message: "must be at least 1",
		})
	}

	return errors
}

func validateWallets(w *WalletsConfig) []ValidationError {
	var errors []ValidationError

	if w.PollInterval < 10*time.Second {
		errors = append(errors, ValidationError{
			Field:   "wallets.poll_interval",
			Message: "must be at least 10 seconds",
		})
	}

	if w.DustFloor < 0 {
		errors = append(errors, ValidationError{
			Field:   "wallets.dust_floor",
			Message: "must be non-negative",
		})
	}

	if w.FetchLimit < 1 {
		errors = append(errors, ValidationError{
			Field:   "wallets.fetch_limit",
			Message: "must be at least 1",
		})
	}

	if w.HistoryLimit < 1 {
		errors = append(errors, ValidationError{
			Field:   "wallets.history_limit",
			Message: "must be at least 1",
		})
	}

	return errors
}

func validateDedup(d *DedupConfig) []ValidationError {
	var errors []ValidationError

	if d.SweepInterval < 10*time.Second {
		errors = append(errors, ValidationError{
			Field:   "dedup.sweep_interval",
			Message: "must be at least 10 seconds",
		})
	}

	if d.TradeHorizon < 1*time.Minute {
		errors = append(errors, ValidationError{
			Field:   "dedup.trade_horizon",
			Message: "must be at least 1 minute",
		})
	}

	if d.NewsHorizon < 1*time.Hour {
		errors = append(errors, ValidationError{
			Field:   "dedup.news_horizon",
			Message: "must be at least 1 hour",
		})
	}

	return errors
}

func validateHealthServer(hs *HealthServerConfig) []ValidationError {
	var errors []ValidationError

	if hs.Port < 1 || hs.Port > 65535 {
		errors = append(errors, ValidationError{
			Field:   "health_server.port",
			Message: fmt.Sprintf("must be between 1 and 65535, got %d", hs.Port),
		})
	}

	return errors
}
