package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	// Environment
	IsProd bool `json:"is_prod"`

	// Telegram
	Telegram TelegramConfig `json:"telegram"`

	// Discord
	Discord DiscordConfig `json:"discord"`

	// Market snapshot polling
	Markets MarketsConfig `json:"markets"`

	// Detection thresholds (spike / large trade / price move)
	Detection DetectionConfig `json:"detection"`

	// Cross-venue arbitrage
	Arbitrage ArbitrageConfig `json:"arbitrage"`

	// News relevance engine
	News NewsConfig `json:"news"`

	// Tracked wallets
	Wallets WalletsConfig `json:"wallets"`

	// Dedup registry sweeping
	Dedup DedupConfig `json:"dedup"`

	// Polymarket API
	Polymarket PolymarketConfig `json:"polymarket"`

	// Kalshi API
	Kalshi KalshiConfig `json:"kalshi"`

	// Health server
	HealthServer HealthServerConfig `json:"health_server"`
}

// TelegramConfig holds Telegram-related configuration.
type TelegramConfig struct {
	BotToken   string `json:"-"` // Excluded - env var only
	ProdChatID string `json:"prod_chat_id"`
	BetaChatID string `json:"beta_chat_id"`
}

// DiscordConfig holds Discord-related configuration.
type DiscordConfig struct {
	BotToken      string `json:"-"` // Excluded - env var only
	ProdChannelID string `json:"prod_channel_id"`
	BetaChannelID string `json:"beta_channel_id"`
}

// MarketsConfig holds market snapshot polling configuration.
type MarketsConfig struct {
	PollInterval    time.Duration `json:"poll_interval"`     // Market scan cycle (spike/price/large-trade)
	TopMarketsCount int           `json:"top_markets_count"` // Markets monitored per cycle
	TradeFetchLimit int           `json:"trade_fetch_limit"` // Trades fetched per market per cycle

	// New-listing scan
	ScanInterval     time.Duration `json:"scan_interval"`      // New-market scan cycle
	ScanLimit        int           `json:"scan_limit"`         // Markets fetched per scan
	MinVolume        float64       `json:"min_volume"`         // 24h volume floor for a listing alert
	MinLiquidity     float64       `json:"min_liquidity"`      // Liquidity floor for a listing alert
	NewListingWindow time.Duration `json:"new_listing_window"` // Max age to count as "new"
	TrendingVolume   float64       `json:"trending_volume"`    // Volume above this while under TrendingAge = trending
	TrendingAge      time.Duration `json:"trending_age"`
}

// DetectionConfig holds spike, large-trade and price-move thresholds.
type DetectionConfig struct {
	SpikeThreshold float64       `json:"spike_threshold"` // Fractional volume change (0.10 = 10%)
	SpikeWindow    time.Duration `json:"spike_window"`    // Lookback and dedup bucket size

	LargeTradeMinNotional float64       `json:"large_trade_min_notional"`
	LargeTradeMaxAge      time.Duration `json:"large_trade_max_age"`
	Tier2Notional         float64       `json:"tier2_notional"`
	Tier3Notional         float64       `json:"tier3_notional"`
	ContextTradeLimit     int           `json:"context_trade_limit"` // Context trades attached to a spike alert

	PriceMoveThreshold float64       `json:"price_move_threshold"` // Fractional price change (0.05 = 5%)
	PriceAlertCooldown time.Duration `json:"price_alert_cooldown"` // Per-market re-alert cooldown, 0 disables
}

// ArbitrageConfig holds cross-venue arbitrage matching configuration.
type ArbitrageConfig struct {
	PollInterval   time.Duration `json:"poll_interval"`
	CostThreshold  float64       `json:"cost_threshold"`   // Combined hedge cost below this alerts
	MinSharedWords int           `json:"min_shared_words"` // Title words shared to treat markets as the same event
	AlertCooldown  time.Duration `json:"alert_cooldown"`   // Per-pair re-alert cooldown, 0 = every cycle
	FetchLimit     int           `json:"fetch_limit"`
}

// NewsConfig holds news relevance engine configuration.
type NewsConfig struct {
	APIKey        string        `json:"-"` // Excluded - env var only
	PollInterval  time.Duration `json:"poll_interval"`
	MinScore      int           `json:"min_score"`       // Articles scoring at or below this are dropped
	MaxPerMarket  int           `json:"max_per_market"`  // Top-N articles per market per cycle
	PageSize      int           `json:"page_size"`       // Articles requested per search
	QueryKeywords int           `json:"query_keywords"`  // Keywords joined into the search query
	MarketsLimit  int           `json:"markets_limit"`   // Markets evaluated per cycle
}

// WalletsConfig holds tracked-wallet configuration.
type WalletsConfig struct {
	Tracked      []string      `json:"tracked"` // Wallet addresses tracked at startup
	PollInterval time.Duration `json:"poll_interval"`
	DustFloor    float64       `json:"dust_floor"`    // Trades below this notional never alert
	FetchLimit   int           `json:"fetch_limit"`   // Trades fetched per role per cycle
	HistoryLimit int           `json:"history_limit"` // Trades fetched for performance analysis
}

// DedupConfig holds dedup registry sweep configuration.
type DedupConfig struct {
	SweepInterval time.Duration `json:"sweep_interval"`
	TradeHorizon  time.Duration `json:"trade_horizon"` // Spike and large-trade keys
	NewsHorizon   time.Duration `json:"news_horizon"`  // News keys (long-lived by design)
}

// PolymarketConfig holds Polymarket API configuration.
type PolymarketConfig struct {
	GammaAPIURL string `json:"gamma_api_url"`
	DataAPIURL  string `json:"data_api_url"`
}

// KalshiConfig holds Kalshi API configuration.
type KalshiConfig struct {
	BaseURL string `json:"base_url"`
}

// HealthServerConfig holds health check server configuration.
type HealthServerConfig struct {
	Enabled bool `json:"enabled"`
	Port    int  `json:"port"`
}

// Clone creates a deep copy of the config.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	clone := *c
	if c.Wallets.Tracked != nil {
		clone.Wallets.Tracked = make([]string, len(c.Wallets.Tracked))
		copy(clone.Wallets.Tracked, c.Wallets.Tracked)
	}
	return &clone
}

// Defaults returns a config with hardcoded default values.
func Defaults() *Config {
	return &Config{
		IsProd:   false,
		Telegram: TelegramConfig{},
		Discord:  DiscordConfig{},
		Markets: MarketsConfig{
			PollInterval:     1 * time.Minute,
			TopMarketsCount:  20,
			TradeFetchLimit:  100,
			ScanInterval:     5 * time.Minute,
			ScanLimit:        100,
			MinVolume:        1000,
			MinLiquidity:     500,
			NewListingWindow: 6 * time.Hour,
			TrendingVolume:   10000,
			TrendingAge:      1 * time.Hour,
		},
		Detection: DetectionConfig{
			SpikeThreshold:        0.10,
			SpikeWindow:           10 * time.Minute,
			LargeTradeMinNotional: 5000,
			LargeTradeMaxAge:      10 * time.Minute,
			Tier2Notional:         20000,
			Tier3Notional:         50000,
			ContextTradeLimit:     3,
			PriceMoveThreshold:    0.05,
			PriceAlertCooldown:    10 * time.Minute,
		},
		Arbitrage: ArbitrageConfig{
			PollInterval:   10 * time.Minute,
			CostThreshold:  0.98,
			MinSharedWords: 3,
			AlertCooldown:  30 * time.Minute,
			FetchLimit:     100,
		},
		News: NewsConfig{
			PollInterval:  5 * time.Minute,
			MinScore:      40,
			MaxPerMarket:  3,
			PageSize:      20,
			QueryKeywords: 5,
			MarketsLimit:  20,
		},
		Wallets: WalletsConfig{
			PollInterval: 10 * time.Minute,
			DustFloor:    10,
			FetchLimit:   50,
			HistoryLimit: 500,
		},
		Dedup: DedupConfig{
			SweepInterval: 10 * time.Minute,
			TradeHorizon:  10 * time.Minute,
			NewsHorizon:   7 * 24 * time.Hour,
		},
		Polymarket: PolymarketConfig{
			GammaAPIURL: "https://gamma-api.polymarket.com",
			DataAPIURL:  "https://data-api.polymarket.com",
		},
		Kalshi: KalshiConfig{
			BaseURL: "https://api.elections.kalshi.com/trade-api/v2",
		},
		HealthServer: HealthServerConfig{
			Enabled: true,
			Port:    8080,
		},
	}
}

// Load loads configuration from environment variables with defaults.
// A .env file in the working directory is applied first when present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		IsProd: envBool("STAGE", "PROD"),

		Telegram: TelegramConfig{
			BotToken:   envString("TELEGRAM_BOT_KEY", ""),
			ProdChatID: envString("TELEGRAM_PROD_CHAT_ID", ""),
			BetaChatID: envString("TELEGRAM_BETA_CHAT_ID", ""),
		},

		Discord: DiscordConfig{
			BotToken:      envString("DISCORD_BOT_TOKEN", ""),
			ProdChannelID: envString("DISCORD_PROD_CHANNEL_ID", ""),
			BetaChannelID: envString("DISCORD_BETA_CHANNEL_ID", ""),
		},

		Markets: MarketsConfig{
			PollInterval:     envDuration("MARKET_POLL_INTERVAL", 1*time.Minute),
			TopMarketsCount:  envInt("TOP_MARKETS_COUNT", 20),
			TradeFetchLimit:  envInt("TRADE_FETCH_LIMIT", 100),
			ScanInterval:     envDuration("MARKET_SCAN_INTERVAL", 5*time.Minute),
			ScanLimit:        envInt("MARKET_SCAN_LIMIT", 100),
			MinVolume:        envFloat("MARKET_MIN_VOLUME", 1000),
			MinLiquidity:     envFloat("MARKET_MIN_LIQUIDITY", 500),
			NewListingWindow: envDuration("NEW_LISTING_WINDOW", 6*time.Hour),
			TrendingVolume:   envFloat("TRENDING_VOLUME", 10000),
			TrendingAge:      envDuration("TRENDING_AGE", 1*time.Hour),
		},

		Detection: DetectionConfig{
			SpikeThreshold:        envFloat("SPIKE_THRESHOLD", 0.10),
			SpikeWindow:           envDuration("SPIKE_WINDOW", 10*time.Minute),
			LargeTradeMinNotional: envFloat("LARGE_TRADE_MIN_NOTIONAL", 5000),
			LargeTradeMaxAge:      envDuration("LARGE_TRADE_MAX_AGE", 10*time.Minute),
			Tier2Notional:         envFloat("LARGE_TRADE_TIER2_NOTIONAL", 20000),
			Tier3Notional:         envFloat("LARGE_TRADE_TIER3_NOTIONAL", 50000),
			ContextTradeLimit:     envInt("SPIKE_CONTEXT_TRADE_LIMIT", 3),
			PriceMoveThreshold:    envFloat("PRICE_MOVE_THRESHOLD", 0.05),
			PriceAlertCooldown:    envDuration("PRICE_ALERT_COOLDOWN", 10*time.Minute),
		},

		Arbitrage: ArbitrageConfig{
			PollInterval:   envDuration("ARB_POLL_INTERVAL", 10*time.Minute),
			CostThreshold:  envFloat("ARB_COST_THRESHOLD", 0.98),
			MinSharedWords: envInt("ARB_MIN_SHARED_WORDS", 3),
			AlertCooldown:  envDuration("ARB_ALERT_COOLDOWN", 30*time.Minute),
			FetchLimit:     envInt("ARB_FETCH_LIMIT", 100),
		},

		News: NewsConfig{
			APIKey:        envString("NEWS_API_KEY", ""),
			PollInterval:  envDuration("NEWS_POLL_INTERVAL", 5*time.Minute),
			MinScore:      envInt("NEWS_MIN_SCORE", 40),
			MaxPerMarket:  envInt("NEWS_MAX_PER_MARKET", 3),
			PageSize:      envInt("NEWS_PAGE_SIZE", 20),
			QueryKeywords: envInt("NEWS_QUERY_KEYWORDS", 5),
			MarketsLimit:  envInt("NEWS_MARKETS_LIMIT", 20),
		},

		Wallets: WalletsConfig{
			Tracked:      normalizeWallets(envStringSlice("TRACKED_WALLETS")),
			PollInterval: envDuration("WALLET_POLL_INTERVAL", 10*time.Minute),
			DustFloor:    envFloat("WALLET_DUST_FLOOR", 10),
			FetchLimit:   envInt("WALLET_FETCH_LIMIT", 50),
			HistoryLimit: envInt("WALLET_HISTORY_LIMIT", 500),
		},

		Dedup: DedupConfig{
			SweepInterval: envDuration("DEDUP_SWEEP_INTERVAL", 10*time.Minute),
			TradeHorizon:  envDuration("DEDUP_TRADE_HORIZON", 10*time.Minute),
			NewsHorizon:   envDuration("DEDUP_NEWS_HORIZON", 7*24*time.Hour),
		},

		Polymarket: PolymarketConfig{
			GammaAPIURL: envString("POLYMARKET_GAMMA_API_URL", "https://gamma-api.polymarket.com"),
			DataAPIURL:  envString("POLYMARKET_DATA_API_URL", "https://data-api.polymarket.com"),
		},

		Kalshi: KalshiConfig{
			BaseURL: envString("KALSHI_API_URL", "https://api.elections.kalshi.com/trade-api/v2"),
		},

		HealthServer: HealthServerConfig{
			Enabled: envBoolDefault("HEALTH_SERVER_ENABLED", true),
			Port:    envInt("HEALTH_SERVER_PORT", 8080),
		},
	}
}

// Helper functions for parsing environment variables

func envString(key, defaultVal string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func envFloat(key string, defaultVal float64) float64 {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}

func envBool(key, trueValue string) bool {
	return strings.EqualFold(strings.TrimSpace(os.Getenv(key)), trueValue)
}

func envBoolDefault(key string, defaultVal bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultVal
	}
	return strings.EqualFold(v, "true") || strings.EqualFold(v, "1") || strings.EqualFold(v, "yes")
}

func envStringSlice(key string) []string {
	val := os.Getenv(key)
	if val == "" {
		return nil
	}
	parts := strings.Split(val, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

func normalizeWallets(wallets []string) []string {
	if wallets == nil {
		return nil
	}
	result := make([]string, len(wallets))
	for i, w := range wallets {
		result[i] = strings.ToLower(w)
	}
	return result
}
