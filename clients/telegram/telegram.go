package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"polyhawk/clients/notifier"
	"polyhawk/config"
	"strings"
	"time"

	"go.uber.org/zap"
)

const defaultAPIBaseURL = "https://api.telegram.org"

// CommandHandler serves the bot commands that need application state.
// The runner implements it.
type CommandHandler interface {
	// TrackWallet starts tracking a wallet. Returns false if already tracked.
	TrackWallet(wallet string) bool

	// UntrackWallet stops tracking a wallet. Returns false if not tracked.
	UntrackWallet(wallet string) bool

	// TrackedWallets lists currently tracked wallets.
	TrackedWallets() []string

	// PortfolioText renders a wallet's open positions and track record.
	PortfolioText(ctx context.Context, wallet string) (string, error)

	// StatsText renders service counters.
	StatsText() string
}

// TelegramClient sends alerts to Telegram subscribers and serves bot
// commands over long polling.
// Implements notifier.Notifier interface.
type TelegramClient struct {
	logger     *zap.Logger
	botToken   string
	apiBaseURL string
	client     *http.Client
	prefs      *notifier.Preferences
	commands   CommandHandler

	defaultChatID string
	offset        int64
}

func NewTelegramClient(logger *zap.Logger, cfg *config.Config, prefs *notifier.Preferences) *TelegramClient {
	return NewTelegramClientWithBaseURL(logger, cfg, prefs, defaultAPIBaseURL)
}

// NewTelegramClientWithBaseURL allows overriding the API host, used in tests.
func NewTelegramClientWithBaseURL(logger *zap.Logger, cfg *config.Config, prefs *notifier.Preferences, baseURL string) *TelegramClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	if prefs == nil {
		prefs = notifier.NewPreferences()
	}

	chatID := cfg.Telegram.BetaChatID
	if cfg.IsProd {
		chatID = cfg.Telegram.ProdChatID
	}

	token := cfg.Telegram.BotToken
	if token == "" {
		logger.Warn("TELEGRAM_BOT_KEY not set, Telegram alerts disabled")
		return &TelegramClient{
			logger:        logger,
			apiBaseURL:    baseURL,
			prefs:         prefs,
			defaultChatID: chatID,
		}
	}

	// The configured chat receives everything from the start.
	if chatID != "" {
		prefs.Subscribe(chatID)
	}

	logger.Info("telegram bot initialized",
		zap.Bool("isProd", cfg.IsProd),
		zap.String("chatID", chatID),
	)

	return &TelegramClient{
		logger:        logger,
		botToken:      token,
		apiBaseURL:    baseURL,
		client:        &http.Client{Timeout: 40 * time.Second},
		prefs:         prefs,
		defaultChatID: chatID,
	}
}

// SetCommandHandler wires the command backend. Must be called before
// RunCommandLoop.
func (tc *TelegramClient) SetCommandHandler(h CommandHandler) {
	tc.commands = h
}

// Enabled reports whether a bot token is configured.
func (tc *TelegramClient) Enabled() bool {
	return tc.botToken != ""
}

// SendAlert sends an alert to every subscriber with the category enabled.
// Implements notifier.Notifier interface.
func (tc *TelegramClient) SendAlert(alert notifier.Alert) {
	if tc.botToken == "" {
		return
	}

	recipients := tc.prefs.Recipients(alert.Category)
	if len(recipients) == 0 {
		return
	}

	message := renderAlert(alert)
	for _, chatID := range recipients {
		if err := tc.sendMessage(chatID, message); err != nil {
			tc.logger.Error("failed to send telegram message",
				zap.String("chatID", chatID),
				zap.String("category", string(alert.Category)),
				zap.Error(err),
			)
			continue
		}
	}

	tc.logger.Info("sent telegram alert",
		zap.String("category", string(alert.Category)),
		zap.String("market", alert.Market.Question),
		zap.Int("recipients", len(recipients)),
	)
}

// renderAlert builds the Markdown body for an alert.
func renderAlert(alert notifier.Alert) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("*%s*\n\n", alertTitle(alert)))

	if alert.Market.Question != "" {
		if alert.Market.Slug != "" {
			sb.WriteString(fmt.Sprintf("*Market:* [%s](https://polymarket.com/event/%s)\n",
				escapeMarkdown(alert.Market.Question), alert.Market.Slug))
		} else {
			sb.WriteString(fmt.Sprintf("*Market:* %s\n", escapeMarkdown(alert.Market.Question)))
		}
	}

	switch alert.Category {
	case notifier.CategoryVolumeSpike:
		if s := alert.Spike; s != nil {
			sb.WriteString(fmt.Sprintf("*Volume:* $%.0f → $%.0f (%+.1f%%)\n", s.PastVolume, s.CurrentVolume, s.ChangePct))
			for _, ct := range s.ContextTrades {
				sb.WriteString(fmt.Sprintf("  • %s %s $%.0f @ $%.3f (%s)\n",
					shortAddress(ct.Wallet), ct.Side, ct.Notional, ct.Price, escapeMarkdown(ct.Outcome)))
			}
		}
	case notifier.CategoryLargeTrade, notifier.CategoryWalletTrade:
		if t := alert.Trade; t != nil {
			sideEmoji := "🟢"
			if strings.ToUpper(t.Side) == "SELL" {
				sideEmoji = "🔴"
			}
			sb.WriteString(fmt.Sprintf("*Trader:* %s\n", shortAddress(t.Wallet)))
			sb.WriteString(fmt.Sprintf("*Side:* %s %s %s\n", sideEmoji, t.Side, escapeMarkdown(t.Outcome)))
			sb.WriteString(fmt.Sprintf("*Notional:* $%.2f @ $%.3f %s\n", t.Notional, t.Price, tierMarker(t.Tier)))
			if t.Performance != nil {
				sb.WriteString(fmt.Sprintf("*Track Record:* %.1f%% hit rate, %+.0f PnL, %.1f%% ROI (%d trades)\n",
					t.Performance.HitRate, t.Performance.TotalPnL, t.Performance.ROI, t.Performance.TradeCount))
			}
		}
	case notifier.CategoryPriceMove:
		if p := alert.PriceMove; p != nil {
			arrow := "📈"
			if p.Direction == "DOWN" {
				arrow = "📉"
			}
			sb.WriteString(fmt.Sprintf("*Price:* %s $%.3f → $%.3f (%+.1f%%)\n", arrow, p.OldPrice, p.NewPrice, p.ChangePct))
			if p.Volume24h > 0 {
				sb.WriteString(fmt.Sprintf("*24h Volume:* $%.0f\n", p.Volume24h))
			}
		}
	case notifier.CategoryArbitrage:
		if a := alert.Arbitrage; a != nil {
			sb.WriteString(fmt.Sprintf("*Kalshi:* %s\n", escapeMarkdown(a.KalshiTitle)))
			sb.WriteString(fmt.Sprintf("*Buy YES on %s* ($%.2f) + *NO on %s* ($%.2f)\n",
				a.BuyYesVenue, a.YesPrice, a.BuyNoVenue, a.NoPrice))
			sb.WriteString(fmt.Sprintf("*Cost:* $%.3f, *Spread:* %.1f%%\n", a.TotalCost, a.SpreadPct))
		}
	case notifier.CategoryNews:
		if n := alert.News; n != nil {
			sb.WriteString(fmt.Sprintf("*Article:* [%s](%s)\n", escapeMarkdown(n.ArticleTitle), n.ArticleURL))
			sb.WriteString(fmt.Sprintf("*Source:* %s, *Relevance:* %d/100\n", escapeMarkdown(n.SourceName), n.Score))
			if len(n.Keywords) > 0 {
				sb.WriteString(fmt.Sprintf("*Matched:* %s\n", escapeMarkdown(strings.Join(n.Keywords, ", "))))
			}
			if n.Decisive {
				sb.WriteString("⚡ *Possible resolution language detected*\n")
			}
			if len(n.Degen) > 0 {
				sb.WriteString(fmt.Sprintf("🔥 *Hype terms:* %s\n", escapeMarkdown(strings.Join(n.Degen, ", "))))
			}
		}
	case notifier.CategoryNewMarket:
		if m := alert.NewMarket; m != nil {
			sb.WriteString(fmt.Sprintf("*24h Volume:* $%.0f, *Liquidity:* $%.0f\n", m.Volume24h, m.Liquidity))
			if m.Trending {
				sb.WriteString("🔥 *Trending out of the gate*\n")
			}
		}
	}

	pst, _ := time.LoadLocation("America/Los_Angeles")
	ts := alert.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	sb.WriteString(fmt.Sprintf("\n_polyhawk • %s_", ts.In(pst).Format("1/2/2006, 3:04:05PM (MST)")))

	return sb.String()
}

func alertTitle(alert notifier.Alert) string {
	switch alert.Category {
	case notifier.CategoryVolumeSpike:
		return "📊 Volume Spike"
	case notifier.CategoryLargeTrade:
		if alert.Trade != nil && alert.Trade.Tier >= 3 {
			return "🐋 Massive Trade"
		}
		return "💰 Large Trade"
	case notifier.CategoryPriceMove:
		return "⚡ Price Move"
	case notifier.CategoryArbitrage:
		return "♻️ Cross-Venue Arbitrage"
	case notifier.CategoryWalletTrade:
		return "👀 Tracked Wallet Trade"
	case notifier.CategoryNews:
		return "📰 Market-Moving News"
	case notifier.CategoryNewMarket:
		return "🆕 New Market Listed"
	}
	return "🚨 Alert"
}

func tierMarker(tier int) string {
	switch {
	case tier >= 3:
		return "🚨🚨🚨"
	case tier == 2:
		return "🚨🚨"
	default:
		return "🚨"
	}
}

// ---- Bot command loop ----

type tgUpdate struct {
	UpdateID int64 `json:"update_id"`
	Message  *struct {
		Text string `json:"text"`
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
	} `json:"message"`
}

type tgUpdatesResponse struct {
	OK     bool       `json:"ok"`
	Result []tgUpdate `json:"result"`
}

// RunCommandLoop long-polls getUpdates and dispatches bot commands until
// the context is cancelled.
func (tc *TelegramClient) RunCommandLoop(ctx context.Context) {
	if tc.botToken == "" {
		tc.logger.Info("telegram command loop disabled, no bot token")
		return
	}

	tc.logger.Info("telegram command loop started")
	for {
		select {
		case <-ctx.Done():
			tc.logger.Info("telegram command loop stopped")
			return
		default:
		}

		updates, err := tc.getUpdates(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			tc.logger.Warn("failed to fetch telegram updates", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(5 * time.Second):
			}
			continue
		}

		for _, u := range updates {
			if u.UpdateID >= tc.offset {
				tc.offset = u.UpdateID + 1
			}
			if u.Message == nil || u.Message.Text == "" {
				continue
			}
			tc.handleCommand(ctx, fmt.Sprintf("%d", u.Message.Chat.ID), u.Message.Text)
		}
	}
}

func (tc *TelegramClient) getUpdates(ctx context.Context) ([]tgUpdate, error) {
	url := fmt.Sprintf("%s/bot%s/getUpdates?offset=%d&timeout=30", tc.apiBaseURL, tc.botToken, tc.offset)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := tc.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status=%d body=%s", resp.StatusCode, string(body))
	}

	var parsed tgUpdatesResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	if !parsed.OK {
		return nil, fmt.Errorf("telegram getUpdates not ok")
	}

	return parsed.Result, nil
}

// handleCommand dispatches a single bot command from a chat.
func (tc *TelegramClient) handleCommand(ctx context.Context, chatID, text string) {
	fields := strings.Fields(strings.TrimSpace(text))
	if len(fields) == 0 {
		return
	}
	cmd := strings.ToLower(fields[0])
	// Commands in groups arrive as /cmd@botname
	if i := strings.Index(cmd, "@"); i > 0 {
		cmd = cmd[:i]
	}
	arg := ""
	if len(fields) > 1 {
		arg = fields[1]
	}

	var reply string
	switch cmd {
	case "/start":
		tc.prefs.Subscribe(chatID)
		reply = "Subscribed. You will receive all alert categories:\n" + categoryList() +
			"\nUse /mute <category> to silence one, /stop to unsubscribe."
	case "/stop":
		tc.prefs.Unsubscribe(chatID)
		reply = "Unsubscribed. Use /start to resume alerts."
	case "/mute":
		reply = tc.toggleCategory(chatID, arg, false)
	case "/unmute":
		reply = tc.toggleCategory(chatID, arg, true)
	case "/track":
		if tc.commands == nil || arg == "" {
			reply = "Usage: /track <wallet>"
		} else if tc.commands.TrackWallet(arg) {
			reply = fmt.Sprintf("Now tracking %s.", shortAddress(strings.ToLower(arg)))
		} else {
			reply = "Already tracking that wallet."
		}
	case "/untrack":
		if tc.commands == nil || arg == "" {
			reply = "Usage: /untrack <wallet>"
		} else if tc.commands.UntrackWallet(arg) {
			reply = fmt.Sprintf("Stopped tracking %s.", shortAddress(strings.ToLower(arg)))
		} else {
			reply = "That wallet is not tracked."
		}
	case "/wallets":
		if tc.commands == nil {
			return
		}
		wallets := tc.commands.TrackedWallets()
		if len(wallets) == 0 {
			reply = "No wallets tracked. Use /track <wallet>."
		} else {
			var sb strings.Builder
			sb.WriteString(fmt.Sprintf("Tracking %d wallet(s):\n", len(wallets)))
			for _, w := range wallets {
				sb.WriteString("• " + shortAddress(w) + "\n")
			}
			reply = sb.String()
		}
	case "/portfolio":
		if tc.commands == nil || arg == "" {
			reply = "Usage: /portfolio <wallet>"
		} else {
			text, err := tc.commands.PortfolioText(ctx, arg)
			if err != nil {
				tc.logger.Warn("portfolio command failed", zap.Error(err))
				reply = "Could not load that portfolio right now."
			} else {
				reply = text
			}
		}
	case "/stats":
		if tc.commands == nil {
			return
		}
		reply = tc.commands.StatsText()
	default:
		return
	}

	if err := tc.sendMessage(chatID, reply); err != nil {
		tc.logger.Warn("failed to send command reply", zap.String("command", cmd), zap.Error(err))
	}
}

func (tc *TelegramClient) toggleCategory(chatID, arg string, enabled bool) string {
	if !tc.prefs.Subscribed(chatID) {
		return "Not subscribed. Use /start first."
	}
	if arg == "" {
		return "Usage: /mute <category>\n" + categoryList()
	}
	cat := notifier.Category(strings.ToLower(arg))
	for _, c := range notifier.Categories() {
		if c == cat {
			tc.prefs.SetCategory(chatID, cat, enabled)
			if enabled {
				return fmt.Sprintf("Category %s enabled.", cat)
			}
			return fmt.Sprintf("Category %s muted.", cat)
		}
	}
	return "Unknown category.\n" + categoryList()
}

func categoryList() string {
	var sb strings.Builder
	for _, c := range notifier.Categories() {
		sb.WriteString("• " + string(c) + "\n")
	}
	return sb.String()
}

func (tc *TelegramClient) sendMessage(chatID, text string) error {
	url := fmt.Sprintf("%s/bot%s/sendMessage", tc.apiBaseURL, tc.botToken)

	payload := map[string]interface{}{
		"chat_id":    chatID,
		"text":       text,
		"parse_mode": "Markdown",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	resp, err := tc.client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram API returned status %d", resp.StatusCode)
	}

	return nil
}

// Close cleans up resources. Implements notifier.Notifier interface.
func (tc *TelegramClient) Close() error {
	return nil
}

func shortAddress(addr string) string {
	if len(addr) <= 14 {
		return addr
	}
	return addr[:6] + "…" + addr[len(addr)-6:]
}

// escapeMarkdown escapes special characters for Telegram Markdown.
func escapeMarkdown(s string) string {
	replacer := strings.NewReplacer(
		"_", "\\_",
		"*", "\\*",
		"[", "\\[",
		"]", "\\]",
		"`", "\\`",
	)
	return replacer.Replace(s)
}
