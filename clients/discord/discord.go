package discord

import (
	"fmt"
	"polyhawk/clients/notifier"
	"polyhawk/config"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// Embed colors per alert category.
const (
	colorBuy       = 0x2ECC71
	colorSell      = 0xE74C3C
	colorSpike     = 0xF39C12
	colorArbitrage = 0x9B59B6
	colorNews      = 0x3498DB
	colorNewMarket = 0x1ABC9C
)

// DiscordClient sends alerts to Discord.
// Implements notifier.Notifier interface.
type DiscordClient struct {
	logger    *zap.Logger
	session   *discordgo.Session
	channelID string
	isProd    bool
}

func NewDiscordClient(logger *zap.Logger, cfg *config.Config) *DiscordClient {
	if logger == nil {
		logger = zap.NewNop()
	}

	channelID := cfg.Discord.BetaChannelID
	if cfg.IsProd {
		channelID = cfg.Discord.ProdChannelID
	}

	token := cfg.Discord.BotToken
	if token == "" {
		logger.Warn("DISCORD_BOT_TOKEN not set, Discord alerts disabled")
		return &DiscordClient{
			logger:    logger,
			channelID: channelID,
			isProd:    cfg.IsProd,
		}
	}

	session, err := discordgo.New("Bot " + token)
	if err != nil {
		logger.Error("failed to create discord session", zap.Error(err))
		return &DiscordClient{
			logger:    logger,
			channelID: channelID,
			isProd:    cfg.IsProd,
		}
	}

	logger.Info("discord bot initialized",
		zap.Bool("isProd", cfg.IsProd),
		zap.String("channelID", channelID),
	)

	return &DiscordClient{
		logger:    logger,
		session:   session,
		channelID: channelID,
		isProd:    cfg.IsProd,
	}
}

// SendAlert sends a rich embedded alert.
// Implements notifier.Notifier interface.
func (dc *DiscordClient) SendAlert(alert notifier.Alert) {
	if dc.session == nil {
		dc.logger.Warn("discord session not initialized, skipping alert")
		return
	}

	embed := buildEmbed(alert)

	_, err := dc.session.ChannelMessageSendEmbed(dc.channelID, embed)
	if err != nil {
		dc.logger.Error("failed to send discord embed", zap.Error(err))
		return
	}

	dc.logger.Info("sent discord alert",
		zap.String("category", string(alert.Category)),
		zap.String("market", alert.Market.Question),
	)
}

func buildEmbed(alert notifier.Alert) *discordgo.MessageEmbed {
	var fields []*discordgo.MessageEmbedField
	color := colorSpike
	title := "🚨 Alert"

	switch alert.Category {
	case notifier.CategoryVolumeSpike:
		title = "📊 Volume Spike"
		if s := alert.Spike; s != nil {
			fields = append(fields,
				&discordgo.MessageEmbedField{
					Name:   "Volume",
					Value:  fmt.Sprintf("$%.0f → $%.0f", s.PastVolume, s.CurrentVolume),
					Inline: true,
				},
				&discordgo.MessageEmbedField{
					Name:   "Change",
					Value:  fmt.Sprintf("%+.1f%%", s.ChangePct),
					Inline: true,
				},
			)
			if len(s.ContextTrades) > 0 {
				var sb strings.Builder
				for _, ct := range s.ContextTrades {
					sb.WriteString(fmt.Sprintf("%s %s $%.0f @ $%.3f (%s)\n",
						shortAddress(ct.Wallet), ct.Side, ct.Notional, ct.Price, ct.Outcome))
				}
				fields = append(fields, &discordgo.MessageEmbedField{
					Name:  "Recent Large Trades",
					Value: sb.String(),
				})
			}
		}

	case notifier.CategoryLargeTrade, notifier.CategoryWalletTrade:
		title = "💰 Large Trade"
		if alert.Category == notifier.CategoryWalletTrade {
			title = "👀 Tracked Wallet Trade"
		}
		if t := alert.Trade; t != nil {
			if alert.Category == notifier.CategoryLargeTrade && t.Tier >= 3 {
				title = "🐋 Massive Trade"
			}
			color = colorBuy
			sideEmoji := "🟢"
			if strings.ToUpper(t.Side) == "SELL" {
				color = colorSell
				sideEmoji = "🔴"
			}
			fields = append(fields,
				&discordgo.MessageEmbedField{
					Name:   "Trader",
					Value:  shortAddress(t.Wallet),
					Inline: true,
				},
				&discordgo.MessageEmbedField{
					Name:   "Side",
					Value:  fmt.Sprintf("%s %s %s", sideEmoji, t.Side, t.Outcome),
					Inline: true,
				},
				&discordgo.MessageEmbedField{
					Name:   "Notional",
					Value:  fmt.Sprintf("$%.2f @ $%.3f", t.Notional, t.Price),
					Inline: true,
				},
			)
			if p := t.Performance; p != nil {
				fields = append(fields, &discordgo.MessageEmbedField{
					Name: "Track Record",
					Value: fmt.Sprintf("%.1f%% hit rate, %+.0f PnL, %.1f%% ROI (%d trades)",
						p.HitRate, p.TotalPnL, p.ROI, p.TradeCount),
				})
			}
		}

	case notifier.CategoryPriceMove:
		title = "⚡ Price Move"
		if p := alert.PriceMove; p != nil {
			color = colorBuy
			if p.Direction == "DOWN" {
				color = colorSell
			}
			fields = append(fields,
				&discordgo.MessageEmbedField{
					Name:   "Price",
					Value:  fmt.Sprintf("$%.3f → $%.3f", p.OldPrice, p.NewPrice),
					Inline: true,
				},
				&discordgo.MessageEmbedField{
					Name:   "Change",
					Value:  fmt.Sprintf("%+.1f%%", p.ChangePct),
					Inline: true,
				},
			)
			if p.Volume24h > 0 {
				fields = append(fields, &discordgo.MessageEmbedField{
					Name:   "24h Volume",
					Value:  fmt.Sprintf("$%.0f", p.Volume24h),
					Inline: true,
				})
			}
		}

	case notifier.CategoryArbitrage:
		title = "♻️ Cross-Venue Arbitrage"
		color = colorArbitrage
		if a := alert.Arbitrage; a != nil {
			fields = append(fields,
				&discordgo.MessageEmbedField{
					Name:  "Kalshi Market",
					Value: a.KalshiTitle,
				},
				&discordgo.MessageEmbedField{
					Name:   "Legs",
					Value:  fmt.Sprintf("YES on %s ($%.2f) + NO on %s ($%.2f)", a.BuyYesVenue, a.YesPrice, a.BuyNoVenue, a.NoPrice),
					Inline: true,
				},
				&discordgo.MessageEmbedField{
					Name:   "Spread",
					Value:  fmt.Sprintf("%.1f%% (cost $%.3f)", a.SpreadPct, a.TotalCost),
					Inline: true,
				},
			)
		}

	case notifier.CategoryNews:
		title = "📰 Market-Moving News"
		color = colorNews
		if n := alert.News; n != nil {
			fields = append(fields,
				&discordgo.MessageEmbedField{
					Name:  "Article",
					Value: fmt.Sprintf("[%s](%s)", n.ArticleTitle, n.ArticleURL),
				},
				&discordgo.MessageEmbedField{
					Name:   "Source",
					Value:  n.SourceName,
					Inline: true,
				},
				&discordgo.MessageEmbedField{
					Name:   "Relevance",
					Value:  fmt.Sprintf("%d/100", n.Score),
					Inline: true,
				},
			)
			if len(n.Keywords) > 0 {
				fields = append(fields, &discordgo.MessageEmbedField{
					Name:   "Matched",
					Value:  strings.Join(n.Keywords, ", "),
					Inline: true,
				})
			}
			if n.Decisive {
				fields = append(fields, &discordgo.MessageEmbedField{
					Name:  "⚡ Resolution",
					Value: "Article language suggests the event may already be decided",
				})
			}
		}

	case notifier.CategoryNewMarket:
		title = "🆕 New Market Listed"
		color = colorNewMarket
		if m := alert.NewMarket; m != nil {
			if m.Trending {
				title = "🔥 New Market Trending"
			}
			fields = append(fields,
				&discordgo.MessageEmbedField{
					Name:   "24h Volume",
					Value:  fmt.Sprintf("$%.0f", m.Volume24h),
					Inline: true,
				},
				&discordgo.MessageEmbedField{
					Name:   "Liquidity",
					Value:  fmt.Sprintf("$%.0f", m.Liquidity),
					Inline: true,
				},
			)
		}
	}

	description := fmt.Sprintf("**%s**", alert.Market.Question)
	marketURL := ""
	if alert.Market.Slug != "" {
		marketURL = "https://polymarket.com/event/" + alert.Market.Slug
	}

	// Format timestamp for footer (PST)
	pst, _ := time.LoadLocation("America/Los_Angeles")
	ts := alert.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	footerText := fmt.Sprintf("polyhawk * %s", ts.In(pst).Format("1/2/2006, 3:04:05PM (MST)"))

	return &discordgo.MessageEmbed{
		Title:       title,
		URL:         marketURL, // Makes title clickable
		Description: description,
		Color:       color,
		Fields:      fields,
		Footer: &discordgo.MessageEmbedFooter{
			Text: footerText,
		},
		Timestamp: ts.Format(time.RFC3339),
	}
}

func shortAddress(addr string) string {
	if len(addr) <= 14 {
		return addr
	}
	return addr[:6] + "…" + addr[len(addr)-6:]
}

// Close closes the Discord session.
func (dc *DiscordClient) Close() error {
	if dc.session != nil {
		return dc.session.Close()
	}
	return nil
}
