package clients

import (
	"polyhawk/clients/discord"
	"polyhawk/clients/kalshiapi"
	"polyhawk/clients/newsapi"
	"polyhawk/clients/notifier"
	"polyhawk/clients/polymarketapi"
	"polyhawk/clients/telegram"
	"polyhawk/config"

	"go.uber.org/zap"
)

// Clients holds every external client the service talks to.
type Clients struct {
	Logger      *zap.Logger
	Preferences *notifier.Preferences
	Telegram    *telegram.TelegramClient
	Discord     *discord.DiscordClient
	Notifier    notifier.Notifier
	Polymarket  *polymarketapi.PolymarketApiClient
	Kalshi      *kalshiapi.KalshiApiClient
	News        *newsapi.NewsApiClient
}

// New wires up all clients from config. Channels without credentials come up
// disabled rather than failing startup.
func New(logger *zap.Logger, cfg *config.Config) *Clients {
	if logger == nil {
		logger = zap.NewNop()
	}

	prefs := notifier.NewPreferences()
	tg := telegram.NewTelegramClient(logger, cfg, prefs)
	dc := discord.NewDiscordClient(logger, cfg)

	return &Clients{
		Logger:      logger,
		Preferences: prefs,
		Telegram:    tg,
		Discord:     dc,
		Notifier:    notifier.NewMultiNotifier(tg, dc),
		Polymarket:  polymarketapi.NewPolymarketApiClient(logger, cfg),
		Kalshi:      kalshiapi.NewKalshiApiClient(logger, cfg),
		News:        newsapi.NewNewsApiClient(logger, cfg),
	}
}

// Close shuts down clients that hold connections.
func (c *Clients) Close() error {
	return c.Notifier.Close()
}
