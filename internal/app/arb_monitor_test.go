package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"polyhawk/clients/kalshiapi"
	"polyhawk/clients/notifier"
	"polyhawk/clients/polymarketapi"
	"polyhawk/config"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTitleWords(t *testing.T) {
	words := titleWords("Will Trump win the 2028 election?")
	assert.Contains(t, words, "trump")
	assert.Contains(t, words, "election")
	assert.Contains(t, words, "2028")
	assert.NotContains(t, words, "election?")
}

func TestSharedWords(t *testing.T) {
	a := titleWords("Will Trump win the 2028 election?")
	b := titleWords("Trump wins 2028 presidential election")
	assert.Equal(t, 3, sharedWords(a, b)) // trump, 2028, election
}

func newArbMonitor(t *testing.T, notif notifier.Notifier, polyMarkets []polymarketapi.GammaMarket, kalshiMarkets []kalshiapi.Market) (*ArbMonitor, func()) {
	t.Helper()

	gamma := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(polyMarkets)
	}))
	kalshi := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"markets": kalshiMarkets})
	}))

	cfg := config.Defaults()
	cfg.Polymarket.GammaAPIURL = gamma.URL
	cfg.Kalshi.BaseURL = kalshi.URL

	am := NewArbMonitor(nil,
		cfg.Arbitrage,
		polymarketapi.NewPolymarketApiClient(nil, cfg),
		kalshiapi.NewKalshiApiClient(nil, cfg),
		notif,
	)
	return am, func() {
		gamma.Close()
		kalshi.Close()
	}
}

func gammaWithPrices(id, question string, yes float64) polymarketapi.GammaMarket {
	return gammaWithPricePair(id, question, yes, 1-yes)
}

func gammaWithPricePair(id, question string, yes, no float64) polymarketapi.GammaMarket {
	prices, _ := json.Marshal([]float64{yes, no})
	return polymarketapi.GammaMarket{
		ID:            id,
		Question:      question,
		Slug:          id + "-slug",
		OutcomePrices: prices,
	}
}

func TestArbMonitor_FindsOpportunity(t *testing.T) {
	notif := &mockNotifier{}
	am, cleanup := newArbMonitor(t, notif,
		[]polymarketapi.GammaMarket{
			gammaWithPrices("p1", "Will Trump win the 2028 election?", 0.45),
		},
		[]kalshiapi.Market{
			// yes_ask/no_ask are cents
			{Ticker: "K1", Title: "Trump wins 2028 presidential election", YesAskRaw: 55, NoAskRaw: 50},
		},
	)
	defer cleanup()

	require.NoError(t, am.RunOnce(context.Background()))
	require.Equal(t, 1, notif.Count())

	alert := notif.Alerts()[0]
	assert.Equal(t, notifier.CategoryArbitrage, alert.Category)
	require.NotNil(t, alert.Arbitrage)
	// YES on Polymarket at 0.45 + NO on Kalshi at 0.50 = 0.95
	assert.Equal(t, "Polymarket", alert.Arbitrage.BuyYesVenue)
	assert.Equal(t, "Kalshi", alert.Arbitrage.BuyNoVenue)
	assert.InDelta(t, 0.95, alert.Arbitrage.TotalCost, 1e-9)
	assert.InDelta(t, 5.0, alert.Arbitrage.SpreadPct, 1e-9)
	assert.Equal(t, "Trump wins 2028 presidential election", alert.Arbitrage.KalshiTitle)
	assert.Equal(t, "Will Trump win the 2028 election?", alert.Arbitrage.PolymarketQuestion)
}

func TestArbMonitor_ReverseDirection(t *testing.T) {
	notif := &mockNotifier{}
	am, cleanup := newArbMonitor(t, notif,
		[]polymarketapi.GammaMarket{
			// Polymarket NO costs 0.40, Kalshi YES costs 0.50 -> 0.90
			gammaWithPrices("p1", "Will Trump win the 2028 election?", 0.60),
		},
		[]kalshiapi.Market{
			{Ticker: "K1", Title: "Trump wins 2028 presidential election", YesAskRaw: 50, NoAskRaw: 60},
		},
	)
	defer cleanup()

	require.NoError(t, am.RunOnce(context.Background()))
	require.Equal(t, 1, notif.Count())

	arb := notif.Alerts()[0].Arbitrage
	assert.Equal(t, "Kalshi", arb.BuyYesVenue)
	assert.Equal(t, "Polymarket", arb.BuyNoVenue)
	assert.InDelta(t, 0.90, arb.TotalCost, 1e-9)
}

func TestArbMonitor_UsesQuotedNoPrice(t *testing.T) {
	notif := &mockNotifier{}
	// The Polymarket pair does not sum to 1; the hedge must price the NO
	// side off the quote, not off 1-yes.
	am, cleanup := newArbMonitor(t, notif,
		[]polymarketapi.GammaMarket{
			gammaWithPricePair("p1", "Will Trump win the 2028 election?", 0.60, 0.35),
		},
		[]kalshiapi.Market{
			{Ticker: "K1", Title: "Trump wins 2028 presidential election", YesAskRaw: 50, NoAskRaw: 60},
		},
	)
	defer cleanup()

	require.NoError(t, am.RunOnce(context.Background()))
	require.Equal(t, 1, notif.Count())

	arb := notif.Alerts()[0].Arbitrage
	assert.Equal(t, "Kalshi", arb.BuyYesVenue)
	assert.Equal(t, "Polymarket", arb.BuyNoVenue)
	// 0.35 NO on Polymarket + 0.50 YES on Kalshi
	assert.InDelta(t, 0.85, arb.TotalCost, 1e-9)
	assert.InDelta(t, 15.0, arb.SpreadPct, 1e-9)
}

func TestArbMonitor_SkipsEmptyPolymarketNoQuote(t *testing.T) {
	notif := &mockNotifier{}
	am, cleanup := newArbMonitor(t, notif,
		[]polymarketapi.GammaMarket{
			gammaWithPricePair("p1", "Will Trump win the 2028 election?", 0.45, 0),
		},
		[]kalshiapi.Market{
			{Ticker: "K1", Title: "Trump wins 2028 presidential election", YesAskRaw: 55, NoAskRaw: 50},
		},
	)
	defer cleanup()

	require.NoError(t, am.RunOnce(context.Background()))
	assert.Equal(t, 0, notif.Count())
}

func TestArbMonitor_NoMatchWithoutSharedWords(t *testing.T) {
	notif := &mockNotifier{}
	am, cleanup := newArbMonitor(t, notif,
		[]polymarketapi.GammaMarket{
			gammaWithPrices("p1", "Will Bitcoin reach $200k?", 0.30),
		},
		[]kalshiapi.Market{
			{Ticker: "K1", Title: "Trump wins 2028 presidential election", YesAskRaw: 30, NoAskRaw: 30},
		},
	)
	defer cleanup()

	require.NoError(t, am.RunOnce(context.Background()))
	assert.Equal(t, 0, notif.Count())
}

func TestArbMonitor_NoAlertAboveThreshold(t *testing.T) {
	notif := &mockNotifier{}
	am, cleanup := newArbMonitor(t, notif,
		[]polymarketapi.GammaMarket{
			gammaWithPrices("p1", "Will Trump win the 2028 election?", 0.50),
		},
		[]kalshiapi.Market{
			{Ticker: "K1", Title: "Trump wins 2028 presidential election", YesAskRaw: 50, NoAskRaw: 50},
		},
	)
	defer cleanup()

	require.NoError(t, am.RunOnce(context.Background()))
	assert.Equal(t, 0, notif.Count())
}

func TestArbMonitor_SkipsZeroQuotes(t *testing.T) {
	notif := &mockNotifier{}
	am, cleanup := newArbMonitor(t, notif,
		[]polymarketapi.GammaMarket{
			gammaWithPrices("p1", "Will Trump win the 2028 election?", 0.45),
		},
		[]kalshiapi.Market{
			{Ticker: "K1", Title: "Trump wins 2028 presidential election", YesAskRaw: 0, NoAskRaw: 50},
		},
	)
	defer cleanup()

	require.NoError(t, am.RunOnce(context.Background()))
	assert.Equal(t, 0, notif.Count())
}

func TestArbMonitor_Cooldown(t *testing.T) {
	notif := &mockNotifier{}
	am, cleanup := newArbMonitor(t, notif,
		[]polymarketapi.GammaMarket{
			gammaWithPrices("p1", "Will Trump win the 2028 election?", 0.45),
		},
		[]kalshiapi.Market{
			{Ticker: "K1", Title: "Trump wins 2028 presidential election", YesAskRaw: 55, NoAskRaw: 50},
		},
	)
	defer cleanup()

	require.NoError(t, am.RunOnce(context.Background()))
	require.NoError(t, am.RunOnce(context.Background()))
	assert.Equal(t, 1, notif.Count())
}

func TestArbMonitor_ZeroCooldownAlertsEveryCycle(t *testing.T) {
	notif := &mockNotifier{}
	am, cleanup := newArbMonitor(t, notif,
		[]polymarketapi.GammaMarket{
			gammaWithPrices("p1", "Will Trump win the 2028 election?", 0.45),
		},
		[]kalshiapi.Market{
			{Ticker: "K1", Title: "Trump wins 2028 presidential election", YesAskRaw: 55, NoAskRaw: 50},
		},
	)
	defer cleanup()
	am.cfg.AlertCooldown = 0

	require.NoError(t, am.RunOnce(context.Background()))
	require.NoError(t, am.RunOnce(context.Background()))
	assert.Equal(t, 2, notif.Count())
}

func TestArbMonitor_CooldownExpiry(t *testing.T) {
	notif := &mockNotifier{}
	am, cleanup := newArbMonitor(t, notif,
		[]polymarketapi.GammaMarket{
			gammaWithPrices("p1", "Will Trump win the 2028 election?", 0.45),
		},
		[]kalshiapi.Market{
			{Ticker: "K1", Title: "Trump wins 2028 presidential election", YesAskRaw: 55, NoAskRaw: 50},
		},
	)
	defer cleanup()

	require.NoError(t, am.RunOnce(context.Background()))
	// Age the recorded alert past the cooldown
	am.mu.Lock()
	for k := range am.lastAlert {
		am.lastAlert[k] = time.Now().Add(-time.Hour)
	}
	am.mu.Unlock()

	require.NoError(t, am.RunOnce(context.Background()))
	assert.Equal(t, 2, notif.Count())
}
