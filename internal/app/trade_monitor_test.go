package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"polyhawk/clients/notifier"
	"polyhawk/clients/polymarketapi"
	"polyhawk/config"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTradeMonitor(notif notifier.Notifier, analyzer *PerformanceAnalyzer) *TradeMonitor {
	cfg := config.Defaults()
	return NewTradeMonitor(nil, cfg.Detection, NewDedupRegistry(cfg.Dedup.TradeHorizon), analyzer, notif)
}

func tradeMarket() polymarketapi.GammaMarket {
	return polymarketapi.GammaMarket{
		ID:       "m1",
		Question: "Will X happen?",
		Slug:     "will-x-happen",
	}
}

func TestTradeMonitor_AlertsOnLargeTrade(t *testing.T) {
	notif := &mockNotifier{}
	tm := newTradeMonitor(notif, nil)
	now := time.Now()

	trades := []polymarketapi.Trade{
		{ProxyWallet: "0xaaa", Side: "BUY", Size: 20000, Price: 0.5, Outcome: "Yes", Timestamp: now.Add(-time.Minute).Unix()},
	}

	tm.Process(context.Background(), now, tradeMarket(), trades)

	require.Equal(t, 1, notif.Count())
	alert := notif.Alerts()[0]
	assert.Equal(t, notifier.CategoryLargeTrade, alert.Category)
	require.NotNil(t, alert.Trade)
	assert.Equal(t, "0xaaa", alert.Trade.Wallet)
	assert.Equal(t, 10000.0, alert.Trade.Notional)
	assert.Equal(t, 1, alert.Trade.Tier)
	assert.Nil(t, alert.Trade.Performance)
}

func TestTradeMonitor_SkipsSmallAndStale(t *testing.T) {
	notif := &mockNotifier{}
	tm := newTradeMonitor(notif, nil)
	now := time.Now()

	trades := []polymarketapi.Trade{
		// Under the notional floor
		{ProxyWallet: "0xaaa", Side: "BUY", Size: 100, Price: 0.5, Timestamp: now.Unix()},
		// Big but stale
		{ProxyWallet: "0xbbb", Side: "BUY", Size: 20000, Price: 0.5, Timestamp: now.Add(-time.Hour).Unix()},
	}

	tm.Process(context.Background(), now, tradeMarket(), trades)
	assert.Equal(t, 0, notif.Count())
}

func TestTradeMonitor_Tiers(t *testing.T) {
	notif := &mockNotifier{}
	tm := newTradeMonitor(notif, nil)
	now := time.Now()

	trades := []polymarketapi.Trade{
		{ProxyWallet: "0x1", Side: "BUY", Size: 12000, Price: 0.5, Timestamp: now.Unix()},  // $6k -> tier 1
		{ProxyWallet: "0x2", Side: "BUY", Size: 50000, Price: 0.5, Timestamp: now.Unix()},  // $25k -> tier 2
		{ProxyWallet: "0x3", Side: "BUY", Size: 150000, Price: 0.5, Timestamp: now.Unix()}, // $75k -> tier 3
	}

	tm.Process(context.Background(), now, tradeMarket(), trades)

	require.Equal(t, 3, notif.Count())
	tiers := make(map[string]int)
	for _, a := range notif.Alerts() {
		tiers[a.Trade.Wallet] = a.Trade.Tier
	}
	assert.Equal(t, 1, tiers["0x1"])
	assert.Equal(t, 2, tiers["0x2"])
	assert.Equal(t, 3, tiers["0x3"])
}

func TestTradeMonitor_Dedup(t *testing.T) {
	notif := &mockNotifier{}
	tm := newTradeMonitor(notif, nil)
	now := time.Now()

	trades := []polymarketapi.Trade{
		{ProxyWallet: "0xaaa", Side: "BUY", Size: 20000, Price: 0.5, Timestamp: now.Add(-time.Minute).Unix()},
	}

	tm.Process(context.Background(), now, tradeMarket(), trades)
	// Same trade shows up again on the next cycle
	tm.Process(context.Background(), now.Add(time.Minute), tradeMarket(), trades)

	assert.Equal(t, 1, notif.Count())
}

func TestTradeMonitor_AttachesPerformance(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]polymarketapi.UserTrade{
			{Side: "BUY", Size: 100, Price: 0.4, OutcomePrice: 0.9, Title: "Will Trump win?"},
		})
	}))
	defer server.Close()

	cfg := config.Defaults()
	cfg.Polymarket.DataAPIURL = server.URL
	client := polymarketapi.NewPolymarketApiClient(nil, cfg)
	analyzer := NewPerformanceAnalyzer(nil, client, 500)

	notif := &mockNotifier{}
	tm := newTradeMonitor(notif, analyzer)
	now := time.Now()

	trades := []polymarketapi.Trade{
		{ProxyWallet: "0xaaa", Side: "BUY", Size: 20000, Price: 0.5, Timestamp: now.Unix()},
	}
	tm.Process(context.Background(), now, tradeMarket(), trades)

	require.Equal(t, 1, notif.Count())
	perf := notif.Alerts()[0].Trade.Performance
	require.NotNil(t, perf)
	assert.Equal(t, 100.0, perf.HitRate)
	assert.Equal(t, 1, perf.TradeCount)
}

func TestTradeMonitor_PerformanceFailureStillAlerts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	cfg := config.Defaults()
	cfg.Polymarket.DataAPIURL = server.URL
	client := polymarketapi.NewPolymarketApiClient(nil, cfg)
	analyzer := NewPerformanceAnalyzer(nil, client, 500)

	notif := &mockNotifier{}
	tm := newTradeMonitor(notif, analyzer)
	now := time.Now()

	trades := []polymarketapi.Trade{
		{ProxyWallet: "0xaaa", Side: "BUY", Size: 20000, Price: 0.5, Timestamp: now.Unix()},
	}
	tm.Process(context.Background(), now, tradeMarket(), trades)

	require.Equal(t, 1, notif.Count())
	assert.Nil(t, notif.Alerts()[0].Trade.Performance)
}
