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

// walletAPIServer serves the data-api endpoints the wallet monitor hits.
type walletAPIServer struct {
	makerTrades []polymarketapi.UserTrade
	takerTrades []polymarketapi.UserTrade
	positions   []polymarketapi.Position
	makerStatus int
}

func (s *walletAPIServer) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/trades":
			if r.URL.Query().Get("maker_address") != "" {
				if s.makerStatus != 0 {
					w.WriteHeader(s.makerStatus)
					return
				}
				json.NewEncoder(w).Encode(s.makerTrades)
				return
			}
			json.NewEncoder(w).Encode(s.takerTrades)
		case "/positions":
			json.NewEncoder(w).Encode(s.positions)
		default:
			http.NotFound(w, r)
		}
	})
}

func newWalletMonitor(t *testing.T, notif notifier.Notifier, api *walletAPIServer, withAnalyzer bool) (*WalletMonitor, func()) {
	t.Helper()

	server := httptest.NewServer(api.handler())

	cfg := config.Defaults()
	cfg.Polymarket.DataAPIURL = server.URL
	client := polymarketapi.NewPolymarketApiClient(nil, cfg)

	var analyzer *PerformanceAnalyzer
	if withAnalyzer {
		analyzer = NewPerformanceAnalyzer(nil, client, cfg.Wallets.HistoryLimit)
	}

	wm := NewWalletMonitor(nil, cfg.Wallets, client, analyzer, notif)
	return wm, server.Close
}

func TestWalletMonitor_AddRemove(t *testing.T) {
	wm, cleanup := newWalletMonitor(t, &mockNotifier{}, &walletAPIServer{}, false)
	defer cleanup()

	assert.True(t, wm.Add(" 0xABC "))
	assert.False(t, wm.Add("0xabc")) // already tracked
	assert.False(t, wm.Add(""))
	assert.True(t, wm.Add("0xdef"))

	assert.Equal(t, []string{"0xabc", "0xdef"}, wm.List())
	assert.Equal(t, 2, wm.Count())

	assert.True(t, wm.Remove("0xABC"))
	assert.False(t, wm.Remove("0xabc"))
	assert.Equal(t, 1, wm.Count())
}

func TestWalletMonitor_AlertsOnFreshTrade(t *testing.T) {
	future := time.Now().Add(time.Minute).Unix()
	api := &walletAPIServer{
		makerTrades: []polymarketapi.UserTrade{
			{
				Side: "BUY", Size: 10000, Price: 0.5, Timestamp: future,
				ConditionID: "0xcond1", TransactionHash: "0xhash1",
				Title: "Will Trump win?", Outcome: "Yes",
			},
		},
	}

	notif := &mockNotifier{}
	wm, cleanup := newWalletMonitor(t, notif, api, false)
	defer cleanup()

	require.True(t, wm.Add("0xabc"))
	require.NoError(t, wm.RunOnce(context.Background()))

	require.Equal(t, 1, notif.Count())
	alert := notif.Alerts()[0]
	assert.Equal(t, notifier.CategoryWalletTrade, alert.Category)
	assert.Equal(t, "0xcond1", alert.Market.ID)
	assert.Equal(t, "Will Trump win?", alert.Market.Question)
	require.NotNil(t, alert.Trade)
	assert.Equal(t, "0xabc", alert.Trade.Wallet)
	assert.Equal(t, 5000.0, alert.Trade.Notional)
	assert.Equal(t, 1, alert.Trade.Tier)
	assert.Equal(t, "Politics", alert.Trade.Category)
	assert.Equal(t, time.Unix(future, 0), alert.Timestamp)
}

func TestWalletMonitor_SkipsOldTrades(t *testing.T) {
	api := &walletAPIServer{
		makerTrades: []polymarketapi.UserTrade{
			// Predates the tracking cursor
			{Side: "BUY", Size: 10000, Price: 0.5, Timestamp: time.Now().Add(-time.Hour).Unix(), TransactionHash: "0xhash1"},
		},
	}

	notif := &mockNotifier{}
	wm, cleanup := newWalletMonitor(t, notif, api, false)
	defer cleanup()

	require.True(t, wm.Add("0xabc"))
	require.NoError(t, wm.RunOnce(context.Background()))
	assert.Equal(t, 0, notif.Count())
}

func TestWalletMonitor_DustFiltered(t *testing.T) {
	api := &walletAPIServer{
		makerTrades: []polymarketapi.UserTrade{
			// $5 notional, under the $10 floor
			{Side: "BUY", Size: 10, Price: 0.5, Timestamp: time.Now().Add(time.Minute).Unix(), TransactionHash: "0xhash1"},
		},
	}

	notif := &mockNotifier{}
	wm, cleanup := newWalletMonitor(t, notif, api, false)
	defer cleanup()

	require.True(t, wm.Add("0xabc"))
	require.NoError(t, wm.RunOnce(context.Background()))
	assert.Equal(t, 0, notif.Count())
}

func TestWalletMonitor_DedupsFillAcrossRoles(t *testing.T) {
	trade := polymarketapi.UserTrade{
		Side: "BUY", Size: 10000, Price: 0.5, Timestamp: time.Now().Add(time.Minute).Unix(),
		ConditionID: "0xcond1", TransactionHash: "0xhash1", Outcome: "Yes",
	}
	api := &walletAPIServer{
		makerTrades: []polymarketapi.UserTrade{trade},
		takerTrades: []polymarketapi.UserTrade{trade},
	}

	notif := &mockNotifier{}
	wm, cleanup := newWalletMonitor(t, notif, api, false)
	defer cleanup()

	require.True(t, wm.Add("0xabc"))
	require.NoError(t, wm.RunOnce(context.Background()))
	assert.Equal(t, 1, notif.Count())
}

func TestWalletMonitor_CursorAdvances(t *testing.T) {
	api := &walletAPIServer{
		makerTrades: []polymarketapi.UserTrade{
			{Side: "BUY", Size: 10000, Price: 0.5, Timestamp: time.Now().Add(time.Minute).Unix(), TransactionHash: "0xhash1"},
		},
	}

	notif := &mockNotifier{}
	wm, cleanup := newWalletMonitor(t, notif, api, false)
	defer cleanup()

	require.True(t, wm.Add("0xabc"))
	require.NoError(t, wm.RunOnce(context.Background()))
	require.Equal(t, 1, notif.Count())

	// Same response next cycle: the cursor has moved past it
	require.NoError(t, wm.RunOnce(context.Background()))
	assert.Equal(t, 1, notif.Count())
}

func TestWalletMonitor_PartialFetchFailure(t *testing.T) {
	api := &walletAPIServer{
		makerStatus: http.StatusInternalServerError,
		takerTrades: []polymarketapi.UserTrade{
			{Side: "BUY", Size: 10000, Price: 0.5, Timestamp: time.Now().Add(time.Minute).Unix(), TransactionHash: "0xhash1"},
		},
	}

	notif := &mockNotifier{}
	wm, cleanup := newWalletMonitor(t, notif, api, false)
	defer cleanup()

	require.True(t, wm.Add("0xabc"))
	require.NoError(t, wm.RunOnce(context.Background()))
	assert.Equal(t, 1, notif.Count())
}

func TestWalletMonitor_Portfolio(t *testing.T) {
	api := &walletAPIServer{
		positions: []polymarketapi.Position{
			{Title: "Will Trump win?", CurrentValue: 500, CashPnl: 100},
			{Title: "Will Bitcoin reach $150k?", CurrentValue: 250, CashPnl: -50},
		},
		takerTrades: []polymarketapi.UserTrade{
			{Side: "BUY", Size: 100, Price: 0.4, OutcomePrice: 0.9, Title: "Will Trump win?"},
		},
	}

	wm, cleanup := newWalletMonitor(t, &mockNotifier{}, api, true)
	defer cleanup()

	summary, err := wm.Portfolio(context.Background(), "0xABC")
	require.NoError(t, err)
	assert.Equal(t, "0xabc", summary.Wallet)
	assert.Equal(t, 2, summary.PositionCount)
	assert.Equal(t, 750.0, summary.TotalValue)
	assert.Equal(t, 50.0, summary.TotalPnL)
	require.NotNil(t, summary.Performance)
	assert.Equal(t, 1, summary.Performance.TradeCount)
	assert.Equal(t, 100.0, summary.Performance.HitRate)
}

func TestWalletMonitor_TracksConfiguredWallets(t *testing.T) {
	server := httptest.NewServer((&walletAPIServer{}).handler())
	defer server.Close()

	cfg := config.Defaults()
	cfg.Polymarket.DataAPIURL = server.URL
	cfg.Wallets.Tracked = []string{"0xAAA", "0xbbb"}
	client := polymarketapi.NewPolymarketApiClient(nil, cfg)

	wm := NewWalletMonitor(nil, cfg.Wallets, client, nil, &mockNotifier{})
	assert.Equal(t, []string{"0xaaa", "0xbbb"}, wm.List())
}
