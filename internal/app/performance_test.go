package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"polyhawk/clients/polymarketapi"
	"polyhawk/config"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategorizeMarket(t *testing.T) {
	tests := []struct {
		question string
		want     string
	}{
		{"Will Trump win the 2028 election?", "Politics"},
		{"Will Bitcoin reach $200k by December?", "Crypto"},
		{"Will the Lakers win the NBA championship?", "Sports"},
		{"Will Oppenheimer win the Oscar for best picture?", "Entertainment"},
		{"Will the Fed cut interest rates in September?", "Finance"},
		{"Will it rain in London tomorrow?", "All Markets"},
		{"", "All Markets"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CategorizeMarket(tt.question), tt.question)
	}
}

func TestCategorizeMarket_FirstRuleWins(t *testing.T) {
	// Mentions both politics and crypto; politics is checked first.
	assert.Equal(t, "Politics", CategorizeMarket("Will Trump launch a Bitcoin reserve?"))
}

func TestTradeIsWin(t *testing.T) {
	assert.True(t, tradeIsWin(polymarketapi.UserTrade{Side: "BUY", OutcomePrice: 0.8}))
	assert.False(t, tradeIsWin(polymarketapi.UserTrade{Side: "BUY", OutcomePrice: 0.3}))
	assert.True(t, tradeIsWin(polymarketapi.UserTrade{Side: "SELL", OutcomePrice: 0.3}))
	assert.False(t, tradeIsWin(polymarketapi.UserTrade{Side: "SELL", OutcomePrice: 0.8}))
	// Exactly 0.5 is undecided and counts as a loss either way
	assert.False(t, tradeIsWin(polymarketapi.UserTrade{Side: "BUY", OutcomePrice: 0.5}))
	assert.False(t, tradeIsWin(polymarketapi.UserTrade{Side: "SELL", OutcomePrice: 0.5}))
}

func TestAnalyzeTrades(t *testing.T) {
	trades := []polymarketapi.UserTrade{
		// Winning buy: pnl = 100 * |0.9 - 0.4| = 50
		{Side: "BUY", Size: 100, Price: 0.4, OutcomePrice: 0.9, Title: "Will Trump win?", ConditionID: "0xc1"},
		// Losing buy: pnl = -100 * 0.6 = -60
		{Side: "BUY", Size: 100, Price: 0.6, OutcomePrice: 0.2, Title: "Will Bitcoin reach $150k?", ConditionID: "0xc2"},
	}

	perf := analyzeTrades("0xabc", trades)
	assert.Equal(t, 2, perf.TradeCount)
	assert.Equal(t, 1, perf.Wins)
	assert.Equal(t, 1, perf.Losses)
	assert.Equal(t, 50.0, perf.HitRate)
	assert.InDelta(t, -10.0, perf.TotalPnL, 1e-9)
	assert.InDelta(t, 200.0, perf.TotalVolume, 1e-9)
	assert.InDelta(t, -5.0, perf.ROI, 1e-9)

	require.Contains(t, perf.Categories, "Politics")
	require.Contains(t, perf.Categories, "Crypto")

	politics := perf.Categories["Politics"]
	assert.Equal(t, 1, politics.Wins)
	assert.Equal(t, 0, politics.Losses)
	assert.Equal(t, 100.0, politics.HitRate)
	assert.InDelta(t, 50.0, politics.PnL, 1e-9)
	assert.InDelta(t, 100.0, politics.Volume, 1e-9)
	assert.InDelta(t, 50.0, politics.ROI, 1e-9)
	assert.Equal(t, 1, politics.Markets)

	crypto := perf.Categories["Crypto"]
	assert.Equal(t, 1, crypto.Losses)
	assert.Equal(t, 0.0, crypto.HitRate)
	assert.InDelta(t, -60.0, crypto.ROI, 1e-9)
	assert.Equal(t, 1, crypto.Markets)
}

func TestAnalyzeTrades_RoiUsesStakeVolume(t *testing.T) {
	trades := []polymarketapi.UserTrade{
		// Winning buy: pnl = 100 * |0.8 - 0.3| = 50
		{Side: "BUY", Size: 100, Price: 0.3, OutcomePrice: 0.8, Title: "Will Trump win?", ConditionID: "0xc1"},
		// Winning sell: pnl = 50 * |0.2 - 0.6| = 20
		{Side: "SELL", Size: 50, Price: 0.6, OutcomePrice: 0.2, Title: "Will Trump resign?", ConditionID: "0xc2"},
	}

	perf := analyzeTrades("0xabc", trades)
	assert.Equal(t, 2, perf.Wins)
	assert.Equal(t, 100.0, perf.HitRate)
	assert.InDelta(t, 70.0, perf.TotalPnL, 1e-9)
	assert.InDelta(t, 150.0, perf.TotalVolume, 1e-9)
	assert.InDelta(t, 46.67, perf.ROI, 0.01)

	// Two distinct markets in the same category
	assert.Equal(t, 2, perf.Categories["Politics"].Markets)
}

func TestAnalyzeTrades_Empty(t *testing.T) {
	perf := analyzeTrades("0xabc", nil)
	assert.Equal(t, 0, perf.TradeCount)
	assert.Equal(t, 0.0, perf.HitRate)
	assert.Equal(t, 0.0, perf.ROI)
	assert.Equal(t, 0.0, perf.Consistency)
}

func TestConsistencyScore(t *testing.T) {
	// No category with enough trades
	assert.Equal(t, 0.0, consistencyScore(map[string]CategoryPerformance{
		"Politics": {TradeCount: 3, HitRate: 100},
	}))

	// Single qualifying category: mean with zero variance
	assert.Equal(t, 60.0, consistencyScore(map[string]CategoryPerformance{
		"Politics": {TradeCount: 10, HitRate: 60},
	}))

	// Two categories: mean 50, variance 2500, score 50 - 25 = 25
	assert.InDelta(t, 25.0, consistencyScore(map[string]CategoryPerformance{
		"Politics": {TradeCount: 10, HitRate: 100},
		"Crypto":   {TradeCount: 10, HitRate: 0},
	}), 1e-9)
}

func TestConsistencyScore_Floor(t *testing.T) {
	// Low mean plus high spread would go negative without the floor.
	score := consistencyScore(map[string]CategoryPerformance{
		"Politics": {TradeCount: 10, HitRate: 40},
		"Crypto":   {TradeCount: 10, HitRate: 0},
		"Sports":   {TradeCount: 10, HitRate: 0},
	})
	assert.Equal(t, 0.0, score)
}

func TestPerformanceAnalyzer_Analyze(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "0xabc", r.URL.Query().Get("taker_address"))
		json.NewEncoder(w).Encode([]polymarketapi.UserTrade{
			{Side: "BUY", Size: 100, Price: 0.4, OutcomePrice: 0.9, Title: "Will Trump win?"},
		})
	}))
	defer server.Close()

	cfg := config.Defaults()
	cfg.Polymarket.DataAPIURL = server.URL
	client := polymarketapi.NewPolymarketApiClient(nil, cfg)

	pa := NewPerformanceAnalyzer(nil, client, 500)

	perf, err := pa.Analyze(context.Background(), "0xABC")
	require.NoError(t, err)
	assert.Equal(t, "0xabc", perf.Wallet)
	assert.Equal(t, 1, perf.TradeCount)
	assert.Equal(t, 100.0, perf.HitRate)

	// Second lookup hits the cache
	_, err = pa.Analyze(context.Background(), "0xabc")
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}
