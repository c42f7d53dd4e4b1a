package upbit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coin-trading-bot/internal/interfaces"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New("access", "secret", "KRW-BTC", WithBaseURL(srv.URL))
}

func TestSnapshotParsesBalances(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/accounts", r.URL.Path)
		assert.True(t, strings.HasPrefix(r.Header.Get("Authorization"), "Bearer "))
		json.NewEncoder(w).Encode([]map[string]string{
			{"currency": "KRW", "balance": "100000.5", "avg_buy_price": "0"},
			{"currency": "BTC", "balance": "0.002", "avg_buy_price": "50000000"},
			{"currency": "ETH", "balance": "1.5", "avg_buy_price": "3000000"},
		})
	})

	snap, err := c.Snapshot(context.Background())
	require.NoError(t, err)
	assert.True(t, snap.CashBalance.Equal(decimal.RequireFromString("100000.5")))
	assert.True(t, snap.AssetBalance.Equal(decimal.RequireFromString("0.002")))
	assert.True(t, snap.AssetAvgPrice.Equal(decimal.NewFromInt(50_000_000)))
	assert.True(t, snap.MarkPrice.IsZero(), "mark price comes from the ticker")
}

func TestTickerConvertsChangeRate(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/ticker", r.URL.Path)
		assert.Equal(t, "KRW-BTC", r.URL.Query().Get("markets"))
		json.NewEncoder(w).Encode([]map[string]any{
			{"trade_price": 50000000, "signed_change_rate": 0.021, "acc_trade_volume_24h": 1234.5},
		})
	})

	ticker, err := c.Ticker(context.Background())
	require.NoError(t, err)
	assert.True(t, ticker.Price.Equal(decimal.NewFromInt(50_000_000)))
	assert.InDelta(t, 2.1, ticker.Change24hPct, 1e-9)
}

func TestSubmitMarketBuySendsPriceOrder(t *testing.T) {
	var got map[string]string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/orders", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(map[string]string{"uuid": "ord-123", "state": "wait"})
	})

	receipt, err := c.SubmitMarketBuy(context.Background(), decimal.NewFromInt(95_000))
	require.NoError(t, err)
	assert.Equal(t, "ord-123", receipt.OrderID)
	assert.Equal(t, map[string]string{
		"market":   "KRW-BTC",
		"side":     "bid",
		"price":    "95000",
		"ord_type": "price",
	}, got)
}

func TestSubmitMarketSellSendsVolumeOrder(t *testing.T) {
	var got map[string]string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(map[string]string{"uuid": "ord-456", "state": "wait"})
	})

	receipt, err := c.SubmitMarketSell(context.Background(), decimal.RequireFromString("0.0019"))
	require.NoError(t, err)
	assert.Equal(t, "ord-456", receipt.OrderID)
	assert.Equal(t, "ask", got["side"])
	assert.Equal(t, "market", got["ord_type"])
	assert.Equal(t, "0.0019", got["volume"])
}

func TestRejectedOrderMapsToTypedError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"name":"insufficient_funds_bid"}}`))
	})

	_, err := c.SubmitMarketBuy(context.Background(), decimal.NewFromInt(95_000))
	require.Error(t, err)
	assert.ErrorIs(t, err, interfaces.ErrOrderRejected)
}

func TestServerErrorIsNotARejection(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := c.SubmitMarketBuy(context.Background(), decimal.NewFromInt(95_000))
	require.Error(t, err)
	assert.NotErrorIs(t, err, interfaces.ErrOrderRejected)
}

func TestAuthTokenCarriesQueryHash(t *testing.T) {
	params := url.Values{"market": {"KRW-BTC"}, "side": {"bid"}}

	signed, err := authToken("access", "secret", params)
	require.NoError(t, err)

	token, err := jwt.Parse(signed, func(t *jwt.Token) (interface{}, error) {
		return []byte("secret"), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	require.NoError(t, err)

	claims := token.Claims.(jwt.MapClaims)
	assert.Equal(t, "access", claims["access_key"])
	assert.NotEmpty(t, claims["nonce"])
	assert.Equal(t, "SHA512", claims["query_hash_alg"])
	assert.Len(t, claims["query_hash"], 128)

	// Parameter-less requests omit the hash.
	bare, err := authToken("access", "secret", nil)
	require.NoError(t, err)
	token, err = jwt.Parse(bare, func(t *jwt.Token) (interface{}, error) {
		return []byte("secret"), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	require.NoError(t, err)
	_, hasHash := token.Claims.(jwt.MapClaims)["query_hash"]
	assert.False(t, hasHash)
}
