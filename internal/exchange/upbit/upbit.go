// Package upbit implements the exchange collaborator ports against the
// Upbit REST API: account balances, ticker data and market order submission.
package upbit

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"coin-trading-bot/internal/api"
	"coin-trading-bot/internal/interfaces"
	"coin-trading-bot/internal/logger"
	"coin-trading-bot/internal/types"
)

const DefaultBaseURL = "https://api.upbit.com"

// Client talks to Upbit. It implements AccountReader, MarketData and
// Exchange for one configured market symbol.
type Client struct {
	api       *api.Client
	accessKey string
	secretKey string
	symbol    string
}

var (
	_ interfaces.AccountReader = (*Client)(nil)
	_ interfaces.MarketData    = (*Client)(nil)
	_ interfaces.Exchange      = (*Client)(nil)
)

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.api = api.NewClient(
			api.WithBaseURL(baseURL),
			api.WithTimeout(30*time.Second),
			api.WithLogging(true),
		)
	}
}

func New(accessKey, secretKey, symbol string, opts ...Option) *Client {
	c := &Client{
		api: api.NewClient(
			api.WithBaseURL(DefaultBaseURL),
			api.WithTimeout(30*time.Second),
			api.WithLogging(true),
		),
		accessKey: accessKey,
		secretKey: secretKey,
		symbol:    symbol,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type accountResponse struct {
	Currency    string `json:"currency"`
	Balance     string `json:"balance"`
	Locked      string `json:"locked"`
	AvgBuyPrice string `json:"avg_buy_price"`
}

// Snapshot reads the account balances for the quote and base currency of the
// configured symbol. MarkPrice stays zero here; the scheduler fills it from
// the same cycle's ticker.
func (c *Client) Snapshot(ctx context.Context) (types.AccountSnapshot, error) {
	token, err := authToken(c.accessKey, c.secretKey, nil)
	if err != nil {
		return types.AccountSnapshot{}, fmt.Errorf("sign accounts request: %w", err)
	}

	resp, err := c.api.GET(ctx, "/v1/accounts", map[string]string{
		"Authorization": "Bearer " + token,
	})
	if err != nil {
		return types.AccountSnapshot{}, fmt.Errorf("fetch accounts: %w", err)
	}

	var accounts []accountResponse
	if err := resp.ParseJSON(&accounts); err != nil {
		return types.AccountSnapshot{}, err
	}

	quote, base := splitSymbol(c.symbol)
	snapshot := types.AccountSnapshot{
		CashBalance:   decimal.Zero,
		AssetBalance:  decimal.Zero,
		AssetAvgPrice: decimal.Zero,
	}
	for _, a := range accounts {
		switch a.Currency {
		case quote:
			if snapshot.CashBalance, err = decimal.NewFromString(a.Balance); err != nil {
				return types.AccountSnapshot{}, fmt.Errorf("parse %s balance %q: %w", quote, a.Balance, err)
			}
		case base:
			if snapshot.AssetBalance, err = decimal.NewFromString(a.Balance); err != nil {
				return types.AccountSnapshot{}, fmt.Errorf("parse %s balance %q: %w", base, a.Balance, err)
			}
			if snapshot.AssetAvgPrice, err = decimal.NewFromString(a.AvgBuyPrice); err != nil {
				return types.AccountSnapshot{}, fmt.Errorf("parse %s avg price %q: %w", base, a.AvgBuyPrice, err)
			}
		}
	}
	return snapshot, nil
}

type tickerResponse struct {
	TradePrice       decimal.Decimal `json:"trade_price"`
	SignedChangeRate float64         `json:"signed_change_rate"`
	AccTradeVolume   float64         `json:"acc_trade_volume_24h"`
}

// Ticker fetches current market data. Public endpoint, retried on failure.
func (c *Client) Ticker(ctx context.Context) (types.Ticker, error) {
	req := api.NewRequest("GET", "/v1/ticker?markets="+url.QueryEscape(c.symbol)).WithContext(ctx)
	resp, err := c.api.DoWithRetry(req, nil)
	if err != nil {
		return types.Ticker{}, fmt.Errorf("fetch ticker: %w", err)
	}

	var tickers []tickerResponse
	if err := resp.ParseJSON(&tickers); err != nil {
		return types.Ticker{}, err
	}
	if len(tickers) == 0 {
		return types.Ticker{}, fmt.Errorf("no ticker data for %s", c.symbol)
	}

	t := tickers[0]
	return types.Ticker{
		Price:        t.TradePrice,
		Change24hPct: t.SignedChangeRate * 100,
		Volume24h:    t.AccTradeVolume,
	}, nil
}

type orderResponse struct {
	UUID  string `json:"uuid"`
	State string `json:"state"`
}

// SubmitMarketBuy places a market buy spending the given quote-currency
// notional (Upbit "price" order type).
func (c *Client) SubmitMarketBuy(ctx context.Context, notional decimal.Decimal) (types.OrderReceipt, error) {
	return c.submitOrder(ctx, url.Values{
		"market":   {c.symbol},
		"side":     {"bid"},
		"price":    {notional.String()},
		"ord_type": {"price"},
	})
}

// SubmitMarketSell places a market sell of the given base-currency quantity.
func (c *Client) SubmitMarketSell(ctx context.Context, quantity decimal.Decimal) (types.OrderReceipt, error) {
	return c.submitOrder(ctx, url.Values{
		"market":   {c.symbol},
		"side":     {"ask"},
		"volume":   {quantity.String()},
		"ord_type": {"market"},
	})
}

// submitOrder posts to /v1/orders exactly once; the engine owns the
// no-retry policy for order submission.
func (c *Client) submitOrder(ctx context.Context, params url.Values) (types.OrderReceipt, error) {
	token, err := authToken(c.accessKey, c.secretKey, params)
	if err != nil {
		return types.OrderReceipt{}, fmt.Errorf("sign order request: %w", err)
	}

	body := make(map[string]string, len(params))
	for k := range params {
		body[k] = params.Get(k)
	}

	resp, err := c.api.POST(ctx, "/v1/orders", body, map[string]string{
		"Authorization": "Bearer " + token,
	})
	if err != nil {
		var statusErr *api.StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == 400 {
			logger.Warn(ctx, "Order rejected by Upbit", "body", statusErr.Body)
			return types.OrderReceipt{}, fmt.Errorf("%w: %s", interfaces.ErrOrderRejected, statusErr.Body)
		}
		return types.OrderReceipt{}, fmt.Errorf("submit order: %w", err)
	}

	var order orderResponse
	if err := resp.ParseJSON(&order); err != nil {
		return types.OrderReceipt{}, err
	}
	return types.OrderReceipt{OrderID: order.UUID, Status: order.State}, nil
}

// splitSymbol breaks an Upbit market code like "KRW-BTC" into quote and base
// currency.
func splitSymbol(symbol string) (quote, base string) {
	for i := 0; i < len(symbol); i++ {
		if symbol[i] == '-' {
			return symbol[:i], symbol[i+1:]
		}
	}
	return symbol, ""
}
