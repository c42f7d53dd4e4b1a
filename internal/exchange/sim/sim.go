// Package sim is a deterministic in-memory exchange for DRY_RUN mode and
// tests. Orders fill immediately at the current mark price with the
// configured fee applied; no external calls are made.
package sim

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"coin-trading-bot/internal/id"
	"coin-trading-bot/internal/interfaces"
	"coin-trading-bot/internal/types"
)

type Exchange struct {
	mu       sync.Mutex
	cash     decimal.Decimal
	asset    decimal.Decimal
	avgPrice decimal.Decimal
	ticker   types.Ticker
	feeRate  decimal.Decimal
}

var (
	_ interfaces.AccountReader = (*Exchange)(nil)
	_ interfaces.MarketData    = (*Exchange)(nil)
	_ interfaces.Exchange      = (*Exchange)(nil)
)

func New(startingCash decimal.Decimal, feeRate decimal.Decimal) *Exchange {
	return &Exchange{
		cash:     startingCash,
		asset:    decimal.Zero,
		avgPrice: decimal.Zero,
		feeRate:  feeRate,
	}
}

// SetTicker updates the simulated market. Fills use its price as the mark.
func (e *Exchange) SetTicker(t types.Ticker) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ticker = t
}

func (e *Exchange) Snapshot(ctx context.Context) (types.AccountSnapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	return types.AccountSnapshot{
		CashBalance:   e.cash,
		AssetBalance:  e.asset,
		AssetAvgPrice: e.avgPrice,
	}, nil
}

func (e *Exchange) Ticker(ctx context.Context) (types.Ticker, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.ticker.Price.IsZero() {
		return types.Ticker{}, fmt.Errorf("no simulated ticker configured")
	}
	return e.ticker, nil
}

// SubmitMarketBuy fills a buy of the given notional at the mark price. The
// fee comes out of the notional before quantity is credited, matching how a
// real market price-order settles.
func (e *Exchange) SubmitMarketBuy(ctx context.Context, notional decimal.Decimal) (types.OrderReceipt, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.ticker.Price.IsZero() {
		return types.OrderReceipt{}, fmt.Errorf("no simulated ticker configured")
	}
	if notional.GreaterThan(e.cash) {
		return types.OrderReceipt{}, fmt.Errorf("%w: notional %s exceeds cash %s",
			interfaces.ErrOrderRejected, notional.String(), e.cash.String())
	}

	fee := notional.Mul(e.feeRate)
	quantity := notional.Sub(fee).Div(e.ticker.Price)

	// Weighted average entry price across the merged position.
	oldValue := e.asset.Mul(e.avgPrice)
	newAsset := e.asset.Add(quantity)
	if newAsset.IsPositive() {
		e.avgPrice = oldValue.Add(quantity.Mul(e.ticker.Price)).Div(newAsset)
	}
	e.asset = newAsset
	e.cash = e.cash.Sub(notional)

	return types.OrderReceipt{OrderID: id.New(), Status: "done"}, nil
}

func (e *Exchange) SubmitMarketSell(ctx context.Context, quantity decimal.Decimal) (types.OrderReceipt, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.ticker.Price.IsZero() {
		return types.OrderReceipt{}, fmt.Errorf("no simulated ticker configured")
	}
	if quantity.GreaterThan(e.asset) {
		return types.OrderReceipt{}, fmt.Errorf("%w: quantity %s exceeds balance %s",
			interfaces.ErrOrderRejected, quantity.String(), e.asset.String())
	}

	notional := quantity.Mul(e.ticker.Price)
	fee := notional.Mul(e.feeRate)

	e.asset = e.asset.Sub(quantity)
	e.cash = e.cash.Add(notional.Sub(fee))
	if e.asset.IsZero() {
		e.avgPrice = decimal.Zero
	}

	return types.OrderReceipt{OrderID: id.New(), Status: "done"}, nil
}
