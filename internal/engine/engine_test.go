package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coin-trading-bot/internal/interfaces"
	"coin-trading-bot/internal/store"
	"coin-trading-bot/internal/types"
)

type recordingExchange struct {
	buyNotional  decimal.Decimal
	sellQuantity decimal.Decimal
	buys, sells  int
	receipt      types.OrderReceipt
	err          error
}

func (r *recordingExchange) SubmitMarketBuy(ctx context.Context, notional decimal.Decimal) (types.OrderReceipt, error) {
	r.buys++
	r.buyNotional = notional
	return r.receipt, r.err
}

func (r *recordingExchange) SubmitMarketSell(ctx context.Context, quantity decimal.Decimal) (types.OrderReceipt, error) {
	r.sells++
	r.sellQuantity = quantity
	return r.receipt, r.err
}

func testEngine(exch interfaces.Exchange) *Engine {
	cfg := &store.Config{}
	cfg.Trading.MinTradeAmount = 5000
	cfg.Trading.TradeRatio = 0.95
	cfg.Trading.FeeRate = 0.0005
	return New(cfg, exch)
}

func buyDecision(confidence float64) types.Decision {
	return types.Decision{
		Action:     types.ActionBuy,
		Confidence: confidence,
		RiskTier:   types.RiskMedium,
		Rationale:  "test",
	}
}

func sellDecision() types.Decision {
	return types.Decision{
		Action:     types.ActionSell,
		Confidence: 0.7,
		RiskTier:   types.RiskMedium,
		Rationale:  "test",
	}
}

func snapshot(cash, asset, avg, mark string) types.AccountSnapshot {
	return types.AccountSnapshot{
		CashBalance:   decimal.RequireFromString(cash),
		AssetBalance:  decimal.RequireFromString(asset),
		AssetAvgPrice: decimal.RequireFromString(avg),
		MarkPrice:     decimal.RequireFromString(mark),
	}
}

func TestBuySizingEndToEnd(t *testing.T) {
	exch := &recordingExchange{receipt: types.OrderReceipt{OrderID: "ord-1", Status: "wait"}}
	e := testEngine(exch)

	res := e.Execute(context.Background(), buyDecision(0.8),
		snapshot("100000", "0", "0", "50000000"))

	assert.Equal(t, types.OutcomeExecuted, res.Outcome)
	assert.Equal(t, types.ActionBuy, res.ActionTaken)
	assert.True(t, res.Notional.Equal(decimal.NewFromInt(95_000)), "notional %s", res.Notional)
	assert.True(t, res.Fee.Equal(decimal.RequireFromString("47.5")), "fee %s", res.Fee)
	// (95000 - 47.5) / 50000000
	assert.True(t, res.Quantity.Equal(decimal.RequireFromString("0.00189905")), "quantity %s", res.Quantity)
	assert.Equal(t, "ord-1", res.OrderID)
	assert.True(t, exch.buyNotional.Equal(res.Notional))

	// Solvency: the submitted notional never exceeds available cash.
	assert.True(t, res.Notional.LessThanOrEqual(decimal.NewFromInt(100_000)))
}

func TestBuyBelowMinimumSkipsWithoutSubmission(t *testing.T) {
	exch := &recordingExchange{}
	e := testEngine(exch)

	res := e.Execute(context.Background(), buyDecision(0.8),
		snapshot("4999", "0", "0", "50000000"))

	assert.Equal(t, types.OutcomeInsufficientFunds, res.Outcome)
	assert.Equal(t, types.ActionNone, res.ActionTaken)
	assert.Equal(t, 0, exch.buys, "no order may be submitted")
	assert.True(t, res.Notional.IsZero())
}

func TestBuyAtExactMinimumFloorsNotional(t *testing.T) {
	exch := &recordingExchange{receipt: types.OrderReceipt{OrderID: "ord-1"}}
	e := testEngine(exch)

	// cash 5000: ratio gives 4750, floored back up to the 5000 minimum.
	res := e.Execute(context.Background(), buyDecision(0.8),
		snapshot("5000", "0", "0", "50000000"))

	assert.Equal(t, types.OutcomeExecuted, res.Outcome)
	assert.True(t, res.Notional.Equal(decimal.NewFromInt(5000)), "notional %s", res.Notional)
	assert.True(t, res.Notional.LessThanOrEqual(decimal.NewFromInt(5000)), "solvency holds at the floor")
}

func TestSellRatioOfBalance(t *testing.T) {
	exch := &recordingExchange{receipt: types.OrderReceipt{OrderID: "ord-2"}}
	e := testEngine(exch)

	res := e.Execute(context.Background(), sellDecision(),
		snapshot("0", "0.002", "48000000", "50000000"))

	assert.Equal(t, types.OutcomeExecuted, res.Outcome)
	assert.Equal(t, types.ActionSell, res.ActionTaken)
	// 0.002 * 0.95 = 0.0019, worth 95000 at mark, comfortably over minimum.
	assert.True(t, res.Quantity.Equal(decimal.RequireFromString("0.0019")), "quantity %s", res.Quantity)
	assert.True(t, res.Notional.Equal(decimal.NewFromInt(95_000)))
	assert.True(t, res.Fee.Equal(decimal.RequireFromString("47.5")))
	assert.True(t, exch.sellQuantity.LessThanOrEqual(decimal.RequireFromString("0.002")), "solvency")
}

func TestSellDustTieBreakSellsEntireBalance(t *testing.T) {
	exch := &recordingExchange{receipt: types.OrderReceipt{OrderID: "ord-3"}}
	e := testEngine(exch)

	// Position worth 5200: over the minimum, but 95% of it (4940) is not.
	res := e.Execute(context.Background(), sellDecision(),
		snapshot("0", "0.000104", "48000000", "50000000"))

	assert.Equal(t, types.OutcomeExecuted, res.Outcome)
	assert.True(t, res.Quantity.Equal(decimal.RequireFromString("0.000104")),
		"entire balance sold, got %s", res.Quantity)
}

func TestSellBelowMinimumSkipsWithoutSubmission(t *testing.T) {
	exch := &recordingExchange{}
	e := testEngine(exch)

	// Position worth 4999.5 at mark.
	res := e.Execute(context.Background(), sellDecision(),
		snapshot("0", "0.00009999", "48000000", "50000000"))

	assert.Equal(t, types.OutcomeBelowMinimum, res.Outcome)
	assert.Equal(t, 0, exch.sells)
}

func TestHoldDecisionRecordsPriceOnly(t *testing.T) {
	exch := &recordingExchange{}
	e := testEngine(exch)

	res := e.Execute(context.Background(), types.HoldDecision("no clear signal"),
		snapshot("100000", "0.002", "48000000", "50000000"))

	assert.Equal(t, types.ActionHold, res.ActionTaken)
	assert.Equal(t, types.OutcomeHeld, res.Outcome)
	assert.True(t, res.Price.Equal(decimal.NewFromInt(50_000_000)))
	assert.Equal(t, 0, exch.buys+exch.sells)
}

func TestInvalidDecisionTreatedAsHold(t *testing.T) {
	exch := &recordingExchange{}
	e := testEngine(exch)

	res := e.Execute(context.Background(), buyDecision(1.7),
		snapshot("100000", "0", "0", "50000000"))

	assert.Equal(t, types.ActionHold, res.ActionTaken)
	assert.Equal(t, types.OutcomeHeld, res.Outcome)
	assert.Contains(t, res.Reason, "decision rejected")
	assert.Equal(t, 0, exch.buys)
}

func TestUnknownMarkPriceBlocksSizing(t *testing.T) {
	exch := &recordingExchange{}
	e := testEngine(exch)

	res := e.Execute(context.Background(), buyDecision(0.8),
		snapshot("100000", "0", "0", "0"))

	assert.Equal(t, types.OutcomeError, res.Outcome)
	assert.Equal(t, 0, exch.buys)

	res = e.Execute(context.Background(), sellDecision(),
		snapshot("0", "0.002", "48000000", "0"))
	assert.Equal(t, types.OutcomeError, res.Outcome)
	assert.Equal(t, 0, exch.sells)
}

func TestTypedRejectionMapsToRejectedOutcome(t *testing.T) {
	exch := &recordingExchange{err: interfaces.ErrOrderRejected}
	e := testEngine(exch)

	res := e.Execute(context.Background(), buyDecision(0.8),
		snapshot("100000", "0", "0", "50000000"))

	assert.Equal(t, types.OutcomeRejectedByExchange, res.Outcome)
	assert.Equal(t, types.ActionNone, res.ActionTaken)
	assert.Equal(t, 1, exch.buys, "submission happened exactly once, no retry")
}

func TestSubmissionErrorMapsToErrorOutcome(t *testing.T) {
	exch := &recordingExchange{err: errors.New("connection reset")}
	e := testEngine(exch)

	res := e.Execute(context.Background(), sellDecision(),
		snapshot("0", "0.002", "48000000", "50000000"))

	assert.Equal(t, types.OutcomeError, res.Outcome)
	assert.Equal(t, types.ActionNone, res.ActionTaken)
	assert.Contains(t, res.Reason, "connection reset")
	assert.Equal(t, 1, exch.sells, "no retry after failure")
}

func TestEmptyReceiptIsAnError(t *testing.T) {
	exch := &recordingExchange{receipt: types.OrderReceipt{}}
	e := testEngine(exch)

	res := e.Execute(context.Background(), buyDecision(0.8),
		snapshot("100000", "0", "0", "50000000"))

	assert.Equal(t, types.OutcomeError, res.Outcome)
	assert.Contains(t, res.Reason, "empty order receipt")
}

func TestInvalidSnapshotIsAnError(t *testing.T) {
	exch := &recordingExchange{}
	e := testEngine(exch)

	res := e.Execute(context.Background(), buyDecision(0.8), types.AccountSnapshot{
		CashBalance:   decimal.NewFromInt(-1),
		AssetBalance:  decimal.Zero,
		AssetAvgPrice: decimal.Zero,
		MarkPrice:     decimal.NewFromInt(50_000_000),
	})

	require.Equal(t, types.OutcomeError, res.Outcome)
	assert.Equal(t, 0, exch.buys)
}
