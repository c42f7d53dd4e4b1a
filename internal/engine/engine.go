package engine

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"coin-trading-bot/internal/interfaces"
	"coin-trading-bot/internal/logger"
	"coin-trading-bot/internal/store"
	"coin-trading-bot/internal/types"
)

// Engine turns one validated decision plus the current account snapshot into
// exactly one ExecutionResult. It owns the solvency and minimum-size checks
// and is the only component that submits orders.
type Engine struct {
	exch       interfaces.Exchange
	minTrade   decimal.Decimal
	tradeRatio decimal.Decimal
	feeRate    decimal.Decimal
}

func New(cfg *store.Config, exch interfaces.Exchange) *Engine {
	return &Engine{
		exch:       exch,
		minTrade:   decimal.NewFromFloat(cfg.Trading.MinTradeAmount),
		tradeRatio: decimal.NewFromFloat(cfg.Trading.TradeRatio),
		feeRate:    decimal.NewFromFloat(cfg.Trading.FeeRate),
	}
}

// Execute never returns an error: all failure paths resolve to an outcome on
// the result. The order submission is the only side effect.
func (e *Engine) Execute(ctx context.Context, d types.Decision, acct types.AccountSnapshot) types.ExecutionResult {
	res := types.ExecutionResult{
		ActionTaken: types.ActionNone,
		Price:       acct.MarkPrice,
	}

	if err := d.Validate(); err != nil {
		logger.Warn(ctx, "Decision rejected, falling back to hold", "error", err)
		res.ActionTaken = types.ActionHold
		res.Outcome = types.OutcomeHeld
		res.Reason = "decision rejected: " + err.Error()
		return res
	}
	if err := acct.Validate(); err != nil {
		res.Outcome = types.OutcomeError
		res.Reason = "invalid account snapshot: " + err.Error()
		return res
	}

	switch d.Action {
	case types.ActionBuy:
		return e.executeBuy(ctx, acct, res)
	case types.ActionSell:
		return e.executeSell(ctx, acct, res)
	default:
		res.ActionTaken = types.ActionHold
		res.Outcome = types.OutcomeHeld
		res.Reason = "hold decision"
		return res
	}
}

func (e *Engine) executeBuy(ctx context.Context, acct types.AccountSnapshot, res types.ExecutionResult) types.ExecutionResult {
	if acct.MarkPrice.IsZero() {
		res.Outcome = types.OutcomeError
		res.Reason = "mark price unknown"
		return res
	}

	if acct.CashBalance.LessThan(e.minTrade) {
		logger.Info(ctx, "Buy skipped: cash below minimum trade amount",
			"cash", acct.CashBalance.String(), "min_trade_amount", e.minTrade.String())
		res.Outcome = types.OutcomeInsufficientFunds
		res.Reason = "cash balance below minimum trade amount"
		return res
	}

	// Commit the trade ratio of available cash, floored at the exchange
	// minimum. Fee comes out of the notional before quantity is derived.
	notional := acct.CashBalance.Mul(e.tradeRatio)
	if notional.LessThan(e.minTrade) {
		notional = e.minTrade
	}
	fee := notional.Mul(e.feeRate)
	quantity := notional.Sub(fee).Div(acct.MarkPrice)

	res.Notional = notional
	res.Fee = fee
	res.Quantity = quantity

	receipt, err := e.exch.SubmitMarketBuy(ctx, notional)
	res.ActionTaken, res.OrderID, res.Outcome, res.Reason = classify(types.ActionBuy, receipt, err)
	return res
}

func (e *Engine) executeSell(ctx context.Context, acct types.AccountSnapshot, res types.ExecutionResult) types.ExecutionResult {
	if acct.MarkPrice.IsZero() {
		res.Outcome = types.OutcomeError
		res.Reason = "mark price unknown"
		return res
	}

	positionValue := acct.AssetBalance.Mul(acct.MarkPrice)
	if positionValue.LessThan(e.minTrade) {
		logger.Info(ctx, "Sell skipped: position below minimum trade amount",
			"position_value", positionValue.String(), "min_trade_amount", e.minTrade.String())
		res.Outcome = types.OutcomeBelowMinimum
		res.Reason = "position value below minimum trade amount"
		return res
	}

	// Sell the trade ratio of the balance, but if the ratio-reduced notional
	// would fall under the minimum, sell the entire balance instead so no
	// un-sellable dust position is left behind.
	quantity := acct.AssetBalance.Mul(e.tradeRatio)
	if quantity.Mul(acct.MarkPrice).LessThan(e.minTrade) {
		quantity = acct.AssetBalance
	}
	notional := quantity.Mul(acct.MarkPrice)
	fee := notional.Mul(e.feeRate)

	res.Quantity = quantity
	res.Notional = notional
	res.Fee = fee

	receipt, err := e.exch.SubmitMarketSell(ctx, quantity)
	res.ActionTaken, res.OrderID, res.Outcome, res.Reason = classify(types.ActionSell, receipt, err)
	return res
}

// classify maps the submission outcome onto the terminal result states.
// There is no retry here: retrying a submitted market order risks double
// execution, so failures wait for the next scheduled cycle.
func classify(action types.Action, receipt types.OrderReceipt, err error) (types.Action, string, types.Outcome, string) {
	switch {
	case errors.Is(err, interfaces.ErrOrderRejected):
		return types.ActionNone, receipt.OrderID, types.OutcomeRejectedByExchange, "order rejected by exchange"
	case err != nil:
		return types.ActionNone, "", types.OutcomeError, "order submission failed: " + err.Error()
	case receipt.OrderID == "":
		return types.ActionNone, "", types.OutcomeError, "exchange returned empty order receipt"
	default:
		return action, receipt.OrderID, types.OutcomeExecuted, ""
	}
}
