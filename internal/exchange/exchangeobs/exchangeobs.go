package exchangeobs

import (
	"context"

	"github.com/shopspring/decimal"

	"coin-trading-bot/internal/interfaces"
	"coin-trading-bot/internal/logger"
	"coin-trading-bot/internal/trace"
	"coin-trading-bot/internal/types"
)

// Venue bundles the three exchange-facing ports a trading venue provides.
type Venue interface {
	interfaces.AccountReader
	interfaces.MarketData
	interfaces.Exchange
}

// observableVenue wraps a Venue with observability (logging & tracing)
type observableVenue struct {
	venue Venue
}

var _ Venue = (*observableVenue)(nil)

// Wrap wraps a venue with observability middleware
func Wrap(venue Venue) Venue {
	return &observableVenue{
		venue: venue,
	}
}

func (ov *observableVenue) Snapshot(ctx context.Context) (types.AccountSnapshot, error) {
	ctx, span := trace.StartSpan(ctx, "exchange.Snapshot")
	defer span.End()

	logger.DebugSkip(ctx, 1, "Fetching account snapshot")

	snapshot, err := ov.venue.Snapshot(ctx)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch account snapshot", err)
		return types.AccountSnapshot{}, err
	}

	logger.DebugSkip(ctx, 1, "Account snapshot fetched",
		"cash", snapshot.CashBalance.String(),
		"asset", snapshot.AssetBalance.String(),
	)
	return snapshot, nil
}

func (ov *observableVenue) Ticker(ctx context.Context) (types.Ticker, error) {
	ctx, span := trace.StartSpan(ctx, "exchange.Ticker")
	defer span.End()

	logger.DebugSkip(ctx, 1, "Fetching ticker")

	ticker, err := ov.venue.Ticker(ctx)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch ticker", err)
		return types.Ticker{}, err
	}

	logger.DebugSkip(ctx, 1, "Ticker fetched",
		"price", ticker.Price.String(),
		"change_24h_pct", ticker.Change24hPct,
	)
	return ticker, nil
}

func (ov *observableVenue) SubmitMarketBuy(ctx context.Context, notional decimal.Decimal) (types.OrderReceipt, error) {
	ctx, span := trace.StartSpan(ctx, "exchange.SubmitMarketBuy")
	defer span.End()

	logger.InfoSkip(ctx, 1, "Submitting market buy", "notional", notional.String())

	receipt, err := ov.venue.SubmitMarketBuy(ctx, notional)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Market buy failed", err, "notional", notional.String())
		return types.OrderReceipt{}, err
	}

	logger.InfoSkip(ctx, 1, "Market buy submitted",
		"order_id", receipt.OrderID,
		"status", receipt.Status,
	)
	return receipt, nil
}

func (ov *observableVenue) SubmitMarketSell(ctx context.Context, quantity decimal.Decimal) (types.OrderReceipt, error) {
	ctx, span := trace.StartSpan(ctx, "exchange.SubmitMarketSell")
	defer span.End()

	logger.InfoSkip(ctx, 1, "Submitting market sell", "quantity", quantity.String())

	receipt, err := ov.venue.SubmitMarketSell(ctx, quantity)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Market sell failed", err, "quantity", quantity.String())
		return types.OrderReceipt{}, err
	}

	logger.InfoSkip(ctx, 1, "Market sell submitted",
		"order_id", receipt.OrderID,
		"status", receipt.Status,
	)
	return receipt, nil
}
