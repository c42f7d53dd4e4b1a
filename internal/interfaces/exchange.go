package interfaces

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"coin-trading-bot/internal/types"
)

// ErrOrderRejected is returned by an Exchange when the venue refuses the
// order for business reasons (as opposed to transport failures).
var ErrOrderRejected = errors.New("order rejected by exchange")

// AccountReader reads the current balances for the traded symbol.
type AccountReader interface {
	Snapshot(ctx context.Context) (types.AccountSnapshot, error)
}

// MarketData reads current market stats for the traded symbol.
type MarketData interface {
	Ticker(ctx context.Context) (types.Ticker, error)
}

// Exchange submits market orders. A buy is sized by notional (quote
// currency), a sell by quantity (base currency).
type Exchange interface {
	SubmitMarketBuy(ctx context.Context, notional decimal.Decimal) (types.OrderReceipt, error)
	SubmitMarketSell(ctx context.Context, quantity decimal.Decimal) (types.OrderReceipt, error)
}
