package interfaces

import (
	"context"

	"coin-trading-bot/internal/types"
)

// Oracle turns a market context into a structured trading recommendation.
// Its output is untrusted and validated by the engine before use.
type Oracle interface {
	Decide(ctx context.Context, mkt types.MarketContext, acct types.AccountSnapshot) (types.Decision, error)
}
