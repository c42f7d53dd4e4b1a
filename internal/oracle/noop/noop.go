package noop

import (
	"context"

	"coin-trading-bot/internal/logger"
	"coin-trading-bot/internal/types"
)

// Oracle is the fallback decider used when no LLM provider is configured
type Oracle struct{}

// New returns an oracle that always decides hold
func New() *Oracle {
	return &Oracle{}
}

// Decide implements the Oracle interface. It always returns hold with 0 confidence
func (o *Oracle) Decide(ctx context.Context, market types.MarketContext, acct types.AccountSnapshot) (types.Decision, error) {
	logger.Debug(ctx, "Noop oracle called - always returns hold", "symbol", market.Symbol)
	return types.HoldDecision("noop_oracle_fallback"), nil
}
