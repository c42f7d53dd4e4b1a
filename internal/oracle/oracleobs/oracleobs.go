package oracleobs

import (
	"context"

	"coin-trading-bot/internal/interfaces"
	"coin-trading-bot/internal/logger"
	"coin-trading-bot/internal/trace"
	"coin-trading-bot/internal/types"
)

// observableOracle wraps an Oracle with observability (logging & tracing)
type observableOracle struct {
	oracle interfaces.Oracle
}

// Compile-time interface check
var _ interfaces.Oracle = (*observableOracle)(nil)

// Wrap wraps an oracle with observability middleware
func Wrap(oracle interfaces.Oracle) interfaces.Oracle {
	return &observableOracle{
		oracle: oracle,
	}
}

// Decide requests a trading decision with observability
func (oo *observableOracle) Decide(ctx context.Context, market types.MarketContext, acct types.AccountSnapshot) (types.Decision, error) {
	ctx, span := trace.StartSpan(ctx, "oracle.Decide")
	defer span.End()

	// Use DebugSkip(1) to report the actual caller, not this middleware wrapper
	logger.DebugSkip(ctx, 1, "Requesting trading decision",
		"symbol", market.Symbol,
		"mark_price", market.MarkPrice.String(),
		"change_24h_pct", market.Change24hPct,
	)

	decision, err := oo.oracle.Decide(ctx, market, acct)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to get trading decision", err,
			"symbol", market.Symbol,
		)
		return types.Decision{}, err
	}

	logger.InfoSkip(ctx, 1, "Trading decision received",
		"symbol", market.Symbol,
		"action", decision.Action,
		"confidence", decision.Confidence,
		"risk_tier", decision.RiskTier,
	)

	return decision, nil
}
