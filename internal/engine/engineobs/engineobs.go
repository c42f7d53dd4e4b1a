package engineobs

import (
	"context"
	"time"

	"coin-trading-bot/internal/interfaces"
	"coin-trading-bot/internal/logger"
	"coin-trading-bot/internal/trace"
	"coin-trading-bot/internal/types"
)

type observableEngine struct {
	engine interfaces.Engine
}

var _ interfaces.Engine = (*observableEngine)(nil)

func Wrap(eng interfaces.Engine) interfaces.Engine {
	return &observableEngine{
		engine: eng,
	}
}

func (oe *observableEngine) Execute(ctx context.Context, d types.Decision, acct types.AccountSnapshot) types.ExecutionResult {
	ctx, span := trace.StartSpan(ctx, "engine.Execute")
	defer span.End()

	start := time.Now()

	result := oe.engine.Execute(ctx, d, acct)

	logger.InfoSkip(ctx, 1, "Execution completed",
		"action", d.Action,
		"confidence", d.Confidence,
		"action_taken", result.ActionTaken,
		"outcome", result.Outcome,
		"notional", result.Notional.String(),
		"quantity", result.Quantity.String(),
		"fee", result.Fee.String(),
		"order_id", result.OrderID,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return result
}
