package interfaces

import (
	"context"

	"coin-trading-bot/internal/types"
)

// Engine converts a validated decision plus current balances into exactly
// one execution result. Execute never returns an error: every failure path
// resolves to an outcome value on the result.
type Engine interface {
	Execute(ctx context.Context, d types.Decision, acct types.AccountSnapshot) types.ExecutionResult
}
