package interfaces

import (
	"context"
	"time"

	"coin-trading-bot/internal/types"
)

// Ledger is the persistence port for the append-only trade ledger and the
// reflection layer's records. All writes are inserts; nothing is updated in
// place.
type Ledger interface {
	AppendEntry(ctx context.Context, e types.LedgerEntry) (int64, error)
	EntriesBetween(ctx context.Context, start, end time.Time) ([]types.LedgerEntry, error)
	RecentEntries(ctx context.Context, n int) ([]types.LedgerEntry, error)

	AppendReflection(ctx context.Context, r types.Reflection) (int64, error)
	ImmediateReflection(ctx context.Context, entryID int64) (*types.Reflection, error)
	RecentReflections(ctx context.Context, n int) ([]types.Reflection, error)

	AppendPerformanceWindow(ctx context.Context, w types.PerformanceWindow) (int64, error)
	LatestPerformanceWindow(ctx context.Context, kind types.PeriodKind, start, end time.Time) (*types.PerformanceWindow, error)

	AppendInsight(ctx context.Context, in types.LearningInsight) (int64, error)
	AppendImprovement(ctx context.Context, im types.StrategyImprovement) (int64, error)

	Close() error
}
