package interfaces

import (
	"context"
	"time"

	"coin-trading-bot/internal/types"
)

// Reflector scores completed ledger entries and aggregates them into
// periodic performance windows.
type Reflector interface {
	// Immediate creates (or returns the existing) immediate reflection for
	// one ledger entry. Calling it twice for the same entry never produces a
	// second row.
	Immediate(ctx context.Context, e types.LedgerEntry) (types.Reflection, error)

	// Aggregate computes the [start, end) performance window for kind and
	// fans out one periodic reflection per entry in the window. An empty
	// window is a no-op, not an error.
	Aggregate(ctx context.Context, kind types.PeriodKind, start, end time.Time) (types.PerformanceWindow, error)
}
