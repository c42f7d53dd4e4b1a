package reflection

import (
	"context"
	"fmt"
	"time"

	"coin-trading-bot/internal/interfaces"
	"coin-trading-bot/internal/logger"
	"coin-trading-bot/internal/types"
)

// Reflector scores ledger entries after the fact. Immediate reflections run
// once per entry right after the cycle records it; periodic aggregation runs
// on the scheduler's cron cadences. Nothing here feeds back into execution.
type Reflector struct {
	ledger interfaces.Ledger
	now    func() time.Time
}

var _ interfaces.Reflector = (*Reflector)(nil)

func New(ledger interfaces.Ledger) *Reflector {
	return &Reflector{
		ledger: ledger,
		now:    time.Now,
	}
}

// Immediate scores a single entry and persists the reflection. Idempotent:
// if the entry already has an immediate reflection it is returned unchanged.
func (r *Reflector) Immediate(ctx context.Context, e types.LedgerEntry) (types.Reflection, error) {
	existing, err := r.ledger.ImmediateReflection(ctx, e.ID)
	if err != nil {
		return types.Reflection{}, fmt.Errorf("lookup immediate reflection: %w", err)
	}
	if existing != nil {
		logger.Debug(ctx, "Immediate reflection already exists", "entry_id", e.ID)
		return *existing, nil
	}

	pnl := entryPnL(e)
	refl := types.Reflection{
		LedgerEntryID:       e.ID,
		Kind:                types.ReflectionImmediate,
		PerformanceScore:    performanceScore(pnl, e.Decision.Confidence),
		PnL:                 pnl,
		PnLPercent:          pnlPercent(pnl, e.Result.Notional),
		DecisionQuality:     decisionQualityScore(e),
		TimingScore:         timingScore,
		RiskManagementScore: riskScore,
		Narrative:           narrative(e, pnl),
		Suggestions:         suggestions(e, pnl),
		CreatedAt:           r.now().UTC(),
	}

	id, err := r.ledger.AppendReflection(ctx, refl)
	if err != nil {
		return types.Reflection{}, fmt.Errorf("append immediate reflection: %w", err)
	}
	refl.ID = id
	return refl, nil
}

// Aggregate computes the performance window for [start, end), persists it and
// fans out one periodic reflection per entry carrying the aggregate scores.
// A window with no entries is returned zero-valued and nothing is written.
func (r *Reflector) Aggregate(ctx context.Context, kind types.PeriodKind, start, end time.Time) (types.PerformanceWindow, error) {
	entries, err := r.ledger.EntriesBetween(ctx, start, end)
	if err != nil {
		return types.PerformanceWindow{}, fmt.Errorf("load window entries: %w", err)
	}

	window := computeWindow(kind, start, end, entries)
	window.CreatedAt = r.now().UTC()

	if window.TotalTrades == 0 {
		logger.Info(ctx, "No trades in period, skipping aggregation",
			"period_kind", string(kind), "start", start, "end", end)
		return window, nil
	}

	id, err := r.ledger.AppendPerformanceWindow(ctx, window)
	if err != nil {
		return types.PerformanceWindow{}, fmt.Errorf("append performance window: %w", err)
	}
	window.ID = id

	for _, e := range entries {
		refl := types.Reflection{
			LedgerEntryID:       e.ID,
			Kind:                kind.ReflectionKind(),
			PerformanceScore:    window.WinRate,
			PnL:                 window.TotalPnL,
			PnLPercent:          window.TotalPnLPercent,
			DecisionQuality:     window.WinRate,
			TimingScore:         periodicTimingScore,
			RiskManagementScore: clamp01(1.0 - window.MaxDrawdown),
			Narrative:           windowNarrative(window),
			Suggestions:         windowSuggestions(window),
			CreatedAt:           r.now().UTC(),
		}
		if _, err := r.ledger.AppendReflection(ctx, refl); err != nil {
			return types.PerformanceWindow{}, fmt.Errorf("fan out reflection for entry %d: %w", e.ID, err)
		}
	}

	logger.Info(ctx, "Periodic reflection complete",
		"period_kind", string(kind),
		"total_trades", window.TotalTrades,
		"win_rate", window.WinRate,
		"total_pnl", window.TotalPnL.String())
	return window, nil
}
