package reflection

import (
	"fmt"
	"time"

	"coin-trading-bot/internal/types"
)

// Insights derives advisory observations from an aggregated window. Pure
// function; the caller persists what it wants to keep.
func Insights(w types.PerformanceWindow, entries []types.LedgerEntry, now time.Time) []types.LearningInsight {
	if w.TotalTrades == 0 {
		return nil
	}

	var insights []types.LearningInsight
	add := func(t types.InsightType, title, desc string, confidence float64, p types.Priority) {
		insights = append(insights, types.LearningInsight{
			Type:        t,
			Title:       title,
			Description: desc,
			Confidence:  confidence,
			Priority:    p,
			Status:      types.InsightDiscovered,
			CreatedAt:   now.UTC(),
		})
	}

	if w.WinningTrades > 0 {
		add(types.InsightPattern, "Winning trade pattern",
			fmt.Sprintf("%d of %d trades in the %s window closed profitable",
				w.WinningTrades, w.TotalTrades, w.PeriodKind),
			0.7, types.PriorityHigh)
	}
	if w.LosingTrades > 0 {
		add(types.InsightPattern, "Losing trade pattern",
			fmt.Sprintf("%d of %d trades in the %s window closed at a loss",
				w.LosingTrades, w.TotalTrades, w.PeriodKind),
			0.6, types.PriorityHigh)
	}
	if w.MaxDrawdown > 0.1 {
		add(types.InsightRisk, "Elevated drawdown",
			fmt.Sprintf("max drawdown reached %.2f of traded notional in the %s window",
				w.MaxDrawdown, w.PeriodKind),
			0.7, types.PriorityCritical)
	}

	add(types.InsightMarket, "Market condition performance",
		fmt.Sprintf("win rate %.2f over %d trades across the %s window's market conditions",
			w.WinRate, w.TotalTrades, w.PeriodKind),
		0.5, types.PriorityMedium)

	if skipped := countSkipped(entries); skipped > 0 {
		add(types.InsightTiming, "Skipped cycle frequency",
			fmt.Sprintf("%d of %d cycles skipped on size or solvency constraints", skipped, len(entries)),
			0.6, types.PriorityMedium)
	}

	return insights
}

func countSkipped(entries []types.LedgerEntry) int {
	n := 0
	for _, e := range entries {
		switch e.Result.Outcome {
		case types.OutcomeInsufficientFunds, types.OutcomeBelowMinimum:
			n++
		}
	}
	return n
}

// Improvements proposes strategy adjustments when window metrics cross the
// attention thresholds. Proposals are advisory records only; the engine
// never reads them.
func Improvements(w types.PerformanceWindow, now time.Time) []types.StrategyImprovement {
	if w.TotalTrades == 0 {
		return nil
	}

	var improvements []types.StrategyImprovement
	add := func(t types.ImprovementType, oldV, newV, reason, impact string, metric float64) {
		improvements = append(improvements, types.StrategyImprovement{
			Type:           t,
			OldValue:       oldV,
			NewValue:       newV,
			Reason:         reason,
			ExpectedImpact: impact,
			SuccessMetric:  metric,
			Status:         types.ImprovementProposed,
			CreatedAt:      now.UTC(),
		})
	}

	if w.WinRate < 0.5 {
		add(types.ImprovementCondition,
			"current entry conditions", "stricter entry conditions",
			fmt.Sprintf("win rate %.2f below break-even in the %s window", w.WinRate, w.PeriodKind),
			"higher win rate from fewer marginal entries", 0.5)
	}
	if w.MaxDrawdown > 0.1 {
		add(types.ImprovementRisk,
			"current position sizing", "reduced position sizing",
			fmt.Sprintf("max drawdown %.2f exceeded tolerance in the %s window", w.MaxDrawdown, w.PeriodKind),
			"shallower drawdowns at the cost of slower gains", 0.1)
	}
	if w.TotalPnL.IsNegative() {
		add(types.ImprovementParameter,
			"current exit strategy", "adjusted exit strategy",
			fmt.Sprintf("total P&L %s negative for the %s window", w.TotalPnL.String(), w.PeriodKind),
			"improved profit and loss balance", 0.0)
	}

	return improvements
}
