package reflection

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"coin-trading-bot/internal/types"
)

// Fixed score components. Timing and risk have no per-trade signal at this
// layer, so immediate reflections carry neutral-leaning constants and
// periodic ones derive risk from the window's drawdown.
const (
	timingScore         = 0.6
	riskScore           = 0.7
	periodicTimingScore = 0.5
)

// entryPnL is the realized P&L attributed to one ledger entry. A sell
// realizes (price - avg entry price) * quantity minus the fee; a buy only
// pays its fee at this point; everything else moved no money.
func entryPnL(e types.LedgerEntry) decimal.Decimal {
	if e.Result.Outcome != types.OutcomeExecuted {
		return decimal.Zero
	}

	switch e.Result.ActionTaken {
	case types.ActionSell:
		gross := e.Result.Price.Sub(e.Before.AssetAvgPrice).Mul(e.Result.Quantity)
		return gross.Sub(e.Result.Fee)
	case types.ActionBuy:
		return e.Result.Fee.Neg()
	default:
		return decimal.Zero
	}
}

func pnlPercent(pnl, notional decimal.Decimal) float64 {
	if notional.IsZero() {
		return 0
	}
	pct, _ := pnl.Div(notional).Mul(decimal.NewFromInt(100)).Float64()
	return pct
}

// performanceScore starts from a neutral 0.5, moves on realized direction
// and nudges by how far the decision's confidence sat from neutral.
func performanceScore(pnl decimal.Decimal, confidence float64) float64 {
	score := 0.5
	if pnl.IsPositive() {
		score += 0.3
	} else if pnl.IsNegative() {
		score -= 0.2
	}
	score += (confidence - 0.5) * 0.2
	return clamp01(score)
}

// decisionQualityScore checks whether the action agreed with the 24h trend.
func decisionQualityScore(e types.LedgerEntry) float64 {
	switch {
	case e.Result.ActionTaken == types.ActionBuy && e.Market.Change24hPct > 0:
		return 0.8
	case e.Result.ActionTaken == types.ActionSell && e.Market.Change24hPct < 0:
		return 0.8
	default:
		return 0.5
	}
}

func clamp01(v float64) float64 {
	return math.Max(0.0, math.Min(1.0, v))
}

// computeWindow aggregates the entries of one half-open [start, end) period.
// Entries arrive ordered by timestamp, which the drawdown walk relies on.
func computeWindow(kind types.PeriodKind, start, end time.Time, entries []types.LedgerEntry) types.PerformanceWindow {
	w := types.PerformanceWindow{
		PeriodKind: kind,
		Start:      start.UTC(),
		End:        end.UTC(),
		TotalPnL:   decimal.Zero,
	}
	if len(entries) == 0 {
		return w
	}

	var (
		pnls          = make([]decimal.Decimal, 0, len(entries))
		totalNotional = decimal.Zero
	)
	for _, e := range entries {
		pnl := entryPnL(e)
		pnls = append(pnls, pnl)
		w.TotalPnL = w.TotalPnL.Add(pnl)
		totalNotional = totalNotional.Add(e.Result.Notional)

		if pnl.IsPositive() {
			w.WinningTrades++
		} else if pnl.IsNegative() {
			w.LosingTrades++
		}
	}

	w.TotalTrades = len(entries)
	w.WinRate = float64(w.WinningTrades) / float64(w.TotalTrades)
	w.TotalPnLPercent = pnlPercent(w.TotalPnL, totalNotional)
	w.MaxDrawdown = maxDrawdown(pnls, totalNotional)
	w.SharpeRatio = sharpeRatio(pnls)
	return w
}

// maxDrawdown walks the cumulative P&L sequence and reports the deepest
// peak-to-trough decline, normalized by the window's traded notional so the
// value is a fraction comparable across windows.
func maxDrawdown(pnls []decimal.Decimal, totalNotional decimal.Decimal) float64 {
	if totalNotional.IsZero() {
		return 0
	}

	var (
		equity = decimal.Zero
		peak   = decimal.Zero
		worst  = decimal.Zero
	)
	for _, pnl := range pnls {
		equity = equity.Add(pnl)
		if equity.GreaterThan(peak) {
			peak = equity
		}
		if dd := peak.Sub(equity); dd.GreaterThan(worst) {
			worst = dd
		}
	}

	dd, _ := worst.Div(totalNotional).Float64()
	return dd
}

// sharpeRatio is mean over population standard deviation of the per-trade
// P&L sequence. Fewer than two trades or zero variance yields zero.
func sharpeRatio(pnls []decimal.Decimal) float64 {
	if len(pnls) < 2 {
		return 0
	}

	vals := make([]float64, len(pnls))
	var sum float64
	for i, p := range pnls {
		vals[i], _ = p.Float64()
		sum += vals[i]
	}
	mean := sum / float64(len(vals))

	var variance float64
	for _, v := range vals {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(vals))

	if variance == 0 {
		return 0
	}
	return mean / math.Sqrt(variance)
}

func narrative(e types.LedgerEntry, pnl decimal.Decimal) string {
	base := fmt.Sprintf("%s cycle for %s: action %s, outcome %s at price %s",
		e.Decision.Action, e.Market.Symbol, e.Result.ActionTaken,
		e.Result.Outcome, e.Result.Price.String())

	switch {
	case pnl.IsPositive():
		return base + fmt.Sprintf("; realized profit %s", pnl.String())
	case pnl.IsNegative():
		return base + fmt.Sprintf("; realized loss %s", pnl.String())
	default:
		return base
	}
}

func suggestions(e types.LedgerEntry, pnl decimal.Decimal) string {
	switch {
	case e.Result.Outcome == types.OutcomeInsufficientFunds:
		return "cash below minimum trade amount; wait for settled funds or adjust trade ratio"
	case e.Result.Outcome == types.OutcomeBelowMinimum:
		return "position too small to reduce; accumulate before the next sell signal"
	case e.Result.Outcome == types.OutcomeRejectedByExchange:
		return "review order parameters against current exchange constraints"
	case pnl.IsNegative():
		return "review entry conditions for this market trend before the next cycle"
	default:
		return "maintain current approach and keep monitoring market conditions"
	}
}

func windowNarrative(w types.PerformanceWindow) string {
	return fmt.Sprintf("%s review: %d trades, win rate %.2f, total P&L %s (%.2f%%)",
		w.PeriodKind, w.TotalTrades, w.WinRate, w.TotalPnL.String(), w.TotalPnLPercent)
}

func windowSuggestions(w types.PerformanceWindow) string {
	switch {
	case w.WinRate < 0.5:
		return "tighten entry conditions to improve win rate"
	case w.MaxDrawdown > 0.1:
		return "strengthen risk controls to reduce drawdown"
	case w.TotalPnL.IsNegative():
		return "adjust exit strategy to improve the profit and loss balance"
	default:
		return "current strategy performing adequately for this period"
	}
}
