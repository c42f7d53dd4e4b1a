package ledger

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"coin-trading-bot/internal/types"
)

// EntriesBetween returns entries with start <= timestamp < end, oldest first.
func (l *SQLiteLedger) EntriesBetween(ctx context.Context, start, end time.Time) ([]types.LedgerEntry, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM trades
		 WHERE timestamp >= ? AND timestamp < ?
		 ORDER BY timestamp ASC, id ASC`,
		start.UTC(), end.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectEntries(rows)
}

func (l *SQLiteLedger) RecentEntries(ctx context.Context, n int) ([]types.LedgerEntry, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM trades
		 ORDER BY timestamp DESC, id DESC LIMIT ?`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectEntries(rows)
}

func collectEntries(rows *sql.Rows) ([]types.LedgerEntry, error) {
	var entries []types.LedgerEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ImmediateReflection returns the immediate reflection for the given entry,
// or nil if none has been recorded yet.
func (l *SQLiteLedger) ImmediateReflection(ctx context.Context, entryID int64) (*types.Reflection, error) {
	row := l.db.QueryRowContext(ctx,
		`SELECT `+reflectionColumns+` FROM reflections
		 WHERE trade_id = ? AND kind = ? LIMIT 1`,
		entryID, string(types.ReflectionImmediate))

	r, err := scanReflection(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (l *SQLiteLedger) RecentReflections(ctx context.Context, n int) ([]types.Reflection, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT `+reflectionColumns+` FROM reflections
		 ORDER BY created_at DESC, id DESC LIMIT ?`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reflections []types.Reflection
	for rows.Next() {
		r, err := scanReflection(rows)
		if err != nil {
			return nil, err
		}
		reflections = append(reflections, r)
	}
	return reflections, rows.Err()
}

// LatestPerformanceWindow returns the most recently computed aggregate for
// the given period, or nil if the period was never aggregated. Recomputation
// appends superseding rows, so the newest row wins.
func (l *SQLiteLedger) LatestPerformanceWindow(ctx context.Context, kind types.PeriodKind, start, end time.Time) (*types.PerformanceWindow, error) {
	row := l.db.QueryRowContext(ctx,
		`SELECT id, period_kind, period_start, period_end, total_trades,
		        winning_trades, losing_trades, win_rate, total_pnl,
		        total_pnl_percent, max_drawdown, sharpe_ratio, created_at
		 FROM performance_windows
		 WHERE period_kind = ? AND period_start = ? AND period_end = ?
		 ORDER BY id DESC LIMIT 1`,
		string(kind), start.UTC(), end.UTC())

	var (
		w        types.PerformanceWindow
		totalPnL string
	)
	err := row.Scan(&w.ID, (*string)(&w.PeriodKind), &w.Start, &w.End,
		&w.TotalTrades, &w.WinningTrades, &w.LosingTrades, &w.WinRate,
		&totalPnL, &w.TotalPnLPercent, &w.MaxDrawdown, &w.SharpeRatio,
		&w.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	w.Start = w.Start.UTC()
	w.End = w.End.UTC()
	w.CreatedAt = w.CreatedAt.UTC()
	if w.TotalPnL, err = parseDecimal(totalPnL); err != nil {
		return nil, err
	}
	return &w, nil
}

const reflectionColumns = `id, trade_id, kind, performance_score, pnl,
	pnl_percent, decision_quality_score, timing_score, risk_management_score,
	narrative, suggestions, created_at`

func scanReflection(row interface {
	Scan(dest ...any) error
}) (types.Reflection, error) {
	var (
		r   types.Reflection
		pnl string
	)
	err := row.Scan(&r.ID, &r.LedgerEntryID, (*string)(&r.Kind),
		&r.PerformanceScore, &pnl, &r.PnLPercent, &r.DecisionQuality,
		&r.TimingScore, &r.RiskManagementScore, &r.Narrative, &r.Suggestions,
		&r.CreatedAt)
	if err != nil {
		return types.Reflection{}, err
	}

	r.CreatedAt = r.CreatedAt.UTC()
	if r.PnL, err = parseDecimal(pnl); err != nil {
		return types.Reflection{}, err
	}
	return r, nil
}
