package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"coin-trading-bot/internal/interfaces"
	"coin-trading-bot/internal/types"
)

// SQLiteLedger is the append-only persistence layer for trades and the
// reflection layer's records. Every write is a single INSERT; nothing is
// updated or deleted.
type SQLiteLedger struct {
	db *sql.DB
}

var _ interfaces.Ledger = (*SQLiteLedger)(nil)

func NewSQLite(path string) (*SQLiteLedger, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteLedger{db: db}, nil
}

// AppendEntry writes the decision, execution result, pre-cycle snapshot and
// market context as one row. Single-statement inserts are atomic in sqlite,
// so a partial record (result without decision) cannot be observed.
func (l *SQLiteLedger) AppendEntry(ctx context.Context, e types.LedgerEntry) (int64, error) {
	market, err := json.Marshal(e.Market)
	if err != nil {
		return 0, fmt.Errorf("marshal market context: %w", err)
	}

	res, err := l.db.ExecContext(ctx, `
		INSERT INTO trades
		(cycle_id, timestamp, decision, confidence, risk_tier, rationale,
		 expected_min, expected_max, action_taken, price, quantity, notional,
		 fee, order_id, outcome, reason, cash_before, asset_before,
		 avg_price_before, mark_price, market_data)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.CycleID, e.Timestamp.UTC(), string(e.Decision.Action), e.Decision.Confidence,
		string(e.Decision.RiskTier), e.Decision.Rationale,
		e.Decision.Expected.Min.String(), e.Decision.Expected.Max.String(),
		string(e.Result.ActionTaken), e.Result.Price.String(), e.Result.Quantity.String(),
		e.Result.Notional.String(), e.Result.Fee.String(), e.Result.OrderID,
		string(e.Result.Outcome), e.Result.Reason,
		e.Before.CashBalance.String(), e.Before.AssetBalance.String(),
		e.Before.AssetAvgPrice.String(), e.Before.MarkPrice.String(),
		string(market),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (l *SQLiteLedger) AppendReflection(ctx context.Context, r types.Reflection) (int64, error) {
	res, err := l.db.ExecContext(ctx, `
		INSERT INTO reflections
		(trade_id, kind, performance_score, pnl, pnl_percent,
		 decision_quality_score, timing_score, risk_management_score,
		 narrative, suggestions, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.LedgerEntryID, string(r.Kind), r.PerformanceScore, r.PnL.String(),
		r.PnLPercent, r.DecisionQuality, r.TimingScore, r.RiskManagementScore,
		r.Narrative, r.Suggestions, r.CreatedAt.UTC(),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (l *SQLiteLedger) AppendPerformanceWindow(ctx context.Context, w types.PerformanceWindow) (int64, error) {
	res, err := l.db.ExecContext(ctx, `
		INSERT INTO performance_windows
		(period_kind, period_start, period_end, total_trades, winning_trades,
		 losing_trades, win_rate, total_pnl, total_pnl_percent, max_drawdown,
		 sharpe_ratio, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(w.PeriodKind), w.Start.UTC(), w.End.UTC(), w.TotalTrades,
		w.WinningTrades, w.LosingTrades, w.WinRate, w.TotalPnL.String(),
		w.TotalPnLPercent, w.MaxDrawdown, w.SharpeRatio, w.CreatedAt.UTC(),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (l *SQLiteLedger) AppendInsight(ctx context.Context, in types.LearningInsight) (int64, error) {
	res, err := l.db.ExecContext(ctx, `
		INSERT INTO learning_insights
		(insight_type, title, description, confidence, priority, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		string(in.Type), in.Title, in.Description, in.Confidence,
		string(in.Priority), string(in.Status), in.CreatedAt.UTC(),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (l *SQLiteLedger) AppendImprovement(ctx context.Context, im types.StrategyImprovement) (int64, error) {
	res, err := l.db.ExecContext(ctx, `
		INSERT INTO strategy_improvements
		(improvement_type, old_value, new_value, reason, expected_impact,
		 success_metric, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		string(im.Type), im.OldValue, im.NewValue, im.Reason, im.ExpectedImpact,
		im.SuccessMetric, string(im.Status), im.CreatedAt.UTC(),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (l *SQLiteLedger) Close() error {
	return l.db.Close()
}

func parseDecimal(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

func scanEntry(rows interface {
	Scan(dest ...any) error
}) (types.LedgerEntry, error) {
	var (
		e      types.LedgerEntry
		ts     time.Time
		market string
		dec    [10]string // decimal columns in scan order
	)

	err := rows.Scan(
		&e.ID, &e.CycleID, &ts,
		(*string)(&e.Decision.Action), &e.Decision.Confidence,
		(*string)(&e.Decision.RiskTier), &e.Decision.Rationale,
		&dec[0], &dec[1],
		(*string)(&e.Result.ActionTaken), &dec[2], &dec[3], &dec[4], &dec[5],
		&e.Result.OrderID, (*string)(&e.Result.Outcome), &e.Result.Reason,
		&dec[6], &dec[7], &dec[8], &dec[9],
		&market,
	)
	if err != nil {
		return types.LedgerEntry{}, err
	}

	e.Timestamp = ts.UTC()
	fields := []*decimal.Decimal{
		&e.Decision.Expected.Min, &e.Decision.Expected.Max,
		&e.Result.Price, &e.Result.Quantity, &e.Result.Notional, &e.Result.Fee,
		&e.Before.CashBalance, &e.Before.AssetBalance,
		&e.Before.AssetAvgPrice, &e.Before.MarkPrice,
	}
	for i, f := range fields {
		d, err := parseDecimal(dec[i])
		if err != nil {
			return types.LedgerEntry{}, fmt.Errorf("column %d: %w", i, err)
		}
		*f = d
	}

	if err := json.Unmarshal([]byte(market), &e.Market); err != nil {
		return types.LedgerEntry{}, fmt.Errorf("unmarshal market context: %w", err)
	}
	return e, nil
}

const entryColumns = `id, cycle_id, timestamp, decision, confidence, risk_tier,
	rationale, expected_min, expected_max, action_taken, price, quantity,
	notional, fee, order_id, outcome, reason, cash_before, asset_before,
	avg_price_before, mark_price, market_data`
