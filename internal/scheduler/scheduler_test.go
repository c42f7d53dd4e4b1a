package scheduler

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coin-trading-bot/internal/engine"
	"coin-trading-bot/internal/interfaces"
	"coin-trading-bot/internal/ledger"
	"coin-trading-bot/internal/reflection"
	"coin-trading-bot/internal/store"
	"coin-trading-bot/internal/types"
)

type fakeAccount struct {
	snapshot types.AccountSnapshot
	err      error
}

func (f *fakeAccount) Snapshot(ctx context.Context) (types.AccountSnapshot, error) {
	return f.snapshot, f.err
}

type fakeMarket struct {
	ticker types.Ticker
	err    error
}

func (f *fakeMarket) Ticker(ctx context.Context) (types.Ticker, error) {
	return f.ticker, f.err
}

type fakeOracle struct {
	decision types.Decision
	err      error
}

func (f *fakeOracle) Decide(ctx context.Context, m types.MarketContext, a types.AccountSnapshot) (types.Decision, error) {
	return f.decision, f.err
}

type fakeExchange struct {
	buys, sells int
	err         error
}

func (f *fakeExchange) SubmitMarketBuy(ctx context.Context, notional decimal.Decimal) (types.OrderReceipt, error) {
	f.buys++
	if f.err != nil {
		return types.OrderReceipt{}, f.err
	}
	return types.OrderReceipt{OrderID: "buy-1", Status: "done"}, nil
}

func (f *fakeExchange) SubmitMarketSell(ctx context.Context, quantity decimal.Decimal) (types.OrderReceipt, error) {
	f.sells++
	if f.err != nil {
		return types.OrderReceipt{}, f.err
	}
	return types.OrderReceipt{OrderID: "sell-1", Status: "done"}, nil
}

func testConfig() *store.Config {
	cfg := &store.Config{}
	cfg.Mode = "DRY_RUN"
	cfg.Symbol = "KRW-BTC"
	cfg.Trading.MinTradeAmount = 5000
	cfg.Trading.TradeRatio = 0.95
	cfg.Trading.FeeRate = 0.0005
	cfg.Schedule.AnalysisIntervalSeconds = 300
	cfg.Schedule.CooldownSeconds = 60
	cfg.Schedule.DailyCron = "0 0 * * *"
	cfg.Schedule.WeeklyCron = "0 0 * * 1"
	cfg.Schedule.MonthlyCron = "0 0 1 * *"
	cfg.Timeouts.CollaboratorSeconds = 5
	return cfg
}

func testScheduler(t *testing.T, cfg *store.Config, oracle interfaces.Oracle, exch interfaces.Exchange) (*Scheduler, *ledger.SQLiteLedger) {
	t.Helper()

	l, err := ledger.NewSQLite(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })

	deps := Deps{
		Account: &fakeAccount{snapshot: types.AccountSnapshot{
			CashBalance:   decimal.NewFromInt(100_000),
			AssetBalance:  decimal.Zero,
			AssetAvgPrice: decimal.Zero,
		}},
		Market: &fakeMarket{ticker: types.Ticker{
			Price:        decimal.NewFromInt(50_000_000),
			Change24hPct: 1.5,
			Volume24h:    1000,
		}},
		Oracle:    oracle,
		Engine:    engine.New(cfg, exch),
		Ledger:    l,
		Reflector: reflection.New(l),
	}
	return New(cfg, deps), l
}

func TestRunCycleRecordsEntryAndReflection(t *testing.T) {
	cfg := testConfig()
	oracle := &fakeOracle{decision: types.Decision{
		Action:     types.ActionBuy,
		Confidence: 0.8,
		RiskTier:   types.RiskMedium,
		Rationale:  "upward momentum",
	}}
	exch := &fakeExchange{}
	s, l := testScheduler(t, cfg, oracle, exch)

	require.NoError(t, s.RunCycle(context.Background()))
	assert.Equal(t, 1, exch.buys)

	entries, err := l.RecentEntries(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, types.OutcomeExecuted, entries[0].Result.Outcome)
	assert.Equal(t, "KRW-BTC", entries[0].Market.Symbol)
	assert.True(t, entries[0].Before.MarkPrice.Equal(decimal.NewFromInt(50_000_000)),
		"snapshot carries the cycle's mark price")

	refl, err := l.ImmediateReflection(context.Background(), entries[0].ID)
	require.NoError(t, err)
	require.NotNil(t, refl, "every recorded cycle gets an immediate reflection")
}

func TestRunCycleOracleFailurePropagates(t *testing.T) {
	cfg := testConfig()
	oracle := &fakeOracle{err: errors.New("llm unavailable")}
	exch := &fakeExchange{}
	s, l := testScheduler(t, cfg, oracle, exch)

	err := s.RunCycle(context.Background())
	require.Error(t, err)
	assert.Equal(t, 0, exch.buys, "no order without a decision")

	entries, lerr := l.RecentEntries(context.Background(), 10)
	require.NoError(t, lerr)
	assert.Empty(t, entries, "failed cycle records nothing")
}

func TestRunCycleInvalidDecisionFallsBackToHold(t *testing.T) {
	cfg := testConfig()
	oracle := &fakeOracle{decision: types.Decision{
		Action:     types.ActionBuy,
		Confidence: 1.7, // out of range
		RiskTier:   types.RiskHigh,
	}}
	exch := &fakeExchange{}
	s, l := testScheduler(t, cfg, oracle, exch)

	require.NoError(t, s.RunCycle(context.Background()))
	assert.Equal(t, 0, exch.buys)

	entries, err := l.RecentEntries(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, types.ActionHold, entries[0].Result.ActionTaken)
	assert.Equal(t, types.OutcomeHeld, entries[0].Result.Outcome)
}

func TestRunCycleSurvivesShutdownSignal(t *testing.T) {
	cfg := testConfig()
	oracle := &fakeOracle{decision: types.HoldDecision("no clear signal")}
	exch := &fakeExchange{}
	s, l := testScheduler(t, cfg, oracle, exch)

	// A cancelled parent must not sever an in-flight cycle: the ledger
	// write still happens.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, s.RunCycle(ctx))

	entries, err := l.RecentEntries(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestRunReflectionPersistsAdvisories(t *testing.T) {
	cfg := testConfig()
	oracle := &fakeOracle{decision: types.Decision{
		Action:     types.ActionBuy,
		Confidence: 0.7,
		RiskTier:   types.RiskMedium,
		Rationale:  "test",
	}}
	exch := &fakeExchange{}
	s, l := testScheduler(t, cfg, oracle, exch)

	// Pin time inside yesterday so the daily window covers the entry.
	yesterday := time.Now().UTC().AddDate(0, 0, -1)
	s.now = func() time.Time { return yesterday }
	require.NoError(t, s.RunCycle(context.Background()))

	s.now = time.Now
	s.RunReflection(context.Background(), types.PeriodDaily)

	start, end := previousDay(time.Now())
	w, err := l.LatestPerformanceWindow(context.Background(), types.PeriodDaily, start, end)
	require.NoError(t, err)
	require.NotNil(t, w)
	assert.Equal(t, 1, w.TotalTrades)

	// Immediate from the cycle plus the daily fan-out row.
	reflections, err := l.RecentReflections(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, reflections, 2)
}

func TestRunReflectionEmptyWindowWritesNothing(t *testing.T) {
	cfg := testConfig()
	s, l := testScheduler(t, cfg, &fakeOracle{}, &fakeExchange{})

	s.RunReflection(context.Background(), types.PeriodWeekly)

	start, end := previousWeek(time.Now())
	w, err := l.LatestPerformanceWindow(context.Background(), types.PeriodWeekly, start, end)
	require.NoError(t, err)
	assert.Nil(t, w)
}

// flakyAccount fails its first N snapshot calls and records when each call
// happened.
type flakyAccount struct {
	mu       sync.Mutex
	failures int
	calls    []time.Time
	snapshot types.AccountSnapshot
}

func (f *flakyAccount) Snapshot(ctx context.Context) (types.AccountSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, time.Now())
	if len(f.calls) <= f.failures {
		return types.AccountSnapshot{}, errors.New("balance service unavailable")
	}
	return f.snapshot, nil
}

func (f *flakyAccount) callTimes() []time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]time.Time(nil), f.calls...)
}

func TestRunSurvivesFailedCycleAndRearmsAfterCooldown(t *testing.T) {
	cfg := testConfig()
	s, l := testScheduler(t, cfg, &fakeOracle{decision: types.HoldDecision("idle")}, &fakeExchange{})

	account := &flakyAccount{failures: 1, snapshot: types.AccountSnapshot{
		CashBalance:   decimal.NewFromInt(100_000),
		AssetBalance:  decimal.Zero,
		AssetAvgPrice: decimal.Zero,
	}}
	s.deps.Account = account
	s.interval = 5 * time.Millisecond
	s.cooldown = 75 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool {
		entries, err := l.RecentEntries(context.Background(), 1)
		return err == nil && len(entries) == 1
	}, 5*time.Second, 10*time.Millisecond,
		"a failed cycle must not stop the loop; the next one completes")

	cancel()
	require.NoError(t, <-done)

	calls := account.callTimes()
	require.GreaterOrEqual(t, len(calls), 2)
	assert.GreaterOrEqual(t, calls[1].Sub(calls[0]), s.cooldown,
		"retry after a failed cycle waits the cooldown, not the interval")
}

// hangingLedger blocks AppendEntry until its context gives up. Only the
// overridden method is ever reached in these tests.
type hangingLedger struct {
	interfaces.Ledger
}

func (h *hangingLedger) AppendEntry(ctx context.Context, e types.LedgerEntry) (int64, error) {
	<-ctx.Done()
	return 0, ctx.Err()
}

type hangingReflector struct{}

func (hangingReflector) Immediate(ctx context.Context, e types.LedgerEntry) (types.Reflection, error) {
	<-ctx.Done()
	return types.Reflection{}, ctx.Err()
}

func (hangingReflector) Aggregate(ctx context.Context, kind types.PeriodKind, start, end time.Time) (types.PerformanceWindow, error) {
	return types.PerformanceWindow{}, nil
}

func TestRunCycleBoundsLedgerAppend(t *testing.T) {
	cfg := testConfig()
	s, _ := testScheduler(t, cfg, &fakeOracle{decision: types.HoldDecision("idle")}, &fakeExchange{})
	s.timeout = 50 * time.Millisecond
	s.deps.Ledger = &hangingLedger{}

	start := time.Now()
	err := s.RunCycle(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "append ledger entry")
	assert.Less(t, time.Since(start), 2*time.Second,
		"a hung ledger write must hit the collaborator timeout")
}

func TestRunCycleBoundsImmediateReflection(t *testing.T) {
	cfg := testConfig()
	s, l := testScheduler(t, cfg, &fakeOracle{decision: types.HoldDecision("idle")}, &fakeExchange{})
	s.timeout = 50 * time.Millisecond
	s.deps.Reflector = hangingReflector{}

	err := s.RunCycle(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "immediate reflection")

	// The entry itself landed before the reflection stalled.
	entries, lerr := l.RecentEntries(context.Background(), 10)
	require.NoError(t, lerr)
	assert.Len(t, entries, 1)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	cfg := testConfig()
	s, _ := testScheduler(t, cfg, &fakeOracle{decision: types.HoldDecision("idle")}, &fakeExchange{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop after cancellation")
	}
}
