package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"coin-trading-bot/internal/id"
	"coin-trading-bot/internal/interfaces"
	"coin-trading-bot/internal/logger"
	"coin-trading-bot/internal/reflection"
	"coin-trading-bot/internal/store"
	"coin-trading-bot/internal/types"
)

// Deps are the collaborators one trading cycle touches. Headlines is
// optional; everything else is required.
type Deps struct {
	Account   interfaces.AccountReader
	Market    interfaces.MarketData
	Oracle    interfaces.Oracle
	Engine    interfaces.Engine
	Ledger    interfaces.Ledger
	Reflector interfaces.Reflector
	Headlines interfaces.HeadlineSource
}

// Scheduler owns the trading cycle timer and the periodic reflection cron
// jobs. Cycles run inline on the Run goroutine, so they never overlap; cron
// jobs run concurrently with cycles but never with themselves.
type Scheduler struct {
	cfg      *store.Config
	deps     Deps
	interval time.Duration
	cooldown time.Duration
	timeout  time.Duration
	now      func() time.Time
}

func New(cfg *store.Config, deps Deps) *Scheduler {
	return &Scheduler{
		cfg:      cfg,
		deps:     deps,
		interval: time.Duration(cfg.Schedule.AnalysisIntervalSeconds) * time.Second,
		cooldown: time.Duration(cfg.Schedule.CooldownSeconds) * time.Second,
		timeout:  time.Duration(cfg.Timeouts.CollaboratorSeconds) * time.Second,
		now:      time.Now,
	}
}

// Run blocks until ctx is cancelled. On shutdown the in-flight cycle is
// finished through its ledger write and running cron jobs are waited out
// before Run returns.
func (s *Scheduler) Run(ctx context.Context) error {
	c, err := s.startCron(ctx)
	if err != nil {
		return err
	}

	logger.Info(ctx, "Scheduler started",
		"analysis_interval", s.interval.String(),
		"cooldown", s.cooldown.String())

	timer := time.NewTimer(s.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			<-c.Stop().Done()
			logger.Info(ctx, "Scheduler stopped")
			return nil
		case <-timer.C:
			delay := s.interval
			if err := s.RunCycle(ctx); err != nil {
				logger.ErrorWithErr(ctx, "Trading cycle failed, entering cooldown", err,
					"cooldown", s.cooldown.String())
				delay = s.cooldown
			}
			timer.Reset(delay)
		}
	}
}

// RunCycle executes one full trading cycle: snapshot, market context, oracle
// decision, execution, ledger write, immediate reflection. A cycle started
// before shutdown completes even if ctx is cancelled mid-flight; only the
// per-collaborator timeouts bound it.
func (s *Scheduler) RunCycle(ctx context.Context) error {
	cycleID := id.New()
	ctx = context.WithoutCancel(ctx)
	timer := logger.StartOperation(ctx, "trading_cycle", "cycle_id", cycleID)
	ctx = timer.GetContext()

	snapshot, err := s.snapshot(ctx)
	if err != nil {
		timer.EndWithError(err)
		return fmt.Errorf("account snapshot: %w", err)
	}

	market, err := s.marketContext(ctx, snapshot)
	if err != nil {
		timer.EndWithError(err)
		return fmt.Errorf("market context: %w", err)
	}
	snapshot.MarkPrice = market.MarkPrice

	decision, err := s.decide(ctx, market, snapshot)
	if err != nil {
		timer.EndWithError(err)
		return fmt.Errorf("oracle decision: %w", err)
	}
	logger.Decision(ctx, s.cfg.Symbol, string(decision.Action), decision.Confidence, decision.Rationale)

	result := s.deps.Engine.Execute(ctx, decision, snapshot)

	entry := types.LedgerEntry{
		CycleID:   cycleID,
		Timestamp: s.now().UTC(),
		Decision:  decision,
		Result:    result,
		Before:    snapshot,
		Market:    market,
	}
	entry.ID, err = s.record(ctx, entry)
	if err != nil {
		timer.EndWithError(err)
		return fmt.Errorf("append ledger entry: %w", err)
	}
	logger.Trade(ctx, s.cfg.Symbol, string(result.ActionTaken),
		result.Quantity.String(), result.Price.String(), string(result.Outcome))

	if err := s.reflect(ctx, entry); err != nil {
		timer.EndWithError(err)
		return fmt.Errorf("immediate reflection: %w", err)
	}

	timer.End("outcome", string(result.Outcome))
	return nil
}

func (s *Scheduler) snapshot(ctx context.Context) (types.AccountSnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.deps.Account.Snapshot(ctx)
}

func (s *Scheduler) marketContext(ctx context.Context, snapshot types.AccountSnapshot) (types.MarketContext, error) {
	tctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	ticker, err := s.deps.Market.Ticker(tctx)
	if err != nil {
		return types.MarketContext{}, err
	}

	market := types.MarketContext{
		Symbol:       s.cfg.Symbol,
		MarkPrice:    ticker.Price,
		Change24hPct: ticker.Change24hPct,
		Volume24h:    ticker.Volume24h,
	}

	// Headlines are best-effort context: a scraper failure must not block
	// the cycle.
	if s.deps.Headlines != nil {
		hctx, hcancel := context.WithTimeout(ctx, s.timeout)
		defer hcancel()
		headlines, err := s.deps.Headlines.Headlines(hctx)
		if err != nil {
			logger.Warn(ctx, "Headline fetch failed, continuing without news", "error", err.Error())
		} else {
			market.Headlines = headlines
		}
	}
	return market, nil
}

func (s *Scheduler) decide(ctx context.Context, market types.MarketContext, snapshot types.AccountSnapshot) (types.Decision, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.deps.Oracle.Decide(ctx, market, snapshot)
}

// record and reflect carry the per-collaborator timeout like the other
// collaborator calls; a hung persistence layer must not stall the loop. The
// caller's context is already shutdown-proof, so the deadline is the only
// way these return early.
func (s *Scheduler) record(ctx context.Context, entry types.LedgerEntry) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.deps.Ledger.AppendEntry(ctx, entry)
}

func (s *Scheduler) reflect(ctx context.Context, entry types.LedgerEntry) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	_, err := s.deps.Reflector.Immediate(ctx, entry)
	return err
}

// startCron wires the daily/weekly/monthly reflection jobs. SkipIfStillRunning
// keeps each cadence mutually exclusive with itself; different cadences and
// the trading cycle run concurrently.
func (s *Scheduler) startCron(ctx context.Context) (*cron.Cron, error) {
	cl := cronLogger{}
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cl)), cron.WithLogger(cl))

	jobs := []struct {
		spec string
		kind types.PeriodKind
	}{
		{s.cfg.Schedule.DailyCron, types.PeriodDaily},
		{s.cfg.Schedule.WeeklyCron, types.PeriodWeekly},
		{s.cfg.Schedule.MonthlyCron, types.PeriodMonthly},
	}
	for _, j := range jobs {
		kind := j.kind
		if _, err := c.AddFunc(j.spec, func() { s.RunReflection(ctx, kind) }); err != nil {
			return nil, fmt.Errorf("schedule %s reflection (%q): %w", kind, j.spec, err)
		}
	}

	c.Start()
	return c, nil
}

// RunReflection aggregates the most recently completed period of the given
// kind and persists the derived advisory records.
func (s *Scheduler) RunReflection(ctx context.Context, kind types.PeriodKind) {
	ctx = context.WithoutCancel(ctx)
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start, end := periodWindow(kind, s.now())

	window, err := s.deps.Reflector.Aggregate(ctx, kind, start, end)
	if err != nil {
		logger.ErrorWithErr(ctx, "Periodic reflection failed", err, "period_kind", string(kind))
		return
	}
	if window.TotalTrades == 0 {
		return
	}

	entries, err := s.deps.Ledger.EntriesBetween(ctx, start, end)
	if err != nil {
		logger.ErrorWithErr(ctx, "Loading window entries for advisories failed", err, "period_kind", string(kind))
		return
	}

	now := s.now()
	for _, in := range reflection.Insights(window, entries, now) {
		if _, err := s.deps.Ledger.AppendInsight(ctx, in); err != nil {
			logger.ErrorWithErr(ctx, "Persisting insight failed", err, "title", in.Title)
		}
	}
	for _, im := range reflection.Improvements(window, now) {
		if _, err := s.deps.Ledger.AppendImprovement(ctx, im); err != nil {
			logger.ErrorWithErr(ctx, "Persisting improvement failed", err, "type", string(im.Type))
		}
	}
}

// cronLogger adapts the structured logger to the cron.Logger interface.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logger.Debug(context.Background(), "cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logger.ErrorWithErr(context.Background(), "cron: "+msg, err, keysAndValues...)
}
