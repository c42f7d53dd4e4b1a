package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"coin-trading-bot/internal/engine"
	"coin-trading-bot/internal/engine/engineobs"
	"coin-trading-bot/internal/exchange/exchangeobs"
	"coin-trading-bot/internal/exchange/sim"
	"coin-trading-bot/internal/exchange/upbit"
	"coin-trading-bot/internal/interfaces"
	"coin-trading-bot/internal/ledger"
	"coin-trading-bot/internal/logger"
	"coin-trading-bot/internal/news"
	"coin-trading-bot/internal/oracle/noop"
	"coin-trading-bot/internal/oracle/openai"
	"coin-trading-bot/internal/oracle/oracleobs"
	"coin-trading-bot/internal/reflection"
	"coin-trading-bot/internal/store"
	"coin-trading-bot/internal/trace"
	"coin-trading-bot/internal/types"
)

// defaultSimCash seeds the DRY_RUN account when SIM_STARTING_CASH is unset.
const defaultSimCash = "1000000"

// initializeSystem loads environment variables and brings up the logger and
// tracer.
func initializeSystem() error {
	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if err := trace.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize tracer: %v\n", err)
	}

	return nil
}

func loadConfig(ctx context.Context) (*store.Config, error) {
	cfg, err := store.LoadConfig("config.yaml")
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to load config", err)
		return nil, err
	}
	return cfg, nil
}

// dryRunVenue pairs the in-memory exchange with live public market data. Each
// ticker read is fed back into the simulator so paper fills happen at the
// real mark price.
type dryRunVenue struct {
	*sim.Exchange
	market interfaces.MarketData
}

func (v *dryRunVenue) Ticker(ctx context.Context) (types.Ticker, error) {
	t, err := v.market.Ticker(ctx)
	if err != nil {
		return types.Ticker{}, err
	}
	v.Exchange.SetTicker(t)
	return t, nil
}

// initializeVenue selects the trading venue for the configured mode and wraps
// it with observability. LIVE talks to Upbit with the credentials from the
// environment; DRY_RUN keeps balances and fills in memory.
func initializeVenue(ctx context.Context, cfg *store.Config) exchangeobs.Venue {
	if cfg.Mode == "DRY_RUN" {
		logger.Warn(ctx, "Running in DRY_RUN mode - orders will be simulated")

		cash := os.Getenv("SIM_STARTING_CASH")
		if cash == "" {
			cash = defaultSimCash
		}
		startingCash, err := decimal.NewFromString(cash)
		if err != nil {
			logger.Warn(ctx, "Invalid SIM_STARTING_CASH, using default",
				"value", cash, "default", defaultSimCash)
			startingCash = decimal.RequireFromString(defaultSimCash)
		}

		venue := &dryRunVenue{
			Exchange: sim.New(startingCash, decimal.NewFromFloat(cfg.Trading.FeeRate)),
			market:   upbit.New("", "", cfg.Symbol),
		}
		return exchangeobs.Wrap(venue)
	}

	logger.Info(ctx, "Running in LIVE mode against Upbit", "symbol", cfg.Symbol)
	return exchangeobs.Wrap(upbit.New(
		os.Getenv("UPBIT_ACCESS_KEY"),
		os.Getenv("UPBIT_SECRET_KEY"),
		cfg.Symbol,
	))
}

// initializeOracle selects the decision oracle with observability.
func initializeOracle(ctx context.Context, cfg *store.Config) interfaces.Oracle {
	var oracle interfaces.Oracle

	switch cfg.LLM.Provider {
	case "OPENAI":
		oracle = openai.New(cfg)
	default:
		oracle = noop.New()
		logger.Warn(ctx, "No LLM provider configured - using noop oracle (always HOLD)")
	}

	return oracleobs.Wrap(oracle)
}

func initializeEngine(cfg *store.Config, venue exchangeobs.Venue) interfaces.Engine {
	return engineobs.Wrap(engine.New(cfg, venue))
}

// initializeHeadlines returns the news service, or nil when scraping is
// disabled. The scheduler treats a nil source as "no headlines".
func initializeHeadlines(ctx context.Context, cfg *store.Config) interfaces.HeadlineSource {
	if !cfg.News.Enabled {
		logger.Info(ctx, "News scraping disabled")
		return nil
	}
	return news.NewService(cfg)
}

func initializeLedger(ctx context.Context, cfg *store.Config) (*ledger.SQLiteLedger, error) {
	l, err := ledger.NewSQLite(cfg.Database.Path)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to open trade ledger", err, "path", cfg.Database.Path)
		return nil, err
	}
	return l, nil
}

func initializeReflector(l interfaces.Ledger) interfaces.Reflector {
	return reflection.New(l)
}
