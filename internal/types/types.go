package types

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Action is the direction requested by the oracle (buy/sell/hold) or the
// direction actually taken ("none" when an order was skipped).
type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
	ActionHold Action = "hold"
	ActionNone Action = "none"
)

type RiskTier string

const (
	RiskLow    RiskTier = "low"
	RiskMedium RiskTier = "medium"
	RiskHigh   RiskTier = "high"
)

// Outcome classifies how a cycle's execution ended. Terminal per cycle.
type Outcome string

const (
	OutcomeExecuted           Outcome = "executed"
	OutcomeHeld               Outcome = "held"
	OutcomeInsufficientFunds  Outcome = "skipped_insufficient_funds"
	OutcomeBelowMinimum       Outcome = "skipped_below_minimum"
	OutcomeRejectedByExchange Outcome = "rejected_by_exchange"
	OutcomeError              Outcome = "error"
)

// AccountSnapshot is the account state read once at the start of a cycle.
// A MarkPrice of zero means the current price is unknown and sizing must not
// proceed.
type AccountSnapshot struct {
	CashBalance   decimal.Decimal `json:"cash_balance"`
	AssetBalance  decimal.Decimal `json:"asset_balance"`
	AssetAvgPrice decimal.Decimal `json:"asset_avg_price"`
	MarkPrice     decimal.Decimal `json:"mark_price"`
}

func (s AccountSnapshot) Validate() error {
	if s.CashBalance.IsNegative() {
		return fmt.Errorf("negative cash balance %s", s.CashBalance)
	}
	if s.AssetBalance.IsNegative() {
		return fmt.Errorf("negative asset balance %s", s.AssetBalance)
	}
	return nil
}

// TotalValue is cash plus the asset position valued at the mark price.
func (s AccountSnapshot) TotalValue() decimal.Decimal {
	return s.CashBalance.Add(s.AssetBalance.Mul(s.MarkPrice))
}

type PriceRange struct {
	Min decimal.Decimal `json:"min"`
	Max decimal.Decimal `json:"max"`
}

func (r PriceRange) IsZero() bool {
	return r.Min.IsZero() && r.Max.IsZero()
}

// Decision is the oracle's structured recommendation. It is untrusted input:
// every field is validated before the engine acts on it.
type Decision struct {
	Action     Action     `json:"action"`
	Confidence float64    `json:"confidence"`
	RiskTier   RiskTier   `json:"risk_tier"`
	Rationale  string     `json:"rationale"`
	Expected   PriceRange `json:"expected_range"`
}

func (d Decision) Validate() error {
	switch d.Action {
	case ActionBuy, ActionSell, ActionHold:
	default:
		return fmt.Errorf("unknown action %q", d.Action)
	}
	if d.Confidence < 0 || d.Confidence > 1 {
		return fmt.Errorf("confidence %.4f outside [0,1]", d.Confidence)
	}
	switch d.RiskTier {
	case RiskLow, RiskMedium, RiskHigh:
	default:
		return fmt.Errorf("unknown risk tier %q", d.RiskTier)
	}
	if d.Expected.Min.GreaterThan(d.Expected.Max) {
		return fmt.Errorf("expected range min %s > max %s", d.Expected.Min, d.Expected.Max)
	}
	return nil
}

// HoldDecision is the fallback used when the oracle output is rejected.
func HoldDecision(reason string) Decision {
	return Decision{Action: ActionHold, Confidence: 0, RiskTier: RiskLow, Rationale: reason}
}

// ExecutionResult is created exactly once per cycle, even when no order was
// submitted; the Outcome records why.
type ExecutionResult struct {
	ActionTaken Action          `json:"action_taken"`
	Price       decimal.Decimal `json:"price"`
	Quantity    decimal.Decimal `json:"quantity"`
	Notional    decimal.Decimal `json:"notional"`
	Fee         decimal.Decimal `json:"fee"`
	OrderID     string          `json:"order_id,omitempty"`
	Outcome     Outcome         `json:"outcome"`
	Reason      string          `json:"reason,omitempty"`
}

// OrderReceipt is the exchange's acknowledgement of a submitted order.
type OrderReceipt struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status,omitempty"`
}

// Ticker carries the exchange's current market stats for one symbol.
type Ticker struct {
	Price        decimal.Decimal `json:"price"`
	Change24hPct float64         `json:"change_24h_pct"`
	Volume24h    float64         `json:"volume_24h"`
}

// MarketContext is the opaque-to-the-core payload handed to the oracle and
// stored alongside the ledger entry. Headlines are optional enrichment.
type MarketContext struct {
	Symbol       string          `json:"symbol"`
	MarkPrice    decimal.Decimal `json:"mark_price"`
	Change24hPct float64         `json:"change_24h_pct"`
	Volume24h    float64         `json:"volume_24h"`
	Headlines    []string        `json:"headlines,omitempty"`
}

// LedgerEntry is the durable union of one cycle's decision, execution result
// and pre-cycle account snapshot. Append-only; never updated in place.
type LedgerEntry struct {
	ID        int64           `json:"id"`
	CycleID   string          `json:"cycle_id"`
	Timestamp time.Time       `json:"timestamp"`
	Decision  Decision        `json:"decision"`
	Result    ExecutionResult `json:"result"`
	Before    AccountSnapshot `json:"before"`
	Market    MarketContext   `json:"market"`
}
