package types

import (
	"time"

	"github.com/shopspring/decimal"
)

type ReflectionKind string

const (
	ReflectionImmediate ReflectionKind = "immediate"
	ReflectionDaily     ReflectionKind = "daily"
	ReflectionWeekly    ReflectionKind = "weekly"
	ReflectionMonthly   ReflectionKind = "monthly"
)

type PeriodKind string

const (
	PeriodDaily   PeriodKind = "daily"
	PeriodWeekly  PeriodKind = "weekly"
	PeriodMonthly PeriodKind = "monthly"
)

// ReflectionKind returns the reflection kind fan-out rows of this period use.
func (p PeriodKind) ReflectionKind() ReflectionKind {
	return ReflectionKind(p)
}

// Reflection is a scored post-hoc evaluation of one ledger entry. Immediate
// reflections are produced once per entry; periodic reflections share their
// window's aggregate scores but keep their own entry reference.
type Reflection struct {
	ID                  int64           `json:"id"`
	LedgerEntryID       int64           `json:"ledger_entry_id"`
	Kind                ReflectionKind  `json:"kind"`
	PerformanceScore    float64         `json:"performance_score"`
	PnL                 decimal.Decimal `json:"pnl"`
	PnLPercent          float64         `json:"pnl_percent"`
	DecisionQuality     float64         `json:"decision_quality_score"`
	TimingScore         float64         `json:"timing_score"`
	RiskManagementScore float64         `json:"risk_management_score"`
	Narrative           string          `json:"narrative"`
	Suggestions         string          `json:"suggestions"`
	CreatedAt           time.Time       `json:"created_at"`
}

// PerformanceWindow aggregates the ledger entries of one half-open
// [Start, End) period. Recomputation appends a superseding row; readers take
// the most recent one.
type PerformanceWindow struct {
	ID              int64           `json:"id"`
	PeriodKind      PeriodKind      `json:"period_kind"`
	Start           time.Time       `json:"start"`
	End             time.Time       `json:"end"`
	TotalTrades     int             `json:"total_trades"`
	WinningTrades   int             `json:"winning_trades"`
	LosingTrades    int             `json:"losing_trades"`
	WinRate         float64         `json:"win_rate"`
	TotalPnL        decimal.Decimal `json:"total_pnl"`
	TotalPnLPercent float64         `json:"total_pnl_percent"`
	MaxDrawdown     float64         `json:"max_drawdown"`
	SharpeRatio     float64         `json:"sharpe_ratio"`
	CreatedAt       time.Time       `json:"created_at"`
}

type InsightType string

const (
	InsightPattern InsightType = "pattern"
	InsightRisk    InsightType = "risk"
	InsightTiming  InsightType = "timing"
	InsightMarket  InsightType = "market"
)

type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

type InsightStatus string

const (
	InsightDiscovered  InsightStatus = "discovered"
	InsightImplemented InsightStatus = "implemented"
	InsightValidated   InsightStatus = "validated"
	InsightArchived    InsightStatus = "archived"
)

// LearningInsight is an advisory observation derived from a performance
// window; it is never fed back into the execution engine automatically.
type LearningInsight struct {
	ID          int64         `json:"id"`
	Type        InsightType   `json:"type"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Confidence  float64       `json:"confidence"`
	Priority    Priority      `json:"priority"`
	Status      InsightStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
}

type ImprovementType string

const (
	ImprovementParameter ImprovementType = "parameter"
	ImprovementCondition ImprovementType = "condition"
	ImprovementTiming    ImprovementType = "timing"
	ImprovementRisk      ImprovementType = "risk"
)

type ImprovementStatus string

const (
	ImprovementProposed    ImprovementStatus = "proposed"
	ImprovementImplemented ImprovementStatus = "implemented"
	ImprovementValidated   ImprovementStatus = "validated"
	ImprovementReverted    ImprovementStatus = "reverted"
)

// StrategyImprovement is an advisory proposal with a proposed -> implemented
// -> validated/reverted lifecycle.
type StrategyImprovement struct {
	ID             int64             `json:"id"`
	Type           ImprovementType   `json:"type"`
	OldValue       string            `json:"old_value"`
	NewValue       string            `json:"new_value"`
	Reason         string            `json:"reason"`
	ExpectedImpact string            `json:"expected_impact"`
	SuccessMetric  float64           `json:"success_metric"`
	Status         ImprovementStatus `json:"status"`
	CreatedAt      time.Time         `json:"created_at"`
}
