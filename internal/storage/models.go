package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

// SignalRecord is one emitted signal, persisted for the status page and
// export tooling. The evaluation core never reads these back.
type SignalRecord struct {
	ID          int64
	Symbol      string
	Name        string
	Class       string
	Price       decimal.Decimal
	Probability float64
	Threshold   float64
	Conditions  []string
	EvaluatedAt time.Time
	CreatedAt   time.Time
}

// CycleRecord summarises one completed evaluation cycle.
type CycleRecord struct {
	ID              int64
	StartedAt       time.Time
	FinishedAt      time.Time
	AssetsEvaluated int
	AssetsFailed    int
	SignalsEmitted  int
	SessionsOpen    []string
	CreatedAt       time.Time
}
