package gate

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"signal-scanner/internal/features"
	"signal-scanner/internal/market"
	"signal-scanner/internal/model"
)

// Condition identifies one gate check.
type Condition string

const (
	CondProbability Condition = "probability"
	CondRSIBand     Condition = "rsi_band"
	CondVolume      Condition = "volume"
	CondTrend       Condition = "trend"
	CondMACD        Condition = "macd"
)

// Policy is the per-asset-class gate configuration. Policies are built at
// startup and never mutated.
type Policy struct {
	ProbabilityThreshold float64
	RSIMin               float64
	RSIMax               float64
	MinRelVolume         float64
	// Quorum is the minimum number of satisfied non-advisory secondary
	// conditions required alongside the probability threshold.
	Quorum int
	// StrictTrend additionally requires the short moving average above
	// the long one for the trend condition.
	StrictTrend bool
	// Advisory lists secondary conditions that are reported but excluded
	// from the quorum count.
	Advisory []Condition
}

func (p Policy) advisory(c Condition) bool {
	for _, a := range p.Advisory {
		if a == c {
			return true
		}
	}
	return false
}

// ConditionResult records one evaluated condition.
type ConditionResult struct {
	Condition Condition
	Met       bool
	Advisory  bool
	Detail    string
}

// Decision is the gate outcome for one asset in one cycle. It is ephemeral:
// constructed, delivered, and discarded within the cycle.
type Decision struct {
	Asset       market.Asset
	Price       decimal.Decimal
	Probability float64
	Estimate    model.Estimate
	Conditions  []ConditionResult
	Pass        bool
	EvaluatedAt time.Time
}

// Satisfied returns the names of the met conditions.
func (d Decision) Satisfied() []string {
	names := make([]string, 0, len(d.Conditions))
	for _, c := range d.Conditions {
		if c.Met {
			names = append(names, string(c.Condition))
		}
	}
	return names
}

// Evaluate applies the threshold policy to a probability estimate and
// feature snapshot. It is a pure function of its inputs.
func Evaluate(asset market.Asset, estimate model.Estimate, snapshot features.Vector, policy Policy, at time.Time) Decision {
	probOK := estimate.Final >= policy.ProbabilityThreshold

	secondary := []ConditionResult{
		{
			Condition: CondRSIBand,
			Met:       snapshot.RSI >= policy.RSIMin && snapshot.RSI <= policy.RSIMax,
			Detail:    fmt.Sprintf("RSI %.1f in [%.0f, %.0f]", snapshot.RSI, policy.RSIMin, policy.RSIMax),
		},
		{
			Condition: CondVolume,
			Met:       snapshot.RelVolume >= policy.MinRelVolume,
			Detail:    fmt.Sprintf("volume %.1fx vs %.1fx floor", snapshot.RelVolume, policy.MinRelVolume),
		},
		{
			Condition: CondTrend,
			Met:       snapshot.TrendLabel(policy.StrictTrend) == features.TrendBullish,
			Detail:    fmt.Sprintf("trend %s", snapshot.TrendLabel(policy.StrictTrend)),
		},
		{
			Condition: CondMACD,
			Met:       snapshot.MACDLabel() == features.TrendBullish,
			Detail:    fmt.Sprintf("macd %s", snapshot.MACDLabel()),
		},
	}

	quorumMet := 0
	for i := range secondary {
		secondary[i].Advisory = policy.advisory(secondary[i].Condition)
		if secondary[i].Met && !secondary[i].Advisory {
			quorumMet++
		}
	}

	conditions := make([]ConditionResult, 0, len(secondary)+1)
	conditions = append(conditions, ConditionResult{
		Condition: CondProbability,
		Met:       probOK,
		Detail:    fmt.Sprintf("probability %.1f%% vs %.0f%% threshold", estimate.Final*100, policy.ProbabilityThreshold*100),
	})
	conditions = append(conditions, secondary...)

	return Decision{
		Asset:       asset,
		Price:       decimal.NewFromFloat(snapshot.Close),
		Probability: estimate.Final,
		Estimate:    estimate,
		Conditions:  conditions,
		Pass:        probOK && quorumMet >= policy.Quorum,
		EvaluatedAt: at,
	}
}
