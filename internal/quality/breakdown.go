// Package quality owns the fixed, weighted battery of external code-quality
// checks and aggregates their outcomes into a reproducible breakdown. The
// battery never shrinks: every check appears in every breakdown, with
// skipped=true and zero points when its tooling was unavailable or execution
// was disabled.
package quality

// CheckResult is the scored outcome of a single named check.
//
// Invariants: Earned is either 0 or Points for every check in the battery,
// and Skipped implies Earned == 0.
type CheckResult struct {
	Points  int            `json:"points"`
	Earned  int            `json:"earned"`
	OK      bool           `json:"ok"`
	Skipped bool           `json:"skipped"`
	Details map[string]any `json:"details"`
}

// Breakdown is the full per-check scoring detail for one evaluation.
//
// Invariants: Score is the sum of Earned across Checks, and MaxPoints is the
// fixed sum of declared weights regardless of how many checks ran.
type Breakdown struct {
	MaxPoints int                    `json:"max_points"`
	Score     int                    `json:"score"`
	Checks    map[string]CheckResult `json:"checks"`
}

// NewBreakdown returns an empty breakdown with the battery's fixed maximum.
func NewBreakdown() *Breakdown {
	return &Breakdown{
		MaxPoints: MaxPoints(),
		Checks:    make(map[string]CheckResult),
	}
}

// Add records the outcome of a named check from the fixed table. Points are
// earned only when ok is true; skipped results always earn zero.
func (b *Breakdown) Add(name string, ok, skipped bool, details map[string]any) {
	points := checkWeights[name]
	if details == nil {
		details = map[string]any{}
	}
	earned := 0
	if ok && !skipped {
		earned = points
	}
	b.Checks[name] = CheckResult{
		Points:  points,
		Earned:  earned,
		OK:      ok && !skipped,
		Skipped: skipped,
		Details: details,
	}
	b.Score += earned
}
