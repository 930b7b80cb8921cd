package quality

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaxPoints(t *testing.T) {
	assert.Equal(t, 20, MaxPoints())
}

func TestCheckNames_OrderAndWeights(t *testing.T) {
	names := CheckNames()
	require.Len(t, names, 16)
	assert.Equal(t, CheckRuff, names[0])
	assert.Equal(t, CheckLicense, names[len(names)-1])

	total := 0
	for _, name := range names {
		w := Weight(name)
		assert.Positive(t, w, "weight for %s", name)
		total += w
	}
	assert.Equal(t, MaxPoints(), total)
}

func TestWeight_UnknownName(t *testing.T) {
	assert.Zero(t, Weight("no_such_check"))
}

func TestBreakdown_Add(t *testing.T) {
	b := NewBreakdown()
	b.Add(CheckRuff, true, false, map[string]any{"errors": 0})
	b.Add(CheckPylint, false, false, nil)
	b.Add(CheckSecurity, false, true, map[string]any{"reason": "bandit missing"})

	assert.Equal(t, Weight(CheckRuff), b.Score)

	ruff := b.Checks[CheckRuff]
	assert.Equal(t, 2, ruff.Points)
	assert.Equal(t, 2, ruff.Earned)
	assert.True(t, ruff.OK)
	assert.False(t, ruff.Skipped)

	pylint := b.Checks[CheckPylint]
	assert.Zero(t, pylint.Earned)
	assert.False(t, pylint.OK)
	assert.NotNil(t, pylint.Details)

	security := b.Checks[CheckSecurity]
	assert.Zero(t, security.Earned)
	assert.True(t, security.Skipped)
	assert.False(t, security.OK)
}

func TestBreakdown_SkippedOKEarnsNothing(t *testing.T) {
	b := NewBreakdown()
	b.Add(CheckCoverage, true, true, nil)

	assert.Zero(t, b.Score)
	assert.False(t, b.Checks[CheckCoverage].OK)
}

func TestSkipAll(t *testing.T) {
	b := SkipAll("execution disabled")

	assert.Zero(t, b.Score)
	assert.Equal(t, MaxPoints(), b.MaxPoints)
	require.Len(t, b.Checks, 16)
	for name, check := range b.Checks {
		assert.True(t, check.Skipped, name)
		assert.Zero(t, check.Earned, name)
		assert.Equal(t, "execution disabled", check.Details["reason"], name)
	}
}

func TestBreakdown_JSONRoundTrip(t *testing.T) {
	b := NewBreakdown()
	b.Add(CheckRuff, true, false, map[string]any{"errors": 3})
	b.Add(CheckTypeCheck, false, true, map[string]any{"reason": "mypy or pyright missing"})

	data, err := json.Marshal(b)
	require.NoError(t, err)

	var decoded Breakdown
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, b.Score, decoded.Score)
	assert.Equal(t, b.MaxPoints, decoded.MaxPoints)
	require.Contains(t, decoded.Checks, CheckRuff)
	assert.Equal(t, 2, decoded.Checks[CheckRuff].Earned)
	assert.True(t, decoded.Checks[CheckTypeCheck].Skipped)
}
