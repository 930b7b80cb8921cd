package quality

import (
	"encoding/json"
	"strings"

	"titanjudge/internal/toolrun"
)

// Check names. The set is closed: consumers of the report key off these
// exact strings.
const (
	CheckRuff          = "ruff"
	CheckModernization = "modernization"
	CheckComplexity    = "complexity"
	CheckPylint        = "pylint"
	CheckDeadCode      = "dead_code"
	CheckDuplication   = "duplication"
	CheckTypeCheck     = "type_check"
	CheckSecurity      = "security"
	CheckCoverage      = "coverage"
	CheckDocstyle      = "docstyle"
	CheckSemgrep       = "semgrep"
	CheckPipAudit      = "pip_audit"
	CheckCodespell     = "codespell"
	CheckRuffFormat    = "ruff_format"
	CheckIsort         = "isort"
	CheckLicense       = "license"
)

// checkWeights is the fixed point table. The sum of weights is the quality
// component's maximum, independent of how many checks actually run.
var checkWeights = map[string]int{
	CheckRuff:          2,
	CheckModernization: 1,
	CheckComplexity:    1,
	CheckPylint:        1,
	CheckDeadCode:      1,
	CheckDuplication:   1,
	CheckTypeCheck:     2,
	CheckSecurity:      2,
	CheckCoverage:      2,
	CheckDocstyle:      1,
	CheckSemgrep:       1,
	CheckPipAudit:      1,
	CheckCodespell:     1,
	CheckRuffFormat:    1,
	CheckIsort:         1,
	CheckLicense:       1,
}

// checkOrder fixes the evaluation and reporting order.
var checkOrder = []string{
	CheckRuff,
	CheckModernization,
	CheckComplexity,
	CheckPylint,
	CheckDeadCode,
	CheckDuplication,
	CheckTypeCheck,
	CheckSecurity,
	CheckCoverage,
	CheckDocstyle,
	CheckSemgrep,
	CheckPipAudit,
	CheckCodespell,
	CheckRuffFormat,
	CheckIsort,
	CheckLicense,
}

// CheckNames returns the fixed, ordered list of check names.
func CheckNames() []string {
	names := make([]string, len(checkOrder))
	copy(names, checkOrder)
	return names
}

// Weight returns the declared weight of a named check (0 for unknown names).
func Weight(name string) int {
	return checkWeights[name]
}

// MaxPoints returns the fixed sum of all check weights.
func MaxPoints() int {
	total := 0
	for _, w := range checkWeights {
		total += w
	}
	return total
}

// interpreter is a pure function from a raw subprocess result to pass/fail.
// Holding one per check keeps the aggregator's core loop uniform.
type interpreter func(res toolrun.Result) bool

// exitOK is the default interpretation rule: exit code zero passes.
func exitOK(res toolrun.Result) bool { return res.OK }

// zeroHighSeverity passes when the analyzer reported no high-severity
// findings, regardless of exit code.
func zeroHighSeverity(res toolrun.Result) bool {
	return countHighSeverity(res.Stdout) == 0
}

func countHighSeverity(output string) int {
	count := 0
	for _, line := range strings.Split(output, "\n") {
		if strings.Contains(line, "Severity: HIGH") {
			count++
		}
	}
	return count
}

// outputLineCount counts non-empty analyzer output lines; ruff reports one
// finding per line.
func outputLineCount(output string) int {
	if output == "" {
		return 0
	}
	return len(strings.Split(strings.TrimRight(output, "\n"), "\n"))
}

// parseJSONArrayLen decodes a JSON array and returns its length, or nil when
// the payload is not a JSON array. Used for pip-audit vulnerability counts
// and pip-licenses package counts.
func parseJSONArrayLen(payload string) *int {
	var items []json.RawMessage
	if err := json.Unmarshal([]byte(payload), &items); err != nil {
		return nil
	}
	n := len(items)
	return &n
}

// simpleCheck describes a check the uniform loop can drive on its own: one
// probed tool, one command, one interpreter. The coupled checks (ruff and
// its dependents, duplication, type_check, coverage) are dispatched
// specially by Evaluate.
type simpleCheck struct {
	name      string
	tool      string
	pkg       string
	installer toolrun.Installer
	args      func(a *Aggregator) []string
	interpret interpreter
	details   func(res toolrun.Result) map[string]any
}

func returncodeDetails(res toolrun.Result) map[string]any {
	return map[string]any{"returncode": res.ReturnCode}
}
