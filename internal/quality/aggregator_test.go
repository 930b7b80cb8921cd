package quality

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"titanjudge/internal/toolrun"
)

// fakeTools reports availability from a fixed set.
type fakeTools struct {
	available map[string]bool
}

func (f *fakeTools) Have(_ context.Context, command, _ string, _ toolrun.Installer) bool {
	return f.available[command]
}

func allTools() *fakeTools {
	avail := map[string]bool{}
	for _, tool := range []string{
		"ruff", "xenon", "pylint", "vulture", "jscpd", "mypy", "pyright",
		"bandit", "semgrep", "pip-audit", "codespell", "isort",
		"pip-licenses", "pydocstyle",
	} {
		avail[tool] = true
	}
	return &fakeTools{available: avail}
}

// fakeRunner maps the first argument (and optional selector) to a scripted
// result, recording every invocation.
type fakeRunner struct {
	results map[string]toolrun.Result
	calls   [][]string
}

func (f *fakeRunner) run(_ context.Context, args []string, _ string, _ time.Duration) toolrun.Result {
	f.calls = append(f.calls, args)
	key := args[0]
	for i, arg := range args {
		if arg == "--select" && i+1 < len(args) {
			key = args[0] + ":" + args[i+1]
		}
	}
	if args[0] == "ruff" && len(args) > 1 && args[1] == "format" {
		key = "ruff:format"
	}
	if res, ok := f.results[key]; ok {
		return res
	}
	return toolrun.Result{OK: true}
}

func newAggregator(t *testing.T, dir string, tools ToolAvailability, runner *fakeRunner) *Aggregator {
	t.Helper()
	agg, err := NewAggregator(&Config{Dir: dir, Tools: tools, Run: runner.run})
	require.NoError(t, err)
	return agg
}

func floatPtr(v float64) *float64 { return &v }

func TestNewAggregator_RequiresTools(t *testing.T) {
	_, err := NewAggregator(&Config{})
	assert.Error(t, err)

	_, err = NewAggregator(nil)
	assert.Error(t, err)
}

func TestEvaluate_AllPassing(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ingest.py"), []byte("x = 1\n"), 0o644))

	runner := &fakeRunner{results: map[string]toolrun.Result{}}
	agg := newAggregator(t, dir, allTools(), runner)

	breakdown, ruffErrors := agg.Evaluate(context.Background(), floatPtr(92.0))

	assert.Equal(t, MaxPoints(), breakdown.Score)
	require.NotNil(t, ruffErrors)
	assert.Zero(t, *ruffErrors)
	for name, check := range breakdown.Checks {
		assert.False(t, check.Skipped, name)
		assert.True(t, check.OK, name)
	}
}

func TestEvaluate_RuffMissingSkipsDependents(t *testing.T) {
	tools := allTools()
	tools.available["ruff"] = false
	runner := &fakeRunner{results: map[string]toolrun.Result{}}
	agg := newAggregator(t, t.TempDir(), tools, runner)

	breakdown, ruffErrors := agg.Evaluate(context.Background(), floatPtr(92.0))

	assert.Nil(t, ruffErrors)
	assert.True(t, breakdown.Checks[CheckRuff].Skipped)
	assert.True(t, breakdown.Checks[CheckModernization].Skipped)
	// xenon is present, but the coupled selector never ran.
	assert.True(t, breakdown.Checks[CheckComplexity].Skipped)
	assert.Equal(t, "ruff missing", breakdown.Checks[CheckComplexity].Details["reason"])
	// ruff_format probes the same binary.
	assert.True(t, breakdown.Checks[CheckRuffFormat].Skipped)
}

func TestEvaluate_RuffErrorsCounted(t *testing.T) {
	runner := &fakeRunner{results: map[string]toolrun.Result{
		"ruff": {OK: false, ReturnCode: 1, Stdout: "a.py:1:1: F401 unused\nb.py:2:1: E501 too long\n"},
	}}
	agg := newAggregator(t, t.TempDir(), allTools(), runner)

	breakdown, ruffErrors := agg.Evaluate(context.Background(), floatPtr(92.0))

	require.NotNil(t, ruffErrors)
	assert.Equal(t, 2, *ruffErrors)
	assert.False(t, breakdown.Checks[CheckRuff].OK)
	assert.Equal(t, 2, breakdown.Checks[CheckRuff].Details["errors"])
}

func TestEvaluate_ComplexityNeedsBothSides(t *testing.T) {
	tests := []struct {
		name    string
		results map[string]toolrun.Result
		wantOK  bool
	}{
		{"both pass", map[string]toolrun.Result{}, true},
		{"xenon fails", map[string]toolrun.Result{"xenon": {ReturnCode: 1}}, false},
		{"ruff c90 fails", map[string]toolrun.Result{"ruff:C90": {ReturnCode: 1, Stdout: "a.py:1:1: C901 too complex\n"}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{results: tt.results}
			agg := newAggregator(t, t.TempDir(), allTools(), runner)

			breakdown, _ := agg.Evaluate(context.Background(), floatPtr(92.0))

			assert.Equal(t, tt.wantOK, breakdown.Checks[CheckComplexity].OK)
			assert.False(t, breakdown.Checks[CheckComplexity].Skipped)
		})
	}
}

func TestEvaluate_ComplexitySkipsWithoutXenon(t *testing.T) {
	tools := allTools()
	tools.available["xenon"] = false
	runner := &fakeRunner{results: map[string]toolrun.Result{}}
	agg := newAggregator(t, t.TempDir(), tools, runner)

	breakdown, _ := agg.Evaluate(context.Background(), floatPtr(92.0))

	assert.True(t, breakdown.Checks[CheckComplexity].Skipped)
	assert.Equal(t, "xenon missing", breakdown.Checks[CheckComplexity].Details["reason"])
}

func TestEvaluate_TypeCheckNeedsBothTools(t *testing.T) {
	for _, missing := range []string{"mypy", "pyright"} {
		t.Run(missing+" missing", func(t *testing.T) {
			tools := allTools()
			tools.available[missing] = false
			runner := &fakeRunner{results: map[string]toolrun.Result{}}
			agg := newAggregator(t, t.TempDir(), tools, runner)

			breakdown, _ := agg.Evaluate(context.Background(), floatPtr(92.0))

			assert.True(t, breakdown.Checks[CheckTypeCheck].Skipped)
		})
	}
}

func TestEvaluate_TypeCheckBothMustPass(t *testing.T) {
	runner := &fakeRunner{results: map[string]toolrun.Result{
		"pyright": {ReturnCode: 1, Stdout: "1 error"},
	}}
	agg := newAggregator(t, t.TempDir(), allTools(), runner)

	breakdown, _ := agg.Evaluate(context.Background(), floatPtr(92.0))

	check := breakdown.Checks[CheckTypeCheck]
	assert.False(t, check.OK)
	assert.Equal(t, true, check.Details["mypy_ok"])
	assert.Equal(t, false, check.Details["pyright_ok"])
}

func TestEvaluate_DuplicationReportOverridesExitCode(t *testing.T) {
	dir := t.TempDir()
	reportDir := filepath.Join(dir, jscpdReportDir)
	require.NoError(t, os.MkdirAll(reportDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(reportDir, "jscpd-report.json"),
		[]byte(`{"statistics":{"total":{"clones":0}}}`), 0o644))

	// jscpd exits non-zero but the report says zero clones.
	runner := &fakeRunner{results: map[string]toolrun.Result{
		"jscpd": {ReturnCode: 1},
	}}
	agg := newAggregator(t, dir, allTools(), runner)

	breakdown, _ := agg.Evaluate(context.Background(), floatPtr(92.0))

	assert.True(t, breakdown.Checks[CheckDuplication].OK)
	assert.Equal(t, 0, breakdown.Checks[CheckDuplication].Details["duplicates"])
}

func TestEvaluate_DuplicationFallsBackToExitCode(t *testing.T) {
	runner := &fakeRunner{results: map[string]toolrun.Result{
		"jscpd": {OK: true},
	}}
	agg := newAggregator(t, t.TempDir(), allTools(), runner)

	breakdown, _ := agg.Evaluate(context.Background(), floatPtr(92.0))

	check := breakdown.Checks[CheckDuplication]
	assert.True(t, check.OK)
	assert.Nil(t, check.Details["duplicates"])
}

func TestEvaluate_SecurityIgnoresExitCode(t *testing.T) {
	tests := []struct {
		name   string
		stdout string
		code   int
		wantOK bool
	}{
		{"clean", "Run started\nNo issues identified.\n", 0, true},
		{"low findings only", ">> Issue\n   Severity: LOW\n", 1, true},
		{"high finding", ">> Issue\n   Severity: HIGH   Confidence: HIGH\n", 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{results: map[string]toolrun.Result{
				"bandit": {OK: tt.code == 0, ReturnCode: tt.code, Stdout: tt.stdout},
			}}
			agg := newAggregator(t, t.TempDir(), allTools(), runner)

			breakdown, _ := agg.Evaluate(context.Background(), floatPtr(92.0))

			assert.Equal(t, tt.wantOK, breakdown.Checks[CheckSecurity].OK)
		})
	}
}

func TestEvaluate_CoverageThreshold(t *testing.T) {
	tests := []struct {
		name    string
		percent *float64
		wantOK  bool
	}{
		{"above", floatPtr(85.0), true},
		{"exact", floatPtr(80.0), true},
		{"below", floatPtr(79.9), false},
		{"missing fails not skips", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{results: map[string]toolrun.Result{}}
			agg := newAggregator(t, t.TempDir(), allTools(), runner)

			breakdown, _ := agg.Evaluate(context.Background(), tt.percent)

			check := breakdown.Checks[CheckCoverage]
			assert.Equal(t, tt.wantOK, check.OK)
			assert.False(t, check.Skipped)
		})
	}
}

func TestEvaluate_FileScopedChecksPassWithoutFiles(t *testing.T) {
	// Empty directory: pylint and vulture have nothing to analyze.
	runner := &fakeRunner{results: map[string]toolrun.Result{}}
	agg := newAggregator(t, t.TempDir(), allTools(), runner)

	breakdown, _ := agg.Evaluate(context.Background(), floatPtr(92.0))

	assert.True(t, breakdown.Checks[CheckPylint].OK)
	assert.True(t, breakdown.Checks[CheckDeadCode].OK)
	for _, call := range runner.calls {
		assert.NotEqual(t, "pylint", call[0])
		assert.NotEqual(t, "vulture", call[0])
	}
}

func TestEvaluate_PipAuditVulnerabilityCount(t *testing.T) {
	runner := &fakeRunner{results: map[string]toolrun.Result{
		"pip-audit": {ReturnCode: 1, Stdout: `[{"name":"requests"},{"name":"urllib3"}]`},
	}}
	agg := newAggregator(t, t.TempDir(), allTools(), runner)

	breakdown, _ := agg.Evaluate(context.Background(), floatPtr(92.0))

	check := breakdown.Checks[CheckPipAudit]
	assert.False(t, check.OK)
	assert.Equal(t, 2, check.Details["vulnerabilities"])
}

func TestPythonFiles_SkipsCacheDirs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.py"), nil, 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "tests"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tests", "test_main.py"), nil, 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".venv", "lib"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".venv", "lib", "mod.py"), nil, 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "__pycache__"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "__pycache__", "main.py"), nil, 0o644))

	runner := &fakeRunner{}
	agg := newAggregator(t, dir, allTools(), runner)

	files := agg.pythonFiles()
	assert.ElementsMatch(t, []string{"main.py", filepath.Join("tests", "test_main.py")}, files)
}

func TestParseJSCPDReport(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		want    *int
	}{
		{"statistics clones", "jscpd-report.json", `{"statistics":{"total":{"clones":3}}}`, intPtr(3)},
		{"statistics duplicates", "report.json", `{"statistics":{"total":{"duplicates":1}}}`, intPtr(1)},
		{"bare array", "jscpd.json", `[{"format":"python"},{"format":"python"}]`, intPtr(2)},
		{"malformed", "jscpd-report.json", `not json`, nil},
		{"no counters", "jscpd-report.json", `{"statistics":{"total":{}}}`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(dir, tt.file), []byte(tt.content), 0o644))

			got := parseJSCPDReport(dir)
			if tt.want == nil {
				assert.Nil(t, got)
			} else {
				require.NotNil(t, got)
				assert.Equal(t, *tt.want, *got)
			}
		})
	}

	t.Run("missing report", func(t *testing.T) {
		assert.Nil(t, parseJSCPDReport(t.TempDir()))
	})
}

func intPtr(v int) *int { return &v }
