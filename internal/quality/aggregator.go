package quality

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"titanjudge/internal/toolrun"
)

// CoverageMin is the minimum coverage percent that earns the coverage check.
const CoverageMin = 80.0

// vultureMinConfidence filters low-confidence dead-code findings.
const vultureMinConfidence = 80

// DefaultTimeout bounds each analyzer subprocess.
const DefaultTimeout = 60 * time.Second

// jscpdReportDir is where the duplication analyzer writes its JSON report.
const jscpdReportDir = ".jscpd-report"

// skipDirs are cache and virtualenv directories excluded from file
// enumeration.
var skipDirs = map[string]bool{
	".venv":         true,
	"__pycache__":   true,
	".pytest_cache": true,
	".ruff_cache":   true,
	".mypy_cache":   true,
	".pyright":      true,
	".jscpd-report": true,
}

// ToolAvailability is the capability the aggregator consults before running
// a check. toolrun.Availability satisfies it.
type ToolAvailability interface {
	Have(ctx context.Context, command, pkg string, installer toolrun.Installer) bool
}

// Config configures an Aggregator.
type Config struct {
	Dir     string           // candidate directory the analyzers run in
	Tools   ToolAvailability // required
	Run     toolrun.RunFunc  // defaults to toolrun.Run
	Timeout time.Duration    // per-check timeout, defaults to DefaultTimeout
}

// Aggregator drives the fixed battery of external checks against one
// candidate directory. Checks run strictly one after another in table order.
type Aggregator struct {
	dir     string
	tools   ToolAvailability
	run     toolrun.RunFunc
	timeout time.Duration
}

// NewAggregator creates an aggregator for one candidate directory.
func NewAggregator(cfg *Config) (*Aggregator, error) {
	if cfg == nil || cfg.Tools == nil {
		return nil, fmt.Errorf("tool availability is required")
	}
	dir := cfg.Dir
	if dir == "" {
		dir = "."
	}
	run := cfg.Run
	if run == nil {
		run = toolrun.Run
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Aggregator{dir: dir, tools: cfg.Tools, run: run, timeout: timeout}, nil
}

// SkipAll returns a breakdown with every check skipped for the given reason.
// Used when execution is globally disabled.
func SkipAll(reason string) *Breakdown {
	breakdown := NewBreakdown()
	for _, name := range checkOrder {
		breakdown.Add(name, false, true, map[string]any{"reason": reason})
	}
	return breakdown
}

// Evaluate runs the battery and returns the breakdown plus the ruff error
// count (nil when ruff never ran). coveragePercent is the previously
// computed coverage from the candidate's own test execution; the aggregator
// does not run coverage itself.
func (a *Aggregator) Evaluate(ctx context.Context, coveragePercent *float64) (*Breakdown, *int) {
	breakdown := NewBreakdown()

	// The ruff trio shares one tool probe: the main lint pass, the
	// modernization selector, and the complexity selector that gates the
	// xenon check below.
	var ruffErrors *int
	var ruffComplexityOK *bool
	var modernizationResult *toolrun.Result

	if a.tools.Have(ctx, "ruff", "ruff", toolrun.InstallerPip) {
		res := a.runRuff(ctx, "")
		errs := outputLineCount(res.Stdout)
		ruffErrors = &errs
		breakdown.Add(CheckRuff, exitOK(res), false, map[string]any{"errors": errs})

		modRes := a.runRuff(ctx, "UP")
		modernizationResult = &modRes

		c90 := a.runRuff(ctx, "C90")
		ok := exitOK(c90)
		ruffComplexityOK = &ok
	} else {
		breakdown.Add(CheckRuff, false, true, map[string]any{"reason": "ruff missing"})
	}

	for _, name := range checkOrder[1:] {
		switch name {
		case CheckModernization:
			if modernizationResult == nil {
				breakdown.Add(name, false, true, map[string]any{"reason": "ruff missing"})
				continue
			}
			breakdown.Add(name, exitOK(*modernizationResult), false,
				map[string]any{"errors": outputLineCount(modernizationResult.Stdout)})
		case CheckComplexity:
			a.evaluateComplexity(ctx, breakdown, ruffComplexityOK)
		case CheckDuplication:
			a.evaluateDuplication(ctx, breakdown)
		case CheckTypeCheck:
			a.evaluateTypeCheck(ctx, breakdown)
		case CheckCoverage:
			evaluateCoverage(breakdown, coveragePercent)
		default:
			a.evaluateSimple(ctx, breakdown, simpleChecks[name])
		}
	}

	return breakdown, ruffErrors
}

// evaluateSimple drives one single-tool check through the uniform path:
// probe, run, interpret.
func (a *Aggregator) evaluateSimple(ctx context.Context, breakdown *Breakdown, check simpleCheck) {
	if !a.tools.Have(ctx, check.tool, check.pkg, check.installer) {
		breakdown.Add(check.name, false, true, map[string]any{"reason": check.tool + " missing"})
		return
	}

	args := check.args(a)
	if args == nil {
		// Nothing to analyze passes trivially (e.g. no Python files).
		breakdown.Add(check.name, true, false, map[string]any{"files": 0})
		return
	}

	res := a.run(ctx, args, a.dir, a.timeout)
	breakdown.Add(check.name, check.interpret(res), false, check.details(res))
}

// evaluateComplexity couples the xenon gates with ruff's C90 selector: both
// must pass, and a missing ruff forces a skip even when xenon is present.
func (a *Aggregator) evaluateComplexity(ctx context.Context, breakdown *Breakdown, ruffC90OK *bool) {
	if !a.tools.Have(ctx, "xenon", "xenon", toolrun.InstallerPip) {
		breakdown.Add(CheckComplexity, false, true, map[string]any{"reason": "xenon missing"})
		return
	}
	xenonRes := a.run(ctx, []string{
		"xenon", "--max-absolute", "B", "--max-modules", "B", "--max-average", "A", ".",
	}, a.dir, a.timeout)

	if ruffC90OK == nil {
		breakdown.Add(CheckComplexity, false, true, map[string]any{"reason": "ruff missing"})
		return
	}
	breakdown.Add(CheckComplexity, exitOK(xenonRes) && *ruffC90OK, false, map[string]any{
		"xenon_ok":    exitOK(xenonRes),
		"ruff_c90_ok": *ruffC90OK,
	})
}

// evaluateDuplication parses jscpd's structured report, falling back to the
// raw exit code when the report is absent or malformed. Zero duplicates
// passes; anything else fails.
func (a *Aggregator) evaluateDuplication(ctx context.Context, breakdown *Breakdown) {
	if !a.tools.Have(ctx, "jscpd", "jscpd", toolrun.InstallerNPM) {
		breakdown.Add(CheckDuplication, false, true, map[string]any{"reason": "jscpd missing"})
		return
	}

	_ = os.MkdirAll(filepath.Join(a.dir, jscpdReportDir), 0o755)
	res := a.run(ctx, []string{"jscpd", "--config", ".jscpd.json", "."}, a.dir, a.timeout)

	duplicates := parseJSCPDReport(filepath.Join(a.dir, jscpdReportDir))
	ok := exitOK(res)
	details := map[string]any{"duplicates": nil}
	if duplicates != nil {
		ok = *duplicates == 0
		details["duplicates"] = *duplicates
	}
	breakdown.Add(CheckDuplication, ok, false, details)
}

// evaluateTypeCheck requires both independent type checkers to pass; if
// either tool is unavailable the whole check is skipped.
func (a *Aggregator) evaluateTypeCheck(ctx context.Context, breakdown *Breakdown) {
	haveMypy := a.tools.Have(ctx, "mypy", "mypy", toolrun.InstallerPip)
	havePyright := haveMypy && a.tools.Have(ctx, "pyright", "pyright", toolrun.InstallerPip)
	if !haveMypy || !havePyright {
		breakdown.Add(CheckTypeCheck, false, true, map[string]any{"reason": "mypy or pyright missing"})
		return
	}

	mypyRes := a.run(ctx, []string{"mypy", "--config-file", "mypy.ini", "."}, a.dir, a.timeout)
	pyrightRes := a.run(ctx, []string{"pyright", "--project", "pyrightconfig.json"}, a.dir, a.timeout)
	breakdown.Add(CheckTypeCheck, exitOK(mypyRes) && exitOK(pyrightRes), false, map[string]any{
		"mypy_ok":    exitOK(mypyRes),
		"pyright_ok": exitOK(pyrightRes),
	})
}

// evaluateCoverage compares the externally computed coverage percent against
// the threshold. A missing percent fails rather than skips: the candidate's
// own tests were supposed to produce it.
func evaluateCoverage(breakdown *Breakdown, coveragePercent *float64) {
	details := map[string]any{"coverage_percent": nil, "min": CoverageMin}
	ok := false
	if coveragePercent != nil {
		details["coverage_percent"] = *coveragePercent
		ok = *coveragePercent >= CoverageMin
	}
	breakdown.Add(CheckCoverage, ok, false, details)
}

func (a *Aggregator) runRuff(ctx context.Context, selector string) toolrun.Result {
	args := []string{"ruff", "check", "."}
	if selector != "" {
		args = append(args, "--select", selector)
	}
	return a.run(ctx, args, a.dir, a.timeout)
}

// pythonFiles enumerates project .py files, excluding cache directories.
func (a *Aggregator) pythonFiles() []string {
	var files []string
	_ = filepath.WalkDir(a.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(path, ".py") {
			if rel, relErr := filepath.Rel(a.dir, path); relErr == nil {
				files = append(files, rel)
			}
		}
		return nil
	})
	return files
}

// parseJSCPDReport reads the analyzer's JSON report and extracts the
// duplicate count. Returns nil when no report exists or it is malformed.
func parseJSCPDReport(reportDir string) *int {
	candidates := []string{"jscpd-report.json", "report.json", "jscpd.json"}
	var payload []byte
	for _, name := range candidates {
		data, err := os.ReadFile(filepath.Join(reportDir, name))
		if err == nil {
			payload = data
			break
		}
	}
	if payload == nil {
		return nil
	}

	// A bare array is a list of clones.
	var asList []json.RawMessage
	if err := json.Unmarshal(payload, &asList); err == nil {
		n := len(asList)
		return &n
	}

	var asReport struct {
		Statistics struct {
			Total struct {
				Clones          *int `json:"clones"`
				Duplicates      *int `json:"duplicates"`
				DuplicatedLines *int `json:"duplicatedLines"`
			} `json:"total"`
		} `json:"statistics"`
	}
	if err := json.Unmarshal(payload, &asReport); err != nil {
		return nil
	}
	total := asReport.Statistics.Total
	for _, v := range []*int{total.Clones, total.Duplicates, total.DuplicatedLines} {
		if v != nil {
			return v
		}
	}
	return nil
}
