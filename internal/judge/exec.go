package judge

import (
	"context"
	"strconv"
	"strings"
	"time"

	"titanjudge/internal/toolrun"
)

// CommandResult is one executed candidate command, with the coverage percent
// attached when the command was the test run.
type CommandResult struct {
	toolrun.Result
	CoveragePercent *float64 `json:"coverage_percent,omitempty"`
}

// Execution holds the candidate's own test and smoke runs. Both are nil when
// execution was disabled.
type Execution struct {
	Pytest  *CommandResult `json:"pytest"`
	Smoke   *CommandResult `json:"smoke"`
	Skipped bool           `json:"skipped"`
}

// smokeScript exercises the candidate's importable surface without going
// through its CLI.
const smokeScript = "import ingest, report; " +
	"ingest.ingest_log('smoke test', 'INFO'); " +
	"report.generate_pdf('smoke_report.pdf'); " +
	"print('ok')"

func runPytest(ctx context.Context, run toolrun.RunFunc, dir string, timeout time.Duration) *CommandResult {
	res := run(ctx, []string{
		"python3", "-m", "pytest", DirTests, "-q", "--cov=.", "--cov-report=term",
	}, dir, timeout)
	return &CommandResult{
		Result:          res,
		CoveragePercent: ParseCoveragePercent(res.Stdout),
	}
}

func runSmoke(ctx context.Context, run toolrun.RunFunc, dir string, timeout time.Duration) *CommandResult {
	res := run(ctx, []string{"python3", "-c", smokeScript}, dir, timeout)
	return &CommandResult{Result: res}
}

// ParseCoveragePercent extracts the total coverage percent from a coverage
// report's TOTAL line. Returns nil when no parseable percent is present.
func ParseCoveragePercent(output string) *float64 {
	for _, line := range strings.Split(output, "\n") {
		if !strings.HasPrefix(strings.TrimSpace(line), "TOTAL") {
			continue
		}
		for _, token := range strings.Fields(line) {
			if !strings.HasSuffix(token, "%") {
				continue
			}
			value, err := strconv.ParseFloat(strings.TrimSuffix(token, "%"), 64)
			if err != nil {
				return nil
			}
			return &value
		}
	}
	return nil
}
