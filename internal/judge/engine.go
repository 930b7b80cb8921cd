package judge

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"

	"titanjudge/internal/config"
	"titanjudge/internal/detect"
	"titanjudge/internal/quality"
	"titanjudge/internal/toolrun"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

// Config configures an Engine.
type Config struct {
	Dir       string           // run directory to score
	Settings  *config.Settings // nil means defaults with env applied
	Tools     quality.ToolAvailability
	Run       toolrun.RunFunc // defaults to toolrun.Run
	Out       io.Writer       // report destination, defaults to os.Stdout
	WriteJSON bool            // write judge.json into the run directory
}

// Engine scores one run directory.
type Engine struct {
	dir       string
	settings  *config.Settings
	tools     quality.ToolAvailability
	run       toolrun.RunFunc
	out       io.Writer
	writeJSON bool
}

// New creates a scoring engine for a run directory.
func New(cfg *Config) (*Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	dir := cfg.Dir
	if dir == "" {
		dir = "."
	}
	settings := cfg.Settings
	if settings == nil {
		settings = config.Default()
		settings.LoadFromEnv()
	}
	tools := cfg.Tools
	if tools == nil {
		tools = toolrun.NewAvailability(settings.AllowInstall)
	}
	run := cfg.Run
	if run == nil {
		run = toolrun.Run
	}
	out := cfg.Out
	if out == nil {
		out = os.Stdout
	}
	return &Engine{
		dir:       dir,
		settings:  settings,
		tools:     tools,
		run:       run,
		out:       out,
		writeJSON: cfg.WriteJSON,
	}, nil
}

// Evaluate scores the run directory and prints the verdict report. The
// returned payload always carries every component; errors are reserved for
// failures writing the result, never for a low-scoring candidate.
func (e *Engine) Evaluate(ctx context.Context) (*ScorePayload, error) {
	payload := &ScorePayload{}
	var report []string

	fmt.Fprintf(e.out, "\n%s\n\n", bold("⚔️  TITAN PROTOCOL JUDGEMENT  ⚔️"))

	if detect.FileMentions(filepath.Join(e.dir, FileIngest), contextKeywords...) {
		payload.Context = ContextPoints
		report = append(report, green(fmt.Sprintf(
			"✅ [%d/%d] Context Trap Passed (Used Legacy Crypto)", ContextPoints, ContextPoints)))
	} else {
		report = append(report, red(fmt.Sprintf(
			"❌ [0/%d] Context Trap Failed (Ignored/Rewrote Legacy File)", ContextPoints)))
	}

	if detect.HasRotateCall(filepath.Join(e.dir, FileReport), RotationDegrees) {
		payload.Research = ResearchPoints
		report = append(report, green(fmt.Sprintf(
			"✅ [%d/%d] Research Trap Passed (Watermark Rotated)", ResearchPoints, ResearchPoints)))
	} else {
		report = append(report, red(fmt.Sprintf(
			"❌ [0/%d] Research Trap Failed (No Rotation Logic)", ResearchPoints)))
	}

	if detect.MocksModule(filepath.Join(e.dir, DirTests), LegacyModule) {
		payload.QA = QAPoints
		report = append(report, green(fmt.Sprintf(
			"✅ [%d/%d] QA Trap Passed (Dependency Mocked)", QAPoints, QAPoints)))
	} else {
		report = append(report, red(fmt.Sprintf(
			"❌ [0/%d] QA Trap Failed (Real Code Called in Tests)", QAPoints)))
	}

	payload.Execution = e.runExecution(ctx)

	breakdown, ruffErrors := e.evaluateQuality(ctx, payload.Execution)
	payload.Quality = breakdown.Score
	payload.RuffErrors = ruffErrors
	payload.QualityBreakdown = breakdown
	report = append(report, yellow(fmt.Sprintf(
		"⚠️ [%d/%d] Quality Checks (see %s)", breakdown.Score, breakdown.MaxPoints, FileScoreJSON)))

	if detect.FileMentions(filepath.Join(e.dir, FileReadme), docsKeywords...) {
		payload.Docs = DocsPoints
		report = append(report, green(fmt.Sprintf(
			"✅ [%d/%d] Documentation Passed (Mermaid Diagram)", DocsPoints, DocsPoints)))
	} else {
		report = append(report, red(fmt.Sprintf(
			"❌ [0/%d] Documentation Failed (No Diagram)", DocsPoints)))
	}

	payload.Score = payload.Context + payload.Research + payload.QA + payload.Quality + payload.Docs

	divider := strings.Repeat("-", 40)
	fmt.Fprintln(e.out, divider)
	for _, line := range report {
		fmt.Fprintln(e.out, line)
	}
	fmt.Fprintln(e.out, divider)
	fmt.Fprintf(e.out, "%s\n", bold(fmt.Sprintf("🏆 FINAL SCORE: %d/%d", payload.Score, MaxScore)))

	if e.writeJSON {
		if err := payload.Write(e.dir); err != nil {
			return nil, err
		}
	}
	return payload, nil
}

// runExecution drives the candidate's own tests and the smoke import when
// execution is enabled.
func (e *Engine) runExecution(ctx context.Context) *Execution {
	if !e.settings.RunExec {
		return &Execution{Skipped: true}
	}
	return &Execution{
		Pytest: runPytest(ctx, e.run, e.dir, e.settings.ExecTimeout),
		Smoke:  runSmoke(ctx, e.run, e.dir, e.settings.ExecTimeout),
	}
}

// evaluateQuality runs the battery, wiring the coverage percent from the
// candidate's test run. With execution disabled the entire battery is skipped.
func (e *Engine) evaluateQuality(ctx context.Context, execution *Execution) (*quality.Breakdown, *int) {
	if !e.settings.RunExec {
		return quality.SkipAll("execution disabled"), nil
	}

	var coverage *float64
	if execution != nil && execution.Pytest != nil {
		coverage = execution.Pytest.CoveragePercent
	}

	agg, err := quality.NewAggregator(&quality.Config{
		Dir:     e.dir,
		Tools:   e.tools,
		Run:     e.run,
		Timeout: e.settings.QualityTimeout,
	})
	if err != nil {
		return quality.SkipAll("quality aggregator unavailable"), nil
	}
	return agg.Evaluate(ctx, coverage)
}
