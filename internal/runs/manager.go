package runs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"titanjudge/internal/config"
	"titanjudge/internal/judge"
	"titanjudge/internal/telemetry"
)

// ArtifactsDir holds run directories and result files, relative to the base
// directory.
const ArtifactsDir = "artifacts"

const runsDirName = "runs"

// DefaultTools are the agent tools runs are prepared for when none are given.
var DefaultTools = []string{"ampcode", "augment", "opencode"}

// TemplateFiles are seeded into every fresh run directory.
var TemplateFiles = []string{"legacy_crypto.py", "TITAN_SPEC.md", "README.md"}

// requiredOutputs must exist before a run directory is scored. The tests
// directory additionally needs at least one Python file.
var requiredOutputs = []string{judge.FileIngest, judge.FileReport, judge.FileMain, judge.DirTests}

// Manager prepares and scores run directories under a base directory.
type Manager struct {
	baseDir     string
	settings    *config.Settings
	out         io.Writer
	concurrency int
}

// Options configures a Manager.
type Options struct {
	BaseDir     string           // directory holding templates and artifacts/
	Settings    *config.Settings // nil means defaults with env applied
	Out         io.Writer        // progress output, defaults to os.Stdout
	Concurrency int              // concurrent scoring jobs, defaults to 1
}

// NewManager creates a run lifecycle manager.
func NewManager(opts *Options) (*Manager, error) {
	if opts == nil {
		return nil, fmt.Errorf("options are required")
	}
	baseDir := opts.BaseDir
	if baseDir == "" {
		baseDir = "."
	}
	settings := opts.Settings
	if settings == nil {
		settings = config.Default()
		settings.LoadFromEnv()
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Manager{
		baseDir:     baseDir,
		settings:    settings,
		out:         out,
		concurrency: concurrency,
	}, nil
}

func (m *Manager) runsRoot() string {
	return filepath.Join(m.baseDir, ArtifactsDir, runsDirName)
}

// Prepare creates fresh run directories for each tool and seeds them with the
// template files. Returns the created directory paths.
func (m *Manager) Prepare(tools []string, runsPerTool int) ([]string, error) {
	if runsPerTool <= 0 {
		runsPerTool = 1
	}
	runsRoot := m.runsRoot()
	if err := os.MkdirAll(runsRoot, 0o755); err != nil {
		return nil, fmt.Errorf("creating runs root: %w", err)
	}

	var created []string
	timestamp := time.Now().Format("20060102_150405.000000")
	timestamp = strings.ReplaceAll(timestamp, ".", "_")
	for _, tool := range tools {
		toolRoot := filepath.Join(runsRoot, tool)
		if err := os.MkdirAll(toolRoot, 0o755); err != nil {
			return nil, fmt.Errorf("creating tool root %s: %w", toolRoot, err)
		}
		for idx := 1; idx <= runsPerTool; idx++ {
			runDir := uniqueRunDir(toolRoot, timestamp, idx)
			if err := os.Mkdir(runDir, 0o755); err != nil {
				return nil, fmt.Errorf("creating run dir %s: %w", runDir, err)
			}
			if err := m.seedTemplates(runDir); err != nil {
				return nil, err
			}
			created = append(created, runDir)
		}
	}
	return created, nil
}

// uniqueRunDir picks <timestamp>_runNN, disambiguating an existing name with
// a short random suffix.
func uniqueRunDir(toolRoot, timestamp string, idx int) string {
	base := filepath.Join(toolRoot, fmt.Sprintf("%s_run%02d", timestamp, idx))
	if _, err := os.Stat(base); os.IsNotExist(err) {
		return base
	}
	return base + "_" + uuid.NewString()[:8]
}

func (m *Manager) seedTemplates(runDir string) error {
	for _, name := range TemplateFiles {
		src := filepath.Join(m.baseDir, name)
		data, err := os.ReadFile(src)
		if err != nil {
			return fmt.Errorf("reading template %s: %w", src, err)
		}
		if err := os.WriteFile(filepath.Join(runDir, name), data, 0o644); err != nil {
			return fmt.Errorf("seeding %s: %w", runDir, err)
		}
	}
	return nil
}

// CheckCompletion reports whether a run directory has all required candidate
// outputs, and which are missing.
func CheckCompletion(runDir string) (bool, []string) {
	var missing []string
	for _, name := range requiredOutputs {
		path := filepath.Join(runDir, name)
		if name == judge.DirTests {
			if !dirHasPythonFile(path) {
				missing = append(missing, name)
			}
			continue
		}
		if _, err := os.Stat(path); err != nil {
			missing = append(missing, name)
		}
	}
	return len(missing) == 0, missing
}

func dirHasPythonFile(dir string) bool {
	found := false
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() && strings.HasSuffix(path, ".py") {
			found = true
			return fs.SkipAll
		}
		return nil
	})
	return found
}

// discoverRunDirs lists run directories for the given tools in sorted order.
func (m *Manager) discoverRunDirs(tools []string) []string {
	var dirs []string
	for _, tool := range tools {
		toolRoot := filepath.Join(m.runsRoot(), tool)
		entries, err := os.ReadDir(toolRoot)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() {
				dirs = append(dirs, filepath.Join(toolRoot, entry.Name()))
			}
		}
	}
	sort.Strings(dirs)
	return dirs
}

// Score judges every unscored run directory for the given tools and appends
// the results to the store. Previously scored directories are skipped unless
// rescore is set. Directories are judged concurrently; rows come back in
// directory order.
func (m *Manager) Score(ctx context.Context, tools []string, store *Store, rescore bool) ([]Row, error) {
	runDirs := m.discoverRunDirs(tools)
	if len(runDirs) == 0 {
		return nil, fmt.Errorf("no run directories found under %s; prepare first", m.runsRoot())
	}

	results := make([]*Row, len(runDirs))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(m.concurrency)
	for i, runDir := range runDirs {
		i, runDir := i, runDir
		g.Go(func() error {
			row, err := m.scoreOne(ctx, runDir, rescore)
			if err != nil {
				return err
			}
			mu.Lock()
			results[i] = row
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var rows []Row
	for _, row := range results {
		if row != nil {
			rows = append(rows, *row)
		}
	}
	if store != nil {
		if err := store.Append(rows); err != nil {
			return nil, err
		}
	}
	return rows, nil
}

// scoreOne judges a single run directory. Returns a nil row when the
// directory was already scored and rescore is off.
func (m *Manager) scoreOne(ctx context.Context, runDir string, rescore bool) (*Row, error) {
	marker := filepath.Join(runDir, judge.FileMarker)
	if _, err := os.Stat(marker); err == nil && !rescore {
		return nil, nil
	}

	complete, missing := CheckCompletion(runDir)
	row := &Row{
		Timestamp: time.Now().Format("2006-01-02T15:04:05"),
		Tool:      filepath.Base(filepath.Dir(runDir)),
		RunID:     filepath.Base(runDir),
		Complete:  complete,
		Missing:   strings.Join(missing, ","),
		JudgeExit: -1,
	}

	if complete {
		var report bytes.Buffer
		payload, err := m.judgeDir(ctx, runDir, &report)
		logText := report.String()
		if err != nil {
			row.JudgeExit = 1
			logText += fmt.Sprintf("JUDGE ERROR: %v\n", err)
		} else {
			row.JudgeExit = 0
			applyExecutionCap(payload, runDir)
			fillScores(row, payload)
		}
		if err := os.WriteFile(filepath.Join(runDir, judge.FileScoreLog), []byte(logText), 0o644); err != nil {
			return nil, fmt.Errorf("writing judge log: %w", err)
		}
		stamp := time.Now().Format("2006-01-02T15:04:05")
		if err := os.WriteFile(marker, []byte(stamp), 0o644); err != nil {
			return nil, fmt.Errorf("writing score marker: %w", err)
		}
	} else {
		logText := fmt.Sprintf("INCOMPLETE RUN: missing %s\n", strings.Join(missing, ", "))
		if err := os.WriteFile(filepath.Join(runDir, judge.FileScoreLog), []byte(logText), 0o644); err != nil {
			return nil, fmt.Errorf("writing judge log: %w", err)
		}
	}

	attachTelemetry(row, runDir)
	fmt.Fprintf(m.out, "scored %s/%s: complete=%t score=%s\n", row.Tool, row.RunID, complete, intCell(row.Score))
	return row, nil
}

// judgeDir runs the scoring engine in-process against one run directory.
func (m *Manager) judgeDir(ctx context.Context, runDir string, report io.Writer) (*judge.ScorePayload, error) {
	engine, err := judge.New(&judge.Config{
		Dir:       runDir,
		Settings:  m.settings,
		Out:       report,
		WriteJSON: true,
	})
	if err != nil {
		return nil, err
	}
	return engine.Evaluate(ctx)
}

// applyExecutionCap zeroes the quality component when the candidate's own
// test run failed: a battery score means nothing for code whose tests do not
// pass. The adjusted payload is rewritten so judge.json agrees with the CSV.
func applyExecutionCap(payload *judge.ScorePayload, runDir string) {
	if payload == nil || payload.Execution == nil || payload.Execution.Pytest == nil {
		return
	}
	if payload.Execution.Pytest.OK || payload.Quality == 0 {
		return
	}
	payload.Score -= payload.Quality
	payload.Quality = 0
	_ = payload.Write(runDir)
}

func fillScores(row *Row, payload *judge.ScorePayload) {
	row.Score = &payload.Score
	row.Context = &payload.Context
	row.Research = &payload.Research
	row.QA = &payload.QA
	row.Quality = &payload.Quality
	row.Docs = &payload.Docs
	row.RuffErrors = payload.RuffErrors
}

// attachTelemetry copies run telemetry into the row when telemetry.json is
// present.
func attachTelemetry(row *Row, runDir string) {
	report, raw := telemetry.Load(runDir)
	if report == nil {
		return
	}
	row.Model = report.Model
	row.Variant = report.Variant
	row.SessionID = report.SessionID
	row.TokensPrompt = report.TokensPrompt
	row.TokensCompletion = report.TokensCompletion
	row.TokensTotal = report.TokensTotal
	row.ToolsUsed = encodeList(report.ToolsUsed)
	row.Subagents = encodeList(report.Subagents)
	row.SkillsUsed = encodeList(report.SkillsUsed)
	row.SlashCommands = encodeList(report.SlashCommands)
	row.TelemetryJSON = &raw
}

func encodeList(items []string) *string {
	if len(items) == 0 {
		return nil
	}
	data, err := json.Marshal(items)
	if err != nil {
		return nil
	}
	encoded := string(data)
	return &encoded
}
