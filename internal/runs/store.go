// Package runs manages the lifecycle of scoring runs: preparing run
// directories per tool, checking completion, scoring each directory, and
// appending results to append-only CSV and JSONL stores.
package runs

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// csvFields fixes the result schema. Appends always use this header; older
// files with a different header are migrated in place.
var csvFields = []string{
	"timestamp",
	"tool",
	"run_id",
	"complete",
	"missing",
	"score",
	"context",
	"research",
	"qa",
	"quality",
	"docs",
	"ruff_errors",
	"judge_exit",
	"model",
	"variant",
	"session_id",
	"tokens_prompt",
	"tokens_completion",
	"tokens_total",
	"tools_used",
	"subagents",
	"skills_used",
	"slash_commands",
	"telemetry_json",
}

// Row is one scored run. Nullable columns are pointers; nil renders as an
// empty CSV cell and JSON null.
type Row struct {
	Timestamp        string  `json:"timestamp"`
	Tool             string  `json:"tool"`
	RunID            string  `json:"run_id"`
	Complete         bool    `json:"complete"`
	Missing          string  `json:"missing"`
	Score            *int    `json:"score"`
	Context          *int    `json:"context"`
	Research         *int    `json:"research"`
	QA               *int    `json:"qa"`
	Quality          *int    `json:"quality"`
	Docs             *int    `json:"docs"`
	RuffErrors       *int    `json:"ruff_errors"`
	JudgeExit        int     `json:"judge_exit"`
	Model            *string `json:"model"`
	Variant          *string `json:"variant"`
	SessionID        *string `json:"session_id"`
	TokensPrompt     *int64  `json:"tokens_prompt"`
	TokensCompletion *int64  `json:"tokens_completion"`
	TokensTotal      *int64  `json:"tokens_total"`
	ToolsUsed        *string `json:"tools_used"`
	Subagents        *string `json:"subagents"`
	SkillsUsed       *string `json:"skills_used"`
	SlashCommands    *string `json:"slash_commands"`
	TelemetryJSON    *string `json:"telemetry_json"`
}

func intCell(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func int64Cell(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}

func strCell(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

// record renders the row in csvFields order.
func (r *Row) record() []string {
	return []string{
		r.Timestamp,
		r.Tool,
		r.RunID,
		strconv.FormatBool(r.Complete),
		r.Missing,
		intCell(r.Score),
		intCell(r.Context),
		intCell(r.Research),
		intCell(r.QA),
		intCell(r.Quality),
		intCell(r.Docs),
		intCell(r.RuffErrors),
		strconv.Itoa(r.JudgeExit),
		strCell(r.Model),
		strCell(r.Variant),
		strCell(r.SessionID),
		int64Cell(r.TokensPrompt),
		int64Cell(r.TokensCompletion),
		int64Cell(r.TokensTotal),
		strCell(r.ToolsUsed),
		strCell(r.Subagents),
		strCell(r.SkillsUsed),
		strCell(r.SlashCommands),
		strCell(r.TelemetryJSON),
	}
}

// Store appends scored rows to a CSV file and a JSONL file.
type Store struct {
	CSVPath   string
	JSONLPath string
}

// NewStore creates a store writing to the given paths.
func NewStore(csvPath, jsonlPath string) *Store {
	return &Store{CSVPath: csvPath, JSONLPath: jsonlPath}
}

// Append writes rows to both outputs, migrating the CSV schema first when the
// existing header differs.
func (s *Store) Append(rows []Row) error {
	if err := os.MkdirAll(filepath.Dir(s.CSVPath), 0o755); err != nil {
		return fmt.Errorf("creating results directory: %w", err)
	}
	if err := s.ensureCSVSchema(); err != nil {
		return err
	}

	f, err := os.OpenFile(s.CSVPath, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening %s: %w", s.CSVPath, err)
	}
	w := csv.NewWriter(f)
	for i := range rows {
		if err := w.Write(rows[i].record()); err != nil {
			f.Close()
			return fmt.Errorf("writing %s: %w", s.CSVPath, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", s.CSVPath, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", s.CSVPath, err)
	}

	return s.appendJSONL(rows)
}

func (s *Store) appendJSONL(rows []Row) error {
	if err := os.MkdirAll(filepath.Dir(s.JSONLPath), 0o755); err != nil {
		return fmt.Errorf("creating results directory: %w", err)
	}
	f, err := os.OpenFile(s.JSONLPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening %s: %w", s.JSONLPath, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	for i := range rows {
		if err := enc.Encode(&rows[i]); err != nil {
			return fmt.Errorf("writing %s: %w", s.JSONLPath, err)
		}
	}
	return nil
}

// ensureCSVSchema writes the header for a fresh file, and rewrites an
// existing file under the current header when its header is older. Cells are
// carried over by column name; columns the old file lacked come out empty.
func (s *Store) ensureCSVSchema() error {
	existing, err := os.ReadFile(s.CSVPath)
	if os.IsNotExist(err) {
		return s.writeCSV(nil)
	}
	if err != nil {
		return fmt.Errorf("reading %s: %w", s.CSVPath, err)
	}

	reader := csv.NewReader(bytes.NewReader(existing))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return fmt.Errorf("parsing %s: %w", s.CSVPath, err)
	}
	if len(records) == 0 {
		return s.writeCSV(nil)
	}

	header := records[0]
	if equalFields(header, csvFields) {
		return nil
	}

	index := map[string]int{}
	for i, name := range header {
		index[name] = i
	}
	var migrated [][]string
	for _, old := range records[1:] {
		row := make([]string, len(csvFields))
		for i, name := range csvFields {
			if j, ok := index[name]; ok && j < len(old) {
				row[i] = old[j]
			}
		}
		migrated = append(migrated, row)
	}
	return s.writeCSV(migrated)
}

func (s *Store) writeCSV(rows [][]string) error {
	f, err := os.Create(s.CSVPath)
	if err != nil {
		return fmt.Errorf("creating %s: %w", s.CSVPath, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvFields); err != nil {
		return fmt.Errorf("writing %s: %w", s.CSVPath, err)
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return fmt.Errorf("writing %s: %w", s.CSVPath, err)
		}
	}
	w.Flush()
	return w.Error()
}

func equalFields(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
