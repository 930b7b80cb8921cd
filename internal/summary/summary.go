// Package summary aggregates scored run results into per-tool statistics and
// renders them as Markdown and as a spreadsheet.
package summary

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/montanaflynn/stats"
)

// Record is one result row, keyed by column name. Values are strings
// regardless of source; numeric fields are parsed on demand.
type Record map[string]string

// Load reads results from a CSV or JSONL file, selected by extension.
func Load(path string) ([]Record, error) {
	switch filepath.Ext(path) {
	case ".jsonl", ".json":
		return loadJSONL(path)
	default:
		return loadCSV(path)
	}
}

func loadCSV(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	header := rows[0]
	var records []Record
	for _, row := range rows[1:] {
		record := Record{}
		for i, name := range header {
			if i < len(row) {
				record[name] = row[i]
			}
		}
		records = append(records, record)
	}
	return records, nil
}

func loadJSONL(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var records []Record
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var raw map[string]any
		if err := json.Unmarshal([]byte(line), &raw); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
		record := Record{}
		for key, value := range raw {
			record[key] = stringify(value)
		}
		records = append(records, record)
	}
	return records, scanner.Err()
}

func stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(data)
	}
}

// ToolSummary is the aggregate for one tool's runs.
type ToolSummary struct {
	Tool     string
	Runs     int
	Complete int
	AvgScore *float64
	MinScore *float64
	MaxScore *float64
	Context  *float64
	Research *float64
	QA       *float64
	Quality  *float64
	Docs     *float64
}

// Summarize groups records by tool and computes score statistics, sorted by
// tool name.
func Summarize(records []Record) []ToolSummary {
	byTool := map[string][]Record{}
	for _, record := range records {
		tool := record["tool"]
		if tool == "" {
			tool = "unknown"
		}
		byTool[tool] = append(byTool[tool], record)
	}

	var summaries []ToolSummary
	for tool, items := range byTool {
		scores := fieldValues(items, "score")
		s := ToolSummary{
			Tool:     tool,
			Runs:     len(items),
			Complete: completeCount(items),
			AvgScore: roundedMean(scores),
			Context:  roundedMean(fieldValues(items, "context")),
			Research: roundedMean(fieldValues(items, "research")),
			QA:       roundedMean(fieldValues(items, "qa")),
			Quality:  roundedMean(fieldValues(items, "quality")),
			Docs:     roundedMean(fieldValues(items, "docs")),
		}
		if len(scores) > 0 {
			if v, err := stats.Min(scores); err == nil {
				s.MinScore = &v
			}
			if v, err := stats.Max(scores); err == nil {
				s.MaxScore = &v
			}
		}
		summaries = append(summaries, s)
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Tool < summaries[j].Tool })
	return summaries
}

func completeCount(items []Record) int {
	count := 0
	for _, record := range items {
		if strings.EqualFold(record["complete"], "true") {
			count++
		}
	}
	return count
}

func fieldValues(items []Record, field string) []float64 {
	var values []float64
	for _, record := range items {
		raw := record[field]
		if raw == "" {
			continue
		}
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			values = append(values, v)
		}
	}
	return values
}

func roundedMean(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	mean, err := stats.Mean(values)
	if err != nil {
		return nil
	}
	rounded, err := stats.Round(mean, 2)
	if err != nil {
		return nil
	}
	return &rounded
}
