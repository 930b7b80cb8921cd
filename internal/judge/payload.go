package judge

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"titanjudge/internal/quality"
)

// ScorePayload is the full scoring record written to judge.json.
type ScorePayload struct {
	Score            int                `json:"score"`
	Context          int                `json:"context"`
	Research         int                `json:"research"`
	QA               int                `json:"qa"`
	Quality          int                `json:"quality"`
	Docs             int                `json:"docs"`
	RuffErrors       *int               `json:"ruff_errors"`
	Execution        *Execution         `json:"execution"`
	QualityBreakdown *quality.Breakdown `json:"quality_breakdown"`
}

// LoadPayload reads a previously written judge.json from a run directory.
func LoadPayload(dir string) (*ScorePayload, error) {
	path := filepath.Join(dir, FileScoreJSON)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var payload ScorePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &payload, nil
}

// Write stores the payload as judge.json in the run directory.
func (p *ScorePayload) Write(dir string) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding score payload: %w", err)
	}
	path := filepath.Join(dir, FileScoreJSON)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
