package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// ReportFile is the telemetry artifact written into a run directory.
const ReportFile = "telemetry.json"

// Report is the collected telemetry for one run.
type Report struct {
	SessionID        *string          `json:"session_id"`
	Model            *string          `json:"model"`
	Variant          *string          `json:"variant"`
	TokensPrompt     *int64           `json:"tokens_prompt"`
	TokensCompletion *int64           `json:"tokens_completion"`
	TokensTotal      *int64           `json:"tokens_total"`
	ToolsUsed        []string         `json:"tools_used"`
	Subagents        []string         `json:"subagents"`
	SkillsUsed       []string         `json:"skills_used"`
	SlashCommands    []string         `json:"slash_commands"`
	Models           []string         `json:"models"`
	EventCount       *int             `json:"event_count"`
	RawEvents        *string          `json:"raw_events"`
	PhaseTimeline    []PhaseMark      `json:"phase_timeline"`
	PhaseDurationsMS map[string]int64 `json:"phase_durations_ms"`
	DurationMS       *int64           `json:"duration_ms"`
}

// Overrides are caller-supplied values that win over anything extracted from
// the events. RawEvents records the path the events were read from.
type Overrides struct {
	SessionID string
	Model     string
	Variant   string
	RawEvents string
}

// Collect walks all events and assembles a report. extraTimeline entries
// (from an external phase log) are merged with markers found in the events.
func Collect(events []*Node, extraTimeline []PhaseMark, overrides Overrides) *Report {
	c := newCollector()
	for _, event := range events {
		event.Walk(c.visit)
	}
	if c.tokensTotal == 0 && c.tokensPrompt > 0 && c.tokensCompletion > 0 {
		c.tokensTotal = c.tokensPrompt + c.tokensCompletion
	}

	timeline := append([]PhaseMark{}, extraTimeline...)
	timeline = append(timeline, c.timeline...)
	durations, total := PhaseDurations(timeline)

	models := sortedSet(c.models)
	report := &Report{
		ToolsUsed:        sortedSet(c.tools),
		Subagents:        sortedSet(c.subagents),
		SkillsUsed:       sortedSet(c.skills),
		SlashCommands:    sortedSet(c.slashCommands),
		Models:           models,
		PhaseTimeline:    timeline,
		PhaseDurationsMS: durations,
		DurationMS:       total,
	}

	sessionID := overrides.SessionID
	if sessionID == "" {
		sessionID = c.sessionID
	}
	if sessionID != "" {
		report.SessionID = &sessionID
	}
	model := overrides.Model
	if model == "" && len(models) > 0 {
		model = models[0]
	}
	if model != "" {
		report.Model = &model
	}
	variant := overrides.Variant
	if variant == "" {
		variant = c.variant
	}
	if variant != "" {
		report.Variant = &variant
	}
	if overrides.RawEvents != "" {
		raw := overrides.RawEvents
		report.RawEvents = &raw
	}
	setIfPositive(&report.TokensPrompt, c.tokensPrompt)
	setIfPositive(&report.TokensCompletion, c.tokensCompletion)
	setIfPositive(&report.TokensTotal, c.tokensTotal)

	if len(events) > 0 {
		count := len(events)
		report.EventCount = &count
	}
	return report
}

func setIfPositive(dst **int64, value int64) {
	if value > 0 {
		v := value
		*dst = &v
	}
}

// FillTokensFromLogs backfills token counts that the events did not carry
// from best-effort log parsing. Existing non-zero values are kept.
func (r *Report) FillTokensFromLogs(tokens LogTokens) {
	fill := func(dst **int64, value *int64) {
		if (*dst == nil || **dst == 0) && value != nil {
			v := *value
			*dst = &v
		}
	}
	fill(&r.TokensPrompt, tokens.Prompt)
	fill(&r.TokensCompletion, tokens.Completion)
	fill(&r.TokensTotal, tokens.Total)
}

// PhaseDurations computes per-phase durations from a timeline: each marker
// lasts until the next one, and the total spans first to last. Returns nil
// maps for an empty timeline.
func PhaseDurations(timeline []PhaseMark) (map[string]int64, *int64) {
	if len(timeline) == 0 {
		return nil, nil
	}
	sorted := append([]PhaseMark{}, timeline...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].TimestampMS < sorted[j].TimestampMS
	})

	durations := map[string]int64{}
	for i := 0; i+1 < len(sorted); i++ {
		durations[sorted[i].Phase] = sorted[i+1].TimestampMS - sorted[i].TimestampMS
	}
	total := sorted[len(sorted)-1].TimestampMS - sorted[0].TimestampMS
	return durations, &total
}

// Write stores the report as telemetry.json in the run directory.
func (r *Report) Write(runDir string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding telemetry: %w", err)
	}
	path := filepath.Join(runDir, ReportFile)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// Load reads a run directory's telemetry.json along with its raw text. A
// missing or malformed file returns nil without error: telemetry is always
// optional.
func Load(runDir string) (*Report, string) {
	data, err := os.ReadFile(filepath.Join(runDir, ReportFile))
	if err != nil {
		return nil, ""
	}
	var report Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, ""
	}
	return &report, string(data)
}
