package telemetry

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

func parseEvents(t *testing.T, docs ...string) []*Node {
	t.Helper()
	var events []*Node
	for _, doc := range docs {
		event, err := ParseEvent([]byte(doc))
		require.NoError(t, err)
		events = append(events, event)
	}
	return events
}

func TestCollect_SessionAndModel(t *testing.T) {
	events := parseEvents(t,
		`{"sessionID":"ses_123","model":"anthropic/claude-sonnet-4"}`,
		`{"model":{"providerID":"openai","modelID":"gpt-5","variant":"high"}}`,
	)

	report := Collect(events, nil, Overrides{})

	require.NotNil(t, report.SessionID)
	assert.Equal(t, "ses_123", *report.SessionID)
	assert.Equal(t, []string{"anthropic/claude-sonnet-4", "openai/gpt-5"}, report.Models)
	require.NotNil(t, report.Model)
	assert.Equal(t, "anthropic/claude-sonnet-4", *report.Model)
	require.NotNil(t, report.Variant)
	assert.Equal(t, "high", *report.Variant)
	require.NotNil(t, report.EventCount)
	assert.Equal(t, 2, *report.EventCount)
}

func TestCollect_OverridesWin(t *testing.T) {
	events := parseEvents(t, `{"sessionID":"ses_aaa","model":"x/y"}`)

	report := Collect(events, nil, Overrides{SessionID: "ses_bbb", Model: "p/q", Variant: "max"})

	assert.Equal(t, "ses_bbb", *report.SessionID)
	assert.Equal(t, "p/q", *report.Model)
	assert.Equal(t, "max", *report.Variant)
}

func TestCollect_ToolsAndAgents(t *testing.T) {
	events := parseEvents(t,
		`{"tool":"bash"}`,
		`{"parts":[{"toolName":"edit"},{"tool_name":"bash"}]}`,
		`{"subagent_type":"reviewer","skills":["search","summarize"]}`,
		`{"slash_command":"/compact"}`,
	)

	report := Collect(events, nil, Overrides{})

	assert.Equal(t, []string{"bash", "edit"}, report.ToolsUsed)
	assert.Equal(t, []string{"reviewer"}, report.Subagents)
	assert.Equal(t, []string{"search", "summarize"}, report.SkillsUsed)
	assert.Equal(t, []string{"/compact"}, report.SlashCommands)
}

func TestCollect_TokenSums(t *testing.T) {
	events := parseEvents(t,
		`{"usage":{"prompt":100,"completion":40}}`,
		`{"tokens":{"input":50,"output":10}}`,
		`{"prompt_tokens":5,"completion_tokens":5}`,
	)

	report := Collect(events, nil, Overrides{})

	require.NotNil(t, report.TokensPrompt)
	assert.EqualValues(t, 155, *report.TokensPrompt)
	require.NotNil(t, report.TokensCompletion)
	assert.EqualValues(t, 55, *report.TokensCompletion)
	// Derived when no explicit total is present.
	require.NotNil(t, report.TokensTotal)
	assert.EqualValues(t, 210, *report.TokensTotal)
}

func TestCollect_ExplicitTotalNotOverridden(t *testing.T) {
	events := parseEvents(t, `{"usage":{"prompt":10,"completion":10,"total":25}}`)

	report := Collect(events, nil, Overrides{})

	require.NotNil(t, report.TokensTotal)
	assert.EqualValues(t, 25, *report.TokensTotal)
}

func TestCollect_PhaseMarkers(t *testing.T) {
	events := parseEvents(t,
		`{"timestamp":1000000000001,"content":"starting PHASE: PLAN now"}`,
		`{"time":1700000000,"text":"PHASE: BUILD"}`,
		`{"created_at":"2024-01-02T03:04:05Z","message":"PHASE: verify-output"}`,
		`{"content":"PHASE: IGNORED no timestamp"}`,
	)

	report := Collect(events, nil, Overrides{})

	require.Len(t, report.PhaseTimeline, 3)
	phases := map[string]bool{}
	for _, mark := range report.PhaseTimeline {
		phases[mark.Phase] = true
	}
	assert.True(t, phases["PLAN"])
	assert.True(t, phases["BUILD"])
	assert.True(t, phases["VERIFY-OUTPUT"])
}

func TestCollect_Empty(t *testing.T) {
	report := Collect(nil, nil, Overrides{})

	assert.Nil(t, report.SessionID)
	assert.Nil(t, report.Model)
	assert.Nil(t, report.TokensTotal)
	assert.Nil(t, report.EventCount)
	assert.Empty(t, report.ToolsUsed)
	assert.Nil(t, report.DurationMS)
	assert.Nil(t, report.RawEvents)
}

func TestCollect_RecordsEventsSource(t *testing.T) {
	events := parseEvents(t, `{"sessionID":"ses_123"}`)

	report := Collect(events, nil, Overrides{RawEvents: "/runs/r1/events.jsonl"})

	require.NotNil(t, report.RawEvents)
	assert.Equal(t, "/runs/r1/events.jsonl", *report.RawEvents)
}

func TestExportSession(t *testing.T) {
	runDir := t.TempDir()
	var gotArgs []string
	run := func(ctx context.Context, args []string, dir string, timeout time.Duration) toolrun.Result {
		gotArgs = args
		assert.Equal(t, runDir, dir)
		return toolrun.Result{OK: true, Stdout: `[{"sessionID":"ses_123"}]`}
	}

	path, err := ExportSession(context.Background(), run, runDir, "ses_123", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, []string{"opencode", "export", "ses_123"}, gotArgs)
	assert.Equal(t, filepath.Join(runDir, RawExportFile), path)

	events, err := LoadEventsJSON(path)
	require.NoError(t, err)
	require.Len(t, events, 1)
	report := Collect(events, nil, Overrides{RawEvents: path})
	require.NotNil(t, report.SessionID)
	assert.Equal(t, "ses_123", *report.SessionID)
	require.NotNil(t, report.RawEvents)
	assert.Equal(t, path, *report.RawEvents)
}

func TestExportSession_Failure(t *testing.T) {
	run := func(ctx context.Context, args []string, dir string, timeout time.Duration) toolrun.Result {
		return toolrun.Result{ReturnCode: 1, Stderr: "session not found"}
	}

	_, err := ExportSession(context.Background(), run, t.TempDir(), "ses_gone", time.Minute)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session not found")

	_, err = ExportSession(context.Background(), run, t.TempDir(), "", time.Minute)
	assert.Error(t, err)
}

func TestPhaseDurations(t *testing.T) {
	timeline := []PhaseMark{
		{Phase: "BUILD", TimestampMS: 2000},
		{Phase: "PLAN", TimestampMS: 1000},
		{Phase: "TEST", TimestampMS: 5000},
	}

	durations, total := PhaseDurations(timeline)

	require.NotNil(t, total)
	assert.EqualValues(t, 4000, *total)
	assert.EqualValues(t, 1000, durations["PLAN"])
	assert.EqualValues(t, 3000, durations["BUILD"])
	// The last phase has no successor.
	assert.NotContains(t, durations, "TEST")
}

func TestPhaseDurations_Empty(t *testing.T) {
	durations, total := PhaseDurations(nil)
	assert.Nil(t, durations)
	assert.Nil(t, total)
}

func TestLoadPhaseLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "phases.log")
	content := "1700000000000,plan\n" +
		"2024-01-02T03:04:05Z,BUILD\n" +
		"garbage line\n" +
		"notatime,TEST\n" +
		"\n" +
		"1700000100000,SHIP\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	timeline, err := LoadPhaseLog(path)
	require.NoError(t, err)

	require.Len(t, timeline, 3)
	assert.Equal(t, "PLAN", timeline[0].Phase)
	assert.EqualValues(t, 1700000000000, timeline[0].TimestampMS)
	assert.Equal(t, "BUILD", timeline[1].Phase)
	assert.Equal(t, "SHIP", timeline[2].Phase)
}

func TestLoadEventsJSONL_SkipsBadLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	content := `{"tool":"bash"}` + "\n" +
		"not json\n" +
		"\n" +
		`{"tool":"edit"}` + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	events, err := LoadEventsJSONL(path)
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestParseLogTokens(t *testing.T) {
	text := "prompt tokens: 120\n" +
		"output_tokens = 30\n" +
		"prompt_tokens: 400\n" +
		"tokens total: 430\n"

	tokens := ParseLogTokens(text)

	require.NotNil(t, tokens.Prompt)
	assert.EqualValues(t, 400, *tokens.Prompt)
	require.NotNil(t, tokens.Completion)
	assert.EqualValues(t, 30, *tokens.Completion)
	require.NotNil(t, tokens.Total)
	assert.EqualValues(t, 430, *tokens.Total)
}

func TestParseLogTokens_CombinedLine(t *testing.T) {
	tokens := ParseLogTokens("usage prompt: 10, completion: 5, total: 15\n")

	require.NotNil(t, tokens.Total)
	assert.EqualValues(t, 10, *tokens.Prompt)
	assert.EqualValues(t, 5, *tokens.Completion)
	assert.EqualValues(t, 15, *tokens.Total)
}

func TestParseLogTokens_NoMatches(t *testing.T) {
	tokens := ParseLogTokens("nothing to see here")
	assert.Nil(t, tokens.Prompt)
	assert.Nil(t, tokens.Completion)
	assert.Nil(t, tokens.Total)
}

func TestFillTokensFromLogs(t *testing.T) {
	events := parseEvents(t, `{"usage":{"prompt":100,"completion":40}}`)
	report := Collect(events, nil, Overrides{})

	fifty := int64(50)
	nine := int64(900)
	report.FillTokensFromLogs(LogTokens{Prompt: &fifty, Total: &nine})

	// Collected prompt count is kept, missing total is backfilled.
	assert.EqualValues(t, 100, *report.TokensPrompt)
	assert.EqualValues(t, 140, *report.TokensTotal)
}

func TestReport_WriteLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	events := parseEvents(t, `{"sessionID":"ses_x","tool":"bash","usage":{"prompt":10,"completion":2}}`)
	report := Collect(events, nil, Overrides{Model: "anthropic/claude-sonnet-4"})

	require.NoError(t, report.Write(dir))

	loaded, raw := Load(dir)
	require.NotNil(t, loaded)
	assert.NotEmpty(t, raw)
	assert.Equal(t, "ses_x", *loaded.SessionID)
	assert.Equal(t, "anthropic/claude-sonnet-4", *loaded.Model)
	assert.Equal(t, []string{"bash"}, loaded.ToolsUsed)
	assert.EqualValues(t, 12, *loaded.TokensTotal)
}

func TestLoad_MissingOrMalformed(t *testing.T) {
	report, raw := Load(t.TempDir())
	assert.Nil(t, report)
	assert.Empty(t, raw)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ReportFile), []byte("not json"), 0o644))
	report, raw = Load(dir)
	assert.Nil(t, report)
	assert.Empty(t, raw)
}
