package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"titanjudge/internal/telemetry"
	"titanjudge/internal/toolrun"
)

var telemetryCmd = &cobra.Command{
	Use:   "telemetry",
	Short: "Collect session telemetry for a run directory",
	Long: `Extract session metadata from agent event exports and write
telemetry.json into the run directory. Events are read from --events, or
from events.jsonl / opencode_events.jsonl inside the run directory. With
--export the agent CLI is asked to export the --session first; the export
is kept as telemetry_raw.json.

An external phase log (lines of "<epoch_ms_or_iso>,<PHASE>") and agent log
files can supplement what the events carry.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		runDir, _ := cmd.Flags().GetString("run-dir")
		eventsPath, _ := cmd.Flags().GetString("events")
		phaseLogPath, _ := cmd.Flags().GetString("phase-log")
		logPaths, _ := cmd.Flags().GetString("logs")
		sessionID, _ := cmd.Flags().GetString("session")
		model, _ := cmd.Flags().GetString("model")
		variant, _ := cmd.Flags().GetString("variant")
		export, _ := cmd.Flags().GetBool("export")

		if err := os.MkdirAll(runDir, 0o755); err != nil {
			return fmt.Errorf("creating run directory: %w", err)
		}

		var events []*telemetry.Node
		var rawPath string
		var err error
		if export {
			if sessionID == "" {
				return fmt.Errorf("--export requires --session")
			}
			settings, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			rawPath, err = telemetry.ExportSession(cmd.Context(), toolrun.Run, runDir, sessionID, settings.QualityTimeout)
			if err != nil {
				return err
			}
			events, err = telemetry.LoadEventsJSON(rawPath)
			if err != nil {
				return err
			}
		} else if events, rawPath, err = loadEvents(runDir, eventsPath); err != nil {
			return err
		}

		var timeline []telemetry.PhaseMark
		if phaseLogPath != "" {
			timeline, err = telemetry.LoadPhaseLog(phaseLogPath)
			if err != nil {
				return err
			}
		}

		report := telemetry.Collect(events, timeline, telemetry.Overrides{
			SessionID: sessionID,
			Model:     model,
			Variant:   variant,
			RawEvents: rawPath,
		})
		if logPaths != "" {
			var paths []string
			for _, path := range strings.Split(logPaths, ",") {
				if path = strings.TrimSpace(path); path != "" {
					paths = append(paths, path)
				}
			}
			report.FillTokensFromLogs(telemetry.ParseLogTokensFromFiles(paths))
		}

		if err := report.Write(runDir); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote telemetry to %s\n", filepath.Join(runDir, telemetry.ReportFile))
		return nil
	},
}

// loadEvents resolves and reads the events source, returning the path it was
// read from.
func loadEvents(runDir, eventsPath string) ([]*telemetry.Node, string, error) {
	if eventsPath != "" {
		events, err := telemetry.LoadEventsJSONL(eventsPath)
		return events, eventsPath, err
	}
	for _, name := range []string{"events.jsonl", "opencode_events.jsonl"} {
		candidate := filepath.Join(runDir, name)
		if _, err := os.Stat(candidate); err == nil {
			events, err := telemetry.LoadEventsJSONL(candidate)
			return events, candidate, err
		}
	}
	return nil, "", nil
}

func init() {
	telemetryCmd.Flags().String("run-dir", "", "Run directory to write telemetry.json into")
	telemetryCmd.Flags().String("events", "", "Path to a JSONL events file")
	telemetryCmd.Flags().String("phase-log", "", "Phase log file with lines: <epoch_ms_or_iso>,<PHASE>")
	telemetryCmd.Flags().String("logs", "", "Comma-separated log paths to parse token stats from")
	telemetryCmd.Flags().String("session", "", "Session ID override")
	telemetryCmd.Flags().String("model", "", "Model identifier override (provider/model)")
	telemetryCmd.Flags().String("variant", "", "Model variant override")
	telemetryCmd.Flags().Bool("export", false, "Export the session from the agent CLI before collecting")
	_ = telemetryCmd.MarkFlagRequired("run-dir")
	rootCmd.AddCommand(telemetryCmd)
}
