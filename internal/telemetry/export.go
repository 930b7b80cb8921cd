package telemetry

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"titanjudge/internal/toolrun"
)

// RawExportFile holds a session export fetched from the agent CLI.
const RawExportFile = "telemetry_raw.json"

// ExportSession shells out to the agent CLI for a session's event export and
// stores it as telemetry_raw.json in the run directory. Returns the path of
// the written file.
func ExportSession(ctx context.Context, run toolrun.RunFunc, runDir, sessionID string, timeout time.Duration) (string, error) {
	if sessionID == "" {
		return "", fmt.Errorf("session id is required for export")
	}
	result := run(ctx, []string{"opencode", "export", sessionID}, runDir, timeout)
	if !result.OK {
		detail := strings.TrimSpace(result.Stderr)
		if detail == "" {
			detail = fmt.Sprintf("exit code %d", result.ReturnCode)
		}
		return "", fmt.Errorf("exporting session %s: %s", sessionID, detail)
	}
	path := filepath.Join(runDir, RawExportFile)
	if err := os.WriteFile(path, []byte(result.Stdout), 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}
