package telemetry

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// LoadPhaseLog reads an external phase log with one `<timestamp>,<PHASE>`
// entry per line. Timestamps are epoch milliseconds or RFC 3339; lines that
// do not parse are skipped.
func LoadPhaseLog(path string) ([]PhaseMark, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var timeline []PhaseMark
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		raw, phase, found := strings.Cut(line, ",")
		if !found {
			continue
		}
		raw = strings.TrimSpace(raw)
		phase = strings.TrimSpace(phase)

		ts, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			ts, err = parseISOTimestamp(raw)
			if err != nil {
				continue
			}
		}
		timeline = append(timeline, PhaseMark{
			Phase:       strings.ToUpper(phase),
			TimestampMS: ts,
		})
	}
	return timeline, nil
}
