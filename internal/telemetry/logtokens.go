package telemetry

import (
	"os"
	"regexp"
	"strconv"
)

// LogTokens are token counts recovered from free-form log text.
type LogTokens struct {
	Prompt     *int64
	Completion *int64
	Total      *int64
}

var (
	promptPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)prompt[_\s-]*tokens?\s*[:=]\s*(\d+)`),
		regexp.MustCompile(`(?i)input[_\s-]*tokens?\s*[:=]\s*(\d+)`),
	}
	completionPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)completion[_\s-]*tokens?\s*[:=]\s*(\d+)`),
		regexp.MustCompile(`(?i)output[_\s-]*tokens?\s*[:=]\s*(\d+)`),
	}
	totalPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)total[_\s-]*tokens?\s*[:=]\s*(\d+)`),
		regexp.MustCompile(`(?i)tokens?[_\s-]*total\s*[:=]\s*(\d+)`),
	}
	combinedPattern = regexp.MustCompile(`(?is)prompt\s*[:=]\s*(\d+).*?completion\s*[:=]\s*(\d+).*?total\s*[:=]\s*(\d+)`)
)

// ParseLogTokens scans text for token counts. When a pattern matches more
// than once the largest value wins: agents log running totals, and the last
// (largest) entry is the final figure.
func ParseLogTokens(text string) LogTokens {
	prompt := maxMatch(text, promptPatterns)
	completion := maxMatch(text, completionPatterns)
	total := maxMatch(text, totalPatterns)

	for _, match := range combinedPattern.FindAllStringSubmatch(text, -1) {
		takeMax(&prompt, match[1])
		takeMax(&completion, match[2])
		takeMax(&total, match[3])
	}
	return LogTokens{Prompt: prompt, Completion: completion, Total: total}
}

// ParseLogTokensFromFiles combines per-file results, keeping the largest
// value for each counter. Unreadable files are skipped.
func ParseLogTokensFromFiles(paths []string) LogTokens {
	var combined LogTokens
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		parsed := ParseLogTokens(string(data))
		mergeMax(&combined.Prompt, parsed.Prompt)
		mergeMax(&combined.Completion, parsed.Completion)
		mergeMax(&combined.Total, parsed.Total)
	}
	return combined
}

func maxMatch(text string, patterns []*regexp.Regexp) *int64 {
	var best *int64
	for _, pattern := range patterns {
		for _, match := range pattern.FindAllStringSubmatch(text, -1) {
			takeMax(&best, match[1])
		}
	}
	return best
}

func takeMax(dst **int64, raw string) {
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return
	}
	if *dst == nil || value > **dst {
		*dst = &value
	}
}

func mergeMax(dst **int64, value *int64) {
	if value == nil {
		return
	}
	if *dst == nil || *value > **dst {
		v := *value
		*dst = &v
	}
}
