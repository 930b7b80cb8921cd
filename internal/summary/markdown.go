package summary

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

func cell(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// Markdown renders the summaries as a two-table report.
func Markdown(summaries []ToolSummary, sourcePath string) string {
	var b strings.Builder
	b.WriteString("# Titan Protocol Summary\n\n")
	fmt.Fprintf(&b, "Source: `%s`\n\n", sourcePath)

	b.WriteString("## Overall Scores\n\n")
	b.WriteString("| Tool | Runs | Complete | Avg | Min | Max |\n")
	b.WriteString("| --- | --- | --- | --- | --- | --- |\n")
	for _, s := range summaries {
		fmt.Fprintf(&b, "| %s | %d | %d | %s | %s | %s |\n",
			s.Tool, s.Runs, s.Complete, cell(s.AvgScore), cell(s.MinScore), cell(s.MaxScore))
	}

	b.WriteString("\n## Trap Averages\n\n")
	b.WriteString("| Tool | Context | Research | QA | Quality | Docs |\n")
	b.WriteString("| --- | --- | --- | --- | --- | --- |\n")
	for _, s := range summaries {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s |\n",
			s.Tool, cell(s.Context), cell(s.Research), cell(s.QA), cell(s.Quality), cell(s.Docs))
	}
	return b.String()
}

// WriteMarkdown writes the Markdown report to a file.
func WriteMarkdown(summaries []ToolSummary, outPath, sourcePath string) error {
	if err := os.WriteFile(outPath, []byte(Markdown(summaries, sourcePath)), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", outPath, err)
	}
	return nil
}
