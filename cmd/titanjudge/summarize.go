package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"titanjudge/internal/runs"
	"titanjudge/internal/summary"
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize",
	Short: "Aggregate results into a Markdown report and spreadsheet",
	RunE: func(cmd *cobra.Command, args []string) error {
		baseDir, _ := cmd.Flags().GetString("base")
		input, _ := cmd.Flags().GetString("input")
		outMD, _ := cmd.Flags().GetString("out-md")
		outXLSX, _ := cmd.Flags().GetString("out-xlsx")

		inputPath := filepath.Join(baseDir, input)
		records, err := summary.Load(inputPath)
		if err != nil {
			return err
		}
		summaries := summary.Summarize(records)

		mdPath := filepath.Join(baseDir, outMD)
		if err := summary.WriteMarkdown(summaries, mdPath, inputPath); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote summary: %s\n", mdPath)

		if outXLSX != "" {
			xlsxPath := filepath.Join(baseDir, outXLSX)
			if err := summary.WriteWorkbook(summaries, xlsxPath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote workbook: %s\n", xlsxPath)
		}
		return nil
	},
}

func init() {
	summarizeCmd.Flags().String("base", ".", "Base directory holding artifacts/")
	summarizeCmd.Flags().String("input", filepath.Join(runs.ArtifactsDir, "results.csv"), "Results input path (CSV or JSONL), relative to base")
	summarizeCmd.Flags().String("out-md", filepath.Join(runs.ArtifactsDir, "summary.md"), "Markdown summary output, relative to base")
	summarizeCmd.Flags().String("out-xlsx", filepath.Join(runs.ArtifactsDir, "summary.xlsx"), "Spreadsheet output, relative to base (empty to skip)")
	rootCmd.AddCommand(summarizeCmd)
}
