package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"titanjudge/internal/runs"
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Judge unscored run directories and append results",
	Long: `Judge every unscored run directory under artifacts/runs/<tool>/ and
append one row per run to the results CSV and JSONL files.

Scored directories carry a .scored marker and are skipped unless --rescore
is given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := loadSettings(cmd)
		if err != nil {
			return err
		}
		baseDir, _ := cmd.Flags().GetString("base")
		rescore, _ := cmd.Flags().GetBool("rescore")
		concurrency, _ := cmd.Flags().GetInt("concurrency")
		outCSV, _ := cmd.Flags().GetString("out-csv")
		outJSON, _ := cmd.Flags().GetString("out-json")
		tools, err := toolList(cmd)
		if err != nil {
			return err
		}

		manager, err := runs.NewManager(&runs.Options{
			BaseDir:     baseDir,
			Settings:    settings,
			Out:         cmd.OutOrStdout(),
			Concurrency: concurrency,
		})
		if err != nil {
			return err
		}
		store := runs.NewStore(filepath.Join(baseDir, outCSV), filepath.Join(baseDir, outJSON))
		rows, err := manager.Score(cmd.Context(), tools, store, rescore)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Scored %d runs. Appended to %s\n", len(rows), store.CSVPath)
		return nil
	},
}

func init() {
	scoreCmd.Flags().String("base", ".", "Base directory holding templates and artifacts/")
	scoreCmd.Flags().String("tools", strings.Join(runs.DefaultTools, ","), "Comma-separated tool names")
	scoreCmd.Flags().Bool("rescore", false, "Re-score runs even if they were scored before")
	scoreCmd.Flags().Int("concurrency", 1, "Run directories judged in parallel")
	scoreCmd.Flags().String("out-csv", filepath.Join(runs.ArtifactsDir, "results.csv"), "CSV results path relative to base")
	scoreCmd.Flags().String("out-json", filepath.Join(runs.ArtifactsDir, "results.jsonl"), "JSONL results path relative to base")
	rootCmd.AddCommand(scoreCmd)
}
