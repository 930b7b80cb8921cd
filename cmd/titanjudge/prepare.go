package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"titanjudge/internal/runs"
)

var prepareCmd = &cobra.Command{
	Use:   "prepare",
	Short: "Create fresh run directories for each tool",
	Long: `Create run directories under artifacts/runs/<tool>/ and seed each with
the template files agents need (legacy_crypto.py, TITAN_SPEC.md, README.md).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := loadSettings(cmd)
		if err != nil {
			return err
		}
		baseDir, _ := cmd.Flags().GetString("base")
		runsPerTool, _ := cmd.Flags().GetInt("runs")
		tools, err := toolList(cmd)
		if err != nil {
			return err
		}

		manager, err := runs.NewManager(&runs.Options{
			BaseDir:  baseDir,
			Settings: settings,
			Out:      cmd.OutOrStdout(),
		})
		if err != nil {
			return err
		}
		created, err := manager.Prepare(tools, runsPerTool)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Prepared %d run directories\n", len(created))
		return nil
	},
}

func toolList(cmd *cobra.Command) ([]string, error) {
	raw, _ := cmd.Flags().GetString("tools")
	var tools []string
	for _, tool := range strings.Split(raw, ",") {
		if tool = strings.TrimSpace(tool); tool != "" {
			tools = append(tools, tool)
		}
	}
	if len(tools) == 0 {
		return nil, fmt.Errorf("no tools specified")
	}
	return tools, nil
}

func init() {
	prepareCmd.Flags().String("base", ".", "Base directory holding templates and artifacts/")
	prepareCmd.Flags().String("tools", strings.Join(runs.DefaultTools, ","), "Comma-separated tool names")
	prepareCmd.Flags().Int("runs", 1, "Run directories to create per tool")
	rootCmd.AddCommand(prepareCmd)
}
