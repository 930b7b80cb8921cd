package main

import (
	"github.com/spf13/cobra"

	"titanjudge/internal/judge"
)

var judgeCmd = &cobra.Command{
	Use:   "judge [dir]",
	Short: "Score a single run directory",
	Long: `Score one run directory against the Titan Protocol criteria and write
judge.json next to the candidate files.

With no argument the current directory is scored.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "."
		if len(args) == 1 {
			dir = args[0]
		}
		settings, err := loadSettings(cmd)
		if err != nil {
			return err
		}
		noJSON, _ := cmd.Flags().GetBool("no-json")

		engine, err := judge.New(&judge.Config{
			Dir:       dir,
			Settings:  settings,
			Out:       cmd.OutOrStdout(),
			WriteJSON: !noJSON,
		})
		if err != nil {
			return err
		}
		_, err = engine.Evaluate(cmd.Context())
		return err
	},
}

func init() {
	judgeCmd.Flags().Bool("no-json", false, "Print the verdict without writing judge.json")
	rootCmd.AddCommand(judgeCmd)
}
