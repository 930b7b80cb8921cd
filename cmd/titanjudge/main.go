package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"titanjudge/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "titanjudge",
	Short: "Score and track agent-built Titan Protocol submissions",
	Long: `titanjudge scores coding-agent output against the Titan Protocol criteria:
structural traps read from the submitted sources, a weighted battery of
external quality analyzers, and a documentation check.

Typical workflow:
  titanjudge prepare --tools ampcode,opencode --runs 3
  <agents fill the run directories>
  titanjudge score --tools ampcode,opencode
  titanjudge summarize`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML settings file")
	rootCmd.PersistentFlags().Bool("skip-exec", false, "Do not execute candidate code (tests, smoke run, analyzers)")
	rootCmd.PersistentFlags().Bool("no-install", false, "Do not install missing analyzer tools")
}

// loadSettings builds run settings from defaults, the optional config file,
// environment toggles, and finally command-line flags.
func loadSettings(cmd *cobra.Command) (*config.Settings, error) {
	settings := config.Default()
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		if err := settings.ApplyFile(path); err != nil {
			return nil, err
		}
	}
	settings.LoadFromEnv()
	if skip, _ := cmd.Flags().GetBool("skip-exec"); skip {
		settings.RunExec = false
	}
	if noInstall, _ := cmd.Flags().GetBool("no-install"); noInstall {
		settings.AllowInstall = false
	}
	return settings, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
