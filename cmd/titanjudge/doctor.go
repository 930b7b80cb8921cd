package main

import (
	"fmt"
	"os/exec"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"titanjudge/internal/quality"
	"titanjudge/internal/toolrun"
)

// analyzerBinaries maps every external command the quality battery and
// execution steps can invoke to its package and installer.
var analyzerBinaries = []struct {
	command   string
	pkg       string
	installer toolrun.Installer
}{
	{"python3", "python3", toolrun.InstallerPip},
	{"ruff", "ruff", toolrun.InstallerPip},
	{"xenon", "xenon", toolrun.InstallerPip},
	{"pylint", "pylint", toolrun.InstallerPip},
	{"vulture", "vulture", toolrun.InstallerPip},
	{"jscpd", "jscpd", toolrun.InstallerNPM},
	{"mypy", "mypy", toolrun.InstallerPip},
	{"pyright", "pyright", toolrun.InstallerPip},
	{"bandit", "bandit", toolrun.InstallerPip},
	{"pydocstyle", "pydocstyle", toolrun.InstallerPip},
	{"semgrep", "semgrep", toolrun.InstallerPip},
	{"pip-audit", "pip-audit", toolrun.InstallerPip},
	{"codespell", "codespell", toolrun.InstallerPip},
	{"isort", "isort", toolrun.InstallerPip},
	{"pip-licenses", "pip-licenses", toolrun.InstallerPip},
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that the scoring environment has its analyzer tools",
	Long: `Probe every external tool the quality battery can invoke and report
what is installed. Missing tools do not break scoring: their checks are
skipped and earn zero points, shrinking the achievable quality score.

Exit codes:
  0 - All tools present
  1 - One or more tools missing`,
	RunE: func(cmd *cobra.Command, args []string) error {
		green := color.New(color.FgGreen).SprintFunc()
		red := color.New(color.FgRed).SprintFunc()
		cyan := color.New(color.FgCyan).SprintFunc()

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s Probing analyzer tools\n\n", cyan("→"))

		missing := 0
		for _, tool := range analyzerBinaries {
			if path, err := exec.LookPath(tool.command); err == nil {
				fmt.Fprintf(out, "  %s %-14s %s\n", green("✓"), tool.command, path)
			} else {
				missing++
				hint := "pip install " + tool.pkg
				if tool.installer == toolrun.InstallerNPM {
					hint = "npm install -g " + tool.pkg
				}
				fmt.Fprintf(out, "  %s %-14s missing (%s)\n", red("✗"), tool.command, hint)
			}
		}

		fmt.Fprintf(out, "\nQuality battery maximum: %d points across %d checks\n",
			quality.MaxPoints(), len(quality.CheckNames()))
		if missing > 0 {
			return fmt.Errorf("%d analyzer tools missing", missing)
		}
		fmt.Fprintf(out, "%s All analyzer tools present\n", green("✓"))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}
