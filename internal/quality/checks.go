package quality

import (
	"strconv"

	"titanjudge/internal/toolrun"
)

// simpleChecks holds every check the uniform loop can drive on its own.
// Coupled checks (ruff/modernization/complexity, duplication, type_check,
// coverage) are dispatched specially in Evaluate.
var simpleChecks = map[string]simpleCheck{
	CheckPylint: {
		name:      CheckPylint,
		tool:      "pylint",
		pkg:       "pylint",
		installer: toolrun.InstallerPip,
		args: func(a *Aggregator) []string {
			files := a.pythonFiles()
			if len(files) == 0 {
				return nil
			}
			return append([]string{"pylint", "--rcfile", ".pylintrc"}, files...)
		},
		interpret: exitOK,
		details:   returncodeDetails,
	},
	CheckDeadCode: {
		name:      CheckDeadCode,
		tool:      "vulture",
		pkg:       "vulture",
		installer: toolrun.InstallerPip,
		args: func(a *Aggregator) []string {
			files := a.pythonFiles()
			if len(files) == 0 {
				return nil
			}
			return append([]string{"vulture", "--min-confidence", strconv.Itoa(vultureMinConfidence)}, files...)
		},
		interpret: exitOK,
		details:   returncodeDetails,
	},
	CheckSecurity: {
		name:      CheckSecurity,
		tool:      "bandit",
		pkg:       "bandit",
		installer: toolrun.InstallerPip,
		args: func(a *Aggregator) []string {
			return []string{"bandit", "-r", ".", "-c", "bandit.yaml"}
		},
		interpret: zeroHighSeverity,
		details: func(res toolrun.Result) map[string]any {
			return map[string]any{
				"returncode":  res.ReturnCode,
				"high_issues": countHighSeverity(res.Stdout),
			}
		},
	},
	CheckDocstyle: {
		name:      CheckDocstyle,
		tool:      "pydocstyle",
		pkg:       "pydocstyle",
		installer: toolrun.InstallerPip,
		args: func(a *Aggregator) []string {
			return []string{"pydocstyle", "--config", ".pydocstyle"}
		},
		interpret: exitOK,
		details:   returncodeDetails,
	},
	CheckSemgrep: {
		name:      CheckSemgrep,
		tool:      "semgrep",
		pkg:       "semgrep",
		installer: toolrun.InstallerPip,
		args: func(a *Aggregator) []string {
			return []string{"semgrep", "--config", "auto", "--severity", "ERROR", "--metrics", "off", "."}
		},
		interpret: exitOK,
		details:   returncodeDetails,
	},
	CheckPipAudit: {
		name:      CheckPipAudit,
		tool:      "pip-audit",
		pkg:       "pip-audit",
		installer: toolrun.InstallerPip,
		args: func(a *Aggregator) []string {
			return []string{"pip-audit", "--format", "json"}
		},
		interpret: exitOK,
		details: func(res toolrun.Result) map[string]any {
			details := map[string]any{"returncode": res.ReturnCode, "vulnerabilities": nil}
			if n := parseJSONArrayLen(res.Stdout); n != nil {
				details["vulnerabilities"] = *n
			}
			return details
		},
	},
	CheckCodespell: {
		name:      CheckCodespell,
		tool:      "codespell",
		pkg:       "codespell",
		installer: toolrun.InstallerPip,
		args: func(a *Aggregator) []string {
			return []string{"codespell", "--config", ".codespellrc", "."}
		},
		interpret: exitOK,
		details:   returncodeDetails,
	},
	CheckRuffFormat: {
		name:      CheckRuffFormat,
		tool:      "ruff",
		pkg:       "ruff",
		installer: toolrun.InstallerPip,
		args: func(a *Aggregator) []string {
			return []string{"ruff", "format", "--check", "."}
		},
		interpret: exitOK,
		details:   returncodeDetails,
	},
	CheckIsort: {
		name:      CheckIsort,
		tool:      "isort",
		pkg:       "isort",
		installer: toolrun.InstallerPip,
		args: func(a *Aggregator) []string {
			return []string{"isort", ".", "--check-only"}
		},
		interpret: exitOK,
		details:   returncodeDetails,
	},
	CheckLicense: {
		name:      CheckLicense,
		tool:      "pip-licenses",
		pkg:       "pip-licenses",
		installer: toolrun.InstallerPip,
		args: func(a *Aggregator) []string {
			return []string{"pip-licenses", "--format", "json"}
		},
		interpret: exitOK,
		details: func(res toolrun.Result) map[string]any {
			details := map[string]any{"returncode": res.ReturnCode, "packages": nil}
			if n := parseJSONArrayLen(res.Stdout); n != nil {
				details["packages"] = *n
			}
			return details
		},
	},
}
