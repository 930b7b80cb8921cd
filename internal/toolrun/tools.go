package toolrun

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"
)

// Outcome describes how a tool became (or failed to become) available.
type Outcome int

const (
	ToolUnavailable Outcome = iota
	ToolPresent
	ToolInstalled
)

// Installer selects the package manager used for best-effort installs.
type Installer string

const (
	InstallerPip Installer = "pip"
	InstallerNPM Installer = "npm"
)

const installTimeout = 5 * time.Minute

// Availability probes for external tools and optionally installs missing
// ones. It is the single capability the quality aggregator consults; the
// global no-install override is applied at construction, not through
// mutable state.
type Availability struct {
	// AllowInstall enables best-effort installation of missing tools.
	AllowInstall bool

	// LookPath resolves an executable name; overridable in tests.
	LookPath func(name string) (string, error)

	// Run executes the install command; overridable in tests.
	Run RunFunc

	// Out receives install progress messages.
	Out io.Writer

	mu       sync.Mutex
	outcomes map[string]Outcome
}

// NewAvailability creates a tool availability capability.
func NewAvailability(allowInstall bool) *Availability {
	return &Availability{
		AllowInstall: allowInstall,
		LookPath:     exec.LookPath,
		Run:          Run,
		Out:          os.Stdout,
		outcomes:     make(map[string]Outcome),
	}
}

// Ensure reports whether command is usable, installing pkg via the given
// package manager when allowed. Results are cached per command so repeated
// probes (ruff is consulted by three checks) do not repeat work.
func (a *Availability) Ensure(ctx context.Context, command, pkg string, installer Installer) Outcome {
	a.mu.Lock()
	defer a.mu.Unlock()

	if outcome, ok := a.outcomes[command]; ok {
		return outcome
	}

	outcome := a.probe(ctx, command, pkg, installer)
	a.outcomes[command] = outcome
	return outcome
}

// Have is a convenience wrapper: true unless the tool is unavailable.
func (a *Availability) Have(ctx context.Context, command, pkg string, installer Installer) bool {
	return a.Ensure(ctx, command, pkg, installer) != ToolUnavailable
}

func (a *Availability) probe(ctx context.Context, command, pkg string, installer Installer) Outcome {
	if _, err := a.LookPath(command); err == nil {
		return ToolPresent
	}
	if !a.AllowInstall {
		return ToolUnavailable
	}

	var args []string
	switch installer {
	case InstallerNPM:
		if _, err := a.LookPath("npm"); err != nil {
			return ToolUnavailable
		}
		args = []string{"npm", "install", "-g", pkg}
	default:
		args = []string{"python3", "-m", "pip", "install", pkg}
	}

	fmt.Fprintf(a.Out, "Missing tool: %s. Attempting install via %s (%s)...\n", command, installer, pkg)
	result := a.Run(ctx, args, "", installTimeout)
	if !result.OK {
		fmt.Fprint(a.Out, result.Stdout)
		fmt.Fprint(a.Out, result.Stderr)
		return ToolUnavailable
	}

	// The install succeeded but the binary still has to resolve.
	if _, err := a.LookPath(command); err != nil {
		return ToolUnavailable
	}
	return ToolInstalled
}
