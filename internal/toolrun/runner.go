// Package toolrun invokes external analyzers as subprocesses with bounded
// timeouts. Timeouts and missing executables are first-class outcomes, never
// errors: every invocation produces a Result the caller can score.
package toolrun

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"time"
)

// Result captures one subprocess invocation.
type Result struct {
	OK         bool   `json:"ok"`
	ReturnCode int    `json:"returncode"`
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
	TimedOut   bool   `json:"timed_out"`
}

// RunFunc is the signature of Run. The quality aggregator and judgment
// engine take it as a dependency so tests can substitute a fake.
type RunFunc func(ctx context.Context, args []string, dir string, timeout time.Duration) Result

// Run executes one command in dir with a hard timeout. It never returns an
// error: a killed (timed out) process is reported with TimedOut=true, and a
// command that cannot be started is reported with ReturnCode=-1 and the
// start error in Stderr.
func Run(ctx context.Context, args []string, dir string, timeout time.Duration) Result {
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, args[0], args[1:]...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		result.TimedOut = true
		result.ReturnCode = -1
		return result
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ReturnCode = exitErr.ExitCode()
		} else {
			result.ReturnCode = -1
			if result.Stderr == "" {
				result.Stderr = err.Error()
			}
		}
		return result
	}

	result.OK = true
	return result
}
