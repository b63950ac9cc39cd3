// Package dispatch selects and runs exactly one execution path for a staged
// run: the user-supplied override script when present, the built-in transform
// otherwise.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/farsight-labs/dspipe/internal/runconfig"
	"github.com/farsight-labs/dspipe/internal/stage"
)

// Mode names the execution path a dispatch chose.
type Mode string

const (
	ModeCustom  Mode = "custom"
	ModeBuiltin Mode = "builtin"
)

// Transform is the built-in processing path.
type Transform interface {
	Run(ctx context.Context, dir stage.WorkingDir, cfg runconfig.RunConfig) error
}

// ScriptError reports an override script that terminated abnormally.
type ScriptError struct {
	ExitCode int
	Output   string
	Err      error
}

func (e ScriptError) Error() string {
	if e.Output != "" {
		return fmt.Sprintf("override script failed (exit %d): %s", e.ExitCode, e.Output)
	}
	return fmt.Sprintf("override script failed (exit %d): %v", e.ExitCode, e.Err)
}

func (e ScriptError) Unwrap() error { return e.Err }

// Dispatcher runs one execution path to completion, synchronously.
type Dispatcher struct {
	transform   Transform
	interpreter string
	logger      *slog.Logger
}

func NewDispatcher(transform Transform, interpreter string, logger *slog.Logger) (*Dispatcher, error) {
	if transform == nil {
		return nil, errors.New("transform is required")
	}
	interpreter = strings.TrimSpace(interpreter)
	if interpreter == "" {
		interpreter = "python3"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{transform: transform, interpreter: interpreter, logger: logger}, nil
}

// Dispatch runs the override script when one was staged; the built-in
// transform is never invoked in that case. Without an override it invokes the
// built-in transform exactly once and propagates its error unmodified.
func (d *Dispatcher) Dispatch(ctx context.Context, dir stage.WorkingDir, cfg runconfig.RunConfig) (Mode, error) {
	if dir.HasScript() {
		d.logger.Info("running override script", "script", dir.ScriptPath())
		if err := d.runScript(ctx, dir); err != nil {
			return ModeCustom, err
		}
		return ModeCustom, nil
	}

	d.logger.Info("running built-in transform")
	if err := d.transform.Run(ctx, dir, cfg); err != nil {
		return ModeBuiltin, err
	}
	return ModeBuiltin, nil
}

// runScript supervises the override as an out-of-process subprocess. The
// working directory and PYTHONPATH both point at the staged root so the
// script can import anything extracted from the optional package. The script
// performs its own reads and publishes; only completion and exit status are
// supervised here.
func (d *Dispatcher) runScript(ctx context.Context, dir stage.WorkingDir) error {
	cmd := exec.CommandContext(ctx, d.interpreter, dir.ScriptPath())
	cmd.Dir = dir.Root
	cmd.Env = append(os.Environ(), "PYTHONPATH="+dir.Root)

	out, err := cmd.CombinedOutput()
	output := strings.TrimSpace(string(out))
	if err != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		return ScriptError{ExitCode: exitCode, Output: output, Err: err}
	}
	if output != "" {
		d.logger.Info("override script output", "output", output)
	}
	return nil
}
