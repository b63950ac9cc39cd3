// Package launcher provides the job launchers the orchestrator supervises:
// an in-process function, a subprocess of the preproc binary, or a docker
// container of the job image.
package launcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sort"
	"strings"
)

// EnvExecutionID carries the orchestrator's execution name into the job.
const EnvExecutionID = "EXECUTION_ID"

// Func adapts a plain function into a job, for tests and single-binary
// deployments.
type Func func(ctx context.Context, executionID string) error

func (f Func) Run(ctx context.Context, executionID string) error {
	return f(ctx, executionID)
}

// Process launches the preprocessing binary as a supervised subprocess with
// the execution ID injected into its environment. Its stdio passes through
// so job logs land in the daemon's stream.
type Process struct {
	bin    string
	args   []string
	logger *slog.Logger
}

func NewProcess(bin string, args []string, logger *slog.Logger) (*Process, error) {
	bin = strings.TrimSpace(bin)
	if bin == "" {
		return nil, errors.New("job binary is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Process{bin: bin, args: args, logger: logger}, nil
}

func (p *Process) Run(ctx context.Context, executionID string) error {
	cmd := exec.CommandContext(ctx, p.bin, p.args...)
	cmd.Env = append(os.Environ(), EnvExecutionID+"="+executionID)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	p.logger.Info("launching job process", "bin", p.bin, "execution_id", executionID)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("job process failed: %w", err)
	}
	return nil
}

// Docker launches the job image as a container and blocks until it exits.
type Docker struct {
	dockerBin string
	image     string
	env       map[string]string
	logger    *slog.Logger
}

func NewDocker(dockerBin, image string, env map[string]string, logger *slog.Logger) (*Docker, error) {
	dockerBin = strings.TrimSpace(dockerBin)
	if dockerBin == "" {
		dockerBin = "docker"
	}
	if _, err := exec.LookPath(dockerBin); err != nil {
		return nil, fmt.Errorf("docker binary not found: %w", err)
	}
	image = strings.TrimSpace(image)
	if image == "" {
		return nil, errors.New("job image is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Docker{dockerBin: dockerBin, image: image, env: env, logger: logger}, nil
}

func (d *Docker) Run(ctx context.Context, executionID string) error {
	args := []string{
		"run",
		"--rm",
		"--network", "host",
		"-e", EnvExecutionID + "=" + executionID,
	}

	if len(d.env) > 0 {
		keys := make([]string, 0, len(d.env))
		for k := range d.env {
			key := strings.TrimSpace(k)
			if key == "" || key == EnvExecutionID {
				continue
			}
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			args = append(args, "-e", key+"="+d.env[key])
		}
	}

	args = append(args, d.image)

	d.logger.Info("launching job container", "image", d.image, "execution_id", executionID)
	cmd := exec.CommandContext(ctx, d.dockerBin, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("docker run failed: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}
