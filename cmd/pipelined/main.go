// Command pipelined is the run orchestrator. It selects an environment
// profile, launches the preprocessing job as a single bounded step with a
// Run -> Succeeded/Failed contract, records outcomes to the run ledger, and
// in scheduled environments fires on the 15th of every month at 09:00 UTC.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/farsight-labs/dspipe/internal/launcher"
	"github.com/farsight-labs/dspipe/internal/ledger"
	"github.com/farsight-labs/dspipe/internal/orchestrator"
	"github.com/farsight-labs/dspipe/internal/platform/env"
	"github.com/farsight-labs/dspipe/internal/platform/postgres"
	"github.com/farsight-labs/dspipe/internal/schedule"
	"github.com/farsight-labs/dspipe/internal/topology"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	ctx := context.Background()
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	envName := env.String("PIPELINE_ENV", "dev")
	environment, err := topology.ParseEnvironment(envName)
	if err != nil {
		logger.Error("invalid environment", "error", err)
		os.Exit(2)
	}
	profile, err := topology.ProfileFor(environment)
	if err != nil {
		logger.Error("no profile for environment", "error", err)
		os.Exit(2)
	}
	logger = logger.With("environment", string(environment))
	logger.Info("profile resolved",
		"account", profile.AccountID,
		"region", profile.Region,
		"input_bucket", profile.InputBucket(),
		"output_bucket", profile.OutputBucket(),
		"artifact_bucket", profile.ArtifactBucket(),
		"log_retention_days", profile.LogRetentionDays,
	)

	timeout, err := env.Duration("PIPELINE_RUN_TIMEOUT", orchestrator.DefaultTimeout)
	if err != nil {
		logger.Error("invalid run timeout", "error", err)
		os.Exit(2)
	}

	recorder, err := newRecorder(ctx, logger)
	if err != nil {
		logger.Error("run ledger unavailable", "error", err)
		os.Exit(1)
	}

	job, err := newJob(logger)
	if err != nil {
		logger.Error("launcher init failed", "error", err)
		os.Exit(2)
	}

	machine, err := orchestrator.NewMachine(job, string(environment), timeout, recorder, logger)
	if err != nil {
		logger.Error("orchestrator init failed", "error", err)
		os.Exit(2)
	}

	if !profile.ScheduleEnabled {
		// Unscheduled environments run once, like a manually started
		// execution, and report the outcome through the exit code.
		outcome := machine.Execute(ctx)
		if outcome.State != orchestrator.StateSucceeded {
			os.Exit(1)
		}
		return
	}

	trigger, err := schedule.NewTrigger(topology.ScheduleSpec, func() {
		machine.Execute(ctx)
	}, logger)
	if err != nil {
		logger.Error("schedule init failed", "error", err)
		os.Exit(2)
	}
	trigger.Start()
	<-ctx.Done()
	logger.Info("shutting down")
	trigger.Stop()
}

func newRecorder(ctx context.Context, logger *slog.Logger) (orchestrator.Recorder, error) {
	mode := strings.ToLower(strings.TrimSpace(env.String("PIPELINE_LEDGER", "disabled")))
	switch mode {
	case "", "disabled":
		return orchestrator.NopRecorder{}, nil
	case "postgres":
		dbCfg, err := postgres.ConfigFromEnv()
		if err != nil {
			return nil, err
		}
		db, err := postgres.Open(ctx, dbCfg)
		if err != nil {
			return nil, err
		}
		logger.Info("run ledger enabled")
		return ledger.NewPostgres(db)
	default:
		return nil, fmt.Errorf("unknown ledger mode: %q", mode)
	}
}

func newJob(logger *slog.Logger) (orchestrator.Job, error) {
	mode := strings.ToLower(strings.TrimSpace(env.String("PIPELINE_LAUNCHER", "process")))
	switch mode {
	case "", "process":
		bin := env.String("PIPELINE_JOB_BIN", "preproc")
		return launcher.NewProcess(bin, nil, logger)
	case "docker":
		image := env.String("PIPELINE_JOB_IMAGE", "")
		dockerBin := env.String("PIPELINE_DOCKER_BIN", "docker")
		return launcher.NewDocker(dockerBin, image, nil, logger)
	default:
		return nil, fmt.Errorf("unknown launcher mode: %q", mode)
	}
}
