// Command preproc is the preprocessing job itself: it resolves the run
// configuration, stages artifacts into a working directory, and dispatches
// either the user override script or the built-in transform. The orchestrator
// runs one preproc per invocation and correlates it via EXECUTION_ID.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/farsight-labs/dspipe/internal/dispatch"
	"github.com/farsight-labs/dspipe/internal/launcher"
	"github.com/farsight-labs/dspipe/internal/paramstore"
	"github.com/farsight-labs/dspipe/internal/pipeline"
	"github.com/farsight-labs/dspipe/internal/platform/env"
	platformstore "github.com/farsight-labs/dspipe/internal/platform/objectstore"
	"github.com/farsight-labs/dspipe/internal/platform/postgres"
	"github.com/farsight-labs/dspipe/internal/runconfig"
	"github.com/farsight-labs/dspipe/internal/stage"
	"github.com/farsight-labs/dspipe/internal/storage/objectstore"
	"github.com/farsight-labs/dspipe/internal/transform"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	ctx := context.Background()
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	executionID := env.String(launcher.EnvExecutionID, "local")
	logger = logger.With("execution_id", executionID)

	storeCfg, err := platformstore.ConfigFromEnv()
	if err != nil {
		logger.Error("invalid object store config", "error", err)
		os.Exit(2)
	}
	store, err := objectstore.NewMinioStore(storeCfg)
	if err != nil {
		logger.Error("object store client init failed", "error", err)
		os.Exit(2)
	}

	params, err := newParamStore(ctx, logger)
	if err != nil {
		logger.Error("parameter store unavailable", "error", err)
		os.Exit(1)
	}

	resolver, err := runconfig.NewResolver(params)
	if err != nil {
		logger.Error("resolver init failed", "error", err)
		os.Exit(2)
	}
	stager, err := stage.NewStager(store, logger)
	if err != nil {
		logger.Error("stager init failed", "error", err)
		os.Exit(2)
	}
	builtin, err := transform.NewBuiltin(store, logger)
	if err != nil {
		logger.Error("transform init failed", "error", err)
		os.Exit(2)
	}
	dispatcher, err := dispatch.NewDispatcher(builtin, env.String("PREPROC_PYTHON", "python3"), logger)
	if err != nil {
		logger.Error("dispatcher init failed", "error", err)
		os.Exit(2)
	}

	workRoot := env.String("PREPROC_WORK_ROOT", "/tmp/work")
	pipe, err := pipeline.New(resolver, stager, dispatcher, workRoot, logger)
	if err != nil {
		logger.Error("pipeline init failed", "error", err)
		os.Exit(2)
	}

	if err := pipe.Run(ctx, executionID); err != nil {
		logger.Error("preprocessing failed", "error", err)
		os.Exit(1)
	}
	logger.Info("preprocessing completed successfully")
}

// newParamStore selects the parameter-store backend: postgres in deployed
// environments, a flat YAML file for local runs.
func newParamStore(ctx context.Context, logger *slog.Logger) (paramstore.Store, error) {
	backend := strings.ToLower(strings.TrimSpace(env.String("PREPROC_PARAMSTORE", "postgres")))
	switch backend {
	case "", "postgres":
		dbCfg, err := postgres.ConfigFromEnv()
		if err != nil {
			return nil, err
		}
		db, err := postgres.Open(ctx, dbCfg)
		if err != nil {
			return nil, err
		}
		return paramstore.NewPostgres(db)
	case "file":
		path := env.String("PREPROC_PARAMS_FILE", "params.yaml")
		logger.Info("using file parameter store", "path", path)
		return paramstore.NewFile(path)
	default:
		return nil, fmt.Errorf("unknown parameter store backend: %q", backend)
	}
}
