// Package pipeline wires one full preprocessing run: resolve configuration,
// stage artifacts, dispatch execution. Each step blocks until complete and
// every failure propagates unchanged to the run boundary; retrying is a
// whole-run decision that belongs to the orchestrator.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/farsight-labs/dspipe/internal/dispatch"
	"github.com/farsight-labs/dspipe/internal/runconfig"
	"github.com/farsight-labs/dspipe/internal/stage"
)

type Pipeline struct {
	resolver   *runconfig.Resolver
	stager     *stage.Stager
	dispatcher *dispatch.Dispatcher
	workRoot   string
	logger     *slog.Logger
}

func New(resolver *runconfig.Resolver, stager *stage.Stager, dispatcher *dispatch.Dispatcher, workRoot string, logger *slog.Logger) (*Pipeline, error) {
	if resolver == nil {
		return nil, errors.New("resolver is required")
	}
	if stager == nil {
		return nil, errors.New("stager is required")
	}
	if dispatcher == nil {
		return nil, errors.New("dispatcher is required")
	}
	if strings.TrimSpace(workRoot) == "" {
		workRoot = filepath.Join(os.TempDir(), "work")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		resolver:   resolver,
		stager:     stager,
		dispatcher: dispatcher,
		workRoot:   workRoot,
		logger:     logger,
	}, nil
}

// Run executes one invocation end to end. The working directory is scoped to
// the execution ID, so a restarted execution restages into the same root, and
// is discarded when the run ends.
func (p *Pipeline) Run(ctx context.Context, executionID string) error {
	cfg, err := p.resolver.Resolve(ctx)
	if err != nil {
		return err
	}

	root := p.workRoot
	if strings.TrimSpace(executionID) != "" {
		root = filepath.Join(p.workRoot, executionID)
	}
	defer func() {
		if err := os.RemoveAll(root); err != nil {
			p.logger.Warn("discard working directory failed", "root", root, "error", err)
		}
	}()

	dir, err := p.stager.Stage(ctx, cfg, root)
	if err != nil {
		return err
	}

	mode, err := p.dispatcher.Dispatch(ctx, dir, cfg)
	if err != nil {
		return err
	}
	p.logger.Info("run complete", "mode", mode, "execution_id", executionID)
	return nil
}
