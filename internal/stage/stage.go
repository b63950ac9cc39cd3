// Package stage materializes the run-scoped working directory from object
// storage: input dataset, model artifact, and the optional override script
// and code package.
package stage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/farsight-labs/dspipe/internal/runconfig"
	"github.com/farsight-labs/dspipe/internal/storage/objectstore"
)

// Fixed file names inside the working directory.
const (
	InputFile          = "input_data.csv"
	ModelFile          = "model.pkl"
	ScriptFile         = "script.py"
	PackageArchiveFile = "package.tar.gz"
	OutputFile         = "processed_data.csv"
)

// FetchError reports a failed download of a required or requested artifact.
type FetchError struct {
	Bucket string
	Key    string
	Err    error
}

func (e FetchError) Error() string {
	return fmt.Sprintf("fetch artifact %s/%s: %v", e.Bucket, e.Key, e.Err)
}

func (e FetchError) Unwrap() error { return e.Err }

// ExtractError reports a failed or unsafe package extraction.
type ExtractError struct {
	Key string
	Err error
}

func (e ExtractError) Error() string {
	return fmt.Sprintf("extract package %s: %v", e.Key, e.Err)
}

func (e ExtractError) Unwrap() error { return e.Err }

// WorkingDir is the transient staging area for one run. It is owned by a
// single run and discarded afterwards, never shared or reused across runs.
type WorkingDir struct {
	Root string
}

func (w WorkingDir) InputPath() string   { return filepath.Join(w.Root, InputFile) }
func (w WorkingDir) ModelPath() string   { return filepath.Join(w.Root, ModelFile) }
func (w WorkingDir) ScriptPath() string  { return filepath.Join(w.Root, ScriptFile) }
func (w WorkingDir) ArchivePath() string { return filepath.Join(w.Root, PackageArchiveFile) }
func (w WorkingDir) OutputPath() string  { return filepath.Join(w.Root, OutputFile) }

// HasScript reports whether an override script was staged.
func (w WorkingDir) HasScript() bool {
	info, err := os.Stat(w.ScriptPath())
	return err == nil && !info.IsDir()
}

// Stager downloads artifacts into a working directory.
type Stager struct {
	store  objectstore.Store
	logger *slog.Logger
}

func NewStager(store objectstore.Store, logger *slog.Logger) (*Stager, error) {
	if store == nil {
		return nil, errors.New("object store is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Stager{store: store, logger: logger}, nil
}

// Stage populates root with the run's artifacts. Creating the directory is
// idempotent so a restarted run can stage into the same root. No step retries
// internally; a transient failure fails the stage and the caller decides
// whether to retry the whole run.
func (s *Stager) Stage(ctx context.Context, cfg runconfig.RunConfig, root string) (WorkingDir, error) {
	if strings.TrimSpace(root) == "" {
		return WorkingDir{}, errors.New("working directory root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return WorkingDir{}, fmt.Errorf("create working directory: %w", err)
	}
	dir := WorkingDir{Root: root}

	if err := s.store.Download(ctx, cfg.InputBucket, cfg.InputKey, dir.InputPath()); err != nil {
		return WorkingDir{}, FetchError{Bucket: cfg.InputBucket, Key: cfg.InputKey, Err: err}
	}
	s.logger.Info("downloaded input data", "bucket", cfg.InputBucket, "key", cfg.InputKey)

	if err := s.store.Download(ctx, cfg.ArtifactBucket, cfg.ModelKey, dir.ModelPath()); err != nil {
		return WorkingDir{}, FetchError{Bucket: cfg.ArtifactBucket, Key: cfg.ModelKey, Err: err}
	}
	s.logger.Info("downloaded model", "bucket", cfg.ArtifactBucket, "key", cfg.ModelKey)

	if scriptKey, ok := cfg.ScriptKey.Get(); ok {
		if err := s.store.Download(ctx, cfg.ArtifactBucket, scriptKey, dir.ScriptPath()); err != nil {
			return WorkingDir{}, FetchError{Bucket: cfg.ArtifactBucket, Key: scriptKey, Err: err}
		}
		s.logger.Info("downloaded override script", "bucket", cfg.ArtifactBucket, "key", scriptKey)
	}

	if packageKey, ok := cfg.PackageKey.Get(); ok {
		if err := s.store.Download(ctx, cfg.ArtifactBucket, packageKey, dir.ArchivePath()); err != nil {
			return WorkingDir{}, FetchError{Bucket: cfg.ArtifactBucket, Key: packageKey, Err: err}
		}
		if err := extractArchive(dir.ArchivePath(), dir.Root); err != nil {
			return WorkingDir{}, ExtractError{Key: packageKey, Err: err}
		}
		s.logger.Info("extracted package", "bucket", cfg.ArtifactBucket, "key", packageKey)
	}

	return dir, nil
}
