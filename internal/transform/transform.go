// Package transform is the built-in processing path used when no override
// script is staged.
package transform

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/farsight-labs/dspipe/internal/runconfig"
	"github.com/farsight-labs/dspipe/internal/stage"
	"github.com/farsight-labs/dspipe/internal/storage/objectstore"
)

const (
	// OutputKey is the fixed, versionless result key: one logical latest
	// result per output bucket. Concurrent runs in the same environment can
	// race on it; accepted, see the run ledger for per-run history.
	OutputKey = "processed/data.csv"

	outputContentType = "text/csv"
)

// TransformError wraps any failure of the built-in path. It carries no
// special recovery semantics; the orchestrator treats it like any other run
// failure.
type TransformError struct {
	Step string
	Err  error
}

func (e TransformError) Error() string {
	return fmt.Sprintf("built-in transform %s: %v", e.Step, e.Err)
}

func (e TransformError) Unwrap() error { return e.Err }

// Builtin reads the staged input in full, applies the transformation, writes
// the result locally, and uploads it under the fixed output key.
type Builtin struct {
	store  objectstore.Store
	logger *slog.Logger
}

func NewBuiltin(store objectstore.Store, logger *slog.Logger) (*Builtin, error) {
	if store == nil {
		return nil, errors.New("object store is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Builtin{store: store, logger: logger}, nil
}

func (b *Builtin) Run(ctx context.Context, dir stage.WorkingDir, cfg runconfig.RunConfig) error {
	records, err := readRecords(dir.InputPath())
	if err != nil {
		return TransformError{Step: "read", Err: err}
	}

	rows := len(records)
	if rows > 0 {
		rows-- // header
	}
	b.logger.Info("processing input", "rows", rows)

	processed := b.process(records)

	outputPath := dir.OutputPath()
	if err := writeRecords(outputPath, processed); err != nil {
		return TransformError{Step: "write", Err: err}
	}

	if err := b.store.Upload(ctx, outputPath, cfg.OutputBucket, OutputKey, outputContentType); err != nil {
		return TransformError{Step: "upload", Err: err}
	}
	b.logger.Info("uploaded result", "bucket", cfg.OutputBucket, "key", OutputKey)
	return nil
}

// process is the transformation extension point. The reference behavior is a
// pass-through.
func (b *Builtin) process(records [][]string) [][]string {
	return records
}

func readRecords(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	return r.ReadAll()
}

func writeRecords(path string, records [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(records); err != nil {
		_ = f.Close()
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
