// Package runconfig resolves the per-run configuration from the parameter
// store.
package runconfig

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/farsight-labs/dspipe/internal/paramstore"
)

// Parameter names consumed from the store.
const (
	KeyInputBucket    = "/ds/preprocessing/input-bucket"
	KeyOutputBucket   = "/ds/preprocessing/output-bucket"
	KeyArtifactBucket = "/ds/preprocessing/artifact-bucket"
	KeyInputKey       = "/ds/preprocessing/input-key"
	KeyModelKey       = "/ds/preprocessing/model-key"
	KeyScriptKey      = "/ds/preprocessing/script-key"
	KeyPackageKey     = "/ds/preprocessing/package-key"
)

// requiredKeys is resolved in order; the first miss aborts resolution.
var requiredKeys = []string{
	KeyInputBucket,
	KeyOutputBucket,
	KeyArtifactBucket,
	KeyInputKey,
	KeyModelKey,
}

var optionalKeys = []string{
	KeyScriptKey,
	KeyPackageKey,
}

// Optional holds a parameter value that may legitimately be absent. The zero
// value is absent; an empty string is never a valid present value.
type Optional struct {
	value   string
	present bool
}

func Some(value string) Optional {
	return Optional{value: value, present: true}
}

func (o Optional) Get() (string, bool) {
	return o.value, o.present
}

func (o Optional) Present() bool {
	return o.present
}

// RunConfig is the immutable configuration for one run.
type RunConfig struct {
	InputBucket    string
	OutputBucket   string
	ArtifactBucket string
	InputKey       string
	ModelKey       string
	ScriptKey      Optional
	PackageKey     Optional
}

func (c RunConfig) Validate() error {
	if strings.TrimSpace(c.InputBucket) == "" {
		return errors.New("input bucket is required")
	}
	if strings.TrimSpace(c.OutputBucket) == "" {
		return errors.New("output bucket is required")
	}
	if strings.TrimSpace(c.ArtifactBucket) == "" {
		return errors.New("artifact bucket is required")
	}
	if strings.TrimSpace(c.InputKey) == "" {
		return errors.New("input key is required")
	}
	if strings.TrimSpace(c.ModelKey) == "" {
		return errors.New("model key is required")
	}
	if v, ok := c.ScriptKey.Get(); ok && strings.TrimSpace(v) == "" {
		return errors.New("script key must not be empty when present")
	}
	if v, ok := c.PackageKey.Get(); ok && strings.TrimSpace(v) == "" {
		return errors.New("package key must not be empty when present")
	}
	return nil
}

// MissingRequiredKeyError reports a required parameter absent from the store.
type MissingRequiredKeyError struct {
	Key string
}

func (e MissingRequiredKeyError) Error() string {
	return fmt.Sprintf("missing required parameter: %s", e.Key)
}

// Resolver fetches the run configuration from a parameter store.
type Resolver struct {
	store paramstore.Store
}

func NewResolver(store paramstore.Store) (*Resolver, error) {
	if store == nil {
		return nil, errors.New("parameter store is required")
	}
	return &Resolver{store: store}, nil
}

// Resolve reads every required key, then every optional key. A required key
// missing from the store fails resolution with MissingRequiredKeyError; a
// missing optional key leaves the field absent. Transport errors surface
// immediately with no retry; retrying is the caller's whole-run decision.
func (r *Resolver) Resolve(ctx context.Context) (RunConfig, error) {
	values := make(map[string]string, len(requiredKeys))
	for _, key := range requiredKeys {
		v, err := r.store.Get(ctx, key)
		if errors.Is(err, paramstore.ErrNotFound) {
			return RunConfig{}, MissingRequiredKeyError{Key: key}
		}
		if err != nil {
			return RunConfig{}, fmt.Errorf("resolve %s: %w", key, err)
		}
		values[key] = v
	}

	optionals := make(map[string]Optional, len(optionalKeys))
	for _, key := range optionalKeys {
		v, err := r.store.Get(ctx, key)
		if errors.Is(err, paramstore.ErrNotFound) {
			continue
		}
		if err != nil {
			return RunConfig{}, fmt.Errorf("resolve %s: %w", key, err)
		}
		optionals[key] = Some(v)
	}

	cfg := RunConfig{
		InputBucket:    values[KeyInputBucket],
		OutputBucket:   values[KeyOutputBucket],
		ArtifactBucket: values[KeyArtifactBucket],
		InputKey:       values[KeyInputKey],
		ModelKey:       values[KeyModelKey],
		ScriptKey:      optionals[KeyScriptKey],
		PackageKey:     optionals[KeyPackageKey],
	}
	if err := cfg.Validate(); err != nil {
		return RunConfig{}, fmt.Errorf("resolved config invalid: %w", err)
	}
	return cfg, nil
}
