// Package orchestrator runs one preprocessing job as a single bounded step:
// Run, then terminal Succeeded or Failed. There are no intermediate states
// and no automatic retry; a failure anywhere in the run maps uniformly to
// Failed, with the cause kept only for diagnostics.
package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// State is a terminal run state.
type State string

const (
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

// ErrRunTimeout marks a run that exceeded the wall-clock ceiling.
var ErrRunTimeout = errors.New("run_timeout")

// DefaultTimeout is the reference deployment's wall-clock ceiling.
const DefaultTimeout = 2 * time.Hour

// Job is one invocation of the preprocessing pipeline. The execution ID is
// injected into the job so its artifacts and logs correlate back to this
// invocation.
type Job interface {
	Run(ctx context.Context, executionID string) error
}

// Outcome is the terminal result of one run.
type Outcome struct {
	ExecutionID string
	Environment string
	State       State
	Cause       string
	Err         error
	StartedAt   time.Time
	FinishedAt  time.Time
}

// Recorder persists run history. Recording failures are observability
// problems, never run failures.
type Recorder interface {
	RunStarted(ctx context.Context, executionID, environment string, startedAt time.Time) error
	RunFinished(ctx context.Context, outcome Outcome) error
}

// NopRecorder drops all history.
type NopRecorder struct{}

func (NopRecorder) RunStarted(context.Context, string, string, time.Time) error { return nil }
func (NopRecorder) RunFinished(context.Context, Outcome) error                  { return nil }

// Machine executes jobs under the run/success/fail contract.
type Machine struct {
	job         Job
	environment string
	timeout     time.Duration
	recorder    Recorder
	logger      *slog.Logger

	now            func() time.Time
	newExecutionID func() string
}

func NewMachine(job Job, environment string, timeout time.Duration, recorder Recorder, logger *slog.Logger) (*Machine, error) {
	if job == nil {
		return nil, errors.New("job is required")
	}
	if environment == "" {
		return nil, errors.New("environment is required")
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if recorder == nil {
		recorder = NopRecorder{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Machine{
		job:            job,
		environment:    environment,
		timeout:        timeout,
		recorder:       recorder,
		logger:         logger,
		now:            time.Now,
		newExecutionID: func() string { return "exec-" + uuid.NewString() },
	}, nil
}

// Execute runs the job once under the wall-clock ceiling and returns its
// terminal outcome. Exceeding the ceiling terminates the run non-gracefully
// and is reported as a Failed outcome with a timeout cause.
func (m *Machine) Execute(ctx context.Context) Outcome {
	executionID := m.newExecutionID()
	startedAt := m.now().UTC()

	m.logger.Info("run started", "execution_id", executionID, "environment", m.environment, "timeout", m.timeout)
	if err := m.recorder.RunStarted(ctx, executionID, m.environment, startedAt); err != nil {
		m.logger.Error("record run start failed", "execution_id", executionID, "error", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, m.timeout)
	err := m.job.Run(runCtx, executionID)
	deadlineHit := errors.Is(runCtx.Err(), context.DeadlineExceeded)
	cancel()

	if err != nil && deadlineHit {
		err = errors.Join(ErrRunTimeout, err)
	}

	outcome := Outcome{
		ExecutionID: executionID,
		Environment: m.environment,
		StartedAt:   startedAt,
		FinishedAt:  m.now().UTC(),
	}
	if err != nil {
		outcome.State = StateFailed
		outcome.Err = err
		outcome.Cause = err.Error()
		m.logger.Error("run failed", "execution_id", executionID, "error", err)
	} else {
		outcome.State = StateSucceeded
		m.logger.Info("run succeeded", "execution_id", executionID)
	}

	if recErr := m.recorder.RunFinished(ctx, outcome); recErr != nil {
		m.logger.Error("record run finish failed", "execution_id", executionID, "error", recErr)
	}
	return outcome
}
