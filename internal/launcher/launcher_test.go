package launcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFunc_PassesExecutionID(t *testing.T) {
	var seen string
	job := Func(func(_ context.Context, executionID string) error {
		seen = executionID
		return nil
	})

	if err := job.Run(context.Background(), "exec-42"); err != nil {
		t.Fatalf("Run() err=%v", err)
	}
	if seen != "exec-42" {
		t.Fatalf("execution id=%q", seen)
	}
}

func TestProcess_InjectsExecutionID(t *testing.T) {
	marker := filepath.Join(t.TempDir(), "seen")
	script := filepath.Join(t.TempDir(), "job.sh")
	body := "#!/bin/sh\nprintf '%s' \"$" + EnvExecutionID + "\" > " + marker + "\n"
	if err := os.WriteFile(script, []byte(body), 0o755); err != nil {
		t.Fatalf("write job script: %v", err)
	}

	proc, err := NewProcess("sh", []string{script}, nil)
	if err != nil {
		t.Fatalf("NewProcess() err=%v", err)
	}
	if err := proc.Run(context.Background(), "exec-abc"); err != nil {
		t.Fatalf("Run() err=%v", err)
	}

	got, err := os.ReadFile(marker)
	if err != nil {
		t.Fatalf("read marker: %v", err)
	}
	if strings.TrimSpace(string(got)) != "exec-abc" {
		t.Fatalf("job saw execution id %q", got)
	}
}

func TestProcess_NonZeroExitIsError(t *testing.T) {
	script := filepath.Join(t.TempDir(), "job.sh")
	if err := os.WriteFile(script, []byte("exit 9\n"), 0o755); err != nil {
		t.Fatalf("write job script: %v", err)
	}

	proc, _ := NewProcess("sh", []string{script}, nil)
	if err := proc.Run(context.Background(), "exec-x"); err == nil {
		t.Fatalf("Run() expected error for non-zero exit")
	}
}

func TestProcess_RequiresBinary(t *testing.T) {
	if _, err := NewProcess("  ", nil, nil); err == nil {
		t.Fatalf("NewProcess() expected error for empty binary")
	}
}

func TestDocker_RequiresImage(t *testing.T) {
	// Hosts without docker fail at LookPath instead; both reject construction.
	if _, err := NewDocker("docker", "", nil, nil); err == nil {
		t.Fatalf("NewDocker() expected error for empty image")
	}
}
