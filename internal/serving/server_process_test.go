package serving

import (
	"context"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// buildWorkerBinary compiles the stand-in worker used by process-mode tests
// and returns its path.
func buildWorkerBinary(t *testing.T) string {
	t.Helper()
	tdir := t.TempDir()
	bin := filepath.Join(tdir, "fake_worker")
	cmd := exec.Command("go", "build", "-o", bin, "./testdata/fake_worker.go")
	cmd.Dir = "." // package dir internal/serving
	cmd.Env = append(os.Environ(), "CGO_ENABLED=0")
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("build fake worker: %v: %s", err, string(out))
	}
	return bin
}

func TestStartProcessMode(t *testing.T) {
	if testing.Short() {
		t.Skip("short mode")
	}
	bin := buildWorkerBinary(t)
	srv, err := Start(context.Background(), Options{
		Mode:      ModeProcess,
		WorkerBin: bin,
		Models:    []string{"m1"},
		Logger:    discardLogger(),
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	defer srv.Close()

	resp, err := http.Get(srv.BaseURL() + "/models")
	if err != nil {
		t.Fatalf("get models: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if err := srv.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestStartProcessModeWorkerDies(t *testing.T) {
	if testing.Short() {
		t.Skip("short mode")
	}
	t.Setenv("FAKE_WORKER_BEHAVIOR", "exit")
	bin := buildWorkerBinary(t)
	_, err := Start(context.Background(), Options{
		Mode:      ModeProcess,
		WorkerBin: bin,
		Models:    []string{"m1"},
		Logger:    discardLogger(),
	})
	if !IsWorkerDied(err) {
		t.Fatalf("expected worker-died error, got %v", err)
	}
	if !strings.Contains(err.Error(), "model load failed: boom") {
		t.Fatalf("error should carry the stderr tail: %v", err)
	}
}

func TestStartProcessModeStartupTimeout(t *testing.T) {
	if testing.Short() {
		t.Skip("short mode")
	}
	t.Setenv("FAKE_WORKER_BEHAVIOR", "hang")
	bin := buildWorkerBinary(t)
	start := time.Now()
	_, err := Start(context.Background(), Options{
		Mode:         ModeProcess,
		WorkerBin:    bin,
		Models:       []string{"m1"},
		StartTimeout: 1500 * time.Millisecond,
		JoinTimeout:  2 * time.Second,
		Logger:       discardLogger(),
	})
	if !IsStartupTimeout(err) {
		t.Fatalf("expected startup timeout, got %v", err)
	}
	// The failed Start must have killed the worker before returning; a
	// leaked child would keep the test binary from exiting.
	if elapsed := time.Since(start); elapsed > 30*time.Second {
		t.Fatalf("start took too long: %v", elapsed)
	}
}

func TestStopEscalatesToKill(t *testing.T) {
	if testing.Short() {
		t.Skip("short mode")
	}
	t.Setenv("FAKE_WORKER_BEHAVIOR", "ignore-term")
	bin := buildWorkerBinary(t)
	srv, err := Start(context.Background(), Options{
		Mode:        ModeProcess,
		WorkerBin:   bin,
		Models:      []string{"m1"},
		JoinTimeout: 3 * time.Second,
		Logger:      discardLogger(),
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	start := time.Now()
	if err := srv.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	// SIGTERM is ignored, so shutdown must escalate to SIGKILL within the
	// grace period plus the join timeout.
	if elapsed := time.Since(start); elapsed > 8*time.Second {
		t.Fatalf("close took %v", elapsed)
	}
}

func TestStartProcessModeNonexistentBinary(t *testing.T) {
	_, err := Start(context.Background(), Options{
		Mode:      ModeProcess,
		WorkerBin: "/definitely/not/a/binary",
		Models:    []string{"m1"},
		Logger:    discardLogger(),
	})
	if !IsWorkerDied(err) {
		t.Fatalf("expected worker-died error, got %v", err)
	}
}
