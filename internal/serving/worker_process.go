package serving

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
)

const (
	// processPollInterval is the readiness poll period across a process
	// boundary; each probe is a real TCP round trip.
	processPollInterval = 1 * time.Second
	// processGracePeriod is how long SIGTERM gets before SIGKILL.
	processGracePeriod = 2 * time.Second
	// probeTimeout bounds a single readiness probe.
	probeTimeout = 1 * time.Second
)

// processWorker runs the harness binary as a child process. No memory is
// shared: readiness is inferred by polling GET /v1/models, death by watching
// the process exit, shutdown by SIGTERM with a bounded grace period.
type processWorker struct {
	bin     string
	args    []string
	baseURL string
	info    *StartInfo
	client  *http.Client
	log     zerolog.Logger

	mu      sync.Mutex
	cmd     *exec.Cmd
	stderr  bytes.Buffer
	done    chan struct{}
	waitErr error
}

func newProcessWorker(bin string, args []string, port int, info *StartInfo, log zerolog.Logger) *processWorker {
	return &processWorker{
		bin:     bin,
		args:    args,
		baseURL: fmt.Sprintf("http://127.0.0.1:%d", port),
		info:    info,
		client:  &http.Client{Timeout: probeTimeout},
		log:     log,
		done:    make(chan struct{}),
	}
}

func (w *processWorker) Start() error {
	cmd := exec.Command(w.bin, w.args...)
	cmd.Stderr = &w.stderr
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start worker %s: %w", w.bin, err)
	}
	w.mu.Lock()
	w.cmd = cmd
	w.mu.Unlock()
	w.log.Info().Str("bin", w.bin).Int("pid", cmd.Process.Pid).Msg("worker process started")

	go func() {
		err := cmd.Wait()
		w.mu.Lock()
		w.waitErr = err
		w.mu.Unlock()
		close(w.done)
	}()
	return nil
}

func (w *processWorker) Alive() bool {
	select {
	case <-w.done:
		return false
	default:
		return true
	}
}

// Ready probes the model-listing endpoint. Once a probe succeeds the result
// is cached in StartInfo so later calls stay off the network.
func (w *processWorker) Ready() bool {
	if w.info.Ready() {
		return true
	}
	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.baseURL+"/v1/models", nil)
	if err != nil {
		return false
	}
	resp, err := w.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return false
	}
	w.info.MarkReady()
	return true
}

// Err reports the exit failure with a tail of the child's stderr.
func (w *processWorker) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	select {
	case <-w.done:
	default:
		return nil
	}
	tail := w.stderr.String()
	if len(tail) > 4096 {
		tail = tail[len(tail)-4096:]
	}
	if w.waitErr == nil {
		if tail == "" {
			return fmt.Errorf("worker process exited before ready")
		}
		return fmt.Errorf("worker process exited before ready; stderr tail: %s", tail)
	}
	if tail == "" {
		return w.waitErr
	}
	return fmt.Errorf("%v; stderr tail: %s", w.waitErr, tail)
}

// Stop terminates the child: SIGTERM, then SIGKILL after the grace period,
// then a bounded wait for the exit watcher. Best effort throughout.
func (w *processWorker) Stop(join time.Duration) {
	w.mu.Lock()
	cmd := w.cmd
	w.mu.Unlock()
	if cmd == nil || cmd.Process == nil {
		return
	}
	select {
	case <-w.done:
		return
	default:
	}

	_ = cmd.Process.Signal(syscall.SIGTERM)
	select {
	case <-w.done:
		return
	case <-time.After(processGracePeriod):
		w.log.Warn().Int("pid", cmd.Process.Pid).Msg("worker ignored SIGTERM, killing")
		_ = cmd.Process.Kill()
	}
	select {
	case <-w.done:
	case <-time.After(join):
		w.log.Warn().Dur("join", join).Msg("worker process did not exit within join timeout")
	}
}

func (w *processWorker) pollInterval() time.Duration { return processPollInterval }
