package serving

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"fakellm/pkg/types"
)

const (
	// DefaultStartTimeout is the readiness ceiling. Generous because a cold
	// cache means downloading and loading a model before the port binds.
	DefaultStartTimeout = 5 * time.Minute
	// DefaultJoinTimeout bounds how long shutdown waits for the worker.
	DefaultJoinTimeout = 5 * time.Second
)

// Options parameterize Start.
type Options struct {
	Mode WorkerMode

	// Handler is the request router served by a thread-mode worker.
	Handler http.Handler
	// Config is the configuration backing Handler; the server owns it and
	// closes it on shutdown. Thread mode only.
	Config *Configuration

	// WorkerBin and the model/alias args describe the child process in
	// process mode. The binary's serve command is invoked with the
	// allocated port.
	WorkerBin string
	Models    []string
	Aliases   map[string]string

	StartTimeout time.Duration
	JoinTimeout  time.Duration
	Logger       zerolog.Logger
}

// Server is a running harness instance: allocated port, worker handle and
// readiness state. Construct with Start, release with Close.
type Server struct {
	info        *StartInfo
	w           worker
	cfg         *Configuration
	joinTimeout time.Duration
	log         zerolog.Logger
	closeOnce   sync.Once
}

// Start allocates a port, spawns the worker and blocks until the worker is
// verifiably ready. On any failure the worker is shut down before the error
// is returned, so a failed Start never leaks a thread, process or socket.
func Start(ctx context.Context, opts Options) (*Server, error) {
	if opts.StartTimeout <= 0 {
		opts.StartTimeout = DefaultStartTimeout
	}
	if opts.JoinTimeout <= 0 {
		opts.JoinTimeout = DefaultJoinTimeout
	}

	port, err := allocatePort()
	if err != nil {
		return nil, fmt.Errorf("allocate port: %w", err)
	}
	info := NewStartInfo()
	info.SetPort(port)

	var w worker
	switch opts.Mode {
	case ModeProcess:
		if opts.WorkerBin == "" {
			return nil, configError{msg: "process mode requires a worker binary"}
		}
		w = newProcessWorker(opts.WorkerBin, workerArgs(port, opts.Models, opts.Aliases), port, info, opts.Logger)
	case ModeThread, "":
		if opts.Handler == nil {
			return nil, configError{msg: "thread mode requires a handler"}
		}
		w = newThreadWorker(port, opts.Handler, info, opts.Logger)
	default:
		return nil, configError{msg: fmt.Sprintf("unknown worker mode %q", opts.Mode)}
	}

	s := &Server{
		info:        info,
		w:           w,
		cfg:         opts.Config,
		joinTimeout: opts.JoinTimeout,
		log:         opts.Logger,
	}
	if err := w.Start(); err != nil {
		_ = s.Close()
		return nil, workerDiedError{cause: err}
	}
	if err := s.waitReady(ctx, opts.StartTimeout); err != nil {
		_ = s.Close()
		return nil, err
	}
	s.log.Info().Int("port", port).Str("mode", string(opts.Mode)).Msg("server ready")
	return s, nil
}

// waitReady sleep-polls the worker's readiness signal up to the ceiling.
// A dead worker fails immediately instead of waiting out the timeout.
func (s *Server) waitReady(ctx context.Context, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	interval := s.w.pollInterval()
	for {
		if s.w.Ready() {
			return nil
		}
		if !s.w.Alive() {
			return workerDiedError{cause: s.w.Err()}
		}
		if time.Now().After(deadline) {
			return startupTimeoutError{timeout: timeout}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}

// Port returns the allocated port.
func (s *Server) Port() int { return s.info.Port() }

// BaseURL returns the loopback base URL including the /v1 prefix.
func (s *Server) BaseURL() string {
	return fmt.Sprintf("http://127.0.0.1:%d/v1", s.info.Port())
}

// ClientConfig returns connection parameters for any OpenAI-compatible
// client: the loopback base URL and the placeholder credential.
func (s *Server) ClientConfig() types.ClientConfig {
	return types.ClientConfig{
		BaseURL: s.BaseURL(),
		APIKey:  types.PlaceholderAPIKey,
	}
}

// Close stops the worker and releases loaded models. Idempotent and safe to
// call from a different goroutine than Start; always returns nil, because
// teardown failures are logged rather than allowed to fail a test run.
func (s *Server) Close() error {
	s.closeOnce.Do(func() {
		s.w.Stop(s.joinTimeout)
		if s.cfg != nil {
			if err := s.cfg.Close(); err != nil {
				s.log.Warn().Err(err).Msg("closing model handles")
			}
		}
		s.log.Debug().Int("port", s.info.Port()).Msg("server stopped")
	})
	return nil
}

// workerArgs builds the serve invocation for a child worker.
func workerArgs(port int, models []string, aliases map[string]string) []string {
	args := []string{"serve", "--addr", fmt.Sprintf("127.0.0.1:%d", port)}
	for _, m := range models {
		args = append(args, "--model", m)
	}
	for _, alias := range sortedKeys(aliases) {
		args = append(args, "--alias", alias+"="+aliases[alias])
	}
	return args
}
