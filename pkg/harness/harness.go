// Package harness stands up a local OpenAI-compatible endpoint backed by
// small GGUF models, for use as a test double in integration suites.
//
// The zero-config happy path:
//
//	srv, err := harness.New(ctx, []string{"gemma-3-270m"})
//	if err != nil { ... }
//	defer srv.Close()
//	cc := srv.ClientConfig() // base URL + placeholder API key
package harness

import (
	"context"
	"os"
	"os/exec"
	"time"

	"github.com/rs/zerolog"

	"fakellm/internal/httpapi"
	"fakellm/internal/resolver"
	"fakellm/internal/runtime"
	"fakellm/internal/serving"
	"fakellm/pkg/types"
)

// WorkerMode selects how the server runs relative to the caller.
type WorkerMode = serving.WorkerMode

const (
	// ModeThread serves from a goroutine inside the calling process.
	ModeThread = serving.ModeThread
	// ModeProcess serves from a spawned child process.
	ModeProcess = serving.ModeProcess
)

type settings struct {
	aliases       map[string]string
	mode          WorkerMode
	startTimeout  time.Duration
	joinTimeout   time.Duration
	logger        zerolog.Logger
	workerBin     string
	cacheDir      string
	hubURL        string
	contextSize   int
	threads       int
	engineFactory runtime.Factory
}

// Option customizes New.
type Option func(*settings)

// WithAliases registers extra model names resolving to already-listed models.
// Each target must appear in the models argument of New.
func WithAliases(aliases map[string]string) Option {
	return func(s *settings) { s.aliases = aliases }
}

// WithWorkerMode selects thread or process serving. Default is thread.
func WithWorkerMode(mode WorkerMode) Option {
	return func(s *settings) { s.mode = mode }
}

// WithStartTimeout overrides the readiness ceiling.
func WithStartTimeout(d time.Duration) Option {
	return func(s *settings) { s.startTimeout = d }
}

// WithJoinTimeout overrides how long Close waits for the worker to exit.
func WithJoinTimeout(d time.Duration) Option {
	return func(s *settings) { s.joinTimeout = d }
}

// WithLogger installs a logger. Default discards everything.
func WithLogger(log zerolog.Logger) Option {
	return func(s *settings) { s.logger = log }
}

// WithWorkerBinary sets the executable spawned in process mode. Default is
// $FAKELLM_WORKER_BIN, else the fakellm binary found on PATH.
func WithWorkerBinary(path string) Option {
	return func(s *settings) { s.workerBin = path }
}

// WithCacheDir overrides where model files are downloaded and reused.
func WithCacheDir(dir string) Option {
	return func(s *settings) { s.cacheDir = dir }
}

// WithHubURL points the model resolver at an alternate hub endpoint.
func WithHubURL(u string) Option {
	return func(s *settings) { s.hubURL = u }
}

// WithContextSize sets the model context window in tokens.
func WithContextSize(n int) Option {
	return func(s *settings) { s.contextSize = n }
}

// WithThreads sets the inference thread count. Zero means auto-detect.
func WithThreads(n int) Option {
	return func(s *settings) { s.threads = n }
}

// WithEngineFactory swaps the inference engine constructor. Thread mode only.
func WithEngineFactory(f runtime.Factory) Option {
	return func(s *settings) { s.engineFactory = f }
}

// Server is a running endpoint. Always call Close, even when a request to
// the server has failed.
type Server struct {
	inner *serving.Server
}

// New resolves and loads the named models, starts a worker and blocks until
// the endpoint answers. On any failure the worker is torn down before the
// error is returned.
func New(ctx context.Context, models []string, opts ...Option) (*Server, error) {
	s := settings{
		mode:   ModeThread,
		logger: zerolog.New(os.Stderr).Level(zerolog.Disabled),
	}
	for _, opt := range opts {
		opt(&s)
	}

	if err := serving.ValidateArgs(models, s.aliases); err != nil {
		return nil, err
	}
	res := resolver.New(resolver.Config{
		HubURL:   s.hubURL,
		CacheDir: s.cacheDir,
		Logger:   s.logger,
	})

	switch s.mode {
	case ModeProcess:
		return startProcess(ctx, models, res, s)
	default:
		return startThread(ctx, models, res, s)
	}
}

func startThread(ctx context.Context, models []string, res *resolver.Resolver, s settings) (*Server, error) {
	cfg, err := serving.BuildConfiguration(ctx, serving.BuildOptions{
		Models:      models,
		Aliases:     s.aliases,
		Resolver:    res,
		Factory:     s.engineFactory,
		ContextSize: s.contextSize,
		Threads:     s.threads,
		Logger:      s.logger,
	})
	if err != nil {
		return nil, err
	}
	mux := httpapi.NewMux(cfg, httpapi.Options{Logger: s.logger})
	inner, err := serving.Start(ctx, serving.Options{
		Mode:         ModeThread,
		Handler:      mux,
		Config:       cfg,
		StartTimeout: s.startTimeout,
		JoinTimeout:  s.joinTimeout,
		Logger:       s.logger,
	})
	if err != nil {
		// Start closes cfg through Options.Config only once the worker
		// exists; a config error before that point leaks the handles.
		_ = cfg.Close()
		return nil, err
	}
	return &Server{inner: inner}, nil
}

func startProcess(ctx context.Context, models []string, res *resolver.Resolver, s settings) (*Server, error) {
	bin := s.workerBin
	if bin == "" {
		bin = os.Getenv("FAKELLM_WORKER_BIN")
	}
	if bin == "" {
		found, err := exec.LookPath("fakellm")
		if err != nil {
			return nil, err
		}
		bin = found
	}
	// Download up front so the child starts from a warm cache and its
	// startup time stays within the readiness ceiling.
	if err := serving.PrefetchModels(ctx, res, models, s.aliases); err != nil {
		return nil, err
	}
	inner, err := serving.Start(ctx, serving.Options{
		Mode:         ModeProcess,
		WorkerBin:    bin,
		Models:       models,
		Aliases:      s.aliases,
		StartTimeout: s.startTimeout,
		JoinTimeout:  s.joinTimeout,
		Logger:       s.logger,
	})
	if err != nil {
		return nil, err
	}
	return &Server{inner: inner}, nil
}

// Port returns the allocated loopback port.
func (s *Server) Port() int { return s.inner.Port() }

// BaseURL returns the endpoint base URL including the /v1 prefix.
func (s *Server) BaseURL() string { return s.inner.BaseURL() }

// ClientConfig returns connection parameters for OpenAI-compatible clients.
func (s *Server) ClientConfig() types.ClientConfig { return s.inner.ClientConfig() }

// Close shuts the worker down and releases loaded models. Idempotent; never
// returns an error.
func (s *Server) Close() error { return s.inner.Close() }

// IsWorkerDied reports whether err means the worker exited before becoming
// ready.
func IsWorkerDied(err error) bool { return serving.IsWorkerDied(err) }

// IsStartupTimeout reports whether err means readiness never arrived within
// the ceiling.
func IsStartupTimeout(err error) bool { return serving.IsStartupTimeout(err) }
