package runtime

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"fakellm/pkg/types"
)

// Handle owns one loaded engine bound to a local artifact path. Several
// model identifiers and aliases may share a Handle when they resolve to the
// same file; the engine is loaded exactly once.
type Handle struct {
	path      string
	formatter *Formatter
	eng       Engine

	// llama contexts are not reentrant: one generation at a time per handle.
	mu  sync.Mutex
	log zerolog.Logger

	closeOnce sync.Once
	closeErr  error
}

// NewHandle wraps eng for the artifact at path.
func NewHandle(eng Engine, path string, log zerolog.Logger) *Handle {
	return &Handle{
		path:      path,
		formatter: FormatterFor(path),
		eng:       eng,
		log:       log,
	}
}

// Path returns the local artifact path backing this handle.
func (h *Handle) Path() string { return h.path }

// Complete runs a full generation and returns the final result.
func (h *Handle) Complete(ctx context.Context, messages []types.ChatMessage, p Params) (Result, error) {
	return h.generate(ctx, messages, p, nil)
}

// Stream runs a generation invoking onDelta for every produced token, then
// returns the final result. The delta sequence is finite and consumed once.
func (h *Handle) Stream(ctx context.Context, messages []types.ChatMessage, p Params, onDelta func(string) error) (Result, error) {
	return h.generate(ctx, messages, p, onDelta)
}

func (h *Handle) generate(ctx context.Context, messages []types.ChatMessage, p Params, onDelta func(string) error) (Result, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	prompt := h.formatter.Format(messages)
	h.log.Debug().Str("family", h.formatter.Family()).Int("prompt_len", len(prompt)).Msg("generate")
	return h.eng.Generate(ctx, prompt, p, onDelta)
}

// Close releases the underlying engine. Idempotent; repeated calls return
// the first result.
func (h *Handle) Close() error {
	h.closeOnce.Do(func() {
		h.closeErr = h.eng.Close()
	})
	return h.closeErr
}
