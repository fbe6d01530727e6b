package runtime

import "context"

// Params captures sampling parameters for one generation.
type Params struct {
	// MaxTokens limits generated tokens; <=0 falls back to DefaultMaxTokens.
	MaxTokens int
	// Temperature 0 is greedy decoding and therefore deterministic.
	Temperature float64
	TopP        float64
	Seed        int
}

// DefaultMaxTokens bounds generation when the request does not. Small models
// in a test harness should never run away to the context limit.
const DefaultMaxTokens = 256

// Result summarizes a finished generation.
type Result struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
	FinishReason     string
}

// Engine is one loaded inference runtime bound to a model file. Generate
// invokes onToken for each produced token when onToken is non-nil and must
// return when ctx is canceled. Engines are not safe for concurrent Generate
// calls; Handle serializes access.
type Engine interface {
	Generate(ctx context.Context, prompt string, p Params, onToken func(string) error) (Result, error)
	Close() error
}

// EngineConfig holds load-time settings for an engine.
type EngineConfig struct {
	ModelPath   string
	ContextSize int
	Threads     int
}

// DefaultContextSize matches what small instruct models are tuned for.
const DefaultContextSize = 2048

// Factory constructs an Engine for a model file. Tests substitute fakes here.
type Factory func(cfg EngineConfig) (Engine, error)

// DefaultFactory loads models with the llama.cpp backend. Without the
// 'llama' build tag it fails fast instead of mocking inference.
func DefaultFactory(cfg EngineConfig) (Engine, error) {
	if cfg.ContextSize <= 0 {
		cfg.ContextSize = DefaultContextSize
	}
	if cfg.Threads <= 0 {
		cfg.Threads = DefaultThreads()
	}
	return newLlamaEngine(cfg)
}
