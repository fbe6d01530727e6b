//go:build llama

package runtime

import (
	"context"
	"errors"
	"strings"

	llama "github.com/go-skynet/go-llama.cpp"
)

// llamaEngine wraps one loaded llama.cpp model.
type llamaEngine struct {
	model   *llama.LLama
	threads int
}

func newLlamaEngine(cfg EngineConfig) (Engine, error) {
	if strings.TrimSpace(cfg.ModelPath) == "" {
		return nil, errors.New("model path is empty")
	}
	m, err := llama.New(cfg.ModelPath, llama.SetContext(cfg.ContextSize))
	if err != nil {
		return nil, err
	}
	return &llamaEngine{model: m, threads: cfg.Threads}, nil
}

func (e *llamaEngine) Generate(ctx context.Context, prompt string, p Params, onToken func(string) error) (Result, error) {
	if e.model == nil {
		return Result{}, errors.New("llama model not initialized")
	}
	maxTokens := p.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	completionTokens := 0
	e.model.SetTokenCallback(func(tok string) bool {
		select {
		case <-ctx.Done():
			return false
		default:
		}
		completionTokens++
		if onToken != nil {
			if err := onToken(tok); err != nil {
				return false
			}
		}
		return true
	})

	// Temperature is passed through verbatim: 0 must stay 0 so greedy
	// decoding keeps repeated requests byte-identical.
	po := []llama.PredictOption{
		llama.SetTokens(maxTokens),
		llama.SetThreads(e.threads),
		llama.SetTemperature(float32(p.Temperature)),
		llama.SetTopP(float32(p.TopP)),
	}
	if p.Seed != 0 {
		po = append(po, llama.SetSeed(p.Seed))
	}

	text, err := e.model.Predict(prompt, po...)
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		return Result{}, err
	}
	return Result{
		Content:          text,
		PromptTokens:     estimateTokens(prompt),
		CompletionTokens: completionTokens,
		FinishReason:     "stop",
	}, nil
}

func (e *llamaEngine) Close() error {
	if e.model != nil {
		e.model.Free()
		e.model = nil
	}
	return nil
}

// estimateTokens approximates a token count for usage reporting; the binding
// does not expose the tokenizer's prompt count.
func estimateTokens(s string) int {
	n := len(s) / 4
	if n < 1 {
		n = 1
	}
	return n
}
