package serving

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"fakellm/internal/resolver"
	"fakellm/internal/runtime"
	"fakellm/pkg/types"
)

// Configuration maps every configured model identifier and alias to a
// shared runtime handle. Built once before the worker starts and read-only
// afterwards, so request handlers may read it concurrently without locking.
type Configuration struct {
	handles map[string]*runtime.Handle
	order   []string
	log     zerolog.Logger
}

// BuildOptions parameterize configuration construction.
type BuildOptions struct {
	Models  []string
	Aliases map[string]string

	Resolver *resolver.Resolver
	Factory  runtime.Factory

	ContextSize int
	Threads     int
	Logger      zerolog.Logger
}

// ValidateArgs checks identifier/alias shape before any I/O: the model
// collection must be non-empty and every alias target must be a member of
// it. An alias pointing at another alias fails here, since lookup at request
// time is a single non-recursive map access.
func ValidateArgs(models []string, aliases map[string]string) error {
	if len(models) == 0 {
		return configError{msg: "model names must be a non-empty list"}
	}
	for _, name := range models {
		if name == "" {
			return configError{msg: "model names must not contain empty strings"}
		}
	}
	members := make(map[string]struct{}, len(models))
	for _, name := range models {
		members[name] = struct{}{}
	}
	// Sorted iteration keeps the reported alias deterministic.
	for _, alias := range sortedKeys(aliases) {
		target := aliases[alias]
		if _, ok := members[target]; !ok {
			return configError{msg: fmt.Sprintf("alias %q: target %q not in model names", alias, target)}
		}
	}
	return nil
}

// BuildConfiguration validates, resolves and downloads every model, loads
// each distinct artifact exactly once, and maps aliases onto the shared
// handles. Any failure aborts construction with the causing error.
func BuildConfiguration(ctx context.Context, opts BuildOptions) (*Configuration, error) {
	if err := ValidateArgs(opts.Models, opts.Aliases); err != nil {
		return nil, err
	}
	factory := opts.Factory
	if factory == nil {
		factory = runtime.DefaultFactory
	}

	cfg := &Configuration{
		handles: make(map[string]*runtime.Handle),
		log:     opts.Logger,
	}
	loaded := make(map[string]*runtime.Handle) // local path -> handle

	for _, name := range opts.Models {
		if _, ok := cfg.handles[name]; ok {
			// Duplicate identifiers are harmless.
			continue
		}
		spec, err := opts.Resolver.Resolve(ctx, name)
		if err != nil {
			return nil, err
		}
		art, err := opts.Resolver.Download(ctx, spec)
		if err != nil {
			return nil, err
		}
		handle, ok := loaded[art.Path]
		if !ok {
			eng, err := factory(runtime.EngineConfig{
				ModelPath:   art.Path,
				ContextSize: opts.ContextSize,
				Threads:     opts.Threads,
			})
			if err != nil {
				return nil, fmt.Errorf("load model %s: %w", name, err)
			}
			handle = runtime.NewHandle(eng, art.Path, opts.Logger)
			loaded[art.Path] = handle
			opts.Logger.Info().Str("model", name).Str("path", art.Path).Msg("model loaded")
		} else {
			opts.Logger.Info().Str("model", name).Str("path", art.Path).Msg("artifact shared, reusing loaded model")
		}
		cfg.handles[name] = handle
		cfg.order = append(cfg.order, name)
	}

	for _, alias := range sortedKeys(opts.Aliases) {
		// Target membership was validated above.
		cfg.handles[alias] = cfg.handles[opts.Aliases[alias]]
		cfg.order = append(cfg.order, alias)
	}
	return cfg, nil
}

// PrefetchModels validates and warms the artifact cache without loading any
// engine. The process-mode spawner uses it to fail fast in the parent while
// leaving the actual load to the child.
func PrefetchModels(ctx context.Context, res *resolver.Resolver, models []string, aliases map[string]string) error {
	if err := ValidateArgs(models, aliases); err != nil {
		return err
	}
	for _, name := range models {
		spec, err := res.Resolve(ctx, name)
		if err != nil {
			return err
		}
		if _, err := res.Download(ctx, spec); err != nil {
			return err
		}
	}
	return nil
}

// ListModels returns every configured identifier and alias as a model
// entry, in configuration order. Static for the life of the server.
func (c *Configuration) ListModels() []types.Model {
	out := make([]types.Model, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, types.Model{
			ID:      id,
			Object:  "model",
			Created: types.ModelCreated,
			OwnedBy: types.ModelOwner,
		})
	}
	return out
}

// Complete routes a chat completion to the handle for req.Model. When
// onDelta is non-nil the generation streams through it. Unknown models and
// inference failures come back as distinguishable error kinds; neither
// affects other requests or the configuration itself.
func (c *Configuration) Complete(ctx context.Context, req types.ChatCompletionRequest, onDelta func(string) error) (runtime.Result, error) {
	handle, ok := c.handles[req.Model]
	if !ok {
		return runtime.Result{}, ErrModelNotFound(req.Model)
	}

	p := runtime.Params{
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		TopP:        0.95,
	}
	if req.TopP != nil {
		p.TopP = *req.TopP
	}

	var (
		res runtime.Result
		err error
	)
	if onDelta != nil {
		res, err = handle.Stream(ctx, req.Messages, p, onDelta)
	} else {
		res, err = handle.Complete(ctx, req.Messages, p)
	}
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return res, err
		}
		return res, inferenceError{cause: err}
	}
	return res, nil
}

// Close releases every distinct handle once. Aliases and deduplicated
// identifiers share handles, so closing walks unique values only.
func (c *Configuration) Close() error {
	seen := make(map[*runtime.Handle]struct{}, len(c.handles))
	var firstErr error
	for _, h := range c.handles {
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		if err := h.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
