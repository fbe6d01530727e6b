package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"fakellm/internal/config"
	"fakellm/internal/httpapi"
	"fakellm/internal/resolver"
	"fakellm/internal/serving"
	"fakellm/pkg/types"
)

const shutdownGrace = 5 * time.Second

func buildServeCmd(opts *rootOptions) *cobra.Command {
	var (
		addr        string
		models      []string
		aliasPairs  []string
		configPath  string
		cacheDir    string
		contextSize int
		threads     int
		corsOn      bool
		corsOrigins []string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the loaded models over an OpenAI-compatible HTTP API",
		Example: "  fakellm serve --model gemma-3-270m\n" +
			"  fakellm serve --addr 127.0.0.1:8080 --model smollm3 --alias gpt-4o=smollm3",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Config{}
			if configPath != "" {
				loaded, err := config.Load(configPath)
				if err != nil {
					return err
				}
				cfg = loaded
			}
			// Flags win over file values whenever explicitly set.
			if cmd.Flags().Changed("addr") || cfg.Addr == "" {
				cfg.Addr = addr
			}
			if len(models) > 0 {
				cfg.Models = models
			}
			if len(aliasPairs) > 0 {
				parsed, err := parseAliases(aliasPairs)
				if err != nil {
					return err
				}
				cfg.Aliases = parsed
			}
			if cmd.Flags().Changed("cache-dir") {
				cfg.CacheDir = cacheDir
			}
			if cmd.Flags().Changed("context-size") {
				cfg.ContextSize = contextSize
			}
			if cmd.Flags().Changed("threads") {
				cfg.Threads = threads
			}
			if cmd.Flags().Changed("cors") {
				cfg.CORSEnabled = corsOn
			}
			if cmd.Flags().Changed("cors-origin") {
				cfg.CORSOrigins = corsOrigins
			}
			if cmd.Flags().Changed("log-level") || cfg.LogLevel == "" {
				cfg.LogLevel = opts.LogLevel
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", envStr("FAKELLM_ADDR", "127.0.0.1:8080"), "HTTP listen address, e.g. 127.0.0.1:8080 (port 0 picks a free port)")
	cmd.Flags().StringArrayVar(&models, "model", nil, "Model to load (catalog name or HF repo id); repeatable")
	cmd.Flags().StringArrayVar(&aliasPairs, "alias", nil, "Alias in the form name=target; repeatable")
	cmd.Flags().StringVar(&configPath, "config", "", "Path to a yaml/json/toml config file")
	cmd.Flags().StringVar(&cacheDir, "cache-dir", "", "Directory for downloaded model files")
	cmd.Flags().IntVar(&contextSize, "context-size", 0, "Model context window in tokens")
	cmd.Flags().IntVar(&threads, "threads", 0, "Inference threads (0 = auto)")
	cmd.Flags().BoolVar(&corsOn, "cors", false, "Enable CORS for browser clients")
	cmd.Flags().StringArrayVar(&corsOrigins, "cors-origin", nil, "Allowed CORS origin; repeatable")
	return cmd
}

func runServe(ctx context.Context, cfg config.Config) error {
	log := newLogger(cfg.LogLevel)

	if err := serving.ValidateArgs(cfg.Models, cfg.Aliases); err != nil {
		return err
	}

	res := resolver.New(resolver.Config{CacheDir: cfg.CacheDir, Logger: log})
	built, err := serving.BuildConfiguration(ctx, serving.BuildOptions{
		Models:      cfg.Models,
		Aliases:     cfg.Aliases,
		Resolver:    res,
		ContextSize: cfg.ContextSize,
		Threads:     cfg.Threads,
		Logger:      log,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := built.Close(); err != nil {
			log.Warn().Err(err).Msg("close models")
		}
	}()

	mux := httpapi.NewMux(built, httpapi.Options{
		Logger:         log,
		CORSEnabled:    cfg.CORSEnabled,
		AllowedOrigins: cfg.CORSOrigins,
	})

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.Addr, err)
	}
	srv := &http.Server{Handler: mux}

	// Announce the resolved endpoint on stdout so parent processes and
	// scripts can pick it up without parsing logs.
	announceEndpoint(ln.Addr(), log)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case sig := <-stop:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	case <-ctx.Done():
		log.Info().Msg("context canceled, shutting down")
	case err, ok := <-errCh:
		if ok && err != nil {
			return err
		}
		return nil
	}

	shCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shCtx); err != nil {
		log.Warn().Err(err).Msg("graceful shutdown")
		_ = srv.Close()
	}
	return nil
}

// announceEndpoint prints the client connection info as a single JSON line.
func announceEndpoint(addr net.Addr, log zerolog.Logger) {
	host, port, err := net.SplitHostPort(addr.String())
	if err != nil {
		return
	}
	if ip := net.ParseIP(host); ip != nil && ip.IsUnspecified() {
		host = "127.0.0.1"
	}
	cc := types.ClientConfig{
		BaseURL: fmt.Sprintf("http://%s/v1", net.JoinHostPort(host, port)),
		APIKey:  types.PlaceholderAPIKey,
	}
	b, err := json.Marshal(cc)
	if err != nil {
		return
	}
	fmt.Println(string(b))
	log.Info().Str("addr", addr.String()).Msg("listening")
}

// parseAliases turns repeated name=target flags into a map.
func parseAliases(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		name, target, ok := strings.Cut(p, "=")
		if !ok || name == "" || target == "" {
			return nil, fmt.Errorf("invalid alias %q: expected name=target", p)
		}
		out[name] = target
	}
	return out, nil
}
