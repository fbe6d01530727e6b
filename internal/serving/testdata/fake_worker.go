package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

type multiFlag []string

func (m *multiFlag) String() string { return fmt.Sprint(*m) }

func (m *multiFlag) Set(v string) error {
	*m = append(*m, v)
	return nil
}

// Stand-in worker binary for process-mode tests. Accepts the serve
// invocation the spawner produces and misbehaves on demand via
// FAKE_WORKER_BEHAVIOR: exit (die before listening), hang (never listen),
// ignore-term (listen but shrug off SIGTERM).
func main() {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := fs.String("addr", "127.0.0.1:0", "listen address")
	var models, aliases multiFlag
	fs.Var(&models, "model", "model name")
	fs.Var(&aliases, "alias", "alias pair")
	args := os.Args[1:]
	if len(args) > 0 && args[0] == "serve" {
		args = args[1:]
	}
	if err := fs.Parse(args); err != nil {
		log.Fatalf("parse args: %v", err)
	}

	switch os.Getenv("FAKE_WORKER_BEHAVIOR") {
	case "exit":
		fmt.Fprintln(os.Stderr, "model load failed: boom")
		os.Exit(1)
	case "hang":
		// A bare select here would trip the runtime deadlock detector
		// since main is the only goroutine. Sleeping blocks forever
		// without listening, which is the behavior under test.
		for {
			time.Sleep(time.Hour)
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/models", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"object":"list","data":[{"id":"%s","object":"model"}]}`, firstOr(models, "m"))
	})
	srv := &http.Server{Addr: *addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	if os.Getenv("FAKE_WORKER_BEHAVIOR") == "ignore-term" {
		signal.Ignore(syscall.SIGTERM)
		select {}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	<-sigCh
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}

func firstOr(vals []string, def string) string {
	if len(vals) > 0 {
		return vals[0]
	}
	return def
}
