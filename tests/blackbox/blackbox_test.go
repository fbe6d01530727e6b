package blackbox

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

func projectRootFromThisFile(t *testing.T) string {
	t.Helper()
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("runtime.Caller failed")
	}
	// this file: <root>/tests/blackbox/blackbox_test.go
	return filepath.Dir(filepath.Dir(filepath.Dir(thisFile)))
}

// buildBinary compiles the CLI without cgo; the resulting binary carries the
// stub engine, which is all the non-inference flows need.
func buildBinary(t *testing.T) string {
	t.Helper()
	root := projectRootFromThisFile(t)
	binPath := filepath.Join(t.TempDir(), "fakellm")
	cmd := exec.Command("go", "build", "-o", binPath, "./cmd/fakellm")
	cmd.Dir = root
	cmd.Env = append(os.Environ(), "CGO_ENABLED=0")
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("go build failed: %v\n%s", err, string(out))
	}
	return binPath
}

func TestModelsCommandListsCatalog(t *testing.T) {
	bin := buildBinary(t)
	out, err := exec.Command(bin, "models").CombinedOutput()
	if err != nil {
		t.Fatalf("models command: %v\n%s", err, string(out))
	}
	for _, want := range []string{"gemma-3-270m", "gemma-3-1b", "smollm3", "llama-3.2-3b-instruct"} {
		if !strings.Contains(string(out), want) {
			t.Fatalf("catalog output missing %q:\n%s", want, string(out))
		}
	}
}

func TestServeRejectsUnknownModel(t *testing.T) {
	bin := buildBinary(t)
	out, err := exec.Command(bin, "serve", "--model", "definitely-not-a-model").CombinedOutput()
	if err == nil {
		t.Fatalf("serve should fail for an unknown model")
	}
	if !strings.Contains(string(out), "not supported") {
		t.Fatalf("error should name the unsupported model:\n%s", string(out))
	}
}

func TestServeRejectsAliasChain(t *testing.T) {
	bin := buildBinary(t)
	out, err := exec.Command(bin, "serve",
		"--model", "gemma-3-270m",
		"--alias", "a=gemma-3-270m",
		"--alias", "b=a").CombinedOutput()
	if err == nil {
		t.Fatalf("serve should fail for a transitive alias")
	}
	if !strings.Contains(string(out), `target "a" not in model names`) {
		t.Fatalf("error should name the offending target:\n%s", string(out))
	}
}

// TestServeStubBuildReportsEngineUnavailable seeds the cache so no network
// is needed, then verifies the stub build fails with a pointed message
// instead of serving a model it cannot run.
func TestServeStubBuildReportsEngineUnavailable(t *testing.T) {
	bin := buildBinary(t)
	cache := t.TempDir()
	artifact := filepath.Join(cache, "unsloth--gemma-3-270m-it-GGUF", "gemma-3-270m-it-Q4_K_M.gguf")
	if err := os.MkdirAll(filepath.Dir(artifact), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(artifact, []byte("GGUF"), 0o644); err != nil {
		t.Fatal(err)
	}

	cmd := exec.Command(bin, "serve", "--model", "gemma-3-270m", "--cache-dir", cache, "--addr", "127.0.0.1:0")
	out, err := cmd.CombinedOutput()
	if err == nil {
		t.Fatalf("stub build must not start serving:\n%s", string(out))
	}
	if !strings.Contains(string(out), "llama support not built") {
		t.Fatalf("expected engine-unavailable message:\n%s", string(out))
	}
}

// buildLlamaBinary compiles the CLI with the real engine. Requires the
// llama.cpp libraries; only used by the env-gated live test.
func buildLlamaBinary(t *testing.T) string {
	t.Helper()
	root := projectRootFromThisFile(t)
	binPath := filepath.Join(t.TempDir(), "fakellm")
	cmd := exec.Command("go", "build", "-tags", "llama", "-o", binPath, "./cmd/fakellm")
	cmd.Dir = root
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("go build -tags llama failed: %v\n%s", err, string(out))
	}
	return binPath
}

// TestLiveEndToEnd drives a real model through the whole stack: spawn the
// serve command, wait for readiness, then list models, complete and stream
// with a stock OpenAI client. Gated because it downloads and loads a real
// GGUF model.
func TestLiveEndToEnd(t *testing.T) {
	if os.Getenv("FAKELLM_E2E") == "" {
		t.Skip("FAKELLM_E2E not set; skipping live model test")
	}
	bin := buildLlamaBinary(t)

	cmd := exec.Command(bin, "serve",
		"--model", "gemma-3-270m",
		"--alias", "gpt-4o=gemma-3-270m",
		"--addr", "127.0.0.1:0")
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		t.Fatal(err)
	}
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		t.Fatalf("start serve: %v", err)
	}
	t.Cleanup(func() {
		_ = cmd.Process.Signal(syscall.SIGTERM)
		done := make(chan struct{})
		go func() { _ = cmd.Wait(); close(done) }()
		select {
		case <-done:
		case <-time.After(10 * time.Second):
			_ = cmd.Process.Kill()
		}
	})

	// The first stdout line is the endpoint announcement.
	var cc struct {
		BaseURL string `json:"base_url"`
		APIKey  string `json:"api_key"`
	}
	scanner := bufio.NewScanner(stdout)
	lineCh := make(chan string, 1)
	go func() {
		if scanner.Scan() {
			lineCh <- scanner.Text()
		}
		close(lineCh)
		_, _ = io.Copy(io.Discard, stdout)
	}()
	select {
	case line, ok := <-lineCh:
		if !ok {
			t.Fatalf("serve exited before announcing its endpoint")
		}
		if err := json.Unmarshal([]byte(line), &cc); err != nil {
			t.Fatalf("parse endpoint announcement %q: %v", line, err)
		}
	case <-time.After(5 * time.Minute):
		t.Fatalf("serve did not announce its endpoint in time")
	}

	waitHealthy(t, strings.TrimSuffix(cc.BaseURL, "/v1")+"/healthz")

	cfg := openai.DefaultConfig(cc.APIKey)
	cfg.BaseURL = cc.BaseURL
	client := openai.NewClientWithConfig(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	models, err := client.ListModels(ctx)
	if err != nil {
		t.Fatalf("list models: %v", err)
	}
	ids := map[string]struct{}{}
	for _, m := range models.Models {
		ids[m.ID] = struct{}{}
	}
	if _, ok := ids["gemma-3-270m"]; !ok {
		t.Fatalf("model list missing gemma-3-270m: %v", models.Models)
	}
	if _, ok := ids["gpt-4o"]; !ok {
		t.Fatalf("model list missing alias gpt-4o: %v", models.Models)
	}

	req := openai.ChatCompletionRequest{
		Model:     "gpt-4o",
		MaxTokens: 32,
		Messages:  []openai.ChatCompletionMessage{{Role: "user", Content: "Say hello in one short sentence."}},
	}
	resp, err := client.CreateChatCompletion(ctx, req)
	if err != nil {
		t.Fatalf("chat completion: %v", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		t.Fatalf("empty completion: %+v", resp)
	}

	// Greedy decoding: the same request twice yields the same bytes.
	again, err := client.CreateChatCompletion(ctx, req)
	if err != nil {
		t.Fatalf("second completion: %v", err)
	}
	if resp.Choices[0].Message.Content != again.Choices[0].Message.Content {
		t.Fatalf("temperature-0 output not reproducible:\n%q\n%q",
			resp.Choices[0].Message.Content, again.Choices[0].Message.Content)
	}

	stream, err := client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:     "gemma-3-270m",
		MaxTokens: 32,
		Stream:    true,
		Messages:  []openai.ChatCompletionMessage{{Role: "user", Content: "Count to three."}},
	})
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	defer stream.Close()
	var streamed bytes.Buffer
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("recv: %v", err)
		}
		for _, c := range chunk.Choices {
			streamed.WriteString(c.Delta.Content)
		}
	}
	if streamed.Len() == 0 {
		t.Fatalf("stream produced no content")
	}
}

func waitHealthy(t *testing.T, url string) {
	t.Helper()
	deadline := time.Now().Add(30 * time.Second)
	for {
		resp, err := http.Get(url)
		if err == nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		if time.Now().After(deadline) {
			t.Fatalf("server never became healthy at %s", url)
		}
		time.Sleep(100 * time.Millisecond)
	}
}
