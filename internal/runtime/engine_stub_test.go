//go:build !llama

package runtime

import "testing"

func TestDefaultFactoryUnavailableWithoutLlama(t *testing.T) {
	_, err := DefaultFactory(EngineConfig{ModelPath: "m.gguf"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !IsEngineUnavailable(err) {
		t.Fatalf("expected engine-unavailable error, got %v", err)
	}
}
