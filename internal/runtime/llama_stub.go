//go:build !llama

package runtime

// No-CGO stub compiled when the 'llama' build tag is absent, keeping default
// builds and CI CGO-free. The real engine lives in llama.go (tagged 'llama').

func newLlamaEngine(cfg EngineConfig) (Engine, error) {
	return nil, ErrEngineUnavailable("llama support not built (missing 'llama' build tag)")
}
