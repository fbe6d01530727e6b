package resolver

import "sort"

// ModelSpec identifies a downloadable model artifact on the Hugging Face Hub.
// Immutable once resolved.
type ModelSpec struct {
	// Name is the identifier the model was requested by (short name or repo id).
	Name string
	// RepoID is the namespace/repository holding the artifact.
	RepoID string
	// Filename is the artifact file inside the repository.
	Filename string
}

// LocalArtifact identifies a model artifact on the local filesystem.
type LocalArtifact struct {
	Name string
	Path string
}

// catalog maps short model names to pinned artifact specs. Small instruct
// models only; the harness exists to run cheap and offline-cacheable.
var catalog = map[string]ModelSpec{
	"qwen-2.5-coder-3b": {
		Name:     "qwen-2.5-coder-3b",
		RepoID:   "Qwen/Qwen2.5-Coder-3B-Instruct-GGUF",
		Filename: "qwen2.5-coder-3b-instruct-q4_k_m.gguf",
	},
	"qwen-2.5-coder-1.5b": {
		Name:     "qwen-2.5-coder-1.5b",
		RepoID:   "Qwen/Qwen2.5-Coder-1.5B-Instruct-GGUF",
		Filename: "qwen2.5-coder-1.5b-instruct-q4_k_m.gguf",
	},
	"llama-3.2-3b-instruct": {
		Name:     "llama-3.2-3b-instruct",
		RepoID:   "bartowski/Llama-3.2-3B-Instruct-GGUF",
		Filename: "Llama-3.2-3B-Instruct-Q4_K_M.gguf",
	},
	"smollm3": {
		Name:     "smollm3",
		RepoID:   "ggml-org/SmolLM3-3B-GGUF",
		Filename: "SmolLM3-Q4_K_M.gguf",
	},
	"gemma-3-1b": {
		Name:     "gemma-3-1b",
		RepoID:   "unsloth/gemma-3-1b-it-GGUF",
		Filename: "gemma-3-1b-it-Q4_K_M.gguf",
	},
	"gemma-3-270m": {
		Name:     "gemma-3-270m",
		RepoID:   "unsloth/gemma-3-270m-it-GGUF",
		Filename: "gemma-3-270m-it-Q4_K_M.gguf",
	},
}

// CatalogNames returns the supported short model names, sorted.
func CatalogNames() []string {
	names := make([]string, 0, len(catalog))
	for name := range catalog {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
