package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"fakellm/internal/common/fsutil"
)

const defaultHubURL = "https://huggingface.co"

// Resolver maps model identifiers to artifact specs and downloads them into
// a local cache. Hub credentials and the cache location are resolved here,
// from the environment, so the serving layer stays free of them.
type Resolver struct {
	hubURL   string
	cacheDir string
	token    string
	client   *http.Client
	log      zerolog.Logger
}

// Config holds optional overrides; zero values fall back to defaults
// (public Hub URL, ~/.cache/fakellm/models, HF_TOKEN from the environment).
type Config struct {
	HubURL   string
	CacheDir string
	Token    string
	Logger   zerolog.Logger
}

// New constructs a Resolver from cfg.
func New(cfg Config) *Resolver {
	hub := strings.TrimRight(cfg.HubURL, "/")
	if hub == "" {
		hub = defaultHubURL
	}
	cacheDir := cfg.CacheDir
	if cacheDir == "" {
		cacheDir = os.Getenv("FAKELLM_CACHE_DIR")
	}
	if cacheDir == "" {
		cacheDir = "~/.cache/fakellm/models"
	}
	token := cfg.Token
	if token == "" {
		token = os.Getenv("HF_TOKEN")
	}
	return &Resolver{
		hubURL:   hub,
		cacheDir: cacheDir,
		token:    token,
		// Timeout=0 on purpose: downloads of multi-GB artifacts must not be
		// cut off by a client-wide deadline. Callers pass contexts instead.
		client: &http.Client{Timeout: 0},
		log:    cfg.Logger,
	}
}

// Resolve maps an identifier to a ModelSpec. Catalog names resolve without
// I/O; namespace/repository references are resolved by listing the repo.
func (r *Resolver) Resolve(ctx context.Context, name string) (ModelSpec, error) {
	if spec, ok := catalog[name]; ok {
		return spec, nil
	}
	if strings.Contains(name, "/") {
		return r.resolveRepo(ctx, name)
	}
	return ModelSpec{}, unsupportedModelError{name: name, known: CatalogNames()}
}

// hubModelInfo is the subset of the Hub model API response we care about.
type hubModelInfo struct {
	Siblings []struct {
		Rfilename string `json:"rfilename"`
	} `json:"siblings"`
}

func (r *Resolver) resolveRepo(ctx context.Context, repoID string) (ModelSpec, error) {
	url := fmt.Sprintf("%s/api/models/%s", r.hubURL, repoID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return ModelSpec{}, resolutionError{repoID: repoID, cause: err}
	}
	r.authorize(req)
	resp, err := r.client.Do(req)
	if err != nil {
		return ModelSpec{}, resolutionError{repoID: repoID, cause: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return ModelSpec{}, resolutionError{repoID: repoID, cause: fmt.Errorf("hub returned %s: %s", resp.Status, strings.TrimSpace(string(b)))}
	}
	var info hubModelInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return ModelSpec{}, resolutionError{repoID: repoID, cause: err}
	}

	var gguf []string
	for _, s := range info.Siblings {
		if strings.HasSuffix(strings.ToLower(s.Rfilename), ".gguf") {
			gguf = append(gguf, s.Rfilename)
		}
	}
	if len(gguf) == 0 {
		return ModelSpec{}, noArtifactError{repoID: repoID}
	}
	filename := pickQuant(gguf)
	r.log.Debug().Str("repo", repoID).Str("file", filename).Msg("resolved remote model")
	return ModelSpec{Name: repoID, RepoID: repoID, Filename: filename}, nil
}

// pickQuant selects the preferred quantization variant: q4_k_m if present,
// otherwise the first listed file.
func pickQuant(files []string) string {
	for _, f := range files {
		if strings.Contains(strings.ToLower(f), "q4_k_m") {
			return f
		}
	}
	return files[0]
}

// localPath returns the cache location for a spec without touching the
// network. The repo id is flattened so one directory level holds each repo.
func (r *Resolver) localPath(spec ModelSpec) (string, error) {
	base, err := fsutil.ExpandHome(r.cacheDir)
	if err != nil {
		return "", err
	}
	repoDir := strings.ReplaceAll(spec.RepoID, "/", "--")
	return filepath.Join(base, repoDir, spec.Filename), nil
}

func (r *Resolver) authorize(req *http.Request) {
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}
}
