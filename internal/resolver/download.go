package resolver

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"fakellm/internal/common/fsutil"
)

// Download fetches the artifact for spec into the cache and returns its
// local path. A file already present in the cache is reused without any
// network traffic, so repeated harness construction stays cheap.
func (r *Resolver) Download(ctx context.Context, spec ModelSpec) (LocalArtifact, error) {
	dest, err := r.localPath(spec)
	if err != nil {
		return LocalArtifact{}, downloadError{repoID: spec.RepoID, cause: err}
	}
	if fsutil.PathExists(dest) {
		r.log.Debug().Str("model", spec.Name).Str("path", dest).Msg("artifact cached")
		return LocalArtifact{Name: spec.Name, Path: dest}, nil
	}
	if err := fsutil.EnsureDir(filepath.Dir(dest)); err != nil {
		return LocalArtifact{}, downloadError{repoID: spec.RepoID, cause: err}
	}
	if err := r.fetch(ctx, spec, dest); err != nil {
		return LocalArtifact{}, downloadError{repoID: spec.RepoID, cause: err}
	}
	return LocalArtifact{Name: spec.Name, Path: dest}, nil
}

// fetch streams the artifact to dest. An interrupted download leaves a
// .partial file that the next attempt resumes with a Range request.
func (r *Resolver) fetch(ctx context.Context, spec ModelSpec, dest string) error {
	url := fmt.Sprintf("%s/%s/resolve/main/%s", r.hubURL, spec.RepoID, spec.Filename)
	partial := dest + ".partial"

	var startByte int64
	if info, err := os.Stat(partial); err == nil {
		startByte = info.Size()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	if startByte > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", startByte))
	}
	r.authorize(req)

	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		// Full body; discard any partial progress.
		startByte = 0
	case http.StatusPartialContent:
	default:
		return fmt.Errorf("download failed with status %d", resp.StatusCode)
	}

	flags := os.O_CREATE | os.O_WRONLY
	if startByte > 0 {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(partial, flags, 0o644)
	if err != nil {
		return err
	}
	r.log.Info().Str("model", spec.Name).Str("url", url).Int64("resume_at", startByte).Msg("downloading artifact")

	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(partial, dest)
}
