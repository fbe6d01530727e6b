package resolver

import (
	"fmt"
	"strings"
)

// unsupportedModelError signals an identifier that is neither a catalog name
// nor a namespace/repository reference.
type unsupportedModelError struct {
	name  string
	known []string
}

func (e unsupportedModelError) Error() string {
	return fmt.Sprintf("model %q not supported; available models: %s", e.name, strings.Join(e.known, ", "))
}

// IsUnsupportedModel reports whether err indicates an unknown identifier.
func IsUnsupportedModel(err error) bool {
	_, ok := err.(unsupportedModelError)
	return ok
}

// resolutionError signals that a remote repository could not be queried.
type resolutionError struct {
	repoID string
	cause  error
}

func (e resolutionError) Error() string {
	return fmt.Sprintf("could not list files for repo %s: %v", e.repoID, e.cause)
}

func (e resolutionError) Unwrap() error { return e.cause }

// IsResolutionError reports whether err indicates a failed repository query.
func IsResolutionError(err error) bool {
	_, ok := err.(resolutionError)
	return ok
}

// noArtifactError signals a repository without a usable GGUF file.
type noArtifactError struct{ repoID string }

func (e noArtifactError) Error() string {
	return fmt.Sprintf("no .gguf files found in %s", e.repoID)
}

// IsNoArtifact reports whether err indicates a repository without artifacts.
func IsNoArtifact(err error) bool {
	_, ok := err.(noArtifactError)
	return ok
}

// downloadError wraps a transport failure during artifact download. Carrying
// the repo id lets callers tell "not supported" apart from "network failure".
type downloadError struct {
	repoID string
	cause  error
}

func (e downloadError) Error() string {
	return fmt.Sprintf("failed to download model from %s: %v", e.repoID, e.cause)
}

func (e downloadError) Unwrap() error { return e.cause }

// IsDownloadError reports whether err indicates a failed artifact download.
func IsDownloadError(err error) bool {
	_, ok := err.(downloadError)
	return ok
}
