//go:build !swagger

package httpapi

import (
	"github.com/go-chi/chi/v5"
)

// MountSwagger is a no-op by default; build with -tags=swagger for the UI.
func MountSwagger(r chi.Router) {}
