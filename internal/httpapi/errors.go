package httpapi

import (
	"encoding/json"
	"net/http"

	"fakellm/pkg/types"
)

// writeError writes the OpenAI-style error envelope so off-the-shelf client
// libraries surface the message without custom parsing.
func writeError(w http.ResponseWriter, status int, msg, kind string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{
		Error: types.ErrorDetail{Message: msg, Type: kind},
	})
}
