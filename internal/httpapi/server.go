package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"fakellm/internal/runtime"
	"fakellm/internal/serving"
	"fakellm/pkg/types"
)

// Service defines what the HTTP layer needs from the serving configuration.
type Service interface {
	// ListModels returns every configured identifier and alias.
	ListModels() []types.Model
	// Complete routes the request to its model handle. When onDelta is
	// non-nil the generation streams through it token by token.
	Complete(ctx context.Context, req types.ChatCompletionRequest, onDelta func(string) error) (runtime.Result, error)
}

// Options tune the router. The zero value is usable.
type Options struct {
	Logger zerolog.Logger
	// MaxBodyBytes caps the request body; <=0 means 1 MiB.
	MaxBodyBytes int64
	// CORS is opt-in; when enabled, AllowedOrigins defaults to "*".
	CORSEnabled    bool
	AllowedOrigins []string
}

// NewMux builds the v1 router: model listing, chat completions, health and
// metrics endpoints.
func NewMux(svc Service, opts Options) http.Handler {
	maxBody := opts.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = 1 << 20
	}
	log := opts.Logger

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	if opts.CORSEnabled {
		origins := opts.AllowedOrigins
		if len(origins) == 0 {
			origins = []string{"*"}
		}
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: origins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "Content-Type"},
		}))
	}
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	r.Route("/v1", func(v1 chi.Router) {
		v1.Get("/models", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			list := types.ModelList{Object: "list", Data: svc.ListModels()}
			if list.Data == nil {
				list.Data = []types.Model{}
			}
			if err := json.NewEncoder(w).Encode(list); err != nil {
				log.Error().Err(err).Msg("encode model list")
			}
		})

		v1.Post("/chat/completions", func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBody)
			// Unknown fields are deliberately tolerated: clients send far
			// more knobs than this harness honors.
			var req types.ChatCompletionRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, "invalid JSON body", "invalid_request_error")
				return
			}
			if len(req.Messages) == 0 {
				writeError(w, http.StatusBadRequest, "messages must be a non-empty list", "invalid_request_error")
				return
			}
			start := time.Now()
			rid := middleware.GetReqID(r.Context())
			log.Info().Str("request_id", rid).Str("model", req.Model).Bool("stream", req.Stream).Msg("chat completion start")

			var err error
			if req.Stream {
				err = streamCompletion(w, r, svc, req)
			} else {
				err = completion(w, r, svc, req)
			}
			if err != nil {
				if r.Context().Err() != nil {
					// Client went away; nothing sensible left to write.
					return
				}
				status, kind := errorStatus(err)
				writeError(w, status, err.Error(), kind)
				log.Info().Str("request_id", rid).Int("status", status).Dur("dur", time.Since(start)).Err(err).Msg("chat completion end")
				return
			}
			log.Info().Str("request_id", rid).Int("status", http.StatusOK).Dur("dur", time.Since(start)).Msg("chat completion end")
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	MountSwagger(r)

	return r
}

// completion handles the non-streaming path: run to completion, reply with
// one chat.completion object.
func completion(w http.ResponseWriter, r *http.Request, svc Service, req types.ChatCompletionRequest) error {
	res, err := svc.Complete(r.Context(), req, nil)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(completionObject(req.Model, res))
}

// streamCompletion handles the streaming path: an SSE sequence of
// chat.completion.chunk objects terminated by [DONE]. The role-only first
// chunk and the finish_reason-only last chunk match what hosted APIs emit,
// so standard client stream decoders work unmodified.
func streamCompletion(w http.ResponseWriter, r *http.Request, svc Service, req types.ChatCompletionRequest) error {
	id := "chatcmpl-" + uuid.NewString()
	created := time.Now().Unix()
	flusher, _ := w.(http.Flusher)

	headerSent := false
	sendChunk := func(choice types.ChunkChoice) error {
		if !headerSent {
			w.Header().Set("Content-Type", "text/event-stream")
			w.Header().Set("Cache-Control", "no-cache")
			headerSent = true
		}
		chunk := types.ChatCompletionChunk{
			ID:      id,
			Object:  "chat.completion.chunk",
			Created: created,
			Model:   req.Model,
			Choices: []types.ChunkChoice{choice},
		}
		b, err := json.Marshal(chunk)
		if err != nil {
			return err
		}
		if _, err := w.Write(append(append([]byte("data: "), b...), '\n', '\n')); err != nil {
			return err
		}
		if flusher != nil {
			flusher.Flush()
		}
		return nil
	}

	first := true
	_, err := svc.Complete(r.Context(), req, func(delta string) error {
		if first {
			first = false
			if err := sendChunk(types.ChunkChoice{Delta: types.ChunkDelta{Role: "assistant"}}); err != nil {
				return err
			}
		}
		return sendChunk(types.ChunkChoice{Delta: types.ChunkDelta{Content: delta}})
	})
	if err != nil {
		if headerSent {
			// Too late for an error status; cut the stream short.
			return nil
		}
		return err
	}
	if first {
		// Zero tokens generated; still open the stream properly.
		if err := sendChunk(types.ChunkChoice{Delta: types.ChunkDelta{Role: "assistant"}}); err != nil {
			return err
		}
	}
	reason := "stop"
	if err := sendChunk(types.ChunkChoice{FinishReason: &reason}); err != nil {
		return err
	}
	if _, err := w.Write([]byte("data: [DONE]\n\n")); err != nil {
		return err
	}
	if flusher != nil {
		flusher.Flush()
	}
	return nil
}

func completionObject(model string, res runtime.Result) types.ChatCompletion {
	reason := res.FinishReason
	if reason == "" {
		reason = "stop"
	}
	return types.ChatCompletion{
		ID:      "chatcmpl-" + uuid.NewString(),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   model,
		Choices: []types.ChatCompletionChoice{{
			Index:        0,
			Message:      types.ChatMessage{Role: "assistant", Content: res.Content},
			FinishReason: reason,
		}},
		Usage: types.Usage{
			PromptTokens:     res.PromptTokens,
			CompletionTokens: res.CompletionTokens,
			TotalTokens:      res.PromptTokens + res.CompletionTokens,
		},
	}
}

// errorStatus maps service errors onto HTTP statuses: missing model is the
// client's mistake, anything out of the inference call is ours.
func errorStatus(err error) (int, string) {
	switch {
	case serving.IsModelNotFound(err):
		return http.StatusNotFound, "invalid_request_error"
	case serving.IsInferenceError(err):
		return http.StatusInternalServerError, "server_error"
	default:
		if strings.Contains(err.Error(), "http: request body too large") {
			return http.StatusBadRequest, "invalid_request_error"
		}
		return http.StatusInternalServerError, "server_error"
	}
}
