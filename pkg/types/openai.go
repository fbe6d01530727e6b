package types

// ModelCreated is the fixed creation timestamp reported for every model
// entry. Real hosted APIs report upload time; this harness serves a static
// catalog, so a constant keeps responses byte-stable across runs.
const ModelCreated int64 = 1677610602

// ModelOwner is reported as owned_by for every model entry.
const ModelOwner = "fakellm"

// Model is a single entry in the GET /v1/models response.
type Model struct {
	// Stable identifier: a configured model name or alias.
	// example: gemma-3-270m
	ID string `json:"id" example:"gemma-3-270m"`
	// Always "model".
	Object string `json:"object" example:"model"`
	// Fixed epoch constant, see ModelCreated.
	Created int64 `json:"created" example:"1677610602"`
	// Fixed owner string, see ModelOwner.
	OwnedBy string `json:"owned_by" example:"fakellm"`
}

// ModelList is the GET /v1/models response envelope.
type ModelList struct {
	Object string  `json:"object" example:"list"`
	Data   []Model `json:"data"`
}

// ChatMessage is one entry in the ordered conversation history.
type ChatMessage struct {
	// Message author role: system, user or assistant.
	// example: user
	Role string `json:"role" example:"user"`
	// Message text.
	// example: Write a haiku about the ocean.
	Content string `json:"content" example:"Write a haiku about the ocean."`
}

// ChatCompletionRequest is the POST /v1/chat/completions request body.
// Unknown fields sent by clients are ignored rather than rejected.
type ChatCompletionRequest struct {
	// Configured model identifier or alias.
	// example: gemma-3-270m
	Model string `json:"model" example:"gemma-3-270m"`
	// Ordered message list; must be non-empty.
	Messages []ChatMessage `json:"messages"`
	// If true, stream incremental chunks as server-sent events.
	// example: false
	Stream bool `json:"stream,omitempty" example:"false"`
	// Maximum number of tokens to generate. Zero or omitted uses the
	// server default.
	// example: 128
	MaxTokens int `json:"max_tokens,omitempty" example:"128"`
	// Sampling temperature. Defaults to 0, which is deterministic:
	// identical requests yield byte-identical output.
	// example: 0
	Temperature float64 `json:"temperature" example:"0"`
	// Nucleus sampling probability. Defaults to 0.95 when omitted.
	// example: 0.95
	TopP *float64 `json:"top_p,omitempty" example:"0.95"`
}

// Usage contains token accounting for a completion.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatCompletionChoice is one generated alternative (always exactly one here).
type ChatCompletionChoice struct {
	Index        int         `json:"index"`
	Message      ChatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

// ChatCompletion is the non-streaming chat completion response object.
type ChatCompletion struct {
	ID      string                 `json:"id"`
	Object  string                 `json:"object"`
	Created int64                  `json:"created"`
	Model   string                 `json:"model"`
	Choices []ChatCompletionChoice `json:"choices"`
	Usage   Usage                  `json:"usage"`
}

// ChunkDelta carries the incremental part of a streamed choice.
type ChunkDelta struct {
	Role    string `json:"role,omitempty"`
	Content string `json:"content,omitempty"`
}

// ChunkChoice is one choice inside a streamed chunk. FinishReason is null
// until the final chunk.
type ChunkChoice struct {
	Index        int        `json:"index"`
	Delta        ChunkDelta `json:"delta"`
	FinishReason *string    `json:"finish_reason"`
}

// ChatCompletionChunk is one server-sent event in a streamed response.
type ChatCompletionChunk struct {
	ID      string        `json:"id"`
	Object  string        `json:"object"`
	Created int64         `json:"created"`
	Model   string        `json:"model"`
	Choices []ChunkChoice `json:"choices"`
}

// ErrorDetail is the inner error object of the OpenAI error envelope.
type ErrorDetail struct {
	// Human-readable message.
	// example: model 'nope' not found
	Message string `json:"message" example:"model 'nope' not found"`
	// Coarse error category.
	// example: invalid_request_error
	Type string `json:"type" example:"invalid_request_error"`
	Code string `json:"code,omitempty"`
}

// ErrorResponse is the OpenAI-style error envelope so standard clients can
// surface failures without custom parsing.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}
