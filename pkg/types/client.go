package types

// PlaceholderAPIKey is the non-secret credential reported to clients. The
// harness performs no authentication; the value only satisfies client
// libraries that refuse to start without a key.
const PlaceholderAPIKey = "fake-key"

// ClientConfig holds the connection parameters an OpenAI-compatible client
// needs to talk to a running harness instance.
type ClientConfig struct {
	// Loopback base URL including the /v1 prefix.
	// example: http://127.0.0.1:43117/v1
	BaseURL string `json:"base_url" example:"http://127.0.0.1:43117/v1"`
	// Fixed placeholder credential, see PlaceholderAPIKey.
	// example: fake-key
	APIKey string `json:"api_key" example:"fake-key"`
}
