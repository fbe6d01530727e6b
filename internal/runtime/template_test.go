package runtime

import (
	"strings"
	"testing"

	"fakellm/pkg/types"
)

func TestFamilyDetection(t *testing.T) {
	cases := []struct {
		path string
		want string
	}{
		{"/cache/u--g/gemma-3-270m-it-Q4_K_M.gguf", "gemma"},
		{"/cache/u--l/Llama-3.2-3B-Instruct-Q4_K_M.gguf", "llama3"},
		{"/cache/u--s/SmolLM3-3B-Q4_K_M.gguf", "chatml"},
		{"/cache/u--q/Qwen2.5-Coder-3B-Instruct-Q4_K_M.gguf", "chatml"},
		{"something-unrecognized.gguf", "chatml"},
	}
	for _, c := range cases {
		if got := FormatterFor(c.path).Family(); got != c.want {
			t.Errorf("familyFor(%s) = %q, want %q", c.path, got, c.want)
		}
	}
}

func TestChatMLFormat(t *testing.T) {
	f := FormatterFor("model.gguf")
	got := f.Format([]types.ChatMessage{
		{Role: "system", Content: "be terse"},
		{Role: "user", Content: "hi"},
	})
	if !strings.Contains(got, "<|im_start|>system\nbe terse<|im_end|>") {
		t.Errorf("missing system turn:\n%s", got)
	}
	if !strings.Contains(got, "<|im_start|>user\nhi<|im_end|>") {
		t.Errorf("missing user turn:\n%s", got)
	}
	if !strings.HasSuffix(got, "<|im_start|>assistant\n") {
		t.Errorf("prompt must end with assistant header:\n%s", got)
	}
}

func TestGemmaFormatMapsAssistantToModel(t *testing.T) {
	f := FormatterFor("gemma-3-1b-it-Q4_K_M.gguf")
	got := f.Format([]types.ChatMessage{
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "hello"},
		{Role: "user", Content: "again"},
	})
	if !strings.Contains(got, "<start_of_turn>model\nhello<end_of_turn>") {
		t.Errorf("assistant turn should render as model:\n%s", got)
	}
	if !strings.HasSuffix(got, "<start_of_turn>model\n") {
		t.Errorf("prompt must end with a model turn:\n%s", got)
	}
}

func TestLlama3Format(t *testing.T) {
	f := FormatterFor("Llama-3.2-3B-Instruct-Q4_K_M.gguf")
	got := f.Format([]types.ChatMessage{{Role: "user", Content: "hi"}})
	if !strings.HasPrefix(got, "<|begin_of_text|>") {
		t.Errorf("missing BOS:\n%s", got)
	}
	if !strings.Contains(got, "<|start_header_id|>user<|end_header_id|>\n\nhi<|eot_id|>") {
		t.Errorf("missing user turn:\n%s", got)
	}
}

func TestFormatFallsBackWithoutTemplate(t *testing.T) {
	f := &Formatter{family: "broken"}
	got := f.Format([]types.ChatMessage{{Role: "user", Content: "hi"}})
	want := neutralFormat([]types.ChatMessage{{Role: "user", Content: "hi"}})
	if got != want {
		t.Errorf("fallback mismatch:\n%q\n%q", got, want)
	}
}

func TestNeutralFormatEmptyMessages(t *testing.T) {
	got := neutralFormat(nil)
	if got != "<|im_start|>assistant\n" {
		t.Errorf("unexpected empty render: %q", got)
	}
}
