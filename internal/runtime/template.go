package runtime

import (
	"path/filepath"
	"strings"
	"text/template"

	"fakellm/pkg/types"
)

// Chat prompt templates per model family. Templates are executed through
// text/template; Format falls back to the neutral ChatML rendering on any
// template failure instead of surfacing it, so a model whose template is
// broken still serves (SmolLM3 ships one that trips formatters).

const chatmlTemplate = `{{range .}}<|im_start|>{{.Role}}
{{.Content}}<|im_end|>
{{end}}<|im_start|>assistant
`

const gemmaTemplate = `{{range .}}<start_of_turn>{{if eq .Role "assistant"}}model{{else}}user{{end}}
{{.Content}}<end_of_turn>
{{end}}<start_of_turn>model
`

const llama3Template = `<|begin_of_text|>{{range .}}<|start_header_id|>{{.Role}}<|end_header_id|>

{{.Content}}<|eot_id|>{{end}}<|start_header_id|>assistant<|end_header_id|>

`

var familyTemplates = map[string]string{
	"chatml": chatmlTemplate,
	"gemma":  gemmaTemplate,
	"llama3": llama3Template,
}

// Formatter renders an ordered message list into a single model prompt.
type Formatter struct {
	family string
	tmpl   *template.Template
}

// FormatterFor picks a formatter from the artifact filename. Unknown
// families get ChatML, which every instruct model degrades to gracefully.
func FormatterFor(modelPath string) *Formatter {
	family := familyFor(modelPath)
	f := &Formatter{family: family}
	if text, ok := familyTemplates[family]; ok {
		// Parse errors leave tmpl nil; Format then uses the fallback.
		if t, err := template.New(family).Parse(text); err == nil {
			f.tmpl = t
		}
	}
	return f
}

// Family returns the detected template family.
func (f *Formatter) Family() string { return f.family }

// Format renders messages into a prompt, falling back to neutral ChatML
// formatting when the template cannot be executed.
func (f *Formatter) Format(messages []types.ChatMessage) string {
	if f.tmpl != nil {
		var b strings.Builder
		if err := f.tmpl.Execute(&b, messages); err == nil {
			return b.String()
		}
	}
	return neutralFormat(messages)
}

// neutralFormat is the guaranteed-to-work rendering: plain ChatML built by
// hand, no template machinery involved.
func neutralFormat(messages []types.ChatMessage) string {
	var b strings.Builder
	for _, m := range messages {
		b.WriteString("<|im_start|>")
		b.WriteString(m.Role)
		b.WriteString("\n")
		b.WriteString(m.Content)
		b.WriteString("<|im_end|>\n")
	}
	b.WriteString("<|im_start|>assistant\n")
	return b.String()
}

func familyFor(modelPath string) string {
	name := strings.ToLower(filepath.Base(modelPath))
	switch {
	case strings.Contains(name, "smollm"):
		// SmolLM3's own chat template is malformed; pin it to ChatML.
		return "chatml"
	case strings.Contains(name, "gemma"):
		return "gemma"
	case strings.Contains(name, "llama-3"), strings.Contains(name, "llama3"):
		return "llama3"
	default:
		return "chatml"
	}
}
