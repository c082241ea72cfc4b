package narrative

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"text/template"
)

// PromptTemplate is a system prompt plus a text/template for the user prompt.
// Operators can override the built-in one with a JSON file.
type PromptTemplate struct {
	ID             string `json:"id"`
	Version        string `json:"version"`
	SystemPrompt   string `json:"system_prompt"`
	UserPromptTmpl string `json:"user_prompt_template"`
}

// DefaultTemplate asks for a short, sourced commentary in a fixed JSON shape.
var DefaultTemplate = PromptTemplate{
	ID:      "narrative.valuation_summary",
	Version: "1",
	SystemPrompt: `You are an equity analyst writing for a retail investor.
Use only the figures you are given. Do not invent data, targets or news.
Reply with a single JSON object and nothing else:
{"headline": string, "summary": string (markdown, at most 150 words), "strengths": [string], "risks": [string]}`,
	UserPromptTmpl: `Ticker: {{.Ticker}}
Current price: {{.Price}}

Model results:
{{- range .Results}}
- {{.Model}}: {{.Value}} per share ({{.Upside}})
{{- end}}
{{- if .Skipped}}

Models not applicable:
{{- range .Skipped}}
- {{.Model}}: {{.Reason}}
{{- end}}
{{- end}}

Growth used: FCF {{.FCFGrowth}}, EPS {{.EPSGrowth}}, dividend {{.DividendGrowth}}
{{- if .Consensus}}
Consensus: mean {{.Consensus.Mean}}, median {{.Consensus.Median}}, dispersion {{.Consensus.CV}} ({{.Consensus.Confidence}} confidence)
Verdict: {{.Consensus.Verdict}} ({{.Consensus.Upside}})
{{- else}}
No model produced a usable value.
{{- end}}

Explain what drives the valuation and where the models disagree.`,
}

// LoadTemplate reads a PromptTemplate from a JSON file. Empty fields fall
// back to DefaultTemplate.
func LoadTemplate(path string) (PromptTemplate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return PromptTemplate{}, fmt.Errorf("failed to read prompt template: %w", err)
	}
	pt := DefaultTemplate
	if err := json.Unmarshal(data, &pt); err != nil {
		return PromptTemplate{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if _, err := template.New(pt.ID).Parse(pt.UserPromptTmpl); err != nil {
		return PromptTemplate{}, fmt.Errorf("invalid user prompt template in %s: %w", path, err)
	}
	return pt, nil
}

// Render executes the user prompt template against data.
func (pt PromptTemplate) Render(data interface{}) (string, error) {
	tmpl, err := template.New(pt.ID).Option("missingkey=error").Parse(pt.UserPromptTmpl)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}
	return buf.String(), nil
}
