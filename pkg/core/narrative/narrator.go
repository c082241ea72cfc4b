// Package narrative turns an Evaluation into a short written commentary
// through the configured LLM agent.
package narrative

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"

	"intrinsic_valuation/pkg/core/utils"
	"intrinsic_valuation/pkg/core/valuation"
)

// AgentType is the agent name narration prompts are routed under.
const AgentType = "narrator"

var ErrEmptyReply = errors.New("narrator returned an empty reply")

// PromptExecutor is satisfied by *agent.Manager.
type PromptExecutor interface {
	ExecutePrompt(ctx context.Context, agentType string, prompt string, systemPrompt string, options map[string]interface{}) (string, error)
}

// Narrative is the parsed model reply plus its rendered forms.
type Narrative struct {
	Headline  string   `json:"headline"`
	Summary   string   `json:"summary"`
	Strengths []string `json:"strengths,omitempty"`
	Risks     []string `json:"risks,omitempty"`
	Markdown  string   `json:"markdown"`
	HTML      string   `json:"html"`
}

type Narrator struct {
	exec     PromptExecutor
	template PromptTemplate
	logger   arbor.ILogger
}

func NewNarrator(exec PromptExecutor, tmpl PromptTemplate, logger arbor.ILogger) *Narrator {
	if logger == nil {
		logger = arbor.NewNoOpLogger()
	}
	return &Narrator{exec: exec, template: tmpl, logger: logger}
}

// Narrate asks the narrator agent to comment on eval. currency selects the
// money format of the figures in the prompt.
func (n *Narrator) Narrate(ctx context.Context, eval *valuation.Evaluation, currency string) (*Narrative, error) {
	if eval == nil {
		return nil, fmt.Errorf("nothing to narrate")
	}
	prompt, err := n.template.Render(promptData(eval, currency))
	if err != nil {
		return nil, err
	}

	n.logger.Debug().Str("ticker", eval.Ticker).Int("prompt_len", len(prompt)).Msg("Requesting narrative")
	raw, err := n.exec.ExecutePrompt(ctx, AgentType, prompt, n.template.SystemPrompt,
		map[string]interface{}{"response_format": "json"})
	if err != nil {
		return nil, fmt.Errorf("narrator request failed: %w", err)
	}
	if strings.TrimSpace(raw) == "" {
		return nil, ErrEmptyReply
	}

	var out Narrative
	if _, err := utils.SmartParse(raw, &out); err != nil || (out.Headline == "" && out.Summary == "") {
		n.logger.Warn().Str("ticker", eval.Ticker).Msg("Narrator reply was not JSON, using it as prose")
		out = Narrative{Headline: eval.Ticker, Summary: utils.CleanMarkdown(raw)}
	}

	out.Markdown = out.markdown()
	html, err := utils.RenderMarkdown(out.Markdown)
	if err != nil {
		return nil, err
	}
	out.HTML = html
	return &out, nil
}

func (n Narrative) markdown() string {
	var b strings.Builder
	if n.Headline != "" {
		fmt.Fprintf(&b, "## %s\n\n", n.Headline)
	}
	b.WriteString(strings.TrimSpace(n.Summary))
	b.WriteString("\n")
	section := func(title string, items []string) {
		if len(items) == 0 {
			return
		}
		fmt.Fprintf(&b, "\n### %s\n\n", title)
		for _, item := range items {
			fmt.Fprintf(&b, "- %s\n", item)
		}
	}
	section("Strengths", n.Strengths)
	section("Risks", n.Risks)
	return b.String()
}
