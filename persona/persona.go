// Package persona builds the identity the agent speaks as: a person's name
// plus their background summary and profile text, rendered into the system
// prompt that keeps the agent in character.
package persona

import (
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/persona/pkg/llms"
	"github.com/effective-security/persona/pkg/prompts"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/persona", "persona")

const (
	// SummaryPlaceholder is used when the summary source is missing or empty.
	SummaryPlaceholder = "No summary available."
	// ProfilePlaceholder is used when the profile source is missing or empty.
	ProfilePlaceholder = "No profile data available."
)

// DefaultTemplate is the jinja2 template for the system prompt.
const DefaultTemplate = `You are acting as {{ name }}. You are answering questions on {{ name }}'s website, particularly questions related to {{ name }}'s career, background, skills and experience. Your responsibility is to represent {{ name }} for interactions on the website as faithfully as possible. You are given a summary of {{ name }}'s background and profile which you can use to answer questions. Be professional and engaging, as if talking to a potential client or future employer who came across the website. If you don't know the answer to any question, use your record_unknown_question tool to record the question that you couldn't answer, even if it's about something trivial or unrelated to career. If the user is engaging in discussion, try to steer them towards getting in touch via email; ask for their email and record it using your record_user_details tool.

## Summary:
{{ summary }}

## Profile:
{{ profile }}

With this context, please chat with the user, always staying in character as {{ name }}.`

// Config describes where the persona sources come from.
type Config struct {
	// Name is the represented person's name.
	Name string `json:"name" yaml:"name"`
	// SummaryFile is the path to the plain-text background summary.
	SummaryFile string `json:"summary_file,omitempty" yaml:"summary_file,omitempty"`
	// ProfileFile is the path to the plain-text profile export.
	ProfileFile string `json:"profile_file,omitempty" yaml:"profile_file,omitempty"`
	// Template overrides the default system prompt template, in jinja2 format.
	Template string `json:"template,omitempty" yaml:"template,omitempty"`
}

// Context is the immutable persona identity. It renders the system prompt
// once at load time and is safe for concurrent use.
type Context struct {
	name     string
	summary  string
	profile  string
	tmpl     prompts.PromptTemplate
	rendered string
}

var _ prompts.FormatPrompter = (*Context)(nil)

// Load reads the persona sources and renders the system prompt.
// A missing or unreadable source file degrades to a placeholder, never an
// error; a broken template fails the load.
func Load(cfg *Config) (*Context, error) {
	if cfg == nil || cfg.Name == "" {
		return nil, errors.New("persona name must be configured")
	}

	summary := readText(cfg.SummaryFile, SummaryPlaceholder)
	profile := readText(cfg.ProfileFile, ProfilePlaceholder)

	tmpl := prompts.PromptTemplate{
		Template:       values.StringsCoalesce(cfg.Template, DefaultTemplate),
		InputVariables: []string{"name", "summary", "profile"},
		TemplateFormat: prompts.TemplateFormatJinja2,
		PartialVariables: map[string]any{
			"name":    cfg.Name,
			"summary": summary,
			"profile": profile,
		},
	}

	rendered, err := tmpl.Format(map[string]any{})
	if err != nil {
		return nil, errors.WithMessage(err, "failed to render persona template")
	}

	return &Context{
		name:     cfg.Name,
		summary:  summary,
		profile:  profile,
		tmpl:     tmpl,
		rendered: rendered,
	}, nil
}

// Name returns the represented person's name.
func (c *Context) Name() string {
	return c.name
}

// Summary returns the background summary text.
func (c *Context) Summary() string {
	return c.summary
}

// Profile returns the profile text.
func (c *Context) Profile() string {
	return c.profile
}

// SystemPrompt returns the prompt rendered at load time.
func (c *Context) SystemPrompt() string {
	return c.rendered
}

// FormatPrompt renders the system prompt. Extra values are merged over the
// persona values, so callers can inject additional prompt inputs.
func (c *Context) FormatPrompt(values map[string]any) (llms.PromptValue, error) {
	if len(values) == 0 {
		return prompts.StringPromptValue(c.rendered), nil
	}
	return c.tmpl.FormatPrompt(values)
}

// GetInputVariables returns the template variables.
func (c *Context) GetInputVariables() []string {
	return c.tmpl.GetInputVariables()
}

func readText(path, placeholder string) string {
	if path == "" {
		return placeholder
	}
	bs, err := os.ReadFile(path)
	if err != nil {
		logger.KV(xlog.WARNING,
			"status", "persona_source_unavailable",
			"file", path,
			"err", err.Error(),
		)
		return placeholder
	}
	text := strings.TrimSpace(string(bs))
	if text == "" {
		return placeholder
	}
	return text
}
