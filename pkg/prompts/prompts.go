// Package prompts renders the game master prompts sent to the LLM.
package prompts

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/template"

	"github.com/jwebster45206/nightmare-engine/pkg/chat"
	"gopkg.in/yaml.v3"
)

//go:embed templates.yaml
var defaultTemplates []byte

const (
	Environment = "environment"
	Objective   = "objective"
)

// EnvironmentData fills the environment template.
type EnvironmentData struct {
	Prompt string
}

// ObjectiveData fills the objective template.
type ObjectiveData struct {
	Environment string
	Difficulty  string
}

type templateSource struct {
	System string `yaml:"system"`
	User   string `yaml:"user"`
}

type compiled struct {
	system *template.Template
	user   *template.Template
}

// Pack is a parsed set of named prompt templates.
type Pack struct {
	templates map[string]compiled
}

// Default returns the embedded prompt pack.
func Default() *Pack {
	p, err := Parse(defaultTemplates)
	if err != nil {
		panic(fmt.Sprintf("embedded prompt templates are invalid: %v", err))
	}
	return p
}

// Parse reads a YAML prompt pack. Every entry needs a user template; the
// system template is optional.
func Parse(data []byte) (*Pack, error) {
	var src map[string]templateSource
	if err := yaml.Unmarshal(data, &src); err != nil {
		return nil, fmt.Errorf("failed to parse prompt templates: %w", err)
	}

	p := &Pack{templates: make(map[string]compiled, len(src))}
	for name, t := range src {
		if strings.TrimSpace(t.User) == "" {
			return nil, fmt.Errorf("prompt %q has no user template", name)
		}
		user, err := template.New(name + ".user").Option("missingkey=error").Parse(t.User)
		if err != nil {
			return nil, fmt.Errorf("failed to parse prompt %q: %w", name, err)
		}
		c := compiled{user: user}
		if strings.TrimSpace(t.System) != "" {
			c.system, err = template.New(name + ".system").Option("missingkey=error").Parse(t.System)
			if err != nil {
				return nil, fmt.Errorf("failed to parse prompt %q: %w", name, err)
			}
		}
		p.templates[name] = c
	}
	return p, nil
}

// Load reads and validates a prompt pack from a file.
func Load(path string) (*Pack, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt templates %s: %w", path, err)
	}
	p, err := Parse(data)
	if err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks that the pack defines both generation prompts and that
// each renders with sample data.
func (p *Pack) Validate() error {
	samples := map[string]any{
		Environment: EnvironmentData{Prompt: "an abandoned hospital at midnight"},
		Objective:   ObjectiveData{Environment: "Flickering lights line the ward.", Difficulty: "medium"},
	}
	for _, name := range []string{Environment, Objective} {
		if !p.Has(name) {
			return fmt.Errorf("prompt %q is not defined", name)
		}
		if _, err := p.Render(name, samples[name]); err != nil {
			return err
		}
	}
	return nil
}

// Names lists the pack's prompts in sorted order.
func (p *Pack) Names() []string {
	names := make([]string, 0, len(p.templates))
	for name := range p.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has reports whether the pack defines name.
func (p *Pack) Has(name string) bool {
	_, ok := p.templates[name]
	return ok
}

// Render builds the chat messages for the named prompt.
func (p *Pack) Render(name string, data any) ([]chat.ChatMessage, error) {
	t, ok := p.templates[name]
	if !ok {
		return nil, fmt.Errorf("unknown prompt %q", name)
	}

	messages := make([]chat.ChatMessage, 0, 2)
	if t.system != nil {
		system, err := execute(t.system, data)
		if err != nil {
			return nil, err
		}
		messages = append(messages, chat.ChatMessage{Role: chat.ChatRoleSystem, Content: system})
	}

	user, err := execute(t.user, data)
	if err != nil {
		return nil, err
	}
	messages = append(messages, chat.ChatMessage{Role: chat.ChatRoleUser, Content: user})
	return messages, nil
}

func execute(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render prompt %s: %w", t.Name(), err)
	}
	return strings.TrimSpace(buf.String()), nil
}
