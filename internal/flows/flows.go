// Package flows wraps the two generation prompts around an LLM call.
package flows

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jwebster45206/nightmare-engine/internal/services"
	"github.com/jwebster45206/nightmare-engine/pkg/chat"
	"github.com/jwebster45206/nightmare-engine/pkg/prompts"
	"github.com/jwebster45206/nightmare-engine/pkg/session"
	"github.com/jwebster45206/nightmare-engine/pkg/textfilter"
)

const (
	EnvironmentTemperature = 0.9
	ObjectiveTemperature   = 0.8
)

var (
	ErrEmptyResponse    = errors.New("model returned no text")
	ErrIncompleteOutput = errors.New("model output is missing required fields")
)

var environmentSchema = &chat.ResponseSchema{
	Name: "environment",
	Properties: []chat.SchemaProperty{
		{Name: "description", Description: "A detailed description of the spooky environment."},
	},
}

var objectiveSchema = &chat.ResponseSchema{
	Name: "objective",
	Properties: []chat.SchemaProperty{
		{Name: "objective", Description: "The quest or challenge for the player."},
		{Name: "reward", Description: "The reward for completing the objective."},
	},
}

// EnvironmentInput is the player's description of their nightmare.
type EnvironmentInput struct {
	Prompt string
}

// EnvironmentOutput is the generated setting.
type EnvironmentOutput struct {
	Description string `json:"description"`
}

// ObjectiveInput conditions an objective on the current environment.
type ObjectiveInput struct {
	Environment string
	Difficulty  session.Difficulty
}

// Option configures a flow.
type Option func(*base)

// WithFilter passes generated text through f before it is returned.
func WithFilter(f *textfilter.Filter) Option {
	return func(b *base) { b.filter = f }
}

// WithPrompts overrides the embedded prompt pack.
func WithPrompts(p *prompts.Pack) Option {
	return func(b *base) { b.prompts = p }
}

type base struct {
	llm     services.LLMService
	prompts *prompts.Pack
	filter  *textfilter.Filter
	logger  *slog.Logger
}

func newBase(llm services.LLMService, logger *slog.Logger, opts []Option) base {
	b := base{llm: llm, logger: logger}
	for _, opt := range opts {
		opt(&b)
	}
	if b.prompts == nil {
		b.prompts = prompts.Default()
	}
	return b
}

func (b *base) generate(ctx context.Context, name string, data any, schema *chat.ResponseSchema, temperature float64) (string, error) {
	messages, err := b.prompts.Render(name, data)
	if err != nil {
		return "", err
	}

	resp, err := b.llm.Generate(ctx, services.GenerateRequest{
		Messages:    messages,
		Schema:      schema,
		Temperature: temperature,
	})
	if err != nil {
		return "", fmt.Errorf("%s generation failed: %w", name, err)
	}

	text := strings.TrimSpace(resp.Message)
	if text == "" {
		return "", ErrEmptyResponse
	}
	b.logger.Debug("Generation complete", "flow", name, "provider", b.llm.Name(), "length", len(text))
	return text, nil
}

func (b *base) clean(s string) string {
	s = strings.TrimSpace(s)
	if b.filter != nil {
		s = b.filter.Apply(s)
	}
	return s
}

// EnvironmentFlow turns a prompt into a spooky setting.
type EnvironmentFlow struct {
	base
}

func NewEnvironmentFlow(llm services.LLMService, logger *slog.Logger, opts ...Option) *EnvironmentFlow {
	return &EnvironmentFlow{base: newBase(llm, logger, opts)}
}

// Generate asks for a description. Output that is not a JSON object is
// taken verbatim as the description.
func (f *EnvironmentFlow) Generate(ctx context.Context, in EnvironmentInput) (EnvironmentOutput, error) {
	text, err := f.generate(ctx, prompts.Environment, prompts.EnvironmentData{Prompt: in.Prompt}, environmentSchema, EnvironmentTemperature)
	if err != nil {
		return EnvironmentOutput{}, err
	}

	var out EnvironmentOutput
	if body, ok := extractJSON(text); ok && json.Unmarshal([]byte(body), &out) == nil {
		out.Description = f.clean(out.Description)
	} else {
		out.Description = f.clean(stripFences(text))
	}
	if out.Description == "" {
		return EnvironmentOutput{}, ErrEmptyResponse
	}
	return out, nil
}

// ObjectiveFlow devises a quest and reward for an environment.
type ObjectiveFlow struct {
	base
}

func NewObjectiveFlow(llm services.LLMService, logger *slog.Logger, opts ...Option) *ObjectiveFlow {
	return &ObjectiveFlow{base: newBase(llm, logger, opts)}
}

func (f *ObjectiveFlow) Generate(ctx context.Context, in ObjectiveInput) (session.Objective, error) {
	data := prompts.ObjectiveData{Environment: in.Environment, Difficulty: string(in.Difficulty)}
	text, err := f.generate(ctx, prompts.Objective, data, objectiveSchema, ObjectiveTemperature)
	if err != nil {
		return session.Objective{}, err
	}

	body, ok := extractJSON(text)
	if !ok {
		return session.Objective{}, fmt.Errorf("objective output is not JSON: %w", ErrIncompleteOutput)
	}
	var out session.Objective
	if err := json.Unmarshal([]byte(body), &out); err != nil {
		return session.Objective{}, fmt.Errorf("failed to decode objective: %w", err)
	}
	out.Objective = f.clean(out.Objective)
	out.Reward = f.clean(out.Reward)
	if out.Objective == "" || out.Reward == "" {
		return session.Objective{}, ErrIncompleteOutput
	}
	return out, nil
}

// stripFences removes a surrounding markdown code block.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if i := strings.Index(s, "\n"); i >= 0 {
		s = s[i+1:]
	} else {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// extractJSON finds the outermost JSON object in s, ignoring fences and
// any narration around it.
func extractJSON(s string) (string, bool) {
	s = stripFences(s)
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", false
	}
	body := s[start : end+1]
	if !json.Valid([]byte(body)) {
		return "", false
	}
	return body, true
}
