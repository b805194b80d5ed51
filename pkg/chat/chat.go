package chat

const (
	ChatRoleUser   = "user"      // Player input
	ChatRoleAgent  = "assistant" // Model output
	ChatRoleSystem = "system"    // Game master instructions
)

// ChatMessage represents a single chat message sent to an LLM.
type ChatMessage struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

// ChatResponse is the text returned by an LLM provider.
type ChatResponse struct {
	Message string `json:"message,omitempty"`
	Model   string `json:"model,omitempty"`
}

// ResponseSchema describes a flat JSON object of string fields that a
// provider should constrain its output to, when it supports doing so.
type ResponseSchema struct {
	Name       string
	Properties []SchemaProperty
}

// SchemaProperty is a single required string field.
type SchemaProperty struct {
	Name        string
	Description string
}

// Required returns the property names in declaration order.
func (s *ResponseSchema) Required() []string {
	names := make([]string, 0, len(s.Properties))
	for _, p := range s.Properties {
		names = append(names, p.Name)
	}
	return names
}

// JSONSchema renders the schema as a JSON Schema document.
func (s *ResponseSchema) JSONSchema() map[string]interface{} {
	props := make(map[string]interface{}, len(s.Properties))
	for _, p := range s.Properties {
		props[p.Name] = map[string]interface{}{
			"type":        "string",
			"description": p.Description,
		}
	}
	return map[string]interface{}{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
		"required":             s.Required(),
	}
}

// SplitSystem combines all system messages into a single prompt and
// returns the remaining messages in order.
func SplitSystem(messages []ChatMessage) (string, []ChatMessage) {
	var system string
	rest := make([]ChatMessage, 0, len(messages))
	for _, msg := range messages {
		if msg.Role != ChatRoleSystem {
			rest = append(rest, msg)
			continue
		}
		if system != "" {
			system += "\n\n"
		}
		system += msg.Content
	}
	return system, rest
}
