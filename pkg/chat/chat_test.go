package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitSystem(t *testing.T) {
	tests := []struct {
		name           string
		messages       []ChatMessage
		expectedSystem string
		expectedRest   int
	}{
		{
			name: "single system message",
			messages: []ChatMessage{
				{Role: ChatRoleSystem, Content: "You are a game master."},
				{Role: ChatRoleUser, Content: "A crypt"},
			},
			expectedSystem: "You are a game master.",
			expectedRest:   1,
		},
		{
			name: "multiple system messages",
			messages: []ChatMessage{
				{Role: ChatRoleSystem, Content: "You are a game master."},
				{Role: ChatRoleUser, Content: "A crypt"},
				{Role: ChatRoleSystem, Content: "Respond in JSON."},
			},
			expectedSystem: "You are a game master.\n\nRespond in JSON.",
			expectedRest:   1,
		},
		{
			name:           "no system messages",
			messages:       []ChatMessage{{Role: ChatRoleUser, Content: "A crypt"}},
			expectedSystem: "",
			expectedRest:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			system, rest := SplitSystem(tt.messages)
			assert.Equal(t, tt.expectedSystem, system)
			assert.Len(t, rest, tt.expectedRest)
			for _, msg := range rest {
				assert.NotEqual(t, ChatRoleSystem, msg.Role)
			}
		})
	}
}

func TestResponseSchema_JSONSchema(t *testing.T) {
	s := &ResponseSchema{
		Name: "objective",
		Properties: []SchemaProperty{
			{Name: "objective", Description: "The quest"},
			{Name: "reward", Description: "The reward"},
		},
	}

	doc := s.JSONSchema()
	assert.Equal(t, "object", doc["type"])
	assert.Equal(t, []string{"objective", "reward"}, doc["required"])

	props, ok := doc["properties"].(map[string]interface{})
	if assert.True(t, ok) {
		assert.Contains(t, props, "objective")
		assert.Contains(t, props, "reward")
	}
}
