package services

import (
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/jwebster45206/nightmare-engine/pkg/chat"
)

func TestGeminiSchema(t *testing.T) {
	s := geminiSchema(&chat.ResponseSchema{
		Name: "objective",
		Properties: []chat.SchemaProperty{
			{Name: "objective", Description: "the quest"},
			{Name: "reward", Description: "the item"},
		},
	})

	if s.Type != genai.TypeObject {
		t.Errorf("Expected object schema, got %v", s.Type)
	}
	if len(s.Properties) != 2 {
		t.Fatalf("Expected 2 properties, got %d", len(s.Properties))
	}
	if s.Properties["reward"].Type != genai.TypeString {
		t.Errorf("Expected string property, got %v", s.Properties["reward"].Type)
	}
	if len(s.Required) != 2 || s.Required[0] != "objective" {
		t.Errorf("Unexpected required list %v", s.Required)
	}
}

func TestResponseText(t *testing.T) {
	tests := []struct {
		name    string
		resp    *genai.GenerateContentResponse
		want    string
		wantErr bool
	}{
		{name: "nil response", resp: nil, wantErr: true},
		{name: "no candidates", resp: &genai.GenerateContentResponse{}, wantErr: true},
		{
			name:    "no parts",
			resp:    &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{Content: &genai.Content{}}}},
			wantErr: true,
		},
		{
			name: "text parts",
			resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
				Content: &genai.Content{Parts: []genai.Part{genai.Text(`{"description":`), genai.Text(`"Ash."}`)}},
			}}},
			want: `{"description":"Ash."}`,
		},
		{
			name: "non-text parts only",
			resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
				Content: &genai.Content{Parts: []genai.Part{genai.Blob{MIMEType: "image/png"}}},
			}}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := responseText(tt.resp)
			if tt.wantErr {
				if err == nil {
					t.Error("Expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}
