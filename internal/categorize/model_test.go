package categorize

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"google.golang.org/genai"
)

type mockGenerator struct {
	GenerateContentFunc func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

func (m *mockGenerator) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	return m.GenerateContentFunc(ctx, model, contents, config)
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Role: "model", Parts: []*genai.Part{{Text: text}}}},
		},
	}
}

func TestModelCategorizer_Suggest(t *testing.T) {
	tests := []struct {
		name     string
		response string
		err      error
		want     Suggestion
	}{
		{
			name:     "answer inside taxonomy",
			response: `{"category":"health","subcategory":"pharmacy","confidence":0.97}`,
			want:     Suggestion{Category: "Health", Subcategory: "Pharmacy", Confidence: 0.97},
		},
		{
			name:     "fenced answer",
			response: "```json\n{\"category\":\"Food\",\"subcategory\":\"Groceries\",\"confidence\":0.9}\n```",
			want:     Suggestion{Category: "Food", Subcategory: "Groceries", Confidence: 0.9},
		},
		{
			name:     "confidence out of range",
			response: `{"category":"Food","subcategory":"Groceries","confidence":7}`,
			want:     Suggestion{Category: "Food", Subcategory: "Groceries", Confidence: RuleConfidence},
		},
		{
			name:     "answer outside taxonomy falls back",
			response: `{"category":"Crypto","subcategory":"Bitcoin","confidence":0.99}`,
			want:     Suggestion{Category: "Entertainment", Subcategory: "Streaming", Confidence: RuleConfidence},
		},
		{
			name:     "malformed answer falls back",
			response: `category: Food`,
			want:     Suggestion{Category: "Entertainment", Subcategory: "Streaming", Confidence: RuleConfidence},
		},
		{
			name: "model error falls back",
			err:  errors.New("quota exceeded"),
			want: Suggestion{Category: "Entertainment", Subcategory: "Streaming", Confidence: RuleConfidence},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &mockGenerator{
				GenerateContentFunc: func(_ context.Context, model string, contents []*genai.Content, _ *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
					if model != DefaultModelName {
						t.Errorf("model = %q, want %q", model, DefaultModelName)
					}
					if !strings.Contains(contents[0].Parts[0].Text, "Establishment: Netflix") {
						t.Errorf("prompt does not mention the establishment")
					}
					if tt.err != nil {
						return nil, tt.err
					}
					return textResponse(tt.response), nil
				},
			}
			c := newModelCategorizer(gen, "", nil, zerolog.New(io.Discard))

			got := c.Suggest(context.Background(), "Netflix", "monthly plan")
			if got != tt.want {
				t.Errorf("Suggest() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestCleanModelJSON(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{`{"a":1}`, `{"a":1}`},
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"Sure! {\"a\":1} hope this helps", `{"a":1}`},
	}
	for _, tt := range tests {
		if got := cleanModelJSON(tt.input); got != tt.want {
			t.Errorf("cleanModelJSON(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
