package categorize

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"google.golang.org/genai"
)

// DefaultModelName is the Gemini model used when none is configured.
const DefaultModelName = "gemini-2.5-flash"

// contentGenerator is the part of the genai client the categorizer uses.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// ModelCategorizer asks a Gemini model for a classification and answers with
// the rule engine whenever the call fails or the model leaves the taxonomy.
type ModelCategorizer struct {
	models   contentGenerator
	model    string
	taxonomy *Taxonomy
	fallback *Engine
	log      zerolog.Logger
}

// NewModelCategorizer creates a genai client from the environment
// (GOOGLE_API_KEY or Vertex AI settings) and wraps it.
func NewModelCategorizer(ctx context.Context, model string, taxonomy *Taxonomy, log zerolog.Logger) (*ModelCategorizer, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("NewModelCategorizer: create genai client: %w", err)
	}
	return newModelCategorizer(client.Models, model, taxonomy, log), nil
}

func newModelCategorizer(models contentGenerator, model string, taxonomy *Taxonomy, log zerolog.Logger) *ModelCategorizer {
	if model == "" {
		model = DefaultModelName
	}
	if taxonomy == nil {
		taxonomy = DefaultTaxonomy()
	}
	return &ModelCategorizer{
		models:   models,
		model:    model,
		taxonomy: taxonomy,
		fallback: NewEngine(),
		log:      log,
	}
}

type modelAnswer struct {
	Category    string  `json:"category"`
	Subcategory string  `json:"subcategory"`
	Confidence  float64 `json:"confidence"`
}

// Suggest implements Categorizer.
func (m *ModelCategorizer) Suggest(ctx context.Context, establishment, description string) Suggestion {
	s, err := m.ask(ctx, establishment, description)
	if err != nil {
		m.log.Warn().Err(err).
			Str("establishment", establishment).
			Msg("model categorization failed, using rules")
		return m.fallback.Categorize(establishment, description)
	}
	return s
}

func (m *ModelCategorizer) ask(ctx context.Context, establishment, description string) (Suggestion, error) {
	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: m.prompt(establishment, description)}},
		},
	}

	resp, err := m.models.GenerateContent(ctx, m.model, contents, nil)
	if err != nil {
		return Suggestion{}, fmt.Errorf("ModelCategorizer.ask: generate content: %w", err)
	}
	raw := resp.Text()
	if raw == "" {
		return Suggestion{}, fmt.Errorf("ModelCategorizer.ask: empty response from model")
	}

	var ans modelAnswer
	if err := json.Unmarshal([]byte(cleanModelJSON(raw)), &ans); err != nil {
		return Suggestion{}, fmt.Errorf("ModelCategorizer.ask: unmarshal JSON: %w", err)
	}

	category, subcategory, ok := m.taxonomy.Canonical(ans.Category, ans.Subcategory)
	if !ok {
		return Suggestion{}, fmt.Errorf("ModelCategorizer.ask: %q/%q is outside the taxonomy", ans.Category, ans.Subcategory)
	}

	confidence := ans.Confidence
	if confidence < 0 || confidence > 1 {
		confidence = RuleConfidence
	}
	return Suggestion{Category: category, Subcategory: subcategory, Confidence: confidence}, nil
}

func (m *ModelCategorizer) prompt(establishment, description string) string {
	var b strings.Builder
	b.WriteString("You classify personal finance transactions.\n\n")
	b.WriteString("Establishment: " + establishment + "\n")
	b.WriteString("Description: " + description + "\n\n")
	b.WriteString(m.taxonomy.Prompt())
	b.WriteString("Return ONLY a JSON object with the fields \"category\", \"subcategory\" and \"confidence\" (a number between 0 and 1).\n")
	b.WriteString("Do NOT wrap the response in code fences.\n")
	return b.String()
}

// cleanModelJSON strips Markdown fences and surrounding text from a model
// answer, keeping the outermost JSON object.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		}
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end > start {
			s = s[start : end+1]
		}
	}
	return strings.TrimSpace(s)
}
