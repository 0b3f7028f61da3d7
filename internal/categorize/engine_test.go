package categorize

import (
	"context"
	"testing"
)

func TestEngine_Categorize(t *testing.T) {
	tests := []struct {
		name          string
		establishment string
		description   string
		want          Suggestion
	}{
		{
			name:          "streaming",
			establishment: "Netflix",
			description:   "streaming",
			want:          Suggestion{Category: "Entertainment", Subcategory: "Streaming", Confidence: 0.85},
		},
		{
			name:          "dining",
			establishment: "Starbucks Reserve",
			want:          Suggestion{Category: "Food", Subcategory: "Restaurants", Confidence: 0.85},
		},
		{
			name:          "gas station",
			establishment: "Shell Gas Station",
			description:   "fuel",
			want:          Suggestion{Category: "Transportation", Subcategory: "Gas", Confidence: 0.85},
		},
		{
			name:          "rideshare",
			establishment: "Uber",
			want:          Suggestion{Category: "Transportation", Subcategory: "Taxi/Uber", Confidence: 0.85},
		},
		{
			name:          "shell without gas keyword",
			establishment: "Shell",
			want:          Suggestion{Category: "Transportation", Subcategory: "Taxi/Uber", Confidence: 0.85},
		},
		{
			name:          "amazon",
			establishment: "AMAZON MKTPLACE",
			want:          Suggestion{Category: "Shopping", Subcategory: "Online Shopping", Confidence: 0.85},
		},
		{
			name:          "walmart",
			establishment: "Walmart Supercenter",
			want:          Suggestion{Category: "Shopping", Subcategory: "General", Confidence: 0.85},
		},
		{
			name:          "streaming wins over retail",
			establishment: "Amazon Prime",
			want:          Suggestion{Category: "Entertainment", Subcategory: "Streaming", Confidence: 0.85},
		},
		{
			name:          "unknown",
			establishment: "Unknown Store",
			description:   "purchase",
			want:          Suggestion{Category: "Services", Subcategory: "Other", Confidence: 0.85},
		},
		{
			name: "empty input",
			want: Suggestion{Category: "Services", Subcategory: "Other", Confidence: 0.85},
		},
		{
			name:          "description does not drive rules",
			establishment: "Corner Shop",
			description:   "netflix gift card",
			want:          Suggestion{Category: "Services", Subcategory: "Other", Confidence: 0.85},
		},
	}

	e := NewEngine()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.Categorize(tt.establishment, tt.description)
			if got != tt.want {
				t.Errorf("Categorize(%q, %q) = %+v, want %+v", tt.establishment, tt.description, got, tt.want)
			}
		})
	}
}

func TestEngine_Idempotent(t *testing.T) {
	e := NewEngine()
	first := e.Categorize("Netflix", "streaming")
	for i := 0; i < 10; i++ {
		if got := e.Suggest(context.Background(), "Netflix", "streaming"); got != first {
			t.Fatalf("call %d = %+v, want %+v", i, got, first)
		}
	}
}

func TestEngine_AnswersStayInTaxonomy(t *testing.T) {
	tax := DefaultTaxonomy()
	e := NewEngine()
	for _, est := range []string{"Netflix", "Cafe Luna", "Exxon", "Lyft", "Amazon", "Target", "Nowhere"} {
		s := e.Categorize(est, "")
		if err := tax.Validate(s.Category, s.Subcategory); err != nil {
			t.Errorf("Categorize(%q) = %+v outside taxonomy: %v", est, s, err)
		}
	}
}
