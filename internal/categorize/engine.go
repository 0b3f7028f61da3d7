// Package categorize assigns a category and subcategory to a transaction.
//
// The rule Engine is pure and total: it always answers, and identical input
// always yields the identical Suggestion. Any other Categorizer must keep
// that contract, which ModelCategorizer does by falling back to the rules.
package categorize

import (
	"context"
	"strings"
)

// RuleConfidence is the confidence reported for every rule-based answer,
// including the fallback.
const RuleConfidence = 0.85

// Fallback category for establishments no rule recognises.
const (
	FallbackCategory    = "Services"
	FallbackSubcategory = "Other"
)

// Suggestion is a proposed classification.
type Suggestion struct {
	Category    string  `json:"category"`
	Subcategory string  `json:"subcategory"`
	Confidence  float64 `json:"confidence"`
}

// Categorizer proposes a classification. Implementations never fail.
type Categorizer interface {
	Suggest(ctx context.Context, establishment, description string) Suggestion
}

// rule matches when the lower-cased establishment contains any keyword.
// subcategory picks the subcategory from the matched text.
type rule struct {
	keywords    []string
	category    string
	subcategory func(establishment string) string
}

func fixed(sub string) func(string) string {
	return func(string) string { return sub }
}

func containing(keyword, yes, no string) func(string) string {
	return func(establishment string) string {
		if strings.Contains(establishment, keyword) {
			return yes
		}
		return no
	}
}

// Rules are evaluated in order and the first match wins.
var rules = []rule{
	{
		keywords:    []string{"netflix", "spotify", "hulu", "disney", "prime"},
		category:    "Entertainment",
		subcategory: fixed("Streaming"),
	},
	{
		keywords:    []string{"starbucks", "mcdonalds", "restaurant", "cafe"},
		category:    "Food",
		subcategory: fixed("Restaurants"),
	},
	{
		keywords:    []string{"gas", "shell", "exxon", "uber", "lyft"},
		category:    "Transportation",
		subcategory: containing("gas", "Gas", "Taxi/Uber"),
	},
	{
		keywords:    []string{"amazon", "walmart", "target", "mall"},
		category:    "Shopping",
		subcategory: containing("amazon", "Online Shopping", "General"),
	},
}

// Engine is the keyword rule classifier.
type Engine struct{}

// NewEngine returns the rule classifier.
func NewEngine() *Engine {
	return &Engine{}
}

// Categorize classifies a transaction from its establishment name. The
// description is accepted for interface parity with model-backed classifiers
// and does not influence the rules.
func (e *Engine) Categorize(establishment, description string) Suggestion {
	est := strings.ToLower(establishment)
	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(est, kw) {
				return Suggestion{
					Category:    r.category,
					Subcategory: r.subcategory(est),
					Confidence:  RuleConfidence,
				}
			}
		}
	}
	return Suggestion{
		Category:    FallbackCategory,
		Subcategory: FallbackSubcategory,
		Confidence:  RuleConfidence,
	}
}

// Suggest implements Categorizer.
func (e *Engine) Suggest(_ context.Context, establishment, description string) Suggestion {
	return e.Categorize(establishment, description)
}
