package categorize

import (
	"fmt"
	"strings"
)

// Category is one top-level category and its subcategories.
type Category struct {
	Name          string   `json:"name"`
	Subcategories []string `json:"subcategories"`
}

// DefaultCategories is the built-in taxonomy. It also carries the
// subcategories the rule engine can emit (Shopping/General, Services/Other).
var DefaultCategories = []Category{
	{Name: "Food", Subcategories: []string{"Restaurants", "Groceries", "Fast Food", "Coffee/Tea", "Delivery", "Alcohol", "Snacks"}},
	{Name: "Transportation", Subcategories: []string{"Gas", "Public Transport", "Taxi/Uber", "Parking", "Car Maintenance", "Tolls", "Flights", "Car Rental"}},
	{Name: "Entertainment", Subcategories: []string{"Movies", "Streaming", "Games", "Books", "Music", "Sports Events", "Concerts", "Hobbies"}},
	{Name: "Services", Subcategories: []string{"Utilities", "Internet", "Phone", "Insurance", "Bank Fees", "Subscriptions", "Professional Services", "Other"}},
	{Name: "Shopping", Subcategories: []string{"Clothing", "Electronics", "Home Items", "Gifts", "Personal Care", "Accessories", "Online Shopping", "General"}},
	{Name: "Health", Subcategories: []string{"Medical", "Pharmacy", "Dental", "Vision", "Fitness", "Mental Health", "Supplements"}},
	{Name: "Education", Subcategories: []string{"Tuition", "Books", "Courses", "Training", "Certifications", "Online Learning"}},
	{Name: "Housing", Subcategories: []string{"Rent", "Mortgage", "Home Improvement", "Furniture", "Appliances", "Cleaning", "Gardening"}},
	{Name: "Income", Subcategories: []string{"Salary", "Freelance", "Investment", "Bonus", "Rental", "Business", "Other Income"}},
}

// Taxonomy validates category/subcategory pairs. Comparison ignores case
// and surrounding whitespace.
type Taxonomy struct {
	categories    []Category
	subcategories map[string]map[string]bool
}

// NewTaxonomy builds a lookup over the given categories.
func NewTaxonomy(categories []Category) *Taxonomy {
	t := &Taxonomy{
		categories:    categories,
		subcategories: make(map[string]map[string]bool, len(categories)),
	}
	for _, c := range categories {
		subs := make(map[string]bool, len(c.Subcategories))
		for _, s := range c.Subcategories {
			subs[normalize(s)] = true
		}
		t.subcategories[normalize(c.Name)] = subs
	}
	return t
}

// DefaultTaxonomy returns the taxonomy over DefaultCategories.
func DefaultTaxonomy() *Taxonomy {
	return NewTaxonomy(DefaultCategories)
}

// Categories returns the taxonomy in declaration order.
func (t *Taxonomy) Categories() []Category {
	out := make([]Category, len(t.categories))
	copy(out, t.categories)
	return out
}

// Validate returns nil when category exists and subcategory is empty or
// belongs to it.
func (t *Taxonomy) Validate(category, subcategory string) error {
	subs, ok := t.subcategories[normalize(category)]
	if !ok {
		return fmt.Errorf("invalid category: %q", category)
	}
	if strings.TrimSpace(subcategory) == "" {
		return nil
	}
	if !subs[normalize(subcategory)] {
		return fmt.Errorf("invalid subcategory %q for category %q", subcategory, category)
	}
	return nil
}

// Canonical returns the declared spelling of a valid pair.
func (t *Taxonomy) Canonical(category, subcategory string) (string, string, bool) {
	if t.Validate(category, subcategory) != nil {
		return "", "", false
	}
	for _, c := range t.categories {
		if normalize(c.Name) != normalize(category) {
			continue
		}
		for _, s := range c.Subcategories {
			if normalize(s) == normalize(subcategory) {
				return c.Name, s, true
			}
		}
		return c.Name, "", true
	}
	return "", "", false
}

// Prompt renders the taxonomy for a language model.
func (t *Taxonomy) Prompt() string {
	var b strings.Builder
	b.WriteString("Use ONLY the following Categories and Subcategories:\n\n")
	for _, c := range t.categories {
		b.WriteString(c.Name + ":\n")
		for _, s := range c.Subcategories {
			b.WriteString("  - " + s + "\n")
		}
		b.WriteString("\n")
	}
	return b.String()
}

func normalize(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}
