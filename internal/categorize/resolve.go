package categorize

import (
	"context"
	"strings"

	"github.com/dvloznov/finassist/internal/record"
)

// ResolvePending fills Pending (or absent required) category and subcategory
// fields of r from c. An inferred category also brings an absent subcategory. The establishment and notes fields feed the
// categorizer. It reports whether any field was filled.
//
// When category is already concrete and disagrees with the suggestion, a
// pending subcategory is set to null rather than a subcategory of another
// category.
func ResolvePending(ctx context.Context, c Categorizer, r *record.Record) (Suggestion, bool) {
	if !r.Schema().Has("category") {
		return Suggestion{}, false
	}

	var wantCategory, wantSubcategory bool
	for _, name := range r.PendingFields() {
		switch name {
		case "category":
			wantCategory = true
		case "subcategory":
			wantSubcategory = true
		}
	}
	if !wantCategory && !wantSubcategory {
		return Suggestion{}, false
	}
	if _, ok := r.Get("subcategory"); wantCategory && !ok {
		wantSubcategory = true
	}

	establishment, _ := r.Text("establishment")
	notes, _ := r.Text("notes")
	s := c.Suggest(ctx, establishment, notes)

	if wantCategory {
		r.Set("category", record.Value(s.Category))
	}
	if wantSubcategory {
		current, _ := r.Text("category")
		if strings.EqualFold(strings.TrimSpace(current), s.Category) {
			r.Set("subcategory", record.Value(s.Subcategory))
		} else {
			r.Set("subcategory", record.Value(nil))
		}
	}
	return s, true
}
