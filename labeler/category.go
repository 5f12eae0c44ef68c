package labeler

import "strings"

// Closed set of label categories used for aggregation. Every label value
// classifies into exactly one category; CategoryOther is the catch-all.
type Category int

const (
	CategoryOther Category = iota
	CategoryAdult
	CategoryViolence
	CategorySpam
	CategoryHate
	CategoryModeration
)

func (c Category) String() string {
	switch c {
	case CategoryAdult:
		return "adult-content"
	case CategoryViolence:
		return "violence"
	case CategorySpam:
		return "spam"
	case CategoryHate:
		return "hate"
	case CategoryModeration:
		return "moderation-action"
	default:
		return "other"
	}
}

// All categories, in display order.
func AllCategories() []Category {
	return []Category{
		CategoryAdult,
		CategoryViolence,
		CategorySpam,
		CategoryHate,
		CategoryModeration,
		CategoryOther,
	}
}

type categoryPattern struct {
	value    string
	isPrefix bool
	category Category
}

// Data-driven classification table. Matching is case-sensitive; exact
// matches are checked before prefixes.
var categoryTable = []categoryPattern{
	{value: "porn", category: CategoryAdult},
	{value: "sexual", category: CategoryAdult},
	{value: "nudity", category: CategoryAdult},
	{value: "graphic-media", category: CategoryViolence},
	{value: "gore", category: CategoryViolence},
	{value: "spam", category: CategorySpam},
	{value: "hate", category: CategoryHate},
	// moderation actions applied by admins use a '!' prefix, eg !hide,
	// !warn, !takedown
	{value: "!", isPrefix: true, category: CategoryModeration},
}

// Pure classification of a raw label value. Total: every input maps to
// exactly one category, with CategoryOther as the fallback.
func Classify(val string) Category {
	for _, p := range categoryTable {
		if p.isPrefix {
			if strings.HasPrefix(val, p.value) {
				return p.category
			}
		} else if val == p.value {
			return p.category
		}
	}
	return CategoryOther
}
