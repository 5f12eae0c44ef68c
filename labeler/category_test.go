package labeler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	testCases := []struct {
		val      string
		expected Category
	}{
		{"porn", CategoryAdult},
		{"sexual", CategoryAdult},
		{"nudity", CategoryAdult},
		{"graphic-media", CategoryViolence},
		{"gore", CategoryViolence},
		{"spam", CategorySpam},
		{"hate", CategoryHate},
		{"!hide", CategoryModeration},
		{"!warn", CategoryModeration},
		{"!takedown", CategoryModeration},
		{"!no-unauthenticated", CategoryModeration},
		{"!some-custom-action", CategoryModeration},
		{"", CategoryOther},
		{"custom-label", CategoryOther},
		{"Porn", CategoryOther},       // matching is case-sensitive
		{"spammy", CategoryOther},     // exact match only
		{"porn-extra", CategoryOther}, // exact match only
	}

	for _, tc := range testCases {
		t.Run(tc.val, func(t *testing.T) {
			assert.Equal(t, tc.expected, Classify(tc.val))
		})
	}
}

func TestClassifyTotality(t *testing.T) {
	assert := assert.New(t)

	// every value, including nonsense, lands in exactly one known category
	known := make(map[Category]bool)
	for _, c := range AllCategories() {
		known[c] = true
	}
	inputs := []string{"porn", "!x", "", "zzz", "SPAM", "label with spaces", "🏷️"}
	for _, val := range inputs {
		assert.True(known[Classify(val)], val)
	}
}

func TestCategoryString(t *testing.T) {
	assert := assert.New(t)
	seen := make(map[string]bool)
	for _, c := range AllCategories() {
		name := c.String()
		assert.NotEqual("unknown", name)
		assert.False(seen[name], "duplicate category name: %s", name)
		seen[name] = true
	}
}
