// Package analysis drives bulk label acquisition for a single account:
// resolve, paginate records, query labels in batches, and fold everything
// into categorized statistics.
package analysis

import (
	"sort"

	"github.com/at-peek/atpeek/atproto/syntax"
	"github.com/at-peek/atpeek/labeler"
	"github.com/at-peek/atpeek/pdsrepo"
)

// A record URI together with one label applied to it.
type LabeledRecord struct {
	URI   string
	Label labeler.Label
}

// All labeled records that classified into one category, in scan order.
type CategoryBucket struct {
	Category labeler.Category
	Records  []LabeledRecord
	Count    int
}

// A fetched record with every label the labeler returned for it, negations
// included.
type RecordLabels struct {
	Record pdsrepo.Record
	Labels []labeler.Label
}

type ValueCount struct {
	Val   string `json:"val"`
	Count int    `json:"count"`
}

// Outcome of one bulk run. A partial result is still internally consistent:
// every counted record was fully fetched and fully labeled, and Cursor
// resumes from the first page that was not.
type Result struct {
	DID syntax.DID

	// per-category buckets for record-level labels; always has an entry
	// for every category
	Buckets map[labeler.Category]*CategoryBucket
	// labels whose subject is the account itself, kept apart from the
	// record buckets
	AccountLabels []labeler.Label
	// labeled records with their labels attached
	Records []RecordLabels

	// records fetched and labeled
	TotalScanned int
	// distinct record URIs with at least one non-negated label
	TotalLabeled int
	// most frequent non-negated label values, descending
	TopLabelValues []ValueCount

	// continuation token for resuming; meaningful when Partial
	Cursor  string
	Partial bool
}

func newResult(did syntax.DID) *Result {
	buckets := make(map[labeler.Category]*CategoryBucket)
	for _, c := range labeler.AllCategories() {
		buckets[c] = &CategoryBucket{Category: c}
	}
	return &Result{DID: did, Buckets: buckets}
}

// most frequent values first, ties broken alphabetically
func topValues(counts map[string]int, n int) []ValueCount {
	out := make([]ValueCount, 0, len(counts))
	for val, count := range counts {
		out = append(out, ValueCount{Val: val, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Val < out[j].Val
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
