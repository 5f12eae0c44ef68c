// Package labeler provides the moderation label wire type, label category
// classification, and a client for querying labeler services.
package labeler

import (
	"fmt"

	"github.com/at-peek/atpeek/atproto/syntax"
)

// A single moderation assertion from a labeler service, in the wire shape
// returned by com.atproto.label.queryLabels.
//
// A label with Negated set cancels a prior identical (val, uri, src) triple
// logically, but it is still its own record: batches are never reconciled
// or mutated here. Aggregation decides what negation means.
type Label struct {
	Val       string  `json:"val"`
	URI       string  `json:"uri"`
	SourceDID string  `json:"src"`
	CreatedAt string  `json:"cts"`
	ExpiresAt *string `json:"exp,omitempty"`
	Negated   bool    `json:"neg,omitempty"`
	CID       *string `json:"cid,omitempty"`
	Version   *int64  `json:"ver,omitempty"`
}

// does basic checks on syntax and structure
func (l *Label) VerifySyntax() error {
	if len(l.Val) == 0 {
		return fmt.Errorf("empty label value")
	}
	if _, err := syntax.ParseDatetime(l.CreatedAt); err != nil {
		return fmt.Errorf("invalid label: %w", err)
	}
	if l.ExpiresAt != nil {
		if _, err := syntax.ParseDatetime(*l.ExpiresAt); err != nil {
			return fmt.Errorf("invalid label: %w", err)
		}
	}
	if _, err := syntax.ParseDID(l.SourceDID); err != nil {
		return fmt.Errorf("invalid label: %w", err)
	}
	if err := verifySubject(l.URI); err != nil {
		return fmt.Errorf("invalid label: %w", err)
	}
	return nil
}

// The subject of this label: the labeled account's DID, or the AT-URI of
// the labeled record.
func (l *Label) Subject() string {
	return l.URI
}

// Reports whether the label applies to a record (at:// URI subject) rather
// than to the account itself.
func (l *Label) IsRecordLabel() bool {
	_, err := syntax.ParseATURI(l.URI)
	return err == nil
}

// Classifies the label value into its category.
func (l *Label) Category() Category {
	return Classify(l.Val)
}

func verifySubject(raw string) error {
	if _, err := syntax.ParseDID(raw); err == nil {
		return nil
	}
	if _, err := syntax.ParseATURI(raw); err == nil {
		return nil
	}
	return fmt.Errorf("label subject neither a DID nor an AT-URI: %s", raw)
}

// Result of one query round against a labeler service. Label order within
// a batch is as returned by the service. An empty cursor means end of data.
type LabelBatch struct {
	Labels []Label `json:"labels"`
	Cursor string  `json:"cursor,omitempty"`
}

// The labels with negated entries filtered out. The underlying batch keeps
// negated records; this is just the view used for counting.
func (b *LabelBatch) Active() []Label {
	var out []Label
	for _, l := range b.Labels {
		if !l.Negated {
			out = append(out, l)
		}
	}
	return out
}
