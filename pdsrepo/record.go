// Package pdsrepo fetches records from an account's repository host (PDS)
// via the com.atproto.repo.listRecords endpoint.
//
// Fetching from the PDS directly, rather than an AppView, sees every record
// in the repository, including ones hidden by moderation.
package pdsrepo

import (
	"encoding/json"
)

// One fetched record, an immutable snapshot at fetch time.
type Record struct {
	URI string `json:"uri"`
	CID string `json:"cid"`
	// raw record payload; schema depends on the collection
	Value json.RawMessage `json:"value"`

	// engagement counters, when the source includes them; zero otherwise
	LikeCount   int `json:"likeCount,omitempty"`
	RepostCount int `json:"repostCount,omitempty"`
}

// common fields of post records; other collections simply decode to empty
type postValue struct {
	Text      string `json:"text"`
	CreatedAt string `json:"createdAt"`
}

// The post text, or empty string if the record is not a post or has none.
func (r *Record) PostText() string {
	var v postValue
	if err := json.Unmarshal(r.Value, &v); err != nil {
		return ""
	}
	return v.Text
}

// The record's declared creation timestamp, or empty string.
func (r *Record) PostCreatedAt() string {
	var v postValue
	if err := json.Unmarshal(r.Value, &v); err != nil {
		return ""
	}
	return v.CreatedAt
}
