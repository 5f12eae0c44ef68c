package pdsrepo

import (
	"context"
	"errors"

	"github.com/at-peek/atpeek/atproto/syntax"
	"github.com/at-peek/atpeek/xrpc"
)

// Page size requested from the listRecords endpoint; most hosts cap at 100.
const DefaultPageSize = 100

// The paginator has already yielded everything it will yield.
var ErrExhausted = errors.New("record paginator exhausted")

// One page of records, in the order the service returned them.
type Page struct {
	Records []Record
	// resume token after this page, matching Paginator.Cursor; empty when
	// the collection is exhausted
	Cursor string
}

type listRecordsOutput struct {
	Records []Record `json:"records"`
	Cursor  string   `json:"cursor"`
}

// Cursor-driven iterator over one account's records: a lazy, ordered,
// finite, non-restartable sequence, capped at a fixed total.
//
// Pagination is strictly sequential; the cursor for page k+1 is only known
// after page k completes. Callers pull pages one at a time, which keeps
// cancellation and backpressure in their hands.
type Paginator struct {
	// transport against the account's PDS host
	XRPC *xrpc.Client
	// repository to list
	Repo syntax.DID
	// collection to fetch, eg "app.bsky.feed.post"
	Collection syntax.NSID
	// per-page fetch size; defaults to DefaultPageSize, clamped to it
	PageSize int

	remaining int
	cursor    string
	fetched   int
	done      bool
}

// Cap is the hard limit on total records yielded across all pages; the
// final page is truncated to respect it exactly.
func NewPaginator(client *xrpc.Client, repo syntax.DID, collection syntax.NSID, cap int) *Paginator {
	return &Paginator{
		XRPC:       client,
		Repo:       repo,
		Collection: collection,
		remaining:  cap,
	}
}

// Starts the sequence from a continuation token of an earlier run instead
// of the beginning. Must be called before the first NextPage.
func (p *Paginator) ResumeFrom(cursor string) {
	p.cursor = cursor
}

// The continuation token after the last fully consumed page. Stable across
// a failed NextPage, and left at a cap-truncated page so a resumed run
// never skips records; a resume may re-fetch already-seen ones.
func (p *Paginator) Cursor() string {
	return p.cursor
}

// Total records yielded so far.
func (p *Paginator) Fetched() int {
	return p.fetched
}

func (p *Paginator) Done() bool {
	return p.done || p.remaining <= 0
}

func (p *Paginator) pageSize() int {
	if p.PageSize > 0 && p.PageSize < DefaultPageSize {
		return p.PageSize
	}
	return DefaultPageSize
}

// Fetches the next page. A fetch error leaves the paginator's cursor and
// counts untouched; the records from earlier pages remain valid and the
// caller decides whether that is a partial success.
func (p *Paginator) NextPage(ctx context.Context) (*Page, error) {
	if p.Done() {
		return nil, ErrExhausted
	}

	limit := min(p.pageSize(), p.remaining)
	params := map[string]any{
		"repo":       p.Repo.String(),
		"collection": p.Collection.String(),
		"limit":      limit,
	}
	if p.cursor != "" {
		params["cursor"] = p.cursor
	}

	var out listRecordsOutput
	if err := p.XRPC.Do(ctx, "com.atproto.repo.listRecords", params, &out); err != nil {
		return nil, err
	}

	records := out.Records
	// a host may ignore the limit param; enforce the cap exactly
	truncated := len(records) > p.remaining
	if truncated {
		records = records[:p.remaining]
	}
	p.remaining -= len(records)
	p.fetched += len(records)
	if !truncated {
		// on truncation the cursor stays at this page, so a resumed run
		// re-fetches the truncated tail instead of skipping it
		p.cursor = out.Cursor
	}
	if out.Cursor == "" || len(out.Records) == 0 {
		p.done = true
	}

	return &Page{Records: records, Cursor: p.cursor}, nil
}
