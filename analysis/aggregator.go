package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/at-peek/atpeek/atproto/identity"
	"github.com/at-peek/atpeek/atproto/syntax"
	"github.com/at-peek/atpeek/labeler"
	"github.com/at-peek/atpeek/pdsrepo"
	"github.com/at-peek/atpeek/xrpc"
)

// Hard default on total records examined in one run.
const DefaultRecordCap = 1000

const DefaultCollection = syntax.NSID("app.bsky.feed.post")

// how many distinct label values the result surfaces
const topValueCount = 10

// The caller's context was cancelled; the returned Result holds everything
// aggregated up to the last completed page.
var ErrCancelled = errors.New("analysis cancelled")

// Invoked as the run advances, once per stage change or completed page.
// Purely informational.
type ProgressFunc func(stage string, pct int)

type Options struct {
	// collection to scan; defaults to DefaultCollection
	Collection syntax.NSID
	// total record cap; defaults to DefaultRecordCap
	RecordCap int
	// per-page fetch size; defaults to the paginator's
	PageSize int
	// continuation token from an earlier partial run
	ResumeCursor string
	Progress     ProgressFunc
}

func (o Options) collection() syntax.NSID {
	if o.Collection != "" {
		return o.Collection
	}
	return DefaultCollection
}

func (o Options) recordCap() int {
	if o.RecordCap > 0 {
		return o.RecordCap
	}
	return DefaultRecordCap
}

// Aggregator runs bulk label analysis against one labeler service.
type Aggregator struct {
	Dir     identity.Directory
	Labeler *labeler.Client
	Logger  *slog.Logger

	// attached to the transports the aggregator builds itself
	Observer xrpc.RequestObserver
	// builds the transport for a resolved PDS host; defaults to
	// xrpc.NewClient with Observer attached
	NewPDSClient func(host string) (*xrpc.Client, error)
}

func NewAggregator(dir identity.Directory, lab *labeler.Client) *Aggregator {
	return &Aggregator{
		Dir:     dir,
		Labeler: lab,
	}
}

func (a *Aggregator) logger() *slog.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return slog.Default()
}

func (a *Aggregator) pdsClient(host string) (*xrpc.Client, error) {
	if a.NewPDSClient != nil {
		return a.NewPDSClient(host)
	}
	c, err := xrpc.NewClient(host)
	if err != nil {
		return nil, err
	}
	c.Observer = a.Observer
	return c, nil
}

func (a *Aggregator) progress(opts Options, stage string, pct int) {
	if opts.Progress == nil {
		return
	}
	opts.Progress(stage, min(pct, 100))
}

// Runs the full acquisition: one account-level label query, then the
// account's records page by page with label queries batched per page. Labels
// for every record of a page are collected before the next page is fetched,
// so the running statistics are deterministic.
//
// Cancellation is honored at page boundaries. On cancellation or a terminal
// fetch failure mid-run the accumulated Result comes back with Partial set
// and a cursor that resumes from the failed page, together with the error.
func (a *Aggregator) Run(ctx context.Context, did syntax.DID, opts Options) (*Result, error) {
	log := a.logger().With("did", did)

	ident, err := a.Dir.LookupDID(ctx, did)
	if err != nil {
		return nil, fmt.Errorf("resolving account: %w", err)
	}
	pdsHost := ident.PDSEndpoint()
	if pdsHost == "" {
		return nil, fmt.Errorf("account declares no PDS: %w", identity.ErrServiceNotFound)
	}
	pds, err := a.pdsClient(pdsHost)
	if err != nil {
		return nil, fmt.Errorf("PDS client for %s: %w", pdsHost, err)
	}
	a.progress(opts, "resolve", 100)

	res := newResult(did)
	valueCounts := make(map[string]int)
	labeledURIs := make(map[string]bool)

	acct, err := a.Labeler.QueryAccountLabels(ctx, did)
	if err != nil {
		return a.partial(res, valueCounts, fmt.Errorf("account-level labels: %w", err))
	}
	res.AccountLabels = acct.Labels
	for _, l := range acct.Active() {
		valueCounts[l.Val]++
	}
	a.progress(opts, "account-labels", 100)

	recordCap := opts.recordCap()
	p := pdsrepo.NewPaginator(pds, did, opts.collection(), recordCap)
	if opts.PageSize > 0 {
		p.PageSize = opts.PageSize
	}
	if opts.ResumeCursor != "" {
		p.ResumeFrom(opts.ResumeCursor)
		res.Cursor = opts.ResumeCursor
	}

	for !p.Done() {
		if cerr := ctx.Err(); cerr != nil {
			res.Cursor = p.Cursor()
			return a.partial(res, valueCounts, fmt.Errorf("%w: %w", ErrCancelled, cerr))
		}

		// token that re-fetches this page, for resuming after a failure
		pageCursor := p.Cursor()
		page, err := p.NextPage(ctx)
		if err != nil {
			res.Cursor = pageCursor
			return a.partial(res, valueCounts, fmt.Errorf("fetching records: %w", err))
		}
		if len(page.Records) == 0 {
			res.Cursor = p.Cursor()
			continue
		}

		uris := make([]string, len(page.Records))
		for i, rec := range page.Records {
			uris[i] = rec.URI
		}
		batch, err := a.Labeler.QueryLabels(ctx, uris)
		if err != nil {
			// the page's records were fetched but not labeled; resume
			// re-fetches the whole page rather than count them unlabeled
			res.Cursor = pageCursor
			return a.partial(res, valueCounts, fmt.Errorf("querying labels: %w", err))
		}

		bySubject := make(map[string][]labeler.Label)
		for _, l := range batch.Labels {
			bySubject[l.URI] = append(bySubject[l.URI], l)
		}
		for _, rec := range page.Records {
			ls := bySubject[rec.URI]
			if len(ls) == 0 {
				continue
			}
			res.Records = append(res.Records, RecordLabels{Record: rec, Labels: ls})
			for _, l := range ls {
				if l.Negated {
					continue
				}
				bucket := res.Buckets[labeler.Classify(l.Val)]
				bucket.Records = append(bucket.Records, LabeledRecord{URI: rec.URI, Label: l})
				bucket.Count++
				valueCounts[l.Val]++
				labeledURIs[rec.URI] = true
			}
		}

		res.TotalScanned += len(page.Records)
		res.TotalLabeled = len(labeledURIs)
		res.Cursor = p.Cursor()
		a.progress(opts, "records", p.Fetched()*100/recordCap)
		log.Debug("page aggregated", "fetched", p.Fetched(), "labeled", res.TotalLabeled, "cursor", res.Cursor)
	}

	res.TopLabelValues = topValues(valueCounts, topValueCount)
	a.progress(opts, "done", 100)
	log.Info("analysis complete", "scanned", res.TotalScanned, "labeled", res.TotalLabeled)
	return res, nil
}

// closes out an interrupted run: the accumulated result stays usable and
// travels with the error
func (a *Aggregator) partial(res *Result, counts map[string]int, err error) (*Result, error) {
	res.Partial = true
	res.TopLabelValues = topValues(counts, topValueCount)
	return res, err
}
