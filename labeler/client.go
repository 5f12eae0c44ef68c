package labeler

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/at-peek/atpeek/atproto/syntax"
	"github.com/at-peek/atpeek/xrpc"
)

// Maximum subjects sent in a single queryLabels call.
const DefaultBatchLimit = 25

// concurrent batch calls when a subject set is split
const maxParallelBatches = 4

var ErrNoSubjects = errors.New("label query requires at least one subject")

// Client for querying labels from one labeler service.
type Client struct {
	// transport against the labeler host; required
	XRPC *xrpc.Client
	// max subjects per call; defaults to DefaultBatchLimit
	BatchLimit int
}

func NewClient(host string) (*Client, error) {
	x, err := xrpc.NewClient(host)
	if err != nil {
		return nil, fmt.Errorf("labeler client: %w", err)
	}
	return &Client{XRPC: x}, nil
}

func (c *Client) batchLimit() int {
	if c.BatchLimit > 0 {
		return c.BatchLimit
	}
	return DefaultBatchLimit
}

// Queries labels for the given subjects (DIDs or AT-URIs). Subject sets
// larger than the batch limit are split across parallel calls and merged by
// concatenating label lists in chunk order; order within a chunk is as the
// service returned it.
func (c *Client) QueryLabels(ctx context.Context, subjects []string) (*LabelBatch, error) {
	if len(subjects) == 0 {
		return nil, ErrNoSubjects
	}
	limit := c.batchLimit()
	if len(subjects) <= limit {
		return c.queryBatch(ctx, subjects)
	}

	var chunks [][]string
	for len(subjects) > 0 {
		n := min(limit, len(subjects))
		chunks = append(chunks, subjects[:n])
		subjects = subjects[n:]
	}

	results := make([]*LabelBatch, len(chunks))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(maxParallelBatches)
	for i, chunk := range chunks {
		i, chunk := i, chunk
		eg.Go(func() error {
			batch, err := c.queryBatch(egCtx, chunk)
			if err != nil {
				return err
			}
			results[i] = batch
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	merged := &LabelBatch{}
	for _, batch := range results {
		merged.Labels = append(merged.Labels, batch.Labels...)
	}
	return merged, nil
}

func (c *Client) queryBatch(ctx context.Context, subjects []string) (*LabelBatch, error) {
	var out LabelBatch
	params := map[string]any{
		"uriPatterns": subjects,
	}
	if err := c.XRPC.Do(ctx, "com.atproto.label.queryLabels", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Queries account-level labels: the subject is the DID itself.
func (c *Client) QueryAccountLabels(ctx context.Context, did syntax.DID) (*LabelBatch, error) {
	return c.queryBatch(ctx, []string{did.String()})
}

// Queries labels attached to a single record.
func (c *Client) QueryRecordLabels(ctx context.Context, uri syntax.ATURI) (*LabelBatch, error) {
	return c.queryBatch(ctx, []string{uri.String()})
}
