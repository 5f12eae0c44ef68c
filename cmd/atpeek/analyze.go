package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/at-peek/atpeek/analysis"
	"github.com/at-peek/atpeek/atproto/syntax"
	"github.com/at-peek/atpeek/labeler"
	"github.com/at-peek/atpeek/xrpc"
)

var cmdAnalyze = &cli.Command{
	Name:      "analyze",
	Usage:     "bulk label analysis over an account's records",
	ArgsUsage: `<handle-or-did>`,
	Flags: []cli.Flag{
		&cli.IntFlag{
			Name:  "limit",
			Usage: "maximum total records to scan",
			Value: analysis.DefaultRecordCap,
		},
		&cli.StringFlag{
			Name:  "cursor",
			Usage: "resume token from an earlier partial run",
		},
		&cli.StringFlag{
			Name:  "collection",
			Usage: "record collection (NSID) to scan",
			Value: analysis.DefaultCollection.String(),
		},
		&cli.BoolFlag{
			Name:  "progress",
			Usage: "print progress to stderr",
		},
	},
	Action: runAnalyze,
}

func runAnalyze(cctx *cli.Context) error {
	ctx := cctx.Context
	logger := configLogger(cctx, os.Stderr)

	sub, err := parseSubject(cctx.Args().First())
	if err != nil {
		return err
	}
	if sub.isRecord() {
		return fmt.Errorf("analysis runs over an account; pass a handle or DID")
	}

	ident, err := resolveIdent(ctx, cctx, sub.atid)
	if err != nil {
		return err
	}

	obs := &xrpc.SlogObserver{Logger: logger}
	lab, err := labeler.NewClient(cctx.String("labeler-host"))
	if err != nil {
		return err
	}
	lab.XRPC.Observer = obs

	collection, err := syntax.ParseNSID(cctx.String("collection"))
	if err != nil {
		return fmt.Errorf("invalid collection: %w", err)
	}

	agg := analysis.NewAggregator(configDirectory(cctx), lab)
	agg.Logger = logger
	agg.Observer = obs

	opts := analysis.Options{
		Collection:   collection,
		RecordCap:    cctx.Int("limit"),
		ResumeCursor: cctx.String("cursor"),
	}
	if cctx.Bool("progress") {
		opts.Progress = func(stage string, pct int) {
			fmt.Fprintf(os.Stderr, "%s: %d%%\n", stage, pct)
		}
	}

	res, runErr := agg.Run(ctx, ident.DID, opts)
	if res == nil {
		return runErr
	}
	if runErr != nil {
		logger.Warn("run interrupted, reporting partial result", "cursor", res.Cursor, "err", runErr)
	}

	if err := printAnalysis(res); err != nil {
		return err
	}
	return runErr
}

func printAnalysis(res *analysis.Result) error {
	out := struct {
		DID            string                `json:"did"`
		TotalScanned   int                   `json:"totalScanned"`
		TotalLabeled   int                   `json:"totalLabeled"`
		Categories     map[string]int        `json:"categories"`
		AccountLabels  []string              `json:"accountLabels,omitempty"`
		TopLabelValues []analysis.ValueCount `json:"topLabelValues,omitempty"`
		Partial        bool                  `json:"partial,omitempty"`
		Cursor         string                `json:"cursor,omitempty"`
	}{
		DID:            res.DID.String(),
		TotalScanned:   res.TotalScanned,
		TotalLabeled:   res.TotalLabeled,
		Categories:     make(map[string]int),
		TopLabelValues: res.TopLabelValues,
		Partial:        res.Partial,
	}
	for cat, bucket := range res.Buckets {
		if bucket.Count > 0 {
			out.Categories[cat.String()] = bucket.Count
		}
	}
	for _, l := range res.AccountLabels {
		if !l.Negated {
			out.AccountLabels = append(out.AccountLabels, l.Val)
		}
	}
	if res.Partial {
		out.Cursor = res.Cursor
	}

	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}
