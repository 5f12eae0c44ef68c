package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/at-peek/atpeek/labeler"
	"github.com/at-peek/atpeek/xrpc"
)

var cmdLabels = &cli.Command{
	Name:      "labels",
	Usage:     "query moderation labels for an account or a single record",
	ArgsUsage: `<handle|did|at-uri>`,
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "include-negated",
			Usage: "include negation records in the output",
		},
	},
	Action: runLabels,
}

func runLabels(cctx *cli.Context) error {
	ctx := cctx.Context
	logger := configLogger(cctx, os.Stderr)

	sub, err := parseSubject(cctx.Args().First())
	if err != nil {
		return err
	}

	lab, err := labeler.NewClient(cctx.String("labeler-host"))
	if err != nil {
		return err
	}
	lab.XRPC.Observer = &xrpc.SlogObserver{Logger: logger}

	var batch *labeler.LabelBatch
	if sub.isRecord() {
		batch, err = lab.QueryRecordLabels(ctx, sub.uri)
	} else {
		ident, rerr := resolveIdent(ctx, cctx, sub.atid)
		if rerr != nil {
			return rerr
		}
		batch, err = lab.QueryAccountLabels(ctx, ident.DID)
	}
	if err != nil {
		return err
	}

	labels := batch.Active()
	if cctx.Bool("include-negated") {
		labels = batch.Labels
	}

	byCategory := make(map[string][]labeler.Label)
	for _, l := range labels {
		name := l.Category().String()
		byCategory[name] = append(byCategory[name], l)
	}

	b, err := json.MarshalIndent(byCategory, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}
