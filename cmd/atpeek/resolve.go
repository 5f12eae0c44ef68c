package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

var cmdResolve = &cli.Command{
	Name:      "resolve",
	Usage:     "lookup an account's DID and PDS endpoint",
	ArgsUsage: `<handle-or-did>`,
	Action:    runResolve,
}

func runResolve(cctx *cli.Context) error {
	ctx := cctx.Context
	configLogger(cctx, os.Stderr)

	sub, err := parseSubject(cctx.Args().First())
	if err != nil {
		return err
	}
	if sub.isRecord() {
		return fmt.Errorf("record URIs have no identity; pass a handle or DID")
	}

	ident, err := resolveIdent(ctx, cctx, sub.atid)
	if err != nil {
		return err
	}

	out := struct {
		DID    string `json:"did"`
		Handle string `json:"handle,omitempty"`
		PDS    string `json:"pds,omitempty"`
	}{
		DID: ident.DID.String(),
		PDS: ident.PDSEndpoint(),
	}
	if !ident.Handle.IsInvalidHandle() {
		out.Handle = ident.Handle.String()
	}

	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}
