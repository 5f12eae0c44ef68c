package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/at-peek/atpeek/atproto/identity"
	"github.com/at-peek/atpeek/atproto/syntax"
)

func configLogger(cctx *cli.Context, writer io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cctx.String("log-level")) {
	case "error":
		level = slog.LevelError
	case "warn":
		level = slog.LevelWarn
	case "info":
		level = slog.LevelInfo
	case "debug":
		level = slog.LevelDebug
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(writer, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	return logger
}

func configDirectory(cctx *cli.Context) identity.Directory {
	dir := identity.DefaultDirectory()
	if plc := cctx.String("plc-host"); plc != "" {
		dir.(*identity.BaseDirectory).PLCURL = plc
	}
	return dir
}

// subject of a label query: either an account or a single record
type subject struct {
	atid syntax.AtIdentifier
	uri  syntax.ATURI
}

func (s *subject) isRecord() bool {
	return s.uri != ""
}

// Sniffs the argument form: at:// URIs name records, everything else is an
// account identifier. A leading @ (as copied from client UIs) is stripped.
func parseSubject(raw string) (*subject, error) {
	raw = strings.TrimPrefix(strings.TrimSpace(raw), "@")
	if raw == "" {
		return nil, fmt.Errorf("need to provide an identifier as an argument")
	}
	if strings.HasPrefix(raw, "at://") {
		uri, err := syntax.ParseATURI(raw)
		if err != nil {
			return nil, err
		}
		return &subject{uri: uri}, nil
	}
	atid, err := syntax.ParseAtIdentifier(raw)
	if err != nil {
		return nil, err
	}
	return &subject{atid: atid}, nil
}

func resolveIdent(ctx context.Context, cctx *cli.Context, atid syntax.AtIdentifier) (*identity.Identity, error) {
	dir := configDirectory(cctx)
	return dir.Lookup(ctx, atid)
}
