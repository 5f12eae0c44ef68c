package main

import (
	"fmt"
	"os"

	_ "github.com/joho/godotenv/autoload"

	"github.com/carlmjohnson/versioninfo"
	"github.com/urfave/cli/v2"

	"github.com/at-peek/atpeek/atproto/identity"
)

func main() {
	if err := run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(-1)
	}
}

func run(args []string) error {

	app := cli.App{
		Name:    "atpeek",
		Usage:   "inspect moderation labels on atproto accounts",
		Version: versioninfo.Short(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "labeler-host",
				Usage:   "method, hostname, and port of labeler service",
				Value:   "https://mod.bsky.app",
				EnvVars: []string{"ATPEEK_LABELER_HOST"},
			},
			&cli.StringFlag{
				Name:    "plc-host",
				Usage:   "method, hostname, and port of PLC registry",
				Value:   identity.DefaultPLCURL,
				EnvVars: []string{"ATPEEK_PLC_HOST"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "log verbosity (debug, info, warn, error)",
				Value:   "info",
				EnvVars: []string{"ATPEEK_LOG_LEVEL"},
			},
		},
	}
	app.Commands = []*cli.Command{
		cmdResolve,
		cmdLabels,
		cmdAnalyze,
	}
	return app.Run(args)
}
