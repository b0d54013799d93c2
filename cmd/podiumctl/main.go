// Command podiumctl administers a podium deployment: schema migrations,
// leaderboard lifecycle operations and load runs.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/okian/podium/pkg/logger"
)

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		logger.Get().Error(ctx, "podiumctl failed", logger.Error(err))
		stop()
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "podiumctl",
		Usage: "administer a podium leaderboard service",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "url",
				Usage:   "base URL of the podium HTTP API",
				Value:   "http://localhost:9080",
				EnvVars: []string{"PODIUM_URL"},
			},
		},
		Commands: []*cli.Command{
			migrateCommand(),
			restoreCommand(),
			finaliseCommand(),
			payoutCommand(),
			loadCommand(),
		},
	}
}
