package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"runtime"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/okian/podium/internal/testevents"
)

const requestTimeout = 30 * time.Second

func restoreCommand() *cli.Command {
	return &cli.Command{
		Name:      "restore",
		Usage:     "rebuild a leaderboard's cache from the durable store",
		ArgsUsage: "<leaderboard-id>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "entries", Usage: "restore entries as well as metadata", Value: true},
		},
		Action: func(c *cli.Context) error {
			q := url.Values{"entries": {fmt.Sprint(c.Bool("entries"))}}
			return post(c, "restore", "?"+q.Encode())
		},
	}
}

func finaliseCommand() *cli.Command {
	return &cli.Command{
		Name:      "finalise",
		Usage:     "close a leaderboard to writes and freeze its ranks",
		ArgsUsage: "<leaderboard-id>",
		Action:    func(c *cli.Context) error { return post(c, "finalise", "") },
	}
}

func payoutCommand() *cli.Command {
	return &cli.Command{
		Name:      "payout",
		Usage:     "award the prizes of a finalised leaderboard",
		ArgsUsage: "<leaderboard-id>",
		Action:    func(c *cli.Context) error { return post(c, "payout", "") },
	}
}

func loadCommand() *cli.Command {
	return &cli.Command{
		Name:  "load",
		Usage: "submit generated awards and verify the resulting standings",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "leaderboard", Usage: "leaderboard id to create; generated when empty"},
			&cli.IntFlag{Name: "users", Value: 1000},
			&cli.IntFlag{Name: "events", Value: 10000},
			&cli.IntFlag{Name: "workers", Value: runtime.NumCPU() * 2},
			&cli.IntFlag{Name: "top", Value: 50, Usage: "number of top entries to verify"},
			&cli.DurationFlag{Name: "timeout", Value: requestTimeout, Usage: "HTTP request timeout"},
			&cli.Uint64Flag{Name: "seed", Usage: "generator seed; 0 picks a random one"},
			&cli.BoolFlag{Name: "finalise", Usage: "finalise the leaderboard after verifying"},
		},
		Action: func(c *cli.Context) error {
			_, err := testevents.Run(c.Context, &testevents.Config{
				BaseURL:       c.String("url"),
				LeaderboardID: c.String("leaderboard"),
				Users:         c.Int("users"),
				Events:        c.Int("events"),
				Workers:       c.Int("workers"),
				TopN:          c.Int("top"),
				Timeout:       c.Duration("timeout"),
				Seed:          c.Uint64("seed"),
				Finalise:      c.Bool("finalise"),
			})
			return err
		},
	}
}

// post calls POST /leaderboards/{id}/{action} and prints the response body.
func post(c *cli.Context, action, query string) error {
	id := c.Args().First()
	if id == "" {
		return errors.New("leaderboard id is required")
	}
	target := c.String("url") + "/leaderboards/" + url.PathEscape(id) + "/" + action + query

	req, err := http.NewRequestWithContext(c.Context, http.MethodPost, target, nil)
	if err != nil {
		return err
	}
	resp, err := (&http.Client{Timeout: requestTimeout}).Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", action, id, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("%s %s: status %d: %s", action, id, resp.StatusCode, bytes.TrimSpace(body))
	}
	if len(body) == 0 {
		fmt.Fprintf(c.App.Writer, "%s %s: ok\n", action, id)
		return nil
	}
	var out bytes.Buffer
	if err := json.Indent(&out, body, "", "  "); err != nil {
		_, err = c.App.Writer.Write(body)
		return err
	}
	out.WriteByte('\n')
	_, err = out.WriteTo(c.App.Writer)
	return err
}
