package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/subcommands"

	"github.com/trogers1052/stock-sniper-dashboard/internal/render"
	"github.com/trogers1052/stock-sniper-dashboard/internal/view"
)

// showCmd prints the dashboard to the terminal
type showCmd struct {
	watch   bool
	timeout time.Duration
}

func (*showCmd) Name() string     { return "show" }
func (*showCmd) Synopsis() string { return "print the dashboard tables" }
func (*showCmd) Usage() string {
	return `sniper [-config <file>] show [-watch] [-timeout d]

  Fetches every table once and prints it. With -watch the dashboard stays
  mounted and is re-printed whenever a table changes.
`
}

func (c *showCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.watch, "watch", false, "keep polling and re-print on every change")
	f.DurationVar(&c.timeout, "timeout", 15*time.Second, "how long to wait for the first fetch of every table")
}

func (c *showCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	logger := newLogger(os.Stderr, cfg.Logging)

	dash, err := dashboardFactory(cfg, newClient(cfg), logger)()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	changes, cancel := dash.Subscribe()
	defer cancel()
	dash.Mount(ctx)
	defer dash.Unmount()

	if !waitLoaded(ctx, dash.Tables, changes, c.timeout) {
		logger.Warn("show: not every table loaded before the timeout")
	}
	c.print(dash.Tables())

	if !c.watch {
		return subcommands.ExitSuccess
	}

	for {
		select {
		case <-ctx.Done():
			return subcommands.ExitSuccess
		case _, ok := <-changes:
			if !ok {
				return subcommands.ExitSuccess
			}
			// Coalesce a burst of changes from one tick into a single redraw.
			drain(changes, 100*time.Millisecond)
			c.print(dash.Tables())
		}
	}
}

func (c *showCmd) print(tables []view.Table) {
	if c.watch {
		fmt.Print("\033[2J\033[H")
	}
	if err := render.Tables(os.Stdout, tables); err != nil {
		slog.Error("show: failed to print", slog.String("error", err.Error()))
	}
}

// waitLoaded blocks until every table has been refreshed or failed once
func waitLoaded(ctx context.Context, tables func() []view.Table, changes <-chan string, timeout time.Duration) bool {
	deadline := time.After(timeout)
	for !allLoaded(tables()) {
		select {
		case <-ctx.Done():
			return false
		case <-deadline:
			return false
		case <-changes:
		}
	}
	return true
}

func allLoaded(tables []view.Table) bool {
	for _, t := range tables {
		if t.UpdatedAt.IsZero() && !t.Stale {
			return false
		}
	}
	return true
}

func drain(ch <-chan string, quiet time.Duration) {
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-time.After(quiet):
			return
		}
	}
}
