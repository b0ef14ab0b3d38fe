package commands

import (
	"bufio"
	"context"
	"strings"
	"time"

	"github.com/wolfeidau/kingfisher/internal/app"
	"github.com/wolfeidau/kingfisher/internal/history"
	"github.com/wolfeidau/kingfisher/internal/qr"
)

type HistoryCmd struct {
	List   HistoryListCmd   `cmd:"" default:"1" help:"List generated codes, newest first"`
	Clear  HistoryClearCmd  `cmd:"" help:"Clear the history"`
	Replay HistoryReplayCmd `cmd:"" help:"Generate a history entry again"`
}

type HistoryListCmd struct{}

func (c *HistoryListCmd) Run(ctx context.Context, globals *Globals) error {
	defer globals.setup(ctx)()

	ctrl := globals.controller(ctx, app.Config{})
	defer closeController(ctrl)

	out := globals.stdout()
	entries := ctrl.History.List()
	if len(entries) == 0 {
		printf(out, "No history yet. Generate a QR code to see it here!\n")
		return nil
	}

	now := time.Now()
	for i, e := range entries {
		printf(out, "%2d  %-53s  %s\n", i, history.Preview(e.Text), history.FormatAge(e.CreatedAt, now))
	}

	return nil
}

type HistoryClearCmd struct {
	Yes bool `short:"y" help:"do not ask for confirmation"`
}

func (c *HistoryClearCmd) Run(ctx context.Context, globals *Globals) error {
	defer globals.setup(ctx)()

	out := globals.stdout()
	if !c.Yes {
		printf(out, "Are you sure you want to clear all history? [y/N] ")

		answer, _ := bufio.NewReader(globals.stdin()).ReadString('\n')
		if a := strings.ToLower(strings.TrimSpace(answer)); a != "y" && a != "yes" {
			printf(out, "Cancelled\n")
			return nil
		}
	}

	ctrl := globals.controller(ctx, app.Config{})
	defer closeController(ctrl)

	ctrl.History.Clear(ctx)
	printf(out, "History cleared!\n")

	return nil
}

type HistoryReplayCmd struct {
	Index      int    `arg:"" help:"history index, 0 is the most recent"`
	Size       int    `help:"image size in pixels (128-512)" default:"256"`
	Level      string `help:"error correction level (L, M, Q or H)" default:"M" enum:"L,M,Q,H,l,m,q,h"`
	Output     string `short:"o" help:"write the PNG image to this file" type:"path"`
	NoTerminal bool   `help:"do not draw the code in the terminal"`
}

func (c *HistoryReplayCmd) Run(ctx context.Context, globals *Globals) error {
	defer globals.setup(ctx)()

	level, err := qr.ParseLevel(c.Level)
	if err != nil {
		return err
	}

	ctrl := globals.controller(ctx, app.Config{})
	defer closeController(ctrl)

	res, err := ctrl.Generator.Replay(ctx, c.Index, c.Size, level)
	if err != nil {
		return err
	}

	printf(globals.stdout(), "%s\n", res.Text)
	return writeResult(globals, res, c.Output, !c.NoTerminal)
}
