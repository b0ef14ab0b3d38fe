package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/wolfeidau/kingfisher/internal/app"
	"github.com/wolfeidau/kingfisher/internal/generator"
	"github.com/wolfeidau/kingfisher/internal/qr"
)

// GenerateCmd encodes text as a QR code and records it in the history.
type GenerateCmd struct {
	Text        string `arg:"" help:"text or URL to encode"`
	Size        int    `help:"image size in pixels (128-512)" default:"256" env:"KINGFISHER_QR_SIZE"`
	Level       string `help:"error correction level (L, M, Q or H)" default:"M" enum:"L,M,Q,H,l,m,q,h" env:"KINGFISHER_QR_LEVEL"`
	Output      string `short:"o" help:"write the PNG image to this file" type:"path"`
	NoTerminal  bool   `help:"do not draw the code in the terminal"`
	Placeholder bool   `help:"render a placeholder instead of a QR code"`
}

func (c *GenerateCmd) Run(ctx context.Context, globals *Globals) error {
	defer globals.setup(ctx)()

	level, err := qr.ParseLevel(c.Level)
	if err != nil {
		return err
	}

	ctrl := globals.controller(ctx, app.Config{Encoder: qr.NewEncoder(!c.Placeholder)})
	defer closeController(ctrl)
	ctrl.ShowPage(app.PageGenerator)

	res, err := ctrl.Generator.Generate(ctx, generator.Request{Text: c.Text, Size: c.Size, Level: level})
	if err != nil {
		return err
	}

	return writeResult(globals, res, c.Output, !c.NoTerminal)
}

func writeResult(globals *Globals, res *generator.Result, output string, terminal bool) error {
	out := globals.stdout()

	if terminal && res.Image.Modules != nil {
		if err := qr.WriteTerminal(out, res.Image.Modules); err != nil {
			return fmt.Errorf("failed to draw qr code: %w", err)
		}
	}

	if output != "" {
		if err := os.WriteFile(output, res.Image.PNG, 0o600); err != nil {
			return fmt.Errorf("failed to write image: %w", err)
		}
		printf(out, "Saved: %s\n", output)
	}

	printf(out, "Size: %dpx\n", res.Image.Size)
	printf(out, "Error correction: %s\n", res.Image.Level)
	printf(out, "Length: %d characters\n", res.Characters)

	return nil
}
