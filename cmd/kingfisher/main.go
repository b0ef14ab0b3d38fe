package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/wolfeidau/kingfisher/cmd/kingfisher/internal/commands"
	"github.com/wolfeidau/kingfisher/internal/config"
)

var (
	version = "dev"
	cli     struct {
		Scan     commands.ScanCmd     `cmd:"" help:"Scan QR codes from a camera source"`
		Generate commands.GenerateCmd `cmd:"" help:"Generate a QR code"`
		History  commands.HistoryCmd  `cmd:"" help:"Manage the history of generated codes"`
		Theme    commands.ThemeCmd    `cmd:"" help:"Manage the theme preference"`
		Serve    commands.ServeCmd    `cmd:"" help:"Serve the HTTP API"`

		Config            kong.ConfigFlag     `help:"Load flag values from a YAML file." type:"existingfile"`
		Store             commands.StoreFlags `embed:"" prefix:"store-"`
		Telemetry         bool                `help:"Export metrics over OTLP." env:"KINGFISHER_TELEMETRY"`
		TelemetryInterval time.Duration       `help:"Metric export interval." default:"10s" env:"KINGFISHER_TELEMETRY_INTERVAL"`
		Debug             bool                `help:"Enable debug mode." env:"KINGFISHER_DEBUG"`
		Version           kong.VersionFlag
	}
)

func main() {
	if err := config.LoadEnv(".env"); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Name("kingfisher"),
		kong.Description("Scan and generate QR codes."),
		kong.Configuration(config.YAML, "~/.kingfisher/config.yaml"),
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))
	err := cmd.Run(&commands.Globals{
		Debug:             cli.Debug,
		Version:           version,
		Telemetry:         cli.Telemetry,
		TelemetryInterval: cli.TelemetryInterval,
		Store:             cli.Store,
	})
	cmd.FatalIfErrorf(err)
}
