package commands

import (
	"bufio"
	"context"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/wolfeidau/kingfisher/internal/app"
	"github.com/wolfeidau/kingfisher/internal/camera"
	"github.com/wolfeidau/kingfisher/internal/history"
	"github.com/wolfeidau/kingfisher/internal/prefs"
	"github.com/wolfeidau/kingfisher/internal/qr"
	"github.com/wolfeidau/kingfisher/internal/scanner"
)

// ScanCmd scans QR codes until interrupted. Single letter commands on stdin
// control the running scanner.
type ScanCmd struct {
	Source       string `help:"frame source (dir or screen)" default:"dir" enum:"dir,screen" env:"KINGFISHER_SCAN_SOURCE"`
	Dir          string `help:"directory of frames for the dir source, with optional front and back subdirectories" default:"frames" type:"path" env:"KINGFISHER_SCAN_DIR"`
	Facing       string `help:"camera facing (front or back)" default:"back" enum:"front,back"`
	AutoRedirect bool   `help:"open scanned URLs" env:"KINGFISHER_AUTO_REDIRECT"`
	Headless     bool   `help:"log scanned URLs instead of opening a browser"`
	NoDecoder    bool   `help:"poll frames without decoding"`
}

const scanHelp = "Commands: s switch camera, r toggle auto-redirect, c clear result, start, q quit\n"

func (c *ScanCmd) Run(ctx context.Context, globals *Globals) error {
	defer globals.setup(ctx)()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	facing, err := camera.ParseFacing(c.Facing)
	if err != nil {
		return err
	}

	var source camera.Source = camera.NewDir(c.Dir)
	if c.Source == "screen" {
		source = camera.NewScreen()
	}

	var opener scanner.Opener = scanner.BrowserOpener{}
	if c.Headless {
		opener = scanner.LogOpener{}
	}

	out := &syncWriter{w: globals.stdout()}

	ctrl := globals.controller(ctx, app.Config{
		Source:       source,
		Decoder:      qr.NewDecoder(!c.NoDecoder),
		Opener:       opener,
		Notifier:     &scanPrinter{out: out},
		Facing:       facing,
		AutoRedirect: c.AutoRedirect,
	})
	defer closeController(ctrl)

	if err := ctrl.StartScanner(ctx); err != nil {
		return err
	}

	printf(out, scanHelp)

	done := make(chan struct{})
	defer close(done)
	lines := readLines(globals.stdin(), done)

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				// stdin closed, keep scanning until interrupted
				lines = nil
				continue
			}

			switch strings.ToLower(strings.TrimSpace(line)) {
			case "":
			case "s", "switch":
				printf(out, "Camera switched! (%s)\n", ctrl.Scanner.SwitchFacing())
			case "r", "redirect":
				printf(out, "Auto-redirect: %s\n", onOff(ctrl.Scanner.ToggleAutoRedirect()))
			case "c", "clear":
				ctrl.ClearResult()
				printf(out, "Result cleared\n")
			case "start":
				if err := ctrl.StartScanner(ctx); err != nil {
					continue
				}
			case "q", "quit", "stop":
				return nil
			default:
				printf(out, scanHelp)
			}
		}
	}
}

func readLines(r io.Reader, done <-chan struct{}) <-chan string {
	lines := make(chan string)

	go func() {
		defer close(lines)

		s := bufio.NewScanner(r)
		for s.Scan() {
			select {
			case lines <- s.Text():
			case <-done:
				return
			}
		}
	}()

	return lines
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

// scanPrinter prints scanner notifications for the terminal user.
type scanPrinter struct {
	out io.Writer
}

func (p *scanPrinter) ScanStarted(facing camera.Facing) {
	printf(p.out, "Scanner started! (%s camera)\n", facing)
}

func (p *scanPrinter) ScanStopped() {
	printf(p.out, "Scanner stopped\n")
}

func (p *scanPrinter) Scanned(event scanner.ScanEvent) {
	printf(p.out, "Scanned: %s\n", event.Payload)
}

func (p *scanPrinter) CameraAccessDenied(err error) {
	printf(p.out, "Could not access camera. Please ensure camera permissions are granted. (%v)\n", err)
}

func (p *scanPrinter) HistoryChanged([]history.Entry) {}
func (p *scanPrinter) HistoryCleared()                {}
func (p *scanPrinter) ThemeChanged(prefs.Theme)       {}

// syncWriter serialises writes from the scanner callbacks and the command
// loop.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
