// Package app wires the scanner, generator, history and preferences into a
// single controller with the page model of the user interface.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/kingfisher/internal/camera"
	"github.com/wolfeidau/kingfisher/internal/generator"
	"github.com/wolfeidau/kingfisher/internal/history"
	"github.com/wolfeidau/kingfisher/internal/kv"
	"github.com/wolfeidau/kingfisher/internal/prefs"
	"github.com/wolfeidau/kingfisher/internal/qr"
	"github.com/wolfeidau/kingfisher/internal/scanner"
	"github.com/wolfeidau/kingfisher/internal/schedule"
)

// Page is a view of the user interface.
type Page string

const (
	PageScanner   Page = "scanner"
	PageGenerator Page = "generator"
)

var ErrInvalidPage = errors.New("invalid page")

func ParsePage(s string) (Page, error) {
	switch Page(s) {
	case PageScanner, PageGenerator:
		return Page(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPage, s)
	}
}

// Config holds the collaborators of a Controller. Nil fields get working
// defaults; without a Source every scan start is denied. Actions always reach
// the log; Notifier receives them as well.
type Config struct {
	Source       camera.Source
	Decoder      qr.Decoder
	Encoder      qr.Encoder
	Opener       scanner.Opener
	Store        kv.Store
	Scheduler    schedule.Scheduler
	Notifier     Notifier
	Facing       camera.Facing
	AutoRedirect bool
}

// Controller owns the application state for one user session.
type Controller struct {
	Scanner   *scanner.Loop
	Generator *generator.Generator
	History   *history.Store
	Prefs     *prefs.Preferences

	mu       sync.Mutex
	page     Page
	lastScan *scanner.ScanEvent
	store    kv.Store
	notifier Notifier
}

// New builds a controller, loads persisted history and preferences and
// shows the scanner page. The scanner is not started.
func New(ctx context.Context, cfg Config) *Controller {
	if cfg.Source == nil {
		cfg.Source = noCamera{}
	}
	if cfg.Decoder == nil {
		cfg.Decoder = qr.NewDecoder(true)
	}
	if cfg.Encoder == nil {
		cfg.Encoder = qr.NewEncoder(true)
	}
	if cfg.Opener == nil {
		cfg.Opener = scanner.LogOpener{}
	}
	if cfg.Store == nil {
		cfg.Store = kv.NewMemoryStore()
	}
	if cfg.Scheduler == nil {
		cfg.Scheduler = schedule.System{}
	}
	notifier := Notifier(LogNotifier{})
	if cfg.Notifier != nil {
		notifier = Notifiers{LogNotifier{}, cfg.Notifier}
	}
	if cfg.Facing == "" {
		cfg.Facing = camera.FacingBack
	}

	c := &Controller{
		page:     PageScanner,
		store:    cfg.Store,
		notifier: notifier,
	}

	c.History = history.New(cfg.Store, history.WithObserver(c))
	c.History.Load(ctx)

	c.Prefs = prefs.New(cfg.Store)
	c.Prefs.Load(ctx)

	c.Generator = generator.New(cfg.Encoder, c.History)
	c.Scanner = scanner.New(cfg.Source, cfg.Decoder,
		scanner.WithScheduler(cfg.Scheduler),
		scanner.WithListener(c),
		scanner.WithOpener(cfg.Opener),
		scanner.WithFacing(cfg.Facing),
		scanner.WithAutoRedirect(cfg.AutoRedirect),
	)

	return c
}

// Page returns the current page.
func (c *Controller) Page() Page {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.page
}

// ShowPage switches the current page. Leaving the scanner page stops the
// scanner.
func (c *Controller) ShowPage(page Page) {
	c.mu.Lock()
	c.page = page
	c.mu.Unlock()

	log.Debug().Str("page", string(page)).Msg("page shown")

	if page != PageScanner {
		c.Scanner.Stop()
	}
}

// StartScanner starts scanning with the current facing preference.
func (c *Controller) StartScanner(ctx context.Context) error {
	return c.Scanner.Start(ctx, c.Scanner.Facing())
}

// ToggleTheme flips and persists the theme.
func (c *Controller) ToggleTheme(ctx context.Context) prefs.Theme {
	theme := c.Prefs.ToggleTheme(ctx)
	c.notifier.ThemeChanged(theme)
	return theme
}

// SetTheme persists theme.
func (c *Controller) SetTheme(ctx context.Context, theme prefs.Theme) {
	c.Prefs.SetTheme(ctx, theme)
	c.notifier.ThemeChanged(theme)
}

// LastScan returns the most recent scan result, if one is shown.
func (c *Controller) LastScan() (scanner.ScanEvent, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.lastScan == nil {
		return scanner.ScanEvent{}, false
	}
	return *c.lastScan, true
}

// ClearResult hides the last scan result.
func (c *Controller) ClearResult() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastScan = nil
}

// Close stops the scanner and closes the kv store.
func (c *Controller) Close() error {
	c.ShowPage(PageGenerator)

	if err := c.store.Close(); err != nil {
		return fmt.Errorf("failed to close store: %w", err)
	}
	return nil
}

func (c *Controller) OnScanStarted(facing camera.Facing) {
	c.notifier.ScanStarted(facing)
}

func (c *Controller) OnScanStopped() {
	c.notifier.ScanStopped()
}

func (c *Controller) OnScan(event scanner.ScanEvent) {
	c.mu.Lock()
	c.lastScan = &event
	c.mu.Unlock()

	c.notifier.Scanned(event)
}

func (c *Controller) OnCameraAccessDenied(err error) {
	c.notifier.CameraAccessDenied(err)
}

func (c *Controller) HistoryChanged(entries []history.Entry) {
	c.notifier.HistoryChanged(entries)
}

func (c *Controller) HistoryCleared() {
	c.notifier.HistoryCleared()
}

type noCamera struct{}

func (noCamera) Open(context.Context, camera.Constraints) (camera.Stream, error) {
	return nil, errors.New("no camera configured")
}
