// Package scanner runs the capture and decode loop: it polls a camera
// stream at a fixed cadence, hands each frame to a QR decoder and emits one
// scan event per distinct payload within the suppression window.
package scanner

import (
	"context"
	"image"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/kingfisher/internal/camera"
	"github.com/wolfeidau/kingfisher/internal/qr"
	"github.com/wolfeidau/kingfisher/internal/schedule"
	"github.com/wolfeidau/kingfisher/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	PollInterval      = 300 * time.Millisecond
	SuppressionWindow = 2000 * time.Millisecond
	SwitchSettleDelay = 100 * time.Millisecond
	RedirectDelay     = 1000 * time.Millisecond

	IdealWidth  = 1280
	IdealHeight = 720
)

// State of the loop.
type State int

const (
	StateIdle State = iota
	StateActive
)

func (s State) String() string {
	if s == StateActive {
		return "active"
	}
	return "idle"
}

// ScanEvent is emitted for each newly decoded payload.
type ScanEvent struct {
	Payload   string
	DecodedAt time.Time
	SessionID uuid.UUID
	Facing    camera.Facing
}

// Listener receives the loop's user facing notifications. Calls are made
// without the loop lock held, so a listener may call back into the loop.
type Listener interface {
	OnScanStarted(facing camera.Facing)
	OnScanStopped()
	OnScan(event ScanEvent)
	OnCameraAccessDenied(err error)
}

type nopListener struct{}

func (nopListener) OnScanStarted(camera.Facing) {}
func (nopListener) OnScanStopped()              {}
func (nopListener) OnScan(ScanEvent)            {}
func (nopListener) OnCameraAccessDenied(error)  {}

// session owns one camera stream and the ticker polling it.
type session struct {
	id     uuid.UUID
	facing camera.Facing
	stream camera.Stream
	ticker schedule.Task
	frame  *image.RGBA
}

// Loop is the capture and decode loop. All methods are safe for concurrent
// use.
type Loop struct {
	mu sync.Mutex

	source   camera.Source
	decoder  qr.Decoder
	opener   Opener
	sched    schedule.Scheduler
	listener Listener
	metrics  *telemetry.Metrics

	facing       camera.Facing
	autoRedirect bool

	// ctx is detached from the caller of Start and reused by restarts
	ctx     context.Context
	session *session

	restart    schedule.Task
	restartGen uint64

	suppressed    string
	suppressClear schedule.Task
	suppressGen   uint64

	redirects   map[uint64]schedule.Task
	redirectSeq uint64
}

// Option configures a Loop.
type Option func(*Loop)

func WithScheduler(s schedule.Scheduler) Option {
	return func(l *Loop) {
		l.sched = s
	}
}

func WithListener(listener Listener) Option {
	return func(l *Loop) {
		l.listener = listener
	}
}

func WithOpener(o Opener) Option {
	return func(l *Loop) {
		l.opener = o
	}
}

// WithFacing sets the initial facing preference, back by default.
func WithFacing(f camera.Facing) Option {
	return func(l *Loop) {
		l.facing = f
	}
}

// WithAutoRedirect sets the initial auto-redirect flag, off by default.
func WithAutoRedirect(enabled bool) Option {
	return func(l *Loop) {
		l.autoRedirect = enabled
	}
}

// New creates an idle loop reading from source.
func New(source camera.Source, decoder qr.Decoder, opts ...Option) *Loop {
	l := &Loop{
		source:    source,
		decoder:   decoder,
		opener:    BrowserOpener{},
		sched:     schedule.System{},
		listener:  nopListener{},
		metrics:   telemetry.GetMetrics(),
		facing:    camera.FacingBack,
		ctx:       context.Background(),
		redirects: make(map[uint64]schedule.Task),
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Start stops any running session and opens a new one with the given
// facing. On failure the error is a *CameraAccessError, the listener is
// told and the loop stays idle.
func (l *Loop) Start(ctx context.Context, facing camera.Facing) error {
	l.mu.Lock()
	l.stopLocked()
	l.facing = facing
	l.ctx = context.WithoutCancel(ctx)

	err := l.openLocked(ctx)
	listener := l.listener
	l.mu.Unlock()

	if err != nil {
		listener.OnCameraAccessDenied(err)
		return err
	}

	listener.OnScanStarted(facing)
	return nil
}

// Stop releases the camera and cancels every pending task. Calling Stop on
// an idle loop does nothing.
func (l *Loop) Stop() {
	l.mu.Lock()
	wasActive := l.stopLocked()
	listener := l.listener
	l.mu.Unlock()

	if wasActive {
		listener.OnScanStopped()
	}
}

// SwitchFacing toggles the facing preference. An active session is torn
// down and reopened with the new facing after SwitchSettleDelay, so the old
// device is released before the new one is acquired.
func (l *Loop) SwitchFacing() camera.Facing {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.facing = l.facing.Toggled()

	if l.session == nil && l.restart == nil {
		return l.facing
	}

	l.teardownLocked()
	l.cancelRestartLocked()

	gen := l.restartGen
	l.restart = l.sched.AfterFunc(SwitchSettleDelay, func() {
		l.restartAfterSwitch(gen)
	})

	log.Debug().Str("facing", string(l.facing)).Msg("camera switch scheduled")

	return l.facing
}

// Facing returns the current facing preference.
func (l *Loop) Facing() camera.Facing {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.facing
}

// State reports Active while a session holds a stream or a switch restart
// is pending.
func (l *Loop) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.session != nil || l.restart != nil {
		return StateActive
	}
	return StateIdle
}

func (l *Loop) SetAutoRedirect(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.autoRedirect = enabled
}

func (l *Loop) AutoRedirect() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.autoRedirect
}

// ToggleAutoRedirect flips the auto-redirect flag and returns the new value.
// Redirects already scheduled are kept.
func (l *Loop) ToggleAutoRedirect() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.autoRedirect = !l.autoRedirect
	return l.autoRedirect
}

func (l *Loop) openLocked(ctx context.Context) error {
	stream, err := l.source.Open(ctx, camera.Constraints{
		Facing:      l.facing,
		IdealWidth:  IdealWidth,
		IdealHeight: IdealHeight,
	})
	if err != nil {
		l.metrics.CameraErrorsTotal.Add(ctx, 1)
		log.Warn().Err(err).Str("facing", string(l.facing)).Msg("Could not access camera")
		return &CameraAccessError{Facing: l.facing, Err: err}
	}

	s := &session{
		id:     uuid.New(),
		facing: l.facing,
		stream: stream,
	}
	s.ticker = l.sched.Every(PollInterval, func() {
		l.poll(s)
	})
	l.session = s

	l.metrics.ActiveSessions.Add(ctx, 1)
	log.Info().Str("session_id", s.id.String()).Str("facing", string(s.facing)).Msg("scan session started")

	return nil
}

// stopLocked reports whether the loop was active.
func (l *Loop) stopLocked() bool {
	wasActive := l.session != nil || l.restart != nil

	l.teardownLocked()
	l.cancelRestartLocked()
	l.resetSuppressionLocked()

	for id, task := range l.redirects {
		task.Stop()
		delete(l.redirects, id)
	}

	return wasActive
}

// teardownLocked cancels the poll ticker and closes the stream of the
// current session, if any.
func (l *Loop) teardownLocked() {
	s := l.session
	if s == nil {
		return
	}
	l.session = nil

	s.ticker.Stop()
	if err := s.stream.Close(); err != nil {
		log.Warn().Err(err).Str("session_id", s.id.String()).Msg("Could not release camera")
	}
	s.frame = nil

	l.metrics.ActiveSessions.Add(l.ctx, -1)
	log.Info().Str("session_id", s.id.String()).Str("facing", string(s.facing)).Msg("scan session stopped")
}

func (l *Loop) cancelRestartLocked() {
	l.restartGen++
	if l.restart != nil {
		l.restart.Stop()
		l.restart = nil
	}
}

func (l *Loop) restartAfterSwitch(gen uint64) {
	l.mu.Lock()
	if l.restart == nil || gen != l.restartGen {
		l.mu.Unlock()
		return
	}
	l.restart = nil

	err := l.openLocked(l.ctx)
	listener := l.listener
	l.mu.Unlock()

	if err != nil {
		listener.OnCameraAccessDenied(err)
	}
}

func (l *Loop) poll(s *session) {
	l.mu.Lock()

	// a tick already queued when the session was torn down
	if l.session != s {
		l.mu.Unlock()
		return
	}

	w, h := s.stream.Size()
	if w == 0 || h == 0 {
		l.mu.Unlock()
		return
	}

	if s.frame == nil || s.frame.Bounds().Dx() != w || s.frame.Bounds().Dy() != h {
		s.frame = image.NewRGBA(image.Rect(0, 0, w, h))
	}

	if err := s.stream.Capture(s.frame); err != nil {
		log.Debug().Err(err).Str("session_id", s.id.String()).Msg("frame capture failed")
		l.mu.Unlock()
		return
	}

	start := time.Now()
	payload, ok := l.decoder.Decode(s.frame)
	l.metrics.DecodeDuration.Record(l.ctx, float64(time.Since(start).Microseconds())/1000.0,
		metric.WithAttributes(attribute.Bool("found", ok)))
	l.metrics.FramesPolledTotal.Add(l.ctx, 1)

	if !ok {
		l.mu.Unlock()
		return
	}

	if payload == l.suppressed {
		l.metrics.ScansSuppressedTotal.Add(l.ctx, 1)
		l.mu.Unlock()
		return
	}

	event := ScanEvent{
		Payload:   payload,
		DecodedAt: l.sched.Now(),
		SessionID: s.id,
		Facing:    s.facing,
	}

	l.suppressLocked(payload)
	l.metrics.ScansEmittedTotal.Add(l.ctx, 1)

	if l.autoRedirect && IsRedirectable(payload) {
		l.scheduleRedirectLocked(strings.TrimSpace(payload))
	}

	listener := l.listener
	l.mu.Unlock()

	log.Info().Str("session_id", s.id.String()).Str("payload", payload).Msg("code scanned")
	listener.OnScan(event)
}

// suppressLocked makes payload the suppressed one and restarts the window.
func (l *Loop) suppressLocked(payload string) {
	l.resetSuppressionLocked()
	l.suppressed = payload

	gen := l.suppressGen
	l.suppressClear = l.sched.AfterFunc(SuppressionWindow, func() {
		l.mu.Lock()
		defer l.mu.Unlock()

		if gen != l.suppressGen {
			return
		}
		l.suppressed = ""
		l.suppressClear = nil
	})
}

func (l *Loop) resetSuppressionLocked() {
	l.suppressGen++
	l.suppressed = ""
	if l.suppressClear != nil {
		l.suppressClear.Stop()
		l.suppressClear = nil
	}
}

func (l *Loop) scheduleRedirectLocked(url string) {
	l.redirectSeq++
	id := l.redirectSeq

	l.redirects[id] = l.sched.AfterFunc(RedirectDelay, func() {
		l.mu.Lock()
		_, pending := l.redirects[id]
		delete(l.redirects, id)
		opener := l.opener
		l.mu.Unlock()

		if !pending {
			return
		}
		if err := opener.Open(url); err != nil {
			log.Warn().Err(err).Str("url", url).Msg("Could not open scanned URL")
		}
	})

	l.metrics.RedirectsScheduledTotal.Add(l.ctx, 1)
	log.Debug().Str("url", url).Dur("delay", RedirectDelay).Msg("redirect scheduled")
}
