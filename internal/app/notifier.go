package app

import (
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/kingfisher/internal/camera"
	"github.com/wolfeidau/kingfisher/internal/history"
	"github.com/wolfeidau/kingfisher/internal/prefs"
	"github.com/wolfeidau/kingfisher/internal/scanner"
)

// Notifier receives the user facing actions of the application.
type Notifier interface {
	ScanStarted(facing camera.Facing)
	ScanStopped()
	Scanned(event scanner.ScanEvent)
	CameraAccessDenied(err error)
	HistoryChanged(entries []history.Entry)
	HistoryCleared()
	ThemeChanged(theme prefs.Theme)
}

// LogNotifier writes every action to the log.
type LogNotifier struct{}

func (LogNotifier) ScanStarted(facing camera.Facing) {
	log.Info().Str("facing", string(facing)).Msg("Scanner started!")
}

func (LogNotifier) ScanStopped() {
	log.Info().Msg("Scanner stopped")
}

func (LogNotifier) Scanned(event scanner.ScanEvent) {
	log.Info().Str("payload", event.Payload).Str("session_id", event.SessionID.String()).Msg("QR code scanned")
}

func (LogNotifier) CameraAccessDenied(err error) {
	log.Error().Err(err).Msg("Could not access camera. Please ensure camera permissions are granted.")
}

func (LogNotifier) HistoryChanged(entries []history.Entry) {
	log.Info().Int("count", len(entries)).Msg("QR Code generated!")
}

func (LogNotifier) HistoryCleared() {
	log.Info().Msg("History cleared!")
}

func (LogNotifier) ThemeChanged(theme prefs.Theme) {
	log.Info().Str("theme", string(theme)).Msg("Theme toggled!")
}

// Notifiers fans actions out to several notifiers in order.
type Notifiers []Notifier

func (n Notifiers) ScanStarted(facing camera.Facing) {
	for _, x := range n {
		x.ScanStarted(facing)
	}
}

func (n Notifiers) ScanStopped() {
	for _, x := range n {
		x.ScanStopped()
	}
}

func (n Notifiers) Scanned(event scanner.ScanEvent) {
	for _, x := range n {
		x.Scanned(event)
	}
}

func (n Notifiers) CameraAccessDenied(err error) {
	for _, x := range n {
		x.CameraAccessDenied(err)
	}
}

func (n Notifiers) HistoryChanged(entries []history.Entry) {
	for _, x := range n {
		x.HistoryChanged(entries)
	}
}

func (n Notifiers) HistoryCleared() {
	for _, x := range n {
		x.HistoryCleared()
	}
}

func (n Notifiers) ThemeChanged(theme prefs.Theme) {
	for _, x := range n {
		x.ThemeChanged(theme)
	}
}
