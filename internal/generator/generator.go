// Package generator turns user text into QR images and records every
// generated payload in the history.
package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/kingfisher/internal/history"
	"github.com/wolfeidau/kingfisher/internal/qr"
	"github.com/wolfeidau/kingfisher/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ErrEmptyText is returned when the text is blank after trimming.
var ErrEmptyText = errors.New("please enter text or URL to generate QR code")

// Request describes a code to generate. A zero Size or Level selects the
// defaults.
type Request struct {
	Text  string
	Size  int
	Level qr.Level
}

// Result is a generated code and the details shown alongside it.
type Result struct {
	Text       string
	Image      *qr.Image
	Characters int
	Entry      history.Entry
}

type Generator struct {
	encoder qr.Encoder
	history *history.Store
	metrics *telemetry.Metrics
}

func New(encoder qr.Encoder, store *history.Store) *Generator {
	return &Generator{
		encoder: encoder,
		history: store,
		metrics: telemetry.GetMetrics(),
	}
}

// Generate encodes the trimmed text and records it at the top of the
// history.
func (g *Generator) Generate(ctx context.Context, req Request) (*Result, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, ErrEmptyText
	}

	level := req.Level
	if level == "" {
		level = qr.DefaultLevel
	}
	size := qr.ClampSize(req.Size)

	img, err := g.encoder.Encode(text, size, level)
	if err != nil {
		return nil, fmt.Errorf("failed to generate qr code: %w", err)
	}

	entry := g.history.Record(ctx, text)

	g.metrics.CodesGeneratedTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("level", string(level))))
	log.Debug().Int("size", size).Str("level", string(level)).Int("characters", utf8.RuneCountInString(text)).Msg("qr code generated")

	return &Result{
		Text:       text,
		Image:      img,
		Characters: utf8.RuneCountInString(text),
		Entry:      entry,
	}, nil
}

// Replay regenerates the history entry at index. The entry is recorded
// again at the top of the history.
func (g *Generator) Replay(ctx context.Context, index, size int, level qr.Level) (*Result, error) {
	entry, err := g.history.Get(index)
	if err != nil {
		return nil, err
	}

	return g.Generate(ctx, Request{Text: entry.Text, Size: size, Level: level})
}
