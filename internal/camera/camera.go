// Package camera provides frame sources for the scanner.
package camera

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
)

// Facing selects which camera a source should open.
type Facing string

const (
	FacingBack  Facing = "back"
	FacingFront Facing = "front"
)

// Toggled returns the opposite facing.
func (f Facing) Toggled() Facing {
	if f == FacingFront {
		return FacingBack
	}
	return FacingFront
}

var ErrInvalidFacing = errors.New("invalid facing")

// ParseFacing parses "front" or "back"; an empty string gives back.
func ParseFacing(s string) (Facing, error) {
	switch Facing(strings.ToLower(strings.TrimSpace(s))) {
	case "", FacingBack:
		return FacingBack, nil
	case FacingFront:
		return FacingFront, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidFacing, s)
	}
}

// Constraints are requested when opening a stream. The resolution is ideal,
// sources pick the closest they can deliver.
type Constraints struct {
	Facing      Facing
	IdealWidth  int
	IdealHeight int
}

// Stream is an open camera handle.
type Stream interface {
	// Size returns the native frame size, or zero while the source is
	// warming up.
	Size() (width, height int)
	// Capture copies the current frame into dst, which must match Size.
	Capture(dst *image.RGBA) error
	Close() error
}

// Source opens streams.
type Source interface {
	Open(ctx context.Context, c Constraints) (Stream, error)
}

var (
	ErrNoFrames     = errors.New("no frames available")
	ErrStreamClosed = errors.New("stream closed")
	ErrSizeMismatch = errors.New("frame buffer size mismatch")
)
