package camera

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	"sync"

	"github.com/kbinani/screenshot"
	"github.com/rs/zerolog/log"
)

// Screen captures an active display. Back facing selects the primary
// display, front the last active one.
type Screen struct{}

func NewScreen() *Screen {
	return &Screen{}
}

func (s *Screen) Open(ctx context.Context, c Constraints) (Stream, error) {
	n := screenshot.NumActiveDisplays()
	if n == 0 {
		return nil, fmt.Errorf("%w: no active displays", ErrNoFrames)
	}

	index := 0
	if c.Facing == FacingFront {
		index = n - 1
	}

	bounds := screenshot.GetDisplayBounds(index)
	if bounds.Empty() {
		return nil, fmt.Errorf("%w: display %d has no area", ErrNoFrames, index)
	}

	log.Debug().Int("display", index).Str("bounds", bounds.String()).Msg("opened screen source")

	return &screenStream{bounds: bounds}, nil
}

type screenStream struct {
	mu     sync.Mutex
	bounds image.Rectangle
	closed bool
}

func (s *screenStream) Size() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, 0
	}
	return s.bounds.Dx(), s.bounds.Dy()
}

func (s *screenStream) Capture(dst *image.RGBA) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStreamClosed
	}
	if dst.Bounds().Size() != s.bounds.Size() {
		return ErrSizeMismatch
	}

	img, err := screenshot.CaptureRect(s.bounds)
	if err != nil {
		return fmt.Errorf("failed to capture display: %w", err)
	}

	draw.Draw(dst, dst.Bounds(), img, img.Bounds().Min, draw.Src)
	return nil
}

func (s *screenStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}
