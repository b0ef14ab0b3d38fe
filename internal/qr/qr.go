// Package qr adapts third-party QR libraries to the encoder and decoder
// capabilities used by the generator and the scanner.
//
// Each capability has a functional implementation and a placeholder; the
// choice is made once at construction.
package qr

import (
	"errors"
	"fmt"
	"image"
	"strings"
)

// Level is the error correction level.
type Level string

const (
	LevelL Level = "L"
	LevelM Level = "M"
	LevelQ Level = "Q"
	LevelH Level = "H"

	DefaultLevel = LevelM
)

// Size limits in pixels.
const (
	MinSize     = 128
	MaxSize     = 512
	DefaultSize = 256
)

// ErrInvalidLevel is returned when parsing an unknown error correction level.
var ErrInvalidLevel = errors.New("invalid error correction level")

// ParseLevel parses L, M, Q or H case-insensitively. An empty string gives
// DefaultLevel.
func ParseLevel(s string) (Level, error) {
	switch Level(strings.ToUpper(strings.TrimSpace(s))) {
	case "":
		return DefaultLevel, nil
	case LevelL:
		return LevelL, nil
	case LevelM:
		return LevelM, nil
	case LevelQ:
		return LevelQ, nil
	case LevelH:
		return LevelH, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidLevel, s)
	}
}

// ClampSize keeps size within MinSize and MaxSize; zero gives DefaultSize.
func ClampSize(size int) int {
	switch {
	case size == 0:
		return DefaultSize
	case size < MinSize:
		return MinSize
	case size > MaxSize:
		return MaxSize
	default:
		return size
	}
}

// Image is a rendered QR code.
type Image struct {
	PNG   []byte
	Size  int
	Level Level
	// Modules is the symbol bitmap including the quiet zone, true for dark
	// modules. It is nil when the encoder cannot provide one.
	Modules [][]bool
}

// Encoder renders text as a QR code image.
type Encoder interface {
	Encode(text string, size int, level Level) (*Image, error)
}

// Decoder extracts a payload from a frame. It reports false when the frame
// holds no readable code, which is the normal state of most frames.
type Decoder interface {
	Decode(frame *image.RGBA) (string, bool)
}

// NewEncoder returns the QR encoder, or the placeholder when enabled is false.
func NewEncoder(enabled bool) Encoder {
	if enabled {
		return NewQREncoder()
	}
	return PlaceholderEncoder{}
}

// NewDecoder returns the QR decoder, or one that never decodes when enabled
// is false.
func NewDecoder(enabled bool) Decoder {
	if enabled {
		return NewZXingDecoder()
	}
	return NopDecoder{}
}
