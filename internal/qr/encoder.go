package qr

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"

	qrcode "github.com/skip2/go-qrcode"
)

// QREncoder encodes with github.com/skip2/go-qrcode.
type QREncoder struct{}

func NewQREncoder() *QREncoder {
	return &QREncoder{}
}

func (e *QREncoder) Encode(text string, size int, level Level) (*Image, error) {
	code, err := qrcode.New(text, recoveryLevel(level))
	if err != nil {
		return nil, fmt.Errorf("failed to encode qr code: %w", err)
	}

	data, err := code.PNG(size)
	if err != nil {
		return nil, fmt.Errorf("failed to render qr code: %w", err)
	}

	return &Image{
		PNG:     data,
		Size:    size,
		Level:   level,
		Modules: code.Bitmap(),
	}, nil
}

func recoveryLevel(level Level) qrcode.RecoveryLevel {
	switch level {
	case LevelL:
		return qrcode.Low
	case LevelQ:
		return qrcode.High
	case LevelH:
		return qrcode.Highest
	default:
		return qrcode.Medium
	}
}

var placeholderBorder = color.RGBA{R: 0x10, G: 0xb9, B: 0x81, A: 0xff}

// PlaceholderEncoder renders a blank bordered square of the requested size.
// It lets the generator flow run when no QR encoder is available.
type PlaceholderEncoder struct{}

func (PlaceholderEncoder) Encode(text string, size int, level Level) (*Image, error) {
	img := image.NewRGBA(image.Rect(0, 0, size, size))

	const border = 2
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			if x < border || y < border || x >= size-border || y >= size-border {
				img.SetRGBA(x, y, placeholderBorder)
				continue
			}
			img.SetRGBA(x, y, color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to render placeholder: %w", err)
	}

	return &Image{
		PNG:   buf.Bytes(),
		Size:  size,
		Level: level,
	}, nil
}
