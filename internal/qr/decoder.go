package qr

import (
	"image"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
)

// ZXingDecoder decodes with github.com/makiuchi-d/gozxing. It is not safe
// for concurrent use; the scanner calls it from one poll at a time.
type ZXingDecoder struct {
	reader gozxing.Reader
	hints  map[gozxing.DecodeHintType]interface{}
}

func NewZXingDecoder() *ZXingDecoder {
	return &ZXingDecoder{
		reader: qrcode.NewQRCodeReader(),
		hints: map[gozxing.DecodeHintType]interface{}{
			gozxing.DecodeHintType_TRY_HARDER: true,
		},
	}
}

func (d *ZXingDecoder) Decode(frame *image.RGBA) (string, bool) {
	bmp, err := gozxing.NewBinaryBitmapFromImage(frame)
	if err != nil {
		return "", false
	}

	// a frame without a code is reported as an error by the reader
	result, err := d.reader.Decode(bmp, d.hints)
	if err != nil {
		return "", false
	}

	text := result.GetText()
	if text == "" {
		return "", false
	}
	return text, true
}

// NopDecoder never finds a code.
type NopDecoder struct{}

func (NopDecoder) Decode(*image.RGBA) (string, bool) {
	return "", false
}
