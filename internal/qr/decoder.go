package qr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
)

// Decoder extracts a raw tag payload from a still image. The live camera
// decode loop runs in the device browser; this path serves the
// scan-from-gallery flow where the operator uploads a photo of the tag.
type Decoder interface {
	Decode(ctx context.Context, imageData []byte) (string, error)
}

// ImageDecoder decodes QR codes from PNG/JPEG bytes using zxing.
type ImageDecoder struct {
	reader gozxing.Reader
	hints  map[gozxing.DecodeHintType]interface{}
}

// NewImageDecoder creates a decoder tuned for photographed tags, which are
// frequently skewed and low contrast.
func NewImageDecoder() *ImageDecoder {
	return &ImageDecoder{
		reader: qrcode.NewQRCodeReader(),
		hints: map[gozxing.DecodeHintType]interface{}{
			gozxing.DecodeHintType_TRY_HARDER: true,
		},
	}
}

// Decode returns the text payload of the first QR code found in the image.
func (d *ImageDecoder) Decode(ctx context.Context, imageData []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	img, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return "", fmt.Errorf("error decoding image: %w", err)
	}

	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", fmt.Errorf("error preparing bitmap: %w", err)
	}

	result, err := d.reader.Decode(bmp, d.hints)
	if err != nil {
		return "", fmt.Errorf("no QR code found in image: %w", err)
	}
	return result.GetText(), nil
}
