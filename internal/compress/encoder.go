package compress

import (
	"bytes"
	"image"
	"image/jpeg"
	"math"
)

// Encoder turns pixels into bytes at a quality in (0, 1]. Implementations must be
// deterministic: the same image and quality always produce the same output.
type Encoder interface {
	Encode(img image.Image, quality float64) ([]byte, error)
	MIMEType() string
}

// JPEGEncoder encodes with the standard library JPEG encoder.
type JPEGEncoder struct{}

func (JPEGEncoder) Encode(img image.Image, quality float64) ([]byte, error) {
	var buf bytes.Buffer
	bb := img.Bounds()
	// rough heuristic: a quarter byte per pixel
	buf.Grow(bb.Dx() * bb.Dy() / 4)
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality(quality)}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (JPEGEncoder) MIMEType() string {
	return mimeJPEG
}

func jpegQuality(quality float64) int {
	q := int(math.Round(quality * 100))
	if q < 1 {
		return 1
	}
	if q > 100 {
		return 100
	}
	return q
}
