package compress

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"net/http"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

const (
	mimeJPEG = "image/jpeg"
	mimePNG  = "image/png"
	mimeGIF  = "image/gif"
	mimeWebP = "image/webp"

	// DefaultMaxDimension caps the longest side of re-encoded images.
	DefaultMaxDimension = 1920
	// DefaultGIFLimit is the largest GIF accepted; GIFs are never re-encoded.
	DefaultGIFLimit = 1024 * 1024
)

var (
	ErrGIFTooLarge     = errors.New("GIF files must be 1MB or smaller to keep their animation")
	ErrUnsupportedType = errors.New("unsupported image type")
	ErrDecode          = errors.New("failed to decode image")
)

// AcceptedTypes maps the accepted MIME types to their usual file extension.
var AcceptedTypes = map[string]string{
	mimeJPEG: "jpg",
	mimePNG:  "png",
	mimeGIF:  "gif",
	mimeWebP: "webp",
}

// File is a raw image as chosen by the user.
type File struct {
	Name string
	Type string
	Data []byte
}

// Size returns the byte size of the file.
func (f File) Size() int64 {
	return int64(len(f.Data))
}

// Result is the encoded payload. Reencoded is false for passthrough (GIF) results.
type Result struct {
	DataURL      string
	MIMEType     string
	Size         int
	OriginalSize int64
	Target       int
	Quality      float64
	Reencoded    bool
	Attempts     int
}

// Compressor re-encodes images towards a size target derived from the original size.
type Compressor struct {
	encoder      Encoder
	maxDimension int
	gifLimit     int64
}

type Option func(*Compressor)

// WithEncoder replaces the JPEG encoder, mainly for tests.
func WithEncoder(encoder Encoder) Option {
	return func(c *Compressor) {
		c.encoder = encoder
	}
}

// WithMaxDimension overrides the longest allowed side.
func WithMaxDimension(maxDimension int) Option {
	return func(c *Compressor) {
		c.maxDimension = maxDimension
	}
}

// WithGIFLimit overrides the GIF size ceiling.
func WithGIFLimit(limit int64) Option {
	return func(c *Compressor) {
		c.gifLimit = limit
	}
}

func NewCompressor(options ...Option) *Compressor {
	c := &Compressor{
		encoder:      JPEGEncoder{},
		maxDimension: DefaultMaxDimension,
		gifLimit:     DefaultGIFLimit,
	}
	for _, option := range options {
		option(c)
	}
	return c
}

// DetectType returns the declared MIME type when present, otherwise sniffs the content.
func DetectType(file File) string {
	declared := strings.ToLower(strings.TrimSpace(file.Type))
	if declared != "" {
		if i := strings.IndexByte(declared, ';'); i >= 0 {
			declared = strings.TrimSpace(declared[:i])
		}
		return declared
	}
	return http.DetectContentType(file.Data)
}

// IsAccepted reports whether mimeType is one of the accepted image types.
func IsAccepted(mimeType string) bool {
	_, ok := AcceptedTypes[mimeType]
	return ok
}

// Readable reports whether the file decodes as an image of a registered format.
// Only the header is parsed, so it is cheap enough to run before compression.
func Readable(file File) error {
	if _, _, err := image.DecodeConfig(bytes.NewReader(file.Data)); err != nil {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return nil
}

// Compress produces the payload to upload. GIFs pass through untouched; everything
// else is decoded, fitted into the maximum dimension and re-encoded as JPEG.
func (c *Compressor) Compress(ctx context.Context, file File) (*Result, error) {
	mimeType := DetectType(file)
	slog.Debug("Compressor: start",
		"file_name", file.Name,
		"mime_type", mimeType,
		"input_size_bytes", len(file.Data))

	if !IsAccepted(mimeType) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, mimeType)
	}
	if mimeType == mimeGIF {
		return c.passthroughGIF(file)
	}

	img, format, err := image.Decode(bytes.NewReader(file.Data))
	if err != nil {
		slog.Error("Compressor: failed to decode image", "file_name", file.Name, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	canvas := flattenAndFit(img, c.maxDimension)
	slog.Debug("Compressor: decoded image",
		"format", format,
		"orig_width", img.Bounds().Dx(),
		"orig_height", img.Bounds().Dy(),
		"width", canvas.Bounds().Dx(),
		"height", canvas.Bounds().Dy())

	return c.encodeTowardsTarget(ctx, canvas, file.Size())
}

func (c *Compressor) passthroughGIF(file File) (*Result, error) {
	if file.Size() > c.gifLimit {
		slog.Warn("Compressor: GIF exceeds size limit",
			"file_name", file.Name,
			"size_bytes", file.Size(),
			"limit_bytes", c.gifLimit)
		return nil, fmt.Errorf("%w (got %d bytes, limit %d)", ErrGIFTooLarge, file.Size(), c.gifLimit)
	}
	return &Result{
		DataURL:      DataURL(mimeGIF, file.Data),
		MIMEType:     mimeGIF,
		Size:         len(file.Data),
		OriginalSize: file.Size(),
		Target:       len(file.Data),
		Quality:      1,
		Reencoded:    false,
	}, nil
}

type candidate struct {
	quality float64
	data    []byte
}

// encodeTowardsTarget encodes at the band ceiling first and, when that is too large,
// binary-searches the band's quality interval with at most MaxProbes encodes.
func (c *Compressor) encodeTowardsTarget(ctx context.Context, img image.Image, originalSize int64) (*Result, error) {
	band := BandFor(originalSize)
	target := TargetFor(originalSize)
	floor := band.Floor
	if floor < AbsoluteFloor {
		floor = AbsoluteFloor
	}

	attempts := 0
	encode := func(quality float64) (candidate, error) {
		attempts++
		data, err := c.encoder.Encode(img, quality)
		if err != nil {
			return candidate{}, fmt.Errorf("failed to encode at quality %.3f: %w", quality, err)
		}
		slog.Debug("Compressor: encoded probe",
			"attempt", attempts,
			"quality", quality,
			"size_bytes", len(data),
			"target_bytes", target)
		return candidate{quality: quality, data: data}, nil
	}

	first, err := encode(band.Ceiling)
	if err != nil {
		return nil, err
	}
	if len(first.data) <= target {
		return c.result(first, originalSize, target, attempts), nil
	}

	best := first
	lo, hi := floor, band.Ceiling
	for probe := 0; probe < MaxProbes; probe++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		next, err := encode((lo + hi) / 2)
		if err != nil {
			return nil, err
		}
		size := len(next.data)
		if absInt(size-target) <= Tolerance {
			return c.result(next, originalSize, target, attempts), nil
		}
		best = better(best, next, target)
		if size > target {
			hi = next.quality
		} else {
			lo = next.quality
		}
	}

	slog.Debug("Compressor: probe budget exhausted, using best candidate",
		"quality", best.quality,
		"size_bytes", len(best.data),
		"target_bytes", target)
	return c.result(best, originalSize, target, attempts), nil
}

// better prefers candidates that fit the target, the highest quality among those,
// and otherwise the smallest output.
func better(current, next candidate, target int) candidate {
	currentFits := len(current.data) <= target
	nextFits := len(next.data) <= target
	switch {
	case nextFits && !currentFits:
		return next
	case currentFits && !nextFits:
		return current
	case nextFits && currentFits:
		if next.quality > current.quality {
			return next
		}
		return current
	default:
		if len(next.data) < len(current.data) {
			return next
		}
		return current
	}
}

func (c *Compressor) result(chosen candidate, originalSize int64, target, attempts int) *Result {
	mimeType := c.encoder.MIMEType()
	return &Result{
		DataURL:      DataURL(mimeType, chosen.data),
		MIMEType:     mimeType,
		Size:         len(chosen.data),
		OriginalSize: originalSize,
		Target:       target,
		Quality:      chosen.quality,
		Reencoded:    true,
		Attempts:     attempts,
	}
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
