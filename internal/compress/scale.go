package compress

import (
	"image"
	"image/color"
	"image/draw"

	xdraw "golang.org/x/image/draw"
)

// computeFitDimensions shrinks width/height so neither exceeds maxDimension while keeping
// the aspect ratio. Images already within bounds keep their size.
func computeFitDimensions(width, height, maxDimension int) (int, int) {
	if maxDimension <= 0 || (width <= maxDimension && height <= maxDimension) {
		return width, height
	}
	aspect := float64(width) / float64(height)
	if width >= height {
		scaledHeight := int(float64(maxDimension)/aspect + 0.5)
		if scaledHeight < 1 {
			scaledHeight = 1
		}
		return maxDimension, scaledHeight
	}
	scaledWidth := int(float64(maxDimension)*aspect + 0.5)
	if scaledWidth < 1 {
		scaledWidth = 1
	}
	return scaledWidth, maxDimension
}

func createTargetCanvas(w, h int, bg color.Color) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{bg}, image.Point{}, draw.Src)
	return dst
}

// flattenAndFit draws img onto a white canvas no larger than maxDimension on either
// side. JPEG has no alpha channel, so transparent pixels end up white.
func flattenAndFit(img image.Image, maxDimension int) *image.RGBA {
	bounds := img.Bounds()
	width, height := computeFitDimensions(bounds.Dx(), bounds.Dy(), maxDimension)
	canvas := createTargetCanvas(width, height, color.White)
	if width == bounds.Dx() && height == bounds.Dy() {
		draw.Draw(canvas, canvas.Bounds(), img, bounds.Min, draw.Over)
		return canvas
	}
	xdraw.CatmullRom.Scale(canvas, canvas.Bounds(), img, bounds, xdraw.Over, nil)
	return canvas
}
