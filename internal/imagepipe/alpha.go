package imagepipe

import (
	"image"
	"image/color"
)

var whiteOpaque = color.NRGBA{R: 255, G: 255, B: 255, A: 255}

// hasAlpha reports whether the image carries an alpha channel or palette
// that must be flattened before the opaque JPEG encode. JPEG-decoded
// images (YCbCr, Gray) are already opaque and pass through.
func hasAlpha(img image.Image) bool {
	switch img.(type) {
	case *image.NRGBA, *image.NRGBA64, *image.RGBA, *image.RGBA64, *image.Paletted:
		return true
	default:
		return false
	}
}
