package imagepipe

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPipeline(t *testing.T, limits Limits) *Pipeline {
	t.Helper()
	return New(limits, zerolog.Nop())
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func encodeJPEG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}))
	return buf.Bytes()
}

func solidImage(w, h int, c color.Color) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestValidateEmptyInput(t *testing.T) {
	p := testPipeline(t, DefaultLimits())

	_, _, err := p.Validate(nil, "empty.jpg")
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, ReasonEmptyInput, vErr.Reason)
}

func TestValidateTooLargeBytes(t *testing.T) {
	limits := DefaultLimits()
	limits.MaxBytes = 64
	p := testPipeline(t, limits)

	data := encodeJPEG(t, solidImage(50, 50, color.White))
	_, _, err := p.Validate(data, "big.jpg")
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, ReasonTooLarge, vErr.Reason)
}

func TestValidateNotAnImage(t *testing.T) {
	p := testPipeline(t, DefaultLimits())

	_, _, err := p.Validate([]byte("definitely not pixels"), "note.txt")
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, ReasonInvalidImage, vErr.Reason)
}

func TestValidateTruncatedImage(t *testing.T) {
	p := testPipeline(t, DefaultLimits())

	data := encodeJPEG(t, solidImage(100, 100, color.White))
	truncated := data[:len(data)/2]

	_, _, err := p.Validate(truncated, "cut.jpg")
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, ReasonCorruptedImage, vErr.Reason)
}

func TestValidateTooSmall(t *testing.T) {
	p := testPipeline(t, DefaultLimits())

	data := encodeJPEG(t, solidImage(3, 3, color.White))
	_, _, err := p.Validate(data, "tiny.jpg")
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, ReasonTooSmall, vErr.Reason)
	assert.Contains(t, vErr.Message, "small")
}

func TestValidateAcceptsJPEGAndPNG(t *testing.T) {
	p := testPipeline(t, DefaultLimits())

	_, format, err := p.Validate(encodeJPEG(t, solidImage(200, 150, color.White)), "ok.jpg")
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)

	_, format, err = p.Validate(encodePNG(t, solidImage(200, 150, color.White)), "ok.png")
	require.NoError(t, err)
	assert.Equal(t, "png", format)
}

func TestTransformKeepsSmallImages(t *testing.T) {
	p := testPipeline(t, DefaultLimits())

	out := p.Transform(solidImage(640, 480, color.NRGBA{10, 20, 30, 255}))
	assert.Equal(t, 640, out.Bounds().Dx())
	assert.Equal(t, 480, out.Bounds().Dy())
}

func TestTransformDownscalesPreservingAspect(t *testing.T) {
	p := testPipeline(t, DefaultLimits())

	out := p.Transform(solidImage(4000, 2000, color.NRGBA{10, 20, 30, 255}))
	assert.Equal(t, 2000, out.Bounds().Dx())
	assert.Equal(t, 1000, out.Bounds().Dy())
}

func TestProcessNormalizesToJPEG(t *testing.T) {
	p := testPipeline(t, DefaultLimits())

	result, err := p.Process(encodePNG(t, solidImage(200, 150, color.White)), "shot.png")
	require.NoError(t, err)

	assert.Equal(t, "png", result.SourceFormat)
	assert.Equal(t, "image/jpeg", result.ContentType)
	assert.Equal(t, 200, result.Width)
	assert.Equal(t, 150, result.Height)

	decoded, format, err := image.Decode(bytes.NewReader(result.Bytes))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 200, decoded.Bounds().Dx())
}

func TestProcessFlattensAlphaToWhite(t *testing.T) {
	p := testPipeline(t, DefaultLimits())

	// Fully transparent source should come out white after flattening.
	result, err := p.Process(encodePNG(t, solidImage(50, 50, color.NRGBA{0, 0, 0, 0})), "clear.png")
	require.NoError(t, err)

	decoded, _, err := image.Decode(bytes.NewReader(result.Bytes))
	require.NoError(t, err)

	r, g, b, _ := decoded.At(25, 25).RGBA()
	assert.Greater(t, r>>8, uint32(250))
	assert.Greater(t, g>>8, uint32(250))
	assert.Greater(t, b>>8, uint32(250))
}
