// Package imagepipe validates inbound photo uploads and normalizes them to
// a canonical JPEG before storage. Every stored photo has passed the same
// fixed sequence of checks and the same deterministic transform, so the
// gallery and annotation UI never see surprises in format, color mode, or
// dimensions.
package imagepipe

import (
	"bytes"
	"fmt"
	"image"
	"sort"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"

	// Decoder registrations for the allow-listed formats.
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

// Reason classifies why validation rejected an upload.
type Reason string

const (
	ReasonEmptyInput        Reason = "empty_input"
	ReasonTooLarge          Reason = "too_large"
	ReasonInvalidImage      Reason = "invalid_image"
	ReasonCorruptedImage    Reason = "corrupted_image"
	ReasonUnsupportedFormat Reason = "unsupported_format"
	ReasonTooSmall          Reason = "too_small"
)

// ValidationError is a client-class failure from the validation sequence.
type ValidationError struct {
	Reason  Reason
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func failf(reason Reason, format string, args ...any) *ValidationError {
	return &ValidationError{Reason: reason, Message: fmt.Sprintf(format, args...)}
}

var allowedFormats = map[string]struct{}{
	"jpeg": {},
	"png":  {},
	"webp": {},
}

func allowedFormatList() string {
	names := make([]string, 0, len(allowedFormats))
	for name := range allowedFormats {
		names = append(names, strings.ToUpper(name))
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

// Limits bounds what the pipeline accepts and produces.
type Limits struct {
	MaxBytes           int64
	MinDimension       int
	MaxDimension       int
	MaxOutputDimension int
	JPEGQuality        int
}

// DefaultLimits matches the production ingestion contract.
func DefaultLimits() Limits {
	return Limits{
		MaxBytes:           10 * 1024 * 1024,
		MinDimension:       10,
		MaxDimension:       10000,
		MaxOutputDimension: 2000,
		JPEGQuality:        85,
	}
}

// Result is a validated, normalized image ready for durable storage.
type Result struct {
	Bytes          []byte
	Width          int
	Height         int
	SourceFormat   string
	ContentType    string
}

// Pipeline runs the validation sequence and the normalizing transform.
type Pipeline struct {
	limits Limits
	log    zerolog.Logger
}

func New(limits Limits, log zerolog.Logger) *Pipeline {
	if limits.MaxBytes <= 0 {
		limits = DefaultLimits()
	}
	return &Pipeline{
		limits: limits,
		log:    log.With().Str("component", "image-pipeline").Logger(),
	}
}

// Validate runs the fixed check sequence. Order matters and each check
// short-circuits: size, decodability, structural integrity, format
// allow-list, pixel dimensions.
func (p *Pipeline) Validate(data []byte, filename string) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", failf(ReasonEmptyInput, "file is empty")
	}
	if int64(len(data)) > p.limits.MaxBytes {
		return nil, "", failf(ReasonTooLarge, "file too large: %d bytes (max %d)", len(data), p.limits.MaxBytes)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", failf(ReasonInvalidImage, "invalid image file: %v", err)
	}

	// Structural pass: a full decode catches truncated or corrupted streams
	// that the header parse above accepts. Decoding consumes the reader, so
	// the stream is re-opened for it.
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", failf(ReasonCorruptedImage, "corrupted image file: %v", err)
	}

	if _, ok := allowedFormats[format]; !ok {
		return nil, "", failf(ReasonUnsupportedFormat, "unsupported format: %s. Allowed: %s", strings.ToUpper(format), allowedFormatList())
	}

	if cfg.Width < p.limits.MinDimension || cfg.Height < p.limits.MinDimension {
		return nil, "", failf(ReasonTooSmall, "image too small: %dx%d (minimum %dx%d)",
			cfg.Width, cfg.Height, p.limits.MinDimension, p.limits.MinDimension)
	}
	if cfg.Width > p.limits.MaxDimension || cfg.Height > p.limits.MaxDimension {
		return nil, "", failf(ReasonTooLarge, "image too large: %dx%d (maximum %dx%d)",
			cfg.Width, cfg.Height, p.limits.MaxDimension, p.limits.MaxDimension)
	}

	p.log.Debug().
		Str("filename", filename).
		Str("format", format).
		Int("width", cfg.Width).
		Int("height", cfg.Height).
		Int("bytes", len(data)).
		Msg("validated photo")

	return img, format, nil
}

// Transform downscales oversized images preserving aspect ratio and
// flattens any alpha or palette onto an opaque white background. Images
// already opaque and within bounds pass through unchanged.
func (p *Pipeline) Transform(img image.Image) image.Image {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	if width > p.limits.MaxOutputDimension || height > p.limits.MaxOutputDimension {
		// Fit scales by min(max/w, max/h) with Lanczos resampling.
		img = imaging.Fit(img, p.limits.MaxOutputDimension, p.limits.MaxOutputDimension, imaging.Lanczos)
	}

	if hasAlpha(img) {
		bg := imaging.New(img.Bounds().Dx(), img.Bounds().Dy(), whiteOpaque)
		img = imaging.Overlay(bg, img, image.Pt(0, 0), 1.0)
	}

	return img
}

// Process runs validate, transform, and the canonical JPEG encode.
func (p *Pipeline) Process(data []byte, filename string) (*Result, error) {
	img, format, err := p.Validate(data, filename)
	if err != nil {
		return nil, err
	}

	img = p.Transform(img)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(p.limits.JPEGQuality)); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}

	bounds := img.Bounds()
	return &Result{
		Bytes:        buf.Bytes(),
		Width:        bounds.Dx(),
		Height:       bounds.Dy(),
		SourceFormat: format,
		ContentType:  "image/jpeg",
	}, nil
}
