package service

import (
	"bytes"
	"context"
	"log"

	"github.com/disintegration/imaging"
	"github.com/mediadepot/api/internal/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// TransformOptions controls the image transform stage
type TransformOptions struct {
	MaxWidth  int
	MaxHeight int
	Quality   int // JPEG quality factor, 0-100
}

// TransformResult carries the (possibly rewritten) buffer plus before/after
// byte counts for observability.
type TransformResult struct {
	Buffer   []byte
	MimeType string
	BytesIn  int
	BytesOut int
	Applied  bool
}

// Transformer is the optional content transformation applied to a buffer
// before upload
type Transformer interface {
	Transform(ctx context.Context, buffer []byte, mimeType string, opts TransformOptions) TransformResult
}

// ImageTransformer resizes and recompresses raster images. It is strictly
// fail-open: any decode/encode failure, including a panic inside the codec,
// returns the original buffer untouched. A transform failure forgoes
// optimization, never blocks an upload.
type ImageTransformer struct {
	bytesIn  metric.Int64Counter
	bytesOut metric.Int64Counter
}

// NewImageTransformer creates a new image transformer
func NewImageTransformer() *ImageTransformer {
	meter := otel.Meter("mediadepot-transform")
	bytesIn, _ := meter.Int64Counter("transform.bytes.in",
		metric.WithDescription("Bytes entering the image transform stage"))
	bytesOut, _ := meter.Int64Counter("transform.bytes.out",
		metric.WithDescription("Bytes leaving the image transform stage"))

	return &ImageTransformer{
		bytesIn:  bytesIn,
		bytesOut: bytesOut,
	}
}

// Transform resizes the image when either dimension exceeds the configured
// maximum (preserving aspect ratio) and re-encodes at the configured
// quality. Animated formats pass through unmodified.
func (t *ImageTransformer) Transform(ctx context.Context, buffer []byte, mimeType string, opts TransformOptions) (result TransformResult) {
	passthrough := TransformResult{
		Buffer:   buffer,
		MimeType: mimeType,
		BytesIn:  len(buffer),
		BytesOut: len(buffer),
	}
	result = passthrough

	defer func() {
		if r := recover(); r != nil {
			log.Printf("transform: recovered from panic (%v), passing original through", r)
			result = passthrough
		}
		t.bytesIn.Add(ctx, int64(result.BytesIn))
		t.bytesOut.Add(ctx, int64(result.BytesOut),
			metric.WithAttributes(attribute.Bool("transform.applied", result.Applied)))
	}()

	ext := domain.ResolveExtension(mimeType, "")
	if !domain.IsTransformableType(ext) {
		// gif/webp keep their animation, everything else is not an image
		return result
	}

	img, err := imaging.Decode(bytes.NewReader(buffer))
	if err != nil {
		log.Printf("transform: decode failed (%v), passing original through", err)
		return result
	}

	bounds := img.Bounds()
	resized := false
	if (opts.MaxWidth > 0 && bounds.Dx() > opts.MaxWidth) ||
		(opts.MaxHeight > 0 && bounds.Dy() > opts.MaxHeight) {
		img = imaging.Fit(img, opts.MaxWidth, opts.MaxHeight, imaging.Lanczos)
		resized = true
	}

	quality := opts.Quality
	if quality <= 0 || quality > 100 {
		quality = 82
	}

	var encoded bytes.Buffer
	switch ext {
	case "jpg", "jpeg":
		err = imaging.Encode(&encoded, img, imaging.JPEG, imaging.JPEGQuality(quality))
	case "png":
		err = imaging.Encode(&encoded, img, imaging.PNG)
	}
	if err != nil {
		log.Printf("transform: encode failed (%v), passing original through", err)
		return result
	}

	// Re-encoding alone is only worth keeping when it actually shrank the
	// buffer; a resize is kept regardless.
	if !resized && encoded.Len() >= len(buffer) {
		return result
	}

	result.Buffer = encoded.Bytes()
	result.BytesOut = encoded.Len()
	result.Applied = true
	return result
}
