// Package transform implements the image derivation pipeline:
// decode, bounded downscale, optional greyscale, JPEG re-encode.
//
// The pipeline is pure: identical input bytes and options always produce
// byte-identical output. Content-hash deduplication in the store depends on
// this holding across calls and across process restarts.
package transform

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/webp"
)

// Pipeline failure kinds. The HTTP layer maps each to a distinct 4xx/504
// response; none of these should ever surface as a generic 500.
var (
	ErrEmptyInput        = errors.New("empty image input")
	ErrUnsupportedFormat = errors.New("unsupported image format")
	ErrDecode            = errors.New("image decode failed")
	ErrTimeout           = errors.New("transform timed out")
)

// Supported input formats.
const (
	FormatJPEG = "jpeg"
	FormatPNG  = "png"
	FormatGIF  = "gif"
	FormatWebP = "webp"
)

// OutputContentType is the MIME type of every pipeline product.
const OutputContentType = "image/jpeg"

// Options control the per-request pipeline behavior.
type Options struct {
	Greyscale bool
}

// Result is the product of a successful transform.
type Result struct {
	Bytes       []byte
	ContentType string
	// Steps lists the operations applied, in order, for the image record.
	Steps []string
}

// Engine runs the transform pipeline with fixed policy parameters.
type Engine struct {
	maxDimension int
	jpegQuality  int
}

// NewEngine creates an Engine. maxDimension caps the longest image side;
// jpegQuality is the fixed output encoder quality (1-100).
func NewEngine(maxDimension, jpegQuality int) *Engine {
	return &Engine{
		maxDimension: maxDimension,
		jpegQuality:  jpegQuality,
	}
}

// Transform runs the full pipeline on data. The work is bounded by ctx: a
// pathological input that keeps the decoder busy past the deadline is reported
// as ErrTimeout. The worker goroutine is left to finish and be collected; its
// result is discarded.
func (e *Engine) Transform(ctx context.Context, data []byte, opts Options) (*Result, error) {
	if len(data) == 0 {
		return nil, ErrEmptyInput
	}

	type outcome struct {
		result *Result
		err    error
	}
	done := make(chan outcome, 1)

	go func() {
		result, err := e.run(data, opts)
		done <- outcome{result: result, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ErrTimeout
	case out := <-done:
		return out.result, out.err
	}
}

// run executes the pipeline synchronously.
func (e *Engine) run(data []byte, opts Options) (*Result, error) {
	src, err := decode(data)
	if err != nil {
		return nil, err
	}

	steps := make([]string, 0, 3)

	img, resized := e.downscale(src)
	if resized {
		steps = append(steps, fmt.Sprintf("resize:%d", e.maxDimension))
	}

	if opts.Greyscale {
		img = greyscale(img)
		steps = append(steps, "greyscale:bt601")
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: e.jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	steps = append(steps, fmt.Sprintf("jpeg:q%d", e.jpegQuality))

	return &Result{
		Bytes:       buf.Bytes(),
		ContentType: OutputContentType,
		Steps:       steps,
	}, nil
}

// decode sniffs the input format and decodes it with the matching decoder.
// Unknown magic bytes are ErrUnsupportedFormat; recognized but corrupt data
// is ErrDecode.
func decode(data []byte) (image.Image, error) {
	format, ok := SniffFormat(data)
	if !ok {
		return nil, ErrUnsupportedFormat
	}

	var (
		img image.Image
		err error
	)
	r := bytes.NewReader(data)

	switch format {
	case FormatJPEG:
		img, err = jpeg.Decode(r)
	case FormatPNG:
		img, err = png.Decode(r)
	case FormatGIF:
		// Animated GIFs collapse to their first frame.
		img, err = gif.Decode(r)
	case FormatWebP:
		img, err = webp.Decode(r)
	}

	if err != nil {
		return nil, fmt.Errorf("%w: %s: %s", ErrDecode, format, err)
	}
	return img, nil
}

// SniffFormat identifies the image format from magic bytes.
// Returns false for anything outside the supported set.
func SniffFormat(data []byte) (string, bool) {
	switch {
	case len(data) >= 3 && data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF:
		return FormatJPEG, true
	case len(data) >= 8 && bytes.Equal(data[:8], []byte("\x89PNG\r\n\x1a\n")):
		return FormatPNG, true
	case len(data) >= 6 && (bytes.Equal(data[:6], []byte("GIF87a")) || bytes.Equal(data[:6], []byte("GIF89a"))):
		return FormatGIF, true
	case len(data) >= 12 && bytes.Equal(data[:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WEBP")):
		return FormatWebP, true
	}
	return "", false
}

// downscale caps the longest side at maxDimension, preserving aspect ratio.
// Catmull-Rom resampling is fully deterministic. Images already within bounds
// pass through untouched (re-encode only).
func (e *Engine) downscale(src image.Image) (image.Image, bool) {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	if w <= e.maxDimension && h <= e.maxDimension {
		return src, false
	}

	var dw, dh int
	if w >= h {
		dw = e.maxDimension
		dh = h * e.maxDimension / w
	} else {
		dh = e.maxDimension
		dw = w * e.maxDimension / h
	}
	if dw < 1 {
		dw = 1
	}
	if dh < 1 {
		dh = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst, true
}

// greyscale converts every pixel to its ITU-R BT.601 luminance:
// Y = 0.299 R + 0.587 G + 0.114 B, computed in integer arithmetic with
// round-half-up. The output is a single-channel image, so the JPEG encoder
// emits a one-component stream.
func greyscale(src image.Image) *image.Gray {
	bounds := src.Bounds()
	dst := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := src.At(x, y).RGBA()
			// RGBA returns 16-bit channels; scale down before weighting.
			r8 := r >> 8
			g8 := g >> 8
			b8 := b >> 8
			lum := (299*r8 + 587*g8 + 114*b8 + 500) / 1000
			dst.SetGray(x-bounds.Min.X, y-bounds.Min.Y, color.Gray{Y: uint8(lum)})
		}
	}

	return dst
}
