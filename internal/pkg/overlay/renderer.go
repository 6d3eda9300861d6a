// Package overlay composites geometry outlines onto aerial images.
package overlay

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"

	"github.com/fogleman/gg"
	_ "golang.org/x/image/webp"

	"github.com/samirrijal/parcelview/internal/core/domain"
	"github.com/samirrijal/parcelview/internal/pkg/geospatial"
)

const (
	DefaultStrokeWidth = 3.0
	DefaultJPEGQuality = 90
	DefaultMaxPixels   = 64_000_000
)

// Options configures the output of a Renderer.
type Options struct {
	Format      domain.ImageFormat
	JPEGQuality int
	StrokeWidth float64
	// MaxPixels caps width*height of a base image before it is decoded.
	MaxPixels int
}

// Renderer draws overlay outlines. It holds no state between calls and is safe
// for concurrent use.
type Renderer struct {
	format      domain.ImageFormat
	quality     int
	strokeWidth float64
	maxPixels   int
}

// New creates a Renderer, filling unset options with defaults (JPEG, quality
// 90, 3px, 64M pixels).
func New(opts Options) *Renderer {
	r := &Renderer{
		format:      opts.Format,
		quality:     opts.JPEGQuality,
		strokeWidth: opts.StrokeWidth,
		maxPixels:   opts.MaxPixels,
	}
	if r.format != domain.FormatPNG {
		r.format = domain.FormatJPEG
	}
	if r.quality <= 0 || r.quality > 100 {
		r.quality = DefaultJPEGQuality
	}
	if r.strokeWidth <= 0 {
		r.strokeWidth = DefaultStrokeWidth
	}
	if r.maxPixels <= 0 {
		r.maxPixels = DefaultMaxPixels
	}
	return r
}

// Format returns the encoding every rendered image uses.
func (r *Renderer) Format() domain.ImageFormat {
	return r.format
}

// Render decodes base, strokes each spec's outer ring in order and encodes the
// result. Specs with unsupported geometry are skipped; an invalid bbox fails
// the whole call. With no specs the image is only re-encoded.
func (r *Renderer) Render(base []byte, bbox domain.BoundingBox, specs []domain.OverlaySpec) (*domain.RasterImage, error) {
	// decoders allocate the full pixel buffer from the header alone
	cfg, _, err := image.DecodeConfig(bytes.NewReader(base))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDecode, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > int64(r.maxPixels) {
		return nil, fmt.Errorf("%w: %dx%d image exceeds %d pixels", domain.ErrDecode, cfg.Width, cfg.Height, r.maxPixels)
	}

	src, _, err := image.Decode(bytes.NewReader(base))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDecode, err)
	}

	size := src.Bounds().Size()
	out := &domain.RasterImage{Width: size.X, Height: size.Y, Format: r.format}

	if len(specs) == 0 {
		return r.encode(src, out)
	}

	if err := bbox.Validate(); err != nil {
		return nil, err
	}

	paths := make([]outline, 0, len(specs))
	for _, spec := range specs {
		ring, err := domain.OuterRing(spec.Geometry)
		if errors.Is(err, domain.ErrUnsupportedGeometry) {
			out.Skipped++
			continue
		}
		if err != nil {
			return nil, err
		}

		px, err := geospatial.ProjectRing(ring, bbox, size.X, size.Y)
		if err != nil {
			return nil, err
		}
		paths = append(paths, outline{points: px, color: spec.Color})
	}

	// NewContextForImage copies src, so the decoded base stays untouched.
	dc := gg.NewContextForImage(src)
	dc.SetLineWidth(r.strokeWidth)
	dc.SetLineJoin(gg.LineJoinRound)
	for _, p := range paths {
		p.stroke(dc)
	}
	out.Drawn = len(paths)

	return r.encode(dc.Image(), out)
}

type outline struct {
	points []geospatial.Pixel
	color  domain.Color
}

// stroke draws the closed path; the last vertex joins back to the first.
func (o outline) stroke(dc *gg.Context) {
	dc.NewSubPath()
	for i, p := range o.points {
		if i == 0 {
			dc.MoveTo(p.X, p.Y)
			continue
		}
		dc.LineTo(p.X, p.Y)
	}
	dc.ClosePath()
	dc.SetColor(o.color.RGBA())
	dc.Stroke()
}

func (r *Renderer) encode(img image.Image, out *domain.RasterImage) (*domain.RasterImage, error) {
	var buf bytes.Buffer

	var err error
	switch r.format {
	case domain.FormatPNG:
		enc := png.Encoder{CompressionLevel: png.BestSpeed}
		err = enc.Encode(&buf, img)
	default:
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: r.quality})
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrEncode, err)
	}

	out.Data = buf.Bytes()
	return out, nil
}
