package domain

import (
	"fmt"
	"image/color"
	"strings"
)

// Color is one of the named outline colours accepted at the API boundary.
type Color string

const (
	ColorRed    Color = "red"
	ColorGreen  Color = "green"
	ColorBlue   Color = "blue"
	ColorOrange Color = "orange"
	ColorYellow Color = "yellow"
	ColorPurple Color = "purple"
	ColorPink   Color = "pink"
	ColorBrown  Color = "brown"
	ColorBlack  Color = "black"
	ColorWhite  Color = "white"
	ColorGold   Color = "gold"
	ColorSilver Color = "silver"
)

// SVG named colour values.
var palette = map[Color]color.RGBA{
	ColorRed:    {R: 0xff, A: 0xff},
	ColorGreen:  {G: 0x80, A: 0xff},
	ColorBlue:   {B: 0xff, A: 0xff},
	ColorOrange: {R: 0xff, G: 0xa5, A: 0xff},
	ColorYellow: {R: 0xff, G: 0xff, A: 0xff},
	ColorPurple: {R: 0x80, B: 0x80, A: 0xff},
	ColorPink:   {R: 0xff, G: 0xc0, B: 0xcb, A: 0xff},
	ColorBrown:  {R: 0xa5, G: 0x2a, B: 0x2a, A: 0xff},
	ColorBlack:  {A: 0xff},
	ColorWhite:  {R: 0xff, G: 0xff, B: 0xff, A: 0xff},
	ColorGold:   {R: 0xff, G: 0xd7, A: 0xff},
	ColorSilver: {R: 0xc0, G: 0xc0, B: 0xc0, A: 0xff},
}

// Colors lists the accepted colours in their documented order.
var Colors = []Color{
	ColorRed, ColorGreen, ColorBlue, ColorOrange, ColorYellow, ColorPurple,
	ColorPink, ColorBrown, ColorBlack, ColorWhite, ColorGold, ColorSilver,
}

// ParseColor accepts a colour name in any letter case.
func ParseColor(s string) (Color, error) {
	c := Color(strings.ToLower(s))
	if _, ok := palette[c]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	return c, nil
}

// RGBA returns the colour value. Unknown colours map to opaque black.
func (c Color) RGBA() color.RGBA {
	if v, ok := palette[c]; ok {
		return v
	}
	return color.RGBA{A: 0xff}
}

// OverlaySpec draws one geometry outline in one colour.
type OverlaySpec struct {
	Geometry Geometry
	Color    Color
}

// ImageFormat is the encoding of a served image.
type ImageFormat string

const (
	FormatJPEG ImageFormat = "jpeg"
	FormatPNG  ImageFormat = "png"
)

// ContentType returns the MIME type for the format.
func (f ImageFormat) ContentType() string {
	if f == FormatPNG {
		return "image/png"
	}
	return "image/jpeg"
}

// RasterImage is an encoded image with its decoded dimensions.
type RasterImage struct {
	Data    []byte
	Width   int
	Height  int
	Format  ImageFormat
	Drawn   int // overlays composited
	Skipped int // overlays skipped for unsupported geometry
}

// ImageOptions are the already-validated overlay choices of a display request.
type ImageOptions struct {
	Overlay       bool
	ParcelColor   *Color
	BuildingColor *Color
}
