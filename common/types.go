// package common contains common types that are used throughout this engine. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

import (
	"fmt"
	"image"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/draw"
)

// TextureStagingData holds RGBA pixel data for a texture pending GPU upload.
// The decoder produces one of these per animation frame and the texture bridge consumes it.
type TextureStagingData struct {
	// Pixels is the byte slice representing the actual pixel data for the texture. It should be in RGBA format, with 4 bytes per pixel,
	// row-major, top row first.
	Pixels []byte
	// Width is the width of the texture in pixels. This is required to correctly create the GPU texture and interpret the pixel data.
	Width uint32
	// Height is the height of the texture in pixels. This is required to correctly create the GPU texture and interpret the pixel data.
	Height uint32
}

// NewTextureStagingData copies the given image into a tightly packed RGBA staging buffer.
// The result always starts at the origin regardless of the image's bounds.
//
// Parameters:
//   - img: the source image
//
// Returns:
//   - TextureStagingData: the packed RGBA pixels and dimensions of img
func NewTextureStagingData(img image.Image) TextureStagingData {
	bounds := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)

	return TextureStagingData{
		Pixels: rgba.Pix,
		Width:  uint32(bounds.Dx()),
		Height: uint32(bounds.Dy()),
	}
}

// Validate reports whether the pixel buffer length matches the declared dimensions.
//
// Returns:
//   - error: an error describing the mismatch, or nil if the staging data is consistent
func (t TextureStagingData) Validate() error {
	if t.Width == 0 || t.Height == 0 {
		return fmt.Errorf("texture has zero size %dx%d", t.Width, t.Height)
	}
	if want := int(t.Width) * int(t.Height) * 4; len(t.Pixels) != want {
		return fmt.Errorf("texture pixel buffer is %d bytes, want %d for %dx%d RGBA", len(t.Pixels), want, t.Width, t.Height)
	}
	return nil
}

// Rect is an on-screen destination rectangle in window pixels, origin at the top-left corner.
type Rect struct {
	X, Y          int
	Width, Height int
}

// Empty reports whether the rectangle covers no pixels.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Tint is a packed 0xAARRGGBB color multiplied into a drawn texture.
// The sentinel NoTint (-1, i.e. 0xFFFFFFFF) draws the texture unmodified.
type Tint int32

// NoTint draws a texture with full white, leaving its pixels unchanged.
const NoTint Tint = -1

// NewTint packs 8-bit sRGB channels into a Tint.
//
// Parameters:
//   - r, g, b, a: the red, green, blue and alpha channels
//
// Returns:
//   - Tint: the packed 0xAARRGGBB tint
func NewTint(r, g, b, a uint8) Tint {
	return Tint(int32(uint32(a)<<24 | uint32(r)<<16 | uint32(g)<<8 | uint32(b)))
}

// ParseTint parses an opaque "#rrggbb" hex color. The words "none" and "" parse as NoTint.
//
// Parameters:
//   - s: the color to parse
//
// Returns:
//   - Tint: the parsed tint
//   - error: an error if s is not a hex color
func ParseTint(s string) (Tint, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "none") {
		return NoTint, nil
	}
	if !strings.HasPrefix(s, "#") {
		s = "#" + s
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return NoTint, fmt.Errorf("invalid color %q: %w", s, err)
	}
	r, g, b := c.RGB255()
	return NewTint(r, g, b, 0xFF), nil
}

// RGBA unpacks the tint into 8-bit sRGB channels.
//
// Returns:
//   - r, g, b, a: the red, green, blue and alpha channels
func (t Tint) RGBA() (r, g, b, a uint8) {
	v := uint32(t)
	return uint8(v >> 16), uint8(v >> 8), uint8(v), uint8(v >> 24)
}

// Linear converts the tint into linear-space float channels suitable for multiplying a sample
// taken from an sRGB texture in a shader. Alpha is passed through unchanged.
//
// Returns:
//   - [4]float32: linear red, green, blue and straight alpha in [0, 1]
func (t Tint) Linear() [4]float32 {
	if t == NoTint {
		return [4]float32{1, 1, 1, 1}
	}
	r, g, b, a := t.RGBA()
	c := colorful.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}
	lr, lg, lb := c.LinearRgb()
	return [4]float32{float32(lr), float32(lg), float32(lb), float32(a) / 255}
}
