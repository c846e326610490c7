// Package surface holds the rasterized snapshot of a document that an export
// paginates. A Surface is immutable after capture and owned by one export.
package surface

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"io"
)

// Size is the pixel extent of a surface.
type Size struct {
	Width  int
	Height int
}

// Empty reports whether either dimension is zero or negative.
func (s Size) Empty() bool { return s.Width <= 0 || s.Height <= 0 }

func (s Size) String() string { return fmt.Sprintf("%dx%d", s.Width, s.Height) }

// Surface is a read-only RGBA pixel buffer anchored at the origin.
type Surface struct {
	img *image.RGBA
}

// FromImage copies img into a new surface. The copy is what makes the
// surface independent of the live view that produced img.
func FromImage(img image.Image) *Surface {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return &Surface{img: dst}
}

// Blank returns a surface of the given size filled with c.
func Blank(w, h int, c color.Color) *Surface {
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: c}, image.Point{}, draw.Src)
	return &Surface{img: img}
}

// Decode reads a PNG or JPEG encoded bitmap.
func Decode(r io.Reader) (*Surface, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode surface: %w", err)
	}
	if rgba, ok := img.(*image.RGBA); ok && rgba.Bounds().Min == (image.Point{}) {
		return &Surface{img: rgba}, nil
	}
	return FromImage(img), nil
}

// DecodeBytes is Decode over an in-memory buffer.
func DecodeBytes(b []byte) (*Surface, error) {
	return Decode(bytes.NewReader(b))
}

// Width in pixels.
func (s *Surface) Width() int { return s.img.Bounds().Dx() }

// Height in pixels.
func (s *Surface) Height() int { return s.img.Bounds().Dy() }

// Size returns both dimensions.
func (s *Surface) Size() Size { return Size{Width: s.Width(), Height: s.Height()} }

// Image exposes the pixels for reading. Callers must not draw into it.
func (s *Surface) Image() image.Image { return s.img }

// Rows returns the full-width band [y0, y1) without copying.
func (s *Surface) Rows(y0, y1 int) (image.Image, error) {
	if y0 < 0 || y1 > s.Height() || y0 >= y1 {
		return nil, fmt.Errorf("rows [%d,%d) outside surface height %d", y0, y1, s.Height())
	}
	return s.img.SubImage(image.Rect(0, y0, s.Width(), y1)), nil
}
