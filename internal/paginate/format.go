package paginate

import (
	"fmt"
	"strings"
)

// Unit is the physical unit a PageFormat is expressed in.
type Unit string

const (
	Millimeter Unit = "mm"
	Point      Unit = "pt"
	Inch       Unit = "in"
)

// PointsPer returns how many PDF points (1/72 in) one unit spans.
func (u Unit) PointsPer() float64 {
	switch u {
	case Point:
		return 1
	case Inch:
		return 72
	default:
		return 72 / 25.4
	}
}

// InchesPer returns how many inches one unit spans.
func (u Unit) InchesPer() float64 { return u.PointsPer() / 72 }

// ParseUnit accepts mm, pt and in (case-insensitive). Empty means millimeters.
func ParseUnit(s string) (Unit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "mm":
		return Millimeter, nil
	case "pt":
		return Point, nil
	case "in":
		return Inch, nil
	}
	return "", fmt.Errorf("unknown page unit %q", s)
}

// PageFormat is the target page size in output units.
type PageFormat struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Unit   Unit    `json:"unit,omitempty"`
}

// A4 portrait, the default export format.
var A4 = PageFormat{Width: 210, Height: 297, Unit: Millimeter}

// Letter portrait.
var Letter = PageFormat{Width: 8.5, Height: 11, Unit: Inch}

// Valid reports whether both dimensions are positive.
func (f PageFormat) Valid() bool { return f.Width > 0 && f.Height > 0 }

// WithDefaults fills a zero format with A4 and an empty unit with millimeters.
func (f PageFormat) WithDefaults() PageFormat {
	if f.Width == 0 && f.Height == 0 {
		return A4
	}
	if f.Unit == "" {
		f.Unit = Millimeter
	}
	return f
}

// Points returns the page box in PDF points.
func (f PageFormat) Points() (w, h float64) {
	k := f.Unit.PointsPer()
	return f.Width * k, f.Height * k
}

func (f PageFormat) String() string {
	u := f.Unit
	if u == "" {
		u = Millimeter
	}
	return fmt.Sprintf("%gx%g%s", f.Width, f.Height, u)
}
