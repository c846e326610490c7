package paginate

import (
	"github.com/local/cvexport/internal/exporterr"
	"github.com/local/cvexport/internal/surface"
)

// Scale maps source pixels to output units: units = pixels * scale.
type Scale float64

// Units converts a pixel length to output units.
func (s Scale) Units(px int) float64 { return float64(px) * float64(s) }

// ResolveScale picks the fit-width scale: the scaled surface spans the page
// width exactly and only its height decides how many pages are needed.
func ResolveScale(size surface.Size, f PageFormat) (Scale, error) {
	if size.Empty() {
		return 0, exporterr.Newf(exporterr.KindInvalidSurface, "resolve scale", "surface is %s", size)
	}
	if !f.Valid() {
		return 0, exporterr.Newf(exporterr.KindDegenerateScale, "resolve scale", "page format %s", f)
	}
	return Scale(f.Width / float64(size.Width)), nil
}
