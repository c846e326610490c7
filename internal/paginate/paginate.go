// Package paginate splits a rasterized surface into page-sized horizontal
// bands. Planning depends only on the surface dimensions and the page format,
// so identical inputs always produce identical plans.
package paginate

import (
	"fmt"
	"math"

	"github.com/local/cvexport/internal/exporterr"
	"github.com/local/cvexport/internal/surface"
)

// floorTolerance absorbs float error in heightUnits/scale when the ratio is
// integral in exact arithmetic (e.g. 300/0.2 evaluating to 1499.9999...).
const floorTolerance = 1e-9

// PageSlice is one contiguous band of source rows destined for one page.
type PageSlice struct {
	Index        int     `json:"index"`
	SourceYStart int     `json:"source_y_start"`
	SourceYEnd   int     `json:"source_y_end"`
	DestX        float64 `json:"dest_x"`
	DestY        float64 `json:"dest_y"`
}

// Height is the number of source rows in the slice.
func (s PageSlice) Height() int { return s.SourceYEnd - s.SourceYStart }

// Plan is the ordered set of slices covering [0, Size.Height) exactly once.
type Plan struct {
	Size        surface.Size `json:"size"`
	Format      PageFormat   `json:"format"`
	Scale       Scale        `json:"scale"`
	SliceHeight int          `json:"slice_height"`
	Slices      []PageSlice  `json:"slices"`
}

// PageCount is the number of output pages the plan produces.
func (p Plan) PageCount() int { return len(p.Slices) }

// SliceHeight returns how many source rows fit on one page at scale.
func SliceHeight(f PageFormat, scale Scale) (int, error) {
	if scale <= 0 || math.IsNaN(float64(scale)) || math.IsInf(float64(scale), 0) {
		return 0, exporterr.Newf(exporterr.KindDegenerateScale, "slice height", "scale %v", float64(scale))
	}
	h := math.Floor(f.Height/float64(scale) + floorTolerance)
	if h < 1 {
		return 0, exporterr.Newf(exporterr.KindDegenerateScale, "slice height",
			"page height %g at scale %g holds no full source row", f.Height, float64(scale))
	}
	if h > math.MaxInt32 {
		h = math.MaxInt32
	}
	return int(h), nil
}

// Paginate walks the surface top to bottom in steps of one page height.
// Every slice is drawn at the top-left of its own page; the last slice may
// be shorter than the rest but never empty.
func Paginate(size surface.Size, f PageFormat, scale Scale) (Plan, error) {
	if size.Empty() {
		return Plan{}, exporterr.Newf(exporterr.KindInvalidSurface, "paginate", "surface is %s", size)
	}
	step, err := SliceHeight(f, scale)
	if err != nil {
		return Plan{}, err
	}

	count := (size.Height + step - 1) / step
	slices := make([]PageSlice, 0, count)
	for pos, idx := 0, 0; pos < size.Height; pos, idx = pos+step, idx+1 {
		end := pos + step
		if end > size.Height {
			end = size.Height
		}
		slices = append(slices, PageSlice{
			Index:        idx,
			SourceYStart: pos,
			SourceYEnd:   end,
		})
	}

	return Plan{
		Size:        size,
		Format:      f,
		Scale:       scale,
		SliceHeight: step,
		Slices:      slices,
	}, nil
}

// PlanFor resolves the fit-width scale and paginates in one step.
func PlanFor(size surface.Size, f PageFormat) (Plan, error) {
	scale, err := ResolveScale(size, f)
	if err != nil {
		return Plan{}, err
	}
	return Paginate(size, f, scale)
}

// Validate checks that the slices are ordered, contiguous, non-empty, no
// taller than SliceHeight and cover the surface exactly.
func (p Plan) Validate() error {
	if len(p.Slices) == 0 {
		return fmt.Errorf("plan has no slices")
	}
	next := 0
	for i, s := range p.Slices {
		if s.Index != i {
			return fmt.Errorf("slice %d has index %d", i, s.Index)
		}
		if s.SourceYStart != next {
			return fmt.Errorf("slice %d starts at %d, want %d", i, s.SourceYStart, next)
		}
		if s.Height() <= 0 || (p.SliceHeight > 0 && s.Height() > p.SliceHeight) {
			return fmt.Errorf("slice %d has height %d (max %d)", i, s.Height(), p.SliceHeight)
		}
		next = s.SourceYEnd
	}
	if next != p.Size.Height {
		return fmt.Errorf("plan covers %d rows of %d", next, p.Size.Height)
	}
	return nil
}
