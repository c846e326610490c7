// Package assemble draws each slice of a pagination plan onto its own page
// canvas and hands the pages, in plan order, to an append-only sink.
package assemble

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/image/draw"

	"github.com/local/cvexport/internal/exporterr"
	"github.com/local/cvexport/internal/paginate"
	"github.com/local/cvexport/internal/surface"
)

// Page is one finished output page: its physical size and its bitmap.
type Page struct {
	Index  int
	Width  float64
	Height float64
	Unit   paginate.Unit
	Bitmap *image.RGBA
}

// PageSink receives finished pages strictly in order. Writers behind it are
// usually append-only, so a page is never revisited once accepted.
type PageSink interface {
	WritePage(ctx context.Context, p Page) error
}

// SinkFunc adapts a function to PageSink.
type SinkFunc func(ctx context.Context, p Page) error

func (f SinkFunc) WritePage(ctx context.Context, p Page) error { return f(ctx, p) }

// Options tune the page raster.
type Options struct {
	// DPI of the page canvas. Zero keeps the source density, in which case
	// slices are copied without resampling.
	DPI float64
	// Interpolator used when a slice has to be resized. Nil means ApproxBiLinear.
	Interpolator draw.Interpolator
	// Background fills the canvas before the slice is placed. Nil means white.
	Background color.Color
}

// Interpolator maps a config name to an x/image/draw interpolator.
func Interpolator(name string) (draw.Interpolator, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "bilinear":
		return draw.ApproxBiLinear, nil
	case "nearest":
		return draw.NearestNeighbor, nil
	case "catmullrom":
		return draw.CatmullRom, nil
	}
	return nil, fmt.Errorf("unknown resampler %q", name)
}

// Assemble renders every slice of plan and returns the pages in order.
func Assemble(ctx context.Context, s *surface.Surface, plan paginate.Plan, opts Options) ([]Page, error) {
	pages := make([]Page, 0, plan.PageCount())
	err := Stream(ctx, s, plan, opts, SinkFunc(func(_ context.Context, p Page) error {
		pages = append(pages, p)
		return nil
	}))
	if err != nil {
		return nil, err
	}
	return pages, nil
}

// Stream renders slices one at a time and writes each page to sink before
// starting the next. ctx is checked between slices.
func Stream(ctx context.Context, s *surface.Surface, plan paginate.Plan, opts Options, sink PageSink) error {
	if s == nil {
		return exporterr.Newf(exporterr.KindAssemblyFailed, "assemble", "nil surface")
	}
	if plan.Size != s.Size() {
		return exporterr.Newf(exporterr.KindAssemblyFailed, "assemble", "plan for %s applied to surface %s", plan.Size, s.Size())
	}
	if err := plan.Validate(); err != nil {
		return exporterr.New(exporterr.KindAssemblyFailed, "assemble", err)
	}

	geo, err := newGeometry(plan, opts.DPI)
	if err != nil {
		return err
	}
	interp := opts.Interpolator
	if interp == nil {
		interp = draw.ApproxBiLinear
	}
	bg := opts.Background
	if bg == nil {
		bg = color.White
	}

	for _, sl := range plan.Slices {
		if err := ctx.Err(); err != nil {
			return exporterr.New(exporterr.KindAssemblyFailed, fmt.Sprintf("slice %d", sl.Index), err)
		}
		page, err := renderSlice(s, plan, sl, geo, interp, bg)
		if err != nil {
			return err
		}
		if err := sink.WritePage(ctx, page); err != nil {
			return exporterr.New(exporterr.KindAssemblyFailed, fmt.Sprintf("write page %d", sl.Index), err)
		}
		log.Debug().
			Int("page", sl.Index).
			Int("y_start", sl.SourceYStart).
			Int("y_end", sl.SourceYEnd).
			Int("canvas_w", geo.canvas.Dx()).
			Int("canvas_h", geo.canvas.Dy()).
			Msg("assembled page")
	}
	return nil
}

// geometry is the pixel layout shared by every page of one plan.
type geometry struct {
	pxPerUnit float64
	canvas    image.Rectangle
	native    bool
}

func newGeometry(plan paginate.Plan, dpi float64) (geometry, error) {
	f := plan.Format
	if dpi < 0 || math.IsNaN(dpi) {
		return geometry{}, exporterr.Newf(exporterr.KindAssemblyFailed, "assemble", "dpi %v", dpi)
	}
	if dpi == 0 {
		px := 1 / float64(plan.Scale)
		h := int(math.Round(f.Height * px))
		if h < plan.SliceHeight {
			h = plan.SliceHeight
		}
		return geometry{
			pxPerUnit: px,
			canvas:    image.Rect(0, 0, plan.Size.Width, h),
			native:    true,
		}, nil
	}
	px := dpi * f.Unit.InchesPer()
	w := int(math.Round(f.Width * px))
	h := int(math.Round(f.Height * px))
	if w < 1 || h < 1 {
		return geometry{}, exporterr.Newf(exporterr.KindAssemblyFailed, "assemble", "page %s at %g dpi is empty", f, dpi)
	}
	return geometry{pxPerUnit: px, canvas: image.Rect(0, 0, w, h)}, nil
}

func renderSlice(s *surface.Surface, plan paginate.Plan, sl paginate.PageSlice, geo geometry, interp draw.Interpolator, bg color.Color) (Page, error) {
	op := fmt.Sprintf("slice %d", sl.Index)
	src, err := s.Rows(sl.SourceYStart, sl.SourceYEnd)
	if err != nil {
		return Page{}, exporterr.New(exporterr.KindAssemblyFailed, op, err)
	}

	canvas := image.NewRGBA(geo.canvas)
	draw.Draw(canvas, canvas.Bounds(), &image.Uniform{C: bg}, image.Point{}, draw.Src)

	x0 := int(math.Round(sl.DestX * geo.pxPerUnit))
	y0 := int(math.Round(sl.DestY * geo.pxPerUnit))
	var dst image.Rectangle
	if geo.native {
		dst = image.Rect(x0, y0, x0+plan.Size.Width, y0+sl.Height())
	} else {
		w := int(math.Round(plan.Scale.Units(plan.Size.Width) * geo.pxPerUnit))
		h := int(math.Round(plan.Scale.Units(sl.Height()) * geo.pxPerUnit))
		if h < 1 {
			h = 1
		}
		dst = image.Rect(x0, y0, x0+w, y0+h)
	}
	if !dst.In(canvas.Bounds()) {
		clipped := dst.Intersect(canvas.Bounds())
		// rounding may overshoot the canvas by a pixel; more means a broken plan
		if clipped.Empty() || dst.Dx()-clipped.Dx() > 1 || dst.Dy()-clipped.Dy() > 1 {
			return Page{}, exporterr.Newf(exporterr.KindAssemblyFailed, op, "destination %v outside page %v", dst, canvas.Bounds())
		}
		dst = clipped
	}

	sr := src.Bounds()
	if dst.Dx() == sr.Dx() && dst.Dy() == sr.Dy() {
		draw.Draw(canvas, dst, src, sr.Min, draw.Src)
	} else {
		interp.Scale(canvas, dst, src, sr, draw.Src, nil)
	}

	return Page{
		Index:  sl.Index,
		Width:  plan.Format.Width,
		Height: plan.Format.Height,
		Unit:   plan.Format.Unit,
		Bitmap: canvas,
	}, nil
}
