package rasterize

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/gen2brain/go-fitz"
	"github.com/rs/zerolog/log"

	"github.com/local/cvexport/internal/exporterr"
	"github.com/local/cvexport/internal/surface"
)

// ColorMode selects the pixel model of a rendered PDF.
type ColorMode string

const (
	ColorRGB  ColorMode = "rgb"
	ColorGray ColorMode = "gray"
)

const defaultPDFDPI = 150.0

// PDF renders every page of a PDF document with MuPDF and stacks them top
// to bottom into one surface. Pages narrower than the widest are left
// aligned on white.
type PDF struct {
	DPI   float64
	Color ColorMode
}

func (p PDF) Capture(ctx context.Context, v View) (*surface.Surface, error) {
	if len(v.Content) == 0 {
		return nil, exporterr.Newf(exporterr.KindCaptureFailed, "pdf capture", "empty content")
	}
	dpi := p.DPI
	if dpi <= 0 {
		dpi = defaultPDFDPI
	}

	doc, err := fitz.NewFromMemory(v.Content)
	if err != nil {
		return nil, exporterr.New(exporterr.KindCaptureFailed, "open pdf", err)
	}
	defer doc.Close()

	n := doc.NumPage()
	if n <= 0 {
		return nil, exporterr.Newf(exporterr.KindCaptureFailed, "open pdf", "document has no pages")
	}

	pages := make([]image.Image, 0, n)
	width, height := 0, 0
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, exporterr.New(exporterr.KindCaptureFailed, "pdf capture", err)
		}
		// go-fitz uses 0-based page indexing
		img, err := doc.ImageDPI(i, dpi)
		if err != nil {
			return nil, exporterr.New(exporterr.KindCaptureFailed, fmt.Sprintf("render page %d", i+1), err)
		}
		b := img.Bounds()
		if b.Dx() > width {
			width = b.Dx()
		}
		height += b.Dy()
		pages = append(pages, img)
		log.Debug().
			Str("document_id", v.DocumentID).
			Int("page", i+1).
			Int("width", b.Dx()).
			Int("height", b.Dy()).
			Float64("dpi", dpi).
			Msg("rendered pdf page")
	}

	return surface.FromImage(stackVertical(pages, width, height, p.Color)), nil
}

func stackVertical(pages []image.Image, width, height int, mode ColorMode) image.Image {
	var dst draw.Image
	if mode == ColorGray {
		dst = image.NewGray(image.Rect(0, 0, width, height))
	} else {
		dst = image.NewRGBA(image.Rect(0, 0, width, height))
	}
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)

	y := 0
	for _, img := range pages {
		b := img.Bounds()
		draw.Draw(dst, image.Rect(0, y, b.Dx(), y+b.Dy()), img, b.Min, draw.Src)
		y += b.Dy()
	}
	return dst
}
