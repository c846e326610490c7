// Package pdfwriter packs assembled page bitmaps into a PDF, one image per
// page, with the page box taken from the export's page format.
package pdfwriter

import (
	"bytes"
	"context"
	"fmt"
	"image/jpeg"
	"image/png"
	"io"
	"strings"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"github.com/rs/zerolog/log"

	"github.com/local/cvexport/internal/assemble"
	"github.com/local/cvexport/internal/exporterr"
)

// ImageFormat is the encoding used for page bitmaps inside the PDF.
type ImageFormat string

const (
	FormatPNG  ImageFormat = "png"
	FormatJPEG ImageFormat = "jpeg"
)

const defaultJPEGQuality = 90

// Options configures page image encoding.
type Options struct {
	Format      ImageFormat
	JPEGQuality int
}

// Writer builds PDFs. It holds no per-document state.
type Writer struct {
	opts Options
}

// New returns a writer with defaults applied.
func New(opts Options) *Writer {
	switch ImageFormat(strings.ToLower(string(opts.Format))) {
	case FormatJPEG, "jpg":
		opts.Format = FormatJPEG
	default:
		opts.Format = FormatPNG
	}
	if opts.JPEGQuality <= 0 || opts.JPEGQuality > 100 {
		opts.JPEGQuality = defaultJPEGQuality
	}
	return &Writer{opts: opts}
}

// Document collects encoded pages in order and produces the PDF on Finalize.
// It implements assemble.PageSink.
type Document struct {
	w        *Writer
	images   [][]byte
	widthPt  float64
	heightPt float64
	done     bool
}

// NewDocument starts an empty output document.
func (w *Writer) NewDocument() *Document { return &Document{w: w} }

// WritePage appends p. Pages must share one page size.
func (d *Document) WritePage(_ context.Context, p assemble.Page) error {
	if d.done {
		return fmt.Errorf("document already finalized")
	}
	if p.Index != len(d.images) {
		return fmt.Errorf("page %d written out of order, expected %d", p.Index, len(d.images))
	}
	if p.Bitmap == nil {
		return fmt.Errorf("page %d has no bitmap", p.Index)
	}
	k := p.Unit.PointsPer()
	w, h := p.Width*k, p.Height*k
	if len(d.images) == 0 {
		d.widthPt, d.heightPt = w, h
	} else if w != d.widthPt || h != d.heightPt {
		return fmt.Errorf("page %d is %gx%gpt, document pages are %gx%gpt", p.Index, w, h, d.widthPt, d.heightPt)
	}

	var buf bytes.Buffer
	var err error
	if d.w.opts.Format == FormatJPEG {
		err = jpeg.Encode(&buf, p.Bitmap, &jpeg.Options{Quality: d.w.opts.JPEGQuality})
	} else {
		err = png.Encode(&buf, p.Bitmap)
	}
	if err != nil {
		return fmt.Errorf("encode page %d: %w", p.Index, err)
	}
	d.images = append(d.images, buf.Bytes())
	return nil
}

// PageCount is the number of pages written so far.
func (d *Document) PageCount() int { return len(d.images) }

// Finalize writes the PDF and checks that it holds every page.
func (d *Document) Finalize(ctx context.Context) ([]byte, error) {
	if d.done {
		return nil, exporterr.Newf(exporterr.KindAssemblyFailed, "finalize pdf", "document already finalized")
	}
	d.done = true
	if len(d.images) == 0 {
		return nil, exporterr.Newf(exporterr.KindAssemblyFailed, "finalize pdf", "no pages")
	}
	if err := ctx.Err(); err != nil {
		return nil, exporterr.New(exporterr.KindAssemblyFailed, "finalize pdf", err)
	}

	start := time.Now()
	imp := pdfcpu.DefaultImportConfig()
	imp.PageDim = &types.Dim{Width: d.widthPt, Height: d.heightPt}
	imp.UserDim = true
	imp.Pos = types.TopLeft
	imp.Scale = 1
	imp.ScaleAbs = false

	readers := make([]io.Reader, len(d.images))
	for i, b := range d.images {
		readers[i] = bytes.NewReader(b)
	}

	conf := model.NewDefaultConfiguration()
	var out bytes.Buffer
	if err := api.ImportImages(nil, &out, readers, imp, conf); err != nil {
		return nil, exporterr.New(exporterr.KindAssemblyFailed, "finalize pdf", err)
	}

	n, err := api.PageCount(bytes.NewReader(out.Bytes()), model.NewDefaultConfiguration())
	if err != nil {
		return nil, exporterr.New(exporterr.KindAssemblyFailed, "verify pdf", err)
	}
	if n != len(d.images) {
		return nil, exporterr.Newf(exporterr.KindAssemblyFailed, "verify pdf", "pdf has %d pages, wrote %d", n, len(d.images))
	}

	log.Debug().
		Int("pages", n).
		Int("bytes", out.Len()).
		Str("image_format", string(d.w.opts.Format)).
		Dur("duration", time.Since(start)).
		Msg("pdf finalized")
	return out.Bytes(), nil
}

// Write is the one-shot form: pages in order in, PDF bytes out.
func (w *Writer) Write(ctx context.Context, pages []assemble.Page) ([]byte, error) {
	doc := w.NewDocument()
	for _, p := range pages {
		if err := doc.WritePage(ctx, p); err != nil {
			return nil, exporterr.New(exporterr.KindAssemblyFailed, "write pdf", err)
		}
	}
	return doc.Finalize(ctx)
}
