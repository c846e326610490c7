package pdfwriter

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/local/cvexport/internal/assemble"
	"github.com/local/cvexport/internal/exporterr"
	"github.com/local/cvexport/internal/paginate"
	"github.com/local/cvexport/internal/surface"
)

func assembled(t *testing.T, w, h int) []assemble.Page {
	t.Helper()
	s := surface.Blank(w, h, color.RGBA{R: 30, G: 60, B: 90, A: 255})
	plan, err := paginate.PlanFor(s.Size(), paginate.A4)
	require.NoError(t, err)
	pages, err := assemble.Assemble(context.Background(), s, plan, assemble.Options{})
	require.NoError(t, err)
	return pages
}

func pdfPages(t *testing.T, b []byte) int {
	t.Helper()
	n, err := api.PageCount(bytes.NewReader(b), model.NewDefaultConfiguration())
	require.NoError(t, err)
	return n
}

func TestWriteProducesOnePdfPagePerPage(t *testing.T) {
	for _, format := range []ImageFormat{FormatPNG, FormatJPEG} {
		t.Run(string(format), func(t *testing.T) {
			pages := assembled(t, 100, 450)
			require.Len(t, pages, 4)

			out, err := New(Options{Format: format}).Write(context.Background(), pages)
			require.NoError(t, err)
			assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
			assert.Equal(t, 4, pdfPages(t, out))
		})
	}
}

func TestDocumentAsPageSink(t *testing.T) {
	s := surface.Blank(50, 60, color.White)
	plan, err := paginate.PlanFor(s.Size(), paginate.A4)
	require.NoError(t, err)

	doc := New(Options{}).NewDocument()
	require.NoError(t, assemble.Stream(context.Background(), s, plan, assemble.Options{}, doc))
	assert.Equal(t, 1, doc.PageCount())

	out, err := doc.Finalize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, pdfPages(t, out))

	_, err = doc.Finalize(context.Background())
	assert.ErrorIs(t, err, exporterr.ErrAssemblyFailed)
	assert.Error(t, doc.WritePage(context.Background(), assemble.Page{}))
}

func TestDocumentRejectsBadPages(t *testing.T) {
	doc := New(Options{}).NewDocument()
	bmp := image.NewRGBA(image.Rect(0, 0, 4, 4))

	assert.Error(t, doc.WritePage(context.Background(), assemble.Page{Index: 1, Width: 210, Height: 297, Bitmap: bmp}), "out of order")
	assert.Error(t, doc.WritePage(context.Background(), assemble.Page{Index: 0, Width: 210, Height: 297}), "no bitmap")

	require.NoError(t, doc.WritePage(context.Background(), assemble.Page{Index: 0, Width: 210, Height: 297, Unit: paginate.Millimeter, Bitmap: bmp}))
	assert.Error(t, doc.WritePage(context.Background(), assemble.Page{Index: 1, Width: 8.5, Height: 11, Unit: paginate.Inch, Bitmap: bmp}), "size change")
}

func TestFinalizeEmptyAndCancelled(t *testing.T) {
	_, err := New(Options{}).Write(context.Background(), nil)
	assert.ErrorIs(t, err, exporterr.ErrAssemblyFailed)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = New(Options{}).Write(ctx, assembled(t, 10, 10))
	assert.ErrorIs(t, err, exporterr.ErrAssemblyFailed)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewDefaults(t *testing.T) {
	w := New(Options{Format: "JPG", JPEGQuality: 500})
	assert.Equal(t, FormatJPEG, w.opts.Format)
	assert.Equal(t, defaultJPEGQuality, w.opts.JPEGQuality)
	assert.Equal(t, FormatPNG, New(Options{Format: "tiff"}).opts.Format)
}
