// Package rasterize turns a document view (HTML, PDF or an already rendered
// bitmap) into an immutable surface.Surface. Each call is a one-shot capture.
package rasterize

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/local/cvexport/internal/exporterr"
	"github.com/local/cvexport/internal/limiter"
	"github.com/local/cvexport/internal/surface"
)

// View is the captured content of a document at the moment of export.
type View struct {
	DocumentID string
	Content    []byte
	// MIME is optional; when empty the content is sniffed.
	MIME string
}

// Rasterizer captures a view into a surface.
type Rasterizer interface {
	Capture(ctx context.Context, v View) (*surface.Surface, error)
}

// Func adapts a function to Rasterizer.
type Func func(ctx context.Context, v View) (*surface.Surface, error)

func (f Func) Capture(ctx context.Context, v View) (*surface.Surface, error) { return f(ctx, v) }

// Image decodes PNG or JPEG content as-is.
type Image struct{}

func (Image) Capture(_ context.Context, v View) (*surface.Surface, error) {
	if len(v.Content) == 0 {
		return nil, exporterr.Newf(exporterr.KindCaptureFailed, "decode image", "empty content")
	}
	s, err := surface.DecodeBytes(v.Content)
	if err != nil {
		return nil, exporterr.New(exporterr.KindCaptureFailed, "decode image", err)
	}
	return s, nil
}

// Auto routes a view to the rasterizer for its detected kind. A nil field
// makes that kind unsupported. When Limit is set, concurrent captures are
// bounded per kind.
type Auto struct {
	HTML  Rasterizer
	PDF   Rasterizer
	Image Rasterizer
	Limit *limiter.Limiter
}

func (a Auto) Capture(ctx context.Context, v View) (*surface.Surface, error) {
	info := Detect(v.Content, v.MIME)
	var r Rasterizer
	switch info.Kind {
	case KindHTML:
		r = a.HTML
	case KindPDF:
		r = a.PDF
	case KindImage:
		r = a.Image
	}
	if r == nil {
		return nil, exporterr.Newf(exporterr.KindCaptureFailed, "capture",
			"unsupported content type %s", info.MIMEType)
	}

	log.Debug().
		Str("document_id", v.DocumentID).
		Str("mime", info.MIMEType).
		Str("kind", string(info.Kind)).
		Int("bytes", len(v.Content)).
		Msg("capturing document view")

	if a.Limit != nil {
		release, err := a.Limit.Acquire(ctx, string(info.Kind))
		if err != nil {
			return nil, exporterr.New(exporterr.KindCaptureFailed, "wait for capture slot", err)
		}
		defer release()
	}

	s, err := r.Capture(ctx, v)
	if err != nil {
		if exporterr.KindOf(err) == exporterr.KindUnknown {
			err = exporterr.New(exporterr.KindCaptureFailed, fmt.Sprintf("capture %s", info.Kind), err)
		}
		return nil, err
	}
	if s == nil || s.Size().Empty() {
		return nil, exporterr.Newf(exporterr.KindCaptureFailed, "capture", "rasterizer returned an empty surface")
	}
	return s, nil
}
