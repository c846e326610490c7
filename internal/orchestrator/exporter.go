package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/local/cvexport/internal/assemble"
	"github.com/local/cvexport/internal/exporterr"
	"github.com/local/cvexport/internal/logger"
	"github.com/local/cvexport/internal/metrics"
	"github.com/local/cvexport/internal/paginate"
	"github.com/local/cvexport/internal/pdfwriter"
	"github.com/local/cvexport/internal/rasterize"
	"github.com/local/cvexport/internal/store"
)

// ErrDocumentBusy is returned when the document already has an export in flight.
var ErrDocumentBusy = store.ErrLocked

// Locker serializes exports of one document.
type Locker interface {
	Acquire(ctx context.Context, documentID string) (store.Release, error)
}

// Request is one user-initiated export.
type Request struct {
	// JobID is generated when empty.
	JobID      string
	DocumentID string
	Subject    string
	View       rasterize.View
	// Format overrides the exporter's page format.
	Format *paginate.PageFormat
}

// Result is a finished export.
type Result struct {
	JobID    string
	FileName string
	PDF      []byte
	Pages    int
}

// Exporter runs capture, pagination, assembly and PDF writing for one
// request at a time per document.
type Exporter struct {
	Rasterizer rasterize.Rasterizer
	Writer     *pdfwriter.Writer
	Format     paginate.PageFormat
	Assemble   assemble.Options
	Locker     Locker
	Status     StatusStore
	Suffix     string
	Timeout    time.Duration
}

// Outcome is delivered once by Start when the background export ends.
type Outcome struct {
	Result Result
	Err    error
}

// Run executes the export. Any failure is terminal: the job is discarded,
// nothing partial is returned, and the error carries an exporterr kind.
// ErrDocumentBusy is returned without creating a job.
func (e *Exporter) Run(ctx context.Context, req Request) (Result, error) {
	req, release, err := e.acquire(ctx, req)
	if err != nil {
		return Result{}, err
	}
	defer release()
	return e.execute(ctx, req)
}

// Start takes the document lock and runs the export in the background,
// detached from ctx cancellation. The lock is held until the outcome is sent.
func (e *Exporter) Start(ctx context.Context, req Request) (string, <-chan Outcome, error) {
	req, release, err := e.acquire(ctx, req)
	if err != nil {
		return "", nil, err
	}
	done := make(chan Outcome, 1)
	go func() {
		defer close(done)
		defer release()
		res, err := e.execute(context.WithoutCancel(ctx), req)
		done <- Outcome{Result: res, Err: err}
	}()
	return req.JobID, done, nil
}

func (e *Exporter) acquire(ctx context.Context, req Request) (Request, func(), error) {
	if req.JobID == "" {
		req.JobID = uuid.NewString()
	}
	lg := logger.ForDocument(req.DocumentID, req.JobID)

	rel, err := e.Locker.Acquire(ctx, req.DocumentID)
	if err != nil {
		if errors.Is(err, store.ErrLocked) {
			metrics.IncLockRejected()
			lg.Warn().Msg("export rejected, document busy")
			return req, nil, ErrDocumentBusy
		}
		return req, nil, err
	}
	release := func() {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		if err := rel(rctx); err != nil {
			lg.Warn().Err(err).Msg("lock release failed")
		}
	}
	return req, release, nil
}

func (e *Exporter) execute(ctx context.Context, req Request) (Result, error) {
	lg := logger.ForDocument(req.DocumentID, req.JobID)
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	metrics.ExportStarted()
	defer metrics.ExportFinished()

	job := newJob(req.JobID, req.DocumentID, req.Subject)
	publish(ctx, e.Status, job, 0, nil)

	pdf, err := e.run(ctx, job, req, lg)
	if err != nil {
		job.fail(err)
		publish(ctx, e.Status, job, 0, nil)
		metrics.ExportFailed(string(job.Kind))
		lg.Error().
			Err(err).
			Str("kind", string(job.Kind)).
			Dur("duration", job.Ended.Sub(job.Started)).
			Msg("export failed")
		return Result{}, err
	}

	name := pdfwriter.FileName(req.Subject, e.Suffix)
	publish(ctx, e.Status, job, StateComplete.progress(), map[string]interface{}{"file_name": name})
	metrics.ExportSucceeded(job.Pages)
	lg.Info().
		Int("pages", job.Pages).
		Int("bytes", len(pdf)).
		Str("file_name", name).
		Dur("duration", job.Ended.Sub(job.Started)).
		Msg("export complete")
	return Result{JobID: job.ID, FileName: name, PDF: pdf, Pages: job.Pages}, nil
}

func (e *Exporter) run(ctx context.Context, job *ExportJob, req Request, lg zerolog.Logger) ([]byte, error) {
	step := func(to State) error {
		if err := job.advance(to); err != nil {
			return exporterr.New(exporterr.KindUnknown, "advance", err)
		}
		lg.Debug().Str("state", string(to)).Msg("export state")
		publish(ctx, e.Status, job, to.progress(), nil)
		return nil
	}

	if err := step(StateCapturing); err != nil {
		return nil, err
	}
	start := time.Now()
	if req.View.DocumentID == "" {
		req.View.DocumentID = req.DocumentID
	}
	surf, err := e.Rasterizer.Capture(ctx, req.View)
	metrics.ObserveStage("capture", time.Since(start))
	if err != nil {
		if exporterr.KindOf(err) == exporterr.KindUnknown {
			err = exporterr.New(exporterr.KindCaptureFailed, "capture", err)
		}
		return nil, err
	}
	if surf == nil {
		return nil, exporterr.Newf(exporterr.KindCaptureFailed, "capture", "rasterizer returned no surface")
	}

	if err := step(StatePaginating); err != nil {
		return nil, err
	}
	format := e.Format
	if req.Format != nil {
		format = *req.Format
	}
	start = time.Now()
	scale, err := paginate.ResolveScale(surf.Size(), format)
	if err != nil {
		return nil, err
	}
	plan, err := paginate.Paginate(surf.Size(), format, scale)
	metrics.ObserveStage("paginate", time.Since(start))
	if err != nil {
		return nil, err
	}
	lg.Info().
		Str("surface", surf.Size().String()).
		Str("format", format.String()).
		Float64("scale", float64(scale)).
		Int("slice_height", plan.SliceHeight).
		Int("pages", plan.PageCount()).
		Msg("pagination planned")

	if err := step(StateAssembling); err != nil {
		return nil, err
	}
	start = time.Now()
	doc := e.Writer.NewDocument()
	total := plan.PageCount()
	sink := assemble.SinkFunc(func(ctx context.Context, p assemble.Page) error {
		if err := doc.WritePage(ctx, p); err != nil {
			return err
		}
		progress := StateAssembling.progress() + 40*(p.Index+1)/total
		publish(ctx, e.Status, job, progress, map[string]interface{}{"pages_done": p.Index + 1, "pages_total": total})
		return nil
	})
	if err := assemble.Stream(ctx, surf, plan, e.Assemble, sink); err != nil {
		return nil, err
	}
	metrics.ObserveStage("assemble", time.Since(start))

	start = time.Now()
	pdf, err := doc.Finalize(ctx)
	metrics.ObserveStage("finalize", time.Since(start))
	if err != nil {
		return nil, err
	}

	job.Pages = doc.PageCount()
	if err := job.advance(StateComplete); err != nil {
		return nil, exporterr.New(exporterr.KindUnknown, "advance", err)
	}
	return pdf, nil
}
