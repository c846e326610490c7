package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/local/cvexport/internal/assemble"
	cfgpkg "github.com/local/cvexport/internal/config"
	"github.com/local/cvexport/internal/limiter"
	logpkg "github.com/local/cvexport/internal/logger"
	"github.com/local/cvexport/internal/metrics"
	"github.com/local/cvexport/internal/orchestrator"
	"github.com/local/cvexport/internal/paginate"
	"github.com/local/cvexport/internal/pdfwriter"
	"github.com/local/cvexport/internal/rasterize"
	"github.com/local/cvexport/internal/statuscheck"
	"github.com/local/cvexport/internal/storage"
	"github.com/local/cvexport/internal/store"
)

func main() {
	cfg := cfgpkg.Load()

	if err := logpkg.Init(logpkg.OptionsFrom(cfg)); err != nil {
		fmt.Fprintf(os.Stderr, "logger init: %v\n", err)
	}
	defer logpkg.Close()

	metrics.Init()

	format, err := pageFormat(cfg.Export)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid page format")
	}
	asm, err := assembleOptions(cfg.Export)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid assemble options")
	}

	// Status and locking: redis when configured, in-process otherwise
	var (
		status orchestrator.StatusStore
		locker orchestrator.Locker
		pinger statuscheck.Pinger
	)
	if cfg.RedisURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		rc, err := store.Connect(ctx, cfg.RedisURL)
		cancel()
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		rs := store.NewRedisStatus(rc, store.DefaultStatusTTL)
		defer rs.Close()
		status, locker, pinger = rs, store.NewRedisLocker(rc, cfg.Export.LockTTL), rs
	} else {
		log.Warn().Msg("REDIS_URL not set; using in-memory status and locks")
		status, locker = store.NewMemoryStatus(store.DefaultStatusTTL), store.NewMemoryLocker()
	}

	// Results: S3 when a bucket is configured, local directory otherwise
	var (
		results orchestrator.ResultStore = orchestrator.LocalResults{Dir: cfg.Results.Dir}
		bucket  statuscheck.BucketHeader
	)
	if cfg.Results.S3Bucket != "" {
		s3c, err := storage.NewS3Client(context.Background(), storage.Options{
			Bucket:    cfg.Results.S3Bucket,
			Prefix:    cfg.Results.S3Prefix,
			Region:    cfg.Results.AWSRegion,
			AccessKey: cfg.Results.AWSAccessKey,
			SecretKey: cfg.Results.AWSSecretKey,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to init s3 client")
		}
		results, bucket = orchestrator.S3Results{Client: s3c}, s3c
	}

	chrome := rasterize.NewChrome(rasterize.ChromeOptions{
		RemoteURL: cfg.Capture.ChromeURL,
		NoSandbox: cfg.Capture.NoSandbox,
		Width:     cfg.Capture.Width,
		Scale:     cfg.Capture.Scale,
		Selector:  cfg.Capture.Selector,
		Timeout:   cfg.Capture.Timeout,
	})
	defer chrome.Close()

	pdfColor := rasterize.ColorRGB
	if cfg.Capture.PDFGray {
		pdfColor = rasterize.ColorGray
	}

	exporter := &orchestrator.Exporter{
		Rasterizer: rasterize.Auto{
			HTML:  chrome,
			PDF:   rasterize.PDF{DPI: cfg.Capture.PDFDPI, Color: pdfColor},
			Image: rasterize.Image{},
			Limit: limiter.New(cfg.Capture.Concurrency),
		},
		Writer: pdfwriter.New(pdfwriter.Options{
			Format:      pdfwriter.ImageFormat(cfg.Export.ImageFormat),
			JPEGQuality: cfg.Export.JPEGQuality,
		}),
		Format:   format,
		Assemble: asm,
		Locker:   locker,
		Status:   status,
		Suffix:   cfg.Export.FilenameSuffix,
		Timeout:  cfg.Export.Timeout,
	}

	orch := orchestrator.New(orchestrator.Dependencies{
		Exporter: exporter,
		Status:   status,
		Results:  results,
		Health: statuscheck.New(statuscheck.Options{
			Redis:     pinger,
			S3:        bucket,
			ChromeURL: cfg.Capture.ChromeURL,
		}),
		TempDir:    cfg.Results.Dir,
		TempMaxAge: cfg.Results.CleanupMaxAge,
	})
	mux := http.NewServeMux()
	orch.RegisterRoutes(mux)

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		log.Info().
			Str("format", format.String()).
			Float64("dpi", asm.DPI).
			Bool("redis", cfg.RedisURL != "").
			Bool("s3", cfg.Results.S3Bucket != "").
			Msgf("HTTP server listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server error")
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	log.Info().Msg("shutdown complete")
}

func pageFormat(c cfgpkg.ExportConfig) (paginate.PageFormat, error) {
	unit, err := paginate.ParseUnit(c.PageUnit)
	if err != nil {
		return paginate.PageFormat{}, err
	}
	f := paginate.PageFormat{Width: c.PageWidth, Height: c.PageHeight, Unit: unit}
	if !f.Valid() {
		return paginate.PageFormat{}, fmt.Errorf("page format %s must have positive dimensions", f)
	}
	return f, nil
}

func assembleOptions(c cfgpkg.ExportConfig) (assemble.Options, error) {
	opts := assemble.Options{DPI: c.OutputDPI}
	if c.OutputDPI > 0 {
		interp, err := assemble.Interpolator(c.Resampler)
		if err != nil {
			return assemble.Options{}, err
		}
		opts.Interpolator = interp
	}
	return opts, nil
}
