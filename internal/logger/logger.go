package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/axiomhq/axiom-go/axiom"
	"github.com/axiomhq/axiom-go/axiom/ingest"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"

	"github.com/local/cvexport/internal/config"
)

const serviceName = "cvexport"

// Options defines logger initialization parameters.
type Options struct {
	Level      string
	Pretty     bool
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool

	// Axiom
	SendToAxiom  bool
	AxiomAPIKey  string
	AxiomOrgID   string
	AxiomDataset string
	AxiomFlush   time.Duration

	// Console overrides stdout, mostly for tests.
	Console io.Writer
}

// OptionsFrom maps loaded configuration onto logger options.
func OptionsFrom(cfg config.Config) Options {
	return Options{
		Level:        cfg.Logging.Level,
		Pretty:       cfg.Logging.Pretty,
		File:         cfg.Logging.File,
		MaxSizeMB:    cfg.Logging.MaxSizeMB,
		MaxBackups:   cfg.Logging.MaxBackups,
		MaxAgeDays:   cfg.Logging.MaxAgeDays,
		Compress:     cfg.Logging.Compress,
		SendToAxiom:  cfg.Axiom.Send,
		AxiomAPIKey:  cfg.Axiom.APIKey,
		AxiomOrgID:   cfg.Axiom.OrgID,
		AxiomDataset: cfg.Axiom.Dataset,
		AxiomFlush:   cfg.Axiom.FlushInterval,
	}
}

var (
	mu     sync.Mutex
	global zerolog.Logger
	ax     *axiomClient
)

// Init sets up the global logger: file rotation, console, optional Axiom forwarding.
func Init(opts Options) error {
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return fmt.Errorf("create logs dir: %w", err)
		}
	}

	var writers []io.Writer
	if opts.File != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			Compress:   opts.Compress,
		})
	}

	console := opts.Console
	if console == nil {
		console = os.Stdout
	}
	if opts.Pretty {
		writers = append(writers, zerolog.ConsoleWriter{Out: console, TimeFormat: time.RFC3339})
	} else {
		writers = append(writers, console)
	}

	mu.Lock()
	defer mu.Unlock()

	// info+ only
	if opts.SendToAxiom && opts.AxiomAPIKey != "" {
		client, err := newAxiomClient(opts.AxiomAPIKey, opts.AxiomOrgID, opts.AxiomDataset, opts.AxiomFlush)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Axiom disabled: %v\n", err)
		} else {
			if ax != nil {
				_ = ax.Close()
			}
			ax = client
			writers = append(writers, &axiomWriter{client: client})
		}
	}

	zerolog.TimeFieldFormat = time.RFC3339
	lvl, err := zerolog.ParseLevel(opts.Level)
	if err != nil || opts.Level == "" {
		lvl = zerolog.InfoLevel
	}

	global = zerolog.New(io.MultiWriter(writers...)).
		Level(lvl).
		With().
		Timestamp().
		Str("service", serviceName).
		Logger()
	log.Logger = global
	return nil
}

// Close flushes any buffered external loggers. Events logged afterwards
// still reach the console and file but are no longer forwarded.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	if ax != nil {
		_ = ax.Close()
		ax = nil
	}
}

// Get returns the global logger.
func Get() *zerolog.Logger { return &global }

// ForDocument returns a child logger carrying the export's identifiers.
func ForDocument(documentID, jobID string) zerolog.Logger {
	ctx := log.Logger.With().Str("document_id", documentID)
	if jobID != "" {
		ctx = ctx.Str("job_id", jobID)
	}
	return ctx.Logger()
}

// axiomWriter forwards zerolog JSON lines to Axiom, dropping debug level.
type axiomWriter struct{ client *axiomClient }

func (w *axiomWriter) Write(p []byte) (int, error) {
	var ev map[string]interface{}
	if err := json.Unmarshal(p, &ev); err != nil {
		ev = map[string]interface{}{"message": string(p), "level": "info"}
	}
	if lvl, ok := ev["level"].(string); ok && (lvl == "debug" || lvl == "trace") {
		return len(p), nil
	}
	if _, ok := ev[ingest.TimestampField]; !ok {
		ev[ingest.TimestampField] = time.Now()
	}
	w.client.Send(axiom.Event(ev))
	return len(p), nil
}

type axiomClient struct {
	client  *axiom.Client
	dataset string
	ch      chan axiom.Event
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc

	// mu guards closed so no event is queued once the loop has flushed.
	mu     sync.RWMutex
	closed bool
}

func newAxiomClient(token, orgID, dataset string, flushEvery time.Duration) (*axiomClient, error) {
	if dataset == "" {
		dataset = "dev_" + serviceName
	}
	opts := []axiom.Option{axiom.SetToken(token)}
	if orgID != "" {
		opts = append(opts, axiom.SetOrganizationID(orgID))
	}
	c, err := axiom.NewClient(opts...)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	ac := &axiomClient{
		client:  c,
		dataset: dataset,
		ch:      make(chan axiom.Event, 1000),
		ctx:     ctx,
		cancel:  cancel,
	}
	if flushEvery <= 0 {
		flushEvery = 10 * time.Second
	}
	ac.wg.Add(1)
	go ac.loop(flushEvery)
	return ac, nil
}

func (a *axiomClient) Send(ev axiom.Event) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return
	}
	select {
	case a.ch <- ev:
	default:
		// buffer full, drop
	}
}

func (a *axiomClient) loop(flushEvery time.Duration) {
	defer a.wg.Done()
	ticker := time.NewTicker(flushEvery)
	defer ticker.Stop()
	batch := make([]axiom.Event, 0, 200)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		_, _ = a.client.IngestEvents(ctx, a.dataset, batch)
		cancel()
		batch = batch[:0]
	}
	for {
		select {
		case <-a.ctx.Done():
			flush()
			return
		case <-ticker.C:
			flush()
		case ev := <-a.ch:
			batch = append(batch, ev)
			if len(batch) >= 200 {
				flush()
			}
		}
	}
}

func (a *axiomClient) Close() error {
	a.mu.Lock()
	a.closed = true
	a.mu.Unlock()
	a.cancel()
	a.wg.Wait()
	return nil
}
