package statuscheck

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os/exec"
	"strings"
	"time"
)

// Pinger models the minimal Redis capability we need for status checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

// BucketHeader is satisfied by the S3 storage client.
type BucketHeader interface {
	HeadBucket(ctx context.Context) error
}

// Checker aggregates health checks for the export service's dependencies.
type Checker struct {
	redis      Pinger
	s3         BucketHeader
	chromeURL  string
	httpClient *http.Client
	lookPath   func(string) (string, error)
}

// Options configures the Checker. Nil dependencies report as not configured.
type Options struct {
	Redis      Pinger
	S3         BucketHeader
	ChromeURL  string
	HTTPClient *http.Client
}

// Status represents the readiness of a subsystem.
type Status struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// Summary bundles all subsystem statuses.
type Summary struct {
	Redis  Status `json:"redis"`
	S3     Status `json:"s3"`
	Chrome Status `json:"chrome"`
}

var chromeBinaries = []string{"google-chrome", "google-chrome-stable", "chromium", "chromium-browser", "headless-shell"}

// New creates a new Checker with the provided options.
func New(opts Options) *Checker {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &Checker{
		redis:      opts.Redis,
		s3:         opts.S3,
		chromeURL:  strings.TrimSpace(opts.ChromeURL),
		httpClient: client,
		lookPath:   exec.LookPath,
	}
}

// Summary returns the current status snapshot.
func (c *Checker) Summary(ctx context.Context) Summary {
	return Summary{
		Redis:  c.checkRedis(ctx),
		S3:     c.checkS3(ctx),
		Chrome: c.checkChrome(ctx),
	}
}

func (c *Checker) checkRedis(ctx context.Context) Status {
	if c.redis == nil {
		return Status{OK: true, Message: "Not configured (in-memory)"}
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := c.redis.Ping(ctx); err != nil {
		return Status{OK: false, Message: trimError(err)}
	}
	return Status{OK: true, Message: "Connected"}
}

func (c *Checker) checkS3(ctx context.Context) Status {
	if c.s3 == nil {
		return Status{OK: true, Message: "Not configured (local results)"}
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := c.s3.HeadBucket(ctx); err != nil {
		return Status{OK: false, Message: trimError(err)}
	}
	return Status{OK: true, Message: "Connected"}
}

func (c *Checker) checkChrome(ctx context.Context) Status {
	if c.chromeURL == "" {
		for _, name := range chromeBinaries {
			if _, err := c.lookPath(name); err == nil {
				return Status{OK: true, Message: "Binary found: " + name}
			}
		}
		return Status{OK: false, Message: "Binary not found"}
	}

	endpoint, err := devtoolsVersionURL(c.chromeURL)
	if err != nil {
		return Status{OK: false, Message: trimError(err)}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Status{OK: false, Message: trimError(err)}
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Status{OK: false, Message: trimError(err)}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return Status{OK: false, Message: fmt.Sprintf("HTTP %d", resp.StatusCode)}
	}
	return Status{OK: true, Message: "Available"}
}

// devtoolsVersionURL maps a ws:// or http:// DevTools address to its
// /json/version endpoint.
func devtoolsVersionURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "ws":
		u.Scheme = "http"
	case "wss":
		u.Scheme = "https"
	case "http", "https":
	default:
		return "", fmt.Errorf("unsupported chrome url scheme %q", u.Scheme)
	}
	u.Path = "/json/version"
	u.RawQuery = ""
	return u.String(), nil
}

func trimError(err error) string {
	if err == nil {
		return ""
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout"
	}
	msg := err.Error()
	if len(msg) > 120 {
		return msg[:120]
	}
	return msg
}
