package statuscheck

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

type headFunc func(ctx context.Context) error

func (f headFunc) HeadBucket(ctx context.Context) error { return f(ctx) }

func TestSummaryAllHealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/json/version", r.URL.Path)
		_, _ = w.Write([]byte(`{"Browser":"HeadlessChrome"}`))
	}))
	defer srv.Close()

	c := New(Options{
		Redis:     pingFunc(func(context.Context) error { return nil }),
		S3:        headFunc(func(context.Context) error { return nil }),
		ChromeURL: strings.Replace(srv.URL, "http://", "ws://", 1) + "/devtools/browser/abc",
	})
	s := c.Summary(context.Background())
	assert.True(t, s.Redis.OK)
	assert.True(t, s.S3.OK)
	assert.True(t, s.Chrome.OK, s.Chrome.Message)
}

func TestSummaryFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(Options{
		Redis:     pingFunc(func(context.Context) error { return errors.New("connection refused") }),
		S3:        headFunc(func(context.Context) error { return errors.New(strings.Repeat("x", 300)) }),
		ChromeURL: srv.URL,
	})
	s := c.Summary(context.Background())
	assert.False(t, s.Redis.OK)
	assert.Equal(t, "connection refused", s.Redis.Message)
	assert.False(t, s.S3.OK)
	assert.Len(t, s.S3.Message, 120)
	assert.False(t, s.Chrome.OK)
	assert.Equal(t, "HTTP 502", s.Chrome.Message)
}

func TestUnconfiguredDependencies(t *testing.T) {
	c := New(Options{})
	c.lookPath = func(name string) (string, error) {
		if name == "chromium" {
			return "/usr/bin/chromium", nil
		}
		return "", errors.New("not found")
	}
	s := c.Summary(context.Background())
	assert.True(t, s.Redis.OK)
	assert.True(t, s.S3.OK)
	assert.True(t, s.Chrome.OK)
	assert.Contains(t, s.Chrome.Message, "chromium")

	c.lookPath = func(string) (string, error) { return "", errors.New("not found") }
	assert.False(t, c.Summary(context.Background()).Chrome.OK)
}

func TestDevtoolsVersionURL(t *testing.T) {
	u, err := devtoolsVersionURL("wss://chrome.internal:9222/devtools/browser/x?token=1")
	require.NoError(t, err)
	assert.Equal(t, "https://chrome.internal:9222/json/version", u)

	_, err = devtoolsVersionURL("ftp://nope")
	assert.Error(t, err)
}
