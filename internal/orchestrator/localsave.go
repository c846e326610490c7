package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ResultStore keeps finished PDFs for later download.
type ResultStore interface {
	Save(ctx context.Context, jobID, fileName string, pdf []byte) (string, error)
	Open(ctx context.Context, ref string) ([]byte, error)
}

// LocalResults stores PDFs under Dir as {jobID}_{fileName}.
type LocalResults struct {
	Dir string
}

func (l LocalResults) dir() string {
	if l.Dir == "" {
		return filepath.Join("uploads", "results")
	}
	return l.Dir
}

// Save writes the PDF atomically and returns its path.
func (l LocalResults) Save(_ context.Context, jobID, fileName string, pdf []byte) (string, error) {
	dir := l.dir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create result dir: %w", err)
	}
	p := filepath.Join(dir, fmt.Sprintf("%s_%s", jobID, filepath.Base(fileName)))
	tmp, err := os.CreateTemp(dir, tempPrefix+"*.pdf")
	if err != nil {
		return "", fmt.Errorf("create temp result: %w", err)
	}
	if _, err := tmp.Write(pdf); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write result: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write result: %w", err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("publish result: %w", err)
	}
	return p, nil
}

// Open reads a result previously returned by Save.
func (l LocalResults) Open(_ context.Context, ref string) ([]byte, error) {
	dir, err := filepath.Abs(l.dir())
	if err != nil {
		return nil, err
	}
	p, err := filepath.Abs(ref)
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(p, dir+string(filepath.Separator)) {
		return nil, fmt.Errorf("result %q outside result dir", ref)
	}
	return os.ReadFile(p)
}
