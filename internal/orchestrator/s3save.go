package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/local/cvexport/internal/storage"
)

// S3Results stores PDFs in the configured bucket.
type S3Results struct {
	Client *storage.S3Client
}

func (s S3Results) Save(ctx context.Context, jobID, fileName string, pdf []byte) (string, error) {
	meta := &storage.FileMetadata{
		OriginalName: fileName,
		ContentType:  "application/pdf",
		Size:         int64(len(pdf)),
		Metadata: map[string]string{
			"job_id":  jobID,
			"source":  "cvexport",
			"created": time.Now().UTC().Format(time.RFC3339),
		},
	}
	return s.Client.UploadFile(ctx, s.Client.Key(jobID, fileName), pdf, meta)
}

func (s S3Results) Open(ctx context.Context, ref string) ([]byte, error) {
	key, ok := s.Client.KeyFromURL(ref)
	if !ok {
		return nil, fmt.Errorf("result %q not in bucket %s", ref, s.Client.Bucket())
	}
	return s.Client.DownloadFile(ctx, key)
}
