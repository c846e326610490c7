package orchestrator

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/local/cvexport/internal/store"
)

// StatusStore persists job status for progress polling.
type StatusStore interface {
	Set(ctx context.Context, jobID string, st store.Status) error
	Get(ctx context.Context, jobID string) (store.Status, bool, error)
}

// genericFailure is the only failure text a user ever sees.
const genericFailure = "export failed, please try again"

func statusOf(j *ExportJob, progress int, meta map[string]interface{}) store.Status {
	st := store.Status{
		State:    string(j.State),
		Progress: progress,
		Message:  string(j.State),
		Kind:     string(j.Kind),
		Metadata: map[string]interface{}{"document_id": j.DocumentID},
	}
	start := j.Started
	st.Start = &start
	if !j.Ended.IsZero() {
		end := j.Ended
		st.End = &end
	}
	if j.State == StateFailed {
		st.Message = genericFailure
	}
	if j.Pages > 0 {
		st.Metadata["pages"] = j.Pages
	}
	for k, v := range meta {
		st.Metadata[k] = v
	}
	return st
}

// publish writes the job's status. Status is advisory, so failures are
// logged and the export carries on.
func publish(ctx context.Context, s StatusStore, j *ExportJob, progress int, meta map[string]interface{}) {
	if s == nil {
		return
	}
	// a cancelled export still records its terminal state
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := s.Set(ctx, j.ID, statusOf(j, progress, meta)); err != nil {
		log.Warn().Err(err).Str("job_id", j.ID).Str("state", string(j.State)).Msg("status update failed")
	}
}
