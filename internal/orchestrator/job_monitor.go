package orchestrator

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// monitorJob waits for a background export, stores its PDF and records
// where it went.
func (o *Orchestrator) monitorJob(jobID, documentID string, done <-chan Outcome) {
	out, ok := <-done
	defer CleanupTemps(o.deps.TempDir, o.deps.TempMaxAge)
	if !ok || out.Err != nil {
		// the exporter already recorded Failed
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	st, found, err := o.deps.Status.Get(ctx, jobID)
	if err != nil || !found {
		log.Warn().Err(err).Str("job_id", jobID).Msg("status missing for finished job")
		return
	}
	if st.Metadata == nil {
		st.Metadata = map[string]interface{}{}
	}
	if o.deps.Results == nil {
		st.Metadata["result_error"] = "no result store configured"
		_ = o.deps.Status.Set(ctx, jobID, st)
		return
	}

	ref, err := o.deps.Results.Save(ctx, jobID, out.Result.FileName, out.Result.PDF)
	if err != nil {
		log.Error().Err(err).Str("job_id", jobID).Str("document_id", documentID).Msg("saving export result failed")
		st.Metadata["result_error"] = "storage failed"
		_ = o.deps.Status.Set(ctx, jobID, st)
		return
	}
	st.Metadata["result_ref"] = ref
	if err := o.deps.Status.Set(ctx, jobID, st); err != nil {
		log.Warn().Err(err).Str("job_id", jobID).Msg("status update failed")
		return
	}
	log.Info().
		Str("job_id", jobID).
		Str("document_id", documentID).
		Str("ref", ref).
		Int("pages", out.Result.Pages).
		Msg("export result stored")
}
