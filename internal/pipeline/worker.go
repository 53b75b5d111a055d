package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/syllabus/internal/record"
	"github.com/dgallion1/syllabus/internal/store"
)

// Worker processes a single extraction job.
type Worker struct {
	proc    *Processor
	sinks   []store.Sink
	jobs    *JobStore
	log     *slog.Logger
	backoff func(attempt int) time.Duration
}

func NewWorker(proc *Processor, sinks []store.Sink, jobs *JobStore, log *slog.Logger) *Worker {
	return &Worker{
		proc:    proc,
		sinks:   sinks,
		jobs:    jobs,
		log:     log,
		backoff: Backoff,
	}
}

// Process runs parse, assemble and store for a job.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "filename", job.Filename)

	// Phase 1: Parse
	job.SetStatus(StatusParsing, "parsing")
	doc, err := w.proc.Parse(job.Filename, job.FileData())
	if err != nil {
		log.Error("parse failed", "error", err)
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, "parsing")
		return
	}
	job.SetFileData(nil)
	job.SetContentHash(ContentHashHex([]byte(doc.Text)))

	// Phase 1.5: Dedup against jobs still in the store.
	if w.jobs != nil {
		if prev := w.jobs.FindByHash(job.ContentHash, job.ID); prev != nil {
			log.Info("duplicate document, reusing record", "existing_job_id", prev.ID)
			job.SetRecord(prev.Record(), prev.Report())
			job.SetStatus(StatusDupSkipped, "dedup")
			return
		}
	}

	// Phase 2: Assemble
	job.SetStatus(StatusAssembling, "assembling")
	rec, rep := w.proc.Assemble(ctx, doc)
	job.SetRecord(rec, rep)
	if ctx.Err() != nil {
		job.AddError(ctx.Err().Error())
		job.SetStatus(StatusFailed, "assembling")
		return
	}

	// Phase 3: Store
	job.SetStatus(StatusStoring, "storing")
	stored, failed := 0, 0
	for _, sink := range w.sinks {
		key, err := w.put(ctx, sink, rec, log)
		if err != nil {
			log.Error("store failed", "sink", sink.Name(), "error", err)
			job.AddError(fmt.Sprintf("store %s: %s", sink.Name(), err))
			failed++
			continue
		}
		job.AddOutput(sink.Name(), key)
		stored++
	}

	switch {
	case failed > 0 && stored == 0:
		job.SetStatus(StatusFailed, "storing")
	case failed > 0 || len(rep.Degraded) > 0:
		job.SetStatus(StatusPartial, "done")
	default:
		job.SetStatus(StatusCompleted, "done")
	}
	log.Info("job finished", "stored", stored, "failed", failed, "degraded", rep.Degraded)
}

// put stores a record, retrying transient sink failures.
func (w *Worker) put(ctx context.Context, sink store.Sink, rec *record.CourseRecord, log *slog.Logger) (string, error) {
	var (
		key     string
		lastErr error
	)
	for attempt := range MaxRetries {
		key, lastErr = sink.Put(ctx, rec)
		if lastErr == nil || !IsRetryable(lastErr) {
			break
		}
		log.Warn("retryable store error", "sink", sink.Name(), "attempt", attempt, "error", lastErr)
		select {
		case <-time.After(w.backoff(attempt)):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return key, lastErr
}
