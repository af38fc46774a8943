package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/coursegrade/internal/config"
	"github.com/stemsi/coursegrade/internal/metrics"
	"github.com/stemsi/coursegrade/internal/model"
	"github.com/stemsi/coursegrade/internal/repository"
	"github.com/stemsi/coursegrade/internal/service"
)

const (
	GradePollTimeout = 1 * time.Second
	// MaxGradeAttempts bounds how often a job is requeued after failed writes.
	MaxGradeAttempts = 3
)

// Grader is the part of the submission service the worker drives.
type Grader interface {
	EvaluateJob(ctx context.Context, job service.GradeJob) (*model.Submission, repository.GradeUpdate, error)
	PersistGrades(ctx context.Context, updates []repository.GradeUpdate) ([]uuid.UUID, error)
	PersistGrade(ctx context.Context, update repository.GradeUpdate) error
	Events() *service.EventPublisher
}

// Queue is the Redis list the worker consumes and requeues into.
type Queue interface {
	BLPop(ctx context.Context, timeout time.Duration, keys ...string) *redis.StringSliceCmd
	RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
}

// GradingWorker consumes batch auto-grade jobs, grades them and writes the
// results back in bulk.
type GradingWorker struct {
	grader       Grader
	queue        Queue
	batchSize    int
	batchTimeout time.Duration
	log          zerolog.Logger
}

// NewGradingWorker creates a new GradingWorker.
func NewGradingWorker(cfg *config.Config, grader Grader, queue Queue, log zerolog.Logger) *GradingWorker {
	batchSize := cfg.GradeBatchSize
	if batchSize <= 0 {
		batchSize = 50
	}
	batchTimeout := cfg.GradeBatchTimeout
	if batchTimeout <= 0 {
		batchTimeout = 2 * time.Second
	}
	return &GradingWorker{
		grader:       grader,
		queue:        queue,
		batchSize:    batchSize,
		batchTimeout: batchTimeout,
		log:          log.With().Str("component", "grading_worker").Logger(),
	}
}

type gradedItem struct {
	job    service.GradeJob
	sub    *model.Submission
	update repository.GradeUpdate
}

// ----------------------------------------------------------------
// Worker loop with batching
// ----------------------------------------------------------------

func (w *GradingWorker) Start(ctx context.Context) {
	w.log.Info().
		Int("batch_size", w.batchSize).
		Dur("batch_timeout", w.batchTimeout).
		Msg("GradingWorker started")

	batch := make([]service.GradeJob, 0, w.batchSize)
	lastFlush := time.Now()

	for {
		if len(batch) > 0 &&
			(len(batch) >= w.batchSize || time.Since(lastFlush) >= w.batchTimeout) {

			w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Int("pending", len(batch)).Msg("Shutdown requested. Flushing remaining batch...")
			w.flushSafe(context.Background(), batch)
			return

		default:
			item, err := w.queue.BLPop(ctx, GradePollTimeout, config.WorkerKey.GradeSubmissionsQueue).Result()
			if err != nil {
				if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}

			if len(item) < 2 {
				continue
			}

			job, ok := decodeJob(item[1])
			if !ok {
				w.log.Error().Str("payload", item[1]).Msg("Invalid grade job payload")
				continue
			}
			if len(batch) == 0 {
				lastFlush = time.Now()
			}
			batch = append(batch, job)
		}
	}
}

// ----------------------------------------------------------------
// Batch grade + persist
// ----------------------------------------------------------------

func (w *GradingWorker) flushSafe(ctx context.Context, batch []service.GradeJob) {
	if len(batch) == 0 {
		return
	}
	metrics.WorkerBatchSize.Observe(float64(len(batch)))

	items := make([]gradedItem, 0, len(batch))
	for _, job := range batch {
		sub, update, err := w.grader.EvaluateJob(ctx, job)
		if err != nil {
			if errors.Is(err, service.ErrAlreadyGraded) {
				w.log.Debug().Str("submission_id", job.SubmissionID).Msg("Submission graded since queued, skipping")
				continue
			}
			if errors.Is(err, service.ErrSubmissionNotFound) || errors.Is(err, service.ErrAssignmentNotFound) {
				w.log.Warn().Err(err).Str("submission_id", job.SubmissionID).Msg("Dropping grade job")
				continue
			}
			w.log.Error().Err(err).Str("submission_id", job.SubmissionID).Msg("Grading failed")
			w.requeue(ctx, job)
			continue
		}
		items = append(items, gradedItem{job: job, sub: sub, update: update})
	}
	if len(items) == 0 {
		return
	}

	updates := make([]repository.GradeUpdate, len(items))
	for i, it := range items {
		updates[i] = it.update
	}

	applied, err := w.grader.PersistGrades(ctx, updates)
	if err != nil {
		w.log.Warn().Err(err).Int("count", len(items)).Msg("bulk grade update failed, using fallback")

		for _, it := range items {
			if err := w.grader.PersistGrade(ctx, it.update); err != nil {
				if errors.Is(err, repository.ErrSubmissionChanged) {
					w.log.Debug().Str("submission_id", it.job.SubmissionID).Msg("Submission changed since evaluated, skipping")
					continue
				}
				w.log.Error().Err(err).Str("submission_id", it.job.SubmissionID).Msg("single grade update failed")
				w.requeue(ctx, it.job)
				continue
			}
			w.publish(ctx, it)
		}
		return
	}

	written := make(map[uuid.UUID]struct{}, len(applied))
	for _, id := range applied {
		written[id] = struct{}{}
	}
	for _, it := range items {
		if _, ok := written[it.update.SubmissionID]; ok {
			w.publish(ctx, it)
		}
	}

	w.log.Debug().
		Int("count", len(applied)).
		Int("skipped", len(items)-len(applied)).
		Msg("Grade batch persisted")
}

func (w *GradingWorker) publish(ctx context.Context, it gradedItem) {
	service.ApplyGradeUpdate(it.sub, it.update)
	w.grader.Events().PublishGraded(ctx, service.NewGradingEvent(it.sub, it.update.GradedBy, it.update.GradedAt))
}

func (w *GradingWorker) requeue(ctx context.Context, job service.GradeJob) {
	job.Attempts++
	if job.Attempts >= MaxGradeAttempts {
		w.log.Error().
			Str("submission_id", job.SubmissionID).
			Int("attempts", job.Attempts).
			Msg("Grade job exhausted retries, dropping")
		return
	}

	raw, err := json.Marshal(job)
	if err != nil {
		return
	}
	if err := w.queue.RPush(ctx, config.WorkerKey.GradeSubmissionsQueue, raw).Err(); err != nil {
		w.log.Error().Err(err).Str("submission_id", job.SubmissionID).Msg("Requeue failed")
		return
	}
	metrics.WorkerRequeued.Inc()
}

func decodeJob(raw string) (service.GradeJob, bool) {
	var job service.GradeJob
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		return job, false
	}
	return job, job.SubmissionID != ""
}
