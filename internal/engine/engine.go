// Package engine runs jobs on a fixed worker pool and keeps their
// persisted state in step with execution.
package engine

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"shopify-feed-service/internal/metrics"
	"shopify-feed-service/internal/models"
	"shopify-feed-service/internal/repository"
)

// ErrQueueFull is returned when the submission queue has no room.
var ErrQueueFull = errors.New("job queue is full")

const (
	queueCapacity = 100
	flushInterval = time.Second
)

// Body executes one job. It returns the result artifact path (empty
// when the job produces none) and a terminal error. Progress goes
// through the JobContext counters.
type Body func(jc *JobContext) (resultPath string, err error)

type queuedJob struct {
	job  models.Job
	body Body
}

// Engine owns the worker pool and the live view of running jobs.
type Engine struct {
	repo    *repository.JobsRepository
	metrics *metrics.Metrics
	logger  *logrus.Entry
	workers int

	queue  chan queuedJob
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	active map[string]*JobContext
}

func New(repo *repository.JobsRepository, m *metrics.Metrics, logger *logrus.Entry, workers int) *Engine {
	if workers < 1 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		repo:    repo,
		metrics: m,
		logger:  logger,
		workers: workers,
		queue:   make(chan queuedJob, queueCapacity),
		ctx:     ctx,
		cancel:  cancel,
		active:  make(map[string]*JobContext),
	}
}

// Start launches the workers and the counter flusher. Jobs left queued
// or running by a previous process are failed first so their status
// cannot lie.
func (e *Engine) Start() error {
	interrupted, err := e.repo.RequeueInterrupted(e.ctx)
	if err != nil {
		return fmt.Errorf("failed to reconcile interrupted jobs: %w", err)
	}
	if interrupted > 0 {
		e.logger.WithField("count", interrupted).Warn("marked interrupted jobs as failed")
	}

	for i := 0; i < e.workers; i++ {
		e.wg.Add(1)
		go e.worker(i)
	}
	e.wg.Add(1)
	go e.flusher()

	e.logger.WithField("workers", e.workers).Info("job engine started")
	return nil
}

// Stop cancels the run context and waits for the workers. Jobs still
// queued or running get failed on the next start. Blocks until the
// workers exit or the context expires.
func (e *Engine) Stop(ctx context.Context) error {
	e.cancel()
	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Submit persists a new queued job and hands it to the pool. Returns
// ErrQueueFull without persisting anything when the queue is saturated.
func (e *Engine) Submit(ctx context.Context, kind models.JobKind, params models.JSON, body Body) (*models.Job, error) {
	job := models.Job{
		ID:        uuid.New().String(),
		Kind:      kind,
		Status:    models.JobStatusQueued,
		CreatedAt: time.Now().UTC(),
		Params:    params,
		Counters:  models.Counters{},
	}

	if len(e.queue) >= queueCapacity {
		return nil, ErrQueueFull
	}
	if err := e.repo.CreateJob(ctx, &job); err != nil {
		return nil, fmt.Errorf("failed to persist job: %w", err)
	}

	select {
	case e.queue <- queuedJob{job: job, body: body}:
	default:
		msg := "queue overflow"
		_ = e.repo.MarkFinished(ctx, job.ID, models.JobStatusFailed, job.Counters, nil, &msg)
		return nil, ErrQueueFull
	}

	e.metrics.JobsSubmitted.WithLabelValues(string(kind)).Inc()
	e.logger.WithFields(logrus.Fields{"job_id": job.ID, "kind": kind}).Info("job queued")
	return &job, nil
}

// GetJob returns the persisted job, overlaid with live counters when it
// is still running in this process.
func (e *Engine) GetJob(ctx context.Context, id string) (*models.Job, error) {
	job, err := e.repo.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	jc, ok := e.active[id]
	e.mu.Unlock()
	if ok {
		job.Counters = jc.Counters()
	}
	return job, nil
}

func (e *Engine) worker(n int) {
	defer e.wg.Done()
	for {
		select {
		case <-e.ctx.Done():
			return
		case qj := <-e.queue:
			e.run(qj)
		}
	}
}

func (e *Engine) run(qj queuedJob) {
	logger := e.logger.WithFields(logrus.Fields{"job_id": qj.job.ID, "kind": qj.job.Kind})

	jc := newJobContext(e.ctx, qj.job.ID, logger)
	e.mu.Lock()
	e.active[qj.job.ID] = jc
	e.mu.Unlock()
	e.metrics.JobsActive.Inc()

	defer func() {
		e.mu.Lock()
		delete(e.active, qj.job.ID)
		e.mu.Unlock()
		e.metrics.JobsActive.Dec()
	}()

	if err := e.repo.MarkRunning(e.ctx, qj.job.ID); err != nil {
		logger.WithError(err).Error("failed to mark job running")
	}

	started := time.Now()
	resultPath, err := e.runBody(qj.body, jc, logger)
	elapsed := time.Since(started)

	status := models.JobStatusSucceeded
	var resultPtr, errPtr *string
	if err != nil {
		status = models.JobStatusFailed
		msg := err.Error()
		errPtr = &msg
	} else if resultPath != "" {
		resultPtr = &resultPath
	}

	if dbErr := e.repo.MarkFinished(e.ctx, qj.job.ID, status, jc.Counters(), resultPtr, errPtr); dbErr != nil {
		logger.WithError(dbErr).Error("failed to finalize job")
	}

	e.metrics.JobsCompleted.WithLabelValues(string(qj.job.Kind), string(status)).Inc()
	e.metrics.JobDuration.WithLabelValues(string(qj.job.Kind)).Observe(elapsed.Seconds())

	entry := logger.WithFields(logrus.Fields{"status": status, "duration": elapsed.String()})
	if err != nil {
		entry.WithError(err).Warn("job finished")
	} else {
		entry.Info("job finished")
	}
}

// runBody executes the body with panic containment so one bad job
// cannot take a worker down.
func (e *Engine) runBody(body Body, jc *JobContext, logger *logrus.Entry) (resultPath string, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.WithField("panic", fmt.Sprint(r)).Error(string(debug.Stack()))
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return body(jc)
}

// flusher periodically persists the counters of running jobs so
// progress survives a crash and is visible to other processes.
func (e *Engine) flusher() {
	defer e.wg.Done()
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-e.ctx.Done():
			return
		case <-ticker.C:
			e.mu.Lock()
			snapshot := make(map[string]models.Counters, len(e.active))
			for id, jc := range e.active {
				if jc.dirty() {
					snapshot[id] = jc.Counters()
				}
			}
			e.mu.Unlock()
			for id, counters := range snapshot {
				if err := e.repo.UpdateCounters(e.ctx, id, counters); err != nil {
					e.logger.WithError(err).WithField("job_id", id).Debug("counter flush failed")
				}
			}
		}
	}
}
