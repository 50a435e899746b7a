package engine

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"shopify-feed-service/internal/models"
)

// JobContext is the execution handle a job body works with: its
// cancellation context, logger, and thread-safe progress counters.
type JobContext struct {
	jobID  string
	ctx    context.Context
	logger *logrus.Entry

	mu       sync.Mutex
	counters models.Counters
	changed  bool
}

func newJobContext(ctx context.Context, jobID string, logger *logrus.Entry) *JobContext {
	return &JobContext{
		jobID:    jobID,
		ctx:      ctx,
		logger:   logger,
		counters: models.Counters{},
	}
}

func (jc *JobContext) JobID() string { return jc.jobID }

// Context is cancelled when the engine shuts down.
func (jc *JobContext) Context() context.Context { return jc.ctx }

func (jc *JobContext) Logger() *logrus.Entry { return jc.logger }

// Inc adds delta to a named counter.
func (jc *JobContext) Inc(name string, delta int64) {
	jc.mu.Lock()
	jc.counters[name] += delta
	jc.changed = true
	jc.mu.Unlock()
}

// Set overwrites a named counter.
func (jc *JobContext) Set(name string, value int64) {
	jc.mu.Lock()
	jc.counters[name] = value
	jc.changed = true
	jc.mu.Unlock()
}

// Merge folds a counter map into the job's counters.
func (jc *JobContext) Merge(m map[string]int64) {
	jc.mu.Lock()
	for name, v := range m {
		jc.counters[name] += v
	}
	if len(m) > 0 {
		jc.changed = true
	}
	jc.mu.Unlock()
}

// Counters returns a snapshot safe to hand to other goroutines.
func (jc *JobContext) Counters() models.Counters {
	jc.mu.Lock()
	defer jc.mu.Unlock()
	return jc.counters.Clone()
}

// dirty reports and clears the changed flag, so the flusher only writes
// jobs whose counters moved since the last tick.
func (jc *JobContext) dirty() bool {
	jc.mu.Lock()
	defer jc.mu.Unlock()
	d := jc.changed
	jc.changed = false
	return d
}
