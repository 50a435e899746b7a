package engine

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"shopify-feed-service/internal/metrics"
	"shopify-feed-service/internal/models"
	"shopify-feed-service/internal/repository"
)

func newTestEngine(t *testing.T) (*Engine, *repository.JobsRepository) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Job{}, &models.FileInfo{}))

	repo := repository.NewJobsRepository(db)
	m := metrics.New(prometheus.NewRegistry())
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	eng := New(repo, m, logrus.NewEntry(log), 2)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = eng.Stop(ctx)
	})
	return eng, repo
}

func waitTerminal(t *testing.T, repo *repository.JobsRepository, id string) *models.Job {
	t.Helper()
	var job *models.Job
	require.Eventually(t, func() bool {
		var err error
		job, err = repo.GetJob(context.Background(), id)
		return err == nil && job.Status.Terminal()
	}, 5*time.Second, 10*time.Millisecond)
	return job
}

func TestEngineRunsJobToSuccess(t *testing.T) {
	eng, repo := newTestEngine(t)
	require.NoError(t, eng.Start())

	job, err := eng.Submit(context.Background(), models.JobKindTransform, models.JSON{"k": "v"}, func(jc *JobContext) (string, error) {
		jc.Inc("rows", 3)
		jc.Set("products", 1)
		return "/tmp/out.csv", nil
	})
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusQueued, job.Status)

	final := waitTerminal(t, repo, job.ID)
	assert.Equal(t, models.JobStatusSucceeded, final.Status)
	require.NotNil(t, final.ResultPath)
	assert.Equal(t, "/tmp/out.csv", *final.ResultPath)
	assert.Nil(t, final.Error)
	assert.NotNil(t, final.StartedAt)
	assert.NotNil(t, final.FinishedAt)
	assert.Equal(t, int64(3), final.Counters["rows"])
	assert.Equal(t, int64(1), final.Counters["products"])
}

func TestEngineRecordsFailure(t *testing.T) {
	eng, repo := newTestEngine(t)
	require.NoError(t, eng.Start())

	job, err := eng.Submit(context.Background(), models.JobKindTransform, nil, func(jc *JobContext) (string, error) {
		jc.Inc("rows", 1)
		return "", errors.New("bad input")
	})
	require.NoError(t, err)

	final := waitTerminal(t, repo, job.ID)
	assert.Equal(t, models.JobStatusFailed, final.Status)
	assert.Nil(t, final.ResultPath)
	require.NotNil(t, final.Error)
	assert.Equal(t, "bad input", *final.Error)
	// counters survive failure
	assert.Equal(t, int64(1), final.Counters["rows"])
}

func TestEngineContainsPanics(t *testing.T) {
	eng, repo := newTestEngine(t)
	require.NoError(t, eng.Start())

	job, err := eng.Submit(context.Background(), models.JobKindTransform, nil, func(jc *JobContext) (string, error) {
		panic("boom")
	})
	require.NoError(t, err)

	final := waitTerminal(t, repo, job.ID)
	assert.Equal(t, models.JobStatusFailed, final.Status)
	require.NotNil(t, final.Error)
	assert.Contains(t, *final.Error, "panicked")

	// the pool survives and runs the next job
	next, err := eng.Submit(context.Background(), models.JobKindTransform, nil, func(jc *JobContext) (string, error) {
		return "", nil
	})
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusSucceeded, waitTerminal(t, repo, next.ID).Status)
}

func TestEngineGetJobOverlaysLiveCounters(t *testing.T) {
	eng, repo := newTestEngine(t)
	require.NoError(t, eng.Start())

	release := make(chan struct{})
	job, err := eng.Submit(context.Background(), models.JobKindTransform, nil, func(jc *JobContext) (string, error) {
		jc.Inc("files", 7)
		<-release
		return "", nil
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		live, err := eng.GetJob(context.Background(), job.ID)
		return err == nil && live.Counters["files"] == 7
	}, 5*time.Second, 10*time.Millisecond)

	close(release)
	waitTerminal(t, repo, job.ID)
}

func TestEngineFailsInterruptedJobsOnStart(t *testing.T) {
	eng, repo := newTestEngine(t)

	for id, status := range map[string]models.JobStatus{
		"stale-running": models.JobStatusRunning,
		"stale-queued":  models.JobStatusQueued,
	} {
		stale := models.Job{
			ID:        id,
			Kind:      models.JobKindTransform,
			Status:    status,
			CreatedAt: time.Now().UTC(),
			Counters:  models.Counters{},
		}
		require.NoError(t, repo.CreateJob(context.Background(), &stale))
	}

	require.NoError(t, eng.Start())

	for _, id := range []string{"stale-running", "stale-queued"} {
		job, err := repo.GetJob(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, models.JobStatusFailed, job.Status, id)
		require.NotNil(t, job.Error)
		assert.Contains(t, *job.Error, "interrupted")
	}
}
