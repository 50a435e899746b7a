package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"shopify-feed-service/internal/models"
)

var ErrNotFound = errors.New("record not found")

// JobsRepository persists jobs and uploaded-file records.
type JobsRepository struct {
	db *gorm.DB
}

func NewJobsRepository(db *gorm.DB) *JobsRepository {
	return &JobsRepository{db: db}
}

func (r *JobsRepository) CreateJob(ctx context.Context, job *models.Job) error {
	return r.db.WithContext(ctx).Create(job).Error
}

func (r *JobsRepository) GetJob(ctx context.Context, id string) (*models.Job, error) {
	var job models.Job
	if err := r.db.WithContext(ctx).First(&job, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &job, nil
}

// ListJobs returns jobs newest first, optionally filtered by kind and
// status.
func (r *JobsRepository) ListJobs(ctx context.Context, kind, status string, limit, offset int) ([]models.Job, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Job{})
	if kind != "" {
		query = query.Where("kind = ?", kind)
	}
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var jobs []models.Job
	err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&jobs).Error
	return jobs, total, err
}

// MarkRunning flips a queued job to running and stamps the start time.
func (r *JobsRepository) MarkRunning(ctx context.Context, id string) error {
	now := time.Now().UTC()
	return r.db.WithContext(ctx).Model(&models.Job{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     models.JobStatusRunning,
			"started_at": &now,
		}).Error
}

// MarkFinished writes the terminal status plus result or error. The
// result path lands in the same update as the status flip, so a
// succeeded job always has its artifact recorded.
func (r *JobsRepository) MarkFinished(ctx context.Context, id string, status models.JobStatus, counters models.Counters, resultPath, errMsg *string) error {
	now := time.Now().UTC()
	updates := map[string]interface{}{
		"status":      status,
		"finished_at": &now,
		"counters":    counters,
	}
	if resultPath != nil {
		updates["result_path"] = resultPath
	}
	if errMsg != nil {
		updates["error"] = errMsg
	}
	return r.db.WithContext(ctx).Model(&models.Job{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// UpdateCounters persists a running job's progress snapshot.
func (r *JobsRepository) UpdateCounters(ctx context.Context, id string, counters models.Counters) error {
	return r.db.WithContext(ctx).Model(&models.Job{}).
		Where("id = ?", id).
		Update("counters", counters).Error
}

// RequeueInterrupted marks jobs left queued or running by a previous
// process as failed. Job bodies do not survive a restart, so neither
// state can make progress again. Called once on startup before workers
// begin.
func (r *JobsRepository) RequeueInterrupted(ctx context.Context) (int64, error) {
	msg := "interrupted by service restart"
	res := r.db.WithContext(ctx).Model(&models.Job{}).
		Where("status IN ?", []models.JobStatus{models.JobStatusQueued, models.JobStatusRunning}).
		Updates(map[string]interface{}{
			"status": models.JobStatusFailed,
			"error":  &msg,
		})
	return res.RowsAffected, res.Error
}

func (r *JobsRepository) CreateFile(ctx context.Context, file *models.FileInfo) error {
	return r.db.WithContext(ctx).Create(file).Error
}

func (r *JobsRepository) GetFile(ctx context.Context, id string) (*models.FileInfo, error) {
	var file models.FileInfo
	if err := r.db.WithContext(ctx).First(&file, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &file, nil
}

func (r *JobsRepository) ListFiles(ctx context.Context, limit, offset int) ([]models.FileInfo, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.FileInfo{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var files []models.FileInfo
	err := r.db.WithContext(ctx).
		Order("created_at DESC").Limit(limit).Offset(offset).
		Find(&files).Error
	return files, total, err
}
