package models

import (
	"time"
)

// JobKind identifies the type of work a job performs
type JobKind string

const (
	JobKindTransform          JobKind = "transform"
	JobKindImagesBySku        JobKind = "images/by-sku"
	JobKindImagesBySkuUpload  JobKind = "images/by-sku/upload"
	JobKindImagesByBaseUpload JobKind = "images/by-base/upload"
	JobKindImagesBroadcast    JobKind = "images/broadcast"
	JobKindImagesStagedAttach JobKind = "images/staged/attach-by-sku"
)

// JobStatus represents the lifecycle state of a job.
// Transitions are one-directional: queued -> running -> succeeded|failed.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
)

// Terminal reports whether the status is final and immutable.
func (s JobStatus) Terminal() bool {
	return s == JobStatusSucceeded || s == JobStatusFailed
}

// Job is one unit of asynchronous work with persisted state.
type Job struct {
	ID         string     `json:"id" gorm:"primaryKey"`
	Kind       JobKind    `json:"kind" gorm:"not null;index"`
	Status     JobStatus  `json:"status" gorm:"not null;index"`
	CreatedAt  time.Time  `json:"createdAt" gorm:"not null"`
	StartedAt  *time.Time `json:"startedAt,omitempty"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
	Params     JSON       `json:"params" gorm:"type:text"`
	Counters   Counters   `json:"counters" gorm:"type:text"`
	ResultPath *string    `json:"resultPath,omitempty"`
	Error      *string    `json:"error,omitempty"`
}

// TableName returns the table name for the Job model
func (Job) TableName() string {
	return "jobs"
}

// FileInfo describes one uploaded source file.
type FileInfo struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"not null"`
	Path      string    `json:"path" gorm:"not null"`
	Size      int64     `json:"size" gorm:"not null"`
	CreatedAt time.Time `json:"createdAt" gorm:"not null"`
}

// TableName returns the table name for the FileInfo model
func (FileInfo) TableName() string {
	return "files"
}
