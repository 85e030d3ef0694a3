package research

import "time"

type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
)

// Job is one queued stage execution. Stage is one of the stage tags
// (sourcing, trends, regulation, impositive, market) or "opportunity".
type Job struct {
	ID string `gorm:"primaryKey;size:26"` // ULID length

	SessionID string `gorm:"size:64;index;not null"`
	Stage     string `gorm:"size:32;not null"`

	// Stage-specific request payload, decoded by the worker.
	ParamsJSON string `gorm:"type:text"`

	IdempotencyKey *string `gorm:"type:varchar(128);index:uniq_job_idempo,unique" json:"idempotency_key"`

	Status JobStatus `gorm:"type:varchar(16);index;not null"`

	// Filled when failed
	Error *string `gorm:"type:text"`

	CreatedAt time.Time
	UpdatedAt time.Time
}
