package research

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrSessionNotFound = errors.New("research: session not found")

	// ErrIncompleteSession is returned when opportunity synthesis is
	// requested before product metadata and sourcing exist for the session.
	ErrIncompleteSession = errors.New("research: session is missing required stages")
)

type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Migrate creates the session tables. Idempotent; called once at startup.
func (s *Store) Migrate() error {
	return s.db.AutoMigrate(&Session{}, &SessionData{}, &Assessment{}, &Job{})
}

func (s *Store) CreateSession(ctx context.Context, sess *Session) error {
	return s.db.WithContext(ctx).Create(sess).Error
}

func (s *Store) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	var sess Session
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		First(&sess).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return &sess, nil
}

// SaveStage upserts one stage row by (session_id, data_type). Writing the
// same pair again overwrites, never duplicates.
func (s *Store) SaveStage(ctx context.Context, sessionID, dataType string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	row := SessionData{
		SessionID: sessionID,
		DataType:  dataType,
		DataJSON:  string(raw),
		CreatedAt: time.Now(),
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_id"}, {Name: "data_type"}},
			DoUpdates: clause.AssignmentColumns([]string{"data_json", "created_at"}),
		}).
		Create(&row).Error
}

// GetStage unmarshals the stage row into out. Returns (false, nil) when the
// row is absent.
func (s *Store) GetStage(ctx context.Context, sessionID, dataType string, out any) (bool, error) {
	var row SessionData
	err := s.db.WithContext(ctx).
		Where("session_id = ? AND data_type = ?", sessionID, dataType).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal([]byte(row.DataJSON), out); err != nil {
		return false, err
	}
	return true, nil
}

// GetAllStages returns every stage row for a session keyed by data_type.
func (s *Store) GetAllStages(ctx context.Context, sessionID string) (map[string]json.RawMessage, error) {
	var rows []SessionData
	if err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]json.RawMessage, len(rows))
	for _, row := range rows {
		out[row.DataType] = json.RawMessage(row.DataJSON)
	}
	return out, nil
}

// SaveAssessment upserts the terminal record on session_id.
func (s *Store) SaveAssessment(ctx context.Context, a *Assessment) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"context_json", "report_json", "created_at"}),
		}).
		Create(a).Error
}

// GetAssessment returns the terminal record or nil when none exists.
func (s *Store) GetAssessment(ctx context.Context, sessionID string) (*Assessment, error) {
	var a Assessment
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		First(&a).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

// Job CRUD

func (s *Store) GetJobByID(ctx context.Context, id string) (*Job, error) {
	var j Job
	if err := s.db.WithContext(ctx).First(&j, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &j, nil
}

func (s *Store) UpdateJobStatusRunning(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Model(&Job{}).
		Where("id = ? AND status = ?", id, JobQueued).
		Update("status", JobRunning).Error
}

func (s *Store) MarkJobSucceeded(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Model(&Job{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status": JobSucceeded,
			"error":  nil,
		}).Error
}

func (s *Store) MarkJobFailed(ctx context.Context, id string, errMsg string) error {
	return s.db.WithContext(ctx).Model(&Job{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status": JobFailed,
			"error":  errMsg,
		}).Error
}

func (s *Store) GetJobByIdempotencyKey(ctx context.Context, key string) (*Job, error) {
	var job Job
	err := s.db.WithContext(ctx).
		Where("idempotency_key = ?", key).
		First(&job).Error
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// CreateJobOrGetExisting tries to create a job, but if the idempotency key
// already exists, it returns the existing job instead.
func (s *Store) CreateJobOrGetExisting(ctx context.Context, job *Job) (*Job, bool, error) {
	if job.IdempotencyKey == nil || *job.IdempotencyKey == "" {
		job.IdempotencyKey = nil
		if err := s.db.WithContext(ctx).Create(job).Error; err != nil {
			return nil, false, err
		}
		return job, true, nil
	}

	err := s.db.WithContext(ctx).Create(job).Error
	if err == nil {
		return job, true, nil
	}

	existing, getErr := s.GetJobByIdempotencyKey(ctx, *job.IdempotencyKey)
	if getErr == nil {
		return existing, false, nil
	}

	if errors.Is(getErr, gorm.ErrRecordNotFound) {
		return nil, false, err
	}
	return nil, false, getErr
}
