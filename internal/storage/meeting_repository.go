package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"intellimind/internal/models"
)

// MeetingRepository is the data access layer for meetings
type MeetingRepository struct {
	db *DB
}

// NewMeetingRepository creates a new MeetingRepository
func NewMeetingRepository(db *DB) *MeetingRepository {
	return &MeetingRepository{db: db}
}

// Create inserts a new meeting
func (r *MeetingRepository) Create(ctx context.Context, m *models.Meeting) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	now := time.Now()
	m.CreatedAt = now
	m.UpdatedAt = now
	if m.Status == "" {
		m.Status = models.MeetingStatusPending
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO meetings (
			id, title, original_filename, audio_path, file_size,
			duration_seconds, model_id, status, error, job_id,
			created_at, updated_at, completed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.Title, nullString(m.OriginalFilename), nullString(m.AudioPath), m.FileSize,
		nullFloat(m.DurationSeconds), nullString(m.ModelID), m.Status, nullString(m.Error), nullString(m.JobID),
		m.CreatedAt, m.UpdatedAt, m.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert meeting: %w", err)
	}
	return nil
}

// GetByID returns the meeting with the given ID, or nil if not found
func (r *MeetingRepository) GetByID(ctx context.Context, id string) (*models.Meeting, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, title, original_filename, audio_path, file_size,
		       duration_seconds, model_id, status, error, job_id,
		       created_at, updated_at, completed_at
		FROM meetings WHERE id = ?`, id)

	m, err := scanMeeting(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get meeting: %w", err)
	}
	return m, nil
}

// List returns meetings ordered by creation time, newest first
func (r *MeetingRepository) List(ctx context.Context, limit, offset int) ([]*models.Meeting, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, original_filename, audio_path, file_size,
		       duration_seconds, model_id, status, error, job_id,
		       created_at, updated_at, completed_at
		FROM meetings
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list meetings: %w", err)
	}
	defer rows.Close()

	var meetings []*models.Meeting
	for rows.Next() {
		m, err := scanMeeting(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan meeting: %w", err)
		}
		meetings = append(meetings, m)
	}
	return meetings, rows.Err()
}

// UpdateStatus updates a meeting's status and error message
func (r *MeetingRepository) UpdateStatus(ctx context.Context, id, status, errMsg string) error {
	var completedAt *time.Time
	if status == models.MeetingStatusCompleted || status == models.MeetingStatusFailed || status == models.MeetingStatusStopped {
		now := time.Now()
		completedAt = &now
	}
	_, err := r.db.ExecContext(ctx, `
		UPDATE meetings
		SET status = ?, error = ?, completed_at = ?, updated_at = ?
		WHERE id = ?`,
		status, nullString(errMsg), completedAt, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update meeting status: %w", err)
	}
	return nil
}

// UpdateDuration records the probed audio duration
func (r *MeetingRepository) UpdateDuration(ctx context.Context, id string, seconds float64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE meetings SET duration_seconds = ?, updated_at = ? WHERE id = ?`,
		seconds, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update meeting duration: %w", err)
	}
	return nil
}

// UpdateJobID records the transcription job ID for a meeting
func (r *MeetingRepository) UpdateJobID(ctx context.Context, id, jobID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE meetings SET job_id = ?, updated_at = ? WHERE id = ?`,
		jobID, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update meeting job: %w", err)
	}
	return nil
}

// Delete removes a meeting and its dependent rows
func (r *MeetingRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM meetings WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete meeting: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMeeting(row rowScanner) (*models.Meeting, error) {
	var m models.Meeting
	var originalFilename, audioPath, modelID, errMsg, jobID sql.NullString
	var duration sql.NullFloat64
	var completedAt sql.NullTime

	err := row.Scan(
		&m.ID, &m.Title, &originalFilename, &audioPath, &m.FileSize,
		&duration, &modelID, &m.Status, &errMsg, &jobID,
		&m.CreatedAt, &m.UpdatedAt, &completedAt,
	)
	if err != nil {
		return nil, err
	}

	m.OriginalFilename = originalFilename.String
	m.AudioPath = audioPath.String
	m.ModelID = modelID.String
	m.Error = errMsg.String
	m.JobID = jobID.String
	m.DurationSeconds = duration.Float64
	if completedAt.Valid {
		m.CompletedAt = &completedAt.Time
	}
	return &m, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullFloat(f float64) *float64 {
	if f == 0 {
		return nil
	}
	return &f
}
