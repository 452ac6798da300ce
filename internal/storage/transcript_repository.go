package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"intellimind/internal/models"
)

// TranscriptRepository is the data access layer for transcripts
type TranscriptRepository struct {
	db *DB
}

// NewTranscriptRepository creates a new TranscriptRepository
func NewTranscriptRepository(db *DB) *TranscriptRepository {
	return &TranscriptRepository{db: db}
}

// Upsert inserts or replaces the transcript for a meeting
func (r *TranscriptRepository) Upsert(ctx context.Context, t *models.Transcript) error {
	t.UpdatedAt = time.Now()
	if t.Status == "" {
		t.Status = models.TranscriptStatusPending
	}

	failed, err := encodeFailedSegments(t.FailedSegments)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO transcripts (meeting_id, text, status, progress, segment_count, failed_segments, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(meeting_id) DO UPDATE SET
			text = excluded.text,
			status = excluded.status,
			progress = excluded.progress,
			segment_count = excluded.segment_count,
			failed_segments = excluded.failed_segments,
			updated_at = excluded.updated_at`,
		t.MeetingID, t.Text, t.Status, t.Progress, t.SegmentCount, failed, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert transcript: %w", err)
	}
	return nil
}

// GetByMeetingID returns the transcript for a meeting, or nil if not found
func (r *TranscriptRepository) GetByMeetingID(ctx context.Context, meetingID string) (*models.Transcript, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT meeting_id, text, status, progress, segment_count, failed_segments, updated_at
		FROM transcripts WHERE meeting_id = ?`, meetingID)

	var t models.Transcript
	var failed sql.NullString
	err := row.Scan(&t.MeetingID, &t.Text, &t.Status, &t.Progress, &t.SegmentCount, &failed, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transcript: %w", err)
	}

	if failed.Valid && failed.String != "" {
		if err := json.Unmarshal([]byte(failed.String), &t.FailedSegments); err != nil {
			return nil, fmt.Errorf("failed to decode failed segments: %w", err)
		}
	}
	return &t, nil
}

func encodeFailedSegments(indices []int) (*string, error) {
	if len(indices) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(indices)
	if err != nil {
		return nil, fmt.Errorf("failed to encode failed segments: %w", err)
	}
	s := string(data)
	return &s, nil
}
