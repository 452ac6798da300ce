package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"intellimind/internal/models"
)

// InsightRepository is the data access layer for meeting insights
type InsightRepository struct {
	db *DB
}

// NewInsightRepository creates a new InsightRepository
func NewInsightRepository(db *DB) *InsightRepository {
	return &InsightRepository{db: db}
}

// Create inserts a new insight
func (r *InsightRepository) Create(ctx context.Context, in *models.Insight) error {
	if in.ID == "" {
		in.ID = uuid.New().String()
	}
	in.CreatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO insights (id, meeting_id, model, situation, complication, question, answer, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		in.ID, in.MeetingID, in.Model, in.Situation, in.Complication, in.Question, in.Answer, in.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert insight: %w", err)
	}
	return nil
}

// ListByMeetingID returns all insights for a meeting, newest first
func (r *InsightRepository) ListByMeetingID(ctx context.Context, meetingID string) ([]*models.Insight, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, meeting_id, model, situation, complication, question, answer, created_at
		FROM insights WHERE meeting_id = ?
		ORDER BY created_at DESC`, meetingID)
	if err != nil {
		return nil, fmt.Errorf("failed to list insights: %w", err)
	}
	defer rows.Close()

	var insights []*models.Insight
	for rows.Next() {
		var in models.Insight
		if err := rows.Scan(&in.ID, &in.MeetingID, &in.Model, &in.Situation, &in.Complication, &in.Question, &in.Answer, &in.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan insight: %w", err)
		}
		insights = append(insights, &in)
	}
	return insights, rows.Err()
}
