package models

import "time"

// Meeting is an uploaded (or fetched) meeting recording.
type Meeting struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	OriginalFilename string     `json:"original_filename,omitempty"`
	AudioPath        string     `json:"audio_path,omitempty"`
	FileSize         int64      `json:"file_size"`
	DurationSeconds  float64    `json:"duration_seconds,omitempty"`
	ModelID          string     `json:"model_id"`
	Status           string     `json:"status"`
	Error            string     `json:"error,omitempty"`
	JobID            string     `json:"job_id,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
}

// Meeting status
const (
	MeetingStatusPending      = "pending"
	MeetingStatusTranscribing = "transcribing"
	MeetingStatusCompleted    = "completed"
	MeetingStatusFailed       = "failed"
	MeetingStatusStopped      = "stopped"
)
