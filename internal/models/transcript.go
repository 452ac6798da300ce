package models

import "time"

// Transcript is the assembled transcript for a meeting.
type Transcript struct {
	MeetingID      string    `json:"meeting_id"`
	Text           string    `json:"text"`
	Status         string    `json:"status"`
	Progress       int       `json:"progress"`
	SegmentCount   int       `json:"segment_count"`
	FailedSegments []int     `json:"failed_segments,omitempty"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Transcript status
const (
	TranscriptStatusPending    = "pending"
	TranscriptStatusProcessing = "processing"
	TranscriptStatusCompleted  = "completed"
	TranscriptStatusPartial    = "partially_completed"
	TranscriptStatusFailed     = "failed"
)
