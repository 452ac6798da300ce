package transcription

import (
	"sort"
	"time"
)

// SegmentInfo is the per-segment view exposed to pollers.
type SegmentInfo struct {
	Index      int           `json:"index"`
	Start      float64       `json:"start_time"`
	End        float64       `json:"end_time"`
	Status     SegmentStatus `json:"status"`
	Attempts   int           `json:"attempts"`
	Confidence float64       `json:"confidence,omitempty"`
	Error      string        `json:"error,omitempty"`
}

// Snapshot is a consistent view of a job. Reading one has no side effects
// and repeated reads without intervening state changes are identical.
type Snapshot struct {
	JobID           string        `json:"job_id"`
	Status          Status        `json:"status"`
	Total           int           `json:"total"`
	Pending         int           `json:"pending"`
	Processing      int           `json:"processing"`
	Completed       int           `json:"completed"`
	Failed          int           `json:"failed"`
	ActiveCount     int           `json:"active_count"`
	Progress        int           `json:"progress"`
	Degraded        bool          `json:"degraded"`
	TranscriptSoFar string        `json:"transcript_so_far"`
	FinalTranscript string        `json:"final_transcript,omitempty"`
	FailedIndices   []int         `json:"failed_indices,omitempty"`
	Error           string        `json:"error,omitempty"`
	Segments        []SegmentInfo `json:"segments,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	FinishedAt      *time.Time    `json:"finished_at,omitempty"`
}

// Snapshot returns the current progress view of the job.
func (j *Job) Snapshot() Snapshot {
	j.mu.Lock()
	defer j.mu.Unlock()

	snap := Snapshot{
		JobID:           j.ID,
		Status:          j.status,
		Total:           j.total,
		ActiveCount:     j.active,
		Degraded:        j.degraded,
		TranscriptSoFar: j.transcript.String(),
		Error:           j.errMsg,
		CreatedAt:       j.createdAt,
	}
	if !j.finishedAt.IsZero() {
		t := j.finishedAt
		snap.FinishedAt = &t
	}

	for i := 0; i < j.total; i++ {
		st, exists := j.segments[i]
		if !exists {
			continue
		}
		switch st.Status {
		case SegmentPending:
			snap.Pending++
		case SegmentProcessing:
			snap.Processing++
		case SegmentCompleted:
			snap.Completed++
		case SegmentFailed:
			snap.Failed++
		}
		snap.Segments = append(snap.Segments, SegmentInfo{
			Index:      i,
			Start:      st.Segment.Start,
			End:        st.Segment.End,
			Status:     st.Status,
			Attempts:   st.Attempts,
			Confidence: st.Confidence,
			Error:      st.Err,
		})
	}

	if snap.Total > 0 {
		snap.Progress = (snap.Completed + snap.Failed) * 100 / snap.Total
	}
	snap.FailedIndices = append([]int(nil), j.failed...)
	sort.Ints(snap.FailedIndices)
	if j.status == StatusCompleted {
		snap.FinalTranscript = snap.TranscriptSoFar
	}
	return snap
}
