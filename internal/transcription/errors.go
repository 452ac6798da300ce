package transcription

import (
	"errors"
	"fmt"
	"time"
)

// ErrJobNotFound is returned when a job id is unknown to the manager.
var ErrJobNotFound = errors.New("job not found")

// ErrJobFinished is returned when stop is requested for a terminal job.
var ErrJobFinished = errors.New("job already finished")

// SegmentTimeoutError reports a segment transcription that exceeded its
// wall-clock deadline.
type SegmentTimeoutError struct {
	Timeout time.Duration
}

func (e *SegmentTimeoutError) Error() string {
	return fmt.Sprintf("transcription timed out after %s", e.Timeout)
}

// SegmentTranscriptionError reports a failure raised by the speech model.
type SegmentTranscriptionError struct {
	Cause error
}

func (e *SegmentTranscriptionError) Error() string {
	return fmt.Sprintf("transcription failed: %v", e.Cause)
}

func (e *SegmentTranscriptionError) Unwrap() error { return e.Cause }

// AllSegmentsFailedError reports a job where not a single segment could be
// transcribed.
type AllSegmentsFailedError struct {
	Total int
}

func (e *AllSegmentsFailedError) Error() string {
	return fmt.Sprintf("all %d segments failed to transcribe", e.Total)
}
