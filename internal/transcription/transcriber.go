package transcription

import (
	"context"
	"time"
)

// SegmentTranscriber converts one chunk file to text. Implementations are
// expected to be safe for concurrent use; the speech model is loaded once
// and shared across workers.
type SegmentTranscriber interface {
	Transcribe(ctx context.Context, audioPath string) (text string, confidence float64, err error)
}

// TranscriberFactory resolves the transcriber for a model identifier.
type TranscriberFactory func(modelID string) (SegmentTranscriber, error)

// guardedTranscriber enforces a wall-clock deadline around an inner
// transcriber whose model call cannot be cancelled. On expiry the worker
// goroutine is abandoned rather than killed: it keeps the buffered channel
// so its eventual result is dropped without blocking, and its resources
// are reclaimed only when the model call naturally returns.
type guardedTranscriber struct {
	inner   SegmentTranscriber
	timeout time.Duration
}

func newGuardedTranscriber(inner SegmentTranscriber, timeout time.Duration) SegmentTranscriber {
	if timeout <= 0 {
		return inner
	}
	return &guardedTranscriber{inner: inner, timeout: timeout}
}

type transcribeResult struct {
	text       string
	confidence float64
	err        error
}

func (g *guardedTranscriber) Transcribe(ctx context.Context, audioPath string) (string, float64, error) {
	results := make(chan transcribeResult, 1)
	go func() {
		text, confidence, err := g.inner.Transcribe(ctx, audioPath)
		results <- transcribeResult{text: text, confidence: confidence, err: err}
	}()

	timer := time.NewTimer(g.timeout)
	defer timer.Stop()

	select {
	case r := <-results:
		if r.err != nil {
			if _, ok := r.err.(*SegmentTimeoutError); ok {
				return "", 0, r.err
			}
			return "", 0, &SegmentTranscriptionError{Cause: r.err}
		}
		return r.text, r.confidence, nil
	case <-timer.C:
		return "", 0, &SegmentTimeoutError{Timeout: g.timeout}
	case <-ctx.Done():
		return "", 0, ctx.Err()
	}
}
