package transcription

import "time"

// Config holds tuning for the transcription pipeline.
type Config struct {
	// MaxConcurrent caps simultaneous segment transcriptions per job.
	MaxConcurrent int

	// SegmentTimeout is the wall-clock deadline for one model invocation.
	SegmentTimeout time.Duration

	// WatchdogInterval is how often in-flight work is scanned.
	WatchdogInterval time.Duration

	// StuckTimeout is how long a segment may stay in processing before the
	// watchdog forcibly fails it. Must exceed SegmentTimeout so the
	// transcriber's own deadline fires first.
	StuckTimeout time.Duration

	// MaxRetries is how many times a failed segment is re-queued.
	MaxRetries int

	// SlowThreshold marks a completed segment as slow.
	SlowThreshold time.Duration

	// SlowLimit is the slow-segment count that degrades concurrency to 1
	// for the remainder of the job.
	SlowLimit int

	// GapMarker replaces the text of permanently failed segments.
	GapMarker string

	// DispatchInterval is the scheduler's idle wakeup period.
	DispatchInterval time.Duration
}

// DefaultConfig returns the default pipeline configuration.
func DefaultConfig() *Config {
	return &Config{
		MaxConcurrent:    2,
		SegmentTimeout:   90 * time.Second,
		WatchdogInterval: 5 * time.Second,
		StuckTimeout:     100 * time.Second,
		MaxRetries:       1,
		SlowThreshold:    30 * time.Second,
		SlowLimit:        3,
		GapMarker:        "[inaudible]",
		DispatchInterval: 500 * time.Millisecond,
	}
}

func (c *Config) clone() *Config {
	out := *c
	return &out
}
