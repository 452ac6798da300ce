package transcription

import (
	"log"
	"strings"
	"sync"
	"time"

	"intellimind/internal/chunking"
)

// Status is the lifecycle state of a transcription job.
type Status string

const (
	StatusPending      Status = "pending"
	StatusChunking     Status = "chunking"
	StatusTranscribing Status = "transcribing"
	StatusCompleted    Status = "completed"
	StatusFailed       Status = "failed"
	StatusStopped      Status = "stopped"
)

// SegmentStatus is the state of one segment within a job.
type SegmentStatus string

const (
	SegmentPending    SegmentStatus = "pending"
	SegmentProcessing SegmentStatus = "processing"
	SegmentCompleted  SegmentStatus = "completed"
	SegmentFailed     SegmentStatus = "failed"
)

// SegmentState tracks one segment from queue to terminal state. A segment
// marked failed here is permanently failed; retriable failures go straight
// back to pending with the attempt counter bumped.
type SegmentState struct {
	Segment    chunking.Segment
	Status     SegmentStatus
	Text       string
	Confidence float64
	Err        string
	StartedAt  time.Time
	Attempts   int
}

// Job is the aggregate owning segment states, the growing transcript and
// the counters that drive dispatch, recovery and degradation. Every field
// behind mu is mutated only under it; the segmenter, scheduler workers and
// watchdog all funnel through these methods.
type Job struct {
	ID        string
	ModelID   string
	AudioPath string

	mu           sync.Mutex
	status       Status
	segments     map[int]*SegmentState
	total        int
	chunkingDone bool
	active       int

	pointer    int
	transcript strings.Builder
	lastText   string
	failed     []int

	slowSegments  int
	degraded      bool
	maxConcurrent int
	gapMarker     string

	errMsg     string
	createdAt  time.Time
	finishedAt time.Time
}

func newJob(id, modelID, audioPath string, cfg *Config) *Job {
	return &Job{
		ID:            id,
		ModelID:       modelID,
		AudioPath:     audioPath,
		status:        StatusPending,
		segments:      make(map[int]*SegmentState),
		maxConcurrent: cfg.MaxConcurrent,
		gapMarker:     cfg.GapMarker,
		createdAt:     time.Now(),
	}
}

// addSegment registers a newly cut segment as pending work.
func (j *Job) addSegment(seg chunking.Segment) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.isTerminalLocked() {
		return
	}
	if _, ok := j.segments[seg.Index]; ok {
		log.Printf("job %s: duplicate segment %d ignored", j.ID, seg.Index)
		return
	}
	j.segments[seg.Index] = &SegmentState{Segment: seg, Status: SegmentPending}
	if seg.Index >= j.total {
		j.total = seg.Index + 1
	}
}

// markChunkingComplete records that no more segments will arrive.
func (j *Job) markChunkingComplete(count int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.chunkingDone = true
	if count != j.total {
		log.Printf("job %s: segmenter reported %d segments, %d registered", j.ID, count, j.total)
	}
}

func (j *Job) setStatus(s Status) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.isTerminalLocked() {
		return
	}
	j.status = s
}

func (j *Job) isTerminalLocked() bool {
	switch j.status {
	case StatusCompleted, StatusFailed, StatusStopped:
		return true
	}
	return false
}

// effectiveMaxLocked applies the one-way degradation valve.
func (j *Job) effectiveMaxLocked() int {
	if j.degraded {
		return 1
	}
	return j.maxConcurrent
}

// claimNext hands ownership of the lowest-index pending segment to a
// worker, or reports that no slot or segment is available. The returned
// attempt token must accompany the worker's result so stale results from
// abandoned workers can be discarded.
func (j *Job) claimNext() (index, attempt int, path string, ok bool) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.status != StatusChunking && j.status != StatusTranscribing {
		return 0, 0, "", false
	}
	if j.active >= j.effectiveMaxLocked() {
		return 0, 0, "", false
	}

	for i := 0; i < j.total; i++ {
		st, exists := j.segments[i]
		if !exists || st.Status != SegmentPending {
			continue
		}
		st.Status = SegmentProcessing
		st.StartedAt = time.Now()
		j.active++
		if j.status == StatusChunking {
			j.status = StatusTranscribing
		}
		return i, st.Attempts, st.Segment.Path, true
	}
	return 0, 0, "", false
}

// applyResult records a worker's outcome. Results whose attempt token no
// longer matches belong to a worker the watchdog already gave up on and
// are discarded: only one worker may ever own a processing segment.
func (j *Job) applyResult(index, attempt int, text string, confidence float64, resultErr error, cfg *Config) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.isTerminalLocked() {
		return
	}
	st, exists := j.segments[index]
	if !exists || st.Status != SegmentProcessing || st.Attempts != attempt {
		log.Printf("job %s: discarding stale result for segment %d", j.ID, index)
		return
	}
	elapsed := time.Since(st.StartedAt)
	j.active--

	if resultErr != nil {
		j.failSegmentLocked(st, resultErr.Error(), cfg)
		return
	}

	st.Status = SegmentCompleted
	st.Text = text
	st.Confidence = confidence
	st.Err = ""

	if elapsed > cfg.SlowThreshold {
		j.slowSegments++
		log.Printf("job %s: slow segment %d took %.1fs (%d/%d before degradation)",
			j.ID, index, elapsed.Seconds(), j.slowSegments, cfg.SlowLimit)
		if j.slowSegments >= cfg.SlowLimit && !j.degraded {
			j.degraded = true
			log.Printf("job %s: degrading to single-threaded processing", j.ID)
		}
	}

	j.advanceLocked()
}

// failSegmentLocked re-queues the segment when retries remain, otherwise
// marks it permanently failed and lets the transcript advance past it.
func (j *Job) failSegmentLocked(st *SegmentState, msg string, cfg *Config) {
	if st.Attempts < cfg.MaxRetries {
		st.Attempts++
		st.Status = SegmentPending
		st.Err = msg
		st.StartedAt = time.Time{}
		log.Printf("job %s: re-queued segment %d (attempt %d/%d): %s",
			j.ID, st.Segment.Index, st.Attempts, cfg.MaxRetries, msg)
		return
	}
	st.Status = SegmentFailed
	st.Err = msg
	j.failed = append(j.failed, st.Segment.Index)
	log.Printf("job %s: segment %d permanently failed: %s", j.ID, st.Segment.Index, msg)
	j.advanceLocked()
}

// expireStuck force-fails processing segments older than the stuck
// timeout and frees their worker slots. Returns the expired indices.
func (j *Job) expireStuck(cfg *Config) []int {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.isTerminalLocked() {
		return nil
	}

	var expired []int
	now := time.Now()
	for i := 0; i < j.total; i++ {
		st, exists := j.segments[i]
		if !exists || st.Status != SegmentProcessing {
			continue
		}
		if now.Sub(st.StartedAt) <= cfg.StuckTimeout {
			continue
		}
		expired = append(expired, i)
		j.active--
		log.Printf("job %s: segment %d stuck in processing for %.0fs, abandoning worker",
			j.ID, i, now.Sub(st.StartedAt).Seconds())
		j.failSegmentLocked(st, (&SegmentTimeoutError{Timeout: cfg.StuckTimeout}).Error(), cfg)
	}
	return expired
}

// markStopped halts the job on request. In-flight segments are failed as
// stopped; their underlying model calls are abandoned, not killed.
func (j *Job) markStopped() bool {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.isTerminalLocked() {
		return false
	}
	j.status = StatusStopped
	j.finishedAt = time.Now()
	for _, st := range j.segments {
		if st.Status == SegmentProcessing {
			st.Status = SegmentFailed
			st.Err = "stopped by request"
			j.failed = append(j.failed, st.Segment.Index)
		}
	}
	j.active = 0
	return true
}

// failJob records a job-level failure (segmentation errors only; segment
// failures never fail the job on their own).
func (j *Job) failJob(err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.isTerminalLocked() {
		return
	}
	j.status = StatusFailed
	j.errMsg = err.Error()
	j.finishedAt = time.Now()
}

// tryFinish finalizes the job once chunking is done and every segment has
// reached a terminal state. Returns true when the job just became (or
// already was) terminal.
func (j *Job) tryFinish() bool {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.isTerminalLocked() {
		return true
	}
	if !j.chunkingDone || j.active > 0 || j.total == 0 {
		return false
	}
	completed := 0
	for i := 0; i < j.total; i++ {
		st, exists := j.segments[i]
		if !exists {
			return false
		}
		switch st.Status {
		case SegmentCompleted:
			completed++
		case SegmentFailed:
		default:
			return false
		}
	}

	j.finishedAt = time.Now()
	if completed == 0 {
		j.status = StatusFailed
		j.errMsg = (&AllSegmentsFailedError{Total: j.total}).Error()
	} else {
		j.status = StatusCompleted
	}
	return true
}
