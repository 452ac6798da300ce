package transcription

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"intellimind/internal/chunking"
)

// Segmenter produces segments for a source, emitting each one as soon as
// it is ready so transcription can begin while chunking continues.
type Segmenter interface {
	Run(ctx context.Context, req chunking.Request, emit func(chunking.Segment) error) (int, error)
}

// pipeline runs one job: the segmenter feeding the queue, the bounded
// dispatch loop, and the watchdog. All three share the job's state under
// its lock.
type pipeline struct {
	job         *Job
	cfg         *Config
	segmenter   Segmenter
	transcriber SegmentTranscriber
	segReq      chunking.Request

	cancel     context.CancelFunc
	notify     chan struct{}
	wg         sync.WaitGroup
	onFinish   func(Snapshot)
	finishOnce sync.Once
}

func (p *pipeline) start(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	p.cancel = cancel
	p.job.setStatus(StatusChunking)

	p.wg.Add(3)
	go p.runSegmenter(ctx)
	go p.runScheduler(ctx)
	go p.runWatchdog(ctx)
}

// kick wakes the scheduler without blocking.
func (p *pipeline) kick() {
	select {
	case p.notify <- struct{}{}:
	default:
	}
}

func (p *pipeline) runSegmenter(ctx context.Context) {
	defer p.wg.Done()

	count, err := p.segmenter.Run(ctx, p.segReq, func(seg chunking.Segment) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		p.job.addSegment(seg)
		p.kick()
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("job %s: segmentation failed: %v", p.job.ID, err)
		p.job.failJob(err)
		p.finish()
		return
	}
	p.job.markChunkingComplete(count)
	p.kick()
}

func (p *pipeline) runScheduler(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.cfg.DispatchInterval)
	defer ticker.Stop()

	for {
		p.dispatch(ctx)
		if p.job.tryFinish() {
			p.finish()
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-p.notify:
		case <-ticker.C:
		}
	}
}

// dispatch hands pending segments to workers until no slot or segment
// remains. Lowest index wins so the reassembler's contiguous run grows as
// directly as possible.
func (p *pipeline) dispatch(ctx context.Context) {
	for {
		index, attempt, path, ok := p.job.claimNext()
		if !ok {
			return
		}
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			text, confidence, err := p.transcriber.Transcribe(ctx, path)
			p.job.applyResult(index, attempt, text, confidence, err, p.cfg)
			p.kick()
		}()
	}
}

func (p *pipeline) stop() error {
	if !p.job.markStopped() {
		return ErrJobFinished
	}
	log.Printf("job %s: stopped by request", p.job.ID)
	p.finish()
	return nil
}

// finish fires exactly once when the job reaches a terminal state. It
// cancels the loops and reports the final snapshot.
func (p *pipeline) finish() {
	p.finishOnce.Do(func() {
		p.cancel()
		snap := p.job.Snapshot()
		log.Printf("job %s: finished with status %s (%d/%d segments, %d failed)",
			snap.JobID, snap.Status, snap.Completed, snap.Total, snap.Failed)
		if p.onFinish != nil {
			p.onFinish(snap)
		}
	})
}

// wait blocks until the pipeline's goroutines exit. Abandoned model calls
// inside the guarded transcriber are not waited on.
func (p *pipeline) wait() {
	p.wg.Wait()
}
