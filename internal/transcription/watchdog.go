package transcription

import (
	"context"
	"time"
)

// runWatchdog periodically scans in-flight segments and force-fails any
// that outlived the stuck timeout, freeing their slots for re-dispatch.
// The scan never waits on a stuck worker; it reassigns ownership and the
// worker's eventual result is discarded by the attempt-token check.
func (p *pipeline) runWatchdog(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.cfg.WatchdogInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if expired := p.job.expireStuck(p.cfg); len(expired) > 0 {
				p.kick()
			}
		}
	}
}
