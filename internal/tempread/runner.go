// internal/tempread/runner.go
package tempread

import (
	"context"
	"time"
)

// Run starts the ticker loop and emits Result on the provided channel.
// One goroutine, no overlap, no retries - matching the Protocol
// Engine's own single-purpose-loop shape.
func (r *Reader) Run(ctx context.Context, out chan<- Result) {
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			out <- r.PollOnce(ctx)
		}
	}
}
