// internal/watch/runner.go
package watch

import (
	"context"
	"time"
)

// Run starts the ticker loop and emits Result on the provided channel.
// No overlap. No retries.
func (w *Watcher) Run(ctx context.Context, out chan<- Result) {
	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			select {
			case out <- w.PollOnce():
			case <-ctx.Done():
				return
			}
		}
	}
}
