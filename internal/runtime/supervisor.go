// internal/runtime/supervisor.go
package runtime

import (
	"context"
	"fmt"
	"log"
	"time"
)

const (
	maxRestarts   = 3
	restartWindow = 60 * time.Second
)

// SupervisedTask names one independently restartable background role:
// the Temperature Reader, Fan Governor, Event Router, Notification
// Dispatcher, or IPC Server.
type SupervisedTask struct {
	Name  string
	Run   func(ctx context.Context) error
	Fatal bool // persistent failure reported on Supervisor.FatalCh when true
}

// Supervisor restarts a task's Run up to maxRestarts times within
// restartWindow. A task that exhausts its restart budget is reported
// on FatalCh if marked Fatal; otherwise it is logged and abandoned -
// matching spec's carve-out that Notification Dispatcher failures are
// never fatal to the daemon.
type Supervisor struct {
	FatalCh chan error
}

func NewSupervisor() *Supervisor {
	return &Supervisor{FatalCh: make(chan error, 1)}
}

// Supervise runs task.Run in its own goroutine under the restart
// policy, until ctx is cancelled.
func (s *Supervisor) Supervise(ctx context.Context, task SupervisedTask) {
	go s.run(ctx, task)
}

func (s *Supervisor) run(ctx context.Context, task SupervisedTask) {
	var failures []time.Time

	for {
		err := task.Run(ctx)
		if ctx.Err() != nil {
			return
		}
		if err == nil {
			return // clean exit, nothing to restart
		}

		log.Printf("runtime: task %s failed: %v", task.Name, err)

		now := time.Now()
		cutoff := now.Add(-restartWindow)
		kept := failures[:0]
		for _, f := range failures {
			if f.After(cutoff) {
				kept = append(kept, f)
			}
		}
		failures = append(kept, now)

		if len(failures) > maxRestarts {
			log.Printf("runtime: task %s exceeded %d restarts within %s", task.Name, maxRestarts, restartWindow)
			if task.Fatal {
				select {
				case s.FatalCh <- fmt.Errorf("task %s: %w", task.Name, err):
				default:
				}
			}
			return
		}
	}
}
