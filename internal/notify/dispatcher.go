// internal/notify/dispatcher.go
package notify

import (
	"context"
	"log"
	"os/exec"
	"strings"
	"sync"

	"github.com/michaelroland/wdnas-hwdaemon/internal/config"
)

const (
	defaultBacklog     = 32
	defaultConcurrency = 4
)

// Dispatcher runs a user-supplied hook program per registered event,
// substituting {placeholder} tokens into the argument template. Each
// event kind gets its own bounded backlog and worker pool so a slow
// hook for one event never starves another.
type Dispatcher struct {
	registry    map[config.EventName]config.HookConfig
	concurrency int
	backlog     int

	mu      sync.Mutex
	queues  map[config.EventName]chan Notification
	stopped bool

	wg sync.WaitGroup
}

// NewDispatcher builds a Dispatcher from the hook registry produced by
// config.HooksConfig.Registry.
func NewDispatcher(registry map[config.EventName]config.HookConfig) *Dispatcher {
	return &Dispatcher{
		registry:    registry,
		concurrency: defaultConcurrency,
		backlog:     defaultBacklog,
		queues:      make(map[config.EventName]chan Notification),
	}
}

// Start launches the worker pool for every registered event. Must be
// called before Dispatch.
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for name := range d.registry {
		q := make(chan Notification, d.backlog)
		d.queues[name] = q
		for i := 0; i < d.concurrency; i++ {
			d.wg.Add(1)
			go d.worker(name, q)
		}
	}
}

// Stop closes every event queue. A worker keeps draining whatever was
// already queued (so a notification enqueued moments before Stop, such
// as the shutdown hook, still runs) and exits once its queue empties.
// Dispatch becomes a no-op after Stop.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.stopped = true
	for _, q := range d.queues {
		close(q)
	}
}

// Wait blocks until every worker goroutine has drained its queue and
// exited. Call Stop first, or this blocks forever.
func (d *Dispatcher) Wait() { d.wg.Wait() }

// Dispatch enqueues a notification for its event's worker pool.
// Hooks with no registered command are silently skipped. A full
// backlog drops the oldest queued notification for that event kind
// and logs the drop, favoring freshest state over completeness.
func (d *Dispatcher) Dispatch(n Notification) {
	if n.Event == "" {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	q, ok := d.queues[n.Event]
	if !ok {
		return // no hook registered for this event
	}

	select {
	case q <- n:
	default:
		select {
		case <-q:
			log.Printf("notify: backlog full for %s, dropped oldest notification", n.Event)
		default:
		}
		select {
		case q <- n:
		default:
		}
	}
}

func (d *Dispatcher) worker(name config.EventName, q chan Notification) {
	defer d.wg.Done()
	hook := d.registry[name]

	for n := range q {
		d.run(name, hook, n)
	}
}

func (d *Dispatcher) run(name config.EventName, hook config.HookConfig, n Notification) {
	args := make([]string, len(hook.Args))
	for i, a := range hook.Args {
		args[i] = substitute(a, n.Placeholders)
	}

	cmd := exec.CommandContext(context.Background(), hook.Command, args...)
	if err := cmd.Start(); err != nil {
		log.Printf("notify: failed to start hook for %s: %v", name, err)
		return
	}
	if err := cmd.Wait(); err != nil {
		log.Printf("notify: hook for %s exited with error: %v", name, err)
	}
}

func substitute(template string, placeholders map[string]string) string {
	out := template
	for k, v := range placeholders {
		out = strings.ReplaceAll(out, "{"+k+"}", v)
	}
	return out
}
