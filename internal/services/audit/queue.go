package audit

import (
	"context"
	"sync"

	"github.com/unifiedui/canvas-gateway/internal/domain/models"
)

// eventQueue buffers audit events for background workers.
type eventQueue struct {
	events     chan *models.AuditEvent
	workerFunc func(ctx context.Context, event *models.AuditEvent) error
	wg         sync.WaitGroup

	// mu protects started and stopped.
	mu      sync.Mutex
	started bool
	stopped bool
}

// newEventQueue creates a new queue with the specified buffer size and
// worker function.
func newEventQueue(bufferSize int, workerFunc func(ctx context.Context, event *models.AuditEvent) error) *eventQueue {
	return &eventQueue{
		events:     make(chan *models.AuditEvent, bufferSize),
		workerFunc: workerFunc,
	}
}

// start starts the queue workers.
func (q *eventQueue) start(workerCount int) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.started || q.stopped {
		return
	}
	q.started = true

	for i := 0; i < workerCount; i++ {
		q.wg.Add(1)
		go q.worker()
	}
}

// worker drains the queue until it is closed.
func (q *eventQueue) worker() {
	defer q.wg.Done()

	for event := range q.events {
		_ = q.workerFunc(context.Background(), event)
	}
}

// enqueue adds an event without blocking.  It reports false if the queue
// is full or stopped.
func (q *eventQueue) enqueue(event *models.AuditEvent) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.stopped {
		return false
	}

	select {
	case q.events <- event:
		return true
	default:
		return false
	}
}

// stop closes the queue and waits for the workers to drain it.
func (q *eventQueue) stop() {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return
	}
	q.stopped = true
	close(q.events)
	q.mu.Unlock()

	q.wg.Wait()
}

// size returns the current number of buffered events.
func (q *eventQueue) size() int {
	return len(q.events)
}
