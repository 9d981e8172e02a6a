// Package tasks runs whole operations in the background on a fixed number of
// workers. Callers get a Future for each submitted task, and every
// completion is also published on the pool's event channel.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrPoolClosed is returned by Submit after Close.
	ErrPoolClosed = errors.New("task pool is closed")

	// ErrQueueFull is returned by Submit when no queue slot is free.
	ErrQueueFull = errors.New("task queue is full")
)

const (
	DefaultWorkers   = 2
	DefaultQueueSize = 16

	eventBuffer = 64
)

// Task is a unit of background work.
type Task func(ctx context.Context) (interface{}, error)

// Status of a future.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Event announces a finished task.
type Event struct {
	ID       string
	Name     string
	Result   interface{}
	Err      error
	Duration time.Duration
}

// Future is the handle to a submitted task.
type Future struct {
	ID          string
	Name        string
	SubmittedAt time.Time

	mu       sync.Mutex
	status   Status
	started  time.Time
	finished time.Time
	result   interface{}
	err      error
	done     chan struct{}
}

// Done is closed once the task has finished.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the task finishes or ctx is done.
func (f *Future) Wait(ctx context.Context) (interface{}, error) {
	select {
	case <-f.done:
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.result, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Snapshot is a point-in-time view of a future.
type Snapshot struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Status      Status      `json:"status"`
	SubmittedAt time.Time   `json:"submitted_at"`
	StartedAt   *time.Time  `json:"started_at,omitempty"`
	FinishedAt  *time.Time  `json:"finished_at,omitempty"`
	Result      interface{} `json:"result,omitempty"`
	Error       string      `json:"error,omitempty"`
}

// Snapshot returns the current state without blocking.
func (f *Future) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()

	s := Snapshot{
		ID:          f.ID,
		Name:        f.Name,
		Status:      f.status,
		SubmittedAt: f.SubmittedAt,
		Result:      f.result,
	}
	if !f.started.IsZero() {
		started := f.started
		s.StartedAt = &started
	}
	if !f.finished.IsZero() {
		finished := f.finished
		s.FinishedAt = &finished
	}
	if f.err != nil {
		s.Error = f.err.Error()
	}
	return s
}

type job struct {
	future *Future
	task   Task
}

// Pool is a bounded worker pool.
type Pool struct {
	jobs   chan *job
	events chan Event
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.RWMutex
	closed  bool
	futures map[string]*Future
}

// NewPool starts workers goroutines fed from a queue of queueSize slots.
// Non-positive values fall back to the defaults.
func NewPool(workers, queueSize int) *Pool {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		jobs:    make(chan *job, queueSize),
		events:  make(chan Event, eventBuffer),
		ctx:     ctx,
		cancel:  cancel,
		futures: make(map[string]*Future),
	}

	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}

	return p
}

// Submit queues task without blocking.
func (p *Pool) Submit(name string, task Task) (*Future, error) {
	f := &Future{
		ID:          uuid.NewString(),
		Name:        name,
		SubmittedAt: time.Now(),
		status:      StatusQueued,
		done:        make(chan struct{}),
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrPoolClosed
	}

	select {
	case p.jobs <- &job{future: f, task: task}:
	default:
		return nil, ErrQueueFull
	}

	// TODO: evict finished futures after a retention period; long-running servers keep every job.
	p.futures[f.ID] = f
	return f, nil
}

// Get looks up a future by id.
func (p *Pool) Get(id string) (*Future, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	f, ok := p.futures[id]
	return f, ok
}

// Events delivers one Event per finished task. Events are dropped when the
// buffer is full so that workers never block on a slow reader. The channel
// is closed by Close.
func (p *Pool) Events() <-chan Event {
	return p.events
}

// Close stops accepting tasks, waits for queued and running tasks to finish
// and closes the event channel.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()

	p.wg.Wait()
	p.cancel()
	close(p.events)
}

// Cancel cancels the context passed to running tasks. Queued tasks still
// run, with an already cancelled context.
func (p *Pool) Cancel() {
	p.cancel()
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for j := range p.jobs {
		p.run(j)
	}
}

func (p *Pool) run(j *job) {
	f := j.future

	f.mu.Lock()
	f.status = StatusRunning
	f.started = time.Now()
	f.mu.Unlock()

	result, err := safeCall(p.ctx, j.task)

	f.mu.Lock()
	f.result = result
	f.err = err
	f.finished = time.Now()
	if err != nil {
		f.status = StatusFailed
	} else {
		f.status = StatusCompleted
	}
	duration := f.finished.Sub(f.started)
	f.mu.Unlock()
	close(f.done)

	select {
	case p.events <- Event{ID: f.ID, Name: f.Name, Result: result, Err: err, Duration: duration}:
	default:
	}
}

// safeCall turns a panicking task into a failed one.
func safeCall(ctx context.Context, task Task) (result interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return task(ctx)
}
