// Package pool runs tasks on a fixed set of worker goroutines fed from a
// shared FIFO queue.
package pool

import (
	"errors"
	"log/slog"
	"runtime/debug"
	"sync"
)

const (
	// DefaultSize is used when a non-positive worker count is requested.
	DefaultSize = 16

	// MaxSize caps the worker count.
	MaxSize = 64
)

// ErrPoolClosed is returned by Submit after Shutdown has been called.
var ErrPoolClosed = errors.New("pool: closed")

// Task is a unit of work. It runs exactly once on exactly one worker.
type Task func()

// Stats is a snapshot of the pool's counters.
type Stats struct {
	Workers   int    `json:"workers"`
	Queued    int    `json:"queued"`
	Running   int    `json:"running"`
	Completed uint64 `json:"completed"`
}

// Pool is a fixed-size worker pool. The zero value is not usable; call New.
type Pool struct {
	logger *slog.Logger
	size   int

	mu    sync.Mutex
	ready *sync.Cond // signalled when the queue gains a task or the pool closes
	idle  *sync.Cond // signalled when outstanding drops to zero

	queue       []Task
	closed      bool
	outstanding int // submitted and not yet finished
	running     int
	completed   uint64

	workers sync.WaitGroup
}

// ClampSize maps a requested worker count into [1, MaxSize], substituting
// DefaultSize for non-positive requests.
func ClampSize(size int) int {
	switch {
	case size <= 0:
		return DefaultSize
	case size > MaxSize:
		return MaxSize
	default:
		return size
	}
}

// New starts a pool of ClampSize(size) workers. A nil logger means
// slog.Default().
func New(size int, logger *slog.Logger) *Pool {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pool{
		logger: logger,
		size:   ClampSize(size),
	}
	p.ready = sync.NewCond(&p.mu)
	p.idle = sync.NewCond(&p.mu)

	p.workers.Add(p.size)
	for i := 0; i < p.size; i++ {
		go p.worker(i)
	}
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return p.size
}

// Submit enqueues task. It never blocks on task execution.
func (p *Pool) Submit(task Task) error {
	if task == nil {
		return errors.New("pool: nil task")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPoolClosed
	}
	p.queue = append(p.queue, task)
	p.outstanding++
	p.ready.Signal()
	return nil
}

// Shutdown stops accepting tasks, lets the workers finish everything already
// submitted, and returns once they have all exited. Running tasks are not
// interrupted. Calling Shutdown more than once is safe.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	p.closed = true
	p.ready.Broadcast()
	for p.outstanding > 0 {
		p.idle.Wait()
	}
	p.mu.Unlock()

	p.workers.Wait()
}

// Stats returns a snapshot of the pool counters.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		Workers:   p.size,
		Queued:    len(p.queue),
		Running:   p.running,
		Completed: p.completed,
	}
}

func (p *Pool) worker(id int) {
	defer p.workers.Done()
	for {
		task, ok := p.next()
		if !ok {
			return
		}
		p.run(id, task)
		p.finish()
	}
}

// next blocks until a task is available or the pool is closed and drained.
func (p *Pool) next() (Task, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for len(p.queue) == 0 {
		if p.closed {
			return nil, false
		}
		p.ready.Wait()
	}
	task := p.queue[0]
	p.queue[0] = nil
	p.queue = p.queue[1:]
	p.running++
	return task, true
}

func (p *Pool) run(id int, task Task) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("task panicked", "worker", id, "panic", r, "stack", string(debug.Stack()))
		}
	}()
	task()
}

func (p *Pool) finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.running--
	p.completed++
	p.outstanding--
	if p.outstanding == 0 {
		p.idle.Broadcast()
	}
}
