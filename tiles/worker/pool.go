package worker

import (
	"context"
	"sync"
	"time"
)

// Pool runs tile loads on a bounded number of goroutines.
type Pool struct {
	workers chan struct{}
	tasks   chan Task
	quit    chan struct{}
	timeout time.Duration
	once    sync.Once
	wg      sync.WaitGroup
}

type Task struct {
	Ctx  context.Context
	Work func(ctx context.Context) error
	// Done runs after Work returns or the task is abandoned.
	Done func(err error)
}

func NewPool(maxWorkers, queueSize int, timeout time.Duration) *Pool {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	if queueSize < 1 {
		queueSize = 100
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	p := &Pool{
		workers: make(chan struct{}, maxWorkers),
		tasks:   make(chan Task, queueSize),
		quit:    make(chan struct{}),
		timeout: timeout,
	}

	go p.dispatcher()
	return p
}

func (p *Pool) dispatcher() {
	for {
		select {
		case <-p.quit:
			return
		case task := <-p.tasks:
			if task.Ctx == nil {
				task.Ctx = context.Background()
			}
			if err := task.Ctx.Err(); err != nil {
				finish(task, err)
				continue
			}
			select {
			case p.workers <- struct{}{}:
			case <-p.quit:
				finish(task, context.Canceled)
				return
			}
			p.wg.Add(1)
			go func() {
				defer p.wg.Done()
				defer func() { <-p.workers }()

				ctx, cancel := context.WithTimeout(task.Ctx, p.timeout)
				defer cancel()
				finish(task, task.Work(ctx))
			}()
		}
	}
}

func finish(task Task, err error) {
	if task.Done != nil {
		task.Done(err)
	}
}

// Submit queues a task and reports false when the queue is full or the
// pool has shut down. Callers are expected to resubmit on a later frame.
func (p *Pool) Submit(task Task) bool {
	select {
	case <-p.quit:
		return false
	default:
	}
	select {
	case p.tasks <- task:
		return true
	default:
		return false
	}
}

// Shutdown stops dispatching and waits for running tasks.
func (p *Pool) Shutdown() {
	p.once.Do(func() { close(p.quit) })
	p.wg.Wait()
}
