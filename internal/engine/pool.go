package engine

import (
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Task is one unit of work. Tasks must not wait on each other.
type Task func()

// Pool is a fixed set of workers draining a task queue. Submit does not wait
// for the task to run.
type Pool struct {
	workers int
	tasks   chan Task
	group   errgroup.Group
	pending sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewPool starts workers goroutines (runtime.NumCPU() when workers <= 0)
// behind a queue of the given capacity.
func NewPool(workers, queue int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if queue < workers {
		queue = workers
	}
	p := &Pool{
		workers: workers,
		tasks:   make(chan Task, queue),
	}
	for w := 0; w < workers; w++ {
		p.group.Go(func() error {
			for t := range p.tasks {
				p.run(t)
			}
			return nil
		})
	}
	return p
}

func (p *Pool) run(t Task) {
	defer p.pending.Done()
	defer func() {
		if r := recover(); r != nil {
			Logger().Warn("pool task panicked", "panic", r)
		}
	}()
	t()
}

// Submit queues t and reports whether it was accepted. A closed pool rejects
// all work.
func (p *Pool) Submit(t Task) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false
	}
	p.pending.Add(1)
	p.tasks <- t
	return true
}

// Wait blocks until every accepted task has finished.
func (p *Pool) Wait() {
	p.pending.Wait()
}

// Close stops intake, lets queued tasks finish and stops the workers.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()
	return p.group.Wait()
}

func (p *Pool) Workers() int { return p.workers }
