package debpkg

import "sync"

const defaultWorkers = 16

// task is a unit of work scheduled on a workPool. A non-nil return is a
// failure recorded by the pool; it does not stop sibling tasks.
type task func() error

// workPool is a fixed-concurrency worker pool that supports recursive
// scheduling: a running task may call schedule again, and wait() only
// returns once the whole transitive closure of scheduled tasks has
// finished. Grounded on the WaitGroup-plus-channel fan-out pattern in
// toluschr-xdeb-install's SyncRepositories, generalized from that
// function's fixed pre-computed operation count to open-ended recursive
// fan-out (install-one schedules further install-ones while running).
//
// Concurrency is bounded by a semaphore rather than a fixed-size job
// channel: scheduling itself never blocks, so a task that schedules more
// tasks from inside the pool can't deadlock against a full queue.
type workPool struct {
	sem chan struct{}
	wg  sync.WaitGroup

	mu                      sync.Mutex
	firstErr                error
	throwOnFailedDependency bool
}

func newWorkPool(workers int) *workPool {
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &workPool{sem: make(chan struct{}, workers)}
}

// schedule enqueues t for execution. Safe to call from inside a task
// already running on this pool.
func (p *workPool) schedule(t task) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.sem <- struct{}{}
		defer func() { <-p.sem }()

		if err := t(); err != nil {
			p.recordError(err)
		}
	}()
}

func (p *workPool) recordError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.firstErr == nil {
		p.firstErr = err
	}
}

// wait blocks until every scheduled task, and everything they transitively
// scheduled, has completed. If throwOnFailedDependency is set, the first
// recorded task error is returned.
func (p *workPool) wait() error {
	p.wg.Wait()
	if !p.throwOnFailedDependency {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.firstErr
}
