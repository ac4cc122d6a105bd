package fractal

import "sync"

// workerPool keeps goroutines alive between frames, so a level dispatch
// costs a channel send per batch instead of a goroutine spawn
type workerPool struct {
	tasks chan func()
	wg    sync.WaitGroup
	once  sync.Once
}

func newWorkerPool(workers int) *workerPool {
	if workers < 1 {
		workers = 1
	}
	p := &workerPool{
		tasks: make(chan func(), workers*4),
	}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.work()
	}
	return p
}

func (p *workerPool) work() {
	defer p.wg.Done()
	for task := range p.tasks {
		task()
	}
}

func (p *workerPool) submit(task func()) {
	p.tasks <- task
}

// stop waits for queued tasks and exits workers. Safe to call twice.
func (p *workerPool) stop() {
	p.once.Do(func() {
		close(p.tasks)
		p.wg.Wait()
	})
}
