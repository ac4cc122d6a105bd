package fractal

import "sync"

type scheduler struct {
	pool      *workerPool
	batchSize int
}

// newScheduler runs levels inline when only one worker is requested
func newScheduler(workers, batchSize int) *scheduler {
	if batchSize < 1 {
		batchSize = 1
	}
	s := &scheduler{batchSize: batchSize}
	if workers > 1 {
		s.pool = newWorkerPool(workers)
	}
	return s
}

func (s *scheduler) stop() {
	if s.pool != nil {
		s.pool.stop()
	}
}

// propagate computes one frame. Root first, then every level strictly
// after the previous one has fully committed.
func (s *scheduler) propagate(t *Tree, spinAngleDelta, scaleFactor float32, owner Owner) {
	root := &t.Levels[0]
	updateRoot(&root.Parts[0], &root.Matrices[0], spinAngleDelta, owner)

	for l := 1; l < len(t.Levels); l++ {
		job := levelJob{
			parents:        t.Levels[l-1].Parts,
			parts:          t.Levels[l].Parts,
			matrices:       t.Levels[l].Matrices,
			spinAngleDelta: spinAngleDelta,
			scale:          LevelScale(owner.Scale, scaleFactor, l),
		}
		s.dispatch(&job)
	}
}

// dispatch splits a level into batches and returns once all of them are done
func (s *scheduler) dispatch(job *levelJob) {
	count := len(job.parts)
	if s.pool == nil || count <= s.batchSize {
		job.execute(0, count)
		return
	}

	var wg sync.WaitGroup
	for start := 0; start < count; start += s.batchSize {
		end := start + s.batchSize
		if end > count {
			end = count
		}
		wg.Add(1)
		batchStart := start
		s.pool.submit(func() {
			defer wg.Done()
			job.execute(batchStart, end)
		})
	}
	wg.Wait()
}
