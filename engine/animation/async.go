package animation

import (
	"log/slog"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"

	"github.com/Carmen-Shannon/oxy-anim/engine/decoder"
)

// fetchResult is the outcome of an off-thread fetch waiting to be installed by Sync.
type fetchResult[K comparable] struct {
	id   K
	anim *animation
	res  *decoder.Result
	err  error
}

func (c *cache[K]) PreloadAsync(ids ...K) {
	for _, id := range ids {
		a, ok := c.entries[id]
		switch {
		case !ok:
			a = &animation{state: StatePending}
			c.entries[id] = a
		case a.state == StateFailed && c.retryFailed:
			c.freeAll(a.reset())
		default:
			continue
		}
		c.submit(id, a)
	}
}

func (c *cache[K]) Sync() int {
	c.resultMu.Lock()
	results := c.results
	c.results = nil
	c.resultMu.Unlock()

	installed := 0
	for _, r := range results {
		// The entry was released, or released and re-added, while decoding.
		if c.entries[r.id] != r.anim {
			c.log.Debug("discarded stale animation load", slog.Any("id", r.id))
			continue
		}
		c.install(r.id, r.anim, r.res, r.err)
		installed++
	}
	return installed
}

// submit queues the fetch for a pending entry on the worker pool.
func (c *cache[K]) submit(id K, a *animation) {
	if c.pool == nil {
		// Queue size of 256 covers a directory worth of animations queued at once.
		c.pool = worker.NewDynamicWorkerPool(c.workers, 256, 1*time.Second)
	}

	taskID := c.taskID
	c.taskID++
	c.pool.SubmitTask(worker.Task{
		ID: taskID,
		Do: func() (any, error) {
			res, err := c.fetch(id)

			c.resultMu.Lock()
			c.results = append(c.results, fetchResult[K]{id: id, anim: a, res: res, err: err})
			c.resultMu.Unlock()
			return nil, nil
		},
	})
}
