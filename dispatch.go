package fmailer

import (
	"context"
	"log/slog"
	"sync"
)

// workerPool is a fixed-size pool of goroutines draining a FIFO task queue.
// The queue is unbounded so that submission never blocks the caller; tasks
// beyond the worker count simply wait for a free worker.
type workerPool struct {
	mu      sync.Mutex // guards queue and closing
	cond    *sync.Cond
	queue   []func()
	closing bool
	wg      sync.WaitGroup
}

func newWorkerPool(workerCount int) *workerPool {
	pool := &workerPool{}
	pool.cond = sync.NewCond(&pool.mu)

	slog.Debug("Starting async worker pool", "workerCount", workerCount)

	for i := 1; i <= workerCount; i++ {
		pool.wg.Add(1)
		go func(workerNum int) {
			defer pool.wg.Done()

			slog.Debug("Worker started", "worker", workerNum)
			for {
				pool.mu.Lock()
				for len(pool.queue) == 0 && !pool.closing {
					pool.cond.Wait()
				}
				if len(pool.queue) == 0 {
					// Closing and fully drained.
					pool.mu.Unlock()
					slog.Debug("Worker stopping", "worker", workerNum)
					return
				}
				task := pool.queue[0]
				pool.queue = pool.queue[1:]
				pool.mu.Unlock()

				task()
			}
		}(i)
	}

	return pool
}

// trySubmit appends the task to the queue. It returns false if the pool is
// already closing, in which case the task was not accepted.
func (p *workerPool) trySubmit(task func()) bool {
	p.mu.Lock()
	if p.closing {
		p.mu.Unlock()
		return false
	}
	p.queue = append(p.queue, task)
	p.mu.Unlock()

	p.cond.Signal()
	return true
}

// shutdown stops intake. Already-queued and in-flight tasks run to completion
// either way; wait controls whether the call blocks until they have.
func (p *workerPool) shutdown(wait bool) {
	p.mu.Lock()
	p.closing = true
	p.mu.Unlock()

	p.cond.Broadcast()

	if wait {
		slog.Debug("Waiting for workers to finish...")
		p.wg.Wait()
		slog.Debug("All workers finished")
	}
}

// getPool returns the client's worker pool, creating it on first use. Only one
// pool ever exists per client at a time, even under concurrent first
// submissions.
func (c *Client) getPool() *workerPool {
	c.poolMu.Lock()
	defer c.poolMu.Unlock()
	if c.pool == nil {
		c.pool = newWorkerPool(c.maxWorkers)
	}
	return c.pool
}

// submit wraps one send attempt into a pool task and returns its handle. The
// callback (if any) runs on the worker, before the handle reports completion,
// so a blocking waiter never observes a finished task whose callback has not
// run yet.
func (c *Client) submit(send func() (bool, error), callback SendCallback) *TaskHandle {
	handle := newTaskHandle()

	task := func() {
		ok, err := send()
		if err != nil {
			slog.Error("Async email send failed", "error", err)
			if callback != nil {
				callback(false, err)
			}
			handle.complete(false, err)
			return
		}
		if callback != nil {
			callback(ok, nil)
		}
		handle.complete(ok, nil)
	}

	for {
		pool := c.getPool()
		if pool.trySubmit(task) {
			return handle
		}
		// The pool shut down between getPool and trySubmit. Drop the stale
		// reference so the next iteration creates a fresh pool.
		c.poolMu.Lock()
		if c.pool == pool {
			c.pool = nil
		}
		c.poolMu.Unlock()
	}
}

// SendSimpleAsync submits a plain email for delivery on the worker pool and
// returns immediately. The network call never runs on the caller's goroutine.
// The optional callback receives the outcome exactly once; the returned handle
// can be polled with IsDone and awaited with Result independently of it.
func (c *Client) SendSimpleAsync(ctx context.Context, mail SimpleMail, callback SendCallback) *TaskHandle {
	return c.submit(func() (bool, error) {
		return c.SendSimple(ctx, mail)
	}, callback)
}

// SendTemplatedAsync is the asynchronous counterpart of SendTemplated, with
// the same submission and callback contract as SendSimpleAsync.
func (c *Client) SendTemplatedAsync(ctx context.Context, mail TemplatedMail, callback SendCallback) *TaskHandle {
	return c.submit(func() (bool, error) {
		return c.SendTemplated(ctx, mail)
	}, callback)
}

// Shutdown releases the worker pool. With wait=true it blocks until every
// queued and in-flight send has finished; with wait=false it returns
// immediately while remaining sends run to completion in the background, and
// their handles still complete. A later async send lazily creates a fresh
// pool, so a Client is only ever "closed" by its owner's discipline.
func (c *Client) Shutdown(wait bool) {
	c.poolMu.Lock()
	pool := c.pool
	c.pool = nil
	c.poolMu.Unlock()

	if pool != nil {
		slog.Debug("Shutting down async worker pool", "wait", wait)
		pool.shutdown(wait)
	}
}

// Close implements io.Closer as a non-blocking Shutdown. It exists as an
// end-of-scope safety net against leaked workers; long-running programs should
// still call Shutdown(true) explicitly when they need draining.
func (c *Client) Close() error {
	c.Shutdown(false)
	return nil
}
