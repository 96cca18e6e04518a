package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alitto/pond/v2"
)

const (
	// PollTimeout bounds how long an idle worker waits before rechecking
	// cancellation.
	PollTimeout = 50 * time.Millisecond
	// JoinTimeout bounds how long a restart waits for old workers.
	JoinTimeout = 2 * time.Second
)

// workerGroup runs n copies of a loop on a pond pool. Each loop owns its own
// scratch state and returns when its context is cancelled.
type workerGroup struct {
	name string
	log  *slog.Logger
	loop func(ctx context.Context, worker int)

	mu     sync.Mutex
	pool   pond.Pool
	cancel context.CancelFunc
	size   int
}

func newWorkerGroup(name string, log *slog.Logger, loop func(ctx context.Context, worker int)) *workerGroup {
	return &workerGroup{name: name, log: log, loop: loop}
}

// start launches n workers. Any running workers are stopped first.
func (g *workerGroup) start(n int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.stopLocked()
	if n <= 0 {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	pool := pond.NewPool(n, pond.WithContext(ctx))
	for i := 0; i < n; i++ {
		worker := i
		pool.Submit(func() { g.loop(ctx, worker) })
	}
	g.pool, g.cancel, g.size = pool, cancel, n
	g.log.Debug("workers started", "group", g.name, "workers", n)
}

// restart replaces the pool when n differs from the current size.
func (g *workerGroup) restart(n int) bool {
	if g.workers() == n {
		return false
	}
	g.start(n)
	return true
}

func (g *workerGroup) stop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.stopLocked()
}

func (g *workerGroup) stopLocked() {
	if g.pool == nil {
		return
	}
	g.cancel()
	done := make(chan struct{})
	pool := g.pool
	go func() {
		pool.StopAndWait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(JoinTimeout):
		g.log.Warn("workers did not stop in time", "group", g.name, "workers", g.size)
	}
	g.pool, g.cancel, g.size = nil, nil, 0
}

func (g *workerGroup) workers() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.size
}

// runTask calls fn and turns a panic into an error.
func runTask(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}
