package lane

import (
	"sync"
)

// Group runs submitted functions so that work sharing a key executes one at a time
// in submission order, while different keys proceed concurrently. Submit never blocks
// on running work.
type Group struct {
	// OnPanic receives values recovered from submitted functions. The lane keeps
	// draining either way.
	OnPanic func(key string, v any)

	mu     sync.Mutex
	lanes  map[string][]func()
	wg     sync.WaitGroup
	closed bool
}

func NewGroup() *Group {
	return &Group{
		lanes: make(map[string][]func()),
	}
}

// Submit queues fn behind any pending work for key. It reports false once the
// group is closed.
func (g *Group) Submit(key string, fn func()) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return false
	}

	pending, running := g.lanes[key]
	g.lanes[key] = append(pending, fn)
	if !running {
		g.wg.Add(1)
		go g.drain(key)
	}
	return true
}

// Pending returns how many functions are queued or running for key.
func (g *Group) Pending(key string) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	return len(g.lanes[key])
}

// Close stops accepting work and waits for every lane to drain.
func (g *Group) Close() {
	g.mu.Lock()
	g.closed = true
	g.mu.Unlock()

	g.wg.Wait()
}

func (g *Group) drain(key string) {
	defer g.wg.Done()

	for {
		g.mu.Lock()
		queue := g.lanes[key]
		if len(queue) == 0 {
			delete(g.lanes, key)
			g.mu.Unlock()
			return
		}
		fn := queue[0]
		g.mu.Unlock()

		g.run(key, fn)

		g.mu.Lock()
		queue = g.lanes[key]
		queue[0] = nil
		g.lanes[key] = queue[1:]
		g.mu.Unlock()
	}
}

func (g *Group) run(key string, fn func()) {
	defer func() {
		if v := recover(); v != nil && g.OnPanic != nil {
			g.OnPanic(key, v)
		}
	}()
	fn()
}
