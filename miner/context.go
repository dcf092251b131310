package miner

import (
	"sync"

	"github.com/botcoin-project/botcoin/chain"
)

// Context is the immutable snapshot workers grind nonces against. Once
// published it is never mutated; a worker that wants a different nonce
// copies the template block and mutates its own copy's header.
type Context struct {
	Template chain.BlockTemplate
	SeedHash chain.Hash
	Bits     uint32
	JobID    uint64
	Height   uint64
}

// contextBox publishes a *Context under a mutex and wakes any goroutine
// blocked in Wait, mirroring the teacher's channel-dispatch-loop idiom
// but specialized to the single-writer/many-reader shape this layer
// needs: workers only ever read the latest context, never request one
// over a channel round-trip.
type contextBox struct {
	mu      sync.Mutex
	cond    *sync.Cond
	cur     *Context
	stopped bool
}

func newContextBox() *contextBox {
	b := &contextBox{}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Publish installs ctx as current and wakes all waiters. job_id ordering
// is the caller's responsibility: Publish does not itself assign job IDs.
func (b *contextBox) Publish(ctx *Context) {
	b.mu.Lock()
	b.cur = ctx
	b.mu.Unlock()
	b.cond.Broadcast()
}

// Load returns the current context, or nil if none has been published
// yet.
func (b *contextBox) Load() *Context {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cur
}

// Stop wakes every goroutine blocked in WaitForJob without requiring a
// context to ever be published, so a shutdown that races a worker's
// first wait (or a run that never mines, so no template is ever
// published) cannot hang in wg.Wait().
func (b *contextBox) Stop() {
	b.mu.Lock()
	b.stopped = true
	b.mu.Unlock()
	b.cond.Broadcast()
}

// WaitForJob blocks until a context with JobID different from lastJobID
// has been published, or returns immediately if one already has been.
// It returns nil if the box is stopped before that happens.
func (b *contextBox) WaitForJob(lastJobID uint64) *Context {
	b.mu.Lock()
	defer b.mu.Unlock()
	for !b.stopped && (b.cur == nil || b.cur.JobID == lastJobID) {
		b.cond.Wait()
	}
	if b.stopped {
		return nil
	}
	return b.cur
}
