package miner

import (
	"testing"
	"time"

	"github.com/botcoin-project/botcoin/chain"
)

func TestContextBoxLoadBeforePublishIsNil(t *testing.T) {
	b := newContextBox()
	if got := b.Load(); got != nil {
		t.Errorf("Load before any Publish = %v, want nil", got)
	}
}

func TestContextBoxPublishThenLoad(t *testing.T) {
	b := newContextBox()
	ctx := &Context{JobID: 1, Bits: 0x1d00ffff}
	b.Publish(ctx)

	if got := b.Load(); got != ctx {
		t.Errorf("Load() = %v, want %v", got, ctx)
	}
}

func TestContextBoxWaitForJobReturnsImmediatelyWhenAlreadyNewer(t *testing.T) {
	b := newContextBox()
	b.Publish(&Context{JobID: 5})

	done := make(chan *Context, 1)
	go func() { done <- b.WaitForJob(4) }()

	select {
	case got := <-done:
		if got.JobID != 5 {
			t.Errorf("JobID = %d, want 5", got.JobID)
		}
	case <-time.After(time.Second):
		t.Fatal("WaitForJob did not return for an already-newer job")
	}
}

func TestContextBoxWaitForJobBlocksUntilPublish(t *testing.T) {
	b := newContextBox()
	b.Publish(&Context{JobID: 1})

	done := make(chan *Context, 1)
	go func() { done <- b.WaitForJob(1) }()

	select {
	case <-done:
		t.Fatal("WaitForJob returned before a newer job was published")
	case <-time.After(50 * time.Millisecond):
	}

	b.Publish(&Context{JobID: 2, SeedHash: chain.Hash{9}})

	select {
	case got := <-done:
		if got.JobID != 2 {
			t.Errorf("JobID = %d, want 2", got.JobID)
		}
	case <-time.After(time.Second):
		t.Fatal("WaitForJob did not wake after a newer job was published")
	}
}

func TestContextBoxWaitForJobIgnoresSameJobIDRepublish(t *testing.T) {
	b := newContextBox()
	ctx := &Context{JobID: 7}
	b.Publish(ctx)

	done := make(chan *Context, 1)
	go func() { done <- b.WaitForJob(7) }()

	// republishing the same job id must not wake a waiter blocked on it
	b.Publish(&Context{JobID: 7})

	select {
	case <-done:
		t.Fatal("WaitForJob woke on a republish carrying the same JobID")
	case <-time.After(50 * time.Millisecond):
	}

	b.Publish(&Context{JobID: 8})
	select {
	case got := <-done:
		if got.JobID != 8 {
			t.Errorf("JobID = %d, want 8", got.JobID)
		}
	case <-time.After(time.Second):
		t.Fatal("WaitForJob did not wake on a genuinely new JobID")
	}
}

func TestContextBoxStopWakesWaiterWithNoContextPublished(t *testing.T) {
	b := newContextBox()

	done := make(chan *Context, 1)
	go func() { done <- b.WaitForJob(0) }()

	select {
	case <-done:
		t.Fatal("WaitForJob returned before Stop, with no context ever published")
	case <-time.After(50 * time.Millisecond):
	}

	b.Stop()

	select {
	case got := <-done:
		if got != nil {
			t.Errorf("WaitForJob after Stop = %v, want nil", got)
		}
	case <-time.After(time.Second):
		t.Fatal("WaitForJob did not wake on Stop, would hang a worker goroutine forever")
	}
}

func TestContextBoxStopWakesWaiterWaitingOnSameJobID(t *testing.T) {
	b := newContextBox()
	b.Publish(&Context{JobID: 3})

	done := make(chan *Context, 1)
	go func() { done <- b.WaitForJob(3) }()

	select {
	case <-done:
		t.Fatal("WaitForJob returned before Stop")
	case <-time.After(50 * time.Millisecond):
	}

	b.Stop()

	select {
	case got := <-done:
		if got != nil {
			t.Errorf("WaitForJob after Stop = %v, want nil", got)
		}
	case <-time.After(time.Second):
		t.Fatal("WaitForJob did not wake on Stop")
	}
}
