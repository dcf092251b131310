package miner

import (
	"math/rand"
	"time"
)

const minPeers = 3

// backoffDelay computes base = 1000ms * 2^min(level, 6) plus uniform
// jitter in [0, base/4], using rng (a caller-owned, thread-local
// generator — no cross-thread coordination, per design notes).
func backoffDelay(level uint32, rng *rand.Rand) time.Duration {
	shift := level
	if shift > 6 {
		shift = 6
	}
	base := time.Duration(1000<<shift) * time.Millisecond
	jitter := time.Duration(rng.Int63n(int64(base)/4 + 1))
	return base + jitter
}

func newThreadLocalRand() *rand.Rand {
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}
