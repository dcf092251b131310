package miner

import (
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/metrics"
)

// Stats holds the miner's atomic scalar counters. All fields are safe
// for concurrent access; they carry no happens-before relationship with
// block submission and exist purely for observability, per §5.
type Stats struct {
	HashCount     atomic.Uint64
	BlocksFound   atomic.Uint64
	StaleBlocks   atomic.Uint64
	TemplateCount atomic.Uint64
	BackoffLevel  atomic.Uint32
	FastMode      atomic.Bool
	StartTime     atomic.Int64 // unix nanos

	hashrate metrics.Meter
}

func newStats() *Stats {
	return &Stats{hashrate: metrics.NewMeter()}
}

func (s *Stats) markStart() {
	s.StartTime.Store(time.Now().UnixNano())
}

// AddHashes folds a worker's batched local hash count into the shared
// totals, per §4.7's HASH_BATCH_SIZE flush policy.
func (s *Stats) AddHashes(n uint64) {
	s.HashCount.Add(n)
	s.hashrate.Mark(int64(n))
}

func (s *Stats) Hashrate1m() float64 { return s.hashrate.Rate1() }

// Snapshot is a point-in-time, human-readable copy used for the shutdown
// summary log line and tests.
type Snapshot struct {
	HashCount     uint64
	BlocksFound   uint64
	StaleBlocks   uint64
	TemplateCount uint64
	FastMode      bool
	Runtime       time.Duration
	AverageHashrate float64
}

func (s *Stats) Snapshot() Snapshot {
	start := s.StartTime.Load()
	var runtime time.Duration
	if start != 0 {
		runtime = time.Since(time.Unix(0, start))
	}
	hashes := s.HashCount.Load()
	var avg float64
	if runtime > 0 {
		avg = float64(hashes) / runtime.Seconds()
	}
	return Snapshot{
		HashCount:       hashes,
		BlocksFound:     s.BlocksFound.Load(),
		StaleBlocks:     s.StaleBlocks.Load(),
		TemplateCount:   s.TemplateCount.Load(),
		FastMode:        s.FastMode.Load(),
		Runtime:         runtime,
		AverageHashrate: avg,
	}
}
