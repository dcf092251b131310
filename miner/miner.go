// Package miner implements the internal, in-process block miner: one
// coordinator goroutine that maintains a mining template and N worker
// goroutines that grind nonces against it. See the coordinator and
// worker loops in miner.go and worker.go for the event-driven refresh
// and stride-partitioned hashing this package exists to provide.
package miner

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/botcoin-project/botcoin/chain"
	"github.com/botcoin-project/botcoin/consensus/randomxpow"
)

const (
	templateRefreshInterval = 30 * time.Second
	coordinatorWaitTimeout  = 100 * time.Millisecond
)

// Config bundles the start-time knobs §4.7 names. All fields are
// immutable for the duration of a mining run.
type Config struct {
	NumThreads     int
	CoinbaseScript []byte
	FastMode       bool
	LowPriority bool

	// FuzzMode is a deterministic-shortcut escape hatch for test
	// harnesses; it is never set by consensus code itself, only by the
	// host composing this miner for a test or regtest chain.
	FuzzMode bool
}

// Miner is the coordinator plus its worker pool. It is safe to call
// Start/Stop from any goroutine; both are idempotent per §4.7.
type Miner struct {
	engine *randomxpow.Engine
	params randomxpow.Params

	templates  chain.TemplateFactory
	chainIndex chain.ChainIndex
	network    chain.NetworkInfo
	validation chain.Validation

	config Config
	stats  *Stats

	running atomic.Bool
	ctxBox  *contextBox
	jobID   atomic.Uint64

	newBlockSignal chan struct{}
	stopCh         chan struct{}
	wg             sync.WaitGroup

	lastTipHash   atomic.Value // chain.Hash
	lastTemplate  atomic.Int64 // unix nanos
}

// New constructs a Miner. The engine, consensus params, and external
// collaborators are all supplied by the host; this package performs no
// service discovery or global state of its own.
func New(engine *randomxpow.Engine, params randomxpow.Params, templates chain.TemplateFactory, chainIndex chain.ChainIndex, network chain.NetworkInfo, validation chain.Validation) *Miner {
	return &Miner{
		engine:         engine,
		params:         params,
		templates:      templates,
		chainIndex:     chainIndex,
		network:        network,
		validation:     validation,
		ctxBox:         newContextBox(),
		newBlockSignal: make(chan struct{}, 1),
		stats:          newStats(),
	}
}

// Stats exposes the miner's live statistics.
func (m *Miner) Stats() *Stats { return m.stats }

// Start launches the coordinator and config.NumThreads workers. It
// returns false without doing anything if the miner is already running,
// per §4.7's idempotent-on-false semantics.
func (m *Miner) Start(config Config) bool {
	if config.NumThreads <= 0 || len(config.CoinbaseScript) == 0 {
		log.Error("miner: invalid start configuration", "threads", config.NumThreads, "coinbaseScriptLen", len(config.CoinbaseScript))
		return false
	}
	if !m.running.CompareAndSwap(false, true) {
		return false
	}

	m.config = config
	m.stopCh = make(chan struct{})
	m.stats.markStart()
	m.stats.FastMode.Store(config.FastMode)

	m.wg.Add(1)
	go m.coordinatorLoop()

	for i := 0; i < config.NumThreads; i++ {
		m.wg.Add(1)
		go m.workerLoop(i, config.NumThreads)
	}

	log.Info("miner: started", "threads", config.NumThreads, "fastMode", config.FastMode)
	return true
}

// Stop halts the coordinator and all workers and waits for them on one
// WaitGroup; workers and the coordinator are joined together, in no
// particular order. It then clears the published context. It is
// idempotent and safe to call from a deferred cleanup.
func (m *Miner) Stop() {
	if !m.running.CompareAndSwap(true, false) {
		return
	}
	close(m.stopCh)
	m.ctxBox.Stop()
	m.wg.Wait()
	m.ctxBox.Publish(nil)

	snap := m.stats.Snapshot()
	log.Info("miner: stopped",
		"runtime", snap.Runtime,
		"hashes", snap.HashCount,
		"blocksFound", snap.BlocksFound,
		"staleBlocks", snap.StaleBlocks,
		"templates", snap.TemplateCount,
		"avgHashrate", snap.AverageHashrate,
	)
}

// OnTipUpdated implements chain.TipListener: it raises new_block_signal
// and resets the backoff level, per §4.7's event-driven refresh.
func (m *Miner) OnTipUpdated(newTip chain.BlockIndexNode, fork bool, initialDownload bool) {
	// Deliberately does not gate on initialDownload: the reference
	// implementation has no IBD gate, and adding one here would
	// contradict that documented liveness choice. See design notes.
	m.stats.BackoffLevel.Store(0)
	select {
	case m.newBlockSignal <- struct{}{}:
	default:
	}
}

func (m *Miner) shouldMine() bool {
	return m.network.PeerCount(chain.PeerDirectionBoth) >= minPeers
}

func (m *Miner) coordinatorLoop() {
	defer m.wg.Done()
	rng := newThreadLocalRand()

	for {
		select {
		case <-m.stopCh:
			return
		default:
		}

		if !m.shouldMine() {
			level := m.stats.BackoffLevel.Add(1) - 1
			delay := backoffDelay(level, rng)
			select {
			case <-m.stopCh:
				return
			case <-m.newBlockSignal:
				m.stats.BackoffLevel.Store(0)
			case <-time.After(delay):
			}
			continue
		}

		m.maybeRefreshTemplate()

		select {
		case <-m.stopCh:
			return
		case <-m.newBlockSignal:
		case <-time.After(coordinatorWaitTimeout):
		}
	}
}

func (m *Miner) maybeRefreshTemplate() {
	tip := m.chainIndex.Tip()
	var tipHash chain.Hash
	if tip != nil {
		tipHash = tip.BlockHash()
	}

	prevHash, _ := m.lastTipHash.Load().(chain.Hash)
	elapsed := time.Since(m.lastTemplateTime())
	needsRefresh := tipHash != prevHash || elapsed >= templateRefreshInterval || m.jobID.Load() == 0

	if !needsRefresh {
		return
	}

	tmpl, err := m.templates.Create(m.config.CoinbaseScript)
	if err != nil || tmpl == nil {
		log.Warn("miner: template factory unavailable", "err", err)
		return
	}

	block := tmpl.Block()
	header := block.Header()
	// The header passes through recomputeMerkleRoot after the template
	// is received; that hook returns the header's existing merkle root
	// unchanged, so late coinbase edits are not picked up here.
	header.MerkleRoot = recomputeMerkleRoot(block)
	block.SetHeader(header)

	seed := randomxpow.ResolveSeedHash(tip, m.params.SeedRotation)

	var height uint64
	if tip != nil {
		height = tip.Height() + 1
	}

	jobID := m.jobID.Add(1)
	m.ctxBox.Publish(&Context{
		Template: tmpl,
		SeedHash: seed,
		Bits:     header.Bits,
		JobID:    jobID,
		Height:   height,
	})

	m.lastTipHash.Store(tipHash)
	m.lastTemplate.Store(time.Now().UnixNano())
	m.stats.TemplateCount.Add(1)
	log.Debug("miner: published new template", "jobID", jobID, "height", height, "tip", tipHash)
}

func (m *Miner) lastTemplateTime() time.Time {
	nanos := m.lastTemplate.Load()
	if nanos == 0 {
		return time.Time{}
	}
	return time.Unix(0, nanos)
}

// recomputeMerkleRoot is a placeholder for the external chain-encoding
// layer's real merkle computation; block assembly and transaction
// serialization are entirely out of scope here (§1), so this module only
// needs to know that a recompute step exists and runs after template
// receipt. A host wiring a real chain passes a Block implementation
// whose Header() already reflects its own merkle root; this function
// returns it unchanged.
func recomputeMerkleRoot(block chain.Block) chain.Hash {
	return block.Header().MerkleRoot
}
