// Command botcoin-miner is a thin composition root demonstrating the
// internal miner against an in-memory fake chain. It exists to exercise
// the coordinator/worker wiring end-to-end the way a host binary would;
// it is not part of the consensus-critical surface and performs no real
// chain validation, persistence, or networking.
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/botcoin-project/botcoin/chain"
	"github.com/botcoin-project/botcoin/consensus/randomxpow"
	"github.com/botcoin-project/botcoin/miner"
)

func main() {
	threads := flag.Int("minethreads", 2, "number of mining worker threads")
	fastMode := flag.Bool("minefastmode", false, "use the full RandomX dataset instead of the light cache")
	runFor := flag.Duration("for", 10*time.Second, "how long to mine before exiting")
	flag.Parse()

	log.SetDefault(log.NewLogger(log.NewTerminalHandlerWithLevel(nil, log.LevelInfo, true)))

	params := randomxpow.DefaultParams()
	params.PowNoRetargeting = true // demo chain: no history to retarget from

	engine := randomxpow.NewEngine()
	defer engine.Shutdown()

	fc := newFakeChain(params)

	m := miner.New(engine, params, fc, fc, fc, fc)
	fc.listeners.Subscribe(m)

	cfg := miner.Config{
		NumThreads:     *threads,
		CoinbaseScript: []byte("botcoin-miner demo"),
		FastMode:       *fastMode,
		FuzzMode:       true, // demo: skip RandomX target arithmetic so it finds blocks quickly
	}
	if !m.Start(cfg) {
		fmt.Println("miner: failed to start")
		return
	}

	time.Sleep(*runFor)
	m.Stop()

	snap := m.Stats().Snapshot()
	fmt.Printf("hashes=%d blocksFound=%d staleBlocks=%d templates=%d avgHashrate=%.1f H/s\n",
		snap.HashCount, snap.BlocksFound, snap.StaleBlocks, snap.TemplateCount, snap.AverageHashrate)
}

// --- a minimal in-memory fake chain, just enough to drive the miner ---

type fakeNode struct {
	height uint64
	time   uint32
	bits   uint32
	hash   chain.Hash
	prev   *fakeNode
}

func (n *fakeNode) Height() uint64        { return n.height }
func (n *fakeNode) Time() uint32          { return n.time }
func (n *fakeNode) Bits() uint32          { return n.bits }
func (n *fakeNode) BlockHash() chain.Hash { return n.hash }
func (n *fakeNode) Prev() chain.BlockIndexNode {
	if n.prev == nil {
		return nil
	}
	return n.prev
}
func (n *fakeNode) Ancestor(height uint64) chain.BlockIndexNode {
	cur := chain.BlockIndexNode(n)
	for cur != nil && cur.Height() > height {
		cur = cur.Prev()
	}
	if cur == nil || cur.Height() != height {
		return nil
	}
	return cur
}

type fakeBlock struct {
	header chain.BlockHeader
}

func (b *fakeBlock) Header() *chain.BlockHeader   { return &b.header }
func (b *fakeBlock) SetHeader(h *chain.BlockHeader) { b.header = *h }

type fakeTemplate struct{ block *fakeBlock }

func (t *fakeTemplate) Block() chain.Block { return t.block }

type fakeListeners struct {
	mu   sync.Mutex
	subs []chain.TipListener
}

func (l *fakeListeners) Subscribe(listener chain.TipListener) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.subs = append(l.subs, listener)
}

func (l *fakeListeners) notify(tip chain.BlockIndexNode) {
	l.mu.Lock()
	subs := append([]chain.TipListener(nil), l.subs...)
	l.mu.Unlock()
	for _, s := range subs {
		s.OnTipUpdated(tip, false, false)
	}
}

type fakeChain struct {
	mu        sync.Mutex
	tip       *fakeNode
	params    randomxpow.Params
	listeners fakeListeners
}

func newFakeChain(params randomxpow.Params) *fakeChain {
	genesis := &fakeNode{height: 0, time: uint32(time.Now().Unix()), bits: uint32(randomxpow.Encode(params.PowLimit))}
	return &fakeChain{tip: genesis, params: params}
}

func (c *fakeChain) Tip() chain.BlockIndexNode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tip
}

func (c *fakeChain) Create(coinbaseOutputScript []byte) (chain.BlockTemplate, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	header := chain.BlockHeader{
		Version:    1,
		PrevHash:   c.tip.hash,
		MerkleRoot: chain.HashB(coinbaseOutputScript),
		Time:       uint32(time.Now().Unix()),
		Bits:       uint32(randomxpow.Encode(c.params.PowLimit)),
	}
	return &fakeTemplate{block: &fakeBlock{header: header}}, nil
}

func (c *fakeChain) PeerCount(dir chain.PeerDirection) int { return 8 }

func (c *fakeChain) ProcessNewBlock(block chain.Block, forceProcessing, minPowChecked bool) chain.SubmitOutcome {
	c.mu.Lock()
	defer c.mu.Unlock()

	header := block.Header()
	next := &fakeNode{
		height: c.tip.height + 1,
		time:   header.Time,
		bits:   header.Bits,
		hash:   chain.Hash{byte(rand.Intn(256))},
		prev:   c.tip,
	}
	c.tip = next
	go c.listeners.notify(next)
	return chain.SubmitAcceptedNew
}
