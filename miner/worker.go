package miner

import (
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/botcoin-project/botcoin/chain"
	"github.com/botcoin-project/botcoin/consensus/randomxpow"
)

const (
	stalenessCheckInterval = 1000
	jobIDRecheckEvery      = 100
	hashBatchSize          = 10000
	vmRetryDelay           = 1 * time.Second
)

// workerLoop is one of numThreads goroutines stride-partitioning the
// nonce space: this worker (index threadID) only ever tries nonces
// congruent to threadID mod numThreads, guaranteeing disjoint trials
// across workers until the 32-bit space wraps, per §4.7.
func (m *Miner) workerLoop(threadID, numThreads int) {
	defer m.wg.Done()

	var vm *randomxpow.MiningVM
	var lastJobID uint64
	var localHashes uint64
	var headerBuf [chain.HeaderSize]byte
	var block chain.Block
	var nonceCounter uint32

	defer func() {
		if vm != nil {
			vm.Close()
		}
	}()

	for {
		select {
		case <-m.stopCh:
			return
		default:
		}

		ctx := m.ctxBox.Load()
		if ctx == nil {
			ctx = m.ctxBox.WaitForJob(lastJobID)
			if ctx == nil {
				// WaitForJob only returns nil when the box was
				// stopped; loop back around to observe stopCh.
				continue
			}
		}

		if ctx.JobID != lastJobID {
			newVM, ok := m.reseedVM(vm, ctx.SeedHash)
			if !ok {
				select {
				case <-m.stopCh:
					return
				case <-time.After(vmRetryDelay):
				}
				continue
			}
			vm = newVM

			block = ctx.Template.Block()
			header := block.Header()
			headerBuf = header.Serialize()
			nonceCounter = uint32(threadID)
			lastJobID = ctx.JobID
		}

		for i := 0; i < stalenessCheckInterval; i++ {
			chain.SetNonce(&headerBuf, nonceCounter)
			hash := vm.Hash(headerBuf[:])
			localHashes++

			if randomxpow.CheckPow(hash, randomxpow.CompactTarget(ctx.Bits), m.params, m.config.FuzzMode) {
				m.submitFound(block, nonceCounter)
				m.stats.AddHashes(localHashes)
				localHashes = 0
				lastJobID = 0 // force refresh on the next outer iteration
				break
			}

			nonceCounter += uint32(numThreads) // natural uint32 wraparound

			if i%jobIDRecheckEvery == jobIDRecheckEvery-1 {
				if cur := m.ctxBox.Load(); cur == nil || cur.JobID != lastJobID {
					break
				}
			}
		}

		if localHashes >= hashBatchSize {
			m.stats.AddHashes(localHashes)
			localHashes = 0
		}
	}
}

func (m *Miner) reseedVM(old *randomxpow.MiningVM, seed chain.Hash) (*randomxpow.MiningVM, bool) {
	if old != nil {
		if old.Matches(seed) {
			return old, true
		}
		old.Close()
	}

	vm, err := randomxpow.NewMiningVM(m.engine, seed, m.config.FastMode)
	if err != nil {
		log.Warn("miner: worker VM init failed, retrying", "seed", seed, "err", err)
		return nil, false
	}
	return vm, true
}

func (m *Miner) submitFound(block chain.Block, nonce uint32) {
	header := block.Header()
	header.Nonce = nonce
	block.SetHeader(header)

	outcome := m.validation.ProcessNewBlock(block, true, true)
	switch outcome {
	case chain.SubmitAcceptedNew:
		m.stats.BlocksFound.Add(1)
		log.Info("miner: block accepted", "nonce", nonce)
	case chain.SubmitAcceptedDuplicate:
		m.stats.StaleBlocks.Add(1)
		log.Debug("miner: block was a duplicate", "nonce", nonce)
	case chain.SubmitRejected:
		m.stats.StaleBlocks.Add(1)
		log.Debug("miner: block rejected at submission", "nonce", nonce)
	}
}
