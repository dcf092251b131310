package randomxpow

import (
	randomx "git.gammaspectra.live/P2Pool/go-randomx/v2"

	"github.com/botcoin-project/botcoin/chain"
)

// MiningVM is a RandomX VM exclusively owned by one worker, bound by
// shared reference to the engine's cache (light) or dataset (fast). It
// performs no locking of its own: the cache/dataset it borrows is
// immutable for as long as the handle is held, and the engine refuses to
// free it out from under an outstanding borrower (KindEngineBusy).
//
// MiningVM is move-only in spirit: callers should treat a MiningVM value
// as owned by a single goroutine and never share it across workers.
type MiningVM struct {
	engine *Engine
	vm     *randomx.VM

	cacheRef   *cacheHandle
	datasetRef *datasetHandle

	seed     chain.Hash
	fastMode bool // the mode actually achieved, which may be false even if requested
}

// NewMiningVM installs seed on the engine (building a dataset if
// fastMode is requested), borrows the resulting cache or dataset, and
// constructs a VM bound to it. The returned MiningVM records the mode
// actually achieved, which may fall back to light per §4.3.
func NewMiningVM(engine *Engine, seed chain.Hash, fastMode bool) (*MiningVM, *Error) {
	actualFast, err := engine.InstallSeed(seed, fastMode)
	if err != nil {
		return nil, err
	}

	m := &MiningVM{engine: engine, seed: seed, fastMode: actualFast}

	if actualFast {
		ref, err := engine.DatasetHandle()
		if err != nil {
			return nil, err
		}
		vm := ref.dataset.VM_Initialize()
		if vm == nil {
			ref.Release()
			return nil, newError(KindResourceExhausted, "mining VM init failed (fast mode)")
		}
		m.datasetRef = ref
		m.vm = vm
		return m, nil
	}

	ref, err := engine.CacheHandle()
	if err != nil {
		return nil, err
	}
	vm := ref.cache.VM_Initialize()
	if vm == nil {
		ref.Release()
		return nil, newError(KindResourceExhausted, "mining VM init failed (light mode)")
	}
	m.cacheRef = ref
	m.vm = vm
	return m, nil
}

// Hash computes the RandomX hash of input. It takes no lock: the engine
// mutex is never touched on this path, and the VM is exclusively owned
// by the calling worker.
func (m *MiningVM) Hash(input []byte) chain.Hash {
	var out [32]byte
	m.vm.CalculateHash(input, &out)
	return chain.Hash(out)
}

// Matches reports whether this VM is still bound to seed, used by
// workers to detect staleness after a tip/seed change.
func (m *MiningVM) Matches(seed chain.Hash) bool {
	return m.seed == seed
}

// FastMode reports the mode actually achieved at construction time.
func (m *MiningVM) FastMode() bool { return m.fastMode }

// Close releases the VM and the borrowed cache/dataset handle. Each
// reference is cleared after release, so a second Close is a no-op.
func (m *MiningVM) Close() {
	if m.vm != nil {
		m.vm.Close()
		m.vm = nil
	}
	if m.cacheRef != nil {
		m.cacheRef.Release()
		m.cacheRef = nil
	}
	if m.datasetRef != nil {
		m.datasetRef.Release()
		m.datasetRef = nil
	}
}
