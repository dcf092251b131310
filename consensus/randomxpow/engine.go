package randomxpow

import (
	"sync"
	"sync/atomic"

	randomx "git.gammaspectra.live/P2Pool/go-randomx/v2"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/metrics"

	"github.com/botcoin-project/botcoin/chain"
)

// engineState tracks the RandomX engine's lifecycle per §4.3: a cache
// exists in both Ready states, a dataset exists only in FastReady.
type engineState int

const (
	stateUninitialized engineState = iota
	stateLightReady
	stateFastReady
)

// Engine is the process-wide RandomX hash engine. It owns at most one
// cache and at most one dataset at a time, keyed by a single seed. Mining
// VMs borrow the cache or dataset by reference via CacheHandle/
// DatasetHandle; the engine refuses to swap seeds while any such handle
// is outstanding, returning KindEngineBusy rather than freeing memory a
// worker might still be reading.
type Engine struct {
	mu    sync.Mutex
	state engineState
	seed  chain.Hash

	flags randomx.Flag

	cache        *randomx.Randomx_Cache
	dataset      *randomx.Randomx_Dataset
	validationVM *randomx.VM

	outstanding atomic.Int32

	hashrate    metrics.Meter
	totalHashes atomic.Uint64
}

// NewEngine constructs an Engine in the Uninitialized state. Callers must
// call InstallSeed before the first hash.
func NewEngine() *Engine {
	return &Engine{
		hashrate: metrics.NewMeter(),
	}
}

// State reports the current lifecycle state, exposed for tests and
// diagnostics; not part of the hot path.
func (e *Engine) State() (state string, seed chain.Hash) {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch e.state {
	case stateLightReady:
		return "light_ready", e.seed
	case stateFastReady:
		return "fast_ready", e.seed
	default:
		return "uninitialized", chain.Hash{}
	}
}

// InstallSeed installs seed as the engine's active cache key, building a
// dataset as well if fastMode is requested. It is idempotent when the
// current seed already matches and the requested mode is already
// satisfied. actualFast reports whether fast mode was actually achieved:
// dataset allocation failure falls back to light mode rather than
// failing the call outright, per §4.3's initialization policy.
func (e *Engine) InstallSeed(seed chain.Hash, fastMode bool) (actualFast bool, err *Error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.installSeedLocked(seed, fastMode)
}

func (e *Engine) installSeedLocked(seed chain.Hash, fastMode bool) (bool, *Error) {
	if e.state != stateUninitialized && e.seed == seed {
		if !fastMode || e.state == stateFastReady {
			return e.state == stateFastReady, nil
		}
		return e.buildDatasetLocked()
	}

	if e.state != stateUninitialized && e.outstanding.Load() > 0 {
		return false, newError(KindEngineBusy, "seed swap requested while mining VMs hold handles")
	}

	e.releaseLocked()

	flags, err := negotiateFlags()
	if err != nil {
		return false, err
	}
	e.flags = flags

	cache := randomx.Randomx_alloc_cache(e.flags)
	if cache == nil {
		return false, newError(KindResourceExhausted, "cache allocation failed")
	}
	cache.Init(seed.Bytes())

	vm := cache.VM_Initialize()
	if vm == nil {
		cache.Close()
		return false, newError(KindResourceExhausted, "validation VM init failed")
	}

	e.cache = cache
	e.validationVM = vm
	e.seed = seed
	e.state = stateLightReady
	log.Info("randomxpow: light cache installed", "seed", seed)

	if !fastMode {
		return false, nil
	}
	return e.buildDatasetLocked()
}

// buildDatasetLocked builds (or rebuilds) a dataset for the currently
// installed cache. Allocation failure falls back to light mode: the
// caller observes actualFast=false rather than receiving an error, per
// §4.3's dataset-falls-back-to-cache policy.
func (e *Engine) buildDatasetLocked() (bool, *Error) {
	datasetFlags := e.flags | randomx.RANDOMX_FLAG_FULL_MEM
	dataset := randomx.Randomx_alloc_dataset(datasetFlags)
	if dataset == nil {
		log.Warn("randomxpow: dataset allocation failed, falling back to light mode")
		return false, nil
	}

	itemCount := dataset.ItemCount()
	err := splitWork(0, itemCount, func(workIndex uint64, _ int) error {
		dataset.Init(e.cache, workIndex, 1)
		return nil
	})
	if err != nil {
		dataset.Close()
		log.Warn("randomxpow: dataset build failed, falling back to light mode", "err", err)
		return false, nil
	}

	vm := dataset.VM_Initialize()
	if vm == nil {
		dataset.Close()
		log.Warn("randomxpow: fast VM init failed, falling back to light mode")
		return false, nil
	}

	if e.dataset != nil {
		e.dataset.Close()
	}
	if e.validationVM != nil {
		e.validationVM.Close()
	}
	e.dataset = dataset
	e.validationVM = vm
	e.state = stateFastReady
	log.Info("randomxpow: dataset installed", "seed", e.seed, "items", itemCount)
	return true, nil
}

func (e *Engine) releaseLocked() {
	if e.validationVM != nil {
		e.validationVM.Close()
		e.validationVM = nil
	}
	if e.dataset != nil {
		e.dataset.Close()
		e.dataset = nil
	}
	if e.cache != nil {
		e.cache.Close()
		e.cache = nil
	}
	e.state = stateUninitialized
}

// Shutdown releases all engine resources, returning the engine to
// Uninitialized. It is the caller's responsibility to ensure no mining
// VMs hold outstanding handles.
func (e *Engine) Shutdown() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.releaseLocked()
}

// HashValidate computes the RandomX hash of input against seed, light
// mode only, (re)installing the seed first if necessary. The engine
// mutex is held across the hash call, serializing the validation path
// globally; this is deliberate per §9 ("validation is not hot relative
// to mining").
func (e *Engine) HashValidate(input []byte, seed chain.Hash) (chain.Hash, *Error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == stateUninitialized || e.seed != seed {
		if _, err := e.installSeedLocked(seed, false); err != nil {
			return chain.Hash{}, err
		}
	}
	return e.hashLocked(input)
}

// HashMining is HashValidate's fast-mode counterpart: it ensures a
// dataset exists (falling back to light mode on allocation failure, per
// InstallSeed) before hashing. RandomX's light and fast modes are
// defined to produce identical digests; only throughput differs.
func (e *Engine) HashMining(input []byte, seed chain.Hash) (chain.Hash, *Error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != stateFastReady || e.seed != seed {
		if _, err := e.installSeedLocked(seed, true); err != nil {
			return chain.Hash{}, err
		}
	}
	return e.hashLocked(input)
}

func (e *Engine) hashLocked(input []byte) (chain.Hash, *Error) {
	if e.validationVM == nil {
		return chain.Hash{}, newError(KindResourceExhausted, "no validation VM bound")
	}
	var out [32]byte
	e.validationVM.CalculateHash(input, &out)
	e.totalHashes.Add(1)
	e.hashrate.Mark(1)
	return chain.Hash(out), nil
}

// TotalHashes returns the cumulative number of hashes computed on the
// validation path (HashValidate/HashMining); it does not include hashes
// computed by independently-owned MiningVMs.
func (e *Engine) TotalHashes() uint64 { return e.totalHashes.Load() }

// cacheHandle is a borrowed reference to the engine's current cache,
// issued to a MiningVM. Release must be called exactly once.
type cacheHandle struct {
	engine *Engine
	cache  *randomx.Randomx_Cache
	seed   chain.Hash
}

func (h *cacheHandle) Release() { h.engine.outstanding.Add(-1) }

// datasetHandle is a borrowed reference to the engine's current dataset.
type datasetHandle struct {
	engine  *Engine
	dataset *randomx.Randomx_Dataset
	seed    chain.Hash
}

func (h *datasetHandle) Release() { h.engine.outstanding.Add(-1) }

// CacheHandle borrows the current cache for use by a mining VM. The
// handle remains valid as long as the engine exists and InstallSeed is
// not called with a different seed while it is outstanding (enforced by
// KindEngineBusy). Per §4.3's invariant, a live cache exists whenever the
// engine is LightReady or FastReady.
func (e *Engine) CacheHandle() (*cacheHandle, *Error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == stateUninitialized || e.cache == nil {
		return nil, newError(KindResourceExhausted, "no cache installed")
	}
	e.outstanding.Add(1)
	return &cacheHandle{engine: e, cache: e.cache, seed: e.seed}, nil
}

// DatasetHandle borrows the current dataset, valid only while the engine
// is FastReady per §4.3's invariant.
func (e *Engine) DatasetHandle() (*datasetHandle, *Error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != stateFastReady || e.dataset == nil {
		return nil, newError(KindResourceExhausted, "no dataset installed")
	}
	e.outstanding.Add(1)
	return &datasetHandle{engine: e, dataset: e.dataset, seed: e.seed}, nil
}

// negotiateFlags implements the JIT-first, HardAES-fallback allocation
// ladder: try JIT+HardAES(+LargePages best-effort), retry with
// JIT+HardAES only, then a plain interpreted HardAES-only configuration,
// and finally the library's default flags. Each rung is validated with a real trial allocation
// before being accepted, the same strategy used by reference RandomX
// embedders that probe hardware support rather than trusting a static
// capability table.
func negotiateFlags() (randomx.Flag, *Error) {
	candidates := []randomx.Flag{
		randomx.RANDOMX_FLAG_JIT | randomx.RANDOMX_FLAG_HARD_AES | randomx.RANDOMX_FLAG_LARGE_PAGES,
		randomx.RANDOMX_FLAG_JIT | randomx.RANDOMX_FLAG_HARD_AES,
		randomx.RANDOMX_FLAG_HARD_AES,
		randomx.RANDOMX_FLAG_DEFAULT,
	}
	for _, flags := range candidates {
		trial := randomx.Randomx_alloc_cache(flags)
		if trial != nil {
			trial.Close()
			return flags, nil
		}
	}
	return 0, newError(KindResourceExhausted, "no RandomX flag combination could allocate a cache")
}
