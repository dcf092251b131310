package randomxpow

import "github.com/botcoin-project/botcoin/chain"

// Epoch and lag, in blocks: a contiguous range of EpochLength heights
// shares a seed hash, and the schedule lags the tip by EpochLag so that
// a miner always has the seed available well before it is needed.
const (
	EpochLength = 2048
	EpochLag    = 64
)

// SeedHeightRotating implements the documented rotating seed schedule:
// seed_height(h) = 0 for h < EpochLength+EpochLag, otherwise the start of
// the epoch containing h-EpochLag.
func SeedHeightRotating(height uint64) uint64 {
	if height < EpochLength+EpochLag {
		return 0
	}
	lagged := height - EpochLag
	epoch := lagged / EpochLength
	return epoch * EpochLength
}

// SeedHeight resolves the seed-block height for a given tip height under
// the configured rotation policy. Under SeedRotationFixedGenesis — the
// default, and the reference implementation's deployed behavior — every
// height maps to 0 regardless of the rotating formula above.
func SeedHeight(height uint64, rotation SeedRotation) uint64 {
	if rotation == SeedRotationFixedGenesis {
		return 0
	}
	return SeedHeightRotating(height)
}

// ResolveSeedHash maps a chain tip to the SeedHash a RandomX cache should
// be keyed on. It never returns an error: an absent tip, a seed height of
// zero, or an inconsistent ancestor walk all fall back to the fixed
// genesis digest, per design — this layer must never treat seed
// resolution as fatal.
func ResolveSeedHash(tip chain.BlockIndexNode, rotation SeedRotation) chain.Hash {
	if tip == nil {
		return chain.GenesisSeedHash
	}
	seedHeight := SeedHeight(tip.Height(), rotation)
	if seedHeight == 0 {
		return chain.GenesisSeedHash
	}
	node := tip.Ancestor(seedHeight)
	if node == nil {
		return chain.GenesisSeedHash
	}
	return node.BlockHash()
}
