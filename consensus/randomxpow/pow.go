package randomxpow

import (
	"github.com/holiman/uint256"

	"github.com/botcoin-project/botcoin/chain"
)

// PowHash computes the RandomX hash of a serialized 80-byte header
// against seed using the validation path (light mode).
func PowHash(engine *Engine, header [chain.HeaderSize]byte, seed chain.Hash) (chain.Hash, *Error) {
	return engine.HashValidate(header[:], seed)
}

// CheckPow reports whether hash satisfies the target encoded by bits.
// When fuzzMode is set by the caller (a flag that belongs entirely to an
// external test harness, never decided by this layer) it takes a
// deterministic shortcut and skips all target arithmetic, matching the
// reference implementation's fuzz-testing escape hatch.
func CheckPow(hash chain.Hash, bits CompactTarget, params Params, fuzzMode bool) bool {
	if fuzzMode {
		return hash[31]&0x80 == 0
	}
	target, ok := DeriveTarget(bits, params.PowLimit)
	if !ok {
		return false
	}
	hashInt := new(uint256.Int).SetBytes(reverse(hash[:]))
	return hashInt.Cmp(target.Uint256()) <= 0
}

// ValidateBlockPow resolves the seed hash for prev's successor, serializes
// header, computes its PoW hash, and checks it against header.Bits.
func ValidateBlockPow(engine *Engine, header *chain.BlockHeader, prev chain.BlockIndexNode, params Params, fuzzMode bool) bool {
	seed := ResolveSeedHash(prev, params.SeedRotation)
	serialized := header.Serialize()
	hash, err := PowHash(engine, serialized, seed)
	if err != nil {
		return false
	}
	return CheckPow(hash, CompactTarget(header.Bits), params, fuzzMode)
}

// reverse returns a big-endian copy of a little-endian digest so it can
// be interpreted as a base-256 unsigned integer via uint256.SetBytes,
// which expects big-endian input.
func reverse(b []byte) []byte {
	out := make([]byte, len(b))
	for i, v := range b {
		out[len(b)-1-i] = v
	}
	return out
}
