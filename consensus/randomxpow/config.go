package randomxpow

import "github.com/holiman/uint256"

// SeedRotation selects between the documented rotating seed schedule and
// the reference implementation's deployed behavior, which pins every
// height to the genesis seed. fixed_genesis is the default: the rotating
// schedule is fully implemented and tested (see seed.go) but is not
// switched on unless a host explicitly opts in.
type SeedRotation int

const (
	SeedRotationFixedGenesis SeedRotation = iota
	SeedRotationRotating
)

// Default LWMA window parameters, consumed by NextWorkRequired.
const (
	DefaultDifficultyWindow = 720
	DefaultDifficultyCut    = 60
	DefaultTargetSpacing    = 120 // seconds
)

// Params bundles the consensus constants this package consumes. The host
// owns construction; this package never parses flags or config files.
type Params struct {
	PowLimit Target256

	PowTargetSpacing uint64 // seconds
	DifficultyWindow  int
	DifficultyCut     int

	// PowNoRetargeting bypasses NextWorkRequired entirely, always
	// returning prev.Bits. Intended for regtest-style chains.
	PowNoRetargeting bool

	SeedRotation SeedRotation
}

// DefaultParams returns mainnet-shaped defaults with the widest possible
// pow_limit (2^255-1, leaving the top bit clear so the compact encoding
// never needs the sign bit), matching the "easy chain" shape used by the
// miner-liveness test scenario.
func DefaultParams() Params {
	limit := new(uint256.Int).Lsh(uint256.NewInt(1), 255)
	limit.Sub(limit, uint256.NewInt(1))
	return Params{
		PowLimit:          NewTarget256(limit),
		PowTargetSpacing:  DefaultTargetSpacing,
		DifficultyWindow:  DefaultDifficultyWindow,
		DifficultyCut:     DefaultDifficultyCut,
		PowNoRetargeting:  false,
		SeedRotation:      SeedRotationFixedGenesis,
	}
}
