package randomxpow

import (
	"sort"

	"github.com/holiman/uint256"

	"github.com/botcoin-project/botcoin/chain"
)

// NextWorkRequired computes the compact target for the block following
// prev using a Monero-style trimmed-mean LWMA over a window of recent
// timestamps and cumulative per-block difficulty. See §4.6 for the exact
// algorithm; this implementation follows its twelve steps in order,
// including the deliberate approximation in step 9 (cumulative
// difficulty differenced over the same index range as the trimmed
// timestamp cut, not independently re-cut) — that approximation must be
// reproduced exactly for cross-implementation consensus compatibility.
func NextWorkRequired(prev chain.BlockIndexNode, params Params) CompactTarget {
	if params.PowNoRetargeting {
		if prev == nil {
			return Encode(params.PowLimit)
		}
		return CompactTarget(prev.Bits())
	}

	window := params.DifficultyWindow
	cut := params.DifficultyCut

	nodes := collectWindow(prev, window)
	l := len(nodes)
	if l <= 1 {
		return Encode(params.PowLimit)
	}

	timestamps := make([]uint64, l)
	cumdiff := make([]uint256.Int, l)
	for i, n := range nodes {
		timestamps[i] = uint64(n.Time())
		diff := blockDifficulty(n.Bits(), params.PowLimit)
		if i == 0 {
			cumdiff[i] = diff
		} else {
			cumdiff[i].Add(&cumdiff[i-1], &diff)
		}
	}

	sorted := append([]uint64(nil), timestamps...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var cutBegin, cutEnd int
	trimmed := window - 2*cut
	if l <= trimmed {
		cutBegin, cutEnd = 0, l
	} else {
		cutBegin = (l - trimmed + 1) / 2
		cutEnd = cutBegin + trimmed
	}

	if cutBegin+2 > cutEnd || cutEnd > l {
		return Encode(params.PowLimit)
	}

	timeSpan := sorted[cutEnd-1] - sorted[cutBegin]
	if timeSpan < 1 {
		timeSpan = 1
	}

	var totalWork uint256.Int
	totalWork.Sub(&cumdiff[cutEnd-1], &cumdiff[cutBegin])
	if totalWork.IsZero() {
		return Encode(params.PowLimit)
	}

	var widened uint256.Int
	widened.Mul(&totalWork, uint256.NewInt(params.PowTargetSpacing))
	nextDifficulty := ceilDiv(&widened, uint256.NewInt(timeSpan))
	if nextDifficulty.IsZero() {
		nextDifficulty = *uint256.NewInt(1)
	}

	limit := params.PowLimit.Uint256()
	var nextTarget uint256.Int
	nextTarget.Div(limit, &nextDifficulty)
	one := uint256.NewInt(1)
	if nextTarget.IsZero() {
		nextTarget = *one
	}
	if nextTarget.Cmp(limit) > 0 {
		nextTarget = *limit
	}

	return Encode(NewTarget256(&nextTarget))
}

// ClassicNextWorkRequired is a secondary legacy retargeting path kept for
// compatibility tests: a single-window clamp-and-ratio adjustment in the
// style of Bitcoin's original difficulty algorithm, scoped to one
// difficulty_window's worth of target spacing.
func ClassicNextWorkRequired(prev chain.BlockIndexNode, firstBlockTime uint32, params Params) CompactTarget {
	timespan := params.PowTargetSpacing * uint64(params.DifficultyWindow)

	actual := int64(prev.Time()) - int64(firstBlockTime)
	minSpan := int64(timespan / 4)
	maxSpan := int64(timespan * 4)
	if actual < minSpan {
		actual = minSpan
	}
	if actual > maxSpan {
		actual = maxSpan
	}

	decoded, err := Decode(CompactTarget(prev.Bits()))
	if err != nil {
		return Encode(params.PowLimit)
	}

	var next uint256.Int
	next.Mul(decoded.Uint256(), uint256.NewInt(uint64(actual)))
	next.Div(&next, uint256.NewInt(timespan))

	limit := params.PowLimit.Uint256()
	if next.IsZero() {
		next = *uint256.NewInt(1)
	}
	if next.Cmp(limit) > 0 {
		next = *limit
	}
	return Encode(NewTarget256(&next))
}

// PermittedTransition always returns true: the bits field is
// unconditionally accepted between blocks, and the LWMA algorithm is
// relied upon to self-regulate. Do not add a bounds check here; see
// design notes.
func PermittedTransition(height uint64, oldBits, newBits CompactTarget) bool {
	return true
}

func collectWindow(prev chain.BlockIndexNode, window int) []chain.BlockIndexNode {
	var newestFirst []chain.BlockIndexNode
	node := prev
	for node != nil && len(newestFirst) < window {
		if node.Height() == 0 {
			// Genesis carries an artificial timestamp that would
			// distort the span; exclude it rather than collect it.
			break
		}
		newestFirst = append(newestFirst, node)
		node = node.Prev()
	}
	oldestFirst := make([]chain.BlockIndexNode, len(newestFirst))
	for i, n := range newestFirst {
		oldestFirst[len(newestFirst)-1-i] = n
	}
	return oldestFirst
}

// blockDifficulty computes pow_limit / decoded_target(bits), clamping a
// zero or undecodable target to 1 and a zero quotient to 1, per §4.6
// step 3.
func blockDifficulty(bits uint32, powLimit Target256) uint256.Int {
	target, err := Decode(CompactTarget(bits))
	var t uint256.Int
	if err != nil || target.IsZero() {
		t = *uint256.NewInt(1)
	} else {
		t = *target.Uint256()
	}

	var diff uint256.Int
	diff.Div(powLimit.Uint256(), &t)
	if diff.IsZero() {
		diff = *uint256.NewInt(1)
	}
	return diff
}

// ceilDiv computes ceil(a/b) = (a+b-1)/b in the 256-bit unsigned domain.
func ceilDiv(a, b *uint256.Int) uint256.Int {
	var numerator uint256.Int
	numerator.Add(a, b)
	numerator.SubUint64(&numerator, 1)
	var result uint256.Int
	result.Div(&numerator, b)
	return result
}
