package randomxpow

import (
	"testing"

	"github.com/botcoin-project/botcoin/chain"
)

func TestSeedHeightRotatingTable(t *testing.T) {
	cases := []struct {
		height uint64
		want   uint64
	}{
		{0, 0},
		{2111, 0},
		{2112, 2048},
		{4159, 2048},
		{4160, 4096},
		{6208, 6144},
	}
	for _, c := range cases {
		if got := SeedHeightRotating(c.height); got != c.want {
			t.Errorf("SeedHeightRotating(%d) = %d, want %d", c.height, got, c.want)
		}
	}
}

func TestSeedHeightFixedGenesisAlwaysZero(t *testing.T) {
	for _, h := range []uint64{0, 2111, 2112, 6208, 1 << 20} {
		if got := SeedHeight(h, SeedRotationFixedGenesis); got != 0 {
			t.Errorf("SeedHeight(%d, fixed_genesis) = %d, want 0", h, got)
		}
	}
}

type fakeNode struct {
	height uint64
	tm     uint32
	bits   uint32
	hash   chain.Hash
	prev   *fakeNode
}

func (n *fakeNode) Height() uint64        { return n.height }
func (n *fakeNode) Time() uint32          { return n.tm }
func (n *fakeNode) Bits() uint32          { return n.bits }
func (n *fakeNode) BlockHash() chain.Hash { return n.hash }
func (n *fakeNode) Prev() chain.BlockIndexNode {
	if n.prev == nil {
		return nil
	}
	return n.prev
}
func (n *fakeNode) Ancestor(height uint64) chain.BlockIndexNode {
	var cur chain.BlockIndexNode = n
	for cur != nil && cur.Height() > height {
		cur = cur.Prev()
	}
	if cur == nil || cur.Height() != height {
		return nil
	}
	return cur
}

func TestResolveSeedHashNilTip(t *testing.T) {
	if got := ResolveSeedHash(nil, SeedRotationRotating); got != chain.GenesisSeedHash {
		t.Errorf("ResolveSeedHash(nil) = %v, want genesis digest", got)
	}
}

func TestResolveSeedHashFixedGenesisIgnoresHeight(t *testing.T) {
	tip := &fakeNode{height: 10000}
	if got := ResolveSeedHash(tip, SeedRotationFixedGenesis); got != chain.GenesisSeedHash {
		t.Errorf("ResolveSeedHash under fixed_genesis = %v, want genesis digest", got)
	}
}

func TestResolveSeedHashRotatingWalksAncestor(t *testing.T) {
	seedNode := &fakeNode{height: 2048, hash: chain.Hash{1, 2, 3}}
	cur := seedNode
	for h := uint64(2049); h <= 4000; h++ {
		cur = &fakeNode{height: h, prev: cur}
	}
	got := ResolveSeedHash(cur, SeedRotationRotating)
	if got != seedNode.hash {
		t.Errorf("ResolveSeedHash = %v, want %v", got, seedNode.hash)
	}
}

func TestResolveSeedHashFallsBackOnBrokenWalk(t *testing.T) {
	// A tip whose ancestor chain terminates before reaching its own
	// seed height (simulating an inconsistent index) must fall back to
	// the genesis digest rather than erroring, per §4.2.
	tip := &fakeNode{height: 5000}
	got := ResolveSeedHash(tip, SeedRotationRotating)
	if got != chain.GenesisSeedHash {
		t.Errorf("ResolveSeedHash on broken walk = %v, want genesis digest", got)
	}
}
