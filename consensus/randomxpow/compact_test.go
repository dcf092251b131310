package randomxpow

import (
	"testing"

	"github.com/holiman/uint256"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []CompactTarget{
		0x1d00ffff,
		0x1b0404cb,
		0x207fffff,
		0x01010000,
		0x04123456,
	}
	for _, c := range cases {
		decoded, err := Decode(c)
		if err != nil {
			t.Fatalf("Decode(%#x) failed: %v", uint32(c), err)
		}
		if got := Encode(decoded); got != c {
			t.Errorf("Encode(Decode(%#x)) = %#x, want %#x", uint32(c), uint32(got), uint32(c))
		}
	}
}

func TestDecodeNegative(t *testing.T) {
	// Sign bit set over a nonzero mantissa: 0x00800001 has size=0,
	// word=0x000001, and bit 23 of the raw value set.
	_, err := Decode(CompactTarget(0x00800001))
	if err == nil || err.Kind != KindInvalidCompactNegative {
		t.Fatalf("expected KindInvalidCompactNegative, got %v", err)
	}
}

func TestDecodeZeroWordWithSignBitIsZeroNotNegative(t *testing.T) {
	// 0x00800000 has a zero mantissa even though bit 23 is set; the
	// classic compact encoding treats a zero mantissa as zero
	// regardless of the sign bit (matching the Bitcoin reference
	// SetCompact behavior this encoding is drawn from).
	_, err := Decode(CompactTarget(0x00800000))
	if err == nil || err.Kind != KindInvalidCompactZero {
		t.Fatalf("expected KindInvalidCompactZero, got %v", err)
	}
}

func TestDecodeOverflow(t *testing.T) {
	_, err := Decode(CompactTarget(^uint32(0x00800000)))
	if err == nil || err.Kind != KindInvalidCompactOverflow {
		t.Fatalf("expected KindInvalidCompactOverflow, got %v", err)
	}
}

func TestDecodeZero(t *testing.T) {
	_, err := Decode(CompactTarget(0x03000000))
	if err == nil || err.Kind != KindInvalidCompactZero {
		t.Fatalf("expected KindInvalidCompactZero, got %v", err)
	}
}

func TestDeriveTargetAboveLimit(t *testing.T) {
	limit := NewTarget256(uint256.NewInt(1000))
	above := NewTarget256(uint256.NewInt(2000))
	c := Encode(above)
	if _, ok := DeriveTarget(c, limit); ok {
		t.Fatal("expected DeriveTarget to reject a target above pow_limit")
	}
}

func TestDeriveTargetWithinLimit(t *testing.T) {
	limit := NewTarget256(uint256.NewInt(1_000_000))
	target := NewTarget256(uint256.NewInt(500_000))
	c := Encode(target)
	got, ok := DeriveTarget(c, limit)
	if !ok {
		t.Fatal("expected DeriveTarget to succeed")
	}
	if got.Cmp(target) != 0 {
		t.Errorf("got target %v, want %v", got.Uint256(), target.Uint256())
	}
}

func TestDeriveTargetRejectsNegativeAndOverflow(t *testing.T) {
	limit := NewTarget256(uint256.NewInt(1 << 32))

	if _, ok := DeriveTarget(CompactTarget(0x00800001), limit); ok {
		t.Error("expected negative compact to be rejected")
	}
	if _, ok := DeriveTarget(CompactTarget(^uint32(0x00800000)), limit); ok {
		t.Error("expected overflow compact to be rejected")
	}
	if _, ok := DeriveTarget(CompactTarget(0x03000000), limit); ok {
		t.Error("expected zero-mantissa compact to be rejected")
	}
}
