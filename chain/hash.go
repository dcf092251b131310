// Package chain defines the wire types and host-provided collaborator
// interfaces the PoW subsystem depends on but does not implement: block
// headers, the chain index, block templates, and the network/validation
// callbacks the miner reacts to. Nothing in this package performs
// consensus-critical computation; it exists to give the consensus and
// miner packages a concrete, minimal surface to compile against.
package chain

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	fasthex "github.com/tmthrgd/go-hex"
)

// Hash is a 32-byte opaque digest used for seed hashes, header hashes, and
// PoW results throughout this module.
type Hash [32]byte

// ZeroHash is the all-zero sentinel, distinct from any real digest with
// overwhelming probability.
var ZeroHash Hash

func (h Hash) String() string {
	return fasthex.EncodeToString(h[:])
}

func (h Hash) Bytes() []byte {
	b := make([]byte, 32)
	copy(b, h[:])
	return b
}

// Compare provides a total byte-wise order over digests.
func (h Hash) Compare(other Hash) int {
	return bytes.Compare(h[:], other[:])
}

func (h Hash) IsZero() bool {
	return h == ZeroHash
}

func (h Hash) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.String())
}

func (h *Hash) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	decoded, err := fasthex.DecodeString(s)
	if err != nil {
		return err
	}
	if len(decoded) != len(h) {
		return fmt.Errorf("chain: invalid hash length %d", len(decoded))
	}
	copy(h[:], decoded)
	return nil
}

func (h Hash) Value() (driver.Value, error) {
	return h.Bytes(), nil
}

func (h *Hash) Scan(src any) error {
	b, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("chain: cannot scan %T into Hash", src)
	}
	if len(b) != len(h) {
		return fmt.Errorf("chain: invalid hash length %d", len(b))
	}
	copy(h[:], b)
	return nil
}

// HashB returns the single SHA-256 digest of b, the construction used for
// the well-known genesis seed digest.
func HashB(b []byte) Hash {
	var h Hash
	copy(h[:], chainhash.HashB(b))
	return h
}

// GenesisSeedPreimage is the ASCII string whose digest seeds the RandomX
// cache for every height before the first real epoch transition.
const GenesisSeedPreimage = "Botcoin Genesis Seed"

// GenesisSeedHash is the fixed seed hash used for pre-first-epoch heights
// and, under the fixed_genesis seed-rotation policy, for every height.
var GenesisSeedHash = HashB([]byte(GenesisSeedPreimage))
