package chain

import "encoding/binary"

// HeaderSize is the serialized size of BlockHeader in bytes: version(4) +
// prev_hash(32) + merkle_root(32) + time(4) + bits(4) + nonce(4).
const HeaderSize = 80

// BlockHeader is the minimal 80-byte wire header the PoW layer hashes.
// Everything else about a block (transactions, witness data, full
// serialization) belongs to the chain-encoding layer this module treats
// as external.
type BlockHeader struct {
	Version    uint32
	PrevHash   Hash
	MerkleRoot Hash
	Time       uint32
	Bits       uint32
	Nonce      uint32
}

// Serialize encodes the header to its canonical little-endian 80-byte form.
func (h *BlockHeader) Serialize() [HeaderSize]byte {
	var buf [HeaderSize]byte
	binary.LittleEndian.PutUint32(buf[0:4], h.Version)
	copy(buf[4:36], h.PrevHash[:])
	copy(buf[36:68], h.MerkleRoot[:])
	binary.LittleEndian.PutUint32(buf[68:72], h.Time)
	binary.LittleEndian.PutUint32(buf[72:76], h.Bits)
	binary.LittleEndian.PutUint32(buf[76:80], h.Nonce)
	return buf
}

// Deserialize populates the header from its canonical 80-byte form.
func (h *BlockHeader) Deserialize(buf [HeaderSize]byte) {
	h.Version = binary.LittleEndian.Uint32(buf[0:4])
	copy(h.PrevHash[:], buf[4:36])
	copy(h.MerkleRoot[:], buf[36:68])
	h.Time = binary.LittleEndian.Uint32(buf[68:72])
	h.Bits = binary.LittleEndian.Uint32(buf[72:76])
	h.Nonce = binary.LittleEndian.Uint32(buf[76:80])
}

// SetNonce writes only the nonce field (offset 76) into a previously
// serialized buffer, the hot-path operation workers perform once per trial.
func SetNonce(buf *[HeaderSize]byte, nonce uint32) {
	binary.LittleEndian.PutUint32(buf[76:80], nonce)
}
