package chain

// BlockIndexNode is a single entry in the host's chain index. The PoW
// subsystem only ever walks ancestors and reads header fields; it never
// mutates the index.
type BlockIndexNode interface {
	Height() uint64
	Time() uint32
	Bits() uint32
	BlockHash() Hash
	// Prev returns the immediate parent, or nil at genesis.
	Prev() BlockIndexNode
	// Ancestor returns the node at the given height by walking Prev, or
	// nil if height is out of range or the walk is inconsistent.
	Ancestor(height uint64) BlockIndexNode
}

// Block is the external, fully-assembled candidate the miner grinds
// nonces against and eventually submits. Its internal structure (coinbase,
// transactions, witness commitments) belongs entirely to the chain layer;
// the PoW subsystem only needs its header and the ability to write an
// updated nonce/merkle root back into it. The interface has no copy
// operation; SetHeader changes the block in place.
type Block interface {
	Header() *BlockHeader
	// SetHeader installs a mutated header (new nonce, recomputed merkle
	// root) back into the block prior to submission.
	SetHeader(*BlockHeader)
}

// BlockTemplate is a candidate block snapshot returned by TemplateFactory.
type BlockTemplate interface {
	Block() Block
}

// TemplateFactory builds a new mining candidate against the current tip.
type TemplateFactory interface {
	Create(coinbaseOutputScript []byte) (BlockTemplate, error)
}

// ChainIndex exposes the current tip of the best chain.
type ChainIndex interface {
	Tip() BlockIndexNode
}

// PeerDirection selects which peer set NetworkInfo.PeerCount counts.
type PeerDirection int

const (
	PeerDirectionBoth PeerDirection = iota
	PeerDirectionInbound
	PeerDirectionOutbound
)

// NetworkInfo reports peer connectivity, the sole liveness gate the
// coordinator consults before mining.
type NetworkInfo interface {
	PeerCount(dir PeerDirection) int
}

// SubmitOutcome classifies the result of Validation.ProcessNewBlock.
type SubmitOutcome int

const (
	SubmitRejected SubmitOutcome = iota
	SubmitAcceptedNew
	SubmitAcceptedDuplicate
)

// Validation is the external block-acceptance pipeline.
type Validation interface {
	// ProcessNewBlock validates and, if valid, connects block to the
	// chain. forceProcessing bypasses soft scheduling; minPowChecked
	// tells the validator the caller already verified PoW and it need
	// not repeat that expensive check.
	ProcessNewBlock(block Block, forceProcessing, minPowChecked bool) SubmitOutcome
}

// TipListener receives chain-tip-change notifications. newTip is nil on a
// signal that only updates state without changing the winning tip (not
// currently produced by this module's collaborators, but kept in the
// interface shape to match the host's single-method listener). fork
// reports whether the update was a reorg; initialDownload reports whether
// the host considers itself still syncing (the miner is required to
// ignore this field, per design).
type TipListener interface {
	OnTipUpdated(newTip BlockIndexNode, fork bool, initialDownload bool)
}

// ValidationSignals is the subscription point for chain-tip events.
type ValidationSignals interface {
	Subscribe(listener TipListener)
}
