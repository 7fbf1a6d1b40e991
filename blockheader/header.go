// Package blockheader wraps a host block with its parsed consensus payload
// and proof-of-work validation.
package blockheader

import (
	"fmt"

	"powconsensus/codec"
	"powconsensus/hashwork"
	"powconsensus/host"
)

// Header is a host Block paired with its decoded consensus view.
type Header struct {
	host.Block
	Consensus codec.Consensus
}

// New decodes block's consensus payload. The genesis block (BlockNum == 0)
// has no consensus payload and gets the zero-valued, non-PoW default.
func New(block host.Block) (Header, error) {
	if block.BlockNum == 0 {
		return Header{Block: block}, nil
	}

	consensus, err := codec.Decode(block.Payload)
	if err != nil {
		return Header{}, err
	}

	return Header{Block: block, Consensus: consensus}, nil
}

// IsPoW reports whether the block's consensus tag is the recognized PoW tag.
func (h Header) IsPoW() bool {
	return h.Consensus.IsPoW()
}

// IsGenesis reports whether this is the chain's genesis block.
func (h Header) IsGenesis() bool {
	return h.BlockNum == 0
}

// Work returns 2^difficulty, saturating at math.MaxUint64 for difficulty >= 63.
func (h Header) Work() uint64 {
	d := h.Consensus.Difficulty
	if d >= 63 {
		return ^uint64(0)
	}
	return uint64(1) << d
}

// InvalidProofOfWorkError reports a block whose PoW hash scored below its
// required difficulty.
type InvalidProofOfWorkError struct {
	Score      uint32
	Difficulty uint32
}

func (e *InvalidProofOfWorkError) Error() string {
	return fmt.Sprintf("invalid proof of work (score: %d/%d)", e.Score, e.Difficulty)
}

// Validate checks the block's proof of work. The genesis block is always
// valid; every other block must recompute the PoW hash and meet its
// difficulty.
func (h Header) Validate() error {
	if h.IsGenesis() {
		return nil
	}

	digest := hashwork.Hash(h.PreviousID, h.SignerID, h.Consensus.Nonce)
	score := hashwork.Score(digest)

	if score < h.Consensus.Difficulty {
		return &InvalidProofOfWorkError{Score: score, Difficulty: h.Consensus.Difficulty}
	}

	return nil
}
