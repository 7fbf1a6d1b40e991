package blockheader

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"powconsensus/host"
)

// Printer renders a host.Block as a short, hex-stable debug string, used in
// log lines across the node state machine. Grounded on the teacher's
// dbg_hex!-style id formatting, using go-ethereum's hex helpers instead of a
// hand-rolled encoder.
type Printer struct {
	Block host.Block
}

func (p Printer) String() string {
	return fmt.Sprintf("Block(%d, %s, %s)",
		p.Block.BlockNum,
		common.Bytes2Hex(p.Block.BlockID),
		common.Bytes2Hex(p.Block.PreviousID),
	)
}
