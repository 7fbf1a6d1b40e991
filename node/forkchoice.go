package node

import (
	"fmt"

	"powconsensus/blockheader"
	"powconsensus/codec"
	"powconsensus/host"
	"powconsensus/logger"
)

// compareForks is the BlockValid handler's fork-choice entry point: fast-path
// accept a direct extension of the current head, otherwise resolve by
// accumulated work. A non-PoW candidate is always ignored.
func (n *Node) compareForks(curHead, newHead host.Block) error {
	if !codec.IsPoWConsensus(newHead.Payload) {
		logger.Debugf("ignoring new block (consensus) %s", blockheader.Printer{Block: newHead})
		return n.Proxy.IgnoreBlock(newHead.BlockID)
	}

	if !codec.IsPoWConsensus(curHead.Payload) {
		return n.resolveConsensusSwitch(curHead, newHead)
	}

	if newHead.BlockNum == curHead.BlockNum+1 && string(newHead.PreviousID) == string(curHead.BlockID) {
		logger.Debugf("committing new block (next) %s", blockheader.Printer{Block: newHead})
		return n.Proxy.CommitBlock(newHead.BlockID)
	}

	return n.resolveFork(curHead, newHead)
}

// resolveConsensusSwitch handles the edge case right after a consensus-mode
// switch, where the current head predates PoW: walk the candidate's
// ancestors looking for the current head, committing if found, ignoring on
// the first non-PoW ancestor. If a block lookup fails before either is
// found, it returns nil without committing or ignoring.
func (n *Node) resolveConsensusSwitch(curHead, newHead host.Block) error {
	forkBlock := newHead

	for {
		if string(forkBlock.PreviousID) == string(curHead.BlockID) {
			logger.Debugf("committing new block (consensus) %s", blockheader.Printer{Block: newHead})
			return n.Proxy.CommitBlock(newHead.BlockID)
		}

		if !codec.IsPoWConsensus(forkBlock.Payload) {
			logger.Debugf("ignoring new block (consensus) %s", blockheader.Printer{Block: newHead})
			return n.Proxy.IgnoreBlock(newHead.BlockID)
		}

		next, err := n.Proxy.GetBlock(forkBlock.PreviousID)
		if err != nil {
			// chain root reached without finding curHead or a non-PoW
			// ancestor: effectively an ignore, per the fork-choice design
			// notes.
			return nil
		}
		forkBlock = next
	}
}

// resolveFork arbitrates two diverging chains by accumulated PoW work.
func (n *Node) resolveFork(curHead, newHead host.Block) error {
	curDiff := saturatingSub(curHead.BlockNum, newHead.BlockNum)
	newDiff := saturatingSub(newHead.BlockNum, curHead.BlockNum)

	curOrphans := blockheader.Take(blockheader.NewAncestors(curHead.PreviousID, n.Proxy), int(curDiff), nonPoWStop)
	newOrphans := blockheader.Take(blockheader.NewAncestors(newHead.PreviousID, n.Proxy), int(newDiff), nonPoWStop)

	curHeader, err := blockheader.New(curHead)
	if err != nil {
		return err
	}
	newHeader, err := blockheader.New(newHead)
	if err != nil {
		return err
	}

	curForkHead := curHeader
	if len(curOrphans) > 0 {
		curForkHead = curOrphans[len(curOrphans)-1]
	}
	newForkHead := newHeader
	if len(newOrphans) > 0 {
		newForkHead = newOrphans[len(newOrphans)-1]
	}

	if curForkHead.BlockNum != newForkHead.BlockNum {
		return fmt.Errorf("fork alignment mismatch: %d != %d", curForkHead.BlockNum, newForkHead.BlockNum)
	}

	curForkBlocks, newForkBlocks := walkForkPairs(
		blockheader.NewAncestors(curForkHead.BlockID, n.Proxy),
		blockheader.NewAncestors(newForkHead.BlockID, n.Proxy),
	)

	newWork := sumWork(newOrphans) + sumWork(newForkBlocks)
	curWork := sumWork(curOrphans) + sumWork(curForkBlocks)

	if newWork > curWork {
		logger.Debugf("committing new fork (work %d/%d) %s", newWork, curWork, blockheader.Printer{Block: newHead})
		return n.Proxy.CommitBlock(newHead.BlockID)
	}

	logger.Debugf("ignoring new fork (work %d/%d) %s", newWork, curWork, blockheader.Printer{Block: newHead})
	return n.Proxy.IgnoreBlock(newHead.BlockID)
}

func nonPoWStop(h blockheader.Header) bool { return !h.IsPoW() }

func sumWork(headers []blockheader.Header) uint64 {
	var total uint64
	for _, h := range headers {
		total += h.Work()
	}
	return total
}

func saturatingSub(a, b uint64) uint64 {
	if a <= b {
		return 0
	}
	return a - b
}

// walkForkPairs advances both ancestor walks in lock-step, collecting pairs
// until a common ancestor is found, either side hits genesis, or either side
// is non-PoW. The pair that trips a stop condition is excluded.
func walkForkPairs(a, b *blockheader.Ancestors) (left, right []blockheader.Header) {
	for {
		ha, ok := a.Next()
		if !ok {
			return left, right
		}
		hb, ok := b.Next()
		if !ok {
			return left, right
		}

		if string(ha.BlockID) == string(hb.BlockID) {
			return left, right
		}
		if ha.IsGenesis() || hb.IsGenesis() {
			return left, right
		}
		if !ha.IsPoW() || !hb.IsPoW() {
			return left, right
		}

		left = append(left, ha)
		right = append(right, hb)
	}
}
