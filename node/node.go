// Package node implements the consensus node state machine: it reacts to
// host updates, validates new blocks, arbitrates forks, and drives the
// publish pipeline between update deliveries.
package node

import (
	"powconsensus/blockheader"
	"powconsensus/clock"
	"powconsensus/difficulty"
	"powconsensus/host"
	"powconsensus/hostservice"
	"powconsensus/logger"
	"powconsensus/metrics"
	"powconsensus/miner"
	"powconsensus/telemetry"
)

// Node owns the on-chain configuration, the host service proxy, the mining
// controller, and the node's in-memory state. Exactly one Node exists per
// engine. Telemetry is optional: a nil store disables recording entirely.
type Node struct {
	Config    *Config
	Proxy     *hostservice.Proxy
	Miner     *miner.Controller
	State     State
	Telemetry *telemetry.Store
}

// New wires a Node to a host service, with a fresh miner controller and
// default configuration (overwritten by Initialize's settings reload).
func New(service host.Service) *Node {
	return &Node{
		Config: NewConfig(),
		Proxy:  hostservice.New(service),
		Miner:  miner.NewController(),
	}
}

// recordMineResult logs a MineResult to the telemetry store, if one is
// attached. Recording is best-effort and never affects mining itself.
func (n *Node) recordMineResult(result miner.MineResult, now float64) {
	if result.FallbackReason != difficulty.NoFallback {
		metrics.Global().IncrementFallbacks()
	} else {
		metrics.Global().IncrementRetargets()
	}

	if n.Telemetry == nil {
		return
	}

	if result.FallbackReason != difficulty.NoFallback {
		n.Telemetry.Record(telemetry.Sample{
			Kind:      telemetry.KindFallback,
			BlockNum:  result.ParentBlockNum,
			Reason:    string(result.FallbackReason),
			Timestamp: now,
		})
		return
	}

	logger.LogRetargetEvent(result.ParentBlockNum, result.Difficulty, string(result.FallbackReason))

	n.Telemetry.Record(telemetry.Sample{
		Kind:       telemetry.KindRetarget,
		BlockNum:   result.ParentBlockNum,
		Difficulty: result.Difficulty,
		Timestamp:  now,
	})
}

// Initialize runs the startup sequence: record identity and chain head, load
// on-chain settings, start mining on the current head, and ask the host to
// begin building a new block.
func (n *Node) Initialize(startup host.StartupState) error {
	if startup.ChainHead.BlockNum > 1 {
		logger.Debugf("starting from non-genesis: %s", blockheader.Printer{Block: startup.ChainHead})
	}

	n.State.PeerID = startup.LocalPeerInfo.PeerID
	n.State.ChainHead = startup.ChainHead.BlockID

	if err := n.reloadConfiguration(); err != nil {
		return err
	}

	now := clock.Now()
	result, err := n.Miner.Mine(n.State.ChainHead, n.State.PeerID, n.Proxy, n.Config.Config, now)
	if err != nil {
		return err
	}
	n.recordMineResult(result, now)

	if err := n.Proxy.InitializeBlock(nil); err != nil {
		return err
	}

	return nil
}

func (n *Node) reloadConfiguration() error {
	return n.Config.Load(n.Proxy, n.State.ChainHead)
}

// HandleUpdate dispatches a single host update. It returns keepRunning ==
// false only for Shutdown, telling the driver to exit its loop.
func (n *Node) HandleUpdate(update host.Update) (keepRunning bool, err error) {
	switch update.Kind {
	case host.UpdateBlockNew:
		err = n.onBlockNew(update.Block)
	case host.UpdateBlockValid:
		err = n.onBlockValid(update.BlockID)
	case host.UpdateBlockInvalid:
		err = n.onBlockInvalid(update.BlockID)
	case host.UpdateBlockCommit:
		err = n.onBlockCommit(update.BlockID)
	case host.UpdateShutdown:
		return false, nil
	default:
		// peer events are ignored
	}

	return true, err
}

func (n *Node) onBlockNew(block host.Block) error {
	logger.Debugf("checking block consensus: %s", blockheader.Printer{Block: block})

	if host.IsNullBlockID(block.PreviousID) {
		logger.Error("received BlockNew for genesis block")
		return nil
	}

	header, err := blockheader.New(block)
	if err == nil {
		err = header.Validate()
	}

	if err == nil {
		logger.Debugf("passed consensus check: %s", blockheader.Printer{Block: block})
		return n.Proxy.CheckBlocks([]host.BlockID{block.BlockID})
	}

	logger.Debugf("failed consensus check: %s - %v", blockheader.Printer{Block: block}, err)
	return n.Proxy.FailBlock(block.BlockID)
}

func (n *Node) onBlockValid(blockID host.BlockID) error {
	curHead, err := n.Proxy.GetBlock(n.State.ChainHead)
	if err != nil {
		return err
	}

	newHead, err := n.Proxy.GetBlock(blockID)
	if err != nil {
		return err
	}

	logger.Debugf("choosing between chain heads -- current: %s -- new: %s",
		blockheader.Printer{Block: curHead}, blockheader.Printer{Block: newHead})

	return n.compareForks(curHead, newHead)
}

func (n *Node) onBlockInvalid(blockID host.BlockID) error {
	return n.Proxy.FailBlock(blockID)
}

func (n *Node) onBlockCommit(blockID host.BlockID) error {
	logger.Debugf("chain head updated to %s", blockID.Hex())

	if err := n.Proxy.CancelBlock(); err != nil {
		return err
	}

	if err := n.reloadConfiguration(); err != nil {
		return err
	}
	n.State.ChainHead = blockID

	n.State.Guards.Remove(GuardPublish)

	now := clock.Now()
	result, err := n.Miner.Mine(blockID, n.State.PeerID, n.Proxy, n.Config.Config, now)
	if err != nil {
		return err
	}
	n.recordMineResult(result, now)

	return n.Proxy.InitializeBlock(blockID)
}

// TryPublish is invoked between update deliveries. It is a no-op if the
// height is already published (Publish guard set) or no solved challenge is
// available yet; otherwise it drives summarize -> finalize and sets the
// Publish guard on success.
func (n *Node) TryPublish() error {
	if n.State.Guards.Contains(GuardPublish) {
		return nil
	}

	consensus, ok := n.Miner.TryCreateConsensus()
	if !ok {
		return nil
	}

	_, err := n.Proxy.SummarizeBlock()
	if err != nil {
		if host.IsKind(err, host.ErrKindBlockNotReady) {
			if n.State.Guards.Insert(GuardSummarize) {
				logger.Debug("cannot summarize block: not ready")
			}
			return nil
		}
		n.State.Guards.Remove(GuardSummarize)
		return err
	}

	blockID, err := n.Proxy.FinalizeBlock(consensus)
	if err != nil {
		if host.IsKind(err, host.ErrKindBlockNotReady) {
			if n.State.Guards.Insert(GuardFinalize) {
				logger.Debug("cannot finalize block: not ready")
			}
			return nil
		}
		n.State.Guards.Remove(GuardFinalize)
		return err
	}

	logger.Debugf("publishing block: %s", blockID.Hex())

	n.State.Guards.Insert(GuardPublish)
	n.State.Guards.Remove(GuardFinalize)
	n.State.Guards.Remove(GuardSummarize)
	n.Miner.Reset()

	metrics.Global().IncrementBlocksMined()
	if n.Telemetry != nil {
		n.Telemetry.Record(telemetry.Sample{
			Kind:      telemetry.KindHashrate,
			HashRate:  metrics.Global().HashRate(),
			Timestamp: clock.Now(),
		})
	}

	return nil
}

