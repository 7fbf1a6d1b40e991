// Package miner implements the challenge/answer mining subsystem: a
// background worker goroutine that searches for valid nonces, and a
// controller that the node drives to start new work and collect results.
package miner

import (
	"sync"

	"powconsensus/blockheader"
	"powconsensus/difficulty"
	"powconsensus/host"
	"powconsensus/hostservice"
	"powconsensus/logger"
)

// Controller owns the producer side of the engine-to-worker channel and the
// consumer side of the worker-to-engine channel, plus the most recently
// assembled consensus payload. It is driven exclusively by the engine
// goroutine; the mutex guards only the pending-answer cache. The worker
// goroutine never touches that cache: it only sends on the answer channel.
type Controller struct {
	toWorker   chan Message
	fromWorker chan Answer

	mu      sync.Mutex
	pending *Answer
}

// NewController spawns the worker goroutine (exactly one per engine, per the
// lifecycle in the consensus model) and returns a Controller wired to it.
func NewController() *Controller {
	toWorker := make(chan Message, 64)
	fromWorker := make(chan Answer, 64)

	worker := NewWorker(toWorker, fromWorker)
	go worker.Run()

	return &Controller{toWorker: toWorker, fromWorker: fromWorker}
}

// MineResult reports what Mine decided, so callers can record telemetry
// without the controller itself knowing about the telemetry store.
type MineResult struct {
	Difficulty     uint32
	FallbackReason difficulty.FallbackReason
	ParentBlockNum uint64
}

// Mine reads the parent block at blockID, computes the difficulty the next
// block built on it should use, and sends the worker a fresh Challenge. Any
// previously pending answer is cleared: a new mine() call always supersedes
// old work.
func (c *Controller) Mine(blockID host.BlockID, peerID host.PeerID, proxy *hostservice.Proxy, cfg difficulty.Config, now float64) (MineResult, error) {
	parent, err := proxy.GetBlock(blockID)
	if err != nil {
		return MineResult{}, err
	}

	result := MineResult{Difficulty: cfg.InitialDifficulty, ParentBlockNum: parent.BlockNum}

	header, err := blockheader.New(parent)
	if err != nil {
		logger.WithField("block_id", blockID.Hex()).Warning("mine: parent header decode failed, using initial difficulty")
	} else {
		result.Difficulty, result.FallbackReason = difficulty.GetDifficulty(header, now, proxy, cfg)
		if result.FallbackReason != difficulty.NoFallback {
			logger.WithFields(map[string]interface{}{
				"block_id": blockID.Hex(),
				"reason":   string(result.FallbackReason),
			}).Warning("mine: difficulty window fell back to initial difficulty")
		}
	}

	c.mu.Lock()
	c.pending = nil
	c.mu.Unlock()

	c.toWorker <- challengeMessage(Challenge{
		Difficulty: result.Difficulty,
		Timestamp:  now,
		BlockID:    blockID,
		PeerID:     peerID,
	})

	return result, nil
}

// TryCreateConsensus drains every answer currently buffered on the
// worker-to-engine channel, keeping only the most recent, then returns the
// C2-encoded consensus payload for the stored answer (if any). It does not
// consume the stored answer: repeated calls return the same payload until
// Reset or a new Mine call.
func (c *Controller) TryCreateConsensus() ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

drain:
	for {
		select {
		case answer := <-c.fromWorker:
			c.pending = &answer
		default:
			break drain
		}
	}

	if c.pending == nil {
		return nil, false
	}

	payload := encodeAnswer(*c.pending)
	return payload, true
}

// Reset clears the stored answer, called on successful publish or chain-head
// change.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = nil
}

// Shutdown sends the worker a Shutdown message; the worker goroutine returns
// when it reads it. Shutdown does not close any channel and does not wait for
// the goroutine to exit; the caller is expected to stop issuing Mine calls
// afterward.
func (c *Controller) Shutdown() {
	c.toWorker <- shutdownMessage()
}
