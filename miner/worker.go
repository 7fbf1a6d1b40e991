package miner

import (
	"math/rand"

	"powconsensus/hashwork"
	"powconsensus/logger"
	"powconsensus/metrics"
)

// hashBatchSize bounds how often the worker reports its hash count to the
// shared metrics counters, to keep the hot loop lock-free.
const hashBatchSize = 4096

// Worker is the background nonce search. It owns no state beyond its two
// channels; a fresh Challenge always supersedes in-flight work within one
// iteration of the inner loop, per the preemption guarantee.
type Worker struct {
	in  <-chan Message
	out chan<- Answer
}

// NewWorker wires a Worker to its channel endpoints. The caller retains the
// producer side of in and the consumer side of out (see Controller).
func NewWorker(in <-chan Message, out chan<- Answer) *Worker {
	return &Worker{in: in, out: out}
}

// Run blocks until a Shutdown message arrives or in is closed, searching for
// a valid nonce for each Challenge it receives in between. It is meant to run
// on its own goroutine, one per engine.
func (w *Worker) Run() {
	for {
		msg, ok := <-w.in
		if !ok {
			logger.Error("miner worker: input channel closed, stopping")
			return
		}
		if msg.Kind == MessageShutdown {
			return
		}

		challenge := msg.Challenge
		nonce := rand.Uint64()
		var batch uint64

		for {
			digest := hashwork.Hash(challenge.BlockID, challenge.PeerID, nonce)
			batch++
			if hashwork.IsValidProofOfWork(digest, challenge.Difficulty) {
				break
			}

			if batch >= hashBatchSize {
				metrics.Global().AddHashes(batch)
				batch = 0
			}

			select {
			case next, ok := <-w.in:
				if !ok || next.Kind == MessageShutdown {
					if !ok {
						logger.Error("miner worker: input channel closed, stopping")
					}
					metrics.Global().AddHashes(batch)
					return
				}
				challenge = next.Challenge
				nonce = rand.Uint64()
				batch = 0
			default:
				nonce++
			}
		}

		metrics.Global().AddHashes(batch)
		w.out <- Answer{Challenge: challenge, Nonce: nonce}
	}
}
