package miner

import (
	"powconsensus/codec"
	"powconsensus/host"
)

// Challenge is a work order from the controller to the worker, immutable
// once sent.
type Challenge struct {
	Difficulty uint32
	Timestamp  float64
	BlockID    host.BlockID
	PeerID     host.PeerID
}

// Answer is a solved Challenge: a nonce whose hash over
// (challenge.BlockID, challenge.PeerID, nonce) scores at least
// challenge.Difficulty.
type Answer struct {
	Challenge Challenge
	Nonce     uint64
}

// encodeAnswer builds the C2 consensus payload for a solved challenge.
func encodeAnswer(a Answer) []byte {
	return codec.Encode(a.Challenge.Difficulty, a.Nonce, a.Challenge.Timestamp)
}
