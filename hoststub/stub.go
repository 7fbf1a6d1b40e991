// Package hoststub is the A5 host transport stub: a minimal in-process
// implementation of host.Service for the CLI's --dry-run mode, standing in
// for the real validator-host RPC transport. It drives a single-node chain
// with no peers and no forks, exercising the full Service/Update protocol
// the engine expects from a real host.
package hoststub

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"sync"

	"powconsensus/host"
)

var errNoPendingBlock = errors.New("hoststub: no pending block")

// Stub is a single-node, in-memory host.Service. It is not safe for
// multi-process use; it exists purely for local exercise of the engine.
type Stub struct {
	mu        sync.Mutex
	blocks    map[string]host.Block
	chainHead host.Block
	pending   *host.Block
	nextNum   uint64

	peerID  host.PeerID
	updates chan host.Update
}

// New builds a Stub seeded with a genesis block, identified as peerID.
func New(peerID host.PeerID) *Stub {
	genesis := host.Block{
		BlockID:    blockID(0, nil, nil),
		PreviousID: make(host.BlockID, host.NullBlockIdentifierLen),
		BlockNum:   0,
		SignerID:   peerID,
	}

	return &Stub{
		blocks:    map[string]host.Block{string(genesis.BlockID): genesis},
		chainHead: genesis,
		nextNum:   1,
		peerID:    peerID,
		updates:   make(chan host.Update, 32),
	}
}

// Updates exposes the stub's update feed to the engine driver.
func (s *Stub) Updates() <-chan host.Update {
	return s.updates
}

// Genesis returns the stub's startup state, for Engine.Start.
func (s *Stub) Genesis() host.StartupState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return host.StartupState{
		ChainHead:     s.chainHead,
		LocalPeerInfo: host.PeerInfo{PeerID: s.peerID},
	}
}

// Shutdown enqueues a Shutdown update, telling the engine driver to exit.
func (s *Stub) Shutdown() {
	s.updates <- host.ShutdownUpdate()
}

func (s *Stub) InitializeBlock(previousID host.BlockID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	parent := s.chainHead
	if len(previousID) != 0 {
		if b, ok := s.blocks[string(previousID)]; ok {
			parent = b
		}
	}

	pending := host.Block{
		PreviousID: parent.BlockID,
		BlockNum:   parent.BlockNum + 1,
		SignerID:   s.peerID,
	}
	s.pending = &pending
	return nil
}

func (s *Stub) SummarizeBlock() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending == nil {
		return nil, host.NewHostError(host.ErrKindBlockNotReady, errNoPendingBlock)
	}
	return []byte("summary"), nil
}

func (s *Stub) FinalizeBlock(consensus []byte) (host.BlockID, error) {
	s.mu.Lock()
	if s.pending == nil {
		s.mu.Unlock()
		return nil, host.NewHostError(host.ErrKindBlockNotReady, errNoPendingBlock)
	}

	block := *s.pending
	block.Payload = consensus
	block.BlockID = blockID(block.BlockNum, block.PreviousID, consensus)
	s.blocks[string(block.BlockID)] = block
	s.pending = nil
	s.mu.Unlock()

	s.updates <- host.NewBlockUpdate(block)
	return block.BlockID, nil
}

func (s *Stub) CancelBlock() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = nil
	return nil
}

// CheckBlocks immediately reports every block as valid: a single-node stub
// has no peers to corroborate with.
func (s *Stub) CheckBlocks(priority []host.BlockID) error {
	for _, id := range priority {
		s.updates <- host.BlockValidUpdate(id)
	}
	return nil
}

func (s *Stub) CommitBlock(id host.BlockID) error {
	s.mu.Lock()
	block, ok := s.blocks[string(id)]
	if !ok {
		s.mu.Unlock()
		return &host.ErrBlockNotFound{BlockID: id}
	}
	s.chainHead = block
	s.mu.Unlock()

	s.updates <- host.BlockCommitUpdate(id)
	return nil
}

func (s *Stub) IgnoreBlock(id host.BlockID) error { return nil }
func (s *Stub) FailBlock(id host.BlockID) error   { return nil }

func (s *Stub) SendTo(peer host.PeerID, msgType string, payload []byte) error { return nil }
func (s *Stub) Broadcast(msgType string, payload []byte) error               { return nil }

func (s *Stub) GetBlocks(ids []host.BlockID) (map[string]host.Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]host.Block, len(ids))
	for _, id := range ids {
		if b, ok := s.blocks[string(id)]; ok {
			out[string(id)] = b
		}
	}
	return out, nil
}

func (s *Stub) GetChainHead() (host.Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chainHead, nil
}

// GetSettings always reports no value set: the stub carries no on-chain
// settings namespace, so C9/C5 fall back to built-in defaults.
func (s *Stub) GetSettings(blockID host.BlockID, keys []string) (map[string]string, error) {
	return map[string]string{}, nil
}

func (s *Stub) GetState(blockID host.BlockID, addresses []string) (map[string][]byte, error) {
	return nil, nil
}

func blockID(num uint64, previousID host.BlockID, payload []byte) host.BlockID {
	h := sha256.New()
	var numBuf [8]byte
	binary.BigEndian.PutUint64(numBuf[:], num)
	h.Write(numBuf[:])
	h.Write(previousID)
	h.Write(payload)
	return h.Sum(nil)
}
