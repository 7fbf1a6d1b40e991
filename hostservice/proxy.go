// Package hostservice wraps the host's RPC handle behind a shareable,
// reference-counted façade. It is held by a single owner (the engine
// goroutine); other components receive a non-owning handle to the same proxy.
// No locking is required because only the engine goroutine ever calls it.
package hostservice

import (
	"fmt"
	"time"

	"powconsensus/cache"
	"powconsensus/host"
)

// blockCacheTTL bounds how long a GetBlock result is memoized. Committed
// blocks are immutable, so this is purely a memory bound, not a correctness
// concern: a cache miss simply re-fetches from the host.
const blockCacheTTL = 10 * time.Minute

// Proxy forwards directly to the underlying host.Service, except for
// CancelBlock (treats InvalidState as success) and GetBlock (a convenience
// built on GetBlocks that fails with ErrBlockNotFound, memoized since
// ancestor walks re-request the same blocks repeatedly).
type Proxy struct {
	inner      host.Service
	blockCache *cache.Cache
}

// New wraps a host.Service handle. The returned Proxy may be shared by value
// or by pointer among the node, miner controller, and ancestor iterators;
// copies still forward to the same underlying service.
func New(service host.Service) *Proxy {
	return &Proxy{inner: service, blockCache: cache.NewCache()}
}

// Close releases the proxy's block cache cleanup goroutine.
func (p *Proxy) Close() {
	p.blockCache.Close()
}

func (p *Proxy) InitializeBlock(previousID host.BlockID) error {
	return p.inner.InitializeBlock(previousID)
}

func (p *Proxy) SummarizeBlock() ([]byte, error) {
	return p.inner.SummarizeBlock()
}

func (p *Proxy) FinalizeBlock(consensus []byte) (host.BlockID, error) {
	return p.inner.FinalizeBlock(consensus)
}

// CancelBlock stops adding batches to the current block and abandons it. A
// host error of kind InvalidState means there was nothing to cancel, which is
// treated as success (idempotent).
func (p *Proxy) CancelBlock() error {
	err := p.inner.CancelBlock()
	if err == nil {
		return nil
	}
	if host.IsKind(err, host.ErrKindInvalidState) {
		return nil
	}
	return err
}

func (p *Proxy) CheckBlocks(priority []host.BlockID) error {
	return p.inner.CheckBlocks(priority)
}

func (p *Proxy) CommitBlock(id host.BlockID) error {
	return p.inner.CommitBlock(id)
}

func (p *Proxy) IgnoreBlock(id host.BlockID) error {
	return p.inner.IgnoreBlock(id)
}

func (p *Proxy) FailBlock(id host.BlockID) error {
	return p.inner.FailBlock(id)
}

func (p *Proxy) SendTo(peer host.PeerID, msgType string, payload []byte) error {
	return p.inner.SendTo(peer, msgType, payload)
}

func (p *Proxy) Broadcast(msgType string, payload []byte) error {
	return p.inner.Broadcast(msgType, payload)
}

func (p *Proxy) GetBlocks(ids []host.BlockID) (map[string]host.Block, error) {
	return p.inner.GetBlocks(ids)
}

// GetBlock is a convenience over GetBlocks for a single id; it fails with
// *host.ErrBlockNotFound if the host's batch response omits the requested id.
func (p *Proxy) GetBlock(id host.BlockID) (host.Block, error) {
	if cached, ok := p.blockCache.Get(string(id)); ok {
		return cached.(host.Block), nil
	}

	blocks, err := p.inner.GetBlocks([]host.BlockID{id})
	if err != nil {
		return host.Block{}, err
	}

	block, ok := blocks[string(id)]
	if !ok {
		return host.Block{}, &host.ErrBlockNotFound{BlockID: id}
	}

	p.blockCache.Set(string(id), block, blockCacheTTL)
	return block, nil
}

func (p *Proxy) GetChainHead() (host.Block, error) {
	return p.inner.GetChainHead()
}

func (p *Proxy) GetSettings(blockID host.BlockID, keys []string) (map[string]string, error) {
	return p.inner.GetSettings(blockID, keys)
}

func (p *Proxy) GetState(blockID host.BlockID, addresses []string) (map[string][]byte, error) {
	return p.inner.GetState(blockID, addresses)
}

func (p *Proxy) String() string {
	return fmt.Sprintf("hostservice.Proxy(%T)", p.inner)
}
