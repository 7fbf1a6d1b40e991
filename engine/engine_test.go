package engine

import (
	"testing"
	"time"

	"powconsensus/host"
)

type fakeService struct {
	blocks map[string]host.Block
}

func (f *fakeService) InitializeBlock(previousID host.BlockID) error { return nil }
func (f *fakeService) SummarizeBlock() ([]byte, error)                { return nil, nil }
func (f *fakeService) FinalizeBlock(consensus []byte) (host.BlockID, error) {
	return nil, nil
}
func (f *fakeService) CancelBlock() error                        { return nil }
func (f *fakeService) CheckBlocks(priority []host.BlockID) error { return nil }
func (f *fakeService) CommitBlock(id host.BlockID) error         { return nil }
func (f *fakeService) IgnoreBlock(id host.BlockID) error         { return nil }
func (f *fakeService) FailBlock(id host.BlockID) error           { return nil }
func (f *fakeService) SendTo(peer host.PeerID, msgType string, payload []byte) error {
	return nil
}
func (f *fakeService) Broadcast(msgType string, payload []byte) error { return nil }
func (f *fakeService) GetBlocks(ids []host.BlockID) (map[string]host.Block, error) {
	out := make(map[string]host.Block)
	for _, id := range ids {
		if b, ok := f.blocks[string(id)]; ok {
			out[string(id)] = b
		}
	}
	return out, nil
}
func (f *fakeService) GetChainHead() (host.Block, error) { return host.Block{}, nil }
func (f *fakeService) GetSettings(blockID host.BlockID, keys []string) (map[string]string, error) {
	return map[string]string{}, nil
}
func (f *fakeService) GetState(blockID host.BlockID, addresses []string) (map[string][]byte, error) {
	return nil, nil
}

func TestStartExitsOnShutdown(t *testing.T) {
	genesisID := host.BlockID{0x00}
	svc := &fakeService{blocks: map[string]host.Block{
		string(genesisID): {BlockID: genesisID, BlockNum: 0},
	}}

	updates := make(chan host.Update, 1)
	updates <- host.ShutdownUpdate()

	e := &Engine{UpdateRecvTimeout: time.Millisecond}

	done := make(chan struct{})
	go func() {
		e.Start(updates, svc, host.StartupState{ChainHead: svc.blocks[string(genesisID)]})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("Start() did not return after Shutdown")
	}
}

func TestStartExitsOnInitError(t *testing.T) {
	// an empty block store means the genesis chain head itself cannot be
	// fetched when the node tries to start mining on it, so Initialize
	// fails and Start must return without entering the update loop.
	svc := &fakeService{blocks: map[string]host.Block{}}
	updates := make(chan host.Update)

	e := New()

	done := make(chan struct{})
	go func() {
		e.Start(updates, svc, host.StartupState{})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("Start() did not return after an init error")
	}
}
