package difficulty

import (
	"testing"

	"powconsensus/blockheader"
	"powconsensus/codec"
	"powconsensus/host"
	"powconsensus/hostservice"
)

type memService struct {
	blocks map[string]host.Block
}

func (m *memService) InitializeBlock(previousID host.BlockID) error { return nil }
func (m *memService) SummarizeBlock() ([]byte, error)                { return nil, nil }
func (m *memService) FinalizeBlock(consensus []byte) (host.BlockID, error) {
	return nil, nil
}
func (m *memService) CancelBlock() error                        { return nil }
func (m *memService) CheckBlocks(priority []host.BlockID) error { return nil }
func (m *memService) CommitBlock(id host.BlockID) error         { return nil }
func (m *memService) IgnoreBlock(id host.BlockID) error         { return nil }
func (m *memService) FailBlock(id host.BlockID) error           { return nil }
func (m *memService) SendTo(peer host.PeerID, msgType string, payload []byte) error {
	return nil
}
func (m *memService) Broadcast(msgType string, payload []byte) error { return nil }
func (m *memService) GetBlocks(ids []host.BlockID) (map[string]host.Block, error) {
	out := make(map[string]host.Block)
	for _, id := range ids {
		if b, ok := m.blocks[string(id)]; ok {
			out[string(id)] = b
		}
	}
	return out, nil
}
func (m *memService) GetChainHead() (host.Block, error) { return host.Block{}, nil }
func (m *memService) GetSettings(blockID host.BlockID, keys []string) (map[string]string, error) {
	return nil, nil
}
func (m *memService) GetState(blockID host.BlockID, addresses []string) (map[string][]byte, error) {
	return nil, nil
}

// buildChain constructs n PoW blocks on top of a genesis, each timestamp
// seconds apart, all at the given difficulty.
func buildChain(n int, difficulty uint32, secondsApart float64) (*memService, blockheader.Header) {
	svc := &memService{blocks: make(map[string]host.Block)}

	genesis := host.Block{BlockID: host.BlockID{0x00}, BlockNum: 0}
	svc.blocks[string(genesis.BlockID)] = genesis

	previous := genesis.BlockID
	var head host.Block
	for i := 1; i <= n; i++ {
		id := host.BlockID{byte(i)}
		block := host.Block{
			BlockID:    id,
			PreviousID: previous,
			BlockNum:   uint64(i),
			SignerID:   host.PeerID{0x01},
			Payload:    codec.Encode(difficulty, uint64(i), float64(i)*secondsApart),
		}
		svc.blocks[string(id)] = block
		previous = id
		head = block
	}

	header, err := blockheader.New(head)
	if err != nil {
		panic(err)
	}
	return svc, header
}

func TestGetDifficultyGenesisParent(t *testing.T) {
	svc := &memService{blocks: map[string]host.Block{}}
	proxy := hostservice.New(svc)
	genesisHeader, _ := blockheader.New(host.Block{BlockNum: 0})

	cfg := DefaultConfig()
	d, reason := GetDifficulty(genesisHeader, 1000, proxy, cfg)
	if d != cfg.InitialDifficulty {
		t.Fatalf("GetDifficulty() = %d, want %d", d, cfg.InitialDifficulty)
	}
	if reason != NoFallback {
		t.Fatalf("reason = %q, want NoFallback", reason)
	}
}

func TestGetDifficultyUnchangedOffCadence(t *testing.T) {
	svc, head := buildChain(3, 20, 60)
	proxy := hostservice.New(svc)

	// block_num 3 with adjustment_count=10, tuning_count=100: not on either cadence
	cfg := Config{InitialDifficulty: 22, SecondsBetweenBlocks: 60, DifficultyAdjustmentBlockCount: 10, DifficultyTuningBlockCount: 100}
	d, reason := GetDifficulty(head, 1000, proxy, cfg)
	if d != 20 {
		t.Fatalf("GetDifficulty() = %d, want unchanged 20", d)
	}
	if reason != NoFallback {
		t.Fatalf("reason = %q, want NoFallback", reason)
	}
}

func TestGetDifficultyFallsBackOnLookupFailure(t *testing.T) {
	// head references a previous id that does not exist in the service.
	svc := &memService{blocks: map[string]host.Block{}}
	block := host.Block{
		BlockID:    host.BlockID{0x02},
		PreviousID: host.BlockID{0x01}, // missing
		BlockNum:   10,
		SignerID:   host.PeerID{0x01},
		Payload:    codec.Encode(20, 1, 10),
	}
	svc.blocks[string(block.BlockID)] = block
	header, _ := blockheader.New(block)

	proxy := hostservice.New(svc)
	cfg := Config{InitialDifficulty: 22, SecondsBetweenBlocks: 60, DifficultyAdjustmentBlockCount: 10, DifficultyTuningBlockCount: 100}

	d, reason := GetDifficulty(header, 1000, proxy, cfg)
	if d != cfg.InitialDifficulty {
		t.Fatalf("GetDifficulty() = %d, want fallback to %d", d, cfg.InitialDifficulty)
	}
	if reason != FallbackWindowGather {
		t.Fatalf("reason = %q, want FallbackWindowGather", reason)
	}
}

func TestTuningRetargetIncreasesWhenFast(t *testing.T) {
	// 10 blocks, 1 second apart, target 60s/block => way too fast => difficulty+1
	svc, head := buildChain(10, 20, 1)
	proxy := hostservice.New(svc)

	cfg := Config{InitialDifficulty: 22, SecondsBetweenBlocks: 60, DifficultyAdjustmentBlockCount: 5, DifficultyTuningBlockCount: 10}
	d, reason := GetDifficulty(head, float64(10)*1+1, proxy, cfg)
	if d != 21 {
		t.Fatalf("GetDifficulty() = %d, want 21", d)
	}
	if reason != NoFallback {
		t.Fatalf("reason = %q, want NoFallback", reason)
	}
}

func TestTuningRetargetDecreasesWhenSlow(t *testing.T) {
	svc, head := buildChain(10, 20, 1000)
	proxy := hostservice.New(svc)

	cfg := Config{InitialDifficulty: 22, SecondsBetweenBlocks: 60, DifficultyAdjustmentBlockCount: 5, DifficultyTuningBlockCount: 10}
	now := float64(10)*1000 + 100000
	d, _ := GetDifficulty(head, now, proxy, cfg)
	if d != 19 {
		t.Fatalf("GetDifficulty() = %d, want 19", d)
	}
}

func TestDifficultyClampedAtZero(t *testing.T) {
	svc, head := buildChain(10, 0, 1000)
	proxy := hostservice.New(svc)

	cfg := Config{InitialDifficulty: 22, SecondsBetweenBlocks: 60, DifficultyAdjustmentBlockCount: 5, DifficultyTuningBlockCount: 10}
	now := float64(10)*1000 + 1000000
	d, _ := GetDifficulty(head, now, proxy, cfg)
	if d != 0 {
		t.Fatalf("GetDifficulty() = %d, want clamped at 0", d)
	}
}
