package node

import (
	"testing"

	"powconsensus/codec"
	"powconsensus/host"
)

func TestCompareForksFastPathCommit(t *testing.T) {
	svc := &fakeService{blocks: map[string]host.Block{}}
	n := New(svc)

	curHead := host.Block{BlockID: []byte{0xAA}, BlockNum: 10, Payload: codec.Encode(20, 1, 100)}
	newHead := host.Block{BlockID: []byte{0xBB}, PreviousID: []byte{0xAA}, BlockNum: 11, Payload: codec.Encode(20, 2, 101)}

	if err := n.compareForks(curHead, newHead); err != nil {
		t.Fatalf("compareForks() error = %v", err)
	}
	if len(svc.commitBlockCalls) != 1 || string(svc.commitBlockCalls[0]) != string(newHead.BlockID) {
		t.Fatalf("expected commit_block(N), got commits=%v ignores=%v", svc.commitBlockCalls, svc.ignoreBlockCalls)
	}
}

func TestCompareForksNonPoWInterloper(t *testing.T) {
	svc := &fakeService{blocks: map[string]host.Block{}}
	n := New(svc)

	curHead := host.Block{BlockID: []byte{0xAA}, BlockNum: 10, Payload: codec.Encode(20, 1, 100)}
	newHead := host.Block{BlockID: []byte{0xBB}, PreviousID: []byte{0xAA}, BlockNum: 11, Payload: []byte("XYZ:1:2:3")}

	if err := n.compareForks(curHead, newHead); err != nil {
		t.Fatalf("compareForks() error = %v", err)
	}
	if len(svc.ignoreBlockCalls) != 1 {
		t.Fatalf("expected ignore_block(N) for non-PoW candidate, got commits=%v ignores=%v", svc.commitBlockCalls, svc.ignoreBlockCalls)
	}
}

// buildForkChain constructs a linear PoW chain of the given difficulties,
// rooted at a shared genesis, returning the service and the tip block.
func buildForkChain(svc *fakeService, rootID host.BlockID, startNum uint64, difficulties []uint32, prefix byte) host.Block {
	previous := rootID
	var tip host.Block
	for i, d := range difficulties {
		id := host.BlockID{prefix, byte(i + 1)}
		block := host.Block{
			BlockID:    id,
			PreviousID: previous,
			BlockNum:   startNum + uint64(i) + 1,
			Payload:    codec.Encode(d, uint64(i), float64(i)),
		}
		svc.blocks[string(id)] = block
		previous = id
		tip = block
	}
	return tip
}

func TestCompareForksHeavierForkWins(t *testing.T) {
	svc := &fakeService{blocks: map[string]host.Block{}}
	n := New(svc)

	root := host.BlockID{0x00}
	svc.blocks[string(root)] = host.Block{BlockID: root, BlockNum: 9}

	curTip := buildForkChain(svc, root, 9, []uint32{20, 20, 20}, 0xC0)
	newTip := buildForkChain(svc, root, 9, []uint32{21, 21, 21}, 0xD0)

	svc.blocks[string(curTip.BlockID)] = curTip
	svc.blocks[string(newTip.BlockID)] = newTip

	if err := n.compareForks(curTip, newTip); err != nil {
		t.Fatalf("compareForks() error = %v", err)
	}
	if len(svc.commitBlockCalls) != 1 || string(svc.commitBlockCalls[0]) != string(newTip.BlockID) {
		t.Fatalf("expected commit_block(N) for heavier fork, got commits=%v ignores=%v", svc.commitBlockCalls, svc.ignoreBlockCalls)
	}
}

func TestCompareForksLighterForkIgnored(t *testing.T) {
	svc := &fakeService{blocks: map[string]host.Block{}}
	n := New(svc)

	root := host.BlockID{0x00}
	svc.blocks[string(root)] = host.Block{BlockID: root, BlockNum: 9}

	curTip := buildForkChain(svc, root, 9, []uint32{21, 21, 21}, 0xE0)
	newTip := buildForkChain(svc, root, 9, []uint32{20, 20, 20}, 0xF0)

	svc.blocks[string(curTip.BlockID)] = curTip
	svc.blocks[string(newTip.BlockID)] = newTip

	if err := n.compareForks(curTip, newTip); err != nil {
		t.Fatalf("compareForks() error = %v", err)
	}
	if len(svc.ignoreBlockCalls) != 1 {
		t.Fatalf("expected ignore_block(N) for lighter fork, got commits=%v ignores=%v", svc.commitBlockCalls, svc.ignoreBlockCalls)
	}
}

func TestResolveConsensusSwitchCommitsOnMatch(t *testing.T) {
	svc := &fakeService{blocks: map[string]host.Block{}}
	n := New(svc)

	curHead := host.Block{BlockID: []byte{0xAA}, BlockNum: 5} // non-PoW, empty payload
	newHead := host.Block{BlockID: []byte{0xBB}, PreviousID: []byte{0xAA}, BlockNum: 6, Payload: codec.Encode(10, 1, 1)}

	if err := n.compareForks(curHead, newHead); err != nil {
		t.Fatalf("compareForks() error = %v", err)
	}
	if len(svc.commitBlockCalls) != 1 {
		t.Fatalf("expected commit_block(N) once the switch-point ancestor matches, got commits=%v", svc.commitBlockCalls)
	}
}
