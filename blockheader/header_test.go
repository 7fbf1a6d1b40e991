package blockheader

import (
	"testing"

	"powconsensus/codec"
	"powconsensus/hashwork"
	"powconsensus/host"
)

func mineValidNonce(blockID, signerID []byte, difficulty uint32) uint64 {
	for nonce := uint64(0); ; nonce++ {
		digest := hashwork.Hash(blockID, signerID, nonce)
		if hashwork.IsValidProofOfWork(digest, difficulty) {
			return nonce
		}
	}
}

func TestGenesisAlwaysValid(t *testing.T) {
	block := host.Block{BlockNum: 0}
	header, err := New(block)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if !header.IsGenesis() {
		t.Fatalf("expected genesis")
	}
	if header.IsPoW() {
		t.Fatalf("expected genesis to not be PoW")
	}
	if err := header.Validate(); err != nil {
		t.Fatalf("Validate() error = %v, want nil", err)
	}
}

func TestValidateValidProof(t *testing.T) {
	blockID := []byte{0x01, 0x02}
	signerID := []byte{0x03}
	difficulty := uint32(4)
	nonce := mineValidNonce(blockID, signerID, difficulty)

	block := host.Block{
		BlockID:    []byte{0xFF},
		PreviousID: blockID,
		BlockNum:   5,
		SignerID:   signerID,
		Payload:    codec.Encode(difficulty, nonce, 100.0),
	}

	header, err := New(block)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if !header.IsPoW() {
		t.Fatalf("expected PoW consensus")
	}
	if err := header.Validate(); err != nil {
		t.Fatalf("Validate() error = %v, want nil", err)
	}
}

func TestValidateInvalidProof(t *testing.T) {
	block := host.Block{
		BlockID:    []byte{0xFF},
		PreviousID: []byte{0x01},
		BlockNum:   5,
		SignerID:   []byte{0x02},
		Payload:    codec.Encode(255, 0, 100.0),
	}

	header, err := New(block)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	err = header.Validate()
	if err == nil {
		t.Fatalf("Validate() error = nil, want InvalidProofOfWorkError")
	}
}

func TestWorkSaturates(t *testing.T) {
	cases := []struct {
		difficulty uint32
		want       uint64
	}{
		{0, 1},
		{1, 2},
		{10, 1024},
		{62, uint64(1) << 62},
		{63, ^uint64(0)},
		{255, ^uint64(0)},
	}

	for _, tc := range cases {
		header := Header{Consensus: codec.Consensus{Difficulty: tc.difficulty}}
		if got := header.Work(); got != tc.want {
			t.Fatalf("Work() for difficulty %d = %d, want %d", tc.difficulty, got, tc.want)
		}
	}
}

func TestDecodeErrorPropagates(t *testing.T) {
	block := host.Block{BlockNum: 3, Payload: []byte("garbage")}
	_, err := New(block)
	if err == nil {
		t.Fatalf("New() error = nil, want decode error")
	}
}
