// Package hashwork implements the proof-of-work hash construction and the
// leading-zero-bit scoring function consensus validation is built on.
package hashwork

import (
	"crypto/sha256"
	"strconv"
)

// Digest is a SHA-256 output.
type Digest [sha256.Size]byte

// Hash computes SHA256(blockID ‖ peerID ‖ ascii_decimal(nonce)).
//
// The nonce is encoded as its base-10 ASCII representation, with no padding
// or sign, exactly as the wire-compatible PoW challenge hash requires.
func Hash(blockID, peerID []byte, nonce uint64) Digest {
	h := sha256.New()
	h.Write(blockID)
	h.Write(peerID)
	h.Write(strconv.AppendUint(nil, nonce, 10))

	var out Digest
	copy(out[:], h.Sum(nil))
	return out
}

// Score measures the leading-zero density of a digest: 8 points per leading
// zero byte, plus a partial score for the first non-zero byte based on how
// many of its high bits are also zero.
func Score(digest Digest) uint32 {
	var score uint32

	for _, b := range digest {
		if b == 0 {
			score += 8
			continue
		}

		switch {
		case b >= 128:
			// no bits contributed
		case b >= 64:
			score++
		case b >= 32:
			score += 2
		case b >= 16:
			score += 3
		case b >= 8:
			score += 4
		case b >= 4:
			score += 5
		case b >= 2:
			score += 6
		default: // b == 1
			score += 7
		}

		break
	}

	return score
}

// IsValidProofOfWork reports whether digest scores at least difficulty.
func IsValidProofOfWork(digest Digest, difficulty uint32) bool {
	return Score(digest) >= difficulty
}
