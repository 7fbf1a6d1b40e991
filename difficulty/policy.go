// Package difficulty implements the dynamic difficulty-retargeting policy:
// a coarse "tuning" cadence and a finer "adjustment" cadence, both driven by
// elapsed wall-clock time over a window of ancestor blocks.
package difficulty

import (
	"powconsensus/blockheader"
	"powconsensus/codec"
	"powconsensus/hostservice"
)

// Config holds the retargeting parameters, loaded from on-chain settings by
// the node (see node.Config); defaults match the host's canonical values.
type Config struct {
	InitialDifficulty              uint32
	SecondsBetweenBlocks           uint64
	DifficultyAdjustmentBlockCount uint64
	DifficultyTuningBlockCount     uint64
}

// DefaultConfig returns the canonical defaults.
func DefaultConfig() Config {
	return Config{
		InitialDifficulty:              22,
		SecondsBetweenBlocks:           60,
		DifficultyAdjustmentBlockCount: 10,
		DifficultyTuningBlockCount:     100,
	}
}

// FallbackReason names why GetDifficulty fell back to InitialDifficulty,
// for logging/telemetry; the empty string means no fallback occurred.
type FallbackReason string

const (
	NoFallback           FallbackReason = ""
	FallbackWindowGather FallbackReason = "window-gather-failed"
)

// GetDifficulty computes the difficulty a new block built on header should
// use at wall-clock now. Any failure gathering the retarget window falls
// back to cfg.InitialDifficulty; reason reports whether (and why) that
// happened, so callers can log/record it without the policy itself knowing
// about logging.
func GetDifficulty(header blockheader.Header, now float64, proxy *hostservice.Proxy, cfg Config) (difficulty uint32, reason FallbackReason) {
	if header.IsGenesis() {
		return cfg.InitialDifficulty, NoFallback
	}

	d, err := calculateDifficulty(header, now, proxy, cfg)
	if err != nil {
		return cfg.InitialDifficulty, FallbackWindowGather
	}

	return d, NoFallback
}

func calculateDifficulty(header blockheader.Header, now float64, proxy *hostservice.Proxy, cfg Config) (uint32, error) {
	if isTuningBlock(header, cfg) {
		if d, ok, err := calculateTuningDifficulty(header, now, proxy, cfg); err != nil {
			return 0, err
		} else if ok {
			return d, nil
		}
	} else if isAdjustmentBlock(header, cfg) {
		if d, ok, err := calculateAdjustmentDifficulty(header, now, proxy, cfg); err != nil {
			return 0, err
		} else if ok {
			return d, nil
		}
	}

	return header.Consensus.Difficulty, nil
}

func calculateTuningDifficulty(header blockheader.Header, now float64, proxy *hostservice.Proxy, cfg Config) (difficulty uint32, changed bool, err error) {
	timeTaken, timeExpected, err := elapsedTime(header, proxy, now, cfg.DifficultyTuningBlockCount, cfg.SecondsBetweenBlocks)
	if err != nil {
		return 0, false, err
	}

	d := header.Consensus.Difficulty

	switch {
	case timeTaken < timeExpected && d < 255:
		return d + 1, true, nil
	case timeTaken > timeExpected && d > 0:
		return d - 1, true, nil
	default:
		return 0, false, nil
	}
}

func calculateAdjustmentDifficulty(header blockheader.Header, now float64, proxy *hostservice.Proxy, cfg Config) (difficulty uint32, changed bool, err error) {
	timeTaken, timeExpected, err := elapsedTime(header, proxy, now, cfg.DifficultyAdjustmentBlockCount, cfg.SecondsBetweenBlocks)
	if err != nil {
		return 0, false, err
	}

	d := header.Consensus.Difficulty

	switch {
	case timeTaken < timeExpected/2 && d < 255:
		return d + 1, true, nil
	case timeTaken > timeExpected*2 && d > 0:
		return d - 1, true, nil
	default:
		return 0, false, nil
	}
}

func isTuningBlock(header blockheader.Header, cfg Config) bool {
	return header.BlockNum%cfg.DifficultyTuningBlockCount == 0
}

func isAdjustmentBlock(header blockheader.Header, cfg Config) bool {
	return header.BlockNum%cfg.DifficultyAdjustmentBlockCount == 0
}

// elapsedTime walks ancestors up to totalCount blocks, stopping at the first
// non-PoW parent, and returns the elapsed wall time versus the expected time
// for the window actually spanned (minimum 2 blocks).
//
// Unlike blockheader.Ancestors, this walk is explicit rather than going
// through the shared silent iterator: a lookup failure here must propagate
// as an error (triggering the caller's fallback to InitialDifficulty), while
// running into a non-PoW ancestor is a normal, non-error end of the window.
func elapsedTime(header blockheader.Header, proxy *hostservice.Proxy, now float64, totalCount uint64, expectedInterval uint64) (timeTaken float64, timeExpected float64, err error) {
	count := uint64(2)
	previousTime := header.Consensus.Timestamp
	blockID := header.PreviousID

	for {
		block, err := proxy.GetBlock(blockID)
		if err != nil {
			return 0, 0, err
		}

		consensus, err := codec.Decode(block.Payload)
		if err != nil || !consensus.IsPoW() {
			break
		}

		count++
		blockID = block.PreviousID
		previousTime = consensus.Timestamp

		if count >= totalCount {
			break
		}
	}

	timeTaken = now - previousTime
	timeExpected = float64(count * expectedInterval)

	return timeTaken, timeExpected, nil
}
