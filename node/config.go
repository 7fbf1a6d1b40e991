package node

import (
	"strconv"

	"powconsensus/difficulty"
	"powconsensus/host"
	"powconsensus/hostservice"
)

// On-chain setting keys read at startup and on every commit. Unrecognized
// keys are ignored; values that fail to parse keep the previous value.
const (
	keySecondsBetweenBlocks           = "sawtooth.consensus.pow.seconds_between_blocks"
	keyDifficultyAdjustmentBlockCount = "sawtooth.consensus.pow.difficulty_adjustment_block_count"
	keyDifficultyTuningBlockCount     = "sawtooth.consensus.pow.difficulty_tuning_block_count"
	keyInitialDifficulty              = "sawtooth.consensus.pow.initial_difficulty"
)

// Config is the node's view of the on-chain consensus settings, reloaded at
// startup and after every commit.
type Config struct {
	difficulty.Config
}

// NewConfig returns a Config seeded with the canonical defaults, to be
// overridden by Load once a chain head is available.
func NewConfig() *Config {
	return &Config{Config: difficulty.DefaultConfig()}
}

// Load fetches the on-chain settings at blockID and applies any recognized,
// well-formed values on top of the current configuration.
func (c *Config) Load(proxy *hostservice.Proxy, blockID host.BlockID) error {
	keys := []string{
		keySecondsBetweenBlocks,
		keyDifficultyAdjustmentBlockCount,
		keyDifficultyTuningBlockCount,
		keyInitialDifficulty,
	}

	settings, err := proxy.GetSettings(blockID, keys)
	if err != nil {
		return err
	}

	if v, ok := parseUint64Setting(keySecondsBetweenBlocks, settings); ok {
		c.SecondsBetweenBlocks = v
	}
	if v, ok := parseUint64Setting(keyDifficultyAdjustmentBlockCount, settings); ok {
		c.DifficultyAdjustmentBlockCount = v
	}
	if v, ok := parseUint64Setting(keyDifficultyTuningBlockCount, settings); ok {
		c.DifficultyTuningBlockCount = v
	}
	if v, ok := parseUint32Setting(keyInitialDifficulty, settings); ok {
		c.InitialDifficulty = v
	}

	return nil
}

func parseUint64Setting(key string, settings map[string]string) (uint64, bool) {
	raw, ok := settings[key]
	if !ok {
		return 0, false
	}
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

func parseUint32Setting(key string, settings map[string]string) (uint32, bool) {
	raw, ok := settings[key]
	if !ok {
		return 0, false
	}
	value, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(value), true
}
