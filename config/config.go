// Package config holds the typed chain-parameter bundle consumed by every
// STF stage and the block importer: epoch length, core count, validator
// count, and the thresholds/timeouts the stages compare slots and vote
// counts against.
package config

import "fmt"

// Config bundles the chain parameters the state transition function needs.
// None of these are negotiated on the wire; they are agreed out-of-band by
// every validator running the same build.
type Config struct {
	// EpochLength is the number of slots per epoch.
	EpochLength uint32
	// CoreCount is the number of cores (parallel work-report lanes).
	CoreCount uint32
	// ValidatorCount is the number of active validators (|κ|).
	ValidatorCount uint32
	// TicketsPerValidator bounds how many ticket envelopes one validator may
	// submit per epoch.
	TicketsPerValidator uint32
	// MaxRecentBlocks bounds |β|.
	MaxRecentBlocks uint32
	// ReportTimeoutSlots is added to the slot a report enters ρ to compute
	// its availability timeout.
	ReportTimeoutSlots uint32
	// AvailabilityThresholdNum/Den express the fraction of validators whose
	// assurance bits must be set before a report moves from ρ to θ.
	AvailabilityThresholdNum uint32
	AvailabilityThresholdDen uint32
	// SuperMajorityNum/Den express the supermajority fraction used to
	// classify a dispute verdict as "good" or "bad".
	SuperMajorityNum uint32
	SuperMajorityDen uint32
	// MaxAccumulateGasPerBlock bounds total gas spent across all
	// accumulation invocations in a single block.
	MaxAccumulateGasPerBlock uint64
	// AccumulatedRingSize bounds the ξ ring (one slot per recent epoch).
	AccumulatedRingSize uint32
}

// Default returns the full-network JAM configuration.
func Default() *Config {
	return &Config{
		EpochLength:              600,
		CoreCount:                341,
		ValidatorCount:           1023,
		TicketsPerValidator:      3,
		MaxRecentBlocks:          8,
		ReportTimeoutSlots:       5,
		AvailabilityThresholdNum: 2,
		AvailabilityThresholdDen: 3,
		SuperMajorityNum:         2,
		SuperMajorityDen:         3,
		MaxAccumulateGasPerBlock: 3_500_000_000,
		AccumulatedRingSize:      4,
	}
}

// Tiny returns a small configuration suitable for unit tests and the
// conformance driver's scenario vectors, where epoch boundaries, β eviction
// and ξ rotation need to be exercised with a handful of blocks rather than
// hundreds of slots.
func Tiny() *Config {
	return &Config{
		EpochLength:              12,
		CoreCount:                2,
		ValidatorCount:           6,
		TicketsPerValidator:      2,
		MaxRecentBlocks:          4,
		ReportTimeoutSlots:       5,
		AvailabilityThresholdNum: 2,
		AvailabilityThresholdDen: 3,
		SuperMajorityNum:         2,
		SuperMajorityDen:         3,
		MaxAccumulateGasPerBlock: 1_000_000,
		AccumulatedRingSize:      3,
	}
}

// Validate checks the config for internal consistency.
func (c *Config) Validate() error {
	if c.EpochLength == 0 {
		return fmt.Errorf("config: EpochLength must be > 0")
	}
	if c.CoreCount == 0 {
		return fmt.Errorf("config: CoreCount must be > 0")
	}
	if c.ValidatorCount == 0 {
		return fmt.Errorf("config: ValidatorCount must be > 0")
	}
	if c.AvailabilityThresholdDen == 0 || c.AvailabilityThresholdNum > c.AvailabilityThresholdDen {
		return fmt.Errorf("config: invalid availability threshold %d/%d", c.AvailabilityThresholdNum, c.AvailabilityThresholdDen)
	}
	if c.SuperMajorityDen == 0 || c.SuperMajorityNum > c.SuperMajorityDen {
		return fmt.Errorf("config: invalid super-majority threshold %d/%d", c.SuperMajorityNum, c.SuperMajorityDen)
	}
	if c.MaxRecentBlocks == 0 {
		return fmt.Errorf("config: MaxRecentBlocks must be > 0")
	}
	if c.AccumulatedRingSize == 0 {
		return fmt.Errorf("config: AccumulatedRingSize must be > 0")
	}
	return nil
}

// EpochOf returns the epoch index containing slot.
func (c *Config) EpochOf(slot uint32) uint32 {
	return slot / c.EpochLength
}

// SlotInEpoch returns the offset of slot within its epoch.
func (c *Config) SlotInEpoch(slot uint32) uint32 {
	return slot % c.EpochLength
}

// AvailabilityThresholdCount returns the minimum number of assurance bits
// (out of ValidatorCount) required to move a report from ρ to θ.
func (c *Config) AvailabilityThresholdCount() uint32 {
	return ceilDiv(c.ValidatorCount*c.AvailabilityThresholdNum, c.AvailabilityThresholdDen)
}

// SuperMajorityCount returns the minimum vote count (out of ValidatorCount)
// required to classify a verdict as a clean super-majority.
func (c *Config) SuperMajorityCount() uint32 {
	return ceilDiv(c.ValidatorCount*c.SuperMajorityNum, c.SuperMajorityDen)
}

func ceilDiv(a, b uint32) uint32 {
	if b == 0 {
		return 0
	}
	return (a + b - 1) / b
}
