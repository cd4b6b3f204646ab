// Package chain implements the block importer (spec.md §4.7): the
// orchestrator that verifies a block's parent linkage, runs the seven STF
// stages in fixed order against a fresh overlay, extends β and its
// Merkle-Mountain-Range, and commits the overlay into a new post-state.
// Grounded on the teacher's core/state_transition.go StateTransition
// orchestration shape (header validation, then ordered stage application,
// then post-state computation).
package chain

import (
	"errors"
	"fmt"

	"github.com/jamcore/jamcore/block"
	"github.com/jamcore/jamcore/config"
	"github.com/jamcore/jamcore/crypto"
	"github.com/jamcore/jamcore/log"
	"github.com/jamcore/jamcore/state"
	"github.com/jamcore/jamcore/state/dictionary"
	"github.com/jamcore/jamcore/stats"
	"github.com/jamcore/jamcore/stf"
	"github.com/jamcore/jamcore/types"
)

// ErrPreStateRootMismatch is returned when a block's declared
// parent_state_root disagrees with root(dictionary(base_state)).
var ErrPreStateRootMismatch = errors.New("chain: parent state root mismatch")

// ErrParentMismatch is returned when a block's declared parent hash
// disagrees with the tip the importer was told to extend.
var ErrParentMismatch = errors.New("chain: parent hash mismatch")

// ErrExtrinsicHashMismatch is returned when a block's declared
// extrinsic_hash disagrees with the hash of its own extrinsic.
var ErrExtrinsicHashMismatch = errors.New("chain: extrinsic hash mismatch")

// Importer orchestrates one block's state transition against a base state.
// It is safe to reuse across blocks of the same chain (the STF is
// single-threaded and deterministic, spec.md §5); it is not safe for
// concurrent use by multiple goroutines.
type Importer struct {
	Cfg     *config.Config
	Log     *log.Logger
	Metrics *stats.Collector

	stages       []stf.Stage
	accumulation *stf.AccumulationStage
	safrole      *stf.SafroleStage
	leafCount    uint64 // total blocks imported, drives the β MMR's bagging arithmetic
}

// NewImporter builds an Importer with a fresh seven-stage pipeline. The
// pipeline starts with fail-closed Null VRF/ring verifiers; call
// SetVerifiers to wire in real ones before importing a block whose seal
// and tickets must actually verify.
func NewImporter(cfg *config.Config, logger *log.Logger, metrics *stats.Collector) *Importer {
	stages := stf.Pipeline(logger, metrics)
	im := &Importer{Cfg: cfg, Log: logger, Metrics: metrics, stages: stages}
	for _, s := range stages {
		if acc, ok := s.(*stf.AccumulationStage); ok {
			im.accumulation = acc
		}
		if sr, ok := s.(*stf.SafroleStage); ok {
			im.safrole = sr
		}
	}
	return im
}

// SetVerifiers wires the VRF and ring-signature verifiers the safrole
// stage uses to check a block's seal, entropy source, and tickets.
func (im *Importer) SetVerifiers(vrf crypto.VrfVerifier, ring crypto.RingVerifier) {
	if im.safrole == nil {
		return
	}
	im.safrole.Vrf = vrf
	im.safrole.Ring = ring
}

// Import runs blk's state transition against base and returns the new
// post-state and its dictionary root. base is never mutated; on any
// error the caller's base remains the valid chain state (spec.md §4.7,
// §4.6 "any stage failure aborts the block; no partial state is
// committed").
func (im *Importer) Import(base *state.State, tipHash types.Hash, blk *block.Block) (*state.State, types.Hash, error) {
	if blk.Header.ParentHash != tipHash {
		return nil, types.Hash{}, fmt.Errorf("%w: got %s, want %s", ErrParentMismatch, blk.Header.ParentHash, tipHash)
	}

	baseRoot := dictionary.Root(dictionary.Serialize(base))
	if blk.Header.ParentStateRoot != baseRoot {
		return nil, types.Hash{}, fmt.Errorf("%w: got %s, want %s", ErrPreStateRootMismatch, blk.Header.ParentStateRoot, baseRoot)
	}
	if extHash := blk.Extrinsic.Hash(); blk.Header.ExtrinsicHash != extHash {
		return nil, types.Hash{}, fmt.Errorf("%w: got %s, want %s", ErrExtrinsicHashMismatch, blk.Header.ExtrinsicHash, extHash)
	}

	ov := state.NewOverlay(base)
	if err := stf.Run(im.stages, ov, blk, im.Cfg); err != nil {
		im.Log.Warn("block import failed", "slot", blk.Header.Slot, "err", err)
		return nil, types.Hash{}, fmt.Errorf("chain: import block at slot %d: %w", blk.Header.Slot, err)
	}

	reportedHashes := make([]types.Hash, 0, len(blk.Extrinsic.Guarantees))
	for _, g := range blk.Extrinsic.Guarantees {
		reportedHashes = append(reportedHashes, g.Report.PackageHash)
	}

	accumulateRoot := types.Hash{}
	if im.accumulation != nil {
		accumulateRoot = im.accumulation.LastRoot
	}

	headerHash := blk.Header.Hash()
	prevMMR := lastMMR(ov.Beta())
	entry := state.RecentBlockEntry{
		HeaderHash:      headerHash,
		ParentStateRoot: blk.Header.ParentStateRoot,
		ReportedHashes:  reportedHashes,
		AccumulateMMR:   mmrAppend(prevMMR, im.leafCount, accumulateRoot),
	}
	im.leafCount++

	beta := append(append([]state.RecentBlockEntry(nil), ov.Beta()...), entry)
	if uint32(len(beta)) > im.Cfg.MaxRecentBlocks {
		beta = beta[uint32(len(beta))-im.Cfg.MaxRecentBlocks:]
	}
	ov.SetBeta(beta)

	newState := ov.Commit()
	root := dictionary.Root(dictionary.Serialize(newState))
	im.Log.Info("block imported", "slot", blk.Header.Slot, "root", root.String())
	return newState, root, nil
}

// lastMMR returns the previous block's accumulate-root MMR peaks, or nil
// if β is empty (genesis import).
func lastMMR(beta []state.RecentBlockEntry) []types.Hash {
	if len(beta) == 0 {
		return nil
	}
	return beta[len(beta)-1].AccumulateMMR
}

// mmrAppend extends a Merkle-Mountain-Range's peak list with one new leaf
// using Keccak-256, merging trailing peaks whenever the updated leaf count
// carries in binary — the standard MMR "peak bagging" append (spec.md §4.7
// step 4: "extend the MMR by the accumulate root using Keccak-256").
func mmrAppend(peaks []types.Hash, leafCount uint64, leaf types.Hash) []types.Hash {
	newPeaks := append(append([]types.Hash(nil), peaks...), leaf)
	n := leafCount + 1
	for n&1 == 0 && len(newPeaks) >= 2 {
		last := len(newPeaks) - 1
		merged := crypto.Keccak256(newPeaks[last-1][:], newPeaks[last][:])
		newPeaks = append(newPeaks[:last-1], merged)
		n >>= 1
	}
	return newPeaks
}
