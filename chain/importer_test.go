package chain

import (
	"log/slog"
	"testing"

	"github.com/jamcore/jamcore/block"
	"github.com/jamcore/jamcore/config"
	"github.com/jamcore/jamcore/log"
	"github.com/jamcore/jamcore/state"
	"github.com/jamcore/jamcore/state/dictionary"
	"github.com/jamcore/jamcore/stats"
	"github.com/jamcore/jamcore/types"
)

func testLogger() *log.Logger { return log.New(slog.LevelError) }

func validators(n int) []types.ValidatorKeys {
	out := make([]types.ValidatorKeys, n)
	for i := range out {
		out[i].Ed25519[0] = byte(i + 1)
	}
	return out
}

// acceptVrf and acceptRing are permissive test doubles standing in for
// real Bandersnatch verification, letting importer tests exercise
// parent-linkage and β-bookkeeping without constructing signed fixtures.
type acceptVrf struct{}

func (acceptVrf) Verify(types.BandersnatchKey, []byte, types.BandersnatchVrfSignature) (bool, types.Hash) {
	return true, types.Hash{}
}

type acceptRing struct{}

func (acceptRing) Verify(types.Hash, []byte, types.BandersnatchRingSignature) bool { return true }

func TestImporterAppliesGenesisBlock(t *testing.T) {
	cfg := config.Tiny()
	base := state.NewEmpty(cfg)
	base.Kappa = validators(6)
	baseRoot := dictionary.Root(dictionary.Serialize(base))

	im := NewImporter(cfg, testLogger(), stats.NewCollector())
	im.SetVerifiers(acceptVrf{}, acceptRing{})
	blk := &block.Block{Header: block.Header{
		ParentHash:      types.Hash{},
		ParentStateRoot: baseRoot,
		Slot:            1,
	}}
	blk.Header.ExtrinsicHash = blk.Extrinsic.Hash()

	newState, root, err := im.Import(base, types.Hash{}, blk)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if root.IsZero() {
		t.Fatalf("expected non-zero post-state root")
	}
	if len(newState.Beta) != 1 {
		t.Fatalf("expected 1 β entry after genesis import, got %d", len(newState.Beta))
	}
	if newState.Tau != 1 {
		t.Fatalf("expected Tau=1 after import, got %d", newState.Tau)
	}
	if base.Tau != 0 {
		t.Fatalf("expected base state untouched, got Tau=%d", base.Tau)
	}
}

func TestImporterRejectsBadParentStateRoot(t *testing.T) {
	cfg := config.Tiny()
	base := state.NewEmpty(cfg)
	base.Kappa = validators(6)

	im := NewImporter(cfg, testLogger(), stats.NewCollector())
	blk := &block.Block{Header: block.Header{Slot: 1, ParentStateRoot: types.Hash{0xFF}}}

	blk.Header.ExtrinsicHash = blk.Extrinsic.Hash()
	_, _, err := im.Import(base, types.Hash{}, blk)
	if err == nil {
		t.Fatalf("expected ErrPreStateRootMismatch, got nil")
	}
}

func TestImporterRejectsBadParentHash(t *testing.T) {
	cfg := config.Tiny()
	base := state.NewEmpty(cfg)
	im := NewImporter(cfg, testLogger(), stats.NewCollector())
	blk := &block.Block{Header: block.Header{Slot: 1, ParentHash: types.Hash{1}}}
	blk.Header.ExtrinsicHash = blk.Extrinsic.Hash()

	_, _, err := im.Import(base, types.Hash{}, blk)
	if err == nil {
		t.Fatalf("expected ErrParentMismatch, got nil")
	}
}

func TestImporterBoundsBeta(t *testing.T) {
	cfg := config.Tiny() // MaxRecentBlocks=4
	base := state.NewEmpty(cfg)
	base.Kappa = validators(6)
	im := NewImporter(cfg, testLogger(), stats.NewCollector())
	im.SetVerifiers(acceptVrf{}, acceptRing{})

	tip := types.Hash{}
	cur := base
	for i := uint32(1); i <= 6; i++ {
		root := dictionary.Root(dictionary.Serialize(cur))
		blk := &block.Block{Header: block.Header{ParentHash: tip, ParentStateRoot: root, Slot: types.TimeSlot(i)}}
		blk.Header.ExtrinsicHash = blk.Extrinsic.Hash()
		next, _, err := im.Import(cur, tip, blk)
		if err != nil {
			t.Fatalf("Import block %d: %v", i, err)
		}
		tip = blk.Header.Hash()
		cur = next
	}
	if uint32(len(cur.Beta)) != cfg.MaxRecentBlocks {
		t.Fatalf("expected β bounded to %d, got %d", cfg.MaxRecentBlocks, len(cur.Beta))
	}
}

func TestImporterNoOpBlockRejectedLeavesBaseUnchanged(t *testing.T) {
	cfg := config.Tiny()
	base := state.NewEmpty(cfg)
	baseRoot := dictionary.Root(dictionary.Serialize(base))
	im := NewImporter(cfg, testLogger(), stats.NewCollector())

	blk := &block.Block{Header: block.Header{ParentStateRoot: baseRoot, Slot: 1}, Extrinsic: block.Extrinsic{
		Guarantees: []block.Guarantee{{Report: state.WorkReport{Core: 99}}},
	}}
	blk.Header.ExtrinsicHash = blk.Extrinsic.Hash()
	_, _, err := im.Import(base, types.Hash{}, blk)
	if err == nil {
		t.Fatalf("expected import to be aborted by a stage, got nil")
	}
	if dictionary.Root(dictionary.Serialize(base)) != baseRoot {
		t.Fatalf("expected base state untouched after rejected block")
	}
}
