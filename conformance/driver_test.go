package conformance

import (
	"log/slog"
	"testing"

	"github.com/jamcore/jamcore/block"
	"github.com/jamcore/jamcore/chain"
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
// real Bandersnatch verification, letting driver tests exercise the
// conformance comparison itself without constructing signed fixtures.
type acceptVrf struct{}

func (acceptVrf) Verify(types.BandersnatchKey, []byte, types.BandersnatchVrfSignature) (bool, types.Hash) {
	return true, types.Hash{}
}

type acceptRing struct{}

func (acceptRing) Verify(types.Hash, []byte, types.BandersnatchRingSignature) bool { return true }

func TestDriverRunPassesOnMatchingVector(t *testing.T) {
	cfg := config.Tiny()
	pre := state.NewEmpty(cfg)
	pre.Kappa = validators(6)
	preDict := dictionary.Serialize(pre)
	preRoot := dictionary.Root(preDict)

	blk := &block.Block{Header: block.Header{ParentStateRoot: preRoot, Slot: 1}}
	blk.Header.ExtrinsicHash = blk.Extrinsic.Hash()
	d := NewDriver(cfg, testLogger(), stats.NewCollector())
	d.Vrf = acceptVrf{}
	d.Ring = acceptRing{}

	// First import for real, to learn the actual post-state dictionary the
	// vector should expect.
	im := chain.NewImporter(cfg, d.Log, d.Metrics)
	im.SetVerifiers(d.Vrf, d.Ring)
	post, _, err := im.Import(pre, types.Hash{}, blk)
	if err != nil {
		t.Fatalf("priming import: %v", err)
	}
	expectedDict := dictionary.Serialize(post)

	res, err := d.Run(Vector{
		Name:                  "genesis-block",
		TipHash:               types.Hash{},
		PreStateDict:          preDict,
		BlockBytes:            blk.Encode(),
		ExpectedPostStateDict: expectedDict,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !res.Passed {
		t.Fatalf("expected vector to pass, mismatches: %v", res.Mismatches)
	}
}

func TestDriverRunFailsOnWrongExpectedState(t *testing.T) {
	cfg := config.Tiny()
	pre := state.NewEmpty(cfg)
	pre.Kappa = validators(6)
	preDict := dictionary.Serialize(pre)
	preRoot := dictionary.Root(preDict)
	blk := &block.Block{Header: block.Header{ParentStateRoot: preRoot, Slot: 1}}
	blk.Header.ExtrinsicHash = blk.Extrinsic.Hash()
	d := NewDriver(cfg, testLogger(), stats.NewCollector())
	d.Vrf = acceptVrf{}
	d.Ring = acceptRing{}

	res, err := d.Run(Vector{
		Name:                  "bad-expectation",
		TipHash:               types.Hash{},
		PreStateDict:          preDict,
		BlockBytes:            blk.Encode(),
		ExpectedPostStateDict: preDict, // wrong: Tau advances to 1, root must change
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Passed {
		t.Fatalf("expected vector to fail since Tau changed but expected dict is the pre-state")
	}
}

func TestDriverRunDetectsNoOpRejection(t *testing.T) {
	cfg := config.Tiny()
	pre := state.NewEmpty(cfg)
	preDict := dictionary.Serialize(pre)
	preRoot := dictionary.Root(preDict)

	blk := &block.Block{Header: block.Header{ParentStateRoot: preRoot, Slot: 1}, Extrinsic: block.Extrinsic{
		Guarantees: []block.Guarantee{{Report: state.WorkReport{Core: 99}}},
	}}
	blk.Header.ExtrinsicHash = blk.Extrinsic.Hash()
	d := NewDriver(cfg, testLogger(), stats.NewCollector())

	res, err := d.Run(Vector{
		Name:                  "rejected-no-op",
		TipHash:               types.Hash{},
		PreStateDict:          preDict,
		BlockBytes:            blk.Encode(),
		ExpectedPostStateDict: preDict,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !res.Passed || !res.NoOpRejected {
		t.Fatalf("expected a passing no-op rejection, got %+v", res)
	}
}
