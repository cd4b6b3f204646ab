package stf

import (
	"testing"

	"github.com/jamcore/jamcore/block"
	"github.com/jamcore/jamcore/config"
	"github.com/jamcore/jamcore/state"
	"github.com/jamcore/jamcore/stats"
)

func TestPipelineRunsAllSevenStagesInOrder(t *testing.T) {
	stages := Pipeline(testLogger(), stats.NewCollector())
	if len(stages) != 7 {
		t.Fatalf("expected 7 stages, got %d", len(stages))
	}
	wantOrder := []string{"disputes", "safrole", "assurances", "reports", "preimages", "accumulation", "statistics"}
	for i, want := range wantOrder {
		if stages[i].Name() != want {
			t.Fatalf("stage %d: got %q, want %q", i, stages[i].Name(), want)
		}
	}
}

func TestRunAppliesEmptyBlockWithoutError(t *testing.T) {
	cfg := config.Tiny()
	base := state.NewEmpty(cfg)
	base.Kappa = validatorSet(6)
	ov := state.NewOverlay(base)

	blk := &block.Block{Header: block.Header{Slot: 1}}
	stages := PipelineWithVerifiers(testLogger(), stats.NewCollector(), acceptVrf{}, acceptRing{})
	if err := Run(stages, ov, blk, cfg); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestRunStopsAtFirstError(t *testing.T) {
	cfg := config.Tiny()
	base := state.NewEmpty(cfg)
	base.Kappa = validatorSet(6)
	ov := state.NewOverlay(base)

	blk := &block.Block{Header: block.Header{Slot: 1}, Extrinsic: block.Extrinsic{Guarantees: []block.Guarantee{
		{Report: state.WorkReport{Core: 99}},
	}}}
	stages := PipelineWithVerifiers(testLogger(), stats.NewCollector(), acceptVrf{}, acceptRing{})
	if err := Run(stages, ov, blk, cfg); err == nil {
		t.Fatalf("expected error from ReportsStage, got nil")
	}
}
