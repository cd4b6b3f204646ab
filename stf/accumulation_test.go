package stf

import (
	"testing"

	"github.com/jamcore/jamcore/block"
	"github.com/jamcore/jamcore/config"
	"github.com/jamcore/jamcore/pvm"
	"github.com/jamcore/jamcore/state"
	"github.com/jamcore/jamcore/stats"
	"github.com/jamcore/jamcore/types"
)

func TestAccumulationStageChargesGasAndUpdatesXi(t *testing.T) {
	cfg := config.Tiny() // MaxAccumulateGasPerBlock=1_000_000, AccumulatedRingSize=3, EpochLength=12
	base := state.NewEmpty(cfg)
	acc := state.NewServiceAccount()
	acc.MinGasAccumulate = 10
	base.Delta[1] = acc
	report := state.WorkReport{ServiceId: 1, PackageHash: types.Hash{4}, GasRatioNum: 100, GasRatioDen: 1}
	base.Theta[5] = []state.WorkReport{report}
	ov := state.NewOverlay(base)

	blk := &block.Block{Header: block.Header{Slot: 5}}
	metrics := stats.NewCollector()
	stage := &AccumulationStage{Log: testLogger(), Metrics: metrics}
	if err := stage.Apply(ov, blk, cfg); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	svcStats := ov.Pi().Services[1]
	if svcStats.GasUsed != 100 || svcStats.AccumulateInvocations != 1 {
		t.Fatalf("unexpected service stats: %+v", svcStats)
	}
	ringIndex := uint64(cfg.EpochOf(5)) % uint64(len(ov.Xi()))
	ring := ov.Xi()[ringIndex]
	found := false
	for _, h := range ring {
		if h == (types.Hash{4}) {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected package hash folded into ring %d, got %v", ringIndex, ring)
	}
	if len(ov.Theta()[5]) != 0 {
		t.Fatalf("expected Theta[5] cleared after accumulation")
	}
	if metrics.Counter("accumulate_invocations_total", map[string]string{"service": "1"}) != 1 {
		t.Fatalf("expected metrics counter incremented")
	}
}

func TestAccumulationStageRejectsUnknownService(t *testing.T) {
	cfg := config.Tiny()
	base := state.NewEmpty(cfg)
	base.Theta[1] = []state.WorkReport{{ServiceId: 99}}
	ov := state.NewOverlay(base)

	blk := &block.Block{Header: block.Header{Slot: 1}}
	stage := &AccumulationStage{Log: testLogger()}
	if err := stage.Apply(ov, blk, cfg); err == nil {
		t.Fatalf("expected ErrServiceNotFound, got nil")
	}
}

func TestAccumulationStageRejectsGasExhaustion(t *testing.T) {
	cfg := config.Tiny()
	base := state.NewEmpty(cfg)
	acc := state.NewServiceAccount()
	base.Delta[1] = acc
	base.Theta[1] = []state.WorkReport{{ServiceId: 1, GasRatioNum: cfg.MaxAccumulateGasPerBlock + 1, GasRatioDen: 1}}
	ov := state.NewOverlay(base)

	blk := &block.Block{Header: block.Header{Slot: 1}}
	stage := &AccumulationStage{Log: testLogger()}
	if err := stage.Apply(ov, blk, cfg); err == nil {
		t.Fatalf("expected ErrOutOfGas, got nil")
	}
}

func TestAccumulationStageNoOpWhenThetaEmpty(t *testing.T) {
	cfg := config.Tiny()
	base := state.NewEmpty(cfg)
	ov := state.NewOverlay(base)

	blk := &block.Block{Header: block.Header{Slot: 1}}
	stage := &AccumulationStage{Log: testLogger()}
	if err := stage.Apply(ov, blk, cfg); err != nil {
		t.Fatalf("Apply: %v", err)
	}
}

func TestAccumulationStageRunsPvmProgramForCodedService(t *testing.T) {
	cfg := config.Tiny()
	base := state.NewEmpty(cfg)
	acc := state.NewServiceAccount()
	codeHash := types.Hash{0x55}
	acc.CodeHash = codeHash
	program := make([]byte, accumulateEntryPoint+1)
	program[accumulateEntryPoint] = pvm.OpcodeHalt
	acc.Preimages[codeHash] = program
	base.Delta[1] = acc
	base.Theta[1] = []state.WorkReport{{ServiceId: 1, PackageHash: types.Hash{9}, GasRatioNum: 50, GasRatioDen: 1}}
	ov := state.NewOverlay(base)

	blk := &block.Block{Header: block.Header{Slot: 1}}
	stage := &AccumulationStage{Log: testLogger()}
	if err := stage.Apply(ov, blk, cfg); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if stage.LastRoot == (types.Hash{}) {
		t.Fatalf("expected non-zero LastRoot after accumulating a package hash")
	}
}

func TestAccumulationStageRejectsMissingCode(t *testing.T) {
	cfg := config.Tiny()
	base := state.NewEmpty(cfg)
	acc := state.NewServiceAccount()
	acc.CodeHash = types.Hash{0x66} // no matching entry in Preimages
	base.Delta[1] = acc
	base.Theta[1] = []state.WorkReport{{ServiceId: 1, PackageHash: types.Hash{10}}}
	ov := state.NewOverlay(base)

	blk := &block.Block{Header: block.Header{Slot: 1}}
	stage := &AccumulationStage{Log: testLogger()}
	if err := stage.Apply(ov, blk, cfg); err == nil {
		t.Fatalf("expected ErrServiceCodeUnavailable, got nil")
	}
}

func TestAccumulationStageRejectsPanickingProgram(t *testing.T) {
	cfg := config.Tiny()
	base := state.NewEmpty(cfg)
	acc := state.NewServiceAccount()
	codeHash := types.Hash{0x77}
	acc.CodeHash = codeHash
	program := make([]byte, accumulateEntryPoint+1)
	program[accumulateEntryPoint] = 0xFF // ClassOneRegOneExtImm needs 9 operand bytes: none follow, a decode failure
	acc.Preimages[codeHash] = program
	base.Delta[1] = acc
	base.Theta[1] = []state.WorkReport{{ServiceId: 1, PackageHash: types.Hash{11}}}
	ov := state.NewOverlay(base)

	blk := &block.Block{Header: block.Header{Slot: 1}}
	stage := &AccumulationStage{Log: testLogger()}
	if err := stage.Apply(ov, blk, cfg); err == nil {
		t.Fatalf("expected ErrPvmPanic, got nil")
	}
}

func TestAccumulationStageAppliesDeferredTransferCredit(t *testing.T) {
	cfg := config.Tiny()
	base := state.NewEmpty(cfg)
	base.Delta[2] = state.NewServiceAccount()
	ov := state.NewOverlay(base)

	stage := &AccumulationStage{Log: testLogger()}
	stage.applyTransfer(ov, pvm.DeferredTransfer{From: 1, To: 2, Amount: 75, Gas: 0})

	dest, _ := ov.Service(2)
	if dest.Balance != 75 {
		t.Fatalf("dest balance = %d, want 75", dest.Balance)
	}
}

func TestAccumulationStageWithholdsCreditOnTransferPanic(t *testing.T) {
	cfg := config.Tiny()
	base := state.NewEmpty(cfg)
	dest := state.NewServiceAccount()
	codeHash := types.Hash{0x88}
	dest.CodeHash = codeHash
	program := make([]byte, onTransferEntryPoint+1)
	program[onTransferEntryPoint] = 0xFF // malformed instruction, forces a panic exit
	dest.Preimages[codeHash] = program
	base.Delta[2] = dest
	ov := state.NewOverlay(base)

	stage := &AccumulationStage{Log: testLogger()}
	stage.applyTransfer(ov, pvm.DeferredTransfer{From: 1, To: 2, Amount: 75, Gas: 1000})

	got, _ := ov.Service(2)
	if got.Balance != 0 {
		t.Fatalf("dest balance = %d, want 0 (credit withheld on panic)", got.Balance)
	}
}

func TestAccumulationStageCreditsAfterSuccessfulOnTransfer(t *testing.T) {
	cfg := config.Tiny()
	base := state.NewEmpty(cfg)
	dest := state.NewServiceAccount()
	codeHash := types.Hash{0x99}
	dest.CodeHash = codeHash
	program := make([]byte, onTransferEntryPoint+1)
	program[onTransferEntryPoint] = pvm.OpcodeHalt
	dest.Preimages[codeHash] = program
	base.Delta[2] = dest
	ov := state.NewOverlay(base)

	stage := &AccumulationStage{Log: testLogger()}
	stage.applyTransfer(ov, pvm.DeferredTransfer{From: 1, To: 2, Amount: 75, Gas: 1000})

	got, _ := ov.Service(2)
	if got.Balance != 75 {
		t.Fatalf("dest balance = %d, want 75", got.Balance)
	}
}
