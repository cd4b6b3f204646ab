package stf

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/jamcore/jamcore/block"
	"github.com/jamcore/jamcore/config"
	"github.com/jamcore/jamcore/crypto"
	"github.com/jamcore/jamcore/log"
	"github.com/jamcore/jamcore/pvm"
	"github.com/jamcore/jamcore/state"
	"github.com/jamcore/jamcore/stats"
	"github.com/jamcore/jamcore/types"
)

// Entry points a service's PVM program is invoked at, per spec.md's fixed
// invocation-point numbering: 5 runs on report accumulation, 10 runs when a
// deferred transfer lands on the service.
const (
	accumulateEntryPoint uint32 = 5
	onTransferEntryPoint uint32 = 10
)

// Fixed PVM memory geometry for accumulate/on-transfer invocations. Real
// programs are small host-call-driven scripts (spec.md §4.5); there is no
// per-service configuration for these sizes.
const (
	pvmHeapInit  = 4096
	pvmStackSize = 4096
	pvmHeapLimit = 1 << 20
)

// AccumulationStage invokes each ready report's target service once,
// charging gas against the block's shared accumulation budget, runs the
// service's PVM program at the accumulate entry point, applies any balance
// transfers the program queued via the transfer host call, and folds the
// report's package hash into the current epoch's ring slot of ξ.
// Grounded on the teacher's gas-metered contract-call loop
// (core/state_transition.go TransitionDb); pvm.Run fills the role the EVM
// bytecode interpreter plays there, with the call-then-apply-transfers
// shape borrowed from the teacher's message-call/value-transfer split
// (core/vm/evm.go Call).
type AccumulationStage struct {
	Log     *log.Logger
	Metrics *stats.Collector

	// LastRoot is the Blake2b-256 hash of the package hashes accumulated by
	// the most recent Apply call, folded together with any roots services
	// yielded, for the importer to fold into β's per-block accumulate root.
	// Zero if the block accumulated nothing.
	LastRoot types.Hash
}

func (s *AccumulationStage) Name() string { return "accumulation" }

func (s *AccumulationStage) Apply(ov *state.Overlay, blk *block.Block, cfg *config.Config) error {
	s.LastRoot = types.Hash{}
	reports := ov.Theta()[blk.Header.Slot]
	if len(reports) == 0 {
		return nil
	}

	budget := cfg.MaxAccumulateGasPerBlock
	ring := ov.Xi()
	ringIndex := uint64(cfg.EpochOf(uint32(blk.Header.Slot))) % uint64(len(ring))
	ringHashes := append([]types.Hash(nil), ring[ringIndex]...)
	freshHashes := make([]types.Hash, 0, len(reports))
	var yieldedRoots []byte

	pi := ov.MutPi()
	for _, report := range reports {
		acc, ok := ov.Service(report.ServiceId)
		if !ok {
			return fmt.Errorf("%w: %d", ErrServiceNotFound, report.ServiceId)
		}
		cost := report.GasRatioNum
		if report.GasRatioDen > 0 {
			cost = report.GasRatioNum / report.GasRatioDen
		}
		if cost < uint64(acc.MinGasAccumulate) {
			cost = uint64(acc.MinGasAccumulate)
		}
		if cost > budget {
			return fmt.Errorf("%w: service %d needs %d, budget has %d", ErrOutOfGas, report.ServiceId, cost, budget)
		}
		budget -= cost

		transfers, yielded, err := s.runAccumulate(ov, report.ServiceId, cost)
		if err != nil {
			return err
		}
		for _, tr := range transfers {
			s.applyTransfer(ov, tr)
		}
		if yielded != nil {
			yieldedRoots = append(yieldedRoots, (*yielded)[:]...)
		}

		svcStats := pi.Services[report.ServiceId]
		svcStats.GasUsed += cost
		svcStats.AccumulateInvocations++
		pi.Services[report.ServiceId] = svcStats

		ringHashes = append(ringHashes, report.PackageHash)
		freshHashes = append(freshHashes, report.PackageHash)
		if s.Metrics != nil {
			tags := map[string]string{"service": fmt.Sprintf("%d", report.ServiceId)}
			s.Metrics.IncrCounter("accumulate_invocations_total", 1, tags)
			s.Metrics.IncrCounter("accumulate_gas_used_total", float64(cost), tags)
		}
		s.Log.Debug("accumulated report", "service", report.ServiceId, "gas", cost)
	}

	newRing := make([][]types.Hash, len(ring))
	copy(newRing, ring)
	newRing[ringIndex] = ringHashes
	ov.SetXi(newRing)

	theta := ov.MutTheta()
	delete(theta, blk.Header.Slot)

	flat := make([]byte, 0, len(freshHashes)*32+len(yieldedRoots))
	for _, h := range freshHashes {
		flat = append(flat, h[:]...)
	}
	flat = append(flat, yieldedRoots...)
	s.LastRoot = crypto.Blake2b256(flat)
	return nil
}

// runAccumulate invokes svc's program at the accumulate entry point with a
// gas meter seeded to gas. A service with no code configured (CodeHash is
// the zero hash) accumulates as a bookkeeping-only entry: it still pays gas
// and folds its package hash into ξ, it just has nothing to execute. A
// panicking invocation aborts the block, matching the teacher's
// all-or-nothing StateTransition commit.
func (s *AccumulationStage) runAccumulate(ov *state.Overlay, svc types.ServiceId, gas uint64) ([]pvm.DeferredTransfer, *types.Hash, error) {
	acc, _ := ov.Service(svc)
	if acc.CodeHash == (types.Hash{}) {
		return nil, nil, nil
	}
	program, ok := acc.Preimages[acc.CodeHash]
	if !ok {
		return nil, nil, fmt.Errorf("%w: service %d code %x", ErrServiceCodeUnavailable, svc, acc.CodeHash)
	}

	mem := pvm.NewMemory(program, make([]byte, pvmHeapInit), pvmStackSize, pvmHeapLimit)
	ctx := &pvm.Context{
		PC:  accumulateEntryPoint,
		Mem: mem,
		Gas: uint256.NewInt(gas),
	}
	ctx.ServiceId = svc
	ac := &pvm.AccumulateContext{Context: ctx, Overlay: ov}
	ctx.HostCalls = pvm.NewAccumulateDispatch(ac)

	out := pvm.Run(ctx, program)
	switch out.Reason {
	case pvm.ExitPanic:
		return nil, nil, fmt.Errorf("%w: service %d", ErrPvmPanic, svc)
	case pvm.ExitHostTrap:
		return nil, nil, fmt.Errorf("%w: service %d", ErrHostCallInvalid, svc)
	}
	return ac.Transfers, ac.YieldedRoot, nil
}

// applyTransfer runs a deferred transfer's destination at the on-transfer
// entry point (if it has code) and credits the amount only if that
// invocation did not panic; the sender was already debited when
// hostTransfer queued it. The on-transfer invocation runs against its own
// gas grant, outside the block's accumulation budget, and any further
// transfers it queues are not drained: spec.md's on-transfer host-call
// subset does not expose `transfer`.
func (s *AccumulationStage) applyTransfer(ov *state.Overlay, tr pvm.DeferredTransfer) {
	dest := ov.MutService(tr.To)
	codeHash := dest.CodeHash
	program, ok := dest.Preimages[codeHash]
	if codeHash == (types.Hash{}) || !ok {
		dest.Balance += tr.Amount
		return
	}

	mem := pvm.NewMemory(program, make([]byte, pvmHeapInit), pvmStackSize, pvmHeapLimit)
	ctx := &pvm.Context{
		PC:  onTransferEntryPoint,
		Mem: mem,
		Gas: uint256.NewInt(uint64(tr.Gas)),
	}
	ctx.ServiceId = tr.To
	tc := &pvm.TransferContext{Context: ctx, Overlay: ov}
	ctx.HostCalls = pvm.NewTransferDispatch(tc)
	out := pvm.Run(ctx, program)
	if out.Reason == pvm.ExitPanic {
		s.Log.Debug("on-transfer invocation panicked, credit withheld", "service", tr.To)
		return
	}
	dest.Balance += tr.Amount
}
