package stf

import (
	"fmt"

	"github.com/jamcore/jamcore/block"
	"github.com/jamcore/jamcore/config"
	"github.com/jamcore/jamcore/crypto"
	"github.com/jamcore/jamcore/log"
	"github.com/jamcore/jamcore/state"
	"github.com/jamcore/jamcore/types"
)

// minGuarantorSignatures is the number of guarantor signatures a report
// must carry to enter ρ, regardless of validator set size.
const minGuarantorSignatures = 2

// ReportsStage admits each block's guarantees into ρ: one core may have at
// most one pending report at a time, every guarantor signature must
// verify, the report's slot must fall inside the admissible reporting
// window, its authorizer must be in the core's authorization pool, its
// anchor must name a block in recent history, it must not duplicate an
// already-accumulated work-package hash, and every prerequisite hash must
// already be in the accumulated-package record. Grounded on the teacher's
// block-body transaction-admission checks (core/tx_pool.go validateTx
// shape).
type ReportsStage struct {
	Log *log.Logger
}

func (s *ReportsStage) Name() string { return "reports" }

func (s *ReportsStage) Apply(ov *state.Overlay, blk *block.Block, cfg *config.Config) error {
	kappa := ov.Kappa()
	rho := ov.MutRho()
	alpha := ov.Alpha()
	beta := ov.Beta()

	for _, g := range blk.Extrinsic.Guarantees {
		if uint32(g.Report.Core) >= cfg.CoreCount {
			return fmt.Errorf("%w: core %d", ErrUnknownCore, g.Report.Core)
		}
		if _, busy := rho[g.Report.Core]; busy {
			return fmt.Errorf("%w: core %d", ErrReportAlreadyPending, g.Report.Core)
		}

		if g.Slot > blk.Header.Slot || blk.Header.Slot-g.Slot > types.TimeSlot(cfg.ReportTimeoutSlots) {
			return fmt.Errorf("%w: report slot %d block slot %d", ErrAvailabilityTimeout, g.Slot, blk.Header.Slot)
		}
		if !containsHash(alpha[g.Report.Core], g.Report.Authorizer) {
			return fmt.Errorf("%w: %x", ErrUnknownAuthorizer, g.Report.Authorizer[:])
		}
		if !anchorKnown(beta, g.Report.AnchorBlock) {
			return fmt.Errorf("%w: %x", ErrUnknownAnchor, g.Report.AnchorBlock[:])
		}
		if alreadyAccumulated(ov.Xi(), g.Report.PackageHash) {
			return fmt.Errorf("%w: %x", ErrReportAlreadyInXi, g.Report.PackageHash[:])
		}

		if len(g.Signatures) < minGuarantorSignatures {
			return fmt.Errorf("%w: core %d has %d signatures", ErrInsufficientGuarantors, g.Report.Core, len(g.Signatures))
		}
		if err := verifyGuarantors(kappa, g); err != nil {
			return err
		}
		if !s.prerequisitesSatisfied(ov, g.Report) {
			return fmt.Errorf("%w: report %x", ErrUnmetPrerequisite, g.Report.PackageHash[:])
		}

		rho[g.Report.Core] = &state.PendingReport{
			Report:       g.Report,
			Timeout:      g.Slot + types.TimeSlot(cfg.ReportTimeoutSlots),
			Availability: state.NewBitfield(len(kappa)),
		}
		s.Log.Debug("report admitted", "core", g.Report.Core, "report", g.Report.PackageHash.String())
	}
	return nil
}

// verifyGuarantors checks every signature's validator index is in range,
// indices are sorted and unique, and each signature verifies against its
// claimed validator's ed25519 key over the report hash — the same message
// a disputes-stage culprit later surrenders to prove authorship.
func verifyGuarantors(kappa []types.ValidatorKeys, g block.Guarantee) error {
	for i, sig := range g.Signatures {
		if int(sig.ValidatorIndex) >= len(kappa) {
			return fmt.Errorf("%w: index %d", ErrBadValidatorIndex, sig.ValidatorIndex)
		}
		if i > 0 && g.Signatures[i-1].ValidatorIndex >= sig.ValidatorIndex {
			return fmt.Errorf("%w: index %d", ErrBadGuarantorKey, sig.ValidatorIndex)
		}
		msg := guaranteeMessage(g.Report.PackageHash)
		if !crypto.Ed25519Verify(kappa[sig.ValidatorIndex].Ed25519, msg, sig.Signature) {
			return fmt.Errorf("%w: validator %d", ErrBadGuarantorKey, sig.ValidatorIndex)
		}
	}
	return nil
}

func containsHash(hashes []types.Hash, want types.Hash) bool {
	for _, h := range hashes {
		if h == want {
			return true
		}
	}
	return false
}

func anchorKnown(beta []state.RecentBlockEntry, anchor types.Hash) bool {
	for _, entry := range beta {
		if entry.HeaderHash == anchor {
			return true
		}
	}
	return false
}

func alreadyAccumulated(xi [][]types.Hash, hash types.Hash) bool {
	for _, ring := range xi {
		for _, h := range ring {
			if h == hash {
				return true
			}
		}
	}
	return false
}

// prerequisitesSatisfied reports whether every hash g.Prerequisites names
// has already appeared in some ring slot of ξ (i.e. was accumulated in a
// previous epoch or earlier in this one).
func (s *ReportsStage) prerequisitesSatisfied(ov *state.Overlay, r state.WorkReport) bool {
	if len(r.Prerequisites) == 0 {
		return true
	}
	for _, want := range r.Prerequisites {
		if !alreadyAccumulated(ov.Xi(), want) {
			return false
		}
	}
	return true
}
