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

var assuranceTag = []byte("jam_available")

// AssurancesStage verifies each assurance's signature and anchor, folds
// its availability bitfield into the pending reports' accumulated
// assurance counts, promotes any report that crosses the availability
// threshold into θ (ready to accumulate), and drops any report whose
// timeout has elapsed without enough assurances. Grounded on the
// teacher's attestation-aggregation bitlist accumulation
// (consensus/attestation.go).
type AssurancesStage struct {
	Log *log.Logger
}

func (s *AssurancesStage) Name() string { return "assurances" }

func (s *AssurancesStage) Apply(ov *state.Overlay, blk *block.Block, cfg *config.Config) error {
	kappa := ov.Kappa()
	seen := make(map[types.ValidatorIndex]struct{}, len(blk.Extrinsic.Assurances))

	rho := ov.MutRho()
	for _, a := range blk.Extrinsic.Assurances {
		if int(a.ValidatorIndex) >= len(kappa) {
			return fmt.Errorf("%w: index %d", ErrBadValidatorIndex, a.ValidatorIndex)
		}
		if _, dup := seen[a.ValidatorIndex]; dup {
			return fmt.Errorf("%w: validator %d", ErrBadAuditorKey, a.ValidatorIndex)
		}
		seen[a.ValidatorIndex] = struct{}{}

		if a.Anchor != blk.Header.ParentHash {
			return fmt.Errorf("%w: %x", ErrUnknownAnchor, a.Anchor[:])
		}

		bf := a.Bitfield
		if len(bf) != (int(cfg.CoreCount)+7)/8 {
			return fmt.Errorf("%w: got %d bytes, want %d", ErrAssuranceBadBitfield, len(bf), (int(cfg.CoreCount)+7)/8)
		}

		msg := make([]byte, 0, len(assuranceTag)+len(a.Anchor)+len(bf))
		msg = append(msg, assuranceTag...)
		msg = append(msg, a.Anchor[:]...)
		msg = append(msg, bf...)
		if !crypto.Ed25519Verify(kappa[a.ValidatorIndex].Ed25519, msg, a.Signature) {
			return fmt.Errorf("%w: validator %d", ErrBadAuditorKey, a.ValidatorIndex)
		}

		for core := types.CoreIndex(0); int(core) < int(cfg.CoreCount); core++ {
			if !bf.Get(int(core)) {
				continue
			}
			pending, ok := rho[core]
			if !ok {
				continue
			}
			pending.Availability.Set(int(a.ValidatorIndex))
		}
	}

	threshold := int(cfg.AvailabilityThresholdCount())
	theta := ov.MutTheta()
	for core, pending := range rho {
		switch {
		case pending.Availability.Count() >= threshold:
			theta[blk.Header.Slot] = append(theta[blk.Header.Slot], pending.Report)
			delete(rho, core)
			s.Log.Debug("report became available", "core", core, "report", pending.Report.PackageHash.String())
		case blk.Header.Slot > pending.Timeout:
			delete(rho, core)
			s.Log.Debug("report timed out", "core", core, "report", pending.Report.PackageHash.String())
		}
	}
	return nil
}
