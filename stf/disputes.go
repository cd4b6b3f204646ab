package stf

import (
	"bytes"
	"fmt"

	"github.com/jamcore/jamcore/block"
	"github.com/jamcore/jamcore/config"
	"github.com/jamcore/jamcore/crypto"
	"github.com/jamcore/jamcore/log"
	"github.com/jamcore/jamcore/state"
	"github.com/jamcore/jamcore/types"
)

var (
	validVoteTag   = []byte("jam_valid")
	invalidVoteTag = []byte("jam_invalid")
)

// DisputesStage classifies each submitted verdict's report hash as Good,
// Bad, or Wonky by tallying its votes against the super-majority
// threshold, verifying every vote/culprit/fault signature against the
// signer set active in the verdict's age, and records offenders in the
// global offender set. Grounded on the teacher's fork-choice
// justification-tallying pattern (consensus/attestation.go).
type DisputesStage struct {
	Log *log.Logger
}

func (s *DisputesStage) Name() string { return "disputes" }

func (s *DisputesStage) Apply(ov *state.Overlay, blk *block.Block, cfg *config.Config) error {
	if len(blk.Extrinsic.Disputes) == 0 {
		return nil
	}
	psi := ov.MutPsi()

	if !verdictsSortedUnique(blk.Extrinsic.Disputes) {
		return ErrVerdictsNotSortedUnique
	}

	currentEpoch := cfg.EpochOf(uint32(blk.Header.Slot))

	for _, verdict := range blk.Extrinsic.Disputes {
		if s.alreadyClassified(psi, verdict.ReportHash) {
			return fmt.Errorf("%w: %x", ErrAlreadyJudged, verdict.ReportHash[:])
		}
		if !votesSortedUnique(verdict.Votes) {
			return ErrJudgementsNotSortedUnique
		}

		var signers []types.ValidatorKeys
		switch verdict.Age {
		case currentEpoch:
			signers = ov.Kappa()
		case currentEpoch - 1:
			signers = ov.Lambda()
		default:
			return fmt.Errorf("%w: age %d current %d", ErrBadJudgementAge, verdict.Age, currentEpoch)
		}

		validVotes, invalidVotes := uint32(0), uint32(0)
		for _, vote := range verdict.Votes {
			if int(vote.ValidatorIndex) >= len(signers) {
				return fmt.Errorf("%w: index %d", ErrBadValidatorIndex, vote.ValidatorIndex)
			}
			msg := voteMessage(verdict.ReportHash, vote.Valid)
			if !crypto.Ed25519Verify(signers[vote.ValidatorIndex].Ed25519, msg, vote.Signature) {
				return fmt.Errorf("%w: validator %d", ErrBadSignature, vote.ValidatorIndex)
			}
			if vote.Valid {
				validVotes++
			} else {
				invalidVotes++
			}
		}

		threshold := cfg.SuperMajorityCount()
		switch {
		case validVotes >= threshold:
			if len(verdict.Culprits) > 0 {
				return ErrCulpritsVerdictNotBad
			}
			if err := s.applyFaults(psi, verdict); err != nil {
				return err
			}
			psi.Good[verdict.ReportHash] = struct{}{}
		case invalidVotes >= threshold:
			if len(verdict.Faults) > 0 {
				return ErrFaultVerdictWrong
			}
			if err := s.applyCulprits(psi, verdict); err != nil {
				return err
			}
			psi.Bad[verdict.ReportHash] = struct{}{}
			clearPendingReport(ov, verdict.ReportHash)
		case validVotes == invalidVotes:
			if len(verdict.Culprits) > 0 {
				return ErrCulpritsVerdictNotBad
			}
			if len(verdict.Faults) > 0 {
				return ErrFaultVerdictWrong
			}
			psi.Wonky[verdict.ReportHash] = struct{}{}
		default:
			return ErrBadVoteSplit
		}
		s.Log.Debug("verdict classified", "report", verdict.ReportHash.String(), "valid", validVotes, "invalid", invalidVotes)
	}
	if !psi.Disjoint() {
		return fmt.Errorf("stf: disputes invariant violated: verdict sets not disjoint")
	}
	return nil
}

// applyCulprits verifies and records the guarantors who signed the report
// that the super-majority just judged Bad, surrendering their keys as
// offenders. A Bad verdict must carry at least one culprit.
func (s *DisputesStage) applyCulprits(psi *state.DisputesState, verdict block.DisputeVerdict) error {
	if len(verdict.Culprits) < 1 {
		return ErrNotEnoughCulprits
	}
	if !culpritsSortedUnique(verdict.Culprits) {
		return ErrCulpritsNotSortedUnique
	}
	for _, c := range verdict.Culprits {
		msg := guaranteeMessage(verdict.ReportHash)
		if !crypto.Ed25519Verify(c.Key, msg, c.Signature) {
			return fmt.Errorf("%w: culprit %x", ErrBadSignature, c.Key[:])
		}
		if _, reported := psi.Offenders[c.Key]; reported {
			return fmt.Errorf("%w: %x", ErrOffenderAlreadyReported, c.Key[:])
		}
		psi.Offenders[c.Key] = struct{}{}
	}
	return nil
}

// applyFaults verifies and records validators who signed an Invalid
// judgement against a report the super-majority judged Good. A Good
// verdict must carry at least two dissenting faults.
func (s *DisputesStage) applyFaults(psi *state.DisputesState, verdict block.DisputeVerdict) error {
	if len(verdict.Faults) < 2 {
		return ErrNotEnoughFaults
	}
	if !faultsSortedUnique(verdict.Faults) {
		return ErrFaultsNotSortedUnique
	}
	for _, f := range verdict.Faults {
		msg := voteMessage(verdict.ReportHash, false)
		if !crypto.Ed25519Verify(f.Key, msg, f.Signature) {
			return fmt.Errorf("%w: fault %x", ErrBadSignature, f.Key[:])
		}
		if _, reported := psi.Offenders[f.Key]; reported {
			return fmt.Errorf("%w: %x", ErrOffenderAlreadyReported, f.Key[:])
		}
		psi.Offenders[f.Key] = struct{}{}
	}
	return nil
}

func (s *DisputesStage) alreadyClassified(psi *state.DisputesState, hash types.Hash) bool {
	_, g := psi.Good[hash]
	_, b := psi.Bad[hash]
	_, w := psi.Wonky[hash]
	return g || b || w
}

// voteMessage is the message a validator's dispute judgement signs: a
// domain tag distinguishing a Valid from an Invalid vote, followed by the
// report hash being judged.
func voteMessage(reportHash types.Hash, valid bool) []byte {
	tag := invalidVoteTag
	if valid {
		tag = validVoteTag
	}
	msg := make([]byte, 0, len(tag)+len(reportHash))
	msg = append(msg, tag...)
	msg = append(msg, reportHash[:]...)
	return msg
}

// guaranteeMessage is the message a culprit's surrendered signature
// verifies against: the original guarantee signature's message shape,
// reused here as proof the culprit is the one who reported the now-bad
// work report.
func guaranteeMessage(reportHash types.Hash) []byte {
	msg := make([]byte, 0, len(reportHash))
	msg = append(msg, reportHash[:]...)
	return msg
}

// clearPendingReport removes a core's pending report once its work
// report hash has been judged Bad, so a bad report does not linger
// blocking the core from accepting a fresh guarantee.
func clearPendingReport(ov *state.Overlay, reportHash types.Hash) {
	rho := ov.MutRho()
	for core, pending := range rho {
		if pending != nil && pending.Report.PackageHash == reportHash {
			delete(rho, core)
		}
	}
}

func verdictsSortedUnique(verdicts []block.DisputeVerdict) bool {
	for i := 1; i < len(verdicts); i++ {
		if !verdicts[i-1].ReportHash.Less(verdicts[i].ReportHash) {
			return false
		}
	}
	return true
}

func votesSortedUnique(votes []block.DisputeVote) bool {
	for i := 1; i < len(votes); i++ {
		if votes[i-1].ValidatorIndex >= votes[i].ValidatorIndex {
			return false
		}
	}
	return true
}

func culpritsSortedUnique(culprits []block.Culprit) bool {
	for i := 1; i < len(culprits); i++ {
		if bytes.Compare(culprits[i-1].Key[:], culprits[i].Key[:]) >= 0 {
			return false
		}
	}
	return true
}

func faultsSortedUnique(faults []block.Fault) bool {
	for i := 1; i < len(faults); i++ {
		if bytes.Compare(faults[i-1].Key[:], faults[i].Key[:]) >= 0 {
			return false
		}
	}
	return true
}
