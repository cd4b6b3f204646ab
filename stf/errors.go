// Package stf implements the seven-stage state transition pipeline
// (spec.md §4.6): disputes, safrole, assurances, reports, preimages,
// accumulation, statistics, applied to an Overlay in that fixed order.
// Grounded on the teacher's per-phase StateTransition idiom
// (core/state_transition.go) and its Err... sentinel table
// (core/error_codes.go, core/vm/errors.go).
package stf

import "errors"

// Stage errors, spec.md §7's error taxonomy. Each stage returns one of
// these (wrapped with fmt.Errorf for detail) rather than a bare string, so
// the importer and conformance driver can switch on the sentinel. A few
// validation branches spec.md §4.6 requires but §7 doesn't name
// individually (authorizer-membership, ξ duplication, prerequisite
// ordering) get a local sentinel instead of overloading a taxonomy name for
// something else.
var (
	// Disputes
	ErrAlreadyJudged             = errors.New("stf: report hash already classified good/bad/wonky")
	ErrBadVoteSplit              = errors.New("stf: vote split is neither a super-majority nor a legal wonky tie")
	ErrVerdictsNotSortedUnique   = errors.New("stf: dispute verdicts not sorted by report hash or contain a duplicate")
	ErrJudgementsNotSortedUnique = errors.New("stf: verdict's votes not sorted by validator index or contain a duplicate")
	ErrCulpritsNotSortedUnique   = errors.New("stf: culprits not sorted by key or contain a duplicate")
	ErrFaultsNotSortedUnique     = errors.New("stf: faults not sorted by key or contain a duplicate")
	ErrNotEnoughCulprits         = errors.New("stf: bad verdict carries fewer than one culprit")
	ErrNotEnoughFaults           = errors.New("stf: good verdict carries fewer than two faults")
	ErrCulpritsVerdictNotBad     = errors.New("stf: culprits attached to a verdict that did not resolve bad")
	ErrFaultVerdictWrong         = errors.New("stf: faults attached to a verdict that did not resolve good")
	ErrOffenderAlreadyReported   = errors.New("stf: culprit or fault key already recorded as an offender")
	ErrBadJudgementAge           = errors.New("stf: verdict age matches neither the current nor the previous epoch")
	ErrBadValidatorIndex         = errors.New("stf: vote, seal or ticket references a validator index out of range")
	ErrBadSignature              = errors.New("stf: ed25519 signature does not verify against the named key")

	// Safrole
	ErrBadSeal            = errors.New("stf: block seal or entropy-source vrf signature does not verify")
	ErrBadTicketSignature = errors.New("stf: ticket ring-signature proof does not verify")
	ErrDuplicateTicket    = errors.New("stf: ticket already present in this epoch's accumulator")
	ErrBadEpochMark       = errors.New("stf: epoch marker present or absent where the slot's boundary status disagrees")
	ErrBadTicketsMark     = errors.New("stf: tickets marker present or absent where the slot's boundary status disagrees")
	ErrTooManyTickets     = errors.New("stf: validator exceeded its per-epoch ticket allowance")

	// Assurances / Reports
	ErrUnknownCore            = errors.New("stf: core index out of range")
	ErrUnknownAnchor          = errors.New("stf: anchor block is not found in recent history")
	ErrBadGuarantorKey        = errors.New("stf: guarantor signature does not verify against its claimed validator key")
	ErrBadAuditorKey          = errors.New("stf: assurance signature does not verify against its claimed validator key")
	ErrReportAlreadyPending   = errors.New("stf: core already has a pending report")
	ErrAvailabilityTimeout    = errors.New("stf: pending report's availability timeout elapsed")
	ErrAssuranceBadBitfield   = errors.New("stf: assurance bitfield length mismatch")
	ErrUnmetPrerequisite      = errors.New("stf: guarantee's prerequisite report is not yet accumulated")
	ErrReportAlreadyInXi      = errors.New("stf: work-package hash already accumulated")
	ErrUnknownAuthorizer      = errors.New("stf: authorizer hash not in the core's authorization pool")
	ErrInsufficientGuarantors = errors.New("stf: guarantee lacks enough guarantor signatures")

	// Preimages
	ErrPreimageUnsolicited    = errors.New("stf: preimage supplied with no matching lookup request")
	ErrPreimageLengthMismatch = errors.New("stf: preimage data length does not match the requested lookup key")
	ErrPreimageUnknownService = errors.New("stf: preimage targets an unknown service")

	// Accumulation / PVM
	ErrServiceNotFound        = errors.New("stf: report targets an unknown service")
	ErrServiceCodeUnavailable = errors.New("stf: service's code hash has no matching preimage")
	ErrOutOfGas               = errors.New("stf: block accumulation gas budget exhausted")
	ErrPvmPanic               = errors.New("stf: pvm invocation panicked")
	ErrHostCallInvalid        = errors.New("stf: host call rejected its arguments")
)
