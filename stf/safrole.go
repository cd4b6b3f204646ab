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

var ticketContext = []byte("jam_ticket_seal")

// SafroleStage verifies the block's seal and entropy-source VRF signature,
// accumulates ticket envelopes during an epoch, rotates η every block (and
// the validator sets λ←κ, κ←ι on an epoch boundary), and derives the new
// epoch's sealing-key sequence from the accumulated tickets sorted by
// ticket id. Grounded on the teacher's epoch-transition validator-set-
// rotation pattern (consensus/epoch_transition.go) plus its VRF-based
// proposer-selection idiom (consensus/vdf_consensus.go).
type SafroleStage struct {
	Log *log.Logger
	Vrf crypto.VrfVerifier
	// Ring verifies a ticket's ring-signature proof against the epoch's
	// ring commitment, without revealing which validator submitted it.
	Ring crypto.RingVerifier
}

func (s *SafroleStage) Name() string { return "safrole" }

func (s *SafroleStage) Apply(ov *state.Overlay, blk *block.Block, cfg *config.Config) error {
	priorSlot := ov.Tau()
	newSlot := blk.Header.Slot
	if newSlot <= priorSlot && priorSlot != 0 {
		return fmt.Errorf("stf: safrole: non-increasing slot %d -> %d", priorSlot, newSlot)
	}

	kappa := ov.Kappa()
	if len(kappa) == 0 || int(blk.Header.AuthorIndex) >= len(kappa) {
		return fmt.Errorf("%w: author %d", ErrBadValidatorIndex, blk.Header.AuthorIndex)
	}
	authorKey := kappa[blk.Header.AuthorIndex].Bandersnatch

	sealMsg := blk.Header.SealMessage()
	vrf := s.vrf()
	sealOk, _ := vrf.Verify(authorKey, sealMsg, blk.Header.Seal)
	if !sealOk {
		return fmt.Errorf("%w: seal", ErrBadSeal)
	}
	entropyOk, entropyOutput := vrf.Verify(authorKey, sealMsg, blk.Header.VrfSignature)
	if !entropyOk {
		return fmt.Errorf("%w: entropy source", ErrBadSeal)
	}

	gamma := ov.MutGamma()
	maxTickets := cfg.TicketsPerValidator * uint32(max32(len(kappa), int(cfg.ValidatorCount)))
	seenTickets := make(map[types.Hash]struct{}, len(gamma.TicketAccumulator))
	for _, t := range gamma.TicketAccumulator {
		seenTickets[t.Id] = struct{}{}
	}

	ring := s.ring()
	for _, t := range blk.Extrinsic.Tickets {
		if uint32(len(gamma.TicketAccumulator)) >= maxTickets {
			return fmt.Errorf("%w: accumulator already holds %d tickets", ErrTooManyTickets, len(gamma.TicketAccumulator))
		}
		if !ring.Verify(gamma.RingCommitment, append(append([]byte{}, ticketContext...), t.EntryIndex), t.Proof) {
			return fmt.Errorf("%w: entry %d", ErrBadTicketSignature, t.EntryIndex)
		}
		id := deriveTicketId(t)
		if _, dup := seenTickets[id]; dup {
			return fmt.Errorf("%w: %x", ErrDuplicateTicket, id[:])
		}
		seenTickets[id] = struct{}{}
		gamma.TicketAccumulator = append(gamma.TicketAccumulator, state.TicketBody{Id: id, EntryIndex: t.EntryIndex})
	}

	isBoundary := cfg.EpochOf(uint32(priorSlot)) != cfg.EpochOf(uint32(newSlot))
	if (len(blk.Header.EpochMarker) != 0) != isBoundary {
		return fmt.Errorf("%w: boundary %v marker len %d", ErrBadEpochMark, isBoundary, len(blk.Header.EpochMarker))
	}

	rotateEntropy(ov, entropyOutput, isBoundary)

	if !isBoundary {
		if len(blk.Header.TicketsMarker) != 0 {
			return fmt.Errorf("%w: marker present outside an epoch boundary", ErrBadTicketsMark)
		}
		ov.SetTau(newSlot)
		return nil
	}

	s.Log.Info("epoch boundary", "prior_epoch", cfg.EpochOf(uint32(priorSlot)), "new_epoch", cfg.EpochOf(uint32(newSlot)))

	ticketsDeriveKeys := uint32(len(gamma.TicketAccumulator)) >= cfg.EpochLength
	if (len(blk.Header.TicketsMarker) != 0) != ticketsDeriveKeys {
		return fmt.Errorf("%w: tickets-derived %v marker len %d", ErrBadTicketsMark, ticketsDeriveKeys, len(blk.Header.TicketsMarker))
	}

	sortTicketsById(gamma.TicketAccumulator)
	keys := make([]types.BandersnatchKey, 0, len(gamma.TicketAccumulator))
	for _, t := range gamma.TicketAccumulator {
		var k types.BandersnatchKey
		copy(k[:], t.Id[:])
		keys = append(keys, k)
	}
	gamma.SealingKeys = keys
	gamma.TicketAccumulator = nil

	ov.SetLambda(ov.Kappa())
	ov.SetKappa(ov.Iota())
	ov.SetIota(gamma.NextValidators)
	ov.SetTau(newSlot)
	return nil
}

func (s *SafroleStage) vrf() crypto.VrfVerifier {
	if s.Vrf != nil {
		return s.Vrf
	}
	return crypto.NullVrfVerifier{}
}

func (s *SafroleStage) ring() crypto.RingVerifier {
	if s.Ring != nil {
		return s.Ring
	}
	return crypto.NullRingVerifier{}
}

// rotateEntropy folds the block's VRF output into η₀ on every block, and
// additionally shifts η[1..3] one slot down (archiving the prior epoch's
// accumulator into η₁) on an epoch boundary, before the new η₀ is derived.
func rotateEntropy(ov *state.Overlay, vrfOutput types.Hash, epochBoundary bool) {
	eta := ov.Eta()
	if epochBoundary {
		eta = types.Entropy{eta[0], eta[0], eta[1], eta[2]}
	}
	eta[0] = crypto.Blake2b256(eta[0][:], vrfOutput[:])
	ov.SetEta(eta)
}

func max32(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// deriveTicketId derives a sortable identifier for a ticket from its
// ring-signature proof and entry index, standing in for the VRF output a
// verified ring signature yields (the ring-verifier interface here reports
// only pass/fail, not an output, since the STF treats ring verification as
// an external collaborator, spec.md §6).
func deriveTicketId(t block.TicketEnvelope) types.Hash {
	return crypto.Blake2b256(t.Proof, []byte{t.EntryIndex})
}

func sortTicketsById(ts []state.TicketBody) {
	for i := 1; i < len(ts); i++ {
		for j := i; j > 0 && ts[j].Id.Less(ts[j-1].Id); j-- {
			ts[j], ts[j-1] = ts[j-1], ts[j]
		}
	}
}
