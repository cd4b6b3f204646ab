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

// PreimagesStage matches each supplied preimage blob against a pending
// lookup request on its target service, stores the blob, and marks the
// lookup available as of the current slot. A preimage with no matching
// request, or whose length disagrees with the requested key, is rejected.
// Grounded on the teacher's blob-sidecar-to-commitment matching check
// (core/blob_pool.go style validation, adapted to JAM's hash+length key).
type PreimagesStage struct {
	Log *log.Logger
}

func (s *PreimagesStage) Name() string { return "preimages" }

func (s *PreimagesStage) Apply(ov *state.Overlay, blk *block.Block, cfg *config.Config) error {
	for _, p := range blk.Extrinsic.Preimages {
		if _, ok := ov.Service(p.ServiceId); !ok {
			return fmt.Errorf("%w: service %d", ErrPreimageUnknownService, p.ServiceId)
		}
		hash := crypto.Blake2b256(p.Data)
		key := state.PreimageKey{Hash: hash, Length: uint32(len(p.Data))}

		acc := ov.MutService(p.ServiceId)
		st, requested := acc.PreimageLookup[key]
		if !requested {
			if requestedLengthsFor(acc.PreimageLookup, hash) {
				return fmt.Errorf("%w: service %d hash %x len %d", ErrPreimageLengthMismatch, p.ServiceId, hash[:], len(p.Data))
			}
			return fmt.Errorf("%w: service %d hash %x", ErrPreimageUnsolicited, p.ServiceId, hash[:])
		}
		if st.Available {
			continue // already supplied in an earlier block; idempotent
		}
		acc.Preimages[hash] = append([]byte(nil), p.Data...)
		acc.PreimageLookup[key] = state.PreimageLookupStatus{Available: true, AvailableAt: blk.Header.Slot}
		s.Log.Debug("preimage supplied", "service", p.ServiceId, "hash", hash.String())
	}
	return nil
}

// requestedLengthsFor reports whether a lookup request exists for hash at
// some length other than the one the supplied data actually has, so the
// stage can tell a genuinely unsolicited preimage from one that just
// doesn't match its request's declared length.
func requestedLengthsFor(lookup map[state.PreimageKey]state.PreimageLookupStatus, hash types.Hash) bool {
	for k := range lookup {
		if k.Hash == hash {
			return true
		}
	}
	return false
}
