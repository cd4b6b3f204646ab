package state

import (
	"github.com/jamcore/jamcore/config"
	"github.com/jamcore/jamcore/types"
)

// State is the aggregate of all sixteen JAM state components. Field names
// follow the Greek-letter component names spec.md uses throughout.
type State struct {
	Alpha map[types.CoreIndex][]types.Hash // authorization pools, one per core
	Phi   map[types.CoreIndex][]types.Hash // authorization queues, one per core
	Beta  []RecentBlockEntry
	Gamma SafroleState
	Psi   DisputesState
	Eta   types.Entropy
	Iota  []types.ValidatorKeys // incoming (next-epoch) validator set
	Kappa []types.ValidatorKeys // active validator set
	Lambda []types.ValidatorKeys // archived (previous-epoch) validator set
	Rho   map[types.CoreIndex]*PendingReport
	Tau   types.TimeSlot
	Chi   Privileges
	Pi    Statistics
	Theta map[types.TimeSlot][]WorkReport // reports ready to accumulate, by target slot
	Xi    [][]types.Hash                  // ring of per-epoch accumulated-package-hash sets
	Delta map[types.ServiceId]*ServiceAccount
}

// NewEmpty returns a zero-valued State with every map/slice initialized and
// Xi sized to cfg.AccumulatedRingSize.
func NewEmpty(cfg *config.Config) *State {
	xi := make([][]types.Hash, cfg.AccumulatedRingSize)
	return &State{
		Alpha:  make(map[types.CoreIndex][]types.Hash),
		Phi:    make(map[types.CoreIndex][]types.Hash),
		Beta:   nil,
		Gamma:  SafroleState{},
		Psi:    NewDisputesState(),
		Eta:    types.Entropy{},
		Rho:    make(map[types.CoreIndex]*PendingReport),
		Chi:    NewPrivileges(),
		Pi:     NewStatistics(),
		Theta:  make(map[types.TimeSlot][]WorkReport),
		Xi:     xi,
		Delta:  make(map[types.ServiceId]*ServiceAccount),
	}
}

// Clone returns a fully independent deep copy of s. Only tests call it; the
// importer and conformance driver work through Overlay instead, since Clone
// always copies every component.
func (s *State) Clone() *State {
	out := &State{
		Alpha: cloneHashSliceMap(s.Alpha),
		Phi:   cloneHashSliceMap(s.Phi),
		Beta:  make([]RecentBlockEntry, len(s.Beta)),
		Gamma: s.Gamma.Clone(),
		Psi:   s.Psi.Clone(),
		Eta:   s.Eta,
		Rho:   make(map[types.CoreIndex]*PendingReport, len(s.Rho)),
		Tau:   s.Tau,
		Chi:   s.Chi.Clone(),
		Pi:    s.Pi.Clone(),
		Theta: make(map[types.TimeSlot][]WorkReport, len(s.Theta)),
		Xi:    make([][]types.Hash, len(s.Xi)),
		Delta: make(map[types.ServiceId]*ServiceAccount, len(s.Delta)),
	}
	for i, b := range s.Beta {
		out.Beta[i] = b.Clone()
	}
	out.Iota = append([]types.ValidatorKeys(nil), s.Iota...)
	out.Kappa = append([]types.ValidatorKeys(nil), s.Kappa...)
	out.Lambda = append([]types.ValidatorKeys(nil), s.Lambda...)
	for k, v := range s.Rho {
		out.Rho[k] = v.Clone()
	}
	for k, reports := range s.Theta {
		cp := make([]WorkReport, len(reports))
		for i, r := range reports {
			cp[i] = r.Clone()
		}
		out.Theta[k] = cp
	}
	for i, set := range s.Xi {
		out.Xi[i] = append([]types.Hash(nil), set...)
	}
	for id, acc := range s.Delta {
		out.Delta[id] = acc.Clone()
	}
	return out
}

func cloneHashSliceMap(m map[types.CoreIndex][]types.Hash) map[types.CoreIndex][]types.Hash {
	out := make(map[types.CoreIndex][]types.Hash, len(m))
	for k, v := range m {
		out[k] = append([]types.Hash(nil), v...)
	}
	return out
}

// Equal reports whether two states agree on τ, η, α, φ, each β entry's
// header hash and parent state root, and each δ account's code hash and
// balance. The other components (γ, ψ, ι, κ, λ, ρ, χ, π, θ, ξ) and the
// rest of each service account are not compared. Used by tests verifying
// dictionary round-trip and overlay-commit equivalence; not used by any
// STF stage (states are never compared during normal import).
func (s *State) Equal(o *State) bool {
	if s == nil || o == nil {
		return s == o
	}
	if s.Tau != o.Tau || s.Eta != o.Eta {
		return false
	}
	if !mapHashSliceEqual(s.Alpha, o.Alpha) || !mapHashSliceEqual(s.Phi, o.Phi) {
		return false
	}
	if len(s.Beta) != len(o.Beta) {
		return false
	}
	for i := range s.Beta {
		if s.Beta[i].HeaderHash != o.Beta[i].HeaderHash || s.Beta[i].ParentStateRoot != o.Beta[i].ParentStateRoot {
			return false
		}
	}
	if len(s.Delta) != len(o.Delta) {
		return false
	}
	for id, a := range s.Delta {
		b, ok := o.Delta[id]
		if !ok || a.CodeHash != b.CodeHash || a.Balance != b.Balance {
			return false
		}
	}
	return true
}

func mapHashSliceEqual(a, b map[types.CoreIndex][]types.Hash) bool {
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		bv, ok := b[k]
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if av[i] != bv[i] {
				return false
			}
		}
	}
	return true
}
