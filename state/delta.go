package state

import "github.com/jamcore/jamcore/types"

// Overlay layers a prime copy on top of a base State (spec.md §4.3): each
// component is read from the prime copy once touched, else from base; on
// Commit the prime (with base aliased in for untouched components) becomes
// the new state. If a stage returns an error, the caller discards the
// Overlay and base is provably untouched, since every mutation first
// deep-copies its component into prime.
//
// Grounded on the teacher's StateDB journal idiom (core/state/journal.go),
// adapted from an undo-log of individual writes to a coarser
// per-component copy-on-write, which is what spec.md's "prime overlay"
// requires.
type Overlay struct {
	base *State
	prime *State

	touchedAlpha bool
	touchedPhi   bool
	touchedBeta  bool
	touchedGamma bool
	touchedPsi   bool
	touchedEta   bool
	touchedIota  bool
	touchedKappa bool
	touchedLambda bool
	touchedRho   bool
	touchedTau   bool
	touchedChi   bool
	touchedPi    bool
	touchedTheta bool
	touchedXi    bool

	serviceDeltas map[types.ServiceId]*ServiceAccount // lazily cloned, touched services only
	serviceOrder  []types.ServiceId                   // first-touch order, for deterministic Commit iteration
}

// NewOverlay begins a transaction on top of base. base is never mutated
// through the returned Overlay.
func NewOverlay(base *State) *Overlay {
	return &Overlay{base: base, serviceDeltas: make(map[types.ServiceId]*ServiceAccount)}
}

// --- read accessors: return the touched copy if present, else the base ---

func (o *Overlay) Alpha() map[types.CoreIndex][]types.Hash {
	if o.touchedAlpha {
		return o.prime.Alpha
	}
	return o.base.Alpha
}

func (o *Overlay) Phi() map[types.CoreIndex][]types.Hash {
	if o.touchedPhi {
		return o.prime.Phi
	}
	return o.base.Phi
}

func (o *Overlay) Beta() []RecentBlockEntry {
	if o.touchedBeta {
		return o.prime.Beta
	}
	return o.base.Beta
}

func (o *Overlay) Gamma() SafroleState {
	if o.touchedGamma {
		return o.prime.Gamma
	}
	return o.base.Gamma
}

func (o *Overlay) Psi() DisputesState {
	if o.touchedPsi {
		return o.prime.Psi
	}
	return o.base.Psi
}

func (o *Overlay) Eta() types.Entropy {
	if o.touchedEta {
		return o.prime.Eta
	}
	return o.base.Eta
}

func (o *Overlay) Iota() []types.ValidatorKeys {
	if o.touchedIota {
		return o.prime.Iota
	}
	return o.base.Iota
}

func (o *Overlay) Kappa() []types.ValidatorKeys {
	if o.touchedKappa {
		return o.prime.Kappa
	}
	return o.base.Kappa
}

func (o *Overlay) Lambda() []types.ValidatorKeys {
	if o.touchedLambda {
		return o.prime.Lambda
	}
	return o.base.Lambda
}

func (o *Overlay) Rho() map[types.CoreIndex]*PendingReport {
	if o.touchedRho {
		return o.prime.Rho
	}
	return o.base.Rho
}

func (o *Overlay) Tau() types.TimeSlot {
	if o.touchedTau {
		return o.prime.Tau
	}
	return o.base.Tau
}

func (o *Overlay) Chi() Privileges {
	if o.touchedChi {
		return o.prime.Chi
	}
	return o.base.Chi
}

func (o *Overlay) Pi() Statistics {
	if o.touchedPi {
		return o.prime.Pi
	}
	return o.base.Pi
}

func (o *Overlay) Theta() map[types.TimeSlot][]WorkReport {
	if o.touchedTheta {
		return o.prime.Theta
	}
	return o.base.Theta
}

func (o *Overlay) Xi() [][]types.Hash {
	if o.touchedXi {
		return o.prime.Xi
	}
	return o.base.Xi
}

// Service returns the current view of a service account: the touched
// override if this service has been written in this overlay, else base's
// entry (read-only; callers must go through MutService to write).
func (o *Overlay) Service(id types.ServiceId) (*ServiceAccount, bool) {
	if acc, ok := o.serviceDeltas[id]; ok {
		return acc, true
	}
	acc, ok := o.base.Delta[id]
	return acc, ok
}

// --- mutators: deep-copy-on-first-write, then return the mutable prime ---

func (o *Overlay) ensurePrime() {
	if o.prime == nil {
		o.prime = &State{}
	}
}

func (o *Overlay) MutAlpha() map[types.CoreIndex][]types.Hash {
	o.ensurePrime()
	if !o.touchedAlpha {
		o.prime.Alpha = cloneHashSliceMap(o.base.Alpha)
		o.touchedAlpha = true
	}
	return o.prime.Alpha
}

func (o *Overlay) MutPhi() map[types.CoreIndex][]types.Hash {
	o.ensurePrime()
	if !o.touchedPhi {
		o.prime.Phi = cloneHashSliceMap(o.base.Phi)
		o.touchedPhi = true
	}
	return o.prime.Phi
}

// SetBeta replaces β wholesale; it is always rebuilt, never incrementally
// patched (spec.md §4.6 recent-blocks rule).
func (o *Overlay) SetBeta(v []RecentBlockEntry) {
	o.ensurePrime()
	o.prime.Beta = v
	o.touchedBeta = true
}

func (o *Overlay) MutGamma() *SafroleState {
	o.ensurePrime()
	if !o.touchedGamma {
		o.prime.Gamma = o.base.Gamma.Clone()
		o.touchedGamma = true
	}
	return &o.prime.Gamma
}

func (o *Overlay) MutPsi() *DisputesState {
	o.ensurePrime()
	if !o.touchedPsi {
		o.prime.Psi = o.base.Psi.Clone()
		o.touchedPsi = true
	}
	return &o.prime.Psi
}

func (o *Overlay) SetEta(v types.Entropy) {
	o.ensurePrime()
	o.prime.Eta = v
	o.touchedEta = true
}

func (o *Overlay) SetIota(v []types.ValidatorKeys) {
	o.ensurePrime()
	o.prime.Iota = v
	o.touchedIota = true
}

func (o *Overlay) SetKappa(v []types.ValidatorKeys) {
	o.ensurePrime()
	o.prime.Kappa = v
	o.touchedKappa = true
}

func (o *Overlay) SetLambda(v []types.ValidatorKeys) {
	o.ensurePrime()
	o.prime.Lambda = v
	o.touchedLambda = true
}

func (o *Overlay) MutRho() map[types.CoreIndex]*PendingReport {
	o.ensurePrime()
	if !o.touchedRho {
		cp := make(map[types.CoreIndex]*PendingReport, len(o.base.Rho))
		for k, v := range o.base.Rho {
			cp[k] = v.Clone()
		}
		o.prime.Rho = cp
		o.touchedRho = true
	}
	return o.prime.Rho
}

func (o *Overlay) SetTau(v types.TimeSlot) {
	o.ensurePrime()
	o.prime.Tau = v
	o.touchedTau = true
}

func (o *Overlay) MutChi() *Privileges {
	o.ensurePrime()
	if !o.touchedChi {
		o.prime.Chi = o.base.Chi.Clone()
		o.touchedChi = true
	}
	return &o.prime.Chi
}

func (o *Overlay) MutPi() *Statistics {
	o.ensurePrime()
	if !o.touchedPi {
		o.prime.Pi = o.base.Pi.Clone()
		o.touchedPi = true
	}
	return &o.prime.Pi
}

func (o *Overlay) MutTheta() map[types.TimeSlot][]WorkReport {
	o.ensurePrime()
	if !o.touchedTheta {
		cp := make(map[types.TimeSlot][]WorkReport, len(o.base.Theta))
		for k, reports := range o.base.Theta {
			rcp := make([]WorkReport, len(reports))
			for i, r := range reports {
				rcp[i] = r.Clone()
			}
			cp[k] = rcp
		}
		o.prime.Theta = cp
		o.touchedTheta = true
	}
	return o.prime.Theta
}

func (o *Overlay) SetXi(v [][]types.Hash) {
	o.ensurePrime()
	o.prime.Xi = v
	o.touchedXi = true
}

// MutService returns a mutable, service-private clone of id's account,
// creating an empty one if absent. Calling it is the only way to mutate a
// service within an Overlay; the clone is taken once per overlay lifetime.
func (o *Overlay) MutService(id types.ServiceId) *ServiceAccount {
	if acc, ok := o.serviceDeltas[id]; ok {
		return acc
	}
	var acc *ServiceAccount
	if base, ok := o.base.Delta[id]; ok {
		acc = base.Clone()
	} else {
		acc = NewServiceAccount()
	}
	o.serviceDeltas[id] = acc
	o.serviceOrder = append(o.serviceOrder, id)
	return acc
}

// DeleteService removes id from δ on commit. No host call calls it: the
// `eject` host call is a stub that returns WHAT.
func (o *Overlay) DeleteService(id types.ServiceId) {
	o.serviceDeltas[id] = nil
	if _, ok := o.base.Delta[id]; ok {
		found := false
		for _, s := range o.serviceOrder {
			if s == id {
				found = true
				break
			}
		}
		if !found {
			o.serviceOrder = append(o.serviceOrder, id)
		}
	}
}

// Commit materializes the overlay into a new State, aliasing untouched
// components directly from base (cheap, since base itself is immutable from
// the importer's perspective once an Overlay sits on top of it).
func (o *Overlay) Commit() *State {
	out := &State{
		Alpha: o.Alpha(), Phi: o.Phi(), Beta: o.Beta(), Gamma: o.Gamma(), Psi: o.Psi(),
		Eta: o.Eta(), Iota: o.Iota(), Kappa: o.Kappa(), Lambda: o.Lambda(), Rho: o.Rho(),
		Tau: o.Tau(), Chi: o.Chi(), Pi: o.Pi(), Theta: o.Theta(), Xi: o.Xi(),
	}
	out.Delta = make(map[types.ServiceId]*ServiceAccount, len(o.base.Delta)+len(o.serviceDeltas))
	for id, acc := range o.base.Delta {
		out.Delta[id] = acc
	}
	for _, id := range o.serviceOrder {
		acc := o.serviceDeltas[id]
		if acc == nil {
			delete(out.Delta, id)
			continue
		}
		out.Delta[id] = acc
	}
	return out
}
