// Package state models the sixteen named JAM state components (spec.md
// §3): their Go representations, invariants, and the lifecycle mutations
// the STF stages apply to them. Grounded on the teacher's
// consensus.FullBeaconState field layout and Err... table idiom
// (consensus/beacon_state.go, consensus/unified_beacon_state.go).
package state

import (
	"errors"

	"github.com/jamcore/jamcore/types"
)

// Component ids, stable across the dictionary projection (spec.md §4.4).
const (
	ComponentAlpha   = 1  // authorizations
	ComponentPhi     = 2  // auth queue
	ComponentBeta    = 3  // recent blocks
	ComponentGamma   = 4  // safrole
	ComponentPsi     = 5  // disputes
	ComponentEta     = 6  // entropy
	ComponentIota    = 7  // incoming validators
	ComponentKappa   = 8  // active validators
	ComponentLambda  = 9  // archived validators
	ComponentRho     = 10 // pending reports
	ComponentTau     = 11 // last slot
	ComponentChi     = 12 // privileges
	ComponentPi      = 13 // statistics
	ComponentTheta   = 14 // ready reports
	ComponentXi      = 15 // accumulated
	ComponentDelta   = 255
)

// ErrUnknownComponent is returned when a dictionary key's component id
// names none of the sixteen components above or the service sentinel.
var ErrUnknownComponent = errors.New("state: unknown component id")

// DisputesState (ψ) tracks the three disjoint work-report verdict sets plus
// the offender set. Invariant: Good, Bad and Wonky are pairwise disjoint;
// Offenders only grows.
type DisputesState struct {
	Good      map[types.Hash]struct{}
	Bad       map[types.Hash]struct{}
	Wonky     map[types.Hash]struct{}
	Offenders map[types.Ed25519Key]struct{}
}

// NewDisputesState returns an empty ψ.
func NewDisputesState() DisputesState {
	return DisputesState{
		Good:      make(map[types.Hash]struct{}),
		Bad:       make(map[types.Hash]struct{}),
		Wonky:     make(map[types.Hash]struct{}),
		Offenders: make(map[types.Ed25519Key]struct{}),
	}
}

// Clone returns a deep copy.
func (d DisputesState) Clone() DisputesState {
	out := NewDisputesState()
	for k := range d.Good {
		out.Good[k] = struct{}{}
	}
	for k := range d.Bad {
		out.Bad[k] = struct{}{}
	}
	for k := range d.Wonky {
		out.Wonky[k] = struct{}{}
	}
	for k := range d.Offenders {
		out.Offenders[k] = struct{}{}
	}
	return out
}

// Disjoint reports whether Good/Bad/Wonky remain pairwise disjoint
// (spec.md §8 property 8).
func (d DisputesState) Disjoint() bool {
	for h := range d.Good {
		if _, ok := d.Bad[h]; ok {
			return false
		}
		if _, ok := d.Wonky[h]; ok {
			return false
		}
	}
	for h := range d.Bad {
		if _, ok := d.Wonky[h]; ok {
			return false
		}
	}
	return true
}

// TicketBody is one entry of the safrole sealing-key ticket sequence.
type TicketBody struct {
	Id         types.Hash
	EntryIndex uint8
}

// SafroleState (γ) carries the Bandersnatch ring commitment, the current
// epoch's ticket accumulator, and the validator set queued for next epoch.
type SafroleState struct {
	RingCommitment  types.Hash
	SealingKeys     []types.BandersnatchKey // published sequence for the current epoch
	TicketAccumulator []TicketBody
	NextValidators  []types.ValidatorKeys // γ's own queued-next-epoch set (distinct from ι)
}

// Clone returns a deep copy.
func (g SafroleState) Clone() SafroleState {
	out := SafroleState{RingCommitment: g.RingCommitment}
	out.SealingKeys = append([]types.BandersnatchKey(nil), g.SealingKeys...)
	out.TicketAccumulator = append([]TicketBody(nil), g.TicketAccumulator...)
	out.NextValidators = append([]types.ValidatorKeys(nil), g.NextValidators...)
	return out
}

// RecentBlockEntry is one entry of β: a recent block's header hash, the
// state root of its parent, the work-package hashes it reported, and the
// Merkle-Mountain-Range of accumulate roots as of that block.
type RecentBlockEntry struct {
	HeaderHash      types.Hash
	ParentStateRoot types.Hash
	ReportedHashes  []types.Hash
	AccumulateMMR   []types.Hash // MMR peaks, Keccak-256 combined
}

func (b RecentBlockEntry) Clone() RecentBlockEntry {
	return RecentBlockEntry{
		HeaderHash:      b.HeaderHash,
		ParentStateRoot: b.ParentStateRoot,
		ReportedHashes:  append([]types.Hash(nil), b.ReportedHashes...),
		AccumulateMMR:   append([]types.Hash(nil), b.AccumulateMMR...),
	}
}

// WorkReport is the output of a work package: what a guarantor claims is
// available on a core. The STF treats its body as opaque beyond the fields
// the stages inspect.
type WorkReport struct {
	PackageHash    types.Hash
	Core           types.CoreIndex
	Authorizer     types.Hash
	AnchorBlock    types.Hash // header hash of the block this report is anchored to
	Slot           types.TimeSlot
	Prerequisites  []types.Hash
	GasRatioNum    uint64 // numerator of the gas-per-work-item ratio
	GasRatioDen    uint64
	ServiceId      types.ServiceId // the accumulating service
	Output         []byte          // opaque work-result payload consumed by accumulation
}

func (r WorkReport) Clone() WorkReport {
	out := r
	out.Prerequisites = append([]types.Hash(nil), r.Prerequisites...)
	out.Output = append([]byte(nil), r.Output...)
	return out
}

// Bitfield is a per-validator assurance bitfield, one bit per validator
// index, LSB-first within each byte.
type Bitfield []byte

func NewBitfield(n int) Bitfield {
	return make(Bitfield, (n+7)/8)
}

func (b Bitfield) Get(i int) bool {
	if i/8 >= len(b) {
		return false
	}
	return b[i/8]&(1<<uint(i%8)) != 0
}

func (b Bitfield) Set(i int) {
	if i/8 >= len(b) {
		return
	}
	b[i/8] |= 1 << uint(i%8)
}

// Count returns the number of set bits.
func (b Bitfield) Count() int {
	n := 0
	for _, by := range b {
		for by != 0 {
			n += int(by & 1)
			by >>= 1
		}
	}
	return n
}

func (b Bitfield) Clone() Bitfield {
	return append(Bitfield(nil), b...)
}

// PendingReport (one slot of ρ) pairs a work report awaiting availability
// with its timeout slot and the accumulated assurance bitfield.
type PendingReport struct {
	Report       WorkReport
	Timeout      types.TimeSlot
	Availability Bitfield
}

func (p *PendingReport) Clone() *PendingReport {
	if p == nil {
		return nil
	}
	return &PendingReport{Report: p.Report.Clone(), Timeout: p.Timeout, Availability: p.Availability.Clone()}
}

// Privileges (χ) names the three privileged service ids and their
// per-service gas budgets. A zero ServiceId means "no privileged service
// assigned to that role".
type Privileges struct {
	Manager    types.ServiceId
	Assign     types.ServiceId
	Designate  types.ServiceId
	GasBudgets map[types.ServiceId]types.Gas
}

func NewPrivileges() Privileges {
	return Privileges{GasBudgets: make(map[types.ServiceId]types.Gas)}
}

func (c Privileges) Clone() Privileges {
	out := Privileges{Manager: c.Manager, Assign: c.Assign, Designate: c.Designate, GasBudgets: make(map[types.ServiceId]types.Gas, len(c.GasBudgets))}
	for k, v := range c.GasBudgets {
		out.GasBudgets[k] = v
	}
	return out
}

// ValidatorStats (π, per-validator half) counts blocks authored and tickets
// published attributable to one validator's activity.
type ValidatorStats struct {
	BlocksProduced   uint64
	TicketsPublished uint64
}

// ServiceStats (π, per-service half) counts preimages served and gas used
// for one service, plus how many times it was invoked by accumulation —
// a SPEC_FULL.md addition beyond spec.md's named counters.
type ServiceStats struct {
	PreimagesServed       uint64
	GasUsed               uint64
	AccumulateInvocations uint64
}

// Statistics (π) is the full set of per-validator and per-service counters.
type Statistics struct {
	Validators map[types.ValidatorIndex]ValidatorStats
	Services   map[types.ServiceId]ServiceStats
}

func NewStatistics() Statistics {
	return Statistics{
		Validators: make(map[types.ValidatorIndex]ValidatorStats),
		Services:   make(map[types.ServiceId]ServiceStats),
	}
}

func (s Statistics) Clone() Statistics {
	out := NewStatistics()
	for k, v := range s.Validators {
		out.Validators[k] = v
	}
	for k, v := range s.Services {
		out.Services[k] = v
	}
	return out
}

// PreimageLookupStatus is the lifecycle of one (hash, length) preimage
// lookup entry: requested but not yet supplied, or available as of a slot.
type PreimageLookupStatus struct {
	Available   bool
	AvailableAt types.TimeSlot
}

// PreimageKey identifies a preimage lookup entry by its content hash and
// declared length (two different-length blobs can share a hash prefix in
// the dictionary's truncated key, so length disambiguates).
type PreimageKey struct {
	Hash   types.Hash
	Length uint32
}

// ServiceAccount (one entry of δ) holds a service's code reference,
// balance, gas minimums, and its storage/preimage maps.
type ServiceAccount struct {
	CodeHash         types.Hash
	Balance          types.Balance
	MinGasAccumulate types.Gas
	MinGasOnTransfer types.Gas
	Storage          map[types.Hash][]byte
	Preimages        map[types.Hash][]byte
	PreimageLookup   map[PreimageKey]PreimageLookupStatus
}

// NewServiceAccount returns an empty account with initialized maps.
func NewServiceAccount() *ServiceAccount {
	return &ServiceAccount{
		Storage:        make(map[types.Hash][]byte),
		Preimages:      make(map[types.Hash][]byte),
		PreimageLookup: make(map[PreimageKey]PreimageLookupStatus),
	}
}

// Clone returns a deep copy.
func (a *ServiceAccount) Clone() *ServiceAccount {
	if a == nil {
		return nil
	}
	out := &ServiceAccount{
		CodeHash:         a.CodeHash,
		Balance:          a.Balance,
		MinGasAccumulate: a.MinGasAccumulate,
		MinGasOnTransfer: a.MinGasOnTransfer,
		Storage:          make(map[types.Hash][]byte, len(a.Storage)),
		Preimages:        make(map[types.Hash][]byte, len(a.Preimages)),
		PreimageLookup:   make(map[PreimageKey]PreimageLookupStatus, len(a.PreimageLookup)),
	}
	for k, v := range a.Storage {
		out.Storage[k] = append([]byte(nil), v...)
	}
	for k, v := range a.Preimages {
		out.Preimages[k] = append([]byte(nil), v...)
	}
	for k, v := range a.PreimageLookup {
		out.PreimageLookup[k] = v
	}
	return out
}

// DeductBalance subtracts amount and reports true if Balance covers it;
// otherwise it leaves Balance unchanged and reports false, so Balance never
// wraps below zero.
func (a *ServiceAccount) DeductBalance(amount types.Balance) (ok bool) {
	if a.Balance < amount {
		return false
	}
	a.Balance -= amount
	return true
}
