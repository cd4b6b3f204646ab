package state

import (
	"testing"

	"github.com/jamcore/jamcore/config"
	"github.com/jamcore/jamcore/types"
)

func freshState() *State {
	return NewEmpty(config.Tiny())
}

func TestCloneIsIndependent(t *testing.T) {
	s := freshState()
	s.Delta[1] = NewServiceAccount()
	s.Delta[1].Balance = 100

	clone := s.Clone()
	clone.Delta[1].Balance = 999
	clone.Delta[2] = NewServiceAccount()

	if s.Delta[1].Balance != 100 {
		t.Fatalf("mutating clone affected original: balance = %d", s.Delta[1].Balance)
	}
	if _, ok := s.Delta[2]; ok {
		t.Fatalf("adding a service to the clone leaked into the original")
	}
}

func TestOverlayLeavesBaseUntouchedOnDiscard(t *testing.T) {
	base := freshState()
	base.Tau = 5
	base.Alpha[0] = []types.Hash{{1}}

	ov := NewOverlay(base)
	ov.SetTau(42)
	mutAlpha := ov.MutAlpha()
	mutAlpha[0] = append(mutAlpha[0], types.Hash{2})
	ov.MutService(7).Balance = 500

	// Discard ov without calling Commit: base must be unaffected.
	if base.Tau != 5 {
		t.Fatalf("base.Tau mutated through overlay: %d", base.Tau)
	}
	if len(base.Alpha[0]) != 1 {
		t.Fatalf("base.Alpha mutated through overlay: %v", base.Alpha[0])
	}
	if _, ok := base.Delta[7]; ok {
		t.Fatalf("base.Delta mutated through overlay")
	}
}

func TestOverlayCommitMergesTouchedAndUntouched(t *testing.T) {
	base := freshState()
	base.Tau = 5
	base.Eta = types.Entropy{{9}}

	ov := NewOverlay(base)
	ov.SetTau(6)
	ov.MutService(1).Balance = 10

	committed := ov.Commit()
	if committed.Tau != 6 {
		t.Fatalf("committed.Tau = %d, want 6", committed.Tau)
	}
	if committed.Eta != base.Eta {
		t.Fatalf("untouched Eta should be carried through unchanged")
	}
	if committed.Delta[1].Balance != 10 {
		t.Fatalf("committed service balance = %d, want 10", committed.Delta[1].Balance)
	}
}

func TestOverlayDeleteServiceRemovesOnCommit(t *testing.T) {
	base := freshState()
	base.Delta[3] = NewServiceAccount()

	ov := NewOverlay(base)
	ov.DeleteService(3)
	committed := ov.Commit()

	if _, ok := committed.Delta[3]; ok {
		t.Fatalf("deleted service still present after commit")
	}
	if _, ok := base.Delta[3]; !ok {
		t.Fatalf("base mutated by DeleteService before commit")
	}
}

func TestDisputesStateDisjointInvariant(t *testing.T) {
	d := NewDisputesState()
	h := types.Hash{1}
	d.Good[h] = struct{}{}
	if !d.Disjoint() {
		t.Fatalf("single-set membership should be disjoint")
	}
	d.Bad[h] = struct{}{}
	if d.Disjoint() {
		t.Fatalf("expected Disjoint() == false once a hash is in both Good and Bad")
	}
}

func TestBitfieldSetCount(t *testing.T) {
	b := NewBitfield(10)
	b.Set(0)
	b.Set(9)
	if b.Count() != 2 {
		t.Fatalf("Count() = %d, want 2", b.Count())
	}
	if !b.Get(9) || b.Get(5) {
		t.Fatalf("Get() mismatch: bit9=%v bit5=%v", b.Get(9), b.Get(5))
	}
}

func TestServiceAccountDeductBalanceRefusesOverdraft(t *testing.T) {
	a := NewServiceAccount()
	a.Balance = 50
	if a.DeductBalance(100) {
		t.Fatalf("expected insufficient-balance deduction to fail")
	}
	if a.Balance != 50 {
		t.Fatalf("failed deduction must not mutate balance, got %d", a.Balance)
	}
	if !a.DeductBalance(50) || a.Balance != 0 {
		t.Fatalf("expected exact deduction to succeed and zero the balance")
	}
}
