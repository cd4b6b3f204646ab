package dictionary

import (
	"errors"
	"testing"

	"github.com/jamcore/jamcore/config"
	"github.com/jamcore/jamcore/state"
	"github.com/jamcore/jamcore/types"
)

func sampleState(cfg *config.Config) *state.State {
	s := state.NewEmpty(cfg)
	s.Tau = 17
	s.Eta[0] = types.Hash{1, 2, 3}
	s.Alpha[0] = []types.Hash{{9}, {10}}
	s.Beta = []state.RecentBlockEntry{{HeaderHash: types.Hash{5}, ParentStateRoot: types.Hash{6}}}
	s.Gamma = state.SafroleState{RingCommitment: types.Hash{7}}
	s.Psi.Good[types.Hash{8}] = struct{}{}

	acc := state.NewServiceAccount()
	acc.Balance = 1000
	acc.CodeHash = types.Hash{42}
	acc.Storage[types.Hash{1}] = []byte("hello")
	acc.Preimages[types.Hash{2}] = []byte("world")
	s.Delta[types.ServiceId(7)] = acc
	return s
}

func TestSerializeReconstructRoundTrip(t *testing.T) {
	cfg := config.Tiny()
	s := sampleState(cfg)

	d := Serialize(s)
	got, err := Reconstruct(d, cfg)
	if err != nil {
		t.Fatalf("Reconstruct: %v", err)
	}
	if !got.Equal(s) {
		t.Fatalf("reconstructed state does not match original")
	}
	if got.Delta[7].Storage[types.Hash{1}] == nil {
		t.Fatalf("reconstructed service storage missing")
	}
}

func TestDictionaryReconstructRoundTrip(t *testing.T) {
	cfg := config.Tiny()
	s := sampleState(cfg)
	d1 := Serialize(s)
	reconstructed, err := Reconstruct(d1, cfg)
	if err != nil {
		t.Fatalf("Reconstruct: %v", err)
	}
	d2 := Serialize(reconstructed)
	if len(d1) != len(d2) {
		t.Fatalf("dictionary(reconstruct(d)) has %d entries, want %d", len(d2), len(d1))
	}
	for k, v := range d1 {
		v2, ok := d2[k]
		if !ok {
			t.Fatalf("key %x missing after round-trip", k[:])
		}
		if string(v.Value) != string(v2.Value) {
			t.Fatalf("value mismatch for key %x", k[:])
		}
	}
}

func TestReconstructRejectsUnknownComponent(t *testing.T) {
	cfg := config.Tiny()
	d := Dictionary{ComponentKey(0x7F): Entry{Value: []byte("garbage")}}
	if _, err := Reconstruct(d, cfg); !errors.Is(err, state.ErrUnknownComponent) {
		t.Fatalf("err = %v, want state.ErrUnknownComponent", err)
	}
}

func TestRootStableAcrossInsertionOrder(t *testing.T) {
	cfg := config.Tiny()
	s := sampleState(cfg)
	d := Serialize(s)

	keys := make([]types.Hash, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}

	t1 := NewTrie()
	for _, k := range keys {
		t1.Put(k, d[k].Value)
	}

	// Insert in reverse order into a second trie; the Merkle root must not
	// depend on insertion order.
	t2 := NewTrie()
	for i := len(keys) - 1; i >= 0; i-- {
		t2.Put(keys[i], d[keys[i]].Value)
	}

	if t1.Root() != t2.Root() {
		t.Fatalf("trie root depends on insertion order")
	}
}

func TestRootChangesOnMutation(t *testing.T) {
	cfg := config.Tiny()
	s := sampleState(cfg)
	r1 := Root(Serialize(s))

	s.Tau = 18
	r2 := Root(Serialize(s))

	if r1 == r2 {
		t.Fatalf("root did not change after mutating Tau")
	}
}

func TestEmptyTrieRootIsZero(t *testing.T) {
	if NewTrie().Root() != (types.Hash{}) {
		t.Fatalf("empty trie root should be the zero hash")
	}
}

func TestTrieDeleteRemovesEntry(t *testing.T) {
	tr := NewTrie()
	k1 := types.Hash{1}
	k2 := types.Hash{2}
	tr.Put(k1, []byte("a"))
	tr.Put(k2, []byte("b"))
	tr.Delete(k1)
	if _, err := tr.Get(k1); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if v, err := tr.Get(k2); err != nil || string(v) != "b" {
		t.Fatalf("unrelated key disturbed by delete: v=%s err=%v", v, err)
	}
}
