// Package conformance implements the trace runner (spec.md §4.7 "Test
// interface", C8): it drives a sequence of
// (pre_state_dict, block_bytes, expected_post_state_dict) triples, each
// exercising one full state transition through the block importer, and
// reports whether the observed post-state dictionary and root match what
// the vector expects. Grounded on the corpus's conformance driver shape
// (tools/conformance/driver.go's Driver/DriverOpts + an Execute-style entry
// point returning a result struct), adapted from Filecoin's VM/tipset
// execution to a single JAM block transition.
package conformance

import (
	"errors"
	"fmt"
	"sort"

	"github.com/jamcore/jamcore/block"
	"github.com/jamcore/jamcore/chain"
	"github.com/jamcore/jamcore/config"
	"github.com/jamcore/jamcore/crypto"
	"github.com/jamcore/jamcore/log"
	"github.com/jamcore/jamcore/state/dictionary"
	"github.com/jamcore/jamcore/stats"
	"github.com/jamcore/jamcore/types"
)

// ErrPostStateRootMismatch is returned (wrapped into Result.ImportErr, not
// by Run itself) when a vector's import succeeds but the resulting
// post-state root disagrees with the vector's expected post-state root.
var ErrPostStateRootMismatch = errors.New("conformance: post-state root mismatch")

// Vector is one conformance triple: the state to start from, the block to
// apply, and the state the vector author expects to result.
type Vector struct {
	Name                  string
	TipHash               types.Hash
	PreStateDict          dictionary.Dictionary
	BlockBytes            []byte
	ExpectedPostStateDict dictionary.Dictionary
}

// Result reports the outcome of running one Vector.
type Result struct {
	Name             string
	PreRoot          types.Hash
	PostRoot         types.Hash
	ExpectedPostRoot types.Hash
	Passed           bool
	// NoOpRejected is true when the block was rejected by a stage and the
	// vector's expected post-root equals its pre-root — the legitimate
	// no-op-block case spec.md §4.7 calls out, distinct from a genuinely
	// wrong implementation.
	NoOpRejected bool
	Mismatches   []string
	ImportErr    error
}

// Driver runs conformance vectors against a fresh Importer per vector.
type Driver struct {
	Cfg     *config.Config
	Log     *log.Logger
	Metrics *stats.Collector

	// Vrf and Ring verify a vector's block seal, entropy source, and
	// tickets. Default to the fail-closed Null implementations; a caller
	// exercising real signed fixtures sets these before calling Run.
	Vrf  crypto.VrfVerifier
	Ring crypto.RingVerifier
}

// NewDriver builds a Driver with the given config and shared logger/metrics.
func NewDriver(cfg *config.Config, logger *log.Logger, metrics *stats.Collector) *Driver {
	return &Driver{Cfg: cfg, Log: logger, Metrics: metrics, Vrf: crypto.NullVrfVerifier{}, Ring: crypto.NullRingVerifier{}}
}

// Run executes a single vector: (a) reconstruct pre-state from the
// dictionary, (b) assert its root matches the block's parent_state_root,
// (c) import the block, (d) emit the post-state dictionary, and (e) assert
// every key/value and the post-state root match (spec.md §4.7).
func (d *Driver) Run(v Vector) (*Result, error) {
	preState, err := dictionary.Reconstruct(v.PreStateDict, d.Cfg)
	if err != nil {
		return nil, fmt.Errorf("conformance: reconstruct pre-state for %q: %w", v.Name, err)
	}
	preRoot := dictionary.Root(v.PreStateDict)

	blk, err := block.Decode(v.BlockBytes)
	if err != nil {
		return nil, fmt.Errorf("conformance: decode block for %q: %w", v.Name, err)
	}
	if blk.Header.ParentStateRoot != preRoot {
		return nil, fmt.Errorf("conformance: %q: %w: got %s, want %s", v.Name, chain.ErrPreStateRootMismatch, blk.Header.ParentStateRoot, preRoot)
	}

	expectedRoot := dictionary.Root(v.ExpectedPostStateDict)
	im := chain.NewImporter(d.Cfg, d.Log, d.Metrics)
	im.SetVerifiers(d.Vrf, d.Ring)

	postState, postRoot, err := im.Import(preState, v.TipHash, blk)
	if err != nil {
		if expectedRoot == preRoot {
			return &Result{Name: v.Name, PreRoot: preRoot, PostRoot: preRoot, ExpectedPostRoot: expectedRoot, Passed: true, NoOpRejected: true, ImportErr: err}, nil
		}
		return &Result{Name: v.Name, PreRoot: preRoot, ExpectedPostRoot: expectedRoot, Passed: false, ImportErr: err}, nil
	}

	res := &Result{Name: v.Name, PreRoot: preRoot, PostRoot: postRoot, ExpectedPostRoot: expectedRoot}
	res.Passed = postRoot == expectedRoot
	if !res.Passed {
		postDict := dictionary.Serialize(postState)
		res.Mismatches = diffDictionaries(postDict, v.ExpectedPostStateDict)
		res.ImportErr = fmt.Errorf("%q: %w: got %s, want %s", v.Name, ErrPostStateRootMismatch, postRoot, expectedRoot)
	}
	return res, nil
}

// RunSequence drives vectors in order, collecting one Result per vector. It
// does not stop at the first failure so a caller can report every
// discrepancy in one pass, matching the "drives a sequence of triples"
// shape spec.md §2's C8 description names.
func (d *Driver) RunSequence(vectors []Vector) ([]*Result, error) {
	results := make([]*Result, 0, len(vectors))
	for _, v := range vectors {
		res, err := d.Run(v)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

// diffDictionaries reports every key present in exactly one of got/want, or
// present in both with differing values, as a human-readable line. Keys are
// sorted for deterministic output.
func diffDictionaries(got, want dictionary.Dictionary) []string {
	var diffs []string
	keys := make(map[types.Hash]struct{}, len(got)+len(want))
	for k := range got {
		keys[k] = struct{}{}
	}
	for k := range want {
		keys[k] = struct{}{}
	}
	sorted := make([]types.Hash, 0, len(keys))
	for k := range keys {
		sorted = append(sorted, k)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Less(sorted[j]) })

	for _, k := range sorted {
		g, gok := got[k]
		w, wok := want[k]
		switch {
		case gok && !wok:
			diffs = append(diffs, fmt.Sprintf("unexpected key %s", k))
		case !gok && wok:
			diffs = append(diffs, fmt.Sprintf("missing key %s", k))
		case string(g.Value) != string(w.Value):
			diffs = append(diffs, fmt.Sprintf("value mismatch at key %s", k))
		}
	}
	return diffs
}
