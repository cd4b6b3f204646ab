package dictionary

import (
	"errors"

	"github.com/jamcore/jamcore/crypto"
	"github.com/jamcore/jamcore/types"
)

// ErrNotFound is returned by Get when the key is absent.
var ErrNotFound = errors.New("dictionary: key not found")

// binaryNode is either a leaf or a branch of the state trie.
type binaryNode struct {
	left, right *binaryNode

	isLeaf bool
	key    types.Hash
	value  []byte

	hash  types.Hash
	dirty bool
}

// Trie is a binary Merkle tree keyed by pre-hashed 32-byte StateKeys,
// hashed with BLAKE2b-256 (spec.md §4.4). Adapted from the teacher's
// keccak256 binary trie (pkg/trie/binary.go); the teacher re-hashes
// caller-supplied keys with keccak256 before insertion, but dictionary
// StateKeys are already fully-structured 32-byte keys, so Trie inserts
// them directly.
type Trie struct {
	root *binaryNode
}

// NewTrie returns an empty trie.
func NewTrie() *Trie {
	return &Trie{}
}

// Get retrieves the value stored at key.
func (t *Trie) Get(key types.Hash) ([]byte, error) {
	n := t.root
	for depth := 0; n != nil; depth++ {
		if n.isLeaf {
			if n.key == key {
				return n.value, nil
			}
			return nil, ErrNotFound
		}
		if getBit(key, depth) == 0 {
			n = n.left
		} else {
			n = n.right
		}
	}
	return nil, ErrNotFound
}

// Put inserts or overwrites key's value. An empty value deletes the key.
func (t *Trie) Put(key types.Hash, value []byte) {
	if len(value) == 0 {
		t.Delete(key)
		return
	}
	t.root = insertBinary(t.root, key, value, 0)
}

func insertBinary(n *binaryNode, key types.Hash, value []byte, depth int) *binaryNode {
	if n == nil {
		return &binaryNode{isLeaf: true, key: key, value: copyBytes(value), dirty: true}
	}
	if n.isLeaf {
		if n.key == key {
			n.value = copyBytes(value)
			n.dirty = true
			return n
		}
		return splitLeaf(n, key, value, depth)
	}
	n.dirty = true
	if getBit(key, depth) == 0 {
		n.left = insertBinary(n.left, key, value, depth+1)
	} else {
		n.right = insertBinary(n.right, key, value, depth+1)
	}
	return n
}

func splitLeaf(existing *binaryNode, newKey types.Hash, newValue []byte, depth int) *binaryNode {
	existBit := getBit(existing.key, depth)
	newBit := getBit(newKey, depth)

	if existBit == newBit {
		child := splitLeaf(existing, newKey, newValue, depth+1)
		branch := &binaryNode{dirty: true}
		if existBit == 0 {
			branch.left = child
		} else {
			branch.right = child
		}
		return branch
	}

	newLeaf := &binaryNode{isLeaf: true, key: newKey, value: copyBytes(newValue), dirty: true}
	existing.dirty = true
	branch := &binaryNode{dirty: true}
	if existBit == 0 {
		branch.left, branch.right = existing, newLeaf
	} else {
		branch.left, branch.right = newLeaf, existing
	}
	return branch
}

// Delete removes key; a no-op if key is absent.
func (t *Trie) Delete(key types.Hash) {
	t.root = deleteBinary(t.root, key, 0)
}

func deleteBinary(n *binaryNode, key types.Hash, depth int) *binaryNode {
	if n == nil {
		return nil
	}
	if n.isLeaf {
		if n.key == key {
			return nil
		}
		return n
	}
	if getBit(key, depth) == 0 {
		n.left = deleteBinary(n.left, key, depth+1)
	} else {
		n.right = deleteBinary(n.right, key, depth+1)
	}
	n.dirty = true
	if n.left == nil && n.right == nil {
		return nil
	}
	if n.left == nil && n.right.isLeaf {
		return n.right
	}
	if n.right == nil && n.left.isLeaf {
		return n.left
	}
	return n
}

// Root computes the BLAKE2b-256 Merkle root. An empty trie's root is the
// zero hash.
func (t *Trie) Root() types.Hash {
	if t.root == nil {
		return types.Hash{}
	}
	return hashNode(t.root)
}

func hashNode(n *binaryNode) types.Hash {
	if n == nil {
		return types.Hash{}
	}
	if !n.dirty {
		return n.hash
	}
	var h types.Hash
	if n.isLeaf {
		h = crypto.Blake2b256([]byte{0x00}, n.key[:], n.value)
	} else {
		left := hashNode(n.left)
		right := hashNode(n.right)
		h = crypto.Blake2b256([]byte{0x01}, left[:], right[:])
	}
	n.hash = h
	n.dirty = false
	return h
}

// Len returns the number of entries.
func (t *Trie) Len() int {
	return countLeaves(t.root)
}

func countLeaves(n *binaryNode) int {
	if n == nil {
		return 0
	}
	if n.isLeaf {
		return 1
	}
	return countLeaves(n.left) + countLeaves(n.right)
}

// Entries returns every (key, value) pair in unspecified order; used to
// reconstruct a Dictionary from a trie and by tests checking full
// round-trips.
func (t *Trie) Entries() map[types.Hash][]byte {
	out := make(map[types.Hash][]byte, t.Len())
	collect(t.root, out)
	return out
}

func collect(n *binaryNode, out map[types.Hash][]byte) {
	if n == nil {
		return
	}
	if n.isLeaf {
		out[n.key] = n.value
		return
	}
	collect(n.left, out)
	collect(n.right, out)
}

func getBit(h types.Hash, pos int) byte {
	byteIdx := pos / 8
	bitIdx := 7 - (pos % 8)
	if byteIdx >= 32 {
		return 0
	}
	return (h[byteIdx] >> uint(bitIdx)) & 1
}

func copyBytes(b []byte) []byte {
	c := make([]byte, len(b))
	copy(c, b)
	return c
}
