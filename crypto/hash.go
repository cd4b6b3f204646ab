// Package crypto adapts the STF's narrow cryptographic collaborator
// interfaces (spec.md §6) to concrete libraries: BLAKE2b-256 and
// Keccak-256 hashing, Ed25519 signature verification, and validated
// wrappers around the Bandersnatch and BLS key material the state model
// carries. Grounded on the teacher's crypto.Keccak256/Keccak256Hash wrapper
// shape (crypto/keccak.go).
package crypto

import (
	"crypto/ed25519"

	"github.com/jamcore/jamcore/types"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"
)

// Blake2b256 computes the BLAKE2b-256 hash of the concatenation of data.
// Every state component and preimage hash in the spec is defined in terms
// of this primitive unless explicitly noted otherwise.
func Blake2b256(data ...[]byte) types.Hash {
	h, err := blake2b.New256(nil)
	if err != nil {
		// blake2b.New256 only fails for an over-long key, and we never pass
		// one; a failure here means the standard library itself is broken.
		panic("crypto: blake2b.New256: " + err.Error())
	}
	for _, b := range data {
		h.Write(b)
	}
	var out types.Hash
	copy(out[:], h.Sum(nil))
	return out
}

// Keccak256 computes the Keccak-256 hash of the concatenation of data. Used
// for the β Merkle-Mountain-Range accumulate-root combination (spec.md §3,
// §4.7), matching the teacher's Keccak256Hash wrapper shape.
func Keccak256(data ...[]byte) types.Hash {
	d := sha3.NewLegacyKeccak256()
	for _, b := range data {
		d.Write(b)
	}
	var out types.Hash
	copy(out[:], d.Sum(nil))
	return out
}

// Ed25519Verify verifies an Ed25519 signature over msg under key. It never
// panics; a malformed key or signature is simply an invalid signature.
func Ed25519Verify(key types.Ed25519Key, msg []byte, sig types.Ed25519Signature) bool {
	return ed25519.Verify(key[:], msg, sig[:])
}
