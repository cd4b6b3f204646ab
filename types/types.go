// Package types defines the fundamental value types shared by every JAM
// state component, extrinsic and host-call interface: hashes, slots,
// service/validator ids, gas and balance counters, entropy and the
// fixed-size cryptographic key types.
package types

import "encoding/hex"

// Hash is a 32-byte opaque identifier, the output of BLAKE2b-256 unless a
// field documents otherwise (e.g. the β Merkle-Mountain-Range uses
// Keccak-256).
type Hash [32]byte

// String renders the hash as a 0x-prefixed hex string.
func (h Hash) String() string {
	return "0x" + hex.EncodeToString(h[:])
}

// IsZero reports whether h is the all-zero hash.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// Less provides a total order over hashes, used to sort dictionary entries
// and verdict/judgement targets.
func (h Hash) Less(other Hash) bool {
	for i := range h {
		if h[i] != other[i] {
			return h[i] < other[i]
		}
	}
	return false
}

// TimeSlot is an unsigned 32-bit slot counter. Epoch = slot / epoch_length.
type TimeSlot uint32

// ServiceId is an unsigned 32-bit service index.
type ServiceId uint32

// ValidatorIndex indexes into the active validator set κ.
type ValidatorIndex uint16

// CoreIndex indexes one of the configured cores.
type CoreIndex uint16

// Gas is an unsigned 64-bit gas counter. Gas is never negative; exhaustion
// is reported as a terminal PVM outcome, not a negative value.
type Gas uint64

// Balance is an unsigned 64-bit balance counter in the service's native
// unit. Deduction never wraps below zero: state.ServiceAccount.DeductBalance
// refuses an amount larger than the balance and leaves it unchanged.
type Balance uint64

// Entropy is the four-slot entropy ring: index 0 is the live accumulator
// (η₀); 1..3 are the archived snapshots from the previous three epochs.
type Entropy [4]Hash

// BandersnatchKey is a 32-byte Bandersnatch public key, used for ticket
// envelopes and block seals.
type BandersnatchKey [32]byte

// Ed25519Key is a 32-byte Ed25519 public key, used for dispute judgement
// and assurance signatures.
type Ed25519Key [32]byte

// BlsKey is a 144-byte BLS public key material field carried in validator
// metadata. The STF itself never verifies BLS signatures (out of scope,
// spec.md Non-goals). crypto.ValidateBlsKey checks the bytes' structure,
// but no STF stage calls it.
type BlsKey [144]byte

// ValidatorMetadata is the 128-byte opaque metadata blob carried alongside
// each validator's keys (network address, etc.); the STF treats it as an
// opaque byte string.
type ValidatorMetadata [128]byte

// ValidatorKeys bundles the four key material fields the protocol carries
// per validator entry in γ/ι/κ/λ.
type ValidatorKeys struct {
	Bandersnatch BandersnatchKey
	Ed25519      Ed25519Key
	Bls          BlsKey
	Metadata     ValidatorMetadata
}

// Equal reports whether two ValidatorKeys are byte-for-byte identical.
func (v ValidatorKeys) Equal(o ValidatorKeys) bool {
	return v.Bandersnatch == o.Bandersnatch && v.Ed25519 == o.Ed25519 && v.Bls == o.Bls && v.Metadata == o.Metadata
}

// BandersnatchVrfSignature is a 96-byte Bandersnatch VRF signature, used for
// the block's entropy source and seal.
type BandersnatchVrfSignature [96]byte

// Ed25519Signature is a 64-byte Ed25519 signature.
type Ed25519Signature [64]byte

// BandersnatchRingSignature is a variable-length Bandersnatch ring
// signature over the current epoch's validator set; its length is fixed by
// the ring size, but the STF treats it as an opaque byte string passed to
// the ring-verification collaborator.
type BandersnatchRingSignature []byte
