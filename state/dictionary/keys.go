// Package dictionary projects a state.State into a flat key/value
// dictionary and Merklizes it into a 32-byte state root (spec.md §4.4).
// Grounded on the teacher's binary Merkle trie (pkg/trie/binary.go) for the
// tree mechanics, with BLAKE2b-256 substituted for the teacher's
// keccak256 (spec.md fixes BLAKE2b-256 as the state dictionary's hash,
// reserving Keccak-256 for the β Merkle-Mountain-Range only).
package dictionary

import (
	"encoding/binary"

	"github.com/jamcore/jamcore/types"
)

// ServiceDataSubtype disambiguates what a service-data key's value
// represents; it rides alongside the key/value pair as a sidecar field
// rather than being recoverable from the key bytes alone (see DESIGN.md's
// "service-data key subtype" decision).
type ServiceDataSubtype byte

const (
	SubtypeServiceHeader ServiceDataSubtype = iota
	SubtypeStorage
	SubtypePreimage
	SubtypePreimageLookup
)

// serviceSentinel marks the first byte of every service-keyed entry. It is
// δ's component id (state.ComponentDelta, 255), kept distinct from the
// fifteen single-byte component ids (1..15) used for the named non-service
// components.
const serviceSentinel = 0xFF

// ComponentKey returns the dictionary key for a whole-state component
// addressed by its small integer id (state.ComponentAlpha etc.). The
// remaining 31 bytes are zero: component ids never collide with the
// service sentinel, and the keyspace per component needs no further
// structure since each one is a single dictionary entry.
func ComponentKey(id byte) types.Hash {
	var k types.Hash
	k[0] = id
	return k
}

// CoreComponentKey addresses one core's slot of a per-core component (α, φ,
// ρ), by folding the core index into bytes 1..2 after the component id.
func CoreComponentKey(id byte, core types.CoreIndex) types.Hash {
	var k types.Hash
	k[0] = id
	binary.BigEndian.PutUint16(k[1:3], uint16(core))
	return k
}

// SlotComponentKey addresses one slot's entry of a per-slot component (a
// single θ[slot] bucket), by folding the slot into bytes 1..4.
func SlotComponentKey(id byte, slot types.TimeSlot) types.Hash {
	var k types.Hash
	k[0] = id
	binary.BigEndian.PutUint32(k[1:5], uint32(slot))
	return k
}

// RingComponentKey addresses one ring slot of ξ.
func RingComponentKey(id byte, ringIndex uint32) types.Hash {
	var k types.Hash
	k[0] = id
	binary.BigEndian.PutUint32(k[1:5], ringIndex)
	return k
}

// ServiceBaseKey addresses a service's header entry (code hash, balance,
// gas minimums): serviceSentinel followed by the big-endian service id,
// with the header subtype tag (zero) in byte 5 and the remaining bytes
// zero. Data keys carry a non-zero subtype in byte 9, so header keys never
// collide with them.
func ServiceBaseKey(svc types.ServiceId) types.Hash {
	var k types.Hash
	k[0] = serviceSentinel
	binary.BigEndian.PutUint32(k[1:5], uint32(svc))
	k[5] = byte(SubtypeServiceHeader)
	return k
}

// ServiceDataKey addresses one storage/preimage/lookup entry belonging to
// svc. The service id and the entry's own content hash are interleaved
// byte-by-byte (id[0], hash[0], id[1], hash[1], id[2], hash[2], id[3],
// hash[3], hash[4:]) so that entries belonging to the same service do not
// cluster into one trie subtree keyed purely by a shared prefix, while
// entries are still fully addressed by (service, subtype, hash).
func ServiceDataKey(svc types.ServiceId, subtype ServiceDataSubtype, dataHash types.Hash) types.Hash {
	var k types.Hash
	k[0] = serviceSentinel
	var idBytes [4]byte
	binary.BigEndian.PutUint32(idBytes[:], uint32(svc))
	for i := 0; i < 4; i++ {
		k[1+2*i] = idBytes[i]
		k[2+2*i] = dataHash[i]
	}
	k[9] = byte(subtype)
	copy(k[10:], dataHash[4:26])
	return k
}
