// Package block defines the wire-level Header/Extrinsic/Block types the
// importer consumes (spec.md §6) and their codec-based encode/decode
// pair, grounded on the teacher's block/header RLP encode/decode pair
// (core/types/block.go, core/types/block_rlp.go) adapted to the codec
// package's Scanner/Encoder instead of RLP.
package block

import (
	"github.com/jamcore/jamcore/codec"
	"github.com/jamcore/jamcore/crypto"
	"github.com/jamcore/jamcore/state"
	"github.com/jamcore/jamcore/types"
)

// Header is a block's header fields: parent link, state roots, slot,
// entropy-source VRF signature, and seal.
type Header struct {
	ParentHash      types.Hash
	ParentStateRoot types.Hash
	ExtrinsicHash   types.Hash
	Slot            types.TimeSlot
	EpochMarker     []byte // optional; non-empty only at an epoch boundary
	TicketsMarker   []byte // optional; non-empty only when the boundary's sealing keys derive from tickets rather than fallback entropy
	VrfSignature    types.BandersnatchVrfSignature
	Seal            types.BandersnatchVrfSignature
	AuthorIndex     types.ValidatorIndex
}

// DisputeVerdict is one judgement extrinsic entry: a work-report hash, the
// ed25519 judgements cast against it, and (depending on which way the
// verdict falls) the culprits or faults that license it.
type DisputeVerdict struct {
	ReportHash types.Hash
	Age        uint32 // epoch the judgement was cast in
	Votes      []DisputeVote
	Culprits   []Culprit // required when the verdict resolves Bad
	Faults     []Fault   // required when the verdict resolves Good
}

// DisputeVote is one validator's signed judgement within a verdict.
type DisputeVote struct {
	ValidatorIndex types.ValidatorIndex
	Valid          bool
	Signature      types.Ed25519Signature
}

// Culprit is a guarantor's signature certifying that a report the
// supermajority judged Bad was one they themselves reported, surrendering
// their key to the offender set.
type Culprit struct {
	Key       types.Ed25519Key
	Signature types.Ed25519Signature
}

// Fault is a validator's signature over an Invalid vote on a report the
// super-majority judged Good — i.e. one of the dissenting votes a Good
// verdict must name at least two of.
type Fault struct {
	Key       types.Ed25519Key
	Signature types.Ed25519Signature
}

// Assurance is one validator's availability bitfield for the current
// block's pending reports.
type Assurance struct {
	ValidatorIndex types.ValidatorIndex
	Anchor         types.Hash
	Bitfield       state.Bitfield
	Signature      types.Ed25519Signature
}

// Guarantee bundles a work report with the guarantor signatures attesting
// to it.
type Guarantee struct {
	Report     state.WorkReport
	Slot       types.TimeSlot
	Signatures []GuarantorSignature
}

// GuarantorSignature is one guarantor's ed25519 signature over a report.
type GuarantorSignature struct {
	ValidatorIndex types.ValidatorIndex
	Signature      types.Ed25519Signature
}

// PreimageExtrinsic supplies a service's requested preimage bytes.
type PreimageExtrinsic struct {
	ServiceId types.ServiceId
	Data      []byte
}

// TicketEnvelope is one safrole ticket submission.
type TicketEnvelope struct {
	EntryIndex uint8
	Proof      types.BandersnatchRingSignature
}

// Extrinsic bundles the five extrinsic kinds a block may carry.
type Extrinsic struct {
	Tickets    []TicketEnvelope
	Disputes   []DisputeVerdict
	Preimages  []PreimageExtrinsic
	Assurances []Assurance
	Guarantees []Guarantee
}

// Block is a header plus its extrinsic data.
type Block struct {
	Header    Header
	Extrinsic Extrinsic
}

// Encode returns h's codec encoding.
func (h Header) Encode() []byte {
	e := codec.NewEncoder()
	encodeHeader(e, h)
	return e.Bytes()
}

// Hash returns the Blake2b-256 hash of h's encoded form, the "header hash"
// the importer appends to β and later blocks reference as ParentHash.
func (h Header) Hash() types.Hash {
	return crypto.Blake2b256(h.Encode())
}

// SealMessage returns the bytes a seal signs: the header's encoding with
// Seal itself zeroed out, so the seal never has to sign over its own bytes.
// The safrole stage verifies the block's Seal (and, over the same message,
// its entropy-source VrfSignature) against this.
func (h Header) SealMessage() []byte {
	unsealed := h
	unsealed.Seal = types.BandersnatchVrfSignature{}
	return unsealed.Encode()
}

// Encode serializes b using the codec package's varint/sequence grammar.
func (b *Block) Encode() []byte {
	e := codec.NewEncoder()
	encodeHeader(e, b.Header)
	encodeExtrinsic(e, b.Extrinsic)
	return e.Bytes()
}

// Encode serializes x using the codec package's varint/sequence grammar.
func (x Extrinsic) Encode() []byte {
	e := codec.NewEncoder()
	encodeExtrinsic(e, x)
	return e.Bytes()
}

// Hash returns the Blake2b-256 hash of x's encoded form, the value a
// block's Header.ExtrinsicHash must carry.
func (x Extrinsic) Hash() types.Hash {
	return crypto.Blake2b256(x.Encode())
}

// Decode deserializes a Block from buf.
func Decode(buf []byte) (*Block, error) {
	s := codec.NewScanner(buf)
	h, err := decodeHeader(s)
	if err != nil {
		return nil, err
	}
	ext, err := decodeExtrinsic(s)
	if err != nil {
		return nil, err
	}
	return &Block{Header: h, Extrinsic: ext}, nil
}

func encodeHeader(e *codec.Encoder, h Header) {
	e.WriteBytes(h.ParentHash[:])
	e.WriteBytes(h.ParentStateRoot[:])
	e.WriteBytes(h.ExtrinsicHash[:])
	e.WriteFixedU32(uint32(h.Slot))
	e.WriteBytesSeq(h.EpochMarker)
	e.WriteBytesSeq(h.TicketsMarker)
	e.WriteBytes(h.VrfSignature[:])
	e.WriteBytes(h.Seal[:])
	e.WriteFixedU16(uint16(h.AuthorIndex))
}

func decodeHeader(s *codec.Scanner) (Header, error) {
	var h Header
	ph, err := s.ReadHash()
	if err != nil {
		return h, err
	}
	h.ParentHash = types.Hash(ph)
	psr, err := s.ReadHash()
	if err != nil {
		return h, err
	}
	h.ParentStateRoot = types.Hash(psr)
	eh, err := s.ReadHash()
	if err != nil {
		return h, err
	}
	h.ExtrinsicHash = types.Hash(eh)
	slot, err := s.ReadFixedU32()
	if err != nil {
		return h, err
	}
	h.Slot = types.TimeSlot(slot)
	h.EpochMarker, err = s.ReadBytesSeq()
	if err != nil {
		return h, err
	}
	h.EpochMarker = append([]byte(nil), h.EpochMarker...)
	h.TicketsMarker, err = s.ReadBytesSeq()
	if err != nil {
		return h, err
	}
	h.TicketsMarker = append([]byte(nil), h.TicketsMarker...)
	vrf, err := s.ReadBytes(96)
	if err != nil {
		return h, err
	}
	copy(h.VrfSignature[:], vrf)
	seal, err := s.ReadBytes(96)
	if err != nil {
		return h, err
	}
	copy(h.Seal[:], seal)
	ai, err := s.ReadFixedU16()
	if err != nil {
		return h, err
	}
	h.AuthorIndex = types.ValidatorIndex(ai)
	return h, nil
}

func encodeExtrinsic(e *codec.Encoder, x Extrinsic) {
	e.WriteSequenceLen(len(x.Tickets))
	for _, t := range x.Tickets {
		e.WriteByte(t.EntryIndex)
		e.WriteBytesSeq(t.Proof)
	}
	e.WriteSequenceLen(len(x.Disputes))
	for _, d := range x.Disputes {
		e.WriteBytes(d.ReportHash[:])
		e.WriteFixedU32(d.Age)
		e.WriteSequenceLen(len(d.Votes))
		for _, v := range d.Votes {
			e.WriteFixedU16(uint16(v.ValidatorIndex))
			e.WriteOptionalTag(v.Valid)
			e.WriteBytes(v.Signature[:])
		}
		e.WriteSequenceLen(len(d.Culprits))
		for _, c := range d.Culprits {
			e.WriteBytes(c.Key[:])
			e.WriteBytes(c.Signature[:])
		}
		e.WriteSequenceLen(len(d.Faults))
		for _, f := range d.Faults {
			e.WriteBytes(f.Key[:])
			e.WriteBytes(f.Signature[:])
		}
	}
	e.WriteSequenceLen(len(x.Preimages))
	for _, p := range x.Preimages {
		e.WriteFixedU32(uint32(p.ServiceId))
		e.WriteBytesSeq(p.Data)
	}
	e.WriteSequenceLen(len(x.Assurances))
	for _, a := range x.Assurances {
		e.WriteFixedU16(uint16(a.ValidatorIndex))
		e.WriteBytes(a.Anchor[:])
		e.WriteBytesSeq(a.Bitfield)
		e.WriteBytes(a.Signature[:])
	}
	e.WriteSequenceLen(len(x.Guarantees))
	for _, g := range x.Guarantees {
		encodeWorkReport(e, g.Report)
		e.WriteFixedU32(uint32(g.Slot))
		e.WriteSequenceLen(len(g.Signatures))
		for _, sig := range g.Signatures {
			e.WriteFixedU16(uint16(sig.ValidatorIndex))
			e.WriteBytes(sig.Signature[:])
		}
	}
}

func decodeExtrinsic(s *codec.Scanner) (Extrinsic, error) {
	var x Extrinsic
	n, err := s.ReadSequenceLen()
	if err != nil {
		return x, err
	}
	x.Tickets = make([]TicketEnvelope, n)
	for i := 0; i < n; i++ {
		idx, err := s.ReadByte()
		if err != nil {
			return x, err
		}
		proof, err := s.ReadBytesSeq()
		if err != nil {
			return x, err
		}
		x.Tickets[i] = TicketEnvelope{EntryIndex: idx, Proof: append(types.BandersnatchRingSignature(nil), proof...)}
	}

	n, err = s.ReadSequenceLen()
	if err != nil {
		return x, err
	}
	x.Disputes = make([]DisputeVerdict, n)
	for i := 0; i < n; i++ {
		rh, err := s.ReadHash()
		if err != nil {
			return x, err
		}
		age, err := s.ReadFixedU32()
		if err != nil {
			return x, err
		}
		nv, err := s.ReadSequenceLen()
		if err != nil {
			return x, err
		}
		votes := make([]DisputeVote, nv)
		for j := 0; j < nv; j++ {
			vi, err := s.ReadFixedU16()
			if err != nil {
				return x, err
			}
			valid, err := s.ReadOptionalTag()
			if err != nil {
				return x, err
			}
			sig, err := s.ReadBytes(64)
			if err != nil {
				return x, err
			}
			var sigArr types.Ed25519Signature
			copy(sigArr[:], sig)
			votes[j] = DisputeVote{ValidatorIndex: types.ValidatorIndex(vi), Valid: valid, Signature: sigArr}
		}

		nc, err := s.ReadSequenceLen()
		if err != nil {
			return x, err
		}
		culprits := make([]Culprit, nc)
		for j := 0; j < nc; j++ {
			key, err := s.ReadBytes(32)
			if err != nil {
				return x, err
			}
			sig, err := s.ReadBytes(64)
			if err != nil {
				return x, err
			}
			var c Culprit
			copy(c.Key[:], key)
			copy(c.Signature[:], sig)
			culprits[j] = c
		}

		nf, err := s.ReadSequenceLen()
		if err != nil {
			return x, err
		}
		faults := make([]Fault, nf)
		for j := 0; j < nf; j++ {
			key, err := s.ReadBytes(32)
			if err != nil {
				return x, err
			}
			sig, err := s.ReadBytes(64)
			if err != nil {
				return x, err
			}
			var f Fault
			copy(f.Key[:], key)
			copy(f.Signature[:], sig)
			faults[j] = f
		}

		x.Disputes[i] = DisputeVerdict{ReportHash: types.Hash(rh), Age: age, Votes: votes, Culprits: culprits, Faults: faults}
	}

	n, err = s.ReadSequenceLen()
	if err != nil {
		return x, err
	}
	x.Preimages = make([]PreimageExtrinsic, n)
	for i := 0; i < n; i++ {
		svc, err := s.ReadFixedU32()
		if err != nil {
			return x, err
		}
		data, err := s.ReadBytesSeq()
		if err != nil {
			return x, err
		}
		x.Preimages[i] = PreimageExtrinsic{ServiceId: types.ServiceId(svc), Data: append([]byte(nil), data...)}
	}

	n, err = s.ReadSequenceLen()
	if err != nil {
		return x, err
	}
	x.Assurances = make([]Assurance, n)
	for i := 0; i < n; i++ {
		vi, err := s.ReadFixedU16()
		if err != nil {
			return x, err
		}
		anchor, err := s.ReadHash()
		if err != nil {
			return x, err
		}
		bf, err := s.ReadBytesSeq()
		if err != nil {
			return x, err
		}
		sig, err := s.ReadBytes(64)
		if err != nil {
			return x, err
		}
		var sigArr types.Ed25519Signature
		copy(sigArr[:], sig)
		x.Assurances[i] = Assurance{ValidatorIndex: types.ValidatorIndex(vi), Anchor: types.Hash(anchor), Bitfield: state.Bitfield(append([]byte(nil), bf...)), Signature: sigArr}
	}

	n, err = s.ReadSequenceLen()
	if err != nil {
		return x, err
	}
	x.Guarantees = make([]Guarantee, n)
	for i := 0; i < n; i++ {
		report, err := decodeWorkReport(s)
		if err != nil {
			return x, err
		}
		slot, err := s.ReadFixedU32()
		if err != nil {
			return x, err
		}
		ns, err := s.ReadSequenceLen()
		if err != nil {
			return x, err
		}
		sigs := make([]GuarantorSignature, ns)
		for j := 0; j < ns; j++ {
			vi, err := s.ReadFixedU16()
			if err != nil {
				return x, err
			}
			sig, err := s.ReadBytes(64)
			if err != nil {
				return x, err
			}
			var sigArr types.Ed25519Signature
			copy(sigArr[:], sig)
			sigs[j] = GuarantorSignature{ValidatorIndex: types.ValidatorIndex(vi), Signature: sigArr}
		}
		x.Guarantees[i] = Guarantee{Report: report, Slot: types.TimeSlot(slot), Signatures: sigs}
	}
	return x, nil
}

func encodeWorkReport(e *codec.Encoder, r state.WorkReport) {
	e.WriteBytes(r.PackageHash[:])
	e.WriteFixedU16(uint16(r.Core))
	e.WriteBytes(r.Authorizer[:])
	e.WriteBytes(r.AnchorBlock[:])
	e.WriteFixedU32(uint32(r.Slot))
	e.WriteSequenceLen(len(r.Prerequisites))
	for _, h := range r.Prerequisites {
		e.WriteBytes(h[:])
	}
	e.WriteFixedU64(r.GasRatioNum)
	e.WriteFixedU64(r.GasRatioDen)
	e.WriteFixedU32(uint32(r.ServiceId))
	e.WriteBytesSeq(r.Output)
}

func decodeWorkReport(s *codec.Scanner) (state.WorkReport, error) {
	var r state.WorkReport
	pkg, err := s.ReadHash()
	if err != nil {
		return r, err
	}
	r.PackageHash = types.Hash(pkg)
	core, err := s.ReadFixedU16()
	if err != nil {
		return r, err
	}
	r.Core = types.CoreIndex(core)
	auth, err := s.ReadHash()
	if err != nil {
		return r, err
	}
	r.Authorizer = types.Hash(auth)
	anchor, err := s.ReadHash()
	if err != nil {
		return r, err
	}
	r.AnchorBlock = types.Hash(anchor)
	slot, err := s.ReadFixedU32()
	if err != nil {
		return r, err
	}
	r.Slot = types.TimeSlot(slot)
	n, err := s.ReadSequenceLen()
	if err != nil {
		return r, err
	}
	r.Prerequisites = make([]types.Hash, n)
	for i := 0; i < n; i++ {
		h, err := s.ReadHash()
		if err != nil {
			return r, err
		}
		r.Prerequisites[i] = types.Hash(h)
	}
	r.GasRatioNum, err = s.ReadFixedU64()
	if err != nil {
		return r, err
	}
	r.GasRatioDen, err = s.ReadFixedU64()
	if err != nil {
		return r, err
	}
	svc, err := s.ReadFixedU32()
	if err != nil {
		return r, err
	}
	r.ServiceId = types.ServiceId(svc)
	out, err := s.ReadBytesSeq()
	if err != nil {
		return r, err
	}
	r.Output = append([]byte(nil), out...)
	return r, nil
}
