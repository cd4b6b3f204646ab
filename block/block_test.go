package block

import (
	"testing"

	"github.com/jamcore/jamcore/state"
	"github.com/jamcore/jamcore/types"
)

func sampleBlock() *Block {
	b := &Block{}
	b.Header.ParentHash = types.Hash{1}
	b.Header.ParentStateRoot = types.Hash{2}
	b.Header.ExtrinsicHash = types.Hash{3}
	b.Header.Slot = 99
	b.Header.AuthorIndex = 4
	b.Header.EpochMarker = []byte("epoch-7")

	b.Extrinsic.Tickets = []TicketEnvelope{{EntryIndex: 1, Proof: types.BandersnatchRingSignature{9, 9, 9}}}
	b.Extrinsic.Preimages = []PreimageExtrinsic{{ServiceId: 5, Data: []byte("preimage-bytes")}}
	b.Extrinsic.Assurances = []Assurance{{ValidatorIndex: 2, Anchor: types.Hash{7}, Bitfield: state.NewBitfield(6)}}
	b.Extrinsic.Guarantees = []Guarantee{{
		Report: state.WorkReport{PackageHash: types.Hash{8}, Core: 1, Slot: 50, ServiceId: 5, Output: []byte("out")},
		Slot:   50,
		Signatures: []GuarantorSignature{{ValidatorIndex: 3}},
	}}
	b.Extrinsic.Disputes = []DisputeVerdict{{
		ReportHash: types.Hash{11},
		Age:        2,
		Votes:      []DisputeVote{{ValidatorIndex: 1, Valid: true}},
	}}
	return b
}

func TestBlockEncodeDecodeRoundTrip(t *testing.T) {
	b := sampleBlock()
	enc := b.Encode()
	got, err := Decode(enc)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Header.ParentHash != b.Header.ParentHash || got.Header.Slot != b.Header.Slot {
		t.Fatalf("header mismatch: %+v", got.Header)
	}
	if string(got.Header.EpochMarker) != "epoch-7" {
		t.Fatalf("epoch marker mismatch: %q", got.Header.EpochMarker)
	}
	if len(got.Extrinsic.Tickets) != 1 || got.Extrinsic.Tickets[0].EntryIndex != 1 {
		t.Fatalf("tickets mismatch: %+v", got.Extrinsic.Tickets)
	}
	if len(got.Extrinsic.Preimages) != 1 || string(got.Extrinsic.Preimages[0].Data) != "preimage-bytes" {
		t.Fatalf("preimages mismatch: %+v", got.Extrinsic.Preimages)
	}
	if len(got.Extrinsic.Guarantees) != 1 || got.Extrinsic.Guarantees[0].Report.PackageHash != b.Extrinsic.Guarantees[0].Report.PackageHash {
		t.Fatalf("guarantees mismatch: %+v", got.Extrinsic.Guarantees)
	}
	if len(got.Extrinsic.Disputes) != 1 || !got.Extrinsic.Disputes[0].Votes[0].Valid {
		t.Fatalf("disputes mismatch: %+v", got.Extrinsic.Disputes)
	}
}

func TestBlockEncodeDecodeEmptyExtrinsic(t *testing.T) {
	b := &Block{}
	enc := b.Encode()
	got, err := Decode(enc)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(got.Extrinsic.Tickets) != 0 || len(got.Extrinsic.Guarantees) != 0 {
		t.Fatalf("expected empty extrinsic, got %+v", got.Extrinsic)
	}
}
