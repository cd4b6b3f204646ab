package dictionary

import (
	"fmt"

	"github.com/jamcore/jamcore/config"
	"github.com/jamcore/jamcore/state"
	"github.com/jamcore/jamcore/types"
)

// Entry is one dictionary value together with the sidecar tag needed to
// reconstruct which service-data map it belongs to (storage, preimage, or
// preimage-lookup); see keys.go's ServiceDataSubtype doc comment.
type Entry struct {
	Value   []byte
	Subtype ServiceDataSubtype
	Service types.ServiceId // zero for non-service components
}

// Dictionary is the flat key/value projection of a State (spec.md §4.4).
type Dictionary map[types.Hash]Entry

// Serialize projects s into its dictionary form. Every component becomes
// one or more entries; per-service data is addressed by ServiceDataKey so
// two services' identically-shaped storage maps never collide.
func Serialize(s *state.State) Dictionary {
	d := make(Dictionary)

	for core, hs := range s.Alpha {
		d[CoreComponentKey(state.ComponentAlpha, core)] = Entry{Value: state.EncodeAuthPool(hs)}
	}
	for core, hs := range s.Phi {
		d[CoreComponentKey(state.ComponentPhi, core)] = Entry{Value: state.EncodeAuthPool(hs)}
	}
	d[ComponentKey(state.ComponentBeta)] = Entry{Value: state.EncodeBeta(s.Beta)}
	d[ComponentKey(state.ComponentGamma)] = Entry{Value: state.EncodeGamma(s.Gamma)}
	d[ComponentKey(state.ComponentPsi)] = Entry{Value: state.EncodePsi(s.Psi)}
	d[ComponentKey(state.ComponentEta)] = Entry{Value: encodeEntropy(s.Eta)}
	d[ComponentKey(state.ComponentIota)] = Entry{Value: encodeValidatorList(s.Iota)}
	d[ComponentKey(state.ComponentKappa)] = Entry{Value: encodeValidatorList(s.Kappa)}
	d[ComponentKey(state.ComponentLambda)] = Entry{Value: encodeValidatorList(s.Lambda)}
	for core, p := range s.Rho {
		d[CoreComponentKey(state.ComponentRho, core)] = Entry{Value: state.EncodeRho(p)}
	}
	d[ComponentKey(state.ComponentTau)] = Entry{Value: encodeSlot(s.Tau)}
	d[ComponentKey(state.ComponentChi)] = Entry{Value: state.EncodeChi(s.Chi)}
	d[ComponentKey(state.ComponentPi)] = Entry{Value: state.EncodePi(s.Pi)}
	for slot, reports := range s.Theta {
		d[SlotComponentKey(state.ComponentTheta, slot)] = Entry{Value: state.EncodeTheta(reports)}
	}
	for i, ringSet := range s.Xi {
		d[RingComponentKey(state.ComponentXi, uint32(i))] = Entry{Value: state.EncodeXiRing(ringSet)}
	}

	for id, acc := range s.Delta {
		d[ServiceBaseKey(id)] = Entry{Value: state.EncodeServiceAccount(acc), Subtype: SubtypeServiceHeader, Service: id}
		for k, v := range acc.Storage {
			d[ServiceDataKey(id, SubtypeStorage, k)] = Entry{Value: append([]byte(nil), v...), Subtype: SubtypeStorage, Service: id}
		}
		for k, v := range acc.Preimages {
			d[ServiceDataKey(id, SubtypePreimage, k)] = Entry{Value: append([]byte(nil), v...), Subtype: SubtypePreimage, Service: id}
		}
	}
	return d
}

// Reconstruct rebuilds a State from a Dictionary. Every service header
// entry already fully encodes that service's storage/preimage/lookup maps
// (see state.EncodeServiceAccount), so the separate per-entry
// ServiceDataKey projections in the dictionary are redundant for
// reconstruction purposes and exist for Merkle-proof addressability of
// individual storage cells, not as Reconstruct's source of truth.
func Reconstruct(d Dictionary, cfg *config.Config) (*state.State, error) {
	s := state.NewEmpty(cfg)

	for key, entry := range d {
		if key[0] == serviceSentinel {
			if entry.Subtype != SubtypeServiceHeader {
				continue
			}
			acc, err := state.DecodeServiceAccount(entry.Value)
			if err != nil {
				return nil, err
			}
			s.Delta[entry.Service] = acc
			continue
		}
		switch key[0] {
		case state.ComponentAlpha:
			hs, err := state.DecodeAuthPool(entry.Value)
			if err != nil {
				return nil, err
			}
			s.Alpha[coreFromKey(key)] = hs
		case state.ComponentPhi:
			hs, err := state.DecodeAuthPool(entry.Value)
			if err != nil {
				return nil, err
			}
			s.Phi[coreFromKey(key)] = hs
		case state.ComponentBeta:
			beta, err := state.DecodeBeta(entry.Value)
			if err != nil {
				return nil, err
			}
			s.Beta = beta
		case state.ComponentGamma:
			g, err := state.DecodeGamma(entry.Value)
			if err != nil {
				return nil, err
			}
			s.Gamma = g
		case state.ComponentPsi:
			p, err := state.DecodePsi(entry.Value)
			if err != nil {
				return nil, err
			}
			s.Psi = p
		case state.ComponentEta:
			s.Eta = decodeEntropy(entry.Value)
		case state.ComponentIota:
			vs, err := decodeValidatorList(entry.Value)
			if err != nil {
				return nil, err
			}
			s.Iota = vs
		case state.ComponentKappa:
			vs, err := decodeValidatorList(entry.Value)
			if err != nil {
				return nil, err
			}
			s.Kappa = vs
		case state.ComponentLambda:
			vs, err := decodeValidatorList(entry.Value)
			if err != nil {
				return nil, err
			}
			s.Lambda = vs
		case state.ComponentRho:
			p, err := state.DecodeRho(entry.Value)
			if err != nil {
				return nil, err
			}
			s.Rho[coreFromKey(key)] = p
		case state.ComponentTau:
			s.Tau = decodeSlot(entry.Value)
		case state.ComponentChi:
			c, err := state.DecodeChi(entry.Value)
			if err != nil {
				return nil, err
			}
			s.Chi = c
		case state.ComponentPi:
			p, err := state.DecodePi(entry.Value)
			if err != nil {
				return nil, err
			}
			s.Pi = p
		case state.ComponentTheta:
			reports, err := state.DecodeTheta(entry.Value)
			if err != nil {
				return nil, err
			}
			s.Theta[slotFromKey(key)] = reports
		case state.ComponentXi:
			hs, err := state.DecodeXiRing(entry.Value)
			if err != nil {
				return nil, err
			}
			idx := ringIndexFromKey(key)
			for uint32(len(s.Xi)) <= idx {
				s.Xi = append(s.Xi, nil)
			}
			s.Xi[idx] = hs
		default:
			return nil, fmt.Errorf("%w: id %d", state.ErrUnknownComponent, key[0])
		}
	}
	return s, nil
}

// Root computes the BLAKE2b-256 Merkle root of d.
func Root(d Dictionary) types.Hash {
	t := NewTrie()
	for k, v := range d {
		t.Put(k, v.Value)
	}
	return t.Root()
}

func encodeEntropy(e types.Entropy) []byte {
	out := make([]byte, 0, 128)
	for _, h := range e {
		out = append(out, h[:]...)
	}
	return out
}

func decodeEntropy(b []byte) types.Entropy {
	var e types.Entropy
	for i := range e {
		if (i+1)*32 <= len(b) {
			copy(e[i][:], b[i*32:(i+1)*32])
		}
	}
	return e
}

func encodeSlot(slot types.TimeSlot) []byte {
	return []byte{byte(slot), byte(slot >> 8), byte(slot >> 16), byte(slot >> 24)}
}

func decodeSlot(b []byte) types.TimeSlot {
	if len(b) < 4 {
		return 0
	}
	return types.TimeSlot(uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24)
}

func encodeValidatorList(vs []types.ValidatorKeys) []byte {
	out := make([]byte, 0, len(vs)*(32+32+144+128))
	for _, v := range vs {
		out = append(out, v.Bandersnatch[:]...)
		out = append(out, v.Ed25519[:]...)
		out = append(out, v.Bls[:]...)
		out = append(out, v.Metadata[:]...)
	}
	return out
}

const validatorEntryLen = 32 + 32 + 144 + 128

func decodeValidatorList(b []byte) ([]types.ValidatorKeys, error) {
	n := len(b) / validatorEntryLen
	out := make([]types.ValidatorKeys, n)
	for i := 0; i < n; i++ {
		off := i * validatorEntryLen
		var v types.ValidatorKeys
		copy(v.Bandersnatch[:], b[off:off+32])
		copy(v.Ed25519[:], b[off+32:off+64])
		copy(v.Bls[:], b[off+64:off+208])
		copy(v.Metadata[:], b[off+208:off+336])
		out[i] = v
	}
	return out, nil
}

func coreFromKey(k types.Hash) types.CoreIndex {
	return types.CoreIndex(uint16(k[1])<<8 | uint16(k[2]))
}

func slotFromKey(k types.Hash) types.TimeSlot {
	return types.TimeSlot(uint32(k[1])<<24 | uint32(k[2])<<16 | uint32(k[3])<<8 | uint32(k[4]))
}

func ringIndexFromKey(k types.Hash) uint32 {
	return uint32(k[1])<<24 | uint32(k[2])<<16 | uint32(k[3])<<8 | uint32(k[4])
}
