package crypto

import (
	"errors"

	"github.com/jamcore/jamcore/types"
	blst "github.com/supranational/blst/bindings/go"
)

// ErrInvalidBlsKey is returned when a 144-byte BlsKey field does not
// decompress to a well-formed pair of curve points.
var ErrInvalidBlsKey = errors.New("crypto: invalid bls key")

// ValidateBlsKey checks that the 144-byte BlsKey field decodes as a
// 48-byte compressed G1 point followed by a 96-byte compressed G2 point
// (the public-key / proof-of-possession pair validator metadata carries).
// The STF never verifies a BLS signature itself (spec.md Non-goals scope
// BLS entirely as an external collaborator). No STF stage calls this
// check: validator sets are rotated into ι/κ/λ without it.
func ValidateBlsKey(key types.BlsKey) error {
	g1 := new(blst.P1Affine).Deserialize(key[:48])
	if g1 == nil || !g1.KeyValidate() {
		return ErrInvalidBlsKey
	}
	g2 := new(blst.P2Affine).Deserialize(key[48:])
	if g2 == nil {
		return ErrInvalidBlsKey
	}
	return nil
}
