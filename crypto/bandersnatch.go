package crypto

import (
	"errors"

	"github.com/consensys/gnark-crypto/ecc/bandersnatch"
	"github.com/jamcore/jamcore/types"
)

// ErrInvalidBandersnatchPoint is returned when a 32-byte key does not
// decompress to a point on the Bandersnatch curve.
var ErrInvalidBandersnatchPoint = errors.New("crypto: invalid bandersnatch point")

// ValidateBandersnatchKey checks that key decompresses to a valid
// Bandersnatch curve point. No STF stage calls it: validator sets are
// rotated into ι/κ/λ without this check.
func ValidateBandersnatchKey(key types.BandersnatchKey) error {
	var p bandersnatch.PointAffine
	if _, err := p.SetBytes(key[:]); err != nil {
		return ErrInvalidBandersnatchPoint
	}
	return nil
}

// VrfVerifier verifies a Bandersnatch VRF signature and recovers its
// output hash, used both for seal verification (the sealing key signs the
// block) and the entropy source. The STF depends only on this interface;
// spec.md §1 scopes the VRF math itself as an external collaborator.
type VrfVerifier interface {
	Verify(key types.BandersnatchKey, msg []byte, sig types.BandersnatchVrfSignature) (ok bool, output types.Hash)
}

// RingVerifier verifies a Bandersnatch ring signature against a ring root
// commitment, used for ticket envelope verification. Like VrfVerifier, the
// ring-proof arithmetic is an external collaborator; the STF only needs
// the pass/fail outcome.
type RingVerifier interface {
	Verify(root types.Hash, msg []byte, sig types.BandersnatchRingSignature) bool
}

// NullVrfVerifier and NullRingVerifier are safe zero-value collaborators:
// they reject everything. A block importer constructed without explicit
// verifiers fails closed instead of silently accepting unsigned blocks.
type NullVrfVerifier struct{}

func (NullVrfVerifier) Verify(types.BandersnatchKey, []byte, types.BandersnatchVrfSignature) (bool, types.Hash) {
	return false, types.Hash{}
}

type NullRingVerifier struct{}

func (NullRingVerifier) Verify(types.Hash, []byte, types.BandersnatchRingSignature) bool {
	return false
}
