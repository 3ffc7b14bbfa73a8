// Package pedersen implements value-hiding Pedersen commitments over the
// curve package's G1 subgroup: C = blinding*G + value*H, with G the
// canonical curve generator and H a nothing-up-my-sleeve point derived by
// hash-to-curve (spec.md §3, §4.2).
package pedersen

import (
	"encoding/binary"
	"fmt"
	"io"

	"blockchain/internal/curve"
)

// hLabel is the domain-separation label H is derived from. Fixed forever:
// changing it changes every commitment on the chain.
const hLabel = "BLST_RINGCT_PEDERSEN_H"

var hGenerator = curve.DeriveGenerator(hLabel)

// Generators returns the fixed (G, H) generator pair used by every
// commitment in this module. G is shared with the MLSAG signature scheme
// by construction (spec.md §9 open question 2).
func Generators() (g, h curve.Point) {
	return curve.Generator(), hGenerator
}

// RevealedCommitment is an opened commitment: the value and blinding
// factor that justify it. Serializes as 8 bytes little-endian value
// followed by 32 bytes little-endian blinding (spec.md §3, §6: 40 bytes).
type RevealedCommitment struct {
	Value    uint64
	Blinding curve.Scalar
}

// RevealedCommitmentSize is the fixed wire size of a RevealedCommitment.
const RevealedCommitmentSize = 8 + curve.ScalarSize

// Commit computes C = blinding*G + value*H, matching the convention the
// range-proof generators must share (spec.md §4.2, §6 "Constants").
func Commit(value uint64, blinding curve.Scalar) curve.Point {
	g, h := Generators()
	return g.Mul(blinding).Add(h.Mul(curve.ScalarFromUint64(value)))
}

// NewRandomCommitment draws a fresh blinding factor from rng and commits
// to value, returning both the opening and the resulting point.
func NewRandomCommitment(rng io.Reader, value uint64) (RevealedCommitment, curve.Point, error) {
	blinding, err := curve.RandomScalar(rng)
	if err != nil {
		return RevealedCommitment{}, curve.Point{}, fmt.Errorf("pedersen: sample blinding: %w", err)
	}
	rc := RevealedCommitment{Value: value, Blinding: blinding}
	return rc, rc.Commit(), nil
}

// Commit recomputes the commitment point this opening corresponds to.
func (rc RevealedCommitment) Commit() curve.Point {
	return Commit(rc.Value, rc.Blinding)
}

// Verify reports whether c opens to rc.
func (rc RevealedCommitment) Verify(c curve.Point) bool {
	return rc.Commit().Equal(c)
}

// Bytes encodes rc as 8 bytes little-endian value || 32 bytes little-endian
// blinding factor.
func (rc RevealedCommitment) Bytes() [RevealedCommitmentSize]byte {
	var out [RevealedCommitmentSize]byte
	binary.LittleEndian.PutUint64(out[:8], rc.Value)
	b := rc.Blinding.Bytes()
	copy(out[8:], b[:])
	return out
}

// RevealedCommitmentFromBytes decodes the wire layout produced by Bytes.
func RevealedCommitmentFromBytes(b [RevealedCommitmentSize]byte) (RevealedCommitment, error) {
	value := binary.LittleEndian.Uint64(b[:8])
	var blindingBytes [curve.ScalarSize]byte
	copy(blindingBytes[:], b[8:])
	blinding, ok := curve.ScalarFromCanonicalLE(blindingBytes)
	if !ok {
		return RevealedCommitment{}, fmt.Errorf("pedersen: blinding factor out of canonical range")
	}
	return RevealedCommitment{Value: value, Blinding: blinding}, nil
}
