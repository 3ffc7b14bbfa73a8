package rangeproof

import (
	"fmt"
	"math/bits"

	"blockchain/internal/curve"
	"blockchain/pedersen"
)

// MaxBitLength is the only bit-length this deployment supports (spec.md
// §6 "Range-proof parameters": bit-length 64).
const MaxBitLength = 64

// Parties is fixed at 1: this package implements single-value proofs
// only, never multi-party aggregation (spec.md §1 Non-goals).
const Parties = 1

// PedersenGens is the (B, BBlinding) generator pair the range proof
// commits values against. It is required to coincide with package
// pedersen's (H, G) so a RingCT output commitment and its range proof
// describe the same point (spec.md §6 "Constants").
type PedersenGens struct {
	B         curve.Point // value generator
	BBlinding curve.Point // blinding generator
}

// DefaultPedersenGens returns the deployment's fixed generator pair,
// aliased directly to package pedersen's (H, G).
func DefaultPedersenGens() PedersenGens {
	g, h := pedersen.Generators()
	return PedersenGens{B: h, BBlinding: g}
}

// Commit computes B*value + BBlinding*blinding, identical to
// pedersen.Commit for the shared generator pair.
func (pg PedersenGens) Commit(value uint64, blinding curve.Scalar) curve.Point {
	return pg.BBlinding.Mul(blinding).Add(pg.B.Mul(curve.ScalarFromUint64(value)))
}

// BulletproofGens holds the per-bit vector generators and the extra
// binding generator U the inner-product argument needs.
type BulletproofGens struct {
	G []curve.Point
	H []curve.Point
	U curve.Point
}

// NewBulletproofGens derives n vector generators deterministically via
// hash-to-curve, labeled so they never collide with the Pedersen or MLSAG
// generators (spec.md §6 "Range-proof generators are built with these
// exact constants").
func NewBulletproofGens(n int) BulletproofGens {
	g := make([]curve.Point, n)
	h := make([]curve.Point, n)
	for i := 0; i < n; i++ {
		g[i] = curve.DeriveGenerator(fmt.Sprintf("BLST_RINGCT_BP_G_%d", i))
		h[i] = curve.DeriveGenerator(fmt.Sprintf("BLST_RINGCT_BP_H_%d", i))
	}
	u := curve.DeriveGenerator("BLST_RINGCT_BP_U")
	return BulletproofGens{G: g, H: h, U: u}
}

// isPowerOfTwo reports whether n is a positive power of two, required for
// the inner-product argument's recursive halving.
func isPowerOfTwo(n int) bool {
	return n > 0 && bits.OnesCount(uint(n)) == 1
}

func log2(n int) int {
	return bits.TrailingZeros(uint(n))
}
