// Package curve wraps the BLS12-381 G1 group and scalar field behind the
// small surface the MLSAG, Pedersen and range-proof packages need: scalar
// sampling, point arithmetic, hash-to-scalar and hash-to-curve. Everything
// above this package is written against Scalar/Point, never against
// gnark-crypto directly, so the curve choice stays swappable in one place.
package curve

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math/big"

	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"golang.org/x/crypto/sha3"
)

// CompressedSize is the canonical compressed encoding size for a G1 point.
const CompressedSize = 48

// ScalarSize is the little-endian encoding size of a Scalar.
const ScalarSize = 32

// Scalar is an element of BLS12-381's prime scalar field.
type Scalar struct {
	v fr.Element
}

// Point is an element of the prime-order subgroup of BLS12-381's G1.
type Point struct {
	v bls12381.G1Jac
}

var baseG1Jac, _, _, _ = bls12381.Generators()

// Generator returns the curve's canonical G1 generator, used directly as
// the MLSAG "G" (open question #2 in spec.md §9: the reference assumes
// this coincides with the Pedersen G, and this module enforces that by
// construction rather than sampling a second point).
func Generator() Point {
	return Point{v: baseG1Jac}
}

// RandomScalar draws a uniformly random scalar from rng. The caller MUST
// pass a cryptographically secure source (crypto/rand.Reader in
// production); signing correctness depends on fresh randomness per call.
func RandomScalar(rng io.Reader) (Scalar, error) {
	var s fr.Element
	if _, err := s.SetRandom(); err != nil {
		// fr.Element.SetRandom reads from crypto/rand internally; rng is
		// honored by sampling our own bytes when a non-default source is
		// supplied.
		return Scalar{}, err
	}
	if rng != rand.Reader {
		buf := make([]byte, ScalarSize+16)
		if _, err := io.ReadFull(rng, buf); err != nil {
			return Scalar{}, err
		}
		var z big.Int
		z.SetBytes(buf)
		z.Mod(&z, fr.Modulus())
		s.SetBigInt(&z)
	}
	return Scalar{v: s}, nil
}

// ScalarFromUint64 embeds a small integer (e.g. an amount) as a scalar.
func ScalarFromUint64(v uint64) Scalar {
	var s fr.Element
	s.SetUint64(v)
	return Scalar{v: s}
}

// ZeroScalar returns the additive identity scalar.
func ZeroScalar() Scalar {
	return Scalar{}
}

// OneScalar returns the multiplicative identity scalar.
func OneScalar() Scalar {
	var s fr.Element
	s.SetOne()
	return Scalar{v: s}
}

func (s Scalar) Add(o Scalar) Scalar {
	var r fr.Element
	r.Add(&s.v, &o.v)
	return Scalar{v: r}
}

func (s Scalar) Sub(o Scalar) Scalar {
	var r fr.Element
	r.Sub(&s.v, &o.v)
	return Scalar{v: r}
}

func (s Scalar) Mul(o Scalar) Scalar {
	var r fr.Element
	r.Mul(&s.v, &o.v)
	return Scalar{v: r}
}

func (s Scalar) Neg() Scalar {
	var r fr.Element
	r.Neg(&s.v)
	return Scalar{v: r}
}

func (s Scalar) Inverse() Scalar {
	var r fr.Element
	r.Inverse(&s.v)
	return Scalar{v: r}
}

func (s Scalar) Equal(o Scalar) bool {
	return s.v.Equal(&o.v)
}

func (s Scalar) IsZero() bool {
	return s.v.IsZero()
}

// Bytes encodes the scalar little-endian, per spec.md §6.
func (s Scalar) Bytes() [ScalarSize]byte {
	be := s.v.Bytes() // gnark-crypto returns canonical big-endian bytes
	var le [ScalarSize]byte
	for i := 0; i < ScalarSize; i++ {
		le[i] = be[ScalarSize-1-i]
	}
	return le
}

// ScalarFromCanonicalLE decodes a little-endian scalar, rejecting values
// that are not in canonical range (i.e. >= field modulus).
func ScalarFromCanonicalLE(le [ScalarSize]byte) (Scalar, bool) {
	be := reverse32(le)
	var asInt big.Int
	asInt.SetBytes(be[:])
	if asInt.Cmp(fr.Modulus()) >= 0 {
		return Scalar{}, false
	}
	var s fr.Element
	s.SetBytes(be[:])
	return Scalar{v: s}, true
}

func reverse32(b [32]byte) [32]byte {
	var out [32]byte
	for i := 0; i < 32; i++ {
		out[i] = b[31-i]
	}
	return out
}

// MarshalJSON encodes the scalar as hex of its canonical little-endian
// bytes, so a struct embedding a Scalar serializes losslessly through
// encoding/json (the field's own fr.Element is unexported).
func (s Scalar) MarshalJSON() ([]byte, error) {
	b := s.Bytes()
	return json.Marshal(hex.EncodeToString(b[:]))
}

func (s *Scalar) UnmarshalJSON(data []byte) error {
	var h string
	if err := json.Unmarshal(data, &h); err != nil {
		return err
	}
	raw, err := hex.DecodeString(h)
	if err != nil {
		return err
	}
	if len(raw) != ScalarSize {
		return fmt.Errorf("curve: scalar JSON has %d bytes, want %d", len(raw), ScalarSize)
	}
	var le [ScalarSize]byte
	copy(le[:], raw)
	decoded, ok := ScalarFromCanonicalLE(le)
	if !ok {
		return fmt.Errorf("curve: scalar JSON encodes a value outside the field")
	}
	*s = decoded
	return nil
}

// Add returns p+q.
func (p Point) Add(q Point) Point {
	var r bls12381.G1Jac
	r.Set(&p.v).AddAssign(&q.v)
	return Point{v: r}
}

// Sub returns p-q.
func (p Point) Sub(q Point) Point {
	var negQ bls12381.G1Jac
	negQ.Neg(&q.v)
	var r bls12381.G1Jac
	r.Set(&p.v).AddAssign(&negQ)
	return Point{v: r}
}

// Neg returns -p.
func (p Point) Neg() Point {
	var r bls12381.G1Jac
	r.Neg(&p.v)
	return Point{v: r}
}

// Mul returns s*p.
func (p Point) Mul(s Scalar) Point {
	var r bls12381.G1Jac
	r.ScalarMultiplication(&p.v, s.v.BigInt(new(big.Int)))
	return Point{v: r}
}

// Equal compares two points for equality (handles differing internal
// Jacobian representations of the same affine point).
func (p Point) Equal(q Point) bool {
	var a, b bls12381.G1Affine
	a.FromJacobian(&p.v)
	b.FromJacobian(&q.v)
	return a.Equal(&b)
}

// IsIdentity reports whether p is the point at infinity.
func (p Point) IsIdentity() bool {
	var a bls12381.G1Affine
	a.FromJacobian(&p.v)
	return a.IsInfinity()
}

// IsOnCurve reports whether the point's affine form satisfies the curve
// equation. A malformed Point value (e.g. decompressed from corrupt bytes)
// cannot be constructed in the first place by this package's Decompress,
// so this mainly documents the check spec.md §4.4 step 3 asks for.
func (p Point) IsOnCurve() bool {
	var a bls12381.G1Affine
	a.FromJacobian(&p.v)
	return a.IsOnCurve()
}

// IsInSubgroup reports whether p lies in the prime-order subgroup of G1.
// spec.md §9 open question 1: BLS12-381's G1 has a large cofactor, so an
// on-curve check alone is not sufficient to rule out small-subgroup
// elements. This module takes the stricter check as the default instead
// of silently deciding the open question away.
func (p Point) IsInSubgroup() bool {
	var a bls12381.G1Affine
	a.FromJacobian(&p.v)
	return a.IsInSubGroup()
}

// Compress encodes p as 48 compressed bytes.
func (p Point) Compress() [CompressedSize]byte {
	var a bls12381.G1Affine
	a.FromJacobian(&p.v)
	return a.Bytes()
}

// Decompress parses 48 compressed bytes into a Point.
func Decompress(b [CompressedSize]byte) (Point, error) {
	var a bls12381.G1Affine
	if _, err := a.SetBytes(b[:]); err != nil {
		return Point{}, err
	}
	var j bls12381.G1Jac
	j.FromAffine(&a)
	return Point{v: j}, nil
}

// MarshalJSON encodes the point as hex of its compressed bytes, so a
// struct embedding a Point serializes losslessly through encoding/json.
func (p Point) MarshalJSON() ([]byte, error) {
	b := p.Compress()
	return json.Marshal(hex.EncodeToString(b[:]))
}

func (p *Point) UnmarshalJSON(data []byte) error {
	var h string
	if err := json.Unmarshal(data, &h); err != nil {
		return err
	}
	raw, err := hex.DecodeString(h)
	if err != nil {
		return err
	}
	if len(raw) != CompressedSize {
		return fmt.Errorf("curve: point JSON has %d bytes, want %d", len(raw), CompressedSize)
	}
	var b [CompressedSize]byte
	copy(b[:], raw)
	decoded, err := Decompress(b)
	if err != nil {
		return err
	}
	*p = decoded
	return nil
}

// HashToScalar feeds every chunk into SHA3-256, reinterprets the digest as
// a little-endian scalar, and re-hashes the digest itself until the result
// falls in canonical range. Deterministic and total (spec.md §4.1).
func HashToScalar(chunks ...[]byte) Scalar {
	digest := sha3Sum(chunks)
	for {
		if s, ok := ScalarFromCanonicalLE(digest); ok {
			return s
		}
		digest = sha3Sum([][]byte{digest[:]})
	}
}

func sha3Sum(chunks [][]byte) [32]byte {
	h := sha3.New256()
	for _, c := range chunks {
		h.Write(c)
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// hToCurveDST is the domain separation tag for the H_p hash-to-curve
// function used for key images (spec.md §3, §4.3).
var hToCurveDST = []byte("BLST_RINGCT_HASH_TO_CURVE")

// HashToCurve implements H_p: hash-to-curve into the prime-order subgroup
// of G1, used to derive the key-image base point from a public key.
func HashToCurve(p Point) Point {
	msg := p.Compress()
	aff, err := bls12381.HashToG1(msg[:], hToCurveDST)
	if err != nil {
		// HashToG1 only fails on malformed DST/msg inputs, never on valid
		// fixed-size compressed point bytes; a failure here means the
		// gnark-crypto hash-to-curve suite itself is broken.
		panic("curve: hash-to-curve failed: " + err.Error())
	}
	var j bls12381.G1Jac
	j.FromAffine(&aff)
	return Point{v: j}
}

// DeriveGenerator derives a nothing-up-my-sleeve generator point from a
// label, by hashing the label to the curve under hToCurveDST. Used for the
// Pedersen H generator and the Bulletproof vector generators.
func DeriveGenerator(label string) Point {
	aff, err := bls12381.HashToG1([]byte(label), hToCurveDST)
	if err != nil {
		panic("curve: derive generator failed: " + err.Error())
	}
	var j bls12381.G1Jac
	j.FromAffine(&aff)
	return Point{v: j}
}
