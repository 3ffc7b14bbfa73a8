package mlsag

import (
	"blockchain/internal/curve"
)

// Verify checks sig against msg and publicCommitments, the ledger's
// commitments for each ring member in the same order as sig.Ring
// (spec.md §4.4). Checks short-circuit in the order listed there.
func Verify(msg []byte, sig MlsagSignature, publicCommitments []curve.Point) error {
	ringSize := sig.RingSize()

	if len(publicCommitments) != ringSize {
		return ErrExpectedPublicCommitments
	}
	if len(sig.R) != ringSize {
		return ErrInvalidRingSignature
	}

	for i := 0; i < ringSize; i++ {
		expected := publicCommitments[i].Sub(sig.PseudoCommitment)
		if !sig.Ring[i][1].Equal(expected) {
			return ErrInvalidHiddenCommitment
		}
	}

	if sig.KeyImage.IsIdentity() || !sig.KeyImage.IsInSubgroup() {
		return ErrKeyImageNotOnCurve
	}

	g := curve.Generator()
	c := sig.C0
	for n := 0; n < ringSize; n++ {
		l1 := g.Mul(sig.R[n][0]).Add(sig.Ring[n][0].Mul(c))
		l2 := g.Mul(sig.R[n][1]).Add(sig.Ring[n][1].Mul(c))
		r1 := curve.HashToCurve(sig.Ring[n][0]).Mul(sig.R[n][0]).Add(sig.KeyImage.Mul(c))
		c = cHash(msg, l1, l2, r1)
	}

	if !c.Equal(sig.C0) {
		return ErrInvalidRingSignature
	}
	return nil
}
