package mlsag

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"blockchain/internal/curve"
	"blockchain/pedersen"
)

func mustScalar(t *testing.T) curve.Scalar {
	t.Helper()
	s, err := curve.RandomScalar(rand.Reader)
	require.NoError(t, err)
	return s
}

func newTestRing(t *testing.T, numDecoys int, trueValue uint64) (*MlsagMaterial, pedersen.RevealedCommitment) {
	t.Helper()
	secret := mustScalar(t)
	trueOpening := pedersen.RevealedCommitment{Value: trueValue, Blinding: mustScalar(t)}
	trueInput := TrueInput{SecretKey: secret, RevealedCommitment: trueOpening}

	decoys := make([]DecoyInput, numDecoys)
	for i := 0; i < numDecoys; i++ {
		decoySecret := mustScalar(t)
		decoyOpening := pedersen.RevealedCommitment{Value: uint64(i + 100), Blinding: mustScalar(t)}
		decoys[i] = DecoyInput{
			PublicKey:  curve.Generator().Mul(decoySecret),
			Commitment: decoyOpening.Commit(),
		}
	}

	material, err := NewMlsagMaterial(trueInput, decoys)
	require.NoError(t, err)
	return material, trueOpening
}

// pseudoOpeningFor draws a fresh pseudo-commitment opening that commits to
// the same value as trueOpening, as the RingCT aggregator would.
func pseudoOpeningFor(t *testing.T, trueOpening pedersen.RevealedCommitment) pedersen.RevealedCommitment {
	t.Helper()
	return pedersen.RevealedCommitment{Value: trueOpening.Value, Blinding: mustScalar(t)}
}

func publicCommitmentsFor(material *MlsagMaterial, sig MlsagSignature) []curve.Point {
	ringSize := material.RingSize()
	out := make([]curve.Point, ringSize)
	// sig.Ring[i] is keyed by (pubkey, ledgerCommitment - pseudoCommitment); the
	// verifier wants the ledger commitment itself, so undo that subtraction.
	for i := 0; i < ringSize; i++ {
		out[i] = sig.Ring[i][1].Add(sig.PseudoCommitment)
	}
	return out
}

func TestSignVerifyRoundTrip(t *testing.T) {
	material, trueOpening := newTestRing(t, 2, 3)
	pseudoOpening := pseudoOpeningFor(t, trueOpening)
	msg := []byte("a signed message")

	sig, err := Sign(rand.Reader, msg, material, pseudoOpening)
	require.NoError(t, err)
	require.Equal(t, material.RingSize(), sig.RingSize())
	require.Equal(t, material.RingSize(), len(sig.R))

	err = Verify(msg, sig, publicCommitmentsFor(material, sig))
	require.NoError(t, err)
}

func TestChallengeClosure(t *testing.T) {
	material, trueOpening := newTestRing(t, 4, 7)
	pseudoOpening := pseudoOpeningFor(t, trueOpening)
	msg := []byte("challenge closure")

	sig, err := Sign(rand.Reader, msg, material, pseudoOpening)
	require.NoError(t, err)

	g := curve.Generator()
	c := sig.C0
	for n := 0; n < sig.RingSize(); n++ {
		l1 := g.Mul(sig.R[n][0]).Add(sig.Ring[n][0].Mul(c))
		l2 := g.Mul(sig.R[n][1]).Add(sig.Ring[n][1].Mul(c))
		r1 := curve.HashToCurve(sig.Ring[n][0]).Mul(sig.R[n][0]).Add(sig.KeyImage.Mul(c))
		c = cHash(msg, l1, l2, r1)
	}
	require.True(t, c.Equal(sig.C0))
}

func TestTamperedMessageFailsVerification(t *testing.T) {
	material, trueOpening := newTestRing(t, 2, 3)
	pseudoOpening := pseudoOpeningFor(t, trueOpening)
	msg := []byte("original message")

	sig, err := Sign(rand.Reader, msg, material, pseudoOpening)
	require.NoError(t, err)

	tampered := append([]byte{}, msg...)
	tampered[0] ^= 0x01

	err = Verify(tampered, sig, publicCommitmentsFor(material, sig))
	require.ErrorIs(t, err, ErrInvalidRingSignature)
}

func TestTamperedResponseFailsVerification(t *testing.T) {
	material, trueOpening := newTestRing(t, 2, 3)
	pseudoOpening := pseudoOpeningFor(t, trueOpening)
	msg := []byte("message")

	sig, err := Sign(rand.Reader, msg, material, pseudoOpening)
	require.NoError(t, err)

	publicCommitments := publicCommitmentsFor(material, sig)
	sig.R[0][0] = sig.R[0][0].Add(curve.OneScalar())

	err = Verify(msg, sig, publicCommitments)
	require.ErrorIs(t, err, ErrInvalidRingSignature)
}

func TestTamperedPseudoCommitmentFailsHiddenCommitmentCheck(t *testing.T) {
	material, trueOpening := newTestRing(t, 2, 3)
	pseudoOpening := pseudoOpeningFor(t, trueOpening)
	msg := []byte("message")

	sig, err := Sign(rand.Reader, msg, material, pseudoOpening)
	require.NoError(t, err)

	publicCommitments := publicCommitmentsFor(material, sig)
	unrelated := curve.Generator().Mul(mustScalar(t))
	sig.PseudoCommitment = unrelated

	err = Verify(msg, sig, publicCommitments)
	require.ErrorIs(t, err, ErrInvalidHiddenCommitment)
}

func TestKeyImageOffCurveRejected(t *testing.T) {
	material, trueOpening := newTestRing(t, 1, 3)
	pseudoOpening := pseudoOpeningFor(t, trueOpening)
	msg := []byte("message")

	sig, err := Sign(rand.Reader, msg, material, pseudoOpening)
	require.NoError(t, err)

	publicCommitments := publicCommitmentsFor(material, sig)
	sig.KeyImage = curve.Point{} // identity: rejected by Verify's explicit identity check

	err = Verify(msg, sig, publicCommitments)
	require.ErrorIs(t, err, ErrKeyImageNotOnCurve)
}

func TestRingCommitmentLengthMismatch(t *testing.T) {
	material, trueOpening := newTestRing(t, 2, 3)
	pseudoOpening := pseudoOpeningFor(t, trueOpening)
	msg := []byte("message")

	sig, err := Sign(rand.Reader, msg, material, pseudoOpening)
	require.NoError(t, err)

	short := publicCommitmentsFor(material, sig)[:len(sig.Ring)-1]
	err = Verify(msg, sig, short)
	require.ErrorIs(t, err, ErrExpectedPublicCommitments)
}

func TestKeyImageDeterminism(t *testing.T) {
	material, trueOpening := newTestRing(t, 2, 3)

	sigA, err := Sign(rand.Reader, []byte("msg a"), material, pseudoOpeningFor(t, trueOpening))
	require.NoError(t, err)
	sigB, err := Sign(rand.Reader, []byte("msg b"), material, pseudoOpeningFor(t, trueOpening))
	require.NoError(t, err)

	require.True(t, sigA.KeyImage.Equal(sigB.KeyImage), "same secret key must yield the same key image across signatures")
}

func TestDuplicateDecoyRejected(t *testing.T) {
	secret := mustScalar(t)
	trueOpening := pedersen.RevealedCommitment{Value: 1, Blinding: mustScalar(t)}
	trueInput := TrueInput{SecretKey: secret, RevealedCommitment: trueOpening}

	decoySecret := mustScalar(t)
	decoyOpening := pedersen.RevealedCommitment{Value: 2, Blinding: mustScalar(t)}
	decoy := DecoyInput{PublicKey: curve.Generator().Mul(decoySecret), Commitment: decoyOpening.Commit()}

	_, err := NewMlsagMaterial(trueInput, []DecoyInput{decoy, decoy})
	require.ErrorIs(t, err, ErrDuplicateDecoy)
}

func TestRingSizeOne(t *testing.T) {
	material, trueOpening := newTestRing(t, 0, 5)
	pseudoOpening := pseudoOpeningFor(t, trueOpening)
	msg := []byte("single member ring")

	sig, err := Sign(rand.Reader, msg, material, pseudoOpening)
	require.NoError(t, err)
	require.Len(t, sig.Ring, 1)

	err = Verify(msg, sig, publicCommitmentsFor(material, sig))
	require.NoError(t, err)
}
