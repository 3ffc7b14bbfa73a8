package rangeproof

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"blockchain/internal/curve"
)

func TestProveVerifySingleRoundTrip(t *testing.T) {
	bp := NewBulletproofGens(MaxBitLength)
	pc := DefaultPedersenGens()

	for _, value := range []uint64{0, 1, 42, 1 << 32, ^uint64(0)} {
		blinding, err := curve.RandomScalar(rand.Reader)
		require.NoError(t, err)

		proverT := NewTranscript([]byte("BLST_RINGCT"))
		proof, commitment, err := ProveSingle(rand.Reader, proverT, bp, pc, value, blinding, MaxBitLength)
		require.NoError(t, err)

		verifierT := NewTranscript([]byte("BLST_RINGCT"))
		err = VerifySingle(verifierT, bp, pc, proof, commitment, MaxBitLength)
		require.NoError(t, err, "value=%d", value)
	}
}

func TestVerifyRejectsWrongCommitment(t *testing.T) {
	bp := NewBulletproofGens(MaxBitLength)
	pc := DefaultPedersenGens()
	blinding, err := curve.RandomScalar(rand.Reader)
	require.NoError(t, err)

	proverT := NewTranscript([]byte("BLST_RINGCT"))
	proof, _, err := ProveSingle(rand.Reader, proverT, bp, pc, 7, blinding, MaxBitLength)
	require.NoError(t, err)

	otherBlinding, err := curve.RandomScalar(rand.Reader)
	require.NoError(t, err)
	wrongCommitment := pc.Commit(7, otherBlinding)

	verifierT := NewTranscript([]byte("BLST_RINGCT"))
	err = VerifySingle(verifierT, bp, pc, proof, wrongCommitment, MaxBitLength)
	require.ErrorIs(t, err, ErrVerificationFailed)
}

func TestVerifyRejectsTamperedProof(t *testing.T) {
	bp := NewBulletproofGens(MaxBitLength)
	pc := DefaultPedersenGens()
	blinding, err := curve.RandomScalar(rand.Reader)
	require.NoError(t, err)

	proverT := NewTranscript([]byte("BLST_RINGCT"))
	proof, commitment, err := ProveSingle(rand.Reader, proverT, bp, pc, 7, blinding, MaxBitLength)
	require.NoError(t, err)

	proof.THat = proof.THat.Add(curve.OneScalar())

	verifierT := NewTranscript([]byte("BLST_RINGCT"))
	err = VerifySingle(verifierT, bp, pc, proof, commitment, MaxBitLength)
	require.ErrorIs(t, err, ErrVerificationFailed)
}

func TestRangeProofByteRoundTrip(t *testing.T) {
	bp := NewBulletproofGens(MaxBitLength)
	pc := DefaultPedersenGens()
	blinding, err := curve.RandomScalar(rand.Reader)
	require.NoError(t, err)

	proverT := NewTranscript([]byte("BLST_RINGCT"))
	proof, commitment, err := ProveSingle(rand.Reader, proverT, bp, pc, 123456, blinding, MaxBitLength)
	require.NoError(t, err)

	encoded := proof.Bytes()
	decoded, err := RangeProofFromBytes(encoded)
	require.NoError(t, err)

	verifierT := NewTranscript([]byte("BLST_RINGCT"))
	err = VerifySingle(verifierT, bp, pc, decoded, commitment, MaxBitLength)
	require.NoError(t, err)
}

func TestMismatchedTranscriptLabelFailsVerification(t *testing.T) {
	bp := NewBulletproofGens(MaxBitLength)
	pc := DefaultPedersenGens()
	blinding, err := curve.RandomScalar(rand.Reader)
	require.NoError(t, err)

	proverT := NewTranscript([]byte("BLST_RINGCT"))
	proof, commitment, err := ProveSingle(rand.Reader, proverT, bp, pc, 7, blinding, MaxBitLength)
	require.NoError(t, err)

	verifierT := NewTranscript([]byte("SOME_OTHER_LABEL"))
	err = VerifySingle(verifierT, bp, pc, proof, commitment, MaxBitLength)
	require.ErrorIs(t, err, ErrVerificationFailed)
}
