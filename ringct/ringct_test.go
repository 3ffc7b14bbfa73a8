package ringct

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"blockchain/internal/curve"
	"blockchain/mlsag"
	"blockchain/pedersen"
)

func mustScalar(t *testing.T) curve.Scalar {
	t.Helper()
	s, err := curve.RandomScalar(rand.Reader)
	require.NoError(t, err)
	return s
}

// oneInputLedger builds a single MLSAG ring: one true input with the
// given value and blinding, plus numDecoys decoys drawn from a small
// fake ledger, mirroring the original Rust reference's TestLedger.
func oneInputLedger(t *testing.T, value uint64, blinding curve.Scalar, numDecoys int) *mlsag.MlsagMaterial {
	t.Helper()
	secret := mustScalar(t)
	trueOpening := pedersen.RevealedCommitment{Value: value, Blinding: blinding}
	trueInput := mlsag.TrueInput{SecretKey: secret, RevealedCommitment: trueOpening}

	decoys := make([]mlsag.DecoyInput, numDecoys)
	for i := 0; i < numDecoys; i++ {
		decoySecret := mustScalar(t)
		decoyOpening := pedersen.RevealedCommitment{Value: uint64(1000 + i), Blinding: mustScalar(t)}
		decoys[i] = mlsag.DecoyInput{
			PublicKey:  curve.Generator().Mul(decoySecret),
			Commitment: decoyOpening.Commit(),
		}
	}

	material, err := mlsag.NewMlsagMaterial(trueInput, decoys)
	require.NoError(t, err)
	return material
}

// publicCommitmentsFromSignature recovers the ledger's commitments for a
// ring from its signature: ring[i].1 == ledgerCommitment[i] - pseudoCommitment.
func publicCommitmentsFromSignature(sig mlsagSig) []curve.Point {
	out := make([]curve.Point, len(sig.Ring))
	for i := range sig.Ring {
		out[i] = sig.Ring[i][1].Add(sig.PseudoCommitment)
	}
	return out
}

type mlsagSig = struct {
	Ring             [][2]curve.Point
	PseudoCommitment curve.Point
}

// S1: one input with value 3, blinding 5, two random decoys; one output
// value 3 to a random public key. verify -> success.
func TestS1_SimpleTransactionVerifies(t *testing.T) {
	blinding := curve.ScalarFromUint64(5)
	ring := oneInputLedger(t, 3, blinding, 2)

	recipient := curve.Generator().Mul(mustScalar(t))
	material, err := NewRingCtMaterial(
		[]*mlsag.MlsagMaterial{ring},
		[]Output{{PublicKey: recipient, Amount: 3}},
	)
	require.NoError(t, err)

	msg, tx, _, err := Sign(rand.Reader, material)
	require.NoError(t, err)

	publicCommitments := [][]curve.Point{publicCommitmentsFromSignature(mlsagSig{
		Ring:             tx.Mlsags[0].Ring,
		PseudoCommitment: tx.Mlsags[0].PseudoCommitment,
	})}

	err = Verify(msg, tx, publicCommitments)
	require.NoError(t, err)
}

// S2: same as S1 but change one byte of msg before calling verify.
func TestS2_TamperedMessageFailsRingVerification(t *testing.T) {
	blinding := curve.ScalarFromUint64(5)
	ring := oneInputLedger(t, 3, blinding, 2)
	recipient := curve.Generator().Mul(mustScalar(t))
	material, err := NewRingCtMaterial([]*mlsag.MlsagMaterial{ring}, []Output{{PublicKey: recipient, Amount: 3}})
	require.NoError(t, err)

	msg, tx, _, err := Sign(rand.Reader, material)
	require.NoError(t, err)

	tampered := append([]byte{}, msg...)
	tampered[0] ^= 0x01

	publicCommitments := [][]curve.Point{publicCommitmentsFromSignature(mlsagSig{
		Ring:             tx.Mlsags[0].Ring,
		PseudoCommitment: tx.Mlsags[0].PseudoCommitment,
	})}

	err = Verify(tampered, tx, publicCommitments)
	require.ErrorIs(t, err, mlsag.ErrInvalidRingSignature)
}

// S3: replace mlsags[0].pseudo_commitment with an unrelated random point.
func TestS3_TamperedPseudoCommitmentFailsHiddenCommitmentCheck(t *testing.T) {
	blinding := curve.ScalarFromUint64(5)
	ring := oneInputLedger(t, 3, blinding, 2)
	recipient := curve.Generator().Mul(mustScalar(t))
	material, err := NewRingCtMaterial([]*mlsag.MlsagMaterial{ring}, []Output{{PublicKey: recipient, Amount: 3}})
	require.NoError(t, err)

	msg, tx, _, err := Sign(rand.Reader, material)
	require.NoError(t, err)

	publicCommitments := [][]curve.Point{publicCommitmentsFromSignature(mlsagSig{
		Ring:             tx.Mlsags[0].Ring,
		PseudoCommitment: tx.Mlsags[0].PseudoCommitment,
	})}

	tx.Mlsags[0].PseudoCommitment = curve.Generator().Mul(mustScalar(t))

	err = Verify(msg, tx, publicCommitments)
	require.ErrorIs(t, err, mlsag.ErrInvalidHiddenCommitment)
}

// S4: two inputs with values (2, 5), one output with value 7 -> success.
func TestS4_TwoInputsBalance(t *testing.T) {
	ringA := oneInputLedger(t, 2, mustScalar(t), 1)
	ringB := oneInputLedger(t, 5, mustScalar(t), 1)
	recipient := curve.Generator().Mul(mustScalar(t))

	material, err := NewRingCtMaterial(
		[]*mlsag.MlsagMaterial{ringA, ringB},
		[]Output{{PublicKey: recipient, Amount: 7}},
	)
	require.NoError(t, err)

	msg, tx, _, err := Sign(rand.Reader, material)
	require.NoError(t, err)

	publicCommitments := make([][]curve.Point, len(tx.Mlsags))
	for i, sig := range tx.Mlsags {
		publicCommitments[i] = publicCommitmentsFromSignature(mlsagSig{Ring: sig.Ring, PseudoCommitment: sig.PseudoCommitment})
	}

	err = Verify(msg, tx, publicCommitments)
	require.NoError(t, err)
}

// S4 negative: force pseudo-commitments to disagree with output sum.
func TestS4Negative_SkewedBalanceFailsVerification(t *testing.T) {
	ringA := oneInputLedger(t, 2, mustScalar(t), 1)
	ringB := oneInputLedger(t, 5, mustScalar(t), 1)
	recipient := curve.Generator().Mul(mustScalar(t))

	material, err := NewRingCtMaterial(
		[]*mlsag.MlsagMaterial{ringA, ringB},
		[]Output{{PublicKey: recipient, Amount: 7}},
	)
	require.NoError(t, err)

	msg, tx, _, err := Sign(rand.Reader, material)
	require.NoError(t, err)

	publicCommitments := make([][]curve.Point, len(tx.Mlsags))
	for i, sig := range tx.Mlsags {
		publicCommitments[i] = publicCommitmentsFromSignature(mlsagSig{Ring: sig.Ring, PseudoCommitment: sig.PseudoCommitment})
	}

	// A signer that skews their own pseudo-commitment (not via the honest
	// signing path) breaks the balance invariant even when every ring and
	// range proof still verifies individually.
	tx.Mlsags[0].PseudoCommitment = tx.Mlsags[0].PseudoCommitment.Add(curve.Generator())
	for j := range publicCommitments[0] {
		publicCommitments[0][j] = publicCommitments[0][j].Add(curve.Generator())
	}

	err = Verify(msg, tx, publicCommitments)
	require.ErrorIs(t, err, ErrInputPseudoCommitmentsDoNotSumToOutputCommitments)
}

// S5: verify with public_commitments one shorter than ring.
func TestS5_ShortPublicCommitmentsListFails(t *testing.T) {
	blinding := curve.ScalarFromUint64(5)
	ring := oneInputLedger(t, 3, blinding, 2)
	recipient := curve.Generator().Mul(mustScalar(t))
	material, err := NewRingCtMaterial([]*mlsag.MlsagMaterial{ring}, []Output{{PublicKey: recipient, Amount: 3}})
	require.NoError(t, err)

	msg, tx, _, err := Sign(rand.Reader, material)
	require.NoError(t, err)

	full := publicCommitmentsFromSignature(mlsagSig{Ring: tx.Mlsags[0].Ring, PseudoCommitment: tx.Mlsags[0].PseudoCommitment})
	short := full[:len(full)-1]

	err = Verify(msg, tx, [][]curve.Point{short})
	require.ErrorIs(t, err, mlsag.ErrExpectedPublicCommitments)
}

// S6: key image replaced with the identity point.
func TestS6_IdentityKeyImageRejected(t *testing.T) {
	blinding := curve.ScalarFromUint64(5)
	ring := oneInputLedger(t, 3, blinding, 2)
	recipient := curve.Generator().Mul(mustScalar(t))
	material, err := NewRingCtMaterial([]*mlsag.MlsagMaterial{ring}, []Output{{PublicKey: recipient, Amount: 3}})
	require.NoError(t, err)

	msg, tx, _, err := Sign(rand.Reader, material)
	require.NoError(t, err)

	publicCommitments := [][]curve.Point{publicCommitmentsFromSignature(mlsagSig{Ring: tx.Mlsags[0].Ring, PseudoCommitment: tx.Mlsags[0].PseudoCommitment})}
	tx.Mlsags[0].KeyImage = curve.Point{}

	err = Verify(msg, tx, publicCommitments)
	require.ErrorIs(t, err, mlsag.ErrKeyImageNotOnCurve)
}

func TestNoOutputsRejected(t *testing.T) {
	ring := oneInputLedger(t, 3, mustScalar(t), 1)
	_, err := NewRingCtMaterial([]*mlsag.MlsagMaterial{ring}, nil)
	require.ErrorIs(t, err, ErrNoOutputs)
}
