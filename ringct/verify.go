package ringct

import (
	"fmt"

	"blockchain/internal/curve"
	"blockchain/mlsag"
	"blockchain/rangeproof"
)

// Verify checks tx against msg (spec.md §4.6): every MLSAG ring against
// its ledger-supplied public commitments, every output's range proof
// against a fresh transcript, and the homomorphic balance between input
// pseudo-commitments and output commitments.
//
// publicCommitments[i] must list the ledger's commitments for
// tx.Mlsags[i]'s ring members, in the same order as that ring.
func Verify(msg []byte, tx RingCtTransaction, publicCommitments [][]curve.Point) error {
	if len(publicCommitments) != len(tx.Mlsags) {
		return errMismatchedRingCount
	}

	for i, sig := range tx.Mlsags {
		if err := mlsag.Verify(msg, sig, publicCommitments[i]); err != nil {
			return fmt.Errorf("ringct: ring %d: %w", i, err)
		}
	}

	if err := verifyRangeProofs(tx); err != nil {
		return err
	}

	return verifyBalance(tx)
}

func verifyRangeProofs(tx RingCtTransaction) error {
	transcript := rangeproof.NewTranscript(TranscriptLabel)
	bpGens := bulletproofGens()
	pcGens := pedersenGens()
	for i, out := range tx.Outputs {
		if err := rangeproof.VerifySingle(transcript, bpGens, pcGens, out.Proof.RangeProof, out.Proof.Commitment, rangeproof.MaxBitLength); err != nil {
			return fmt.Errorf("ringct: output %d: %w", i, err)
		}
	}
	return nil
}

func verifyBalance(tx RingCtTransaction) error {
	if len(tx.Mlsags) == 0 || len(tx.Outputs) == 0 {
		return ErrInputPseudoCommitmentsDoNotSumToOutputCommitments
	}
	inputSum := tx.Mlsags[0].PseudoCommitment
	for i := 1; i < len(tx.Mlsags); i++ {
		inputSum = inputSum.Add(tx.Mlsags[i].PseudoCommitment)
	}
	outputSum := tx.Outputs[0].Proof.Commitment
	for i := 1; i < len(tx.Outputs); i++ {
		outputSum = outputSum.Add(tx.Outputs[i].Proof.Commitment)
	}
	if !inputSum.Equal(outputSum) {
		return ErrInputPseudoCommitmentsDoNotSumToOutputCommitments
	}
	return nil
}
