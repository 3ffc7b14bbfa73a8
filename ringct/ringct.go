// Package ringct assembles per-input MLSAG rings and per-output range
// proofs into a single signed confidential transaction: the RingCT
// aggregator and verifier of spec.md §4.5-4.6.
package ringct

import (
	"errors"

	"blockchain/internal/curve"
	"blockchain/mlsag"
	"blockchain/rangeproof"
)

// TranscriptLabel is the ASCII domain label both signer and verifier must
// initialize their range-proof transcript with (spec.md §6).
var TranscriptLabel = []byte("BLST_RINGCT")

var (
	// ErrNoOutputs is the structural signing precondition of spec.md §4.5
	// step 3: a transaction must have at least one output.
	ErrNoOutputs = errors.New("ringct: transaction must have at least one output")

	// ErrInputPseudoCommitmentsDoNotSumToOutputCommitments is the RingCT
	// verifier's balance check failure (spec.md §4.6 step 3, §7).
	ErrInputPseudoCommitmentsDoNotSumToOutputCommitments = errors.New("ringct: sum of input pseudo-commitments does not equal sum of output commitments")

	errMismatchedRingCount = errors.New("ringct: number of public-commitment rings does not match number of mlsags")
)

// Output is a pre-sign output: who receives it and how much.
type Output struct {
	PublicKey curve.Point
	Amount    uint64
}

// OutputProof is a post-sign output proof: a range proof that Commitment
// opens to a value in [0, 2^64), without revealing the value.
type OutputProof struct {
	RangeProof rangeproof.RangeProof
	Commitment curve.Point
}

// Bytes encodes an OutputProof as the range proof's canonical bytes
// followed by the 48-byte compressed commitment (spec.md §6).
func (op OutputProof) Bytes() []byte {
	rp := op.RangeProof.Bytes()
	c := op.Commitment.Compress()
	out := make([]byte, 0, len(rp)+len(c))
	out = append(out, rp...)
	out = append(out, c[:]...)
	return out
}

// TxOutput is a signed output as it appears in a RingCtTransaction: the
// recipient public key plus its proof.
type TxOutput struct {
	PublicKey curve.Point
	Proof     OutputProof
}

// RingCtTransaction is the fully signed, wire-visible artifact.
type RingCtTransaction struct {
	Mlsags  []mlsag.MlsagSignature
	Outputs []TxOutput
}

// RingCtMaterial is the signer's private view of a transaction: one
// MLSAG ring per input plus the outputs to create. Fields are unexported
// (only a constructor and Sign can touch them), matching the original
// Rust reference's encapsulation (see SPEC_FULL.md §3).
type RingCtMaterial struct {
	inputs  []*mlsag.MlsagMaterial
	outputs []Output
}

// NewRingCtMaterial validates the structural precondition (at least one
// output) and returns material ready to sign.
func NewRingCtMaterial(inputs []*mlsag.MlsagMaterial, outputs []Output) (*RingCtMaterial, error) {
	if len(outputs) == 0 {
		return nil, ErrNoOutputs
	}
	ownedInputs := make([]*mlsag.MlsagMaterial, len(inputs))
	copy(ownedInputs, inputs)
	ownedOutputs := make([]Output, len(outputs))
	copy(ownedOutputs, outputs)
	return &RingCtMaterial{inputs: ownedInputs, outputs: ownedOutputs}, nil
}

func bulletproofGens() rangeproof.BulletproofGens {
	return rangeproof.NewBulletproofGens(rangeproof.MaxBitLength)
}

func pedersenGens() rangeproof.PedersenGens {
	return rangeproof.DefaultPedersenGens()
}
