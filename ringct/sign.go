package ringct

import (
	"fmt"
	"io"

	"blockchain/internal/curve"
	"blockchain/mlsag"
	"blockchain/pedersen"
	"blockchain/rangeproof"
)

// Sign assembles material's input rings and outputs into a signed
// RingCtTransaction (spec.md §4.5). It returns the message every MLSAG
// ring was bound to: this message embeds pseudo- and output-commitment
// openings, so it is itself sensitive and must be retained alongside the
// transaction for later verification rather than published with it
// (see the RingCtMaterial encapsulation).
func Sign(rng io.Reader, material *RingCtMaterial) ([]byte, RingCtTransaction, []pedersen.RevealedCommitment, error) {
	if len(material.outputs) == 0 {
		return nil, RingCtTransaction{}, nil, ErrNoOutputs
	}

	transcript := rangeproof.NewTranscript(TranscriptLabel)
	bpGens := bulletproofGens()
	pcGens := pedersenGens()

	numInputs := len(material.inputs)
	truePublicKeys := make([]curve.Point, numInputs)
	keyImages := make([]curve.Point, numInputs)
	pseudoOpenings := make([]pedersen.RevealedCommitment, numInputs)

	var decoyPublicKeysFlat []curve.Point
	for i, ring := range material.inputs {
		true_ := ring.TrueInput()
		truePublicKeys[i] = true_.PublicKey()
		keyImages[i] = true_.KeyImage()
		for _, d := range ring.DecoyInputs() {
			decoyPublicKeysFlat = append(decoyPublicKeysFlat, d.PublicKey)
		}
		blinding, err := curve.RandomScalar(rng)
		if err != nil {
			return nil, RingCtTransaction{}, nil, fmt.Errorf("ringct: sample pseudo blinding for input %d: %w", i, err)
		}
		pseudoOpenings[i] = pedersen.RevealedCommitment{Value: true_.RevealedCommitment.Value, Blinding: blinding}
	}

	sumPseudoBlindings := curve.ZeroScalar()
	for _, o := range pseudoOpenings {
		sumPseudoBlindings = sumPseudoBlindings.Add(o.Blinding)
	}

	outputOpenings := make([]pedersen.RevealedCommitment, len(material.outputs))
	sumDrawnOutputBlindings := curve.ZeroScalar()
	for i := 0; i < len(material.outputs)-1; i++ {
		blinding, err := curve.RandomScalar(rng)
		if err != nil {
			return nil, RingCtTransaction{}, nil, fmt.Errorf("ringct: sample output blinding for output %d: %w", i, err)
		}
		outputOpenings[i] = pedersen.RevealedCommitment{Value: material.outputs[i].Amount, Blinding: blinding}
		sumDrawnOutputBlindings = sumDrawnOutputBlindings.Add(blinding)
	}
	correction := sumPseudoBlindings.Sub(sumDrawnOutputBlindings)
	lastIdx := len(material.outputs) - 1
	outputOpenings[lastIdx] = pedersen.RevealedCommitment{
		Value:    material.outputs[lastIdx].Amount,
		Blinding: correction,
	}

	outputProofs := make([]OutputProof, len(material.outputs))
	for i, opening := range outputOpenings {
		proof, commitment, err := rangeproof.ProveSingle(rng, transcript, bpGens, pcGens, opening.Value, opening.Blinding, rangeproof.MaxBitLength)
		if err != nil {
			return nil, RingCtTransaction{}, nil, fmt.Errorf("ringct: range proof for output %d: %w", i, err)
		}
		outputProofs[i] = OutputProof{RangeProof: proof, Commitment: commitment}
	}

	msg := buildMessage(truePublicKeys, decoyPublicKeysFlat, keyImages, pseudoOpenings, outputOpenings, outputProofs)

	mlsags := make([]mlsag.MlsagSignature, numInputs)
	for i, ring := range material.inputs {
		sig, err := mlsag.Sign(rng, msg, ring, pseudoOpenings[i])
		if err != nil {
			return nil, RingCtTransaction{}, nil, fmt.Errorf("ringct: sign ring %d: %w", i, err)
		}
		mlsags[i] = sig
	}

	txOutputs := make([]TxOutput, len(material.outputs))
	for i, out := range material.outputs {
		txOutputs[i] = TxOutput{PublicKey: out.PublicKey, Proof: outputProofs[i]}
	}

	return msg, RingCtTransaction{Mlsags: mlsags, Outputs: txOutputs}, outputOpenings, nil
}

// buildMessage implements spec.md §4.5 step 5's strict concatenation
// order, resolving §9 open question 4 (decoy ordering) with a stable
// flatten over inputs in input order, then per-input decoy order.
func buildMessage(
	truePublicKeys []curve.Point,
	decoyPublicKeysFlat []curve.Point,
	keyImages []curve.Point,
	pseudoOpenings []pedersen.RevealedCommitment,
	outputOpenings []pedersen.RevealedCommitment,
	outputProofs []OutputProof,
) []byte {
	var msg []byte
	for _, pk := range truePublicKeys {
		b := pk.Compress()
		msg = append(msg, b[:]...)
	}
	for _, pk := range decoyPublicKeysFlat {
		b := pk.Compress()
		msg = append(msg, b[:]...)
	}
	for _, ki := range keyImages {
		b := ki.Compress()
		msg = append(msg, b[:]...)
	}
	for _, o := range pseudoOpenings {
		b := o.Bytes()
		msg = append(msg, b[:]...)
	}
	for _, o := range outputOpenings {
		b := o.Bytes()
		msg = append(msg, b[:]...)
	}
	for _, p := range outputProofs {
		msg = append(msg, p.Bytes()...)
	}
	return msg
}
