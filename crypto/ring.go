package crypto

import (
	"errors"

	"blockchain/internal/curve"
	"blockchain/mlsag"
	"blockchain/pedersen"
	"blockchain/types"
)

// RingSigner gathers one input's MLSAG material: the true spend key and
// opening, plus decoy outputs drawn from the ledger. Building a
// RingCtMaterial from several of these and calling ringct.Sign produces
// the actual signature (package ringct); this type's job stops at
// assembling the per-input ring correctly.
type RingSigner struct {
	material *mlsag.MlsagMaterial
}

// NewRingSigner builds a ring for spending a single output, inserting
// the true spend key among decoy outputs fetched from the ledger.
func NewRingSigner(secretKey curve.Scalar, trueOpening pedersen.RevealedCommitment, decoys []types.UTXO) (*RingSigner, error) {
	if len(decoys) < 2 {
		return nil, errors.New("crypto: need at least 2 decoy outputs for anonymity")
	}

	decoyInputs := make([]mlsag.DecoyInput, len(decoys))
	for i, d := range decoys {
		pk, err := d.PublicKey.Point()
		if err != nil {
			return nil, err
		}
		c, err := d.Commitment.Point()
		if err != nil {
			return nil, err
		}
		decoyInputs[i] = mlsag.DecoyInput{PublicKey: pk, Commitment: c}
	}

	trueInput := mlsag.TrueInput{SecretKey: secretKey, RevealedCommitment: trueOpening}
	material, err := mlsag.NewMlsagMaterial(trueInput, decoyInputs)
	if err != nil {
		return nil, err
	}

	return &RingSigner{material: material}, nil
}

// Material returns the assembled ring, ready to be passed to
// ringct.NewRingCtMaterial alongside the rest of a transaction's inputs.
func (rs *RingSigner) Material() *mlsag.MlsagMaterial {
	return rs.material
}

// KeyImage returns this input's key image, the tag the ledger checks
// for double-spends.
func (rs *RingSigner) KeyImage() curve.Point {
	return rs.material.TrueInput().KeyImage()
}

// SelectDecoys picks count unspent outputs from available as ring decoys,
// excluding the output being spent.
func SelectDecoys(spending types.OutputRef, available []types.UTXO, count int) ([]types.UTXO, error) {
	if count <= 0 {
		return nil, errors.New("crypto: decoy count must be positive")
	}

	decoys := make([]types.UTXO, 0, count)
	for _, utxo := range available {
		if utxo.Spent {
			continue
		}
		if utxo.TxHash == spending.TxHash && utxo.OutputIndex == spending.OutputIndex {
			continue
		}
		decoys = append(decoys, utxo)
		if len(decoys) >= count {
			break
		}
	}

	if len(decoys) < count {
		return nil, errors.New("crypto: not enough decoy outputs available")
	}
	return decoys, nil
}
