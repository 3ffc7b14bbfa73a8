package mlsag

import (
	"encoding/binary"
	"fmt"
	"io"

	"blockchain/internal/curve"
	"blockchain/pedersen"
)

// Sign produces a linkable ring signature over msg, binding material's
// ring to pseudoOpening's commitment (spec.md §4.3). rng MUST be fresh,
// cryptographically secure randomness for every call: reusing the alpha
// values this function draws across two signatures by the same secret
// key leaks that key.
func Sign(rng io.Reader, msg []byte, material *MlsagMaterial, pseudoOpening pedersen.RevealedCommitment) (MlsagSignature, error) {
	ringSize := material.RingSize()

	pi, err := randomIndex(rng, ringSize)
	if err != nil {
		return MlsagSignature{}, fmt.Errorf("mlsag: choose ring position: %w", err)
	}

	publicKeys := make([]curve.Point, ringSize)
	commitments := make([]curve.Point, ringSize)
	decoys := material.DecoyInputs()
	decoyIdx := 0
	for i := 0; i < ringSize; i++ {
		if i == pi {
			publicKeys[i] = material.trueInput.PublicKey()
			commitments[i] = material.trueInput.RevealedCommitment.Commit()
			continue
		}
		d := decoys[decoyIdx]
		decoyIdx++
		publicKeys[i] = d.PublicKey
		commitments[i] = d.Commitment
	}

	pseudoCommitment := pseudoOpening.Commit()
	ring := make([][2]curve.Point, ringSize)
	for i := 0; i < ringSize; i++ {
		ring[i] = [2]curve.Point{publicKeys[i], commitments[i].Sub(pseudoCommitment)}
	}

	keyImage := material.trueInput.KeyImage()

	alpha0, err := curve.RandomScalar(rng)
	if err != nil {
		return MlsagSignature{}, fmt.Errorf("mlsag: sample alpha0: %w", err)
	}
	alpha1, err := curve.RandomScalar(rng)
	if err != nil {
		return MlsagSignature{}, fmt.Errorf("mlsag: sample alpha1: %w", err)
	}

	r := make([][2]curve.Scalar, ringSize)
	for i := 0; i < ringSize; i++ {
		r0, err := curve.RandomScalar(rng)
		if err != nil {
			return MlsagSignature{}, fmt.Errorf("mlsag: sample r[%d][0]: %w", i, err)
		}
		r1, err := curve.RandomScalar(rng)
		if err != nil {
			return MlsagSignature{}, fmt.Errorf("mlsag: sample r[%d][1]: %w", i, err)
		}
		r[i] = [2]curve.Scalar{r0, r1}
	}

	g := curve.Generator()

	c := make([]curve.Scalar, ringSize)
	seedIdx := (pi + 1) % ringSize
	c[seedIdx] = cHash(msg,
		g.Mul(alpha0),
		g.Mul(alpha1),
		curve.HashToCurve(ring[pi][0]).Mul(alpha0),
	)

	for offset := 1; offset < ringSize; offset++ {
		n := (pi + offset) % ringSize
		next := (n + 1) % ringSize
		cn := c[n]
		l1 := g.Mul(r[n][0]).Add(ring[n][0].Mul(cn))
		l2 := g.Mul(r[n][1]).Add(ring[n][1].Mul(cn))
		r1 := curve.HashToCurve(ring[n][0]).Mul(r[n][0]).Add(keyImage.Mul(cn))
		c[next] = cHash(msg, l1, l2, r1)
	}

	cPi := c[pi]
	inputBlinding := material.trueInput.RevealedCommitment.Blinding
	pseudoBlinding := pseudoOpening.Blinding
	r[pi][0] = alpha0.Sub(cPi.Mul(material.trueInput.SecretKey))
	r[pi][1] = alpha1.Sub(cPi.Mul(inputBlinding.Sub(pseudoBlinding)))

	return MlsagSignature{
		C0:               c[0],
		R:                r,
		KeyImage:         keyImage,
		Ring:             ring,
		PseudoCommitment: pseudoCommitment,
	}, nil
}

// randomIndex draws a uniformly distributed index in [0, n) from rng via
// rejection sampling, avoiding the modulo bias a plain `v % n` would
// introduce.
func randomIndex(rng io.Reader, n int) (int, error) {
	if n <= 0 {
		return 0, fmt.Errorf("mlsag: ring size must be positive, got %d", n)
	}
	bound := uint64(n)
	limit := (^uint64(0) / bound) * bound
	var buf [8]byte
	for {
		if _, err := io.ReadFull(rng, buf[:]); err != nil {
			return 0, err
		}
		v := binary.BigEndian.Uint64(buf[:])
		if v < limit {
			return int(v % bound), nil
		}
	}
}
