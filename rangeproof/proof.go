package rangeproof

import (
	"encoding/binary"
	"fmt"
	"io"

	"blockchain/internal/curve"
)

// RangeProof is a non-interactive proof that a committed value lies in
// [0, 2^n). Canonical byte layout (spec.md §6 "OutputProof bytes"):
// A, S, T1, T2 compressed (48 bytes each), tau_x, mu, t_hat little-endian
// scalars (32 bytes each), a 4-byte little-endian round count, then
// log2(n) (L, R) compressed point pairs, then final a, b scalars.
type RangeProof struct {
	A, S, T1, T2 curve.Point
	TauX, Mu, THat curve.Scalar
	L, R         []curve.Point
	APrime, BPrime curve.Scalar
}

// ProveSingle proves value fits in n bits (n must equal MaxBitLength)
// under blinding, against the shared transcript, returning the proof and
// the Pedersen commitment it corresponds to (spec.md §4.5 step 4).
func ProveSingle(rng io.Reader, transcript *Transcript, bp BulletproofGens, pc PedersenGens, value uint64, blinding curve.Scalar, n int) (RangeProof, curve.Point, error) {
	if n != MaxBitLength || !isPowerOfTwo(n) {
		return RangeProof{}, curve.Point{}, ErrInvalidBitLength
	}
	if n < 64 && value>>uint(n) != 0 {
		return RangeProof{}, curve.Point{}, ErrValueOutOfRange
	}

	V := pc.Commit(value, blinding)
	transcript.AppendMessage("dom-sep", []byte("rangeproof v1"))
	transcript.AppendPoint("V", V)

	aL := bitDecompose(value, n)
	aR := vectorSubScalar(aL, curve.OneScalar())

	alpha, err := curve.RandomScalar(rng)
	if err != nil {
		return RangeProof{}, curve.Point{}, fmt.Errorf("rangeproof: sample alpha: %w", err)
	}
	A := pc.BBlinding.Mul(alpha).Add(multiMul(bp.G, aL)).Add(multiMul(bp.H, aR))

	sL := make([]curve.Scalar, n)
	sR := make([]curve.Scalar, n)
	for i := 0; i < n; i++ {
		sL[i], err = curve.RandomScalar(rng)
		if err != nil {
			return RangeProof{}, curve.Point{}, fmt.Errorf("rangeproof: sample sL[%d]: %w", i, err)
		}
		sR[i], err = curve.RandomScalar(rng)
		if err != nil {
			return RangeProof{}, curve.Point{}, fmt.Errorf("rangeproof: sample sR[%d]: %w", i, err)
		}
	}
	rho, err := curve.RandomScalar(rng)
	if err != nil {
		return RangeProof{}, curve.Point{}, fmt.Errorf("rangeproof: sample rho: %w", err)
	}
	S := pc.BBlinding.Mul(rho).Add(multiMul(bp.G, sL)).Add(multiMul(bp.H, sR))

	transcript.AppendPoint("A", A)
	transcript.AppendPoint("S", S)
	y := transcript.ChallengeScalar("y")
	z := transcript.ChallengeScalar("z")

	yPows := powersOf(y, n)
	twoPows := powersOf(curve.ScalarFromUint64(2), n)
	zSq := z.Mul(z)

	// l(X) = aL - z*1 + sL*X ; r(X) = y^n o (aR + z*1 + sR*X) + z^2*2^n
	l0 := vectorSubScalar(aL, z)
	l1 := sL
	r0 := vectorAdd(hadamard(yPows, vectorAddScalar(aR, z)), scalarVectorMul(zSq, twoPows))
	r1 := hadamard(yPows, sR)

	// t(X) = <l(X), r(X)> = t0 + t1*X + t2*X^2
	t0 := innerProduct(l0, r0)
	t2 := innerProduct(l1, r1)
	lSum := vectorAdd(l0, l1)
	rSum := vectorAdd(r0, r1)
	t1 := innerProduct(lSum, rSum).Sub(t0).Sub(t2)

	tau1, err := curve.RandomScalar(rng)
	if err != nil {
		return RangeProof{}, curve.Point{}, fmt.Errorf("rangeproof: sample tau1: %w", err)
	}
	tau2, err := curve.RandomScalar(rng)
	if err != nil {
		return RangeProof{}, curve.Point{}, fmt.Errorf("rangeproof: sample tau2: %w", err)
	}
	T1 := pc.B.Mul(t1).Add(pc.BBlinding.Mul(tau1))
	T2 := pc.B.Mul(t2).Add(pc.BBlinding.Mul(tau2))

	transcript.AppendPoint("T1", T1)
	transcript.AppendPoint("T2", T2)
	x := transcript.ChallengeScalar("x")

	tHat := t0.Add(t1.Mul(x)).Add(t2.Mul(x).Mul(x))
	tauX := zSq.Mul(blinding).Add(tau1.Mul(x)).Add(tau2.Mul(x).Mul(x))
	mu := alpha.Add(rho.Mul(x))

	l := vectorAdd(l0, scalarVectorMul(x, l1))
	r := vectorAdd(r0, scalarVectorMul(x, r1))

	transcript.AppendScalar("tau_x", tauX)
	transcript.AppendScalar("mu", mu)
	transcript.AppendScalar("t_hat", tHat)

	yInvPows := vectorInverse(yPows)
	hPrime := make([]curve.Point, n)
	for i := 0; i < n; i++ {
		hPrime[i] = bp.H[i].Mul(yInvPows[i])
	}

	uChallenge := transcript.ChallengeScalar("ipa-u")
	u := bp.U.Mul(uChallenge)

	L, R, aFinal, bFinal := proveIPA(transcript, bp.G, hPrime, u, l, r)

	return RangeProof{
		A: A, S: S, T1: T1, T2: T2,
		TauX: tauX, Mu: mu, THat: tHat,
		L: L, R: R,
		APrime: aFinal, BPrime: bFinal,
	}, V, nil
}

// VerifySingle checks proof against commitment V under transcript
// (spec.md §4.6 step 2). A proof that fails to verify yields a value
// matching errors.Is(err, ErrVerificationFailed); an n other than
// MaxBitLength yields ErrInvalidBitLength instead.
func VerifySingle(transcript *Transcript, bp BulletproofGens, pc PedersenGens, proof RangeProof, V curve.Point, n int) error {
	if n != MaxBitLength || !isPowerOfTwo(n) {
		return ErrInvalidBitLength
	}
	if len(proof.L) != log2(n) || len(proof.R) != log2(n) {
		return wrapVerification(errMalformedProof)
	}

	transcript.AppendMessage("dom-sep", []byte("rangeproof v1"))
	transcript.AppendPoint("V", V)
	transcript.AppendPoint("A", proof.A)
	transcript.AppendPoint("S", proof.S)
	y := transcript.ChallengeScalar("y")
	z := transcript.ChallengeScalar("z")

	transcript.AppendPoint("T1", proof.T1)
	transcript.AppendPoint("T2", proof.T2)
	x := transcript.ChallengeScalar("x")

	transcript.AppendScalar("tau_x", proof.TauX)
	transcript.AppendScalar("mu", proof.Mu)
	transcript.AppendScalar("t_hat", proof.THat)

	yPows := powersOf(y, n)
	twoPows := powersOf(curve.ScalarFromUint64(2), n)
	zSq := z.Mul(z)
	zCube := zSq.Mul(z)

	sumY := curve.ZeroScalar()
	for _, v := range yPows {
		sumY = sumY.Add(v)
	}
	sumTwo := curve.ZeroScalar()
	for _, v := range twoPows {
		sumTwo = sumTwo.Add(v)
	}
	delta := z.Sub(zSq).Mul(sumY).Sub(zCube.Mul(sumTwo))

	lhs := pc.B.Mul(proof.THat).Add(pc.BBlinding.Mul(proof.TauX))
	rhs := V.Mul(zSq).Add(pc.B.Mul(delta)).Add(proof.T1.Mul(x)).Add(proof.T2.Mul(x.Mul(x)))
	if !lhs.Equal(rhs) {
		return wrapVerification(fmt.Errorf("t_hat commitment check failed"))
	}

	yInvPows := vectorInverse(yPows)
	coeffs := hadamard(yInvPows, twoPows)

	sumG := sumPoints(bp.G)
	sumH := sumPoints(bp.H)
	zCoeffH := multiMul(bp.H, coeffs)

	hPrime := make([]curve.Point, n)
	for i := 0; i < n; i++ {
		hPrime[i] = bp.H[i].Mul(yInvPows[i])
	}

	P := proof.A.Add(proof.S.Mul(x)).Sub(pc.BBlinding.Mul(proof.Mu))
	P = P.Sub(sumG.Mul(z)).Add(sumH.Mul(z)).Add(zCoeffH.Mul(zSq))

	uChallenge := transcript.ChallengeScalar("ipa-u")
	u := bp.U.Mul(uChallenge)
	P = P.Add(u.Mul(proof.THat))

	if err := verifyIPA(transcript, bp.G, hPrime, u, P, proof.L, proof.R, proof.APrime, proof.BPrime); err != nil {
		return wrapVerification(err)
	}
	return nil
}

// proveIPA recursively halves the (G, H, a, b) instance, committing a
// cross-term pair (L, R) per round (Bünz et al. §3.1).
func proveIPA(transcript *Transcript, g, h []curve.Point, u curve.Point, a, b []curve.Scalar) (L, R []curve.Point, aFinal, bFinal curve.Scalar) {
	n := len(a)
	if n == 1 {
		return nil, nil, a[0], b[0]
	}
	half := n / 2
	aL, aR := a[:half], a[half:]
	bL, bR := b[:half], b[half:]
	gL, gR := g[:half], g[half:]
	hL, hR := h[:half], h[half:]

	cL := innerProduct(aL, bR)
	cR := innerProduct(aR, bL)

	Lpt := multiMul(gR, aL).Add(multiMul(hL, bR)).Add(u.Mul(cL))
	Rpt := multiMul(gL, aR).Add(multiMul(hR, bL)).Add(u.Mul(cR))

	transcript.AppendPoint("ipa-L", Lpt)
	transcript.AppendPoint("ipa-R", Rpt)
	chal := transcript.ChallengeScalar("ipa-x")
	chalInv := chal.Inverse()

	aPrime := vectorAdd(scalarVectorMul(chal, aL), scalarVectorMul(chalInv, aR))
	bPrime := vectorAdd(scalarVectorMul(chalInv, bL), scalarVectorMul(chal, bR))
	gPrime := make([]curve.Point, half)
	hPrime := make([]curve.Point, half)
	for i := 0; i < half; i++ {
		gPrime[i] = gL[i].Mul(chalInv).Add(gR[i].Mul(chal))
		hPrime[i] = hL[i].Mul(chal).Add(hR[i].Mul(chalInv))
	}

	restL, restR, aF, bF := proveIPA(transcript, gPrime, hPrime, u, aPrime, bPrime)
	return append([]curve.Point{Lpt}, restL...), append([]curve.Point{Rpt}, restR...), aF, bF
}

// verifyIPA replays the same folding the prover performed, using the
// transcript (seeded identically) to re-derive each round's challenge,
// and checks the final single-generator equation.
func verifyIPA(transcript *Transcript, g, h []curve.Point, u, P curve.Point, L, R []curve.Point, aFinal, bFinal curve.Scalar) error {
	n := len(g)
	curG, curH := g, h
	curP := P
	for round := 0; n > 1; round++ {
		half := n / 2
		transcript.AppendPoint("ipa-L", L[round])
		transcript.AppendPoint("ipa-R", R[round])
		chal := transcript.ChallengeScalar("ipa-x")
		chalInv := chal.Inverse()
		chalSq := chal.Mul(chal)
		chalInvSq := chalInv.Mul(chalInv)

		gPrime := make([]curve.Point, half)
		hPrime := make([]curve.Point, half)
		for i := 0; i < half; i++ {
			gPrime[i] = curG[i].Mul(chalInv).Add(curG[half+i].Mul(chal))
			hPrime[i] = curH[i].Mul(chal).Add(curH[half+i].Mul(chalInv))
		}
		curP = L[round].Mul(chalSq).Add(curP).Add(R[round].Mul(chalInvSq))
		curG, curH = gPrime, hPrime
		n = half
	}

	expected := curG[0].Mul(aFinal).Add(curH[0].Mul(bFinal)).Add(u.Mul(aFinal.Mul(bFinal)))
	if !curP.Equal(expected) {
		return fmt.Errorf("inner-product argument did not verify")
	}
	return nil
}

// Bytes encodes the proof per spec.md §6 "OutputProof bytes": the range
// proof's canonical bytes (here) concatenated by the caller with the 48
// byte compressed commitment.
func (p RangeProof) Bytes() []byte {
	rounds := len(p.L)
	out := make([]byte, 0, 4*curve.CompressedSize+3*curve.ScalarSize+rounds*2*curve.CompressedSize+2*curve.ScalarSize+4)

	appendPoint := func(pt curve.Point) {
		b := pt.Compress()
		out = append(out, b[:]...)
	}
	appendScalar := func(s curve.Scalar) {
		b := s.Bytes()
		out = append(out, b[:]...)
	}

	appendPoint(p.A)
	appendPoint(p.S)
	appendPoint(p.T1)
	appendPoint(p.T2)
	appendScalar(p.TauX)
	appendScalar(p.Mu)
	appendScalar(p.THat)

	var roundsBuf [4]byte
	binary.LittleEndian.PutUint32(roundsBuf[:], uint32(rounds))
	out = append(out, roundsBuf[:]...)
	for i := 0; i < rounds; i++ {
		appendPoint(p.L[i])
		appendPoint(p.R[i])
	}
	appendScalar(p.APrime)
	appendScalar(p.BPrime)
	return out
}

// RangeProofFromBytes decodes the layout produced by Bytes.
func RangeProofFromBytes(b []byte) (RangeProof, error) {
	const ptSize = curve.CompressedSize
	const scSize = curve.ScalarSize
	need := 4*ptSize + 3*scSize + 4
	if len(b) < need {
		return RangeProof{}, errMalformedProof
	}
	off := 0
	readPoint := func() (curve.Point, error) {
		var buf [ptSize]byte
		copy(buf[:], b[off:off+ptSize])
		off += ptSize
		return curve.Decompress(buf)
	}
	readScalar := func() (curve.Scalar, error) {
		var buf [scSize]byte
		copy(buf[:], b[off:off+scSize])
		off += scSize
		s, ok := curve.ScalarFromCanonicalLE(buf)
		if !ok {
			return curve.Scalar{}, errMalformedProof
		}
		return s, nil
	}

	var p RangeProof
	var err error
	if p.A, err = readPoint(); err != nil {
		return RangeProof{}, err
	}
	if p.S, err = readPoint(); err != nil {
		return RangeProof{}, err
	}
	if p.T1, err = readPoint(); err != nil {
		return RangeProof{}, err
	}
	if p.T2, err = readPoint(); err != nil {
		return RangeProof{}, err
	}
	if p.TauX, err = readScalar(); err != nil {
		return RangeProof{}, err
	}
	if p.Mu, err = readScalar(); err != nil {
		return RangeProof{}, err
	}
	if p.THat, err = readScalar(); err != nil {
		return RangeProof{}, err
	}

	rounds := int(binary.LittleEndian.Uint32(b[off : off+4]))
	off += 4
	if len(b) < off+rounds*2*ptSize+2*scSize {
		return RangeProof{}, errMalformedProof
	}
	p.L = make([]curve.Point, rounds)
	p.R = make([]curve.Point, rounds)
	for i := 0; i < rounds; i++ {
		if p.L[i], err = readPoint(); err != nil {
			return RangeProof{}, err
		}
		if p.R[i], err = readPoint(); err != nil {
			return RangeProof{}, err
		}
	}
	if p.APrime, err = readScalar(); err != nil {
		return RangeProof{}, err
	}
	if p.BPrime, err = readScalar(); err != nil {
		return RangeProof{}, err
	}
	return p, nil
}
