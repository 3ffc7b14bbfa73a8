package rangeproof

import "blockchain/internal/curve"

// powersOf returns [x^0, x^1, ..., x^(n-1)].
func powersOf(x curve.Scalar, n int) []curve.Scalar {
	out := make([]curve.Scalar, n)
	cur := curve.OneScalar()
	for i := 0; i < n; i++ {
		out[i] = cur
		cur = cur.Mul(x)
	}
	return out
}

func bitDecompose(value uint64, n int) []curve.Scalar {
	out := make([]curve.Scalar, n)
	for i := 0; i < n; i++ {
		if (value>>uint(i))&1 == 1 {
			out[i] = curve.OneScalar()
		} else {
			out[i] = curve.ZeroScalar()
		}
	}
	return out
}

func vectorSubScalar(v []curve.Scalar, s curve.Scalar) []curve.Scalar {
	out := make([]curve.Scalar, len(v))
	for i := range v {
		out[i] = v[i].Sub(s)
	}
	return out
}

func vectorAddScalar(v []curve.Scalar, s curve.Scalar) []curve.Scalar {
	out := make([]curve.Scalar, len(v))
	for i := range v {
		out[i] = v[i].Add(s)
	}
	return out
}

func vectorAdd(a, b []curve.Scalar) []curve.Scalar {
	out := make([]curve.Scalar, len(a))
	for i := range a {
		out[i] = a[i].Add(b[i])
	}
	return out
}

func hadamard(a, b []curve.Scalar) []curve.Scalar {
	out := make([]curve.Scalar, len(a))
	for i := range a {
		out[i] = a[i].Mul(b[i])
	}
	return out
}

func scalarVectorMul(s curve.Scalar, v []curve.Scalar) []curve.Scalar {
	out := make([]curve.Scalar, len(v))
	for i := range v {
		out[i] = s.Mul(v[i])
	}
	return out
}

func innerProduct(a, b []curve.Scalar) curve.Scalar {
	sum := curve.ZeroScalar()
	for i := range a {
		sum = sum.Add(a[i].Mul(b[i]))
	}
	return sum
}

// vectorInverse returns the elementwise multiplicative inverse of v.
func vectorInverse(v []curve.Scalar) []curve.Scalar {
	out := make([]curve.Scalar, len(v))
	for i := range v {
		out[i] = v[i].Inverse()
	}
	return out
}

// multiMul computes the multi-scalar sum sum_i(scalars[i]*points[i]).
func multiMul(points []curve.Point, scalars []curve.Scalar) curve.Point {
	acc := points[0].Mul(scalars[0])
	for i := 1; i < len(points); i++ {
		acc = acc.Add(points[i].Mul(scalars[i]))
	}
	return acc
}

func sumPoints(points []curve.Point) curve.Point {
	acc := points[0]
	for i := 1; i < len(points); i++ {
		acc = acc.Add(points[i])
	}
	return acc
}
