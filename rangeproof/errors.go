package rangeproof

import "errors"

var (
	// ErrInvalidBitLength is returned by ProveSingle/VerifySingle when n
	// is not MaxBitLength, or not a power of two (required for the
	// inner-product argument's recursive halving).
	ErrInvalidBitLength = errors.New("rangeproof: bit length must be a power of two equal to the deployment's configured length")

	// ErrValueOutOfRange is returned by ProveSingle when value does not
	// fit in n bits; a correct prover can never hit this in production,
	// since overflowing amounts are rejected before a proof is attempted.
	ErrValueOutOfRange = errors.New("rangeproof: value does not fit in the configured bit length")

	// ErrVerificationFailed is the sole range-proof error surfaced across
	// the ringct package boundary (spec.md §9 open question 5); the
	// specific failing check remains available via errors.Unwrap for
	// local debugging, never serialized to a remote verifier.
	ErrVerificationFailed = errors.New("rangeproof: range proof failed verification")

	errMalformedProof = errors.New("rangeproof: malformed proof encoding")
)

// wrapVerification tags an internal verification failure so callers can
// match on ErrVerificationFailed while errors.Unwrap still reaches cause.
func wrapVerification(cause error) error {
	return &verificationError{cause: cause}
}

type verificationError struct {
	cause error
}

func (e *verificationError) Error() string {
	return ErrVerificationFailed.Error() + ": " + e.cause.Error()
}

func (e *verificationError) Unwrap() error {
	return e.cause
}

func (e *verificationError) Is(target error) bool {
	return target == ErrVerificationFailed
}
