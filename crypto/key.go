package crypto

import (
	"crypto/rand"
	"errors"

	"blockchain/internal/curve"
	"blockchain/types"
)

// KeyPair is a scalar/point keypair on the ring-signature curve, used
// for view keys, spend keys, and one-time output keys alike.
type KeyPair struct {
	PrivateKey curve.Scalar
	PublicKey  curve.Point
}

// GenerateKeyPair creates a new random keypair.
func GenerateKeyPair() (*KeyPair, error) {
	priv, err := curve.RandomScalar(rand.Reader)
	if err != nil {
		return nil, err
	}
	return &KeyPair{
		PrivateKey: priv,
		PublicKey:  curve.Generator().Mul(priv),
	}, nil
}

// WalletKeys contains view and spend keypairs for stealth addresses
type WalletKeys struct {
	ViewKeyPair  *KeyPair
	SpendKeyPair *KeyPair
}

// GenerateWalletKeys creates keys for stealth address scheme
func GenerateWalletKeys() (*WalletKeys, error) {
	viewKey, err := GenerateKeyPair()
	if err != nil {
		return nil, err
	}

	spendKey, err := GenerateKeyPair()
	if err != nil {
		return nil, err
	}

	return &WalletKeys{
		ViewKeyPair:  viewKey,
		SpendKeyPair: spendKey,
	}, nil
}

// GetAddress derives the public stealth address
func (wk *WalletKeys) GetAddress() types.Address {
	return types.Address{
		ViewKey:  types.CompressPoint(wk.ViewKeyPair.PublicKey),
		SpendKey: types.CompressPoint(wk.SpendKeyPair.PublicKey),
	}
}

// StealthOutput is a one-time output key and the ephemeral public key a
// recipient needs to discover and later spend it.
type StealthOutput struct {
	OneTimeKey  curve.Point
	TxPublicKey curve.Point
}

// GenerateStealthAddress creates a one-time output key for a recipient
// address, following the standard r*A ECDH stealth scheme: P' = Hs(r*A)*G + B.
func GenerateStealthAddress(recipientAddr types.Address) (*StealthOutput, *KeyPair, error) {
	ephemeral, err := GenerateKeyPair()
	if err != nil {
		return nil, nil, err
	}

	viewPub, err := recipientAddr.ViewKey.Point()
	if err != nil {
		return nil, nil, err
	}
	spendPub, err := recipientAddr.SpendKey.Point()
	if err != nil {
		return nil, nil, err
	}

	sharedSecret := computeSharedSecret(ephemeral.PrivateKey, viewPub)
	oneTimeKey := deriveOneTimePublicKey(sharedSecret, spendPub)

	return &StealthOutput{
		OneTimeKey:  oneTimeKey,
		TxPublicKey: ephemeral.PublicKey,
	}, ephemeral, nil
}

// ScanOutput checks whether a stealth output belongs to this wallet.
func (wk *WalletKeys) ScanOutput(oneTimeKey, txPublicKey curve.Point) bool {
	sharedSecret := computeSharedSecret(wk.ViewKeyPair.PrivateKey, txPublicKey)
	expected := deriveOneTimePublicKey(sharedSecret, wk.SpendKeyPair.PublicKey)
	return expected.Equal(oneTimeKey)
}

// DeriveSpendKey derives the private key to spend a stealth output:
// x' = Hs(a*R) + b.
func (wk *WalletKeys) DeriveSpendKey(oneTimeKey, txPublicKey curve.Point) (curve.Scalar, error) {
	if !wk.ScanOutput(oneTimeKey, txPublicKey) {
		return curve.Scalar{}, errors.New("output does not belong to this wallet")
	}

	sharedSecret := computeSharedSecret(wk.ViewKeyPair.PrivateKey, txPublicKey)
	secretBytes := sharedSecret.Compress()
	hs := curve.HashToScalar(secretBytes[:])
	return hs.Add(wk.SpendKeyPair.PrivateKey), nil
}

// computeSharedSecret performs ECDH: priv * pub.
func computeSharedSecret(priv curve.Scalar, pub curve.Point) curve.Point {
	return pub.Mul(priv)
}

// deriveOneTimePublicKey computes Hs(sharedSecret)*G + basePublicKey.
func deriveOneTimePublicKey(sharedSecret curve.Point, basePublicKey curve.Point) curve.Point {
	secretBytes := sharedSecret.Compress()
	hs := curve.HashToScalar(secretBytes[:])
	return curve.Generator().Mul(hs).Add(basePublicKey)
}

// GenerateKeyImage computes I = x * Hp(x*G), the unique per-output tag
// that prevents double-spending a ring member.
func GenerateKeyImage(priv curve.Scalar) curve.Point {
	pub := curve.Generator().Mul(priv)
	return curve.HashToCurve(pub).Mul(priv)
}
