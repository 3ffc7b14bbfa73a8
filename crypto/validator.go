package crypto

import (
	"crypto/rand"

	"golang.org/x/crypto/ed25519"

	"blockchain/types"
)

// ValidatorKeyPair is a validator's Ed25519 BFT voting identity. This is
// a separate concern from the curve-based spend/view keys above: block
// finality signatures never touch the ring-signature core.
type ValidatorKeyPair struct {
	PrivateKey ed25519.PrivateKey
	PublicKey  types.PublicKey
}

// GenerateValidatorKeyPair creates a new validator identity keypair.
func GenerateValidatorKeyPair() (*ValidatorKeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}

	var pubKey types.PublicKey
	copy(pubKey[:], pub)

	return &ValidatorKeyPair{
		PrivateKey: priv,
		PublicKey:  pubKey,
	}, nil
}
