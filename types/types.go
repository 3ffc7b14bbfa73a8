package types

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"blockchain/internal/curve"
	"blockchain/ringct"
)

// Hash represents a 32-byte hash
type Hash [32]byte

func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// PublicKey represents an Ed25519 public key, used for validator
// identity and BFT voting only. The ring-signature core below has its
// own curve.Point key type; these are deliberately separate concerns
// (see DESIGN.md "ambient and domain stack").
type PublicKey [32]byte

func (pk PublicKey) String() string {
	return hex.EncodeToString(pk[:])
}

// Signature represents an Ed25519 signature, used for validator votes.
type Signature [64]byte

// CompressedPoint is a 48-byte compressed BLS12-381 G1 point: the wire
// form of every spending/stealth public key and Pedersen commitment this
// chain carries (spec.md §6 "Compressed point encoding").
type CompressedPoint [curve.CompressedSize]byte

func (c CompressedPoint) String() string {
	return hex.EncodeToString(c[:])
}

// Point decompresses c into a curve.Point.
func (c CompressedPoint) Point() (curve.Point, error) {
	return curve.Decompress(c)
}

// CompressPoint encodes p as its wire form.
func CompressPoint(p curve.Point) CompressedPoint {
	return CompressedPoint(p.Compress())
}

// Address represents a stealth address: a view key and spend key, both
// real curve points, used to derive one-time output keys (package
// crypto) rather than the ed25519 placeholder the teacher started with.
type Address struct {
	ViewKey  CompressedPoint
	SpendKey CompressedPoint
}

// Block represents a finalized block in the chain
type Block struct {
	Header       BlockHeader
	Transactions []*Transaction
	Validators   []ValidatorSignature
}

// BlockHeader contains block metadata
type BlockHeader struct {
	Height        uint64
	Timestamp     int64
	PrevBlockHash Hash
	TxRoot        Hash // Merkle root of transactions
	StateRoot     Hash // UTXO set commitment
	Proposer      PublicKey
	Round         uint32 // BFT round number
}

// Hash computes the block header hash
func (bh *BlockHeader) Hash() Hash {
	data := append([]byte{}, bh.PrevBlockHash[:]...)
	data = append(data, bh.TxRoot[:]...)
	data = append(data, bh.StateRoot[:]...)
	data = append(data, bh.Proposer[:]...)
	return sha256.Sum256(data)
}

// ValidatorSignature represents a validator's vote on a block
type ValidatorSignature struct {
	Validator PublicKey
	Signature Signature
	Round     uint32
}

// OutputRef names a previously-created output by its creating
// transaction hash and index.
type OutputRef struct {
	TxHash      Hash
	OutputIndex uint32
}

// Transaction is a confidential transaction: a signed RingCT core
// (package ringct) plus the chain-level wrapping the core itself leaves
// unspecified — the visible fee and the stealth-scanning ephemeral keys
// (spec.md §1 "ledger/UTXO tracking ... only the byte layout contributed
// by the core is specified"). Ring membership needs no separate field:
// each ring's members are already named by public key in
// RingCt.Mlsags[i].Ring, and the ledger resolves those to commitments by
// public key at verification time (package ledger).
//
// Msg is the byte string ringct.Sign bound every ring's signature to. It
// embeds input pseudo-commitment and output-commitment openings and so
// is sensitive in the same way those openings are — it travels with the transaction between trusted chain
// participants (for re-verification) but is not meant for public replay
// the way Outputs and Mlsags are.
type Transaction struct {
	Version uint8
	RingCt  ringct.RingCtTransaction
	Msg     []byte

	// OutputEphemeralKeys[i] is the ephemeral public key R = r*G published
	// alongside RingCt.Outputs[i] so a recipient's view key can scan for
	// outputs addressed to it (package crypto's stealth address scheme).
	// It plays no role in ring or range-proof verification.
	OutputEphemeralKeys []CompressedPoint

	Fee uint64
}

// Hash computes a transaction identifier from its public, verifiable
// parts: key images, output keys and commitments, and the signing
// message. Key images alone would already make two double-spends of the
// same output collide; the rest binds this id to the full transaction.
func (tx *Transaction) Hash() Hash {
	var data []byte
	for _, sig := range tx.RingCt.Mlsags {
		ki := sig.KeyImage.Compress()
		data = append(data, ki[:]...)
	}
	for _, out := range tx.RingCt.Outputs {
		pk := out.PublicKey.Compress()
		data = append(data, pk[:]...)
		c := out.Proof.Commitment.Compress()
		data = append(data, c[:]...)
	}
	data = append(data, tx.Msg...)
	return sha256.Sum256(data)
}

// UTXO represents an unspent transaction output: a spending public key
// and its Pedersen commitment, as recorded on-ledger.
type UTXO struct {
	TxHash      Hash
	OutputIndex uint32
	PublicKey   CompressedPoint
	Commitment  CompressedPoint
	BlockHeight uint64
	Spent       bool
}

// ValidatorState tracks validator staking info
type ValidatorState struct {
	PublicKey      PublicKey
	StakedAmount   uint64
	Active         bool
	JoinedHeight   uint64
	UnbondingUntil uint64 // Block height when unbonding completes
	SlashCount     uint32
}

// StakingTx represents a special transaction for staking
type StakingTx struct {
	Type      StakingType // Bond or Unbond
	Validator PublicKey
	Amount    uint64
	Signature Signature
}

type StakingType uint8

const (
	StakingBond StakingType = iota
	StakingUnbond
)

// GenesisConfig defines initial chain state
type GenesisConfig struct {
	ChainID           string
	GenesisTime       time.Time
	InitialSupply     uint64
	InitialValidators []ValidatorState
	PreAllocations    map[Address]uint64
}
