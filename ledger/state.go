package ledger

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"blockchain/internal/curve"
	"blockchain/pedersen"
	"blockchain/ringct"
	"blockchain/types"
)

// State manages the UTXO set and validator states
type State struct {
	mu sync.RWMutex

	// UTXO set, indexed by creating tx hash + output index ...
	utxos map[string]*types.UTXO
	// ... and by spending public key, the form a ring member is named by
	// in an MLSAG signature (spec.md §4.3 ring = (pubkey, hidden-commitment)).
	utxosByKey map[types.CompressedPoint]*types.UTXO

	// Spent key images to prevent double-spend
	spentKeyImages map[types.CompressedPoint]bool

	// Validator states
	validators map[types.PublicKey]*types.ValidatorState

	// Current blockchain height
	height uint64

	// Total supply
	totalSupply uint64
}

// NewState creates a new state instance
func NewState() *State {
	return &State{
		utxos:          make(map[string]*types.UTXO),
		utxosByKey:     make(map[types.CompressedPoint]*types.UTXO),
		spentKeyImages: make(map[types.CompressedPoint]bool),
		validators:     make(map[types.PublicKey]*types.ValidatorState),
		height:         0,
		totalSupply:    0,
	}
}

// ApplyBlock applies a block to the state
func (s *State) ApplyBlock(block *types.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if block.Header.Height != s.height+1 {
		return errors.New("invalid block height")
	}

	for _, tx := range block.Transactions {
		if err := s.applyTransaction(tx, block.Header.Height); err != nil {
			return err
		}
	}

	s.height = block.Header.Height

	return nil
}

// applyTransaction applies a transaction to state (must hold lock)
func (s *State) applyTransaction(tx *types.Transaction, blockHeight uint64) error {
	if err := s.verifyTransactionLocked(tx); err != nil {
		return err
	}

	for _, sig := range tx.RingCt.Mlsags {
		s.spentKeyImages[types.CompressPoint(sig.KeyImage)] = true
	}

	txHash := tx.Hash()
	for i, out := range tx.RingCt.Outputs {
		s.storeUTXO(txHash, uint32(i), out, blockHeight)
	}

	return nil
}

func (s *State) storeUTXO(txHash types.Hash, index uint32, out ringct.TxOutput, blockHeight uint64) {
	pk := types.CompressPoint(out.PublicKey)
	utxo := &types.UTXO{
		TxHash:      txHash,
		OutputIndex: index,
		PublicKey:   pk,
		Commitment:  types.CompressPoint(out.Proof.Commitment),
		BlockHeight: blockHeight,
		Spent:       false,
	}
	s.utxos[makeUTXOKey(txHash, index)] = utxo
	s.utxosByKey[pk] = utxo
}

// ValidateTransaction validates a transaction against current state
// without mutating it, suitable for mempool admission checks.
func (s *State) ValidateTransaction(tx *types.Transaction) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.verifyTransactionLocked(tx)
}

// verifyTransactionLocked checks double-spends, resolves every ring
// member to its on-ledger commitment, and verifies the RingCT core
// (every MLSAG ring, every range proof, and the homomorphic balance).
// Caller must hold s.mu for reading or writing.
//
// tx.Fee is not checked and is not bound into the balance check: the
// balance check in ringct.Verify compares input pseudo-commitments with
// output commitments only, so a transaction verifies only when its
// outputs carry the full input value. A transaction whose outputs leave
// a nonzero fee amount out fails with
// ErrInputPseudoCommitmentsDoNotSumToOutputCommitments (see DESIGN.md).
func (s *State) verifyTransactionLocked(tx *types.Transaction) error {
	for _, sig := range tx.RingCt.Mlsags {
		if s.spentKeyImages[types.CompressPoint(sig.KeyImage)] {
			return errors.New("double-spend detected: key image already spent")
		}
	}

	publicCommitments := make([][]curve.Point, len(tx.RingCt.Mlsags))
	for i, sig := range tx.RingCt.Mlsags {
		members := make([]curve.Point, len(sig.Ring))
		for j, entry := range sig.Ring {
			pkBytes := types.CompressPoint(entry[0])
			utxo, ok := s.utxosByKey[pkBytes]
			if !ok {
				return fmt.Errorf("ledger: ring %d member %d: no such unspent output", i, j)
			}
			commitment, err := utxo.Commitment.Point()
			if err != nil {
				return err
			}
			members[j] = commitment
		}
		publicCommitments[i] = members
	}

	return ringct.Verify(tx.Msg, tx.RingCt, publicCommitments)
}

// GetUTXO retrieves a UTXO by transaction hash and output index
func (s *State) GetUTXO(txHash types.Hash, index uint32) (*types.UTXO, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key := makeUTXOKey(txHash, index)
	utxo, exists := s.utxos[key]
	if !exists {
		return nil, errors.New("UTXO not found")
	}

	return utxo, nil
}

// GetAllUTXOs returns all unspent outputs (for decoy selection)
func (s *State) GetAllUTXOs() []*types.UTXO {
	s.mu.RLock()
	defer s.mu.RUnlock()

	utxos := make([]*types.UTXO, 0, len(s.utxos))
	for _, utxo := range s.utxos {
		if !utxo.Spent {
			utxos = append(utxos, utxo)
		}
	}

	return utxos
}

// IsKeyImageSpent checks if a key image has been spent
func (s *State) IsKeyImageSpent(keyImage curve.Point) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.spentKeyImages[types.CompressPoint(keyImage)]
}

// AddValidator adds a new validator to the set
func (s *State) AddValidator(pubKey types.PublicKey, stake uint64, height uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.validators[pubKey]; exists {
		return errors.New("validator already exists")
	}

	s.validators[pubKey] = &types.ValidatorState{
		PublicKey:    pubKey,
		StakedAmount: stake,
		Active:       true,
		JoinedHeight: height,
	}

	return nil
}

// UpdateValidator updates validator state
func (s *State) UpdateValidator(pubKey types.PublicKey, update func(*types.ValidatorState)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	val, exists := s.validators[pubKey]
	if !exists {
		return errors.New("validator not found")
	}

	update(val)
	return nil
}

// GetValidator retrieves a validator's state
func (s *State) GetValidator(pubKey types.PublicKey) (*types.ValidatorState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	val, exists := s.validators[pubKey]
	if !exists {
		return nil, errors.New("validator not found")
	}

	return val, nil
}

// GetActiveValidators returns all active validators
func (s *State) GetActiveValidators() []*types.ValidatorState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	active := make([]*types.ValidatorState, 0)
	for _, val := range s.validators {
		if val.Active {
			active = append(active, val)
		}
	}

	return active
}

// ComputeStateRoot computes Merkle root of UTXO set
func (s *State) ComputeStateRoot() types.Hash {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h := sha256.New()

	for key := range s.utxos {
		h.Write([]byte(key))
	}

	return sha256.Sum256(h.Sum(nil))
}

// GetHeight returns current blockchain height
func (s *State) GetHeight() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.height
}

// makeUTXOKey creates a unique key for UTXO map
func makeUTXOKey(txHash types.Hash, index uint32) string {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, index)
	return txHash.String() + string(buf)
}

// InitializeGenesis initializes state from genesis config, minting one
// transparent (zero-blinding) output per pre-allocation so the genesis
// supply is auditable without needing a signed transaction to produce it.
func (s *State) InitializeGenesis(genesis *types.GenesisConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, val := range genesis.InitialValidators {
		v := val
		s.validators[val.PublicKey] = &v
	}

	genesisHash := sha256.Sum256([]byte("genesis:" + genesis.ChainID))
	var idx uint32
	for addr, amount := range genesis.PreAllocations {
		spendKey, err := addr.SpendKey.Point()
		if err != nil {
			return fmt.Errorf("ledger: genesis pre-allocation has invalid spend key: %w", err)
		}
		commitment := pedersen.Commit(amount, curve.ZeroScalar())
		s.storeUTXO(types.Hash(genesisHash), idx, ringct.TxOutput{
			PublicKey: spendKey,
			Proof: ringct.OutputProof{
				Commitment: commitment,
			},
		}, 0)
		idx++
	}

	s.totalSupply = genesis.InitialSupply
	s.height = 0

	return nil
}
