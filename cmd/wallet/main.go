package main

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"blockchain/crypto"
	"blockchain/internal/curve"
	"blockchain/mlsag"
	"blockchain/pedersen"
	"blockchain/ringct"
	"blockchain/types"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "generate":
		generateWallet()
	case "address":
		showAddress()
	case "send":
		sendTransaction()
	case "balance":
		queryBalance()
	case "stake":
		stakeTokens()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  wallet generate                         - Generate new wallet keys")
	fmt.Println("  wallet address                          - Show wallet address")
	fmt.Println("  wallet send <to> <amount> [input.json]  - Send private transaction")
	fmt.Println("  wallet balance                          - Query wallet balance")
	fmt.Println("  wallet stake <amount>                   - Stake tokens as validator")
}

func generateWallet() {
	wallet, err := crypto.GenerateWalletKeys()
	if err != nil {
		log.Fatalf("Failed to generate wallet: %v", err)
	}

	data, err := json.MarshalIndent(wallet, "", "  ")
	if err != nil {
		log.Fatalf("Failed to marshal wallet: %v", err)
	}

	filename := "wallet.json"
	if err := os.WriteFile(filename, data, 0600); err != nil {
		log.Fatalf("Failed to save wallet: %v", err)
	}

	addr := wallet.GetAddress()
	fmt.Println("Wallet generated successfully!")
	fmt.Println("Saved to:", filename)
	fmt.Println()
	fmt.Println("Your stealth address:")
	fmt.Printf("  %s:%s\n", addr.ViewKey.String(), addr.SpendKey.String())
	fmt.Println()
	fmt.Println("KEEP YOUR WALLET FILE SECURE!")
}

func showAddress() {
	wallet, err := loadWallet()
	if err != nil {
		log.Fatalf("Failed to load wallet: %v", err)
	}

	addr := wallet.GetAddress()
	fmt.Println("Your stealth address:")
	fmt.Printf("  %s:%s\n", addr.ViewKey.String(), addr.SpendKey.String())
}

func sendTransaction() {
	if len(os.Args) < 4 {
		fmt.Println("Usage: wallet send <recipient_address> <amount> [input.json]")
		os.Exit(1)
	}

	recipientStr := os.Args[2]
	amountStr := os.Args[3]

	inputFile := "input.json"
	if len(os.Args) >= 5 {
		inputFile = os.Args[4]
	}

	var amount uint64
	fmt.Sscanf(amountStr, "%d", &amount)

	recipient, err := parseAddress(recipientStr)
	if err != nil {
		log.Fatalf("Invalid recipient address: %v", err)
	}

	wallet, err := loadWallet()
	if err != nil {
		log.Fatalf("Failed to load wallet: %v", err)
	}

	input, err := loadSpendableInput(inputFile)
	if err != nil {
		log.Fatalf("Failed to load spendable input %s: %v", inputFile, err)
	}

	tx, err := buildPrivateTransaction(wallet, recipient, amount, input)
	if err != nil {
		log.Fatalf("Failed to build transaction: %v", err)
	}

	fmt.Println("Transaction created:")
	fmt.Printf("  Amount: %d\n", amount)
	fmt.Printf("  Fee: %d\n", tx.Fee)
	fmt.Printf("  Hash: %s\n", tx.Hash())
	fmt.Println()
	fmt.Println("Broadcasting to network...")

	// TODO: submit directly to a node's P2P transaction handler instead of
	// a file handoff, once the wallet CLI gains a network client.
	txData, _ := json.MarshalIndent(tx, "", "  ")
	txFile := fmt.Sprintf("tx_%s.json", tx.Hash().String()[:8])
	os.WriteFile(txFile, txData, 0644)

	fmt.Printf("Transaction saved to %s\n", txFile)
	fmt.Println("Use node to broadcast this transaction")
}

func queryBalance() {
	wallet, err := loadWallet()
	if err != nil {
		log.Fatalf("Failed to load wallet: %v", err)
	}

	// TODO: scan blockchain for owned outputs. Doing this for real needs a
	// node RPC surface this CLI doesn't have yet: fetch every UTXO, run
	// wallet.ScanOutput against its (one-time key, tx public key), and sum
	// amounts recovered via wallet.DeriveSpendKey. Left as future work,
	// same as in the transaction builder (see buildPrivateTransaction).
	fmt.Println("Scanning blockchain for your outputs...")
	fmt.Println()
	fmt.Println("Balance: 0 (scanning not yet implemented)")
	fmt.Println()
	fmt.Println("To check balance, you need to:")
	fmt.Println("1. Connect to a node")
	fmt.Println("2. Scan all transaction outputs")
	fmt.Println("3. Identify outputs belonging to your wallet")

	_ = wallet
}

func stakeTokens() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: wallet stake <amount>")
		os.Exit(1)
	}

	amountStr := os.Args[2]

	var amount uint64
	fmt.Sscanf(amountStr, "%d", &amount)

	validatorKey, err := loadOrCreateValidatorKey()
	if err != nil {
		log.Fatalf("Failed to load validator key: %v", err)
	}

	stakingTx := &types.StakingTx{
		Type:      types.StakingBond,
		Validator: validatorKey.PublicKey,
		Amount:    amount,
	}

	// TODO: sign stakingTx with validatorKey.PrivateKey once consensus
	// defines the wire format a staking transaction's signature covers.

	fmt.Println("Staking transaction created:")
	fmt.Printf("  Validator: %s\n", stakingTx.Validator.String())
	fmt.Printf("  Amount: %d\n", amount)
	fmt.Println()

	data, _ := json.MarshalIndent(stakingTx, "", "  ")
	filename := "staking_tx.json"
	os.WriteFile(filename, data, 0644)

	fmt.Printf("Staking transaction saved to %s\n", filename)
	fmt.Println("Submit this to the network to become a validator")
}

func loadWallet() (*crypto.WalletKeys, error) {
	data, err := os.ReadFile("wallet.json")
	if err != nil {
		return nil, fmt.Errorf("wallet file not found. Run 'wallet generate' first")
	}

	var wallet crypto.WalletKeys
	if err := json.Unmarshal(data, &wallet); err != nil {
		return nil, err
	}

	return &wallet, nil
}

func loadOrCreateValidatorKey() (*crypto.ValidatorKeyPair, error) {
	const filename = "validator.json"

	data, err := os.ReadFile(filename)
	if err == nil {
		var key crypto.ValidatorKeyPair
		if err := json.Unmarshal(data, &key); err != nil {
			return nil, err
		}
		return &key, nil
	}

	key, err := crypto.GenerateValidatorKeyPair()
	if err != nil {
		return nil, err
	}

	out, err := json.MarshalIndent(key, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(filename, out, 0600); err != nil {
		return nil, err
	}
	fmt.Printf("Generated new validator identity, saved to %s\n", filename)

	return key, nil
}

// parseAddress decodes a "viewkey:spendkey" address, both hex-encoded
// compressed curve points.
func parseAddress(addrStr string) (types.Address, error) {
	var addr types.Address

	parts := strings.SplitN(addrStr, ":", 2)
	if len(parts) != 2 {
		return addr, fmt.Errorf("address must be in viewkey:spendkey form")
	}

	viewKey, err := hex.DecodeString(parts[0])
	if err != nil {
		return addr, fmt.Errorf("invalid view key: %w", err)
	}
	spendKey, err := hex.DecodeString(parts[1])
	if err != nil {
		return addr, fmt.Errorf("invalid spend key: %w", err)
	}
	if len(viewKey) != curve.CompressedSize || len(spendKey) != curve.CompressedSize {
		return addr, fmt.Errorf("keys must be %d bytes compressed, got %d and %d", curve.CompressedSize, len(viewKey), len(spendKey))
	}

	copy(addr.ViewKey[:], viewKey)
	copy(addr.SpendKey[:], spendKey)

	return addr, nil
}

// spendableInput names a single owned, unspent output the wallet is ready
// to spend, plus the decoys to ring it with. Building this file today
// stands in for the wallet scan this CLI doesn't implement yet (see
// queryBalance): a full wallet would derive SecretKey via
// WalletKeys.DeriveSpendKey and the decoys via a node RPC querying the
// ledger's UTXO set, rather than reading them from disk.
type spendableInput struct {
	Ref       types.OutputRef
	SecretKey string // hex, little-endian scalar bytes
	Value     uint64
	Blinding  string // hex, little-endian scalar bytes
	Decoys    []types.UTXO
}

func loadSpendableInput(path string) (*spendableInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var in spendableInput
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, err
	}
	return &in, nil
}

func decodeScalarHex(h string) (curve.Scalar, error) {
	raw, err := hex.DecodeString(h)
	if err != nil {
		return curve.Scalar{}, err
	}
	if len(raw) != curve.ScalarSize {
		return curve.Scalar{}, fmt.Errorf("scalar must be %d bytes, got %d", curve.ScalarSize, len(raw))
	}
	var le [curve.ScalarSize]byte
	copy(le[:], raw)
	s, ok := curve.ScalarFromCanonicalLE(le)
	if !ok {
		return curve.Scalar{}, fmt.Errorf("scalar out of canonical range")
	}
	return s, nil
}

// buildPrivateTransaction spends one owned input (named by in) into a
// stealth output for recipient, sending any leftover back to wallet as a
// change output, and signs the result with a real MLSAG ring + RingCT
// balance proof.
func buildPrivateTransaction(wallet *crypto.WalletKeys, recipient types.Address, amount uint64, in *spendableInput) (*types.Transaction, error) {
	const fee = 1000

	if in.Value < amount+fee {
		return nil, fmt.Errorf("input value %d is less than amount %d plus fee %d", in.Value, amount, fee)
	}

	secretKey, err := decodeScalarHex(in.SecretKey)
	if err != nil {
		return nil, fmt.Errorf("input secret key: %w", err)
	}
	blinding, err := decodeScalarHex(in.Blinding)
	if err != nil {
		return nil, fmt.Errorf("input blinding: %w", err)
	}
	trueOpening := pedersen.RevealedCommitment{Value: in.Value, Blinding: blinding}

	ringSigner, err := crypto.NewRingSigner(secretKey, trueOpening, in.Decoys)
	if err != nil {
		return nil, fmt.Errorf("build input ring: %w", err)
	}

	recipientStealth, recipientEphemeral, err := crypto.GenerateStealthAddress(recipient)
	if err != nil {
		return nil, fmt.Errorf("generate recipient stealth address: %w", err)
	}

	outputs := []ringct.Output{
		{PublicKey: recipientStealth.OneTimeKey, Amount: amount},
	}
	ephemeralKeys := []types.CompressedPoint{types.CompressPoint(recipientEphemeral.PublicKey)}

	change := in.Value - amount - fee
	if change > 0 {
		selfAddr := wallet.GetAddress()
		changeStealth, changeEphemeral, err := crypto.GenerateStealthAddress(selfAddr)
		if err != nil {
			return nil, fmt.Errorf("generate change stealth address: %w", err)
		}
		outputs = append(outputs, ringct.Output{PublicKey: changeStealth.OneTimeKey, Amount: change})
		ephemeralKeys = append(ephemeralKeys, types.CompressPoint(changeEphemeral.PublicKey))
	}

	material, err := ringct.NewRingCtMaterial([]*mlsag.MlsagMaterial{ringSigner.Material()}, outputs)
	if err != nil {
		return nil, fmt.Errorf("assemble ringct material: %w", err)
	}

	msg, signed, _, err := ringct.Sign(rand.Reader, material)
	if err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}

	tx := &types.Transaction{
		Version:             1,
		RingCt:              signed,
		Msg:                 msg,
		OutputEphemeralKeys: ephemeralKeys,
		Fee:                 fee,
	}

	return tx, nil
}
