package crypto

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/rei-network/executive/types"
)

// VerificationLevel selects how much of a decoded transaction is checked
type VerificationLevel int

const (
	// VerificationNone only checks the structure of the encoding
	VerificationNone VerificationLevel = iota
	// VerificationCheap also checks the signature values are in range
	VerificationCheap
	// VerificationEverything also recovers and caches the sender
	VerificationEverything
)

func (l VerificationLevel) String() string {
	switch l {
	case VerificationNone:
		return "none"
	case VerificationCheap:
		return "cheap"
	case VerificationEverything:
		return "everything"
	default:
		return fmt.Sprintf("VerificationLevel(%d)", int(l))
	}
}

// ParseVerificationLevel parses the textual form of a verification level
func ParseVerificationLevel(s string) (VerificationLevel, error) {
	for _, l := range []VerificationLevel{VerificationNone, VerificationCheap, VerificationEverything} {
		if l.String() == s {
			return l, nil
		}
	}

	return VerificationNone, fmt.Errorf("unknown verification level %q", s)
}

// DecodeTransaction decodes a signed transaction and verifies it up to the given level
func DecodeTransaction(raw []byte, level VerificationLevel) (*types.Transaction, error) {
	tx := &types.Transaction{}
	if err := tx.UnmarshalRLP(raw); err != nil {
		return nil, err
	}

	if level >= VerificationCheap {
		if err := CheckSignature(tx, false); err != nil {
			return nil, err
		}
	}

	if level >= VerificationEverything {
		if _, err := TransactionSender(tx); err != nil {
			return nil, err
		}
	}

	return tx, nil
}

// CheckSignature validates the signature values of a transaction. Zero
// signatures are accepted as they carry no cryptographic signature.
func CheckSignature(tx *types.Transaction, lowS bool) error {
	if tx.Signature == nil {
		return types.ErrTransactionIsUnsigned
	}

	if tx.HasZeroSignature() {
		return nil
	}

	sig := tx.Signature
	if !ValidateSignatureValues(sig.V, sig.R, sig.S, lowS) {
		return fmt.Errorf("%w: values out of range", types.ErrInvalidSignature)
	}

	return nil
}

// TransactionSender returns the sender of a signed transaction. Zero
// signatures are attributed to MaxAddress. The result is cached on the transaction.
func TransactionSender(tx *types.Transaction) (types.Address, error) {
	if from, ok := tx.From(); ok {
		return from, nil
	}

	if err := CheckSignature(tx, false); err != nil {
		return types.ZeroAddress, err
	}

	if tx.HasZeroSignature() {
		tx.SetFrom(types.MaxAddress)

		return types.MaxAddress, nil
	}

	from, err := recoverAddress(tx.SigningHash(), tx.Signature)
	if err != nil {
		return types.ZeroAddress, err
	}

	tx.SetFrom(from)

	return from, nil
}

// SignTransaction returns a signed copy of the transaction
func SignTransaction(tx *types.Transaction, priv *ecdsa.PrivateKey) (*types.Transaction, error) {
	tx = tx.Copy()

	signingHash := tx.SigningHash()

	sig, err := Sign(priv, signingHash.Bytes())
	if err != nil {
		return nil, err
	}

	tx.SetSignature(&types.Signature{
		R: new(big.Int).SetBytes(sig[:32]),
		S: new(big.Int).SetBytes(sig[32:64]),
		V: sig[recoveryIDOffset],
	})
	tx.SetFrom(PubKeyToAddress(&priv.PublicKey))

	return tx, nil
}

// NewSignedTransaction builds a transaction from a skeleton and signs it
func NewSignedTransaction(skel types.TransactionSkeleton, priv *ecdsa.PrivateKey) (*types.Transaction, error) {
	tx, err := types.NewTransaction(skel)
	if err != nil {
		return nil, err
	}

	return SignTransaction(tx, priv)
}

// encodeSignature generates the [R || S || V] form of a signature
func encodeSignature(sig *types.Signature) []byte {
	buf := make([]byte, ECDSASignatureLength)
	sig.R.FillBytes(buf[:32])
	sig.S.FillBytes(buf[32:64])
	buf[recoveryIDOffset] = sig.V

	return buf
}

// recoverAddress recovers the signer address from a hash and signature
func recoverAddress(hash types.Hash, sig *types.Signature) (types.Address, error) {
	pub, err := Ecrecover(hash.Bytes(), encodeSignature(sig))
	if err != nil {
		return types.ZeroAddress, fmt.Errorf("%w: %v", types.ErrInvalidSignature, err)
	}

	if len(pub) == 0 || pub[0] != 4 {
		return types.ZeroAddress, errInvalidPublicKey
	}

	return types.BytesToAddress(Keccak256(pub[1:])[12:]), nil
}
