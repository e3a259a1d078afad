package crypto

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"github.com/btcsuite/btcd/btcec/v2"
	btc_ecdsa "github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/umbracle/fastrlp"
	"golang.org/x/crypto/sha3"

	"github.com/rei-network/executive/helper/hex"
	"github.com/rei-network/executive/types"
)

var (
	secp256k1N, _  = new(big.Int).SetString("fffffffffffffffffffffffffffffffebaaedce6af48a03bbfd25e8cd0364141", 16)
	secp256k1NHalf = new(big.Int).Div(secp256k1N, big.NewInt(2))
	one            = big.NewInt(1)

	errHashOfInvalidLength = errors.New("message hash of invalid length")
	errInvalidSignature    = errors.New("invalid signature")
	errInvalidPublicKey    = errors.New("invalid public key")
)

const (
	// ECDSASignatureLength indicates the byte length required to carry a signature with recovery id.
	// (64 bytes ECDSA signature + 1 byte recovery id)
	ECDSASignatureLength = 64 + 1

	// recoveryID is ECDSA signature recovery id
	recoveryID = byte(27)

	// recoveryIDOffset points to the byte offset within the signature that contains the recovery id.
	recoveryIDOffset = 64
)

// ValidateSignatureValues checks if the signature values are correct.
// With lowS the s value must also be in the lower half of the curve order.
func ValidateSignatureValues(v byte, r, s *big.Int, lowS bool) bool {
	// r & s must not be nil
	if r == nil || s == nil {
		return false
	}

	// r & s must be positive integer
	if r.Cmp(one) < 0 || s.Cmp(one) < 0 {
		return false
	}

	// v must be 0 or 1
	if v > 1 {
		return false
	}

	if lowS {
		return r.Cmp(secp256k1N) < 0 && s.Cmp(secp256k1NHalf) <= 0
	}

	return r.Cmp(secp256k1N) < 0 && s.Cmp(secp256k1N) < 0
}

var addressPool fastrlp.ArenaPool

// CreateAddress returns the address of a contract created by addr with the given nonce
func CreateAddress(addr types.Address, nonce uint64) types.Address {
	a := addressPool.Get()
	defer addressPool.Put(a)

	v := a.NewArray()
	v.Set(a.NewCopyBytes(addr.Bytes()))
	v.Set(a.NewUint(nonce))

	dst := v.MarshalTo(nil)
	dst = Keccak256(dst)[12:]

	return types.BytesToAddress(dst)
}

var create2Prefix = []byte{0xff}

// CreateAddress2 creates an address following the CREATE2 opcode:
// keccak(0xff ++ sender ++ salt ++ keccak(initcode))[12:]
func CreateAddress2(addr types.Address, salt [32]byte, inithash []byte) types.Address {
	return types.BytesToAddress(Keccak256(create2Prefix, addr.Bytes(), salt[:], Keccak256(inithash))[12:])
}

func ParseECDSAPrivateKey(buf []byte) (*ecdsa.PrivateKey, error) {
	if len(buf) != 32 {
		return nil, fmt.Errorf("invalid key length (%dB), should be 32B", len(buf))
	}

	prv, _ := btcec.PrivKeyFromBytes(buf)

	return prv.ToECDSA(), nil
}

// GenerateECDSAKey generates a new key based on the secp256k1 elliptic curve.
func GenerateECDSAKey() (*ecdsa.PrivateKey, error) {
	return ecdsa.GenerateKey(btcec.S256(), rand.Reader)
}

// MarshalPublicKey marshals a public key on the secp256k1 elliptic curve.
func MarshalPublicKey(pub *ecdsa.PublicKey) []byte {
	return elliptic.Marshal(btcec.S256(), pub.X, pub.Y) //nolint:staticcheck
}

func Ecrecover(hash, sig []byte) ([]byte, error) {
	pub, err := RecoverPubKey(sig, hash)
	if err != nil {
		return nil, err
	}

	return MarshalPublicKey(pub), nil
}

// RecoverPubKey verifies the compact signature "signature" of "hash" for the secp256k1 curve.
func RecoverPubKey(signature, hash []byte) (*ecdsa.PublicKey, error) {
	if len(hash) != types.HashLength {
		return nil, errHashOfInvalidLength
	}

	signatureSize := len(signature)
	if signatureSize != ECDSASignatureLength {
		return nil, errInvalidSignature
	}

	// Convert to btcec input format with 'recovery id' v at the beginning.
	btcsig := make([]byte, signatureSize)
	btcsig[0] = signature[signatureSize-1] + recoveryID
	copy(btcsig[1:], signature)

	pub, _, err := btc_ecdsa.RecoverCompact(btcsig, hash)
	if err != nil {
		return nil, err
	}

	return pub.ToECDSA(), nil
}

// Sign produces an ECDSA signature of the data in hash with the given
// private key on the secp256k1 curve.
// The produced signature is in the [R || S || V] format where V is 0 or 1.
func Sign(priv *ecdsa.PrivateKey, hash []byte) ([]byte, error) {
	if len(hash) != types.HashLength {
		return nil, fmt.Errorf("hash is required to be exactly %d bytes (%d)", types.HashLength, len(hash))
	}

	if priv.Curve != btcec.S256() {
		return nil, errors.New("private key curve is not secp256k1")
	}

	btcPrivKey, err := convertToBtcPrivKey(priv)
	if err != nil {
		return nil, err
	}

	defer btcPrivKey.Zero()

	sig, err := btc_ecdsa.SignCompact(btcPrivKey, hash, false)
	if err != nil {
		return nil, err
	}

	// Convert to Ethereum signature format with 'recovery id' v at the end.
	v := sig[0] - recoveryID
	copy(sig, sig[1:])
	sig[recoveryIDOffset] = v

	return sig, nil
}

// Keccak256 calculates the Keccak256
func Keccak256(v ...[]byte) []byte {
	h := sha3.NewLegacyKeccak256()
	for _, i := range v {
		h.Write(i)
	}

	return h.Sum(nil)
}

// Keccak256Hash calculates and returns the Keccak256 hash of the input data,
// converting it to an internal Hash data structure.
func Keccak256Hash(v ...[]byte) types.Hash {
	return types.BytesToHash(Keccak256(v...))
}

// PubKeyToAddress returns the address of a public key
func PubKeyToAddress(pub *ecdsa.PublicKey) types.Address {
	buf := Keccak256(MarshalPublicKey(pub)[1:])[12:]

	return types.BytesToAddress(buf)
}

// BytesToECDSAPrivateKey parses a hex encoded private key, with or without 0x prefix
func BytesToECDSAPrivateKey(input []byte) (*ecdsa.PrivateKey, error) {
	decoded, err := hex.DecodeHex(string(input))
	if err != nil {
		return nil, err
	}

	return ParseECDSAPrivateKey(decoded)
}

// convertToBtcPrivKey converts provided ECDSA private key to btc private key format
// used by btcec library
func convertToBtcPrivKey(priv *ecdsa.PrivateKey) (*btcec.PrivateKey, error) {
	var btcPriv btcec.PrivateKey

	overflow := btcPriv.Key.SetByteSlice(priv.D.Bytes())
	if overflow || btcPriv.Key.IsZero() {
		return nil, errors.New("invalid private key")
	}

	return &btcPriv, nil
}
