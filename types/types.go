package types

import (
	"fmt"
	"strings"

	"github.com/rei-network/executive/helper/hex"
	"github.com/rei-network/executive/helper/keccak"
)

const (
	HashLength    = 32
	AddressLength = 20
)

var (
	// ZeroAddress is the default zero address
	ZeroAddress = Address{}

	// ZeroHash is the default zero hash
	ZeroHash = Hash{}

	// EmptyRootHash is the root when there are no transactions, receipts or storage
	EmptyRootHash = StringToHash("0x56e81f171bcc55a6ff8345e692c0f86e5b48e01b996cadc001622fb5e363b421")

	// EmptyUncleHash is the root when there are no uncles
	EmptyUncleHash = StringToHash("0x1dcc4de8dec75d7aab85b567b6ccd41ad312451b948a7413f0a142fd40d49347")

	// EmptyCodeHash is the hash of empty code
	EmptyCodeHash = BytesToHash(keccak.Keccak256(nil, nil))
)

type Hash [HashLength]byte

type Address [AddressLength]byte

func min(i, j int) int {
	if i < j {
		return i
	}

	return j
}

func BytesToHash(b []byte) Hash {
	var h Hash

	size := len(b)
	min := min(size, HashLength)

	copy(h[HashLength-min:], b[len(b)-min:])

	return h
}

func (h Hash) Bytes() []byte {
	return h[:]
}

func (h Hash) String() string {
	return hex.EncodeToHex(h[:])
}

// String returns the EIP-55 checksummed form of the address
func (a Address) String() string {
	return a.checksumEncode()
}

func (a Address) checksumEncode() string {
	address := strings.ToLower(hex.EncodeToString(a[:]))
	hash := hex.EncodeToString(keccak.Keccak256(nil, []byte(address)))

	var result strings.Builder

	result.Grow(2 + len(address))
	result.WriteString("0x")

	for i, c := range address {
		// uppercase letters whose nibble in the hash is 8 or above
		if c > '9' && hash[i] >= '8' {
			c -= 'a' - 'A'
		}

		result.WriteRune(c)
	}

	return result.String()
}

// IsValidAddress checks that the string is a 0x prefixed 20 byte hex value
func IsValidAddress(address string) error {
	if !strings.HasPrefix(address, "0x") {
		return fmt.Errorf("address %s must be 0x prefixed", address)
	}

	buf, err := hex.DecodeHex(address)
	if err != nil {
		return fmt.Errorf("address %s is not hex: %w", address, err)
	}

	if len(buf) != AddressLength {
		return fmt.Errorf("address %s must be %d bytes", address, AddressLength)
	}

	return nil
}

func (a Address) Bytes() []byte {
	return a[:]
}

func StringToHash(str string) Hash {
	return BytesToHash(stringToBytes(str))
}

func StringToAddress(str string) Address {
	return BytesToAddress(stringToBytes(str))
}

func BytesToAddress(b []byte) Address {
	var a Address

	size := len(b)
	min := min(size, AddressLength)

	copy(a[AddressLength-min:], b[len(b)-min:])

	return a
}

// AddressFromWord returns the address held in the low 20 bytes of a 32 byte word
func AddressFromWord(h Hash) Address {
	return BytesToAddress(h[HashLength-AddressLength:])
}

func stringToBytes(str string) []byte {
	str = strings.TrimPrefix(str, "0x")
	if len(str)%2 == 1 {
		str = "0" + str
	}

	b, _ := hex.DecodeHex(str)

	return b
}

// UnmarshalText parses a hash in hex syntax.
func (h *Hash) UnmarshalText(input []byte) error {
	*h = BytesToHash(stringToBytes(string(input)))

	return nil
}

// UnmarshalText parses an address in hex syntax.
func (a *Address) UnmarshalText(input []byte) error {
	buf := stringToBytes(string(input))
	if len(buf) != AddressLength {
		return fmt.Errorf("incorrect length")
	}

	*a = BytesToAddress(buf)

	return nil
}

func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// HexBytes marshals to and from a 0x prefixed hex string
type HexBytes []byte

func (h HexBytes) String() string {
	return hex.EncodeToHex(h)
}

func (h HexBytes) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

func (h *HexBytes) UnmarshalText(input []byte) error {
	buf, err := hex.DecodeHex(string(input))
	if err != nil {
		return err
	}

	*h = buf

	return nil
}
