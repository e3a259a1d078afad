package common

import (
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Min returns the strictly lower number
func Min(a, b uint64) uint64 {
	if a < b {
		return a
	}

	return b
}

// Max returns the strictly bigger number
func Max(a, b uint64) uint64 {
	if a > b {
		return a
	}

	return b
}

// SafeAddUint64 sums two numbers and reports whether the addition overflowed
func SafeAddUint64(a, b uint64) (uint64, bool) {
	sum := a + b

	return sum, sum < a
}

// SafeMulUint64 multiplies two numbers and reports whether the product overflowed
func SafeMulUint64(a, b uint64) (uint64, bool) {
	if a == 0 || b == 0 {
		return 0, false
	}

	product := a * b

	return product, product/b != a
}

// ExtendByteSlice grows (or trims) b to needLen, reusing the backing array when possible
func ExtendByteSlice(b []byte, needLen int) []byte {
	b = b[:cap(b)]
	if n := needLen - cap(b); n > 0 {
		b = append(b, make([]byte, n)...)
	}

	return b[:needLen]
}

// LeftPadBytes zero-pads slice to the left up to length size
func LeftPadBytes(slice []byte, size int) []byte {
	if size <= len(slice) {
		return slice
	}

	padded := make([]byte, size)
	copy(padded[size-len(slice):], slice)

	return padded
}

// RightPadBytes zero-pads slice to the right up to length size
func RightPadBytes(slice []byte, size int) []byte {
	if size <= len(slice) {
		return slice
	}

	padded := make([]byte, size)
	copy(padded, slice)

	return padded
}

// ParseUint64orHex parses the given uint64 string, with or without the 0x prefix
func ParseUint64orHex(val *string) (uint64, error) {
	if val == nil {
		return 0, nil
	}

	str := *val
	base := 10

	if strings.HasPrefix(str, "0x") {
		str = str[2:]
		base = 16
	}

	return strconv.ParseUint(str, base, 64)
}

// ParseUint256orHex parses the given big integer string, with or without the 0x prefix
func ParseUint256orHex(val *string) (*big.Int, error) {
	if val == nil {
		return nil, nil
	}

	str := *val
	base := 10

	if strings.HasPrefix(str, "0x") {
		str = str[2:]
		base = 16
	}

	b, ok := new(big.Int).SetString(str, base)
	if !ok {
		return nil, fmt.Errorf("could not parse %q as a number", *val)
	}

	return b, nil
}

// SetupDataDir sets up the data directory and the corresponding sub-directories
func SetupDataDir(dataDir string, paths []string) error {
	if err := createDir(dataDir); err != nil {
		return fmt.Errorf("failed to create data dir: (%s): %w", dataDir, err)
	}

	for _, path := range paths {
		path := filepath.Join(dataDir, path)
		if err := createDir(path); err != nil {
			return fmt.Errorf("failed to create path: (%s): %w", path, err)
		}
	}

	return nil
}

// createDir creates a file system directory if it doesn't exist
func createDir(path string) error {
	_, err := os.Stat(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	if os.IsNotExist(err) {
		if err := os.MkdirAll(path, os.ModePerm); err != nil {
			return err
		}
	}

	return nil
}
