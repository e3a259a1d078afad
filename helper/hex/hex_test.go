package hex

import (
	"fmt"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDecodeUint64 verifies that uint64 values
// are properly decoded from hex
func TestDecodeUint64(t *testing.T) {
	t.Parallel()

	uint64Array := []uint64{
		0,
		1,
		11,
		67312,
		80604,
		^uint64(0), // max uint64
	}

	for _, value := range uint64Array {
		decodedValue, err := DecodeUint64(fmt.Sprintf("0x%x", value))
		assert.NoError(t, err)

		assert.Equal(t, value, decodedValue)
		assert.Equal(t, fmt.Sprintf("0x%x", value), EncodeUint64(value))
	}
}

func TestDecodeHex(t *testing.T) {
	t.Parallel()

	cases := []struct {
		input    string
		expected []byte
		err      bool
	}{
		{"0x", []byte{}, false},
		{"0x01ff", []byte{0x01, 0xff}, false},
		{"1ff", []byte{0x01, 0xff}, false},
		{"0xzz", nil, true},
	}

	for _, c := range cases {
		buf, err := DecodeHex(c.input)
		if c.err {
			require.Error(t, err, c.input)

			continue
		}

		require.NoError(t, err, c.input)
		assert.Equal(t, c.expected, buf)
	}
}

func TestBig(t *testing.T) {
	t.Parallel()

	num, err := DecodeHexToBig("0x4e1003b28d92800000")
	require.NoError(t, err)

	expected, _ := new(big.Int).SetString("1440000000000000000000", 10)
	assert.Equal(t, 0, expected.Cmp(num))
	assert.Equal(t, "0x4e1003b28d92800000", EncodeBig(num))
	assert.Equal(t, "0x0", EncodeBig(nil))

	_, err = DecodeHexToBig("0xnothex")
	assert.ErrorIs(t, err, ErrInvalidHexNumber)
}
