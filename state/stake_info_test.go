package state

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/umbracle/fastrlp"
)

func encodeStakeInfo(timestamp []byte) []byte {
	ar := &fastrlp.Arena{}

	v := ar.NewArray()
	v.Set(ar.NewBigInt(big.NewInt(10)))
	v.Set(ar.NewBigInt(big.NewInt(2)))
	v.Set(ar.NewCopyBytes(timestamp))

	return v.MarshalTo(nil)
}

func TestStakeInfo_TimestampBytes(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		raw       []byte
		timestamp uint64
	}{
		{"canonical", []byte{0x03, 0xe8}, 1000},
		{"leading zero", []byte{0x00, 0x03, 0xe8}, 1000},
		{"zero byte", []byte{0x00}, 0},
		{"empty", []byte{}, 0},
	}

	for _, c := range cases {
		c := c

		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			input := encodeStakeInfo(c.raw)

			info := &StakeInfo{}
			require.NoError(t, info.UnmarshalRLP(input))
			assert.Equal(t, c.timestamp, info.Timestamp)

			// the encoding is byte exact, also through a copy
			assert.Equal(t, input, info.MarshalRLP())
			assert.Equal(t, input, info.Copy().MarshalRLP())
		})
	}
}

func TestStakeInfo_TimestampUpdate(t *testing.T) {
	t.Parallel()

	info := &StakeInfo{}
	require.NoError(t, info.UnmarshalRLP(encodeStakeInfo([]byte{0x00, 0x03, 0xe8})))

	info.Timestamp = 2000

	assert.Equal(t, encodeStakeInfo([]byte{0x07, 0xd0}), info.MarshalRLP())

	decoded := &StakeInfo{}
	require.NoError(t, decoded.UnmarshalRLP(info.MarshalRLP()))
	assert.Equal(t, uint64(2000), decoded.Timestamp)
}

func TestStakeInfo_TimestampOverflow(t *testing.T) {
	t.Parallel()

	info := &StakeInfo{}
	assert.Error(t, info.UnmarshalRLP(encodeStakeInfo(make([]byte, 9))))
}
