package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testHeader() *Header {
	h := &Header{
		ParentHash:   Hash{0x1},
		Sha3Uncles:   EmptyUncleHash,
		Miner:        Address{0x1},
		StateRoot:    Hash{0x4},
		TxRoot:       EmptyRootHash,
		ReceiptsRoot: EmptyRootHash,
		LogsBloom:    Bloom{0x1},
		Difficulty:   10,
		Number:       11,
		GasLimit:     12,
		GasUsed:      13,
		Timestamp:    14,
		ExtraData:    []byte{97, 98, 99, 100, 101, 102},
		MixHash:      Hash{0x7},
	}
	h.SetNonce(10)

	return h.ComputeHash()
}

func TestHeader_JSON(t *testing.T) {
	t.Parallel()

	header := testHeader()

	headerJSON, err := json.Marshal(header)
	require.NoError(t, err)

	unmarshalled := Header{}
	require.NoError(t, json.Unmarshal(headerJSON, &unmarshalled))

	assert.Equal(t, *header, unmarshalled)
}

func TestHeader_RLP(t *testing.T) {
	t.Parallel()

	header := testHeader()

	decoded := &Header{}
	require.NoError(t, decoded.UnmarshalRLP(header.MarshalRLP()))

	assert.Equal(t, header, decoded)
	assert.Equal(t, header.Hash, decoded.Hash)
}

func TestHeader_RLPWrongFieldCount(t *testing.T) {
	t.Parallel()

	// a list with a single empty string
	err := (&Header{}).UnmarshalRLP([]byte{0xc1, 0x80})
	assert.ErrorContains(t, err, "expected 15")
}

func TestHeader_Copy(t *testing.T) {
	t.Parallel()

	header := testHeader()
	cpy := header.Copy()

	cpy.ExtraData[0] = 0xff

	assert.Equal(t, byte(97), header.ExtraData[0])
	assert.Equal(t, header.Hash, cpy.Hash)
}

func TestHeader_ValidateExtraData(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		size    int
		maxSize uint64
		err     error
	}{
		{"empty", 0, 32, nil},
		{"at limit", 32, 32, nil},
		{"above limit", 33, 32, ErrExtraDataTooLarge},
	}

	for _, c := range cases {
		c := c

		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			h := &Header{ExtraData: make([]byte, c.size)}

			err := h.ValidateExtraData(c.maxSize)
			if c.err == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, c.err)
			}
		})
	}
}
