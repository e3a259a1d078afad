package common

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_ExtendByteSlice(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		length    int
		newLength int
	}{
		{"With trimming", 4, 2},
		{"Without trimming", 4, 8},
		{"Without trimming (same lengths)", 4, 4},
	}

	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			originalSlice := make([]byte, c.length)
			for i := 0; i < c.length; i++ {
				originalSlice[i] = byte(i * 2)
			}

			newSlice := ExtendByteSlice(originalSlice, c.newLength)
			require.Len(t, newSlice, c.newLength)

			if c.length > c.newLength {
				require.Equal(t, originalSlice[:c.newLength], newSlice)
			} else {
				require.Equal(t, originalSlice, newSlice[:c.length])
			}
		})
	}
}

func Test_SafeArithmetic(t *testing.T) {
	t.Parallel()

	sum, overflow := SafeAddUint64(math.MaxUint64, 1)
	assert.True(t, overflow)
	assert.Equal(t, uint64(0), sum)

	sum, overflow = SafeAddUint64(40, 2)
	assert.False(t, overflow)
	assert.Equal(t, uint64(42), sum)

	_, overflow = SafeMulUint64(math.MaxUint64, 2)
	assert.True(t, overflow)

	product, overflow := SafeMulUint64(21000, 3)
	assert.False(t, overflow)
	assert.Equal(t, uint64(63000), product)
}

func Test_Padding(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []byte{0, 0, 1, 2}, LeftPadBytes([]byte{1, 2}, 4))
	assert.Equal(t, []byte{1, 2, 0, 0}, RightPadBytes([]byte{1, 2}, 4))
	assert.Equal(t, []byte{1, 2, 3}, LeftPadBytes([]byte{1, 2, 3}, 2))
}

func Test_ParseUint64orHex(t *testing.T) {
	t.Parallel()

	hexValue, decValue := "0x5c1b", "23579"

	v, err := ParseUint64orHex(&hexValue)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x5c1b), v)

	v, err = ParseUint64orHex(&decValue)
	require.NoError(t, err)
	assert.Equal(t, uint64(23579), v)

	bad := "0xzz"
	_, err = ParseUint256orHex(&bad)
	require.Error(t, err)
}

func Test_SetupDataDir(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "data")
	require.NoError(t, SetupDataDir(dir, []string{"state"}))
	assert.DirExists(t, filepath.Join(dir, "state"))
}
