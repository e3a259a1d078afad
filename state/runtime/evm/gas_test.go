package evm

import (
	"testing"

	"github.com/rei-network/executive/chain"
	"github.com/rei-network/executive/types"
	"github.com/stretchr/testify/assert"
)

func TestNetSstoreGas(t *testing.T) {
	t.Parallel()

	var (
		zero = types.ZeroHash
		a    = types.BytesToHash([]byte{0x01})
		b    = types.BytesToHash([]byte{0x02})
	)

	// istanbul: set 20000, reset 5000, unchanged 800, refund 15000
	cases := []struct {
		name                     string
		original, current, value types.Hash
		cost                     uint64
		refund                   int64
	}{
		{"noop", a, a, a, 800, 0},
		{"fresh set", zero, zero, a, 20000, 0},
		{"fresh clear", a, a, zero, 5000, 15000},
		{"fresh modify", a, a, b, 5000, 0},
		{"dirty back to original", a, b, a, 800, 4200},
		{"dirty recreate", a, zero, a, 800, -15000 + 4200},
		{"dirty recreate other", a, zero, b, 800, -15000},
		{"dirty clear", a, b, zero, 800, 15000},
		{"dirty back to empty", zero, a, zero, 800, 19200},
	}

	for _, c := range cases {
		c := c

		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			cost, refund := netSstoreGas(chain.IstanbulSchedule, c.current, c.value, func() types.Hash {
				return c.original
			})

			assert.Equal(t, c.cost, cost)
			assert.Equal(t, c.refund, refund)
		})
	}
}

func TestNetSstoreGas_SkipsOriginalWhenUnchanged(t *testing.T) {
	t.Parallel()

	v := types.BytesToHash([]byte{0x01})

	cost, refund := netSstoreGas(chain.IstanbulSchedule, v, v, func() types.Hash {
		t.Fatal("original value should not be loaded")

		return types.ZeroHash
	})

	assert.Equal(t, uint64(800), cost)
	assert.Equal(t, int64(0), refund)
}

func TestLegacySstoreGas(t *testing.T) {
	t.Parallel()

	var (
		zero = types.ZeroHash
		a    = types.BytesToHash([]byte{0x01})
		b    = types.BytesToHash([]byte{0x02})
	)

	cases := []struct {
		current, value types.Hash
		cost           uint64
		refund         int64
	}{
		{zero, a, 20000, 0},
		{a, zero, 5000, 15000},
		{a, b, 5000, 0},
		{zero, zero, 5000, 0},
	}

	for _, c := range cases {
		cost, refund := legacySstoreGas(chain.FrontierSchedule, c.current, c.value)
		assert.Equal(t, c.cost, cost)
		assert.Equal(t, c.refund, refund)
	}
}
