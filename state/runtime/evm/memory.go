package evm

import (
	"math/big"
	"strings"

	"github.com/rei-network/executive/helper/common"
	"github.com/rei-network/executive/helper/hex"
)

// maxMemoryOffset bounds offsets and sizes; anything past it costs more gas
// than a block can hold
const maxMemoryOffset = 0xffffffffe0

func (c *state) Len() int {
	return len(c.memory)
}

// checkMemory grows the memory to cover [offset, offset+size) and charges
// for the expansion
func (c *state) checkMemory(offset, size *big.Int) bool {
	if size.Sign() == 0 {
		return true
	}

	if !offset.IsUint64() || !size.IsUint64() {
		c.exit(errOutOfGas)

		return false
	}

	o := offset.Uint64()
	s := size.Uint64()

	if o > maxMemoryOffset || s > maxMemoryOffset {
		c.exit(errOutOfGas)

		return false
	}

	m := uint64(len(c.memory))
	newSize := o + s

	if m < newSize {
		w := (newSize + 31) / 32
		newCost := c.schedule.MemoryGas*w + w*w/c.schedule.QuadCoeffDiv
		cost := newCost - c.lastGasCost
		c.lastGasCost = newCost

		if !c.consumeGas(cost) {
			return false
		}

		// resize the memory
		c.memory = common.ExtendByteSlice(c.memory, int(w*32))
	}

	return true
}

// calcMemSize is the memory end of a range, zero for empty ranges
func calcMemSize(off, l *big.Int) *big.Int {
	if l.Sign() == 0 {
		return big.NewInt(0)
	}

	return new(big.Int).Add(off, l)
}

func (c *state) get2(dst []byte, offset, length *big.Int) ([]byte, bool) {
	if length.Sign() == 0 {
		return nil, true
	}

	if !c.checkMemory(offset, length) {
		return nil, false
	}

	o := offset.Uint64()
	l := length.Uint64()

	dst = append(dst, c.memory[o:o+l]...)

	return dst, true
}

// consumeCopyGas charges the per word copy price of size bytes
func (c *state) consumeCopyGas(size uint64) bool {
	return c.consumeGas(((size + 31) / 32) * c.schedule.CopyGas)
}

func (c *state) setBytes(dst, input []byte, size uint64, dataOffset *big.Int) {
	if !dataOffset.IsUint64() {
		// overflow, copy 'size' 0 bytes to dst
		for i := uint64(0); i < size; i++ {
			dst[i] = 0
		}

		return
	}

	inputSize := uint64(len(input))
	begin := min(dataOffset.Uint64(), inputSize)

	copySize := min(size, inputSize-begin)
	if copySize > 0 {
		copy(dst, input[begin:begin+copySize])
	}

	if size-copySize > 0 {
		dst = dst[copySize:]
		for i := uint64(0); i < size-copySize; i++ {
			dst[i] = 0
		}
	}
}

func min(i, j uint64) uint64 {
	if i < j {
		return i
	}

	return j
}

func (c *state) Show() string {
	str := []string{}

	for i := 0; i < len(c.memory); i += 16 {
		j := i + 16
		if j > len(c.memory) {
			j = len(c.memory)
		}

		str = append(str, hex.EncodeToHex(c.memory[i:j]))
	}

	return strings.Join(str, "\n")
}
