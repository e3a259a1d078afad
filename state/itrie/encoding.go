package itrie

import "github.com/rei-network/executive/types"

func emptyRoot() []byte {
	return types.EmptyRootHash.Bytes()
}

// hasTerminator returns whether a nibble key ends with the terminator flag
func hasTerminator(hex []byte) bool {
	return len(hex) > 0 && hex[len(hex)-1] == 16
}

// encodeCompact packs a nibble key into the hex-prefix encoding
func encodeCompact(hex []byte) []byte {
	terminator := byte(0)
	if hasTerminator(hex) {
		terminator = 1
		hex = hex[:len(hex)-1]
	}

	buf := make([]byte, len(hex)/2+1)
	buf[0] = terminator << 5 // the flag byte

	if len(hex)&1 == 1 {
		buf[0] |= 1 << 4 // odd flag
		buf[0] |= hex[0] // first nibble is contained in the first byte
		hex = hex[1:]
	}

	for bi, ni := 1, 0; ni < len(hex); bi, ni = bi+1, ni+2 {
		buf[bi] = hex[ni]<<4 | hex[ni+1]
	}

	return buf
}

// decodeCompact is the inverse of encodeCompact
func decodeCompact(compact []byte) []byte {
	if len(compact) == 0 {
		return nil
	}

	base := bytesToHexNibbles(compact)
	// delete terminator flag
	if base[0] < 2 {
		base = base[:len(base)-1]
	}

	// apply odd flag
	chop := 2 - base[0]&1

	return base[chop:]
}

// bytesToHexNibbles expands a key into nibbles followed by the terminator
func bytesToHexNibbles(bytes []byte) []byte {
	nibbles := make([]byte, len(bytes)*2+1)

	for i, b := range bytes {
		nibbles[i*2] = b / 16
		nibbles[i*2+1] = b % 16
	}

	nibbles[len(nibbles)-1] = 16

	return nibbles
}
