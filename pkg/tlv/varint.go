package tlv

import "fmt"

// MaxVarintLen is the longest varint that still fits a uint64.
const MaxVarintLen = 10

// TruncatedVarintError is returned when the buffer ends before a byte
// with the continuation bit clear.
type TruncatedVarintError struct {
	Offset int
}

func (e *TruncatedVarintError) Error() string {
	return fmt.Sprintf("tlv: truncated varint at offset %d", e.Offset)
}

// VarintOverflowError is returned when a varint does not fit in 64 bits.
type VarintOverflowError struct {
	Offset int
}

func (e *VarintOverflowError) Error() string {
	return fmt.Sprintf("tlv: varint at offset %d overflows 64 bits", e.Offset)
}

// DecodeUvarint reads an unsigned base-128 varint starting at buf[offset].
// It returns the value and the number of bytes consumed.
func DecodeUvarint(buf []byte, offset int) (uint64, int, error) {
	var value uint64
	for i := 0; i < MaxVarintLen; i++ {
		pos := offset + i
		if pos >= len(buf) {
			return 0, 0, &TruncatedVarintError{Offset: offset}
		}
		b := buf[pos]
		if i == MaxVarintLen-1 && b&0x80 == 0 && b > 1 {
			// only one bit of the tenth group is left in a uint64
			return 0, 0, &VarintOverflowError{Offset: offset}
		}
		value |= uint64(b&0x7F) << (7 * i)
		if b&0x80 == 0 {
			return value, i + 1, nil
		}
	}
	if offset+MaxVarintLen >= len(buf) {
		return 0, 0, &TruncatedVarintError{Offset: offset}
	}
	return 0, 0, &VarintOverflowError{Offset: offset}
}

// DecodeZigZag32 maps a zig-zag encoded value back to its signed form:
// 0→0, 1→-1, 2→1, 3→-2, 4→2 and so on.
func DecodeZigZag32(encoded uint32) int32 {
	shifted := int32(encoded >> 1)
	if encoded&1 != 0 {
		return -(shifted + 1)
	}
	return shifted
}

// EncodeZigZag32 is the inverse of DecodeZigZag32.
func EncodeZigZag32(v int32) uint32 {
	return uint32(v<<1) ^ uint32(v>>31)
}
