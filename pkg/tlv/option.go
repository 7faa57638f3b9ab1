package tlv

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

var (
	ErrWireTypeMismatch = errors.New("tlv: wire type mismatch")
	ErrValueOverflow    = errors.New("tlv: value out of range")
)

func (o Option) expect(wt WireType) error {
	if o.WireType != wt {
		return fmt.Errorf("%w: field %d is %s, want %s", ErrWireTypeMismatch, o.Field, o.WireType, wt)
	}
	return nil
}

// Uint64 interprets a VARINT option as an unsigned integer.
func (o Option) Uint64() (uint64, error) {
	if err := o.expect(Varint); err != nil {
		return 0, err
	}
	v, _, err := DecodeUvarint(o.Raw, 0)
	return v, err
}

// Uint32 interprets a VARINT option as an unsigned 32-bit integer.
func (o Option) Uint32() (uint32, error) {
	v, err := o.Uint64()
	if err != nil {
		return 0, err
	}
	if v > math.MaxUint32 {
		return 0, fmt.Errorf("%w: field %d value %d", ErrValueOverflow, o.Field, v)
	}
	return uint32(v), nil
}

// Int32 interprets a VARINT option as a zig-zag encoded signed integer.
// Only call it for fields known to be signed.
func (o Option) Int32() (int32, error) {
	v, err := o.Uint32()
	if err != nil {
		return 0, err
	}
	return DecodeZigZag32(v), nil
}

// Bool interprets a VARINT option as a boolean, any non-zero value is true.
func (o Option) Bool() (bool, error) {
	v, err := o.Uint64()
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

// Text returns a LENGTH_DELIMITED payload as a string.
func (o Option) Text() (string, error) {
	if err := o.expect(LengthDelimited); err != nil {
		return "", err
	}
	return string(o.Raw), nil
}

// Bytes returns a LENGTH_DELIMITED payload.
func (o Option) Bytes() ([]byte, error) {
	if err := o.expect(LengthDelimited); err != nil {
		return nil, err
	}
	return o.Raw, nil
}

// Nested parses a LENGTH_DELIMITED payload as a list of options.
func (o Option) Nested() ([]Option, error) {
	if err := o.expect(LengthDelimited); err != nil {
		return nil, err
	}
	return ParseOptions(o.Raw)
}

// Fixed32 decodes a FIXED32 option with the given byte order. The wire does
// not fix an order, so the caller picks it per field.
func (o Option) Fixed32(order binary.ByteOrder) (uint32, error) {
	if err := o.expect(Fixed32); err != nil {
		return 0, err
	}
	return order.Uint32(o.Raw), nil
}

// Fixed64 decodes a FIXED64 option with the given byte order.
func (o Option) Fixed64(order binary.ByteOrder) (uint64, error) {
	if err := o.expect(Fixed64); err != nil {
		return 0, err
	}
	return order.Uint64(o.Raw), nil
}

// IsZero reports whether the payload is made of zero bytes only.
func (o Option) IsZero() bool {
	for _, b := range o.Raw {
		if b != 0 {
			return false
		}
	}
	return true
}
