package tlv

import (
	"encoding/binary"

	"google.golang.org/protobuf/encoding/protowire"
)

// NewVarint creates an unsigned VARINT option.
func NewVarint(field uint8, v uint64) Option {
	return Option{Field: field, WireType: Varint, Raw: protowire.AppendVarint(nil, v)}
}

// NewSigned creates a zig-zag encoded VARINT option.
func NewSigned(field uint8, v int32) Option {
	return NewVarint(field, uint64(EncodeZigZag32(v)))
}

// NewFixed32 creates a FIXED32 option written with the given byte order.
func NewFixed32(field uint8, v uint32, order binary.ByteOrder) Option {
	raw := make([]byte, 4)
	order.PutUint32(raw, v)
	return Option{Field: field, WireType: Fixed32, Raw: raw}
}

// NewFixed64 creates a FIXED64 option written with the given byte order.
func NewFixed64(field uint8, v uint64, order binary.ByteOrder) Option {
	raw := make([]byte, 8)
	order.PutUint64(raw, v)
	return Option{Field: field, WireType: Fixed64, Raw: raw}
}

// NewBytes creates a LENGTH_DELIMITED option holding a copy of v.
func NewBytes(field uint8, v []byte) Option {
	return Option{Field: field, WireType: LengthDelimited, Raw: clone(v)}
}

// NewString creates a LENGTH_DELIMITED option holding v.
func NewString(field uint8, v string) Option {
	return Option{Field: field, WireType: LengthDelimited, Raw: []byte(v)}
}

// NewNested creates a LENGTH_DELIMITED option whose payload is opts.
func NewNested(field uint8, opts ...Option) Option {
	return Option{Field: field, WireType: LengthDelimited, Raw: MarshalOptions(opts...)}
}

// AppendOption appends the wire form of o to b.
func AppendOption(b []byte, o Option) []byte {
	b = protowire.AppendTag(b, protowire.Number(o.Field), protowire.Type(o.WireType))
	switch o.WireType {
	case LengthDelimited:
		b = protowire.AppendBytes(b, o.Raw)
	case StartGroup, EndGroup:
	default:
		b = append(b, o.Raw...)
	}
	return b
}

// MarshalOptions encodes opts with no leading tag, the inverse of ParseOptions.
func MarshalOptions(opts ...Option) []byte {
	var b []byte
	for _, o := range opts {
		b = AppendOption(b, o)
	}
	return b
}

// Encoder builds a buffer of top-level records, the inverse of Parse.
type Encoder struct {
	buf []byte
}

// Record appends one record per option, all carrying tag.
func (e *Encoder) Record(tag uint8, opts ...Option) *Encoder {
	for _, o := range opts {
		e.buf = append(e.buf, tag)
		e.buf = AppendOption(e.buf, o)
	}
	return e
}

// Bytes returns the encoded buffer.
func (e *Encoder) Bytes() []byte {
	return e.buf
}

// Len returns the number of bytes encoded so far.
func (e *Encoder) Len() int {
	return len(e.buf)
}
