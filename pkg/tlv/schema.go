package tlv

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

// Interpretation says how a field's raw payload is meant to be read. The
// stream itself does not say whether a varint is signed, so every field a
// caller cares about must be listed in a Schema.
type Interpretation uint8

const (
	AsRaw Interpretation = iota
	AsUnsigned
	AsSigned
	AsBool
	AsString
	AsBytes
	AsFixed32LE
	AsFixed32BE
	AsFixed64LE
	AsFixed64BE
	AsNested
)

var interpretationNames = map[Interpretation]string{
	AsRaw:       "raw",
	AsUnsigned:  "unsigned",
	AsSigned:    "signed",
	AsBool:      "bool",
	AsString:    "string",
	AsBytes:     "bytes",
	AsFixed32LE: "fixed32le",
	AsFixed32BE: "fixed32be",
	AsFixed64LE: "fixed64le",
	AsFixed64BE: "fixed64be",
	AsNested:    "nested",
}

func (i Interpretation) String() string {
	if s, ok := interpretationNames[i]; ok {
		return s
	}
	return fmt.Sprintf("interpretation(%d)", uint8(i))
}

// FieldSpec names a field and fixes its interpretation.
type FieldSpec struct {
	Name   string
	As     Interpretation
	Nested Schema
}

// Schema maps field numbers to their meaning for one TLV.
type Schema map[uint8]FieldSpec

// Value is a decoded option.
type Value struct {
	Field    uint8    `yaml:"field" json:"field"`
	Name     string   `yaml:"name" json:"name"`
	WireType WireType `yaml:"-" json:"-"`
	Value    any      `yaml:"value" json:"value"`
}

// Decode interprets opts with the schema. Fields missing from the schema are
// kept as hex strings under a generated name.
func (s Schema) Decode(opts []Option) ([]Value, error) {
	values := make([]Value, 0, len(opts))
	for _, o := range opts {
		fs, ok := s[o.Field]
		if !ok {
			fs = FieldSpec{Name: fmt.Sprintf("field_%d", o.Field), As: AsRaw}
		}
		v, err := fs.decode(o)
		if err != nil {
			return values, fmt.Errorf("field %d (%s): %w", o.Field, fs.Name, err)
		}
		values = append(values, Value{Field: o.Field, Name: fs.Name, WireType: o.WireType, Value: v})
	}
	return values, nil
}

func (fs FieldSpec) decode(o Option) (any, error) {
	switch fs.As {
	case AsUnsigned:
		return o.Uint64()
	case AsSigned:
		return o.Int32()
	case AsBool:
		return o.Bool()
	case AsString:
		return o.Text()
	case AsBytes:
		b, err := o.Bytes()
		if err != nil {
			return nil, err
		}
		return hex.EncodeToString(b), nil
	case AsFixed32LE:
		return o.Fixed32(binary.LittleEndian)
	case AsFixed32BE:
		return o.Fixed32(binary.BigEndian)
	case AsFixed64LE:
		return o.Fixed64(binary.LittleEndian)
	case AsFixed64BE:
		return o.Fixed64(binary.BigEndian)
	case AsNested:
		nested, err := o.Nested()
		if err != nil {
			return nil, err
		}
		return fs.Nested.Decode(nested)
	default:
		return hex.EncodeToString(o.Raw), nil
	}
}
