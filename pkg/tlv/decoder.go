package tlv

import (
	"fmt"
)

// Option is one field of a record: a field number, its wire type and the
// payload exactly as it appeared on the wire. Interpreting the payload
// (unsigned, zig-zag, string, nested options) is left to a Schema.
type Option struct {
	Field    uint8
	WireType WireType
	Raw      []byte
}

// Record is one top-level TLV element.
type Record struct {
	Tag     uint64
	Offset  int
	Options []Option
}

// Records is the ordered result of Parse.
type Records []Record

// MalformedTLVError describes a structural problem found while decoding.
// Everything decoded before Offset is still returned next to the error.
type MalformedTLVError struct {
	Offset int
	Tag    uint64
	Field  uint8
	Reason string
	Err    error
}

func (e *MalformedTLVError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("tlv: malformed data at offset %d (tag %d): %s: %v", e.Offset, e.Tag, e.Reason, e.Err)
	}
	return fmt.Sprintf("tlv: malformed data at offset %d (tag %d): %s", e.Offset, e.Tag, e.Reason)
}

func (e *MalformedTLVError) Unwrap() error {
	return e.Err
}

// Parse decodes buf into top-level records in a single pass. Each record is
// a one byte tag followed by one option. On failure the records decoded so far
// are returned together with a *MalformedTLVError.
func Parse(buf []byte) (Records, error) {
	var records Records
	pos := 0
	for pos < len(buf) {
		start := pos
		tag := uint64(buf[pos])
		pos++
		if pos >= len(buf) {
			return records, &MalformedTLVError{Offset: pos, Tag: tag, Reason: "record has no option header"}
		}
		opt, n, err := decodeOption(buf, pos)
		if err != nil {
			err.Tag = tag
			return records, err
		}
		pos += n
		rec := Record{Tag: tag, Offset: start}
		if !opt.WireType.IsGroup() {
			rec.Options = []Option{opt}
		}
		records = append(records, rec)
	}
	return records, nil
}

// ParseOptions decodes a sequence of options with no leading tag, the shape
// of a LENGTH_DELIMITED payload that carries a nested message. Offsets in
// errors are relative to buf.
func ParseOptions(buf []byte) ([]Option, error) {
	var opts []Option
	pos := 0
	for pos < len(buf) {
		opt, n, err := decodeOption(buf, pos)
		if err != nil {
			return opts, err
		}
		pos += n
		if opt.WireType.IsGroup() {
			continue
		}
		opts = append(opts, opt)
	}
	return opts, nil
}

func decodeOption(buf []byte, pos int) (Option, int, *MalformedTLVError) {
	hdr, n, err := DecodeUvarint(buf, pos)
	if err != nil {
		return Option{}, 0, &MalformedTLVError{Offset: pos, Reason: "bad option header", Err: err}
	}
	if hdr>>3 > 0xFF {
		return Option{}, 0, &MalformedTLVError{Offset: pos, Reason: fmt.Sprintf("field number %d out of range", hdr>>3)}
	}
	opt := Option{Field: uint8(hdr >> 3), WireType: WireType(hdr & 0x7)}
	body := pos + n

	var size int
	switch opt.WireType {
	case Varint:
		_, vn, err := DecodeUvarint(buf, body)
		if err != nil {
			return Option{}, 0, &MalformedTLVError{Offset: body, Field: opt.Field, Reason: "bad varint value", Err: err}
		}
		opt.Raw = clone(buf[body : body+vn])
		size = vn
	case Fixed32, Fixed64:
		size = 4
		if opt.WireType == Fixed64 {
			size = 8
		}
		if body+size > len(buf) {
			return Option{}, 0, &MalformedTLVError{Offset: body, Field: opt.Field,
				Reason: fmt.Sprintf("%s needs %d bytes, %d left", opt.WireType, size, len(buf)-body)}
		}
		opt.Raw = clone(buf[body : body+size])
	case LengthDelimited:
		length, ln, err := DecodeUvarint(buf, body)
		if err != nil {
			return Option{}, 0, &MalformedTLVError{Offset: body, Field: opt.Field, Reason: "bad length prefix", Err: err}
		}
		data := body + ln
		if length > uint64(len(buf)-data) {
			return Option{}, 0, &MalformedTLVError{Offset: data, Field: opt.Field,
				Reason: fmt.Sprintf("declared length %d exceeds %d remaining bytes", length, len(buf)-data)}
		}
		opt.Raw = clone(buf[data : data+int(length)])
		size = ln + int(length)
	case StartGroup, EndGroup:
		size = 0
	default:
		return Option{}, 0, &MalformedTLVError{Offset: pos, Field: opt.Field, Reason: fmt.Sprintf("unknown wire type %d", uint8(opt.WireType))}
	}
	return opt, n + size, nil
}

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Options returns, in wire order, the options of every record carrying tag.
func (rs Records) Options(tag uint64) []Option {
	var opts []Option
	for _, r := range rs {
		if r.Tag == tag {
			opts = append(opts, r.Options...)
		}
	}
	return opts
}

// WithTag returns the records carrying tag.
func (rs Records) WithTag(tag uint64) Records {
	var out Records
	for _, r := range rs {
		if r.Tag == tag {
			out = append(out, r)
		}
	}
	return out
}

// First returns the first option with the given field number.
func First(opts []Option, field uint8) (Option, bool) {
	for _, o := range opts {
		if o.Field == field {
			return o, true
		}
	}
	return Option{}, false
}

// All returns every option with the given field number, in order.
func All(opts []Option, field uint8) []Option {
	var out []Option
	for _, o := range opts {
		if o.Field == field {
			out = append(out, o)
		}
	}
	return out
}
