package tlv

import "fmt"

// WireType is the 3-bit payload kind carried in every option header.
type WireType uint8

const (
	Varint          WireType = 0
	Fixed64         WireType = 1
	LengthDelimited WireType = 2
	StartGroup      WireType = 3 // deprecated, carries no data
	EndGroup        WireType = 4 // deprecated, carries no data
	Fixed32         WireType = 5
)

func (w WireType) String() string {
	switch w {
	case Varint:
		return "varint"
	case Fixed64:
		return "fixed64"
	case LengthDelimited:
		return "length_delimited"
	case StartGroup:
		return "start_group"
	case EndGroup:
		return "end_group"
	case Fixed32:
		return "fixed32"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(w))
	}
}

// Known reports whether w is one of the six wire types of the format.
func (w WireType) Known() bool {
	return w <= Fixed32
}

// IsGroup reports whether w is one of the deprecated group markers.
func (w WireType) IsGroup() bool {
	return w == StartGroup || w == EndGroup
}
