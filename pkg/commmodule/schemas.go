package commmodule

import (
	"errors"
	"fmt"

	"github.com/berfenger/amicomm/pkg/tlv"
)

// TLV tags answered by the Cisco comm module.
const (
	TagHardwareDesc uint8 = 0x0B
	TagWPANStatus   uint8 = 0x30
	TagNeighbors    uint8 = 0x35
	TagIPStack      uint8 = 0x3C
)

var HardwareDescSchema = tlv.Schema{
	0: {Name: "hardware_address", As: tlv.AsString},
	1: {Name: "serial_number", As: tlv.AsString},
	2: {Name: "model", As: tlv.AsString},
	3: {Name: "firmware_revision", As: tlv.AsString},
	4: {Name: "hardware_revision", As: tlv.AsString},
}

// the PAN id byte order depends on firmware, see Quirks
var WPANStatusSchema = tlv.Schema{
	1: {Name: "channel", As: tlv.AsUnsigned},
	2: {Name: "pan_id", As: tlv.AsFixed32LE},
	3: {Name: "tx_power", As: tlv.AsSigned},
	4: {Name: "rpl_rank", As: tlv.AsUnsigned},
	5: {Name: "joined", As: tlv.AsBool},
}

var NeighborSchema = tlv.Schema{
	1: {Name: "address", As: tlv.AsBytes},
	2: {Name: "rssi_forward", As: tlv.AsSigned},
	3: {Name: "rssi_reverse", As: tlv.AsSigned},
	4: {Name: "link_cost", As: tlv.AsUnsigned},
}

var NeighborsSchema = tlv.Schema{
	1: {Name: "neighbor", As: tlv.AsNested, Nested: NeighborSchema},
}

var IPStackSchema = tlv.Schema{
	1: {Name: "stack_type", As: tlv.AsUnsigned},
}

type namedSchema struct {
	name   string
	schema tlv.Schema
}

var schemas = map[uint64]namedSchema{
	uint64(TagHardwareDesc): {"hardware_description", HardwareDescSchema},
	uint64(TagWPANStatus):   {"wpan_status", WPANStatusSchema},
	uint64(TagNeighbors):    {"neighbors", NeighborsSchema},
	uint64(TagIPStack):      {"ip_stack", IPStackSchema},
}

// SchemaFor returns the schema and name of a known tag.
func SchemaFor(tag uint64) (tlv.Schema, string, bool) {
	s, ok := schemas[tag]
	return s.schema, s.name, ok
}

// DecodedTLV is a TLV with its options interpreted through its schema.
type DecodedTLV struct {
	Tag    uint64      `yaml:"tag" json:"tag"`
	Name   string      `yaml:"name" json:"name"`
	Values []tlv.Value `yaml:"values" json:"values"`
}

// DecodeRecords groups records by tag, in order of first appearance, and
// interprets each group. Unknown tags keep their fields as hex.
func DecodeRecords(records tlv.Records) ([]DecodedTLV, error) {
	var order []uint64
	seen := make(map[uint64]bool)
	for _, r := range records {
		if !seen[r.Tag] {
			seen[r.Tag] = true
			order = append(order, r.Tag)
		}
	}

	out := make([]DecodedTLV, 0, len(order))
	for _, tag := range order {
		schema, name, ok := SchemaFor(tag)
		if !ok {
			name = fmt.Sprintf("tlv_%d", tag)
		}
		values, err := schema.Decode(records.Options(tag))
		if err != nil {
			return out, fmt.Errorf("%s: %w", name, err)
		}
		out = append(out, DecodedTLV{Tag: tag, Name: name, Values: values})
	}
	return out, nil
}

var ErrMissingField = errors.New("missing TLV field")

func requireField(opts []tlv.Option, field uint8, name string) (tlv.Option, error) {
	o, ok := tlv.First(opts, field)
	if !ok {
		return tlv.Option{}, fmt.Errorf("%w: %s (field %d)", ErrMissingField, name, field)
	}
	return o, nil
}
