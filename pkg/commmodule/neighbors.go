package commmodule

import (
	"fmt"
	"net"

	"github.com/berfenger/amicomm/pkg/tlv"
)

const neighborAddressLen = 8

type Neighbor struct {
	Address     net.HardwareAddr `json:"address" yaml:"address"`
	RSSIForward int32            `json:"rssi_forward" yaml:"rssi_forward"`
	RSSIReverse int32            `json:"rssi_reverse" yaml:"rssi_reverse"`
	LinkCost    uint32           `json:"link_cost" yaml:"link_cost"`
}

// IsEmpty reports an unused neighbor table slot, one with an all-zero address.
func (n Neighbor) IsEmpty() bool {
	for _, b := range n.Address {
		if b != 0 {
			return false
		}
	}
	return true
}

// DecodeNeighbors returns one neighbor per record, empty slots included.
func DecodeNeighbors(records tlv.Records) ([]Neighbor, error) {
	var out []Neighbor
	for _, o := range tlv.All(records.Options(uint64(TagNeighbors)), 1) {
		nested, err := o.Nested()
		if err != nil {
			return out, err
		}
		n, err := decodeNeighbor(nested)
		if err != nil {
			return out, err
		}
		out = append(out, n)
	}
	return out, nil
}

func decodeNeighbor(opts []tlv.Option) (Neighbor, error) {
	var n Neighbor
	o, err := requireField(opts, 1, "address")
	if err != nil {
		return n, err
	}
	addr, err := o.Bytes()
	if err != nil {
		return n, err
	}
	if len(addr) != neighborAddressLen {
		return n, fmt.Errorf("neighbor address is %d bytes, want %d", len(addr), neighborAddressLen)
	}
	n.Address = net.HardwareAddr(addr)

	if o, ok := tlv.First(opts, 2); ok {
		if n.RSSIForward, err = o.Int32(); err != nil {
			return n, err
		}
	}
	if o, ok := tlv.First(opts, 3); ok {
		if n.RSSIReverse, err = o.Int32(); err != nil {
			return n, err
		}
	}
	if o, ok := tlv.First(opts, 4); ok {
		if n.LinkCost, err = o.Uint32(); err != nil {
			return n, err
		}
	}
	return n, nil
}

// FilterEmptyNeighbors drops unused slots, keeping order.
func FilterEmptyNeighbors(neighbors []Neighbor) []Neighbor {
	out := make([]Neighbor, 0, len(neighbors))
	for _, n := range neighbors {
		if !n.IsEmpty() {
			out = append(out, n)
		}
	}
	return out
}

func EncodeNeighbors(enc *tlv.Encoder, neighbors []Neighbor) {
	for _, n := range neighbors {
		addr := make([]byte, neighborAddressLen)
		copy(addr, n.Address)
		enc.Record(TagNeighbors, tlv.NewNested(1,
			tlv.NewBytes(1, addr),
			tlv.NewSigned(2, n.RSSIForward),
			tlv.NewSigned(3, n.RSSIReverse),
			tlv.NewVarint(4, uint64(n.LinkCost)),
		))
	}
}
