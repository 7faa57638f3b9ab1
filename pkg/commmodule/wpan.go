package commmodule

import (
	"encoding/binary"
	"math/bits"

	"github.com/berfenger/amicomm/pkg/tlv"
)

type WPANStatus struct {
	Channel uint32 `json:"channel" yaml:"channel"`
	PANID   uint16 `json:"pan_id" yaml:"pan_id"`
	TXPower int32  `json:"tx_power" yaml:"tx_power"`
	RPLRank uint32 `json:"rpl_rank" yaml:"rpl_rank"`
	Joined  bool   `json:"joined" yaml:"joined"`
}

func DecodeWPANStatus(records tlv.Records, quirks Quirks) (*WPANStatus, error) {
	opts := records.Options(uint64(TagWPANStatus))
	st := &WPANStatus{}

	o, err := requireField(opts, 1, "channel")
	if err != nil {
		return nil, err
	}
	if st.Channel, err = o.Uint32(); err != nil {
		return nil, err
	}

	if o, err = requireField(opts, 2, "pan_id"); err != nil {
		return nil, err
	}
	pan, err := o.Fixed32(binary.LittleEndian)
	if err != nil {
		return nil, err
	}
	st.PANID = panID(uint16(pan), quirks)

	if o, ok := tlv.First(opts, 3); ok {
		if st.TXPower, err = o.Int32(); err != nil {
			return nil, err
		}
	}
	if o, ok := tlv.First(opts, 4); ok {
		if st.RPLRank, err = o.Uint32(); err != nil {
			return nil, err
		}
	}
	if o, ok := tlv.First(opts, 5); ok {
		if st.Joined, err = o.Bool(); err != nil {
			return nil, err
		}
	}
	return st, nil
}

// older firmware sends the PAN id with its two bytes swapped
func panID(raw uint16, quirks Quirks) uint16 {
	if quirks.ReversePANID {
		return bits.ReverseBytes16(raw)
	}
	return raw
}

// EncodeWPANStatus writes st the way a firmware with quirks would.
func EncodeWPANStatus(enc *tlv.Encoder, st WPANStatus, quirks Quirks) {
	joined := uint64(0)
	if st.Joined {
		joined = 1
	}
	enc.Record(TagWPANStatus,
		tlv.NewVarint(1, uint64(st.Channel)),
		tlv.NewFixed32(2, uint32(panID(st.PANID, quirks)), binary.LittleEndian),
		tlv.NewSigned(3, st.TXPower),
		tlv.NewVarint(4, uint64(st.RPLRank)),
		tlv.NewVarint(5, joined),
	)
}
