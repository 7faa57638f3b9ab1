package commmodule

import (
	"net"
	"testing"

	"github.com/berfenger/amicomm/pkg/tlv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMACAddress(t *testing.T) {

	assert := assert.New(t)

	mac, err := ParseMACAddress("123456")
	assert.NoError(err)
	assert.Equal(uint64(0x123456), mac)

	mac, err = ParseMACAddress("00:17:3b:12:00:a4:c5:e1")
	assert.NoError(err)
	assert.Equal(uint64(0x00173B1200A4C5E1), mac)
	assert.Equal("00:17:3b:12:00:a4:c5:e1", FormatMACAddress(mac))

	for _, bad := range []string{"", "xyz", "00173B1200A4C5E1FF"} {
		_, err := ParseMACAddress(bad)
		assert.Error(err, bad)
	}
}

func TestHardwareDescriptionFromWire(t *testing.T) {

	records, err := tlv.Parse([]byte{0x0B, 0x02, 0x06, 0x31, 0x32, 0x33, 0x34, 0x35, 0x36})
	require.NoError(t, err)

	hw, err := DecodeHardwareDescription(records)
	require.NoError(t, err)
	require.Equal(t, "123456", hw.HardwareAddress)
	require.Equal(t, uint64(0x123456), hw.MAC)
	require.Empty(t, hw.Model)
}

func TestHardwareDescriptionMissingAddress(t *testing.T) {
	enc := tlv.Encoder{}
	enc.Record(TagHardwareDesc, tlv.NewString(2, "ITM"))
	records, err := tlv.Parse(enc.Bytes())
	require.NoError(t, err)

	_, err = DecodeHardwareDescription(records)
	require.ErrorIs(t, err, ErrMissingField)
}

func TestZeroNeighborAddress(t *testing.T) {

	assert := assert.New(t)

	enc := tlv.Encoder{}
	EncodeNeighbors(&enc, []Neighbor{
		{Address: make(net.HardwareAddr, 8), RSSIForward: -50},
		{Address: net.HardwareAddr{0, 0, 0, 0, 0, 0, 0, 1}, RSSIForward: -60, LinkCost: 3},
	})
	records, err := tlv.Parse(enc.Bytes())
	require.NoError(t, err)
	require.Len(t, records, 2, "the decoder keeps the empty slot")

	neighbors, err := DecodeNeighbors(records)
	require.NoError(t, err)
	require.Len(t, neighbors, 2)
	assert.True(neighbors[0].IsEmpty())

	filtered := FilterEmptyNeighbors(neighbors)
	require.Len(t, filtered, 1)
	assert.Equal(int32(-60), filtered[0].RSSIForward)
	assert.Equal(uint32(3), filtered[0].LinkCost)
}

func TestNeighborAddressLength(t *testing.T) {
	enc := tlv.Encoder{}
	enc.Record(TagNeighbors, tlv.NewNested(1, tlv.NewBytes(1, []byte{1, 2, 3})))
	records, err := tlv.Parse(enc.Bytes())
	require.NoError(t, err)
	_, err = DecodeNeighbors(records)
	require.Error(t, err)
}

func TestDecodeRecords(t *testing.T) {

	assert := assert.New(t)

	enc := tlv.Encoder{}
	EncodeWPANStatus(&enc, WPANStatus{Channel: 20, PANID: 0x00FF, TXPower: -2}, Quirks{})
	enc.Record(0x7E, tlv.NewVarint(1, 9))
	EncodeNeighbors(&enc, DefaultFixture().Neighbors[:1])

	records, err := tlv.Parse(enc.Bytes())
	require.NoError(t, err)

	decoded, err := DecodeRecords(records)
	require.NoError(t, err)
	require.Len(t, decoded, 3)

	assert.Equal("wpan_status", decoded[0].Name)
	assert.Equal(uint64(20), decoded[0].Values[0].Value)
	assert.Equal(uint32(0x00FF), decoded[0].Values[1].Value)
	assert.Equal(int32(-2), decoded[0].Values[2].Value)

	assert.Equal("tlv_126", decoded[1].Name)
	assert.Equal("field_1", decoded[1].Values[0].Name)
	assert.Equal("09", decoded[1].Values[0].Value)

	assert.Equal("neighbors", decoded[2].Name)
	nested, ok := decoded[2].Values[0].Value.([]tlv.Value)
	require.True(t, ok)
	assert.Equal("00173b1200901101", nested[0].Value)
	assert.Equal(int32(-71), nested[1].Value)
}
