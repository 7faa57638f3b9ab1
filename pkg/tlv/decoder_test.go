package tlv

import (
	"bytes"
	"encoding/binary"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHardwareDescription(t *testing.T) {

	assert := assert.New(t)

	buf := []byte{0x0B, 0x02, 0x06, 0x31, 0x32, 0x33, 0x34, 0x35, 0x36}
	records, err := Parse(buf)
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(uint64(0x0B), rec.Tag)
	assert.Equal(0, rec.Offset)
	require.Len(t, rec.Options, 1)
	assert.Equal(uint8(0), rec.Options[0].Field)
	assert.Equal(LengthDelimited, rec.Options[0].WireType)
	assert.Equal([]byte("123456"), rec.Options[0].Raw)
}

func TestParseEmpty(t *testing.T) {
	records, err := Parse(nil)
	require.NoError(t, err)
	require.Empty(t, records)
}

func TestParseAllWireTypes(t *testing.T) {

	assert := assert.New(t)

	enc := Encoder{}
	enc.Record(0x30,
		NewVarint(1, 11),
		NewFixed32(2, 0xBEEF, binary.BigEndian),
		NewFixed64(3, 0x0102030405060708, binary.LittleEndian),
		NewString(4, "pan"),
		NewSigned(5, -71),
	)

	records, err := Parse(enc.Bytes())
	require.NoError(t, err)
	require.Len(t, records, 5)

	opts := records.Options(0x30)
	require.Len(t, opts, 5)
	assert.Equal([]byte{0x00, 0x00, 0xBE, 0xEF}, opts[1].Raw, "fixed32 copied verbatim")
	assert.Equal([]byte{8, 7, 6, 5, 4, 3, 2, 1}, opts[2].Raw, "fixed64 copied verbatim")

	ch, err := opts[0].Uint64()
	require.NoError(t, err)
	assert.Equal(uint64(11), ch)

	pan, err := opts[1].Fixed32(binary.BigEndian)
	require.NoError(t, err)
	assert.Equal(uint32(0xBEEF), pan)

	s, err := opts[3].Text()
	require.NoError(t, err)
	assert.Equal("pan", s)

	rssi, err := opts[4].Int32()
	require.NoError(t, err)
	assert.Equal(int32(-71), rssi)
}

func TestParseSkipsGroups(t *testing.T) {

	assert := assert.New(t)

	// tag 1 start group (field 1), tag 1 varint, tag 1 end group (field 1)
	buf := []byte{0x01, 0x0B, 0x01, 0x08, 0x05, 0x01, 0x0C}
	records, err := Parse(buf)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Empty(records[0].Options)
	assert.Empty(records[2].Options)
	opts := records.Options(1)
	require.Len(t, opts, 1)
	assert.Equal([]byte{0x05}, opts[0].Raw)

	nested, err := ParseOptions([]byte{0x0B, 0x08, 0x07, 0x0C})
	require.NoError(t, err)
	require.Len(t, nested, 1)
	assert.Equal(uint8(1), nested[0].Field)
}

func TestParseTruncatedLengthDelimited(t *testing.T) {

	assert := assert.New(t)

	enc := Encoder{}
	enc.Record(0x0B, NewString(0, "123456"))
	good := enc.Len()
	// declares 10 bytes, carries 3
	buf := append(enc.Bytes(), 0x0B, 0x0A, 0x0A, 'a', 'b', 'c')

	records, err := Parse(buf)
	require.Error(t, err)

	var malformed *MalformedTLVError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(good+3, malformed.Offset, "offset of the missing payload")
	assert.Equal(uint64(0x0B), malformed.Tag)
	assert.Equal(uint8(1), malformed.Field)
	require.Len(t, records, 1, "records before the failure are kept")
	assert.Equal([]byte("123456"), records[0].Options[0].Raw)
}

func TestParseTruncatedFixed(t *testing.T) {
	records, err := Parse([]byte{0x07, 0x08, 0x01, 0x07, 0x0D, 0x01, 0x02})
	var malformed *MalformedTLVError
	require.ErrorAs(t, err, &malformed)
	require.Equal(t, 5, malformed.Offset)
	require.Len(t, records, 1)
}

func TestParseUnknownWireType(t *testing.T) {
	// field 1, wire type 6
	records, err := Parse([]byte{0x02, 0x0E, 0x00})
	var malformed *MalformedTLVError
	require.ErrorAs(t, err, &malformed)
	require.Equal(t, 1, malformed.Offset)
	require.Contains(t, malformed.Error(), "unknown wire type 6")
	require.Empty(t, records)
}

func TestParseVarintErrorsAreWrapped(t *testing.T) {

	// varint value runs off the end of the buffer
	_, err := Parse([]byte{0x02, 0x08, 0x80})
	var malformed *MalformedTLVError
	require.ErrorAs(t, err, &malformed)
	require.Equal(t, 2, malformed.Offset)
	var truncated *TruncatedVarintError
	require.ErrorAs(t, err, &truncated)
	require.Equal(t, 2, truncated.Offset)

	// eleven byte varint value
	buf := append([]byte{0x02, 0x08}, bytes.Repeat([]byte{0xFF}, 11)...)
	_, err = Parse(buf)
	var overflow *VarintOverflowError
	require.ErrorAs(t, err, &overflow)
	require.Equal(t, 2, overflow.Offset)
}

func TestParseMissingHeader(t *testing.T) {
	records, err := Parse([]byte{0x01, 0x08, 0x01, 0x02})
	var malformed *MalformedTLVError
	require.ErrorAs(t, err, &malformed)
	require.Equal(t, 4, malformed.Offset)
	require.Len(t, records, 1)
}

func TestParseFieldNumberOutOfRange(t *testing.T) {
	// field 256, varint
	_, err := Parse([]byte{0x01, 0x80, 0x10, 0x00})
	var malformed *MalformedTLVError
	require.ErrorAs(t, err, &malformed)
}

func TestParseKeepsZeroAddress(t *testing.T) {

	enc := Encoder{}
	enc.Record(0x35, NewNested(1, NewBytes(1, make([]byte, 8)), NewSigned(2, -60)))

	records, err := Parse(enc.Bytes())
	require.NoError(t, err)
	require.Len(t, records, 1)

	nested, err := records[0].Options[0].Nested()
	require.NoError(t, err)
	addr, ok := First(nested, 1)
	require.True(t, ok)
	require.True(t, addr.IsZero())
}

func TestFirstAndAll(t *testing.T) {

	assert := assert.New(t)

	opts := []Option{NewVarint(1, 10), NewVarint(2, 5), NewVarint(1, 20)}
	first, ok := First(opts, 1)
	assert.True(ok)
	v, _ := first.Uint64()
	assert.Equal(uint64(10), v, "first duplicate wins")
	assert.Len(All(opts, 1), 2)
	_, ok = First(opts, 9)
	assert.False(ok)
}

func TestRoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(7))

	for trial := 0; trial < 256; trial++ {
		enc := Encoder{}
		var tags []uint8
		var want []Option
		for i := r.Intn(12); i >= 0; i-- {
			tag := uint8(r.Intn(256))
			opt := randomOption(r)
			enc.Record(tag, opt)
			tags = append(tags, tag)
			want = append(want, opt)
		}

		records, err := Parse(enc.Bytes())
		require.NoError(t, err)
		require.Len(t, records, len(want))
		for i, rec := range records {
			require.Equal(t, uint64(tags[i]), rec.Tag)
			require.Len(t, rec.Options, 1)
			require.Equal(t, want[i].Field, rec.Options[0].Field)
			require.Equal(t, want[i].WireType, rec.Options[0].WireType)
			require.Equal(t, want[i].Raw, rec.Options[0].Raw)
		}

		opts, err := ParseOptions(MarshalOptions(want...))
		require.NoError(t, err)
		require.Equal(t, want, opts)
	}
}

func randomOption(r *rand.Rand) Option {
	field := uint8(r.Intn(256))
	switch r.Intn(5) {
	case 0:
		return NewVarint(field, r.Uint64()>>uint(r.Intn(64)))
	case 1:
		return NewSigned(field, int32(r.Uint32()))
	case 2:
		return NewFixed32(field, r.Uint32(), binary.LittleEndian)
	case 3:
		return NewFixed64(field, r.Uint64(), binary.BigEndian)
	default:
		b := make([]byte, r.Intn(300))
		r.Read(b)
		return NewBytes(field, b)
	}
}
