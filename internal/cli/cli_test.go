package cli

import (
	"bytes"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/berfenger/amicomm/pkg/commmodule"
	"github.com/berfenger/amicomm/pkg/tlv"

	"github.com/goccy/go-yaml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := CmdAmiDiag()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func wpanHex() string {
	enc := tlv.Encoder{}
	commmodule.EncodeWPANStatus(&enc, commmodule.WPANStatus{Channel: 20, PANID: 0x00FF, TXPower: -2, Joined: true}, commmodule.Quirks{})
	return hex.EncodeToString(enc.Bytes())
}

func TestParseHex(t *testing.T) {

	assert := assert.New(t)

	buf, err := ParseHex(" 0x0b:02 00\n")
	assert.NoError(err)
	assert.Equal([]byte{0x0B, 0x02, 0x00}, buf)

	_, err = ParseHex("0g")
	assert.Error(err)
}

func TestDecodeText(t *testing.T) {

	assert := assert.New(t)

	out, err := execute(t, "", "decode", wpanHex())
	require.NoError(t, err)
	assert.Contains(out, "wpan_status (tag 48)\n")
	assert.Contains(out, "  channel: 20\n")
	assert.Contains(out, "  tx_power: -2\n")
	assert.Contains(out, "  joined: true\n")
}

func TestDecodeYAMLFromStdin(t *testing.T) {

	out, err := execute(t, wpanHex()+"\n", "decode", "-", "--format", "yaml")
	require.NoError(t, err)

	var decoded []map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "wpan_status", decoded[0]["name"])
}

func TestDecodeMalformed(t *testing.T) {

	assert := assert.New(t)

	// a complete ip stack record, then a record that stops after its option header
	out, err := execute(t, "", "decode", "3c0801 3008")
	var malformed *tlv.MalformedTLVError
	assert.ErrorAs(err, &malformed)
	assert.Contains(out, "ip_stack (tag 60)\n  stack_type: 1\n")

	_, err = execute(t, "", "decode", "3c0801", "--format", "xml")
	assert.ErrorIs(err, ErrUnknownFormat)
}

func TestReadSnapshot(t *testing.T) {

	assert := assert.New(t)

	out, err := execute(t, "", "read", "--firmware", "5.1.0")
	require.NoError(t, err)

	var snapshot map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &snapshot))
	assert.Equal("5.1.0", snapshot["firmware"])
	assert.Equal("legacy-150", snapshot["activation"])
	assert.Equal("mesh", snapshot["ip_stack"])
	assert.NotContains(snapshot, "errors")
}

func TestReadTLV(t *testing.T) {

	out, err := execute(t, "", "read", "--tlv", "q=60")
	require.NoError(t, err)
	assert.Equal(t, "ip_stack (tag 60)\n  stack_type: 1\n", out)

	_, err = execute(t, "", "read", "--tlv", "q=7")
	require.Error(t, err)
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "amidiag "))
}
