package commmodule

import (
	"errors"
	"strings"
	"testing"

	"github.com/berfenger/amicomm/pkg/psem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingDevice struct {
	code      psem.ResultCode
	err       error
	data      []byte
	params    []byte
	sinkReads int
}

func (d *countingDevice) ExecuteProcedure(procedure psem.ProcedureID, params []byte) (psem.ResultCode, []byte, error) {
	d.params = params
	return d.code, []byte{0xFF}, d.err
}

func (d *countingDevice) RequestedTLVData() []byte {
	d.sinkReads++
	return d.data
}

func TestBuildRequestParameters(t *testing.T) {

	params, err := BuildRequestParameters("q=11")
	require.NoError(t, err)
	require.Equal(t, []byte{
		0x0D,
		0x0B, 0x00, 0x00, 0x00,
		0x40, 0x01, 0x00, 0x00, 0xB1, 0x63,
		0x04,
		'q', '=', '1', '1',
	}, params)

	id, err := ParseRequestParameters(params)
	require.NoError(t, err)
	require.Equal(t, "q=11", id)
}

func TestBuildRequestParametersLimits(t *testing.T) {

	assert := assert.New(t)

	_, err := BuildRequestParameters("")
	assert.ErrorIs(err, ErrInvalidIdentifier)
	_, err = BuildRequestParameters("q=ñ")
	assert.ErrorIs(err, ErrInvalidIdentifier)
	_, err = BuildRequestParameters(strings.Repeat("a", 256))
	assert.ErrorIs(err, ErrInvalidIdentifier)

	params, err := BuildRequestParameters(strings.Repeat("a", 255))
	assert.NoError(err)
	assert.Equal(byte(255), params[11])
	assert.Equal([]byte{0x06, 0x01, 0x00, 0x00}, params[1:5], "7 + 255")
}

func TestParseRequestParametersRejects(t *testing.T) {

	assert := assert.New(t)

	_, err := ParseRequestParameters([]byte{0x0D, 0x01})
	assert.ErrorIs(err, ErrInvalidIdentifier)

	params, _ := BuildRequestParameters("q=48")
	params[0] = 0x0C
	_, err = ParseRequestParameters(params)
	assert.ErrorIs(err, ErrInvalidIdentifier)

	params, _ = BuildRequestParameters("q=48")
	_, err = ParseRequestParameters(params[:len(params)-1])
	assert.ErrorIs(err, ErrInvalidIdentifier)
}

func TestRequestCompleted(t *testing.T) {

	assert := assert.New(t)

	dev := &countingDevice{code: psem.ResultCompleted, data: []byte{0x0B, 0x02, 0x00}}
	data, err := NewRequester(dev, nil).Request("q=11")
	require.NoError(t, err)
	assert.Equal([]byte{0x0B, 0x02, 0x00}, data, "payload comes from the sink, not the procedure response")
	assert.Equal(1, dev.sinkReads)

	data[0] = 0x00
	assert.Equal(byte(0x0B), dev.data[0], "caller gets a copy")
}

func TestRequestNotCompleted(t *testing.T) {

	dev := &countingDevice{code: psem.ResultDeviceSetupConflict, data: []byte{0x01}}
	data, err := NewRequester(dev, nil).Request("q=53")

	var perr *psem.ProcedureError
	require.ErrorAs(t, err, &perr)
	require.Equal(t, psem.ResultDeviceSetupConflict, perr.Code)
	require.Equal(t, ProcSendRawCSMP, perr.Procedure)
	require.Nil(t, data)
	require.Zero(t, dev.sinkReads)
}

func TestRequestTransportError(t *testing.T) {

	boom := &psem.TransportError{Procedure: ProcSendRawCSMP, Err: errors.New("timeout")}
	dev := &countingDevice{err: boom}
	_, err := NewRequester(dev, nil).Request("q=53")
	require.ErrorIs(t, err, boom)
	require.Zero(t, dev.sinkReads)
}

func TestRequestInvalidIdentifier(t *testing.T) {
	dev := &countingDevice{code: psem.ResultCompleted}
	_, err := NewRequester(dev, nil).Request("")
	require.ErrorIs(t, err, ErrInvalidIdentifier)
	require.Nil(t, dev.params, "nothing sent")
}
