package commmodule

import (
	"sync"
	"testing"

	"github.com/berfenger/amicomm/pkg/psem"
	"github.com/berfenger/amicomm/pkg/tlv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestModule(t *testing.T, firmware string) (*CiscoCommModule, *SimulatedModule) {
	t.Helper()
	table := DefaultQuirkTable()
	sim := NewSimulatedModule(psem.MustParseVersion(firmware), psem.MustParseVersion("2.0"), table, DefaultFixture())
	cm := NewCiscoCommModule(psem.NewSession(sim, nil), Options{
		Quirks: table,
		Logger: zap.Must(zap.NewDevelopment()),
	})
	return cm, sim
}

func TestCiscoHardwareDescription(t *testing.T) {

	assert := assert.New(t)

	cm, sim := newTestModule(t, "6.0.0")
	hw, err := cm.HardwareDescription()
	require.NoError(t, err)
	assert.Equal(DefaultFixture().Hardware.Model, hw.Model)
	assert.Equal(uint64(0x00173B1200A4C5E1), hw.MAC)

	mac, err := cm.MACAddress()
	require.NoError(t, err)
	assert.Equal(hw.MAC, mac)

	assert.False(sim.IsTableUsed(TableTLVRequestedData), "table hidden again")
	assert.Len(sim.CallsTo(ProcActivateTableCurrent), 4)
	assert.Empty(sim.CallsTo(ProcActivateTableLegacy))
}

func TestCiscoLegacyFirmware(t *testing.T) {

	cm, sim := newTestModule(t, "5.5.0")
	require.Equal(t, ActivationLegacy150, cm.Quirks().Activation)

	_, err := cm.WPANStatus()
	require.NoError(t, err)
	require.Len(t, sim.CallsTo(ProcActivateTableLegacy), 2)
	require.Empty(t, sim.CallsTo(ProcActivateTableCurrent))
}

func TestCiscoVariantResolvedOnce(t *testing.T) {

	cm, sim := newTestModule(t, "5.5.0")
	// a later firmware change is not seen by this session
	sim.SetFirmwareVersion(psem.MustParseVersion("6.0.0"))
	_, err := cm.HardwareDescription()
	require.NoError(t, err)
	require.Len(t, sim.CallsTo(ProcActivateTableLegacy), 2)
}

func TestCiscoWPANStatusPANIDOrder(t *testing.T) {

	assert := assert.New(t)

	for _, fw := range []string{"5.1.0", "6.0.0"} {
		cm, _ := newTestModule(t, fw)
		st, err := cm.WPANStatus()
		require.NoError(t, err, fw)
		assert.Equal(DefaultFixture().WPAN, *st, fw)
	}

	// an old firmware answer read without the quirk shows the swapped bytes
	table := DefaultQuirkTable()
	old := table.Resolve(psem.MustParseVersion("5.1.0"))
	enc := tlv.Encoder{}
	EncodeWPANStatus(&enc, WPANStatus{Channel: 11, PANID: 0x1A2B}, old)
	records, err := tlv.Parse(enc.Bytes())
	require.NoError(t, err)
	st, err := DecodeWPANStatus(records, table.Resolve(psem.MustParseVersion("6.0.0")))
	require.NoError(t, err)
	assert.Equal(uint16(0x2B1A), st.PANID)
}

func TestCiscoNeighbors(t *testing.T) {

	cm, _ := newTestModule(t, "6.0.0")
	neighbors, err := cm.Neighbors()
	require.NoError(t, err)
	require.Len(t, neighbors, 2, "empty slot dropped")
	require.Equal(t, "00:17:3b:12:00:90:11:01", neighbors[0].Address.String())
	require.Equal(t, int32(-71), neighbors[0].RSSIForward)
	require.Equal(t, int32(-91), neighbors[1].RSSIReverse)
}

func TestCiscoResetIPStack(t *testing.T) {

	cm, sim := newTestModule(t, "6.0.0")
	require.NoError(t, cm.ResetIPStack())
	require.Equal(t, []StackType{StackNone, StackMesh}, sim.StackHistory())

	stack, err := cm.IPStackType()
	require.NoError(t, err)
	require.Equal(t, StackMesh, stack)
}

func TestCiscoResetIPStackRefused(t *testing.T) {

	cm, sim := newTestModule(t, "6.0.0")
	sim.ScriptResults(ProcSetIPStack, psem.ResultInvalidParam)
	err := cm.ResetIPStack()
	var perr *psem.ProcedureError
	require.ErrorAs(t, err, &perr)
	require.Equal(t, ProcSetIPStack, perr.Procedure)
	require.Empty(t, sim.StackHistory())
}

func TestCiscoMalformedAnswer(t *testing.T) {

	assert := assert.New(t)

	cm, sim := newTestModule(t, "6.0.0")
	enc := tlv.Encoder{}
	enc.Record(TagWPANStatus, tlv.NewVarint(1, 15))
	// second record declares 9 bytes and carries 2
	sim.SetResponse(TLVIdentifier(TagWPANStatus), append(enc.Bytes(), TagWPANStatus, 0x12, 0x09, 0x01, 0x02))

	records, err := cm.RequestTLV(TLVIdentifier(TagWPANStatus))
	var malformed *tlv.MalformedTLVError
	require.ErrorAs(t, err, &malformed)
	assert.Len(records, 1)
	assert.False(sim.IsTableUsed(TableTLVRequestedData))

	_, err = cm.WPANStatus()
	assert.ErrorAs(err, &malformed)
}

func TestCiscoUnknownIdentifier(t *testing.T) {

	cm, sim := newTestModule(t, "6.0.0")
	_, err := cm.RawTLV("q=99")
	var perr *psem.ProcedureError
	require.ErrorAs(t, err, &perr)
	require.Equal(t, psem.ResultInvalidParam, perr.Code)
	require.False(t, sim.IsTableUsed(TableTLVRequestedData))
}

func TestCiscoRequestsDoNotInterleave(t *testing.T) {

	cm, sim := newTestModule(t, "6.0.0")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := cm.HardwareDescription()
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	calls := sim.Calls()
	require.Len(t, calls, 24)
	for i := 0; i < len(calls); i += 3 {
		require.Equal(t, ProcActivateTableCurrent, calls[i].Procedure)
		require.Equal(t, byte(1), calls[i].Params[2])
		require.Equal(t, ProcSendRawCSMP, calls[i+1].Procedure)
		require.Equal(t, ProcActivateTableCurrent, calls[i+2].Procedure)
		require.Equal(t, byte(0), calls[i+2].Params[2])
	}
}

func TestRequesterOutsideGate(t *testing.T) {
	_, sim := newTestModule(t, "6.0.0")
	_, err := NewRequester(sim, nil).Request(TLVIdentifier(TagHardwareDesc))
	var perr *psem.ProcedureError
	require.ErrorAs(t, err, &perr)
	require.Equal(t, psem.ResultNoAuthorization, perr.Code)
}
