package commmodule

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/berfenger/amicomm/pkg/psem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// gateDevice understands the activation procedure of variant and answers
// deactivations with deactivateCode.
func gateDevice(variant ActivationVariant, deactivateCode psem.ResultCode) *psem.SimulatedDevice {
	dev := psem.NewSimulatedDevice(psem.Version{}, psem.Version{})
	dev.Handle(variant.Procedure(), func(d *psem.SimulatedDevice, params []byte) (psem.ResultCode, []byte, error) {
		activate := params[2] == 1
		if !activate && deactivateCode != psem.ResultCompleted {
			return deactivateCode, nil, nil
		}
		d.SetTableVisible(psem.TableID(binary.LittleEndian.Uint16(params)), activate)
		return psem.ResultCompleted, nil, nil
	})
	return dev
}

func TestActivationParams(t *testing.T) {

	assert := assert.New(t)

	// MT462 is 2510, 0x09CE
	assert.Equal([]byte{0xCE, 0x09, 0x01}, ActivationLegacy150.Params(TableTLVRequestedData, true))
	assert.Equal([]byte{0xCE, 0x09, 0x00}, ActivationLegacy150.Params(TableTLVRequestedData, false))
	assert.Equal([]byte{0xCE, 0x09, 0x01, 0x00}, ActivationCurrent159.Params(TableTLVRequestedData, true))
	assert.Equal([]byte{0xCE, 0x09, 0x00, 0x00}, ActivationCurrent159.Params(TableTLVRequestedData, false))
	assert.Equal(psem.MfgProcedure(150), ActivationLegacy150.Procedure())
	assert.Equal(psem.MfgProcedure(159), ActivationCurrent159.Procedure())
}

func TestQuirkResolution(t *testing.T) {

	assert := assert.New(t)

	table := DefaultQuirkTable()
	assert.Equal(ActivationLegacy150, table.Resolve(psem.MustParseVersion("5.4.9")).Activation)
	assert.Equal(ActivationLegacy150, table.Resolve(psem.MustParseVersion("5.5.0")).Activation, "threshold itself is legacy")
	assert.Equal(ActivationCurrent159, table.Resolve(psem.MustParseVersion("5.5.1")).Activation)
	assert.Equal(ActivationCurrent159, table.Resolve(psem.MustParseVersion("6.0.0")).Activation)

	assert.True(table.Resolve(psem.MustParseVersion("5.1.3")).ReversePANID)
	assert.False(table.Resolve(psem.MustParseVersion("5.2.0")).ReversePANID)

	table.ActivationThreshold = psem.MustParseVersion("6.0.0")
	assert.Equal(ActivationLegacy150, table.Resolve(psem.MustParseVersion("5.9.0")).Activation)
}

func TestGateHiddenTableFailingUse(t *testing.T) {

	assert := assert.New(t)

	dev := gateDevice(ActivationCurrent159, psem.ResultCompleted)
	gate := NewGate(dev, ActivationCurrent159, zap.Must(zap.NewDevelopment()))

	useErr := errors.New("use failed")
	called := false
	err := gate.WithTable(TableTLVRequestedData, func() error {
		called = true
		assert.True(dev.IsTableUsed(TableTLVRequestedData))
		return useErr
	})

	assert.True(called)
	assert.ErrorIs(err, useErr)
	calls := dev.CallsTo(ProcActivateTableCurrent)
	require.Len(t, calls, 2, "one activate, exactly one deactivate")
	assert.Equal([]byte{0xCE, 0x09, 0x01, 0x00}, calls[0].Params)
	assert.Equal([]byte{0xCE, 0x09, 0x00, 0x00}, calls[1].Params)
	assert.False(dev.IsTableUsed(TableTLVRequestedData))
}

func TestGateVisibleTable(t *testing.T) {

	dev := gateDevice(ActivationLegacy150, psem.ResultCompleted)
	dev.SetTableVisible(TableTLVRequestedData, true)
	gate := NewGate(dev, ActivationLegacy150, nil)

	err := gate.WithTable(TableTLVRequestedData, func() error { return errors.New("whatever") })
	require.Error(t, err)
	require.Empty(t, dev.Calls(), "no activate and no deactivate")
	require.True(t, dev.IsTableUsed(TableTLVRequestedData))

	state, err := gate.Acquire(TableTLVRequestedData)
	require.NoError(t, err)
	require.True(t, state.WasVisible)
	require.NoError(t, gate.Release(state))
	require.Empty(t, dev.Calls())
}

func TestGateActivationRefused(t *testing.T) {

	assert := assert.New(t)

	dev := gateDevice(ActivationLegacy150, psem.ResultCompleted)
	dev.ScriptResults(ProcActivateTableLegacy, psem.ResultNoAuthorization)
	gate := NewGate(dev, ActivationLegacy150, nil)

	called := false
	err := gate.WithTable(TableTLVRequestedData, func() error {
		called = true
		return nil
	})

	var activationErr *ActivationError
	require.ErrorAs(t, err, &activationErr)
	assert.Equal(psem.ResultNoAuthorization, activationErr.Code)
	assert.True(activationErr.Activate)
	assert.Equal(TableTLVRequestedData, activationErr.Table)
	assert.Equal(ActivationLegacy150, activationErr.Variant)
	assert.False(called)
	assert.Len(dev.Calls(), 1, "no deactivate after a refused activate")
}

func TestGateActivationTransportError(t *testing.T) {

	dev := gateDevice(ActivationCurrent159, psem.ResultCompleted)
	boom := errors.New("link down")
	dev.FailTransport(ProcActivateTableCurrent, boom)
	gate := NewGate(psem.NewSession(dev, nil), ActivationCurrent159, nil)

	err := gate.WithTable(TableTLVRequestedData, func() error { return nil })
	var terr *psem.TransportError
	require.ErrorAs(t, err, &terr)
	require.ErrorIs(t, err, boom)
	require.Len(t, dev.Calls(), 1)
}

func TestGateDeactivationFailure(t *testing.T) {

	assert := assert.New(t)

	dev := gateDevice(ActivationCurrent159, psem.ResultTimingConstraint)
	gate := NewGate(dev, ActivationCurrent159, nil)

	// use succeeded, the restore error is reported
	err := gate.WithTable(TableTLVRequestedData, func() error { return nil })
	var activationErr *ActivationError
	require.ErrorAs(t, err, &activationErr)
	assert.False(activationErr.Activate)
	assert.Equal(psem.ResultTimingConstraint, activationErr.Code)

	// both failed, both are reported
	dev.SetTableVisible(TableTLVRequestedData, false)
	useErr := errors.New("use failed")
	err = gate.WithTable(TableTLVRequestedData, func() error { return useErr })
	assert.ErrorIs(err, useErr)
	assert.ErrorAs(err, &activationErr)
	joined, ok := err.(interface{ Unwrap() []error })
	require.True(t, ok)
	assert.Equal(useErr, joined.Unwrap()[0], "use error first")
}

func TestGateDeactivatesOnPanic(t *testing.T) {

	dev := gateDevice(ActivationCurrent159, psem.ResultCompleted)
	gate := NewGate(dev, ActivationCurrent159, nil)

	assert.Panics(t, func() {
		_ = gate.WithTable(TableTLVRequestedData, func() error {
			panic("decoder bug")
		})
	})
	require.Len(t, dev.CallsTo(ProcActivateTableCurrent), 2)
	require.False(t, dev.IsTableUsed(TableTLVRequestedData))
}

func TestGateReleaseOnce(t *testing.T) {

	dev := gateDevice(ActivationCurrent159, psem.ResultCompleted)
	gate := NewGate(dev, ActivationCurrent159, nil)

	state, err := gate.Acquire(TableTLVRequestedData)
	require.NoError(t, err)
	require.False(t, state.WasVisible)
	require.NoError(t, gate.Release(state))
	require.NoError(t, gate.Release(state))
	require.NoError(t, gate.Release(nil))
	require.Len(t, dev.Calls(), 2)
}
