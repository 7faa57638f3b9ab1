package device

import (
	"errors"
	"fmt"
	"time"

	"github.com/berfenger/amicomm/internal/config"
	"github.com/berfenger/amicomm/pkg/commmodule"
	"github.com/berfenger/amicomm/pkg/psem"

	"go.uber.org/zap"
)

var ErrNoTransport = errors.New("no PSEM transport configured, set device.simulate")

// Handle is an open comm module session.
type Handle struct {
	Module    *commmodule.CiscoCommModule
	Session   *psem.Session
	Simulator *commmodule.SimulatedModule
}

// QuirkTable applies the configured firmware boundaries over the defaults.
func QuirkTable(cfg config.CommModuleConfig) (commmodule.QuirkTable, error) {
	table := commmodule.DefaultQuirkTable()
	if cfg.ActivationThreshold != "" {
		v, err := psem.ParseVersion(cfg.ActivationThreshold)
		if err != nil {
			return table, fmt.Errorf("comm_module.activation_threshold: %w", err)
		}
		table.ActivationThreshold = v
	}
	if cfg.PANIDReverseBelow != "" {
		v, err := psem.ParseVersion(cfg.PANIDReverseBelow)
		if err != nil {
			return table, fmt.Errorf("comm_module.pan_id_reverse_below: %w", err)
		}
		table.PANIDReverseBelow = v
	}
	return table, nil
}

// Open builds the comm module described by cfg. Only the simulated module is
// built in; the session is instrumented with every non-nil instrument.
func Open(cfg config.Config, logger *zap.Logger, instrumentation ...*psem.Instrument) (*Handle, error) {
	if !cfg.Device.Simulate {
		return nil, ErrNoTransport
	}
	firmware, err := psem.ParseVersion(cfg.Device.FirmwareVersion)
	if err != nil {
		return nil, fmt.Errorf("device.firmware_version: %w", err)
	}
	hardware, err := psem.ParseVersion(cfg.Device.HardwareVersion)
	if err != nil {
		return nil, fmt.Errorf("device.hardware_version: %w", err)
	}
	table, err := QuirkTable(cfg.CommModule)
	if err != nil {
		return nil, err
	}

	sim := commmodule.NewSimulatedModule(firmware, hardware, table, commmodule.DefaultFixture())
	session := psem.NewSession(sim, logger, instrumentation...)
	module := commmodule.NewCiscoCommModule(session, commmodule.Options{
		Quirks:            table,
		IPStackResetDelay: time.Duration(cfg.CommModule.IPStackResetDelayMillis) * time.Millisecond,
		Logger:            logger,
	})
	return &Handle{Module: module, Session: session, Simulator: sim}, nil
}
