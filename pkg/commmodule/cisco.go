package commmodule

import (
	"fmt"
	"sync"
	"time"

	"github.com/berfenger/amicomm/pkg/psem"
	"github.com/berfenger/amicomm/pkg/tlv"
	"go.uber.org/zap"
)

// ProcSetIPStack switches the network stack of the comm module.
var ProcSetIPStack = psem.MfgProcedure(151)

type StackType uint8

const (
	StackNone StackType = iota
	StackMesh
	StackCellular
)

func (s StackType) String() string {
	switch s {
	case StackNone:
		return "none"
	case StackMesh:
		return "mesh"
	case StackCellular:
		return "cellular"
	default:
		return fmt.Sprintf("stack(%d)", uint8(s))
	}
}

type Options struct {
	Quirks            QuirkTable
	IPStackResetDelay time.Duration
	Logger            *zap.Logger
}

// CiscoCommModule reads diagnostics from a Cisco cg-mesh comm module. Calls
// are serialized: the hidden table used for TLV requests is session-global.
type CiscoCommModule struct {
	mu         sync.Mutex
	device     psem.Device
	quirks     Quirks
	gate       *Gate
	requester  *Requester
	resetDelay time.Duration
	logger     *zap.Logger
}

// NewCiscoCommModule reads the firmware version once and resolves the
// behavior of this comm module from it.
func NewCiscoCommModule(device psem.Device, opts Options) *CiscoCommModule {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	quirks := opts.Quirks.Resolve(device.FirmwareVersion())
	logger = logger.With(zap.Stringer("firmware", quirks.Firmware))
	logger.Info("comm module session", zap.Stringer("activation", quirks.Activation), zap.Bool("reversePANID", quirks.ReversePANID))
	return &CiscoCommModule{
		device:     device,
		quirks:     quirks,
		gate:       NewGate(device, quirks.Activation, logger.With(zap.Stringer("table", TableTLVRequestedData))),
		requester:  NewRequester(device, logger),
		resetDelay: opts.IPStackResetDelay,
		logger:     logger,
	}
}

func (c *CiscoCommModule) Quirks() Quirks {
	return c.quirks
}

func (c *CiscoCommModule) FirmwareVersion() psem.Version {
	return c.quirks.Firmware
}

// RawTLV requests identifier and returns the undecoded answer.
func (c *CiscoCommModule) RawTLV(identifier string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.raw(identifier)
}

// RequestTLV requests identifier and decodes the answer. When decoding fails
// the records read before the failure are returned with the error.
func (c *CiscoCommModule) RequestTLV(identifier string) (tlv.Records, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.request(identifier)
}

func (c *CiscoCommModule) raw(identifier string) ([]byte, error) {
	var data []byte
	err := c.gate.WithTable(TableTLVRequestedData, func() error {
		var err error
		data, err = c.requester.Request(identifier)
		return err
	})
	return data, err
}

func (c *CiscoCommModule) request(identifier string) (tlv.Records, error) {
	data, err := c.raw(identifier)
	if err != nil {
		return nil, err
	}
	records, err := tlv.Parse(data)
	if err != nil {
		c.logger.Warn("malformed tlv answer", zap.String("identifier", identifier), zap.Int("records", len(records)), zap.Error(err))
	}
	return records, err
}

func (c *CiscoCommModule) HardwareDescription() (*HardwareDescription, error) {
	records, err := c.RequestTLV(TLVIdentifier(TagHardwareDesc))
	if err != nil {
		return nil, err
	}
	return DecodeHardwareDescription(records)
}

func (c *CiscoCommModule) MACAddress() (uint64, error) {
	hw, err := c.HardwareDescription()
	if err != nil {
		return 0, err
	}
	return hw.MAC, nil
}

func (c *CiscoCommModule) WPANStatus() (*WPANStatus, error) {
	records, err := c.RequestTLV(TLVIdentifier(TagWPANStatus))
	if err != nil {
		return nil, err
	}
	return DecodeWPANStatus(records, c.quirks)
}

// Neighbors returns the RPL neighbor table without its empty slots.
func (c *CiscoCommModule) Neighbors() ([]Neighbor, error) {
	records, err := c.RequestTLV(TLVIdentifier(TagNeighbors))
	if err != nil {
		return nil, err
	}
	neighbors, err := DecodeNeighbors(records)
	if err != nil {
		return nil, err
	}
	return FilterEmptyNeighbors(neighbors), nil
}

func (c *CiscoCommModule) IPStackType() (StackType, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stackType()
}

func (c *CiscoCommModule) stackType() (StackType, error) {
	records, err := c.request(TLVIdentifier(TagIPStack))
	if err != nil {
		return 0, err
	}
	o, err := requireField(records.Options(uint64(TagIPStack)), 1, "stack_type")
	if err != nil {
		return 0, err
	}
	v, err := o.Uint64()
	if err != nil {
		return 0, err
	}
	return StackType(v), nil
}

// ResetIPStack switches the stack off and back to its current type, waiting
// the configured delay in between for the network stack to settle.
func (c *CiscoCommModule) ResetIPStack() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	current, err := c.stackType()
	if err != nil {
		return err
	}
	if err := c.setStackType(StackNone); err != nil {
		return err
	}
	c.logger.Info("ip stack down", zap.Stringer("restore", current), zap.Duration("delay", c.resetDelay))
	if c.resetDelay > 0 {
		time.Sleep(c.resetDelay)
	}
	return c.setStackType(current)
}

func (c *CiscoCommModule) setStackType(stack StackType) error {
	code, _, err := c.device.ExecuteProcedure(ProcSetIPStack, []byte{byte(stack)})
	if err != nil {
		return err
	}
	if !code.Ok() {
		return &psem.ProcedureError{Procedure: ProcSetIPStack, Code: code}
	}
	return nil
}
