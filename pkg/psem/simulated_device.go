package psem

import (
	"slices"
	"sync"
)

// Call is one procedure execution seen by a SimulatedDevice.
type Call struct {
	Procedure ProcedureID
	Params    []byte
}

// ProcedureHandler emulates a procedure on a SimulatedDevice.
type ProcedureHandler func(dev *SimulatedDevice, params []byte) (ResultCode, []byte, error)

// SimulatedDevice is an in-process Device. Procedures are emulated by
// handlers, and results or transport failures can be scripted per procedure.
type SimulatedDevice struct {
	mu       sync.Mutex
	firmware Version
	hardware Version
	visible  map[TableID]bool
	handlers map[ProcedureID]ProcedureHandler
	scripted map[ProcedureID][]ResultCode
	failures map[ProcedureID]error
	tlvData  []byte
	calls    []Call
}

func NewSimulatedDevice(firmware Version, hardware Version) *SimulatedDevice {
	return &SimulatedDevice{
		firmware: firmware,
		hardware: hardware,
		visible:  make(map[TableID]bool),
		handlers: make(map[ProcedureID]ProcedureHandler),
		scripted: make(map[ProcedureID][]ResultCode),
		failures: make(map[ProcedureID]error),
	}
}

func (d *SimulatedDevice) ExecuteProcedure(procedure ProcedureID, params []byte) (ResultCode, []byte, error) {
	d.mu.Lock()
	d.calls = append(d.calls, Call{Procedure: procedure, Params: slices.Clone(params)})
	if err, ok := d.failures[procedure]; ok {
		d.mu.Unlock()
		return ResultFailure, nil, err
	}
	if queue := d.scripted[procedure]; len(queue) > 0 {
		code := queue[0]
		d.scripted[procedure] = queue[1:]
		d.mu.Unlock()
		return code, nil, nil
	}
	handler, ok := d.handlers[procedure]
	d.mu.Unlock()

	if !ok {
		return ResultUnrecognized, nil, nil
	}
	return handler(d, params)
}

func (d *SimulatedDevice) IsTableUsed(table TableID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.visible[table]
}

func (d *SimulatedDevice) RequestedTLVData() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.tlvData)
}

func (d *SimulatedDevice) FirmwareVersion() Version {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.firmware
}

func (d *SimulatedDevice) HardwareVersion() Version {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.hardware
}

func (d *SimulatedDevice) SetFirmwareVersion(v Version) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.firmware = v
}

func (d *SimulatedDevice) SetTableVisible(table TableID, visible bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.visible[table] = visible
}

func (d *SimulatedDevice) SetRequestedTLVData(data []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tlvData = slices.Clone(data)
}

// Handle installs the emulation of procedure.
func (d *SimulatedDevice) Handle(procedure ProcedureID, handler ProcedureHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[procedure] = handler
}

// ScriptResults queues result codes returned, in order, by the next
// executions of procedure instead of running its handler.
func (d *SimulatedDevice) ScriptResults(procedure ProcedureID, codes ...ResultCode) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.scripted[procedure] = append(d.scripted[procedure], codes...)
}

// FailTransport makes every execution of procedure fail with err until
// cleared with a nil err.
func (d *SimulatedDevice) FailTransport(procedure ProcedureID, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err == nil {
		delete(d.failures, procedure)
		return
	}
	d.failures[procedure] = err
}

func (d *SimulatedDevice) Calls() []Call {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.calls)
}

// CallsTo returns the executions of procedure, in order.
func (d *SimulatedDevice) CallsTo(procedure ProcedureID) []Call {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []Call
	for _, c := range d.calls {
		if c.Procedure == procedure {
			out = append(out, c)
		}
	}
	return out
}

func (d *SimulatedDevice) ResetCalls() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = nil
}
