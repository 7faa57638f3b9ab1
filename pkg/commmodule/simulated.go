package commmodule

import (
	"encoding/binary"
	"net"
	"sync"

	"github.com/berfenger/amicomm/pkg/psem"
	"github.com/berfenger/amicomm/pkg/tlv"
)

// Fixture is what a simulated comm module reports.
type Fixture struct {
	Hardware  HardwareDescription
	WPAN      WPANStatus
	Neighbors []Neighbor
	Stack     StackType
}

func DefaultFixture() Fixture {
	return Fixture{
		Hardware: HardwareDescription{
			HardwareAddress:  "00173B1200A4C5E1",
			SerialNumber:     "FOC2117V0KL",
			Model:            "ITM-CG-M2",
			FirmwareRevision: "5.6.21",
			HardwareRevision: "2.0",
		},
		WPAN: WPANStatus{
			Channel: 11,
			PANID:   0x1A2B,
			TXPower: -4,
			RPLRank: 512,
			Joined:  true,
		},
		Neighbors: []Neighbor{
			{Address: net.HardwareAddr{0x00, 0x17, 0x3B, 0x12, 0x00, 0x90, 0x11, 0x01}, RSSIForward: -71, RSSIReverse: -68, LinkCost: 256},
			{Address: make(net.HardwareAddr, 8)},
			{Address: net.HardwareAddr{0x00, 0x17, 0x3B, 0x12, 0x00, 0x90, 0x11, 0x7F}, RSSIForward: -88, RSSIReverse: -91, LinkCost: 1024},
		},
		Stack: StackMesh,
	}
}

// Responses encodes the fixture as the TLV answers of a firmware with quirks,
// keyed by request identifier.
func (f Fixture) Responses(quirks Quirks) map[string][]byte {
	hw := tlv.Encoder{}
	EncodeHardwareDescription(&hw, f.Hardware)
	wpan := tlv.Encoder{}
	EncodeWPANStatus(&wpan, f.WPAN, quirks)
	nb := tlv.Encoder{}
	EncodeNeighbors(&nb, f.Neighbors)
	stack := tlv.Encoder{}
	stack.Record(TagIPStack, tlv.NewVarint(1, uint64(f.Stack)))
	return map[string][]byte{
		TLVIdentifier(TagHardwareDesc): hw.Bytes(),
		TLVIdentifier(TagWPANStatus):   wpan.Bytes(),
		TLVIdentifier(TagNeighbors):    nb.Bytes(),
		TLVIdentifier(TagIPStack):      stack.Bytes(),
	}
}

// SimulatedModule emulates a Cisco comm module on top of a psem.SimulatedDevice.
// Only the activation procedure matching the firmware is understood, and TLV
// requests are refused while the requested data table is hidden.
type SimulatedModule struct {
	*psem.SimulatedDevice

	mu        sync.Mutex
	responses map[string][]byte
	history   []StackType
}

func NewSimulatedModule(firmware psem.Version, hardware psem.Version, table QuirkTable, fixture Fixture) *SimulatedModule {
	quirks := table.Resolve(firmware)
	m := &SimulatedModule{
		SimulatedDevice: psem.NewSimulatedDevice(firmware, hardware),
		responses:       fixture.Responses(quirks),
	}
	m.Handle(quirks.Activation.Procedure(), m.activate(quirks.Activation))
	m.Handle(ProcSendRawCSMP, m.sendRawCSMP)
	m.Handle(ProcSetIPStack, m.setIPStack)
	return m
}

// SetResponse overrides the answer to identifier.
func (m *SimulatedModule) SetResponse(identifier string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[identifier] = data
}

// StackHistory returns every stack type set through ProcSetIPStack.
func (m *SimulatedModule) StackHistory() []StackType {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]StackType(nil), m.history...)
}

func (m *SimulatedModule) activate(variant ActivationVariant) psem.ProcedureHandler {
	return func(dev *psem.SimulatedDevice, params []byte) (psem.ResultCode, []byte, error) {
		want := len(variant.Params(0, false))
		if len(params) != want {
			return psem.ResultInvalidParam, nil, nil
		}
		table := psem.TableID(binary.LittleEndian.Uint16(params))
		dev.SetTableVisible(table, params[2]&0x01 == 1)
		return psem.ResultCompleted, nil, nil
	}
}

func (m *SimulatedModule) sendRawCSMP(dev *psem.SimulatedDevice, params []byte) (psem.ResultCode, []byte, error) {
	if !dev.IsTableUsed(TableTLVRequestedData) {
		return psem.ResultNoAuthorization, nil, nil
	}
	identifier, err := ParseRequestParameters(params)
	if err != nil {
		return psem.ResultInvalidParam, nil, nil
	}
	m.mu.Lock()
	data, ok := m.responses[identifier]
	m.mu.Unlock()
	if !ok {
		return psem.ResultInvalidParam, nil, nil
	}
	dev.SetRequestedTLVData(data)
	return psem.ResultCompleted, nil, nil
}

func (m *SimulatedModule) setIPStack(dev *psem.SimulatedDevice, params []byte) (psem.ResultCode, []byte, error) {
	if len(params) != 1 {
		return psem.ResultInvalidParam, nil, nil
	}
	stack := StackType(params[0])
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = append(m.history, stack)
	if stack != StackNone {
		resp := tlv.Encoder{}
		resp.Record(TagIPStack, tlv.NewVarint(1, uint64(stack)))
		m.responses[TLVIdentifier(TagIPStack)] = resp.Bytes()
	}
	return psem.ResultCompleted, nil, nil
}
