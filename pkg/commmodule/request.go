package commmodule

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"slices"

	"github.com/berfenger/amicomm/pkg/psem"
	"go.uber.org/zap"
)

var (
	// ProcSendRawCSMP forwards a CSMP (CoAP) request to the comm module.
	ProcSendRawCSMP = psem.MfgProcedure(164)
	// TableTLVRequestedData is the hidden table the comm module answers into.
	TableTLVRequestedData = psem.MfgTable(462)
)

const (
	sendRawCSMPFunction = 0x0D
	maxIdentifierLen    = 255
)

// CoAP confirmable GET, Uri-Path "c"
var csmpPreamble = []byte{0x40, 0x01, 0x00, 0x00, 0xB1, 0x63}

var ErrInvalidIdentifier = errors.New("invalid TLV identifier")

// TLVIdentifier returns the query identifier for a TLV tag.
func TLVIdentifier(tag uint8) string {
	return fmt.Sprintf("q=%d", tag)
}

// BuildRequestParameters builds the parameter block of the send raw CSMP
// procedure for identifier.
func BuildRequestParameters(identifier string) ([]byte, error) {
	if err := validateIdentifier(identifier); err != nil {
		return nil, err
	}
	params := make([]byte, 0, 5+len(csmpPreamble)+1+len(identifier))
	params = append(params, sendRawCSMPFunction)
	params = binary.LittleEndian.AppendUint32(params, uint32(len(csmpPreamble)+1+len(identifier)))
	params = append(params, csmpPreamble...)
	params = append(params, byte(len(identifier)))
	params = append(params, identifier...)
	return params, nil
}

// ParseRequestParameters extracts the identifier from a parameter block built
// by BuildRequestParameters.
func ParseRequestParameters(params []byte) (string, error) {
	head := 5 + len(csmpPreamble) + 1
	if len(params) < head || params[0] != sendRawCSMPFunction {
		return "", fmt.Errorf("%w: short or foreign parameter block", ErrInvalidIdentifier)
	}
	if !bytes.Equal(params[5:5+len(csmpPreamble)], csmpPreamble) {
		return "", fmt.Errorf("%w: unexpected preamble % X", ErrInvalidIdentifier, params[5:5+len(csmpPreamble)])
	}
	size := int(binary.LittleEndian.Uint32(params[1:5]))
	n := int(params[head-1])
	if size != len(csmpPreamble)+1+n || len(params) != head+n {
		return "", fmt.Errorf("%w: length fields do not match %d byte block", ErrInvalidIdentifier, len(params))
	}
	return string(params[head:]), nil
}

func validateIdentifier(identifier string) error {
	if identifier == "" {
		return fmt.Errorf("%w: empty", ErrInvalidIdentifier)
	}
	if len(identifier) > maxIdentifierLen {
		return fmt.Errorf("%w: %d bytes, at most %d", ErrInvalidIdentifier, len(identifier), maxIdentifierLen)
	}
	for i := 0; i < len(identifier); i++ {
		if identifier[i] > 0x7F {
			return fmt.Errorf("%w: non-ASCII byte at %d", ErrInvalidIdentifier, i)
		}
	}
	return nil
}

// RequestDevice is the part of a PSEM session the requester needs.
type RequestDevice interface {
	psem.ProcedureExecutor
	psem.TLVDataSink
}

// Requester issues on-demand TLV requests. It must run while
// TableTLVRequestedData is visible, see Gate.
type Requester struct {
	device RequestDevice
	logger *zap.Logger
}

func NewRequester(device RequestDevice, logger *zap.Logger) *Requester {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Requester{device: device, logger: logger}
}

// Request sends the raw CSMP request for identifier and returns the TLV
// buffer the comm module left in the requested data table.
func (r *Requester) Request(identifier string) ([]byte, error) {
	params, err := BuildRequestParameters(identifier)
	if err != nil {
		return nil, err
	}
	code, _, err := r.device.ExecuteProcedure(ProcSendRawCSMP, params)
	if err != nil {
		return nil, err
	}
	if !code.Ok() {
		r.logger.Debug("tlv request refused", zap.String("identifier", identifier), zap.Stringer("result", code))
		return nil, &psem.ProcedureError{Procedure: ProcSendRawCSMP, Code: code}
	}
	data := slices.Clone(r.device.RequestedTLVData())
	r.logger.Debug("tlv request completed", zap.String("identifier", identifier), zap.Int("bytes", len(data)))
	return data, nil
}
