package psem

import (
	"errors"
	"time"

	"go.uber.org/zap"
)

// ProcedureExecutor runs a procedure on the meter. A non-nil error means the
// request never got a result code back.
type ProcedureExecutor interface {
	ExecuteProcedure(procedure ProcedureID, params []byte) (ResultCode, []byte, error)
}

// TableCatalog reports which tables are currently visible to a reader.
type TableCatalog interface {
	IsTableUsed(table TableID) bool
}

// TLVDataSink exposes the payload captured by the last raw CSMP request.
type TLVDataSink interface {
	RequestedTLVData() []byte
}

type VersionSource interface {
	FirmwareVersion() Version
	HardwareVersion() Version
}

// Device is everything the comm-module layer needs from a PSEM session.
type Device interface {
	ProcedureExecutor
	TableCatalog
	TLVDataSink
	VersionSource
}

type Instrument struct {
	RecordTime func(fnName string, duration time.Duration)
}

// RecordTimer starts a timer and returns the func that reports it to every
// instrument.
func RecordTimer(name string, instrument []Instrument) func() {
	if instrument == nil {
		return func() {}
	}

	start := time.Now()
	return func() {
		duration := time.Since(start)
		for i := range instrument {
			instrument[i].RecordTime(name, duration)
		}
	}
}

// TraceLoggerInstrumentation logs every procedure time at debug level.
func TraceLoggerInstrumentation(logger *zap.Logger) *Instrument {
	if logger == nil {
		return nil
	}
	return &Instrument{
		RecordTime: func(fnName string, duration time.Duration) {
			logger.Debug("psem call", zap.String("fn", fnName), zap.Int64("millis", duration.Milliseconds()))
		},
	}
}

// Session decorates a Device with timing instrumentation and typed errors.
type Session struct {
	device     Device
	instrument []Instrument
}

func NewSession(device Device, logger *zap.Logger, instrumentation ...*Instrument) *Session {
	var inst []Instrument
	if logInst := TraceLoggerInstrumentation(logger); logInst != nil {
		inst = append(inst, *logInst)
	}
	for _, i := range instrumentation {
		if i != nil {
			inst = append(inst, *i)
		}
	}
	return &Session{device: device, instrument: inst}
}

// ExecuteProcedure runs procedure and normalizes the outcome: transport
// failures come back as *TransportError, unknown result codes as ResultFailure.
func (s *Session) ExecuteProcedure(procedure ProcedureID, params []byte) (ResultCode, []byte, error) {
	defer RecordTimer("ExecuteProcedure."+procedure.String(), s.instrument)()
	code, resp, err := s.device.ExecuteProcedure(procedure, params)
	if err != nil {
		var terr *TransportError
		if !errors.As(err, &terr) {
			err = &TransportError{Procedure: procedure, Err: err}
		}
		return ResultFailure, nil, err
	}
	return NormalizeResultCode(uint8(code)), resp, nil
}

func (s *Session) IsTableUsed(table TableID) bool {
	defer RecordTimer("IsTableUsed", s.instrument)()
	return s.device.IsTableUsed(table)
}

func (s *Session) RequestedTLVData() []byte {
	return s.device.RequestedTLVData()
}

func (s *Session) FirmwareVersion() Version {
	return s.device.FirmwareVersion()
}

func (s *Session) HardwareVersion() Version {
	return s.device.HardwareVersion()
}
