package psem

import (
	"fmt"
)

// ProcedureID identifies an ANSI C12.19 procedure. Manufacturer procedures
// live above 2048.
type ProcedureID uint16

// TableID identifies an ANSI C12.19 table. Manufacturer tables live above 2048.
type TableID uint16

const mfgOffset = 2048

// MfgProcedure returns the id of manufacturer procedure n.
func MfgProcedure(n uint16) ProcedureID {
	return ProcedureID(mfgOffset + n)
}

// MfgTable returns the id of manufacturer table n.
func MfgTable(n uint16) TableID {
	return TableID(mfgOffset + n)
}

func (p ProcedureID) IsManufacturer() bool {
	return p >= mfgOffset
}

func (p ProcedureID) String() string {
	if p.IsManufacturer() {
		return fmt.Sprintf("MFG%d", uint16(p)-mfgOffset)
	}
	return fmt.Sprintf("SP%d", uint16(p))
}

func (t TableID) IsManufacturer() bool {
	return t >= mfgOffset
}

func (t TableID) String() string {
	if t.IsManufacturer() {
		return fmt.Sprintf("MT%d", uint16(t)-mfgOffset)
	}
	return fmt.Sprintf("ST%d", uint16(t))
}

// ResultCode is the outcome reported by the meter for an executed procedure.
type ResultCode uint8

const (
	ResultCompleted ResultCode = iota
	ResultNotFullyCompleted
	ResultInvalidParam
	ResultDeviceSetupConflict
	ResultTimingConstraint
	ResultNoAuthorization
	ResultUnrecognized
	// any code above ResultUnrecognized is reported as a generic failure
	ResultFailure ResultCode = 0xFF
)

var resultCodeNames = map[ResultCode]string{
	ResultCompleted:           "COMPLETED",
	ResultNotFullyCompleted:   "NOT_FULLY_COMPLETED",
	ResultInvalidParam:        "INVALID_PARAM",
	ResultDeviceSetupConflict: "DEVICE_SETUP_CONFLICT",
	ResultTimingConstraint:    "TIMING_CONSTRAINT",
	ResultNoAuthorization:     "NO_AUTHORIZATION",
	ResultUnrecognized:        "UNRECOGNIZED",
	ResultFailure:             "FAILURE",
}

// NormalizeResultCode folds unknown codes into ResultFailure.
func NormalizeResultCode(raw uint8) ResultCode {
	if raw <= uint8(ResultUnrecognized) {
		return ResultCode(raw)
	}
	return ResultFailure
}

func (c ResultCode) String() string {
	if s, ok := resultCodeNames[c]; ok {
		return s
	}
	return fmt.Sprintf("RESULT(%d)", uint8(c))
}

func (c ResultCode) Ok() bool {
	return c == ResultCompleted
}

// ProcedureError is returned when the meter answered but did not complete
// the procedure.
type ProcedureError struct {
	Procedure ProcedureID
	Code      ResultCode
}

func (e *ProcedureError) Error() string {
	return fmt.Sprintf("procedure %s failed: %s", e.Procedure, e.Code)
}

// TransportError wraps a failure to reach the meter at all.
type TransportError struct {
	Procedure ProcedureID
	Err       error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("procedure %s: transport: %v", e.Procedure, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
