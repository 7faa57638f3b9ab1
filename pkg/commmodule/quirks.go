package commmodule

import (
	"encoding/binary"
	"fmt"

	"github.com/berfenger/amicomm/pkg/psem"
)

// ActivationVariant selects the procedure used to show or hide a table.
type ActivationVariant uint8

const (
	ActivationLegacy150 ActivationVariant = iota
	ActivationCurrent159
)

var (
	ProcActivateTableLegacy  = psem.MfgProcedure(150)
	ProcActivateTableCurrent = psem.MfgProcedure(159)
)

func (v ActivationVariant) Procedure() psem.ProcedureID {
	if v == ActivationCurrent159 {
		return ProcActivateTableCurrent
	}
	return ProcActivateTableLegacy
}

// Params builds the parameter block of the activation procedure.
//
//	legacy 150:  table id (uint16 LE), activate (1 byte)
//	current 159: table id (uint16 LE), flags (bit 0 = activate), reserved 0x00
func (v ActivationVariant) Params(table psem.TableID, activate bool) []byte {
	var flag byte
	if activate {
		flag = 1
	}
	params := binary.LittleEndian.AppendUint16(nil, uint16(table))
	if v == ActivationCurrent159 {
		return append(params, flag, 0x00)
	}
	return append(params, flag)
}

func (v ActivationVariant) String() string {
	switch v {
	case ActivationLegacy150:
		return "legacy-150"
	case ActivationCurrent159:
		return "current-159"
	default:
		return fmt.Sprintf("variant(%d)", uint8(v))
	}
}

// QuirkTable holds the firmware boundaries where comm-module behavior changes.
type QuirkTable struct {
	// firmware at or below this version activates tables with procedure 150
	ActivationThreshold psem.Version
	// firmware below this version reports the PAN id byte-swapped
	PANIDReverseBelow psem.Version
}

func DefaultQuirkTable() QuirkTable {
	return QuirkTable{
		ActivationThreshold: psem.Version{Major: 5, Minor: 5, Build: 0},
		PANIDReverseBelow:   psem.Version{Major: 5, Minor: 2, Build: 0},
	}
}

// Quirks is the behavior of one comm-module firmware, resolved once per session.
type Quirks struct {
	Firmware     psem.Version
	Activation   ActivationVariant
	ReversePANID bool
}

func (qt QuirkTable) Resolve(firmware psem.Version) Quirks {
	q := Quirks{Firmware: firmware, Activation: ActivationCurrent159}
	if firmware.Compare(qt.ActivationThreshold) <= 0 {
		q.Activation = ActivationLegacy150
	}
	q.ReversePANID = firmware.Less(qt.PANIDReverseBelow)
	return q
}
