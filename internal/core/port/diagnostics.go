package port

import (
	"github.com/berfenger/amicomm/internal/core/domain"
	"github.com/berfenger/amicomm/pkg/commmodule"
	"github.com/berfenger/amicomm/pkg/psem"
)

// CommModule is the diagnostics surface of a meter comm module.
// *commmodule.CiscoCommModule implements it.
type CommModule interface {
	FirmwareVersion() psem.Version
	Quirks() commmodule.Quirks
	HardwareDescription() (*commmodule.HardwareDescription, error)
	WPANStatus() (*commmodule.WPANStatus, error)
	Neighbors() ([]commmodule.Neighbor, error)
	IPStackType() (commmodule.StackType, error)
	ResetIPStack() error
	RawTLV(identifier string) ([]byte, error)
}

type DiagnosticsJournal interface {
	Append(snapshot domain.Snapshot) (*domain.HistoryEntry, error)
	Latest(limit int) ([]domain.HistoryEntry, error)
}
