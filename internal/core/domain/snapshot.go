package domain

import (
	"time"

	"github.com/berfenger/amicomm/pkg/commmodule"
)

const (
	SECTION_HARDWARE  = "hardware"
	SECTION_WPAN      = "wpan"
	SECTION_NEIGHBORS = "neighbors"
	SECTION_IP_STACK  = "ip_stack"
)

// Snapshot is one diagnostics poll of the comm module. A section that could
// not be read is absent and its error is kept in Errors, keyed by section.
type Snapshot struct {
	Time       time.Time                       `json:"time" yaml:"time"`
	Firmware   string                          `json:"firmware" yaml:"firmware"`
	Activation string                          `json:"activation" yaml:"activation"`
	Hardware   *commmodule.HardwareDescription `json:"hardware,omitempty" yaml:"hardware,omitempty"`
	WPAN       *commmodule.WPANStatus          `json:"wpan,omitempty" yaml:"wpan,omitempty"`
	Neighbors  []NeighborInfo                  `json:"neighbors,omitempty" yaml:"neighbors,omitempty"`
	IPStack    string                          `json:"ip_stack,omitempty" yaml:"ip_stack,omitempty"`
	Errors     map[string]string               `json:"errors,omitempty" yaml:"errors,omitempty"`
}

type NeighborInfo struct {
	Address     string `json:"address" yaml:"address"`
	RSSIForward int32  `json:"rssi_forward" yaml:"rssi_forward"`
	RSSIReverse int32  `json:"rssi_reverse" yaml:"rssi_reverse"`
	LinkCost    uint32 `json:"link_cost" yaml:"link_cost"`
}

func NeighborInfoFrom(n commmodule.Neighbor) NeighborInfo {
	return NeighborInfo{
		Address:     n.Address.String(),
		RSSIForward: n.RSSIForward,
		RSSIReverse: n.RSSIReverse,
		LinkCost:    n.LinkCost,
	}
}

func (s *Snapshot) SetError(section string, err error) {
	if s.Errors == nil {
		s.Errors = map[string]string{}
	}
	s.Errors[section] = err.Error()
}

func (s *Snapshot) Complete() bool {
	return len(s.Errors) == 0
}

// BestRSSI returns the strongest forward RSSI among neighbors.
func (s *Snapshot) BestRSSI() (int32, bool) {
	if len(s.Neighbors) == 0 {
		return 0, false
	}
	best := s.Neighbors[0].RSSIForward
	for _, n := range s.Neighbors[1:] {
		best = max(best, n.RSSIForward)
	}
	return best, true
}

type HistoryEntry struct {
	Id       string   `json:"id" yaml:"id"`
	Snapshot Snapshot `json:"snapshot" yaml:"snapshot"`
}
