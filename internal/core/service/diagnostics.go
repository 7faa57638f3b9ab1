package service

import (
	"time"

	"github.com/berfenger/amicomm/internal/core/domain"
	"github.com/berfenger/amicomm/internal/core/port"
	"github.com/berfenger/amicomm/pkg/tlv"

	"go.uber.org/zap"
)

type DiagnosticsService struct {
	Module port.CommModule
	Logger *zap.Logger
}

func NewDiagnosticsService(module port.CommModule, logger *zap.Logger) *DiagnosticsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DiagnosticsService{
		Module: module,
		Logger: logger.With(zap.String("service", "diagnostics")),
	}
}

// Collect reads every diagnostics section. A failing section is recorded in
// the snapshot and does not stop the others.
func (s *DiagnosticsService) Collect(now time.Time) *domain.Snapshot {
	snapshot := &domain.Snapshot{
		Time:       now,
		Firmware:   s.Module.FirmwareVersion().String(),
		Activation: s.Module.Quirks().Activation.String(),
	}

	if hw, err := s.Module.HardwareDescription(); err != nil {
		s.sectionFailed(snapshot, domain.SECTION_HARDWARE, err)
	} else {
		snapshot.Hardware = hw
	}

	if st, err := s.Module.WPANStatus(); err != nil {
		s.sectionFailed(snapshot, domain.SECTION_WPAN, err)
	} else {
		snapshot.WPAN = st
	}

	if neighbors, err := s.Module.Neighbors(); err != nil {
		s.sectionFailed(snapshot, domain.SECTION_NEIGHBORS, err)
	} else {
		snapshot.Neighbors = make([]domain.NeighborInfo, 0, len(neighbors))
		for _, n := range neighbors {
			snapshot.Neighbors = append(snapshot.Neighbors, domain.NeighborInfoFrom(n))
		}
	}

	if stack, err := s.Module.IPStackType(); err != nil {
		s.sectionFailed(snapshot, domain.SECTION_IP_STACK, err)
	} else {
		snapshot.IPStack = stack.String()
	}

	return snapshot
}

// ReadTLV returns the raw answer to identifier and what could be decoded
// from it. On a malformed answer both raw and the partial records are kept.
func (s *DiagnosticsService) ReadTLV(identifier string) ([]byte, tlv.Records, error) {
	raw, err := s.Module.RawTLV(identifier)
	if err != nil {
		return nil, nil, err
	}
	records, err := tlv.Parse(raw)
	if err != nil {
		s.Logger.Warn("malformed TLV answer", zap.String("identifier", identifier), zap.Error(err))
	}
	return raw, records, err
}

func (s *DiagnosticsService) ResetIPStack() error {
	s.Logger.Info("resetting comm module IP stack")
	return s.Module.ResetIPStack()
}

func (s *DiagnosticsService) sectionFailed(snapshot *domain.Snapshot, section string, err error) {
	s.Logger.Warn("diagnostics section failed", zap.String("section", section), zap.Error(err))
	snapshot.SetError(section, err)
}
