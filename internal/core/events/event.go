package events

import (
	"fmt"

	. "github.com/berfenger/amicomm/internal/core/domain"
	"github.com/berfenger/amicomm/pkg/commmodule"
)

// SnapshotToUpdateEvents maps a snapshot to sensor updates. Sections missing
// from the snapshot produce no event, so the last published value stays.
func SnapshotToUpdateEvents(s *Snapshot) []any {
	var events []any

	events = append(events, TextSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{Id: SENSOR_ID_CM_FIRMWARE},
		Value:                  s.Firmware,
	})
	events = append(events, TextSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{Id: SENSOR_ID_CM_ACTIVATION},
		Value:                  s.Activation,
	})
	events = append(events, BinarySensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{Id: SENSOR_ID_CM_PROBLEM},
		Value:                  !s.Complete(),
	})

	if s.Hardware != nil {
		events = append(events, TextSensorUpdateEvent{
			SensorUpdateEventMixIn: SensorUpdateEventMixIn{Id: SENSOR_ID_CM_MAC},
			Value:                  commmodule.FormatMACAddress(s.Hardware.MAC),
		})
	}

	if s.WPAN != nil {
		events = append(events, FloatSensorUpdateEvent{
			SensorUpdateEventMixIn: SensorUpdateEventMixIn{Id: SENSOR_ID_WPAN_CHANNEL},
			Value:                  float64(s.WPAN.Channel),
		})
		events = append(events, TextSensorUpdateEvent{
			SensorUpdateEventMixIn: SensorUpdateEventMixIn{Id: SENSOR_ID_WPAN_PAN_ID},
			Value:                  fmt.Sprintf("0x%04X", s.WPAN.PANID),
		})
		events = append(events, FloatSensorUpdateEvent{
			SensorUpdateEventMixIn: SensorUpdateEventMixIn{Id: SENSOR_ID_WPAN_TX_POWER},
			Value:                  float64(s.WPAN.TXPower),
		})
		events = append(events, FloatSensorUpdateEvent{
			SensorUpdateEventMixIn: SensorUpdateEventMixIn{Id: SENSOR_ID_WPAN_RPL_RANK},
			Value:                  float64(s.WPAN.RPLRank),
		})
		events = append(events, BinarySensorUpdateEvent{
			SensorUpdateEventMixIn: SensorUpdateEventMixIn{Id: SENSOR_ID_WPAN_JOINED},
			Value:                  s.WPAN.Joined,
		})
	}

	if _, failed := s.Errors[SECTION_NEIGHBORS]; !failed {
		events = append(events, FloatSensorUpdateEvent{
			SensorUpdateEventMixIn: SensorUpdateEventMixIn{Id: SENSOR_ID_NEIGHBOR_COUNT},
			Value:                  float64(len(s.Neighbors)),
		})
		if best, ok := s.BestRSSI(); ok {
			events = append(events, FloatSensorUpdateEvent{
				SensorUpdateEventMixIn: SensorUpdateEventMixIn{Id: SENSOR_ID_NEIGHBOR_BEST_RSSI},
				Value:                  float64(best),
			})
		}
	}

	if s.IPStack != "" {
		events = append(events, TextSensorUpdateEvent{
			SensorUpdateEventMixIn: SensorUpdateEventMixIn{Id: SENSOR_ID_CM_IP_STACK},
			Value:                  s.IPStack,
		})
	}

	return events
}
