package events

import (
	"errors"
	"testing"

	"github.com/berfenger/amicomm/internal/core/domain"
	"github.com/berfenger/amicomm/pkg/commmodule"
	"github.com/stretchr/testify/assert"
)

func eventsById(evs []any) map[string]any {
	out := map[string]any{}
	for _, ev := range evs {
		out[ev.(domain.SensorUpdateEvent).SensorId()] = ev
	}
	return out
}

func TestSnapshotToUpdateEvents(t *testing.T) {

	assert := assert.New(t)

	fx := commmodule.DefaultFixture()
	hw := fx.Hardware
	hw.MAC = 0x00173B1200A4C5E1
	s := &domain.Snapshot{
		Firmware:   "6.1.0",
		Activation: "current-159",
		Hardware:   &hw,
		WPAN:       &fx.WPAN,
		Neighbors: []domain.NeighborInfo{
			{Address: "00:17:3b:12:00:90:11:01", RSSIForward: -88},
			{Address: "00:17:3b:12:00:90:11:7f", RSSIForward: -71},
		},
		IPStack: "mesh",
	}

	evs := eventsById(SnapshotToUpdateEvents(s))
	assert.Len(evs, 12)
	assert.Equal("00:17:3b:12:00:a4:c5:e1", evs[domain.SENSOR_ID_CM_MAC].(domain.TextSensorUpdateEvent).Value)
	assert.Equal("0x1A2B", evs[domain.SENSOR_ID_WPAN_PAN_ID].(domain.TextSensorUpdateEvent).Value)
	assert.Equal(float64(-4), evs[domain.SENSOR_ID_WPAN_TX_POWER].(domain.FloatSensorUpdateEvent).Value)
	assert.Equal(float64(2), evs[domain.SENSOR_ID_NEIGHBOR_COUNT].(domain.FloatSensorUpdateEvent).Value)
	assert.Equal(float64(-71), evs[domain.SENSOR_ID_NEIGHBOR_BEST_RSSI].(domain.FloatSensorUpdateEvent).Value)
	assert.False(evs[domain.SENSOR_ID_CM_PROBLEM].(domain.BinarySensorUpdateEvent).Value)
}

func TestSnapshotToUpdateEventsPartial(t *testing.T) {

	assert := assert.New(t)

	s := &domain.Snapshot{Firmware: "5.1.0", Activation: "legacy-150"}
	s.SetError(domain.SECTION_HARDWARE, errors.New("refused"))
	s.SetError(domain.SECTION_WPAN, errors.New("refused"))
	s.SetError(domain.SECTION_NEIGHBORS, errors.New("refused"))
	s.SetError(domain.SECTION_IP_STACK, errors.New("refused"))

	evs := eventsById(SnapshotToUpdateEvents(s))
	assert.Len(evs, 3)
	assert.True(evs[domain.SENSOR_ID_CM_PROBLEM].(domain.BinarySensorUpdateEvent).Value)
	assert.NotContains(evs, domain.SENSOR_ID_NEIGHBOR_COUNT)
}
