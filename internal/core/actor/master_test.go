package actor

import (
	"testing"
	"time"

	adactor "github.com/berfenger/amicomm/internal/adapter/actor"
	"github.com/berfenger/amicomm/internal/core/domain"
	"github.com/berfenger/amicomm/internal/journal"
	"github.com/berfenger/amicomm/internal/metrics"
	"github.com/berfenger/amicomm/internal/mqtt"
	"github.com/berfenger/amicomm/internal/util"
	"github.com/berfenger/amicomm/internal/util/actorutil"
	"github.com/berfenger/amicomm/pkg/commmodule"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMasterActor(t *testing.T) {

	assert := assert.New(t)

	cfg := util.LoadTestConfig()
	logCfg := zap.NewDevelopmentConfig()
	logCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)
	logger := zap.Must(logCfg.Build())

	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	j, err := journal.Open(cfg.Journal, logger)
	require.NoError(t, err)
	defer j.Close()

	deviceActor, sim := newSimulatedDeviceActor(cfg, logger)
	master := NewMasterActor(cfg, func() *adactor.DeviceActor {
		return deviceActor
	}, func(es *eventstream.EventStream) *adactor.MQTTActor {
		return adactor.NewTestMQTTActor(&cfg, es, logger)
	}, j, metrics.New(), logger)

	recorder := &eventRecorder{}
	master.EventStream().Subscribe(recorder.record)

	pid, err := context.SpawnNamed(actor.PropsFromProducer(func() actor.Actor { return master }), domain.ACTOR_ID_MASTER)
	require.NoError(t, err)
	defer func() {
		context.Stop(pid)
		as.Shutdown()
	}()

	// first poll runs on start
	require.Eventually(t, func() bool { return recorder.snapshots() == 1 }, 5*time.Second, 50*time.Millisecond)

	res, err := context.RequestFuture(pid, domain.ActorHealthRequest{}, 5*time.Second).Result()
	require.NoError(t, err)
	healthResp, ok := res.(domain.ActorHealthResponse)
	require.True(t, ok)
	assert.True(healthResp.Healthy, "healthy is true")
	assert.Equal(domain.ACTOR_ID_MASTER, healthResp.Id)

	res, err = context.RequestFuture(pid, domain.GetDiagnosticsSnapshotRequest{}, 5*time.Second).Result()
	require.NoError(t, err)
	snapshot := res.(domain.GetDiagnosticsSnapshotResponse)
	require.False(t, snapshot.HasResponseError())
	assert.True(snapshot.Snapshot.Complete())

	res, err = context.RequestFuture(pid, domain.ReadTLVRequest{Identifier: commmodule.TLVIdentifier(commmodule.TagNeighbors)}, 5*time.Second).Result()
	require.NoError(t, err)
	tlvResp := res.(domain.ReadTLVResponse)
	require.False(t, tlvResp.HasResponseError())
	assert.Len(tlvResp.Records, 3)

	res, err = context.RequestFuture(pid, domain.GetHistoryRequest{Limit: 5}, 5*time.Second).Result()
	require.NoError(t, err)
	assert.Len(res.(domain.GetHistoryResponse).Entries, 1)

	// a pressed button reaches the device actor
	context.Send(pid, adactor.ParsedCommand{Command: &mqtt.ParsedMQTTCommand{
		DeviceId: domain.BUTTON_ID_RESET_IP_STACK,
		Command:  "button",
		Payload:  mqtt.MQTT_PAYLOAD_PRESS,
	}})
	require.Eventually(t, func() bool { return len(sim.StackHistory()) == 2 }, 5*time.Second, 50*time.Millisecond)

	context.Send(pid, adactor.ParsedCommand{Command: &mqtt.ParsedMQTTCommand{
		DeviceId: domain.BUTTON_ID_REFRESH_DIAGNOSTICS,
		Command:  "button",
		Payload:  mqtt.MQTT_PAYLOAD_PRESS,
	}})
	require.Eventually(t, func() bool { return recorder.snapshots() == 2 }, 5*time.Second, 50*time.Millisecond)
}

func TestDiscoveryEntities(t *testing.T) {

	assert := assert.New(t)

	fixture := commmodule.DefaultFixture()
	hw := fixture.Hardware
	sensors, buttons := DiscoveryEntities("amicomm", domain.GetDeviceInfoResponse{Hardware: &hw})

	bridge := domain.BridgeDevice("amicomm")
	require.NotEmpty(t, sensors)
	assert.Equal(domain.SENSOR_ID_BRIDGE_STATE, sensors[0].Id)
	assert.Equal(domain.SENSOR_ID_CM_FIRMWARE, sensors[1].Id)
	assert.Equal(bridge.Id, sensors[1].Device.ViaDevice)
	assert.Equal(fixture.Hardware.Model, sensors[1].Device.Model)
	for _, s := range sensors {
		assert.NotEmpty(s.UniqueId, s.Id)
	}
	require.Len(t, buttons, 2)
	assert.Equal(sensors[1].Device.Id, buttons[0].Device.Id)
}
