package actor

import (
	"testing"
	"time"

	"github.com/berfenger/amicomm/internal/core/domain"
	"github.com/berfenger/amicomm/internal/util"
	"github.com/berfenger/amicomm/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMQTTActor(t *testing.T) {

	cfg := util.LoadTestConfig()

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)
	defer as.Shutdown()

	context := as.Root

	es := &eventstream.EventStream{}

	props := actor.PropsFromProducer(func() actor.Actor { return NewTestMQTTActor(&cfg, es, logger) })
	pid := context.Spawn(props)

	result, err := context.RequestFuture(pid, domain.ActorHealthRequest{}, 2*time.Second).Result()
	require.NoError(t, err)
	resp, ok := result.(domain.ActorHealthResponse)
	assert.True(t, ok)
	assert.True(t, resp.Healthy)

	// explicit reply-to gets an acknowledgement
	probe := actor.NewFuture(as, 2*time.Second)
	context.Send(pid, domain.PublishSensorUpdateRequest{
		ActorRequestMixIn: domain.ReplyVia(probe.PID()),
		Event: domain.FloatSensorUpdateEvent{
			SensorUpdateEventMixIn: domain.SensorUpdateEventMixIn{Id: domain.SENSOR_ID_WPAN_CHANNEL},
			Value:                  11,
		},
	})
	ack, err := probe.Result()
	require.NoError(t, err)
	assert.IsType(t, domain.PublishSensorUpdateResponse{}, ack)

	es.Publish(domain.TextSensorUpdateEvent{
		SensorUpdateEventMixIn: domain.SensorUpdateEventMixIn{Id: domain.SENSOR_ID_CM_IP_STACK},
		Value:                  "mesh",
	})

	context.Stop(pid)
	time.Sleep(100 * time.Millisecond)
	assert.EqualValues(t, 0, es.Length(), "unsubscribed on stop")
}

func TestEvent2MQTTMessage(t *testing.T) {

	assert := assert.New(t)

	cfg := util.LoadTestConfig()
	act := NewTestMQTTActor(&cfg, nil, zap.NewNop())
	as := actorutil.NewActorSystemWithZapLogger(zap.NewNop())
	defer as.Shutdown()
	pid := as.Root.Spawn(actor.PropsFromProducer(func() actor.Actor { return act }))
	_, err := as.Root.RequestFuture(pid, domain.ActorHealthRequest{}, time.Second).Result()
	require.NoError(t, err)

	msg := act.event2MQTTMessage(domain.FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: domain.SensorUpdateEventMixIn{Id: domain.SENSOR_ID_WPAN_TX_POWER},
		Value:                  -4,
	})
	assert.Equal("amicomm/sensor/wpan_tx_power/state", msg.topic)
	assert.Equal("-4", msg.message)

	msg = act.event2MQTTMessage(domain.FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: domain.SensorUpdateEventMixIn{Id: "x"},
		Value:                  1.256,
		Decimals:               2,
	})
	assert.Equal("1.26", msg.message)

	msg = act.event2MQTTMessage(domain.BinarySensorUpdateEvent{
		SensorUpdateEventMixIn: domain.SensorUpdateEventMixIn{Id: domain.SENSOR_ID_WPAN_JOINED},
		Value:                  true,
	})
	assert.Equal("amicomm/binary_sensor/wpan_joined/state", msg.topic)
	assert.Equal("on", msg.message)

	msg = act.event2MQTTMessage(domain.BridgeStateUpdateEvent{Value: false})
	assert.Equal("offline", msg.message)
	assert.True(msg.retain)

	assert.Nil(act.event2MQTTMessage("not an event"))
}
