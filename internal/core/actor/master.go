package actor

import (
	"errors"
	"fmt"
	"time"

	adactor "github.com/berfenger/amicomm/internal/adapter/actor"
	"github.com/berfenger/amicomm/internal/config"
	"github.com/berfenger/amicomm/internal/core/domain"
	"github.com/berfenger/amicomm/internal/core/port"
	"github.com/berfenger/amicomm/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"go.uber.org/zap"
)

type MQTTActorProvider func(*eventstream.EventStream) *adactor.MQTTActor

type DeviceActorProvider func() *adactor.DeviceActor

// MasterActor supervises the device, MQTT, diagnostics and discovery actors
// and routes external requests (HTTP, MQTT buttons) to them.
type MasterActor struct {
	config   config.Config
	behavior actor.Behavior
	stash    *actorutil.Stash

	currentHealthCheck  healthCheckResult
	eventStream         *eventstream.EventStream
	deviceActor         *actor.PID
	mqttActor           *actor.PID
	diagnosticsActor    *actor.PID
	deviceActorProvider DeviceActorProvider
	mqttActorProvider   MQTTActorProvider
	journal             port.DiagnosticsJournal
	observer            SnapshotObserver
	logger              *zap.Logger
}

type healthCheckResult struct {
	healthy        map[string]bool
	checksReceived int
	respondTo      *actor.PID
}

var monitoredChildren = []string{domain.ACTOR_ID_DEVICE, domain.ACTOR_ID_MQTT, domain.ACTOR_ID_DIAGNOSTICS}

func NewMasterActor(config config.Config, deviceActorProvider DeviceActorProvider, mqttActorProvider MQTTActorProvider, journal port.DiagnosticsJournal, observer SnapshotObserver, logger *zap.Logger) *MasterActor {
	act := &MasterActor{
		config:              config,
		behavior:            actor.NewBehavior(),
		stash:               &actorutil.Stash{},
		logger:              actorutil.ActorLogger(domain.ACTOR_ID_MASTER, logger),
		eventStream:         &eventstream.EventStream{},
		deviceActorProvider: deviceActorProvider,
		mqttActorProvider:   mqttActorProvider,
		journal:             journal,
		observer:            observer,
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *MasterActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

// EventStream is where sensor updates and snapshots are published.
func (state *MasterActor) EventStream() *eventstream.EventStream {
	return state.eventStream
}

func (state *MasterActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("master@starting started")

		state.currentHealthCheck.reset()

		deviceActorPID, err := state.startDeviceActor(ctx)
		if err != nil {
			panic(err)
		}
		state.deviceActor = deviceActorPID

		mqttActorPID, err := state.startMQTTActor(ctx)
		if err != nil {
			panic(err)
		}
		state.mqttActor = mqttActorPID

		diagnosticsActorPID, err := state.startDiagnosticsActor(ctx)
		if err != nil {
			panic(err)
		}
		state.diagnosticsActor = diagnosticsActorPID

		if state.config.MQTT.Enable && state.config.MQTT.HADiscoveryEnable {
			_, err := state.startHADiscoveryActor(ctx)
			if err != nil {
				panic(err)
			}
		}

		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	default:
		state.logger.Debug("master@starting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("master@default ActorHealthRequest")
		state.currentHealthCheck.reset()
		state.currentHealthCheck.respondTo = actorutil.ForRequest(msg).ReplyTo(ctx)
		for _, child := range []struct {
			id  string
			pid *actor.PID
		}{
			{domain.ACTOR_ID_DEVICE, state.deviceActor},
			{domain.ACTOR_ID_MQTT, state.mqttActor},
			{domain.ACTOR_ID_DIAGNOSTICS, state.diagnosticsActor},
		} {
			id := child.id
			actorutil.PipeToSelfWithRecover(ctx, ctx.RequestFuture(child.pid, domain.ActorHealthRequest{}, 500*time.Millisecond), func(err error) any {
				return domain.ActorHealthResponse{
					Id:      id,
					Healthy: false,
				}
			})
		}

		ctx.SetReceiveTimeout(1 * time.Second)

		state.behavior.BecomeStacked(state.HealthCheckReceive)
	case adactor.ParsedCommand:
		state.logger.Debug("master@default parsedCommand", zap.Any("command", msg.Command))
		if msg.Command != nil {
			cmd, err := actorutil.ParsedMQTTCommandToCommand(*msg.Command)
			if err != nil {
				state.logger.Warn("master@default ignoring command", zap.Error(err))
				return
			}
			switch pcmd := cmd.(type) {
			case domain.ResetIPStackRequest:
				ctx.Send(state.deviceActor, pcmd)
			case domain.RefreshDiagnosticsRequest:
				ctx.Send(state.diagnosticsActor, pcmd)
			}
		}
	case domain.GetDeviceInfoRequest, domain.GetDiagnosticsSnapshotRequest, domain.ReadTLVRequest, domain.ResetIPStackRequest:
		ctx.Forward(state.deviceActor)
	case domain.GetHistoryRequest, domain.RefreshDiagnosticsRequest:
		ctx.Forward(state.diagnosticsActor)
	case *actor.Terminated:
		// if the device actor gives up, terminate
		if msg.Who.Id == fmt.Sprintf("%s/%s", ctx.Self().Id, domain.ACTOR_ID_DEVICE) {
			state.logger.Error("master@default device actor terminated")
			panic(errors.New("device terminated"))
		}
	default:
		state.logger.Debug("master@default default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *MasterActor) HealthCheckReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.ReceiveTimeout:
		// if some actor does not respond to healthCheck, assume not healthy
		state.finishHealthCheck(ctx)
	case domain.ActorHealthResponse:
		state.logger.Debug("master@healthcheck ActorHealthResponse", zap.String("sender", msg.Id), zap.Bool("healthy", msg.Healthy))
		state.currentHealthCheck.checksReceived++
		state.currentHealthCheck.healthy[msg.Id] = msg.Healthy
		if state.currentHealthCheck.allReceived() {
			state.finishHealthCheck(ctx)
		} else {
			ctx.SetReceiveTimeout(1 * time.Second)
		}
	default:
		state.logger.Debug("master@healthcheck stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterActor) finishHealthCheck(ctx actor.Context) {
	ctx.CancelReceiveTimeout()
	state.currentHealthCheck.respond(ctx)
	state.behavior.UnbecomeStacked()
	state.stash.UnstashAll(ctx)
}

func (state *MasterActor) startDeviceActor(ctx actor.Context) (*actor.PID, error) {

	supervisor := actor.NewExponentialBackoffStrategy(10*time.Second, 1*time.Second)

	deviceProps := actor.PropsFromProducer(func() actor.Actor {
		return state.deviceActorProvider()
	}, actor.WithSupervisor(supervisor))
	return ctx.SpawnNamed(deviceProps, domain.ACTOR_ID_DEVICE)
}

func (state *MasterActor) startMQTTActor(ctx actor.Context) (*actor.PID, error) {

	supervisor := actor.NewExponentialBackoffStrategy(10*time.Second, 1*time.Second)

	mqttProps := actor.PropsFromProducer(func() actor.Actor {
		return state.mqttActorProvider(state.eventStream)
	}, actor.WithSupervisor(supervisor))
	return ctx.SpawnNamed(mqttProps, domain.ACTOR_ID_MQTT)
}

func (state *MasterActor) startDiagnosticsActor(ctx actor.Context) (*actor.PID, error) {

	decider := func(reason interface{}) actor.Directive {
		state.logger.Warn("diagnostics child failed, restarting", zap.Any("reason", reason))
		return actor.RestartDirective
	}
	supervisor := actor.NewOneForOneStrategy(1, 10*time.Second, decider)

	diagnosticsProps := actor.PropsFromProducer(func() actor.Actor {
		return NewDiagnosticsActor(&state.config, state.deviceActor, state.eventStream, state.journal, state.observer, state.logger)
	}, actor.WithSupervisor(supervisor))
	return ctx.SpawnNamed(diagnosticsProps, domain.ACTOR_ID_DIAGNOSTICS)
}

func (state *MasterActor) startHADiscoveryActor(ctx actor.Context) (*actor.PID, error) {

	decider := func(reason interface{}) actor.Directive {
		state.logger.Warn("hadiscovery child failed, restarting", zap.Any("reason", reason))
		return actor.RestartDirective
	}
	supervisor := actor.NewOneForOneStrategy(1, 10*time.Second, decider)

	haDiscProps := actor.PropsFromProducer(func() actor.Actor {
		return NewHADiscoveryActor(&state.config, state.deviceActor, state.mqttActor, state.logger)
	}, actor.WithSupervisor(supervisor))
	return ctx.SpawnNamed(haDiscProps, domain.ACTOR_ID_HA_DISCOVERY)
}

func (state *healthCheckResult) reset() {
	state.healthy = make(map[string]bool, len(monitoredChildren))
	state.checksReceived = 0
	state.respondTo = nil
}

func (state *healthCheckResult) allReceived() bool {
	return state.checksReceived >= len(monitoredChildren)
}

func (state *healthCheckResult) allHealthy() bool {
	for _, id := range monitoredChildren {
		if !state.healthy[id] {
			return false
		}
	}
	return true
}

func (state *healthCheckResult) respond(ctx actor.Context) {
	resp := domain.ActorHealthResponse{
		Id:      domain.ACTOR_ID_MASTER,
		Healthy: state.allHealthy(),
	}
	if state.respondTo != nil {
		ctx.Send(state.respondTo, resp)
	}
}
