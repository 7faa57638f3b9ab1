package actor

import (
	"errors"
	"fmt"
	"time"

	"github.com/berfenger/amicomm/internal/config"
	"github.com/berfenger/amicomm/internal/core/domain"
	"github.com/berfenger/amicomm/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"
)

// HADiscoveryActor publishes the Home Assistant discovery documents once the
// device and MQTT actors are up, then idles.
type HADiscoveryActor struct {
	config             *config.Config
	behavior           actor.Behavior
	stash              *actorutil.Stash
	deviceActor        *actor.PID
	mqttActor          *actor.PID
	deviceActorHealthy bool
	mqttActorHealthy   bool
	healthyRecv        int

	logger *zap.Logger
}

func NewHADiscoveryActor(config *config.Config, deviceActor *actor.PID, mqttActor *actor.PID, logger *zap.Logger) *HADiscoveryActor {
	act := &HADiscoveryActor{
		config:      config,
		deviceActor: deviceActor,
		mqttActor:   mqttActor,
		behavior:    actor.NewBehavior(),
		stash:       &actorutil.Stash{},
		logger:      actorutil.ActorLogger(domain.ACTOR_ID_HA_DISCOVERY, logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *HADiscoveryActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *HADiscoveryActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("hadiscovery@starting started")

		state.healthyRecv = 0
		state.deviceActorHealthy = false
		state.mqttActorHealthy = false
		actorutil.PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.deviceActor, domain.ActorHealthRequest{}, 2*time.Second), func(err error) any {
			return domain.ActorHealthResponse{
				Id:      domain.ACTOR_ID_DEVICE,
				Healthy: false,
			}
		})
		actorutil.PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.mqttActor, domain.ActorHealthRequest{}, 2*time.Second), func(err error) any {
			return domain.ActorHealthResponse{
				Id:      domain.ACTOR_ID_MQTT,
				Healthy: false,
			}
		})
		state.behavior.Become(state.WaitingHealthyReceive)
	case *actor.Restarting:
	default:
		state.logger.Debug("hadiscovery@starting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *HADiscoveryActor) WaitingHealthyReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthResponse:
		state.logger.Debug("hadiscovery@healthcheck ActorHealthResponse", zap.String("sender", msg.Id), zap.Bool("healthy", msg.Healthy))
		state.healthyRecv++
		if msg.Healthy {
			switch msg.Id {
			case domain.ACTOR_ID_DEVICE:
				state.deviceActorHealthy = true
			case domain.ACTOR_ID_MQTT:
				state.mqttActorHealthy = true
			}
		}
		if state.healthyRecv == 2 {
			if !state.deviceActorHealthy || !state.mqttActorHealthy {
				panic(errors.New("MQTT actor or device actor is not healthy"))
			}
			actorutil.PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.deviceActor, domain.GetDeviceInfoRequest{}, 5*time.Second), func(err error) any {
				return domain.GetDeviceInfoResponse{
					ActorResponseMixIn: domain.ErrorResponse(err),
				}
			})
			state.behavior.Become(state.WaitingInfoReceive)
			state.stash.UnstashAll(ctx)
		}
	default:
		state.logger.Debug("hadiscovery@healthcheck: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *HADiscoveryActor) WaitingInfoReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.GetDeviceInfoResponse:
		if msg.HasResponseError() {
			panic(msg.GetResponseError())
		}
		state.logger.Debug("hadiscovery@info: GetDeviceInfoResponse",
			zap.Stringer("firmware", msg.FirmwareVersion),
			zap.String("model", msg.Hardware.Model))

		sensors, buttons := DiscoveryEntities(state.config.MQTT.BaseTopic, msg)
		ctx.Send(state.mqttActor, domain.PublishDiscoveryRequest{
			Sensors: sensors,
			Buttons: buttons,
		})
		state.behavior.Become(state.DoneReceive)
	case domain.ActorHealthRequest:
		ctx.Respond(domain.ActorHealthResponse{Id: domain.ACTOR_ID_HA_DISCOVERY, Healthy: true, State: "discovering"})
	default:
		state.logger.Debug("hadiscovery@info: default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *HADiscoveryActor) DoneReceive(ctx actor.Context) {
	if _, ok := ctx.Message().(domain.ActorHealthRequest); ok {
		ctx.Respond(domain.ActorHealthResponse{Id: domain.ACTOR_ID_HA_DISCOVERY, Healthy: true, State: "done"})
	}
}

// DiscoveryEntities lists the bridge entities followed by the comm module
// ones, the comm module device being reached through the bridge.
func DiscoveryEntities(baseTopic string, info domain.GetDeviceInfoResponse) ([]domain.GenericSensor, []domain.GenericButton) {
	bridgeDevice := domain.BridgeDevice(baseTopic)
	sensors := domain.BridgeSensors(bridgeDevice)

	cmDevice := domain.CommModuleDevice(info.Hardware)
	cmDevice.ViaDevice = bridgeDevice.Id
	if cmDevice.Version == "" {
		cmDevice.Version = info.FirmwareVersion.String()
	}
	sensors = append(sensors, domain.CommModuleSensors(cmDevice)...)

	return sensors, domain.CommModuleButtons(cmDevice)
}
