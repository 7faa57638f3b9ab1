package actor

import (
	"fmt"
	"time"

	"github.com/berfenger/amicomm/internal/core/domain"
	"github.com/berfenger/amicomm/internal/core/port"
	"github.com/berfenger/amicomm/internal/core/service"
	"github.com/berfenger/amicomm/internal/util/actorutil"
	"github.com/berfenger/amicomm/pkg/psem"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"
)

const snapshotSections = 4

// DeviceActor owns the comm module. One device call runs at a time; requests
// arriving meanwhile are stashed. resetDelay is the pause ResetIPStack takes
// between disabling and re-enabling the stack.
type DeviceActor struct {
	behavior   actor.Behavior
	stash      *actorutil.Stash
	module     port.CommModule
	versions   psem.VersionSource
	service    *service.DiagnosticsService
	timeout    time.Duration
	resetDelay time.Duration
	logger     *zap.Logger
}

type backgroundTaskResult struct {
	message any
	replyTo *actor.PID
}

func NewDeviceActor(module port.CommModule, versions psem.VersionSource, timeout, resetDelay time.Duration, logger *zap.Logger) *DeviceActor {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	act := &DeviceActor{
		module:     module,
		versions:   versions,
		service:    service.NewDiagnosticsService(module, logger),
		timeout:    timeout,
		resetDelay: resetDelay,
		behavior:   actor.NewBehavior(),
		stash:      &actorutil.Stash{},
		logger:     actorutil.ActorLogger(domain.ACTOR_ID_DEVICE, logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *DeviceActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *DeviceActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		quirks := state.module.Quirks()
		state.logger.Info("device@starting comm module ready",
			zap.Stringer("firmware", quirks.Firmware),
			zap.Stringer("activation", quirks.Activation),
			zap.Bool("reverse_pan_id", quirks.ReversePANID))
		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	default:
		state.logger.Debug("device@starting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *DeviceActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("device@default: ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_DEVICE,
			Healthy: true,
			State:   "idle",
		})
	case domain.GetDeviceInfoRequest:
		state.logger.Debug("device@default: GetDeviceInfoRequest")
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)
		runDeviceTask(ctx, sender, state.timeout, state.getDeviceInfo, func(err error) domain.GetDeviceInfoResponse {
			return domain.GetDeviceInfoResponse{ActorResponseMixIn: domain.ErrorResponse(err)}
		})
		state.behavior.BecomeStacked(state.WaitingDevice)
	case domain.GetDiagnosticsSnapshotRequest:
		state.logger.Debug("device@default: GetDiagnosticsSnapshotRequest")
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)
		runDeviceTask(ctx, sender, snapshotSections*state.timeout, state.collectSnapshot, func(err error) domain.GetDiagnosticsSnapshotResponse {
			return domain.GetDiagnosticsSnapshotResponse{ActorResponseMixIn: domain.ErrorResponse(err)}
		})
		state.behavior.BecomeStacked(state.WaitingDevice)
	case domain.ReadTLVRequest:
		state.logger.Debug("device@default: ReadTLVRequest", zap.String("identifier", msg.Identifier))
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)
		identifier := msg.Identifier
		runDeviceTask(ctx, sender, state.timeout, func() (*domain.ReadTLVResponse, error) {
			return state.readTLV(identifier), nil
		}, func(err error) domain.ReadTLVResponse {
			return domain.ReadTLVResponse{ActorResponseMixIn: domain.ErrorResponse(err), Identifier: identifier}
		})
		state.behavior.BecomeStacked(state.WaitingDevice)
	case domain.ResetIPStackRequest:
		state.logger.Debug("device@default: ResetIPStackRequest")
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)
		runDeviceTask(ctx, sender, state.resetTimeout(), func() (*domain.ResetIPStackResponse, error) {
			return &domain.ResetIPStackResponse{ActorResponseMixIn: domain.ErrorResponse(state.service.ResetIPStack())}, nil
		}, func(err error) domain.ResetIPStackResponse {
			return domain.ResetIPStackResponse{ActorResponseMixIn: domain.ErrorResponse(err)}
		})
		state.behavior.BecomeStacked(state.WaitingDevice)
	default:
		state.logger.Debug("device@default default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

// resetTimeout covers the three procedures of a reset plus the delay between
// disabling and re-enabling the stack.
func (state *DeviceActor) resetTimeout() time.Duration {
	return 3*state.timeout + state.resetDelay
}

func (state *DeviceActor) WaitingDevice(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case backgroundTaskResult:
		state.logger.Debug("device@WaitingDevice backgroundTaskResult", zap.String("type", fmt.Sprintf("%T", msg.message)))
		if msg.replyTo != nil {
			ctx.Send(msg.replyTo, msg.message)
		}
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	case domain.ActorHealthRequest:
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_DEVICE,
			Healthy: true,
			State:   "busy",
		})
	default:
		state.logger.Debug("device@WaitingDevice stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *DeviceActor) getDeviceInfo() (*domain.GetDeviceInfoResponse, error) {
	hw, err := state.module.HardwareDescription()
	if err != nil {
		state.logger.Error("device: hardware description", zap.Error(err))
		return nil, err
	}
	resp := &domain.GetDeviceInfoResponse{
		FirmwareVersion: state.module.FirmwareVersion(),
		Quirks:          state.module.Quirks(),
		Hardware:        hw,
	}
	if state.versions != nil {
		resp.HardwareVersion = state.versions.HardwareVersion()
	}
	return resp, nil
}

func (state *DeviceActor) collectSnapshot() (*domain.GetDiagnosticsSnapshotResponse, error) {
	return &domain.GetDiagnosticsSnapshotResponse{
		Snapshot: state.service.Collect(time.Now()),
	}, nil
}

func (state *DeviceActor) readTLV(identifier string) *domain.ReadTLVResponse {
	raw, records, err := state.service.ReadTLV(identifier)
	return &domain.ReadTLVResponse{
		ActorResponseMixIn: domain.ErrorResponse(err),
		Identifier:         identifier,
		Raw:                raw,
		Records:            records,
	}
}

// runDeviceTask runs fn off the actor goroutine and pipes its response,
// or the recovered error response, back to self.
func runDeviceTask[T any](ctx actor.Context, sender *actor.PID, timeout time.Duration, fn func() (*T, error), onError func(error) T) {
	actorutil.MapBackgroundTask(actorutil.NewBackgroundTask(ctx, fn),
		mapTaskResult[T](sender)).Recover(func(err error) backgroundTaskResult {
		return backgroundTaskResult{
			message: onError(err),
			replyTo: sender,
		}
	}).WithTimeout(timeout).PipeTo(ctx.Self())
}

func mapTaskResult[T any](sender *actor.PID) func(t *T) *backgroundTaskResult {
	return func(t *T) *backgroundTaskResult {
		return &backgroundTaskResult{
			message: *t,
			replyTo: sender,
		}
	}
}
