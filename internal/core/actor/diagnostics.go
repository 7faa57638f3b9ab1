package actor

import (
	"fmt"
	"time"

	"github.com/berfenger/amicomm/internal/config"
	"github.com/berfenger/amicomm/internal/core/domain"
	"github.com/berfenger/amicomm/internal/core/events"
	"github.com/berfenger/amicomm/internal/core/port"
	"github.com/berfenger/amicomm/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/asynkron/protoactor-go/scheduler"
	"github.com/reugn/go-quartz/quartz"
	"go.uber.org/zap"
)

const defaultHistoryLimit = 20

// SnapshotObserver receives every collected snapshot. Metrics implements it.
type SnapshotObserver interface {
	ObserveSnapshot(s *domain.Snapshot)
}

// DiagnosticsActor polls the device actor for snapshots, either every
// poll interval or on a cron schedule, and fans the results out to the event
// stream, the journal and the observer.
type DiagnosticsActor struct {
	behavior  actor.Behavior
	stash     *actorutil.Stash
	scheduler *scheduler.TimerScheduler
	cancel    scheduler.CancelFunc
	cron      *quartz.CronTrigger

	config      *config.Config
	deviceActor *actor.PID
	eventStream *eventstream.EventStream
	journal     port.DiagnosticsJournal
	observer    SnapshotObserver

	logger *zap.Logger
}

type diagnosticsTick struct {
	scheduled bool
}

func NewDiagnosticsActor(config *config.Config, deviceActor *actor.PID, eventStream *eventstream.EventStream, journal port.DiagnosticsJournal, observer SnapshotObserver, logger *zap.Logger) *DiagnosticsActor {
	act := &DiagnosticsActor{
		config:      config,
		deviceActor: deviceActor,
		eventStream: eventStream,
		journal:     journal,
		observer:    observer,
		behavior:    actor.NewBehavior(),
		stash:       &actorutil.Stash{},
		logger:      actorutil.ActorLogger(domain.ACTOR_ID_DIAGNOSTICS, logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *DiagnosticsActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *DiagnosticsActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("diagnostics@starting started")
		state.scheduler = scheduler.NewTimerScheduler(ctx)

		if expr := state.config.MonitorConfig.Cron; expr != "" {
			trigger, err := quartz.NewCronTrigger(expr)
			if err != nil {
				state.logger.Error("diagnostics@starting invalid cron expression, using poll interval", zap.String("cron", expr), zap.Error(err))
			} else {
				state.cron = trigger
			}
		}

		if state.pollingEnabled() {
			ctx.Send(ctx.Self(), diagnosticsTick{scheduled: true})
		}
		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	case *actor.Restarting:
	default:
		state.logger.Debug("diagnostics@starting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *DiagnosticsActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("diagnostics@default: ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_DIAGNOSTICS,
			Healthy: true,
			State:   "idle",
		})
	case diagnosticsTick:
		state.logger.Debug("diagnostics@default tick", zap.Bool("scheduled", msg.scheduled))
		if msg.scheduled {
			state.scheduleNext(ctx)
		}
		state.poll(ctx)
	case domain.RefreshDiagnosticsRequest:
		state.logger.Debug("diagnostics@default RefreshDiagnosticsRequest")
		state.poll(ctx)
	case domain.GetHistoryRequest:
		state.logger.Debug("diagnostics@default GetHistoryRequest", zap.Int("limit", msg.Limit))
		actorutil.ForRequest(msg).Respond(ctx, state.history(msg.Limit))
	case *actor.Stopping:
		if state.cancel != nil {
			state.cancel()
		}
	default:
		state.logger.Debug("diagnostics@default default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *DiagnosticsActor) WaitingSnapshotReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.GetDiagnosticsSnapshotResponse:
		if msg.HasResponseError() || msg.Snapshot == nil {
			state.logger.Warn("diagnostics@polling snapshot failed", zap.Error(msg.GetResponseError()))
			state.eventStream.Publish(domain.BinarySensorUpdateEvent{
				SensorUpdateEventMixIn: domain.SensorUpdateEventMixIn{Id: domain.SENSOR_ID_CM_PROBLEM},
				Value:                  true,
			})
		} else {
			state.handleSnapshot(msg.Snapshot)
		}
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	case domain.ActorHealthRequest:
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_DIAGNOSTICS,
			Healthy: true,
			State:   "polling",
		})
	case domain.RefreshDiagnosticsRequest:
		state.logger.Debug("diagnostics@polling refresh dropped, poll in progress")
	default:
		state.logger.Debug("diagnostics@polling: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *DiagnosticsActor) poll(ctx actor.Context) {
	timeout := 5 * state.requestTimeout()
	actorutil.PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.deviceActor, domain.GetDiagnosticsSnapshotRequest{}, timeout), func(err error) any {
		return domain.GetDiagnosticsSnapshotResponse{
			ActorResponseMixIn: domain.ErrorResponse(err),
		}
	})
	state.behavior.BecomeStacked(state.WaitingSnapshotReceive)
}

func (state *DiagnosticsActor) handleSnapshot(snapshot *domain.Snapshot) {
	state.logger.Info("diagnostics snapshot collected",
		zap.Bool("complete", snapshot.Complete()),
		zap.Int("neighbors", len(snapshot.Neighbors)))

	for _, ev := range events.SnapshotToUpdateEvents(snapshot) {
		state.eventStream.Publish(ev)
	}
	state.eventStream.Publish(domain.SnapshotCollectedEvent{Snapshot: snapshot})

	if state.observer != nil {
		state.observer.ObserveSnapshot(snapshot)
	}
	if state.journal != nil {
		if _, err := state.journal.Append(*snapshot); err != nil {
			state.logger.Error("diagnostics: journal append", zap.Error(err))
		}
	}
}

func (state *DiagnosticsActor) history(limit int) domain.GetHistoryResponse {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if state.journal == nil {
		return domain.GetHistoryResponse{}
	}
	entries, err := state.journal.Latest(limit)
	return domain.GetHistoryResponse{
		ActorResponseMixIn: domain.ErrorResponse(err),
		Entries:            entries,
	}
}

func (state *DiagnosticsActor) pollingEnabled() bool {
	return state.cron != nil || state.config.MonitorConfig.PollIntervalMillis > 0
}

func (state *DiagnosticsActor) scheduleNext(ctx actor.Context) {
	delay := time.Duration(state.config.MonitorConfig.PollIntervalMillis) * time.Millisecond
	if state.cron != nil {
		now := time.Now()
		next, err := state.cron.NextFireTime(now.UnixNano())
		if err != nil {
			state.logger.Error("diagnostics: no next cron fire time", zap.Error(err))
			return
		}
		delay = time.Unix(0, next).Sub(now)
	}
	if delay <= 0 {
		return
	}
	state.cancel = state.scheduler.RequestOnce(delay, ctx.Self(), diagnosticsTick{scheduled: true})
}

func (state *DiagnosticsActor) requestTimeout() time.Duration {
	if ms := state.config.CommModule.RequestTimeoutMillis; ms > 0 {
		return time.Duration(ms) * time.Millisecond
	}
	return 2 * time.Second
}
