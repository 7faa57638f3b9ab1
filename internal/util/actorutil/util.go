package actorutil

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/berfenger/amicomm/internal/core/domain"
	"github.com/berfenger/amicomm/internal/mqtt"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/lmittmann/tint"
	"go.uber.org/zap"
)

func PipeToSelfWithRecover(ctx actor.Context, future *actor.Future, mapFn func(error) any) {
	ctx.ReenterAfter(future, func(msg any, err error) {
		if err != nil {
			ctx.Send(ctx.Self(), mapFn(err))
			return
		}
		ctx.Send(ctx.Self(), msg)
	})
}

func NewActorSystemWithZapLogger(logger *zap.Logger) *actor.ActorSystem {
	stdOutLogger := zap.NewStdLog(logger)

	var slogLevel slog.Level = slog.LevelInfo

	switch logger.Level() {
	case zap.DebugLevel:
		slogLevel = slog.LevelDebug
	case zap.InfoLevel:
		slogLevel = slog.LevelInfo
	case zap.WarnLevel:
		slogLevel = slog.LevelWarn
	case zap.ErrorLevel, zap.PanicLevel, zap.FatalLevel:
		slogLevel = slog.LevelError
	}

	return actor.NewActorSystem(actor.WithLoggerFactory(func(system *actor.ActorSystem) *slog.Logger {
		return slog.New(tint.NewHandler(stdOutLogger.Writer(), &tint.Options{
			Level:      slogLevel,
			TimeFormat: time.DateTime,
		}))
	}))
}

func ActorLogger(actorName string, logger *zap.Logger) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return logger.With(zap.String("actor", actorName))
}

// ParsedMQTTCommandToCommand maps a pressed button to the request it stands for.
func ParsedMQTTCommandToCommand(cmd mqtt.ParsedMQTTCommand) (domain.ActorRequest, error) {
	if cmd.Command != "button" {
		return nil, fmt.Errorf("%w: %s", mqtt.ErrInvalidCommand, cmd.Command)
	}
	switch cmd.DeviceId {
	case domain.BUTTON_ID_RESET_IP_STACK:
		return domain.ResetIPStackRequest{}, nil
	case domain.BUTTON_ID_REFRESH_DIAGNOSTICS:
		return domain.RefreshDiagnosticsRequest{}, nil
	}
	return nil, fmt.Errorf("%w: unknown button %s", mqtt.ErrInvalidCommand, cmd.DeviceId)
}
