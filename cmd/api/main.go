package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	adactor "github.com/berfenger/amicomm/internal/adapter/actor"
	"github.com/berfenger/amicomm/internal/config"
	"github.com/berfenger/amicomm/internal/core/actor"
	"github.com/berfenger/amicomm/internal/device"
	"github.com/berfenger/amicomm/internal/journal"
	"github.com/berfenger/amicomm/internal/metrics"
	"github.com/berfenger/amicomm/internal/server"
	"github.com/berfenger/amicomm/internal/util/actorutil"

	pactor "github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/reugn/go-quartz/quartz"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func gracefulShutdown(apiServer *http.Server, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Listen for the interrupt signal.
	<-ctx.Done()

	log.Println("shutting down gracefully, press Ctrl+C again to force")

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown with error: %v", err)
	}

	log.Println("Server exiting")

	// Notify the main goroutine that the shutdown is complete
	done <- true
}

func main() {

	// load and print config
	cfg, err := initConfig()
	if err != nil {
		slog.Error("config errors", "error", err)
		os.Exit(1)
	}
	safePrintConfig(*cfg)

	// zap logger
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)

	logger := zap.Must(zapCfg.Build())
	defer logger.Sync()

	// init actor system
	as := actorutil.NewActorSystemWithZapLogger(logger)
	ctx := as.Root

	m := metrics.New()

	deviceProv, err := deviceActorProvider(cfg, m, logger)
	if err != nil {
		logger.Error("comm module setup failed", zap.Error(err))
		return
	}

	j, err := journal.Open(cfg.Journal, logger)
	if err != nil {
		logger.Error("journal open failed", zap.Error(err))
		return
	}
	defer j.Close()

	props := pactor.PropsFromProducer(func() pactor.Actor {
		return actor.NewMasterActor(*cfg, deviceProv, mqttActorProvider(cfg, logger), j, m, logger)
	})
	pid, err := ctx.SpawnNamed(props, "master")
	if err != nil {
		logger.Error("master actor spawn failed", zap.Error(err))
		return
	}

	server := server.NewServer(*cfg, ctx, pid, m.Handler(), logger)
	// Create a done channel to signal when the shutdown is complete
	done := make(chan bool, 1)

	// Run graceful shutdown in a separate goroutine
	go gracefulShutdown(server, done)

	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		panic(fmt.Sprintf("http server error: %s", err))
	}

	// Wait for the graceful shutdown to complete
	<-done
	log.Println("Graceful shutdown complete.")

	ctx.Stop(pid)
	as.Shutdown()
}

func initConfig() (*config.Config, error) {

	// alias PORT => AMICOMM_PORT
	if port := os.Getenv("PORT"); port != "" {
		os.Setenv("AMICOMM_PORT", port)
	}

	setConfigDefaults()

	viper.SetEnvPrefix("amicomm")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// if defined, try to load config from yaml file
	if cfgFile := os.Getenv("CONFIG_FILE"); cfgFile != "" {
		if _, err := os.Stat(cfgFile); err == nil {
			slog.Info("Using config", "file", cfgFile)
			viper.SetConfigFile(cfgFile)

			err = viper.ReadInConfig()
			if err != nil {
				slog.Error("Error reading config file", "error", err)
			}
		}
	}

	var cfg config.Config

	err := viper.Unmarshal(&cfg)
	if err != nil {
		return nil, err
	}

	cfg.LogLevel = config.ParseLogLevel(viper.GetString("log_level"))

	// check and fix base topic
	baseTopic, err := config.CheckMQTTTopic(cfg.MQTT.BaseTopic)
	if err != nil {
		return nil, errors.New("invalid base topic. can only contain letters, numbers and underscores")
	}
	cfg.MQTT.BaseTopic = baseTopic

	// check and fix homeassistant discovery topic
	hadBaseTopic, err := config.CheckMQTTTopic(cfg.MQTT.HADiscoveryTopic)
	if err != nil {
		return nil, errors.New("invalid homeassistant discovery topic. can only contain letters, numbers and underscores")
	}
	cfg.MQTT.HADiscoveryTopic = hadBaseTopic

	// check bounds
	if cfg.MonitorConfig.Cron != "" {
		if _, err := quartz.NewCronTrigger(cfg.MonitorConfig.Cron); err != nil {
			return nil, fmt.Errorf("config param monitor.cron is not a valid cron expression: %w", err)
		}
	} else if cfg.MonitorConfig.PollIntervalMillis < 1000 {
		return nil, errors.New("config param monitor.poll_interval_millis should be >= 1000")
	}
	if cfg.CommModule.RequestTimeoutMillis < 100 {
		return nil, errors.New("config param comm_module.request_timeout_millis should be >= 100")
	}
	if cfg.Journal.MaxEntries < 0 {
		return nil, errors.New("config param journal.max_entries should be >= 0")
	}
	if !cfg.Journal.InMemory && cfg.Journal.Path == "" {
		return nil, errors.New("config param journal.path is required unless journal.in_memory is set")
	}

	return &cfg, nil
}

func deviceActorProvider(cfg *config.Config, m *metrics.Metrics, logger *zap.Logger) (actor.DeviceActorProvider, error) {

	h, err := device.Open(*cfg, logger, m.Instrument())
	if err != nil {
		return nil, err
	}
	timeout := time.Duration(cfg.CommModule.RequestTimeoutMillis) * time.Millisecond
	resetDelay := time.Duration(cfg.CommModule.IPStackResetDelayMillis) * time.Millisecond

	return func() *adactor.DeviceActor {
		return adactor.NewDeviceActor(h.Module, h.Session, timeout, resetDelay, logger)
	}, nil
}

func mqttActorProvider(cfg *config.Config, logger *zap.Logger) actor.MQTTActorProvider {
	return func(es *eventstream.EventStream) *adactor.MQTTActor {
		if !cfg.MQTT.Enable {
			return adactor.NewTestMQTTActor(cfg, es, logger)
		}
		return adactor.NewMQTTActor(cfg, es, logger)
	}
}

func setConfigDefaults() {
	viper.SetDefault("log_level", "warn")
	viper.SetDefault("device.simulate", true)
	viper.SetDefault("device.firmware_version", "6.1.0")
	viper.SetDefault("device.hardware_version", "2.0")
	viper.SetDefault("comm_module.activation_threshold", "5.5.0")
	viper.SetDefault("comm_module.pan_id_reverse_below", "5.2.0")
	viper.SetDefault("comm_module.ip_stack_reset_delay_millis", 1000)
	viper.SetDefault("comm_module.request_timeout_millis", 2000)
	viper.SetDefault("mqtt.enable", true)
	viper.SetDefault("mqtt.host", "localhost")
	viper.SetDefault("mqtt.port", 1883)
	viper.SetDefault("mqtt.username", "")
	viper.SetDefault("mqtt.password", "")
	viper.SetDefault("mqtt.ha_discovery_enable", false)
	viper.SetDefault("mqtt.base_topic", "amicomm")
	viper.SetDefault("mqtt.ha_discovery_topic", "homeassistant")
	viper.SetDefault("monitor.poll_interval_millis", 60000)
	viper.SetDefault("monitor.cron", "")
	viper.SetDefault("journal.path", "data/journal")
	viper.SetDefault("journal.in_memory", false)
	viper.SetDefault("journal.max_entries", 1440)
	viper.SetDefault("port", 8080)
	viper.SetDefault("http_log", false)
}

func safePrintConfig(cfg config.Config) {
	cfg.MQTT.Username = "*redacted*"
	cfg.MQTT.Password = "*redacted*"
	slog.Info("Using", "config", cfg)
}
