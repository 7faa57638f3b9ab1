package config

import (
	"errors"
	"regexp"
	"strings"

	"go.uber.org/zap/zapcore"
)

type Config struct {
	LogLevel   zapcore.Level
	Device     DeviceConfig     `mapstructure:"device"`
	CommModule CommModuleConfig `mapstructure:"comm_module"`
	MQTT       MQTTConfig       `mapstructure:"mqtt"`

	MonitorConfig MonitorConfig `mapstructure:"monitor"`
	Journal       JournalConfig `mapstructure:"journal"`
	Port          uint          `mapstructure:"port"`
	HttpLog       bool          `mapstructure:"http_log"`
}

// DeviceConfig selects the meter the service talks to. Only the simulated
// comm module is built in; a real PSEM transport plugs in as a psem.Device.
type DeviceConfig struct {
	Simulate        bool   `mapstructure:"simulate"`
	FirmwareVersion string `mapstructure:"firmware_version"`
	HardwareVersion string `mapstructure:"hardware_version"`
}

type CommModuleConfig struct {
	ActivationThreshold     string `mapstructure:"activation_threshold"`
	PANIDReverseBelow       string `mapstructure:"pan_id_reverse_below"`
	IPStackResetDelayMillis uint32 `mapstructure:"ip_stack_reset_delay_millis"`
	RequestTimeoutMillis    uint32 `mapstructure:"request_timeout_millis"`
}

type MonitorConfig struct {
	PollIntervalMillis uint32 `mapstructure:"poll_interval_millis"`
	// Cron, when set, replaces the fixed poll interval.
	Cron string `mapstructure:"cron"`
}

type JournalConfig struct {
	Path       string `mapstructure:"path"`
	InMemory   bool   `mapstructure:"in_memory"`
	MaxEntries int    `mapstructure:"max_entries"`
}

type MQTTConfig struct {
	Enable            bool `mapstructure:"enable"`
	Host              string
	Port              int
	Username          string
	Password          string
	BaseTopic         string `mapstructure:"base_topic"`
	HADiscoveryEnable bool   `mapstructure:"ha_discovery_enable"`
	HADiscoveryTopic  string `mapstructure:"ha_discovery_topic"`
}

// ParseLogLevel maps a configured level name to zap. "trace" is an alias of
// debug, unknown names fall back to info.
func ParseLogLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "trace", "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "fatal":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

func CheckMQTTTopic(baseTopic string) (string, error) {
	// check and fix base topic
	lowerBaseTopic := strings.ToLower(baseTopic)
	baseTopicRegexp := regexp.MustCompile("^[a-z0-9_]+$")
	matches := baseTopicRegexp.FindAllStringSubmatch(lowerBaseTopic, 1)
	if len(matches) <= 0 {
		return "", errors.New("invalid topic. can only contain letters, numbers and underscores")
	}
	return lowerBaseTopic, nil
}
