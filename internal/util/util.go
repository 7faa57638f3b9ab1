package util

import (
	"github.com/berfenger/amicomm/internal/config"

	"go.uber.org/zap"
)

func LoadTestConfig() config.Config {
	return config.Config{
		LogLevel: zap.DebugLevel,
		Device: config.DeviceConfig{
			Simulate:        true,
			FirmwareVersion: "6.1.0",
			HardwareVersion: "2.0",
		},
		CommModule: config.CommModuleConfig{
			ActivationThreshold:  "5.5.0",
			PANIDReverseBelow:    "5.2.0",
			RequestTimeoutMillis: 2000,
		},
		MQTT: config.MQTTConfig{
			Host:      "localhost",
			Port:      1883,
			BaseTopic: "amicomm",
		},
		MonitorConfig: config.MonitorConfig{
			PollIntervalMillis: 5000,
		},
		Journal: config.JournalConfig{
			InMemory:   true,
			MaxEntries: 100,
		},
		Port: 8080,
	}
}
