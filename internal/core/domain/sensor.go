package domain

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"

	"github.com/berfenger/amicomm/pkg/commmodule"
	"github.com/carlmjohnson/versioninfo"
)

const (
	SENSOR_ID_BRIDGE_STATE        = "bridge"
	SENSOR_ID_CM_FIRMWARE         = "comm_module_firmware"
	SENSOR_ID_CM_ACTIVATION       = "comm_module_activation"
	SENSOR_ID_CM_MAC              = "comm_module_mac"
	SENSOR_ID_CM_IP_STACK         = "comm_module_ip_stack"
	SENSOR_ID_CM_PROBLEM          = "comm_module_diagnostics_problem"
	SENSOR_ID_WPAN_CHANNEL        = "wpan_channel"
	SENSOR_ID_WPAN_PAN_ID         = "wpan_pan_id"
	SENSOR_ID_WPAN_TX_POWER       = "wpan_tx_power"
	SENSOR_ID_WPAN_RPL_RANK       = "wpan_rpl_rank"
	SENSOR_ID_WPAN_JOINED         = "wpan_joined"
	SENSOR_ID_NEIGHBOR_COUNT      = "neighbor_count"
	SENSOR_ID_NEIGHBOR_BEST_RSSI  = "neighbor_best_rssi"
	BUTTON_ID_RESET_IP_STACK      = "reset_ip_stack"
	BUTTON_ID_REFRESH_DIAGNOSTICS = "refresh_diagnostics"
	STATE_CLASS_MEASUREMENT       = "measurement"
	DEVICE_CLASS_SIGNAL_STRENGTH  = "signal_strength"
	DEVICE_CLASS_CONNECTIVITY     = "connectivity"
	DEVICE_CLASS_PROBLEM          = "problem"
	ENTITY_CLASS_DIAGNOSTIC       = "diagnostic"
	ENTITY_CLASS_CONFIG           = "config"
	SENSOR_TYPE_SENSOR            = "sensor"
	SENSOR_TYPE_BINARY            = "binary_sensor"
)

func BridgeDevice(baseTopic string) Device {
	return Device{
		Id:           fmt.Sprintf("amicomm_bridge_%s", md5HashShort(baseTopic)),
		Manufacturer: "ACasal",
		Model:        "amicomm",
		Version:      versioninfo.Short(),
		Name:         fmt.Sprintf("AMI comm bridge %s", md5HashShort(baseTopic)),
	}
}

func CommModuleDevice(hw *commmodule.HardwareDescription) Device {
	return Device{
		Id:           fmt.Sprintf("ami_cm_%s", md5HashShort(hw.HardwareAddress)),
		Version:      hw.FirmwareRevision,
		Manufacturer: "Cisco",
		Model:        hw.Model,
		Name:         fmt.Sprintf("Comm module %s", commmodule.FormatMACAddress(hw.MAC)),
	}
}

func IdDevice(device Device) Device {
	return Device{
		Id:   device.Id,
		Name: device.Name,
	}
}

func BridgeSensors(bridgeDevice Device) []GenericSensor {
	return []GenericSensor{{
		Device:         bridgeDevice,
		Id:             SENSOR_ID_BRIDGE_STATE,
		SensorType:     SENSOR_TYPE_BINARY,
		Name:           "Connection state",
		DeviceClass:    DEVICE_CLASS_CONNECTIVITY,
		EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
		UniqueId:       uniqueId(bridgeDevice.Id, SENSOR_ID_BRIDGE_STATE),
	}}
}

// CommModuleSensors lists the entities published from a diagnostics snapshot.
// Only the first one carries the full device description.
func CommModuleSensors(cmDevice Device) []GenericSensor {

	var sensors []GenericSensor

	sensors = append(sensors, GenericSensor{
		Device:         cmDevice,
		Id:             SENSOR_ID_CM_FIRMWARE,
		SensorType:     SENSOR_TYPE_SENSOR,
		Name:           "Firmware",
		EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
		Icon:           "mdi:chip",
	})
	sensors = append(sensors, GenericSensor{
		Device:           cmDevice,
		Id:               SENSOR_ID_CM_ACTIVATION,
		SensorType:       SENSOR_TYPE_SENSOR,
		Name:             "Table activation procedure",
		EntityCategory:   ENTITY_CLASS_DIAGNOSTIC,
		EnabledByDefault: optionalBool(false),
	})
	sensors = append(sensors, GenericSensor{
		Device:         cmDevice,
		Id:             SENSOR_ID_CM_MAC,
		SensorType:     SENSOR_TYPE_SENSOR,
		Name:           "MAC address",
		EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
		Icon:           "mdi:identifier",
	})
	sensors = append(sensors, GenericSensor{
		Device:     cmDevice,
		Id:         SENSOR_ID_CM_IP_STACK,
		SensorType: SENSOR_TYPE_SENSOR,
		Name:       "IP stack",
		Icon:       "mdi:lan",
	})
	// on means at least one section failed
	sensors = append(sensors, GenericSensor{
		Device:         cmDevice,
		Id:             SENSOR_ID_CM_PROBLEM,
		SensorType:     SENSOR_TYPE_BINARY,
		Name:           "Diagnostics problem",
		DeviceClass:    DEVICE_CLASS_PROBLEM,
		EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
	})
	sensors = append(sensors, GenericSensor{
		Device:     cmDevice,
		Id:         SENSOR_ID_WPAN_CHANNEL,
		SensorType: SENSOR_TYPE_SENSOR,
		Name:       "WPAN channel",
		Icon:       "mdi:radio-tower",
	})
	sensors = append(sensors, GenericSensor{
		Device:         cmDevice,
		Id:             SENSOR_ID_WPAN_PAN_ID,
		SensorType:     SENSOR_TYPE_SENSOR,
		Name:           "PAN id",
		EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
	})
	sensors = append(sensors, GenericSensor{
		Device:            cmDevice,
		Id:                SENSOR_ID_WPAN_TX_POWER,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "TX power",
		StateClass:        STATE_CLASS_MEASUREMENT,
		UnitOfMeasurement: "dBm",
		Icon:              "mdi:antenna",
	})
	sensors = append(sensors, GenericSensor{
		Device:     cmDevice,
		Id:         SENSOR_ID_WPAN_RPL_RANK,
		SensorType: SENSOR_TYPE_SENSOR,
		Name:       "RPL rank",
		StateClass: STATE_CLASS_MEASUREMENT,
		Icon:       "mdi:sitemap",
	})
	sensors = append(sensors, GenericSensor{
		Device:      cmDevice,
		Id:          SENSOR_ID_WPAN_JOINED,
		SensorType:  SENSOR_TYPE_BINARY,
		Name:        "Mesh joined",
		DeviceClass: DEVICE_CLASS_CONNECTIVITY,
	})
	sensors = append(sensors, GenericSensor{
		Device:     cmDevice,
		Id:         SENSOR_ID_NEIGHBOR_COUNT,
		SensorType: SENSOR_TYPE_SENSOR,
		Name:       "Neighbors",
		StateClass: STATE_CLASS_MEASUREMENT,
		Icon:       "mdi:access-point-network",
	})
	sensors = append(sensors, GenericSensor{
		Device:            cmDevice,
		Id:                SENSOR_ID_NEIGHBOR_BEST_RSSI,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Best neighbor RSSI",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_SIGNAL_STRENGTH,
		UnitOfMeasurement: "dBm",
	})

	for i := range sensors {
		sensors[i].UniqueId = uniqueId(cmDevice.Id, sensors[i].Id)
		if i > 0 {
			sensors[i].Device = IdDevice(cmDevice)
		}
	}
	return sensors
}

func CommModuleButtons(cmDevice Device) []GenericButton {
	device := IdDevice(cmDevice)
	return []GenericButton{
		{
			Device:         device,
			Id:             BUTTON_ID_RESET_IP_STACK,
			Name:           "Reset IP stack",
			UniqueId:       uniqueId(cmDevice.Id, BUTTON_ID_RESET_IP_STACK),
			Icon:           "mdi:restart",
			EntityCategory: ENTITY_CLASS_CONFIG,
		},
		{
			Device:         device,
			Id:             BUTTON_ID_REFRESH_DIAGNOSTICS,
			Name:           "Refresh diagnostics",
			UniqueId:       uniqueId(cmDevice.Id, BUTTON_ID_REFRESH_DIAGNOSTICS),
			Icon:           "mdi:refresh",
			EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
		},
	}
}

func uniqueId(baseId, id string) string {
	return fmt.Sprintf("uid_%s_%s", baseId, id)
}

func md5Hash(text string) string {
	hash := md5.Sum([]byte(text))
	return hex.EncodeToString(hash[:])
}

func md5HashShort(text string) string {
	hash := md5Hash(text)
	return hash[0:8]
}

func optionalBool(value bool) *bool {
	return &value
}
