package domain

import (
	"github.com/berfenger/amicomm/pkg/commmodule"
	"github.com/berfenger/amicomm/pkg/psem"
	"github.com/berfenger/amicomm/pkg/tlv"
)

const (
	ACTOR_ID_MASTER       = "master"
	ACTOR_ID_DEVICE       = "device"
	ACTOR_ID_DIAGNOSTICS  = "diagnostics"
	ACTOR_ID_MQTT         = "mqtt"
	ACTOR_ID_HA_DISCOVERY = "hadiscovery"
)

type GetDeviceInfoRequest struct {
	ActorRequestMixIn
}

type GetDeviceInfoResponse struct {
	ActorResponseMixIn
	FirmwareVersion psem.Version
	HardwareVersion psem.Version
	Quirks          commmodule.Quirks
	Hardware        *commmodule.HardwareDescription
}

type GetDiagnosticsSnapshotRequest struct {
	ActorRequestMixIn
}

type GetDiagnosticsSnapshotResponse struct {
	ActorResponseMixIn
	Snapshot *Snapshot
}

// ReadTLVRequest asks for the raw answer to a TLV identifier, gated and
// decoded. A malformed answer still carries the records decoded before the
// error and the raw bytes.
type ReadTLVRequest struct {
	ActorRequestMixIn
	Identifier string
}

type ReadTLVResponse struct {
	ActorResponseMixIn
	Identifier string
	Raw        []byte
	Records    tlv.Records
}

type ResetIPStackRequest struct {
	ActorRequestMixIn
}

type ResetIPStackResponse struct {
	ActorResponseMixIn
}

// RefreshDiagnosticsRequest triggers an out-of-schedule poll.
type RefreshDiagnosticsRequest struct {
	ActorRequestMixIn
}

type GetHistoryRequest struct {
	ActorRequestMixIn
	Limit int
}

type GetHistoryResponse struct {
	ActorResponseMixIn
	Entries []HistoryEntry
}

type PublishMessageRequest struct {
	ActorRequestMixIn
	Topic   string
	Payload string
	Retain  bool
}

type PublishMessageResponse struct {
	ActorResponseMixIn
}

type PublishSensorUpdateRequest struct {
	ActorRequestMixIn
	Retain bool
	Event  SensorUpdateEvent
}

type PublishSensorUpdateResponse struct {
	ActorResponseMixIn
}

type PublishDiscoveryRequest struct {
	ActorRequestMixIn
	Sensors []GenericSensor
	Buttons []GenericButton
}

type PublishDiscoveryResponse struct {
	ActorResponseMixIn
}

type ActorHealthRequest struct {
	ActorRequestMixIn
}

type ActorHealthResponse struct {
	ActorResponseMixIn
	Id      string
	Healthy bool
	State   string
}
