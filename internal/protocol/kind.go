// Package protocol implements the relay wire format.
//
// A frame on the wire is, big-endian:
//
//	u32 kind | u64 timestamp_ms | u32 payload_len | payload | u32 binary_len | binary
//
// The payload is a JSON object (may be empty); binary is opaque (media).
// Media frames forwarded by the relay are wrapped as enhanced frames:
//
//	u64 original_timestamp_ms | u64 sequence | inner frame
package protocol

import "fmt"

type Kind uint32

const (
	KindHeartbeat Kind = iota + 1
	KindRegister
	KindLogin
	KindJoinWorkOrder
	KindLeaveWorkOrder
	KindText
	KindDeviceData
	KindVideoFrame
	KindAudioFrame
	KindControl
	KindServerEvent
	KindQoSNack
)

var kindNames = map[Kind]string{
	KindHeartbeat:      "heartbeat",
	KindRegister:       "register",
	KindLogin:          "login",
	KindJoinWorkOrder:  "join_work_order",
	KindLeaveWorkOrder: "leave_work_order",
	KindText:           "text",
	KindDeviceData:     "device_data",
	KindVideoFrame:     "video",
	KindAudioFrame:     "audio",
	KindControl:        "control",
	KindServerEvent:    "server_event",
	KindQoSNack:        "qos_nack",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", uint32(k))
}

func (k Kind) IsMedia() bool { return k == KindVideoFrame || k == KindAudioFrame }

// RoomScoped kinds are only accepted from connections that joined a room.
func (k Kind) RoomScoped() bool {
	switch k {
	case KindText, KindDeviceData, KindVideoFrame, KindAudioFrame, KindControl:
		return true
	}
	return false
}
