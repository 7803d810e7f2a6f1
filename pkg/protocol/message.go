// Copyright (C) 2025 Braveridge Co., Ltd. All rights reserved.
// Use of this source code is governed by an MIT-style license that can be
// found in the LICENSE file.

// Package protocol frames outbound BraveJIG requests and decodes the inbound
// byte stream into typed messages. All multi-byte wire fields are
// little-endian.
package protocol

import (
	"fmt"
	"time"

	"github.com/braveridge/bjig/pkg/protocol/sensors"
)

// Version is the only protocol version the router speaks.
const Version byte = 0x01

// FrameType is the second byte of every frame.
type FrameType byte

const (
	TypeJigInfo  FrameType = 0x01
	TypeDownlink FrameType = 0x02
	TypeUplink   FrameType = 0x03
	TypeError    FrameType = 0xFF
)

func (t FrameType) String() string {
	switch t {
	case TypeJigInfo:
		return "jig-info"
	case TypeDownlink:
		return "downlink"
	case TypeUplink:
		return "uplink"
	case TypeError:
		return "error-notification"
	}
	return fmt.Sprintf("type(0x%02X)", byte(t))
}

// JIG Info command values. Device-index commands are derived with
// GetDeviceIDCmd and RemoveDeviceIDCmd.
const (
	CmdRouterStop           byte = 0x00
	CmdRouterStart          byte = 0x01
	CmdGetVersion           byte = 0x02
	CmdGetScanMode          byte = 0x67
	CmdSetScanModeLongRange byte = 0x69
	CmdSetScanModeLegacy    byte = 0x6A
	CmdRemoveDeviceIDAll    byte = 0x6B
	CmdGetDeviceIDAll       byte = 0xCF
	CmdKeepAlive            byte = 0xD0

	getDeviceIDBase    byte = 0x03
	removeDeviceIDBase byte = 0x6C
	maxDeviceIndex          = 99
)

// Downlink (module) command values.
const (
	CmdInstantUplink    byte = 0x00
	CmdSetParameter     byte = 0x05
	CmdGetDeviceSetting byte = 0x0D
	CmdSensorDfu        byte = 0x12
	CmdDeviceRestart    byte = 0xFD
)

// RouterSensorID addresses the router itself on the downlink path, used for
// router firmware transfer.
const RouterSensorID uint16 = 0x0000

// GetDeviceIDCmd maps a registration slot index to its GET_DEVICE_ID command.
func GetDeviceIDCmd(index int) (byte, error) {
	if index < 0 || index > maxDeviceIndex {
		return 0, fmt.Errorf("device index %d out of range (0-%d)", index, maxDeviceIndex)
	}
	return getDeviceIDBase + byte(index), nil
}

// RemoveDeviceIDCmd maps a registration slot index to its REMOVE_DEVICE_ID
// command.
func RemoveDeviceIDCmd(index int) (byte, error) {
	if index < 0 || index > maxDeviceIndex {
		return 0, fmt.Errorf("device index %d out of range (0-%d)", index, maxDeviceIndex)
	}
	return removeDeviceIDBase + byte(index), nil
}

// ScanModeCmd maps a scan mode value (0 long range, 1 legacy) to its
// SET_SCAN_MODE command.
func ScanModeCmd(mode int) (byte, error) {
	switch mode {
	case 0:
		return CmdSetScanModeLongRange, nil
	case 1:
		return CmdSetScanModeLegacy, nil
	}
	return 0, fmt.Errorf("invalid scan mode %d (0=long range, 1=legacy)", mode)
}

// Message is a decoded inbound frame or a typed outbound request.
type Message interface {
	message()
}

// JigInfoRequest is a router-level informational command.
type JigInfoRequest struct {
	Cmd byte
}

// DownlinkRequest is a host command addressed to a module via the router.
type DownlinkRequest struct {
	DeviceID uint64
	SensorID uint16
	Cmd      byte
	Data     []byte
}

// JigInfoResponse answers a JigInfoRequest.
type JigInfoResponse struct {
	UnixTime       uint32
	Cmd            byte
	RouterDeviceID uint64
	Data           []byte
}

// DownlinkResponse acknowledges a DownlinkRequest. Result 0x00 is success.
type DownlinkResponse struct {
	UnixTime uint32
	DeviceID uint64
	SensorID uint16
	Result   byte
}

// UplinkNotification is unsolicited telemetry from a module.
type UplinkNotification struct {
	UnixTime       uint32
	DeviceID       uint64
	SensorID       uint16
	SequenceNo     uint16
	BatteryLevel   uint8
	SamplingPeriod uint8
	SampleTime     uint32
	SampleCount    uint16
	Payload        []byte
	// Measurements is the sensor-specific decode of Payload. Unknown
	// sensor ids produce a single raw measurement, never an error.
	Measurements []sensors.Measurement
}

// ErrorNotification reports a router-side failure.
type ErrorNotification struct {
	UnixTime uint32
	Reason   byte
}

func (JigInfoRequest) message()     {}
func (DownlinkRequest) message()    {}
func (JigInfoResponse) message()    {}
func (DownlinkResponse) message()   {}
func (UplinkNotification) message() {}
func (ErrorNotification) message()  {}

// Time converts the notification timestamp.
func (u UplinkNotification) Time() time.Time {
	return time.Unix(int64(u.UnixTime), 0)
}

// FirmwareVersion extracts the major.minor.build triple from a GET_VERSION
// response.
func (r JigInfoResponse) FirmwareVersion() (string, bool) {
	if r.Cmd != CmdGetVersion || len(r.Data) < 3 {
		return "", false
	}
	return fmt.Sprintf("%d.%d.%d", r.Data[0], r.Data[1], r.Data[2]), true
}

// ScanMode extracts the mode from a GET_SCAN_MODE response.
func (r JigInfoResponse) ScanMode() (int, bool) {
	if r.Cmd != CmdGetScanMode || len(r.Data) < 1 {
		return 0, false
	}
	return int(r.Data[0]), true
}

// RegisteredDeviceID extracts the device id from a per-slot GET_DEVICE_ID
// response (slot index byte followed by the 8-byte little-endian id).
func (r JigInfoResponse) RegisteredDeviceID() (uint64, bool) {
	if r.Cmd < getDeviceIDBase || r.Cmd > getDeviceIDBase+maxDeviceIndex || len(r.Data) < 9 {
		return 0, false
	}
	return le64(r.Data[1:]), true
}

// DeviceIDs extracts the registered device table from a GET_DEVICE_ID_ALL
// response (count byte followed by 8-byte little-endian ids).
func (r JigInfoResponse) DeviceIDs() ([]uint64, bool) {
	if r.Cmd != CmdGetDeviceIDAll || len(r.Data) < 1 {
		return nil, false
	}
	count := int(r.Data[0])
	if len(r.Data) < 1+8*count {
		return nil, false
	}
	ids := make([]uint64, 0, count)
	for i := 0; i < count; i++ {
		ids = append(ids, le64(r.Data[1+8*i:]))
	}
	return ids, true
}

// ReasonText renders an error notification reason code.
func (e ErrorNotification) ReasonText() string {
	switch e.Reason {
	case 0x01:
		return "invalid request"
	case 0x02:
		return "downlink in progress"
	case 0x06:
		return "no device id registered at index"
	case 0x07:
		return "device not found"
	}
	return fmt.Sprintf("unknown reason 0x%02X", e.Reason)
}
