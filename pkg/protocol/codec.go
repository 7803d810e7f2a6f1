// Copyright (C) 2025 Braveridge Co., Ltd. All rights reserved.
// Use of this source code is governed by an MIT-style license that can be
// found in the LICENSE file.

package protocol

import (
	"encoding/binary"
	"time"

	"github.com/braveridge/bjig/pkg/comm"
	"github.com/braveridge/bjig/pkg/protocol/sensors"
)

// Frame layout constants.
const (
	jigInfoRequestLen    = 11 // ver, type, cmd, localTime(4), unixTime(4)
	downlinkHeaderLen    = 23 // jig header + deviceId(8), sensorId(2), dataLen(2)
	jigInfoResponseLen   = 15 // ver, type, unixTime(4), cmd, routerId(8)
	downlinkResponseLen  = 19
	errorNotificationLen = 7
	uplinkHeaderLen      = 28
)

// Codec encodes outbound request frames and decodes inbound frames into
// typed messages. Sensor payload decoding is delegated to the registry.
type Codec struct {
	registry *sensors.Registry

	// now stamps outbound frames; replaceable in tests.
	now func() time.Time
}

// NewCodec builds a codec around reg. A nil reg selects the default
// registry with the built-in decoders.
func NewCodec(reg *sensors.Registry) *Codec {
	if reg == nil {
		reg = sensors.DefaultRegistry()
	}
	return &Codec{registry: reg, now: time.Now}
}

// Registry exposes the sensor registry for extension.
func (c *Codec) Registry() *sensors.Registry { return c.registry }

// header writes the common outbound prefix: version, type, command and the
// timezone-adjusted local time plus unix time, both 4-byte little-endian.
func (c *Codec) header(buf []byte, typ FrameType, cmd byte) {
	now := c.now()
	_, offset := now.Zone()
	buf[0] = Version
	buf[1] = byte(typ)
	buf[2] = cmd
	binary.LittleEndian.PutUint32(buf[3:], uint32(now.Unix()+int64(offset)))
	binary.LittleEndian.PutUint32(buf[7:], uint32(now.Unix()))
}

// EncodeJigInfoRequest frames a router-level informational command.
func (c *Codec) EncodeJigInfoRequest(cmd byte) []byte {
	buf := make([]byte, jigInfoRequestLen)
	c.header(buf, TypeJigInfo, cmd)
	return buf
}

// EncodeDownlinkRequest frames a command addressed to a module. The data
// length field counts only the command-specific payload.
func (c *Codec) EncodeDownlinkRequest(deviceID uint64, sensorID uint16, cmd byte, data []byte) []byte {
	buf := make([]byte, downlinkHeaderLen+len(data))
	c.header(buf, TypeDownlink, cmd)
	binary.LittleEndian.PutUint64(buf[11:], deviceID)
	binary.LittleEndian.PutUint16(buf[19:], sensorID)
	binary.LittleEndian.PutUint16(buf[21:], uint16(len(data)))
	copy(buf[downlinkHeaderLen:], data)
	return buf
}

// Decode classifies one complete inbound frame and parses it into a typed
// message. A declared-length mismatch or truncated frame yields a protocol
// error scoped to this frame; the session is unaffected.
func (c *Codec) Decode(frame []byte) (Message, error) {
	if len(frame) < 2 {
		return nil, comm.Errorf(comm.KindProtocol, "decode", "frame too short: %d bytes", len(frame))
	}
	if frame[0] != Version {
		return nil, comm.Errorf(comm.KindProtocol, "decode", "unsupported protocol version 0x%02X", frame[0])
	}

	switch FrameType(frame[1]) {
	case TypeJigInfo:
		return c.decodeJigInfoResponse(frame)
	case TypeDownlink:
		return c.decodeDownlinkResponse(frame)
	case TypeUplink:
		return c.decodeUplink(frame)
	case TypeError:
		return c.decodeErrorNotification(frame)
	}
	return nil, comm.Errorf(comm.KindProtocol, "decode", "unknown frame type 0x%02X", frame[1])
}

func (c *Codec) decodeJigInfoResponse(frame []byte) (Message, error) {
	if len(frame) < jigInfoResponseLen {
		return nil, comm.Errorf(comm.KindProtocol, "decode",
			"jig info response too short: %d bytes, expected %d+", len(frame), jigInfoResponseLen)
	}
	resp := JigInfoResponse{
		UnixTime:       binary.LittleEndian.Uint32(frame[2:]),
		Cmd:            frame[6],
		RouterDeviceID: binary.LittleEndian.Uint64(frame[7:]),
	}
	if len(frame) > jigInfoResponseLen {
		resp.Data = append([]byte(nil), frame[jigInfoResponseLen:]...)
	}
	return resp, nil
}

func (c *Codec) decodeDownlinkResponse(frame []byte) (Message, error) {
	if len(frame) != downlinkResponseLen {
		return nil, comm.Errorf(comm.KindProtocol, "decode",
			"downlink response must be %d bytes, got %d", downlinkResponseLen, len(frame))
	}
	declared := binary.LittleEndian.Uint16(frame[2:])
	if declared != 1 {
		return nil, comm.Errorf(comm.KindProtocol, "decode",
			"downlink response declares %d data bytes, expected 1", declared)
	}
	return DownlinkResponse{
		UnixTime: binary.LittleEndian.Uint32(frame[4:]),
		DeviceID: binary.LittleEndian.Uint64(frame[8:]),
		SensorID: binary.LittleEndian.Uint16(frame[16:]),
		Result:   frame[18],
	}, nil
}

func (c *Codec) decodeUplink(frame []byte) (Message, error) {
	if len(frame) < uplinkHeaderLen {
		return nil, comm.Errorf(comm.KindProtocol, "decode",
			"uplink too short: %d bytes, expected %d+", len(frame), uplinkHeaderLen)
	}
	declared := int(binary.LittleEndian.Uint16(frame[2:]))
	payload := frame[uplinkHeaderLen:]
	if declared != len(payload) {
		return nil, comm.Errorf(comm.KindProtocol, "decode",
			"uplink declares %d payload bytes but carries %d", declared, len(payload))
	}

	msg := UplinkNotification{
		UnixTime:       binary.LittleEndian.Uint32(frame[4:]),
		DeviceID:       binary.LittleEndian.Uint64(frame[8:]),
		SensorID:       binary.LittleEndian.Uint16(frame[16:]),
		SequenceNo:     binary.LittleEndian.Uint16(frame[18:]),
		BatteryLevel:   frame[20],
		SamplingPeriod: frame[21],
		SampleTime:     binary.LittleEndian.Uint32(frame[22:]),
		SampleCount:    binary.LittleEndian.Uint16(frame[26:]),
		Payload:        append([]byte(nil), payload...),
	}
	msg.Measurements = c.registry.Decode(msg.SensorID, msg.Payload)
	return msg, nil
}

func (c *Codec) decodeErrorNotification(frame []byte) (Message, error) {
	if len(frame) < errorNotificationLen {
		return nil, comm.Errorf(comm.KindProtocol, "decode",
			"error notification too short: %d bytes, expected %d", len(frame), errorNotificationLen)
	}
	return ErrorNotification{
		UnixTime: binary.LittleEndian.Uint32(frame[2:]),
		Reason:   frame[6],
	}, nil
}

func le64(b []byte) uint64 {
	return binary.LittleEndian.Uint64(b)
}
