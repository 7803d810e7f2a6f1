// Copyright (C) 2025 Braveridge Co., Ltd. All rights reserved.
// Use of this source code is governed by an MIT-style license that can be
// found in the LICENSE file.

package protocol

import (
	"encoding/binary"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/braveridge/bjig/pkg/comm"
)

func testCodec() *Codec {
	c := NewCodec(nil)
	c.now = func() time.Time {
		return time.Unix(1700000000, 0).UTC()
	}
	return c
}

// buildUplink frames a synthetic uplink notification around payload.
func buildUplink(deviceID uint64, sensorID uint16, payload []byte) []byte {
	frame := make([]byte, uplinkHeaderLen+len(payload))
	frame[0] = Version
	frame[1] = byte(TypeUplink)
	binary.LittleEndian.PutUint16(frame[2:], uint16(len(payload)))
	binary.LittleEndian.PutUint32(frame[4:], 1700000123)
	binary.LittleEndian.PutUint64(frame[8:], deviceID)
	binary.LittleEndian.PutUint16(frame[16:], sensorID)
	binary.LittleEndian.PutUint16(frame[18:], 0x0007) // sequence no
	frame[20] = 87                                    // battery %
	frame[21] = 5                                     // sampling period
	binary.LittleEndian.PutUint32(frame[22:], 1700000100)
	binary.LittleEndian.PutUint16(frame[26:], uint16(len(payload)/4))
	copy(frame[uplinkHeaderLen:], payload)
	return frame
}

func luxPayload(values ...float32) []byte {
	out := make([]byte, 0, 4*len(values))
	for _, v := range values {
		out = binary.LittleEndian.AppendUint32(out, math.Float32bits(v))
	}
	return out
}

func Test_EncodeJigInfoRequest(t *testing.T) {
	c := testCodec()
	frame := c.EncodeJigInfoRequest(CmdGetVersion)

	require.Len(t, frame, 11)
	assert.Equal(t, Version, frame[0])
	assert.Equal(t, byte(TypeJigInfo), frame[1])
	assert.Equal(t, CmdGetVersion, frame[2])
	// UTC clock: local time equals unix time.
	assert.Equal(t, uint32(1700000000), binary.LittleEndian.Uint32(frame[3:]))
	assert.Equal(t, uint32(1700000000), binary.LittleEndian.Uint32(frame[7:]))
}

func Test_EncodeDownlinkRequest(t *testing.T) {
	c := testCodec()
	data := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	frame := c.EncodeDownlinkRequest(0x2468800203400004, 0x0121, CmdInstantUplink, data)

	require.Len(t, frame, 23+len(data))
	assert.Equal(t, Version, frame[0])
	assert.Equal(t, byte(TypeDownlink), frame[1])
	assert.Equal(t, CmdInstantUplink, frame[2])
	assert.Equal(t, uint64(0x2468800203400004), binary.LittleEndian.Uint64(frame[11:]))
	assert.Equal(t, uint16(0x0121), binary.LittleEndian.Uint16(frame[19:]))
	assert.Equal(t, uint16(len(data)), binary.LittleEndian.Uint16(frame[21:]))
	assert.Equal(t, data, frame[23:])
}

func Test_Decode_uplinkIlluminance(t *testing.T) {
	c := testCodec()
	want := []float32{123.25, 0.5, 83865.0}
	frame := buildUplink(0x2468800203400004, 0x0121, luxPayload(want...))

	msg, err := c.Decode(frame)
	require.NoError(t, err)
	up, ok := msg.(UplinkNotification)
	require.True(t, ok)

	assert.Equal(t, uint64(0x2468800203400004), up.DeviceID)
	assert.Equal(t, uint16(0x0121), up.SensorID)
	assert.Equal(t, uint16(0x0007), up.SequenceNo)
	assert.Equal(t, uint8(87), up.BatteryLevel)
	assert.Equal(t, uint8(5), up.SamplingPeriod)
	assert.Equal(t, uint32(1700000100), up.SampleTime)
	assert.Equal(t, uint16(3), up.SampleCount)

	require.Len(t, up.Measurements, len(want))
	for i, v := range want {
		assert.InDelta(t, float64(v), up.Measurements[i].Values["lux"], 1e-3)
	}
}

func Test_Decode_unknownSensorFallsBack(t *testing.T) {
	c := testCodec()
	payload := []byte{0x01, 0x02, 0x03, 0x04}
	frame := buildUplink(0x01, 0x7777, payload)

	msg, err := c.Decode(frame)
	require.NoError(t, err)
	up := msg.(UplinkNotification)
	require.Len(t, up.Measurements, 1)
	assert.Equal(t, payload, up.Measurements[0].Raw)
	assert.Empty(t, up.Measurements[0].Values)
}

func Test_Decode_lengthMismatch(t *testing.T) {
	c := testCodec()
	frame := buildUplink(0x01, 0x0121, luxPayload(1.0, 2.0))
	// Declare more payload than the frame carries.
	binary.LittleEndian.PutUint16(frame[2:], 100)

	_, err := c.Decode(frame)
	require.Error(t, err)
	assert.True(t, comm.IsKind(err, comm.KindProtocol))
}

func Test_Decode_downlinkResponse(t *testing.T) {
	c := testCodec()
	frame := make([]byte, 19)
	frame[0] = Version
	frame[1] = byte(TypeDownlink)
	binary.LittleEndian.PutUint16(frame[2:], 1)
	binary.LittleEndian.PutUint32(frame[4:], 1700000050)
	binary.LittleEndian.PutUint64(frame[8:], 0x2468800205400011)
	binary.LittleEndian.PutUint16(frame[16:], 0x0123)
	frame[18] = 0x00

	msg, err := c.Decode(frame)
	require.NoError(t, err)
	resp, ok := msg.(DownlinkResponse)
	require.True(t, ok)
	assert.Equal(t, uint64(0x2468800205400011), resp.DeviceID)
	assert.Equal(t, uint16(0x0123), resp.SensorID)
	assert.Equal(t, byte(0x00), resp.Result)
}

func Test_Decode_jigInfoVersionResponse(t *testing.T) {
	c := testCodec()
	frame := make([]byte, 18)
	frame[0] = Version
	frame[1] = byte(TypeJigInfo)
	binary.LittleEndian.PutUint32(frame[2:], 1700000010)
	frame[6] = CmdGetVersion
	binary.LittleEndian.PutUint64(frame[7:], 0x2468800200000001)
	frame[15], frame[16], frame[17] = 1, 4, 22

	msg, err := c.Decode(frame)
	require.NoError(t, err)
	resp := msg.(JigInfoResponse)
	assert.Equal(t, uint64(0x2468800200000001), resp.RouterDeviceID)

	version, ok := resp.FirmwareVersion()
	require.True(t, ok)
	assert.Equal(t, "1.4.22", version)
}

func Test_Decode_jigInfoDeviceSlotResponse(t *testing.T) {
	c := testCodec()
	frame := make([]byte, 24)
	frame[0] = Version
	frame[1] = byte(TypeJigInfo)
	binary.LittleEndian.PutUint32(frame[2:], 1700000020)
	frame[6] = 0x05 // GET_DEVICE_ID, slot 2
	binary.LittleEndian.PutUint64(frame[7:], 0x2468800200000001)
	frame[15] = 2 // slot index precedes the id
	binary.LittleEndian.PutUint64(frame[16:], 0x2468800203400004)

	msg, err := c.Decode(frame)
	require.NoError(t, err)
	resp := msg.(JigInfoResponse)

	id, ok := resp.RegisteredDeviceID()
	require.True(t, ok)
	assert.Equal(t, uint64(0x2468800203400004), id)

	// Too little data to hold index plus id reads as an empty slot.
	short := resp
	short.Data = resp.Data[:8]
	_, ok = short.RegisteredDeviceID()
	assert.False(t, ok)
}

func Test_Decode_errorNotification(t *testing.T) {
	c := testCodec()
	frame := []byte{Version, byte(TypeError), 0x0A, 0x00, 0x00, 0x00, 0x06}

	msg, err := c.Decode(frame)
	require.NoError(t, err)
	errNote := msg.(ErrorNotification)
	assert.Equal(t, byte(0x06), errNote.Reason)
	assert.Contains(t, errNote.ReasonText(), "no device id")
}

func Test_Decode_badFrames(t *testing.T) {
	c := testCodec()
	tests := []struct {
		name  string
		frame []byte
	}{
		{"empty", nil},
		{"single byte", []byte{Version}},
		{"wrong version", []byte{0x02, byte(TypeUplink), 0, 0}},
		{"unknown type", []byte{Version, 0x42, 0, 0}},
		{"short uplink", []byte{Version, byte(TypeUplink), 0, 0, 0}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := c.Decode(test.frame)
			require.Error(t, err)
			assert.True(t, comm.IsKind(err, comm.KindProtocol))
		})
	}
}

func Test_GetDeviceIDCmd(t *testing.T) {
	cmd, err := GetDeviceIDCmd(0)
	require.NoError(t, err)
	assert.Equal(t, byte(0x03), cmd)

	cmd, err = GetDeviceIDCmd(99)
	require.NoError(t, err)
	assert.Equal(t, byte(0x66), cmd)

	_, err = GetDeviceIDCmd(100)
	assert.Error(t, err)

	cmd, err = RemoveDeviceIDCmd(0)
	require.NoError(t, err)
	assert.Equal(t, byte(0x6C), cmd)

	cmd, err = RemoveDeviceIDCmd(99)
	require.NoError(t, err)
	assert.Equal(t, byte(0xCE), cmd)
}

func Test_ScanModeCmd(t *testing.T) {
	cmd, err := ScanModeCmd(0)
	require.NoError(t, err)
	assert.Equal(t, CmdSetScanModeLongRange, cmd)

	cmd, err = ScanModeCmd(1)
	require.NoError(t, err)
	assert.Equal(t, CmdSetScanModeLegacy, cmd)

	_, err = ScanModeCmd(2)
	assert.Error(t, err)
}
