// Copyright (C) 2025 Braveridge Co., Ltd. All rights reserved.
// Use of this source code is governed by an MIT-style license that can be
// found in the LICENSE file.

package commands

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/braveridge/bjig/pkg/protocol"
	"github.com/braveridge/bjig/pkg/protocol/sensors"
)

func TestParseHexID(t *testing.T) {
	tests := []struct {
		in      string
		want    uint64
		wantErr bool
	}{
		{in: "0x2468800203400004", want: 0x2468800203400004},
		{in: "2468800203400004", want: 0x2468800203400004},
		{in: "0X00ff", want: 0xFF},
		{in: "abc", want: 0xABC},
		{in: "", wantErr: true},
		{in: "0x", wantErr: true},
		{in: "not-hex", wantErr: true},
		{in: "0x12345678901234567", wantErr: true},
	}
	for _, test := range tests {
		got, err := parseHexID(test.in)
		if test.wantErr {
			assert.Error(t, err, "input %q", test.in)
			continue
		}
		require.NoError(t, err, "input %q", test.in)
		assert.Equal(t, test.want, got, "input %q", test.in)
	}
}

func TestParseHexID16(t *testing.T) {
	got, err := parseHexID16("0x0121")
	require.NoError(t, err)
	assert.Equal(t, uint16(0x0121), got)

	_, err = parseHexID16("0x10000")
	assert.Error(t, err)
}

func TestParseHexData(t *testing.T) {
	got, err := parseHexData("0x0a1B2c")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x0A, 0x1B, 0x2C}, got)

	got, err = parseHexData("")
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = parseHexData("xyz")
	assert.Error(t, err)
}

func TestShortEncoder(t *testing.T) {
	var buf bytes.Buffer
	enc := newShortEncoder(&buf)

	require.NoError(t, enc.Encode(routerVersion{Version: "1.2.3"}))
	assert.Equal(t, "1.2.3\n", buf.String())

	assert.Error(t, enc.Encode(struct{}{}))
}

func TestUplinkEventShort(t *testing.T) {
	ev := newUplinkEvent(protocol.UplinkNotification{
		UnixTime:     1700000000,
		DeviceID:     0x2468800203400004,
		SensorID:     0x0121,
		SequenceNo:   7,
		BatteryLevel: 93,
		Measurements: []sensors.Measurement{
			{Kind: "illuminance", Values: map[string]float64{"lux": 123.5}},
		},
	}, false)

	short := ev.Short()
	assert.Contains(t, short, "0x2468800203400004")
	assert.Contains(t, short, "0x0121")
	assert.Contains(t, short, "seq=7")
	assert.Contains(t, short, "batt=93%")
	assert.Contains(t, short, "illuminance(lux=123.500)")
}

func TestDarwinPorts(t *testing.T) {
	got := darwinPorts([]string{
		"/dev/cu.usbmodem1101",
		"/dev/tty.usbmodem1101",
		"/dev/tty.usbserial-0001",
		"/dev/cu.Bluetooth-Incoming-Port",
	})
	// The /dev/tty twin of a listed callout device is dropped; Bluetooth
	// endpoints never qualify.
	assert.Equal(t, []string{"/dev/cu.usbmodem1101", "/dev/tty.usbserial-0001"}, got)
}

func TestNamedDownlinkCmds(t *testing.T) {
	assert.Equal(t, protocol.CmdInstantUplink, namedDownlinkCmds["instant-uplink"])
	assert.Equal(t, protocol.CmdDeviceRestart, namedDownlinkCmds["restart"])
}
