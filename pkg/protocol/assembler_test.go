// Copyright (C) 2025 Braveridge Co., Ltd. All rights reserved.
// Use of this source code is governed by an MIT-style license that can be
// found in the LICENSE file.

package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Assembler_splitDelivery(t *testing.T) {
	frame := buildUplink(0x01, 0x0121, luxPayload(1.5, 2.5))
	var a Assembler

	// Deliver the frame one byte at a time; only the final byte
	// completes it.
	for i := 0; i < len(frame)-1; i++ {
		assert.Empty(t, a.Push(frame[i:i+1]))
	}
	frames := a.Push(frame[len(frame)-1:])
	require.Len(t, frames, 1)
	assert.Equal(t, frame, frames[0])
}

func Test_Assembler_backToBackFrames(t *testing.T) {
	uplink := buildUplink(0x01, 0x0121, luxPayload(1.0))
	errNote := []byte{Version, byte(TypeError), 0, 0, 0, 0, 0x02}
	var a Assembler

	frames := a.Push(append(append([]byte(nil), uplink...), errNote...))
	require.Len(t, frames, 2)
	assert.Equal(t, uplink, frames[0])
	assert.Equal(t, errNote, frames[1])
}

func Test_Assembler_resyncAfterGarbage(t *testing.T) {
	frame := buildUplink(0x01, 0x0121, luxPayload(3.0))
	var a Assembler

	garbage := []byte{0x55, 0xAA, 0x00}
	frames := a.Push(append(garbage, frame...))
	require.Len(t, frames, 1)
	assert.Equal(t, frame, frames[0])
	assert.Equal(t, uint64(len(garbage)), a.Discarded())
}

func Test_Assembler_oversizedLengthIsDropped(t *testing.T) {
	bogus := []byte{Version, byte(TypeUplink), 0xFF, 0xFF}
	follow := []byte{Version, byte(TypeError), 0, 0, 0, 0, 0x01}
	var a Assembler

	frames := a.Push(append(append([]byte(nil), bogus...), follow...))
	require.Len(t, frames, 1)
	assert.Equal(t, follow, frames[0])
	assert.NotZero(t, a.Discarded())
}

func Test_Assembler_jigInfoSizing(t *testing.T) {
	version := make([]byte, 18)
	version[0] = Version
	version[1] = byte(TypeJigInfo)
	version[6] = CmdGetVersion
	version[15], version[16], version[17] = 1, 0, 0

	deviceAll := make([]byte, 16+16)
	deviceAll[0] = Version
	deviceAll[1] = byte(TypeJigInfo)
	deviceAll[6] = CmdGetDeviceIDAll
	deviceAll[15] = 2 // two 8-byte device ids follow

	var a Assembler
	frames := a.Push(append(append([]byte(nil), version...), deviceAll...))
	require.Len(t, frames, 2)
	assert.Equal(t, version, frames[0])
	assert.Equal(t, deviceAll, frames[1])
	assert.Zero(t, a.Discarded())
}

func Test_Assembler_jigInfoDeviceSlotSizing(t *testing.T) {
	// A per-slot GET_DEVICE_ID response carries 9 data bytes: the slot
	// index followed by the 8-byte device id.
	slot := make([]byte, 24)
	slot[0] = Version
	slot[1] = byte(TypeJigInfo)
	slot[6] = 0x05 // GET_DEVICE_ID, slot 2
	slot[15] = 2
	copy(slot[16:], []byte{0x04, 0x00, 0x40, 0x03, 0x02, 0x80, 0x68, 0x24})

	errNote := []byte{Version, byte(TypeError), 0, 0, 0, 0, 0x02}

	var a Assembler
	frames := a.Push(append(append([]byte(nil), slot...), errNote...))
	require.Len(t, frames, 2)
	assert.Equal(t, slot, frames[0])
	assert.Equal(t, errNote, frames[1])
	assert.Zero(t, a.Discarded())
}

func Test_Assembler_Reset(t *testing.T) {
	frame := buildUplink(0x01, 0x0121, luxPayload(1.0))
	var a Assembler

	assert.Empty(t, a.Push(frame[:10]))
	a.Reset()
	// The partial head is gone; a fresh full frame still parses.
	frames := a.Push(frame)
	require.Len(t, frames, 1)
}
