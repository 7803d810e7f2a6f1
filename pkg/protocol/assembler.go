// Copyright (C) 2025 Braveridge Co., Ltd. All rights reserved.
// Use of this source code is governed by an MIT-style license that can be
// found in the LICENSE file.

package protocol

import "encoding/binary"

// maxFrameLen caps how large a declared frame may be before the assembler
// treats the length field as garbage and resynchronizes.
const maxFrameLen = 4096

// Assembler reassembles complete frames from the raw inbound byte stream.
// Serial reads deliver arbitrary chunk boundaries, so a frame may arrive
// split across several reads or back-to-back with the next one.
//
// Frame boundaries are derived per type: uplinks carry an explicit payload
// length, downlink responses and error notifications are fixed size, and
// JIG Info responses are sized from a per-command data table.
type Assembler struct {
	buf       []byte
	discarded uint64
}

// Discarded returns how many bytes have been skipped while resynchronizing.
func (a *Assembler) Discarded() uint64 { return a.discarded }

// Push appends data to the stream and returns every complete frame now
// available. Unframeable bytes are skipped one at a time until a plausible
// frame start is found.
func (a *Assembler) Push(data []byte) [][]byte {
	a.buf = append(a.buf, data...)

	var frames [][]byte
	for {
		n, ok := a.nextFrameLen()
		if !ok {
			// Not synchronized: drop one byte and rescan.
			if len(a.buf) == 0 {
				break
			}
			a.buf = a.buf[1:]
			a.discarded++
			continue
		}
		if n == 0 || len(a.buf) < n {
			// Waiting for the rest of the frame.
			break
		}
		frame := make([]byte, n)
		copy(frame, a.buf[:n])
		a.buf = a.buf[n:]
		frames = append(frames, frame)
	}
	return frames
}

// Reset drops any partially accumulated frame.
func (a *Assembler) Reset() {
	a.buf = a.buf[:0]
}

// nextFrameLen determines the total length of the frame at the head of the
// buffer. It returns (0, true) when more bytes are needed and (0, false)
// when the head byte cannot start a frame.
func (a *Assembler) nextFrameLen() (int, bool) {
	if len(a.buf) == 0 {
		return 0, true
	}
	if a.buf[0] != Version {
		return 0, false
	}
	if len(a.buf) < 2 {
		return 0, true
	}

	switch FrameType(a.buf[1]) {
	case TypeDownlink:
		return downlinkResponseLen, true
	case TypeError:
		return errorNotificationLen, true
	case TypeUplink:
		if len(a.buf) < 4 {
			return 0, true
		}
		payload := int(binary.LittleEndian.Uint16(a.buf[2:]))
		if uplinkHeaderLen+payload > maxFrameLen {
			return 0, false
		}
		return uplinkHeaderLen + payload, true
	case TypeJigInfo:
		return a.jigInfoFrameLen()
	}
	return 0, false
}

// jigInfoFrameLen sizes a JIG Info response, whose data portion depends on
// the command byte.
func (a *Assembler) jigInfoFrameLen() (int, bool) {
	if len(a.buf) < 7 {
		return 0, true
	}
	cmd := a.buf[6]
	switch {
	case cmd == CmdGetVersion:
		return jigInfoResponseLen + 3, true
	case cmd == CmdGetScanMode:
		return jigInfoResponseLen + 1, true
	case cmd >= getDeviceIDBase && cmd <= getDeviceIDBase+maxDeviceIndex:
		// Slot index byte followed by the 8-byte device id.
		return jigInfoResponseLen + 9, true
	case cmd == CmdGetDeviceIDAll:
		if len(a.buf) < jigInfoResponseLen+1 {
			return 0, true
		}
		count := int(a.buf[jigInfoResponseLen])
		return jigInfoResponseLen + 1 + 8*count, true
	default:
		// Start/stop, scan mode set, removals and keep-alive all answer
		// with a single result byte.
		return jigInfoResponseLen + 1, true
	}
}
