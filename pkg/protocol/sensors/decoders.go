// Copyright (C) 2025 Braveridge Co., Ltd. All rights reserved.
// Use of this source code is governed by an MIT-style license that can be
// found in the LICENSE file.

package sensors

import (
	"encoding/binary"
	"math"
)

// The built-in module family uses fixed-width sample records of little-endian
// IEEE-754 floats, one record per sample. A trailing partial record is
// ignored rather than treated as an error.

func decodeIlluminance(payload []byte) []Measurement {
	return decodeFloatRecords(payload, "illuminance", "lux")
}

func decodeAccelerometer(payload []byte) []Measurement {
	return decodeFloatRecords(payload, "acceleration", "x", "y", "z")
}

func decodeTempHumidity(payload []byte) []Measurement {
	return decodeFloatRecords(payload, "temp-humidity", "celsius", "humidity")
}

func decodePressure(payload []byte) []Measurement {
	return decodeFloatRecords(payload, "pressure", "hpa")
}

func decodeDistance(payload []byte) []Measurement {
	return decodeFloatRecords(payload, "distance", "millimeters")
}

// decodeContact reads one state byte per sample: 0 open, anything else
// closed.
func decodeContact(payload []byte) []Measurement {
	out := make([]Measurement, 0, len(payload))
	for _, b := range payload {
		state := 0.0
		if b != 0 {
			state = 1.0
		}
		out = append(out, Measurement{
			Kind:   "contact",
			Values: map[string]float64{"closed": state},
		})
	}
	return out
}

func decodeFloatRecords(payload []byte, kind string, channels ...string) []Measurement {
	recordLen := 4 * len(channels)
	out := make([]Measurement, 0, len(payload)/recordLen)
	for off := 0; off+recordLen <= len(payload); off += recordLen {
		values := make(map[string]float64, len(channels))
		for i, name := range channels {
			bits := binary.LittleEndian.Uint32(payload[off+4*i:])
			values[name] = float64(math.Float32frombits(bits))
		}
		out = append(out, Measurement{Kind: kind, Values: values})
	}
	return out
}
