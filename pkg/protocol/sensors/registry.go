// Copyright (C) 2025 Braveridge Co., Ltd. All rights reserved.
// Use of this source code is governed by an MIT-style license that can be
// found in the LICENSE file.

// Package sensors decodes sensor-specific uplink payloads, keyed by the
// 16-bit sensor identifier carried in every uplink notification.
package sensors

import "fmt"

// Sensor identifiers of the BraveJIG module family.
const (
	Illuminance        uint16 = 0x0121
	Accelerometer      uint16 = 0x0122
	TempHumidity       uint16 = 0x0123
	BarometricPressure uint16 = 0x0124
	DistanceRanging    uint16 = 0x0125
	ContactIO          uint16 = 0x0126
)

// Measurement is one decoded sample. Unknown sensor types produce a single
// measurement with Raw set and no values.
type Measurement struct {
	Kind   string             `json:"kind" yaml:"kind"`
	Values map[string]float64 `json:"values,omitempty" yaml:"values,omitempty"`
	Raw    []byte             `json:"raw,omitempty" yaml:"raw,omitempty"`
}

// DecodeFunc turns a sensor payload into measurements.
type DecodeFunc func(payload []byte) []Measurement

// Registry maps sensor identifiers to payload decoders.
type Registry struct {
	decoders map[uint16]DecodeFunc
}

// NewRegistry returns an empty registry; every payload falls back to raw.
func NewRegistry() *Registry {
	return &Registry{decoders: make(map[uint16]DecodeFunc)}
}

// DefaultRegistry returns a registry with all built-in decoders installed.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(Illuminance, decodeIlluminance)
	r.Register(Accelerometer, decodeAccelerometer)
	r.Register(TempHumidity, decodeTempHumidity)
	r.Register(BarometricPressure, decodePressure)
	r.Register(DistanceRanging, decodeDistance)
	r.Register(ContactIO, decodeContact)
	return r
}

// Register installs or replaces the decoder for a sensor identifier.
func (r *Registry) Register(sensorID uint16, fn DecodeFunc) {
	r.decoders[sensorID] = fn
}

// Known reports whether a decoder is registered for the identifier.
func (r *Registry) Known(sensorID uint16) bool {
	_, ok := r.decoders[sensorID]
	return ok
}

// Decode parses payload with the decoder registered for sensorID. An
// unregistered identifier is not an error: the payload comes back as one
// opaque raw measurement.
func (r *Registry) Decode(sensorID uint16, payload []byte) []Measurement {
	if fn, ok := r.decoders[sensorID]; ok {
		return fn(payload)
	}
	return []Measurement{rawMeasurement(sensorID, payload)}
}

func rawMeasurement(sensorID uint16, payload []byte) Measurement {
	return Measurement{
		Kind: fmt.Sprintf("raw-0x%04X", sensorID),
		Raw:  append([]byte(nil), payload...),
	}
}
