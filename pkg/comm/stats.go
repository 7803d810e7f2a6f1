// Copyright (C) 2025 Braveridge Co., Ltd. All rights reserved.
// Use of this source code is governed by an MIT-style license that can be
// found in the LICENSE file.

package comm

import "sync/atomic"

// Stats holds monotonically non-decreasing traffic counters. The zero value
// is ready to use; counters reset only when a fresh connection is made.
type Stats struct {
	bytesSent     atomic.Uint64
	bytesReceived atomic.Uint64
	packetsSent   atomic.Uint64
	packetsRecv   atomic.Uint64
	errors        atomic.Uint64
}

// StatsSnapshot is a point-in-time copy of the counters.
type StatsSnapshot struct {
	BytesSent       uint64 `json:"bytesSent" yaml:"bytesSent"`
	BytesReceived   uint64 `json:"bytesReceived" yaml:"bytesReceived"`
	PacketsSent     uint64 `json:"packetsSent" yaml:"packetsSent"`
	PacketsReceived uint64 `json:"packetsReceived" yaml:"packetsReceived"`
	Errors          uint64 `json:"errors" yaml:"errors"`
}

func (s *Stats) addSent(n int) {
	s.bytesSent.Add(uint64(n))
	s.packetsSent.Add(1)
}

func (s *Stats) addReceived(n int) {
	s.bytesReceived.Add(uint64(n))
	s.packetsRecv.Add(1)
}

func (s *Stats) addError() {
	s.errors.Add(1)
}

func (s *Stats) reset() {
	s.bytesSent.Store(0)
	s.bytesReceived.Store(0)
	s.packetsSent.Store(0)
	s.packetsRecv.Store(0)
	s.errors.Store(0)
}

// Snapshot returns a consistent-enough copy of the counters.
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		BytesSent:       s.bytesSent.Load(),
		BytesReceived:   s.bytesReceived.Load(),
		PacketsSent:     s.packetsSent.Load(),
		PacketsReceived: s.packetsRecv.Load(),
		Errors:          s.errors.Load(),
	}
}
